package app

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	// Issuer is the iss claim stamped into every token.
	Issuer string `env:"AUTH_ISSUER" envDefault:"praxis-auth"`

	// JWTSecret is the process-wide HMAC signing key. Required.
	JWTSecret string `env:"AUTH_JWT_SECRET,required"`

	SessionTTL     time.Duration `env:"AUTH_SESSION_TTL" envDefault:"1h"`
	ClientTokenTTL time.Duration `env:"AUTH_CLIENT_TOKEN_TTL" envDefault:"12h"`
	CodeTTL        time.Duration `env:"AUTH_CODE_TTL" envDefault:"10m"`
	ResetTTL       time.Duration `env:"AUTH_RESET_TTL" envDefault:"30m"`
	OTPTTL         time.Duration `env:"AUTH_OTP_TTL" envDefault:"5m"`

	DatabaseFile string `env:"AUTH_DATABASE_FILE" envDefault:"auth.db"`
	PepperFile   string `env:"AUTH_PEPPER_FILE" envDefault:"pepper"`

	// ClientsFile points at a JSON file of OAuth client registrations that
	// is loaded into the database at startup. Optional.
	ClientsFile string `env:"AUTH_CLIENTS_FILE"`

	// UsersFile points at a JSON file of credential records created at
	// startup if they do not already exist. Optional.
	UsersFile string `env:"AUTH_USERS_FILE"`

	// LoginURL is where unauthenticated authorize requests are deferred to.
	LoginURL string `env:"AUTH_LOGIN_URL" envDefault:"/login"`

	// ResetURLBase is the prefix reset tokens are appended to when building
	// the emailed link.
	ResetURLBase string `env:"AUTH_RESET_URL_BASE" envDefault:"http://localhost:8080/reset-password/"`

	// SMTP relay settings. When Host is empty, mail is logged instead of sent.
	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	SMTPFrom     string `env:"SMTP_FROM" envDefault:"no-reply@praxis.local"`

	Env                  string        `env:"ENV" envDefault:"dev"`
	LogLevel             string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat            string        `env:"LOG_FORMAT" envDefault:"json"`
	Port                 int           `env:"PORT" envDefault:"8080"`
	ShutdownGracePeriod  time.Duration `env:"SHUTDOWN_GRACE_PERIOD" envDefault:"10s"`
	HousekeepingInterval time.Duration `env:"HOUSEKEEPING_INTERVAL" envDefault:"1h"`
}

// LoadConfig populates Config from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse configuration: %w", err)
	}
	return cfg, nil
}
