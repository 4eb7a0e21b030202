package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/praxishq/praxis-auth/internal/auth/service"
	"github.com/praxishq/praxis-auth/internal/auth/store"
	"github.com/praxishq/praxis-auth/pkg/httpx"
	"github.com/praxishq/praxis-auth/pkg/jwtx"
	"github.com/praxishq/praxis-auth/pkg/slogx"

	_ "github.com/praxishq/praxis-auth/api/auth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     *jwtx.Verifier
	signerCfg    jwtx.Config
	issuer       string
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store store.Store

	// LoginURL is where unauthenticated authorize requests are deferred to.
	LoginURL string

	LoginService     *service.LoginService
	MFAService       *service.MFAService
	TokenService     *service.TokenService
	AuthorizeService *service.AuthorizeService
	ResetService     *service.PasswordResetService
}

func NewRouter(
	verifier *jwtx.Verifier,
	signerCfg jwtx.Config,
	issuer, buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		signerCfg:    signerCfg,
		issuer:       issuer,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerLogin()
	r.registerMFA()
	r.registerOAuth2()
	r.registerPasswordReset()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Praxis Authentication Service API
//	@version		0.1.0
//	@description	Authentication and delegated-authorization service: password and MFA login,
//	@description	JWT session issuance, the OAuth2 authorization-code flow with PKCE, the
//	@description	client_credentials grant, and the password-reset lifecycle.
//
//	@contact.name				Praxis Platform Team
//	@contact.url				https://github.com/praxishq/praxis-auth
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT session token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerLogin() {
	h := &LoginHandler{LoginService: r.LoginService}

	// POST /auth/login - strict rate limit by IP + email to slow brute force
	r.Mux.Handle("POST /auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /auth/token - machine clients, strict rate limit by IP
	clientTokenHandler := &ClientTokenHandler{TokenService: r.TokenService}
	r.Mux.Handle("POST /auth/token",
		httpx.Chain(clientTokenHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerMFA() {
	h := &MFAHandler{
		LoginService: r.LoginService,
		MFAService:   r.MFAService,
	}

	// POST /auth/mfa/verify - strict rate limit (second factor brute force)
	r.Mux.Handle("POST /auth/mfa/verify",
		httpx.Chain(http.HandlerFunc(h.HandleVerify),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /auth/mfa/setup - authenticated, moderate rate limit by user
	securedSetup := httpx.Chain(http.HandlerFunc(h.HandleSetup),
		httpx.AuthnMiddleware(r.verifier),
		httpx.RateLimitByUser(httpx.ModerateLimit),
	)
	r.Mux.Handle("POST /auth/mfa/setup", securedSetup)

	// DELETE /auth/mfa - authenticated, moderate rate limit by user
	securedRemove := httpx.Chain(http.HandlerFunc(h.HandleRemove),
		httpx.AuthnMiddleware(r.verifier),
		httpx.RateLimitByUser(httpx.ModerateLimit),
	)
	r.Mux.Handle("DELETE /auth/mfa", securedRemove)
}

func (r *Router) registerOAuth2() {
	authorizeHandler := &AuthorizeHandler{
		AuthorizeService: r.AuthorizeService,
		Verifier:         r.verifier,
		LoginURL:         r.LoginURL,
		Logger:           r.logger,
	}

	// GET /oauth/authorize - lenient rate limit (browser redirects)
	r.Mux.Handle("GET /oauth/authorize",
		httpx.Chain(http.HandlerFunc(authorizeHandler.HandleGet),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)

	// POST /oauth/token - strict rate limit per IP and client so one client
	// behind a NAT cannot exhaust another's budget
	tokenHandler := &TokenHandler{TokenService: r.TokenService}
	r.Mux.Handle("POST /oauth/token",
		httpx.Chain(tokenHandler,
			httpx.RateLimitByIPAndFormField(httpx.StrictLimit, "client_id"),
		),
	)
}

func (r *Router) registerPasswordReset() {
	h := &PasswordResetHandler{ResetService: r.ResetService}

	// POST /auth/forgot-password - strict rate limit (mail-sending endpoint)
	r.Mux.Handle("POST /auth/forgot-password",
		httpx.Chain(http.HandlerFunc(h.HandleForgot),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// GET /auth/verify-reset-token/{token} - moderate rate limit
	r.Mux.Handle("GET /auth/verify-reset-token/{token}",
		httpx.Chain(http.HandlerFunc(h.HandleVerifyToken),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	// POST /auth/set-new-password - strict rate limit (token guessing)
	r.Mux.Handle("POST /auth/set-new-password",
		httpx.Chain(http.HandlerFunc(h.HandleSetNewPassword),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.signerCfg),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
