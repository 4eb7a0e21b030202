package http

import (
	"net/http"
	"time"

	"github.com/praxishq/praxis-auth/pkg/authsdk"
	"github.com/praxishq/praxis-auth/pkg/httpx"
)

// LivezHandler godoc
//
//	@Summary		Liveness Probe
//	@Description	Reports that the process is up, with uptime and build version.
//	@Description	Always returns 200 while the service is running; use /readyz to check dependencies.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.HealthResponse	"status, uptime, version"
//	@Router			/livez [get].
func LivezHandler(startTime time.Time, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, authsdk.HealthResponse{
			Status:  "ok",
			Uptime:  time.Since(startTime).String(),
			Version: version,
		})
	}
}
