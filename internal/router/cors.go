package router

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/cors"

	"github.com/iliyamo/office-booking/internal/config"
)

var devOrigins = []string{"http://localhost:5173", "http://localhost:3000"}

// newCORS allows the configured frontend, the local dev servers, any extra
// origins and Vercel preview deployments.
func newCORS(cfg config.Config) *cors.Cors {
	allowed := allowedOrigins(cfg)
	return cors.New(cors.Options{
		AllowOriginFunc: func(origin string) bool { return originAllowed(allowed, origin) },
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch,
			http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"RateLimit-Limit", "RateLimit-Remaining", "RateLimit-Reset", "Retry-After", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           600,
	})
}

func allowedOrigins(cfg config.Config) map[string]bool {
	set := map[string]bool{}
	for _, o := range append(append([]string{cfg.FrontendURL}, devOrigins...), cfg.CORSExtraOrigins...) {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			set[o] = true
		}
	}
	return set
}

func originAllowed(allowed map[string]bool, origin string) bool {
	if allowed[origin] {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.Scheme != "https" {
		return false
	}
	return strings.HasSuffix(u.Hostname(), ".vercel.app")
}
