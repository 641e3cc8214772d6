package middleware

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/richxcame/scooter-ride/pkg/httpclient"
)

// CORS allows the comma-separated origins to call the console. An empty list
// falls back to the local development UI.
func CORS(origins string) gin.HandlerFunc {
	cfg := cors.DefaultConfig()
	allowed := splitOrigins(origins)
	if len(allowed) == 1 && allowed[0] == "*" {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = allowed
		cfg.AllowCredentials = true
	}
	cfg.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", httpclient.CorrelationIDHeader}
	cfg.ExposeHeaders = []string{httpclient.CorrelationIDHeader, "X-Trace-ID"}
	cfg.MaxAge = 12 * time.Hour
	return cors.New(cfg)
}

func splitOrigins(origins string) []string {
	var out []string
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return []string{"http://localhost:3000"}
	}
	return out
}
