// Package middleware provides HTTP middleware components for the Live
// Gateway server: the IP access control gate and the request logging
// middleware with its response writer wrapper.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/livegateway/livegateway/internal/access"
	"github.com/livegateway/livegateway/internal/api/handlers"
	"github.com/livegateway/livegateway/internal/config"
	"github.com/livegateway/livegateway/internal/netutil"
	log "github.com/sirupsen/logrus"
)

// AccessControl returns a Gin middleware that allows or denies requests by
// client IP. It runs before body parsing and before any backend session
// opens, so a denial costs zero backend resources. With no rules configured
// the gate is inert and every request passes.
func AccessControl(cfg *config.Config, allowList *access.List, trustedProxies map[string]struct{}) gin.HandlerFunc {
	return func(c *gin.Context) {
		if allowList.Empty() {
			c.Next()
			return
		}

		clientIP := netutil.ResolveClientIP(c.Request.RemoteAddr, c.Request.Header, cfg.ReverseProxyMode, trustedProxies)
		if allowList.Allowed(clientIP) {
			c.Set("clientIP", clientIP)
			c.Next()
			return
		}

		log.Warnf("access denied for %s (allow-list: %v)", clientIP, allowList.Rules())
		c.AbortWithStatusJSON(http.StatusForbidden, handlers.ErrorResponse{
			Error: handlers.ErrorDetail{
				Message: "your IP address is not allowed to access this service",
				Type:    "access_denied",
			},
		})
	}
}
