package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// CORSConfig holds CORS configuration.
type CORSConfig struct {
	AllowOrigins []string
	AllowMethods []string
	AllowHeaders []string
}

// AllowsOrigin reports whether a browser origin may call the API. An empty
// list or a "*" entry allows any origin.
func (cfg CORSConfig) AllowsOrigin(origin string) bool {
	return OriginAllowed(cfg.AllowOrigins, origin)
}

// OriginAllowed matches origin against a list of exact origins or "*".
// Requests without an Origin header are not browser cross-origin calls and pass.
func OriginAllowed(allowed []string, origin string) bool {
	if origin == "" || len(allowed) == 0 {
		return true
	}
	for _, o := range allowed {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

// CORS returns CORS middleware. Disallowed preflights are refused; other
// disallowed requests pass through without CORS headers.
func CORS(cfg CORSConfig) echo.MiddlewareFunc {
	methods := strings.Join(cfg.AllowMethods, ", ")
	headers := strings.Join(cfg.AllowHeaders, ", ")

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			origin := c.Request().Header.Get(echo.HeaderOrigin)
			preflight := c.Request().Method == http.MethodOptions
			res := c.Response().Header()
			res.Add(echo.HeaderVary, echo.HeaderOrigin)

			if origin == "" {
				return next(c)
			}
			if !cfg.AllowsOrigin(origin) {
				if preflight {
					return c.NoContent(http.StatusForbidden)
				}
				return next(c)
			}

			res.Set(echo.HeaderAccessControlAllowOrigin, origin)
			if methods != "" {
				res.Set(echo.HeaderAccessControlAllowMethods, methods)
			}
			if headers != "" {
				res.Set(echo.HeaderAccessControlAllowHeaders, headers)
			}

			if preflight {
				return c.NoContent(http.StatusNoContent)
			}
			return next(c)
		}
	}
}
