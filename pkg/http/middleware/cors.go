package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

// CORSConfig holds CORS configuration. An empty AllowOrigins allows any origin.
type CORSConfig struct {
	AllowOrigins  []string
	AllowMethods  []string
	AllowHeaders  []string
	ExposeHeaders []string
	MaxAge        int
}

// CORS answers preflight requests with 204 and decorates every other
// response from an allowed origin.
func CORS(cfg CORSConfig) echo.MiddlewareFunc {
	methods := strings.Join(cfg.AllowMethods, ", ")
	headers := strings.Join(cfg.AllowHeaders, ", ")
	expose := strings.Join(cfg.ExposeHeaders, ", ")

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			res := c.Response().Header()
			preflight := req.Method == http.MethodOptions

			origin, ok := allowOrigin(cfg.AllowOrigins, req.Header.Get(echo.HeaderOrigin))
			if !ok {
				if preflight {
					return c.NoContent(http.StatusNoContent)
				}
				return next(c)
			}
			res.Add(echo.HeaderVary, echo.HeaderOrigin)
			res.Set(echo.HeaderAccessControlAllowOrigin, origin)

			if !preflight {
				if expose != "" {
					res.Set(echo.HeaderAccessControlExposeHeaders, expose)
				}
				return next(c)
			}

			if methods != "" {
				res.Set(echo.HeaderAccessControlAllowMethods, methods)
			}
			if headers != "" {
				res.Set(echo.HeaderAccessControlAllowHeaders, headers)
			}
			if cfg.MaxAge > 0 {
				res.Set(echo.HeaderAccessControlMaxAge, strconv.Itoa(cfg.MaxAge))
			}
			return c.NoContent(http.StatusNoContent)
		}
	}
}

// allowOrigin returns the Access-Control-Allow-Origin value for origin.
func allowOrigin(allowed []string, origin string) (string, bool) {
	if len(allowed) == 0 {
		if origin == "" {
			return "*", true
		}
		return origin, true
	}
	for _, o := range allowed {
		switch {
		case o == "*" && origin == "":
			return "*", true
		case o == "*", o == origin:
			return origin, true
		}
	}
	return "", false
}
