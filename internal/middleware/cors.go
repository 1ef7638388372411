package middleware

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CORSConfig configures the CORS middleware
type CORSConfig struct {
	// AllowOrigins is a list of allowed origins
	AllowOrigins []string
	// AllowMethods is a list of allowed methods
	AllowMethods []string
	// AllowHeaders is a list of allowed headers
	AllowHeaders []string
	// ExposeHeaders is a list of headers to expose
	ExposeHeaders []string
	// MaxAge indicates how long the results of a preflight request can be cached
	MaxAge int
}

// DefaultCORSConfig returns default CORS config
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{
			fiber.MethodGet,
			fiber.MethodPost,
			fiber.MethodOptions,
			fiber.MethodHead,
		},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Accept",
			"Cache-Control",
			"Last-Event-ID",
			"X-Request-ID",
		},
		ExposeHeaders: []string{
			"X-Request-ID",
			"X-RateLimit-Limit",
			"X-RateLimit-Remaining",
			"X-RateLimit-Reset",
		},
		MaxAge: 86400, // 24 hours
	}
}

// CORSConfigFromOrigins builds a config from a comma separated origin list,
// as carried by server.cors_origins. An empty list allows every origin.
func CORSConfigFromOrigins(origins string) CORSConfig {
	config := DefaultCORSConfig()
	var allowed []string
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			allowed = append(allowed, o)
		}
	}
	if len(allowed) > 0 {
		config.AllowOrigins = allowed
	}
	return config
}

// CORSMiddleware creates a CORS middleware
type CORSMiddleware struct {
	config CORSConfig
}

// NewCORSMiddleware creates a new CORS middleware
func NewCORSMiddleware(config CORSConfig) *CORSMiddleware {
	return &CORSMiddleware{
		config: config,
	}
}

func (m *CORSMiddleware) allowedOrigin(origin string) string {
	for _, o := range m.config.AllowOrigins {
		if o == "*" {
			return "*"
		}
		if o == origin {
			return origin
		}
		// Wildcard subdomains, e.g. *.example.com
		if strings.HasPrefix(o, "*.") && strings.HasSuffix(origin, o[1:]) {
			return origin
		}
	}
	return ""
}

// Handler returns the CORS handler
func (m *CORSMiddleware) Handler() fiber.Handler {
	allowMethods := strings.Join(m.config.AllowMethods, ", ")
	allowHeaders := strings.Join(m.config.AllowHeaders, ", ")
	exposeHeaders := strings.Join(m.config.ExposeHeaders, ", ")

	return func(c *fiber.Ctx) error {
		origin := c.Get(fiber.HeaderOrigin)
		if origin == "" {
			return c.Next()
		}

		allowOrigin := m.allowedOrigin(origin)
		if allowOrigin == "" {
			return c.Next()
		}

		c.Set(fiber.HeaderAccessControlAllowOrigin, allowOrigin)
		if allowOrigin != "*" {
			c.Vary(fiber.HeaderOrigin)
		}
		if exposeHeaders != "" {
			c.Set(fiber.HeaderAccessControlExposeHeaders, exposeHeaders)
		}

		if c.Method() == fiber.MethodOptions {
			c.Set(fiber.HeaderAccessControlAllowMethods, allowMethods)
			c.Set(fiber.HeaderAccessControlAllowHeaders, allowHeaders)
			if m.config.MaxAge > 0 {
				c.Set(fiber.HeaderAccessControlMaxAge, strconv.Itoa(m.config.MaxAge))
			}
			return c.SendStatus(fiber.StatusNoContent)
		}

		return c.Next()
	}
}
