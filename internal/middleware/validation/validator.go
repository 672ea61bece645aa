package validation

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// BodyKey is the Locals key holding the sanitised request body.
const BodyKey = "sanitized_body"

var xssPattern = regexp.MustCompile(`(?i)(<script|<iframe|javascript:|onerror=|onload=|onclick=)`)

type Config struct {
	MaxQueryLength      int
	MaxTermLength       int
	AllowedContentTypes []string
	Logger              *zap.Logger
}

func Middleware(cfg Config) fiber.Handler {
	if cfg.MaxQueryLength == 0 {
		cfg.MaxQueryLength = 2000
	}
	if cfg.MaxTermLength == 0 {
		cfg.MaxTermLength = 200
	}
	if len(cfg.AllowedContentTypes) == 0 {
		cfg.AllowedContentTypes = []string{fiber.MIMEApplicationJSON}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return func(c *fiber.Ctx) error {
		if c.Method() != fiber.MethodPost && c.Method() != fiber.MethodPut {
			return c.Next()
		}

		if contentType := c.Get(fiber.HeaderContentType); contentType != "" && !allowedType(contentType, cfg.AllowedContentTypes) {
			return reject(c, fiber.StatusUnsupportedMediaType, "Unsupported content type")
		}

		switch c.Path() {
		case "/api/query":
			return validateQuery(c, cfg)
		case "/api/semantic-mappings":
			return validateMapping(c, cfg)
		}

		return c.Next()
	}
}

func validateQuery(c *fiber.Ctx, cfg Config) error {
	var req map[string]interface{}
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return reject(c, fiber.StatusBadRequest, "Invalid JSON format")
	}

	query, ok := req["query"].(string)
	if ok {
		query = sanitizeString(query)
	}
	if !ok || query == "" {
		return reject(c, fiber.StatusBadRequest, "Query is required and must be a non-empty string")
	}

	if len(query) > cfg.MaxQueryLength {
		return reject(c, fiber.StatusBadRequest, "Query exceeds maximum length")
	}

	if xssPattern.MatchString(query) {
		cfg.Logger.Warn("Potential XSS attempt",
			zap.String("ip", c.IP()),
			zap.String("query", query),
		)
		return reject(c, fiber.StatusBadRequest, "Invalid query content")
	}

	req["query"] = query
	c.Locals(BodyKey, req)
	return c.Next()
}

func validateMapping(c *fiber.Ctx, cfg Config) error {
	var req map[string]interface{}
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return reject(c, fiber.StatusBadRequest, "Invalid JSON format")
	}

	for _, field := range []string{"business_term", "database_field"} {
		v, ok := req[field].(string)
		if ok {
			v = sanitizeString(v)
		}
		if !ok || v == "" {
			return reject(c, fiber.StatusBadRequest, field+" is required and must be a non-empty string")
		}
		if len(v) > cfg.MaxTermLength {
			return reject(c, fiber.StatusBadRequest, field+" exceeds maximum length")
		}
		if xssPattern.MatchString(v) {
			return reject(c, fiber.StatusBadRequest, "Invalid mapping content")
		}
		req[field] = v
	}

	c.Locals(BodyKey, req)
	return c.Next()
}

func allowedType(contentType string, allowed []string) bool {
	for _, t := range allowed {
		if strings.Contains(contentType, t) {
			return true
		}
	}
	return false
}

func reject(c *fiber.Ctx, status int, detail string) error {
	return c.Status(status).JSON(fiber.Map{"detail": detail})
}

func sanitizeString(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")
	return strings.TrimSpace(input)
}
