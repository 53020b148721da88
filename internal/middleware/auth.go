package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/supermon-ng/supermon-ng/internal/logging"
	"github.com/supermon-ng/supermon-ng/internal/models"
)

// MinAPIKeyLength is the minimum required length for API keys
const MinAPIKeyLength = 32

// StreamKeyParam carries the API key for EventSource clients, which cannot
// set request headers
const StreamKeyParam = "api_key"

// ValidateAPIKey checks if an API key meets the security requirements
func ValidateAPIKey(key string) bool {
	if len(key) < MinAPIKeyLength {
		return false
	}
	return strings.TrimSpace(key) != ""
}

// AuthConfig configures APIKeyAuth
type AuthConfig struct {
	Enabled bool
	APIKeys []string
	// PublicPaths are served without a key (exact match)
	PublicPaths []string
	// QueryKeyPaths also accept the key as ?api_key= (exact match)
	QueryKeyPaths []string
}

// APIKeyAuth creates an API key authentication middleware
func APIKeyAuth(logger *logging.Logger, cfg AuthConfig) fiber.Handler {
	if !cfg.Enabled {
		return func(c *fiber.Ctx) error {
			return c.Next()
		}
	}

	keys := make([][]byte, 0, len(cfg.APIKeys))
	for _, key := range cfg.APIKeys {
		if key == "" {
			continue
		}
		if !ValidateAPIKey(key) {
			logger.Warn("API key does not meet security requirements",
				"key_length", len(key),
				"min_required", MinAPIKeyLength,
				"key_prefix", maskAPIKey(key),
			)
			continue
		}
		keys = append(keys, []byte(key))
	}
	if len(keys) == 0 && len(cfg.APIKeys) > 0 {
		logger.Error("No valid API keys configured - all provided keys failed validation",
			"total_keys", len(cfg.APIKeys),
			"min_required_length", MinAPIKeyLength,
		)
	}

	public := toSet(cfg.PublicPaths)
	queryKey := toSet(cfg.QueryKeyPaths)

	return func(c *fiber.Ctx) error {
		if public[c.Path()] {
			return c.Next()
		}

		// X-API-Key, "Authorization: Bearer <key>" or "Authorization: <key>"
		apiKey := c.Get("X-API-Key")
		if apiKey == "" {
			if auth := c.Get("Authorization"); auth != "" {
				if after, ok := strings.CutPrefix(auth, "Bearer "); ok {
					apiKey = after
				} else {
					apiKey = auth
				}
			}
		}
		if apiKey == "" && queryKey[c.Path()] {
			apiKey = c.Query(StreamKeyParam)
		}

		if apiKey == "" {
			logger.Warn("API key missing", "path", c.Path(), "method", c.Method(), "ip", c.IP())
			return unauthorized(c, "API key is required. Provide it via X-API-Key header or Authorization header.")
		}
		if !matchKey(keys, apiKey) {
			logger.Warn("Invalid API key",
				"path", c.Path(),
				"method", c.Method(),
				"ip", c.IP(),
				"api_key_prefix", maskAPIKey(apiKey),
			)
			return unauthorized(c, "Invalid API key.")
		}

		logger.Debug("API key authenticated", "path", c.Path(), "method", c.Method())
		return c.Next()
	}
}

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse{
		Error: models.ErrorDetail{
			Code:    "UNAUTHORIZED",
			Message: message,
			Path:    c.Path(),
		},
	})
}

func matchKey(keys [][]byte, candidate string) bool {
	c := []byte(candidate)
	found := 0
	for _, k := range keys {
		found |= subtle.ConstantTimeCompare(k, c)
	}
	return found == 1
}

func toSet(items []string) map[string]bool {
	out := make(map[string]bool, len(items))
	for _, s := range items {
		out[s] = true
	}
	return out
}

// maskAPIKey masks API key for logging (show only first 4 chars)
func maskAPIKey(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return key[:4] + "****"
}
