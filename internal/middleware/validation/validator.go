package validation

import (
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/launchpath/resource-engine/pkg/logger"
)

var (
	sqlInjectionPattern = regexp.MustCompile(`(?i)(union|select|insert|update|delete|drop|create|alter|exec|script|javascript|onerror|onload)`)
	xssPattern          = regexp.MustCompile(`(?i)(<script|<iframe|javascript:|onerror=|onload=|onclick=)`)
)

type Config struct {
	MaxKeywordLength    int
	MaxKeywords         int
	MaxImportRecords    int
	AllowedContentTypes []string
}

// Middleware screens write-path payloads before handlers parse them. Step
// keywords are the only free-text input the engine accepts, so they carry
// the same injection screens the rest of the body skips.
func Middleware(cfg Config) fiber.Handler {
	if cfg.MaxKeywordLength == 0 {
		cfg.MaxKeywordLength = 100
	}
	if cfg.MaxKeywords == 0 {
		cfg.MaxKeywords = 50
	}
	if cfg.MaxImportRecords == 0 {
		cfg.MaxImportRecords = 1000
	}
	if len(cfg.AllowedContentTypes) == 0 {
		cfg.AllowedContentTypes = []string{"application/json"}
	}

	return func(c *fiber.Ctx) error {
		if c.Method() == fiber.MethodPost || c.Method() == fiber.MethodPut {
			contentType := c.Get("Content-Type")
			if contentType != "" && !contentTypeAllowed(contentType, cfg.AllowedContentTypes) {
				return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{
					"error": "Unsupported content type",
				})
			}
		}

		path := c.Path()

		if strings.Contains(path, "/api/v1/match") {
			var req map[string]interface{}
			if err := c.BodyParser(&req); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid JSON format",
				})
			}

			rawKeywords, ok := req["step_keywords"].([]interface{})
			if ok {
				if len(rawKeywords) > cfg.MaxKeywords {
					return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
						"error": "Too many step keywords",
					})
				}
				for _, raw := range rawKeywords {
					keyword, ok := raw.(string)
					if !ok {
						return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
							"error": "Step keywords must be strings",
						})
					}
					if len(keyword) > cfg.MaxKeywordLength {
						return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
							"error": "Step keyword exceeds maximum length",
						})
					}
					if containsSQLInjection(keyword) || containsXSS(keyword) {
						logger.Warn("Rejected suspicious keyword content",
							zap.String("ip", c.IP()),
						)
						return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
							"error": "Invalid keyword content",
						})
					}
				}
			}
		}

		if strings.Contains(path, "/api/v1/resources/import") {
			var req map[string]interface{}
			if err := c.BodyParser(&req); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid JSON format",
				})
			}

			records, ok := req["resources"].([]interface{})
			if !ok || len(records) == 0 {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Resources array is required",
				})
			}
			if len(records) > cfg.MaxImportRecords {
				return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{
					"error": "Import batch exceeds maximum size",
				})
			}
		}

		return c.Next()
	}
}

func contentTypeAllowed(contentType string, allowed []string) bool {
	for _, a := range allowed {
		if strings.Contains(contentType, a) {
			return true
		}
	}
	return false
}

func containsSQLInjection(input string) bool {
	return sqlInjectionPattern.MatchString(input)
}

func containsXSS(input string) bool {
	return xssPattern.MatchString(input)
}
