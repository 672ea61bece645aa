package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/genbi-manufacturing/backend/internal/middleware/validation"
	"github.com/genbi-manufacturing/backend/internal/prompt"
	"github.com/genbi-manufacturing/backend/internal/storage/models"
	"github.com/genbi-manufacturing/backend/internal/storage/sqlite"
	"github.com/genbi-manufacturing/backend/pkg/logger"
)

type MappingStore interface {
	ListMappings(ctx context.Context) ([]models.SemanticMapping, error)
	GetMapping(ctx context.Context, id string) (*models.SemanticMapping, error)
	UpsertMapping(ctx context.Context, m *models.SemanticMapping) error
}

type CatalogSetter interface {
	SetCatalog(cat prompt.Catalog)
}

// CompletionInvalidator drops cached completions that no longer match the
// current prompt.
type CompletionInvalidator interface {
	InvalidateCompletions(ctx context.Context) error
}

type GlossaryHandler struct {
	store   MappingStore
	catalog CatalogSetter
	base    prompt.Catalog
	cache   CompletionInvalidator
}

// NewGlossaryHandler serves the business-term glossary. base supplies the
// collections and vocabulary; its glossary is replaced by the stored one.
// cache may be nil.
func NewGlossaryHandler(store MappingStore, catalog CatalogSetter, base prompt.Catalog, cache CompletionInvalidator) *GlossaryHandler {
	return &GlossaryHandler{store: store, catalog: catalog, base: base, cache: cache}
}

func (h *GlossaryHandler) ListMappings(c *fiber.Ctx) error {
	mappings, err := h.store.ListMappings(c.UserContext())
	if err != nil {
		logger.Error("Failed to list semantic mappings", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"detail": "Mapping error: " + err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"mappings": mappings,
	})
}

func (h *GlossaryHandler) GetMapping(c *fiber.Ctx) error {
	m, err := h.store.GetMapping(c.UserContext(), c.Params("id"))
	if errors.Is(err, sqlite.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"detail": "Semantic mapping not found",
		})
	}
	if err != nil {
		logger.Error("Failed to load semantic mapping", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"detail": "Mapping error: " + err.Error(),
		})
	}

	return c.JSON(m)
}

func (h *GlossaryHandler) CreateMapping(c *fiber.Ctx) error {
	var m models.SemanticMapping
	if err := c.BodyParser(&m); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"detail": "Invalid request body",
		})
	}
	if body, ok := c.Locals(validation.BodyKey).(map[string]interface{}); ok {
		m.BusinessTerm, _ = body["business_term"].(string)
		m.DatabaseField, _ = body["database_field"].(string)
	}
	if m.BusinessTerm == "" || m.DatabaseField == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"detail": "business_term and database_field are required",
		})
	}
	m.ID = ""

	ctx := c.UserContext()
	if err := h.store.UpsertMapping(ctx, &m); err != nil {
		logger.Error("Failed to store semantic mapping", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"detail": "Mapping error: " + err.Error(),
		})
	}

	if err := h.Reload(ctx); err != nil {
		logger.Warn("Mapping stored but prompt catalog not refreshed", zap.Error(err))
	}

	return c.JSON(fiber.Map{
		"message": "Semantic mapping created",
		"id":      m.ID,
	})
}

// Reload rebuilds the prompt catalog from the stored glossary.
func (h *GlossaryHandler) Reload(ctx context.Context) error {
	mappings, err := h.store.ListMappings(ctx)
	if err != nil {
		return err
	}
	h.catalog.SetCatalog(h.base.WithGlossary(mappings))

	if h.cache != nil {
		if err := h.cache.InvalidateCompletions(ctx); err != nil {
			logger.Warn("Failed to invalidate completion cache", zap.Error(err))
		}
	}
	return nil
}
