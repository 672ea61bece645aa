package handlers

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/genbi-manufacturing/backend/internal/middleware/validation"
	"github.com/genbi-manufacturing/backend/internal/query"
	"github.com/genbi-manufacturing/backend/internal/storage/models"
	"github.com/genbi-manufacturing/backend/pkg/logger"
)

const maxHistoryLimit = 500

type QueryProcessor interface {
	ProcessQuery(ctx context.Context, req query.Request) (*query.Response, error)
}

type HistoryStore interface {
	GetQueryHistory(ctx context.Context, limit int) ([]models.QueryRecord, error)
}

type QueryHandler struct {
	engine       QueryProcessor
	history      HistoryStore
	historyLimit int
}

func NewQueryHandler(engine QueryProcessor, history HistoryStore, historyLimit int) *QueryHandler {
	if historyLimit <= 0 {
		historyLimit = 50
	}
	return &QueryHandler{
		engine:       engine,
		history:      history,
		historyLimit: historyLimit,
	}
}

func (h *QueryHandler) HandleQuery(c *fiber.Ctx) error {
	text, err := queryText(c)
	if err != nil {
		logger.Debug("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"detail": "Invalid request body",
		})
	}
	if text == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"detail": "Query is required",
		})
	}

	response, err := h.engine.ProcessQuery(c.UserContext(), query.Request{Query: text})
	if err != nil {
		logger.Error("Failed to process query", zap.String("query", text), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"detail": "Query processing error: " + err.Error(),
		})
	}

	return c.JSON(response)
}

// queryText prefers the body already sanitised by the validation middleware.
func queryText(c *fiber.Ctx) (string, error) {
	if body, ok := c.Locals(validation.BodyKey).(map[string]interface{}); ok {
		text, _ := body["query"].(string)
		return text, nil
	}

	var req struct {
		Query string `json:"query"`
	}
	if err := c.BodyParser(&req); err != nil {
		return "", err
	}
	return req.Query, nil
}

func (h *QueryHandler) GetQueryHistory(c *fiber.Ctx) error {
	limit := h.historyLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"detail": "limit must be a positive integer",
			})
		}
		limit = min(n, maxHistoryLimit)
	}

	records, err := h.history.GetQueryHistory(c.UserContext(), limit)
	if err != nil {
		logger.Error("Failed to load query history", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"detail": "History error: " + err.Error(),
		})
	}

	return c.JSON(fiber.Map{
		"history": records,
	})
}
