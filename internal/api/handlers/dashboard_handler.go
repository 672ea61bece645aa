package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/genbi-manufacturing/backend/internal/dashboard"
	"github.com/genbi-manufacturing/backend/pkg/logger"
)

type OverviewSource interface {
	Overview(ctx context.Context) (*dashboard.Overview, error)
}

type DashboardHandler struct {
	summary OverviewSource
}

func NewDashboardHandler(summary OverviewSource) *DashboardHandler {
	return &DashboardHandler{summary: summary}
}

func (h *DashboardHandler) Overview(c *fiber.Ctx) error {
	overview, err := h.summary.Overview(c.UserContext())
	if err != nil {
		logger.Error("Failed to build dashboard overview", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"detail": "Dashboard error: " + err.Error(),
		})
	}
	return c.JSON(overview)
}
