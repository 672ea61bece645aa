package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/genbi-manufacturing/backend/internal/query"
	"github.com/genbi-manufacturing/backend/pkg/logger"
)

var phaseMessages = map[query.Phase]string{
	query.PhaseComposing:  "Preparing prompt...",
	query.PhaseCompleting: "Generating pipeline...",
	query.PhaseExtracting: "Parsing pipeline...",
	query.PhaseExecuting:  "Running aggregation...",
	query.PhaseCharting:   "Choosing chart...",
}

type WebSocketHandler struct {
	engine         QueryProcessor
	maxQueryLength int
	queryTimeout   time.Duration
}

func NewWebSocketHandler(engine QueryProcessor, maxQueryLength int, queryTimeout time.Duration) *WebSocketHandler {
	if queryTimeout <= 0 {
		queryTimeout = time.Minute
	}
	return &WebSocketHandler{
		engine:         engine,
		maxQueryLength: maxQueryLength,
		queryTimeout:   queryTimeout,
	}
}

type wsMessage struct {
	Type  string `json:"type"`
	Query string `json:"query"`
}

func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	logger.Info("WebSocket connection established")

	defer func() {
		c.Close()
		logger.Info("WebSocket connection closed")
	}()

	for {
		var msg wsMessage
		if err := c.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug("WebSocket read ended", zap.Error(err))
			}
			return
		}

		if msg.Type != "query" {
			continue
		}

		text := strings.TrimSpace(strings.ReplaceAll(msg.Query, "\x00", ""))
		switch {
		case text == "":
			h.sendError(c, "Query is required")
			continue
		case h.maxQueryLength > 0 && len(text) > h.maxQueryLength:
			h.sendError(c, "Query exceeds maximum length")
			continue
		}

		logger.Info("Processing WebSocket query", zap.String("query", text))

		if err := h.stream(c, text); err != nil {
			logger.Error("Failed to stream response", zap.Error(err))
			return
		}
	}
}

// stream returns an error only when writing to the socket fails.
func (h *WebSocketHandler) stream(c *websocket.Conn, text string) error {
	ctx, cancel := context.WithTimeout(context.Background(), h.queryTimeout)
	defer cancel()

	// a failed write means the client is gone; stop the rest of the query
	var writeErr error
	onPhase := func(p query.Phase) {
		if writeErr == nil {
			writeErr = c.WriteJSON(map[string]interface{}{
				"type":    "status",
				"phase":   p,
				"content": phaseMessages[p],
			})
			if writeErr != nil {
				cancel()
			}
		}
	}

	response, err := h.engine.ProcessQuery(ctx, query.Request{Query: text, OnPhase: onPhase})
	if writeErr != nil {
		return writeErr
	}
	if err != nil {
		logger.Error("Failed to process WebSocket query", zap.Error(err))
		return h.sendError(c, "Query processing error: "+err.Error())
	}

	return c.WriteJSON(map[string]interface{}{
		"type":     "complete",
		"response": response,
	})
}

func (h *WebSocketHandler) sendError(c *websocket.Conn, detail string) error {
	return c.WriteJSON(map[string]interface{}{
		"type":   "error",
		"detail": detail,
	})
}
