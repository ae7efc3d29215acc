// Copyright 2026 the Jidhr authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package http

import (
	"bytes"
	"context"
	stderrors "errors"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"jidhr/internal/assistant"
	"jidhr/internal/session"
	"jidhr/pkg/config"
	"jidhr/pkg/errors"
	"jidhr/pkg/log"
	"jidhr/pkg/metrics"
)

// Handler serves the chat API.
type Handler struct {
	assistant *assistant.Assistant
	sessions  *session.Manager
	config    *config.Config
	logger    *log.Logger
}

// NewHandler creates the HTTP handler.
func NewHandler(asst *assistant.Assistant, sessions *session.Manager, cfg *config.Config, logger *log.Logger) *Handler {
	return &Handler{assistant: asst, sessions: sessions, config: cfg, logger: logger}
}

// ChatRequest is the POST /api/chat body.
type ChatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

// Chat handles one chat message: load or create the session, process the
// message, persist the updated history.
func (h *Handler) Chat(ctx context.Context, c *app.RequestContext) {
	var request ChatRequest
	if err := c.BindAndValidate(&request); err != nil {
		c.JSON(consts.StatusBadRequest, utils.H{"error": "invalid request body"})
		return
	}

	sess, err := h.sessions.GetOrCreate(ctx, request.SessionID)
	if err != nil {
		h.logger.Error("session load failed", "session_id", request.SessionID, "error", err)
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "session unavailable"})
		return
	}

	reply, err := h.assistant.ProcessQuery(ctx, sess, request.Message)
	if err != nil {
		switch {
		case stderrors.Is(err, errors.ErrInvalidArg):
			c.JSON(consts.StatusBadRequest, utils.H{"error": "message is required"})
		case stderrors.Is(err, assistant.ErrModelUnavailable):
			h.logger.Error("model unavailable", "session_id", sess.ID, "error", err)
			c.JSON(consts.StatusBadGateway, utils.H{"error": "the assistant is unavailable right now, please try again"})
		default:
			h.logger.Error("chat failed", "session_id", sess.ID, "error", err)
			c.JSON(consts.StatusInternalServerError, utils.H{"error": "internal error"})
		}
		return
	}

	if err := h.sessions.Save(ctx, sess); err != nil {
		h.logger.Warn("session save failed", "session_id", sess.ID, "error", err)
	}

	c.JSON(consts.StatusOK, utils.H{
		"session_id": sess.ID,
		"response":   reply,
	})
}

// ClearSession handles POST /api/sessions/:id/clear.
func (h *Handler) ClearSession(ctx context.Context, c *app.RequestContext) {
	id := c.Param("id")
	if err := h.sessions.Clear(ctx, id); err != nil {
		if stderrors.Is(err, errors.ErrNotFound) {
			c.JSON(consts.StatusNotFound, utils.H{"error": "session not found"})
			return
		}
		h.logger.Error("session clear failed", "session_id", id, "error", err)
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "internal error"})
		return
	}
	c.JSON(consts.StatusOK, utils.H{"session_id": id, "cleared": true})
}

// Health handles GET /api/health: reports missing credentials so a deploy
// with a bad env fails its probe instead of failing its first chat.
func (h *Handler) Health(ctx context.Context, c *app.RequestContext) {
	if missing := h.config.Validate(); len(missing) > 0 {
		c.JSON(consts.StatusServiceUnavailable, utils.H{
			"status":  "degraded",
			"missing": missing,
		})
		return
	}
	c.JSON(consts.StatusOK, utils.H{"status": "ok"})
}

// Metrics handles GET /metrics in Prometheus text format.
func (h *Handler) Metrics(ctx context.Context, c *app.RequestContext) {
	var buf bytes.Buffer
	if err := metrics.WritePrometheus(&buf); err != nil {
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "metrics unavailable"})
		return
	}
	c.Data(consts.StatusOK, "text/plain; version=0.0.4; charset=utf-8", buf.Bytes())
}
