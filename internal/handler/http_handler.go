package handler

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Trungnc273/ebay-be/internal/repository"
	"github.com/Trungnc273/ebay-be/internal/service"
	"github.com/Trungnc273/ebay-be/pkg/middleware"
	"github.com/Trungnc273/ebay-be/pkg/response"
)

const (
	defaultConversationLimit = 20
	maxConversationLimit     = 100
	defaultMessageLimit      = 50
	maxMessageLimit          = 200
)

// HTTPHandler exposes the conversation surface over REST. Identity comes
// from the auth middleware; this layer performs no credential checks.
type HTTPHandler struct {
	conversations service.ConversationService
	auth          *middleware.AuthMiddleware
}

func NewHTTPHandler(conversations service.ConversationService, auth *middleware.AuthMiddleware) *HTTPHandler {
	return &HTTPHandler{
		conversations: conversations,
		auth:          auth,
	}
}

func (h *HTTPHandler) RegisterRoutes(r *gin.Engine, ws *WSHandler) {
	api := r.Group("/api/v1", h.auth.RequireAuth())
	{
		api.GET("/conversations", h.ListConversations)
		api.POST("/conversations", h.CreateConversation)
		api.GET("/conversations/:id", h.GetConversation)
		api.GET("/conversations/:id/messages", h.GetMessages)
		api.POST("/conversations/:id/read", h.MarkConversationRead)
	}

	r.GET("/ws", ws.HandleWebSocket)
	r.GET("/health", h.HealthCheck)
}

func (h *HTTPHandler) ListConversations(c *gin.Context) {
	userID := middleware.GetUserID(c)

	page := parseIntQuery(c, "page", 1)
	limit := parseIntQuery(c, "limit", defaultConversationLimit)
	if limit > maxConversationLimit {
		limit = maxConversationLimit
	}

	views, total, err := h.conversations.List(c.Request.Context(), userID, page, limit)
	if err != nil {
		response.InternalError(c, "failed to list conversations")
		return
	}

	response.Success(c, gin.H{
		"conversations": views,
		"total":         total,
		"page":          page,
		"limit":         limit,
	})
}

func (h *HTTPHandler) CreateConversation(c *gin.Context) {
	var req struct {
		Participants []string `json:"participants" binding:"required,min=2"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "participants required (2 users)")
		return
	}

	view, created, err := h.conversations.FindOrCreate(c.Request.Context(), req.Participants)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidParticipants) {
			response.BadRequest(c, "participants required (2 users)")
			return
		}
		response.InternalError(c, "failed to create conversation")
		return
	}

	if created {
		response.Created(c, view)
		return
	}
	response.Success(c, view)
}

func (h *HTTPHandler) GetConversation(c *gin.Context) {
	id := c.Param("id")
	if uuid.Validate(id) != nil {
		response.BadRequest(c, "invalid conversation id")
		return
	}

	view, err := h.conversations.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrConversationNotFound) {
			response.NotFound(c, "conversation not found")
			return
		}
		response.InternalError(c, "failed to get conversation")
		return
	}
	response.Success(c, view)
}

func (h *HTTPHandler) GetMessages(c *gin.Context) {
	id := c.Param("id")
	if uuid.Validate(id) != nil {
		response.BadRequest(c, "invalid conversation id")
		return
	}

	limit := parseIntQuery(c, "limit", defaultMessageLimit)
	if limit > maxMessageLimit {
		limit = maxMessageLimit
	}

	var before *time.Time
	if raw := c.Query("before"); raw != "" {
		// Malformed cursors are ignored rather than rejected; the request
		// falls back to the latest page.
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			before = &t
		}
	}

	messages, err := h.conversations.GetMessages(c.Request.Context(), id, limit, before)
	if err != nil {
		response.InternalError(c, "failed to get messages")
		return
	}
	response.Success(c, messages)
}

func (h *HTTPHandler) MarkConversationRead(c *gin.Context) {
	id := c.Param("id")
	if uuid.Validate(id) != nil {
		response.BadRequest(c, "invalid conversation id")
		return
	}

	userID := middleware.GetUserID(c)
	if err := h.conversations.MarkAllRead(c.Request.Context(), id, userID); err != nil {
		response.InternalError(c, "failed to mark conversation read")
		return
	}
	response.Success(c, gin.H{"ok": true})
}

func (h *HTTPHandler) HealthCheck(c *gin.Context) {
	c.JSON(200, gin.H{"status": "ok"})
}

func parseIntQuery(c *gin.Context, key string, defaultVal int) int {
	raw := c.Query(key)
	if raw == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return defaultVal
	}
	return n
}
