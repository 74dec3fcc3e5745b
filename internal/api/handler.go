package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/RichardoC/chatbox/internal/auth"
	"github.com/RichardoC/chatbox/internal/chat"
	"github.com/RichardoC/chatbox/internal/directive"
	"github.com/RichardoC/chatbox/internal/models"
)

type Handler struct {
	chat   *chat.Service
	auth   *auth.Service
	logger *zap.Logger

	secureCookie bool
	sessionTTL   int // seconds
}

type ChatRequest struct {
	Messages []models.Message `json:"messages" binding:"required,min=1,dive"`
}

type ChatResponse struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	IsText  bool   `json:"isText"`
}

type MessageRequest struct {
	Message models.Message `json:"message"`
}

// NewHandler wires the HTTP handlers. authService may be nil, which leaves every route open.
func NewHandler(chatService *chat.Service, authService *auth.Service, logger *zap.Logger, opts ...HandlerOption) *Handler {
	h := &Handler{
		chat:       chatService,
		auth:       authService,
		logger:     logger,
		sessionTTL: 7 * 24 * 60 * 60,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type HandlerOption func(*Handler)

func WithCookie(secure bool, ttlSeconds int) HandlerOption {
	return func(h *Handler) {
		h.secureCookie = secure
		h.sessionTTL = ttlSeconds
	}
}

func (h *Handler) internalError(c *gin.Context, msg string, err error, fields ...zap.Field) {
	fields = append(fields,
		zap.Error(err),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path))
	h.logger.Error(msg, fields...)
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}

// bindJSON decodes and validates the body against its binding tags, answering 400 when
// either fails.
func bindJSON(c *gin.Context, req any) bool {
	err := c.ShouldBindJSON(req)
	if err == nil {
		return true
	}

	msg := "invalid request body"
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		parts := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			parts = append(parts, fmt.Sprintf("%s failed on %q", fe.Namespace(), fe.Tag()))
		}
		msg = strings.Join(parts, "; ")
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
	return false
}

// owner is the signed-in user's id, or empty when authentication is off.
func owner(c *gin.Context) string {
	if user, ok := c.Get(userKey); ok {
		return user.(*auth.User).ID
	}
	return ""
}

func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Chat relays a client-held history. Nothing is stored.
func (h *Handler) Chat(c *gin.Context) {
	var req ChatRequest
	if !bindJSON(c, &req) {
		return
	}

	reply, err := h.chat.Chat(c.Request.Context(), req.Messages)
	if err != nil {
		h.internalError(c, "failed to process message", err)
		return
	}

	c.JSON(http.StatusOK, ChatResponse{
		Role:    models.RoleAssistant,
		Content: reply.Text,
		IsText:  reply.IsText,
	})
}

func (h *Handler) CreateConversation(c *gin.Context) {
	id, err := h.chat.CreateConversation(c.Request.Context(), owner(c))
	if err != nil {
		h.internalError(c, "failed to create conversation", err)
		return
	}

	h.logger.Debug("created conversation", zap.String("conversationID", id))
	c.JSON(http.StatusOK, id)
}

func (h *Handler) GetConversations(c *gin.Context) {
	conversations, err := h.chat.GetConversations(c.Request.Context(), owner(c))
	if err != nil {
		h.internalError(c, "failed to get conversations", err)
		return
	}

	h.logger.Debug("retrieved conversations", zap.Int("count", len(conversations)))
	c.JSON(http.StatusOK, conversations)
}

func (h *Handler) loadConversation(c *gin.Context) (*models.Conversation, bool) {
	id := c.Param("id")
	conv, found, err := h.chat.GetConversation(c.Request.Context(), owner(c), id)
	if err != nil {
		h.internalError(c, "failed to get conversation", err, zap.String("conversationID", id))
		return nil, false
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
		return nil, false
	}
	return conv, true
}

func (h *Handler) GetConversation(c *gin.Context) {
	if conv, ok := h.loadConversation(c); ok {
		c.JSON(http.StatusOK, conv)
	}
}

// GetConversationView returns the conversation as the chat page shows it.
func (h *Handler) GetConversationView(c *gin.Context) {
	if conv, ok := h.loadConversation(c); ok {
		c.JSON(http.StatusOK, directive.Render(*conv))
	}
}

func (h *Handler) AddMessage(c *gin.Context) {
	id := c.Param("id")

	var req MessageRequest
	if !bindJSON(c, &req) {
		return
	}

	conv, found, err := h.chat.SendMessage(c.Request.Context(), owner(c), id, req.Message)
	if err != nil {
		h.internalError(c, "failed to process message", err, zap.String("conversationID", id))
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
		return
	}

	c.JSON(http.StatusOK, conv)
}
