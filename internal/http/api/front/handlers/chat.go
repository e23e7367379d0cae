package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/martabak-juara/loyalty-club/internal/assistant"
	log "github.com/sirupsen/logrus"
)

// ChatHandler exposes the store assistant as a streaming chat.
type ChatHandler struct {
	assistant *assistant.Service
}

// NewChatHandler constructs a ChatHandler.
func NewChatHandler(assistantSvc *assistant.Service) *ChatHandler {
	return &ChatHandler{assistant: assistantSvc}
}

// Start opens a chat session and returns its greeting.
func (h *ChatHandler) Start(c *gin.Context) {
	id, greeting, errStart := h.assistant.StartChat(c.Request.Context())
	if errStart != nil {
		log.WithError(errStart).Error("chat: start session failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "start chat failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":       id,
		"messages": []assistant.Message{greeting},
	})
}

// History returns the messages of a session.
func (h *ChatHandler) History(c *gin.Context) {
	messages, errLoad := h.assistant.History(c.Request.Context(), c.Param("id"))
	if errLoad != nil {
		if errors.Is(errLoad, assistant.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "chat session not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "load chat failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "messages": messages})
}

// sendMessageRequest defines the request body for a chat turn.
type sendMessageRequest struct {
	Text string `json:"text"`
}

// Send streams the assistant's reply as server-sent events: "message" events carry
// chunks and a final "done" event carries the whole reply.
func (h *ChatHandler) Send(c *gin.Context) {
	var body sendMessageRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	streaming := false
	onChunk := func(chunk string) error {
		if !streaming {
			streaming = true
			c.Header("Content-Type", "text/event-stream")
			c.Header("Cache-Control", "no-cache")
			c.Header("Connection", "keep-alive")
			c.Status(http.StatusOK)
		}
		c.SSEvent("message", gin.H{"text": chunk})
		c.Writer.Flush()
		return c.Request.Context().Err()
	}

	reply, errSend := h.assistant.Send(c.Request.Context(), c.Param("id"), body.Text, onChunk)
	if errSend != nil {
		if streaming {
			c.SSEvent("error", gin.H{"error": "chat interrupted"})
			c.Writer.Flush()
			return
		}
		switch {
		case errors.Is(errSend, assistant.ErrSessionNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "chat session not found"})
		case errors.Is(errSend, assistant.ErrEmptyMessage), errors.Is(errSend, assistant.ErrMessageTooLong):
			c.JSON(http.StatusBadRequest, gin.H{"error": errSend.Error()})
		default:
			log.WithError(errSend).Error("chat: send failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "chat failed"})
		}
		return
	}
	c.SSEvent("done", gin.H{"reply": reply})
	c.Writer.Flush()
}
