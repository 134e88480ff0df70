// Package api wires the HTTP routes to the chat, marketing, image and
// speech services.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"marketingvoice/internal/auth"
	"marketingvoice/internal/models"
	"marketingvoice/internal/service/ai"
	"marketingvoice/internal/service/chat"
	"marketingvoice/internal/service/image"
	"marketingvoice/internal/service/marketing"
	"marketingvoice/internal/stream"
	"marketingvoice/internal/worker"
)

const resumeTimeout = 2 * time.Minute

// ChatService is the chat orchestration surface the handlers need.
type ChatService interface {
	HandleUserMessage(ctx context.Context, req chat.Request) (*chat.Stream, error)
	Resume(ctx context.Context, chatID, userID string) (string, error)
	Replay(ctx context.Context, streamID string, emit func(stream.Event) error) error
	DeleteChat(ctx context.Context, chatID, userID string) (*models.Chat, error)
	ListChats(ctx context.Context, userID string) ([]models.Chat, error)
	GetChatWithMessages(ctx context.Context, chatID, userID string) (*models.Chat, []models.Message, error)
	UpdateVisibility(ctx context.Context, chatID, userID string, visibility models.Visibility) error
}

// CampaignService produces combined marketing copy and imagery.
type CampaignService interface {
	GenerateCampaign(ctx context.Context, input, template string) (*marketing.Campaign, error)
}

// ImageService renders and manages generated images.
type ImageService interface {
	Generate(ctx context.Context, userID, prompt string) (*models.GeneratedImage, error)
	List(ctx context.Context, userID string) ([]models.GeneratedImage, error)
	Delete(ctx context.Context, userID, imageID string) error
}

// SpeechService turns audio uploads into text.
type SpeechService interface {
	Transcribe(ctx context.Context, filename, contentType string, audio io.Reader) (string, error)
}

// Handler wires HTTP routes to the application services.
type Handler struct {
	chats     ChatService
	auth      *auth.Service
	marketing CampaignService
	images    ImageService
	speech    SpeechService
	log       zerolog.Logger
}

func NewHandler(chats ChatService, authService *auth.Service, marketingSvc CampaignService, images ImageService, speechSvc SpeechService, log zerolog.Logger) *Handler {
	return &Handler{
		chats:     chats,
		auth:      authService,
		marketing: marketingSvc,
		images:    images,
		speech:    speechSvc,
		log:       log,
	}
}

// RegisterRoutes attaches all HTTP routes to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api")
	api.POST("/auth/register", h.registerUser)
	api.POST("/auth/login", h.loginUser)
	api.POST("/auth/guest", h.createGuest)

	authMW := h.auth.Middleware()
	authed := api.Group("")
	authed.Use(authMW)
	authed.POST("/auth/logout", h.logoutUser)

	authed.POST("/chat", h.postChat)
	authed.GET("/chat", h.resumeChat)
	authed.DELETE("/chat", h.deleteChat)
	authed.GET("/history", h.getHistory)
	authed.GET("/chat/:id/messages", h.getChatMessages)
	authed.PATCH("/chat/:id/visibility", h.updateVisibility)

	authed.POST("/marketing-prompt", h.marketingPrompt)
	authed.POST("/marketing/generate", h.marketingGenerate)
	authed.POST("/generate-image", h.generateImage)
	authed.GET("/images", h.listImages)
	authed.DELETE("/images/:id", h.deleteImage)
	authed.POST("/speech-to-text", h.speechToText)
}

func (h *Handler) authorizedUser(c *gin.Context) (string, models.UserType, bool) {
	userID, ok := auth.UserIDFromContext(c)
	if !ok || userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
		return "", "", false
	}
	userType, ok := auth.UserTypeFromContext(c)
	if !ok {
		userType = models.UserTypeGuest
	}
	return userID, userType, true
}

// chatError maps orchestrator errors onto HTTP statuses.
func (h *Handler) chatError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, chat.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
	case errors.Is(err, chat.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, chat.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, chat.ErrQuotaExceeded):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "daily message limit reached"})
	case errors.Is(err, worker.ErrDispatcherBusy):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "server is busy, please retry"})
	default:
		h.log.Error().Err(err).Msg("chat request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// auth

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) registerUser(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	user, err := h.auth.RegisterUser(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	token, err := h.auth.IssueToken(c.Request.Context(), user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue token"})
		return
	}
	h.setAuthCookie(c, token)
	c.JSON(http.StatusCreated, gin.H{"user": user, "token": token})
}

func (h *Handler) loginUser(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	user, err := h.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	token, err := h.auth.IssueToken(c.Request.Context(), user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue token"})
		return
	}
	h.setAuthCookie(c, token)
	c.JSON(http.StatusOK, gin.H{"user": user, "token": token})
}

func (h *Handler) createGuest(c *gin.Context) {
	user, err := h.auth.CreateGuest(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create guest"})
		return
	}
	token, err := h.auth.IssueToken(c.Request.Context(), user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue token"})
		return
	}
	h.setAuthCookie(c, token)
	c.JSON(http.StatusOK, gin.H{"user": user, "token": token})
}

func (h *Handler) logoutUser(c *gin.Context) {
	if token, ok := auth.AuthTokenFromContext(c); ok {
		if err := h.auth.RevokeToken(c.Request.Context(), token); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "logout failed"})
			return
		}
	}
	c.SetCookie(h.auth.AuthCookieName(), "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"status": "logged out"})
}

func (h *Handler) setAuthCookie(c *gin.Context, token string) {
	c.SetCookie(h.auth.AuthCookieName(), token, int(h.auth.TokenTTL().Seconds()), "/", "", false, true)
}

// chat

type chatMessageRequest struct {
	Content string `json:"content"`
}

type chatRequest struct {
	ID                     string             `json:"id"`
	Message                chatMessageRequest `json:"message"`
	SelectedChatModel      string             `json:"selectedChatModel"`
	SelectedVisibilityType string             `json:"selectedVisibilityType"`
}

func (h *Handler) postChat(c *gin.Context) {
	userID, userType, ok := h.authorizedUser(c)
	if !ok {
		return
	}
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.SelectedChatModel == "" {
		req.SelectedChatModel = "chat-model"
	}
	visibility := models.Visibility(req.SelectedVisibilityType)
	if visibility != models.VisibilityPublic {
		visibility = models.VisibilityPrivate
	}

	out, err := h.chats.HandleUserMessage(c.Request.Context(), chat.Request{
		ChatID:     req.ID,
		UserID:     userID,
		UserType:   userType,
		ModelAlias: req.SelectedChatModel,
		Visibility: visibility,
		Text:       req.Message.Content,
		Hints:      requestHints(c),
	})
	if err != nil {
		h.chatError(c, err)
		return
	}
	defer out.Cancel()

	send, ok := h.openEventStream(c)
	if !ok {
		return
	}
	for {
		select {
		case ev, open := <-out.Events:
			if !open {
				_ = send(stream.Event{Type: stream.EventFinish})
				return
			}
			if err := send(ev); err != nil {
				// Client went away; the generation keeps running detached.
				return
			}
		case <-c.Request.Context().Done():
			return
		}
	}
}

func (h *Handler) resumeChat(c *gin.Context) {
	userID, _, ok := h.authorizedUser(c)
	if !ok {
		return
	}
	chatID := c.Query("chatId")

	streamID, err := h.chats.Resume(c.Request.Context(), chatID, userID)
	if err != nil {
		if errors.Is(err, chat.ErrStreamingDisabled) {
			c.Status(http.StatusNoContent)
			return
		}
		h.chatError(c, err)
		return
	}

	send, ok := h.openEventStream(c)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), resumeTimeout)
	defer cancel()
	err = h.chats.Replay(ctx, streamID, func(ev stream.Event) error {
		return send(ev)
	})
	if err != nil {
		h.log.Warn().Err(err).Str("stream_id", streamID).Msg("stream replay ended early")
		return
	}
	_ = send(stream.Event{Type: stream.EventFinish})
}

func (h *Handler) deleteChat(c *gin.Context) {
	userID, _, ok := h.authorizedUser(c)
	if !ok {
		return
	}
	chatID := c.Query("id")
	if chatID == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "chat id required"})
		return
	}
	deleted, err := h.chats.DeleteChat(c.Request.Context(), chatID, userID)
	if err != nil {
		h.chatError(c, err)
		return
	}
	c.JSON(http.StatusOK, deleted)
}

func (h *Handler) getHistory(c *gin.Context) {
	userID, _, ok := h.authorizedUser(c)
	if !ok {
		return
	}
	chats, err := h.chats.ListChats(c.Request.Context(), userID)
	if err != nil {
		h.chatError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chats": chats})
}

func (h *Handler) getChatMessages(c *gin.Context) {
	userID, _, ok := h.authorizedUser(c)
	if !ok {
		return
	}
	chatRecord, msgs, err := h.chats.GetChatWithMessages(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		h.chatError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chat": chatRecord, "messages": msgs})
}

type visibilityRequest struct {
	Visibility string `json:"visibility"`
}

func (h *Handler) updateVisibility(c *gin.Context) {
	userID, _, ok := h.authorizedUser(c)
	if !ok {
		return
	}
	var req visibilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := h.chats.UpdateVisibility(c.Request.Context(), c.Param("id"), userID, models.Visibility(req.Visibility)); err != nil {
		h.chatError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

// openEventStream sets SSE headers and returns the event writer.
func (h *Handler) openEventStream(c *gin.Context) (func(stream.Event) error, bool) {
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming not supported"})
		return nil, false
	}
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	return func(ev stream.Event) error {
		data, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(c.Writer, "data: %s\n\n", data); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}, true
}

// requestHints extracts approximate geolocation forwarded by the edge.
func requestHints(c *gin.Context) ai.RequestHints {
	return ai.RequestHints{
		Latitude:  c.GetHeader("X-Vercel-IP-Latitude"),
		Longitude: c.GetHeader("X-Vercel-IP-Longitude"),
		City:      c.GetHeader("X-Vercel-IP-City"),
		Country:   c.GetHeader("X-Vercel-IP-Country"),
	}
}

// marketing

type marketingPromptRequest struct {
	Description string `json:"description"`
	Template    string `json:"template"`
}

func (h *Handler) marketingPrompt(c *gin.Context) {
	var req marketingPromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	result, err := marketing.BuildPrompt(req.Description, req.Template)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

type marketingGenerateRequest struct {
	Input    string `json:"input"`
	Template string `json:"template"`
}

func (h *Handler) marketingGenerate(c *gin.Context) {
	if _, _, ok := h.authorizedUser(c); !ok {
		return
	}
	var req marketingGenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	campaign, err := h.marketing.GenerateCampaign(c.Request.Context(), req.Input, req.Template)
	if err != nil {
		if errors.Is(err, marketing.ErrMissingDescription) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.log.Error().Err(err).Msg("campaign generation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate marketing assets"})
		return
	}
	c.JSON(http.StatusOK, campaign)
}

// images

type generateImageRequest struct {
	Prompt string `json:"prompt"`
}

func (h *Handler) generateImage(c *gin.Context) {
	userID, _, ok := h.authorizedUser(c)
	if !ok {
		return
	}
	var req generateImageRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Prompt == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "prompt is required"})
		return
	}
	img, err := h.images.Generate(c.Request.Context(), userID, req.Prompt)
	if err != nil {
		h.log.Error().Err(err).Msg("image generation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "image generation failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": img.ID, "imageUrl": img.ImageURL})
}

func (h *Handler) listImages(c *gin.Context) {
	userID, _, ok := h.authorizedUser(c)
	if !ok {
		return
	}
	imgs, err := h.images.List(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list images"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"images": imgs})
}

func (h *Handler) deleteImage(c *gin.Context) {
	userID, _, ok := h.authorizedUser(c)
	if !ok {
		return
	}
	err := h.images.Delete(c.Request.Context(), userID, c.Param("id"))
	switch {
	case errors.Is(err, image.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "image not found"})
	case errors.Is(err, image.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete image"})
	default:
		c.JSON(http.StatusOK, gin.H{"status": "deleted"})
	}
}

// speech

func (h *Handler) speechToText(c *gin.Context) {
	if _, _, ok := h.authorizedUser(c); !ok {
		return
	}
	fileHeader, err := c.FormFile("audio")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no audio file provided"})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not read audio"})
		return
	}
	defer file.Close()

	text, err := h.speech.Transcribe(c.Request.Context(), fileHeader.Filename, fileHeader.Header.Get("Content-Type"), file)
	if err != nil {
		h.log.Error().Err(err).Msg("transcription failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process audio"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"text": text})
}
