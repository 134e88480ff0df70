// Package chat orchestrates message generation: quota checks, chat and
// message persistence, background streaming and reconnection.
package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"marketingvoice/internal/config"
	"marketingvoice/internal/entitlements"
	"marketingvoice/internal/models"
	"marketingvoice/internal/service/ai"
	"marketingvoice/internal/service/store"
	"marketingvoice/internal/stream"
	"marketingvoice/internal/worker"
)

const (
	quotaWindow = 24 * time.Hour

	// Terminal events must land even when the generation deadline has
	// already expired, so they get their own short budget.
	terminalFlushTimeout = 10 * time.Second
)

// generationTimeout bounds one model generation. Variable so tests can
// shorten it.
var generationTimeout = 5 * time.Minute

// Store is the persistence surface the orchestrator needs.
type Store interface {
	SaveChat(ctx context.Context, chat *models.Chat) error
	GetChat(ctx context.Context, id string) (*models.Chat, error)
	ListChatsByUser(ctx context.Context, userID string) ([]models.Chat, error)
	UpdateChatVisibility(ctx context.Context, id string, visibility models.Visibility) error
	DeleteChat(ctx context.Context, id string) (*models.Chat, error)
	SaveMessage(ctx context.Context, msg *models.Message) error
	GetMessagesByChat(ctx context.Context, chatID string) ([]models.Message, error)
	CountRecentUserMessages(ctx context.Context, userID string, since time.Time) (int, error)
	CreateStreamID(ctx context.Context, streamID, chatID string) error
	GetStreamIDsByChat(ctx context.Context, chatID string) ([]string, error)
	SaveDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	UpdateDocumentContent(ctx context.Context, id, content string) error
}

// StreamStore persists generation events for reconnection. A nil StreamStore
// disables resumption but not live streaming.
type StreamStore interface {
	Append(ctx context.Context, id string, ev stream.Event) error
	Finish(ctx context.Context, id string) error
	Replay(ctx context.Context, id string, emit func(stream.Event) error) error
}

// Generator is the model surface one chat alias exposes.
type Generator interface {
	StreamChat(ctx context.Context, msgs []*schema.Message, onDelta func(string) error) (string, error)
	GenerateTitle(ctx context.Context, userText string) (string, error)
}

// aiFactory builds the generator for an alias. Tests override it to avoid
// real model calls.
var aiFactory = func(cfg *config.Config, alias string, docs ai.DocumentStore, log zerolog.Logger) (Generator, error) {
	deps := &ai.ToolDeps{Docs: docs}
	svc, err := ai.NewService(cfg, alias, deps, log)
	if err != nil {
		return nil, err
	}
	deps.Generate = svc.GenerateText
	return svc, nil
}

// Service coordinates chats, quotas and background generations.
type Service struct {
	store      Store
	streams    StreamStore
	dispatcher *worker.Dispatcher
	cfg        *config.Config
	log        zerolog.Logger

	mu         sync.Mutex
	generators map[string]Generator
	active     map[string]*stream.Broadcaster
}

func NewService(st Store, streams StreamStore, dispatcher *worker.Dispatcher, cfg *config.Config, log zerolog.Logger) *Service {
	return &Service{
		store:      st,
		streams:    streams,
		dispatcher: dispatcher,
		cfg:        cfg,
		log:        log,
		generators: make(map[string]Generator),
		active:     make(map[string]*stream.Broadcaster),
	}
}

// Request is one user turn submitted for generation.
type Request struct {
	ChatID     string
	UserID     string
	UserType   models.UserType
	ModelAlias string
	Visibility models.Visibility
	Text       string
	Hints      ai.RequestHints
}

// Stream is a handle on an in-flight generation.
type Stream struct {
	ChatID   string
	StreamID string
	Events   <-chan stream.Event
	Cancel   func()
}

// HandleUserMessage validates and persists the user's turn, then starts the
// generation in the background and returns a live event stream.
func (s *Service) HandleUserMessage(ctx context.Context, req Request) (*Stream, error) {
	if strings.TrimSpace(req.Text) == "" || req.ChatID == "" || req.UserID == "" {
		return nil, ErrValidation
	}
	modelCfg, ok := s.cfg.ChatModels[req.ModelAlias]
	if !ok {
		return nil, ErrValidation
	}

	count, err := s.store.CountRecentUserMessages(ctx, req.UserID, time.Now().UTC().Add(-quotaWindow))
	if err != nil {
		return nil, err
	}
	if !entitlements.Allowed(req.UserType, count) {
		return nil, ErrQuotaExceeded
	}

	gen, err := s.generator(req.ModelAlias)
	if err != nil {
		return nil, err
	}

	chat, err := s.store.GetChat(ctx, req.ChatID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		chat = &models.Chat{
			ID:         req.ChatID,
			UserID:     req.UserID,
			Title:      s.titleFor(ctx, gen, req.Text),
			Visibility: req.Visibility,
		}
		if err := s.store.SaveChat(ctx, chat); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	case chat.UserID != req.UserID:
		return nil, ErrForbidden
	}

	userMsg := &models.Message{
		ID:     uuid.NewString(),
		ChatID: chat.ID,
		Role:   models.RoleUser,
		Parts:  models.TextParts(req.Text),
	}
	if err := s.store.SaveMessage(ctx, userMsg); err != nil {
		return nil, err
	}

	history, err := s.store.GetMessagesByChat(ctx, chat.ID)
	if err != nil {
		return nil, err
	}

	streamID := uuid.NewString()
	if err := s.store.CreateStreamID(ctx, streamID, chat.ID); err != nil {
		return nil, err
	}

	b := stream.NewBroadcaster()
	s.mu.Lock()
	s.active[streamID] = b
	s.mu.Unlock()

	msgs := s.buildConversation(modelCfg.Reasoning, req.Hints, history)
	job := worker.Job{
		UserID: req.UserID,
		Fn: func() {
			s.generate(gen, b, streamID, chat.ID, req.UserID, msgs)
		},
	}
	if err := s.dispatcher.Submit(job); err != nil {
		s.mu.Lock()
		delete(s.active, streamID)
		s.mu.Unlock()
		b.Close()
		return nil, err
	}

	events, cancel := b.Subscribe()
	return &Stream{ChatID: chat.ID, StreamID: streamID, Events: events, Cancel: cancel}, nil
}

// generate runs detached from the request context so a client disconnect
// does not abort the generation.
func (s *Service) generate(gen Generator, b *stream.Broadcaster, streamID, chatID, userID string, msgs []*schema.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), generationTimeout)
	defer cancel()
	ctx = ai.WithToolUser(ctx, userID)

	defer func() {
		s.persistTerminalEvent(ctx, streamID, stream.Event{Type: stream.EventFinish})
		b.Close()
		s.mu.Lock()
		delete(s.active, streamID)
		s.mu.Unlock()
	}()

	content, err := gen.StreamChat(ctx, msgs, func(delta string) error {
		ev := stream.Event{Type: stream.EventTextDelta, Content: delta}
		b.Publish(ev)
		s.persistEvent(ctx, streamID, ev)
		return nil
	})
	if err != nil {
		s.log.Error().Err(err).Str("stream_id", streamID).Msg("generation failed")
		ev := stream.Event{Type: stream.EventError, Content: "Oops, an error occurred!"}
		b.Publish(ev)
		s.persistTerminalEvent(ctx, streamID, ev)
		return
	}
	if strings.TrimSpace(content) == "" {
		s.log.Warn().Str("stream_id", streamID).Msg("generation produced no content")
		return
	}

	assistantMsg := &models.Message{
		ID:     uuid.NewString(),
		ChatID: chatID,
		Role:   models.RoleAssistant,
		Parts:  models.TextParts(content),
	}
	if err := s.store.SaveMessage(ctx, assistantMsg); err != nil {
		// The client already has the streamed text; losing the record is
		// reported in-stream, not as a hard failure.
		s.log.Error().Err(err).Str("chat_id", chatID).Msg("persist assistant message failed")
		ev := stream.Event{Type: stream.EventError, Content: "Failed to save the response."}
		b.Publish(ev)
		s.persistTerminalEvent(ctx, streamID, ev)
	}
}

// persistTerminalEvent writes finish and error sentinels on a context that
// outlives the generation deadline, so a timed-out generation still closes
// its persisted stream.
func (s *Service) persistTerminalEvent(ctx context.Context, streamID string, ev stream.Event) {
	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), terminalFlushTimeout)
	defer cancel()
	s.persistEvent(flushCtx, streamID, ev)
}

func (s *Service) persistEvent(ctx context.Context, streamID string, ev stream.Event) {
	if s.streams == nil {
		return
	}
	var err error
	if ev.Type == stream.EventFinish {
		err = s.streams.Finish(ctx, streamID)
	} else {
		err = s.streams.Append(ctx, streamID, ev)
	}
	if err != nil {
		s.log.Warn().Err(err).Str("stream_id", streamID).Msg("persist stream event failed")
	}
}

// Resume returns the latest stream id for the chat so the caller can replay
// it. ErrStreamingDisabled means no stream persistence is configured.
func (s *Service) Resume(ctx context.Context, chatID, userID string) (string, error) {
	if s.streams == nil {
		return "", ErrStreamingDisabled
	}
	if chatID == "" {
		return "", ErrValidation
	}
	chat, err := s.store.GetChat(ctx, chatID)
	if errors.Is(err, store.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	if chat.Visibility != models.VisibilityPublic && chat.UserID != userID {
		return "", ErrForbidden
	}
	ids, err := s.store.GetStreamIDsByChat(ctx, chatID)
	if err != nil {
		return "", err
	}
	if len(ids) == 0 {
		return "", ErrNotFound
	}
	return ids[len(ids)-1], nil
}

// Replay re-emits a persisted stream; completed or expired streams yield no
// events and no error.
func (s *Service) Replay(ctx context.Context, streamID string, emit func(stream.Event) error) error {
	if s.streams == nil {
		return ErrStreamingDisabled
	}
	return s.streams.Replay(ctx, streamID, emit)
}

// GetChatWithMessages loads a chat and its messages, enforcing visibility.
func (s *Service) GetChatWithMessages(ctx context.Context, chatID, userID string) (*models.Chat, []models.Message, error) {
	chat, err := s.store.GetChat(ctx, chatID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	if chat.Visibility != models.VisibilityPublic && chat.UserID != userID {
		return nil, nil, ErrForbidden
	}
	msgs, err := s.store.GetMessagesByChat(ctx, chatID)
	if err != nil {
		return nil, nil, err
	}
	return chat, msgs, nil
}

// ListChats returns the user's chat history, newest first.
func (s *Service) ListChats(ctx context.Context, userID string) ([]models.Chat, error) {
	return s.store.ListChatsByUser(ctx, userID)
}

// DeleteChat removes an owned chat and returns the deleted record.
func (s *Service) DeleteChat(ctx context.Context, chatID, userID string) (*models.Chat, error) {
	chat, err := s.store.GetChat(ctx, chatID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if chat.UserID != userID {
		return nil, ErrForbidden
	}
	return s.store.DeleteChat(ctx, chatID)
}

// UpdateVisibility changes an owned chat between private and public.
func (s *Service) UpdateVisibility(ctx context.Context, chatID, userID string, visibility models.Visibility) error {
	if visibility != models.VisibilityPrivate && visibility != models.VisibilityPublic {
		return ErrValidation
	}
	chat, err := s.store.GetChat(ctx, chatID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if chat.UserID != userID {
		return ErrForbidden
	}
	return s.store.UpdateChatVisibility(ctx, chatID, visibility)
}

func (s *Service) generator(alias string) (Generator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen, ok := s.generators[alias]; ok {
		return gen, nil
	}
	gen, err := aiFactory(s.cfg, alias, s.store, s.log)
	if err != nil {
		return nil, err
	}
	s.generators[alias] = gen
	return gen, nil
}

// titleFor derives a chat title from the first message, falling back to a
// truncation when the model is unavailable.
func (s *Service) titleFor(ctx context.Context, gen Generator, text string) string {
	title, err := gen.GenerateTitle(ctx, text)
	if err == nil {
		return title
	}
	s.log.Warn().Err(err).Msg("title generation failed, using fallback")
	runes := []rune(strings.TrimSpace(text))
	if len(runes) > 80 {
		runes = runes[:80]
	}
	return string(runes)
}

func (s *Service) buildConversation(reasoning bool, hints ai.RequestHints, history []models.Message) []*schema.Message {
	msgs := make([]*schema.Message, 0, len(history)+1)
	msgs = append(msgs, schema.SystemMessage(ai.SystemPrompt(reasoning, hints)))
	for i := range history {
		m := &history[i]
		switch m.Role {
		case models.RoleAssistant:
			msgs = append(msgs, schema.AssistantMessage(m.Text(), nil))
		case models.RoleSystem:
			msgs = append(msgs, schema.SystemMessage(m.Text()))
		default:
			msgs = append(msgs, schema.UserMessage(m.Text()))
		}
	}
	return msgs
}
