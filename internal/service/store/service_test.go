package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"marketingvoice/internal/models"
	"marketingvoice/internal/storage"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	// One shared connection so every query sees the same in-memory database.
	db.SetMaxOpenConns(1)
	if err := storage.Migrate(db, "sqlite"); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewService(db)
}

func seedUser(t *testing.T, s *Service, id string) {
	t.Helper()
	_, err := s.db.Exec(
		"INSERT INTO users (id, username, password_hash, user_type, created_at) VALUES (?, ?, ?, ?, ?)",
		id, "user-"+id, "hash", models.UserTypeRegular, time.Now().UTC(),
	)
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
}

func seedChat(t *testing.T, s *Service, id, userID string) *models.Chat {
	t.Helper()
	chat := &models.Chat{ID: id, UserID: userID, Title: "Chat " + id}
	if err := s.SaveChat(context.Background(), chat); err != nil {
		t.Fatalf("seed chat: %v", err)
	}
	return chat
}

func TestChatRoundTrip(t *testing.T) {
	s := newTestService(t)
	seedUser(t, s, "u1")
	seedChat(t, s, "c1", "u1")

	got, err := s.GetChat(context.Background(), "c1")
	if err != nil {
		t.Fatalf("get chat: %v", err)
	}
	if got.UserID != "u1" || got.Title != "Chat c1" {
		t.Fatalf("unexpected chat: %#v", got)
	}
	if got.Visibility != models.VisibilityPrivate {
		t.Fatalf("default visibility = %q", got.Visibility)
	}
}

func TestGetChatNotFound(t *testing.T) {
	s := newTestService(t)
	if _, err := s.GetChat(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateChatVisibility(t *testing.T) {
	s := newTestService(t)
	seedUser(t, s, "u1")
	seedChat(t, s, "c1", "u1")

	if err := s.UpdateChatVisibility(context.Background(), "c1", models.VisibilityPublic); err != nil {
		t.Fatalf("update visibility: %v", err)
	}
	got, err := s.GetChat(context.Background(), "c1")
	if err != nil {
		t.Fatalf("get chat: %v", err)
	}
	if got.Visibility != models.VisibilityPublic {
		t.Fatalf("visibility = %q", got.Visibility)
	}
	if err := s.UpdateChatVisibility(context.Background(), "missing", models.VisibilityPublic); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMessageRoundTripPreservesParts(t *testing.T) {
	s := newTestService(t)
	seedUser(t, s, "u1")
	seedChat(t, s, "c1", "u1")

	msg := &models.Message{
		ID:     "m1",
		ChatID: "c1",
		Role:   models.RoleUser,
		Parts:  models.TextParts("write me a slogan"),
		Attachments: []models.Attachment{
			{Name: "logo.png", URL: "https://example.com/logo.png", ContentType: "image/png"},
		},
	}
	if err := s.SaveMessage(context.Background(), msg); err != nil {
		t.Fatalf("save message: %v", err)
	}

	msgs, err := s.GetMessagesByChat(context.Background(), "c1")
	if err != nil {
		t.Fatalf("get messages: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	if msgs[0].Text() != "write me a slogan" {
		t.Fatalf("text = %q", msgs[0].Text())
	}
	if len(msgs[0].Attachments) != 1 || msgs[0].Attachments[0].Name != "logo.png" {
		t.Fatalf("attachments = %#v", msgs[0].Attachments)
	}
}

func TestGetMessagesOrderedByCreation(t *testing.T) {
	s := newTestService(t)
	seedUser(t, s, "u1")
	seedChat(t, s, "c1", "u1")

	base := time.Now().UTC().Add(-time.Hour)
	for i, text := range []string{"first", "second", "third"} {
		msg := &models.Message{
			ID:        string(rune('a' + i)),
			ChatID:    "c1",
			Role:      models.RoleUser,
			Parts:     models.TextParts(text),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := s.SaveMessage(context.Background(), msg); err != nil {
			t.Fatalf("save message %d: %v", i, err)
		}
	}

	msgs, err := s.GetMessagesByChat(context.Background(), "c1")
	if err != nil {
		t.Fatalf("get messages: %v", err)
	}
	if len(msgs) != 3 || msgs[0].Text() != "first" || msgs[2].Text() != "third" {
		t.Fatalf("unexpected order: %#v", msgs)
	}
}

func TestCountRecentUserMessages(t *testing.T) {
	s := newTestService(t)
	seedUser(t, s, "u1")
	seedUser(t, s, "u2")
	seedChat(t, s, "c1", "u1")
	seedChat(t, s, "c2", "u2")

	now := time.Now().UTC()
	save := func(id, chatID string, role models.Role, at time.Time) {
		t.Helper()
		msg := &models.Message{ID: id, ChatID: chatID, Role: role, Parts: models.TextParts("x"), CreatedAt: at}
		if err := s.SaveMessage(context.Background(), msg); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}
	save("m1", "c1", models.RoleUser, now.Add(-time.Hour))
	save("m2", "c1", models.RoleAssistant, now.Add(-time.Hour))
	save("m3", "c1", models.RoleUser, now.Add(-48*time.Hour))
	save("m4", "c2", models.RoleUser, now.Add(-time.Hour))

	count, err := s.CountRecentUserMessages(context.Background(), "u1", now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1 (assistant, stale and other-user messages excluded)", count)
	}
}

func TestDeleteChatCascadesAndReturnsRecord(t *testing.T) {
	s := newTestService(t)
	seedUser(t, s, "u1")
	seedChat(t, s, "c1", "u1")

	msg := &models.Message{ID: "m1", ChatID: "c1", Role: models.RoleUser, Parts: models.TextParts("hi")}
	if err := s.SaveMessage(context.Background(), msg); err != nil {
		t.Fatalf("save message: %v", err)
	}
	if err := s.CreateStreamID(context.Background(), "s1", "c1"); err != nil {
		t.Fatalf("create stream id: %v", err)
	}

	deleted, err := s.DeleteChat(context.Background(), "c1")
	if err != nil {
		t.Fatalf("delete chat: %v", err)
	}
	if deleted.ID != "c1" || deleted.Title != "Chat c1" {
		t.Fatalf("deleted record = %#v", deleted)
	}

	if _, err := s.GetChat(context.Background(), "c1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("chat should be gone, got %v", err)
	}
	msgs, err := s.GetMessagesByChat(context.Background(), "c1")
	if err != nil || len(msgs) != 0 {
		t.Fatalf("messages should be gone: %v %#v", err, msgs)
	}
	ids, err := s.GetStreamIDsByChat(context.Background(), "c1")
	if err != nil || len(ids) != 0 {
		t.Fatalf("stream ids should be gone: %v %#v", err, ids)
	}

	if _, err := s.DeleteChat(context.Background(), "c1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete should be ErrNotFound, got %v", err)
	}
}

func TestStreamIDOrdering(t *testing.T) {
	s := newTestService(t)
	seedUser(t, s, "u1")
	seedChat(t, s, "c1", "u1")

	for _, id := range []string{"s1", "s2", "s3"} {
		if err := s.CreateStreamID(context.Background(), id, "c1"); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}
	ids, err := s.GetStreamIDsByChat(context.Background(), "c1")
	if err != nil {
		t.Fatalf("get stream ids: %v", err)
	}
	if len(ids) != 3 || ids[2] != "s3" {
		t.Fatalf("ids = %#v", ids)
	}
}

func TestDocumentLifecycle(t *testing.T) {
	s := newTestService(t)
	seedUser(t, s, "u1")

	doc := &models.Document{ID: "d1", UserID: "u1", Title: "Launch copy", Kind: models.DocumentText, Content: "v1"}
	if err := s.SaveDocument(context.Background(), doc); err != nil {
		t.Fatalf("save document: %v", err)
	}
	if err := s.UpdateDocumentContent(context.Background(), "d1", "v2"); err != nil {
		t.Fatalf("update document: %v", err)
	}
	got, err := s.GetDocument(context.Background(), "d1")
	if err != nil {
		t.Fatalf("get document: %v", err)
	}
	if got.Content != "v2" {
		t.Fatalf("content = %q", got.Content)
	}
	if err := s.UpdateDocumentContent(context.Background(), "missing", "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestImageLifecycle(t *testing.T) {
	s := newTestService(t)
	seedUser(t, s, "u1")

	img := &models.GeneratedImage{ID: "i1", UserID: "u1", Prompt: "neon skyline", ImageURL: "data:image/png;base64,xxx"}
	if err := s.SaveImage(context.Background(), img); err != nil {
		t.Fatalf("save image: %v", err)
	}
	imgs, err := s.ListImagesByUser(context.Background(), "u1")
	if err != nil {
		t.Fatalf("list images: %v", err)
	}
	if len(imgs) != 1 || imgs[0].Prompt != "neon skyline" {
		t.Fatalf("images = %#v", imgs)
	}
	if err := s.DeleteImage(context.Background(), "i1"); err != nil {
		t.Fatalf("delete image: %v", err)
	}
	if err := s.DeleteImage(context.Background(), "i1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
