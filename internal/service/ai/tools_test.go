package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"marketingvoice/internal/logger"
	"marketingvoice/internal/models"
)

type fakeDocStore struct {
	docs map[string]*models.Document
}

func newFakeDocStore() *fakeDocStore {
	return &fakeDocStore{docs: make(map[string]*models.Document)}
}

func (f *fakeDocStore) SaveDocument(_ context.Context, doc *models.Document) error {
	f.docs[doc.ID] = doc
	return nil
}

func (f *fakeDocStore) GetDocument(_ context.Context, id string) (*models.Document, error) {
	doc, ok := f.docs[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return doc, nil
}

func (f *fakeDocStore) UpdateDocumentContent(_ context.Context, id, content string) error {
	doc, ok := f.docs[id]
	if !ok {
		return errors.New("not found")
	}
	doc.Content = content
	return nil
}

func TestWeatherToolQueriesForecastEndpoint(t *testing.T) {
	var gotQuery string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`{"current":{"temperature_2m":21.5}}`))
	}))
	defer ts.Close()

	deps := &ToolDeps{HTTPClient: ts.Client(), WeatherURL: ts.URL}
	weather := initWeatherTool(deps)

	out, err := weather.InvokableRun(context.Background(), `{"latitude":37.56,"longitude":126.97}`)
	if err != nil {
		t.Fatalf("weather tool: %v", err)
	}
	if !strings.Contains(out, "21.5") {
		t.Fatalf("unexpected tool output: %q", out)
	}
	for _, param := range []string{"latitude=37.56", "longitude=126.97", "current=temperature_2m"} {
		if !strings.Contains(gotQuery, param) {
			t.Fatalf("query %q missing %q", gotQuery, param)
		}
	}
}

func TestCreateDocumentToolPersistsGeneratedDraft(t *testing.T) {
	store := newFakeDocStore()
	deps := &ToolDeps{
		Docs: store,
		Generate: func(_ context.Context, system, user string) (string, error) {
			return "draft about " + user, nil
		},
	}
	create := initCreateDocumentTool(deps, logger.GetLogger())

	ctx := WithToolUser(context.Background(), "u1")
	out, err := create.InvokableRun(ctx, `{"title":"Summer launch email","kind":"text"}`)
	if err != nil {
		t.Fatalf("create document: %v", err)
	}

	var result map[string]string
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	doc, err := store.GetDocument(ctx, result["id"])
	if err != nil {
		t.Fatalf("stored document: %v", err)
	}
	if doc.UserID != "u1" || doc.Kind != models.DocumentText {
		t.Fatalf("stored document = %#v", doc)
	}
	if doc.Content != "draft about Summer launch email" {
		t.Fatalf("content = %q", doc.Content)
	}
}

func TestCreateDocumentToolRequiresBoundUser(t *testing.T) {
	deps := &ToolDeps{Docs: newFakeDocStore(), Generate: func(context.Context, string, string) (string, error) { return "x", nil }}
	create := initCreateDocumentTool(deps, logger.GetLogger())

	if _, err := create.InvokableRun(context.Background(), `{"title":"t","kind":"text"}`); err == nil {
		t.Fatalf("expected error without bound user")
	}
}

func TestUpdateDocumentToolRejectsForeignDocument(t *testing.T) {
	store := newFakeDocStore()
	store.docs["d1"] = &models.Document{ID: "d1", UserID: "owner", Content: "v1"}
	deps := &ToolDeps{Docs: store, Generate: func(context.Context, string, string) (string, error) { return "v2", nil }}
	update := initUpdateDocumentTool(deps, logger.GetLogger())

	ctx := WithToolUser(context.Background(), "intruder")
	if _, err := update.InvokableRun(ctx, `{"id":"d1","description":"shorten"}`); err == nil {
		t.Fatalf("expected ownership error")
	}
	if store.docs["d1"].Content != "v1" {
		t.Fatalf("content should be unchanged, got %q", store.docs["d1"].Content)
	}
}

func TestUpdateDocumentToolRewritesContent(t *testing.T) {
	store := newFakeDocStore()
	store.docs["d1"] = &models.Document{ID: "d1", UserID: "u1", Title: "Draft", Content: "v1"}
	deps := &ToolDeps{Docs: store, Generate: func(_ context.Context, system, user string) (string, error) {
		if user != "v1" {
			t.Fatalf("generator should receive current content, got %q", user)
		}
		return "v2", nil
	}}
	update := initUpdateDocumentTool(deps, logger.GetLogger())

	ctx := WithToolUser(context.Background(), "u1")
	if _, err := update.InvokableRun(ctx, `{"id":"d1","description":"shorten"}`); err != nil {
		t.Fatalf("update document: %v", err)
	}
	if store.docs["d1"].Content != "v2" {
		t.Fatalf("content = %q", store.docs["d1"].Content)
	}
}

func TestRequestSuggestionsToolReturnsSuggestions(t *testing.T) {
	store := newFakeDocStore()
	store.docs["d1"] = &models.Document{ID: "d1", UserID: "u1", Title: "Draft", Content: "body"}
	deps := &ToolDeps{Docs: store, Generate: func(context.Context, string, string) (string, error) {
		return "tighten the intro", nil
	}}
	suggest := initRequestSuggestionsTool(deps, logger.GetLogger())

	ctx := WithToolUser(context.Background(), "u1")
	out, err := suggest.InvokableRun(ctx, `{"document_id":"d1"}`)
	if err != nil {
		t.Fatalf("request suggestions: %v", err)
	}
	if !strings.Contains(out, "tighten the intro") {
		t.Fatalf("suggestions missing from %q", out)
	}
}

func TestToolUserContextRoundTrip(t *testing.T) {
	if _, ok := ToolUserFromContext(context.Background()); ok {
		t.Fatalf("empty context should have no user")
	}
	ctx := WithToolUser(context.Background(), "u9")
	if id, ok := ToolUserFromContext(ctx); !ok || id != "u9" {
		t.Fatalf("got %q %v", id, ok)
	}
}
