package image

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"marketingvoice/internal/config"
	"marketingvoice/internal/logger"
	"marketingvoice/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return NewClient(config.ImageConfig{Endpoint: ts.URL, APIKey: "k"}, logger.GetLogger())
}

func TestClientGenerateReturnsURL(t *testing.T) {
	var gotReq generateRequest
	var gotAuth string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(generateResponse{Images: []imageItem{{URL: "https://img/1.jpg"}}})
	})

	url, err := client.Generate(context.Background(), "neon skyline")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if url != "https://img/1.jpg" {
		t.Fatalf("url = %q", url)
	}
	if gotAuth != "Key k" {
		t.Fatalf("auth header = %q", gotAuth)
	}
	if !strings.HasPrefix(gotReq.Prompt, "neon skyline") || gotReq.Width != 1024 {
		t.Fatalf("request = %#v", gotReq)
	}
}

func TestClientGenerateWrapsBase64(t *testing.T) {
	raw := strings.Repeat("QUJD", 40)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(generateResponse{Image: raw})
	})

	url, err := client.Generate(context.Background(), "p")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.HasPrefix(url, "data:image/jpeg;base64,") {
		t.Fatalf("base64 not wrapped: %q", url)
	}
}

func TestClientGenerateProviderError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(generateResponse{Detail: "prompt rejected"})
	})

	if _, err := client.Generate(context.Background(), "p"); err == nil || !strings.Contains(err.Error(), "prompt rejected") {
		t.Fatalf("expected provider error, got %v", err)
	}
}

func TestClientGenerateEmptyResponse(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(generateResponse{})
	})

	if _, err := client.Generate(context.Background(), "p"); err == nil {
		t.Fatalf("expected error for response without image url")
	}
}

func TestNewClientWithoutEndpoint(t *testing.T) {
	if c := NewClient(config.ImageConfig{}, logger.GetLogger()); c != nil {
		t.Fatalf("expected nil client without endpoint")
	}
	var c *Client
	if _, err := c.Generate(context.Background(), "p"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("nil client: %v", err)
	}
}

type fakeGen struct{ url string }

func (f fakeGen) Generate(context.Context, string) (string, error) { return f.url, nil }

type memStore struct {
	imgs map[string]*models.GeneratedImage
}

func newMemStore() *memStore { return &memStore{imgs: make(map[string]*models.GeneratedImage)} }

func (m *memStore) SaveImage(_ context.Context, img *models.GeneratedImage) error {
	m.imgs[img.ID] = img
	return nil
}

func (m *memStore) GetImage(_ context.Context, id string) (*models.GeneratedImage, error) {
	img, ok := m.imgs[id]
	if !ok {
		return nil, errors.New("missing")
	}
	return img, nil
}

func (m *memStore) ListImagesByUser(_ context.Context, userID string) ([]models.GeneratedImage, error) {
	var out []models.GeneratedImage
	for _, img := range m.imgs {
		if img.UserID == userID {
			out = append(out, *img)
		}
	}
	return out, nil
}

func (m *memStore) DeleteImage(_ context.Context, id string) error {
	delete(m.imgs, id)
	return nil
}

func TestServiceGenerateRecordsImage(t *testing.T) {
	store := newMemStore()
	svc := NewService(fakeGen{url: "https://img/1.jpg"}, store, logger.GetLogger())

	img, err := svc.Generate(context.Background(), "u1", "sunset")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if img.ID == "" || img.UserID != "u1" || img.ImageURL != "https://img/1.jpg" {
		t.Fatalf("image = %#v", img)
	}
	if len(store.imgs) != 1 {
		t.Fatalf("record not stored")
	}
}

func TestServiceDeleteOwnership(t *testing.T) {
	store := newMemStore()
	store.imgs["i1"] = &models.GeneratedImage{ID: "i1", UserID: "owner"}
	svc := NewService(nil, store, logger.GetLogger())

	if err := svc.Delete(context.Background(), "other", "i1"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("foreign delete: %v", err)
	}
	if err := svc.Delete(context.Background(), "owner", "i1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.Delete(context.Background(), "owner", "i1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete: %v", err)
	}
}
