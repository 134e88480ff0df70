package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"marketingvoice/internal/models"
)

// DocumentStore is the persistence surface the document tools act on.
type DocumentStore interface {
	SaveDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	UpdateDocumentContent(ctx context.Context, id, content string) error
}

// GenerateFunc produces one completion; the document tools use it to draft
// and revise content. It is wired after the owning service exists.
type GenerateFunc func(ctx context.Context, system, user string) (string, error)

// ToolDeps holds the shared state behind the chat tools.
type ToolDeps struct {
	Docs       DocumentStore
	Generate   GenerateFunc
	HTTPClient *http.Client
	WeatherURL string
}

func initChatTools(deps *ToolDeps, log zerolog.Logger) []tool.BaseTool {
	if deps == nil {
		return nil
	}
	if deps.HTTPClient == nil {
		deps.HTTPClient = &http.Client{Timeout: WeatherHTTPTimeout}
	}
	if deps.WeatherURL == "" {
		deps.WeatherURL = defaultWeatherURL
	}

	tools := []tool.BaseTool{initWeatherTool(deps)}
	if deps.Docs != nil {
		tools = append(tools,
			initCreateDocumentTool(deps, log),
			initUpdateDocumentTool(deps, log),
			initRequestSuggestionsTool(deps, log),
		)
	}
	return tools
}

// weather

const defaultWeatherURL = "https://api.open-meteo.com/v1/forecast"

type weatherParams struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func initWeatherTool(deps *ToolDeps) tool.InvokableTool {
	info := &schema.ToolInfo{
		Name: "get_weather",
		Desc: "Get the current weather at a location.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"latitude": {
				Desc:     "Latitude of the location",
				Type:     schema.Number,
				Required: true,
			},
			"longitude": {
				Desc:     "Longitude of the location",
				Type:     schema.Number,
				Required: true,
			},
		}),
	}
	return utils.NewTool(info, func(ctx context.Context, params *weatherParams) (string, error) {
		if params == nil {
			return "", errors.New("missing weather parameters")
		}
		query := url.Values{}
		query.Set("latitude", fmt.Sprintf("%f", params.Latitude))
		query.Set("longitude", fmt.Sprintf("%f", params.Longitude))
		query.Set("current", "temperature_2m")
		query.Set("hourly", "temperature_2m")
		query.Set("daily", "sunrise,sunset")
		query.Set("timezone", "auto")

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, deps.WeatherURL+"?"+query.Encode(), nil)
		if err != nil {
			return "", err
		}
		resp, err := deps.HTTPClient.Do(req)
		if err != nil {
			return "", fmt.Errorf("fetch weather: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("fetch weather: %s", resp.Status)
		}
		body, err := io.ReadAll(io.LimitReader(resp.Body, 256*1024))
		if err != nil {
			return "", err
		}
		return string(body), nil
	})
}

// documents

const (
	textDraftInstruction = "Write about the given topic. Markdown is supported. Use headings wherever appropriate."
	codeDraftInstruction = "Generate a self-contained code snippet for the given topic. Include brief comments."
)

type createDocumentParams struct {
	Title string `json:"title"`
	Kind  string `json:"kind"`
}

func initCreateDocumentTool(deps *ToolDeps, log zerolog.Logger) tool.InvokableTool {
	info := &schema.ToolInfo{
		Name: "create_document",
		Desc: "Create a document for substantial writing or code. The document content is generated from the title.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"title": {
				Desc:     "Title describing what to write",
				Type:     schema.String,
				Required: true,
			},
			"kind": {
				Desc:     "Document kind: text or code",
				Type:     schema.String,
				Required: true,
				Enum:     []string{string(models.DocumentText), string(models.DocumentCode)},
			},
		}),
	}
	return utils.NewTool(info, func(ctx context.Context, params *createDocumentParams) (string, error) {
		if params == nil || strings.TrimSpace(params.Title) == "" {
			return "", errors.New("title is required")
		}
		userID, ok := ToolUserFromContext(ctx)
		if !ok {
			return "", errors.New("no user bound to this generation")
		}
		kind := models.DocumentKind(params.Kind)
		if kind != models.DocumentText && kind != models.DocumentCode {
			kind = models.DocumentText
		}
		if deps.Generate == nil {
			return "", errors.New("document drafting unavailable")
		}

		instruction := textDraftInstruction
		if kind == models.DocumentCode {
			instruction = codeDraftInstruction
		}
		content, err := deps.Generate(ctx, instruction, params.Title)
		if err != nil {
			return "", fmt.Errorf("draft document: %w", err)
		}

		doc := &models.Document{
			ID:      uuid.NewString(),
			UserID:  userID,
			Title:   params.Title,
			Kind:    kind,
			Content: content,
		}
		if err := deps.Docs.SaveDocument(ctx, doc); err != nil {
			return "", err
		}
		log.Info().Str("document_id", doc.ID).Str("kind", string(kind)).Msg("document created by tool")
		return toolJSON(map[string]string{
			"id":    doc.ID,
			"title": doc.Title,
			"kind":  string(doc.Kind),
			"note":  "A document was created and is now visible to the user.",
		})
	})
}

type updateDocumentParams struct {
	ID          string `json:"id"`
	Description string `json:"description"`
}

func initUpdateDocumentTool(deps *ToolDeps, log zerolog.Logger) tool.InvokableTool {
	info := &schema.ToolInfo{
		Name: "update_document",
		Desc: "Update an existing document following the given description of changes.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"id": {
				Desc:     "ID of the document to update",
				Type:     schema.String,
				Required: true,
			},
			"description": {
				Desc:     "Description of the changes to make",
				Type:     schema.String,
				Required: true,
			},
		}),
	}
	return utils.NewTool(info, func(ctx context.Context, params *updateDocumentParams) (string, error) {
		if params == nil || params.ID == "" {
			return "", errors.New("document id is required")
		}
		doc, err := loadOwnedDocument(ctx, deps, params.ID)
		if err != nil {
			return "", err
		}
		if deps.Generate == nil {
			return "", errors.New("document drafting unavailable")
		}

		instruction := fmt.Sprintf(
			"Rewrite the following document according to this request: %s\nReturn only the full updated document.",
			params.Description,
		)
		content, err := deps.Generate(ctx, instruction, doc.Content)
		if err != nil {
			return "", fmt.Errorf("revise document: %w", err)
		}
		if err := deps.Docs.UpdateDocumentContent(ctx, doc.ID, content); err != nil {
			return "", err
		}
		log.Info().Str("document_id", doc.ID).Msg("document updated by tool")
		return toolJSON(map[string]string{
			"id":    doc.ID,
			"title": doc.Title,
			"note":  "The document has been updated.",
		})
	})
}

type requestSuggestionsParams struct {
	DocumentID string `json:"document_id"`
}

func initRequestSuggestionsTool(deps *ToolDeps, log zerolog.Logger) tool.InvokableTool {
	info := &schema.ToolInfo{
		Name: "request_suggestions",
		Desc: "Request writing suggestions for an existing document.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"document_id": {
				Desc:     "ID of the document to suggest improvements for",
				Type:     schema.String,
				Required: true,
			},
		}),
	}
	return utils.NewTool(info, func(ctx context.Context, params *requestSuggestionsParams) (string, error) {
		if params == nil || params.DocumentID == "" {
			return "", errors.New("document id is required")
		}
		doc, err := loadOwnedDocument(ctx, deps, params.DocumentID)
		if err != nil {
			return "", err
		}
		if deps.Generate == nil {
			return "", errors.New("suggestions unavailable")
		}

		suggestions, err := deps.Generate(ctx,
			"Give up to five concrete suggestions improving the following document. One suggestion per line.",
			doc.Content,
		)
		if err != nil {
			return "", fmt.Errorf("generate suggestions: %w", err)
		}
		log.Info().Str("document_id", doc.ID).Msg("suggestions generated by tool")
		return toolJSON(map[string]string{
			"id":          doc.ID,
			"title":       doc.Title,
			"suggestions": suggestions,
		})
	})
}

func loadOwnedDocument(ctx context.Context, deps *ToolDeps, id string) (*models.Document, error) {
	userID, ok := ToolUserFromContext(ctx)
	if !ok {
		return nil, errors.New("no user bound to this generation")
	}
	doc, err := deps.Docs.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.UserID != userID {
		return nil, errors.New("document belongs to another user")
	}
	return doc, nil
}

func toolJSON(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal tool result: %w", err)
	}
	return string(data), nil
}
