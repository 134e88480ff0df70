// Package ai wraps eino chat models behind the operations the rest of the
// service needs: streamed chat generation, title generation and one-shot
// text generation.
package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/flow/agent/react"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"marketingvoice/internal/config"
)

// Generation tool loops are capped so a confused model cannot spin forever.
const maxAgentSteps = 5

const titleInstruction = "Generate a short title summarizing the user's first message. " +
	"At most 80 characters, no quotes, no colons, plain text only."

// Service drives one configured chat model alias. Reasoning aliases run the
// bare model; other aliases run a tool-calling agent.
type Service struct {
	chatModel model.ToolCallingChatModel
	agent     *react.Agent
	alias     string
	log       zerolog.Logger
}

// NewService builds the model for the given alias. deps supplies the state
// the chat tools act on; it is ignored for reasoning aliases.
func NewService(cfg *config.Config, alias string, deps *ToolDeps, log zerolog.Logger) (*Service, error) {
	modelCfg, ok := cfg.ChatModels[alias]
	if !ok {
		return nil, fmt.Errorf("chat model %s not configured", alias)
	}
	provCfg, ok := cfg.Providers[modelCfg.Provider]
	if !ok {
		return nil, fmt.Errorf("provider %s not configured", modelCfg.Provider)
	}

	chatModel, err := newChatModel(modelCfg.Provider, modelCfg.Model, provCfg)
	if err != nil {
		return nil, err
	}

	svc := &Service{chatModel: chatModel, alias: alias, log: log}
	if modelCfg.Reasoning {
		return svc, nil
	}

	tools := initChatTools(deps, log)
	if len(tools) > 0 {
		agent, err := react.NewAgent(context.Background(), &react.AgentConfig{
			ToolCallingModel: chatModel,
			ToolsConfig: compose.ToolsNodeConfig{
				Tools: tools,
			},
			MaxStep: maxAgentSteps,
		})
		if err != nil {
			return nil, fmt.Errorf("init react agent: %w", err)
		}
		svc.agent = agent
	}
	return svc, nil
}

func newChatModel(provider, modelType string, provCfg config.ProviderConfig) (model.ToolCallingChatModel, error) {
	switch provider {
	case "openai":
		return openai.NewChatModel(context.Background(), &openai.ChatModelConfig{
			BaseURL: provCfg.BaseURL,
			Model:   modelType,
			APIKey:  provCfg.APIKey,
		})
	case "gemini":
		client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
			APIKey: provCfg.APIKey,
		})
		if err != nil {
			return nil, fmt.Errorf("init gemini client: %w", err)
		}
		return gemini.NewChatModel(context.Background(), &gemini.Config{
			Client: client,
			Model:  modelType,
		})
	case "claude":
		var baseURLPtr *string
		if provCfg.BaseURL != "" {
			baseURLPtr = &provCfg.BaseURL
		}
		return claude.NewChatModel(context.Background(), &claude.Config{
			APIKey:    provCfg.APIKey,
			Model:     modelType,
			BaseURL:   baseURLPtr,
			MaxTokens: 3000,
		})
	default:
		return nil, fmt.Errorf("invalid provider: %s", provider)
	}
}

// StreamChat streams a completion for the conversation, invoking onDelta
// for each smoothed word chunk, and returns the full accumulated text.
func (s *Service) StreamChat(ctx context.Context, msgs []*schema.Message, onDelta func(string) error) (string, error) {
	if len(msgs) == 0 {
		return "", errors.New("conversation cannot be empty")
	}

	var (
		streamReader *schema.StreamReader[*schema.Message]
		err          error
	)
	if s.agent != nil {
		streamReader, err = s.agent.Stream(ctx, msgs)
	} else {
		streamReader, err = s.chatModel.Stream(ctx, msgs)
	}
	if err != nil {
		return "", fmt.Errorf("open generation stream: %w", err)
	}
	defer streamReader.Close()

	chunker := newWordChunker(onDelta)
	var full strings.Builder
	for {
		chunk, recvErr := streamReader.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}
		if recvErr != nil {
			// A mid-stream provider failure must not pass as a completed
			// response.
			return "", fmt.Errorf("receive stream chunk: %w", recvErr)
		}
		full.WriteString(chunk.Content)
		if err := chunker.Write(chunk.Content); err != nil {
			return "", err
		}
	}
	if err := chunker.Flush(); err != nil {
		return "", err
	}
	return full.String(), nil
}

// GenerateTitle derives a chat title from the user's first message.
func (s *Service) GenerateTitle(ctx context.Context, userText string) (string, error) {
	out, err := s.chatModel.Generate(ctx, []*schema.Message{
		schema.SystemMessage(titleInstruction),
		schema.UserMessage(userText),
	})
	if err != nil {
		return "", fmt.Errorf("generate title: %w", err)
	}
	title := strings.TrimSpace(strings.Trim(strings.TrimSpace(out.Content), `"`))
	if title == "" {
		return "", errors.New("empty title generated")
	}
	if runes := []rune(title); len(runes) > 80 {
		title = string(runes[:80])
	}
	return title, nil
}

// GenerateText runs one non-streamed completion.
func (s *Service) GenerateText(ctx context.Context, system, user string) (string, error) {
	msgs := make([]*schema.Message, 0, 2)
	if system != "" {
		msgs = append(msgs, schema.SystemMessage(system))
	}
	msgs = append(msgs, schema.UserMessage(user))
	out, err := s.chatModel.Generate(ctx, msgs)
	if err != nil {
		return "", fmt.Errorf("generate text: %w", err)
	}
	return strings.TrimSpace(out.Content), nil
}
