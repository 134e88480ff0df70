// Package speech transcribes uploaded audio. Without a configured
// transcription endpoint it serves sample transcripts so the rest of the
// flow stays usable in development.
package speech

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
	"resty.dev/v3"

	"marketingvoice/internal/config"
)

const transcribeTimeout = 60 * time.Second

var sampleTranscripts = []string{
	"이 제품은 20-30대 직장인을 위한 건강 보조 식품입니다. 천연 성분으로 만들어 부작용 걱정 없이 활력과 면역력 향상에 도움을 줍니다. 특히 바쁜 일상 속 건강관리가 어려운 현대인을 위해 개발되었으며, 휴대와 섭취가 간편합니다.",
	"저희 서비스는 디지털 마케팅 자동화 플랫폼으로, 소상공인들이 쉽게 온라인 마케팅을 할 수 있도록 도와줍니다. AI 기반 콘텐츠 생성과 타깃 광고 최적화를 통해 마케팅 비용은 줄이고 효과는 높입니다.",
	"새롭게 출시된 이 앱은 일상 생활의 모든 예산을 관리해주는 개인 재무 도우미입니다. 지출 패턴을 분석하고 맞춤형 절약 팁을 제공하며, 금융 목표 달성을 위한 계획을 자동으로 생성합니다.",
}

// Service converts audio uploads into text.
type Service struct {
	http     *resty.Client
	endpoint string
	log      zerolog.Logger

	pick func(n int) int
}

func NewService(cfg config.SpeechConfig, log zerolog.Logger) *Service {
	s := &Service{endpoint: cfg.Endpoint, log: log, pick: rand.Intn}
	if cfg.Endpoint != "" {
		client := resty.New().SetTimeout(transcribeTimeout)
		if cfg.APIKey != "" {
			client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
		}
		s.http = client
	}
	return s
}

type transcribeResponse struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

// Transcribe returns the text for one audio upload.
func (s *Service) Transcribe(ctx context.Context, filename, contentType string, audio io.Reader) (string, error) {
	if audio == nil {
		return "", errors.New("audio is required")
	}
	if s.http == nil {
		text := sampleTranscripts[s.pick(len(sampleTranscripts))]
		s.log.Debug().Msg("no transcription endpoint configured, serving sample transcript")
		return text, nil
	}

	if filename == "" {
		filename = "audio.webm"
	}
	if contentType == "" {
		contentType = "audio/webm"
	}

	resp, err := s.http.R().
		SetContext(ctx).
		SetMultipartField("audio", filename, contentType, audio).
		Post(s.endpoint)
	if err != nil {
		return "", fmt.Errorf("transcription call failed: %w", err)
	}

	var result transcribeResponse
	parseErr := json.Unmarshal(resp.Bytes(), &result)
	if resp.StatusCode() >= 400 {
		if parseErr == nil && result.Error != "" {
			return "", fmt.Errorf("transcription error: %s", result.Error)
		}
		return "", fmt.Errorf("transcription returned status %d", resp.StatusCode())
	}
	if parseErr != nil {
		return "", fmt.Errorf("parse transcription response: %w", parseErr)
	}
	if result.Text == "" {
		return "", errors.New("transcription returned no text")
	}
	return result.Text, nil
}
