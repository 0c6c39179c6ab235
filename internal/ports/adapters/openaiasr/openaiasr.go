// Package openaiasr transcribes WAV slices with the OpenAI audio API.
package openaiasr

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/forPelevin/panelscribe/internal/ports/adapters/wavaudio"
	"github.com/forPelevin/panelscribe/internal/types"
)

// languageProbeSec is how much leading audio is uploaded for language
// detection; the API rejects files over 25 MB.
const languageProbeSec = 30.0

type Adapter struct {
	client *openai.Client
	model  string
}

// New builds a client for apiKey. baseURL may point at any OpenAI-compatible
// server; empty uses the public API.
func New(apiKey, model, baseURL string) *Adapter {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/"); baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = openai.Whisper1
	}
	return &Adapter{client: openai.NewClientWithConfig(cfg), model: model}
}

func (a *Adapter) Transcribe(ctx context.Context, wavPath string) (types.Transcription, error) {
	resp, err := a.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    a.model,
		FilePath: wavPath,
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return types.Transcription{}, fmt.Errorf("openai transcription: %w", err)
	}
	return types.Transcription{
		Text:     strings.TrimSpace(resp.Text),
		Language: resp.Language,
	}, nil
}

// DetectLanguage transcribes the first languageProbeSec of wavPath and
// reports the language the API detected.
func (a *Adapter) DetectLanguage(ctx context.Context, wavPath string) (string, error) {
	src, err := wavaudio.Open(wavPath)
	if err != nil {
		return "", err
	}
	end := src.Duration()
	if end > languageProbeSec {
		end = languageProbeSec
	}

	f, err := os.CreateTemp("", "panelscribe-lang-*.wav")
	if err != nil {
		return "", err
	}
	probe := f.Name()
	_ = f.Close()
	defer os.Remove(probe)

	if err := src.WriteSlice(0, end, probe); err != nil {
		return "", fmt.Errorf("write language probe: %w", err)
	}
	tr, err := a.Transcribe(ctx, probe)
	if err != nil {
		return "", err
	}
	if tr.Language == "" {
		return "", errors.New("openai transcription returned no language")
	}
	return tr.Language, nil
}
