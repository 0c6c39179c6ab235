package whispercpp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/forPelevin/panelscribe/internal/types"
)

// languageProbeMs bounds the audio whisper.cpp looks at when only the language
// is wanted; detection only uses the first window anyway.
const languageProbeMs = 30000

type Adapter struct {
	bin     string
	model   string
	threads int
}

func New(binPath, modelPath string, threads int) *Adapter {
	if threads <= 0 {
		threads = 1
	}
	return &Adapter{bin: binPath, model: modelPath, threads: threads}
}

type output struct {
	Result struct {
		Language string `json:"language"`
	} `json:"result"`
	Transcription []struct {
		Text string `json:"text"`
	} `json:"transcription"`
}

// Transcribe writes whisper's JSON next to the input and removes it after reading,
// so concurrent calls on distinct slices never share files.
func (a *Adapter) Transcribe(ctx context.Context, wavPath string) (types.Transcription, error) {
	outPrefix := strings.TrimSuffix(wavPath, filepath.Ext(wavPath))
	out, err := a.run(ctx, outPrefix,
		"-f", wavPath,
		"-l", "auto",
	)
	if err != nil {
		return types.Transcription{}, err
	}

	parts := make([]string, 0, len(out.Transcription))
	for _, s := range out.Transcription {
		if t := strings.TrimSpace(s.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return types.Transcription{
		Text:     strings.Join(parts, " "),
		Language: out.Result.Language,
	}, nil
}

func (a *Adapter) DetectLanguage(ctx context.Context, wavPath string) (string, error) {
	out, err := a.run(ctx, wavPath+".lang",
		"-f", wavPath,
		"-l", "auto",
		"-d", strconv.Itoa(languageProbeMs),
	)
	if err != nil {
		return "", err
	}
	if out.Result.Language == "" {
		return "", fmt.Errorf("whisper.cpp reported no language for %s", filepath.Base(wavPath))
	}
	return out.Result.Language, nil
}

func (a *Adapter) run(ctx context.Context, outPrefix string, extra ...string) (output, error) {
	args := []string{
		"-m", a.model,
		"-t", strconv.Itoa(a.threads),
		"-np",
		"-oj",
		"-of", outPrefix,
	}
	args = append(args, extra...)

	jsonPath := outPrefix + ".json"
	defer os.Remove(jsonPath)

	cmd := exec.CommandContext(ctx, a.bin, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return output{}, fmt.Errorf("whisper.cpp failed: %w\n%s", err, string(b))
	}

	jb, err := os.ReadFile(jsonPath)
	if err != nil {
		return output{}, err
	}
	return parseOutput(jb)
}

func parseOutput(b []byte) (output, error) {
	var out output
	if err := json.Unmarshal(b, &out); err != nil {
		return output{}, fmt.Errorf("parse whisper.cpp json: %w", err)
	}
	return out, nil
}
