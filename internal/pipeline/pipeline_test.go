package pipeline

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/forPelevin/panelscribe/internal/ports/adapters/openaiasr"
	"github.com/forPelevin/panelscribe/internal/ports/adapters/pyannote"
	"github.com/forPelevin/panelscribe/internal/ports/adapters/rttm"
	"github.com/forPelevin/panelscribe/internal/ports/adapters/whispercpp"
)

func TestBuildRunOutDir(t *testing.T) {
	now := time.Date(2026, 2, 12, 10, 30, 45, 1234, time.UTC)
	got := buildRunOutDir("out", "/tmp/Panel Talk.2024.mp4", now)
	base := filepath.Base(got)
	require.Equal(t, "out", filepath.Dir(got))
	require.True(t, strings.HasPrefix(base, "panel-talk-2024-20260212-103045Z-"), base)
	require.Len(t, base, len("panel-talk-2024-20260212-103045Z-")+6)
}

func TestNormalizePathSegment(t *testing.T) {
	tests := map[string]string{
		"  My Cool.Video  ": "my-cool-video",
		"___":               "",
		"abc123":            "abc123",
		"Name (v2)!":        "name-v2",
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			require.Equal(t, want, normalizePathSegment(in))
		})
	}
}

func validConfig(t *testing.T) Config {
	t.Helper()
	in := filepath.Join(t.TempDir(), "panel.mp4")
	require.NoError(t, os.WriteFile(in, []byte("x"), 0o644))
	return Config{
		InputMedia:        in,
		Workers:           1,
		ASRBackend:        ASRWhisperCpp,
		WhisperModel:      "ggml-base.bin",
		DiarizerBackend:   DiarizerPyannote,
		PythonPath:        "python3",
		Summary:           true,
		OpenRouterAPIKey:  "sk-test",
		OpenRouterBaseURL: "https://openrouter.ai",
	}
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, validConfig(t).Validate())

	cases := map[string]func(c *Config){
		"missing input":      func(c *Config) { c.InputMedia = filepath.Join(filepath.Dir(c.InputMedia), "nope.mp4") },
		"empty input":        func(c *Config) { c.InputMedia = "" },
		"zero workers":       func(c *Config) { c.Workers = 0 },
		"unknown asr":        func(c *Config) { c.ASRBackend = "vosk" },
		"no whisper model":   func(c *Config) { c.WhisperModel = "" },
		"openai without key": func(c *Config) { c.ASRBackend = ASROpenAI },
		"unknown diarizer":   func(c *Config) { c.DiarizerBackend = "nemo" },
		"rttm without path":  func(c *Config) { c.DiarizerBackend = DiarizerRTTM },
		"summary no key":     func(c *Config) { c.OpenRouterAPIKey = "" },
		"plain http remote":  func(c *Config) { c.OpenRouterBaseURL = "http://example.com" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := validConfig(t)
			mutate(&c)
			require.Error(t, c.Validate())
		})
	}
}

func TestConfigValidate_SummaryDisabledSkipsKey(t *testing.T) {
	c := validConfig(t)
	c.Summary = false
	c.OpenRouterAPIKey = ""
	c.OpenRouterBaseURL = "http://example.com"
	require.NoError(t, c.Validate())
}

func TestBackendSelection(t *testing.T) {
	c := validConfig(t)
	require.IsType(t, &whispercpp.Adapter{}, newASR(c))
	require.IsType(t, &pyannote.Adapter{}, newDiarizer(c))

	c.ASRBackend = ASROpenAI
	c.DiarizerBackend = DiarizerRTTM
	c.RTTMPath = "panel.rttm"
	require.IsType(t, &openaiasr.Adapter{}, newASR(c))
	require.Equal(t, rttm.File{Path: "panel.rttm"}, newDiarizer(c))
}

func TestOpenWAV_MissingFile(t *testing.T) {
	src, err := openWAV(filepath.Join(t.TempDir(), "missing.wav"))
	require.Error(t, err)
	require.Nil(t, src)
}
