// Package config resolves panelscribe settings from, lowest priority first:
// built-in defaults, an optional YAML file, environment variables, and
// command-line flags.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const EnvPrefix = "PANELSCRIBE"

type Log struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

type Paths struct {
	Out   string `yaml:"out" mapstructure:"out"`
	Cache string `yaml:"cache" mapstructure:"cache"`
	DB    string `yaml:"db" mapstructure:"db"`
}

type Tools struct {
	FFmpeg  string `yaml:"ffmpeg" mapstructure:"ffmpeg"`
	FFprobe string `yaml:"ffprobe" mapstructure:"ffprobe"`
	Python  string `yaml:"python" mapstructure:"python"`
}

type ASR struct {
	// Backend is "whispercpp" or "openai".
	Backend       string `yaml:"backend" mapstructure:"backend"`
	WhisperBin    string `yaml:"whisper_bin" mapstructure:"whisper_bin"`
	WhisperModel  string `yaml:"whisper_model" mapstructure:"whisper_model"`
	Threads       int    `yaml:"threads" mapstructure:"threads"`
	OpenAIAPIKey  string `yaml:"openai_api_key" mapstructure:"openai_api_key"`
	OpenAIModel   string `yaml:"openai_model" mapstructure:"openai_model"`
	OpenAIBaseURL string `yaml:"openai_base_url" mapstructure:"openai_base_url"`
}

type Diarization struct {
	// Backend is "pyannote" or "rttm".
	Backend     string `yaml:"backend" mapstructure:"backend"`
	Model       string `yaml:"model" mapstructure:"model"`
	HFToken     string `yaml:"hf_token" mapstructure:"hf_token"`
	NumSpeakers int    `yaml:"num_speakers" mapstructure:"num_speakers"`
	RTTM        string `yaml:"rttm" mapstructure:"rttm"`
}

type Align struct {
	Workers         int           `yaml:"workers" mapstructure:"workers"`
	TurnTimeout     time.Duration `yaml:"turn_timeout" mapstructure:"turn_timeout"`
	LanguageTimeout time.Duration `yaml:"language_timeout" mapstructure:"language_timeout"`
}

type Keywords struct {
	ExtraStopwords []string `yaml:"extra_stopwords" mapstructure:"extra_stopwords"`
}

type Sentiment struct {
	// URL of the classification service; empty disables sentiment.
	URL     string        `yaml:"url" mapstructure:"url"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

type Summary struct {
	Enabled      bool     `yaml:"enabled" mapstructure:"enabled"`
	PerSpeaker   bool     `yaml:"per_speaker" mapstructure:"per_speaker"`
	APIKey       string   `yaml:"api_key" mapstructure:"api_key"`
	Model        string   `yaml:"model" mapstructure:"model"`
	BaseURL      string   `yaml:"base_url" mapstructure:"base_url"`
	AllowedHosts []string `yaml:"allowed_hosts" mapstructure:"allowed_hosts"`
}

type Render struct {
	Captioned bool `yaml:"captioned" mapstructure:"captioned"`
}

type Serve struct {
	Addr           string   `yaml:"addr" mapstructure:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

type Root struct {
	Log         Log         `yaml:"log" mapstructure:"log"`
	Paths       Paths       `yaml:"paths" mapstructure:"paths"`
	Tools       Tools       `yaml:"tools" mapstructure:"tools"`
	ASR         ASR         `yaml:"asr" mapstructure:"asr"`
	Diarization Diarization `yaml:"diarization" mapstructure:"diarization"`
	Align       Align       `yaml:"align" mapstructure:"align"`
	Keywords    Keywords    `yaml:"keywords" mapstructure:"keywords"`
	Sentiment   Sentiment   `yaml:"sentiment" mapstructure:"sentiment"`
	Summary     Summary     `yaml:"summary" mapstructure:"summary"`
	Render      Render      `yaml:"render" mapstructure:"render"`
	Serve       Serve       `yaml:"serve" mapstructure:"serve"`
}

var defaults = map[string]any{
	"log.level":  "info",
	"log.format": "text",

	"paths.out":   "out",
	"paths.cache": ".cache",
	"paths.db":    ".cache/panelscribe.db",

	"tools.ffmpeg":  "ffmpeg",
	"tools.ffprobe": "ffprobe",
	"tools.python":  "python3",

	"asr.backend":         "whispercpp",
	"asr.whisper_bin":     ".cache/bin/whisper.cpp",
	"asr.whisper_model":   ".cache/models/ggml-base.bin",
	"asr.threads":         4,
	"asr.openai_api_key":  "",
	"asr.openai_model":    "whisper-1",
	"asr.openai_base_url": "",

	"diarization.backend":      "pyannote",
	"diarization.model":        "pyannote/speaker-diarization-3.1",
	"diarization.hf_token":     "",
	"diarization.num_speakers": 0,
	"diarization.rttm":         "",

	"align.workers":          1,
	"align.turn_timeout":     2 * time.Minute,
	"align.language_timeout": 5 * time.Minute,

	"keywords.extra_stopwords": []string{},

	"sentiment.url":     "",
	"sentiment.timeout": 60 * time.Second,

	"summary.enabled":       true,
	"summary.per_speaker":   false,
	"summary.api_key":       "",
	"summary.model":         "z-ai/glm-4.5-air:free",
	"summary.base_url":      "https://openrouter.ai",
	"summary.allowed_hosts": []string{},

	"render.captioned": false,

	"serve.addr":            "127.0.0.1:8080",
	"serve.allowed_origins": []string{},
}

// envAliases bind well-known variables that do not carry the prefix.
var envAliases = map[string]string{
	"summary.api_key":       "OPENROUTER_API_KEY",
	"summary.model":         "OPENROUTER_MODEL",
	"summary.base_url":      "OPENROUTER_BASE_URL",
	"summary.allowed_hosts": "OPENROUTER_ALLOWED_HOSTS",
	"asr.openai_api_key":    "OPENAI_API_KEY",
	"diarization.hf_token":  "HF_TOKEN",
}

// FlagKeys maps command-line flag names to config keys.
var FlagKeys = map[string]string{
	"out":                 "paths.out",
	"cache":               "paths.cache",
	"db":                  "paths.db",
	"log-level":           "log.level",
	"log-format":          "log.format",
	"asr":                 "asr.backend",
	"whisper-model":       "asr.whisper_model",
	"diarizer":            "diarization.backend",
	"rttm":                "diarization.rttm",
	"num-speakers":        "diarization.num_speakers",
	"workers":             "align.workers",
	"sentiment-url":       "sentiment.url",
	"summary":             "summary.enabled",
	"per-speaker-summary": "summary.per_speaker",
	"captioned":           "render.captioned",
	"addr":                "serve.addr",
}

// Load resolves the configuration. path may be empty; flags may be nil.
func Load(path string, flags *pflag.FlagSet) (Root, error) {
	v := viper.New()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}

	if path != "" {
		m, err := readFile(path)
		if err != nil {
			return Root{}, err
		}
		if err := v.MergeConfigMap(m); err != nil {
			return Root{}, fmt.Errorf("merge config %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envAliases {
		if err := v.BindEnv(key, env); err != nil {
			return Root{}, err
		}
	}

	if flags != nil {
		for name, key := range FlagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return Root{}, err
				}
			}
		}
	}

	var r Root
	if err := v.Unmarshal(&r); err != nil {
		return Root{}, fmt.Errorf("decode config: %w", err)
	}
	return r, r.Validate()
}

// readFile decodes path strictly (unknown keys are errors) and returns it as
// a generic map for viper.
func readFile(path string) (map[string]any, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	var probe Root
	if err := dec.Decode(&probe); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	m := map[string]any{}
	if err := yaml.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return m, nil
}

func (r Root) Validate() error {
	switch r.ASR.Backend {
	case "whispercpp", "openai":
	default:
		return fmt.Errorf("asr.backend must be whispercpp or openai, got %q", r.ASR.Backend)
	}
	switch r.Diarization.Backend {
	case "pyannote", "rttm":
	default:
		return fmt.Errorf("diarization.backend must be pyannote or rttm, got %q", r.Diarization.Backend)
	}
	if r.Align.Workers < 1 {
		return fmt.Errorf("align.workers must be >= 1")
	}
	switch r.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", r.Log.Format)
	}
	return nil
}

const redacted = "[REDACTED]"

// Redacted returns a copy with secrets masked, for printing.
func (r Root) Redacted() Root {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return redacted
	}
	r.ASR.OpenAIAPIKey = mask(r.ASR.OpenAIAPIKey)
	r.Diarization.HFToken = mask(r.Diarization.HFToken)
	r.Summary.APIKey = mask(r.Summary.APIKey)
	return r
}

// YAML renders r as a config file.
func (r Root) YAML() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
