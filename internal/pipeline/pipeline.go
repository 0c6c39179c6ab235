package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/forPelevin/panelscribe/internal/domain/keywords"
	"github.com/forPelevin/panelscribe/internal/export"
	"github.com/forPelevin/panelscribe/internal/ports"
	"github.com/forPelevin/panelscribe/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/panelscribe/internal/ports/adapters/openaiasr"
	"github.com/forPelevin/panelscribe/internal/ports/adapters/openrouter"
	"github.com/forPelevin/panelscribe/internal/ports/adapters/pyannote"
	"github.com/forPelevin/panelscribe/internal/ports/adapters/rttm"
	"github.com/forPelevin/panelscribe/internal/ports/adapters/sentimentapi"
	"github.com/forPelevin/panelscribe/internal/ports/adapters/wavaudio"
	"github.com/forPelevin/panelscribe/internal/ports/adapters/whispercpp"
	"github.com/forPelevin/panelscribe/internal/store"
	"github.com/forPelevin/panelscribe/internal/types"
	"github.com/forPelevin/panelscribe/internal/usecase"
)

const (
	ASRWhisperCpp = "whispercpp"
	ASROpenAI     = "openai"

	DiarizerPyannote = "pyannote"
	DiarizerRTTM     = "rttm"
)

type Config struct {
	InputMedia string
	OutDir     string
	Log        logrus.FieldLogger

	// CacheDir is the base directory for intermediate audio. Each run works
	// in its own subdirectory, removed when the run ends.
	// If empty, defaults to ".cache".
	CacheDir string
	// DBPath is the SQLite run store. Empty disables persistence.
	DBPath string

	FFmpegPath  string
	FFprobePath string
	PythonPath  string

	ASRBackend     string
	WhisperBin     string
	WhisperModel   string
	WhisperThreads int
	OpenAIAPIKey   string
	OpenAIModel    string
	OpenAIBaseURL  string

	DiarizerBackend  string
	DiarizationModel string
	HFToken          string
	NumSpeakers      int
	RTTMPath         string

	Workers         int
	TurnTimeout     time.Duration
	LanguageTimeout time.Duration

	ExtraStopwords []string

	SentimentURL     string
	SentimentTimeout time.Duration

	Summary                bool
	PerSpeakerSummary      bool
	OpenRouterAPIKey       string
	OpenRouterModel        string
	OpenRouterBaseURL      string
	OpenRouterAllowedHosts []string

	Captioned bool
}

func (c Config) Validate() error {
	if c.InputMedia == "" {
		return errors.New("input is empty")
	}
	if _, err := os.Stat(c.InputMedia); err != nil {
		return fmt.Errorf("stat input: %w", err)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be >= 1")
	}

	switch c.ASRBackend {
	case ASRWhisperCpp:
		if c.WhisperModel == "" {
			return fmt.Errorf("whisper model path is required")
		}
	case ASROpenAI:
		if c.OpenAIAPIKey == "" {
			return errors.New("OPENAI_API_KEY is required for the openai asr backend")
		}
	default:
		return fmt.Errorf("unknown asr backend %q", c.ASRBackend)
	}

	switch c.DiarizerBackend {
	case DiarizerPyannote:
		if c.PythonPath == "" {
			return errors.New("python path is required for the pyannote diarizer")
		}
	case DiarizerRTTM:
		if c.RTTMPath == "" {
			return errors.New("rttm path is required for the rttm diarizer")
		}
		if _, err := os.Stat(c.RTTMPath); err != nil {
			return fmt.Errorf("stat rttm: %w", err)
		}
	default:
		return fmt.Errorf("unknown diarizer %q", c.DiarizerBackend)
	}

	if !c.Summary {
		return nil
	}
	if c.OpenRouterAPIKey == "" {
		return errors.New("OPENROUTER_API_KEY is required for summaries (set it in .env or pass --summary=false)")
	}
	return openrouter.ValidateBaseURL(
		c.OpenRouterBaseURL,
		c.OpenRouterAllowedHosts,
	)
}

type Result struct {
	RunDir string
	Report types.Report
}

func Run(ctx context.Context, cfg Config) (Result, error) {
	log := cfg.Log
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}

	deps := usecase.Deps{
		Audio:     ffmpeg.New(cfg.FFmpegPath, cfg.FFprobePath),
		Diarizer:  newDiarizer(cfg),
		ASR:       newASR(cfg),
		Keywords:  keywords.New(cfg.ExtraStopwords...),
		OpenAudio: openWAV,
	}
	if cfg.SentimentURL != "" {
		deps.Sentiment = sentimentapi.New(cfg.SentimentURL, cfg.SentimentTimeout)
	}
	if cfg.Summary {
		deps.Summarizer = openrouter.New(cfg.OpenRouterAPIKey, cfg.OpenRouterModel, cfg.OpenRouterBaseURL)
	}
	uc := usecase.New(deps)

	runID := uuid.NewString()
	log = log.WithField("run", runID)

	baseCache := cfg.CacheDir
	if baseCache == "" {
		baseCache = ".cache"
	}
	workDir := filepath.Join(baseCache, "runs", runID)
	log.Debug("preparing workspace")
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return Result{}, err
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			log.WithError(err).Warn("cleanup workspace")
		}
	}()
	log.WithField("dir", workDir).Debug("workspace ready")

	outDir := cfg.OutDir
	if outDir == "" {
		outDir = "out"
	}
	runOutDir := buildRunOutDir(outDir, cfg.InputMedia, time.Now().UTC())
	if err := os.MkdirAll(runOutDir, 0o755); err != nil {
		return Result{}, err
	}
	log.WithField("dir", runOutDir).Info("output run dir")

	res, err := uc.Run(ctx, usecase.Input{
		RunID:             runID,
		InputMedia:        cfg.InputMedia,
		CacheDir:          workDir,
		OutDir:            runOutDir,
		Workers:           cfg.Workers,
		TurnTimeout:       cfg.TurnTimeout,
		LanguageTimeout:   cfg.LanguageTimeout,
		PerSpeakerSummary: cfg.PerSpeakerSummary,
		Captioned:         cfg.Captioned,
		Log:               log,
	})
	if err != nil {
		return Result{}, err
	}
	rep := res.Report

	rep.Artifacts = append(rep.Artifacts, export.ManifestFile)
	if _, err := export.WriteManifest(runOutDir, rep); err != nil {
		return Result{}, err
	}
	log.WithField("records", len(rep.Run.Records)).Info("manifest written")

	if cfg.DBPath != "" {
		if err := saveReport(ctx, cfg.DBPath, rep); err != nil {
			return Result{}, err
		}
		log.WithField("db", cfg.DBPath).Debug("run stored")
	}
	return Result{RunDir: runOutDir, Report: rep}, nil
}

func newASR(cfg Config) ports.ASR {
	if cfg.ASRBackend == ASROpenAI {
		return openaiasr.New(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL)
	}
	return whispercpp.New(cfg.WhisperBin, cfg.WhisperModel, cfg.WhisperThreads)
}

func newDiarizer(cfg Config) ports.Diarizer {
	if cfg.DiarizerBackend == DiarizerRTTM {
		return rttm.File{Path: cfg.RTTMPath}
	}
	return pyannote.New(cfg.PythonPath, cfg.DiarizationModel, cfg.HFToken, cfg.NumSpeakers)
}

func openWAV(path string) (ports.AudioSource, error) {
	s, err := wavaudio.Open(path)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func saveReport(ctx context.Context, dbPath string, rep types.Report) error {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return err
	}
	s, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer s.Close()
	if err := s.SaveReport(ctx, rep); err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}

func buildRunOutDir(outRoot, inputMedia string, now time.Time) string {
	name := strings.TrimSuffix(filepath.Base(inputMedia), filepath.Ext(inputMedia))
	name = normalizePathSegment(name)
	if name == "" {
		name = "input"
	}
	ts := now.UTC().Format("20060102-150405Z")
	runSeed := fmt.Sprintf("%s|%d", inputMedia, now.UTC().UnixNano())
	suffix := hash(runSeed)[:6]
	return filepath.Join(outRoot, fmt.Sprintf("%s-%s-%s", name, ts, suffix))
}

func normalizePathSegment(s string) string {
	var b strings.Builder
	prevDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}

// ensure adapters implement ports
var (
	_ ports.AudioTool           = (*ffmpeg.Adapter)(nil)
	_ ports.AudioSource         = (*wavaudio.Source)(nil)
	_ ports.ASR                 = (*whispercpp.Adapter)(nil)
	_ ports.ASR                 = (*openaiasr.Adapter)(nil)
	_ ports.Diarizer            = (*pyannote.Adapter)(nil)
	_ ports.Diarizer            = rttm.File{}
	_ ports.SentimentClassifier = (*sentimentapi.Client)(nil)
	_ ports.Summarizer          = (*openrouter.Adapter)(nil)
	_ ports.KeywordExtractor    = (*keywords.Extractor)(nil)
	_ ports.RunStore            = (*store.Store)(nil)
)
