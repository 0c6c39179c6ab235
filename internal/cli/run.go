package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/forPelevin/panelscribe/internal/config"
	"github.com/forPelevin/panelscribe/internal/pipeline"
)

const runTimeout = 3 * time.Hour

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <input>",
		Short: "Diarize, transcribe and report on a local audio or video file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args[0])
		},
	}

	f := cmd.Flags()
	f.String("out", "out", "Output directory")
	f.String("asr", "whispercpp", "ASR backend (whispercpp or openai)")
	f.String("whisper-model", ".cache/models/ggml-base.bin", "whisper.cpp model path")
	f.String("diarizer", "pyannote", "Diarization backend (pyannote or rttm)")
	f.String("rttm", "", "RTTM file to use with --diarizer=rttm")
	f.Int("num-speakers", 0, "Expected number of speakers (0 = detect)")
	f.Int("workers", 1, "Concurrent turn transcriptions")
	f.String("sentiment-url", "", "Sentiment classification service URL")
	f.Bool("summary", true, "Summarize the transcript via OpenRouter")
	f.Bool("per-speaker-summary", false, "Also summarize each speaker")
	f.Bool("captioned", false, "Render a copy of the input with speaker captions burned in")
	return cmd
}

func run(cmd *cobra.Command, input string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	absIn, err := filepath.Abs(input)
	if err != nil {
		return err
	}

	pc := pipelineConfig(cfg, absIn)
	pc.Log = log
	if err := pc.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	res, err := pipeline.Run(ctx, pc)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), res.RunDir)
	return nil
}

func pipelineConfig(cfg config.Root, input string) pipeline.Config {
	return pipeline.Config{
		InputMedia: input,
		OutDir:     cfg.Paths.Out,
		CacheDir:   cfg.Paths.Cache,
		DBPath:     cfg.Paths.DB,

		FFmpegPath:  cfg.Tools.FFmpeg,
		FFprobePath: cfg.Tools.FFprobe,
		PythonPath:  cfg.Tools.Python,

		ASRBackend:     cfg.ASR.Backend,
		WhisperBin:     cfg.ASR.WhisperBin,
		WhisperModel:   cfg.ASR.WhisperModel,
		WhisperThreads: cfg.ASR.Threads,
		OpenAIAPIKey:   cfg.ASR.OpenAIAPIKey,
		OpenAIModel:    cfg.ASR.OpenAIModel,
		OpenAIBaseURL:  cfg.ASR.OpenAIBaseURL,

		DiarizerBackend:  cfg.Diarization.Backend,
		DiarizationModel: cfg.Diarization.Model,
		HFToken:          cfg.Diarization.HFToken,
		NumSpeakers:      cfg.Diarization.NumSpeakers,
		RTTMPath:         cfg.Diarization.RTTM,

		Workers:         cfg.Align.Workers,
		TurnTimeout:     cfg.Align.TurnTimeout,
		LanguageTimeout: cfg.Align.LanguageTimeout,

		ExtraStopwords: cfg.Keywords.ExtraStopwords,

		SentimentURL:     cfg.Sentiment.URL,
		SentimentTimeout: cfg.Sentiment.Timeout,

		Summary:                cfg.Summary.Enabled,
		PerSpeakerSummary:      cfg.Summary.PerSpeaker,
		OpenRouterAPIKey:       cfg.Summary.APIKey,
		OpenRouterModel:        cfg.Summary.Model,
		OpenRouterBaseURL:      cfg.Summary.BaseURL,
		OpenRouterAllowedHosts: cfg.Summary.AllowedHosts,

		Captioned: cfg.Render.Captioned,
	}
}
