package usecase

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/forPelevin/panelscribe/internal/domain/aggregate"
	"github.com/forPelevin/panelscribe/internal/domain/align"
	"github.com/forPelevin/panelscribe/internal/domain/sentiment"
	"github.com/forPelevin/panelscribe/internal/domain/subtitles"
	"github.com/forPelevin/panelscribe/internal/domain/summary"
	"github.com/forPelevin/panelscribe/internal/export"
	"github.com/forPelevin/panelscribe/internal/ports"
	"github.com/forPelevin/panelscribe/internal/types"
)

type Deps struct {
	Audio    ports.AudioTool
	Diarizer ports.Diarizer
	ASR      ports.ASR
	Keywords ports.KeywordExtractor
	// OpenAudio decodes the extracted WAV.
	OpenAudio func(path string) (ports.AudioSource, error)

	// Optional.
	Sentiment  ports.SentimentClassifier
	Summarizer ports.Summarizer
}

type Usecase struct{ d Deps }

func New(d Deps) Usecase { return Usecase{d: d} }

type Input struct {
	RunID      string
	InputMedia string
	CacheDir   string
	OutDir     string

	Workers         int
	TurnTimeout     time.Duration
	LanguageTimeout time.Duration

	PerSpeakerSummary bool
	Captioned         bool

	Log logrus.FieldLogger
}

type Result struct {
	Report types.Report
}

const (
	audioDirName    = "processed_audio"
	audioFileName   = "processed_audio.wav"
	captionsASSName = "captions.ass"
	captionedName   = "captioned.mp4"
)

func (u Usecase) Run(ctx context.Context, in Input) (Result, error) {
	log := in.Log
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	log = log.WithField("run", in.RunID)

	// audio
	audioDir := filepath.Join(in.CacheDir, audioDirName)
	if err := os.RemoveAll(audioDir); err != nil {
		return Result{}, err
	}
	if err := os.MkdirAll(audioDir, 0o755); err != nil {
		return Result{}, err
	}
	wav := filepath.Join(audioDir, audioFileName)
	log.Info("extracting audio")
	if err := u.d.Audio.ExtractAudioMono16k(ctx, in.InputMedia, wav); err != nil {
		return Result{}, fmt.Errorf("%w: %w", align.ErrAudioSource, err)
	}
	audio, err := u.d.OpenAudio(wav)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", align.ErrAudioSource, err)
	}

	mediaSec := audio.Duration()
	if d, err := u.d.Audio.ProbeDuration(ctx, in.InputMedia); err != nil {
		log.WithError(err).Warn("probe media duration failed, using audio length")
	} else if d > 0 {
		mediaSec = d.Seconds()
	}

	// diarize
	log.Info("diarizing")
	turns, err := u.d.Diarizer.Diarize(ctx, wav)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", align.ErrDiarization, err)
	}
	types.SortTurns(turns)
	log.WithField("turns", len(turns)).Info("diarization done")

	// transcribe
	aligner := align.New(u.d.ASR, align.Config{
		Workers:         in.Workers,
		TurnTimeout:     in.TurnTimeout,
		LanguageTimeout: in.LanguageTimeout,
		SliceDir:        filepath.Join(in.CacheDir, "slices"),
		LanguageWav:     wav,
		Log:             log,
	})
	run, err := aligner.Align(ctx, turns, audio)
	if err != nil {
		return Result{}, err
	}
	run.ID = in.RunID
	log.WithFields(logrus.Fields{
		"records":  len(run.Records),
		"skipped":  len(run.Skipped),
		"failures": len(run.Failures),
		"speakers": run.SpeakerCount(),
		"language": run.Language,
	}).Info("transcription done")

	rep := types.Report{
		RunID:        in.RunID,
		Input:        in.InputMedia,
		MediaSec:     mediaSec,
		Run:          run,
		Speakers:     aggregate.Aggregate(run, u.d.Keywords),
		SpeakerCount: run.SpeakerCount(),
	}

	if u.d.Sentiment != nil {
		rep.Sentiment, err = sentiment.Distribution(ctx, run, u.d.Sentiment, log)
		if err != nil {
			return Result{}, err
		}
	}

	transcript := export.TranscriptText(run.Records)
	if u.d.Summarizer != nil {
		rep.Summary, err = summary.Summarize(ctx, u.d.Summarizer, transcript, rep.Speakers, summary.Options{
			PerSpeaker: in.PerSpeakerSummary,
			Log:        log,
		})
		if err != nil {
			if ctx.Err() != nil {
				return Result{}, ctx.Err()
			}
			log.WithError(err).Warn("summarization failed")
		}
	}

	// exports
	writers := []func() (string, error){
		func() (string, error) { return export.WriteTranscript(in.OutDir, run.Records) },
		func() (string, error) { return export.WriteTable(in.OutDir, run.Records) },
		func() (string, error) { return export.WriteLanguage(in.OutDir, run.Language) },
		func() (string, error) { return export.WriteVTT(in.OutDir, run.Records) },
	}
	if rep.Summary != "" {
		writers = append(writers, func() (string, error) { return export.WriteSummary(in.OutDir, rep.Summary) })
	}
	for _, w := range writers {
		name, err := w()
		if err != nil {
			return Result{}, fmt.Errorf("export: %w", err)
		}
		rep.Artifacts = append(rep.Artifacts, name)
	}

	if in.Captioned {
		assPath := filepath.Join(in.OutDir, captionsASSName)
		if err := writeFile(assPath, []byte(subtitles.RenderSpeakerASS(run.Records))); err != nil {
			return Result{}, err
		}
		log.Info("rendering captioned video")
		if err := u.d.Audio.RenderCaptioned(ctx, in.InputMedia, assPath, filepath.Join(in.OutDir, captionedName)); err != nil {
			return Result{}, err
		}
		rep.Artifacts = append(rep.Artifacts, captionsASSName, captionedName)
	}

	// Written last so the page lists everything above.
	name, err := export.WriteSpeakerHTML(in.OutDir, rep)
	if err != nil {
		return Result{}, fmt.Errorf("export: %w", err)
	}
	rep.Artifacts = append(rep.Artifacts, name)

	return Result{Report: rep}, nil
}

func writeFile(path string, b []byte) error {
	return os.WriteFile(path, b, 0o644)
}
