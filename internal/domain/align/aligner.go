// Package align turns diarization turns into speaker-attributed transcript
// records by cutting each turn out of the audio and handing it to an ASR.
package align

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/forPelevin/panelscribe/internal/ports"
	"github.com/forPelevin/panelscribe/internal/types"
)

const (
	DefaultTurnTimeout     = 2 * time.Minute
	DefaultLanguageTimeout = 5 * time.Minute
)

type Config struct {
	// Workers bounds concurrent turns. 1 (the default) is strictly sequential.
	Workers         int
	TurnTimeout     time.Duration
	LanguageTimeout time.Duration

	// SliceDir holds per-turn WAV slices. It is reset at the start of every
	// run. Empty means a fresh temp dir that is removed afterwards.
	SliceDir string

	// LanguageWav is the whole-audio file passed to DetectLanguage.
	// Empty skips detection.
	LanguageWav string

	Log logrus.FieldLogger
}

type Aligner struct {
	asr ports.ASR
	cfg Config
	log logrus.FieldLogger
}

func New(asr ports.ASR, cfg Config) *Aligner {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.TurnTimeout <= 0 {
		cfg.TurnTimeout = DefaultTurnTimeout
	}
	if cfg.LanguageTimeout <= 0 {
		cfg.LanguageTimeout = DefaultLanguageTimeout
	}
	log := cfg.Log
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Aligner{asr: asr, cfg: cfg, log: log}
}

type job struct {
	index int
	turn  types.DiarizationTurn
}

type result struct {
	rec     types.TranscriptRecord
	ok      bool
	failure *types.TurnFailure
}

// Align produces one record per accepted turn, in turn order. Per-turn ASR
// failures leave the record's text empty; only run-level problems (missing
// audio, cancellation, slice dir setup) are returned as errors.
func (a *Aligner) Align(ctx context.Context, turns []types.DiarizationTurn, audio ports.AudioSource) (types.TranscriptRun, error) {
	if a.asr == nil {
		return types.TranscriptRun{}, errors.New("align: asr is nil")
	}
	if audio == nil {
		return types.TranscriptRun{}, fmt.Errorf("%w: nil audio source", ErrAudioSource)
	}
	audioSec := audio.Duration()
	if math.IsNaN(audioSec) || audioSec < 0 {
		return types.TranscriptRun{}, fmt.Errorf("%w: bad duration %v", ErrAudioSource, audioSec)
	}
	if err := ctx.Err(); err != nil {
		return types.TranscriptRun{}, err
	}

	var run types.TranscriptRun
	if len(turns) == 0 {
		run.Language = a.detectLanguage(ctx)
		return run, nil
	}

	sliceDir, cleanup, err := a.prepareSliceDir()
	if err != nil {
		return types.TranscriptRun{}, err
	}
	defer cleanup()

	jobs := make([]job, 0, len(turns))
	for i, t := range turns {
		clamped, err := a.checkSpan(i, t, audioSec)
		if err != nil {
			var se *SpanError
			if errors.As(err, &se) {
				run.Skipped = append(run.Skipped, se.skipped())
			}
			a.log.WithFields(turnFields(i, t)).WithError(err).Warn("turn rejected")
			continue
		}
		jobs = append(jobs, job{index: i, turn: clamped})
	}

	results := make([]result, len(turns))
	if err := a.dispatch(ctx, jobs, func(j job) {
		results[j.index] = a.transcribeTurn(ctx, j, audio, sliceDir)
	}); err != nil {
		return types.TranscriptRun{}, err
	}

	run.Records = make([]types.TranscriptRecord, 0, len(jobs))
	for _, r := range results {
		if !r.ok {
			continue
		}
		run.Records = append(run.Records, r.rec)
		if r.failure != nil {
			run.Failures = append(run.Failures, *r.failure)
		}
	}

	run.Language = a.detectLanguage(ctx)
	return run, nil
}

// checkSpan clamps the turn into [0, audioSec] and rejects what is left empty.
func (a *Aligner) checkSpan(index int, t types.DiarizationTurn, audioSec float64) (types.DiarizationTurn, error) {
	if math.IsNaN(t.StartSec) || math.IsNaN(t.EndSec) {
		return t, &SpanError{Index: index, Turn: t, Reason: "NaN bound"}
	}
	out := t
	if out.StartSec < 0 {
		a.log.WithFields(turnFields(index, t)).Warn("start before audio, clamped to 0")
		out.StartSec = 0
	}
	if out.EndSec > audioSec {
		a.log.WithFields(turnFields(index, t)).WithField("audio_sec", audioSec).Warn("end past audio, clamped")
		out.EndSec = audioSec
	}
	if out.EndSec <= out.StartSec {
		return t, &SpanError{
			Index:  index,
			Turn:   t,
			Reason: fmt.Sprintf("empty span after clamping [%.3f, %.3f]", out.StartSec, out.EndSec),
		}
	}
	return out, nil
}

func (a *Aligner) dispatch(ctx context.Context, jobs []job, fn func(job)) error {
	workers := a.cfg.Workers
	if workers > len(jobs) {
		workers = len(jobs)
	}
	ch := make(chan job)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range ch {
				fn(j)
			}
		}()
	}

	var err error
loop:
	for _, j := range jobs {
		select {
		case <-ctx.Done():
			err = ctx.Err()
			break loop
		case ch <- j:
		}
	}
	close(ch)
	wg.Wait()

	if err == nil {
		err = ctx.Err()
	}
	return err
}

func (a *Aligner) transcribeTurn(ctx context.Context, j job, audio ports.AudioSource, sliceDir string) result {
	t := j.turn
	res := result{
		ok: true,
		rec: types.TranscriptRecord{
			Index:       j.index,
			SpeakerID:   t.SpeakerID,
			StartSec:    t.StartSec,
			EndSec:      t.EndSec,
			DurationSec: t.EndSec - t.StartSec,
		},
	}

	text, err := a.transcribeSlice(ctx, j, audio, sliceDir)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrTranscription, err)
		a.log.WithFields(turnFields(j.index, t)).WithError(err).Warn("turn transcription failed")
		res.failure = &types.TurnFailure{Index: j.index, SpeakerID: t.SpeakerID, Err: err.Error()}
		return res
	}
	res.rec.Text = text
	return res
}

func (a *Aligner) transcribeSlice(ctx context.Context, j job, audio ports.AudioSource, sliceDir string) (string, error) {
	slice := filepath.Join(sliceDir, fmt.Sprintf("turn-%d-%s.wav", j.index, uuid.NewString()))
	defer removeSlice(slice)

	if err := audio.WriteSlice(j.turn.StartSec, j.turn.EndSec, slice); err != nil {
		return "", fmt.Errorf("write slice: %w", err)
	}

	tctx, cancel := context.WithTimeout(ctx, a.cfg.TurnTimeout)
	defer cancel()
	tr, err := a.asr.Transcribe(tctx, slice)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(tr.Text), nil
}

func (a *Aligner) detectLanguage(ctx context.Context) string {
	if a.cfg.LanguageWav == "" {
		return ""
	}
	lctx, cancel := context.WithTimeout(ctx, a.cfg.LanguageTimeout)
	defer cancel()
	lang, err := a.asr.DetectLanguage(lctx, a.cfg.LanguageWav)
	if err != nil {
		a.log.WithError(fmt.Errorf("%w: %w", ErrLanguageDetection, err)).Warn("language detection failed")
		return ""
	}
	return strings.TrimSpace(lang)
}

func (a *Aligner) prepareSliceDir() (string, func(), error) {
	if a.cfg.SliceDir == "" {
		dir, err := os.MkdirTemp("", "panelscribe-slices-*")
		if err != nil {
			return "", nil, fmt.Errorf("create slice dir: %w", err)
		}
		return dir, func() { _ = os.RemoveAll(dir) }, nil
	}
	if err := os.RemoveAll(a.cfg.SliceDir); err != nil {
		return "", nil, fmt.Errorf("reset slice dir: %w", err)
	}
	if err := os.MkdirAll(a.cfg.SliceDir, 0o755); err != nil {
		return "", nil, fmt.Errorf("create slice dir: %w", err)
	}
	return a.cfg.SliceDir, func() {}, nil
}

// removeSlice deletes the slice and anything an adapter wrote beside it
// under the same base name (e.g. whisper's turn-3-<id>.json).
func removeSlice(path string) {
	_ = os.Remove(path)
	base := strings.TrimSuffix(path, filepath.Ext(path))
	side, _ := filepath.Glob(base + ".*")
	for _, p := range side {
		_ = os.Remove(p)
	}
}

func turnFields(index int, t types.DiarizationTurn) logrus.Fields {
	return logrus.Fields{
		"turn":    index,
		"speaker": t.SpeakerID,
		"start":   t.StartSec,
		"end":     t.EndSec,
	}
}
