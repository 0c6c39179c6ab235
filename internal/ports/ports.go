package ports

import (
	"context"
	"time"

	"github.com/forPelevin/panelscribe/internal/types"
)

type AudioTool interface {
	ExtractAudioMono16k(ctx context.Context, inMedia, outWav string) error
	ProbeDuration(ctx context.Context, inMedia string) (time.Duration, error)
	RenderCaptioned(ctx context.Context, inMedia, burnASS, outMP4 string) error
}

// AudioSource is decoded audio that can be cut into standalone WAV slices.
// WriteSlice must be safe for concurrent use with distinct paths.
type AudioSource interface {
	Duration() float64
	WriteSlice(startSec, endSec float64, outWav string) error
}

type Diarizer interface {
	Diarize(ctx context.Context, wavPath string) ([]types.DiarizationTurn, error)
}

type ASR interface {
	Transcribe(ctx context.Context, wavPath string) (types.Transcription, error)
	DetectLanguage(ctx context.Context, wavPath string) (string, error)
}

// KeywordExtractor turns free text into normalized keyword tokens (lemmas).
type KeywordExtractor interface {
	Keywords(text string) []string
}

type SentimentClassifier interface {
	Classify(ctx context.Context, text string) (string, error)
}

type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

type RunStore interface {
	SaveReport(ctx context.Context, r types.Report) error
}
