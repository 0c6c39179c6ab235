package align

import (
	"errors"
	"fmt"

	"github.com/forPelevin/panelscribe/internal/types"
)

var (
	ErrInvalidSpan       = errors.New("invalid span")
	ErrTranscription     = errors.New("transcription failed")
	ErrDiarization       = errors.New("diarization failed")
	ErrLanguageDetection = errors.New("language detection failed")
	ErrAudioSource       = errors.New("audio source unavailable")
)

// SpanError describes a turn rejected before transcription.
type SpanError struct {
	Index  int
	Turn   types.DiarizationTurn
	Reason string
}

func (e *SpanError) Error() string {
	return fmt.Sprintf("turn %d (%s %.3f-%.3f): %s", e.Index, e.Turn.SpeakerID, e.Turn.StartSec, e.Turn.EndSec, e.Reason)
}

func (e *SpanError) Is(target error) bool { return target == ErrInvalidSpan }

func (e *SpanError) skipped() types.SkippedTurn {
	return types.SkippedTurn{Index: e.Index, Turn: e.Turn, Reason: e.Reason}
}
