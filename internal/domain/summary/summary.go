package summary

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/forPelevin/panelscribe/internal/ports"
	"github.com/forPelevin/panelscribe/internal/types"
)

var (
	speakerLabelRe = regexp.MustCompile(`Speaker \S+ \(\d+(?:\.\d+)?s - \d+(?:\.\d+)?s\):`)
	rangeRe        = regexp.MustCompile(`\(\d+(?:\.\d+)?s - \d+(?:\.\d+)?s\)`)
	spaceRe        = regexp.MustCompile(`\s+`)
)

// CleanTranscript strips "Speaker X (1.00s - 2.00s):" labels and standalone
// "(1.00s - 2.00s)" ranges from a rendered transcript. Spoken numbers such as
// "the 1990s" are kept.
func CleanTranscript(text string) string {
	text = speakerLabelRe.ReplaceAllString(text, " ")
	text = rangeRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(spaceRe.ReplaceAllString(text, " "))
}

type Options struct {
	// PerSpeaker also summarizes each speaker's concatenated text.
	PerSpeaker bool
	Log        logrus.FieldLogger
}

// Summarize returns the whole-transcript summary of transcript and, with
// PerSpeaker, fills Summary on each entry of speakers in place. Per-speaker
// failures are logged and leave that Summary empty.
func Summarize(ctx context.Context, s ports.Summarizer, transcript string, speakers []types.SpeakerSummary, opt Options) (string, error) {
	clean := CleanTranscript(transcript)
	if clean == "" {
		return "", nil
	}
	overall, err := s.Summarize(ctx, clean)
	if err != nil {
		return "", fmt.Errorf("summarize transcript: %w", err)
	}

	if opt.PerSpeaker {
		for i := range speakers {
			if strings.TrimSpace(speakers[i].ConcatenatedText) == "" {
				continue
			}
			sum, err := s.Summarize(ctx, speakers[i].ConcatenatedText)
			if err != nil {
				if ctx.Err() != nil {
					return "", ctx.Err()
				}
				if opt.Log != nil {
					opt.Log.WithField("speaker", speakers[i].SpeakerID).WithError(err).Warn("speaker summary failed")
				}
				continue
			}
			speakers[i].Summary = strings.TrimSpace(sum)
		}
	}
	return strings.TrimSpace(overall), nil
}
