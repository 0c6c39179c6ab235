package sentiment

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/forPelevin/panelscribe/internal/ports"
	"github.com/forPelevin/panelscribe/internal/types"
)

const (
	Neutral = "neutral"
	// Unknown is counted when the classifier fails for a record.
	Unknown = "unknown"
)

// Label classifies one record's text. Empty text is neutral without asking
// the classifier.
func Label(ctx context.Context, c ports.SentimentClassifier, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Neutral, nil
	}
	label, err := c.Classify(ctx, text)
	if err != nil {
		return Unknown, err
	}
	label = strings.ToLower(strings.TrimSpace(label))
	if label == "" {
		return Unknown, nil
	}
	return label, nil
}

// Distribution counts labels per speaker, speakers ordered by first
// appearance. Classifier errors are logged and counted as Unknown; a
// canceled context stops the walk and is returned.
func Distribution(ctx context.Context, run types.TranscriptRun, c ports.SentimentClassifier, log logrus.FieldLogger) ([]types.SpeakerSentiment, error) {
	if len(run.Records) == 0 || c == nil {
		return nil, nil
	}
	idx := make(map[string]int, 4)
	var out []types.SpeakerSentiment
	for _, rec := range run.Records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		label, err := Label(ctx, c, rec.Text)
		if err != nil && log != nil {
			log.WithFields(logrus.Fields{"turn": rec.Index, "speaker": rec.SpeakerID}).WithError(err).Warn("sentiment classification failed")
		}

		i, ok := idx[rec.SpeakerID]
		if !ok {
			i = len(out)
			idx[rec.SpeakerID] = i
			out = append(out, types.SpeakerSentiment{SpeakerID: rec.SpeakerID, Counts: map[string]int{}})
		}
		out[i].Counts[label]++
	}
	return out, nil
}
