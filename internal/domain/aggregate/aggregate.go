package aggregate

import (
	"strings"

	"github.com/forPelevin/panelscribe/internal/ports"
	"github.com/forPelevin/panelscribe/internal/types"
)

// Aggregate groups records by speaker, in order of each speaker's first
// appearance. It does not modify run and returns nil for an empty run.
func Aggregate(run types.TranscriptRun, kw ports.KeywordExtractor) []types.SpeakerSummary {
	if len(run.Records) == 0 {
		return nil
	}

	type group struct {
		dur   types.KahanSum
		texts []string
	}
	order := make([]string, 0, 4)
	groups := make(map[string]*group, 4)

	for _, rec := range run.Records {
		g, ok := groups[rec.SpeakerID]
		if !ok {
			g = &group{}
			groups[rec.SpeakerID] = g
			order = append(order, rec.SpeakerID)
		}
		g.dur.Add(rec.DurationSec)
		if t := strings.TrimSpace(rec.Text); t != "" {
			g.texts = append(g.texts, t)
		}
	}

	out := make([]types.SpeakerSummary, 0, len(order))
	for _, id := range order {
		g := groups[id]
		text := strings.Join(g.texts, " ")
		out = append(out, types.SpeakerSummary{
			SpeakerID:        id,
			TotalDurationSec: g.dur.Value(),
			ConcatenatedText: text,
			KeywordFrequency: Frequency(kw, text),
		})
	}
	return out
}

// Frequency counts the keywords kw finds in text. A nil extractor yields an
// empty map.
func Frequency(kw ports.KeywordExtractor, text string) map[string]int {
	freq := make(map[string]int)
	if kw == nil || text == "" {
		return freq
	}
	for _, k := range kw.Keywords(text) {
		freq[k]++
	}
	return freq
}
