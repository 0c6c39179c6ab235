package subtitles

import (
	"fmt"
	"strings"
	"time"

	"github.com/forPelevin/panelscribe/internal/types"
)

// RenderSpeakerASS renders full-timeline subtitles, one speaker-prefixed
// event per chunk of record text. Records with empty text are skipped.
func RenderSpeakerASS(records []types.TranscriptRecord) string {
	var b strings.Builder
	b.WriteString(assHeader())
	b.WriteString("\n[Events]\n")
	b.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")
	for _, c := range cues(records) {
		b.WriteString("Dialogue: 0,")
		b.WriteString(assTime(c.Start))
		b.WriteString(",")
		b.WriteString(assTime(c.End))
		b.WriteString(",Panel,")
		b.WriteString(sanitizeASS(c.Speaker))
		b.WriteString(",0,0,0,,")
		b.WriteString("{\\b1}" + sanitizeASS(c.Speaker) + ":{\\b0} " + sanitizeASS(c.Text))
		b.WriteString("\n")
	}
	return b.String()
}

type cue struct {
	Start   time.Duration
	End     time.Duration
	Speaker string
	Text    string
}

// Budgets keep a single cue readable on a 16:9 frame.
const (
	charBudget = 84
	wordBudget = 16
)

// cues splits each record into chunks and spreads the record's span across
// them in proportion to chunk length.
func cues(records []types.TranscriptRecord) []cue {
	var out []cue
	for _, r := range records {
		words := strings.Fields(r.Text)
		if len(words) == 0 || r.EndSec <= r.StartSec {
			continue
		}
		chunks := packWords(words)
		total := 0
		for _, c := range chunks {
			total += len([]rune(c))
		}
		start := dur(r.StartSec)
		span := dur(r.EndSec) - start
		acc := 0
		for i, c := range chunks {
			cs := start + time.Duration(float64(span)*float64(acc)/float64(total))
			acc += len([]rune(c))
			ce := start + time.Duration(float64(span)*float64(acc)/float64(total))
			if i == len(chunks)-1 {
				ce = dur(r.EndSec)
			}
			out = append(out, cue{Start: cs, End: ce, Speaker: r.SpeakerID, Text: c})
		}
	}
	return out
}

func packWords(words []string) []string {
	var out []string
	var cur []string
	curLen := 0
	for _, w := range words {
		wl := len([]rune(w))
		nextLen := curLen
		if curLen > 0 {
			nextLen++
		}
		nextLen += wl
		if len(cur) > 0 && (len(cur) >= wordBudget || nextLen > charBudget) {
			out = append(out, strings.Join(cur, " "))
			cur = nil
			curLen = 0
		}
		cur = append(cur, w)
		if curLen > 0 {
			curLen++
		}
		curLen += wl
	}
	if len(cur) > 0 {
		out = append(out, strings.Join(cur, " "))
	}
	return out
}

func assHeader() string {
	return strings.TrimSpace(`
[Script Info]
ScriptType: v4.00+
PlayResX: 1920
PlayResY: 1080
ScaledBorderAndShadow: yes

[V4+ Styles]
Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding
Style: Panel, Inter, 52, &H00FFFFFF, &H00FFD200, &H00000000, &H64000000, 0,0,0,0,100,100,0,0,1,3,1,2, 60,60,50,1
`)
}

func assTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hs := int(d / time.Hour)
	d -= time.Duration(hs) * time.Hour
	ms := int(d / time.Minute)
	d -= time.Duration(ms) * time.Minute
	s := int(d / time.Second)
	d -= time.Duration(s) * time.Second
	cs := int(d / (10 * time.Millisecond))
	return fmt.Sprintf("%d:%02d:%02d.%02d", hs, ms, s, cs)
}

func sanitizeASS(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "{", "(")
	s = strings.ReplaceAll(s, "}", ")")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}

func dur(sec float64) time.Duration { return time.Duration(sec * float64(time.Second)) }
