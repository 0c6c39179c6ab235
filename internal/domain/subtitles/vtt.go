package subtitles

import (
	"fmt"
	"strings"
	"time"

	"github.com/forPelevin/panelscribe/internal/types"
)

// RenderVTT renders records as WebVTT cues with <v speaker> voice spans.
func RenderVTT(records []types.TranscriptRecord) string {
	var b strings.Builder
	b.WriteString("WEBVTT\n")
	for _, c := range cues(records) {
		b.WriteString("\n")
		b.WriteString(vttTime(c.Start))
		b.WriteString(" --> ")
		b.WriteString(vttTime(c.End))
		b.WriteString("\n")
		fmt.Fprintf(&b, "<v %s>%s\n", sanitizeVTT(c.Speaker), sanitizeVTT(c.Text))
	}
	return b.String()
}

func vttTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hs := int(d / time.Hour)
	d -= time.Duration(hs) * time.Hour
	ms := int(d / time.Minute)
	d -= time.Duration(ms) * time.Minute
	s := int(d / time.Second)
	d -= time.Duration(s) * time.Second
	return fmt.Sprintf("%02d:%02d:%02d.%03d", hs, ms, s, int(d/time.Millisecond))
}

var vttEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", "\n", " ")

func sanitizeVTT(s string) string { return strings.TrimSpace(vttEscaper.Replace(s)) }
