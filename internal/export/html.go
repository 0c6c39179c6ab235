package export

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/forPelevin/panelscribe/internal/domain/keywords"
	"github.com/forPelevin/panelscribe/internal/types"
)

const topKeywords = 15

var speakerPage = template.Must(template.New("speakers").Funcs(template.FuncMap{
	"secs": func(v float64) string { return fmt.Sprintf("%.2f", v) },
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Speaker summary: {{.Input}}</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #ccc; padding: 6px 10px; text-align: left; vertical-align: top; }
th { background: #f4f4f4; }
</style>
</head>
<body>
<h1>Speaker summary</h1>
<p>Input: {{.Input}}<br>Language: {{if .Language}}{{.Language}}{{else}}unknown{{end}}<br>Speakers: {{.SpeakerCount}}</p>
{{if .Summary}}<h2>Summary</h2>
<p>{{.Summary}}</p>
{{end}}<table>
<tr><th>Speaker</th><th>Duration (s)</th><th>Keywords</th><th>Sentiment</th><th>Summary</th></tr>
{{range .Rows}}<tr>
<td>{{.Speaker}}</td>
<td>{{secs .Duration}}</td>
<td>{{range $i, $k := .Keywords}}{{if $i}}, {{end}}{{$k.Word}} ({{$k.Count}}){{end}}</td>
<td>{{range $i, $s := .Sentiment}}{{if $i}}, {{end}}{{$s.Word}}: {{$s.Count}}{{end}}</td>
<td>{{.Summary}}</td>
</tr>
{{end}}</table>
</body>
</html>
`))

type pageRow struct {
	Speaker   string
	Duration  float64
	Keywords  []keywords.Count
	Sentiment []keywords.Count
	Summary   string
}

type page struct {
	Input        string
	Language     string
	SpeakerCount int
	Summary      string
	Rows         []pageRow
}

// WriteSpeakerHTML renders the per-speaker table of r.
func WriteSpeakerHTML(dir string, r types.Report) (string, error) {
	sent := make(map[string]map[string]int, len(r.Sentiment))
	for _, s := range r.Sentiment {
		sent[s.SpeakerID] = s.Counts
	}
	p := page{
		Input:        r.Input,
		Language:     r.Run.Language,
		SpeakerCount: r.SpeakerCount,
		Summary:      r.Summary,
	}
	for _, s := range r.Speakers {
		p.Rows = append(p.Rows, pageRow{
			Speaker:   s.SpeakerID,
			Duration:  s.TotalDurationSec,
			Keywords:  keywords.Top(s.KeywordFrequency, topKeywords),
			Sentiment: keywords.Top(sent[s.SpeakerID], 0),
			Summary:   s.Summary,
		})
	}

	var buf bytes.Buffer
	if err := speakerPage.Execute(&buf, p); err != nil {
		return "", fmt.Errorf("render %s: %w", SpeakerHTMLFile, err)
	}
	return SpeakerHTMLFile, writeFile(dir, SpeakerHTMLFile, buf.Bytes())
}
