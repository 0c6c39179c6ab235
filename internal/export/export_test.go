package export

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/forPelevin/panelscribe/internal/types"
)

func sampleRecords() []types.TranscriptRecord {
	return []types.TranscriptRecord{
		{Index: 0, SpeakerID: "A", StartSec: 0, EndSec: 2, DurationSec: 2, Text: "hi"},
		{Index: 1, SpeakerID: "B", StartSec: 2, EndSec: 5, DurationSec: 3, Text: "hello, world"},
		{Index: 2, SpeakerID: "A", StartSec: 5, EndSec: 6.5, DurationSec: 1.5, Text: ""},
	}
}

func TestTranscriptText(t *testing.T) {
	want := "Speaker A (0.00s - 2.00s): hi\n" +
		"Speaker B (2.00s - 5.00s): hello, world\n" +
		"Speaker A (5.00s - 6.50s): \n"
	require.Equal(t, want, TranscriptText(sampleRecords()))
}

func TestWriteTable(t *testing.T) {
	dir := t.TempDir()
	name, err := WriteTable(dir, sampleRecords())
	require.NoError(t, err)
	require.Equal(t, TableFile, name)

	f, err := os.Open(filepath.Join(dir, name))
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Equal(t, [][]string{
		{"speaker", "duration", "document"},
		{"A", "2", "hi"},
		{"B", "3", "hello, world"},
		{"A", "1.5", ""},
	}, rows)
}

func TestWriteLanguage(t *testing.T) {
	dir := t.TempDir()
	_, err := WriteLanguage(dir, "en")
	require.NoError(t, err)
	b, err := os.ReadFile(filepath.Join(dir, LanguageFile))
	require.NoError(t, err)
	require.Equal(t, "Detected Language: en\n", string(b))

	_, err = WriteLanguage(dir, "")
	require.NoError(t, err)
	b, err = os.ReadFile(filepath.Join(dir, LanguageFile))
	require.NoError(t, err)
	require.Equal(t, "Detected Language: unknown\n", string(b))
}

func TestWriteSpeakerHTML(t *testing.T) {
	dir := t.TempDir()
	r := types.Report{
		Input:        "panel<1>.mp4",
		Run:          types.TranscriptRun{Language: "en"},
		SpeakerCount: 2,
		Summary:      "A panel about cats.",
		Speakers: []types.SpeakerSummary{
			{SpeakerID: "A", TotalDurationSec: 3.5, KeywordFrequency: map[string]int{"cat": 3, "dog": 1}, Summary: "likes cats"},
			{SpeakerID: "B", TotalDurationSec: 3, KeywordFrequency: map[string]int{}},
		},
		Sentiment: []types.SpeakerSentiment{
			{SpeakerID: "A", Counts: map[string]int{"positive": 2}},
		},
	}
	_, err := WriteSpeakerHTML(dir, r)
	require.NoError(t, err)

	b, err := os.ReadFile(filepath.Join(dir, SpeakerHTMLFile))
	require.NoError(t, err)
	html := string(b)
	require.Contains(t, html, "panel&lt;1&gt;.mp4")
	require.Contains(t, html, "<td>3.50</td>")
	require.Contains(t, html, "cat (3), dog (1)")
	require.Contains(t, html, "positive: 2")
	require.Contains(t, html, "likes cats")
	require.Contains(t, html, "Language: en")
	require.Equal(t, 2, strings.Count(html, "<tr>\n<td>"))
}

func TestManifestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	r := types.Report{RunID: "r1", Input: "in.mp4", SpeakerCount: 2, Run: types.TranscriptRun{ID: "r1", Records: sampleRecords()}}
	name, err := WriteManifest(dir, r)
	require.NoError(t, err)

	got, err := ReadManifest(filepath.Join(dir, name))
	require.NoError(t, err)
	require.Equal(t, r, got)
}

func TestWriteVTTAndSummary(t *testing.T) {
	dir := t.TempDir()
	_, err := WriteVTT(dir, sampleRecords())
	require.NoError(t, err)
	b, err := os.ReadFile(filepath.Join(dir, VTTFile))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(b), "WEBVTT\n"))
	require.Contains(t, string(b), "<v B>hello, world")

	_, err = WriteSummary(dir, "  short  ")
	require.NoError(t, err)
	b, err = os.ReadFile(filepath.Join(dir, SummaryFile))
	require.NoError(t, err)
	require.Equal(t, "short\n", string(b))
}
