// Package export writes run artifacts into a run output directory. Every
// writer returns the artifact's name relative to that directory.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/forPelevin/panelscribe/internal/domain/subtitles"
	"github.com/forPelevin/panelscribe/internal/types"
)

const (
	TranscriptFile  = "transcription.txt"
	TableFile       = "sample.csv"
	SpeakerHTMLFile = "speaker_summary.html"
	LanguageFile    = "detected_language.txt"
	VTTFile         = "transcript.vtt"
	SummaryFile     = "summary.txt"
	ManifestFile    = "manifest.json"
)

// TranscriptText renders records as "Speaker X (1.00s - 2.00s): text" lines.
func TranscriptText(records []types.TranscriptRecord) string {
	var b strings.Builder
	for _, r := range records {
		fmt.Fprintf(&b, "Speaker %s (%.2fs - %.2fs): %s\n", r.SpeakerID, r.StartSec, r.EndSec, r.Text)
	}
	return b.String()
}

func WriteTranscript(dir string, records []types.TranscriptRecord) (string, error) {
	return TranscriptFile, writeFile(dir, TranscriptFile, []byte(TranscriptText(records)))
}

// WriteTable writes one speaker,duration,document row per record.
func WriteTable(dir string, records []types.TranscriptRecord) (string, error) {
	f, err := os.Create(filepath.Join(dir, TableFile))
	if err != nil {
		return "", err
	}
	w := csv.NewWriter(f)
	_ = w.Write([]string{"speaker", "duration", "document"})
	for _, r := range records {
		_ = w.Write([]string{r.SpeakerID, strconv.FormatFloat(r.DurationSec, 'f', -1, 64), r.Text})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return "", fmt.Errorf("write %s: %w", TableFile, err)
	}
	return TableFile, f.Close()
}

func WriteLanguage(dir, lang string) (string, error) {
	if lang == "" {
		lang = "unknown"
	}
	return LanguageFile, writeFile(dir, LanguageFile, []byte("Detected Language: "+lang+"\n"))
}

func WriteVTT(dir string, records []types.TranscriptRecord) (string, error) {
	return VTTFile, writeFile(dir, VTTFile, []byte(subtitles.RenderVTT(records)))
}

func WriteSummary(dir, summary string) (string, error) {
	return SummaryFile, writeFile(dir, SummaryFile, []byte(strings.TrimSpace(summary)+"\n"))
}

func WriteManifest(dir string, r types.Report) (string, error) {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal manifest: %w", err)
	}
	return ManifestFile, writeFile(dir, ManifestFile, b)
}

// ReadManifest loads a report written by WriteManifest.
func ReadManifest(path string) (types.Report, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return types.Report{}, fmt.Errorf("read manifest: %w", err)
	}
	var r types.Report
	if err := json.Unmarshal(b, &r); err != nil {
		return types.Report{}, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	return r, nil
}

func writeFile(dir, name string, b []byte) error {
	return os.WriteFile(filepath.Join(dir, name), b, 0o644)
}
