package types

import "sort"

// DiarizationTurn is one contiguous span attributed to one speaker.
type DiarizationTurn struct {
	SpeakerID string  `json:"speaker"`
	StartSec  float64 `json:"start"`
	EndSec    float64 `json:"end"`
}

// SortTurns orders turns by start time, keeping input order on ties.
func SortTurns(turns []DiarizationTurn) {
	sort.SliceStable(turns, func(i, j int) bool {
		return turns[i].StartSec < turns[j].StartSec
	})
}

// Transcription is what the ASR returns for one audio artifact.
type Transcription struct {
	Text     string
	Language string
}

type TranscriptRecord struct {
	Index       int     `json:"index"`
	SpeakerID   string  `json:"speaker"`
	StartSec    float64 `json:"start_sec"`
	EndSec      float64 `json:"end_sec"`
	DurationSec float64 `json:"duration_sec"`
	Text        string  `json:"text"`
}

// TranscriptRun is the ordered, speaker-attributed transcript of one media file.
// Records follow diarization turn order.
type TranscriptRun struct {
	ID       string             `json:"id"`
	Records  []TranscriptRecord `json:"records"`
	Language string             `json:"language,omitempty"`
	Skipped  []SkippedTurn      `json:"skipped,omitempty"`
	Failures []TurnFailure      `json:"failures,omitempty"`
}

// SkippedTurn is a turn that produced no record because its span was unusable.
type SkippedTurn struct {
	Index  int             `json:"index"`
	Turn   DiarizationTurn `json:"turn"`
	Reason string          `json:"reason"`
}

// TurnFailure is a turn whose transcription failed; its record has empty text.
type TurnFailure struct {
	Index     int    `json:"index"`
	SpeakerID string `json:"speaker"`
	Err       string `json:"error"`
}

// TotalDuration sums DurationSec over all records.
func (r TranscriptRun) TotalDuration() float64 {
	var sum KahanSum
	for _, rec := range r.Records {
		sum.Add(rec.DurationSec)
	}
	return sum.Value()
}

// SpeakerCount returns the number of distinct speakers in the run.
func (r TranscriptRun) SpeakerCount() int {
	seen := make(map[string]struct{}, 8)
	for _, rec := range r.Records {
		seen[rec.SpeakerID] = struct{}{}
	}
	return len(seen)
}

type SpeakerSummary struct {
	SpeakerID        string         `json:"speaker"`
	TotalDurationSec float64        `json:"total_duration_sec"`
	ConcatenatedText string         `json:"text"`
	KeywordFrequency map[string]int `json:"keyword_frequency"`
	Summary          string         `json:"summary,omitempty"`
}

// SpeakerSentiment is the per-speaker count of sentiment labels.
type SpeakerSentiment struct {
	SpeakerID string         `json:"speaker"`
	Counts    map[string]int `json:"counts"`
}

// Report bundles everything a run produced. It is what gets persisted.
type Report struct {
	RunID        string             `json:"run_id"`
	Input        string             `json:"input"`
	MediaSec     float64            `json:"media_sec"`
	Run          TranscriptRun      `json:"run"`
	Speakers     []SpeakerSummary   `json:"speakers"`
	Sentiment    []SpeakerSentiment `json:"sentiment,omitempty"`
	Summary      string             `json:"summary,omitempty"`
	SpeakerCount int                `json:"speaker_count"`
	Artifacts    []string           `json:"artifacts,omitempty"`
}
