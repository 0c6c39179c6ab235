// Package keywords extracts normalized keyword tokens from transcript text:
// case-folded, alphabetic only, English stopwords removed, Snowball-stemmed.
package keywords

import (
	"sort"
	"strings"
	"unicode"

	"github.com/kljensen/snowball/english"
)

type Extractor struct {
	stop map[string]struct{}
}

// New returns an extractor using the English stopword list plus extra.
func New(extra ...string) *Extractor {
	stop := make(map[string]struct{}, len(englishStopwords)+len(extra))
	for w := range englishStopwords {
		stop[w] = struct{}{}
	}
	for _, w := range extra {
		stop[strings.ToLower(strings.TrimSpace(w))] = struct{}{}
	}
	return &Extractor{stop: stop}
}

func (e *Extractor) Keywords(text string) []string {
	words := tokenize(text)
	out := make([]string, 0, len(words))
	for _, w := range words {
		if _, ok := e.stop[w]; ok {
			continue
		}
		stem := english.Stem(w, false)
		if stem == "" {
			continue
		}
		out = append(out, stem)
	}
	return out
}

// tokenize lowercases text and splits it into purely alphabetic words.
// Tokens with digits or other symbols embedded are dropped whole.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return unicode.IsSpace(r) || (unicode.IsPunct(r) && r != '\'') || unicode.IsSymbol(r)
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, "'")
		// speaker's -> speaker
		f, _, _ = strings.Cut(f, "'")
		if f == "" || !isAlpha(f) {
			continue
		}
		out = append(out, f)
	}
	return out
}

func isAlpha(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

type Count struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// Top returns the n most frequent entries of freq, ties broken alphabetically.
// n <= 0 returns all entries.
func Top(freq map[string]int, n int) []Count {
	out := make([]Count, 0, len(freq))
	for w, c := range freq {
		out = append(out, Count{Word: w, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Word < out[j].Word
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
