// Package rttm reads NIST RTTM diarization output.
package rttm

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/forPelevin/panelscribe/internal/types"
)

// Parse reads SPEAKER lines into turns sorted by start time. Other record
// types, comments and blank lines are ignored.
//
//	SPEAKER <file> <chan> <start> <dur> <NA> <NA> <speaker> <NA> <NA>
func Parse(r io.Reader) ([]types.DiarizationTurn, error) {
	var out []types.DiarizationTurn
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		f := strings.Fields(sc.Text())
		if len(f) == 0 || strings.HasPrefix(f[0], "#") || f[0] != "SPEAKER" {
			continue
		}
		if len(f) < 8 {
			return nil, fmt.Errorf("rttm line %d: want at least 8 fields, got %d", line, len(f))
		}
		start, err := strconv.ParseFloat(f[3], 64)
		if err != nil {
			return nil, fmt.Errorf("rttm line %d: start: %w", line, err)
		}
		dur, err := strconv.ParseFloat(f[4], 64)
		if err != nil {
			return nil, fmt.Errorf("rttm line %d: duration: %w", line, err)
		}
		out = append(out, types.DiarizationTurn{SpeakerID: f[7], StartSec: start, EndSec: start + dur})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read rttm: %w", err)
	}
	types.SortTurns(out)
	return out, nil
}

// File is a Diarizer backed by a precomputed RTTM file.
type File struct {
	Path string
}

func (f File) Diarize(ctx context.Context, _ string) ([]types.DiarizationTurn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fh, err := os.Open(f.Path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	return Parse(fh)
}
