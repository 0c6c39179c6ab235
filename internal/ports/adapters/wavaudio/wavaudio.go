package wavaudio

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/wav"
)

// Source holds a fully decoded WAV file in memory. Slices are read through
// independent streamers over the shared buffer, so concurrent WriteSlice
// calls are safe.
type Source struct {
	buf    *beep.Buffer
	format beep.Format
}

func Open(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open audio: %w", err)
	}
	defer f.Close()

	streamer, format, err := wav.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode wav %s: %w", path, err)
	}
	defer streamer.Close()

	buf := beep.NewBuffer(format)
	buf.Append(streamer)
	if err := streamer.Err(); err != nil {
		return nil, fmt.Errorf("read wav %s: %w", path, err)
	}
	return &Source{buf: buf, format: format}, nil
}

// Duration returns the audio length in seconds.
func (s *Source) Duration() float64 {
	return s.format.SampleRate.D(s.buf.Len()).Seconds()
}

func (s *Source) SampleRate() int { return int(s.format.SampleRate) }

// WriteSlice encodes samples in [startSec, endSec) to outWav. Bounds beyond
// the buffer are truncated; an empty resulting range is an error.
func (s *Source) WriteSlice(startSec, endSec float64, outWav string) error {
	from, to, err := s.sampleRange(startSec, endSec)
	if err != nil {
		return err
	}

	f, err := os.Create(outWav)
	if err != nil {
		return fmt.Errorf("create slice: %w", err)
	}
	if err := wav.Encode(f, s.buf.Streamer(from, to), s.format); err != nil {
		f.Close()
		return fmt.Errorf("encode slice: %w", err)
	}
	return f.Close()
}

func (s *Source) sampleRange(startSec, endSec float64) (int, int, error) {
	if math.IsNaN(startSec) || math.IsNaN(endSec) {
		return 0, 0, errors.New("slice bounds are NaN")
	}
	from := s.format.SampleRate.N(secDur(startSec))
	to := s.format.SampleRate.N(secDur(endSec))
	if from < 0 {
		from = 0
	}
	if n := s.buf.Len(); to > n {
		to = n
	}
	if to <= from {
		return 0, 0, fmt.Errorf("empty slice [%.3f, %.3f)", startSec, endSec)
	}
	return from, to, nil
}

func secDur(sec float64) time.Duration { return time.Duration(sec * float64(time.Second)) }
