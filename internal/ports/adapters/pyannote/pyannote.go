// Package pyannote runs speaker diarization through an embedded python helper.
package pyannote

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/forPelevin/panelscribe/internal/ports/adapters/rttm"
	"github.com/forPelevin/panelscribe/internal/types"
)

//go:embed assets/diarize.py
var diarizeScript []byte

type Adapter struct {
	python      string
	model       string
	hfToken     string
	numSpeakers int
}

func New(python, model, hfToken string, numSpeakers int) *Adapter {
	if python == "" {
		python = "python3"
	}
	return &Adapter{python: python, model: model, hfToken: hfToken, numSpeakers: numSpeakers}
}

func (a *Adapter) Diarize(ctx context.Context, wavPath string) ([]types.DiarizationTurn, error) {
	script, err := os.CreateTemp("", "panelscribe-diarize-*.py")
	if err != nil {
		return nil, fmt.Errorf("create helper script: %w", err)
	}
	defer os.Remove(script.Name())
	if _, err := script.Write(diarizeScript); err != nil {
		script.Close()
		return nil, fmt.Errorf("write helper script: %w", err)
	}
	if err := script.Close(); err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, a.python, a.args(script.Name(), wavPath)...)
	cmd.Env = os.Environ()
	if a.hfToken != "" {
		cmd.Env = append(cmd.Env, "HF_TOKEN="+a.hfToken)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			return nil, fmt.Errorf("pyannote failed: %s", strings.TrimSpace(stderr.String()))
		}
		return nil, fmt.Errorf("run helper: %w", err)
	}
	return rttm.Parse(bytes.NewReader(out))
}

func (a *Adapter) args(script, wavPath string) []string {
	args := []string{script, "--audio", wavPath}
	if a.model != "" {
		args = append(args, "--model", a.model)
	}
	if a.numSpeakers > 0 {
		args = append(args, "--num-speakers", strconv.Itoa(a.numSpeakers))
	}
	return args
}
