// Copyright (c) 2026 TTBT Enterprises LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package verify

import (
	"bytes"
	"errors"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrorKind classifies scenario failures.
type ErrorKind string

const (
	KindNavigation ErrorKind = "navigation"
	KindElement    ErrorKind = "element"
	KindState      ErrorKind = "state"
	KindArtifact   ErrorKind = "artifact"
)

// StepError is returned by Runner.Run for the step that aborted the run.
type StepError struct {
	Step string
	Kind ErrorKind
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %q (%s): %v", e.Step, e.Kind, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// IsKind reports whether err carries a StepError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var se *StepError
	return errors.As(err, &se) && se.Kind == kind
}

// Checkpoint is one asserted observation of the controller page.
type Checkpoint struct {
	Name       string    `json:"name"`
	Spin       int       `json:"spin,omitempty"`
	Mode       Mode      `json:"mode"`
	DeckCount  string    `json:"deckCount"`
	DeckStatus string    `json:"deckStatus"`
	Parsed     DeckCount `json:"parsed"`
	Expected   int       `json:"expectedRemaining"`
	Reshuffled bool      `json:"reshuffled,omitempty"`
	Miss       bool      `json:"miss,omitempty"`
}

// Artifact is a screenshot written by the run.
type Artifact struct {
	Name   string `json:"name"`
	Path   string `json:"path"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Size   int    `json:"size"`
}

// Report is the outcome of one run.
type Report struct {
	ID          string       `json:"id"`
	Driver      string       `json:"driver,omitempty"`
	StartedAt   time.Time    `json:"startedAt"`
	FinishedAt  time.Time    `json:"finishedAt"`
	Deck        []string     `json:"deck"`
	Checkpoints []Checkpoint `json:"checkpoints"`
	Artifacts   []Artifact   `json:"artifacts"`
	Passed      bool         `json:"passed"`
	Error       string       `json:"error,omitempty"`
}

// NewReport starts a report with a fresh ID.
func NewReport(deck []string) *Report {
	return &Report{
		ID:          uuid.NewString(),
		StartedAt:   time.Now().UTC(),
		Deck:        NormalizeDeck(deck),
		Checkpoints: make([]Checkpoint, 0),
		Artifacts:   make([]Artifact, 0),
	}
}

// Transcript renders the checkpoints and artifacts one per line. It only
// contains values that are stable across runs, so it can be compared to a
// golden file.
func (r *Report) Transcript() string {
	var b strings.Builder
	fmt.Fprintf(&b, "deck %s\n", strings.Join(r.Deck, ","))
	for _, c := range r.Checkpoints {
		fmt.Fprintf(&b, "%s mode=%s remaining=%d total=%d", c.Name, c.Mode, c.Parsed.Remaining, c.Parsed.Total)
		if c.Reshuffled {
			b.WriteString(" reshuffled")
		}
		if c.Miss {
			b.WriteString(" miss")
		}
		b.WriteByte('\n')
	}
	for _, a := range r.Artifacts {
		fmt.Fprintf(&b, "artifact %s\n", a.Name)
	}
	if r.Passed {
		b.WriteString("PASS\n")
	} else {
		b.WriteString("FAIL\n")
	}
	return b.String()
}

// RemainingSequence returns the remaining counts in checkpoint order.
func (r *Report) RemainingSequence() []int {
	out := make([]int, len(r.Checkpoints))
	for i, c := range r.Checkpoints {
		out[i] = c.Parsed.Remaining
	}
	return out
}

// WriteArtifact checks that data is a non-empty PNG and writes it to
// dir/name.
func WriteArtifact(dir, name string, data []byte) (Artifact, error) {
	a := Artifact{Name: name, Path: filepath.Join(dir, name), Size: len(data)}
	if len(data) == 0 {
		return a, fmt.Errorf("screenshot %s is empty", name)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return a, fmt.Errorf("screenshot %s is not a valid PNG: %w", name, err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return a, fmt.Errorf("screenshot %s has no pixels (%dx%d)", name, cfg.Width, cfg.Height)
	}
	a.Width, a.Height = cfg.Width, cfg.Height

	if err := os.MkdirAll(dir, 0755); err != nil {
		return a, fmt.Errorf("failed to create directory for screenshot: %w", err)
	}
	if err := os.WriteFile(a.Path, data, 0644); err != nil {
		return a, fmt.Errorf("failed to write screenshot to file: %w", err)
	}
	return a, nil
}
