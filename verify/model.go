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
	"fmt"
	"strings"
)

// Mode is a deck draw mode of the application under test.
type Mode string

const (
	// ModeLoop reshuffles the deck when a draw finds it empty.
	ModeLoop Mode = "loop"
	// ModeExhaust reports a miss when a draw finds the deck empty.
	ModeExhaust Mode = "exhaust"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeLoop, ModeExhaust:
		return m, nil
	default:
		return "", fmt.Errorf("unknown deck mode %q", s)
	}
}

// Outcome describes the expected result of a single draw.
type Outcome struct {
	Miss       bool
	Reshuffled bool
}

// DeckModel predicts the counters the application should render. It does
// not know which entry gets drawn, only how many remain.
type DeckModel struct {
	total int
	used  int
	mode  Mode
}

// NormalizeDeck applies the same cleanup the application applies when a
// deck is saved: entries are trimmed, blanks dropped and duplicates removed,
// keeping the first occurrence.
func NormalizeDeck(entries []string) []string {
	seen := make(map[string]bool, len(entries))
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" || seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	return out
}

// NewDeckModel returns a model for a freshly saved deck.
func NewDeckModel(entries []string, mode Mode) *DeckModel {
	return &DeckModel{
		total: len(NormalizeDeck(entries)),
		mode:  mode,
	}
}

// Reset forgets every draw, as "save & reset" does.
func (m *DeckModel) Reset() {
	m.used = 0
}

// SetMode switches mode without resetting the deck.
func (m *DeckModel) SetMode(mode Mode) {
	m.mode = mode
}

// Mode returns the current mode.
func (m *DeckModel) Mode() Mode {
	return m.mode
}

// Draw advances the model by one spin.
func (m *DeckModel) Draw() Outcome {
	var out Outcome
	if m.Remaining() == 0 {
		if m.mode != ModeLoop || m.total == 0 {
			out.Miss = true
			return out
		}
		m.used = 0
		out.Reshuffled = true
	}
	m.used++
	return out
}

// Remaining is the number of entries that can still be drawn in the
// current cycle.
func (m *DeckModel) Remaining() int {
	if r := m.total - m.used; r > 0 {
		return r
	}
	return 0
}

// Used is the number of entries drawn in the current cycle.
func (m *DeckModel) Used() int {
	return m.used
}

// Total is the number of distinct entries in the deck.
func (m *DeckModel) Total() int {
	return m.total
}
