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
	"regexp"
	"strconv"
	"strings"
)

// DeckCount is the parsed form of the controller's deck count text, e.g.
// "1 / 2 (Cycle) (Used: 1)".
type DeckCount struct {
	Remaining int  `json:"remaining"`
	Total     int  `json:"total"`
	Used      int  `json:"used"`
	HasUsed   bool `json:"hasUsed,omitempty"`
	Cycle     bool `json:"cycle,omitempty"`
}

var (
	deckCountRE = regexp.MustCompile(`(-?\d+)\s*/\s*(-?\d+)`)
	usedRE      = regexp.MustCompile(`(?i)used:\s*(-?\d+)`)
)

// ParseDeckCount extracts the counters from the deck count text. Only the
// leading "remaining / total" pair is required.
func ParseDeckCount(text string) (DeckCount, error) {
	var dc DeckCount
	m := deckCountRE.FindStringSubmatch(text)
	if m == nil {
		return dc, fmt.Errorf("deck count %q: missing \"remaining / total\"", text)
	}
	var err error
	if dc.Remaining, err = strconv.Atoi(m[1]); err != nil {
		return dc, fmt.Errorf("deck count %q: remaining: %w", text, err)
	}
	if dc.Total, err = strconv.Atoi(m[2]); err != nil {
		return dc, fmt.Errorf("deck count %q: total: %w", text, err)
	}
	if u := usedRE.FindStringSubmatch(text); u != nil {
		if dc.Used, err = strconv.Atoi(u[1]); err != nil {
			return dc, fmt.Errorf("deck count %q: used: %w", text, err)
		}
		dc.HasUsed = true
	}
	dc.Cycle = strings.Contains(strings.ToLower(text), "(cycle)")
	return dc, nil
}

func (dc DeckCount) String() string {
	return fmt.Sprintf("%d/%d", dc.Remaining, dc.Total)
}

// IsMiss reports whether the deck status text contains marker,
// ignoring case.
func IsMiss(status, marker string) bool {
	if marker == "" {
		return false
	}
	return strings.Contains(strings.ToLower(status), strings.ToLower(marker))
}
