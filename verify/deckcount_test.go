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

import "testing"

func TestParseDeckCount(t *testing.T) {
	tests := []struct {
		in   string
		want DeckCount
	}{
		{"2 / 2 (Cycle) (Used: 0)", DeckCount{Remaining: 2, Total: 2, Used: 0, HasUsed: true, Cycle: true}},
		{"0 / 2 (Used: 2)", DeckCount{Remaining: 0, Total: 2, Used: 2, HasUsed: true}},
		{"  1/3 ", DeckCount{Remaining: 1, Total: 3}},
		{"-1 / 2", DeckCount{Remaining: -1, Total: 2}},
	}
	for _, tc := range tests {
		got, err := ParseDeckCount(tc.in)
		if err != nil {
			t.Errorf("ParseDeckCount(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseDeckCount(%q) = %+v, want %+v", tc.in, got, tc.want)
		}
	}

	for _, bad := range []string{"", "Ready", "2 remaining", "99999999999999999999 / 2", "1 / 2 (Used: 99999999999999999999)"} {
		if _, err := ParseDeckCount(bad); err == nil {
			t.Errorf("ParseDeckCount(%q): expected error", bad)
		}
	}
}

func TestIsMiss(t *testing.T) {
	if !IsMiss("[枯渇] Empty (Miss)", "miss") {
		t.Error("Expected miss")
	}
	if IsMiss("[枯渇] Ready", "Miss") {
		t.Error("Ready is not a miss")
	}
	if IsMiss("Miss", "") {
		t.Error("Empty marker never matches")
	}
}
