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
	"errors"
	"fmt"
	"time"
)

const (
	DefaultControllerURL = "http://localhost:8080/controller.html"
	DefaultDisplayURL    = "http://localhost:8080/index.html"

	DefaultSaveCaption = "設定保存 & リセット"
	DefaultSpinButton  = "1P SPIN"

	LoopCycleScreenshot   = "display_loop_cycle.png"
	ExhaustMissScreenshot = "display_exhaust_miss.png"
)

// Selectors is the DOM contract of the controller and display pages.
type Selectors struct {
	DeckInput  string `yaml:"deck_input" json:"deckInput"`
	DeckCount  string `yaml:"deck_count" json:"deckCount"`
	DeckStatus string `yaml:"deck_status" json:"deckStatus"`
	// ModeRadio is a format string taking the mode value.
	ModeRadio string `yaml:"mode_radio" json:"modeRadio"`
	// DisplayHistory matches one element per spin shown on the display.
	// Empty disables history-based settlement.
	DisplayHistory string `yaml:"display_history" json:"displayHistory"`
}

// Scenario describes the fixed verification run. DefaultScenario returns
// the canonical values; fields are exported so the CLI config can override
// addresses, timing and output locations.
type Scenario struct {
	ControllerURL string
	DisplayURL    string
	Deck          []string
	SaveCaption   string
	SpinButton    string
	MissMarker    string
	Selectors     Selectors

	ArtifactDir string

	// SettleTimeout bounds every condition wait after an action.
	SettleTimeout time.Duration
	PollInterval  time.Duration
	// SettleDelay is only used when Selectors.DisplayHistory is empty.
	SettleDelay time.Duration

	LoopSpins    int
	ExhaustSpins int

	// CheckResetIdempotence adds a second save & reset after the first and
	// asserts it yields the same deck count.
	CheckResetIdempotence bool
}

// DefaultScenario returns the canonical loop/exhaust scenario.
func DefaultScenario() Scenario {
	return Scenario{
		ControllerURL: DefaultControllerURL,
		DisplayURL:    DefaultDisplayURL,
		Deck:          []string{"A", "B"},
		SaveCaption:   DefaultSaveCaption,
		SpinButton:    DefaultSpinButton,
		MissMarker:    "Miss",
		Selectors: Selectors{
			DeckInput:      "#deckInput",
			DeckCount:      "#deckCount",
			DeckStatus:     "#deckStatus",
			ModeRadio:      "input[value='%s']",
			DisplayHistory: "#p1-history .slot-wrapper",
		},
		ArtifactDir:   "verification",
		SettleTimeout: 10 * time.Second,
		PollInterval:  100 * time.Millisecond,
		SettleDelay:   time.Second,
		LoopSpins:     3,
		ExhaustSpins:  2,
	}
}

// Validate reports configuration mistakes before a browser is started.
func (s Scenario) Validate() error {
	var errs []error
	if s.ControllerURL == "" || s.DisplayURL == "" {
		errs = append(errs, errors.New("controller and display URLs are required"))
	}
	if len(NormalizeDeck(s.Deck)) == 0 {
		errs = append(errs, errors.New("deck has no entries"))
	}
	if s.Selectors.DeckInput == "" || s.Selectors.DeckCount == "" || s.Selectors.DeckStatus == "" || s.Selectors.ModeRadio == "" {
		errs = append(errs, errors.New("deck input, count, status and mode selectors are required"))
	}
	if s.SaveCaption == "" || s.SpinButton == "" {
		errs = append(errs, errors.New("save caption and spin button name are required"))
	}
	if s.SettleTimeout <= 0 {
		errs = append(errs, fmt.Errorf("settle timeout must be positive, got %v", s.SettleTimeout))
	}
	if s.LoopSpins < 0 || s.ExhaustSpins < 0 {
		errs = append(errs, errors.New("spin counts must not be negative"))
	}
	if s.ArtifactDir == "" {
		errs = append(errs, errors.New("artifact directory is required"))
	}
	return errors.Join(errs...)
}

func (s Scenario) modeSelector(m Mode) string {
	return fmt.Sprintf(s.Selectors.ModeRadio, m)
}
