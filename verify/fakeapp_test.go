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
	"context"
	"fmt"
	"image"
	"image/png"
	"slices"
	"strings"
	"sync"
)

// fakeApp mimics the lottery application closely enough for the runner:
// the controller renders the deck counters, the display counts spins.
type fakeApp struct {
	mu sync.Mutex

	deckText string
	deck     []string
	used     []string
	mode     Mode
	radio    Mode
	history  int

	// Faults.
	navigateErr   error
	noSpinButton  bool
	noReshuffle   bool
	dropBroadcast bool
	emptyShot     bool
	dirtyReset    bool
	ignoreExhaust bool
	overdraw      bool
	resets        int
	overdrawn     int
}

func newFakeApp() *fakeApp {
	return &fakeApp{mode: ModeLoop, radio: ModeLoop}
}

type fakePage struct {
	app     *fakeApp
	display bool
	visited []string
}

func (a *fakeApp) pages() (*fakePage, *fakePage) {
	return &fakePage{app: a}, &fakePage{app: a, display: true}
}

func (p *fakePage) Navigate(ctx context.Context, url string) error {
	if p.app.navigateErr != nil {
		return p.app.navigateErr
	}
	p.visited = append(p.visited, url)
	return nil
}

func (p *fakePage) Fill(ctx context.Context, selector, value string) error {
	a := p.app
	a.mu.Lock()
	defer a.mu.Unlock()
	if selector != "#deckInput" {
		return fmt.Errorf("no element for selector %s", selector)
	}
	a.deckText = value
	return nil
}

func (p *fakePage) Check(ctx context.Context, selector string) error {
	a := p.app
	a.mu.Lock()
	defer a.mu.Unlock()
	switch selector {
	case "input[value='loop']":
		a.radio = ModeLoop
	case "input[value='exhaust']":
		if !a.ignoreExhaust {
			a.radio = ModeExhaust
		}
	default:
		return fmt.Errorf("no element for selector %s", selector)
	}
	return nil
}

func (p *fakePage) ClickText(ctx context.Context, text string) error {
	a := p.app
	a.mu.Lock()
	defer a.mu.Unlock()
	if text != DefaultSaveCaption {
		return fmt.Errorf("no element with text %q", text)
	}
	a.deck = NormalizeDeck(strings.Split(a.deckText, "\n"))
	a.mode = a.radio
	a.used = nil
	a.history = 0
	a.overdrawn = 0
	a.resets++
	if a.dirtyReset && a.resets > 1 {
		a.used = a.deck[:1]
	}
	return nil
}

func (p *fakePage) ClickRole(ctx context.Context, role, name string) error {
	a := p.app
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.noSpinButton || role != "button" || name != DefaultSpinButton {
		return fmt.Errorf("no %s named %q", role, name)
	}
	a.mode = a.radio
	var available []string
	for _, e := range a.deck {
		if !slices.Contains(a.used, e) {
			available = append(available, e)
		}
	}
	if len(available) == 0 && a.mode == ModeLoop && !a.noReshuffle {
		a.used = nil
		available = slices.Clone(a.deck)
	}
	if len(available) > 0 {
		a.used = append(a.used, available[0])
	} else if a.overdraw {
		a.overdrawn++
	}
	if !a.dropBroadcast {
		a.history++
	}
	return nil
}

func (p *fakePage) TextContent(ctx context.Context, selector string) (string, error) {
	a := p.app
	a.mu.Lock()
	defer a.mu.Unlock()
	remaining := len(a.deck) - len(a.used) - a.overdrawn
	switch selector {
	case "#deckCount":
		if a.mode == ModeExhaust {
			return fmt.Sprintf("%d / %d (Used: %d)", remaining, len(a.deck), len(a.used)), nil
		}
		return fmt.Sprintf("%d / %d (Cycle) (Used: %d)", remaining, len(a.deck), len(a.used)), nil
	case "#deckStatus":
		if a.mode == ModeExhaust {
			if remaining == 0 {
				return "[枯渇] Empty (Miss)", nil
			}
			return "[枯渇] Ready", nil
		}
		return "[ループ] Ready", nil
	}
	return "", fmt.Errorf("no element for selector %s", selector)
}

func (p *fakePage) Count(ctx context.Context, selector string) (int, error) {
	a := p.app
	a.mu.Lock()
	defer a.mu.Unlock()
	if !p.display {
		switch selector {
		case "#deckCount", "#deckStatus":
			return 1, nil
		}
		return 0, nil
	}
	return a.history, nil
}

func (p *fakePage) Screenshot(ctx context.Context) ([]byte, error) {
	if p.app.emptyShot {
		return nil, nil
	}
	return testPNG(4, 3), nil
}

func testPNG(w, h int) []byte {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		panic(err)
	}
	return buf.Bytes()
}
