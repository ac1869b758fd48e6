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

package e2ehelpers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// Logger interface allows passing *testing.T or log.Printf
type Logger interface {
	Logf(format string, args ...any)
}

const pollInterval = 100 * time.Millisecond

// jsString quotes s as a JavaScript string literal.
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// CaptureScreenshot captures a screenshot and saves it to the specified filename.
func CaptureScreenshot(ctx context.Context, filename string) error {
	var buf []byte
	if err := chromedp.Run(ctx, Screenshot(&buf)); err != nil {
		return fmt.Errorf("failed to capture screenshot: %w", err)
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return fmt.Errorf("failed to create directory for screenshot: %w", err)
	}

	if err := os.WriteFile(filename, buf, 0644); err != nil {
		return fmt.Errorf("failed to write screenshot to file: %w", err)
	}
	log.Printf("Saved screenshot to %s", filename)
	return nil
}

// Screenshot brings the tab to the front and captures the viewport. Chrome
// throttles rendering of background tabs, so a display tab that never had
// focus would otherwise capture a stale frame.
func Screenshot(buf *[]byte) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := page.BringToFront().Do(ctx); err != nil {
			return err
		}
		return chromedp.CaptureScreenshot(buf).Do(ctx)
	})
}

func DisableCSSAnimations() chromedp.ActionFunc {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		return chromedp.Evaluate(`
                        const style = document.createElement('style');
                        style.innerHTML = '*{-webkit-transition-duration:0s!important;transition-duration:0s!important;-webkit-animation-duration:0s!important;animation-duration:0s!important;}';
                        document.head.appendChild(style);
                `, nil).Do(ctx)
	})
}

// --- Navigation ---

// NavigateNetworkIdle navigates to url and waits for the page's
// networkIdle lifecycle event.
func NavigateNetworkIdle(url string) chromedp.ActionFunc {
	return func(ctx context.Context) error {
		lctx, cancel := context.WithCancel(ctx)
		defer cancel()

		idle := make(chan struct{})
		var once sync.Once
		started := false
		// Handlers run sequentially on the target's event goroutine.
		chromedp.ListenTarget(lctx, func(ev any) {
			e, ok := ev.(*page.EventLifecycleEvent)
			if !ok {
				return
			}
			switch e.Name {
			case "init":
				started = true
			case "networkIdle":
				if started {
					once.Do(func() { close(idle) })
				}
			}
		})

		if err := page.SetLifecycleEventsEnabled(true).Do(ctx); err != nil {
			return fmt.Errorf("enable lifecycle events: %w", err)
		}
		if err := chromedp.Navigate(url).Do(ctx); err != nil {
			return fmt.Errorf("navigate %s: %w", url, err)
		}
		select {
		case <-idle:
			return nil
		case <-ctx.Done():
			return fmt.Errorf("waiting for network idle on %s: %w", url, ctx.Err())
		}
	}
}

// --- Form controls ---

// FillValue replaces the value of a text field and fires an input event.
func FillValue(sel, value string) chromedp.Action {
	return chromedp.Tasks{
		chromedp.WaitReady(sel, chromedp.ByQuery),
		chromedp.SetValue(sel, value, chromedp.ByQuery),
		chromedp.Evaluate(fmt.Sprintf(`(() => {
			const el = document.querySelector(%s);
			el.dispatchEvent(new Event('input', { bubbles: true }));
			return true;
		})()`, jsString(sel)), nil),
	}
}

// CheckRadio clicks a radio button or checkbox unless it is already checked.
func CheckRadio(sel string) chromedp.Action {
	return chromedp.Tasks{
		chromedp.WaitReady(sel, chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var checked bool
			err := chromedp.Evaluate(fmt.Sprintf(`(() => {
				const el = document.querySelector(%s);
				if (!el.checked) el.click();
				return el.checked;
			})()`, jsString(sel)), &checked).Do(ctx)
			if err != nil {
				return err
			}
			if !checked {
				return fmt.Errorf("%s did not become checked", sel)
			}
			return nil
		}),
	}
}

// roleSelectors maps the ARIA roles we click to the elements that carry
// them implicitly.
var roleSelectors = map[string]string{
	"button":   `button, [role="button"], input[type="button"], input[type="submit"]`,
	"link":     `a[href], [role="link"]`,
	"radio":    `input[type="radio"], [role="radio"]`,
	"checkbox": `input[type="checkbox"], [role="checkbox"]`,
}

// ClickByRole clicks the element with the given role and accessible name.
// An exact name match wins over a substring match. It polls until such an
// element exists and is enabled, so buttons in a cooldown are waited for.
func ClickByRole(role, name string) chromedp.Action {
	sel, ok := roleSelectors[role]
	if !ok {
		sel = fmt.Sprintf(`[role=%s]`, jsString(role))
	}
	return chromedp.Poll(fmt.Sprintf(`(() => {
		const want = %s.replace(/\s+/g, ' ').trim().toLowerCase();
		const nameOf = (el) => (el.getAttribute('aria-label') || el.textContent || el.value || '').replace(/\s+/g, ' ').trim().toLowerCase();
		const els = Array.from(document.querySelectorAll(%s));
		const el = els.find(e => nameOf(e) === want) || els.find(e => nameOf(e).includes(want));
		if (!el || el.disabled || el.getAttribute('aria-disabled') === 'true') return false;
		el.click();
		return true;
	})()`, jsString(name), jsString(sel)), nil, chromedp.WithPollingInterval(pollInterval))
}

// ClickByText clicks the element whose text is text. Exact matches win;
// otherwise the deepest element containing text is used.
func ClickByText(text string) chromedp.Action {
	return chromedp.Poll(fmt.Sprintf(`(() => {
		const want = %s.replace(/\s+/g, ' ').trim();
		const norm = (s) => (s || '').replace(/\s+/g, ' ').trim();
		const all = Array.from(document.body.querySelectorAll('*'));
		const deepest = (els) => els.filter(e => !els.some(o => o !== e && e.contains(o)));
		let hits = deepest(all.filter(e => norm(e.textContent) === want || norm(e.value) === want));
		if (hits.length === 0) hits = deepest(all.filter(e => norm(e.textContent).includes(want)));
		if (hits.length === 0) return false;
		let el = hits[0];
		const clickable = el.closest('button, a, label, [role="button"]');
		if (clickable) el = clickable;
		if (el.disabled) return false;
		el.click();
		return true;
	})()`, jsString(text)), nil, chromedp.WithPollingInterval(pollInterval))
}

// --- Reads ---

// TextContent reads the text content of the first element matching sel.
func TextContent(sel string, text *string) chromedp.Action {
	return chromedp.TextContent(sel, text, chromedp.ByQuery)
}

// CountElements stores the number of elements matching sel in n.
func CountElements(sel string, n *int) chromedp.Action {
	return chromedp.Evaluate(fmt.Sprintf(`document.querySelectorAll(%s).length`, jsString(sel)), n)
}

// WaitCount waits until exactly n elements match sel.
func WaitCount(sel string, n int, timeout time.Duration) chromedp.Action {
	return chromedp.Poll(fmt.Sprintf(`document.querySelectorAll(%s).length === %d`, jsString(sel), n),
		nil, chromedp.WithPollingInterval(pollInterval), chromedp.WithPollingTimeout(timeout))
}

// --- Lottery controller ---

// DeckState holds the controller's deck readouts.
type DeckState struct {
	Count  string
	Status string
}

// SaveDeck fills the deck textarea, selects mode and clicks save & reset.
func SaveDeck(ctx context.Context, entries []string, mode string) error {
	return chromedp.Run(ctx,
		FillValue(`#deckInput`, strings.Join(entries, "\n")),
		CheckRadio(fmt.Sprintf(`input[name="deckMode"][value=%s]`, jsString(mode))),
		chromedp.Click(`#saveDeckBtn`, chromedp.ByQuery),
	)
}

// Spin clicks the spin button of a player (1-4).
func Spin(ctx context.Context, player int) error {
	return chromedp.Run(ctx, ClickByRole("button", fmt.Sprintf("%dP SPIN", player)))
}

// ReadDeckState reads #deckCount and #deckStatus.
func ReadDeckState(ctx context.Context) (DeckState, error) {
	var st DeckState
	err := chromedp.Run(ctx,
		TextContent(`#deckCount`, &st.Count),
		TextContent(`#deckStatus`, &st.Status),
	)
	return st, err
}

// HistorySelector matches the display's history entries for a player.
func HistorySelector(player int) string {
	return fmt.Sprintf(`#p%d-history .slot-wrapper`, player)
}

// WaitDeckCount polls until the deck count text starts with
// "<remaining> /".
func WaitDeckCount(remaining int, timeout time.Duration) chromedp.Action {
	prefix := fmt.Sprintf("%d /", remaining)
	return chromedp.Poll(fmt.Sprintf(`(() => {
		const el = document.querySelector('#deckCount');
		return !!el && el.textContent.trim().startsWith(%s);
	})()`, jsString(prefix)), nil, chromedp.WithPollingInterval(pollInterval), chromedp.WithPollingTimeout(timeout))
}
