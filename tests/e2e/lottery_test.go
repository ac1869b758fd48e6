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

package e2e

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/ttbt-io/lotteryverify/driver"
	"github.com/ttbt-io/lotteryverify/tools/e2ehelpers"
	"github.com/ttbt-io/lotteryverify/verify"
)

func TestLotteryScenario(t *testing.T) {
	requireChrome(t)
	baseURL := startTestServer(t)

	ctx, cancel := context.WithTimeout(t.Context(), 90*time.Second)
	defer cancel()

	sess, err := driver.Open(ctx, driver.Options{
		Kind:      driver.Chromedp,
		RemoteURL: *withChromeDP,
		Logf:      t.Logf,
	})
	if err != nil {
		t.Fatalf("driver.Open: %v", err)
	}
	defer func() {
		if err := sess.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	}()

	s := verify.DefaultScenario()
	s.ControllerURL = baseURL + "/controller.html"
	s.DisplayURL = baseURL + "/index.html"
	s.ArtifactDir = t.TempDir()
	s.CheckResetIdempotence = true

	r := verify.NewRunner(s, t)
	r.Driver = string(driver.Chromedp)
	report, err := r.Run(ctx, sess.Controller, sess.Display)
	if err != nil {
		if report != nil {
			t.Logf("Transcript:\n%s", report.Transcript())
		}
		t.Fatalf("Run: %v", err)
	}

	if got, want := report.RemainingSequence(), []int{2, 2, 1, 0, 1, 0, 0}; !slices.Equal(got, want) {
		t.Errorf("Remaining sequence = %v, want %v", got, want)
	}
	for _, name := range []string{verify.LoopCycleScreenshot, verify.ExhaustMissScreenshot} {
		fi, err := os.Stat(filepath.Join(s.ArtifactDir, name))
		if err != nil {
			t.Errorf("screenshot %s: %v", name, err)
		} else if fi.Size() == 0 {
			t.Errorf("screenshot %s is empty", name)
		}
	}
	if err := verify.CompareGolden("testdata/lottery_scenario.golden", report.Transcript(), verify.UpdateGoldensFromEnv()); err != nil {
		t.Error(err)
	}
}

func TestControllerDisplaySync(t *testing.T) {
	requireChrome(t)
	baseURL := startTestServer(t)

	ctx := newBrowser(t, 60*time.Second)
	runStep(t, ctx, "Open controller",
		e2ehelpers.NavigateNetworkIdle(baseURL+"/controller.html"),
		e2ehelpers.DisableCSSAnimations(),
	)

	// Second tab of the same browser, so both share the channel.
	displayCtx, cancel := chromedp.NewContext(ctx)
	defer cancel()
	runStep(t, displayCtx, "Open display",
		e2ehelpers.NavigateNetworkIdle(baseURL+"/index.html"),
		e2ehelpers.DisableCSSAnimations(),
	)

	if err := e2ehelpers.SaveDeck(ctx, []string{"A", "B", "A", ""}, "loop"); err != nil {
		t.Fatalf("SaveDeck: %v", err)
	}
	runStep(t, ctx, "Duplicates are dropped", e2ehelpers.WaitDeckCount(2, 5*time.Second))

	for i := 1; i <= 3; i++ {
		if err := e2ehelpers.Spin(ctx, 1); err != nil {
			t.Fatalf("Spin %d: %v", i, err)
		}
		runStep(t, displayCtx, "Display shows spin", e2ehelpers.WaitCount(e2ehelpers.HistorySelector(1), i, 5*time.Second))
	}
	// Two spins empty the deck, the third reshuffles it.
	runStep(t, ctx, "Loop reshuffled", e2ehelpers.WaitDeckCount(1, 5*time.Second))

	st, err := e2ehelpers.ReadDeckState(ctx)
	if err != nil {
		t.Fatalf("ReadDeckState: %v", err)
	}
	if !strings.Contains(st.Count, "(Cycle)") {
		t.Errorf("Count = %q, want loop marker", st.Count)
	}

	// Other players are independent of player 1.
	if err := e2ehelpers.Spin(ctx, 2); err != nil {
		t.Fatalf("Spin 2P: %v", err)
	}
	runStep(t, displayCtx, "2P history",
		e2ehelpers.WaitCount(e2ehelpers.HistorySelector(2), 1, 5*time.Second),
		e2ehelpers.WaitCount(e2ehelpers.HistorySelector(1), 3, 5*time.Second),
	)

	// Save & reset clears the display.
	if err := e2ehelpers.SaveDeck(ctx, []string{"A", "B"}, "exhaust"); err != nil {
		t.Fatalf("SaveDeck: %v", err)
	}
	runStep(t, displayCtx, "Display cleared",
		e2ehelpers.WaitCount(e2ehelpers.HistorySelector(1), 0, 5*time.Second),
		e2ehelpers.WaitCount(e2ehelpers.HistorySelector(2), 0, 5*time.Second),
	)

	for i := 1; i <= 3; i++ {
		if err := e2ehelpers.Spin(ctx, 1); err != nil {
			t.Fatalf("Spin %d: %v", i, err)
		}
		runStep(t, displayCtx, "Display shows spin", e2ehelpers.WaitCount(e2ehelpers.HistorySelector(1), i, 5*time.Second))
	}
	runStep(t, ctx, "Exhausted", e2ehelpers.WaitDeckCount(0, 5*time.Second))
	st, err = e2ehelpers.ReadDeckState(ctx)
	if err != nil {
		t.Fatalf("ReadDeckState: %v", err)
	}
	if !verify.IsMiss(st.Status, "Miss") {
		t.Errorf("Status = %q, want miss", st.Status)
	}
	var misses int
	runStep(t, displayCtx, "Miss rendered", e2ehelpers.CountElements("#p1-history .miss-mark", &misses))
	if misses != 1 {
		t.Errorf("miss marks = %d, want 1", misses)
	}
	if err := e2ehelpers.CaptureScreenshot(displayCtx, debugPath(t, "display_sync.png")); err != nil {
		t.Errorf("CaptureScreenshot: %v", err)
	}
}

func TestDisplayLayout(t *testing.T) {
	requireChrome(t)
	baseURL := startTestServer(t)

	ctx := newBrowser(t, 30*time.Second)
	runStep(t, ctx, "Open controller", e2ehelpers.NavigateNetworkIdle(baseURL+"/controller.html"))
	displayCtx, cancel := chromedp.NewContext(ctx)
	defer cancel()
	runStep(t, displayCtx, "Open display", e2ehelpers.NavigateNetworkIdle(baseURL+"/index.html"))

	runStep(t, ctx, "Apply layout",
		e2ehelpers.FillValue("#posX", "40"),
		e2ehelpers.FillValue("#posY", "-10"),
		e2ehelpers.FillValue("#scale", "1.5"),
		chromedp.Click("#applyLayoutBtn", chromedp.ByQuery),
	)
	runStep(t, displayCtx, "Display moved",
		chromedp.Poll(`document.getElementById('movable-container').style.transform === 'translate(40px, -10px) scale(1.5)'`, nil,
			chromedp.WithPollingTimeout(5*time.Second)),
	)
}
