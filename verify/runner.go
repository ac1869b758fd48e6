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
	"context"
	"fmt"
	"strings"
	"time"
)

// Runner drives the loop/exhaust scenario against a controller and a
// display page. A Runner is not safe for concurrent use; each Run is a
// single sequential pass.
type Runner struct {
	Scenario Scenario
	Log      Logger
	// Driver is recorded in the report.
	Driver string
}

// NewRunner returns a Runner logging to l, or to the standard logger if l
// is nil.
func NewRunner(s Scenario, l Logger) *Runner {
	if l == nil {
		l = StdLogger
	}
	return &Runner{Scenario: s, Log: l}
}

type runState struct {
	controller Page
	display    Page
	model      *DeckModel
	report     *Report
	// spins counts spin clicks since the last save & reset.
	spins int
	// total counts every spin click of the run.
	total int
}

// Run executes the scenario. The report is returned even when the run
// fails; in that case the error is a *StepError naming the failed step.
func (r *Runner) Run(ctx context.Context, controller, display Page) (*Report, error) {
	if err := r.Scenario.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	st := &runState{
		controller: controller,
		display:    display,
		model:      NewDeckModel(r.Scenario.Deck, ModeLoop),
		report:     NewReport(r.Scenario.Deck),
	}
	st.report.Driver = r.Driver

	err := r.run(ctx, st)
	st.report.FinishedAt = time.Now().UTC()
	if err != nil {
		st.report.Error = err.Error()
		return st.report, err
	}
	st.report.Passed = true
	r.logf("Verification passed: %d checkpoints, %d screenshots", len(st.report.Checkpoints), len(st.report.Artifacts))
	return st.report, nil
}

func (r *Runner) run(ctx context.Context, st *runState) error {
	s := r.Scenario

	if err := r.step(ctx, "navigate controller", KindNavigation, func(ctx context.Context) error {
		return st.controller.Navigate(ctx, s.ControllerURL)
	}); err != nil {
		return err
	}
	if err := r.step(ctx, "navigate display", KindNavigation, func(ctx context.Context) error {
		return st.display.Navigate(ctx, s.DisplayURL)
	}); err != nil {
		return err
	}
	r.logf("Pages loaded")

	// Loop mode cycle.
	if err := r.action(ctx, "fill deck", KindElement, func(ctx context.Context) error {
		return st.controller.Fill(ctx, s.Selectors.DeckInput, strings.Join(s.Deck, "\n"))
	}); err != nil {
		return err
	}
	if err := r.selectMode(ctx, st, ModeLoop); err != nil {
		return err
	}
	first, err := r.saveAndReset(ctx, st, "reset")
	if err != nil {
		return err
	}
	r.logf("Deck set to %s (%s)", strings.Join(st.report.Deck, ", "), ModeLoop)

	if s.CheckResetIdempotence {
		again, err := r.saveAndReset(ctx, st, "reset-again")
		if err != nil {
			return err
		}
		if again.Parsed != first.Parsed {
			return &StepError{Step: "reset-again", Kind: KindState, Err: fmt.Errorf("save & reset is not idempotent: first %q, then %q", first.DeckCount, again.DeckCount)}
		}
	}

	for i := 0; i < s.LoopSpins; i++ {
		if err := r.spin(ctx, st); err != nil {
			return err
		}
	}
	if err := r.capture(ctx, st, LoopCycleScreenshot); err != nil {
		return err
	}

	// Exhaust mode takes effect without a save & reset.
	if err := r.selectMode(ctx, st, ModeExhaust); err != nil {
		return err
	}
	for i := 0; i < s.ExhaustSpins; i++ {
		if err := r.spin(ctx, st); err != nil {
			return err
		}
	}
	if n := len(st.report.Checkpoints); n > 0 {
		r.logf("Status: %s", st.report.Checkpoints[n-1].DeckStatus)
	}
	return r.capture(ctx, st, ExhaustMissScreenshot)
}

// step runs fn and wraps its error. Waits inside fn bring their own bounds.
func (r *Runner) step(ctx context.Context, name string, kind ErrorKind, fn func(context.Context) error) error {
	r.logf("STEP: %s", name)
	if err := fn(ctx); err != nil {
		r.logf("STEP FAILED: %s: %v", name, err)
		return &StepError{Step: name, Kind: kind, Err: err}
	}
	return nil
}

// action is a step bounded by the settle timeout.
func (r *Runner) action(ctx context.Context, name string, kind ErrorKind, fn func(context.Context) error) error {
	return r.step(ctx, name, kind, func(ctx context.Context) error {
		actx, cancel := context.WithTimeout(ctx, r.Scenario.SettleTimeout)
		defer cancel()
		return fn(actx)
	})
}

func (r *Runner) selectMode(ctx context.Context, st *runState, m Mode) error {
	err := r.action(ctx, fmt.Sprintf("select %s mode", m), KindElement, func(ctx context.Context) error {
		return st.controller.Check(ctx, r.Scenario.modeSelector(m))
	})
	if err != nil {
		return err
	}
	st.model.SetMode(m)
	return nil
}

func (r *Runner) saveAndReset(ctx context.Context, st *runState, name string) (Checkpoint, error) {
	if err := r.action(ctx, name, KindElement, func(ctx context.Context) error {
		return st.controller.ClickText(ctx, r.Scenario.SaveCaption)
	}); err != nil {
		return Checkpoint{}, err
	}
	st.model.Reset()
	st.spins = 0

	if err := r.waitDisplay(ctx, st, name); err != nil {
		return Checkpoint{}, err
	}
	return r.checkpoint(ctx, st, name, 0, Outcome{})
}

func (r *Runner) spin(ctx context.Context, st *runState) error {
	n := st.total + 1
	name := fmt.Sprintf("spin-%d", n)
	if err := r.action(ctx, name, KindElement, func(ctx context.Context) error {
		return st.controller.ClickRole(ctx, "button", r.Scenario.SpinButton)
	}); err != nil {
		return err
	}
	st.total = n
	st.spins++
	out := st.model.Draw()

	switch {
	case out.Reshuffled:
		r.logf("Spin %d clicked (%s, reshuffle expected)", n, st.model.Mode())
	case out.Miss:
		r.logf("Spin %d clicked (%s, miss expected)", n, st.model.Mode())
	default:
		r.logf("Spin %d clicked (%s)", n, st.model.Mode())
	}

	if err := r.waitDisplay(ctx, st, name); err != nil {
		return err
	}
	cp, err := r.checkpoint(ctx, st, name, n, out)
	if err != nil {
		return err
	}
	r.logf("Deck count after %d spins: %s", n, cp.DeckCount)
	return nil
}

// waitDisplay waits until the display shows one history entry per spin
// since the last reset. Without a history selector it sleeps SettleDelay,
// which is the only synchronization the page offers in that case.
func (r *Runner) waitDisplay(ctx context.Context, st *runState, name string) error {
	s := r.Scenario
	if s.Selectors.DisplayHistory == "" {
		return r.step(ctx, name+" settle", KindState, func(ctx context.Context) error {
			return sleepCtx(ctx, s.SettleDelay)
		})
	}
	want := st.spins
	return r.step(ctx, name+" display", KindState, func(ctx context.Context) error {
		return WaitFor(ctx, s.PollInterval, s.SettleTimeout, fmt.Sprintf("display history of %d", want), func(ctx context.Context) (bool, string, error) {
			got, err := st.display.Count(ctx, s.Selectors.DisplayHistory)
			if err != nil {
				return false, "", err
			}
			return got == want, fmt.Sprintf("%d entries", got), nil
		})
	})
}

// checkpoint waits until the controller shows what the model expects and
// records the observation.
func (r *Runner) checkpoint(ctx context.Context, st *runState, name string, spin int, out Outcome) (Checkpoint, error) {
	s := r.Scenario
	want := st.model.Remaining()
	total := st.model.Total()
	cp := Checkpoint{
		Name:       name,
		Spin:       spin,
		Mode:       st.model.Mode(),
		Expected:   want,
		Reshuffled: out.Reshuffled,
		Miss:       out.Miss,
	}

	if err := r.action(ctx, name+" elements", KindElement, func(ctx context.Context) error {
		for _, sel := range []string{s.Selectors.DeckCount, s.Selectors.DeckStatus} {
			n, err := st.controller.Count(ctx, sel)
			if err != nil {
				return err
			}
			if n == 0 {
				return fmt.Errorf("no element for selector %s", sel)
			}
		}
		return nil
	}); err != nil {
		return cp, err
	}

	what := fmt.Sprintf("%s: remaining %d of %d", name, want, total)
	if out.Miss {
		what += fmt.Sprintf(", status containing %q", s.MissMarker)
	}
	err := r.step(ctx, name+" check", KindState, func(ctx context.Context) error {
		return WaitFor(ctx, s.PollInterval, s.SettleTimeout, what, func(ctx context.Context) (bool, string, error) {
			count, err := st.controller.TextContent(ctx, s.Selectors.DeckCount)
			if err != nil {
				return false, "", err
			}
			status, err := st.controller.TextContent(ctx, s.Selectors.DeckStatus)
			if err != nil {
				return false, "", err
			}
			cp.DeckCount = strings.TrimSpace(count)
			cp.DeckStatus = strings.TrimSpace(status)
			observed := fmt.Sprintf("count %q, status %q", cp.DeckCount, cp.DeckStatus)

			parsed, err := ParseDeckCount(cp.DeckCount)
			if err != nil {
				return false, observed, nil
			}
			cp.Parsed = parsed
			if parsed.Remaining != want || parsed.Total != total {
				return false, observed, nil
			}
			if out.Miss && !IsMiss(cp.DeckStatus, s.MissMarker) {
				return false, observed, nil
			}
			return true, observed, nil
		})
	})
	if err != nil {
		return cp, err
	}
	st.report.Checkpoints = append(st.report.Checkpoints, cp)
	return cp, nil
}

func (r *Runner) capture(ctx context.Context, st *runState, name string) error {
	return r.action(ctx, "screenshot "+name, KindArtifact, func(ctx context.Context) error {
		data, err := st.display.Screenshot(ctx)
		if err != nil {
			return fmt.Errorf("failed to capture screenshot: %w", err)
		}
		a, err := WriteArtifact(r.Scenario.ArtifactDir, name, data)
		if err != nil {
			return err
		}
		st.report.Artifacts = append(st.report.Artifacts, a)
		r.logf("Saved screenshot to %s (%dx%d)", a.Path, a.Width, a.Height)
		return nil
	})
}

func (r *Runner) logf(format string, args ...any) {
	if r.Log != nil {
		r.Log.Logf(format, args...)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
