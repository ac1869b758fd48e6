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

package driver

import (
	"context"
	"fmt"

	"github.com/chromedp/chromedp"
	"github.com/ttbt-io/lotteryverify/tools/e2ehelpers"
)

func openChromedp(ctx context.Context, opts Options) (*Session, error) {
	s := &Session{Kind: Chromedp}

	// The browser outlives ctx; it is released by Close.
	base := context.WithoutCancel(ctx)
	var allocCtx context.Context
	var cancelAlloc context.CancelFunc
	if opts.RemoteURL != "" {
		allocCtx, cancelAlloc = chromedp.NewRemoteAllocator(base, opts.RemoteURL)
	} else {
		allocOpts := append(chromedp.DefaultExecAllocatorOptions[:], chromedp.Flag("headless", opts.Headless))
		allocCtx, cancelAlloc = chromedp.NewExecAllocator(base, allocOpts...)
	}
	s.onClose(func() error { cancelAlloc(); return nil })

	controllerCtx, cancelController := chromedp.NewContext(allocCtx,
		chromedp.WithErrorf(opts.Logf),
		chromedp.WithLogf(opts.Logf),
	)
	s.onClose(func() error {
		err := chromedp.Cancel(controllerCtx)
		cancelController()
		return err
	})
	if err := startTab(ctx, controllerCtx); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	// A tab created from the controller's context lives in the same browser
	// context.
	displayCtx, cancelDisplay := chromedp.NewContext(controllerCtx)
	s.onClose(func() error { cancelDisplay(); return nil })
	if err := startTab(ctx, displayCtx); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to open display tab: %w", err)
	}

	s.Controller = &chromePage{tab: controllerCtx}
	s.Display = &chromePage{tab: displayCtx}
	return s, nil
}

// startTab runs an empty action list on tab so that the target gets
// created, giving up when ctx is done.
func startTab(ctx, tab context.Context) error {
	errc := make(chan error, 1)
	go func() { errc <- chromedp.Run(tab) }()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// chromePage implements verify.Page on one chromedp tab.
type chromePage struct {
	tab context.Context
}

// run executes actions on the tab, bounded by the deadline and
// cancellation of ctx.
func (p *chromePage) run(ctx context.Context, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	runCtx, cancel := context.WithCancel(p.tab)
	defer cancel()
	if dl, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, dl)
		defer cancelDeadline()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return fmt.Errorf("%w (%v)", ctx.Err(), err)
	}
	return err
}

func (p *chromePage) Navigate(ctx context.Context, url string) error {
	return p.run(ctx, e2ehelpers.NavigateNetworkIdle(url))
}

func (p *chromePage) Fill(ctx context.Context, selector, value string) error {
	return p.run(ctx, e2ehelpers.FillValue(selector, value))
}

func (p *chromePage) Check(ctx context.Context, selector string) error {
	return p.run(ctx, e2ehelpers.CheckRadio(selector))
}

func (p *chromePage) ClickText(ctx context.Context, text string) error {
	return p.run(ctx, e2ehelpers.ClickByText(text))
}

func (p *chromePage) ClickRole(ctx context.Context, role, name string) error {
	return p.run(ctx, e2ehelpers.ClickByRole(role, name))
}

func (p *chromePage) TextContent(ctx context.Context, selector string) (string, error) {
	var text string
	err := p.run(ctx, e2ehelpers.TextContent(selector, &text))
	return text, err
}

func (p *chromePage) Count(ctx context.Context, selector string) (int, error) {
	var n int
	err := p.run(ctx, e2ehelpers.CountElements(selector, &n))
	return n, err
}

func (p *chromePage) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	err := p.run(ctx, e2ehelpers.Screenshot(&buf))
	return buf, err
}
