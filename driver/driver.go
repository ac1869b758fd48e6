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

// Package driver opens a browser with two pages, one for the controller
// and one for the display, behind the verify.Page interface.
package driver

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/ttbt-io/lotteryverify/verify"
)

// Kind selects the browser automation library.
type Kind string

const (
	Chromedp   Kind = "chromedp"
	Playwright Kind = "playwright"
)

// ParseKind validates a driver name. The empty string selects chromedp.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return Chromedp, nil
	case Chromedp, Playwright:
		return k, nil
	default:
		return "", fmt.Errorf("unknown driver %q (want chromedp or playwright)", s)
	}
}

// Options configures Open.
type Options struct {
	Kind Kind
	// RemoteURL is the remote debugging endpoint of a running browser.
	// When empty a local browser is launched.
	RemoteURL string
	Headless  bool
	Logf      func(format string, args ...any)
}

// Session holds the two pages of one browser. Both pages share cookies,
// local storage and BroadcastChannel.
type Session struct {
	Kind       Kind
	Controller verify.Page
	Display    verify.Page

	closeOnce sync.Once
	closeErr  error
	// closers run in reverse order.
	closers []func() error
}

// Open starts or connects to a browser and opens the two pages.
func Open(ctx context.Context, opts Options) (*Session, error) {
	if opts.Logf == nil {
		opts.Logf = log.Printf
	}
	kind, err := ParseKind(string(opts.Kind))
	if err != nil {
		return nil, err
	}
	switch kind {
	case Playwright:
		return openPlaywright(ctx, opts)
	default:
		return openChromedp(ctx, opts)
	}
}

func (s *Session) onClose(f func() error) {
	s.closers = append(s.closers, f)
}

// Close tears down the pages and the browser. It is safe to call more than
// once; later calls return the first result.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		var errs []error
		for i := len(s.closers) - 1; i >= 0; i-- {
			if err := s.closers[i](); err != nil {
				errs = append(errs, err)
			}
		}
		s.closers = nil
		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}

// timeoutMillis converts the time left on ctx into a playwright timeout.
// Playwright treats 0 as "no timeout", so the result is at least 1.
func timeoutMillis(ctx context.Context, def time.Duration) float64 {
	d := def
	if dl, ok := ctx.Deadline(); ok {
		d = time.Until(dl)
	}
	if ms := float64(d.Milliseconds()); ms >= 1 {
		return ms
	}
	return 1
}
