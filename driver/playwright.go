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
	"time"

	"github.com/playwright-community/playwright-go"
)

// defaultActionTimeout applies when the caller's context has no deadline.
const defaultActionTimeout = 30 * time.Second

func openPlaywright(ctx context.Context, opts Options) (*Session, error) {
	s := &Session{Kind: Playwright}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}
	s.onClose(pw.Stop)

	var browser playwright.Browser
	if opts.RemoteURL != "" {
		browser, err = pw.Chromium.ConnectOverCDP(opts.RemoteURL, playwright.BrowserTypeConnectOverCDPOptions{
			Timeout: playwright.Float(timeoutMillis(ctx, defaultActionTimeout)),
		})
	} else {
		browser, err = pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
			Headless: playwright.Bool(opts.Headless),
			Timeout:  playwright.Float(timeoutMillis(ctx, defaultActionTimeout)),
		})
	}
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to open browser: %w", err)
	}
	s.onClose(func() error { return browser.Close() })

	bctx, err := browser.NewContext()
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}
	s.onClose(func() error { return bctx.Close() })

	controller, err := bctx.NewPage()
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to open controller page: %w", err)
	}
	display, err := bctx.NewPage()
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to open display page: %w", err)
	}
	opts.Logf("playwright: browser %s ready", browser.Version())

	s.Controller = &pwPage{page: controller}
	s.Display = &pwPage{page: display}
	return s, nil
}

// pwPage implements verify.Page on a playwright page. Every call derives
// its timeout from the caller's context deadline.
type pwPage struct {
	page playwright.Page
}

func timeout(ctx context.Context) *float64 {
	return playwright.Float(timeoutMillis(ctx, defaultActionTimeout))
}

func (p *pwPage) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
		Timeout:   timeout(ctx),
	})
	if err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

func (p *pwPage) Fill(ctx context.Context, selector, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.page.Locator(selector).Fill(value, playwright.LocatorFillOptions{Timeout: timeout(ctx)})
}

func (p *pwPage) Check(ctx context.Context, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.page.Locator(selector).Check(playwright.LocatorCheckOptions{Timeout: timeout(ctx)})
}

func (p *pwPage) ClickText(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	exact := p.page.GetByText(text, playwright.PageGetByTextOptions{Exact: playwright.Bool(true)})
	loc := exact.Or(p.page.GetByText(text)).First()
	return loc.Click(playwright.LocatorClickOptions{Timeout: timeout(ctx)})
}

func (p *pwPage) ClickRole(ctx context.Context, role, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	loc := p.page.GetByRole(playwright.AriaRole(role), playwright.PageGetByRoleOptions{Name: name}).First()
	return loc.Click(playwright.LocatorClickOptions{Timeout: timeout(ctx)})
}

func (p *pwPage) TextContent(ctx context.Context, selector string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return p.page.Locator(selector).First().TextContent(playwright.LocatorTextContentOptions{Timeout: timeout(ctx)})
}

func (p *pwPage) Count(ctx context.Context, selector string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return p.page.Locator(selector).Count()
}

func (p *pwPage) Screenshot(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := p.page.BringToFront(); err != nil {
		return nil, err
	}
	return p.page.Screenshot(playwright.PageScreenshotOptions{Timeout: timeout(ctx)})
}
