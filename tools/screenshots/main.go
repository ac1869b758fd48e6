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

// screenshots renders the controller and display of the fixture app in a
// few representative states, for the README.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/ttbt-io/lotteryverify/backend"
	"github.com/ttbt-io/lotteryverify/tools/e2ehelpers"
)

var (
	chromeURL = flag.String("chrome-url", "", "The url of the remote debugging port")
	outputDir = flag.String("output-dir", "/screenshots", "Directory to save screenshots")
	appHost   = flag.String("app-host", "devtest.local", "Host name under which the browser reaches this process")
)

func main() {
	flag.Parse()

	if *chromeURL == "" {
		log.Fatal("--chrome-url must be set")
	}

	server, baseURL := startServer()
	defer server.Shutdown(context.Background())
	log.Printf("Server started at %s", baseURL)

	ctx, cancel := chromedp.NewRemoteAllocator(context.Background(), *chromeURL)
	defer cancel()

	ctx, cancel = chromedp.NewContext(ctx, chromedp.WithLogf(log.Printf))
	defer cancel()

	ctx, cancel = context.WithTimeout(ctx, 120*time.Second)
	defer cancel()

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		log.Fatalf("Failed to create output dir: %v", err)
	}

	log.Println("Starting screenshot generation...")
	if err := generateScreenshots(ctx, baseURL); err != nil {
		log.Fatalf("Failed to generate screenshots: %v", err)
	}
	log.Println("Screenshots generated successfully.")
}

func debugFailure(ctx context.Context, name string) {
	log.Printf("DEBUG: capturing failure info for %s", name)
	var htmlContent string
	if err := chromedp.Run(ctx, chromedp.OuterHTML("html", &htmlContent)); err != nil {
		log.Printf("DEBUG: Failed to capture HTML: %v", err)
	} else {
		log.Printf("DEBUG: HTML Dump for %s:\n%s", name, htmlContent)
	}
	if err := e2ehelpers.CaptureScreenshot(ctx, filepath.Join(*outputDir, fmt.Sprintf("debug-%s.png", name))); err != nil {
		log.Printf("DEBUG: Failed to capture screenshot: %v", err)
	}
}

// runAction executes a chromedp action with a timeout and debug capture on failure.
func runAction(ctx context.Context, name string, action chromedp.Action, timeout time.Duration) error {
	stepCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := chromedp.Run(stepCtx, action); err != nil {
		log.Printf("Action '%s' failed: %v", name, err)
		debugFailure(ctx, name+"-failed")
		return err
	}
	return nil
}

func capture(ctx context.Context, filename string) error {
	return e2ehelpers.CaptureScreenshot(ctx, filepath.Join(*outputDir, filename))
}

func generateScreenshots(ctx context.Context, baseURL string) error {
	display, cancel := chromedp.NewContext(ctx)
	defer cancel()

	if err := runAction(ctx, "open-controller", chromedp.Tasks{
		chromedp.EmulateViewport(1024, 900),
		e2ehelpers.NavigateNetworkIdle(baseURL + "/controller.html"),
		e2ehelpers.DisableCSSAnimations(),
	}, 15*time.Second); err != nil {
		return err
	}
	if err := runAction(display, "open-display", chromedp.Tasks{
		chromedp.EmulateViewport(1280, 720),
		e2ehelpers.NavigateNetworkIdle(baseURL + "/index.html"),
		e2ehelpers.DisableCSSAnimations(),
	}, 15*time.Second); err != nil {
		return err
	}

	deck := []string{"Apple", "Banana", "Cherry", "Durian"}
	if err := e2ehelpers.SaveDeck(ctx, deck, "loop"); err != nil {
		return fmt.Errorf("save deck: %w", err)
	}
	if err := runAction(ctx, "deck-saved", e2ehelpers.WaitDeckCount(len(deck), 5*time.Second), 10*time.Second); err != nil {
		return err
	}
	if err := capture(ctx, "controller.png"); err != nil {
		return err
	}

	// A few spins per player, loop mode.
	spins := 0
	for round := 0; round < 2; round++ {
		for player := 1; player <= 4; player++ {
			if err := e2ehelpers.Spin(ctx, player); err != nil {
				return fmt.Errorf("spin %dP: %w", player, err)
			}
			spins++
			if err := runAction(display, "spin", e2ehelpers.WaitCount(e2ehelpers.HistorySelector(player), round+1, 5*time.Second), 10*time.Second); err != nil {
				return err
			}
		}
	}
	log.Printf("%d spins in loop mode", spins)
	if err := capture(display, "display_loop.png"); err != nil {
		return err
	}

	// Exhaust mode until player 1 draws a miss.
	if err := e2ehelpers.SaveDeck(ctx, deck[:2], "exhaust"); err != nil {
		return fmt.Errorf("save deck: %w", err)
	}
	for i := 1; i <= 3; i++ {
		if err := e2ehelpers.Spin(ctx, 1); err != nil {
			return fmt.Errorf("spin 1P: %w", err)
		}
		if err := runAction(display, "exhaust-spin", e2ehelpers.WaitCount(e2ehelpers.HistorySelector(1), i, 5*time.Second), 10*time.Second); err != nil {
			return err
		}
	}
	if err := capture(display, "display_exhaust_miss.png"); err != nil {
		return err
	}
	return capture(ctx, "controller_exhausted.png")
}

func startServer() (*backend.Server, string) {
	l, err := net.Listen("tcp", "0.0.0.0:0")
	if err != nil {
		log.Fatalf("Failed to listen: %v", err)
	}
	server, err := backend.StartServer(backend.Options{Listener: l})
	if err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
	_, port, _ := net.SplitHostPort(l.Addr().String())
	return server, fmt.Sprintf("http://%s:%s", *appHost, port)
}
