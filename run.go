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

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ttbt-io/lotteryverify/backend"
	"github.com/ttbt-io/lotteryverify/driver"
	"github.com/ttbt-io/lotteryverify/history"
	"github.com/ttbt-io/lotteryverify/verify"
)

func newRunCmd(a *app) *cobra.Command {
	var (
		driverName   string
		chromeURL    string
		baseURL      string
		outputDir    string
		historyDir   string
		golden       string
		updateGolden bool
		withFixture  bool
		checkIdem    bool
		headless     bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the loop/exhaust verification scenario",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.load()
			if err != nil {
				return err
			}
			f := cmd.Flags()
			if f.Changed("driver") {
				cfg.Driver = driverName
			}
			if f.Changed("chrome-url") {
				cfg.ChromeURL = chromeURL
			}
			if f.Changed("base-url") {
				cfg.BaseURL = baseURL
			}
			if f.Changed("output-dir") {
				cfg.OutputDir = outputDir
			}
			if f.Changed("history-dir") {
				cfg.HistoryDir = historyDir
			}
			if f.Changed("golden") {
				cfg.Golden = golden
			}
			if f.Changed("update-golden") {
				cfg.UpdateGolden = updateGolden
			}
			if f.Changed("check-idempotence") {
				cfg.Scenario.CheckIdempotence = checkIdem
			}
			if f.Changed("headless") {
				cfg.Headless = headless
			}
			cfg.WithFixture = withFixture
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			report, runErr := runVerification(ctx, cfg, verify.StdLogger)
			return finishRun(cfg, report, runErr, cmd.OutOrStdout())
		},
	}
	f := cmd.Flags()
	f.StringVar(&driverName, "driver", "", "Browser driver: chromedp or playwright")
	f.StringVar(&chromeURL, "chrome-url", "", "Remote debugging URL of a running browser")
	f.StringVar(&baseURL, "base-url", "", "Base URL of the lottery app")
	f.StringVar(&outputDir, "output-dir", "", "Directory for the screenshots")
	f.StringVar(&historyDir, "history-dir", "", "Directory of the report history")
	f.StringVar(&golden, "golden", "", "Transcript golden file to compare against")
	f.BoolVar(&updateGolden, "update-golden", false, "Rewrite the golden file instead of comparing")
	f.BoolVar(&withFixture, "with-fixture", false, "Serve the built-in fixture app on a free local port and run against it")
	f.BoolVar(&checkIdem, "check-idempotence", false, "Save & reset twice and require the same deck count")
	f.BoolVar(&headless, "headless", true, "Launch the browser headless")
	return cmd
}

// runVerification opens the browser, runs the scenario and closes the
// browser again on every path.
func runVerification(ctx context.Context, cfg *Config, logger verify.Logger) (*verify.Report, error) {
	if cfg.WithFixture {
		l, err := net.Listen("tcp", "localhost:0")
		if err != nil {
			return nil, fmt.Errorf("fixture listener: %w", err)
		}
		srv, err := backend.StartServer(backend.Options{Listener: l, Debug: cfg.Serve.Debug})
		if err != nil {
			return nil, fmt.Errorf("fixture server: %w", err)
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(sctx); err != nil {
				log.Printf("Fixture shutdown: %v", err)
			}
		}()
		cfg.BaseURL = srv.URL()
		log.Printf("Fixture app at %s", cfg.BaseURL)
	}

	kind, err := driver.ParseKind(cfg.Driver)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	sess, err := driver.Open(ctx, driver.Options{
		Kind:      kind,
		RemoteURL: cfg.ChromeURL,
		Headless:  cfg.Headless,
		Logf:      log.Printf,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open browser: %w", err)
	}
	defer func() {
		if err := sess.Close(); err != nil {
			log.Printf("Browser teardown: %v", err)
		}
	}()

	r := verify.NewRunner(cfg.VerifyScenario(), logger)
	r.Driver = string(kind)
	return r.Run(ctx, sess.Controller, sess.Display)
}

// finishRun prints the transcript, stores the report and compares the
// golden file. The scenario error comes first in the returned error.
func finishRun(cfg *Config, report *verify.Report, runErr error, out io.Writer) error {
	if report == nil {
		return runErr
	}
	fmt.Fprint(out, report.Transcript())

	errs := []error{runErr}
	if cfg.HistoryDir != "" {
		store, err := history.OpenStore(cfg.HistoryDir, cfg.MasterKey)
		if err == nil {
			err = store.SaveReport(report)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("history: %w", err))
		} else {
			log.Printf("Saved report %s", report.ID)
		}
	}
	if cfg.Golden != "" && runErr == nil {
		if err := verify.CompareGolden(cfg.Golden, report.Transcript(), cfg.UpdateGolden); err != nil {
			errs = append(errs, err)
		} else if cfg.UpdateGolden {
			log.Printf("Updated golden %s", cfg.Golden)
		}
	}
	return errors.Join(errs...)
}
