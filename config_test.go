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
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/ttbt-io/lotteryverify/history"
	"github.com/ttbt-io/lotteryverify/verify"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("", envMap(nil))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Driver != "chromedp" {
		t.Errorf("Driver = %q", cfg.Driver)
	}
	if cfg.Timeout != 2*time.Minute {
		t.Errorf("Timeout = %v", cfg.Timeout)
	}
	if !slices.Equal(cfg.Scenario.Deck, []string{"A", "B"}) {
		t.Errorf("Deck = %v", cfg.Scenario.Deck)
	}
	if cfg.Scenario.LoopSpins != 3 || cfg.Scenario.ExhaustSpins != 2 {
		t.Errorf("spins = %d/%d", cfg.Scenario.LoopSpins, cfg.Scenario.ExhaustSpins)
	}
	if cfg.Scenario.SettleTimeout != 10*time.Second {
		t.Errorf("SettleTimeout = %v", cfg.Scenario.SettleTimeout)
	}
	if cfg.Serve.Addr != ":8080" {
		t.Errorf("Serve.Addr = %q", cfg.Serve.Addr)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
	if err := cfg.VerifyScenario().Validate(); err != nil {
		t.Errorf("VerifyScenario().Validate: %v", err)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.yaml")
	data := "base_url: http://app:9000/\ndriver: playwright\nscenario:\n  deck: [X, Y, Z]\n  settle_timeout: 3s\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadConfig(path, envMap(nil))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.BaseURL != "http://app:9000/" || cfg.Driver != "playwright" {
		t.Errorf("got base_url=%q driver=%q", cfg.BaseURL, cfg.Driver)
	}
	if !slices.Equal(cfg.Scenario.Deck, []string{"X", "Y", "Z"}) {
		t.Errorf("Deck = %v", cfg.Scenario.Deck)
	}
	if cfg.Scenario.SettleTimeout != 3*time.Second {
		t.Errorf("SettleTimeout = %v", cfg.Scenario.SettleTimeout)
	}
	// Untouched keys keep their defaults.
	if cfg.Scenario.MissMarker != "Miss" {
		t.Errorf("MissMarker = %q", cfg.Scenario.MissMarker)
	}

	s := cfg.VerifyScenario()
	if s.ControllerURL != "http://app:9000/controller.html" {
		t.Errorf("ControllerURL = %q", s.ControllerURL)
	}
	if s.DisplayURL != "http://app:9000/index.html" {
		t.Errorf("DisplayURL = %q", s.DisplayURL)
	}
}

func TestLoadConfigEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path, envMap(nil)); err != nil {
		t.Errorf("LoadConfig(empty): %v", err)
	}
}

func TestLoadConfigUnknownField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "c.yaml")
	if err := os.WriteFile(path, []byte("bse_url: typo\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path, envMap(nil)); err == nil {
		t.Error("expected error for unknown field")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"), envMap(nil))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want ErrNotExist", err)
	}
}

func TestLoadConfigEnv(t *testing.T) {
	cfg, err := LoadConfig("", envMap(map[string]string{
		"LOTTERY_BASE_URL":       "http://other",
		"LOTTERY_DRIVER":         "playwright",
		"LOTTERY_HEADLESS":       "false",
		"LOTTERY_DECK":           "1,2,3",
		"LOTTERY_TIMEOUT":        "30s",
		"LOTTERY_SETTLE_TIMEOUT": "5s",
		"LOTTERY_MASTER_KEY":     "secret",
		"UPDATE_GOLDENS":         "true",
	}))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.BaseURL != "http://other" || cfg.Driver != "playwright" || cfg.Headless {
		t.Errorf("got %+v", cfg)
	}
	if !slices.Equal(cfg.Scenario.Deck, []string{"1", "2", "3"}) {
		t.Errorf("Deck = %v", cfg.Scenario.Deck)
	}
	if cfg.Timeout != 30*time.Second || cfg.Scenario.SettleTimeout != 5*time.Second {
		t.Errorf("timeouts = %v/%v", cfg.Timeout, cfg.Scenario.SettleTimeout)
	}
	if cfg.MasterKey != "secret" || !cfg.UpdateGolden {
		t.Errorf("MasterKey=%q UpdateGolden=%v", cfg.MasterKey, cfg.UpdateGolden)
	}
}

func TestLoadConfigBadEnv(t *testing.T) {
	_, err := LoadConfig("", envMap(map[string]string{
		"LOTTERY_TIMEOUT":  "soon",
		"LOTTERY_HEADLESS": "maybe",
	}))
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"LOTTERY_TIMEOUT", "LOTTERY_HEADLESS"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestConfigValidate(t *testing.T) {
	cfg, err := LoadConfig("", envMap(nil))
	if err != nil {
		t.Fatal(err)
	}
	cfg.Driver = "selenium"
	cfg.Timeout = 0
	cfg.BaseURL = ""
	err = cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"selenium", "timeout", "base_url"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}

	cfg.Driver = ""
	cfg.Timeout = time.Minute
	cfg.WithFixture = true
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate with fixture: %v", err)
	}
}

func TestFinishRun(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{
		HistoryDir: filepath.Join(dir, "history"),
		Golden:     filepath.Join(dir, "run.golden"),
	}
	report := verify.NewReport([]string{"A", "B"})
	report.Passed = true

	var out bytes.Buffer
	if err := finishRun(cfg, report, nil, &out); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("finishRun without golden: %v", err)
	}
	if out.String() != report.Transcript() {
		t.Errorf("output = %q", out.String())
	}

	cfg.UpdateGolden = true
	if err := finishRun(cfg, report, nil, &out); err != nil {
		t.Fatalf("finishRun update: %v", err)
	}
	cfg.UpdateGolden = false
	if err := finishRun(cfg, report, nil, &out); err != nil {
		t.Fatalf("finishRun compare: %v", err)
	}

	store, err := history.OpenStore(cfg.HistoryDir, "")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.LoadReport(report.ID); err != nil {
		t.Errorf("LoadReport: %v", err)
	}

	// A failed run is reported and stored but not compared.
	runErr := errors.New("boom")
	failed := verify.NewReport([]string{"A"})
	if err := finishRun(cfg, failed, runErr, &out); !errors.Is(err, runErr) || errors.Is(err, verify.ErrGoldenMismatch) {
		t.Errorf("finishRun failed run: %v", err)
	}
	if err := finishRun(cfg, nil, runErr, &out); err != runErr {
		t.Errorf("finishRun nil report: %v", err)
	}
}
