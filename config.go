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
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ttbt-io/lotteryverify/driver"
	"github.com/ttbt-io/lotteryverify/verify"
)

//go:embed etc/lotteryverify.yaml
var defaultConfig []byte

type ScenarioConfig struct {
	Deck             []string         `yaml:"deck"`
	SaveCaption      string           `yaml:"save_caption"`
	SpinButton       string           `yaml:"spin_button"`
	MissMarker       string           `yaml:"miss_marker"`
	LoopSpins        int              `yaml:"loop_spins"`
	ExhaustSpins     int              `yaml:"exhaust_spins"`
	CheckIdempotence bool             `yaml:"check_idempotence"`
	SettleTimeout    time.Duration    `yaml:"settle_timeout"`
	PollInterval     time.Duration    `yaml:"poll_interval"`
	SettleDelay      time.Duration    `yaml:"settle_delay"`
	Selectors        verify.Selectors `yaml:"selectors"`
}

type ServeConfig struct {
	Addr  string `yaml:"addr"`
	Debug bool   `yaml:"debug"`
}

// Config is the merged configuration of all subcommands.
type Config struct {
	BaseURL        string         `yaml:"base_url"`
	ControllerPath string         `yaml:"controller_path"`
	DisplayPath    string         `yaml:"display_path"`
	Driver         string         `yaml:"driver"`
	ChromeURL      string         `yaml:"chrome_url"`
	Headless       bool           `yaml:"headless"`
	OutputDir      string         `yaml:"output_dir"`
	HistoryDir     string         `yaml:"history_dir"`
	Golden         string         `yaml:"golden"`
	Timeout        time.Duration  `yaml:"timeout"`
	Scenario       ScenarioConfig `yaml:"scenario"`
	Serve          ServeConfig    `yaml:"serve"`

	// Only set from the environment or flags.
	MasterKey    string `yaml:"-"`
	UpdateGolden bool   `yaml:"-"`
	WithFixture  bool   `yaml:"-"`
}

type envOverride struct {
	name  string
	apply func(c *Config, v string) error
}

func setString(field func(*Config) *string) func(*Config, string) error {
	return func(c *Config, v string) error {
		*field(c) = v
		return nil
	}
}

func setDuration(field func(*Config) *time.Duration) func(*Config, string) error {
	return func(c *Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*field(c) = d
		return nil
	}
}

var envOverrides = []envOverride{
	{"LOTTERY_BASE_URL", setString(func(c *Config) *string { return &c.BaseURL })},
	{"LOTTERY_DRIVER", setString(func(c *Config) *string { return &c.Driver })},
	{"LOTTERY_CHROME_URL", setString(func(c *Config) *string { return &c.ChromeURL })},
	{"LOTTERY_OUTPUT_DIR", setString(func(c *Config) *string { return &c.OutputDir })},
	{"LOTTERY_HISTORY_DIR", setString(func(c *Config) *string { return &c.HistoryDir })},
	{"LOTTERY_GOLDEN", setString(func(c *Config) *string { return &c.Golden })},
	{"LOTTERY_SERVE_ADDR", setString(func(c *Config) *string { return &c.Serve.Addr })},
	{"LOTTERY_TIMEOUT", setDuration(func(c *Config) *time.Duration { return &c.Timeout })},
	{"LOTTERY_SETTLE_TIMEOUT", setDuration(func(c *Config) *time.Duration { return &c.Scenario.SettleTimeout })},
	{"LOTTERY_HEADLESS", func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		c.Headless = b
		return err
	}},
	{"LOTTERY_DECK", func(c *Config, v string) error {
		c.Scenario.Deck = strings.Split(v, ",")
		return nil
	}},
}

// LoadConfig merges the embedded defaults, the optional file at path and
// the environment.
func LoadConfig(path string, getenv func(string) string) (*Config, error) {
	cfg := &Config{}
	if err := decodeConfig(defaultConfig, cfg); err != nil {
		return nil, fmt.Errorf("embedded defaults: %w", err)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := decodeConfig(data, cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	var errs []error
	for _, o := range envOverrides {
		if v := getenv(o.name); v != "" {
			if err := o.apply(cfg, v); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", o.name, err))
			}
		}
	}
	cfg.MasterKey = getenv("LOTTERY_MASTER_KEY")
	cfg.UpdateGolden = getenv("UPDATE_GOLDENS") == "true"
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeConfig(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate checks the settings used by the run command.
func (c *Config) Validate() error {
	var errs []error
	if _, err := driver.ParseKind(c.Driver); err != nil {
		errs = append(errs, err)
	}
	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive, got %v", c.Timeout))
	}
	if c.BaseURL == "" && !c.WithFixture {
		errs = append(errs, errors.New("base_url is required"))
	}
	return errors.Join(errs...)
}

func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

// VerifyScenario builds the scenario the runner executes.
func (c *Config) VerifyScenario() verify.Scenario {
	s := verify.DefaultScenario()
	s.ControllerURL = joinURL(c.BaseURL, c.ControllerPath)
	s.DisplayURL = joinURL(c.BaseURL, c.DisplayPath)
	s.ArtifactDir = c.OutputDir

	sc := c.Scenario
	s.Deck = sc.Deck
	s.SaveCaption = sc.SaveCaption
	s.SpinButton = sc.SpinButton
	s.MissMarker = sc.MissMarker
	s.LoopSpins = sc.LoopSpins
	s.ExhaustSpins = sc.ExhaustSpins
	s.CheckResetIdempotence = sc.CheckIdempotence
	s.SettleTimeout = sc.SettleTimeout
	s.PollInterval = sc.PollInterval
	s.SettleDelay = sc.SettleDelay
	s.Selectors = sc.Selectors
	return s
}
