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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// ErrGoldenMismatch is wrapped by CompareGolden when the transcript differs.
var ErrGoldenMismatch = errors.New("transcript does not match golden")

// UpdateGoldensFromEnv reports whether UPDATE_GOLDENS=true is set.
func UpdateGoldensFromEnv() bool {
	return os.Getenv("UPDATE_GOLDENS") == "true"
}

// CompareGolden compares actual against the golden file at path. With
// update set it writes the file instead.
func CompareGolden(path, actual string, update bool) error {
	actual = strings.TrimSpace(actual)
	if update {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("failed to create golden directory: %w", err)
		}
		if err := os.WriteFile(path, []byte(actual+"\n"), 0644); err != nil {
			return fmt.Errorf("failed to write golden file %s: %w", path, err)
		}
		return nil
	}

	expectedBytes, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("golden file missing: %s, run with --update-golden to create it: %w", path, err)
		}
		return fmt.Errorf("failed to read golden file %s: %w", path, err)
	}
	expected := strings.TrimSpace(string(expectedBytes))
	if actual == expected {
		return nil
	}
	diff, _ := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(expected + "\n"),
		B:        difflib.SplitLines(actual + "\n"),
		FromFile: "Expected",
		ToFile:   "Actual",
		Context:  3,
	})
	return fmt.Errorf("%w %s:\n%s", ErrGoldenMismatch, path, diff)
}
