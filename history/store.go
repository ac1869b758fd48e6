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

// Package history persists verification reports.
package history

import (
	"errors"
	"fmt"
	"iter"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/c2FmZQ/storage"
	"github.com/c2FmZQ/storage/crypto"
	"github.com/ttbt-io/lotteryverify/verify"
)

const reportsDir = "reports"

// MasterKeyFile is the name of the encrypted master key inside the data
// directory.
const MasterKeyFile = "master.key"

// Store manages report persistence to disk.
type Store struct {
	DataDir string
	storage *storage.Storage
	mu      sync.Mutex
}

// NewStore creates a new Store.
func NewStore(dataDir string, s *storage.Storage) *Store {
	return &Store{
		DataDir: dataDir,
		storage: s,
	}
}

// OpenStore opens the store at dataDir. With a passphrase the reports are
// encrypted with the master key in dataDir, which is created on first use.
// Without one, opening fails if a master key exists, so encrypted history
// is never mixed with plaintext reports.
func OpenStore(dataDir, passphrase string) (*Store, error) {
	keyFile := filepath.Join(dataDir, MasterKeyFile)
	var masterKey crypto.MasterKey
	if passphrase != "" {
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
		var err error
		masterKey, err = crypto.ReadMasterKey([]byte(passphrase), keyFile)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read master key: %w", err)
			}
			log.Println("Initializing new master encryption key...")
			if masterKey, err = crypto.CreateMasterKey(); err != nil {
				return nil, fmt.Errorf("failed to create master key: %w", err)
			}
			if err := masterKey.Save([]byte(passphrase), keyFile); err != nil {
				return nil, fmt.Errorf("failed to save master key: %w", err)
			}
		}
	} else if _, err := os.Stat(keyFile); err == nil {
		return nil, fmt.Errorf("%s exists but no master key passphrase is set, refusing to open history unencrypted", keyFile)
	}

	s := storage.New(dataDir, masterKey)
	s.EnableCompression(true)
	return NewStore(dataDir, s), nil
}

func reportFile(id string) string {
	return filepath.Join(reportsDir, fmt.Sprintf("%s.json", url.PathEscape(id)))
}

// SaveReport saves the report under its ID.
func (s *Store) SaveReport(r *verify.Report) error {
	if r.ID == "" {
		return errors.New("report has no ID")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.storage.SaveDataFile(reportFile(r.ID), r); err != nil {
		return fmt.Errorf("storage.SaveDataFile: %w", err)
	}
	return nil
}

// LoadReport loads a report by ID. It returns os.ErrNotExist when there is
// no such report.
func (s *Store) LoadReport(id string) (*verify.Report, error) {
	var r verify.Report
	if err := s.storage.ReadDataFile(reportFile(id), &r); err != nil {
		if os.IsNotExist(err) {
			return nil, os.ErrNotExist
		}
		return nil, fmt.Errorf("ReadDataFile: %w", err)
	}
	return &r, nil
}

// ListReports returns an iterator over all reports, newest first.
func (s *Store) ListReports() iter.Seq2[*verify.Report, error] {
	return func(yield func(*verify.Report, error) bool) {
		files, err := os.ReadDir(filepath.Join(s.DataDir, reportsDir))
		if err != nil {
			if !os.IsNotExist(err) {
				yield(nil, fmt.Errorf("could not read reports directory: %w", err))
			}
			return
		}

		var reports []*verify.Report
		for _, file := range files {
			if file.IsDir() || !strings.HasSuffix(file.Name(), ".json") {
				continue
			}
			id, err := url.PathUnescape(strings.TrimSuffix(file.Name(), ".json"))
			if err != nil {
				continue
			}
			r, err := s.LoadReport(id)
			if err != nil {
				if !yield(nil, fmt.Errorf("report %s: %w", id, err)) {
					return
				}
				continue
			}
			reports = append(reports, r)
		}
		sort.SliceStable(reports, func(i, j int) bool {
			return reports[i].StartedAt.After(reports[j].StartedAt)
		})
		for _, r := range reports {
			if !yield(r, nil) {
				return
			}
		}
	}
}

// Latest returns the most recent report, or os.ErrNotExist.
func (s *Store) Latest() (*verify.Report, error) {
	for r, err := range s.ListReports() {
		if err != nil {
			continue
		}
		return r, nil
	}
	return nil, os.ErrNotExist
}
