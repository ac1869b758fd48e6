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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ttbt-io/lotteryverify/history"
	"github.com/ttbt-io/lotteryverify/verify"
)

func newHistoryCmd(a *app) *cobra.Command {
	var dir string
	openStore := func(cmd *cobra.Command) (*history.Store, error) {
		cfg, err := a.load()
		if err != nil {
			return nil, err
		}
		if cmd.Flags().Changed("history-dir") {
			cfg.HistoryDir = dir
		}
		if cfg.HistoryDir == "" {
			return nil, errors.New("no history directory configured (set --history-dir or history_dir)")
		}
		return history.OpenStore(cfg.HistoryDir, cfg.MasterKey)
	}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect stored verification reports",
	}
	cmd.PersistentFlags().StringVar(&dir, "history-dir", "", "Directory of the report history")

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List reports, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			return listReports(store, cmd.OutOrStdout())
		},
	})

	var transcript bool
	show := &cobra.Command{
		Use:   "show <id|latest>",
		Short: "Print one report as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd)
			if err != nil {
				return err
			}
			var r *verify.Report
			if args[0] == "latest" {
				r, err = store.Latest()
			} else {
				r, err = store.LoadReport(args[0])
			}
			if errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("report %s not found", args[0])
			}
			if err != nil {
				return err
			}
			return showReport(r, transcript, cmd.OutOrStdout())
		},
	}
	show.Flags().BoolVar(&transcript, "transcript", false, "Print the transcript instead of JSON")
	cmd.AddCommand(show)
	return cmd
}

func listReports(store *history.Store, out io.Writer) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tDRIVER\tRESULT\tCHECKPOINTS")
	n := 0
	for r, err := range store.ListReports() {
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
			continue
		}
		result := "PASS"
		if !r.Passed {
			result = "FAIL"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", r.ID, r.StartedAt.Format("2006-01-02 15:04:05"), r.Driver, result, len(r.Checkpoints))
		n++
	}
	if n == 0 {
		fmt.Fprintln(out, "No reports found.")
		return nil
	}
	return tw.Flush()
}

func showReport(r *verify.Report, transcript bool, out io.Writer) error {
	if transcript {
		_, err := fmt.Fprint(out, r.Transcript())
		return err
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "%s\n", data)
	return err
}
