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
	"crypto/tls"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ttbt-io/lotteryverify/backend"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		addr    string
		debug   bool
		tlsCert string
		tlsKey  string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the fixture lottery app until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Serve.Addr = addr
			}
			if cmd.Flags().Changed("debug") {
				cfg.Serve.Debug = debug
			}

			var cert *tls.Certificate
			if tlsCert != "" && tlsKey != "" {
				c, err := tls.LoadX509KeyPair(tlsCert, tlsKey)
				if err != nil {
					return fmt.Errorf("failed to load TLS cert/key: %w", err)
				}
				cert = &c
			}

			server, err := backend.StartServer(backend.Options{
				Addr:  cfg.Serve.Addr,
				Cert:  cert,
				Debug: cfg.Serve.Debug,
			})
			if err != nil {
				return fmt.Errorf("failed to start server: %w", err)
			}
			log.Printf("Controller: %s/controller.html", server.URL())
			log.Printf("Display:    %s/index.html", server.URL())

			// Wait for interrupt signal
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			<-ctx.Done()

			log.Println("Shutting down...")
			sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(sctx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			log.Println("Gracefully stopped.")
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&addr, "addr", ":8080", "The TCP address to listen to")
	f.BoolVar(&debug, "debug", false, "Log every request")
	f.StringVar(&tlsCert, "tls-cert", "", "Path to a TLS certificate")
	f.StringVar(&tlsKey, "tls-key", "", "Path to the TLS key")
	return cmd
}
