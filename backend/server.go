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

// Package backend serves the embedded lottery fixture app.
package backend

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/ttbt-io/lotteryverify/frontend"
)

type Options struct {
	// Addr is the listen address, e.g. ":8080". Ignored when Listener is set.
	Addr     string
	Listener net.Listener
	Cert     *tls.Certificate
	Debug    bool
	// FS replaces the embedded frontend.
	FS fs.FS
}

// Server represents the running server instance.
type Server struct {
	httpServer *http.Server
	listener   net.Listener
	metrics    *Metrics
	tls        bool
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("http: %w", err)
	}
	return nil
}

// URL returns the base URL the server is reachable at, without a trailing
// slash. Wildcard listen addresses are reported as localhost.
func (s *Server) URL() string {
	scheme := "http"
	if s.tls {
		scheme = "https"
	}
	host, port, err := net.SplitHostPort(s.listener.Addr().String())
	if err != nil {
		return scheme + "://" + s.listener.Addr().String()
	}
	if ip := net.ParseIP(host); host == "" || (ip != nil && ip.IsUnspecified()) {
		host = "localhost"
	}
	return fmt.Sprintf("%s://%s", scheme, net.JoinHostPort(host, port))
}

// Metrics returns the request metrics of the server.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// StartServer listens on opts.Addr (or uses opts.Listener) and serves the
// fixture app in the background.
func StartServer(opts Options) (*Server, error) {
	l := opts.Listener
	if l == nil {
		var err error
		if l, err = net.Listen("tcp", opts.Addr); err != nil {
			return nil, fmt.Errorf("listen %s: %w", opts.Addr, err)
		}
	}

	metrics := NewMetrics()
	handler, err := NewServerHandler(opts, metrics)
	if err != nil {
		l.Close()
		return nil, err
	}
	httpServer := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if opts.Cert != nil {
		httpServer.TLSConfig = &tls.Config{
			Certificates: []tls.Certificate{*opts.Cert},
		}
	}

	go func() {
		var err error
		if httpServer.TLSConfig != nil {
			log.Printf("Starting HTTPS server on %s...", l.Addr())
			err = httpServer.ServeTLS(l, "", "")
		} else {
			log.Printf("Starting HTTP server on %s...", l.Addr())
			err = httpServer.Serve(l)
		}
		if err != nil && !errors.Is(err, net.ErrClosed) && err != http.ErrServerClosed {
			log.Printf("Server error: %v", err)
		}
	}()

	return &Server{
		httpServer: httpServer,
		listener:   l,
		metrics:    metrics,
		tls:        opts.Cert != nil,
	}, nil
}

// NewServerHandler creates the HTTP handler for the fixture app.
func NewServerHandler(opts Options, metrics *Metrics) (http.Handler, error) {
	content := opts.FS
	if content == nil {
		content = frontend.FS
	}
	if metrics == nil {
		metrics = NewMetrics()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok\n"))
	})
	mux.HandleFunc("/api/metrics", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(metrics.Snapshot())
	})
	mux.Handle("/", contentTypeMiddleware(http.FileServerFS(content)))

	handler := http.Handler(mux)
	handler = metricsMiddleware(metrics, handler)
	if opts.Debug {
		handler = loggingMiddleware(handler)
	}
	handler = securityMiddleware(handler)
	handler = cacheControlMiddleware(handler)
	return handler, nil
}

// cacheControlMiddleware keeps browsers from running a scenario against
// stale pages or scripts.
func cacheControlMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch ext := filepath.Ext(r.URL.Path); {
		case strings.HasPrefix(r.URL.Path, "/api/") || r.URL.Path == "/healthz":
			w.Header().Set("Cache-Control", "private, no-cache, no-transform")
		case ext == "" || ext == ".html" || ext == ".js" || ext == ".mjs" || ext == ".css":
			w.Header().Set("Cache-Control", "no-cache")
		default:
			w.Header().Set("Cache-Control", "public, max-age=300, proxy-revalidate, no-transform")
		}
		next.ServeHTTP(w, r)
	})
}

// securityMiddleware adds HTTP security headers to responses. The pages
// attach every handler from their scripts, so inline scripts stay blocked.
func securityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data: blob:")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// contentTypeMiddleware ensures that files are served with the correct MIME type.
func contentTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ext := filepath.Ext(r.URL.Path)
		switch ext {
		case ".js", ".mjs":
			w.Header().Set("Content-Type", "application/javascript")
		case ".css":
			w.Header().Set("Content-Type", "text/css; charset=utf-8")
		case ".html":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
		case ".png":
			w.Header().Set("Content-Type", "image/png")
		case ".json":
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
		}
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs the method and URL path of every incoming HTTP request.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("Received request: %s %s", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}
