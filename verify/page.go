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
	"context"
	"log"
)

// Page is one browser page session. Implementations live in the driver
// package; every call blocks until the browser acknowledged it.
type Page interface {
	// Navigate loads url and waits until the network is idle.
	Navigate(ctx context.Context, url string) error
	// Fill replaces the value of a text field.
	Fill(ctx context.Context, selector, value string) error
	// Check checks a radio button or checkbox.
	Check(ctx context.Context, selector string) error
	// ClickText clicks the element whose visible text matches text.
	ClickText(ctx context.Context, text string) error
	// ClickRole clicks the enabled element with the given ARIA role and
	// accessible name, waiting for it to become enabled.
	ClickRole(ctx context.Context, role, name string) error
	// TextContent returns the text content of the first match.
	TextContent(ctx context.Context, selector string) (string, error)
	// Count returns the number of elements matching selector.
	Count(ctx context.Context, selector string) (int, error)
	// Screenshot captures the viewport as PNG.
	Screenshot(ctx context.Context) ([]byte, error)
}

// Logger interface allows passing *testing.T or log.Printf
type Logger interface {
	Logf(format string, args ...any)
}

// LogFunc adapts a printf-style function to Logger.
type LogFunc func(format string, args ...any)

func (f LogFunc) Logf(format string, args ...any) { f(format, args...) }

// StdLogger writes through the standard log package.
var StdLogger Logger = LogFunc(log.Printf)
