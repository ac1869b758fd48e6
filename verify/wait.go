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
	"errors"
	"fmt"
	"time"
)

// ErrWaitTimeout is wrapped by WaitFor when the condition never held.
var ErrWaitTimeout = errors.New("timeout waiting for condition")

// Condition is polled by WaitFor. The returned string describes what was
// observed and ends up in the timeout error.
type Condition func(ctx context.Context) (ok bool, observed string, err error)

// WaitFor polls cond every interval until it holds, returns an error, or
// timeout elapses. The first check happens immediately.
func WaitFor(ctx context.Context, interval, timeout time.Duration, what string, cond Condition) error {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last string
	for {
		ok, observed, err := cond(timeoutCtx)
		if err != nil {
			if timeoutCtx.Err() != nil && ctx.Err() == nil {
				return fmt.Errorf("%w: %s (last observed: %s)", ErrWaitTimeout, what, last)
			}
			return fmt.Errorf("waiting for %s: %w", what, err)
		}
		if ok {
			return nil
		}
		last = observed

		select {
		case <-ticker.C:
		case <-timeoutCtx.Done():
			if ctx.Err() != nil {
				return fmt.Errorf("waiting for %s: %w", what, ctx.Err())
			}
			return fmt.Errorf("%w: %s (last observed: %s)", ErrWaitTimeout, what, last)
		}
	}
}
