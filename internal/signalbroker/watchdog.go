// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package signalbroker

import (
	"context"
	"os"

	"github.com/matt-FFFFFF/obsrun/internal/ctxlog"
)

// Watch monitors the signal channel until it is closed or ctx is done.
// The first signal calls drain, which may be nil. A second signal of the same type
// closes sigCh and calls cancel.
func Watch(ctx context.Context, sigCh chan os.Signal, drain func(), cancel context.CancelFunc) {
	sigMap := make(map[os.Signal]struct{})

	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-sigCh:
			if !ok {
				return
			}

			if _, seen := sigMap[sig]; seen {
				ctxlog.Warn(ctx, "watchdog", "detail", "received second signal of type, cancelling", "signal", sig.String())
				close(sigCh)
				cancel()

				return
			}

			ctxlog.Warn(ctx, "watchdog",
				"detail", "received first signal of type, no further blocks will be launched", "signal", sig.String())

			sigMap[sig] = struct{}{}

			if drain != nil {
				drain()
			}
		}
	}
}
