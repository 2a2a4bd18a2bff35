package mcphost

import (
	"context"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"
)

// Calibrate sends lightweight probe requests to every registered tool, measures
// their round-trip latency, and updates each tool's assigned [mcp.BudgetTier].
//
// Probes run concurrently using an [errgroup] and respect ctx for cancellation
// and deadline propagation. If ctx is cancelled, outstanding probes are
// abandoned and Calibrate returns the context error.
//
// The probe is a minimal call with an empty JSON object ("{}") as arguments.
// Tools with required parameters usually answer with an error; the latency
// still counts. Server tools are probed only when annotated with
// readOnlyHint; a tool that may write is never called with made-up input.
// Pass skip to leave builtin tools with side effects (create_file, for
// instance) alone as well.
//
// After calibration completes, each tool's tier is reassigned:
//
//	MeasuredP50 ≤  500ms → [mcp.BudgetFast]
//	MeasuredP50 ≤ 1500ms → [mcp.BudgetStandard]
//	otherwise            → [mcp.BudgetDeep]
//
// If a tool's error rate within the window exceeds 30%, it is marked degraded
// and its tier is bumped up by one level.
func (h *Host) Calibrate(ctx context.Context) error {
	return h.CalibrateExcept(ctx)
}

// CalibrateExcept is [Host.Calibrate] without probing the named tools.
func (h *Host) CalibrateExcept(ctx context.Context, skip ...string) error {
	// Snapshot tool names under a read lock to avoid holding the lock
	// during potentially slow network calls.
	h.mu.RLock()
	names := make([]string, 0, len(h.tools))
	for name, e := range h.tools {
		if e.sideEffects || slices.Contains(skip, name) {
			continue
		}
		names = append(names, name)
	}
	h.mu.RUnlock()

	g, gctx := errgroup.WithContext(ctx)

	for _, name := range names {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			h.probeOne(gctx, name)
			return nil
		})
	}

	// Per-tool failures live in the rolling window; only cancellation propagates.
	return g.Wait()
}

// probeOne sends a single probe to the named tool and records the result.
func (h *Host) probeOne(ctx context.Context, name string) {
	h.mu.RLock()
	entry, ok := h.tools[name]
	h.mu.RUnlock()
	if !ok {
		return
	}

	start := time.Now()
	var isError bool

	if entry.builtinFn != nil {
		_, err := entry.builtinFn(ctx, "{}")
		isError = err != nil
	} else {
		result, err := h.executeMCPTool(ctx, entry, "{}")
		isError = err != nil || (result != nil && result.IsError)
	}

	durationMs := time.Since(start).Milliseconds()

	h.mu.Lock()
	defer h.mu.Unlock()
	entry, ok = h.tools[name]
	if !ok {
		return
	}
	entry.record(durationMs, isError)
	h.tools[name] = entry
}
