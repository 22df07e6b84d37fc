package engine

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/synckit/synckit/internal/synckit"
)

// buildResult assembles the immutable run report. Node records are ordered
// by completion time; already-executed nodes are never mutated afterwards.
func buildResult(runID string, started time.Time, state *runState) *synckit.ExecutionResult {
	state.mu.Lock()
	defer state.mu.Unlock()

	records := make([]synckit.NodeResult, 0, len(state.results))
	for _, r := range state.results {
		records = append(records, *r)
	}
	sort.Slice(records, func(i, j int) bool {
		if !records[i].CompletedAt.Equal(records[j].CompletedAt) {
			return records[i].CompletedAt.Before(records[j].CompletedAt)
		}
		return records[i].NodeID < records[j].NodeID
	})

	result := &synckit.ExecutionResult{
		RunID:       runID,
		StartedAt:   started,
		CompletedAt: time.Now(),
		TotalNodes:  len(records),
		Nodes:       records,
	}
	result.Duration = result.CompletedAt.Sub(started)

	success := true
	for _, r := range records {
		switch r.Status {
		case synckit.StatusSuccess:
			result.Completed++
		case synckit.StatusSkippedCached:
			result.Cached++
		case synckit.StatusFailed:
			result.Failed++
			success = false
		case synckit.StatusSkippedDepFailed:
			result.Skipped++
			success = false
		default:
			success = false
		}
	}
	result.Success = success
	return result
}

// WriteReport writes the execution report as JSON. An empty path writes to
// stdout. A write failure is surfaced to the caller; the in-memory result
// stays valid either way.
func WriteReport(result *synckit.ExecutionResult, path string) error {
	var w io.Writer = os.Stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create report file: %w", err)
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
