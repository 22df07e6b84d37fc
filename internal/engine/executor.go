package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/synckit/synckit/internal/cache"
	"github.com/synckit/synckit/internal/dag"
	"github.com/synckit/synckit/internal/nodes"
	"github.com/synckit/synckit/internal/synckit"
)

// Options configures a workflow run.
type Options struct {
	// MaxWorkers bounds how many node invocations run simultaneously
	// across the entire run. Defaults to 4.
	MaxWorkers int
	// UseCache enables fingerprint-based result reuse.
	UseCache bool
	// NodeTimeout aborts a single invocation after the given duration.
	// Zero means no timeout.
	NodeTimeout time.Duration
}

// Executor drives bounded-parallel execution of a workflow graph level by
// level. Execution failures never escape as errors; they become per-node
// statuses in the ExecutionResult.
type Executor struct {
	registry *nodes.Registry
	store    cache.Store
	opts     Options
}

func New(registry *nodes.Registry, store cache.Store, opts Options) *Executor {
	if opts.MaxWorkers <= 0 {
		opts.MaxWorkers = 4
	}
	return &Executor{registry: registry, store: store, opts: opts}
}

// runState is the shared completion table. The executor serializes every
// write through its mutex; node goroutines never touch it directly.
type runState struct {
	mu      sync.Mutex
	results map[string]*synckit.NodeResult
	outputs map[string]map[string]any
}

func (s *runState) set(r *synckit.NodeResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[r.NodeID] = r
	if r.Status == synckit.StatusSuccess || r.Status == synckit.StatusSkippedCached {
		s.outputs[r.NodeID] = r.Output
	}
}

func (s *runState) status(id string) synckit.NodeStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.results[id]; ok {
		return r.Status
	}
	return synckit.StatusPending
}

// Execute validates the workflow, then runs it. A validation failure
// aborts before anything executes; once execution starts, a report is
// always produced.
func (e *Executor) Execute(ctx context.Context, wf *synckit.WorkflowDefinition) (*synckit.ExecutionResult, error) {
	graph, err := dag.Build(wf, e.registry)
	if err != nil {
		return nil, err
	}
	return e.run(ctx, graph), nil
}

func (e *Executor) run(ctx context.Context, graph *dag.Graph) *synckit.ExecutionResult {
	runID := synckit.GenerateID("run")
	started := time.Now()
	state := &runState{
		results: make(map[string]*synckit.NodeResult, graph.NodeCount()),
		outputs: make(map[string]map[string]any, graph.NodeCount()),
	}
	sem := semaphore.NewWeighted(int64(e.opts.MaxWorkers))

	slog.Info("run started", "run_id", runID,
		"nodes", graph.NodeCount(), "levels", len(graph.Levels()), "max_workers", e.opts.MaxWorkers)

	for _, level := range graph.Levels() {
		if ctx.Err() != nil {
			break
		}

		var wg sync.WaitGroup
		for _, nodeID := range level {
			// Dependency failures propagate without invoking the node.
			if blocked(graph, state, nodeID) {
				now := time.Now()
				state.set(&synckit.NodeResult{
					NodeID: nodeID, Type: graph.Node(nodeID).Type,
					Status:    synckit.StatusSkippedDepFailed,
					Error:     "upstream dependency did not succeed",
					StartedAt: now, CompletedAt: now,
				})
				continue
			}

			wg.Add(1)
			go func(nodeID string) {
				defer wg.Done()
				state.set(e.executeNode(ctx, sem, graph, nodeID, state))
			}(nodeID)
		}
		// Level barrier: every node reaches a terminal state before the
		// next level starts.
		wg.Wait()
	}

	// Nodes never reached (stop requested mid-run) are cancelled, unless
	// an upstream failure would have skipped them anyway.
	for _, level := range graph.Levels() {
		for _, nodeID := range level {
			if state.status(nodeID) != synckit.StatusPending {
				continue
			}
			now := time.Now()
			status := synckit.StatusCancelled
			errMsg := "run cancelled before node started"
			if blocked(graph, state, nodeID) {
				status = synckit.StatusSkippedDepFailed
				errMsg = "upstream dependency did not succeed"
			}
			state.set(&synckit.NodeResult{
				NodeID: nodeID, Type: graph.Node(nodeID).Type,
				Status: status, Error: errMsg,
				StartedAt: now, CompletedAt: now,
			})
		}
	}

	result := buildResult(runID, started, state)
	slog.Info("run finished", "run_id", runID, "success", result.Success,
		"duration", result.Duration, "failed", result.Failed, "cached", result.Cached)
	return result
}

// blocked reports whether any dependency of the node ended in a state that
// prevents execution.
func blocked(graph *dag.Graph, state *runState, nodeID string) bool {
	for _, parent := range graph.Parents(nodeID) {
		if state.status(parent).BlocksDependents() {
			return true
		}
	}
	return false
}

// executeNode runs the per-node contract: resolve, fingerprint, consult
// cache, invoke under a worker slot. It always returns a terminal result.
func (e *Executor) executeNode(ctx context.Context, sem *semaphore.Weighted, graph *dag.Graph, nodeID string, state *runState) *synckit.NodeResult {
	spec := graph.Node(nodeID)
	capability := graph.Capability(nodeID)
	result := &synckit.NodeResult{NodeID: nodeID, Type: spec.Type, StartedAt: time.Now()}

	state.mu.Lock()
	resolved := resolveInputs(graph, nodeID, state.outputs)
	state.mu.Unlock()

	key, keyErr := cache.Key(spec.Type, nodeID, resolved)
	if keyErr != nil {
		// Unhashable inputs just lose caching for this node.
		slog.Warn("cache key derivation failed", "node", nodeID, "err", keyErr)
	}

	if e.opts.UseCache && e.store != nil && keyErr == nil {
		if entry, ok := e.store.Get(key); ok {
			result.Status = synckit.StatusSkippedCached
			result.Cached = true
			result.Output = entry.Output
			result.CompletedAt = time.Now()
			slog.Info("node skipped (cached)", "node", nodeID, "type", spec.Type)
			return result
		}
	}

	if err := sem.Acquire(ctx, 1); err != nil {
		result.Status = synckit.StatusCancelled
		result.Error = "run cancelled before node started"
		result.CompletedAt = time.Now()
		return result
	}
	defer sem.Release(1)

	nodeCtx := ctx
	var cancel context.CancelFunc
	if e.opts.NodeTimeout > 0 {
		nodeCtx, cancel = context.WithTimeout(ctx, e.opts.NodeTimeout)
		defer cancel()
	}

	slog.Info("node started", "node", nodeID, "type", spec.Type)
	result.StartedAt = time.Now()
	output, err := invoke(nodeCtx, capability, resolved)
	result.CompletedAt = time.Now()

	if err != nil {
		switch {
		case nodeCtx.Err() == context.DeadlineExceeded:
			result.Status = synckit.StatusFailed
			result.Error = fmt.Sprintf("TimeoutExceeded: invocation exceeded %s", e.opts.NodeTimeout)
		case ctx.Err() != nil:
			result.Status = synckit.StatusCancelled
			result.Error = err.Error()
		default:
			result.Status = synckit.StatusFailed
			result.Error = err.Error()
		}
		slog.Warn("node failed", "node", nodeID, "type", spec.Type, "err", result.Error)
		return result
	}

	result.Status = synckit.StatusSuccess
	result.Output = output
	if e.opts.UseCache && e.store != nil && keyErr == nil {
		if err := e.store.Put(key, output); err != nil {
			slog.Warn("cache store failed", "node", nodeID, "err", err)
		}
	}
	slog.Info("node completed", "node", nodeID, "type", spec.Type,
		"duration", result.Duration())
	return result
}

// invoke calls the capability, converting a panic into a failure so a
// misbehaving node cannot take the whole run down.
func invoke(ctx context.Context, capability nodes.Capability, inputs map[string]any) (output map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			output = nil
			err = fmt.Errorf("node panicked: %v", r)
		}
	}()
	return capability.Execute(ctx, inputs)
}
