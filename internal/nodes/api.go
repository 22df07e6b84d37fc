package nodes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/synckit/synckit/internal/synckit"
)

// LipsyncBatch submits video/audio pairs from a manifest to a third-party
// lipsync batch API, several jobs in flight at once.
type LipsyncBatch struct {
	URL        string
	APIKey     string
	MaxWorkers int
	Client     *http.Client
}

func (LipsyncBatch) Type() string        { return "lipsync_batch" }
func (LipsyncBatch) Description() string { return "Submit manifest pairs to the lipsync batch API." }
func (LipsyncBatch) Category() string    { return "api" }

func (LipsyncBatch) Inputs() []synckit.InputPort {
	return []synckit.InputPort{
		{Name: "manifest_file", Type: synckit.PortPath, Required: true},
		{Name: "start_index", Type: synckit.PortNumber, Required: false, Default: 0.0},
		{Name: "end_index", Type: synckit.PortNumber, Required: false, Default: -1.0, Description: "-1 means the last pair"},
		{Name: "output_dir", Type: synckit.PortDirectory, Required: false},
	}
}

func (LipsyncBatch) Outputs() []synckit.OutputPort {
	return []synckit.OutputPort{
		{Name: "job_results", Type: synckit.PortRecord},
		{Name: "output_directory", Type: synckit.PortDirectory},
	}
}

type lipsyncJob struct {
	Index    int    `json:"index"`
	Name     string `json:"name,omitempty"`
	JobID    string `json:"job_id,omitempty"`
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
	VideoURL string `json:"video_url"`
	AudioURL string `json:"audio_url"`
}

func (n LipsyncBatch) Execute(ctx context.Context, inputs map[string]any) (map[string]any, error) {
	if n.URL == "" {
		return nil, fmt.Errorf("lipsync API URL is not configured")
	}
	manifestPath, err := stringInput(inputs, "manifest_file")
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if len(manifest.Pairs) == 0 {
		return nil, fmt.Errorf("manifest %q has no pairs", manifestPath)
	}

	start := int(numberInput(inputs, "start_index", 0))
	end := int(numberInput(inputs, "end_index", -1))
	if end < 0 || end >= len(manifest.Pairs) {
		end = len(manifest.Pairs) - 1
	}
	if start < 0 || start > end {
		return nil, fmt.Errorf("bad index range [%d, %d] for %d pairs", start, end, len(manifest.Pairs))
	}

	outDir := optionalString(inputs, "output_dir", "")
	if outDir != "" {
		if err := os.MkdirAll(outDir, 0755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
	}

	workers := n.MaxWorkers
	if workers < 1 {
		workers = 5
	}
	client := n.Client
	if client == nil {
		client = http.DefaultClient
	}

	var mu sync.Mutex
	var jobs []lipsyncJob

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := start; i <= end; i++ {
		i, pair := i, manifest.Pairs[i]
		g.Go(func() error {
			job := lipsyncJob{Index: i, Name: pair.Name, VideoURL: pair.VideoURL, AudioURL: pair.AudioURL}
			jobID, err := n.submit(gCtx, client, pair)
			if err != nil {
				// One rejected pair should not sink the whole batch.
				job.Status = "error"
				job.Error = err.Error()
			} else {
				job.Status = "submitted"
				job.JobID = jobID
			}
			mu.Lock()
			jobs = append(jobs, job)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Index < jobs[j].Index })

	submitted, failed := 0, 0
	records := make([]any, 0, len(jobs))
	for _, j := range jobs {
		if j.Status == "submitted" {
			submitted++
		} else {
			failed++
		}
		rec, err := toRecord(j)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if submitted == 0 {
		return nil, fmt.Errorf("all %d lipsync submissions failed", failed)
	}

	return map[string]any{
		"job_results": map[string]any{
			"submitted": float64(submitted),
			"failed":    float64(failed),
			"jobs":      records,
		},
		"output_directory": outDir,
	}, nil
}

func (n LipsyncBatch) submit(ctx context.Context, client *http.Client, pair ManifestPair) (string, error) {
	body, err := json.Marshal(map[string]string{
		"video_url": pair.VideoURL,
		"audio_url": pair.AudioURL,
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.URL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if n.APIKey != "" {
		req.Header.Set("x-api-key", n.APIKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("submit job: %w", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("submit job: status %s: %s", resp.Status, bytes.TrimSpace(raw))
	}

	var parsed struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil || parsed.ID == "" {
		return "", fmt.Errorf("submit job: response has no job id")
	}
	return parsed.ID, nil
}

// toRecord converts a struct to the map shape used on record ports.
func toRecord(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	var rec map[string]any
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return rec, nil
}
