package nodes

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/synckit/synckit/internal/synckit"
)

// LoadVideo verifies a video file exists and exposes it to the graph.
type LoadVideo struct{}

func (LoadVideo) Type() string        { return "load_video" }
func (LoadVideo) Description() string { return "Load a single video file into the workflow." }
func (LoadVideo) Category() string    { return "input" }

func (LoadVideo) Inputs() []synckit.InputPort {
	return []synckit.InputPort{
		{Name: "video_path", Type: synckit.PortPath, Required: true, Description: "Path to the video file"},
	}
}

func (LoadVideo) Outputs() []synckit.OutputPort {
	return []synckit.OutputPort{
		{Name: "video_path", Type: synckit.PortPath},
		{Name: "video_list", Type: synckit.PortPathList},
	}
}

func (LoadVideo) Execute(_ context.Context, inputs map[string]any) (map[string]any, error) {
	path, err := stringInput(inputs, "video_path")
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("video file not found: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("video path %q is a directory", path)
	}
	return map[string]any{
		"video_path": path,
		"video_list": []any{path},
	}, nil
}

// LoadAudio verifies an audio file exists and exposes it to the graph.
type LoadAudio struct{}

func (LoadAudio) Type() string        { return "load_audio" }
func (LoadAudio) Description() string { return "Load a single audio file into the workflow." }
func (LoadAudio) Category() string    { return "input" }

func (LoadAudio) Inputs() []synckit.InputPort {
	return []synckit.InputPort{
		{Name: "audio_path", Type: synckit.PortPath, Required: true, Description: "Path to the audio file"},
	}
}

func (LoadAudio) Outputs() []synckit.OutputPort {
	return []synckit.OutputPort{
		{Name: "audio_path", Type: synckit.PortPath},
		{Name: "audio_list", Type: synckit.PortPathList},
	}
}

func (LoadAudio) Execute(_ context.Context, inputs map[string]any) (map[string]any, error) {
	path, err := stringInput(inputs, "audio_path")
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("audio file not found: %w", err)
	}
	return map[string]any{
		"audio_path": path,
		"audio_list": []any{path},
	}, nil
}

// LoadDirectory lists files in a directory matching a glob pattern.
type LoadDirectory struct{}

func (LoadDirectory) Type() string        { return "load_directory" }
func (LoadDirectory) Description() string { return "List files in a directory matching a glob pattern." }
func (LoadDirectory) Category() string    { return "input" }

func (LoadDirectory) Inputs() []synckit.InputPort {
	return []synckit.InputPort{
		{Name: "directory", Type: synckit.PortDirectory, Required: true},
		{Name: "pattern", Type: synckit.PortText, Required: false, Default: "*", Description: "Glob pattern applied to file names"},
	}
}

func (LoadDirectory) Outputs() []synckit.OutputPort {
	return []synckit.OutputPort{
		{Name: "directory", Type: synckit.PortDirectory},
		{Name: "file_list", Type: synckit.PortPathList},
	}
}

func (LoadDirectory) Execute(_ context.Context, inputs map[string]any) (map[string]any, error) {
	dir, err := stringInput(inputs, "directory")
	if err != nil {
		return nil, err
	}
	pattern := optionalString(inputs, "pattern", "*")

	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("directory not found: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%q is not a directory", dir)
	}

	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
	}
	var files []string
	for _, m := range matches {
		if fi, err := os.Stat(m); err == nil && !fi.IsDir() {
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return map[string]any{
		"directory": dir,
		"file_list": toAnyList(files),
	}, nil
}

// LoadCSV reads a CSV file into a list of header-keyed records.
type LoadCSV struct{}

func (LoadCSV) Type() string        { return "load_csv" }
func (LoadCSV) Description() string { return "Load a CSV file as a list of header-keyed records." }
func (LoadCSV) Category() string    { return "input" }

func (LoadCSV) Inputs() []synckit.InputPort {
	return []synckit.InputPort{
		{Name: "csv_path", Type: synckit.PortPath, Required: true},
	}
}

func (LoadCSV) Outputs() []synckit.OutputPort {
	return []synckit.OutputPort{
		{Name: "csv_path", Type: synckit.PortPath},
		{Name: "csv_data", Type: synckit.PortRecord},
	}
}

func (LoadCSV) Execute(_ context.Context, inputs map[string]any) (map[string]any, error) {
	path, err := stringInput(inputs, "csv_path")
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("csv file %q is empty", path)
	}

	header := rows[0]
	records := make([]any, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := make(map[string]any, len(header))
		for i, col := range header {
			if i < len(row) {
				rec[col] = row[i]
			}
		}
		records = append(records, rec)
	}
	return map[string]any{
		"csv_path": path,
		"csv_data": map[string]any{"columns": toAnyList(header), "rows": records},
	}, nil
}

// LoadManifest reads a JSON manifest of video/audio pairs.
type LoadManifest struct{}

func (LoadManifest) Type() string        { return "load_manifest" }
func (LoadManifest) Description() string { return "Load a JSON manifest of video/audio URL pairs." }
func (LoadManifest) Category() string    { return "input" }

func (LoadManifest) Inputs() []synckit.InputPort {
	return []synckit.InputPort{
		{Name: "manifest_path", Type: synckit.PortPath, Required: true},
	}
}

func (LoadManifest) Outputs() []synckit.OutputPort {
	return []synckit.OutputPort{
		{Name: "manifest_path", Type: synckit.PortPath},
		{Name: "manifest", Type: synckit.PortRecord},
		{Name: "video_urls", Type: synckit.PortPathList},
		{Name: "audio_urls", Type: synckit.PortPathList},
	}
}

func (LoadManifest) Execute(_ context.Context, inputs map[string]any) (map[string]any, error) {
	path, err := stringInput(inputs, "manifest_path")
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	videoURLs := make([]any, 0, len(manifest.Pairs))
	audioURLs := make([]any, 0, len(manifest.Pairs))
	for _, p := range manifest.Pairs {
		videoURLs = append(videoURLs, p.VideoURL)
		audioURLs = append(audioURLs, p.AudioURL)
	}

	var rec map[string]any
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return map[string]any{
		"manifest_path": path,
		"manifest":      rec,
		"video_urls":    videoURLs,
		"audio_urls":    audioURLs,
	}, nil
}

// Manifest is the JSON manifest shape shared by create_manifest,
// load_manifest and lipsync_batch.
type Manifest struct {
	Version string         `json:"version"`
	Pairs   []ManifestPair `json:"pairs"`
}

// ManifestPair is one video/audio pairing to process.
type ManifestPair struct {
	VideoURL string `json:"video_url"`
	AudioURL string `json:"audio_url"`
	Name     string `json:"name,omitempty"`
}
