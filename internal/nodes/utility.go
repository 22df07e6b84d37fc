package nodes

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/expr-lang/expr"

	"github.com/synckit/synckit/internal/synckit"
	"github.com/synckit/synckit/internal/timecode"
)

var timecodeRe = regexp.MustCompile(`^\d{2}:\d{2}:\d{2}:\d{2}$`)

// ConvertTimecodes rewrites HH:MM:SS:FF cells in a CSV from the source
// frame rate to seconds on the target timeline.
type ConvertTimecodes struct{}

func (ConvertTimecodes) Type() string        { return "convert_timecodes" }
func (ConvertTimecodes) Description() string { return "Convert CSV timecode columns between frame rates." }
func (ConvertTimecodes) Category() string    { return "utility" }

func (ConvertTimecodes) Inputs() []synckit.InputPort {
	return []synckit.InputPort{
		{Name: "input_csv", Type: synckit.PortPath, Required: true},
		{Name: "source_fps", Type: synckit.PortNumber, Required: false, Default: timecode.FPS24},
		{Name: "target_fps", Type: synckit.PortNumber, Required: false, Default: timecode.FPS23976},
		{Name: "output_csv", Type: synckit.PortPath, Required: false, Description: "Defaults to <input>_converted.csv"},
	}
}

func (ConvertTimecodes) Outputs() []synckit.OutputPort {
	return []synckit.OutputPort{
		{Name: "output_csv", Type: synckit.PortPath},
		{Name: "converted_count", Type: synckit.PortNumber},
	}
}

func (ConvertTimecodes) Execute(_ context.Context, inputs map[string]any) (map[string]any, error) {
	inPath, err := stringInput(inputs, "input_csv")
	if err != nil {
		return nil, err
	}
	sourceFPS := numberInput(inputs, "source_fps", timecode.FPS24)
	targetFPS := numberInput(inputs, "target_fps", timecode.FPS23976)
	outPath := optionalString(inputs, "output_csv",
		strings.TrimSuffix(inPath, filepath.Ext(inPath))+"_converted.csv")

	f, err := os.Open(inPath)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	converted := 0
	for _, row := range rows {
		for i, cell := range row {
			if !timecodeRe.MatchString(cell) {
				continue
			}
			frames, err := timecode.ToFrames(cell, sourceFPS)
			if err != nil {
				return nil, fmt.Errorf("row value %q: %w", cell, err)
			}
			seconds := timecode.FramesToSeconds(frames, targetFPS)
			row[i] = fmt.Sprintf("%.3f", seconds)
			converted++
		}
	}

	out, err := os.Create(outPath)
	if err != nil {
		return nil, fmt.Errorf("create output csv: %w", err)
	}
	defer out.Close()
	w := csv.NewWriter(out)
	if err := w.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("write output csv: %w", err)
	}
	return map[string]any{
		"output_csv":      outPath,
		"converted_count": float64(converted),
	}, nil
}

// FilterFiles keeps the paths for which a predicate expression over
// {name, ext, size, path} evaluates to true.
type FilterFiles struct{}

func (FilterFiles) Type() string        { return "filter_files" }
func (FilterFiles) Description() string { return "Filter a file list with a predicate expression over name, ext, size and path." }
func (FilterFiles) Category() string    { return "utility" }

func (FilterFiles) Inputs() []synckit.InputPort {
	return []synckit.InputPort{
		{Name: "files", Type: synckit.PortPathList, Required: true},
		{Name: "predicate", Type: synckit.PortText, Required: false, Default: "true",
			Description: `Expression, e.g. ext == ".mp4" && size > 1000000`},
	}
}

func (FilterFiles) Outputs() []synckit.OutputPort {
	return []synckit.OutputPort{
		{Name: "files", Type: synckit.PortPathList},
		{Name: "count", Type: synckit.PortNumber},
	}
}

func (FilterFiles) Execute(_ context.Context, inputs map[string]any) (map[string]any, error) {
	files, err := pathListInput(inputs, "files")
	if err != nil {
		return nil, err
	}
	predicate := optionalString(inputs, "predicate", "true")

	env := map[string]any{"name": "", "ext": "", "size": int64(0), "path": ""}
	program, err := expr.Compile(predicate, expr.Env(env), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile predicate %q: %w", predicate, err)
	}

	var kept []string
	for _, path := range files {
		var size int64
		if fi, err := os.Stat(path); err == nil {
			size = fi.Size()
		}
		out, err := expr.Run(program, map[string]any{
			"name": filepath.Base(path),
			"ext":  strings.ToLower(filepath.Ext(path)),
			"size": size,
			"path": path,
		})
		if err != nil {
			return nil, fmt.Errorf("evaluate predicate for %q: %w", path, err)
		}
		if keep, ok := out.(bool); ok && keep {
			kept = append(kept, path)
		}
	}
	return map[string]any{
		"files": toAnyList(kept),
		"count": float64(len(kept)),
	}, nil
}

// RenameFiles applies a find/replace to every file name in a directory.
type RenameFiles struct{}

func (RenameFiles) Type() string        { return "rename_files" }
func (RenameFiles) Description() string { return "Rename files in a directory by substring replacement." }
func (RenameFiles) Category() string    { return "utility" }

func (RenameFiles) Inputs() []synckit.InputPort {
	return []synckit.InputPort{
		{Name: "directory", Type: synckit.PortDirectory, Required: true},
		{Name: "find", Type: synckit.PortText, Required: true},
		{Name: "replace", Type: synckit.PortText, Required: false, Default: ""},
	}
}

func (RenameFiles) Outputs() []synckit.OutputPort {
	return []synckit.OutputPort{
		{Name: "directory", Type: synckit.PortDirectory},
		{Name: "renamed_count", Type: synckit.PortNumber},
	}
}

func (RenameFiles) Execute(_ context.Context, inputs map[string]any) (map[string]any, error) {
	dir, err := stringInput(inputs, "directory")
	if err != nil {
		return nil, err
	}
	find, err := stringInput(inputs, "find")
	if err != nil {
		return nil, err
	}
	replace := optionalString(inputs, "replace", "")

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory: %w", err)
	}
	renamed := 0
	for _, e := range entries {
		if e.IsDir() || !strings.Contains(e.Name(), find) {
			continue
		}
		newName := strings.ReplaceAll(e.Name(), find, replace)
		if newName == e.Name() || newName == "" {
			continue
		}
		if err := os.Rename(filepath.Join(dir, e.Name()), filepath.Join(dir, newName)); err != nil {
			return nil, fmt.Errorf("rename %s: %w", e.Name(), err)
		}
		renamed++
	}
	return map[string]any{
		"directory":     dir,
		"renamed_count": float64(renamed),
	}, nil
}

// MergeDirectories copies the files of several directories into one.
type MergeDirectories struct{}

func (MergeDirectories) Type() string        { return "merge_directories" }
func (MergeDirectories) Description() string { return "Copy the files of several directories into one." }
func (MergeDirectories) Category() string    { return "utility" }

func (MergeDirectories) Inputs() []synckit.InputPort {
	return []synckit.InputPort{
		{Name: "directories", Type: synckit.PortPathList, Required: true},
		{Name: "output_dir", Type: synckit.PortDirectory, Required: true},
	}
}

func (MergeDirectories) Outputs() []synckit.OutputPort {
	return []synckit.OutputPort{
		{Name: "merged_directory", Type: synckit.PortDirectory},
		{Name: "file_list", Type: synckit.PortPathList},
	}
}

func (MergeDirectories) Execute(_ context.Context, inputs map[string]any) (map[string]any, error) {
	dirs, err := pathListInput(inputs, "directories")
	if err != nil {
		return nil, err
	}
	outDir, err := stringInput(inputs, "output_dir")
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	var merged []string
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", dir, err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			dst := filepath.Join(outDir, e.Name())
			if err := copyFile(filepath.Join(dir, e.Name()), dst); err != nil {
				return nil, err
			}
			merged = append(merged, dst)
		}
	}
	sort.Strings(merged)
	return map[string]any{
		"merged_directory": outDir,
		"file_list":        toAnyList(merged),
	}, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	defer out.Close()
	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}
	return nil
}

// CreateManifest zips video and audio URL lists into a manifest document.
type CreateManifest struct{}

func (CreateManifest) Type() string        { return "create_manifest" }
func (CreateManifest) Description() string { return "Pair video and audio URL lists into a JSON manifest." }
func (CreateManifest) Category() string    { return "utility" }

func (CreateManifest) Inputs() []synckit.InputPort {
	return []synckit.InputPort{
		{Name: "video_urls", Type: synckit.PortPathList, Required: true},
		{Name: "audio_urls", Type: synckit.PortPathList, Required: true},
		{Name: "output_file", Type: synckit.PortPath, Required: false, Default: "manifest.json"},
	}
}

func (CreateManifest) Outputs() []synckit.OutputPort {
	return []synckit.OutputPort{
		{Name: "manifest_file", Type: synckit.PortPath},
		{Name: "pair_count", Type: synckit.PortNumber},
	}
}

func (CreateManifest) Execute(_ context.Context, inputs map[string]any) (map[string]any, error) {
	videos, err := pathListInput(inputs, "video_urls")
	if err != nil {
		return nil, err
	}
	audios, err := pathListInput(inputs, "audio_urls")
	if err != nil {
		return nil, err
	}
	if len(videos) != len(audios) {
		return nil, fmt.Errorf("video/audio count mismatch: %d vs %d", len(videos), len(audios))
	}
	outFile := optionalString(inputs, "output_file", "manifest.json")

	manifest := Manifest{Version: "1.0", Pairs: make([]ManifestPair, len(videos))}
	for i := range videos {
		name := strings.TrimSuffix(filepath.Base(videos[i]), filepath.Ext(videos[i]))
		manifest.Pairs[i] = ManifestPair{VideoURL: videos[i], AudioURL: audios[i], Name: name}
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	if err := os.WriteFile(outFile, data, 0644); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}
	return map[string]any{
		"manifest_file": outFile,
		"pair_count":    float64(len(manifest.Pairs)),
	}, nil
}

// MergeResults combines several JSON result files into one document.
type MergeResults struct{}

func (MergeResults) Type() string        { return "merge_results" }
func (MergeResults) Description() string { return "Merge JSON result files into a single document." }
func (MergeResults) Category() string    { return "utility" }

func (MergeResults) Inputs() []synckit.InputPort {
	return []synckit.InputPort{
		{Name: "result_files", Type: synckit.PortPathList, Required: true},
		{Name: "output_file", Type: synckit.PortPath, Required: false, Default: "merged_results.json"},
	}
}

func (MergeResults) Outputs() []synckit.OutputPort {
	return []synckit.OutputPort{
		{Name: "merged_json", Type: synckit.PortRecord},
		{Name: "output_file", Type: synckit.PortPath},
	}
}

func (MergeResults) Execute(_ context.Context, inputs map[string]any) (map[string]any, error) {
	files, err := pathListInput(inputs, "result_files")
	if err != nil {
		return nil, err
	}
	outFile := optionalString(inputs, "output_file", "merged_results.json")

	merged := make(map[string]any)
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		var doc any
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		merged[filepath.Base(path)] = doc
	}

	data, err := json.MarshalIndent(merged, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode merged results: %w", err)
	}
	if err := os.WriteFile(outFile, data, 0644); err != nil {
		return nil, fmt.Errorf("write merged results: %w", err)
	}
	return map[string]any{
		"merged_json": merged,
		"output_file": outFile,
	}, nil
}
