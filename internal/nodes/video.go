package nodes

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/synckit/synckit/internal/synckit"
	"github.com/synckit/synckit/internal/timecode"
)

// ffmpegRunner shells out to ffmpeg. Capabilities embed it so tests can
// point Bin at a stub script.
type ffmpegRunner struct {
	Bin string
}

func (f ffmpegRunner) bin() string {
	if f.Bin != "" {
		return f.Bin
	}
	return "ffmpeg"
}

func (f ffmpegRunner) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, f.bin(), args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		detail := strings.TrimSpace(string(out))
		if len(detail) > 600 {
			detail = detail[len(detail)-600:]
		}
		return string(out), fmt.Errorf("ffmpeg: %w: %s", err, detail)
	}
	return string(out), nil
}

func videoFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".mp4", ".mov", ".mkv", ".avi", ".webm", ".mxf":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// ExtractAudio pulls a WAV track out of every video in a directory.
type ExtractAudio struct {
	FFmpeg ffmpegRunner
}

func (ExtractAudio) Type() string        { return "extract_audio" }
func (ExtractAudio) Description() string { return "Extract WAV audio from every video in a directory. Requires ffmpeg on PATH." }
func (ExtractAudio) Category() string    { return "video" }

func (ExtractAudio) Inputs() []synckit.InputPort {
	return []synckit.InputPort{
		{Name: "video_directory", Type: synckit.PortDirectory, Required: true},
		{Name: "output_dir", Type: synckit.PortDirectory, Required: false, Description: "Defaults to <video_directory>/audio"},
	}
}

func (ExtractAudio) Outputs() []synckit.OutputPort {
	return []synckit.OutputPort{
		{Name: "audio_directory", Type: synckit.PortDirectory},
		{Name: "audio_list", Type: synckit.PortPathList},
	}
}

func (n ExtractAudio) Execute(ctx context.Context, inputs map[string]any) (map[string]any, error) {
	dir, err := stringInput(inputs, "video_directory")
	if err != nil {
		return nil, err
	}
	outDir := optionalString(inputs, "output_dir", filepath.Join(dir, "audio"))
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	videos, err := videoFiles(dir)
	if err != nil {
		return nil, err
	}
	if len(videos) == 0 {
		return nil, fmt.Errorf("no video files in %q", dir)
	}

	var audioPaths []string
	for _, video := range videos {
		base := strings.TrimSuffix(filepath.Base(video), filepath.Ext(video))
		outPath := filepath.Join(outDir, base+".wav")
		if _, err := n.FFmpeg.run(ctx, "-y", "-i", video, "-vn", "-acodec", "pcm_s16le", outPath); err != nil {
			return nil, fmt.Errorf("extract audio from %s: %w", filepath.Base(video), err)
		}
		audioPaths = append(audioPaths, outPath)
	}
	return map[string]any{
		"audio_directory": outDir,
		"audio_list":      toAnyList(audioPaths),
	}, nil
}

// ChunkVideo splits a video into fixed-length segments without re-encoding.
type ChunkVideo struct {
	FFmpeg ffmpegRunner
}

func (ChunkVideo) Type() string        { return "chunk_video" }
func (ChunkVideo) Description() string { return "Split a video into fixed-length segments. Requires ffmpeg on PATH." }
func (ChunkVideo) Category() string    { return "video" }

func (ChunkVideo) Inputs() []synckit.InputPort {
	return []synckit.InputPort{
		{Name: "video_path", Type: synckit.PortPath, Required: true},
		{Name: "segment_seconds", Type: synckit.PortNumber, Required: false, Default: 30.0},
		{Name: "output_dir", Type: synckit.PortDirectory, Required: false, Description: "Defaults to <video dir>/chunks"},
	}
}

func (ChunkVideo) Outputs() []synckit.OutputPort {
	return []synckit.OutputPort{
		{Name: "chunks_directory", Type: synckit.PortDirectory},
		{Name: "chunk_list", Type: synckit.PortPathList},
	}
}

func (n ChunkVideo) Execute(ctx context.Context, inputs map[string]any) (map[string]any, error) {
	video, err := stringInput(inputs, "video_path")
	if err != nil {
		return nil, err
	}
	seconds := numberInput(inputs, "segment_seconds", 30)
	if seconds <= 0 {
		return nil, fmt.Errorf("segment_seconds must be positive, got %g", seconds)
	}
	outDir := optionalString(inputs, "output_dir", filepath.Join(filepath.Dir(video), "chunks"))
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	base := strings.TrimSuffix(filepath.Base(video), filepath.Ext(video))
	pattern := filepath.Join(outDir, base+"_%03d"+filepath.Ext(video))
	_, err = n.FFmpeg.run(ctx, "-y", "-i", video,
		"-f", "segment", "-segment_time", strconv.FormatFloat(seconds, 'f', -1, 64),
		"-c", "copy", "-reset_timestamps", "1", pattern)
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", filepath.Base(video), err)
	}

	chunks, err := filepath.Glob(filepath.Join(outDir, base+"_*"+filepath.Ext(video)))
	if err != nil {
		return nil, err
	}
	sort.Strings(chunks)
	return map[string]any{
		"chunks_directory": outDir,
		"chunk_list":       toAnyList(chunks),
	}, nil
}

// BounceVideo re-encodes every video in a directory to a delivery-friendly
// H.264/AAC MP4.
type BounceVideo struct {
	FFmpeg ffmpegRunner
}

func (BounceVideo) Type() string        { return "bounce_video" }
func (BounceVideo) Description() string { return "Re-encode videos to H.264/AAC MP4. Requires ffmpeg on PATH." }
func (BounceVideo) Category() string    { return "video" }

func (BounceVideo) Inputs() []synckit.InputPort {
	return []synckit.InputPort{
		{Name: "video_directory", Type: synckit.PortDirectory, Required: true},
		{Name: "output_dir", Type: synckit.PortDirectory, Required: false, Description: "Defaults to <video_directory>/bounced"},
	}
}

func (BounceVideo) Outputs() []synckit.OutputPort {
	return []synckit.OutputPort{
		{Name: "bounced_directory", Type: synckit.PortDirectory},
		{Name: "bounced_list", Type: synckit.PortPathList},
	}
}

func (n BounceVideo) Execute(ctx context.Context, inputs map[string]any) (map[string]any, error) {
	dir, err := stringInput(inputs, "video_directory")
	if err != nil {
		return nil, err
	}
	outDir := optionalString(inputs, "output_dir", filepath.Join(dir, "bounced"))
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	videos, err := videoFiles(dir)
	if err != nil {
		return nil, err
	}
	if len(videos) == 0 {
		return nil, fmt.Errorf("no video files in %q", dir)
	}

	var bounced []string
	for _, video := range videos {
		base := strings.TrimSuffix(filepath.Base(video), filepath.Ext(video))
		outPath := filepath.Join(outDir, base+".mp4")
		_, err := n.FFmpeg.run(ctx, "-y", "-i", video,
			"-c:v", "libx264", "-preset", "medium", "-crf", "18",
			"-c:a", "aac", "-b:a", "192k", outPath)
		if err != nil {
			return nil, fmt.Errorf("bounce %s: %w", filepath.Base(video), err)
		}
		bounced = append(bounced, outPath)
	}
	return map[string]any{
		"bounced_directory": outDir,
		"bounced_list":      toAnyList(bounced),
	}, nil
}

// CreateShots cuts clips out of a master video per spotting-CSV timecode
// ranges. Start/end timecodes are read at the source frame rate and mapped
// onto the target timeline, so a 24fps spotting sheet cuts a 23.976fps
// master frame-accurately. Cuts are stream copies, no re-encode.
type CreateShots struct {
	FFmpeg ffmpegRunner
}

func (CreateShots) Type() string        { return "create_shots" }
func (CreateShots) Description() string { return "Cut clips from a master video per spotting-CSV timecode ranges. Requires ffmpeg on PATH." }
func (CreateShots) Category() string    { return "video" }

func (CreateShots) Inputs() []synckit.InputPort {
	return []synckit.InputPort{
		{Name: "video_path", Type: synckit.PortPath, Required: true, Description: "Master video to cut"},
		{Name: "spotting_csv", Type: synckit.PortPath, Required: true, Description: "Header-keyed CSV with start/end timecode columns"},
		{Name: "output_dir", Type: synckit.PortDirectory, Required: false, Description: "Defaults to <video dir>/shots"},
		{Name: "start_column", Type: synckit.PortText, Required: false, Default: "start"},
		{Name: "end_column", Type: synckit.PortText, Required: false, Default: "end"},
		{Name: "source_fps", Type: synckit.PortNumber, Required: false, Default: timecode.FPS24},
		{Name: "target_fps", Type: synckit.PortNumber, Required: false, Default: timecode.FPS23976},
		{Name: "prefix", Type: synckit.PortText, Required: false, Default: "SHOT", Description: "Clip filename prefix"},
	}
}

func (CreateShots) Outputs() []synckit.OutputPort {
	return []synckit.OutputPort{
		{Name: "shots_directory", Type: synckit.PortDirectory},
		{Name: "shot_list", Type: synckit.PortPathList},
		{Name: "shot_count", Type: synckit.PortNumber},
		{Name: "skipped_count", Type: synckit.PortNumber},
	}
}

type shotRange struct {
	startTC, endTC string
	startFrames    int
	startSec       float64
	duration       float64
}

func (n CreateShots) Execute(ctx context.Context, inputs map[string]any) (map[string]any, error) {
	video, err := stringInput(inputs, "video_path")
	if err != nil {
		return nil, err
	}
	csvPath, err := stringInput(inputs, "spotting_csv")
	if err != nil {
		return nil, err
	}
	outDir := optionalString(inputs, "output_dir", filepath.Join(filepath.Dir(video), "shots"))
	sourceFPS := numberInput(inputs, "source_fps", timecode.FPS24)
	targetFPS := numberInput(inputs, "target_fps", timecode.FPS23976)
	prefix := optionalString(inputs, "prefix", "SHOT")

	shots, skipped, err := readSpottingCSV(csvPath,
		optionalString(inputs, "start_column", "start"),
		optionalString(inputs, "end_column", "end"),
		sourceFPS, targetFPS)
	if err != nil {
		return nil, err
	}
	if len(shots) == 0 {
		return nil, fmt.Errorf("no usable timecode rows in %q", csvPath)
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	ext := filepath.Ext(video)
	var cut []string
	for i, shot := range shots {
		name := fmt.Sprintf("%s_%04d_%s_%s%s", prefix, i+1,
			strings.ReplaceAll(shot.startTC, ":", "-"),
			strings.ReplaceAll(shot.endTC, ":", "-"), ext)
		outPath := filepath.Join(outDir, name)
		_, err := n.FFmpeg.run(ctx, "-y",
			"-ss", strconv.FormatFloat(shot.startSec, 'f', 6, 64),
			"-i", video,
			"-t", strconv.FormatFloat(shot.duration, 'f', 6, 64),
			"-c", "copy", outPath)
		if err != nil {
			return nil, fmt.Errorf("cut shot %s -> %s: %w", shot.startTC, shot.endTC, err)
		}
		cut = append(cut, outPath)
	}
	return map[string]any{
		"shots_directory": outDir,
		"shot_list":       toAnyList(cut),
		"shot_count":      float64(len(cut)),
		"skipped_count":   float64(skipped),
	}, nil
}

// readSpottingCSV parses the spotting sheet into sorted shot ranges.
// Rows with blank or malformed timecodes and repeated start/end pairs are
// skipped, not fatal.
func readSpottingCSV(path, startCol, endCol string, sourceFPS, targetFPS float64) ([]shotRange, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open spotting csv: %w", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, 0, fmt.Errorf("read spotting csv: %w", err)
	}
	if len(rows) < 2 {
		return nil, 0, fmt.Errorf("spotting csv %q has no data rows", path)
	}

	startIdx, endIdx := -1, -1
	for i, col := range rows[0] {
		switch strings.TrimSpace(col) {
		case startCol:
			startIdx = i
		case endCol:
			endIdx = i
		}
	}
	if startIdx < 0 || endIdx < 0 {
		return nil, 0, fmt.Errorf("spotting csv %q is missing column %q or %q", path, startCol, endCol)
	}

	seen := make(map[string]bool)
	var shots []shotRange
	skipped := 0
	for _, row := range rows[1:] {
		if startIdx >= len(row) || endIdx >= len(row) {
			skipped++
			continue
		}
		startTC := strings.TrimSpace(row[startIdx])
		endTC := strings.TrimSpace(row[endIdx])
		if startTC == "" || endTC == "" {
			skipped++
			continue
		}
		if seen[startTC+"/"+endTC] {
			skipped++
			continue
		}

		startFrames, err := timecode.ToFrames(startTC, sourceFPS)
		if err != nil {
			skipped++
			continue
		}
		endFrames, err := timecode.ToFrames(endTC, sourceFPS)
		if err != nil || endFrames <= startFrames {
			skipped++
			continue
		}
		seen[startTC+"/"+endTC] = true

		// End timecode is exclusive: frames [start, end) replayed at the
		// target rate.
		startSec := timecode.FramesToSeconds(startFrames, targetFPS)
		shots = append(shots, shotRange{
			startTC:     startTC,
			endTC:       endTC,
			startFrames: startFrames,
			startSec:    startSec,
			duration:    timecode.FramesToSeconds(endFrames-startFrames, targetFPS),
		})
	}
	sort.Slice(shots, func(i, j int) bool { return shots[i].startFrames < shots[j].startFrames })
	return shots, skipped, nil
}

var ptsTimeRe = regexp.MustCompile(`pts_time:([0-9]+\.?[0-9]*)`)

// DetectScenes finds cut points using ffmpeg's scene-score filter.
type DetectScenes struct {
	FFmpeg ffmpegRunner
}

func (DetectScenes) Type() string        { return "detect_scenes" }
func (DetectScenes) Description() string { return "Detect scene cuts with ffmpeg's scene-score filter. Requires ffmpeg on PATH." }
func (DetectScenes) Category() string    { return "video" }

func (DetectScenes) Inputs() []synckit.InputPort {
	return []synckit.InputPort{
		{Name: "video_path", Type: synckit.PortPath, Required: true},
		{Name: "threshold", Type: synckit.PortNumber, Required: false, Default: 0.4, Description: "Scene change score threshold (0-1)"},
	}
}

func (DetectScenes) Outputs() []synckit.OutputPort {
	return []synckit.OutputPort{
		{Name: "scene_list", Type: synckit.PortRecord},
		{Name: "scene_count", Type: synckit.PortNumber},
	}
}

func (n DetectScenes) Execute(ctx context.Context, inputs map[string]any) (map[string]any, error) {
	video, err := stringInput(inputs, "video_path")
	if err != nil {
		return nil, err
	}
	threshold := numberInput(inputs, "threshold", 0.4)

	filter := fmt.Sprintf("select='gt(scene,%g)',showinfo", threshold)
	out, err := n.FFmpeg.run(ctx, "-i", video, "-vf", filter, "-f", "null", "-")
	if err != nil {
		return nil, fmt.Errorf("detect scenes in %s: %w", filepath.Base(video), err)
	}

	var scenes []any
	for _, match := range ptsTimeRe.FindAllStringSubmatch(out, -1) {
		t, err := strconv.ParseFloat(match[1], 64)
		if err != nil {
			continue
		}
		scenes = append(scenes, map[string]any{"start_seconds": t})
	}
	return map[string]any{
		"scene_list":  map[string]any{"video": video, "threshold": threshold, "scenes": scenes},
		"scene_count": float64(len(scenes)),
	}, nil
}
