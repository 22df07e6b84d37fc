package nodes

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestFilterFiles_Predicate(t *testing.T) {
	dir := t.TempDir()
	big := filepath.Join(dir, "big.mp4")
	small := filepath.Join(dir, "small.mp4")
	wav := filepath.Join(dir, "track.wav")
	writeFile(t, big, "0123456789")
	writeFile(t, small, "01")
	writeFile(t, wav, "0123456789")

	out, err := FilterFiles{}.Execute(context.Background(), map[string]any{
		"files":     []any{big, small, wav},
		"predicate": `ext == ".mp4" && size > 5`,
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	files := out["files"].([]any)
	if len(files) != 1 || files[0] != big {
		t.Fatalf("kept %v, want [%s]", files, big)
	}
	if out["count"] != float64(1) {
		t.Fatalf("count = %v", out["count"])
	}
}

func TestFilterFiles_DefaultPredicateKeepsAll(t *testing.T) {
	out, err := FilterFiles{}.Execute(context.Background(), map[string]any{
		"files": []any{"/a", "/b"},
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if out["count"] != float64(2) {
		t.Fatalf("count = %v", out["count"])
	}
}

func TestFilterFiles_BadPredicate(t *testing.T) {
	_, err := FilterFiles{}.Execute(context.Background(), map[string]any{
		"files":     []any{"/a"},
		"predicate": "size +",
	})
	if err == nil {
		t.Fatal("expected compile error")
	}
}

func TestRenameFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "scene_v1_a.mp4"), "x")
	writeFile(t, filepath.Join(dir, "scene_v1_b.mp4"), "x")
	writeFile(t, filepath.Join(dir, "other.mp4"), "x")

	out, err := RenameFiles{}.Execute(context.Background(), map[string]any{
		"directory": dir,
		"find":      "_v1",
		"replace":   "_v2",
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if out["renamed_count"] != float64(2) {
		t.Fatalf("renamed_count = %v", out["renamed_count"])
	}
	if _, err := os.Stat(filepath.Join(dir, "scene_v2_a.mp4")); err != nil {
		t.Fatal("renamed file missing")
	}
	if _, err := os.Stat(filepath.Join(dir, "other.mp4")); err != nil {
		t.Fatal("unmatched file should be untouched")
	}
}

func TestConvertTimecodes(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "cues.csv")
	writeFile(t, in, "scene,start,note\nintro,00:00:01:00,keep\noutro,01:00:00:00,fade\n")

	out, err := ConvertTimecodes{}.Execute(context.Background(), map[string]any{
		"input_csv":  in,
		"output_csv": filepath.Join(dir, "cues_out.csv"),
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if out["converted_count"] != float64(2) {
		t.Fatalf("converted_count = %v", out["converted_count"])
	}

	f, err := os.Open(out["output_csv"].(string))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	// 24 frames at 24fps mapped onto the 23.976 timeline run 1.001 seconds.
	if rows[1][1] != "1.001" {
		t.Fatalf("row 1 start = %q, want 1.001", rows[1][1])
	}
	if rows[2][1] != "3603.600" {
		t.Fatalf("row 2 start = %q, want 3603.600", rows[2][1])
	}
	if rows[1][2] != "keep" {
		t.Fatal("non-timecode cells must pass through unchanged")
	}
}

func TestCreateAndLoadManifest(t *testing.T) {
	dir := t.TempDir()
	manifestPath := filepath.Join(dir, "manifest.json")

	out, err := CreateManifest{}.Execute(context.Background(), map[string]any{
		"video_urls":  []any{"s3://bucket/a.mp4", "s3://bucket/b.mp4"},
		"audio_urls":  []any{"s3://bucket/a.wav", "s3://bucket/b.wav"},
		"output_file": manifestPath,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if out["pair_count"] != float64(2) {
		t.Fatalf("pair_count = %v", out["pair_count"])
	}

	loaded, err := LoadManifest{}.Execute(context.Background(), map[string]any{
		"manifest_path": manifestPath,
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	videos := loaded["video_urls"].([]any)
	audios := loaded["audio_urls"].([]any)
	if len(videos) != 2 || videos[0] != "s3://bucket/a.mp4" {
		t.Fatalf("video_urls = %v", videos)
	}
	if audios[1] != "s3://bucket/b.wav" {
		t.Fatalf("audio_urls = %v", audios)
	}
}

func TestCreateManifest_CountMismatch(t *testing.T) {
	_, err := CreateManifest{}.Execute(context.Background(), map[string]any{
		"video_urls": []any{"a.mp4"},
		"audio_urls": []any{"a.wav", "b.wav"},
	})
	if err == nil {
		t.Fatal("expected mismatch error")
	}
}

func TestMergeDirectories(t *testing.T) {
	src1 := t.TempDir()
	src2 := t.TempDir()
	writeFile(t, filepath.Join(src1, "a.txt"), "one")
	writeFile(t, filepath.Join(src2, "b.txt"), "two")
	outDir := filepath.Join(t.TempDir(), "merged")

	out, err := MergeDirectories{}.Execute(context.Background(), map[string]any{
		"directories": []any{src1, src2},
		"output_dir":  outDir,
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	files := out["file_list"].([]any)
	if len(files) != 2 {
		t.Fatalf("file_list = %v", files)
	}
	data, err := os.ReadFile(filepath.Join(outDir, "b.txt"))
	if err != nil || string(data) != "two" {
		t.Fatalf("merged content wrong: %q, %v", data, err)
	}
}

func TestMergeResults(t *testing.T) {
	dir := t.TempDir()
	r1 := filepath.Join(dir, "batch1.json")
	r2 := filepath.Join(dir, "batch2.json")
	writeFile(t, r1, `{"jobs": 3}`)
	writeFile(t, r2, `{"jobs": 5}`)

	out, err := MergeResults{}.Execute(context.Background(), map[string]any{
		"result_files": []any{r1, r2},
		"output_file":  filepath.Join(dir, "merged.json"),
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	merged := out["merged_json"].(map[string]any)
	if len(merged) != 2 {
		t.Fatalf("merged = %v", merged)
	}
	if merged["batch1.json"].(map[string]any)["jobs"] != float64(3) {
		t.Fatalf("batch1 = %v", merged["batch1.json"])
	}
}
