package nodes

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/synckit/synckit/internal/synckit"
)

// awsRunner shells out to the aws CLI for S3 transfers. Tests point Bin at
// a stub script.
type awsRunner struct {
	Bin string
}

func (a awsRunner) bin() string {
	if a.Bin != "" {
		return a.Bin
	}
	return "aws"
}

func (a awsRunner) run(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, a.bin(), args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		detail := strings.TrimSpace(string(out))
		if len(detail) > 400 {
			detail = detail[len(detail)-400:]
		}
		return fmt.Errorf("aws: %w: %s", err, detail)
	}
	return nil
}

// S3Upload copies matching files from a local directory to an S3 prefix,
// several transfers in flight at once.
type S3Upload struct {
	AWS awsRunner
}

func (S3Upload) Type() string        { return "s3_upload" }
func (S3Upload) Description() string { return "Upload files matching a pattern to an S3 prefix. Requires the aws CLI on PATH." }
func (S3Upload) Category() string    { return "storage" }

func (S3Upload) Inputs() []synckit.InputPort {
	return []synckit.InputPort{
		{Name: "local_directory", Type: synckit.PortDirectory, Required: true},
		{Name: "s3_destination", Type: synckit.PortText, Required: true, Description: "Destination prefix, e.g. s3://bucket/path/"},
		{Name: "pattern", Type: synckit.PortText, Required: false, Default: "*"},
		{Name: "parallel", Type: synckit.PortNumber, Required: false, Default: 4.0},
	}
}

func (S3Upload) Outputs() []synckit.OutputPort {
	return []synckit.OutputPort{
		{Name: "uploaded_urls", Type: synckit.PortPathList},
		{Name: "uploaded_count", Type: synckit.PortNumber},
	}
}

func (n S3Upload) Execute(ctx context.Context, inputs map[string]any) (map[string]any, error) {
	dir, err := stringInput(inputs, "local_directory")
	if err != nil {
		return nil, err
	}
	dest, err := stringInput(inputs, "s3_destination")
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(dest, "s3://") {
		return nil, fmt.Errorf("s3_destination must start with s3://, got %q", dest)
	}
	pattern := optionalString(inputs, "pattern", "*")
	parallel := int(numberInput(inputs, "parallel", 4))
	if parallel < 1 {
		parallel = 1
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
	if len(files) == 0 {
		return nil, fmt.Errorf("no files matching %q in %q", pattern, dir)
	}
	sort.Strings(files)

	dest = strings.TrimSuffix(dest, "/")
	var mu sync.Mutex
	var uploaded []string

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for _, file := range files {
		file := file
		g.Go(func() error {
			url := dest + "/" + filepath.Base(file)
			if err := n.AWS.run(gCtx, "s3", "cp", file, url); err != nil {
				return fmt.Errorf("upload %s: %w", filepath.Base(file), err)
			}
			mu.Lock()
			uploaded = append(uploaded, url)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sort.Strings(uploaded)
	return map[string]any{
		"uploaded_urls":  toAnyList(uploaded),
		"uploaded_count": float64(len(uploaded)),
	}, nil
}

// S3Download syncs an S3 prefix (or copies a single object) to a local
// directory.
type S3Download struct {
	AWS awsRunner
}

func (S3Download) Type() string        { return "s3_download" }
func (S3Download) Description() string { return "Download an S3 prefix or object to a local directory. Requires the aws CLI on PATH." }
func (S3Download) Category() string    { return "storage" }

func (S3Download) Inputs() []synckit.InputPort {
	return []synckit.InputPort{
		{Name: "s3_source", Type: synckit.PortText, Required: true},
		{Name: "local_destination", Type: synckit.PortDirectory, Required: true},
		{Name: "mode", Type: synckit.PortText, Required: false, Default: "sync", Description: "\"sync\" for a prefix, \"cp\" for a single object"},
	}
}

func (S3Download) Outputs() []synckit.OutputPort {
	return []synckit.OutputPort{
		{Name: "downloaded_directory", Type: synckit.PortDirectory},
		{Name: "downloaded_files", Type: synckit.PortPathList},
	}
}

func (n S3Download) Execute(ctx context.Context, inputs map[string]any) (map[string]any, error) {
	src, err := stringInput(inputs, "s3_source")
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(src, "s3://") {
		return nil, fmt.Errorf("s3_source must start with s3://, got %q", src)
	}
	dest, err := stringInput(inputs, "local_destination")
	if err != nil {
		return nil, err
	}
	mode := optionalString(inputs, "mode", "sync")
	if mode != "sync" && mode != "cp" {
		return nil, fmt.Errorf("mode must be \"sync\" or \"cp\", got %q", mode)
	}
	if err := os.MkdirAll(dest, 0755); err != nil {
		return nil, fmt.Errorf("create destination dir: %w", err)
	}

	if err := n.AWS.run(ctx, "s3", mode, src, dest); err != nil {
		return nil, fmt.Errorf("download %s: %w", src, err)
	}

	var files []string
	err = filepath.WalkDir(dest, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list downloaded files: %w", err)
	}
	sort.Strings(files)
	return map[string]any{
		"downloaded_directory": dest,
		"downloaded_files":     toAnyList(files),
	}, nil
}

// UploadStorage PUTs a single file to an HTTP object-storage endpoint.
type UploadStorage struct {
	Endpoint string
	Bucket   string
	Token    string
	Client   *http.Client
}

func (UploadStorage) Type() string        { return "upload_storage" }
func (UploadStorage) Description() string { return "Upload a file to the configured HTTP object-storage endpoint." }
func (UploadStorage) Category() string    { return "storage" }

func (UploadStorage) Inputs() []synckit.InputPort {
	return []synckit.InputPort{
		{Name: "local_path", Type: synckit.PortPath, Required: true},
		{Name: "remote_path", Type: synckit.PortText, Required: true, Description: "Object key within the bucket"},
	}
}

func (UploadStorage) Outputs() []synckit.OutputPort {
	return []synckit.OutputPort{
		{Name: "url", Type: synckit.PortText},
	}
}

func (n UploadStorage) Execute(ctx context.Context, inputs map[string]any) (map[string]any, error) {
	if n.Endpoint == "" {
		return nil, fmt.Errorf("storage endpoint is not configured")
	}
	local, err := stringInput(inputs, "local_path")
	if err != nil {
		return nil, err
	}
	remote, err := stringInput(inputs, "remote_path")
	if err != nil {
		return nil, err
	}

	f, err := os.Open(local)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", local, err)
	}
	defer f.Close()
	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", local, err)
	}

	url := strings.TrimSuffix(n.Endpoint, "/") + "/" + n.Bucket + "/" + strings.TrimPrefix(remote, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, f)
	if err != nil {
		return nil, fmt.Errorf("build upload request: %w", err)
	}
	contentType := mime.TypeByExtension(filepath.Ext(local))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)
	req.ContentLength = stat.Size()
	if n.Token != "" {
		req.Header.Set("Authorization", "Bearer "+n.Token)
	}

	client := n.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", local, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("upload %s: unexpected status %s", local, resp.Status)
	}
	return map[string]any{"url": url}, nil
}
