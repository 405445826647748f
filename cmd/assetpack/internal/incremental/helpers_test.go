package incremental

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/albertocavalcante/assetpack/cmd/assetpack/internal/transform"
)

// fakeSource is a RevisionSource with canned answers.
type fakeSource struct {
	files       []string
	err         error
	description string
	describeErr error
}

func (f *fakeSource) ChangedFiles(context.Context, string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.files, nil
}

func (f *fakeSource) WriteChangeDescription(_ context.Context, dest string) error {
	if f.describeErr != nil {
		return f.describeErr
	}
	return os.WriteFile(dest, []byte(f.description), 0o644)
}

// failingArchiver fails every call.
type failingArchiver struct{}

func (failingArchiver) CreateArchive(context.Context, string, []string) error {
	return errors.New("7z exited with status 2")
}

// failingTransformer fails every rotation.
type failingTransformer struct{}

func (failingTransformer) Rotate(string, transform.Direction) (image.Image, error) {
	return nil, errors.New("unsupported color model")
}

// countingArchiver wraps another archiver and counts calls.
type countingArchiver struct {
	mu    sync.Mutex
	inner interface {
		CreateArchive(context.Context, string, []string) error
	}
	calls int
}

func (c *countingArchiver) CreateArchive(ctx context.Context, dest string, files []string) error {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return c.inner.CreateArchive(ctx, dest, files)
}

// workspace is a fake VCS checkout with an asset tree at root/assets.
type workspace struct {
	root   string
	assets string
	output string
}

func newWorkspace(t *testing.T) *workspace {
	t.Helper()
	root := t.TempDir()
	ws := &workspace{
		root:   root,
		assets: filepath.Join(root, "assets"),
		output: filepath.Join(root, ".result"),
	}
	if err := os.MkdirAll(ws.assets, 0o755); err != nil {
		t.Fatal(err)
	}
	return ws
}

// write creates a file relative to the workspace root and returns its bytes.
func (ws *workspace) write(t *testing.T, rel string, data []byte) []byte {
	t.Helper()
	path := filepath.Join(ws.root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return data
}

func (ws *workspace) path(rel string) string {
	return filepath.Join(ws.root, filepath.FromSlash(rel))
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.NRGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var lines []string
	for _, line := range bytes.Split(data, []byte("\n")) {
		if len(line) > 0 {
			lines = append(lines, string(line))
		}
	}
	return lines
}

func bytesReader(b []byte) *bytes.Reader {
	return bytes.NewReader(b)
}

// md5Hex is the archive stem expected for the given source bytes.
func md5Hex(chunks ...[]byte) string {
	h := md5.New()
	for _, c := range chunks {
		h.Write(c)
	}
	return hex.EncodeToString(h.Sum(nil))
}
