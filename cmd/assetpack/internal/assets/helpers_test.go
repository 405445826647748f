package assets

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/albertocavalcante/assetpack/cmd/assetpack/internal/transform"
)

// hashBytes is the expected HashFiles digest of in-memory chunks.
func hashBytes(chunks ...[]byte) string {
	h := md5.New()
	for _, c := range chunks {
		h.Write(c)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

// encodeImage returns a w x h image encoded by extension (.png or .jpg).
func encodeImage(t *testing.T, ext string, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 40), G: uint8(y * 40), A: 255})
		}
	}

	var buf bytes.Buffer
	var err error
	if ext == ".jpg" {
		err = jpeg.Encode(&buf, img, nil)
	} else {
		err = png.Encode(&buf, img)
	}
	if err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

type archiveCall struct {
	dest     string
	names    []string
	contents map[string][]byte
}

// recordingArchiver captures what would be archived. File contents are read
// at call time since scratch files disappear once Build returns.
type recordingArchiver struct {
	mu    sync.Mutex
	calls []archiveCall
	err   error
}

func (r *recordingArchiver) CreateArchive(_ context.Context, dest string, files []string) error {
	if r.err != nil {
		return r.err
	}
	call := archiveCall{dest: dest, contents: make(map[string][]byte)}
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return err
		}
		name := filepath.Base(f)
		call.names = append(call.names, name)
		call.contents[name] = data
	}
	r.mu.Lock()
	r.calls = append(r.calls, call)
	r.mu.Unlock()
	return nil
}

// stubTransformer records requested rotations and returns a fixed result.
type stubTransformer struct {
	mu         sync.Mutex
	directions []transform.Direction
	paths      []string
	fail       bool
}

func (s *stubTransformer) Rotate(path string, d transform.Direction) (image.Image, error) {
	s.mu.Lock()
	s.directions = append(s.directions, d)
	s.paths = append(s.paths, path)
	s.mu.Unlock()
	if s.fail {
		return nil, errors.New("decoder exploded")
	}
	return image.NewNRGBA(image.Rect(0, 0, 1, 1)), nil
}
