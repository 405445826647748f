// Package archive packs build outputs into zip archives.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zip"

	"github.com/albertocavalcante/assetpack/cmd/assetpack/internal/runner"
	"github.com/albertocavalcante/assetpack/internal/log"
)

// Archiver writes a set of files into a single archive. Entry names are the
// files' base names, in the order given.
type Archiver interface {
	CreateArchive(ctx context.Context, dest string, files []string) error
}

// Kind names an archiver implementation in configuration.
type Kind string

const (
	KindAuto     Kind = "auto"
	KindZip      Kind = "zip"
	KindSevenZip Kind = "7z"
)

// ErrUnknownKind is returned by Select for an unrecognized Kind.
var ErrUnknownKind = errors.New("unknown archiver")

// ZipArchiver writes archives in-process.
type ZipArchiver struct{}

// NewZipArchiver creates a ZipArchiver.
func NewZipArchiver() *ZipArchiver {
	return &ZipArchiver{}
}

// CreateArchive implements Archiver.
func (z *ZipArchiver) CreateArchive(ctx context.Context, dest string, files []string) (err error) {
	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}
	defer func() {
		if cerr := out.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("failed to close archive: %w", cerr)
		}
		if err != nil {
			_ = os.Remove(dest) // never leave a partial archive behind
		}
	}()

	zw := zip.NewWriter(out)
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := addFile(zw, file); err != nil {
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finalize archive: %w", err)
	}

	log.Component("archive").Debug("archive written", "archive", dest, "entries", len(files))
	return nil
}

func addFile(zw *zip.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("failed to build header for %s: %w", path, err)
	}
	header.Name = filepath.Base(path)
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("failed to add %s: %w", path, err)
	}
	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// SevenZipArchiver delegates to the external 7z tool.
type SevenZipArchiver struct {
	runner *runner.Runner
}

// NewSevenZipArchiver creates a SevenZipArchiver. It fails if 7z is not on
// PATH.
func NewSevenZipArchiver(r *runner.Runner) (*SevenZipArchiver, error) {
	if _, err := r.Find(string(KindSevenZip)); err != nil {
		return nil, fmt.Errorf("7zip is not installed: %w", err)
	}
	return &SevenZipArchiver{runner: r}, nil
}

// CreateArchive implements Archiver.
func (s *SevenZipArchiver) CreateArchive(ctx context.Context, dest string, files []string) error {
	// 7z a appends to an existing archive; start from scratch like the zip writer.
	if err := os.Remove(dest); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to replace %s: %w", dest, err)
	}

	// -slp large pages, -mx1 fastest, -bd no progress, -bt timing stats.
	args := []string{"a", "-tzip", "-slp", "-mx1", "-bd", "-bt", dest}
	args = append(args, files...)

	if _, err := s.runner.Run(ctx, runner.Invocation{Name: string(KindSevenZip), Args: args}); err != nil {
		return fmt.Errorf("failed to create 7z archive: %w", err)
	}
	return nil
}

// Select picks an archiver for kind. KindAuto prefers 7z when it is
// installed and falls back to the in-process writer.
func Select(kind Kind, r *runner.Runner) (Archiver, error) {
	switch kind {
	case KindAuto, "":
		if r.Available(string(KindSevenZip)) {
			return NewSevenZipArchiver(r)
		}
		return NewZipArchiver(), nil
	case KindZip:
		return NewZipArchiver(), nil
	case KindSevenZip:
		return NewSevenZipArchiver(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}
