// Package assets models the buildable units of an asset tree and knows how
// to turn each into a content-addressed archive.
package assets

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/albertocavalcante/assetpack/cmd/assetpack/internal/archive"
	"github.com/albertocavalcante/assetpack/cmd/assetpack/internal/transform"
)

// ErrTransformFailed is returned by Bundle.Build when the image transform
// fails. No archive is written in that case.
var ErrTransformFailed = errors.New("image transform failed")

// Asset is a single buildable unit: a SoloImage or a Bundle.
type Asset interface {
	// ImagePath is the absolute path of the primary image.
	ImagePath() string
	// Files lists every source file of the asset, image first.
	Files() []string
	// Hash is the MD5 of the source files, used to name the archive.
	Hash() (string, error)
	// Build writes {Hash}.zip into resultDir and returns its path.
	Build(ctx context.Context, resultDir string, a archive.Archiver) (string, error)
}

// ArchivePath returns where asset's archive goes inside resultDir.
func ArchivePath(resultDir string, asset Asset) (string, error) {
	hash, err := asset.Hash()
	if err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", asset.ImagePath(), err)
	}
	return filepath.Join(resultDir, hash+".zip"), nil
}

// SoloImage is an image without metadata. It is archived verbatim.
type SoloImage struct {
	imagePath string
}

// NewSoloImage creates a SoloImage.
func NewSoloImage(imagePath string) *SoloImage {
	return &SoloImage{imagePath: imagePath}
}

func (s *SoloImage) ImagePath() string { return s.imagePath }

func (s *SoloImage) Files() []string { return []string{s.imagePath} }

func (s *SoloImage) Hash() (string, error) { return HashFiles(s.imagePath) }

func (s *SoloImage) Build(ctx context.Context, resultDir string, a archive.Archiver) (string, error) {
	dest, err := ArchivePath(resultDir, s)
	if err != nil {
		return "", err
	}
	if err := a.CreateArchive(ctx, dest, s.Files()); err != nil {
		return "", err
	}
	return dest, nil
}

// Bundle is an image paired with a JSON metadata file describing a
// transform. The archive holds the transformed image and the original
// metadata.
type Bundle struct {
	imagePath   string
	jsonPath    string
	transformer transform.Transformer
}

// NewBundle creates a Bundle.
func NewBundle(imagePath, jsonPath string, t transform.Transformer) *Bundle {
	return &Bundle{imagePath: imagePath, jsonPath: jsonPath, transformer: t}
}

func (b *Bundle) ImagePath() string { return b.imagePath }

func (b *Bundle) Files() []string { return []string{b.imagePath, b.jsonPath} }

// Hash covers the image bytes followed by the metadata bytes.
func (b *Bundle) Hash() (string, error) { return HashFiles(b.imagePath, b.jsonPath) }

func (b *Bundle) Build(ctx context.Context, resultDir string, a archive.Archiver) (string, error) {
	// Hash the sources before anything derived exists.
	dest, err := ArchivePath(resultDir, b)
	if err != nil {
		return "", err
	}

	meta, err := ReadMetadata(b.jsonPath)
	if err != nil {
		return "", err
	}

	s, err := newScratch(b.imagePath)
	if err != nil {
		return "", err
	}
	defer func() { _ = s.Release() }()

	copied, err := s.Copy(b.imagePath)
	if err != nil {
		return "", err
	}

	img, err := b.transformer.Rotate(copied, meta.Rotate)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrTransformFailed, b.imagePath, err)
	}

	rotated := s.Path(transformedName(b.imagePath))
	if err := imaging.Save(img, rotated); err != nil {
		return "", fmt.Errorf("failed to save transformed image: %w", err)
	}

	if err := a.CreateArchive(ctx, dest, []string{rotated, b.jsonPath}); err != nil {
		return "", err
	}
	return dest, nil
}

// transformedName keeps the image's base name, switching lossy sources to
// .png.
func transformedName(imagePath string) string {
	base := filepath.Base(imagePath)
	if strings.EqualFold(filepath.Ext(base), ".jpg") {
		return Stem(base) + ".png"
	}
	return base
}
