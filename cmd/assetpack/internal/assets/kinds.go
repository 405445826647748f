package assets

import (
	"path/filepath"
	"strings"
)

// ImageExtensions is the allow-list of image file extensions. Matching is
// case-insensitive.
var ImageExtensions = []string{".png", ".jpg"}

// MetadataExtension marks a bundle's metadata file.
const MetadataExtension = ".json"

// IsImage reports whether path has an allowed image extension.
func IsImage(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, allowed := range ImageExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// IsMetadata reports whether path is a metadata file.
func IsMetadata(path string) bool {
	return strings.ToLower(filepath.Ext(path)) == MetadataExtension
}

// Stem returns the base name of path without its extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
