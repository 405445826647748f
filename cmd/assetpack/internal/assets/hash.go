package assets

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// HashFiles computes one MD5 over the contents of paths, fed in order, and
// returns it as hex.
func HashFiles(paths ...string) (string, error) {
	h := md5.New()
	for _, path := range paths {
		if err := hashInto(h, path); err != nil {
			return "", err
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func hashInto(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to hash file: %w", err)
	}
	return nil
}
