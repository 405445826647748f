package assets

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"

	"github.com/albertocavalcante/assetpack/cmd/assetpack/internal/transform"
)

// Metadata is the part of a bundle's JSON file the build understands.
// Unknown keys are ignored.
type Metadata struct {
	Rotate transform.Direction
}

// ParseMetadata decodes bundle metadata. Comments and trailing commas are
// accepted. A missing, non-string or unrecognized "rotate" value yields
// transform.None.
func ParseMetadata(data []byte) (Metadata, error) {
	var raw map[string]any
	if err := json.Unmarshal(jsonc.ToJSON(data), &raw); err != nil {
		return Metadata{}, fmt.Errorf("failed to parse metadata: %w", err)
	}

	rotate, _ := raw["rotate"].(string)
	return Metadata{Rotate: transform.ParseDirection(rotate)}, nil
}

// ReadMetadata reads and parses the metadata file at path.
func ReadMetadata(path string) (Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to read metadata: %w", err)
	}
	meta, err := ParseMetadata(data)
	if err != nil {
		return Metadata{}, fmt.Errorf("%s: %w", path, err)
	}
	return meta, nil
}
