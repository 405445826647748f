package incremental

import (
	"os"

	"github.com/albertocavalcante/assetpack/cmd/assetpack/internal/assets"
	"github.com/albertocavalcante/assetpack/internal/log"
)

// Selection partitions a catalog. Every asset appears in exactly one of the
// two slices, in catalog order.
type Selection struct {
	Rebuild   []assets.Asset
	Unchanged []assets.Asset
}

// Select marks for rebuild every asset with at least one file that is the
// same underlying file as a modified path. Files are compared with
// os.SameFile, so symlinks and differently spelled paths still match.
func Select(catalog *assets.Catalog, cs *ChangeSet) *Selection {
	sel := &Selection{}
	if catalog == nil {
		return sel
	}

	var modified []os.FileInfo
	if cs != nil {
		for _, path := range cs.Modified {
			info, err := os.Stat(path)
			if err != nil {
				continue // removed since planning
			}
			modified = append(modified, info)
		}
	}

	for _, asset := range catalog.Assets {
		if touched(asset, modified) {
			log.Trace("selected for rebuild", "component", "planner", "image", asset.ImagePath())
			sel.Rebuild = append(sel.Rebuild, asset)
			continue
		}
		sel.Unchanged = append(sel.Unchanged, asset)
	}
	return sel
}

func touched(asset assets.Asset, modified []os.FileInfo) bool {
	if len(modified) == 0 {
		return false
	}
	for _, f := range asset.Files() {
		info, err := os.Stat(f)
		if err != nil {
			continue
		}
		for _, m := range modified {
			if os.SameFile(info, m) {
				return true
			}
		}
	}
	return false
}
