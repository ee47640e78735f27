package raster

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"
)

// SceneRaster is the on-disk form of one catalogued scene: its band planes
// (including the QA plane) serialized with MessagePack. Files live under
// the catalog band root, one file per scene.
type SceneRaster struct {
	SceneID string `msgpack:"scene_id"`
	Grid    *Grid  `msgpack:"grid"`
}

// SceneFileName returns the band-file name for a scene ID
func SceneFileName(sceneID string) string {
	return sceneID + ".bands"
}

// WriteSceneFile serializes a scene's bands under the band root,
// overwriting any existing file for the same scene.
func WriteSceneFile(bandRoot, sceneID string, g *Grid) error {
	data, err := msgpack.Marshal(&SceneRaster{SceneID: sceneID, Grid: g})
	if err != nil {
		return fmt.Errorf("encoding scene %s: %w", sceneID, err)
	}

	if err := os.MkdirAll(bandRoot, 0755); err != nil {
		return fmt.Errorf("creating band root: %w", err)
	}
	path := filepath.Join(bandRoot, SceneFileName(sceneID))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing scene file %s: %w", path, err)
	}
	return nil
}

// ReadSceneFile loads a scene's bands from the band root
func ReadSceneFile(bandRoot, sceneID string) (*Grid, error) {
	path := filepath.Join(bandRoot, SceneFileName(sceneID))
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scene file %s: %w", path, err)
	}

	var sr SceneRaster
	if err := msgpack.Unmarshal(data, &sr); err != nil {
		return nil, fmt.Errorf("decoding scene file %s: %w", path, err)
	}
	if sr.Grid == nil {
		return nil, fmt.Errorf("scene file %s has no grid", path)
	}
	if sr.SceneID != sceneID {
		return nil, fmt.Errorf("scene file %s holds scene %q", path, sr.SceneID)
	}
	return sr.Grid, nil
}
