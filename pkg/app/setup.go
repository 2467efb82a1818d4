package app

import (
	"fmt"

	"github.com/taigrr/glbview/pkg/config"
	"github.com/taigrr/glbview/pkg/engine"
)

// LoadScene reads the model and environment named by cfg and hands them
// to the facade. A missing asset is returned as an error. A model or
// environment the facade rejects is reported through n and skipped.
func LoadScene(store AssetReader, cfg config.Config, f engine.Facade, n Notifier) error {
	model, err := store.ReadAsset(cfg.Model)
	if err != nil {
		return fmt.Errorf("load scene: %w", err)
	}
	iblData, err := store.ReadAsset(cfg.IBLPath())
	if err != nil {
		return fmt.Errorf("load scene: %w", err)
	}
	sky, err := store.ReadAsset(cfg.SkyboxPath())
	if err != nil {
		return fmt.Errorf("load scene: %w", err)
	}

	ApplyModel(f, cfg, n, model)

	f.SetIndirectIntensity(cfg.Lighting.IndirectIntensity)
	if err := f.SetIndirectLighting(sky, iblData); err != nil {
		engine.Logger().Warn("indirect lighting rejected", "env", cfg.Environment, "err", err)
		n.Status(fmt.Sprintf("Failed to load environment: %v", err))
	}

	f.ConfigureRenderQuality(cfg.Quality.Options())
	return nil
}

// ApplyModel replaces the facade's model with data and frames it. It
// reports whether the model loaded.
func ApplyModel(f engine.Facade, cfg config.Config, n Notifier, data []byte) bool {
	if err := f.LoadModel(data); err != nil {
		engine.Logger().Warn("model rejected", "model", cfg.Model, "err", err)
		n.Status(fmt.Sprintf("Failed to load model: %v", err))
		return false
	}
	if cfg.AutoScale {
		f.TransformToUnitCube()
	} else {
		f.ClearRootTransform()
	}
	return true
}
