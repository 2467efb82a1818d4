package app

import (
	"errors"
	"strings"
	"testing"

	"github.com/taigrr/glbview/pkg/config"
	"github.com/taigrr/glbview/pkg/render"
)

func sceneStore(cfg config.Config) memStore {
	return memStore{
		cfg.Model:        []byte("glb"),
		cfg.IBLPath():    []byte("ibl"),
		cfg.SkyboxPath(): []byte("sky"),
	}
}

func TestLoadScene(t *testing.T) {
	cfg := config.Default()
	f := newFakeFacade()
	n := &fakeNotifier{}
	if err := LoadScene(sceneStore(cfg), cfg, f, n); err != nil {
		t.Fatalf("LoadScene() error = %v", err)
	}
	if f.loads != 1 || f.unitCube != 1 || f.cleared != 0 {
		t.Errorf("loads/unitCube/cleared = %d/%d/%d, want 1/1/0", f.loads, f.unitCube, f.cleared)
	}
	if f.intensity != 30000 {
		t.Errorf("intensity = %v, want 30000", f.intensity)
	}
	if f.quality == nil || !f.quality.MSAA || f.quality.HDRColorBuffer != render.TierMedium {
		t.Errorf("quality = %+v", f.quality)
	}
	if len(n.statuses) != 0 {
		t.Errorf("statuses = %q, want none", n.statuses)
	}
}

func TestLoadSceneNoAutoScale(t *testing.T) {
	cfg := config.Default()
	cfg.AutoScale = false
	f := newFakeFacade()
	if err := LoadScene(sceneStore(cfg), cfg, f, &fakeNotifier{}); err != nil {
		t.Fatal(err)
	}
	if f.unitCube != 0 || f.cleared != 1 {
		t.Errorf("unitCube/cleared = %d/%d, want 0/1", f.unitCube, f.cleared)
	}
}

func TestLoadSceneMissingAsset(t *testing.T) {
	cfg := config.Default()
	for _, missing := range []string{cfg.Model, cfg.IBLPath(), cfg.SkyboxPath()} {
		t.Run(missing, func(t *testing.T) {
			store := sceneStore(cfg)
			delete(store, missing)
			f := newFakeFacade()
			err := LoadScene(store, cfg, f, &fakeNotifier{})
			if !errors.Is(err, errMissing) {
				t.Errorf("LoadScene() error = %v, want missing asset", err)
			}
			if f.loads != 0 {
				t.Errorf("LoadModel called %d times before assets were read", f.loads)
			}
		})
	}
}

func TestLoadSceneRejectedModel(t *testing.T) {
	cfg := config.Default()
	f := newFakeFacade()
	f.loadErr = errors.New("bad magic")
	n := &fakeNotifier{}
	if err := LoadScene(sceneStore(cfg), cfg, f, n); err != nil {
		t.Fatalf("LoadScene() error = %v, want nil for a malformed model", err)
	}
	if f.unitCube != 0 {
		t.Error("framed a model that failed to load")
	}
	if len(n.statuses) != 1 || !strings.HasPrefix(n.statuses[0], "Failed to load model:") {
		t.Errorf("statuses = %q", n.statuses)
	}
	if f.quality == nil {
		t.Error("quality not configured after a model failure")
	}
}

func TestLoadSceneRejectedLighting(t *testing.T) {
	cfg := config.Default()
	f := newFakeFacade()
	f.lightErr = errors.New("not ktx")
	n := &fakeNotifier{}
	if err := LoadScene(sceneStore(cfg), cfg, f, n); err != nil {
		t.Fatal(err)
	}
	if len(n.statuses) != 1 || !strings.HasPrefix(n.statuses[0], "Failed to load environment:") {
		t.Errorf("statuses = %q", n.statuses)
	}
}

func TestModelReload(t *testing.T) {
	cfg := config.Default()
	f := newFakeFacade()
	n := &fakeNotifier{}
	reload := ModelReload(f, cfg, n)

	reload([]byte("v2"))
	if f.releases != 1 || f.loads != 1 || f.unitCube != 1 {
		t.Errorf("releases/loads/unitCube = %d/%d/%d", f.releases, f.loads, f.unitCube)
	}
	if len(n.statuses) != 1 || n.statuses[0] != "Model reloaded" {
		t.Errorf("statuses = %q", n.statuses)
	}

	f.loadErr = errors.New("truncated")
	reload([]byte("v3"))
	if len(n.statuses) != 2 || !strings.HasPrefix(n.statuses[1], "Failed to load model:") {
		t.Errorf("statuses = %q", n.statuses)
	}
}
