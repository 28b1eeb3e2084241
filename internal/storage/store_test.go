package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/san-kum/powertrain/internal/config"
	"github.com/san-kum/powertrain/internal/system"
)

// sample is a 2x3 map with one infeasible cell.
func sample() *system.Result {
	res := system.NewResult([]float64{-5, 5}, []float64{0, 100, 200})
	for i := range res.Torque {
		for j := range res.RPM {
			if i == 1 && j == 2 {
				continue
			}
			for k, m := range res.Layers() {
				m.Set(i, j, float64(10*i+j)+float64(k)/10)
			}
		}
	}
	return res
}

func TestStoreSaveLoad(t *testing.T) {
	st := New(t.TempDir(), nil)
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	res := sample()
	runID, err := st.Save("test", config.GetPreset("ideal"), 100, res, map[string]float64{"peak_power": 1.5})
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if !strings.HasPrefix(runID, "test_") {
		t.Errorf("expected run id prefixed with the name, got %q", runID)
	}

	meta, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if meta.Name != "test" {
		t.Errorf("expected name 'test', got '%s'", meta.Name)
	}
	if meta.GridSize != 100 {
		t.Errorf("expected gridsize 100, got %d", meta.GridSize)
	}
	if meta.Torques != 2 || meta.Speeds != 3 {
		t.Errorf("expected a 2x3 grid, got %dx%d", meta.Torques, meta.Speeds)
	}
	if meta.Metrics["peak_power"] != 1.5 {
		t.Errorf("expected peak_power 1.5, got %f", meta.Metrics["peak_power"])
	}
	if math.Abs(meta.Feasible-5.0/6) > 1e-12 {
		t.Errorf("expected feasible 5/6, got %f", meta.Feasible)
	}

	got, err := st.LoadResult(runID)
	if err != nil {
		t.Fatalf("load result failed: %v", err)
	}
	for i, tq := range res.Torque {
		if got.Torque[i] != tq {
			t.Errorf("torque %d: expected %f, got %f", i, tq, got.Torque[i])
		}
	}
	for j, r := range res.RPM {
		if got.RPM[j] != r {
			t.Errorf("rpm %d: expected %f, got %f", j, r, got.RPM[j])
		}
	}
	want, have := res.Layers(), got.Layers()
	for k := range want {
		for i := range res.Torque {
			for j := range res.RPM {
				w, h := want[k].At(i, j), have[k].At(i, j)
				if math.IsNaN(w) != math.IsNaN(h) || (!math.IsNaN(w) && math.Abs(w-h) > 1e-9) {
					t.Errorf("layer %d cell (%d,%d): expected %v, got %v", k, i, j, w, h)
				}
			}
		}
	}

	cfg, err := st.LoadConfig(runID)
	if err != nil {
		t.Fatalf("load config failed: %v", err)
	}
	if cfg.Controller.Preset != config.GetPreset("ideal").Controller.Preset {
		t.Errorf("expected the saved controller preset, got %q", cfg.Controller.Preset)
	}
}

func TestStoreList(t *testing.T) {
	st := New(filepath.Join(t.TempDir(), "runs"), nil)

	runs, err := st.List()
	if err != nil {
		t.Fatalf("list of a missing dir failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected 0 runs, got %d", len(runs))
	}

	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	for _, name := range []string{"a", "b"} {
		if _, err := st.Save(name, nil, 10, sample(), nil); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}
	if err := os.Mkdir(filepath.Join(st.baseDir, "stray"), 0755); err != nil {
		t.Fatal(err)
	}

	runs, err = st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID == runs[1].ID {
		t.Error("expected distinct run ids")
	}
}

func TestStoreFileStructure(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir, nil)
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	runID, err := st.Save("test", config.GetPreset("ideal"), 10, sample(), nil)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	for _, name := range []string{metadataFile, systemFile, gridFile} {
		if _, err := os.Stat(filepath.Join(tmpDir, runID, name)); os.IsNotExist(err) {
			t.Errorf("%s not created", name)
		}
	}
}

func TestLoadResultCorrupt(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir, nil)
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	runID, err := st.Save("test", nil, 10, sample(), nil)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	grid := filepath.Join(tmpDir, runID, gridFile)
	data, err := os.ReadFile(grid)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if err := os.WriteFile(grid, []byte(strings.Join(lines[:len(lines)-1], "\n")+"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := st.LoadResult(runID); !errors.Is(err, ErrCorrupt) {
		t.Errorf("expected ErrCorrupt, got %v", err)
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, "test", sample(), map[string]float64{"top_rpm": 200}); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	var data ExportData
	if err := json.Unmarshal(buf.Bytes(), &data); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	bus, ok := data.Layers["bus"]
	if !ok {
		t.Fatal("expected a bus layer")
	}
	if bus[1][2] != nil {
		t.Errorf("expected the infeasible cell to be null, got %v", *bus[1][2])
	}
	if bus[0][1] == nil || math.Abs(*bus[0][1]-1.2) > 1e-12 {
		t.Errorf("expected bus 1.2 at (0,1), got %v", bus[0][1])
	}
	if data.Metrics["top_rpm"] != 200 {
		t.Errorf("expected top_rpm 200, got %f", data.Metrics["top_rpm"])
	}
}

func TestExportJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "map.json")
	if err := ExportJSON(path, "test", sample(), nil); err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("export file missing: %v", err)
	}
}
