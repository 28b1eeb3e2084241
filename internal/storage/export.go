package storage

import (
	"encoding/json"
	"io"
	"math"
	"os"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/powertrain/internal/system"
)

// ExportData is a self contained JSON rendition of a solved map. Infeasible
// cells are null.
type ExportData struct {
	Name     string                  `json:"name"`
	Torque   []float64               `json:"torque"`
	RPM      []float64               `json:"rpm"`
	Feasible float64                 `json:"feasible"`
	Layers   map[string][][]*float64 `json:"layers"`
	Metrics  map[string]float64      `json:"metrics"`
}

func NewExportData(name string, res *system.Result, metrics map[string]float64) ExportData {
	data := ExportData{
		Name:     name,
		Torque:   res.Torque,
		RPM:      res.RPM,
		Feasible: res.FeasibleFraction(),
		Layers:   make(map[string][][]*float64),
		Metrics:  metrics,
	}
	for k, m := range res.Layers() {
		data.Layers[gridHeader[k+2]] = nullable(m)
	}
	return data
}

func nullable(m *mat.Dense) [][]*float64 {
	rows, cols := m.Dims()
	out := make([][]*float64, rows)
	for i := range out {
		out[i] = make([]*float64, cols)
		for j := range out[i] {
			if v := m.At(i, j); !math.IsNaN(v) {
				out[i][j] = &v
			}
		}
	}
	return out
}

func WriteJSON(w io.Writer, name string, res *system.Result, metrics map[string]float64) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewExportData(name, res, metrics))
}

func ExportJSON(path, name string, res *system.Result, metrics map[string]float64) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return WriteJSON(file, name, res, metrics)
}
