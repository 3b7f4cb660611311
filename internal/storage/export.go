package storage

import (
	"encoding/json"
	"io"
	"os"
)

type ExportData struct {
	RunMetadata
	Times     []float64   `json:"times"`
	Potential []float64   `json:"potential"`
	Kinetic   []float64   `json:"kinetic"`
	Total     []float64   `json:"total"`
	Positions [][]float64 `json:"final_positions,omitempty"`
}

func NewExport(meta RunMetadata, energies Energies, positions [][]float64) ExportData {
	return ExportData{
		RunMetadata: meta,
		Times:       energies.Times,
		Potential:   energies.Potential,
		Kinetic:     energies.Kinetic,
		Total:       energies.Total,
		Positions:   positions,
	}
}

func ExportJSON(path string, data ExportData) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return WriteJSON(file, data)
}

func WriteJSON(w io.Writer, data ExportData) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
