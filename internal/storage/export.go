package storage

import (
	"encoding/json"
	"io"

	"github.com/san-kum/mpcdrive/internal/sim"
)

type ExportData struct {
	Meta     RunMetadata        `json:"meta"`
	Steps    int                `json:"steps"`
	Times    []float64          `json:"times"`
	States   [][]float64        `json:"states"`
	Controls [][]float64        `json:"controls"`
	Metrics  map[string]float64 `json:"metrics"`
}

// ExportJSON writes a complete run as one JSON document.
func ExportJSON(w io.Writer, meta RunMetadata, result *sim.Result) error {
	data := ExportData{
		Meta:     meta,
		Steps:    len(result.Times),
		Times:    result.Times,
		States:   make([][]float64, len(result.States)),
		Controls: make([][]float64, len(result.Controls)),
		Metrics:  result.Metrics,
	}

	for i, s := range result.States {
		data.States[i] = s
	}
	for i, c := range result.Controls {
		data.Controls[i] = c
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
