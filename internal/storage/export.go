package storage

import (
	"encoding/json"
	"io"
	"os"
)

type ExportData struct {
	Scene      string             `json:"scene"`
	Dt         float64            `json:"dt"`
	Duration   float64            `json:"duration"`
	Iterations int                `json:"iterations"`
	Bodies     int                `json:"bodies"`
	Steps      int                `json:"steps"`
	Times      []float64          `json:"times"`
	Series     [][]float64        `json:"series"`
	Columns    []string           `json:"columns"`
	Metrics    map[string]float64 `json:"metrics"`
}

func exportData(meta *RunMetadata, traj *Trajectory) ExportData {
	data := ExportData{
		Scene:      meta.Scene,
		Dt:         meta.Dt,
		Duration:   meta.Duration,
		Iterations: meta.Iterations,
		Bodies:     meta.Bodies,
		Steps:      len(traj.Times),
		Times:      traj.Times,
		Series:     traj.Series,
		Metrics:    meta.Metrics,
	}
	if len(traj.Series) > 0 {
		data.Columns = seriesHeader(len(traj.Series[0]))[1:]
	}
	return data
}

func ExportJSON(path string, meta *RunMetadata, traj *Trajectory) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return writeJSON(file, meta, traj)
}

func ExportJSONStdout(meta *RunMetadata, traj *Trajectory) error {
	return writeJSON(os.Stdout, meta, traj)
}

func writeJSON(w io.Writer, meta *RunMetadata, traj *Trajectory) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(exportData(meta, traj))
}
