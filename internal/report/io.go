package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
)

// WriteJSON stores the report at path, replacing any previous file atomically.
func WriteJSON(r Report, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	tmpFile := path + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp report file: %w", err)
	}
	if err := os.Rename(tmpFile, path); err != nil {
		os.Remove(tmpFile)
		return fmt.Errorf("failed to rename temp report file: %w", err)
	}
	return nil
}

func ReadJSON(path string) (Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Report{}, fmt.Errorf("failed to read report: %w", err)
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return Report{}, fmt.Errorf("failed to decode report %s: %w", path, err)
	}
	return r, nil
}

// PrintSummary writes the human readable change summary.
func PrintSummary(w io.Writer, r Report) {
	heading := color.New(color.FgCyan, color.Bold)
	warn := color.New(color.FgYellow)

	line := strings.Repeat("=", 60)
	fmt.Fprintln(w, line)
	if r.Region != "" {
		heading.Fprintf(w, "CHANGE DETECTION SUMMARY: %s\n", strings.ToUpper(r.Region))
	} else {
		heading.Fprintln(w, "CHANGE DETECTION SUMMARY")
	}
	if r.BeforeLabel != "" || r.AfterLabel != "" {
		fmt.Fprintf(w, "%s -> %s\n", r.BeforeLabel, r.AfterLabel)
	}
	fmt.Fprintln(w, line)

	for _, c := range r.Changes {
		if c.Pixels == 0 {
			continue
		}
		fmt.Fprintf(w, "- %s:\n", c.Name)
		fmt.Fprintf(w, "   Area: %.2f hectares\n", c.AreaHectares)
		fmt.Fprintf(w, "         %.2f acres\n", c.AreaAcres)
		fmt.Fprintf(w, "         %.4f sq km\n", c.AreaSqkm)
		fmt.Fprintf(w, "   Pixels: %d\n", c.Pixels)
	}

	fmt.Fprintf(w, "Total Changed Area: %.2f hectares (sum over change types)\n", r.TotalChangeHectares)
	fmt.Fprintf(w, "Tiles processed: %d\n", r.TilesProcessed)
	if r.TilesSkipped > 0 {
		warn.Fprintf(w, "Tiles skipped: %d\n", r.TilesSkipped)
		for _, s := range r.Skipped {
			warn.Fprintf(w, "  - %s: %s\n", s.TileIndex, s.Reason)
		}
	} else {
		fmt.Fprintf(w, "Tiles skipped: 0\n")
	}
	if r.UnknownPixels > 0 {
		warn.Fprintf(w, "Pixels with unknown class codes (excluded from all rules): %d\n", r.UnknownPixels)
	}
	fmt.Fprintln(w, line)
}
