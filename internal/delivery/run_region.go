package delivery

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Pranavrh53/Geo-Watch/internal/cache"
	"github.com/Pranavrh53/Geo-Watch/internal/notification"
	"github.com/Pranavrh53/Geo-Watch/internal/properties"
	"github.com/Pranavrh53/Geo-Watch/internal/raster"
	"github.com/Pranavrh53/Geo-Watch/internal/report"
	"github.com/Pranavrh53/Geo-Watch/output"
)

const ReportFileName = "change_detection_results.json"

type RunRequest struct {
	Region      string
	BeforeDir   string
	AfterDir    string
	BeforeLabel string
	AfterLabel  string
	// OutputDir defaults to data/results/<region>/<before>_vs_<after>.
	OutputDir string
	Quiet     bool
	Notify    bool
}

type RunResult struct {
	Report     report.Report
	ReportPath string
	OutputDir  string
	Artifacts  []string
}

// RunHistory is the store of finished runs kept under data/runs.
func RunHistory(cfg *properties.Config) *cache.FileCache[report.Summary] {
	return cache.NewFileCache[report.Summary](filepath.Join(cfg.DataDir, "runs"))
}

func labelFromDir(dir string) string {
	base := filepath.Base(filepath.Clean(dir))
	if base == "masks" {
		base = filepath.Base(filepath.Dir(filepath.Clean(dir)))
	}
	return base
}

// RunRegion compares the before and after mask folders of a region and
// writes the report and its companion artifacts.
func RunRegion(ctx context.Context, cfg *properties.Config, req RunRequest) (*RunResult, error) {
	start := time.Now()

	if req.BeforeLabel == "" {
		req.BeforeLabel = labelFromDir(req.BeforeDir)
	}
	if req.AfterLabel == "" {
		req.AfterLabel = labelFromDir(req.AfterDir)
	}
	if req.OutputDir == "" {
		region := strings.ToLower(req.Region)
		if region == "" {
			region = "adhoc"
		}
		req.OutputDir = filepath.Join(cfg.DataDir, "results", region, fmt.Sprintf("%s_vs_%s", req.BeforeLabel, req.AfterLabel))
	}
	if err := os.MkdirAll(req.OutputDir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("failed to create result folder: %w", err)
	}

	opts := DetectOptions{
		Meta: report.Meta{
			Region:      req.Region,
			BeforeLabel: req.BeforeLabel,
			AfterLabel:  req.AfterLabel,
		},
		Quiet: req.Quiet,
	}
	if cfg.Output.TileImages {
		opts.TileImageDir = filepath.Join(req.OutputDir, "visualizations")
	}
	if cfg.Output.TileAnimations {
		opts.TileVideoDir = filepath.Join(req.OutputDir, "animations")
	}

	before := raster.NewDirSource(req.BeforeDir, cfg.GroundSamplingDistanceM)
	after := raster.NewDirSource(req.AfterDir, cfg.GroundSamplingDistanceM)

	r, err := DetectChanges(ctx, cfg, before, after, opts)
	if err != nil {
		return nil, err
	}

	result := &RunResult{
		Report:     r,
		ReportPath: filepath.Join(req.OutputDir, ReportFileName),
		OutputDir:  req.OutputDir,
	}
	if err := report.WriteJSON(r, result.ReportPath); err != nil {
		return nil, err
	}
	result.Artifacts = append(result.Artifacts, result.ReportPath)

	// Companion artifacts are best effort; the JSON report is the contract.
	if cfg.Output.CSV {
		path := filepath.Join(req.OutputDir, "tiles.csv")
		if err := output.CreateTileCSV(r, path); err != nil {
			log.Printf("failed to write tile CSV: %v", err)
		} else {
			result.Artifacts = append(result.Artifacts, path)
		}
	}
	if cfg.Output.GeoJSON && req.Region != "" {
		if region, err := cfg.Region(req.Region); err == nil {
			path := filepath.Join(req.OutputDir, "changes.geojson")
			if err := output.CreateChangeGeoJson(r, region.Bound(), path); err != nil {
				log.Printf("failed to write change GeoJSON: %v", err)
			} else {
				result.Artifacts = append(result.Artifacts, path)
			}
		}
	}
	if cfg.Output.Chart {
		path := filepath.Join(req.OutputDir, "change_summary.png")
		if err := output.CreateSummaryChart(r, path); err != nil {
			log.Printf("failed to write summary chart: %v", err)
		} else {
			result.Artifacts = append(result.Artifacts, path)
		}
	}

	if err := RunHistory(cfg).Set(r.RunID, r.Summary(result.ReportPath)); err != nil {
		log.Printf("failed to record run %s: %v", r.RunID, err)
	}

	elapsed := time.Since(start)
	log.Printf("change detection took %v (%d tiles processed, %d skipped)", elapsed, r.TilesProcessed, r.TilesSkipped)

	if req.Notify {
		if err := notification.NotifyRun(r, elapsed); err != nil {
			log.Printf("failed to send notification: %v", err)
		}
	}
	return result, nil
}
