package services

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"sync"
	"time"

	"footfall-prediction-api/models"

	"github.com/go-gota/gota/dataframe"
)

// Dataset is an enriched table with a summary of how it was produced.
type Dataset struct {
	Table   dataframe.DataFrame
	Summary models.DatasetSummary

	viewsOnce sync.Once
	views     models.Views
	viewsErr  error

	historyOnce sync.Once
	history     HistorySource
	historyErr  error
}

// RunPipeline loads, cleans and enriches a CSV held in memory.
func RunPipeline(source string, data []byte) (*Dataset, error) {
	start := time.Now()
	defer func() {
		pipelineDuration.Observe(time.Since(start).Seconds())
	}()

	ds, err := runPipeline(source, data)
	if err != nil {
		datasetsFailed.Inc()
		return nil, err
	}
	datasetsLoaded.Inc()
	rowsRead.Add(float64(ds.Summary.RawRows))
	rowsKept.Add(float64(ds.Summary.CleanRows))
	return ds, nil
}

func runPipeline(source string, data []byte) (*Dataset, error) {
	raw, err := LoadBytes(data)
	if err != nil {
		return nil, err
	}
	cleaned, err := Clean(raw)
	if err != nil {
		return nil, fmt.Errorf("clean: %w", err)
	}
	enriched, err := Enrich(cleaned)
	if err != nil {
		return nil, fmt.Errorf("enrich: %w", err)
	}

	return &Dataset{
		Table: enriched,
		Summary: models.DatasetSummary{
			Source:         source,
			SHA256:         ContentHash(data),
			RawRows:        raw.Nrow(),
			CleanRows:      enriched.Nrow(),
			DroppedColumns: DroppedColumns(raw),
			Columns:        enriched.Names(),
			Locations:      distinctLocations(enriched),
		},
	}, nil
}

// ContentHash identifies a CSV by the SHA-256 of its bytes.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// LoadDataset runs the pipeline over a file.
func LoadDataset(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		datasetsFailed.Inc()
		return nil, fmt.Errorf("read dataset %s: %w", path, err)
	}
	return RunPipeline(path, data)
}

func distinctLocations(df dataframe.DataFrame) []string {
	set := make(map[string]struct{})
	for _, loc := range df.Col(ColLocation).Records() {
		set[loc] = struct{}{}
	}
	return sortedKeys(set)
}

// Views computes the aggregation views of the dataset on first use.
func (d *Dataset) Views() (models.Views, error) {
	d.viewsOnce.Do(func() {
		d.views, d.viewsErr = Aggregate(d.Table)
	})
	return d.views, d.viewsErr
}

// History exposes the dataset as a CSV-mode lag source. The time-ordered
// counts are built on first use and shared read-only afterwards.
func (d *Dataset) History() (HistorySource, error) {
	d.historyOnce.Do(func() {
		d.history, d.historyErr = NewHistorySource(d.Table)
	})
	return d.history, d.historyErr
}
