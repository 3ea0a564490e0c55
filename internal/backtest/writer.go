package backtest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"SignalForge/internal/domain/models"
)

// Writer persists replay artifacts under outDir/<run-id>/ as JSON files:
// run.json, signals.json, trades.json, equity.json, regimes.json.
type Writer struct {
	outDir string
}

func NewWriter(outDir string) *Writer {
	if outDir == "" {
		outDir = "out/backtests"
	}
	return &Writer{outDir: outDir}
}

// Write lays the full artifact set down for one run.
func (w *Writer) Write(result *models.BacktestResult) error {
	dir := filepath.Join(w.outDir, result.Run.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}

	files := map[string]interface{}{
		"run.json":     result.Run,
		"signals.json": result.Signals,
		"trades.json":  result.Trades,
		"equity.json":  result.Equity,
		"regimes.json": result.Changes,
	}
	for name, v := range files {
		if err := writeJSON(filepath.Join(dir, name), v); err != nil {
			return err
		}
	}
	return nil
}

func writeJSON(path string, v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}
