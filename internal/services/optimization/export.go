package optimization

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"kairos/internal/domain/optimization"
	"kairos/pkg/errors"
)

// BuildExport assembles the versioned export document for a finished run.
func (s *Service) BuildExport(summary *RunSummary) *optimization.Export {
	return &optimization.Export{
		SchemaVersion: optimization.ExportSchemaVersion,
		Meta: optimization.ExportMeta{
			RunID:     summary.RunID,
			Symbol:    summary.Symbol,
			Timeframe: summary.Timeframe,
			CreatedAt: time.Now().UTC(),
			Method:    summary.Method,
			Trials:    summary.Trials,
		},
		ParameterRanges: s.space.Configured(),
		Results:         summary.Results,
	}
}

// WriteResults writes the export document as indented JSON.
func (s *Service) WriteResults(w io.Writer, summary *RunSummary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s.BuildExport(summary)); err != nil {
		return errors.Wrap(err, "encode export")
	}
	return nil
}

// ExportResults writes the export document to a file. This is the only file
// the engine itself produces.
func (s *Service) ExportResults(path string, summary *RunSummary) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create export file %s", path)
	}

	if err := s.WriteResults(f, summary); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errors.Wrapf(err, "close export file %s", path)
	}

	s.log.Infow("Exported results", "path", path, "results", len(summary.Results))
	return nil
}
