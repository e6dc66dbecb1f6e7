package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/alanyoungcy/ethsentinel/internal/domain"
)

// Archiver uploads the raw inputs and the structured result of a training run
// to object storage, keyed by run ID. Archived inputs make any historical run
// reproducible from the bucket alone.
type Archiver struct {
	writer domain.BlobWriter
}

// NewArchiver creates a new Archiver.
func NewArchiver(writer domain.BlobWriter) *Archiver {
	return &Archiver{writer: writer}
}

// ArchiveInputs uploads both source CSVs under datasets/{runID}/.
func (a *Archiver) ArchiveInputs(ctx context.Context, runID string, transactions, features io.Reader) error {
	if err := a.writer.Put(ctx, inputPath(runID, "transactions.csv"), transactions, "text/csv"); err != nil {
		return fmt.Errorf("s3blob: archive transactions for run %s: %w", runID, err)
	}
	if err := a.writer.Put(ctx, inputPath(runID, "features.csv"), features, "text/csv"); err != nil {
		return fmt.Errorf("s3blob: archive features for run %s: %w", runID, err)
	}
	return nil
}

// ArchiveResult uploads the run result as JSON under results/.
func (a *Archiver) ArchiveResult(ctx context.Context, result domain.RunResult) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("s3blob: marshal result for run %s: %w", result.ID, err)
	}

	path := fmt.Sprintf("results/%s.json", result.ID)
	if err := a.writer.Put(ctx, path, &buf, "application/json"); err != nil {
		return fmt.Errorf("s3blob: archive result for run %s: %w", result.ID, err)
	}
	return nil
}

func inputPath(runID, name string) string {
	return fmt.Sprintf("datasets/%s/%s", runID, name)
}
