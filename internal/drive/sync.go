package drive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/andresuchdata/restock-advisor/internal/ingest"
	"github.com/rs/zerolog/log"
)

// FileSource lists and downloads files from a remote folder.
type FileSource interface {
	ListFiles(ctx context.Context, folderID string) ([]*File, error)
	DownloadFile(ctx context.Context, fileID string, w io.Writer) error
}

// SalesImporter consumes one downloaded sales file.
type SalesImporter interface {
	Import(ctx context.Context, name string, r io.Reader) (*ingest.Report, error)
}

// FileResult is the outcome of importing one Drive file.
type FileResult struct {
	File   *File          `json:"file"`
	Report *ingest.Report `json:"report,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// Syncer imports every CSV and XLSX file of a Drive folder into the sales store.
type Syncer struct {
	source   FileSource
	importer SalesImporter
}

func NewSyncer(source FileSource, importer SalesImporter) *Syncer {
	return &Syncer{source: source, importer: importer}
}

// SyncFolder imports the folder's files in name order. A file that fails to
// download or parse is reported and the remaining files are still imported.
func (s *Syncer) SyncFolder(ctx context.Context, folderID string) ([]FileResult, error) {
	files, err := s.source.ListFiles(ctx, folderID)
	if err != nil {
		return nil, err
	}

	var results []FileResult
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		ext := strings.ToLower(filepath.Ext(f.Name))
		if ext != ".csv" && ext != ".xlsx" {
			continue
		}

		result := FileResult{File: f}
		report, err := s.importFile(ctx, f)
		if err != nil {
			log.Warn().Err(err).Str("file", f.Name).Msg("drive: import failed")
			result.Error = err.Error()
		} else {
			result.Report = report
		}
		results = append(results, result)
	}

	log.Info().Str("folder_id", folderID).Int("files", len(results)).Msg("drive: folder synced")
	return results, nil
}

func (s *Syncer) importFile(ctx context.Context, f *File) (*ingest.Report, error) {
	var buf bytes.Buffer
	if err := s.source.DownloadFile(ctx, f.ID, &buf); err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", f.Name, err)
	}
	return s.importer.Import(ctx, f.Name, &buf)
}
