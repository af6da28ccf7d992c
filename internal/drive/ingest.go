package drive

import (
	"bytes"
	"context"
	"fmt"

	"github.com/andresuchdata/grocerystock/internal/domain"
	"github.com/andresuchdata/grocerystock/internal/ingest"
)

// IngestService imports count sheets straight from Drive.
type IngestService struct {
	files    FileStore
	importer *ingest.Importer
}

func NewIngestService(files FileStore, importer *ingest.Importer) *IngestService {
	return &IngestService{files: files, importer: importer}
}

// IngestFile downloads one sheet and records its rows.
func (s *IngestService) IngestFile(ctx context.Context, fileID string) (ingest.Result, error) {
	f, err := s.files.GetFile(ctx, fileID)
	if err != nil {
		return ingest.Result{}, err
	}
	if !f.IsSheet() {
		return ingest.Result{}, fmt.Errorf("%w: %s is not a csv or xlsx sheet", domain.ErrInvalidInput, f.Name)
	}

	var buf bytes.Buffer
	if err := s.files.DownloadFile(ctx, fileID, &buf); err != nil {
		return ingest.Result{}, err
	}
	return s.importer.Import(ctx, f.Name, &buf)
}

// IngestFolder imports every sheet in folderID. A sheet that cannot be read
// stops the run; rejected rows are reported per sheet.
func (s *IngestService) IngestFolder(ctx context.Context, folderID string) ([]ingest.Result, error) {
	files, err := s.files.ListFiles(ctx, folderID)
	if err != nil {
		return nil, err
	}

	results := make([]ingest.Result, 0, len(files))
	for _, f := range files {
		if !f.IsSheet() {
			continue
		}
		result, err := s.IngestFile(ctx, f.ID)
		if err != nil {
			return results, fmt.Errorf("failed to ingest %s: %w", f.Name, err)
		}
		results = append(results, result)
	}
	return results, nil
}
