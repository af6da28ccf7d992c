package drive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// Downloader copies the count sheets of a folder to local disk.
type Downloader struct {
	files FileStore
}

func NewDownloader(files FileStore) *Downloader {
	return &Downloader{files: files}
}

// DownloadSheets downloads every CSV and XLSX file of folderID into dir and
// returns the local paths. Other files are ignored.
func (d *Downloader) DownloadSheets(ctx context.Context, folderID, dir string) ([]string, error) {
	if dir == "" {
		return nil, fmt.Errorf("download dir is required")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create download dir: %w", err)
	}

	files, err := d.files.ListFiles(ctx, folderID)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !f.IsSheet() {
			continue
		}

		localPath := filepath.Join(dir, filepath.Base(f.Name))
		if err := d.downloadTo(ctx, f, localPath); err != nil {
			return nil, err
		}
		log.Debug().Str("file", f.Name).Str("path", localPath).Msg("drive sheet downloaded")
		paths = append(paths, localPath)
	}
	return paths, nil
}

func (d *Downloader) downloadTo(ctx context.Context, f *File, localPath string) error {
	tmp := localPath + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create local file %s: %w", tmp, err)
	}
	if err := d.files.DownloadFile(ctx, f.ID, out); err != nil {
		out.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to download %s: %w", f.Name, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close %s: %w", tmp, err)
	}
	return os.Rename(tmp, localPath)
}
