// Package artifact persists the derived pipeline outputs (cleaned dataset,
// per-item forecasts, the combined anomaly file) as CSV files. Every write
// goes to a temp file in the target directory and is renamed into place, so
// readers see either the previous artifact or the new one, never a mix.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/andresuchdata/grocerystock/internal/domain"
	"github.com/rs/zerolog/log"
)

const (
	cleanedDir     = "cleaned"
	forecastDir    = "forecasts"
	anomalyDir     = "anomalies"
	cleanedFile    = "cleaned_stock.csv"
	anomalyFile    = "anomaly_output.csv"
	forecastSuffix = "_forecast.csv"
)

// Store reads and writes artifacts under a root directory
type Store struct {
	root      string
	publisher Publisher
}

// Option configures a Store.
type Option func(*Store)

// WithPublisher mirrors every written artifact to remote storage.
func WithPublisher(p Publisher) Option {
	return func(s *Store) {
		s.publisher = p
	}
}

// NewStore creates a Store rooted at dir.
func NewStore(dir string, opts ...Option) *Store {
	s := &Store{root: dir}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Root returns the artifact root directory.
func (s *Store) Root() string {
	return s.root
}

// CleanedPath is the location of the cleaned dataset.
func (s *Store) CleanedPath() string {
	return filepath.Join(s.root, cleanedDir, cleanedFile)
}

// ForecastPath is the location of the forecast artifact for item.
func (s *Store) ForecastPath(item string) string {
	return filepath.Join(s.root, forecastDir, domain.ItemKey(item)+forecastSuffix)
}

// AnomalyPath is the location of the combined anomaly artifact.
func (s *Store) AnomalyPath() string {
	return filepath.Join(s.root, anomalyDir, anomalyFile)
}

// Exists reports whether the artifact at path has been generated.
func (s *Store) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// ListForecastItems returns the names of the items that have a forecast
// artifact.
func (s *Store) ListForecastItems() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, forecastDir))
	if errors.Is(err, os.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list forecasts: %w", err)
	}

	items := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, forecastSuffix) || strings.HasPrefix(name, ".") {
			continue
		}
		item, err := domain.ItemFromKey(strings.TrimSuffix(name, forecastSuffix))
		if err != nil {
			log.Warn().Err(err).Str("file", name).Msg("skipping unrecognised forecast file")
			continue
		}
		items = append(items, item)
	}
	sort.Strings(items)
	return items, nil
}

// Status summarises which artifacts exist.
func (s *Store) Status() (domain.ArtifactStatus, error) {
	items, err := s.ListForecastItems()
	if err != nil {
		return domain.ArtifactStatus{}, err
	}

	status := domain.ArtifactStatus{
		CleanedAvailable: s.Exists(s.CleanedPath()),
		ForecastItems:    items,
		AnomalyAvailable: s.Exists(s.AnomalyPath()),
	}
	if status.CleanedAvailable {
		if m, err := s.ReadManifest(s.CleanedPath()); err == nil {
			generated := m.GeneratedAt
			status.CleanedAt = &generated
		}
	}
	return status, nil
}

// writeAtomic writes via a temp file in the destination directory and renames
// it over path.
func (s *Store) writeAtomic(ctx context.Context, path string, write func(w io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create artifact directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpPath)
		}
	}()

	if err := write(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", path, err)
	}
	committed = true

	s.publish(ctx, path)
	return nil
}

func (s *Store) publish(ctx context.Context, path string) {
	if s.publisher == nil {
		return
	}
	key, err := filepath.Rel(s.root, path)
	if err != nil {
		key = filepath.Base(path)
	}
	if err := s.publisher.Publish(ctx, filepath.ToSlash(key), path); err != nil {
		// Local artifact stays authoritative; remote mirror catches up on the next write.
		log.Warn().Err(err).Str("artifact", key).Msg("artifact publish failed")
	}
}

// RemoveForecast deletes the forecast artifact of item and its manifest, so
// a stale prediction is not served once the item's data no longer supports
// one. Missing files are not an error.
func (s *Store) RemoveForecast(ctx context.Context, item string) error {
	path := s.ForecastPath(item)
	for _, p := range []string{path, ManifestPath(path)} {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove %s: %w", p, err)
		}
		s.unpublish(ctx, p)
	}
	return nil
}

func (s *Store) unpublish(ctx context.Context, path string) {
	remover, ok := s.publisher.(Remover)
	if !ok {
		return
	}
	key, err := filepath.Rel(s.root, path)
	if err != nil {
		key = filepath.Base(path)
	}
	if err := remover.Unpublish(ctx, filepath.ToSlash(key)); err != nil {
		log.Warn().Err(err).Str("artifact", key).Msg("artifact unpublish failed")
	}
}

func openArtifact(path string) (*os.File, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), domain.ErrArtifactNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return f, nil
}
