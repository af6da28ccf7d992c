package artifact

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/andresuchdata/grocerystock/internal/domain"
)

const manifestSuffix = ".meta.json"

// Manifest records which input produced an artifact. The runner compares
// InputHash with the hash of the current input to decide whether a stage has
// to be recomputed.
type Manifest struct {
	Stage       string            `json:"stage"`
	Item        string            `json:"item,omitempty"`
	InputHash   string            `json:"input_hash"`
	Rows        int               `json:"rows"`
	GeneratedAt time.Time         `json:"generated_at"`
	Params      map[string]string `json:"params,omitempty"`
	ItemHashes  map[string]string `json:"item_hashes,omitempty"`
}

// ManifestPath returns the sidecar path of an artifact.
func ManifestPath(artifactPath string) string {
	return artifactPath + manifestSuffix
}

// WriteManifest replaces the sidecar of artifactPath.
func (s *Store) WriteManifest(ctx context.Context, artifactPath string, m Manifest) error {
	if m.GeneratedAt.IsZero() {
		m.GeneratedAt = time.Now().UTC()
	}
	return s.writeAtomic(ctx, ManifestPath(artifactPath), func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(m)
	})
}

// ReadManifest loads the sidecar of artifactPath.
func (s *Store) ReadManifest(artifactPath string) (Manifest, error) {
	data, err := os.ReadFile(ManifestPath(artifactPath))
	if errors.Is(err, os.ErrNotExist) {
		return Manifest{}, domain.ErrArtifactNotFound
	}
	if err != nil {
		return Manifest{}, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("decode manifest %s: %w", ManifestPath(artifactPath), err)
	}
	return m, nil
}

// Fresh reports whether the artifact exists and was produced from an input
// with the given hash.
func (s *Store) Fresh(artifactPath, inputHash string) bool {
	if !s.Exists(artifactPath) {
		return false
	}
	m, err := s.ReadManifest(artifactPath)
	if err != nil {
		return false
	}
	return m.InputHash == inputHash
}

// HashRaw identifies a raw log snapshot.
func HashRaw(rows []domain.RawStockLog) string {
	h := sha256.New()
	for _, r := range rows {
		fmt.Fprintf(h, "%q|%q|%q|%q|%q|%q|%q\n",
			r.ItemName, r.Category, r.CurrentStock, r.UsageToday,
			r.DamagedStock, r.DeliveryQuantity, r.Date)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// HashCleaned identifies a cleaned snapshot together with stage parameters,
// so changing e.g. the horizon invalidates earlier outputs.
func HashCleaned(records []domain.CleanedRecord, params ...string) string {
	h := sha256.New()
	for _, p := range params {
		fmt.Fprintf(h, "%q\n", p)
	}
	for _, r := range records {
		fmt.Fprintf(h, "%q|%s|%d|%d\n",
			r.ItemName, r.Date.Format(domain.DateLayout), r.CurrentStock, r.UsageToday)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// HashParts hashes an ordered list of strings.
func HashParts(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		fmt.Fprintf(h, "%q\n", p)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// FormatParam renders a numeric stage parameter for hashing and manifests.
func FormatParam(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func isNotComputed(err error) bool {
	return errors.Is(err, domain.ErrArtifactNotFound)
}
