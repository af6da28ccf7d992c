package artifact

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/andresuchdata/grocerystock/internal/storage"
	"github.com/rs/zerolog/log"
)

// Publisher mirrors a local artifact to remote storage under key.
type Publisher interface {
	Publish(ctx context.Context, key, localPath string) error
}

// Remover is implemented by publishers that can drop a mirrored artifact.
type Remover interface {
	Unpublish(ctx context.Context, key string) error
}

// ObjectPublisher uploads artifacts to S3-compatible object storage.
type ObjectPublisher struct {
	storage storage.ObjectStorage
	prefix  string
}

// NewObjectPublisher creates a publisher writing under prefix.
func NewObjectPublisher(s storage.ObjectStorage, prefix string) *ObjectPublisher {
	return &ObjectPublisher{storage: s, prefix: strings.Trim(prefix, "/")}
}

func (p *ObjectPublisher) Publish(ctx context.Context, key, localPath string) error {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", localPath, err)
	}
	return p.storage.UploadObject(ctx, p.objectKey(key), data)
}

func (p *ObjectPublisher) Unpublish(ctx context.Context, key string) error {
	return p.storage.DeleteObject(ctx, p.objectKey(key))
}

func (p *ObjectPublisher) objectKey(key string) string {
	if p.prefix == "" {
		return key
	}
	return path.Join(p.prefix, key)
}

// Pull downloads every remote artifact under the publisher prefix into the
// store root, returning the number of files fetched. Downloads land in temp
// files first and are renamed, like local writes.
func (p *ObjectPublisher) Pull(ctx context.Context, s *Store) (int, error) {
	prefix := p.prefix
	if prefix != "" {
		prefix += "/"
	}

	objects, err := p.storage.ListObjects(ctx, prefix)
	if err != nil {
		return 0, err
	}

	fetched := 0
	for _, obj := range objects {
		rel := strings.TrimPrefix(obj.Key, prefix)
		if rel == "" || strings.HasSuffix(rel, "/") {
			continue
		}
		dest := filepath.Join(s.root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return fetched, fmt.Errorf("failed to create %s: %w", filepath.Dir(dest), err)
		}
		tmp := dest + ".download"
		if err := p.storage.DownloadObject(ctx, obj.Key, tmp); err != nil {
			return fetched, fmt.Errorf("failed to download %s: %w", obj.Key, err)
		}
		if err := os.Rename(tmp, dest); err != nil {
			return fetched, fmt.Errorf("failed to move %s into place: %w", dest, err)
		}
		log.Debug().Str("key", obj.Key).Str("dest", dest).Msg("artifact pulled")
		fetched++
	}
	return fetched, nil
}
