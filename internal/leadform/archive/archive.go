// Package archive snapshots lead form configurations to S3-compatible object
// storage before they are overwritten by a sync.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"skaleclub_backend/platform/config"
)

const objectPrefix = "lead-form-config/"

// Snapshot describes one archived configuration object.
type Snapshot struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
}

// MinIOArchiver writes configuration snapshots to a MinIO bucket.
type MinIOArchiver struct {
	client *minio.Client
	bucket string
}

// NewMinIOArchiver creates an archiver for the configured bucket.
func NewMinIOArchiver(cfg config.MinIOConfig) (*MinIOArchiver, error) {
	if !cfg.IsMinIOEnabled() {
		return nil, fmt.Errorf("MinIO is not configured")
	}

	client, err := minio.New(cfg.GetMinIOEndpoint(), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.GetMinIOAccessKey(), cfg.GetMinIOSecretKey(), ""),
		Secure: cfg.GetMinIOUseSSL(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	return &MinIOArchiver{client: client, bucket: cfg.GetMinioBucketFormArchive()}, nil
}

// EnsureBucket creates the archive bucket if it doesn't exist.
func (a *MinIOArchiver) EnsureBucket(ctx context.Context) error {
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", a.bucket, err)
		}
	}
	return nil
}

// Archive stores raw under a key derived from at and returns that key.
func (a *MinIOArchiver) Archive(ctx context.Context, raw []byte, at time.Time) (string, error) {
	key := ObjectKey(at)
	_, err := a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(raw), int64(len(raw)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("archive lead form config: %w", err)
	}
	return key, nil
}

// List returns the newest limit snapshots, newest first.
func (a *MinIOArchiver) List(ctx context.Context, limit int) ([]Snapshot, error) {
	var out []Snapshot
	for obj := range a.client.ListObjects(ctx, a.bucket, minio.ListObjectsOptions{Prefix: objectPrefix}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list archived configs: %w", obj.Err)
		}
		out = append(out, Snapshot{Key: obj.Key, Size: obj.Size, LastModified: obj.LastModified})
	}
	return newestFirst(out, limit), nil
}

// ObjectKey names the snapshot taken at at. Keys sort chronologically.
func ObjectKey(at time.Time) string {
	stamp := at.UTC().Format("20060102T150405.000000000Z")
	return objectPrefix + strings.Replace(stamp, ".", "", 1) + ".json"
}

func newestFirst(snaps []Snapshot, limit int) []Snapshot {
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].Key > snaps[j].Key })
	if limit > 0 && len(snaps) > limit {
		snaps = snaps[:limit]
	}
	return snaps
}
