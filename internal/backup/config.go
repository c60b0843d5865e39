package backup

import (
	"context"
	"time"
)

// Config controls periodic snapshots of the analytics database.
type Config struct {
	Enabled  bool
	Interval time.Duration
	Dir      string
	KeepLast int
	// BucketURL (s3://bucket/prefix) enables uploading each snapshot.
	BucketURL  string
	S3Endpoint string
	S3Region   string
}

// Snapshotter produces a consistent copy of a database file.
type Snapshotter interface {
	Path() string
	SnapshotTo(dst string) error
}

// Uploader ships one snapshot off the host.
type Uploader interface {
	UploadFile(ctx context.Context, localPath string) error
}
