package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/AlexisBnnft/Building-Waste/internal/config"
	"github.com/AlexisBnnft/Building-Waste/pkg/contracts/domain"
)

// objectStore is the subset of an S3 bucket the mirror needs
type objectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// minioObjects stores objects in one bucket through minio-go
type minioObjects struct {
	client *minio.Client
	bucket string
}

func (m *minioObjects) Put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := m.client.PutObject(ctx, m.bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("s3 put object: %w", err)
	}
	return nil
}

func (m *minioObjects) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("s3 get object: %w", err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, fmt.Errorf("%w: s3://%s/%s", domain.ErrArchiveNotFound, m.bucket, key)
		}
		return nil, fmt.Errorf("s3 read object: %w", err)
	}
	return data, nil
}

// S3Mirror copies the processed files to and from an S3-compatible bucket.
type S3Mirror struct {
	objects objectStore
	prefix  string
	logger  *slog.Logger
}

// NewS3Mirror connects to the bucket described by cfg. No request is made
// until the first upload or download.
func NewS3Mirror(cfg config.StorageConfig, logger *slog.Logger) (*S3Mirror, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}
	return newS3Mirror(&minioObjects{client: client, bucket: cfg.Bucket}, cfg.Prefix, logger), nil
}

func newS3Mirror(objects objectStore, prefix string, logger *slog.Logger) *S3Mirror {
	if logger == nil {
		logger = slog.Default()
	}
	return &S3Mirror{objects: objects, prefix: prefix, logger: logger}
}

func (m *S3Mirror) key(name string) string {
	return path.Join(m.prefix, name)
}

// Upload copies the archive and the buildings info of local to the bucket.
func (m *S3Mirror) Upload(ctx context.Context, local *LocalStore) error {
	for _, file := range []string{local.ArchivePath(), local.InfoPath()} {
		data, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("read %s: %w", file, err)
		}
		key := m.key(path.Base(file))
		if err := m.objects.Put(ctx, key, data, "application/json"); err != nil {
			return err
		}
		m.logger.Info("Uploaded artifact", slog.String("key", key), slog.Int("bytes", len(data)))
	}
	return nil
}

// Download fetches both files from the bucket and writes them to local.
// Nothing is written unless both objects exist and the archive decodes.
func (m *S3Mirror) Download(ctx context.Context, local *LocalStore) error {
	archiveKey := m.key(path.Base(local.ArchivePath()))
	archive, err := m.objects.Get(ctx, archiveKey)
	if err != nil {
		return err
	}
	if _, err := ReadArchive(bytes.NewReader(archive)); err != nil {
		return fmt.Errorf("mirrored archive: %w", err)
	}

	info, err := m.objects.Get(ctx, m.key(path.Base(local.InfoPath())))
	if err != nil {
		return err
	}

	if err := writeFileAtomic(local.ArchivePath(), archive); err != nil {
		return err
	}
	if err := writeFileAtomic(local.InfoPath(), info); err != nil {
		return err
	}
	m.logger.Info("Downloaded artifact", slog.String("key", archiveKey), slog.Int("bytes", len(archive)))
	return nil
}
