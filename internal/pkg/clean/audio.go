package clean

import (
	"context"
	"fmt"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/CC90210/ECHOES-APP/internal/pkg/persistence"
)

// EchoLoader loads echo record to resolve its audio key
type EchoLoader interface {
	LoadEcho(ctx context.Context, id string) (*persistence.Echo, error)
}

// ObjectRemover removes an object from the storage bucket
type ObjectRemover interface {
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

// AudioCleaner drops the audio object of an echo from minio storage
type AudioCleaner struct {
	remover ObjectRemover
	bucket  string
	db      EchoLoader
}

// Options is minio connection configuration
type Options struct {
	URL    string
	User   string
	Key    string
	Bucket string
	Secure bool
}

// NewAudioCleaner creates audio cleaner with a real minio client
func NewAudioCleaner(opts Options, db EchoLoader) (*AudioCleaner, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("no storage URL")
	}
	mc, err := minio.New(opts.URL, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.User, opts.Key, ""),
		Secure: opts.Secure,
	})
	if err != nil {
		return nil, fmt.Errorf("can't init minio client: %w", err)
	}
	return newAudioCleaner(mc, opts.Bucket, db)
}

func newAudioCleaner(remover ObjectRemover, bucket string, db EchoLoader) (*AudioCleaner, error) {
	if remover == nil {
		return nil, fmt.Errorf("no object remover")
	}
	if bucket == "" {
		return nil, fmt.Errorf("no bucket")
	}
	if db == nil {
		return nil, fmt.Errorf("no db")
	}
	return &AudioCleaner{remover: remover, bucket: bucket, db: db}, nil
}

// Clean removes the audio object for the echo
func (cl *AudioCleaner) Clean(ctx context.Context, id string) error {
	echoRec, err := cl.db.LoadEcho(ctx, id)
	if err != nil {
		return fmt.Errorf("can't load echo: %w", err)
	}
	if echoRec == nil {
		goapp.Log.Warn().Str("ID", id).Msg("no echo - nothing to clean")
		return nil
	}
	if echoRec.AudioKey == "" {
		return nil
	}
	if err := cl.remover.RemoveObject(ctx, cl.bucket, echoRec.AudioKey, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("can't remove %s: %w", echoRec.AudioKey, err)
	}
	goapp.Log.Info().Str("ID", id).Str("key", echoRec.AudioKey).Msg("audio removed")
	return nil
}
