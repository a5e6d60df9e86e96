// Package remote checks that the S3 compatible bucket behind an rclone remote
// is reachable before a mirror is attempted.
package remote

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"

	"github.com/chmdznr/rclone-mirror/internal/config"
)

// ErrBucketNotFound is returned when the endpoint answers but the bucket is
// missing.
var ErrBucketNotFound = errors.New("bucket not found")

// bucketChecker is the subset of *minio.Client used by the prober
type bucketChecker interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
}

// Prober verifies a configured bucket
type Prober struct {
	client   bucketChecker
	endpoint string
	bucket   string
}

// NewProber creates a MinIO client for the probe target
func NewProber(probe config.Probe) (*Prober, error) {
	if !probe.Enabled() {
		return nil, errors.New("probe endpoint and bucket must be set")
	}

	tr := &http.Transport{
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	client, err := minio.New(probe.Endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(probe.AccessKey, probe.SecretKey, ""),
		Secure:       probe.Secure,
		Transport:    tr,
		BucketLookup: minio.BucketLookupAuto,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize MinIO client")
	}

	return &Prober{
		client:   client,
		endpoint: probe.Endpoint,
		bucket:   probe.Bucket,
	}, nil
}

// Target describes the probed bucket
func (p *Prober) Target() string {
	return p.endpoint + "/" + p.bucket
}

// Check reports whether the bucket exists and is accessible
func (p *Prober) Check(ctx context.Context) error {
	exists, err := p.client.BucketExists(ctx, p.bucket)
	if err != nil {
		var minioErr minio.ErrorResponse
		if errors.As(err, &minioErr) {
			return errors.Errorf("%s: %s (%s)", p.Target(), minioErr.Message, minioErr.Code)
		}
		return errors.Wrap(err, p.Target())
	}
	if !exists {
		return errors.Wrap(ErrBucketNotFound, p.Target())
	}
	return nil
}
