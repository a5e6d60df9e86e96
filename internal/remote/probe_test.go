package remote

import (
	"context"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chmdznr/rclone-mirror/internal/config"
)

type fakeBucket struct {
	exists bool
	err    error
}

func (f fakeBucket) BucketExists(context.Context, string) (bool, error) {
	return f.exists, f.err
}

func newTestProber(checker bucketChecker) *Prober {
	return &Prober{client: checker, endpoint: "minio.example.com", bucket: "backup"}
}

func TestNewProber(t *testing.T) {
	_, err := NewProber(config.Probe{})
	assert.Error(t, err)

	p, err := NewProber(config.Probe{
		Endpoint:  "minio.example.com:9000",
		Bucket:    "backup",
		AccessKey: "key",
		SecretKey: "secret",
	})
	require.NoError(t, err)
	assert.Equal(t, "minio.example.com:9000/backup", p.Target())
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name    string
		checker fakeBucket
		errMsg  string
	}{
		{
			name:    "exists",
			checker: fakeBucket{exists: true},
		},
		{
			name:    "missing bucket",
			checker: fakeBucket{exists: false},
			errMsg:  "minio.example.com/backup: bucket not found",
		},
		{
			name: "access denied",
			checker: fakeBucket{err: minio.ErrorResponse{
				Code:    "AccessDenied",
				Message: "Access Denied.",
			}},
			errMsg: "minio.example.com/backup: Access Denied. (AccessDenied)",
		},
		{
			name:    "network",
			checker: fakeBucket{err: errors.New("dial tcp: connection refused")},
			errMsg:  "minio.example.com/backup: dial tcp: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := newTestProber(tt.checker).Check(context.Background())
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.errMsg)
		})
	}

	err := newTestProber(fakeBucket{}).Check(context.Background())
	assert.ErrorIs(t, err, ErrBucketNotFound)
}
