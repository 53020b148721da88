package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supermon-ng/supermon-ng/internal/logging"
)

func TestSystemService_Info(t *testing.T) {
	svc := NewSystemService(logging.NewNop(), t.TempDir())

	info, err := svc.Info(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, info.Hostname)
	assert.NotEmpty(t, info.OS)
	assert.Greater(t, info.CPUCores, 0)
	assert.Greater(t, info.MemoryTotal, uint64(0))
	assert.Greater(t, info.DiskTotal, uint64(0))
	assert.False(t, info.CollectedAt.IsZero())
}

func TestSystemService_DefaultDiskPath(t *testing.T) {
	svc := NewSystemService(logging.NewNop(), "")
	assert.Equal(t, "/", svc.diskPath)
}
