package diagnostics

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSkipFilesystem(t *testing.T) {
	t.Parallel()

	tests := []struct {
		fstype string
		skip   bool
	}{
		{"ext4", false},
		{"xfs", false},
		{"btrfs", false},
		{"vfat", false},
		{"tmpfs", true},
		{"proc", true},
		{"sysfs", true},
		{"overlay", true},
		{"cgroup2", true},
		{"fuse.sshfs", true},
		{"devtmpfs", true},
		{"squashfs", true},
	}

	for _, tt := range tests {
		t.Run(tt.fstype, func(t *testing.T) {
			assert.Equal(t, tt.skip, skipFilesystem(tt.fstype))
		})
	}
}

func TestZipDirectoryRoundTrip(t *testing.T) {
	t.Parallel()

	sourceDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(sourceDir, "hardware_info.txt"), []byte("cpu: test"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(sourceDir, "logs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sourceDir, "logs", "service.log"), []byte("line one\nline two\n"), 0o644))

	target := filepath.Join(t.TempDir(), "diagnostics.zip")
	require.NoError(t, zipDirectory(sourceDir, target))

	reader, err := zip.OpenReader(target)
	require.NoError(t, err)
	defer reader.Close()

	names := make(map[string]bool)
	for _, file := range reader.File {
		names[file.Name] = true
	}
	assert.True(t, names["hardware_info.txt"], "zip should contain top level files")
	assert.True(t, names["logs/service.log"], "zip should contain nested files")

	for _, file := range reader.File {
		if file.Name != "hardware_info.txt" {
			continue
		}
		rc, err := file.Open()
		require.NoError(t, err)
		content, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		assert.Equal(t, "cpu: test", string(content))
	}
}

func TestCollectSystemInfo(t *testing.T) {
	info, err := CollectSystemInfo()
	require.NoError(t, err)

	assert.Equal(t, runtime.GOOS, info.OS)
	assert.Equal(t, runtime.GOARCH, info.Architecture)
	assert.NotEmpty(t, info.Hostname)
	assert.Positive(t, info.NumCPU)
	assert.NotEmpty(t, info.GoVersion)
	assert.GreaterOrEqual(t, info.AppUptime, int64(0))
}

func TestCollectResourceInfo(t *testing.T) {
	info, err := CollectResourceInfo(0)
	require.NoError(t, err)

	assert.Positive(t, info.MemoryTotal)
	assert.GreaterOrEqual(t, info.MemoryUsage, 0.0)
	assert.LessOrEqual(t, info.MemoryUsage, 100.0)
}

func TestCollectDiskInfoSkipsVirtualFilesystems(t *testing.T) {
	disks, err := CollectDiskInfo()
	require.NoError(t, err)

	for _, d := range disks {
		assert.False(t, skipFilesystem(d.Fstype), "virtual filesystem %s should have been skipped", d.Fstype)
		assert.NotEmpty(t, d.Mountpoint)
	}
}
