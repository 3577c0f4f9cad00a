package scan

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleMounts = `sysfs /sys sysfs rw,nosuid,nodev,noexec,relatime 0 0
proc /proc proc rw,nosuid,nodev,noexec,relatime 0 0
/dev/nvme0n1p2 / ext4 rw,relatime 0 0
/dev/nvme0n1p1 /boot/efi vfat rw,relatime 0 0
tmpfs /run tmpfs rw,nosuid,nodev 0 0
/dev/sdb1 /mnt/data\040disk xfs rw,relatime 0 0
/dev/sdb1 /srv/bind xfs rw,relatime 0 0
overlay /var/lib/docker/overlay2/x/merged overlay rw 0 0
`

func TestParseMounts(t *testing.T) {
	entries, err := parseMounts(strings.NewReader(sampleMounts))
	require.NoError(t, err)
	require.Len(t, entries, 8)
	assert.Equal(t, "/mnt/data disk", entries[5].point)
	assert.Equal(t, "xfs", entries[5].fsType)
}

func TestCanonicalMounts(t *testing.T) {
	entries, err := parseMounts(strings.NewReader(sampleMounts))
	require.NoError(t, err)

	got := canonicalMounts(entries)
	assert.Equal(t, map[string]string{
		"/dev/nvme0n1p2": "/",
		"/dev/nvme0n1p1": "/boot/efi",
		"/dev/sdb1":      "/srv/bind",
	}, got)
}

func TestDiskKeyFor(t *testing.T) {
	entries, err := parseMounts(strings.NewReader(sampleMounts))
	require.NoError(t, err)

	tests := []struct {
		path string
		want string
	}{
		{"/home/dev/src", "/"},
		{"/boot/efi/EFI", "/boot/efi"},
		{"/boot/grub", "/"},
		{"/mnt/data disk/projects", "/srv/bind"},
		{"/srv/bind/x", "/srv/bind"},
		{"/run/user", "/run"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, diskKeyFor(entries, tt.path))
		})
	}
}

func TestMountTableListerFallsBackToRoot(t *testing.T) {
	l := &MountTableLister{MountsPath: filepath.Join(t.TempDir(), "missing"), GOOS: "linux"}
	vols, err := l.Volumes(context.Background())
	require.NoError(t, err)
	require.Len(t, vols, 1)
	assert.Equal(t, string(filepath.Separator), vols[0].Path)

	l.GOOS = "darwin"
	assert.Equal(t, string(filepath.Separator), l.DiskKey("/Users/dev"))
}

func TestMountTableListerReadsTable(t *testing.T) {
	dir := t.TempDir()
	mounts := filepath.Join(dir, "mounts")
	content := "/dev/sda1 " + dir + " ext4 rw 0 0\n/dev/sda2 " + filepath.Join(dir, "gone") + " ext4 rw 0 0\n"
	require.NoError(t, os.WriteFile(mounts, []byte(content), 0644))

	l := &MountTableLister{MountsPath: mounts, GOOS: "linux"}
	vols, err := l.Volumes(context.Background())
	require.NoError(t, err)
	require.Len(t, vols, 1, "unreachable mount points are not ready")
	assert.Equal(t, dir, vols[0].Path)
	assert.Equal(t, dir, l.DiskKey(filepath.Join(dir, "src")))
}
