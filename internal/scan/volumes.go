package scan

import (
	"bufio"
	"context"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
)

// Volume is one walkable local volume.
type Volume struct {
	Path    string
	DiskKey string
}

// VolumeLister discovers the ready, fixed local volumes for a whole-machine
// scan. It is called when the walk starts, not when the scan is requested.
type VolumeLister interface {
	Volumes(ctx context.Context) ([]Volume, error)
}

// localFSTypes are filesystem types backed by local storage.
var localFSTypes = map[string]bool{
	"ext2": true, "ext3": true, "ext4": true,
	"xfs": true, "btrfs": true, "zfs": true, "f2fs": true,
	"ntfs": true, "ntfs3": true, "fuseblk": true,
	"vfat": true, "exfat": true,
	"apfs": true, "hfs": true, "hfsplus": true,
}

type mountEntry struct {
	device string
	point  string
	fsType string
}

// MountTableLister reads volumes from a Linux mount table, probes drive
// letters on Windows, and falls back to the filesystem root elsewhere.
type MountTableLister struct {
	MountsPath string
	GOOS       string
}

// NewMountTableLister returns a lister for the running platform.
func NewMountTableLister() *MountTableLister {
	return &MountTableLister{
		MountsPath: "/proc/self/mounts",
		GOOS:       runtime.GOOS,
	}
}

// Volumes implements VolumeLister.
func (l *MountTableLister) Volumes(ctx context.Context) ([]Volume, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch l.GOOS {
	case "windows":
		return driveVolumes(), nil
	case "linux":
		entries, err := l.readMounts()
		if err == nil {
			if vols := volumesFromMounts(entries); len(vols) > 0 {
				return vols, nil
			}
		}
	}
	root := string(filepath.Separator)
	return []Volume{{Path: root, DiskKey: root}}, nil
}

// DiskKey returns the disk key for path: the canonical mount point of the
// device holding it, or the filesystem root when unknown.
func (l *MountTableLister) DiskKey(path string) string {
	if l.GOOS == "windows" {
		vol := filepath.VolumeName(path)
		if vol == "" {
			return path
		}
		return strings.ToUpper(vol) + `\`
	}
	root := string(filepath.Separator)
	if l.GOOS != "linux" {
		return root
	}
	entries, err := l.readMounts()
	if err != nil {
		return root
	}
	return diskKeyFor(entries, path)
}

func (l *MountTableLister) readMounts() ([]mountEntry, error) {
	f, err := os.Open(l.MountsPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parseMounts(f)
}

// parseMounts reads the fstab-style lines of /proc/self/mounts.
func parseMounts(r io.Reader) ([]mountEntry, error) {
	var entries []mountEntry
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 {
			continue
		}
		entries = append(entries, mountEntry{
			device: unescapeMount(fields[0]),
			point:  unescapeMount(fields[1]),
			fsType: fields[2],
		})
	}
	return entries, scanner.Err()
}

// unescapeMount decodes the octal escapes (\040 for space) the kernel uses.
func unescapeMount(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+3 < len(s) {
			if v, err := strconv.ParseUint(s[i+1:i+4], 8, 8); err == nil {
				sb.WriteByte(byte(v))
				i += 3
				continue
			}
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}

// volumesFromMounts keeps block-device mounts of local filesystems whose
// mount point is reachable, one per device (the shortest mount point).
func volumesFromMounts(entries []mountEntry) []Volume {
	canonical := canonicalMounts(entries)
	var vols []Volume
	for _, point := range canonical {
		if _, err := os.Stat(point); err != nil {
			continue
		}
		vols = append(vols, Volume{Path: point, DiskKey: point})
	}
	sort.Slice(vols, func(i, j int) bool { return vols[i].Path < vols[j].Path })
	return vols
}

// canonicalMounts maps each local block device to its shortest mount point.
func canonicalMounts(entries []mountEntry) map[string]string {
	byDevice := make(map[string]string)
	for _, e := range entries {
		if !strings.HasPrefix(e.device, "/dev/") || !localFSTypes[e.fsType] {
			continue
		}
		if cur, ok := byDevice[e.device]; !ok || len(e.point) < len(cur) {
			byDevice[e.device] = e.point
		}
	}
	return byDevice
}

// diskKeyFor picks the mount with the longest prefix of path and returns
// the canonical mount point of its device.
func diskKeyFor(entries []mountEntry, path string) string {
	canonical := canonicalMounts(entries)
	clean := filepath.Clean(path)
	best := ""
	bestDevice := ""
	for _, e := range entries {
		if !underMount(clean, e.point) || len(e.point) < len(best) {
			continue
		}
		best = e.point
		bestDevice = e.device
	}
	if key, ok := canonical[bestDevice]; ok {
		return key
	}
	if best == "" {
		return string(filepath.Separator)
	}
	return best
}

func underMount(path, point string) bool {
	if point == "/" {
		return strings.HasPrefix(path, "/")
	}
	return path == point || strings.HasPrefix(path, point+"/")
}

func driveVolumes() []Volume {
	var vols []Volume
	for letter := 'C'; letter <= 'Z'; letter++ {
		root := string(letter) + `:\`
		if _, err := os.Stat(root); err == nil {
			vols = append(vols, Volume{Path: root, DiskKey: root})
		}
	}
	return vols
}
