package preflight

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"
)

// MinIndexSpaceBytes is the free space an empty bleve directory needs.
const MinIndexSpaceBytes = 100 << 20

// CheckIndexSpace checks that the volume holding the bleve directory can
// take a rebuild of the indexes already there. A rebuild writes the new
// index before the old one is dropped, so the requirement grows with the
// current index size. The directory need not exist yet.
func (c *Checker) CheckIndexSpace(dir string) CheckResult {
	result := CheckResult{Name: "disk_space", Required: true, Details: dir}

	used, err := dirSize(dir)
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot measure %s: %v", dir, err)
		return result
	}

	volume := nearestExisting(dir)
	var stat syscall.Statfs_t
	if err := syscall.Statfs(volume, &stat); err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot stat volume of %s: %v", volume, err)
		return result
	}
	free := stat.Bavail * uint64(stat.Bsize)

	need := max(uint64(MinIndexSpaceBytes), used)
	result.Message = fmt.Sprintf("%s free, indexes use %s, need %s", humanBytes(free), humanBytes(used), humanBytes(need))
	if free < need {
		result.Status = StatusFail
		return result
	}
	result.Status = StatusPass
	return result
}

// dirSize sums the regular files under dir; a missing dir is empty.
func dirSize(dir string) (uint64, error) {
	var total uint64
	err := filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += uint64(info.Size())
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	return total, err
}

func nearestExisting(dir string) string {
	for p := filepath.Clean(dir); ; p = filepath.Dir(p) {
		if _, err := os.Stat(p); err == nil || p == filepath.Dir(p) {
			return p
		}
	}
}

func humanBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	value, exp := float64(n)/unit, 0
	for value >= unit && exp < 3 {
		value /= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", value, "KMGT"[exp])
}
