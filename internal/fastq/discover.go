package fastq

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// fragment file suffixes written by the sequencer
var fragmentSuffixes = []string{".fastq.gz", ".fq.gz"}

// failedReadsDir holds reads that failed basecalling QC; it is never merged
const failedReadsDir = "fastq_fail"

// BarcodeDirNames returns the directory names a barcode may have been written under:
// barcode{ID}, plus the two-digit padded form (barcode01) for single-digit numeric IDs.
func BarcodeDirNames(barcode string) []string {
	names := []string{"barcode" + barcode}
	if n, err := strconv.Atoi(barcode); err == nil && n >= 0 {
		padded := fmt.Sprintf("barcode%02d", n)
		if padded != names[0] {
			names = append(names, padded)
		}
	}
	return names
}

// Discover finds every fragment file for a barcode under inputDir, sorted by path.
// An empty result with a nil error means the barcode has no reads.
func Discover(inputDir, barcode string) ([]string, error) {
	info, err := os.Stat(inputDir)
	if err != nil {
		return nil, fmt.Errorf("input directory %s: %w", inputDir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("input directory %s is not a directory", inputDir)
	}

	wanted := make(map[string]bool)
	for _, name := range BarcodeDirNames(barcode) {
		wanted[name] = true
	}

	var found []string
	err = filepath.WalkDir(inputDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == inputDir {
				return walkErr
			}
			// unreadable subdirectories are not ours to fix
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if d.Name() == failedReadsDir {
			return filepath.SkipDir
		}
		if !wanted[d.Name()] {
			return nil
		}
		files, err := fragmentsIn(path)
		if err != nil {
			return err
		}
		found = append(found, files...)
		return filepath.SkipDir
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(found)
	return found, nil
}

func fragmentsIn(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		for _, suffix := range fragmentSuffixes {
			if strings.HasSuffix(e.Name(), suffix) {
				files = append(files, filepath.Join(dir, e.Name()))
				break
			}
		}
	}
	return files, nil
}

// ErrNoFragments is returned by Merge when there is nothing to merge
var ErrNoFragments = errors.New("no fastq fragments to merge")

// Merge concatenates the fragment files byte for byte into dest. gzip members concatenate
// into a valid gzip stream, so nothing is decompressed. The result is written next to dest
// and renamed into place, so re-running with the same inputs reproduces the same file.
func Merge(fragments []string, dest string) (int64, error) {
	if len(fragments) == 0 {
		return 0, ErrNoFragments
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*")
	if err != nil {
		return 0, fmt.Errorf("failed to create merge file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		return 0, fmt.Errorf("failed to set merge file mode: %w", err)
	}

	var total int64
	for _, frag := range fragments {
		n, err := appendFile(tmp, frag)
		total += n
		if err != nil {
			tmp.Close()
			return total, err
		}
	}
	if err := tmp.Close(); err != nil {
		return total, fmt.Errorf("failed to close merge file: %w", err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return total, fmt.Errorf("failed to move merged reads to %s: %w", dest, err)
	}
	return total, nil
}

func appendFile(dst io.Writer, path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open fragment: %w", err)
	}
	defer f.Close()
	n, err := io.Copy(dst, f)
	if err != nil {
		return n, fmt.Errorf("failed to copy fragment %s: %w", path, err)
	}
	return n, nil
}
