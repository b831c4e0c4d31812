package maintenance

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"
)

// DefaultRetentionDays is how long log files are kept when no age is given
const DefaultRetentionDays = 30

// LogCleanupOptions configures a log cleanup run
type LogCleanupOptions struct {
	Dir      string
	Days     int
	Compress bool
	DryRun   bool
	Now      func() time.Time
}

// LogCleanupResult lists what a run touched. In dry-run mode nothing changes on
// disk and the lists describe what would have happened.
type LogCleanupResult struct {
	Cutoff     time.Time
	Removed    []string
	Compressed []string
	Skipped    []string
}

// Processed reports how many files were removed or compressed
func (r *LogCleanupResult) Processed() int {
	return len(r.Removed) + len(r.Compressed)
}

// CleanupLogs removes, or with Compress set gzips, every *.log* file in
// opts.Dir last modified before the retention cutoff. Files that are already
// gzipped are left alone when compressing. A missing directory is not an error.
func CleanupLogs(opts LogCleanupOptions, logger *zap.Logger) (*LogCleanupResult, error) {
	if opts.Days <= 0 {
		opts.Days = DefaultRetentionDays
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	result := &LogCleanupResult{
		Cutoff:     now().Add(-time.Duration(opts.Days) * 24 * time.Hour),
		Removed:    []string{},
		Compressed: []string{},
		Skipped:    []string{},
	}

	if _, err := os.Stat(opts.Dir); errors.Is(err, os.ErrNotExist) {
		logger.Warn("Log directory not found", zap.String("dir", opts.Dir))
		return result, nil
	}

	matches, err := filepath.Glob(filepath.Join(opts.Dir, "*.log*"))
	if err != nil {
		return nil, fmt.Errorf("failed to list log files: %w", err)
	}

	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil {
			return result, fmt.Errorf("failed to stat %s: %w", path, err)
		}
		if info.IsDir() || !info.ModTime().Before(result.Cutoff) {
			continue
		}

		name := filepath.Base(path)
		if opts.Compress && strings.HasSuffix(name, ".gz") {
			result.Skipped = append(result.Skipped, name)
			continue
		}

		if opts.DryRun {
			logger.Info("Would clean log file", zap.String("file", name), zap.Bool("compress", opts.Compress))
		} else if opts.Compress {
			if err := compressFile(path); err != nil {
				return result, err
			}
			logger.Info("Compressed log file", zap.String("file", name))
		} else {
			if err := os.Remove(path); err != nil {
				return result, fmt.Errorf("failed to remove %s: %w", path, err)
			}
			logger.Info("Removed log file", zap.String("file", name))
		}

		if opts.Compress {
			result.Compressed = append(result.Compressed, name)
		} else {
			result.Removed = append(result.Removed, name)
		}
	}

	return result, nil
}

// compressFile writes path.gz and removes path once the archive is complete
func compressFile(path string) (err error) {
	in, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer in.Close()

	target := path + ".gz"
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", target, err)
	}
	defer func() {
		if err != nil {
			out.Close()
			os.Remove(target)
		}
	}()

	zw := gzip.NewWriter(out)
	zw.Name = filepath.Base(path)
	if _, err = io.Copy(zw, in); err != nil {
		return fmt.Errorf("failed to compress %s: %w", path, err)
	}
	if err = zw.Close(); err != nil {
		return fmt.Errorf("failed to finish %s: %w", target, err)
	}
	if err = out.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", target, err)
	}

	in.Close()
	if err = os.Remove(path); err != nil {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return nil
}
