package logging

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

const cleanerInterval = time.Minute

var cleanerCancel context.CancelFunc

// logFile is one candidate for removal.
type logFile struct {
	path    string
	size    int64
	modTime time.Time
}

func restartCleanerLocked(logDir string, maxTotalSizeMB int, activePath string) {
	stopCleanerLocked()

	dir := strings.TrimSpace(logDir)
	if maxTotalSizeMB <= 0 || dir == "" {
		return
	}
	maxBytes := int64(maxTotalSizeMB) << 20

	ctx, cancel := context.WithCancel(context.Background())
	cleanerCancel = cancel
	go func() {
		ticker := time.NewTicker(cleanerInterval)
		defer ticker.Stop()
		for {
			if removed, err := trimLogDir(filepath.Clean(dir), maxBytes, activePath); err != nil {
				log.WithError(err).Warn("logging: failed to enforce log directory size limit")
			} else if removed > 0 {
				log.Debugf("logging: removed %d old log file(s)", removed)
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}

func stopCleanerLocked() {
	if cleanerCancel != nil {
		cleanerCancel()
		cleanerCancel = nil
	}
}

// listLogFiles returns the log files in dir, oldest first, and their total size.
func listLogFiles(dir string) ([]logFile, int64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, nil
		}
		return nil, 0, err
	}
	var (
		files []logFile
		total int64
	)
	for _, entry := range entries {
		if entry.IsDir() || !isLogFileName(entry.Name()) {
			continue
		}
		info, errInfo := entry.Info()
		if errInfo != nil || !info.Mode().IsRegular() {
			continue
		}
		files = append(files, logFile{path: filepath.Join(dir, entry.Name()), size: info.Size(), modTime: info.ModTime()})
		total += info.Size()
	}
	sort.Slice(files, func(i, j int) bool { return files[i].modTime.Before(files[j].modTime) })
	return files, total, nil
}

// trimLogDir deletes the oldest log files until the directory fits in maxBytes.
// The active log file is never removed.
func trimLogDir(dir string, maxBytes int64, activePath string) (int, error) {
	if maxBytes <= 0 || strings.TrimSpace(dir) == "" {
		return 0, nil
	}
	files, total, err := listLogFiles(filepath.Clean(dir))
	if err != nil || total <= maxBytes {
		return 0, err
	}
	active := ""
	if strings.TrimSpace(activePath) != "" {
		active = filepath.Clean(activePath)
	}

	removed := 0
	for _, f := range files {
		if total <= maxBytes {
			break
		}
		if active != "" && filepath.Clean(f.path) == active {
			continue
		}
		if errRemove := os.Remove(f.path); errRemove != nil {
			log.WithError(errRemove).Warnf("logging: failed to remove old log file: %s", filepath.Base(f.path))
			continue
		}
		total -= f.size
		removed++
	}
	return removed, nil
}

func isLogFileName(name string) bool {
	lower := strings.ToLower(strings.TrimSpace(name))
	return strings.HasSuffix(lower, ".log") || strings.HasSuffix(lower, ".log.gz")
}
