// Copyright (c) 2024 BVK Chaitanya

/*
Package logdir implements a log backend that limits log file(s) size to a fixed
size in a given directory. A symbolic link named <logname>.log always points to
the current log file.
*/
package logdir

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var (
	// FileNameReuseInterval contains the time interval during which a new log
	// backend instance will attempt to reuse (i.e., append-to) existing log file
	// name if present. This will avoid filling up the logs directory with too
	// many log files (and exhaust filesystem inodes) if the program happens to
	// be in a crash-loop.
	FileNameReuseInterval = time.Hour

	// FileNameTimeLocation contains the timezone for the timestamp in the log
	// file names.
	FileNameTimeLocation = time.UTC

	// FileMode contains the file mode and permissions value for the log files.
	FileMode = os.FileMode(0600)
)

type Backend struct {
	mu sync.Mutex

	fp *os.File

	size, limit int64

	dirname, logname string
}

// New creates a log backend that writes into the dirname directory with log
// files rotated after they grow beyond limitMB mega bytes.
func New(dirname, logname string, limitMB int64) (*Backend, error) {
	if limitMB <= 0 || len(logname) == 0 {
		return nil, os.ErrInvalid
	}
	if err := os.MkdirAll(dirname, 0700); err != nil {
		return nil, fmt.Errorf("could not create log directory: %w", err)
	}
	b := &Backend{
		limit:   limitMB * 1024 * 1024,
		dirname: dirname,
		logname: logname,
	}
	fp, size, err := b.openFile(FileNameReuseInterval)
	if err != nil {
		return nil, fmt.Errorf("could not open log file: %w", err)
	}
	b.fp, b.size = fp, size
	return b, nil
}

func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.fp == nil {
		return os.ErrClosed
	}
	err := b.fp.Close()
	b.fp = nil
	return err
}

func fileName(logname string, at time.Time, truncate time.Duration) string {
	at = at.In(FileNameTimeLocation)
	if truncate != 0 {
		at = at.Truncate(truncate)
	}
	uniq := fmt.Sprintf("%d%02d%02d-%02d%02d%02d.%09d", at.Year(), at.Month(), at.Day(), at.Hour(), at.Minute(), at.Second(), at.Nanosecond())
	return fmt.Sprintf("%s-%s.log", logname, uniq)
}

func (b *Backend) openFile(truncate time.Duration) (*os.File, int64, error) {
	filename := fileName(b.logname, time.Now(), truncate)
	fp, err := os.OpenFile(filepath.Join(b.dirname, filename), os.O_CREATE|os.O_WRONLY|os.O_APPEND, FileMode)
	if err != nil {
		return nil, -1, fmt.Errorf("could not open/create log file: %w", err)
	}
	finfo, err := fp.Stat()
	if err != nil {
		fp.Close()
		return nil, -1, fmt.Errorf("could not get file size: %w", err)
	}
	size := finfo.Size()
	if size >= b.limit && truncate != 0 {
		fp.Close()
		return b.openFile(0)
	}

	link := filepath.Join(b.dirname, b.logname+".log")
	os.Remove(link)
	_ = os.Symlink(filename, link)
	return fp, size, nil
}

// Write implements io.Writer. Log file is rotated when the input data would
// push the current file beyond the size limit.
func (b *Backend) Write(data []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.fp == nil {
		return 0, os.ErrClosed
	}
	if b.size > 0 && b.size+int64(len(data)) > b.limit {
		fp, size, err := b.openFile(0)
		if err != nil {
			return 0, fmt.Errorf("could not open new log file: %w", err)
		}
		b.fp.Close()
		b.fp, b.size = fp, size
	}
	n, err := b.fp.Write(data)
	b.size += int64(n)
	return n, err
}
