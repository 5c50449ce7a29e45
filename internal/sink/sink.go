package sink

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/therealutkarshpriyadarshi/csvlog/pkg/types"
)

var ErrSinkClosed = errors.New("sink is closed")

// Sink persists fully formatted log lines. Implementations own their flush
// and rotation policy; the renderer only hands lines over.
type Sink interface {
	// WriteLine appends text plus a line terminator.
	WriteLine(level types.Level, text string) error

	// Flush forces buffered lines to stable storage.
	Flush() error

	// Close flushes and releases the sink.
	Close() error
}

// rotatedStampLayout names rotated files; nanosecond precision keeps names
// unique under rapid rotation.
const rotatedStampLayout = "20060102T150405.000000000"

// FileConfig configures a rotating file sink.
type FileConfig struct {
	// Path is the active output file.
	Path string

	// MinLevel is the sink's own severity floor; lines below it are
	// accepted and discarded.
	MinLevel types.Level

	// AutoFlush flushes after every line when set.
	AutoFlush bool

	// MaxFileSize rotates the active file before it would exceed this
	// many bytes. Zero disables rotation.
	MaxFileSize int64

	// MaxFileCount caps the total number of files (active plus rotated);
	// the oldest rotated files are pruned past the cap. Zero means
	// unlimited.
	MaxFileCount int

	// Compression applied to rotated files.
	Compression Compression
}

// DefaultFileConfig returns a file sink config with auto-flush enabled and
// no rotation limits.
func DefaultFileConfig(path string) FileConfig {
	return FileConfig{
		Path:        path,
		AutoFlush:   true,
		Compression: CompressionNone,
	}
}

// File is an append-only line sink with size-based rotation. Appends are
// serialized internally, so one File may be shared across goroutines.
type File struct {
	config FileConfig

	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
	size   int64
	closed bool

	linesWritten uint64
	bytesWritten uint64
	rotations    uint64
}

// NewFile opens (or creates) the active file in append mode.
func NewFile(config FileConfig) (*File, error) {
	if config.Path == "" {
		return nil, fmt.Errorf("sink path is required")
	}

	if _, err := GetCompressor(config.Compression); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(config.Path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create sink directory: %w", err)
	}

	s := &File{config: config}
	if err := s.open(); err != nil {
		return nil, err
	}

	return s, nil
}

// WriteLine appends text plus a newline, rotating first when the append
// would push the active file past MaxFileSize.
func (s *File) WriteLine(level types.Level, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSinkClosed
	}

	if level < s.config.MinLevel {
		return nil
	}

	needed := int64(len(text)) + 1
	if s.config.MaxFileSize > 0 && s.size > 0 && s.size+needed > s.config.MaxFileSize {
		if err := s.rotate(); err != nil {
			return fmt.Errorf("failed to rotate sink file: %w", err)
		}
	}

	n, err := s.writer.WriteString(text)
	if err != nil {
		return fmt.Errorf("failed to write line: %w", err)
	}
	if err := s.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write line terminator: %w", err)
	}

	s.size += int64(n) + 1
	s.linesWritten++
	s.bytesWritten += uint64(n) + 1

	if s.config.AutoFlush {
		return s.writer.Flush()
	}

	return nil
}

// Flush forces buffered lines to the file.
func (s *File) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSinkClosed
	}

	if err := s.writer.Flush(); err != nil {
		return err
	}
	return s.file.Sync()
}

// Close flushes and closes the active file. Further writes fail with
// ErrSinkClosed.
func (s *File) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSinkClosed
	}
	s.closed = true

	if err := s.writer.Flush(); err != nil {
		return err
	}
	return s.file.Close()
}

// Stats reports sink counters for monitoring.
func (s *File) Stats() FileStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return FileStats{
		LinesWritten: s.linesWritten,
		BytesWritten: s.bytesWritten,
		Rotations:    s.rotations,
		ActiveSize:   s.size,
	}
}

// FileStats holds sink counters.
type FileStats struct {
	LinesWritten uint64
	BytesWritten uint64
	Rotations    uint64
	ActiveSize   int64
}

// open opens the active file for appending, picking up its current size.
func (s *File) open() error {
	file, err := os.OpenFile(s.config.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open sink file: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return fmt.Errorf("failed to stat sink file: %w", err)
	}

	s.file = file
	s.writer = bufio.NewWriter(file)
	s.size = stat.Size()

	return nil
}

// rotate closes the active file, moves it aside under a timestamped name,
// compresses it if configured, prunes old rotated files, and reopens a
// fresh active file. Caller holds the lock.
func (s *File) rotate() error {
	if err := s.writer.Flush(); err != nil {
		return err
	}
	if err := s.file.Close(); err != nil {
		return err
	}

	rotated := s.rotatedName(time.Now())
	if err := os.Rename(s.config.Path, rotated); err != nil {
		return fmt.Errorf("failed to rename rotated file: %w", err)
	}

	if s.config.Compression != CompressionNone && s.config.Compression != "" {
		if err := compressFile(rotated, s.config.Compression); err != nil {
			return err
		}
	}

	if err := s.prune(); err != nil {
		return err
	}

	s.rotations++
	return s.open()
}

// rotatedName builds the timestamped sibling name for the active file:
// app.csv becomes app-20230101T000000.000000000.csv.
func (s *File) rotatedName(now time.Time) string {
	ext := filepath.Ext(s.config.Path)
	base := strings.TrimSuffix(s.config.Path, ext)
	return fmt.Sprintf("%s-%s%s", base, now.UTC().Format(rotatedStampLayout), ext)
}

// prune removes the oldest rotated files so that rotated plus active stays
// within MaxFileCount.
func (s *File) prune() error {
	if s.config.MaxFileCount <= 0 {
		return nil
	}

	rotated, err := s.rotatedFiles()
	if err != nil {
		return err
	}

	// One slot is reserved for the active file.
	allowed := s.config.MaxFileCount - 1
	if allowed < 0 {
		allowed = 0
	}
	if len(rotated) <= allowed {
		return nil
	}

	for _, path := range rotated[:len(rotated)-allowed] {
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to prune rotated file: %w", err)
		}
	}

	return nil
}

// rotatedFiles lists rotated siblings of the active file, oldest first.
// The timestamped names sort lexically in age order.
func (s *File) rotatedFiles() ([]string, error) {
	dir := filepath.Dir(s.config.Path)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	ext := filepath.Ext(s.config.Path)
	prefix := strings.TrimSuffix(filepath.Base(s.config.Path), ext) + "-"

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		if name == filepath.Base(s.config.Path) {
			continue
		}
		paths = append(paths, filepath.Join(dir, name))
	}

	sort.Strings(paths)
	return paths, nil
}
