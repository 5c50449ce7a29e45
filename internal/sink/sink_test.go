package sink

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/therealutkarshpriyadarshi/csvlog/pkg/types"
)

func testConfig(t *testing.T) FileConfig {
	t.Helper()
	return DefaultFileConfig(filepath.Join(t.TempDir(), "app.csv"))
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	content := strings.TrimSuffix(string(data), "\n")
	if content == "" {
		return nil
	}
	return strings.Split(content, "\n")
}

func TestNewFile(t *testing.T) {
	tests := []struct {
		name    string
		config  FileConfig
		wantErr bool
	}{
		{
			name:   "valid config",
			config: FileConfig{Path: filepath.Join(t.TempDir(), "a.csv")},
		},
		{
			name:    "missing path",
			config:  FileConfig{},
			wantErr: true,
		},
		{
			name: "invalid compression",
			config: FileConfig{
				Path:        filepath.Join(t.TempDir(), "a.csv"),
				Compression: "zstd",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewFile(tt.config)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewFile() error = %v, wantErr %v", err, tt.wantErr)
			}
			if s != nil {
				s.Close()
			}
		})
	}
}

func TestFile_WriteLine(t *testing.T) {
	cfg := testConfig(t)
	s, err := NewFile(cfg)
	if err != nil {
		t.Fatalf("NewFile() error = %v", err)
	}
	defer s.Close()

	lines := []string{`"a","b"`, `"c","d"`}
	for _, line := range lines {
		if err := s.WriteLine(types.LevelInfo, line); err != nil {
			t.Fatalf("WriteLine() error = %v", err)
		}
	}

	got := readLines(t, cfg.Path)
	if len(got) != len(lines) {
		t.Fatalf("wrote %d lines, file has %d", len(lines), len(got))
	}
	for i := range lines {
		if got[i] != lines[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], lines[i])
		}
	}
}

func TestFile_WriteLineBelowMinLevel(t *testing.T) {
	cfg := testConfig(t)
	cfg.MinLevel = types.LevelWarn

	s, err := NewFile(cfg)
	if err != nil {
		t.Fatalf("NewFile() error = %v", err)
	}
	defer s.Close()

	if err := s.WriteLine(types.LevelInfo, "dropped"); err != nil {
		t.Fatalf("WriteLine() error = %v", err)
	}
	if err := s.WriteLine(types.LevelError, "kept"); err != nil {
		t.Fatalf("WriteLine() error = %v", err)
	}

	got := readLines(t, cfg.Path)
	if len(got) != 1 || got[0] != "kept" {
		t.Errorf("file lines = %v, want [kept]", got)
	}
}

func TestFile_AppendsToExisting(t *testing.T) {
	cfg := testConfig(t)
	if err := os.WriteFile(cfg.Path, []byte("existing\n"), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	s, err := NewFile(cfg)
	if err != nil {
		t.Fatalf("NewFile() error = %v", err)
	}
	defer s.Close()

	if err := s.WriteLine(types.LevelInfo, "appended"); err != nil {
		t.Fatalf("WriteLine() error = %v", err)
	}

	got := readLines(t, cfg.Path)
	want := []string{"existing", "appended"}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("file lines = %v, want %v", got, want)
	}
}

func TestFile_Rotation(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxFileSize = 32

	s, err := NewFile(cfg)
	if err != nil {
		t.Fatalf("NewFile() error = %v", err)
	}
	defer s.Close()

	// 20 bytes per line plus terminator; the second write must rotate.
	line := strings.Repeat("x", 20)
	for i := 0; i < 3; i++ {
		if err := s.WriteLine(types.LevelInfo, line); err != nil {
			t.Fatalf("WriteLine() error = %v", err)
		}
	}

	stats := s.Stats()
	if stats.Rotations != 2 {
		t.Errorf("rotations = %d, want 2", stats.Rotations)
	}

	rotated, err := s.rotatedFiles()
	if err != nil {
		t.Fatalf("rotatedFiles() error = %v", err)
	}
	if len(rotated) != 2 {
		t.Fatalf("rotated files = %d, want 2", len(rotated))
	}

	// Every line survives across the active and rotated files.
	total := len(readLines(t, cfg.Path))
	for _, path := range rotated {
		total += len(readLines(t, path))
	}
	if total != 3 {
		t.Errorf("total lines across files = %d, want 3", total)
	}
}

func TestFile_RotationPrunesOldFiles(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxFileSize = 16
	cfg.MaxFileCount = 3

	s, err := NewFile(cfg)
	if err != nil {
		t.Fatalf("NewFile() error = %v", err)
	}
	defer s.Close()

	line := strings.Repeat("y", 12)
	for i := 0; i < 10; i++ {
		if err := s.WriteLine(types.LevelInfo, line); err != nil {
			t.Fatalf("WriteLine() error = %v", err)
		}
	}

	rotated, err := s.rotatedFiles()
	if err != nil {
		t.Fatalf("rotatedFiles() error = %v", err)
	}

	// Active file plus rotated files must stay within the cap.
	if len(rotated) > cfg.MaxFileCount-1 {
		t.Errorf("rotated files = %d, want at most %d", len(rotated), cfg.MaxFileCount-1)
	}
}

func TestFile_RotationWithCompression(t *testing.T) {
	for _, compression := range []Compression{CompressionGzip, CompressionSnappy} {
		t.Run(string(compression), func(t *testing.T) {
			cfg := testConfig(t)
			cfg.MaxFileSize = 16
			cfg.Compression = compression

			s, err := NewFile(cfg)
			if err != nil {
				t.Fatalf("NewFile() error = %v", err)
			}
			defer s.Close()

			line := strings.Repeat("z", 12)
			for i := 0; i < 3; i++ {
				if err := s.WriteLine(types.LevelInfo, line); err != nil {
					t.Fatalf("WriteLine() error = %v", err)
				}
			}

			rotated, err := s.rotatedFiles()
			if err != nil {
				t.Fatalf("rotatedFiles() error = %v", err)
			}
			if len(rotated) == 0 {
				t.Fatal("expected at least one rotated file")
			}

			wantExt := compressedExt(compression)
			for _, path := range rotated {
				if !strings.HasSuffix(path, wantExt) {
					t.Errorf("rotated file %s missing %s suffix", path, wantExt)
				}

				data, err := os.ReadFile(path)
				if err != nil {
					t.Fatalf("ReadFile() error = %v", err)
				}

				compressor, err := GetCompressor(compression)
				if err != nil {
					t.Fatalf("GetCompressor() error = %v", err)
				}
				decompressed, err := compressor.Decompress(data)
				if err != nil {
					t.Fatalf("Decompress() error = %v", err)
				}
				if !strings.Contains(string(decompressed), line) {
					t.Errorf("decompressed rotated file does not contain written line")
				}
			}
		})
	}
}

func TestFile_CloseThenWrite(t *testing.T) {
	s, err := NewFile(testConfig(t))
	if err != nil {
		t.Fatalf("NewFile() error = %v", err)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if err := s.WriteLine(types.LevelInfo, "late"); err != ErrSinkClosed {
		t.Errorf("WriteLine() after Close error = %v, want ErrSinkClosed", err)
	}
	if err := s.Flush(); err != ErrSinkClosed {
		t.Errorf("Flush() after Close error = %v, want ErrSinkClosed", err)
	}
}

func TestFile_NoAutoFlushBuffersUntilFlush(t *testing.T) {
	cfg := testConfig(t)
	cfg.AutoFlush = false

	s, err := NewFile(cfg)
	if err != nil {
		t.Fatalf("NewFile() error = %v", err)
	}
	defer s.Close()

	if err := s.WriteLine(types.LevelInfo, "buffered"); err != nil {
		t.Fatalf("WriteLine() error = %v", err)
	}

	if got := readLines(t, cfg.Path); len(got) != 0 {
		t.Errorf("file lines before Flush = %v, want none", got)
	}

	if err := s.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	if got := readLines(t, cfg.Path); len(got) != 1 || got[0] != "buffered" {
		t.Errorf("file lines after Flush = %v, want [buffered]", got)
	}
}

func TestGetCompressor(t *testing.T) {
	tests := []struct {
		compression Compression
		wantErr     bool
	}{
		{CompressionNone, false},
		{Compression(""), false},
		{CompressionGzip, false},
		{CompressionSnappy, false},
		{Compression("lz4"), true},
	}

	for _, tt := range tests {
		t.Run(string(tt.compression), func(t *testing.T) {
			_, err := GetCompressor(tt.compression)
			if (err != nil) != tt.wantErr {
				t.Errorf("GetCompressor(%s) error = %v, wantErr %v", tt.compression, err, tt.wantErr)
			}
		})
	}
}

func TestCompressorRoundTrip(t *testing.T) {
	payload := []byte(`"a","b","c"` + "\n" + `"d","e","f"`)

	for _, compression := range []Compression{CompressionNone, CompressionGzip, CompressionSnappy} {
		t.Run(string(compression), func(t *testing.T) {
			compressor, err := GetCompressor(compression)
			if err != nil {
				t.Fatalf("GetCompressor() error = %v", err)
			}

			compressed, err := compressor.Compress(payload)
			if err != nil {
				t.Fatalf("Compress() error = %v", err)
			}

			decompressed, err := compressor.Decompress(compressed)
			if err != nil {
				t.Fatalf("Decompress() error = %v", err)
			}

			if string(decompressed) != string(payload) {
				t.Errorf("round trip mismatch: got %q, want %q", decompressed, payload)
			}
		})
	}
}
