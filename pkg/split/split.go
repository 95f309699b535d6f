// Package split cuts delimited files into upload-sized parts on line
// boundaries, replicating the header line onto every part so each part is
// a valid standalone CSV.
package split

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// PartFunc receives each finished part. The part file is removed after the
// callback returns; returning an error stops the split.
type PartFunc func(partPath string, size int64) error

// Splitter splits files into parts of at most MaxBytes. When Encoding names
// a non-UTF-8 input charset (IANA name, e.g. "windows-1252") the input is
// transcoded and parts are always written UTF-8.
type Splitter struct {
	MaxBytes int64
	TempDir  string
	Encoding string

	logger *zap.Logger
}

// New creates a Splitter writing part files under tempDir
func New(maxBytes int64, tempDir, encoding string, logger *zap.Logger) *Splitter {
	return &Splitter{
		MaxBytes: maxBytes,
		TempDir:  tempDir,
		Encoding: encoding,
		logger:   logger,
	}
}

// Split reads path and emits parts of at most MaxBytes, each beginning with
// the input's header line. A part always carries at least one data line, so
// a single line longer than MaxBytes produces an oversized part rather than
// an error. Returns the number of parts emitted.
func (s *Splitter) Split(ctx context.Context, path string, fn PartFunc) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open input file: %w", err)
	}
	defer f.Close()

	reader, err := s.decodingReader(f)
	if err != nil {
		return 0, err
	}

	br := bufio.NewReaderSize(reader, 1<<20)

	header, err := readLine(br)
	if err == io.EOF && header == "" {
		return 0, fmt.Errorf("input file %s is empty", path)
	}
	if err != nil && err != io.EOF {
		return 0, fmt.Errorf("failed to read header line: %w", err)
	}
	if !strings.HasSuffix(header, "\n") {
		header += "\n"
	}

	if err := os.MkdirAll(s.TempDir, 0o755); err != nil {
		return 0, fmt.Errorf("failed to create temp dir: %w", err)
	}

	var (
		parts   int
		part    *partWriter
		readErr error
		line    string
	)

	flush := func() error {
		if part == nil {
			return nil
		}
		partPath, size, err := part.finish()
		part = nil
		if err != nil {
			return err
		}
		parts++
		s.logger.Debug("Emitting file part",
			zap.String("part", partPath),
			zap.Int64("size", size))
		cbErr := fn(partPath, size)
		if rmErr := os.Remove(partPath); rmErr != nil {
			s.logger.Warn("Failed to remove part file", zap.String("part", partPath), zap.Error(rmErr))
		}
		return cbErr
	}

	for readErr == nil {
		if err := ctx.Err(); err != nil {
			if part != nil {
				part.discard()
			}
			return parts, err
		}

		line, readErr = readLine(br)
		if readErr != nil && readErr != io.EOF {
			if part != nil {
				part.discard()
			}
			return parts, fmt.Errorf("failed to read input file: %w", readErr)
		}
		if line == "" {
			continue
		}
		if !strings.HasSuffix(line, "\n") {
			line += "\n"
		}

		if part != nil && part.size+int64(len(line)) > s.MaxBytes {
			if err := flush(); err != nil {
				return parts, err
			}
		}
		if part == nil {
			part, err = s.newPart(path, parts, header)
			if err != nil {
				return parts, err
			}
		}
		if err := part.write(line); err != nil {
			part.discard()
			return parts, err
		}
	}

	// A header-only input still yields one part carrying just the header
	if part == nil && parts == 0 {
		part, err = s.newPart(path, 0, header)
		if err != nil {
			return parts, err
		}
	}
	if err := flush(); err != nil {
		return parts, err
	}

	return parts, nil
}

func (s *Splitter) decodingReader(f *os.File) (io.Reader, error) {
	name := strings.ToLower(strings.TrimSpace(s.Encoding))
	if name == "" || name == "utf-8" || name == "utf8" {
		return f, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("unknown input encoding %q: %w", s.Encoding, err)
	}
	return transform.NewReader(f, enc.NewDecoder()), nil
}

func (s *Splitter) newPart(inputPath string, index int, header string) (*partWriter, error) {
	base := filepath.Base(inputPath)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	name := fmt.Sprintf("%s_%d_%s%s", stem, index+1, uuid.NewString()[:8], ext)
	partPath := filepath.Join(s.TempDir, name)

	f, err := os.Create(partPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create part file: %w", err)
	}

	pw := &partWriter{
		path: partPath,
		file: f,
		buf:  bufio.NewWriterSize(f, 1<<20),
	}
	if err := pw.write(header); err != nil {
		pw.discard()
		return nil, err
	}
	return pw, nil
}

type partWriter struct {
	path string
	file *os.File
	buf  *bufio.Writer
	size int64
}

func (p *partWriter) write(s string) error {
	n, err := p.buf.WriteString(s)
	p.size += int64(n)
	if err != nil {
		return fmt.Errorf("failed to write part file: %w", err)
	}
	return nil
}

func (p *partWriter) finish() (string, int64, error) {
	if err := p.buf.Flush(); err != nil {
		p.discard()
		return "", 0, fmt.Errorf("failed to flush part file: %w", err)
	}
	if err := p.file.Close(); err != nil {
		return "", 0, fmt.Errorf("failed to close part file: %w", err)
	}
	return p.path, p.size, nil
}

func (p *partWriter) discard() {
	p.file.Close()
	os.Remove(p.path)
}

func readLine(br *bufio.Reader) (string, error) {
	return br.ReadString('\n')
}
