package adapter

import (
	"context"
	"fmt"
	"os"

	nmap "github.com/Ullaakut/nmap/v3"
	"github.com/rs/zerolog"
)

// Scanner produces a scan document for a target
type Scanner interface {
	Name() string
	Scan(ctx context.Context, target string) (*nmap.Run, error)
}

// FileScanner replays a saved nmap XML document instead of scanning
type FileScanner struct {
	path string
	log  zerolog.Logger
}

// NewFileScanner creates a scanner reading the XML document at path
func NewFileScanner(path string, log zerolog.Logger) *FileScanner {
	return &FileScanner{path: path, log: log}
}

// Name returns the scanner identifier
func (f *FileScanner) Name() string {
	return "file"
}

// Scan reads and decodes the document. The target is only logged.
func (f *FileScanner) Scan(ctx context.Context, target string) (*nmap.Run, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("read scan document: %w", err)
	}

	run := &nmap.Run{}
	if err := nmap.Parse(data, run); err != nil {
		return nil, fmt.Errorf("decode scan document %s: %w", f.path, err)
	}

	f.log.Debug().Str("path", f.path).Str("target", target).Msg("Replayed scan document")
	return run, nil
}

var (
	_ Scanner = (*NmapScanner)(nil)
	_ Scanner = (*FileScanner)(nil)
)
