package fmi

import (
	"log/slog"

	"github.com/spf13/afero"
)

// Dumper receives the raw body of every successful response
type Dumper interface {
	Dump(body string)
}

// FileDumper writes the last response to a fixed path so it can be inspected
// when extraction yields something unexpected. Write failures are logged and
// never reach the caller.
type FileDumper struct {
	fs     afero.Fs
	path   string
	logger *slog.Logger
}

// NewFileDumper creates a dumper writing to path on fs. A nil fs means the
// OS filesystem.
func NewFileDumper(fs afero.Fs, path string, logger *slog.Logger) *FileDumper {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if path == "" {
		path = DefaultDumpPath
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FileDumper{fs: fs, path: path, logger: logger}
}

// Dump overwrites the dump file with body
func (d *FileDumper) Dump(body string) {
	if err := afero.WriteFile(d.fs, d.path, []byte(body), 0o644); err != nil {
		d.logger.Warn("failed to dump initial FMI response", "path", d.path, "error", err)
		return
	}
	d.logger.Debug("dumped FMI response", "path", d.path, "bytes", len(body))
}
