// Package writer exposes sinks for rendered reports.
package writer

import (
	"fmt"
	"os"
	"path/filepath"
)

// Sink receives a fully rendered report.
type Sink interface {
	WriteReport(buf []byte) error
}

// FileWriter replaces the file at Path atomically, so a reader never sees a
// half-written report.
type FileWriter struct {
	Path string
}

// WriteReport writes buf to a temp file next to Path, syncs it and renames it
// into place.
func (w *FileWriter) WriteReport(buf []byte) error {
	dir := filepath.Dir(w.Path)
	tmpFile, err := os.CreateTemp(dir, ".ermctl-tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	defer func() {
		if tmpFile != nil {
			_ = tmpFile.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, writeErr := tmpFile.Write(buf); writeErr != nil {
		return fmt.Errorf("write temp file: %w", writeErr)
	}
	if syncErr := tmpFile.Sync(); syncErr != nil {
		return fmt.Errorf("sync temp file: %w", syncErr)
	}
	if closeErr := tmpFile.Close(); closeErr != nil {
		return fmt.Errorf("close temp file: %w", closeErr)
	}
	tmpFile = nil

	if renameErr := os.Rename(tmpPath, w.Path); renameErr != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", renameErr)
	}
	return nil
}
