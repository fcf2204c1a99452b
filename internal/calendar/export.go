package calendar

import (
	"fmt"
	"os"
	"path/filepath"
)

// ExportFileName is the fixed name of a downloaded calendar.
const ExportFileName = "calendar-export.ics"

// WriteExport saves an exported calendar as dir/calendar-export.ics,
// replacing any earlier export atomically. The body is written as served,
// even when empty.
func WriteExport(dir string, data []byte) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".termin-export-*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write export: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("sync export: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close export: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return "", fmt.Errorf("chmod export: %w", err)
	}

	path := filepath.Join(dir, ExportFileName)
	if err := os.Rename(tmpName, path); err != nil {
		return "", fmt.Errorf("rename export: %w", err)
	}
	return path, nil
}
