// Package store handles the on-disk side of the editor: course file
// load/save, backup-on-open and the SQLite activity log.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"nihonjindes-editor/internal/model"
)

// Load reads and parses a course file. Failure here is fatal to session
// start, so errors carry the path and a human-readable cause; structural
// repair of valid-but-malformed JSON happens in model.New, never here.
func Load(path string) (*model.Document, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open course file %s: %w", path, err)
	}
	var data map[string]any
	if err := json.Unmarshal(b, &data); err != nil {
		return nil, fmt.Errorf("invalid JSON in %s: %w", path, err)
	}
	return model.New(data), nil
}

// Encode renders the document in its canonical text form: two-space indent,
// sorted object keys, trailing newline. Sibling order is carried by the
// arrays and preserved exactly.
func Encode(d *model.Document) ([]byte, error) {
	b, err := json.MarshalIndent(d.Data(), "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// EncodeNode renders a single attribute bag for the raw view.
func EncodeNode(node map[string]any) ([]byte, error) {
	b, err := json.MarshalIndent(node, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// Save encodes the document and commits it with an atomic replace.
func Save(path string, d *model.Document) error {
	b, err := Encode(d)
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, b, 0o644)
}

// BackupOnOpen copies the course file to a timestamped name under backups/
// beside it. Best-effort: the caller treats failure as non-fatal and must not
// block opening the document on it.
func BackupOnOpen(path string) (string, error) {
	dir := filepath.Join(filepath.Dir(path), "backups")
	name := fmt.Sprintf("%s.bak-%s", filepath.Base(path), time.Now().Format("20060102-150405"))
	dest := filepath.Join(dir, name)
	if err := CopyFile(path, dest); err != nil {
		return "", err
	}
	return dest, nil
}
