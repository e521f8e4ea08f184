package makegen

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/robert-at-pretension-io/vhdl-make/internal/backend"
	"github.com/robert-at-pretension-io/vhdl-make/internal/manifest"
)

// DefaultOutput is the file name written next to the manifest.
const DefaultOutput = "Makefile"

// WriteFile renders s and replaces path atomically. A failed run leaves
// any previous file untouched.
func WriteFile(path string, s *Script) error {
	return WriteAtomic(path, s.Bytes())
}

// WriteAtomic writes data to a temp file beside path and renames it into
// place.
func WriteAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("output dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("temp output file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write output file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close output file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("chmod output file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("rename output file: %w", err)
	}
	return nil
}

// GenerateFile loads the manifest at manifestPath, generates the script
// with sources resolved relative to the manifest's directory and writes it
// to outPath (DefaultOutput next to the manifest when empty).
func GenerateFile(ctx context.Context, conv backend.Convention, manifestPath, outPath string, opts ...Option) (*Result, error) {
	m, err := manifest.Load(manifestPath)
	if err != nil {
		return nil, err
	}

	root := filepath.Dir(manifestPath)
	if outPath == "" {
		outPath = filepath.Join(root, DefaultOutput)
	}

	res, err := New(conv, append([]Option{WithRoot(root)}, opts...)...).Generate(ctx, m)
	if err != nil {
		return nil, err
	}
	if err := WriteFile(outPath, res.Script); err != nil {
		return nil, err
	}
	return res, nil
}
