package makegen

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-at-pretension-io/vhdl-make/internal/backend"
)

func TestGenerateFileWritesBesideManifest(t *testing.T) {
	dir := t.TempDir()
	writeVHDL(t, dir, "rtl/a.vhd", design("foo", "rtl"))
	writeVHDL(t, dir, "sim.files", "hw:\nrtl/a.vhd\ntoplevel: foo\n")

	conv, err := backend.New("sonata", backend.Toolchain{})
	require.NoError(t, err)

	res, err := GenerateFile(context.Background(), conv, filepath.Join(dir, "sim.files"), "")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, DefaultOutput))
	require.NoError(t, err)
	assert.Equal(t, string(res.Script.Bytes()), string(data))
	assert.Contains(t, string(data), "$(WORKDIR)/a/_rtl.var: rtl/a.vhd\n")

	info, err := os.Stat(filepath.Join(dir, DefaultOutput))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}

func TestGenerateFileFailureKeepsPreviousOutput(t *testing.T) {
	dir := t.TempDir()
	writeVHDL(t, dir, "bad.vhd", "entity orphan is\nend;\n")
	writeVHDL(t, dir, "sim.files", "bad.vhd\n")
	out := filepath.Join(dir, "out", "Makefile")
	writeVHDL(t, dir, "out/Makefile", "previous\n")

	conv, err := backend.New("modelsim", backend.Toolchain{})
	require.NoError(t, err)

	_, err = GenerateFile(context.Background(), conv, filepath.Join(dir, "sim.files"), out)
	require.Error(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "previous\n", string(data))

	entries, err := os.ReadDir(filepath.Join(dir, "out"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestGenerateFileMissingManifest(t *testing.T) {
	conv, err := backend.New("sonata", backend.Toolchain{})
	require.NoError(t, err)
	_, err = GenerateFile(context.Background(), conv, filepath.Join(t.TempDir(), "sim.files"), "")
	require.Error(t, err)
}
