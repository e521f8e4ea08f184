package unit

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const counterVHDL = `library ieee;
use ieee.std_logic_1164.all;

entity Counter is
  port (clk : in std_logic);
end entity;

architecture RTL of Counter is
begin
end architecture;
`

func writeVHDL(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestIdentifyArchitectureByFile(t *testing.T) {
	path := writeVHDL(t, t.TempDir(), "My_Counter.vhd", counterVHDL)

	id, err := Identify(path, ByFile)
	require.NoError(t, err)
	assert.False(t, id.IsPackage)
	assert.Equal(t, "my_counter", id.BaseName)
	assert.Equal(t, "rtl", id.ArchitectureName)
	assert.Empty(t, id.PackageName)
}

func TestIdentifyArchitectureByEntity(t *testing.T) {
	id, err := New().IdentifyText("src/top.vhd", []byte(counterVHDL), ByEntity)
	require.NoError(t, err)
	assert.Equal(t, "counter", id.EntityName)
	assert.Equal(t, "rtl", id.ArchitectureName)
	assert.Equal(t, "top", id.BaseName)
}

func TestIdentifyPackage(t *testing.T) {
	src := "package Types_Pkg is\n  constant W : integer := 8;\nend package;\n\npackage body Types_Pkg is\nend package body;\n"

	for _, strategy := range []Strategy{ByFile, ByEntity} {
		id, err := New().IdentifyText("types_pkg.vhd", []byte(src), strategy)
		require.NoError(t, err, strategy.String())
		assert.True(t, id.IsPackage)
		assert.Equal(t, "Types_Pkg", id.PackageName)
		assert.Empty(t, id.ArchitectureName)
		assert.Equal(t, "types_pkg", id.BaseName)
	}
}

func TestIdentifyMalformed(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		strategy Strategy
	}{
		{name: "empty", src: "", strategy: ByFile},
		{name: "entity_only", src: "entity foo is end entity;", strategy: ByFile},
		{name: "package_body_only", src: "package body foo is end package body;", strategy: ByFile},
		{name: "arch_without_entity", src: "architecture rtl of foo is begin end;", strategy: ByEntity},
		{name: "arch_of_other_entity", src: "entity foo is end; architecture rtl of bar is begin end;", strategy: ByEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New().IdentifyText("x.vhd", []byte(tt.src), tt.strategy)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedUnit))
			var malformed *MalformedUnitError
			require.ErrorAs(t, err, &malformed)
			assert.Equal(t, "x.vhd", malformed.Path)
		})
	}
}

func TestIdentifyIgnoresComments(t *testing.T) {
	src := "-- architecture fake of nothing is\npackage real_pkg is\nend package;\n"

	id, err := New().IdentifyText("p.vhd", []byte(src), ByFile)
	require.NoError(t, err)
	assert.True(t, id.IsPackage)
	assert.Equal(t, "real_pkg", id.PackageName)
}

func TestIdentifyMultilineDeclaration(t *testing.T) {
	src := "entity foo is end;\narchitecture\n  behav\nof foo\nis begin end;\n"

	id, err := New().IdentifyText("foo.vhd", []byte(src), ByEntity)
	require.NoError(t, err)
	assert.Equal(t, "behav", id.ArchitectureName)
	assert.Equal(t, "foo", id.EntityName)
}

func TestIdentifyPicksArchitectureOfFirstEntity(t *testing.T) {
	src := `entity helper is end;
architecture a1 of helper is begin end;
entity main is end;
architecture a2 of main is begin end;
`
	id, err := New().IdentifyText("two.vhd", []byte(src), ByEntity)
	require.NoError(t, err)
	assert.Equal(t, "helper", id.EntityName)
	assert.Equal(t, "a1", id.ArchitectureName)
}

func TestIdentifyMissingFile(t *testing.T) {
	_, err := Identify(filepath.Join(t.TempDir(), "missing.vhd"), ByFile)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrMalformedUnit))
}

func TestBaseName(t *testing.T) {
	assert.Equal(t, "a", BaseName("dir/A.vhd"))
	assert.Equal(t, "tb_top", BaseName("sim/TB_Top.behav.vhdl"))
	assert.Equal(t, "noext", BaseName("noext"))
}

func TestIntrospectorCachesByContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shared.vhd")
	require.NoError(t, os.WriteFile(path, []byte("entity a is end;\narchitecture rtl of a is begin end;\n"), 0o644))

	in := New()
	first, err := in.Identify(path, ByEntity)
	require.NoError(t, err)
	second, err := in.Identify(path, ByFile)
	require.NoError(t, err)
	assert.Equal(t, 1, in.CacheHits())
	assert.Equal(t, "a", first.EntityName)
	assert.Equal(t, "rtl", second.ArchitectureName)

	require.NoError(t, os.WriteFile(path, []byte("package p is end;\n"), 0o644))
	third, err := in.Identify(path, ByEntity)
	require.NoError(t, err)
	assert.True(t, third.IsPackage)
	assert.Equal(t, 1, in.CacheHits())
}
