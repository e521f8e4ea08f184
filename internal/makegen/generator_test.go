package makegen

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-at-pretension-io/vhdl-make/internal/backend"
	"github.com/robert-at-pretension-io/vhdl-make/internal/manifest"
	"github.com/robert-at-pretension-io/vhdl-make/internal/unit"
)

func writeVHDL(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func design(entity, arch string) string {
	return "entity " + entity + " is\nend entity;\n\narchitecture " + arch + " of " + entity + " is\nbegin\nend architecture;\n"
}

func parseManifest(t *testing.T, src string) *manifest.Manifest {
	t.Helper()
	m, err := manifest.Parse(strings.NewReader(src))
	require.NoError(t, err)
	return m
}

func newGenerator(t *testing.T, name, root string) *Generator {
	t.Helper()
	conv, err := backend.New(name, backend.Toolchain{})
	require.NoError(t, err)
	return New(conv, WithRoot(root))
}

func TestGenerateSonataScript(t *testing.T) {
	dir := t.TempDir()
	writeVHDL(t, dir, "a.vhd", design("foo", "rtl"))
	writeVHDL(t, dir, "b.vhd", "package pkg is\nend package;\n")

	m := parseManifest(t, "hw:\na.vhd libA\ncomp:\nb.vhd\ntoplevel: top")
	res, err := newGenerator(t, "sonata", dir).Generate(context.Background(), m)
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)

	want := `VHDLC=vhdlp
VHDLS=vhdle
WORKDIR=work.sym
TOPLEVEL=top

.PHONY: all hw comp sim runsim run clean

all: hw comp sim

libA.sym/a/_rtl.var: a.vhd
	$(VHDLC) -vital2000 -work libA a.vhd

hw: libA.sym/a/_rtl.var

$(WORKDIR)/b/prim.var: b.vhd
	$(VHDLC) -vital2000 b.vhd

comp: $(WORKDIR)/b/prim.var

sim:

runsim: all
	$(VHDLS) $(TOPLEVEL)

run: runsim

clean:
	rm -Rf *.sym
`
	assert.Equal(t, want, string(res.Script.Bytes()))
}

func TestGenerateModelsimScript(t *testing.T) {
	dir := t.TempDir()
	writeVHDL(t, dir, "a.vhd", design("foo", "rtl"))
	writeVHDL(t, dir, "b.vhd", "package pkg is\nend package;\n")

	m := parseManifest(t, "hw:\na.vhd libA\ncomp:\nb.vhd\ntoplevel: top")
	res, err := newGenerator(t, "modelsim", dir).Generate(context.Background(), m)
	require.NoError(t, err)

	hw, ok := res.Script.Rule("libA/foo/rtl.dat")
	require.True(t, ok)
	assert.Equal(t, []string{"libA/touched", "a.vhd"}, hw.Prereqs)
	assert.Equal(t, []string{"mkdir -p libA", "$(VHDLC) -work libA a.vhd"}, hw.Recipe)

	comp, ok := res.Script.Rule("$(WORKDIR)/b/body.dat")
	require.True(t, ok)
	assert.Equal(t, []string{"$(WORKDIR)/touched", "b.vhd"}, comp.Prereqs)

	assert.Equal(t, []string{"work", "libA"}, res.Script.Libraries)

	boot, ok := res.Script.Rule("libA/touched")
	require.True(t, ok)
	assert.Equal(t, GroupBootstrap, boot.Group)
	assert.Equal(t, []string{"$(VHDLL) libA", "touch libA/touched"}, boot.Recipe)

	boot, ok = res.Script.Rule("$(WORKDIR)/touched")
	require.True(t, ok)
	assert.Equal(t, []string{"$(VHDLL) $(WORKDIR)", "touch $(WORKDIR)/touched"}, boot.Recipe)

	clean, ok := res.Script.Rule(TargetClean)
	require.True(t, ok)
	assert.Equal(t, []string{"rm -Rf $(WORKDIR) libA"}, clean.Recipe)

	text := string(res.Script.Bytes())
	assert.Contains(t, text, "VHDLL=vlib\n")
	assert.Contains(t, text, "\nhw: libA/foo/rtl.dat\n")
	assert.Contains(t, text, "\nrunsim: all\n\t$(VHDLS) $(TOPLEVEL)\n")
}

func TestHardwareChain(t *testing.T) {
	dir := t.TempDir()
	writeVHDL(t, dir, "a.vhd", design("ea", "rtl"))
	writeVHDL(t, dir, "b.vhd", design("eb", "rtl"))
	writeVHDL(t, dir, "c.vhd", design("ec", "rtl"))

	m := parseManifest(t, "a.vhd\nb.vhd\nc.vhd\ntoplevel: tb")
	res, err := newGenerator(t, "sonata", dir).Generate(context.Background(), m)
	require.NoError(t, err)
	require.Len(t, res.HW, 3)

	a, b, c := res.HW[0].Target, res.HW[1].Target, res.HW[2].Target

	ruleA, _ := res.Script.Rule(a)
	ruleB, _ := res.Script.Rule(b)
	ruleC, _ := res.Script.Rule(c)
	assert.Equal(t, []string{"a.vhd"}, ruleA.Prereqs)
	assert.Equal(t, []string{a, "b.vhd"}, ruleB.Prereqs)
	assert.Equal(t, []string{a, b, "c.vhd"}, ruleC.Prereqs)

	hw, _ := res.Script.Rule(TargetHW)
	assert.Equal(t, []string{a, b, c}, hw.Prereqs)
}

func TestHardwareChainIncludesLibraryEntries(t *testing.T) {
	dir := t.TempDir()
	writeVHDL(t, dir, "a.vhd", design("ea", "rtl"))
	writeVHDL(t, dir, "b.vhd", design("eb", "rtl"))

	m := parseManifest(t, "a.vhd libX\nb.vhd\n")
	res, err := newGenerator(t, "sonata", dir).Generate(context.Background(), m)
	require.NoError(t, err)

	ruleB, _ := res.Script.Rule(res.HW[1].Target)
	assert.Equal(t, []string{"libX.sym/a/_rtl.var", "b.vhd"}, ruleB.Prereqs)
}

func TestComponentAndSimulationEntriesAreIndependent(t *testing.T) {
	dir := t.TempDir()
	writeVHDL(t, dir, "hw.vhd", design("core", "rtl"))
	writeVHDL(t, dir, "x.vhd", design("ex", "behav"))
	writeVHDL(t, dir, "y.vhd", design("ey", "behav"))
	writeVHDL(t, dir, "tb.vhd", design("tb", "sim"))

	m := parseManifest(t, "hw.vhd\ncomp:\nx.vhd\ny.vhd\nsim:\ntb.vhd\n")
	res, err := newGenerator(t, "modelsim", dir).Generate(context.Background(), m)
	require.NoError(t, err)

	x, _ := res.Script.Rule(res.Comp[0].Target)
	y, _ := res.Script.Rule(res.Comp[1].Target)
	tb, _ := res.Script.Rule(res.Sim[0].Target)
	assert.Equal(t, []string{"$(WORKDIR)/touched", "x.vhd"}, x.Prereqs)
	assert.Equal(t, []string{"$(WORKDIR)/touched", "y.vhd"}, y.Prereqs)
	assert.Equal(t, []string{"$(WORKDIR)/touched", "tb.vhd"}, tb.Prereqs)
	assert.NotContains(t, y.Prereqs, x.Target)
	assert.NotContains(t, tb.Prereqs, res.HW[0].Target)

	sim, _ := res.Script.Rule(TargetSim)
	assert.Equal(t, []string{"$(WORKDIR)/tb/sim.dat"}, sim.Prereqs)
}

func TestMissingTopLevelWarns(t *testing.T) {
	dir := t.TempDir()
	writeVHDL(t, dir, "a.vhd", design("foo", "rtl"))

	res, err := newGenerator(t, "sonata", dir).Generate(context.Background(), parseManifest(t, "a.vhd\n"))
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0].String(), "toplevel")

	text := string(res.Script.Bytes())
	assert.Contains(t, text, "TOPLEVEL=\n")
	for _, target := range []string{"all", "hw", "comp", "sim", "runsim", "run", "clean"} {
		_, ok := res.Script.Rule(target)
		assert.True(t, ok, target)
	}
}

func TestEmptyManifest(t *testing.T) {
	res, err := newGenerator(t, "modelsim", t.TempDir()).Generate(context.Background(), &manifest.Manifest{TopLevel: "tb"})
	require.NoError(t, err)
	assert.Equal(t, []string{"work"}, res.Script.Libraries)

	var bootstraps int
	for _, r := range res.Script.Rules {
		if r.Group == GroupBootstrap {
			bootstraps++
		}
	}
	assert.Equal(t, 1, bootstraps)
}

func TestLibraryBootstrapNotDuplicated(t *testing.T) {
	dir := t.TempDir()
	writeVHDL(t, dir, "a.vhd", design("ea", "rtl"))
	writeVHDL(t, dir, "b.vhd", design("eb", "rtl"))

	m := parseManifest(t, "a.vhd libA\ncomp:\nb.vhd libA\ntoplevel: tb")
	g := newGenerator(t, "modelsim", dir)
	res, err := g.Generate(context.Background(), m)
	require.NoError(t, err)

	var targets []string
	for _, r := range res.Script.Rules {
		if r.Group == GroupBootstrap {
			targets = append(targets, r.Target)
		}
	}
	assert.Equal(t, []string{"$(WORKDIR)/touched", "libA/touched"}, targets)
	assert.Equal(t, 2, g.Registry().Len())
}

func TestMalformedUnitAborts(t *testing.T) {
	dir := t.TempDir()
	writeVHDL(t, dir, "a.vhd", design("foo", "rtl"))
	writeVHDL(t, dir, "bad.vhd", "-- nothing here\n")

	res, err := newGenerator(t, "sonata", dir).Generate(context.Background(), parseManifest(t, "a.vhd\ncomp:\nbad.vhd\n"))
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, unit.ErrMalformedUnit))
	assert.Contains(t, err.Error(), "comp group")
}

func TestDuplicateArtifact(t *testing.T) {
	dir := t.TempDir()
	writeVHDL(t, dir, "one/core.vhd", design("core", "rtl"))
	writeVHDL(t, dir, "two/core.vhd", design("core", "rtl"))

	_, err := newGenerator(t, "sonata", dir).Generate(context.Background(), parseManifest(t, "one/core.vhd\ncomp:\ntwo/core.vhd\n"))
	require.Error(t, err)

	var dup *DuplicateArtifactError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "$(WORKDIR)/core/_rtl.var", dup.Target)
	assert.Equal(t, "one/core.vhd", dup.First)
	assert.Equal(t, "two/core.vhd", dup.Second)
	assert.True(t, errors.Is(err, ErrDuplicateArtifact))

	// Different libraries do not collide.
	_, err = newGenerator(t, "sonata", dir).Generate(context.Background(), parseManifest(t, "one/core.vhd\ncomp:\ntwo/core.vhd libB\n"))
	require.NoError(t, err)
}

func TestGenerateIsRepeatable(t *testing.T) {
	dir := t.TempDir()
	writeVHDL(t, dir, "a.vhd", design("foo", "rtl"))
	m := parseManifest(t, "a.vhd libA\ntoplevel: top")

	g := newGenerator(t, "modelsim", dir)
	first, err := g.Generate(context.Background(), m)
	require.NoError(t, err)
	second, err := g.Generate(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, string(first.Script.Bytes()), string(second.Script.Bytes()))
}

func TestRegistry(t *testing.T) {
	r := NewRegistry("work")
	assert.Equal(t, []string{"work"}, r.All())

	r.Register("zeta")
	r.Register("alpha")
	r.Register("zeta")
	r.Register("")
	r.Register("WORK")
	assert.Equal(t, []string{"work", "alpha", "zeta"}, r.All())
	assert.True(t, r.Contains(""))
	assert.True(t, r.Contains("alpha"))
	assert.False(t, r.Contains("beta"))
	assert.Equal(t, 3, r.Len())
}
