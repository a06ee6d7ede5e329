package bundle

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeFixture creates a file with parents under dir and returns its path.
func writeFixture(t *testing.T, dir, rel, content string) string {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestBundle_CopiesAndRewrites(t *testing.T) {
	src := t.TempDir()
	out := t.TempDir()
	writeFixture(t, src, "sub/models.lib", ".model Q2N3904 NPN\n")

	base := writeFixture(t, src, "amp.cir", "")
	text := ".include sub/models.lib\nR1 in out 1k\n.end"

	result, err := New().Bundle(Request{
		NetlistText:  text,
		BaseFilePath: base,
		OutputRoot:   out,
	})
	require.NoError(t, err)

	require.Len(t, result.Copied, 1)
	assert.Empty(t, result.Missing)

	copied := result.Copied[0]
	assert.Equal(t, ".include", copied.Directive)
	assert.Equal(t, "sub/models.lib", copied.OriginalSpecifier)

	data, err := os.ReadFile(copied.DestPath)
	require.NoError(t, err)
	assert.Equal(t, ".model Q2N3904 NPN\n", string(data))

	assert.Contains(t, result.RewrittenText, ".include sub/models.lib")
	assert.Contains(t, result.RewrittenText, "R1 in out 1k")
}

func TestBundle_MissingFileReported(t *testing.T) {
	src := t.TempDir()
	out := t.TempDir()
	base := writeFixture(t, src, "amp.cir", "")

	text := ".include \"sub/models.lib\"\n.end"
	result, err := New().Bundle(Request{
		NetlistText:  text,
		BaseFilePath: base,
		OutputRoot:   out,
	})
	require.NoError(t, err)

	assert.Empty(t, result.Copied)
	require.Len(t, result.Missing, 1)
	assert.Equal(t, "sub/models.lib", result.Missing[0].OriginalSpecifier)
	assert.Equal(t, filepath.Join(src, "sub", "models.lib"), result.Missing[0].ResolvedAttemptPath)
	// The directive line is left exactly as written.
	assert.Equal(t, text, result.RewrittenText)
}

func TestBundle_DuplicateSpecifierResolvedOnce(t *testing.T) {
	src := t.TempDir()
	out := t.TempDir()
	writeFixture(t, src, "dup.lib", "* lib\n")
	base := writeFixture(t, src, "amp.cir", "")

	text := ".include dup.lib\nR1 a b 1k\n.include dup.lib"
	result, err := New().Bundle(Request{
		NetlistText:  text,
		BaseFilePath: base,
		OutputRoot:   out,
	})
	require.NoError(t, err)

	require.Len(t, result.Copied, 1)
	lines := strings.Split(result.RewrittenText, "\n")
	assert.Equal(t, lines[0], lines[2])
}

func TestBundle_DuplicateMissingSpecifierReportedOnce(t *testing.T) {
	src := t.TempDir()
	out := t.TempDir()
	base := writeFixture(t, src, "amp.cir", "")

	text := ".include nope.lib\nR1 a b 1k\n.include nope.lib"
	result, err := New().Bundle(Request{
		NetlistText:  text,
		BaseFilePath: base,
		OutputRoot:   out,
	})
	require.NoError(t, err)

	assert.Empty(t, result.Copied)
	require.Len(t, result.Missing, 1)
	assert.Equal(t, "nope.lib", result.Missing[0].OriginalSpecifier)
	assert.Equal(t, text, result.RewrittenText)
}

func TestBundle_FileCountBudget(t *testing.T) {
	src := t.TempDir()
	out := t.TempDir()
	writeFixture(t, src, "a.lib", "* a\n")
	writeFixture(t, src, "b.lib", "* b\n")
	writeFixture(t, src, "c.lib", "* c\n")
	base := writeFixture(t, src, "amp.cir", "")

	text := ".include a.lib\n.include b.lib\n.include c.lib"
	result, err := New().Bundle(Request{
		NetlistText:  text,
		BaseFilePath: base,
		OutputRoot:   out,
		MaxFiles:     2,
	})
	require.NoError(t, err)

	assert.Len(t, result.Copied, 2)
	assert.Empty(t, result.Missing, "over-budget specifiers are not errors")
	// The third directive keeps its original specifier.
	assert.Contains(t, result.RewrittenText, ".include c.lib")
}

func TestBundle_ByteBudget(t *testing.T) {
	src := t.TempDir()
	out := t.TempDir()
	writeFixture(t, src, "big.lib", strings.Repeat("x", 100))
	writeFixture(t, src, "huge.lib", strings.Repeat("y", 200))
	base := writeFixture(t, src, "amp.cir", "")

	result, err := New().Bundle(Request{
		NetlistText:  ".include big.lib\n.include huge.lib",
		BaseFilePath: base,
		OutputRoot:   out,
		MaxBytes:     150,
	})
	require.NoError(t, err)

	require.Len(t, result.Copied, 1)
	assert.Equal(t, "big.lib", result.Copied[0].OriginalSpecifier)
}

func TestBundle_TraversalStaysUnderRoot(t *testing.T) {
	src := t.TempDir()
	out := t.TempDir()
	// Place the target so the traversal specifier actually resolves.
	writeFixture(t, src, "secrets/target.lib", "* secret\n")
	base := writeFixture(t, filepath.Join(src, "designs"), "amp.cir", "")

	result, err := New().Bundle(Request{
		NetlistText:  ".include ../secrets/target.lib",
		BaseFilePath: base,
		OutputRoot:   out,
	})
	require.NoError(t, err)

	require.Len(t, result.Copied, 1)
	rel, err := filepath.Rel(out, result.Copied[0].DestPath)
	require.NoError(t, err)
	assert.False(t, strings.HasPrefix(rel, ".."),
		"copy escaped output root: %s", result.Copied[0].DestPath)
}

func TestBundle_AllowPatterns(t *testing.T) {
	src := t.TempDir()
	out := t.TempDir()
	writeFixture(t, src, "models.lib", "* lib\n")
	writeFixture(t, src, "notes.txt", "notes\n")
	base := writeFixture(t, src, "amp.cir", "")

	text := ".include models.lib\n.include notes.txt"
	result, err := New().Bundle(Request{
		NetlistText:   text,
		BaseFilePath:  base,
		OutputRoot:    out,
		AllowPatterns: []string{"**/*.lib", "*.lib"},
	})
	require.NoError(t, err)

	require.Len(t, result.Copied, 1)
	assert.Equal(t, "models.lib", result.Copied[0].OriginalSpecifier)
	// Skipped is neither copied nor missing.
	assert.Empty(t, result.Missing)
	assert.Contains(t, result.RewrittenText, ".include notes.txt")
}

func TestBundle_AbsoluteSpecifier(t *testing.T) {
	src := t.TempDir()
	out := t.TempDir()
	absLib := writeFixture(t, src, "shared.lib", "* shared\n")
	base := writeFixture(t, src, "amp.cir", "")

	result, err := New().Bundle(Request{
		NetlistText:  ".include " + absLib,
		BaseFilePath: base,
		OutputRoot:   out,
	})
	require.NoError(t, err)

	require.Len(t, result.Copied, 1)
	rel, err := filepath.Rel(out, result.Copied[0].DestPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filepath.ToSlash(rel), "abs/shared_"))
}
