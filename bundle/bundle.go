// Package bundle copies files referenced by `.include`/`.lib` directives in a
// netlist into a self-contained output tree and rewrites the directives to
// point at the copies.
//
// The work is split into a pure planning phase (scan directives, resolve
// specifiers, compute destination paths) and an effectful execution phase
// (stat, budget checks, copies). Planning is testable without a filesystem;
// execution reports missing files as data rather than failing the pass.
package bundle

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// Default resource budgets for a bundling pass.
const (
	DefaultMaxFiles = 64
	DefaultMaxBytes = 32 * 1024 * 1024
)

// Request describes one bundling pass over a single netlist.
type Request struct {
	// NetlistText is the raw netlist to scan and rewrite.
	NetlistText string

	// BaseFilePath is the path of the netlist's source file. Relative
	// specifiers resolve against its directory.
	BaseFilePath string

	// OutputRoot is the directory all copies are confined under.
	OutputRoot string

	// MaxFiles bounds how many files are copied (0 means DefaultMaxFiles).
	MaxFiles int

	// MaxBytes bounds the cumulative copied size (0 means DefaultMaxBytes).
	MaxBytes int64

	// AllowPatterns, when non-empty, restricts bundling to specifiers matching
	// at least one doublestar glob. Non-matching directives are left untouched.
	AllowPatterns []string
}

// BundledInclude records one successfully copied dependency.
type BundledInclude struct {
	Directive          string `json:"directive"`
	OriginalSpecifier  string `json:"original_specifier"`
	ResolvedSourcePath string `json:"resolved_source_path"`
	DestPath           string `json:"dest_path"`
}

// MissingInclude records a specifier whose resolved path does not exist.
type MissingInclude struct {
	Directive           string `json:"directive"`
	OriginalSpecifier   string `json:"original_specifier"`
	ResolvedAttemptPath string `json:"resolved_attempt_path"`
}

// Result is the best-effort outcome of a bundling pass.
type Result struct {
	// RewrittenText is the netlist with bundled directives pointing at copies.
	// Directives for missing, skipped, or over-budget specifiers are unchanged.
	RewrittenText string

	Copied  []BundledInclude
	Missing []MissingInclude
}

// Bundler executes bundling passes.
type Bundler struct {
	logger *slog.Logger
}

// Option configures a Bundler.
type Option func(*Bundler)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bundler) {
		b.logger = logger
	}
}

// New creates a Bundler.
func New(opts ...Option) *Bundler {
	b := &Bundler{logger: slog.Default()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Bundle runs one pass: plan, execute copies under budget, rewrite.
// Per-specifier failures are reported in the result; only infrastructure
// failures (unable to create the output root) return an error.
func (b *Bundler) Bundle(req Request) (*Result, error) {
	maxFiles := req.MaxFiles
	if maxFiles <= 0 {
		maxFiles = DefaultMaxFiles
	}
	maxBytes := req.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	plan := Plan(req.NetlistText, req.BaseFilePath)

	if err := os.MkdirAll(req.OutputRoot, 0o755); err != nil {
		return nil, fmt.Errorf("create output root: %w", err)
	}

	result := &Result{}
	// Specifier → rewritten destination, shared by every directive line that
	// names the same specifier.
	resolved := make(map[string]string)
	// Specifiers already attempted and found missing. Repeated directives for
	// the same specifier are stat'd and reported once.
	missing := make(map[string]bool)

	var copiedFiles int
	var copiedBytes int64

	for _, ref := range plan {
		if _, done := resolved[ref.Specifier]; done || missing[ref.Specifier] {
			continue
		}
		if b.skippedByAllowlist(req.AllowPatterns, ref.Specifier) {
			b.logger.Debug("Specifier outside allow patterns, skipping",
				"specifier", ref.Specifier)
			continue
		}

		info, err := os.Stat(ref.SourcePath)
		if err != nil || info.IsDir() {
			missing[ref.Specifier] = true
			result.Missing = append(result.Missing, MissingInclude{
				Directive:           ref.Directive,
				OriginalSpecifier:   ref.Specifier,
				ResolvedAttemptPath: ref.SourcePath,
			})
			continue
		}

		if copiedFiles >= maxFiles || copiedBytes+info.Size() > maxBytes {
			// Budget reached: remaining specifiers stay un-bundled, silently.
			b.logger.Warn("Bundle budget reached, leaving remaining includes",
				"files", copiedFiles, "bytes", copiedBytes)
			break
		}

		destPath := filepath.Join(req.OutputRoot, filepath.FromSlash(ref.DestRel))
		if err := copyFile(ref.SourcePath, destPath); err != nil {
			b.logger.Warn("Copy failed, treating include as missing",
				"specifier", ref.Specifier, "error", err)
			missing[ref.Specifier] = true
			result.Missing = append(result.Missing, MissingInclude{
				Directive:           ref.Directive,
				OriginalSpecifier:   ref.Specifier,
				ResolvedAttemptPath: ref.SourcePath,
			})
			continue
		}

		copiedFiles++
		copiedBytes += info.Size()
		resolved[ref.Specifier] = ref.DestRel
		result.Copied = append(result.Copied, BundledInclude{
			Directive:          ref.Directive,
			OriginalSpecifier:  ref.Specifier,
			ResolvedSourcePath: ref.SourcePath,
			DestPath:           destPath,
		})
	}

	result.RewrittenText = Rewrite(req.NetlistText, resolved)
	return result, nil
}

// skippedByAllowlist reports whether the allow patterns exclude a specifier.
func (b *Bundler) skippedByAllowlist(patterns []string, specifier string) bool {
	if len(patterns) == 0 {
		return false
	}
	for _, p := range patterns {
		if ok, err := doublestar.Match(p, filepath.ToSlash(specifier)); err == nil && ok {
			return false
		}
	}
	return true
}

// copyFile copies src to dst, creating parent directories.
func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create dest dir: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create dest: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy: %w", err)
	}
	return out.Close()
}
