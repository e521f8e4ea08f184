package config

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// HarnessBaseDir resolves Harness.BaseDir against rootPath.
func (c *Config) HarnessBaseDir(rootPath string) string {
	if filepath.IsAbs(c.Harness.BaseDir) {
		return c.Harness.BaseDir
	}
	return filepath.Join(rootPath, c.Harness.BaseDir)
}

// ResolveTests returns the configured tests, or, when none are listed,
// one test per directory matched by the Discover patterns. Discovered
// tests are sorted by module name.
func (c *Config) ResolveTests(rootPath string) ([]TestConfig, error) {
	if len(c.Harness.Tests) > 0 {
		return c.Harness.Tests, nil
	}

	base := c.HarnessBaseDir(rootPath)
	modules := make(map[string]bool)
	for _, pattern := range c.Harness.Discover {
		if !filepath.IsAbs(pattern) {
			pattern = filepath.Join(base, pattern)
		}
		matches, err := expandGlob(pattern)
		if err != nil {
			// Silently skip invalid patterns
			continue
		}
		for _, match := range matches {
			dir := filepath.Dir(match)
			if filepath.Clean(dir) == filepath.Clean(base) {
				continue
			}
			rel, err := filepath.Rel(base, dir)
			if err != nil || strings.HasPrefix(rel, "..") {
				continue
			}
			modules[filepath.ToSlash(rel)] = true
		}
	}

	var tests []TestConfig
	for m := range modules {
		tests = append(tests, TestConfig{Module: m})
	}
	sort.Slice(tests, func(i, j int) bool { return tests[i].Module < tests[j].Module })
	return tests, nil
}

// expandGlob expands a glob pattern, handling ** for recursive matching
func expandGlob(pattern string) ([]string, error) {
	if strings.Contains(pattern, "**") {
		return expandDoubleStarGlob(pattern)
	}
	return filepath.Glob(pattern)
}

// expandDoubleStarGlob handles ** patterns by walking the directory tree
func expandDoubleStarGlob(pattern string) ([]string, error) {
	var results []string

	parts := strings.SplitN(pattern, "**", 2)
	if len(parts) != 2 {
		return filepath.Glob(pattern)
	}

	baseDir := filepath.Clean(parts[0])
	if baseDir == "" {
		baseDir = "."
	}
	suffix := strings.TrimPrefix(parts[1], string(filepath.Separator))

	err := filepath.Walk(baseDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors, continue walking
		}
		if info.IsDir() {
			return nil
		}
		if suffix == "" {
			results = append(results, path)
			return nil
		}
		relPath, err := filepath.Rel(baseDir, path)
		if err != nil {
			return nil
		}
		if matchSuffix(relPath, suffix) {
			results = append(results, path)
		}
		return nil
	})

	return results, err
}

// matchSuffix checks if a path matches a suffix pattern (after **)
func matchSuffix(path, pattern string) bool {
	pattern = strings.TrimPrefix(pattern, string(filepath.Separator))

	// If pattern has no directory component, match against filename
	if !strings.Contains(pattern, string(filepath.Separator)) {
		matched, _ := filepath.Match(pattern, filepath.Base(path))
		return matched
	}

	matched, _ := filepath.Match(pattern, path)
	if matched {
		return true
	}

	if len(path) > len(pattern) {
		suffix := path[len(path)-len(pattern):]
		matched, _ = filepath.Match(pattern, suffix)
		return matched
	}

	return false
}
