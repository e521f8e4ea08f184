// Package unit recovers the compilation-unit identity of a VHDL source
// file: which entity/architecture pair or package it declares.
package unit

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Strategy selects which name an artifact path is keyed by.
type Strategy int

const (
	// ByFile keys non-package units by the source file's base name.
	ByFile Strategy = iota
	// ByEntity keys non-package units by the declared entity name and
	// requires the architecture to belong to that entity.
	ByEntity
)

func (s Strategy) String() string {
	if s == ByEntity {
		return "entity"
	}
	return "file"
}

// ErrMalformedUnit is matched by every MalformedUnitError.
var ErrMalformedUnit = errors.New("malformed unit")

// MalformedUnitError reports a source file whose unit identity cannot be
// recovered.
type MalformedUnitError struct {
	Path   string
	Reason string
}

func (e *MalformedUnitError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Reason)
}

func (e *MalformedUnitError) Unwrap() error {
	return ErrMalformedUnit
}

// Identity is the compilation-unit identity of one source file.
// Exactly one of ArchitectureName and PackageName is set.
type Identity struct {
	// BaseName is the lower-cased file name up to its first dot.
	BaseName string `json:"base_name"`

	// EntityName is the lower-cased governing entity (ByEntity only).
	EntityName string `json:"entity_name,omitempty"`

	// ArchitectureName is the lower-cased architecture name for design units.
	ArchitectureName string `json:"architecture_name,omitempty"`

	// PackageName is the declared package name for package units.
	PackageName string `json:"package_name,omitempty"`

	IsPackage bool `json:"is_package"`
}

type architecture struct {
	Name   string
	Entity string
}

// declarations are the raw declarations found in one file
type declarations struct {
	Entities      []string
	Architectures []architecture
	Packages      []string
}

// Introspector reads source files and derives their Identity. Scanned
// declarations are cached by path and content hash, so one Introspector
// shared across generation runs only rescans files that changed. It is
// safe for concurrent use.
type Introspector struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	hits    int
}

type cacheEntry struct {
	ContentHash string
	Decls       declarations
}

// New creates an Introspector with an empty cache.
func New() *Introspector {
	return &Introspector{entries: make(map[string]cacheEntry)}
}

// Identify reads the file at path and returns its unit identity.
func (in *Introspector) Identify(path string, strategy Strategy) (Identity, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Identity{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return in.IdentifyText(path, content, strategy)
}

// IdentifyText derives the identity of source content that was read from
// path. The path only contributes the base name and the cache key.
func (in *Introspector) IdentifyText(path string, content []byte, strategy Strategy) (Identity, error) {
	if in == nil {
		return resolve(path, scan(content), strategy)
	}
	key := cacheKey(path)
	sum := sha256.Sum256(content)
	hash := hex.EncodeToString(sum[:])

	in.mu.Lock()
	entry, ok := in.entries[key]
	if ok && entry.ContentHash == hash {
		in.hits++
	}
	in.mu.Unlock()

	if !ok || entry.ContentHash != hash {
		entry = cacheEntry{ContentHash: hash, Decls: scan(content)}
		in.mu.Lock()
		in.entries[key] = entry
		in.mu.Unlock()
	}
	return resolve(path, entry.Decls, strategy)
}

// CacheHits reports how many lookups reused cached declarations.
func (in *Introspector) CacheHits() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.hits
}

func cacheKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

func scan(content []byte) declarations {
	text := stripComments(string(content))
	return declarations{
		Entities:      matchEntities(text),
		Architectures: matchArchitectures(text),
		Packages:      matchPackages(text),
	}
}

// Identify is a convenience wrapper around an uncached Introspector.
func Identify(path string, strategy Strategy) (Identity, error) {
	var in *Introspector
	return in.Identify(path, strategy)
}

// BaseName returns the lower-cased file name of path up to its first dot.
func BaseName(path string) string {
	name := filepath.Base(filepath.ToSlash(path))
	if i := strings.Index(name, "."); i >= 0 {
		name = name[:i]
	}
	return strings.ToLower(name)
}

func resolve(path string, decls declarations, strategy Strategy) (Identity, error) {
	id := Identity{BaseName: BaseName(path)}

	if len(decls.Architectures) == 0 {
		if len(decls.Packages) == 0 {
			return Identity{}, &MalformedUnitError{Path: path, Reason: "no architecture or package declaration found"}
		}
		id.IsPackage = true
		id.PackageName = decls.Packages[0]
		return id, nil
	}

	if strategy == ByFile {
		id.ArchitectureName = strings.ToLower(decls.Architectures[0].Name)
		if len(decls.Entities) > 0 {
			id.EntityName = strings.ToLower(decls.Entities[0])
		}
		return id, nil
	}

	if len(decls.Entities) == 0 {
		return Identity{}, &MalformedUnitError{Path: path, Reason: "architecture found but no entity declaration"}
	}
	entity := decls.Entities[0]
	for _, arch := range decls.Architectures {
		if strings.EqualFold(arch.Entity, entity) {
			id.EntityName = strings.ToLower(entity)
			id.ArchitectureName = strings.ToLower(arch.Name)
			return id, nil
		}
	}
	return Identity{}, &MalformedUnitError{
		Path:   path,
		Reason: fmt.Sprintf("no architecture of entity %q", entity),
	}
}
