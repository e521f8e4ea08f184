package makegen

import (
	"sort"

	"github.com/robert-at-pretension-io/vhdl-make/internal/backend"
)

// Registry records every library referenced during one generation run.
// It always contains the default work library.
type Registry struct {
	work string
	libs map[string]struct{}
}

// NewRegistry creates a registry seeded with the default library.
func NewRegistry(workLibrary string) *Registry {
	if workLibrary == "" {
		workLibrary = backend.DefaultWorkLibrary
	}
	return &Registry{
		work: workLibrary,
		libs: map[string]struct{}{workLibrary: {}},
	}
}

// Register records library. Registering twice, or registering the default
// library under any spelling, is a no-op.
func (r *Registry) Register(library string) {
	if backend.IsDefaultLibrary(library, r.work) {
		return
	}
	r.libs[library] = struct{}{}
}

// Contains reports whether library has been registered.
func (r *Registry) Contains(library string) bool {
	if backend.IsDefaultLibrary(library, r.work) {
		return true
	}
	_, ok := r.libs[library]
	return ok
}

// All returns the default library first, then the others sorted.
func (r *Registry) All() []string {
	out := make([]string, 0, len(r.libs))
	for lib := range r.libs {
		if lib != r.work {
			out = append(out, lib)
		}
	}
	sort.Strings(out)
	return append([]string{r.work}, out...)
}

// Len is the number of distinct libraries, default included.
func (r *Registry) Len() int {
	return len(r.libs)
}
