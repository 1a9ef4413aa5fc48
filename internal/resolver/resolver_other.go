//go:build !linux

package resolver

import "github.com/brachet-dev/cedo/internal/cedoerr"

// Open is unsupported outside Linux: dlopen/dlsym semantics (and RTLD_*
// flag values) are platform-specific enough that the original never
// targeted anything else either.
func Open(path string) (Resolver, error) {
	return nil, cedoerr.New(cedoerr.IO, "dynamic symbol resolution is only supported on linux")
}
