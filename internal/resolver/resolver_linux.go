//go:build linux

package resolver

/*
#cgo LDFLAGS: -ldl
#include <dlfcn.h>
#include <stdlib.h>

typedef int (*cedo_main_fn)(int, char **);

static int cedo_call_main(void *fn, int argc, char **argv) {
	return ((cedo_main_fn)fn)(argc, argv);
}
*/
import "C"

import (
	"unsafe"

	"github.com/brachet-dev/cedo/internal/cedoerr"
)

type dlResolver struct {
	handle unsafe.Pointer
}

// Open dlopen(3)s path with RTLD_NOW|RTLD_LOCAL, matching
// Runtime::loadUserCode.
func Open(path string) (Resolver, error) {
	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))

	handle := C.dlopen(cpath, C.RTLD_NOW|C.RTLD_LOCAL)
	if handle == nil {
		return nil, cedoerr.New(cedoerr.IO, "dlopen(%q): %s", path, C.GoString(C.dlerror()))
	}

	return &dlResolver{handle: handle}, nil
}

func (r *dlResolver) Resolve(name string) (uintptr, bool) {
	cname := C.CString(name)
	defer C.free(unsafe.Pointer(cname))

	C.dlerror() // clear any pending error, per dlsym(3)'s disambiguation idiom

	sym := C.dlsym(r.handle, cname)
	if sym == nil && C.dlerror() != nil {
		return 0, false
	}

	return uintptr(sym), sym != nil
}

// CallMain resolves "main" and invokes it as int main(int, char**),
// matching Runtime::run.
func (r *dlResolver) CallMain(args []string) (int, error) {
	mainAddr, ok := r.Resolve("main")
	if !ok {
		return 0, cedoerr.New(cedoerr.SymbolNotFound, "symbol \"main\" not found")
	}

	cargv := make([]*C.char, len(args))
	for i, a := range args {
		cargv[i] = C.CString(a)
	}

	defer func() {
		for _, p := range cargv {
			C.free(unsafe.Pointer(p))
		}
	}()

	var argvPtr **C.char
	if len(cargv) > 0 {
		argvPtr = (**C.char)(unsafe.Pointer(&cargv[0]))
	}

	code := C.cedo_call_main(unsafe.Pointer(mainAddr), C.int(len(args)), argvPtr)

	return int(code), nil
}

func (r *dlResolver) Close() error {
	if C.dlclose(r.handle) != 0 {
		return cedoerr.New(cedoerr.IO, "dlclose: %s", C.GoString(C.dlerror()))
	}

	return nil
}
