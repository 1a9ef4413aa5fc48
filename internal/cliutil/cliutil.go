// Package cliutil holds the small pieces of CLI scaffolding cmd/cedo
// shares with what a larger toolchain would put in every cmd/* entry
// point: a version banner and a consistent fatal-error exit path.
// Generalized from the teacher's internal/cli/common.go.
package cliutil

import (
	"fmt"
	"os"
	"runtime"

	"github.com/brachet-dev/cedo/internal/cversion"
)

// PrintVersion writes a short version banner for toolName to stdout,
// including the resolved cversion.String() (if any) and the Go toolchain
// that built the binary.
func PrintVersion(toolName string) error {
	v, err := cversion.String()
	if err != nil {
		return err
	}

	if v == "" {
		fmt.Printf("%s (unversioned build)\n", toolName)
	} else {
		fmt.Printf("%s %s\n", toolName, v)
	}

	fmt.Printf("Go version: %s\n", runtime.Version())
	fmt.Printf("Platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)

	return nil
}

// ExitWithError prints a formatted error to stderr and exits with code 1,
// matching the original driver's "warn, then exit(1)" fatal path
// (src/cedo.cpp's `warn` followed by a non-zero return from main).
func ExitWithError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "cedo: "+format+"\n", args...)
	os.Exit(1)
}

// Warn prints a non-fatal warning to stderr, matching `warn()` in the
// original driver: used when a requested symbol can't be typed or
// resolved, so the driver can skip it and keep going.
func Warn(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "cedo: warning: "+format+"\n", args...)
}
