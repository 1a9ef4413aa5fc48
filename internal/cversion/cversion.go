// Package cversion produces the version string embedded in the emitted
// assembly's `.ident "cedo[ <version>]"` line. The original tool filled
// weak-linked `version`/`githash` globals at build time from `git
// describe`/`git log` (src/version/Version.cpp, src/version/ExportVersion.c)
// and formatted them as "(<version>) <githash>" when a version was baked
// in, or the empty string otherwise. This package keeps that "build-time
// string, empty by default" shape but validates the configured version as
// a semantic version first, so a malformed `-ldflags` value fails loudly
// at startup instead of corrupting the emitted `.ident` line.
package cversion

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// Version and CommitSHA are meant to be overridden at build time via
// -ldflags "-X github.com/brachet-dev/cedo/internal/cversion.Version=1.2.3
// -X .../cversion.CommitSHA=<hash>", mirroring the weak-linked globals the
// original populated from git. Both are empty in a plain `go build`.
var (
	Version   = ""
	CommitSHA = ""
)

// String returns the value the driver should pass as versionStr to
// asmemit.Emitter.EmitAsm: "" if no version was baked in, otherwise
// "<version> <commit>" (or just "<version>" if no commit hash is known).
// A non-empty Version that fails semver validation is a build
// misconfiguration, not a runtime condition to recover from.
func String() (string, error) {
	if Version == "" {
		return "", nil
	}

	v, err := semver.NewVersion(Version)
	if err != nil {
		return "", fmt.Errorf("cversion: invalid version %q: %w", Version, err)
	}

	if CommitSHA == "" {
		return v.String(), nil
	}

	return fmt.Sprintf("%s %s", v.String(), CommitSHA), nil
}
