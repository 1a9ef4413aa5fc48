//go:build !linux

package resolver

import "testing"

func TestOpenUnsupportedOffLinux(t *testing.T) {
	if _, err := Open("/dev/null"); err == nil {
		t.Fatal("expected Open to fail off Linux")
	}
}
