//go:build linux

package main

import (
	"os"

	"github.com/cruciblehq/caisson/internal/entrypoint"
)

// The entry point for caisson-init, the in-container init helper.
//
// The caisson CLI arranges for this binary to be the container's entrypoint;
// the container runtime invokes it as PID 1 with the build command as its
// arguments and the identity request in the CAISSON_INIT_* environment.
func main() {
	os.Exit(entrypoint.Main(os.Args[1:]))
}
