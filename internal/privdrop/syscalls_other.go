//go:build !linux

package privdrop

import "fmt"

// Stub for platforms without the setresuid family. The dropper only ever
// runs inside Linux containers; on other platforms every transition fails.
type realSyscaller struct{}

func errUnsupported(call string) error {
	return fmt.Errorf("%w: %s is only supported on linux", ErrPrivilegeDrop, call)
}

func (realSyscaller) Setgroups(gids []int) error {
	return errUnsupported("setgroups")
}

func (realSyscaller) Setresgid(rgid, egid, sgid int) error {
	return errUnsupported("setresgid")
}

func (realSyscaller) Setresuid(ruid, euid, suid int) error {
	return errUnsupported("setresuid")
}

func (realSyscaller) Getuid() int {
	return -1
}

func (realSyscaller) Geteuid() int {
	return -1
}
