//go:build linux

package privdrop

import "golang.org/x/sys/unix"

// Real syscall implementations.
type realSyscaller struct{}

func (realSyscaller) Setgroups(gids []int) error {
	return unix.Setgroups(gids)
}

func (realSyscaller) Setresgid(rgid, egid, sgid int) error {
	return unix.Setresgid(rgid, egid, sgid)
}

func (realSyscaller) Setresuid(ruid, euid, suid int) error {
	return unix.Setresuid(ruid, euid, suid)
}

func (realSyscaller) Getuid() int {
	return unix.Getuid()
}

func (realSyscaller) Geteuid() int {
	return unix.Geteuid()
}
