package privdrop

import (
	"fmt"
	"log/slog"
	"os"
)

// The identity to drop to.
type Identity struct {
	UID           uint32   // Target real/effective/saved user id.
	GID           uint32   // Target real/effective/saved group id.
	Username      string   // Login name, exported as USER and LOGNAME.
	Home          string   // Home directory, exported as HOME.
	Supplementary []uint32 // Supplementary group ids for the target user.
}

// Syscall surface used by [Dropper].
//
// Injectable so the mandatory ordering (groups before gid before uid) can be
// verified in tests without actually changing identity.
type syscaller interface {
	Setgroups(gids []int) error
	Setresgid(rgid, egid, sgid int) error
	Setresuid(ruid, euid, suid int) error
	Getuid() int
	Geteuid() int
}

// Performs the identity transition.
type Dropper struct {
	sys syscaller
}

// Returns a dropper backed by the real syscalls.
func New() *Dropper {
	return &Dropper{sys: realSyscaller{}}
}

// Switches the process identity to the target and updates the environment.
//
// The order is mandatory: supplementary groups and the gid are set while the
// process still holds root, then the uid is dropped. All three id changes use
// the real+effective+saved form; once Drop returns, attempts to regain root
// fail at the OS level. A failed drop leaves the process unfit to run the
// build command and must be treated as fatal by the caller.
func (d *Dropper) Drop(id Identity) error {
	groups := make([]int, 0, len(id.Supplementary)+1)
	groups = append(groups, int(id.GID))
	for _, gid := range id.Supplementary {
		if gid != id.GID {
			groups = append(groups, int(gid))
		}
	}

	if err := d.sys.Setgroups(groups); err != nil {
		return fmt.Errorf("%w: setgroups(%v): %v", ErrPrivilegeDrop, groups, err)
	}
	if err := d.sys.Setresgid(int(id.GID), int(id.GID), int(id.GID)); err != nil {
		return fmt.Errorf("%w: setresgid(%d): %v", ErrPrivilegeDrop, id.GID, err)
	}
	if err := d.sys.Setresuid(int(id.UID), int(id.UID), int(id.UID)); err != nil {
		return fmt.Errorf("%w: setresuid(%d): %v", ErrPrivilegeDrop, id.UID, err)
	}

	if uid := d.sys.Getuid(); uid != int(id.UID) {
		return fmt.Errorf("%w: real uid is %d after drop, want %d", ErrPrivilegeDrop, uid, id.UID)
	}
	if euid := d.sys.Geteuid(); euid != int(id.UID) {
		return fmt.Errorf("%w: effective uid is %d after drop, want %d", ErrPrivilegeDrop, euid, id.UID)
	}

	if err := exportIdentity(id); err != nil {
		return err
	}

	slog.Debug("dropped privileges", "uid", id.UID, "gid", id.GID, "user", id.Username)
	return nil
}

// Points HOME, USER, and LOGNAME at the target identity.
func exportIdentity(id Identity) error {
	for _, kv := range [][2]string{
		{"HOME", id.Home},
		{"USER", id.Username},
		{"LOGNAME", id.Username},
	} {
		if err := os.Setenv(kv[0], kv[1]); err != nil {
			return fmt.Errorf("%w: setting %s: %v", ErrPrivilegeDrop, kv[0], err)
		}
	}
	return nil
}
