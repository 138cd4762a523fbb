package identity

import (
	"fmt"
	"os"
	"strings"

	"github.com/moby/sys/user"
)

// Default locations of the container's user and group databases.
const (
	defaultPasswdPath = "/etc/passwd"
	defaultGroupPath  = "/etc/group"
)

// Login shell written for provisioned users.
const defaultShell = "/bin/sh"

// Read-then-append access to the passwd and group files.
//
// The store is the only code that touches the database files, so the on-disk
// format can be swapped (e.g., for temporary files in tests) without touching
// callers. The files are mutated once, by a single process, before any child
// exists; no locking is needed.
type Store struct {
	PasswdPath string // Path to the passwd file.
	GroupPath  string // Path to the group file.
}

// Returns a store over the standard /etc database files.
func DefaultStore() *Store {
	return &Store{
		PasswdPath: defaultPasswdPath,
		GroupPath:  defaultGroupPath,
	}
}

// Looks up a passwd entry by uid. Returns nil when no entry exists.
//
// A missing passwd file is treated as an empty database; minimal base images
// (e.g. scratch-derived) may not ship one.
func (s *Store) LookupUID(uid uint32) (*user.User, error) {
	return s.findUser(func(u user.User) bool { return u.Uid == int(uid) })
}

// Looks up a passwd entry by name. Returns nil when no entry exists.
func (s *Store) LookupUsername(name string) (*user.User, error) {
	return s.findUser(func(u user.User) bool { return u.Name == name })
}

// Looks up a group entry by gid. Returns nil when no entry exists.
func (s *Store) LookupGID(gid uint32) (*user.Group, error) {
	return s.findGroup(func(g user.Group) bool { return g.Gid == int(gid) })
}

// Looks up a group entry by name. Returns nil when no entry exists.
func (s *Store) LookupGroupname(name string) (*user.Group, error) {
	return s.findGroup(func(g user.Group) bool { return g.Name == name })
}

// Returns the gids of all groups listing the given user as a member.
//
// Used to establish supplementary group membership when the target user
// pre-exists in the base image.
func (s *Store) SupplementaryGIDs(username string) ([]uint32, error) {
	groups, err := user.ParseGroupFileFilter(s.GroupPath, func(g user.Group) bool {
		for _, member := range g.List {
			if member == username {
				return true
			}
		}
		return false
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: reading %s: %v", ErrProvision, s.GroupPath, err)
	}

	gids := make([]uint32, 0, len(groups))
	for _, g := range groups {
		gids = append(gids, uint32(g.Gid))
	}
	return gids, nil
}

// Appends a passwd entry.
func (s *Store) AppendUser(u user.User) error {
	line := fmt.Sprintf("%s:x:%d:%d:%s:%s:%s", u.Name, u.Uid, u.Gid, u.Gecos, u.Home, u.Shell)
	return s.appendLine(s.PasswdPath, line)
}

// Appends a group entry with no members.
func (s *Store) AppendGroup(g user.Group) error {
	line := fmt.Sprintf("%s:x:%d:%s", g.Name, g.Gid, strings.Join(g.List, ","))
	return s.appendLine(s.GroupPath, line)
}

func (s *Store) findUser(filter func(user.User) bool) (*user.User, error) {
	users, err := user.ParsePasswdFileFilter(s.PasswdPath, filter)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: reading %s: %v", ErrProvision, s.PasswdPath, err)
	}
	if len(users) == 0 {
		return nil, nil
	}
	return &users[0], nil
}

func (s *Store) findGroup(filter func(user.Group) bool) (*user.Group, error) {
	groups, err := user.ParseGroupFileFilter(s.GroupPath, filter)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: reading %s: %v", ErrProvision, s.GroupPath, err)
	}
	if len(groups) == 0 {
		return nil, nil
	}
	return &groups[0], nil
}

// Appends a single line to a database file, creating the file if absent.
//
// The write layer is discarded with the container, so there is no rollback;
// a failed open (typically a permission error when not running as root) is
// reported as [ErrProvision].
func (s *Store) appendLine(path, line string) error {
	fh, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("%w: opening %s for append: %v", ErrProvision, path, err)
	}

	if _, err := fh.WriteString(line + "\n"); err != nil {
		fh.Close()
		return fmt.Errorf("%w: writing %s: %v", ErrProvision, path, err)
	}
	if err := fh.Close(); err != nil {
		return fmt.Errorf("%w: writing %s: %v", ErrProvision, path, err)
	}
	return nil
}
