package identity

import (
	"fmt"
	"log/slog"

	"github.com/moby/sys/user"
)

// Ensures the user and group databases contain entries matching the request.
//
// The group is provisioned first so the user entry can reference its gid.
// Pre-existing entries that match the request exactly are reused, making
// provisioning idempotent. Any collision with different attributes is a
// configuration conflict: the database is left untouched and [ErrConflict]
// is returned.
func Provision(store *Store, req Request) error {
	if err := req.Validate(); err != nil {
		return err
	}
	if err := provisionGroup(store, req); err != nil {
		return err
	}
	return provisionUser(store, req)
}

// Ensures a group entry for the requested gid.
func provisionGroup(store *Store, req Request) error {
	existing, err := store.LookupGID(req.GID)
	if err != nil {
		return err
	}
	if existing != nil {
		if existing.Name != req.Groupname {
			return fmt.Errorf("%w: gid %d exists as group %q, requested %q",
				ErrConflict, req.GID, existing.Name, req.Groupname)
		}
		slog.Debug("group already present", "gid", req.GID, "name", existing.Name)
		return nil
	}

	// The gid is free, but the name must be too. Appending a second group
	// under an existing name would shadow the base image's entry.
	byName, err := store.LookupGroupname(req.Groupname)
	if err != nil {
		return err
	}
	if byName != nil {
		return fmt.Errorf("%w: group %q exists with gid %d, requested gid %d",
			ErrConflict, req.Groupname, byName.Gid, req.GID)
	}

	slog.Debug("creating group", "gid", req.GID, "name", req.Groupname)
	return store.AppendGroup(user.Group{
		Name: req.Groupname,
		Gid:  int(req.GID),
	})
}

// Ensures a passwd entry for the requested uid.
func provisionUser(store *Store, req Request) error {
	existing, err := store.LookupUID(req.UID)
	if err != nil {
		return err
	}
	if existing != nil {
		if existing.Name != req.Username {
			return fmt.Errorf("%w: uid %d exists as user %q, requested %q",
				ErrConflict, req.UID, existing.Name, req.Username)
		}
		if existing.Gid != int(req.GID) {
			return fmt.Errorf("%w: user %q has gid %d, requested gid %d",
				ErrConflict, req.Username, existing.Gid, req.GID)
		}
		if existing.Home != req.Home {
			return fmt.Errorf("%w: user %q has home %q, requested %q",
				ErrConflict, req.Username, existing.Home, req.Home)
		}
		slog.Debug("user already present", "uid", req.UID, "name", existing.Name)
		return nil
	}

	byName, err := store.LookupUsername(req.Username)
	if err != nil {
		return err
	}
	if byName != nil {
		return fmt.Errorf("%w: user %q exists with uid %d, requested uid %d",
			ErrConflict, req.Username, byName.Uid, req.UID)
	}

	slog.Debug("creating user", "uid", req.UID, "name", req.Username, "home", req.Home)
	return store.AppendUser(user.User{
		Name:  req.Username,
		Uid:   int(req.UID),
		Gid:   int(req.GID),
		Gecos: "caisson user",
		Home:  req.Home,
		Shell: defaultShell,
	})
}
