package identity

import (
	"fmt"
	"path/filepath"
	"strings"
)

// A requested container identity.
//
// Supplied once at process start through the environment set by the outer
// CLI, and immutable for the process lifetime.
type Request struct {
	UID       uint32 // Numeric user id of the host user.
	GID       uint32 // Numeric group id of the host user's primary group.
	Username  string // Login name to provision for UID.
	Groupname string // Group name to provision for GID.
	Home      string // Absolute path of the user's home directory.
}

// Validates the request fields.
//
// Names must be non-empty and free of characters that would corrupt the
// colon-delimited database format. The home directory must be absolute.
func (r Request) Validate() error {
	if err := validName(r.Username); err != nil {
		return fmt.Errorf("%w: username: %v", ErrRequest, err)
	}
	if err := validName(r.Groupname); err != nil {
		return fmt.Errorf("%w: groupname: %v", ErrRequest, err)
	}
	if !filepath.IsAbs(r.Home) {
		return fmt.Errorf("%w: home %q is not absolute", ErrRequest, r.Home)
	}
	return nil
}

// Rejects names that are empty or contain database delimiters.
func validName(name string) error {
	if name == "" {
		return fmt.Errorf("empty name")
	}
	if strings.ContainsAny(name, ":\n") {
		return fmt.Errorf("name %q contains a delimiter character", name)
	}
	return nil
}
