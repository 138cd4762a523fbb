package entrypoint

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cruciblehq/caisson/internal/identity"
)

// Environment contract between the caisson CLI (producer) and caisson-init
// (consumer). These names are stable; the CLI sets them before the container
// starts.
// The CAISSON_INIT_ prefix is stripped from the build command's environment
// wholesale, which is why user-facing variables like CAISSON_ROOT live
// outside it.
const (
	EnvUID      = "CAISSON_INIT_UID"       // Numeric uid to run the build as.
	EnvGID      = "CAISSON_INIT_GID"       // Numeric gid to run the build as.
	EnvUser     = "CAISSON_INIT_USER"      // Username to provision for the uid.
	EnvGroup    = "CAISSON_INIT_GROUP"     // Groupname to provision for the gid.
	EnvHome     = "CAISSON_INIT_HOME"      // Home directory; defaults to /home/<user>.
	EnvUmask    = "CAISSON_INIT_UMASK"     // Octal umask for the build command.
	EnvVerbose  = "CAISSON_INIT_VERBOSE"   // Non-empty enables debug output.
	EnvHookRoot = "CAISSON_INIT_HOOK_ROOT" // Script to run as root before the drop.
	EnvHookUser = "CAISSON_INIT_HOOK_USER" // Script to run as the user before the command.
)

// Internal marker distinguishing the re-exec'd child stage from PID 1.
// Never set by the CLI.
const envStage = "CAISSON_INIT_STAGE"

// Value of the stage marker in the child stage.
const stageChild = "child"

// Prefix shared by all contract variables; removed from the build command's
// environment.
const envPrefix = "CAISSON_INIT_"

// Builds the identity request from the environment.
//
// Returns nil when neither uid nor gid is set: the caller asked for root
// mode and no provisioning or privilege drop takes place. Setting only one
// of the pair is an error, as is omitting the user or group name when the
// numeric ids are present.
func requestFromEnv(lookup func(string) (string, bool)) (*identity.Request, error) {
	rawUID, haveUID := lookup(EnvUID)
	rawGID, haveGID := lookup(EnvGID)

	if !haveUID && !haveGID {
		return nil, nil
	}
	if haveUID != haveGID {
		return nil, fmt.Errorf("%w: %s and %s must be set together", identity.ErrRequest, EnvUID, EnvGID)
	}

	uid, err := parseID(EnvUID, rawUID)
	if err != nil {
		return nil, err
	}
	gid, err := parseID(EnvGID, rawGID)
	if err != nil {
		return nil, err
	}

	username, ok := lookup(EnvUser)
	if !ok || username == "" {
		return nil, fmt.Errorf("%w: %s is required when %s is set", identity.ErrRequest, EnvUser, EnvUID)
	}
	groupname, ok := lookup(EnvGroup)
	if !ok || groupname == "" {
		return nil, fmt.Errorf("%w: %s is required when %s is set", identity.ErrRequest, EnvGroup, EnvGID)
	}

	home, ok := lookup(EnvHome)
	if !ok || home == "" {
		home = "/home/" + username
	}

	req := identity.Request{
		UID:       uid,
		GID:       gid,
		Username:  username,
		Groupname: groupname,
		Home:      home,
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return &req, nil
}

// Parses a decimal id that must fit in 32 bits.
func parseID(name, value string) (uint32, error) {
	id, err := strconv.ParseUint(value, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not a valid id", identity.ErrRequest, name, value)
	}
	return uint32(id), nil
}

// Parses the requested umask. Returns ok=false when the variable is unset.
func umaskFromEnv(lookup func(string) (string, bool)) (int, bool, error) {
	raw, ok := lookup(EnvUmask)
	if !ok {
		return 0, false, nil
	}
	mask, err := strconv.ParseUint(raw, 8, 16)
	if err != nil || mask > 0777 {
		return 0, false, fmt.Errorf("%w: %s=%q is not a valid octal umask", identity.ErrRequest, EnvUmask, raw)
	}
	return int(mask), true, nil
}

// Removes all contract variables from an environment slice.
//
// The build command must not observe the CAISSON_INIT_* variables; they are an
// implementation detail of the CLI-to-init handoff.
func stripEnviron(environ []string) []string {
	kept := make([]string, 0, len(environ))
	for _, entry := range environ {
		if strings.HasPrefix(entry, envPrefix) {
			continue
		}
		kept = append(kept, entry)
	}
	return kept
}
