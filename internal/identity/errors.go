package identity

import "errors"

var (
	ErrConflict  = errors.New("identity conflict")
	ErrProvision = errors.New("identity provisioning failed")
	ErrRequest   = errors.New("invalid identity request")
)
