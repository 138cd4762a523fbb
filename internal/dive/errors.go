package dive

import "errors"

var (
	ErrDocker = errors.New("docker unavailable")
	ErrDive   = errors.New("dive setup failed")
)
