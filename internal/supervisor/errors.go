package supervisor

import "errors"

var ErrFork = errors.New("starting primary child failed")
