package privdrop

import "errors"

var ErrPrivilegeDrop = errors.New("privilege drop failed")
