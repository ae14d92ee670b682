package baseline

import "errors"

// ErrNotFound indicates the named baseline does not exist or its persisted
// record cannot be parsed.
var ErrNotFound = errors.New("baseline not found")

// ErrStorage indicates the persistence medium is unwritable or corrupt.
var ErrStorage = errors.New("baseline storage error")
