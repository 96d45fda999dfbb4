package data

import "errors"

// ErrNilDB is returned when a repository is constructed without a database handle.
var ErrNilDB = errors.New("database handle is required")
