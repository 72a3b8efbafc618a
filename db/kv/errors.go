package kv

import "github.com/pkg/errors"

// ErrBlockNotFound is returned when a lookup root/slot has no
// associated block in the database.
var ErrBlockNotFound = errors.New("db: block not found")

// ErrStateNotFound is returned when a lookup root has no associated
// state in the database.
var ErrStateNotFound = errors.New("db: state not found")

// ErrCanonicalHeadNotFound is returned before the first call to
// SaveHeadBlockRoot has ever completed against this database.
var ErrCanonicalHeadNotFound = errors.New("db: canonical head not found")
