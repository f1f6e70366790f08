// Package repository persists the client's session material.  A KV backend
// (file, Redis, MySQL or memory) stores independent string entries and the
// TokenRepo layers the token/refresh/user entries of a session on top.
package repository

import "errors"

// ErrNotFound is returned by KV.Get when the entry does not exist.  Callers
// treat it as "absent", never as a failure.
var ErrNotFound = errors.New("entry not found")
