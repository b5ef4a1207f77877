package snapshot

import "errors"

// ErrRestore marks a stored snapshot that cannot be turned back into a
// session: corrupt JSON, missing structural fields, or state that fails
// aggregate validation. Callers treat it as "start fresh", never as fatal.
var ErrRestore = errors.New("snapshot restore failed")
