package batch

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// Record is the metadata of one flushed physical batch. Records feed the
// per-scope lifecycle hook's aggregate statistics.
type Record struct {
	ID       string
	Scope    string
	Calls    int
	Duration time.Duration
	Err      error
}

func newRecordID() string {
	return ulid.Make().String()
}
