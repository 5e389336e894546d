package logins

import (
	"errors"

	"github.com/nimbus-logins/core/fixup"
	"github.com/nimbus-logins/core/interrupt"
)

// Stable error label strings for conflict/not-found/precondition
// failures that are not field-validation errors (those carry their own
// Label() via *fixup.InvalidLoginError). See spec.md §6.3.
const (
	LabelDuplicateGuid = "DuplicateGuid"
	LabelNoSuchRecord  = "NoSuchRecord"
	LabelNonEmptyTable = "NonEmptyTable"
	LabelInterrupted   = "Interrupted"
)

// ErrDuplicateGuid is returned by Add when a row with the supplied guid
// already exists (detected by INSERT OR IGNORE affecting zero rows).
var ErrDuplicateGuid = errors.New("a record with this guid already exists")

// ErrNoSuchRecord is returned by operations that require an existing
// overlay or mirror row (Update, Touch) when the guid is visible in
// neither table.
var ErrNoSuchRecord = errors.New("no record exists for this guid")

// ErrNonEmptyTable is returned by ImportMultiple when either loginsL or
// loginsM already holds rows; import is all-or-nothing at the table
// level.
var ErrNonEmptyTable = errors.New("import requires an empty login store")

// Label maps any error this package or fixup can return to its stable
// classifier string, for use in logs and metrics. Unrecognised errors
// return "".
func Label(err error) string {
	var invalid *fixup.InvalidLoginError
	switch {
	case errors.As(err, &invalid):
		return invalid.Label()
	case errors.Is(err, ErrDuplicateGuid):
		return LabelDuplicateGuid
	case errors.Is(err, ErrNoSuchRecord):
		return LabelNoSuchRecord
	case errors.Is(err, ErrNonEmptyTable):
		return LabelNonEmptyTable
	case errors.Is(err, interrupt.ErrInterrupted):
		return LabelInterrupted
	default:
		return ""
	}
}
