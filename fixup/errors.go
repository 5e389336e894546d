package fixup

// Kind enumerates the stable error classifiers from the error-label
// vocabulary. These strings are load-bearing: they are recorded in
// bulk-import metrics and logs, and must never change without a
// migration of downstream consumers.
type Kind string

const (
	EmptyOrigin             Kind = "InvalidLogin::EmptyOrigin"
	EmptyPassword           Kind = "InvalidLogin::EmptyPassword"
	DuplicateLogin          Kind = "InvalidLogin::DuplicateLogin"
	BothTargets             Kind = "InvalidLogin::BothTargets"
	NoTarget                Kind = "InvalidLogin::NoTarget"
	IllegalFieldValue       Kind = "InvalidLogin::IllegalFieldValue"
	InvalidOrigin           Kind = "InvalidLogin::InvalidOrigin"
	InvalidFormActionOrigin Kind = "InvalidLogin::InvalidFormActionOrigin"
)

// InvalidLoginError is returned whenever caller-supplied login data
// fails validation. Kind is the stable label; Reason is a free-form,
// human-readable detail that must never be used for metrics
// aggregation (only Kind is stable across releases).
type InvalidLoginError struct {
	Kind   Kind
	Reason string
}

func (e *InvalidLoginError) Error() string {
	return "invalid login: " + string(e.Kind) + ": " + e.Reason
}

// Label returns the stable classifier string recorded in metrics, as
// opposed to Error()'s free-form message.
func (e *InvalidLoginError) Label() string {
	return string(e.Kind)
}
