// Package logins implements the local login store: CRUD, duplicate
// detection, bulk import, wipe, and the overlay/mirror state machine
// described by the data model. It is grounded on the teacher's
// appview/db package (bare functions over an Execer, hand-written SQL,
// %w-wrapped errors) generalised to the mirror/overlay schema a sync
// engine needs.
package logins

import (
	"github.com/nimbus-logins/core/fixup"
)

// SyncStatus tracks how a local overlay row relates to the last
// server-confirmed state. It only ever increases under local mutation
// (New stays New; Synced can become Changed) until the external sync
// engine collapses the row into the mirror.
type SyncStatus int

const (
	SyncStatusSynced SyncStatus = iota
	SyncStatusChanged
	SyncStatusNew
)

// Login is the logical credential record. Field-level encryption of
// Username/Password is a concern of the layer above; the store treats
// them as opaque text.
type Login struct {
	Guid          string
	Hostname      string
	HTTPRealm     string
	FormSubmitURL string

	Username      string
	Password      string
	UsernameField string
	PasswordField string

	TimeCreated         int64
	TimeLastUsed        int64
	TimePasswordChanged int64
	TimesUsed           int64
}

func (l Login) toFixup() fixup.Login {
	return fixup.Login{
		Guid:                l.Guid,
		Hostname:            l.Hostname,
		HTTPRealm:           l.HTTPRealm,
		FormSubmitURL:       l.FormSubmitURL,
		UsernameField:       l.UsernameField,
		PasswordField:       l.PasswordField,
		Username:            l.Username,
		Password:            l.Password,
		TimeCreated:         l.TimeCreated,
		TimeLastUsed:        l.TimeLastUsed,
		TimePasswordChanged: l.TimePasswordChanged,
		TimesUsed:           l.TimesUsed,
	}
}

func fromFixup(f fixup.Login) Login {
	return Login{
		Guid:                f.Guid,
		Hostname:            f.Hostname,
		HTTPRealm:           f.HTTPRealm,
		FormSubmitURL:       f.FormSubmitURL,
		UsernameField:       f.UsernameField,
		PasswordField:       f.PasswordField,
		Username:            f.Username,
		Password:            f.Password,
		TimeCreated:         f.TimeCreated,
		TimeLastUsed:        f.TimeLastUsed,
		TimePasswordChanged: f.TimePasswordChanged,
		TimesUsed:           f.TimesUsed,
	}
}

// Fixup runs the login through the normaliser, returning the
// canonicalised record.
func Fixup(l Login) (Login, error) {
	f, err := fixup.Fixup(l.toFixup())
	if err != nil {
		return Login{}, err
	}
	return fromFixup(f), nil
}

// CheckValid runs the field-level validation rules.
func CheckValid(l Login) error {
	return fixup.CheckValid(l.toFixup())
}
