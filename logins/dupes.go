package logins

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/nimbus-logins/core/fixup"
)

// dupeExistsSQL finds a visible row, other than excludeGuid, that
// shares login's hostname, has the same (possibly-empty) username,
// and matches on at least one of formSubmitURL or httpRealm. NULLIF
// folds an empty username to NULL so two empty-username rows compare
// equal the way two explicit NULLs would.
const dupeExistsSQL = `
	SELECT EXISTS(
		SELECT 1 FROM loginsL
		WHERE is_deleted = 0
			AND guid <> ?
			AND hostname = ?
			AND NULLIF(username, '') IS NULLIF(?, '')
			AND (formSubmitURL IS ? OR httpRealm IS ?)

		UNION ALL

		SELECT 1 FROM loginsM
		WHERE is_overridden = 0
			AND guid <> ?
			AND hostname = ?
			AND NULLIF(username, '') IS NULLIF(?, '')
			AND (formSubmitURL IS ? OR httpRealm IS ?)
	)`

// DupeExists reports whether a visible record other than the one
// identified by login.Guid already occupies the same hostname +
// username + (form_submit_url or http_realm) target.
func (s *Store) DupeExists(login Login) (bool, error) {
	var exists bool
	err := s.db.QueryRow(dupeExistsSQL,
		login.Guid, login.Hostname, login.Username, login.FormSubmitURL, login.HTTPRealm,
		login.Guid, login.Hostname, login.Username, login.FormSubmitURL, login.HTTPRealm,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("logins: dupe exists: %w", err)
	}
	return exists, nil
}

// CheckForDupes returns a *fixup.InvalidLoginError with Kind
// DuplicateLogin if DupeExists(login) is true.
func (s *Store) CheckForDupes(login Login) error {
	exists, err := s.DupeExists(login)
	if err != nil {
		return err
	}
	if exists {
		return &fixup.InvalidLoginError{Kind: fixup.DuplicateLogin, Reason: "a visible record already occupies this hostname/username/target"}
	}
	return nil
}

// CheckValidWithNoDupes runs field-level validation followed by
// duplicate detection, excluding the record identified by excludeGuid
// (pass "" when checking a brand-new record with no guid of its own
// yet) from the duplicate search so updating a record in place never
// flags itself as a dupe of itself.
func (s *Store) CheckValidWithNoDupes(login Login, excludeGuid string) error {
	if err := CheckValid(login); err != nil {
		return err
	}
	probe := login
	probe.Guid = excludeGuid
	return s.CheckForDupes(probe)
}

// FixupAndCheckForDupes normalises login and then checks it for
// duplicates against the rest of the visible set.
func (s *Store) FixupAndCheckForDupes(login Login) (Login, error) {
	fixed, err := Fixup(login)
	if err != nil {
		return Login{}, err
	}
	if err := s.CheckForDupes(fixed); err != nil {
		return Login{}, err
	}
	return fixed, nil
}

const potentialDupesIgnoringUsernameSQL = `
	SELECT ` + selectCols + ` FROM loginsL
	WHERE is_deleted = 0
		AND hostname = ?
		AND (formSubmitURL IS ? OR httpRealm IS ?)

	UNION ALL

	SELECT ` + selectCols + ` FROM loginsM
	WHERE is_overridden = 0
		AND hostname = ?
		AND (formSubmitURL IS ? OR httpRealm IS ?)`

// PotentialDupesIgnoringUsername returns every visible record sharing
// login's hostname and target (formSubmitURL or httpRealm), regardless
// of username. It is used by the out-of-scope sync engine to locate a
// local candidate to reconcile an incoming server record against
// before falling back to inserting a brand-new mirror row.
func (s *Store) PotentialDupesIgnoringUsername(login Login) ([]Login, error) {
	rows, err := s.db.Query(potentialDupesIgnoringUsernameSQL,
		login.Hostname, login.FormSubmitURL, login.HTTPRealm,
		login.Hostname, login.FormSubmitURL, login.HTTPRealm,
	)
	if err != nil {
		return nil, fmt.Errorf("logins: potential dupes ignoring username: %w", err)
	}
	defer rows.Close()

	var out []Login
	for rows.Next() {
		l, err := scanLogin(rows)
		if err != nil {
			return nil, fmt.Errorf("logins: potential dupes ignoring username: scan: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("logins: potential dupes ignoring username: %w", err)
	}
	return out, nil
}

const findDupeSQL = `
	SELECT ` + selectCols + `
	FROM loginsL
	WHERE hostname IS ?
		AND httpRealm IS ?
		AND username IS ?
		AND formSubmitURL IS ?`

// FindDupe looks for a single overlay row matching login's hostname,
// http realm, username and form submit URL exactly (unlike DupeExists,
// it requires the form target itself to match rather than accepting
// either target). It is used by the sync engine to locate a pending
// local record describing the same logical login as an incoming
// server one. Returns ok=false if none is found.
func (s *Store) FindDupe(login Login) (found Login, ok bool, err error) {
	row := s.db.QueryRow(findDupeSQL, login.Hostname, nullable(login.HTTPRealm), login.Username, nullable(login.FormSubmitURL))
	found, err = scanLogin(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Login{}, false, nil
	}
	if err != nil {
		return Login{}, false, fmt.Errorf("logins: find dupe: %w", err)
	}
	return found, true, nil
}
