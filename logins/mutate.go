package logins

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

func nowMS() int64 {
	return time.Now().UnixMilli()
}

// Add validates and fixes up login, assigns it a guid if it doesn't
// have one, and inserts it into the overlay as a brand-new record
// (sync_status = New). It fails with ErrDuplicateGuid if the guid is
// already taken and with a *fixup.InvalidLoginError if the record (or
// an existing visible record with the same target) makes it invalid.
func (s *Store) Add(login Login) (Login, error) {
	fixed, err := Fixup(login)
	if err != nil {
		return Login{}, err
	}
	if fixed.Guid == "" {
		fixed.Guid = uuid.NewString()
	}

	if err := s.CheckValidWithNoDupes(fixed, ""); err != nil {
		return Login{}, err
	}

	now := nowMS()
	fixed.TimeCreated = now
	fixed.TimeLastUsed = now
	fixed.TimePasswordChanged = now
	fixed.TimesUsed = 0

	res, err := s.db.Exec(`
		insert or ignore into loginsL (
			guid, hostname, httpRealm, formSubmitURL, usernameField,
			passwordField, timesUsed, username, password, timeCreated,
			timeLastUsed, timePasswordChanged, local_modified, is_deleted,
			sync_status
		) values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?)`,
		fixed.Guid, fixed.Hostname, nullable(fixed.HTTPRealm), nullable(fixed.FormSubmitURL),
		fixed.UsernameField, fixed.PasswordField, fixed.TimesUsed, fixed.Username,
		fixed.Password, fixed.TimeCreated, fixed.TimeLastUsed, fixed.TimePasswordChanged,
		now, SyncStatusNew)
	if err != nil {
		return Login{}, fmt.Errorf("logins: add: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Login{}, fmt.Errorf("logins: add: %w", err)
	}
	if n == 0 {
		return Login{}, ErrDuplicateGuid
	}
	return fixed, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Update validates and fixes up login, then overwrites the visible
// record sharing its guid. If only a mirror row exists, it is first
// cloned into the overlay (ensureLocalOverlayExists) and the mirror row
// is marked overridden, so the mirror itself is never mutated directly
// and never shows up alongside the overlay it was cloned from. Returns
// ErrNoSuchRecord if guid is not visible.
func (s *Store) Update(login Login) (Login, error) {
	fixed, err := Fixup(login)
	if err != nil {
		return Login{}, err
	}
	if fixed.Guid == "" {
		return Login{}, ErrNoSuchRecord
	}
	if err := s.CheckValidWithNoDupes(fixed, fixed.Guid); err != nil {
		return Login{}, err
	}

	if err := s.ensureLocalOverlayExists(fixed.Guid); err != nil {
		return Login{}, err
	}
	if err := s.markMirrorOverridden(fixed.Guid); err != nil {
		return Login{}, err
	}

	existing, ok, err := s.GetByID(fixed.Guid)
	if err != nil {
		return Login{}, err
	}
	if !ok {
		return Login{}, ErrNoSuchRecord
	}
	fixed.TimeCreated = existing.TimeCreated
	fixed.TimesUsed = existing.TimesUsed + 1
	fixed.TimeLastUsed = existing.TimeLastUsed
	if fixed.Password == existing.Password {
		fixed.TimePasswordChanged = existing.TimePasswordChanged
	} else {
		fixed.TimePasswordChanged = nowMS()
	}

	now := nowMS()
	_, err = s.db.Exec(`
		update loginsL set
			hostname = ?, httpRealm = ?, formSubmitURL = ?, usernameField = ?,
			passwordField = ?, username = ?, password = ?,
			timesUsed = timesUsed + 1, timePasswordChanged = ?, local_modified = ?,
			sync_status = max(sync_status, ?)
		where guid = ? and is_deleted = 0`,
		fixed.Hostname, nullable(fixed.HTTPRealm), nullable(fixed.FormSubmitURL),
		fixed.UsernameField, fixed.PasswordField, fixed.Username, fixed.Password,
		fixed.TimePasswordChanged, now, SyncStatusChanged, fixed.Guid)
	if err != nil {
		return Login{}, fmt.Errorf("logins: update: %w", err)
	}
	return fixed, nil
}

// Touch records a successful use of guid: bumps timesUsed and
// timeLastUsed without otherwise changing sync_status, matching the
// original's deliberate choice that "a login was used" is not itself a
// record change worth re-uploading early. As in the original, using a
// mirror-backed record clones it into the overlay and marks the
// mirror row overridden, even though no field actually diverged yet.
func (s *Store) Touch(guid string) error {
	if err := s.ensureLocalOverlayExists(guid); err != nil {
		return err
	}
	if err := s.markMirrorOverridden(guid); err != nil {
		return err
	}
	now := nowMS()
	res, err := s.db.Exec(`
		update loginsL set timesUsed = timesUsed + 1, timeLastUsed = ?,
			local_modified = ?
		where guid = ? and is_deleted = 0`,
		now, now, guid)
	if err != nil {
		return fmt.Errorf("logins: touch: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("logins: touch: %w", err)
	}
	if n == 0 {
		return ErrNoSuchRecord
	}
	return nil
}

// Delete tombstones guid: any existing overlay row has its sensitive
// fields cleared and is_deleted set, any mirror row is marked
// overridden, and if no overlay row existed yet but a mirror one did,
// a fresh tombstone is inserted so the deletion itself can still be
// synced. Returns whether the record was visible before the call.
func (s *Store) Delete(guid string) (bool, error) {
	existed, err := s.Exists(guid)
	if err != nil {
		return false, err
	}

	now := nowMS()
	if _, err := s.db.Exec(`
		update loginsL set
			local_modified = ?, sync_status = ?, is_deleted = 1,
			password = '', hostname = '', username = ''
		where guid = ?`,
		now, SyncStatusChanged, guid); err != nil {
		return false, fmt.Errorf("logins: delete: tombstone overlay: %w", err)
	}

	if err := s.markMirrorOverridden(guid); err != nil {
		return false, err
	}

	if _, err := s.db.Exec(`
		insert or ignore into loginsL (
			guid, local_modified, is_deleted, sync_status, hostname,
			timeCreated, timePasswordChanged, password, username
		)
		select guid, ?, 1, ?, '', timeCreated, ?, '', ''
		from loginsM where guid = ?`,
		now, SyncStatusChanged, now, guid); err != nil {
		return false, fmt.Errorf("logins: delete: insert tombstone from mirror: %w", err)
	}

	return existed, nil
}

// ensureLocalOverlayExists clones a visible mirror row into the
// overlay if no overlay row for guid exists yet, so that callers
// mutating a record always write to loginsL. It is a no-op if an
// overlay row already exists (deleted or not — the caller decides how
// to treat that), and returns ErrNoSuchRecord if there is no overlay
// row and no un-overridden mirror row to clone.
func (s *Store) ensureLocalOverlayExists(guid string) error {
	var overlayExists bool
	if err := s.db.QueryRow(`select exists(select 1 from loginsL where guid = ?)`, guid).Scan(&overlayExists); err != nil {
		return fmt.Errorf("logins: ensure overlay: %w", err)
	}
	if overlayExists {
		return nil
	}
	return s.cloneMirrorToOverlay(guid)
}

func (s *Store) cloneMirrorToOverlay(guid string) error {
	row := s.db.QueryRow(fmt.Sprintf(
		`select %s from loginsM where guid = ? and is_overridden = 0`, selectCols), guid)
	l, err := scanLogin(row)
	if err == sql.ErrNoRows {
		return ErrNoSuchRecord
	}
	if err != nil {
		return fmt.Errorf("logins: clone mirror: %w", err)
	}

	now := nowMS()
	_, err = s.db.Exec(`
		insert into loginsL (
			guid, hostname, httpRealm, formSubmitURL, usernameField,
			passwordField, timesUsed, username, password, timeCreated,
			timeLastUsed, timePasswordChanged, local_modified, is_deleted,
			sync_status
		) values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?)`,
		l.Guid, l.Hostname, nullable(l.HTTPRealm), nullable(l.FormSubmitURL),
		l.UsernameField, l.PasswordField, l.TimesUsed, l.Username, l.Password,
		l.TimeCreated, l.TimeLastUsed, l.TimePasswordChanged, now, SyncStatusSynced)
	if err != nil {
		return fmt.Errorf("logins: clone mirror: %w", err)
	}
	return nil
}

func (s *Store) markMirrorOverridden(guid string) error {
	_, err := s.db.Exec(`update loginsM set is_overridden = 1 where guid = ?`, guid)
	if err != nil {
		return fmt.Errorf("logins: mark mirror overridden: %w", err)
	}
	return nil
}

// Wipe tombstones every overlay row, marks every mirror row
// overridden, and inserts a fresh tombstone for any mirror-only guid
// that had no overlay row yet — the same three steps Delete performs
// for a single guid, applied to the whole visible set in one
// transaction. It polls the store's interrupt handle between each
// step so a caller invoking Interrupt from another goroutine can abort
// a wipe of a very large table partway through.
func (s *Store) Wipe() error {
	ctx := context.Background()
	if s.interruptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.interruptTimeout)
		defer cancel()
	}
	scope := s.handle.NewScope(ctx)
	defer scope.Close()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("logins: wipe: %w", err)
	}
	defer tx.Rollback()

	now := nowMS()

	if err := scope.ErrIfInterrupted(); err != nil {
		return err
	}
	if _, err := tx.Exec(`
		update loginsL set
			local_modified = ?, sync_status = ?, is_deleted = 1,
			password = '', hostname = '', username = ''
		where is_deleted = 0`,
		now, SyncStatusChanged); err != nil {
		return fmt.Errorf("logins: wipe: tombstone overlay rows: %w", err)
	}

	if err := scope.ErrIfInterrupted(); err != nil {
		return err
	}
	if _, err := tx.Exec(`update loginsM set is_overridden = 1`); err != nil {
		return fmt.Errorf("logins: wipe: mark mirror overridden: %w", err)
	}

	if err := scope.ErrIfInterrupted(); err != nil {
		return err
	}
	if _, err := tx.Exec(`
		insert or ignore into loginsL (
			guid, local_modified, is_deleted, sync_status, hostname,
			timeCreated, timePasswordChanged, password, username
		)
		select guid, ?, 1, ?, '', timeCreated, ?, '', ''
		from loginsM`,
		now, SyncStatusChanged, now); err != nil {
		return fmt.Errorf("logins: wipe: insert tombstones from mirror: %w", err)
	}

	if err := scope.ErrIfInterrupted(); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("logins: wipe: commit: %w", err)
	}
	return nil
}

// WipeLocal discards all state outright: every overlay row, every
// mirror row, and every sync bookkeeping entry. Unlike Wipe it
// generates no tombstones, since there is nothing left to sync once
// it returns.
func (s *Store) WipeLocal() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("logins: wipe local: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"loginsL", "loginsM", "loginsSyncMeta"} {
		if _, err := tx.Exec("delete from " + table); err != nil {
			return fmt.Errorf("logins: wipe local: %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("logins: wipe local: %w", err)
	}
	return nil
}
