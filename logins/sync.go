package logins

import (
	"database/sql"
	"fmt"
)

// MirrorRow is an incoming server record as the (out-of-scope) sync
// engine receives it: a Login plus the server's own last-modified
// timestamp, used to populate loginsM.server_modified.
type MirrorRow struct {
	Login
	ServerModified int64
}

// PendingChange pairs a locally-modified overlay record with whether
// it is a tombstone, for the sync engine to decide how to upload it: a
// tombstone should be deleted server-side, anything else should be
// PUT.
type PendingChange struct {
	Login
	IsDeleted bool
}

// PendingChanges returns every overlay row the sync engine still
// needs to push: anything not at SyncStatusSynced, plus any
// tombstone regardless of status (a tombstone is always pending until
// pushed and reaped).
func (s *Store) PendingChanges() ([]PendingChange, error) {
	rows, err := s.db.Query(`
		select guid, hostname, httpRealm, formSubmitURL, usernameField,
			passwordField, timesUsed, username, password, timeCreated,
			timeLastUsed, timePasswordChanged, is_deleted
		from loginsL
		where sync_status <> 0 or is_deleted = 1`)
	if err != nil {
		return nil, fmt.Errorf("logins: pending changes: %w", err)
	}
	defer rows.Close()

	var out []PendingChange
	for rows.Next() {
		var l Login
		var httpRealm, formSubmitURL sql.NullString
		var isDeleted bool
		err := rows.Scan(
			&l.Guid, &l.Hostname, &httpRealm, &formSubmitURL,
			&l.UsernameField, &l.PasswordField, &l.TimesUsed,
			&l.Username, &l.Password, &l.TimeCreated, &l.TimeLastUsed,
			&l.TimePasswordChanged, &isDeleted,
		)
		if err != nil {
			return nil, fmt.Errorf("logins: pending changes: scan: %w", err)
		}
		l.HTTPRealm = httpRealm.String
		l.FormSubmitURL = formSubmitURL.String
		out = append(out, PendingChange{Login: l, IsDeleted: isDeleted})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("logins: pending changes: %w", err)
	}
	return out, nil
}

// PushSynced records that login was successfully uploaded and is now
// confirmed at serverModified: the overlay row collapses into the
// mirror and its sync_status resets to Synced. A tombstone reaching
// this state is fully reaped instead: both its overlay and mirror rows
// are deleted, since there is nothing left to mirror.
func (s *Store) PushSynced(login Login, serverModified int64) error {
	var isDeleted bool
	if err := s.db.QueryRow(`select is_deleted from loginsL where guid = ?`, login.Guid).Scan(&isDeleted); err != nil {
		return fmt.Errorf("logins: push synced: %w", err)
	}

	if isDeleted {
		if _, err := s.db.Exec(`delete from loginsL where guid = ?`, login.Guid); err != nil {
			return fmt.Errorf("logins: push synced: reap overlay tombstone: %w", err)
		}
		if _, err := s.db.Exec(`delete from loginsM where guid = ?`, login.Guid); err != nil {
			return fmt.Errorf("logins: push synced: reap mirror: %w", err)
		}
		return nil
	}

	if err := s.ApplyIncoming(MirrorRow{Login: login, ServerModified: serverModified}); err != nil {
		return err
	}
	if _, err := s.db.Exec(`update loginsL set sync_status = 0 where guid = ?`, login.Guid); err != nil {
		return fmt.Errorf("logins: push synced: reset overlay status: %w", err)
	}
	return nil
}

// ApplyIncoming writes a server-confirmed record into the mirror. If
// the overlay has no pending local changes for this guid
// (sync_status = Synced and not deleted), the overlay row is dropped
// so the mirror becomes the visible copy again; otherwise the overlay
// is left in place so the local edit continues to shadow the mirror
// until it, too, is pushed.
func (s *Store) ApplyIncoming(m MirrorRow) error {
	var overlaySyncStatus sql.NullInt64
	var overlayDeleted bool
	err := s.db.QueryRow(`select sync_status, is_deleted from loginsL where guid = ?`, m.Guid).
		Scan(&overlaySyncStatus, &overlayDeleted)
	overlayExists := err == nil
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("logins: apply incoming: %w", err)
	}

	// An overlay row that is fully synced and not a tombstone is stale
	// once the incoming mirror write lands: it carries nothing the
	// mirror doesn't already have, so it is dropped rather than kept
	// around shadowing the mirror.
	dropOverlay := overlayExists && !overlayDeleted && overlaySyncStatus.Int64 == int64(SyncStatusSynced)
	// The mirror stays overridden for as long as an overlay row remains
	// visible for this guid (pending edit or tombstone); it is only
	// un-overridden once no overlay row shadows it.
	isOverridden := 0
	if overlayExists && !dropOverlay {
		isOverridden = 1
	}

	if _, err := s.db.Exec(`
		insert into loginsM (
			guid, hostname, httpRealm, formSubmitURL, usernameField,
			passwordField, timesUsed, username, password, timeCreated,
			timeLastUsed, timePasswordChanged, server_modified, is_overridden
		) values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		on conflict(guid) do update set
			hostname = excluded.hostname, httpRealm = excluded.httpRealm,
			formSubmitURL = excluded.formSubmitURL,
			usernameField = excluded.usernameField,
			passwordField = excluded.passwordField,
			timesUsed = excluded.timesUsed, username = excluded.username,
			password = excluded.password, timeCreated = excluded.timeCreated,
			timeLastUsed = excluded.timeLastUsed,
			timePasswordChanged = excluded.timePasswordChanged,
			server_modified = excluded.server_modified,
			is_overridden = excluded.is_overridden`,
		m.Guid, m.Hostname, nullable(m.HTTPRealm), nullable(m.FormSubmitURL),
		m.UsernameField, m.PasswordField, m.TimesUsed, m.Username, m.Password,
		m.TimeCreated, m.TimeLastUsed, m.TimePasswordChanged, m.ServerModified, isOverridden); err != nil {
		return fmt.Errorf("logins: apply incoming: %w", err)
	}

	if dropOverlay {
		if _, err := s.db.Exec(`delete from loginsL where guid = ?`, m.Guid); err != nil {
			return fmt.Errorf("logins: apply incoming: drop stale overlay: %w", err)
		}
	}
	return nil
}
