package logins

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nimbus-logins/core/fixup"
	"github.com/nimbus-logins/core/migration"
)

// ImportMultiple bulk-loads logins into an empty store in a single
// transaction, fixing up and dupe-checking each record before
// insertion and tolerating per-record failures. It requires both
// loginsL and loginsM to be empty (ErrNonEmptyTable otherwise) since a
// partially-populated store has no well-defined merge semantics for a
// one-shot import.
//
// A record's own guid is kept only if it looks like a valid sync
// guid; otherwise a fresh one is generated, mirroring the upstream
// behaviour of not trusting import-source guids to be globally unique.
func (s *Store) ImportMultiple(logins []Login) (migration.Metrics, error) {
	var numExisting int64
	if err := s.db.QueryRow(`
		select (select count(*) from loginsL) + (select count(*) from loginsM)
	`).Scan(&numExisting); err != nil {
		return migration.Metrics{}, fmt.Errorf("logins: import multiple: %w", err)
	}
	if numExisting > 0 {
		return migration.Metrics{}, ErrNonEmptyTable
	}

	tx, err := s.db.Begin()
	if err != nil {
		return migration.Metrics{}, fmt.Errorf("logins: import multiple: %w", err)
	}
	defer tx.Rollback()

	ctx := context.Background()
	if s.interruptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.interruptTimeout)
		defer cancel()
	}
	scope := s.handle.NewScope(ctx)
	defer scope.Close()

	importStart := importClock(time.Now())
	builder := migration.NewBuilder(len(logins))
	now := nowMS()

	for _, login := range logins {
		if err := scope.ErrIfInterrupted(); err != nil {
			return migration.Metrics{}, err
		}

		fixed := login
		f, changed, err := fixup.MaybeFixup(login.toFixup())
		if err == nil && changed {
			fixed = fromFixup(f)
		}
		if err == nil {
			err = s.checkForDupesTx(tx, fixed)
		}
		if err != nil {
			s.logger.Warn("skipping login during import", "guid", login.Guid, "error", err)
			builder.RecordFixupFailure(labelOrMessage(err))
			continue
		}
		builder.SetFixupPhaseDuration(importStart.elapsedMS())

		guid := fixed.Guid
		if !isValidSyncGuid(guid) {
			guid = uuid.NewString()
		}

		res, err := tx.Exec(`
			insert or ignore into loginsL (
				hostname, httpRealm, formSubmitURL, usernameField,
				passwordField, timesUsed, username, password, guid,
				timeCreated, timeLastUsed, timePasswordChanged,
				local_modified, is_deleted, sync_status
			) values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?)`,
			fixed.Hostname, nullable(fixed.HTTPRealm), nullable(fixed.FormSubmitURL),
			fixed.UsernameField, fixed.PasswordField, fixed.TimesUsed, fixed.Username,
			fixed.Password, guid, fixed.TimeCreated, fixed.TimeLastUsed,
			fixed.TimePasswordChanged, now, SyncStatusNew)
		if err != nil {
			s.logger.Warn("could not import login", "old_guid", login.Guid, "guid", guid, "error", err)
			builder.RecordInsertFailure(labelOrMessage(err))
			continue
		}
		if n, err := res.RowsAffected(); err != nil {
			s.logger.Warn("could not import login", "old_guid", login.Guid, "guid", guid, "error", err)
			builder.RecordInsertFailure(labelOrMessage(err))
			continue
		} else if n == 0 {
			s.logger.Warn("could not import login", "old_guid", login.Guid, "guid", guid, "error", ErrDuplicateGuid)
			builder.RecordInsertFailure(LabelDuplicateGuid)
			continue
		}
		s.logger.Info("imported login", "old_guid", login.Guid, "guid", guid)
	}

	if err := tx.Commit(); err != nil {
		return migration.Metrics{}, fmt.Errorf("logins: import multiple: commit: %w", err)
	}

	return builder.Finish(importStart.elapsedMS()), nil
}

// checkForDupesTx is CheckForDupes run against an in-flight
// transaction rather than the store's ambient *schema.DB, so import
// can see its own previously-inserted rows within the same
// transaction without committing between records.
func (s *Store) checkForDupesTx(tx Execer, login Login) error {
	var exists bool
	err := tx.QueryRow(dupeExistsSQL,
		login.Guid, login.Hostname, login.Username, login.FormSubmitURL, login.HTTPRealm,
		login.Guid, login.Hostname, login.Username, login.FormSubmitURL, login.HTTPRealm,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("logins: check for dupes: %w", err)
	}
	if exists {
		return &fixup.InvalidLoginError{Kind: fixup.DuplicateLogin, Reason: "a visible record already occupies this hostname/username/target"}
	}
	return nil
}

// labelOrMessage returns err's stable classifier label if it has one,
// falling back to its free-form message for errors with no stable
// label (e.g. a raw driver error), so the metrics errors vector is
// never silently empty for a record that did in fact fail.
func labelOrMessage(err error) string {
	if label := Label(err); label != "" {
		return label
	}
	return err.Error()
}

type importClock time.Time

func (c importClock) elapsedMS() int64 {
	return time.Since(time.Time(c)).Milliseconds()
}

// isValidSyncGuid reports whether guid looks like a sync server guid:
// a non-empty, reasonably short, printable-ASCII token. Real sync
// guids are 12 base64url characters, but import sources (older
// clients, other password managers) may hand us anything, so this
// check is deliberately loose — its only job is rejecting guids that
// are empty or absurd, not validating the sync wire format.
func isValidSyncGuid(guid string) bool {
	if guid == "" || len(guid) > 64 {
		return false
	}
	for _, r := range guid {
		if r < 0x21 || r > 0x7e {
			return false
		}
	}
	return true
}
