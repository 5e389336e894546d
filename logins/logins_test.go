package logins_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimbus-logins/core/fixup"
	"github.com/nimbus-logins/core/interrupt"
	"github.com/nimbus-logins/core/logins"
	"github.com/nimbus-logins/core/schema"
)

func newTestStore(t *testing.T) *logins.Store {
	t.Helper()
	db, err := schema.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return logins.New(db)
}

func TestNoDupesVsDupes(t *testing.T) {
	s := newTestStore(t)

	added, err := s.Add(logins.Login{
		Hostname:      "https://www.example.com",
		FormSubmitURL: "https://www.example.com",
		Username:      "test",
		Password:      "test",
	})
	require.NoError(t, err)

	// Different target kind (http_realm vs form_submit_url) is not a dupe.
	err = s.CheckValidWithNoDupes(logins.Login{
		Hostname:  "https://www.example.com",
		HTTPRealm: "https://www.example.com",
		Username:  "test",
		Password:  "test",
	}, "")
	assert.NoError(t, err)

	// Same hostname, same target kind, same username, fresh guid: dupe.
	err = s.CheckValidWithNoDupes(logins.Login{
		Hostname:      "https://www.example.com",
		FormSubmitURL: "https://www.example.com",
		Username:      "test",
		Password:      "test2",
	}, "")
	var invalid *fixup.InvalidLoginError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, fixup.DuplicateLogin, invalid.Kind)

	// Re-checking the original record against itself (own guid excluded) is fine.
	err = s.CheckValidWithNoDupes(added, added.Guid)
	assert.NoError(t, err)
}

func TestIDNCanonicalisation(t *testing.T) {
	s := newTestStore(t)

	added, err := s.Add(logins.Login{
		Hostname:      "http://😍.com",
		FormSubmitURL: "http://😍.com",
		Username:      "😍",
		UsernameField: "😍",
		Password:      "😍",
		PasswordField: "😍",
	})
	require.NoError(t, err)

	got, ok, err := s.GetByID(added.Guid)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "http://xn--r28h.com", got.Hostname)
	assert.Equal(t, "http://xn--r28h.com", got.FormSubmitURL)
	assert.Equal(t, "😍", got.Username)
	assert.Equal(t, "😍", got.UsernameField)
	assert.Equal(t, "😍", got.Password)
	assert.Equal(t, "😍", got.PasswordField)
}

func TestBaseDomainLookup(t *testing.T) {
	s := newTestStore(t)

	wanted := []string{
		"https://example.com",
		"https://www.example.com",
		"http://sub.example.com:8080",
		"ftp://sub.example.com",
	}
	decoys := []string{
		"https://badexample.com",
		"https://example.co",
		"https://example.com.au",
	}
	for _, h := range append(append([]string{}, wanted...), decoys...) {
		_, err := s.Add(logins.Login{Hostname: h, HTTPRealm: h, Username: h, Password: "pw"})
		require.NoError(t, err)
	}

	got, err := s.GetByBaseDomain("example.com")
	require.NoError(t, err)
	var gotHosts []string
	for _, l := range got {
		gotHosts = append(gotHosts, l.Hostname)
	}
	assert.ElementsMatch(t, wanted, gotHosts)

	none, err := s.GetByBaseDomain("foo.com")
	require.NoError(t, err)
	assert.Empty(t, none)

	invalid, err := s.GetByBaseDomain("invalid query")
	require.NoError(t, err)
	assert.Empty(t, invalid)
}

func TestBaseDomainLookupIsCaseInsensitive(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Add(logins.Login{
		Hostname: "https://www.Example.com", HTTPRealm: "https://www.Example.com",
		Username: "u", Password: "pw",
	})
	require.NoError(t, err)

	got, err := s.GetByBaseDomain("EXAMPLE.com")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestIPv4AndIPv6ExactMatch(t *testing.T) {
	s := newTestStore(t)

	for _, h := range []string{"http://127.0.0.1", "https://127.0.0.1:8000", "https://127.0.0.0"} {
		_, err := s.Add(logins.Login{Hostname: h, HTTPRealm: h, Username: h, Password: "pw"})
		require.NoError(t, err)
	}
	got, err := s.GetByBaseDomain("127.0.0.1")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	none, err := s.GetByBaseDomain("127.0.0.2")
	require.NoError(t, err)
	assert.Empty(t, none)

	for _, h := range []string{"http://[::1]", "https://[::1]:8000"} {
		_, err := s.Add(logins.Login{Hostname: h, HTTPRealm: h, Username: h, Password: "pw"})
		require.NoError(t, err)
	}
	gotV6, err := s.GetByBaseDomain("[::1]")
	require.NoError(t, err)
	assert.Len(t, gotV6, 2)

	gotV6Long, err := s.GetByBaseDomain("[0:0:0:0:0:0:0:1]")
	require.NoError(t, err)
	assert.Len(t, gotV6Long, 2)
}

func TestDeleteProducesTombstone(t *testing.T) {
	s := newTestStore(t)

	added, err := s.Add(logins.Login{
		Hostname: "https://example.com", HTTPRealm: "https://example.com",
		Username: "u", Password: "p",
	})
	require.NoError(t, err)

	ok, err := s.Delete(added.Guid)
	require.NoError(t, err)
	assert.True(t, ok)

	exists, err := s.Exists(added.Guid)
	require.NoError(t, err)
	assert.False(t, exists)

	ok, err = s.Delete(added.Guid)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWipe(t *testing.T) {
	s := newTestStore(t)

	first, err := s.Add(logins.Login{Hostname: "https://a.example.com", HTTPRealm: "https://a.example.com", Username: "a", Password: "p"})
	require.NoError(t, err)
	second, err := s.Add(logins.Login{Hostname: "https://b.example.com", HTTPRealm: "https://b.example.com", Username: "b", Password: "p"})
	require.NoError(t, err)

	require.NoError(t, s.Wipe())

	all, err := s.GetAll()
	require.NoError(t, err)
	assert.Empty(t, all)

	exists1, err := s.Exists(first.Guid)
	require.NoError(t, err)
	assert.False(t, exists1)
	exists2, err := s.Exists(second.Guid)
	require.NoError(t, err)
	assert.False(t, exists2)
}

func TestUpdatePreservesPasswordChangedTimeWhenPasswordUnchanged(t *testing.T) {
	s := newTestStore(t)

	added, err := s.Add(logins.Login{
		Hostname:      "https://example.com",
		FormSubmitURL: "https://example.com",
		Username:      "user",
		Password:      "pw1",
	})
	require.NoError(t, err)

	time.Sleep(2 * time.Millisecond)

	updated, err := s.Update(logins.Login{
		Guid:          added.Guid,
		Hostname:      "https://example.com",
		FormSubmitURL: "https://example.com",
		Username:      "user-renamed",
		Password:      "pw1",
	})
	require.NoError(t, err)

	assert.Equal(t, added.TimePasswordChanged, updated.TimePasswordChanged,
		"timePasswordChanged must not move when the password text is unchanged")
	assert.Equal(t, int64(1), updated.TimesUsed)
	assert.Equal(t, "user-renamed", updated.Username)
}

func TestUpdateBumpsPasswordChangedTimeWhenPasswordChanges(t *testing.T) {
	s := newTestStore(t)

	added, err := s.Add(logins.Login{
		Hostname:      "https://example.com",
		FormSubmitURL: "https://example.com",
		Username:      "user",
		Password:      "pw1",
	})
	require.NoError(t, err)

	time.Sleep(2 * time.Millisecond)

	updated, err := s.Update(logins.Login{
		Guid:          added.Guid,
		Hostname:      "https://example.com",
		FormSubmitURL: "https://example.com",
		Username:      "user",
		Password:      "pw2",
	})
	require.NoError(t, err)

	assert.Greater(t, updated.TimePasswordChanged, added.TimePasswordChanged)
	assert.Equal(t, int64(1), updated.TimesUsed)

	fetched, ok, err := s.GetByID(added.Guid)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(1), fetched.TimesUsed)
	assert.Equal(t, updated.TimePasswordChanged, fetched.TimePasswordChanged)
}

func TestUpdateOnMirrorOnlyRecordOverridesMirror(t *testing.T) {
	s := newTestStore(t)

	mirror := logins.Login{
		Guid:          "a-mirror-only-guid",
		Hostname:      "https://example.com",
		FormSubmitURL: "https://example.com",
		Username:      "user",
		Password:      "pw1",
		TimeCreated:   1000,
	}
	require.NoError(t, s.ApplyIncoming(logins.MirrorRow{Login: mirror, ServerModified: 1000}))

	_, err := s.Update(logins.Login{
		Guid:          mirror.Guid,
		Hostname:      "https://example.com",
		FormSubmitURL: "https://example.com",
		Username:      "user-renamed",
		Password:      "pw1",
	})
	require.NoError(t, err)

	all, err := s.GetAll()
	require.NoError(t, err)
	var matches int
	for _, l := range all {
		if l.Guid == mirror.Guid {
			matches++
			assert.Equal(t, "user-renamed", l.Username)
		}
	}
	assert.Equal(t, 1, matches, "updating a mirror-only record must not leave the stale mirror row visible alongside the new overlay row")
}

func TestApplyIncomingKeepsMirrorOverriddenWhileOverlayPending(t *testing.T) {
	s := newTestStore(t)

	added, err := s.Add(logins.Login{
		Hostname:      "https://example.com",
		FormSubmitURL: "https://example.com",
		Username:      "user",
		Password:      "pw1",
	})
	require.NoError(t, err)

	require.NoError(t, s.ApplyIncoming(logins.MirrorRow{
		Login:          logins.Login{Guid: added.Guid, Hostname: added.Hostname, FormSubmitURL: added.FormSubmitURL, Username: "server-user", Password: "pw1", TimeCreated: added.TimeCreated},
		ServerModified: 5000,
	}))

	all, err := s.GetAll()
	require.NoError(t, err)
	var matches int
	for _, l := range all {
		if l.Guid == added.Guid {
			matches++
			assert.Equal(t, "user", l.Username, "the overlay's pending edit must keep shadowing the mirror")
		}
	}
	assert.Equal(t, 1, matches, "an un-synced overlay row must keep the mirror overridden, not double-visible")
}

func TestWipeAbortsOnInterruptTimeout(t *testing.T) {
	db, err := schema.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := logins.New(db, logins.WithInterruptTimeout(time.Nanosecond))
	time.Sleep(time.Millisecond)

	err = s.Wipe()
	require.ErrorIs(t, err, interrupt.ErrInterrupted)
}

func TestImportMultipleAbortsOnInterruptTimeout(t *testing.T) {
	db, err := schema.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := logins.New(db, logins.WithInterruptTimeout(time.Nanosecond))
	time.Sleep(time.Millisecond)

	_, err = s.ImportMultiple([]logins.Login{
		{Hostname: "https://example.com", FormSubmitURL: "https://example.com", Username: "u", Password: "p"},
	})
	require.ErrorIs(t, err, interrupt.ErrInterrupted)

	all, err := s.GetAll()
	require.NoError(t, err)
	assert.Empty(t, all, "an aborted import must not leave a partial transaction committed")
}

func TestImportMetrics(t *testing.T) {
	s := newTestStore(t)

	valid1 := logins.Login{
		Hostname: "https://example.com", FormSubmitURL: "https://example.com",
		Username: "user1", Password: "pw1",
	}
	dupeOfValid1 := logins.Login{
		Hostname: "https://example.com", FormSubmitURL: "https://example.com",
		Username: "user1", Password: "pw2",
	}
	valid2 := logins.Login{
		Hostname: "https://other.example.com", FormSubmitURL: "https://other.example.com",
		Username: "user2", Password: "pw3",
	}

	metrics, err := s.ImportMultiple([]logins.Login{valid1, dupeOfValid1, valid2})
	require.NoError(t, err)

	assert.EqualValues(t, 3, metrics.NumProcessed)
	assert.EqualValues(t, 2, metrics.NumSucceeded)
	assert.EqualValues(t, 1, metrics.NumFailed)
	assert.Equal(t, []string{"InvalidLogin::DuplicateLogin"}, metrics.FixupPhase.Errors)
	assert.EqualValues(t, 2, metrics.InsertPhase.NumProcessed)
	assert.EqualValues(t, 0, metrics.InsertPhase.NumFailed)
}

func TestImportMultipleRecordsGuidCollisionAsInsertFailure(t *testing.T) {
	s := newTestStore(t)

	first := logins.Login{
		Guid: "shared-guid-aaaaaa", Hostname: "https://example.com",
		FormSubmitURL: "https://example.com", Username: "user1", Password: "pw1",
	}
	second := logins.Login{
		Guid: "shared-guid-aaaaaa", Hostname: "https://other.example.com",
		FormSubmitURL: "https://other.example.com", Username: "user2", Password: "pw2",
	}

	metrics, err := s.ImportMultiple([]logins.Login{first, second})
	require.NoError(t, err)

	assert.EqualValues(t, 2, metrics.NumProcessed)
	assert.EqualValues(t, 1, metrics.NumSucceeded)
	assert.EqualValues(t, 1, metrics.NumFailed)
	assert.Equal(t, []string{"DuplicateGuid"}, metrics.InsertPhase.Errors)

	all, err := s.GetAll()
	require.NoError(t, err)
	assert.Len(t, all, 1, "the second record sharing a guid must not silently count as imported")
}

func TestImportMultipleRequiresEmptyStore(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Add(logins.Login{Hostname: "https://example.com", HTTPRealm: "https://example.com", Username: "u", Password: "p"})
	require.NoError(t, err)

	_, err = s.ImportMultiple(nil)
	assert.ErrorIs(t, err, logins.ErrNonEmptyTable)
}

func TestTouchDoesNotChangeSyncStatus(t *testing.T) {
	s := newTestStore(t)

	added, err := s.Add(logins.Login{Hostname: "https://example.com", HTTPRealm: "https://example.com", Username: "u", Password: "p"})
	require.NoError(t, err)

	require.NoError(t, s.Touch(added.Guid))

	got, ok, err := s.GetByID(added.Guid)
	require.NoError(t, err)
	require.True(t, ok)
	assert.EqualValues(t, 1, got.TimesUsed)

	// A mirror-backed record is cloned into the overlay as Synced; touching
	// it must not make it pending, so only the New record above is pending.
	mirror := logins.Login{
		Guid: "touched-mirror-guid", Hostname: "https://other.example.com",
		HTTPRealm: "https://other.example.com", Username: "m", Password: "p",
	}
	require.NoError(t, s.ApplyIncoming(logins.MirrorRow{Login: mirror, ServerModified: 1000}))
	require.NoError(t, s.Touch(mirror.Guid))

	pending, err := s.PendingChanges()
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, added.Guid, pending[0].Guid)
}

func TestAddRejectsInvalidLogin(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Add(logins.Login{Hostname: "https://example.com", Username: "u", Password: ""})
	var invalid *fixup.InvalidLoginError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, fixup.EmptyPassword, invalid.Kind)
}
