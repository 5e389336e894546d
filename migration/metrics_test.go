package migration_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nimbus-logins/core/migration"
)

func TestBuilderSummation(t *testing.T) {
	b := migration.NewBuilder(3)
	b.RecordFixupFailure("InvalidLogin::DuplicateLogin")
	b.SetFixupPhaseDuration(5)

	m := b.Finish(12)

	assert.Equal(t, uint64(3), m.NumProcessed)
	assert.Equal(t, uint64(2), m.NumSucceeded)
	assert.Equal(t, uint64(1), m.NumFailed)
	assert.Equal(t, m.NumSucceeded+m.NumFailed, m.NumProcessed)

	assert.Equal(t, []string{"InvalidLogin::DuplicateLogin"}, m.FixupPhase.Errors)
	assert.Equal(t, uint64(2), m.InsertPhase.NumProcessed)
	assert.Equal(t, uint64(0), m.InsertPhase.NumFailed)
	assert.Equal(t, []string{"InvalidLogin::DuplicateLogin"}, m.Errors)
}

func TestBuilderNoFailures(t *testing.T) {
	b := migration.NewBuilder(2)
	b.SetFixupPhaseDuration(1)
	m := b.Finish(4)

	assert.Equal(t, uint64(2), m.NumProcessed)
	assert.Equal(t, uint64(2), m.NumSucceeded)
	assert.Equal(t, uint64(0), m.NumFailed)
	assert.Empty(t, m.Errors)
}
