// Package metakv is a small keyed-string store over loginsSyncMeta,
// used by the (out-of-scope) sync engine to persist bookkeeping like
// "time of last successful sync". It follows the same shape as the
// teacher's other small sqlite-backed stores (eventconsumer/cursor,
// spindle/secrets): a handful of free functions taking a database
// handle rather than a stateful struct, since loginsSyncMeta has no
// per-instance configuration to hold.
package metakv

import (
	"database/sql"
	"fmt"
	"strconv"
)

// Execer is the subset of *sql.DB / *sql.Tx that metakv needs, letting
// callers pass either a bare connection or an in-flight transaction.
type Execer interface {
	Exec(query string, args ...any) (sql.Result, error)
	QueryRow(query string, args ...any) *sql.Row
}

// Put writes key = value, overwriting any previous value.
func Put(e Execer, key string, value string) error {
	_, err := e.Exec(`
		insert into loginsSyncMeta (key, value) values (?, ?)
		on conflict(key) do update set value = excluded.value`,
		key, value)
	if err != nil {
		return fmt.Errorf("metakv: put %q: %w", key, err)
	}
	return nil
}

// Get returns the value stored under key, or ok=false if absent.
func Get(e Execer, key string) (value string, ok bool, err error) {
	err = e.QueryRow(`select value from loginsSyncMeta where key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("metakv: get %q: %w", key, err)
	}
	return value, true, nil
}

// Delete removes key, if present.
func Delete(e Execer, key string) error {
	_, err := e.Exec(`delete from loginsSyncMeta where key = ?`, key)
	if err != nil {
		return fmt.Errorf("metakv: delete %q: %w", key, err)
	}
	return nil
}

// PutInt64 is a typed convenience wrapper around Put, for callers
// storing e.g. a last-sync timestamp.
func PutInt64(e Execer, key string, value int64) error {
	return Put(e, key, strconv.FormatInt(value, 10))
}

// GetInt64 is a typed convenience wrapper around Get.
func GetInt64(e Execer, key string) (value int64, ok bool, err error) {
	raw, ok, err := Get(e, key)
	if err != nil || !ok {
		return 0, ok, err
	}
	value, err = strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("metakv: %q is not an integer: %w", key, err)
	}
	return value, true, nil
}
