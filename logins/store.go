package logins

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/nimbus-logins/core/interrupt"
	"github.com/nimbus-logins/core/schema"
)

// Execer is the subset of *sql.DB / *sql.Tx the store needs; it
// mirrors the teacher's own db.Execer interface so the same query
// helpers work whether called inside or outside a transaction.
type Execer interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// Store is the local login store: CRUD, duplicate detection, bulk
// import, and wipe over the overlay/mirror schema.
type Store struct {
	db               *schema.DB
	handle           *interrupt.Handle
	logger           *slog.Logger
	interruptTimeout time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithLogger attaches a logger; the default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithInterruptTimeout sets an overall deadline, counted from the start
// of each Wipe or ImportMultiple call, after which the operation's
// interrupt scope reports itself interrupted even if nothing ever
// calls Interrupt explicitly (nimbusconfig.StoreConfig.InterruptTimeout
// feeds this in the CLI). Zero, the default, means no self-imposed
// deadline — only an explicit Interrupt call aborts.
func WithInterruptTimeout(d time.Duration) Option {
	return func(s *Store) { s.interruptTimeout = d }
}

// New wraps an already-open schema.DB in a Store.
func New(db *schema.DB, opts ...Option) *Store {
	s := &Store{
		db:     db,
		handle: interrupt.NewHandle(),
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// NewInterruptHandle returns a handle that can be used from another
// goroutine to request cancellation of an in-progress Wipe or
// ImportMultiple.
func (s *Store) NewInterruptHandle() *interrupt.Handle {
	return s.handle
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

const selectCols = schema.CommonCols

var getAllSQL = fmt.Sprintf(
	`select %[1]s from loginsL where is_deleted = 0
	 union all
	 select %[1]s from loginsM where is_overridden = 0`,
	selectCols,
)

var getByGuidSQL = fmt.Sprintf(
	`select %[1]s from loginsL where is_deleted = 0 and guid = ?
	 union all
	 select %[1]s from loginsM where is_overridden = 0 and guid = ?
	 limit 1`,
	selectCols,
)

func scanLogin(row interface {
	Scan(dest ...any) error
}) (Login, error) {
	var l Login
	var httpRealm, formSubmitURL sql.NullString
	err := row.Scan(
		&l.Guid, &l.Hostname, &httpRealm, &formSubmitURL,
		&l.UsernameField, &l.PasswordField, &l.TimesUsed,
		&l.Username, &l.Password, &l.TimeCreated, &l.TimeLastUsed,
		&l.TimePasswordChanged,
	)
	if err != nil {
		return Login{}, err
	}
	l.HTTPRealm = httpRealm.String
	l.FormSubmitURL = formSubmitURL.String
	return l, nil
}

// GetByID returns the visible record with the given guid, or
// ok=false if none exists. A mirror row is shadowed by an overlay row
// with the same guid.
func (s *Store) GetByID(guid string) (login Login, ok bool, err error) {
	row := s.db.QueryRow(getByGuidSQL, guid, guid)
	login, err = scanLogin(row)
	if err == sql.ErrNoRows {
		return Login{}, false, nil
	}
	if err != nil {
		return Login{}, false, fmt.Errorf("logins: get by id: %w", err)
	}
	return login, true, nil
}

// GetAll returns the visible set: undeleted overlay rows unioned with
// un-overridden mirror rows. Ordering is unspecified.
func (s *Store) GetAll() ([]Login, error) {
	rows, err := s.db.Query(getAllSQL)
	if err != nil {
		return nil, fmt.Errorf("logins: get all: %w", err)
	}
	defer rows.Close()

	var out []Login
	for rows.Next() {
		l, err := scanLogin(rows)
		if err != nil {
			return nil, fmt.Errorf("logins: get all: scan: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("logins: get all: %w", err)
	}
	return out, nil
}

// Exists reports whether guid is visible (in the overlay and not
// deleted, or in the mirror and not overridden).
func (s *Store) Exists(guid string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(`
		select exists(
			select 1 from loginsL where guid = ? and is_deleted = 0
			union all
			select 1 from loginsM where guid = ? and is_overridden is not 1
		)`, guid, guid).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("logins: exists: %w", err)
	}
	return exists, nil
}

// classifiedHost is the result of parsing a hostname's host component
// for the purposes of base-domain matching: exactly one of domain,
// ipv4 or ipv6 is non-empty/valid.
type classifiedHost struct {
	kind   hostKind
	domain string
	ip     net.IP
}

type hostKind int

const (
	hostKindNone hostKind = iota
	hostKindDomain
	hostKindIPv4
	hostKindIPv6
)

// classifyHost parses s (either a bare host, as the base_domain
// argument arrives, or a full origin, as stored hostnames are) into a
// classifiedHost. It never errors: an unparseable input simply
// produces hostKindNone, matching get_by_base_domain's documented
// behaviour of treating a bad argument as "no matches" rather than an
// error.
func classifyHost(hostOrOrigin string) classifiedHost {
	host := hostOrOrigin
	if u, err := url.Parse(hostOrOrigin); err == nil && u.Hostname() != "" {
		host = u.Hostname()
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	if host == "" {
		return classifiedHost{}
	}
	if ip := net.ParseIP(host); ip != nil {
		if ip4 := ip.To4(); ip4 != nil {
			return classifiedHost{kind: hostKindIPv4, ip: ip4}
		}
		return classifiedHost{kind: hostKindIPv6, ip: ip}
	}
	// A bare "example.com" (no scheme) fails url.Parse's Hostname()
	// check above for some inputs; net/url still parses it as a path,
	// so fall back to treating the raw string as the domain as long as
	// it looks host-shaped (no whitespace, at least one label).
	if strings.ContainsAny(host, " \t\n") || host == "" {
		return classifiedHost{}
	}
	// Hostnames persisted via Fixup are punycode-lowercased by
	// idna.MapForLookup; a caller-supplied base_domain argument (or a
	// raw hostname reaching matches() from the other side) may not be,
	// so fold case here rather than at every comparison site.
	return classifiedHost{kind: hostKindDomain, domain: strings.ToLower(host)}
}

func (h classifiedHost) matches(other classifiedHost) bool {
	if h.kind == hostKindNone || other.kind != h.kind {
		return false
	}
	switch h.kind {
	case hostKindDomain:
		return other.domain == h.domain || strings.HasSuffix(other.domain, "."+h.domain)
	case hostKindIPv4, hostKindIPv6:
		return other.ip.Equal(h.ip)
	default:
		return false
	}
}

// GetByBaseDomain returns every visible record whose hostname's host
// equals domain, or (for domain-name hosts) ends with "."+domain. IP
// hosts must match exactly and never match a domain-name query or vice
// versa. An unparseable domain argument yields an empty slice, not an
// error — the scan itself never fails on bad input, mirroring the
// original's documented "don't log the input string, it's PII; return
// empty" behaviour.
func (s *Store) GetByBaseDomain(domain string) ([]Login, error) {
	base := classifyHost(domain)
	if base.kind == hostKindNone {
		return nil, nil
	}

	all, err := s.GetAll()
	if err != nil {
		return nil, err
	}

	var out []Login
	for _, l := range all {
		if base.matches(classifyHost(l.Hostname)) {
			out = append(out, l)
		}
	}
	return out, nil
}
