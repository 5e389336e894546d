// Package fixup canonicalises and validates login records before they
// are stored: hostnames and form-submit URLs are parsed, their hosts
// punycode-encoded, and re-serialised, exactly as the upstream store
// expects so that two records differing only in unicode vs. punycode
// form are never treated as distinct.
package fixup

import (
	"net/url"
	"strings"

	"golang.org/x/net/idna"
)

// Login is the wire shape fixup operates on. The logins package embeds
// the same field set in its own Login type; fixup stays independent of
// the store so it can be unit tested without a database.
type Login struct {
	Guid                string
	Hostname            string
	HTTPRealm           string
	FormSubmitURL       string
	UsernameField       string
	PasswordField       string
	Username            string
	Password            string
	TimeCreated         int64
	TimeLastUsed        int64
	TimePasswordChanged int64
	TimesUsed           int64
}

// HasHTTPRealm reports whether http_realm is the set alternative.
func (l Login) HasHTTPRealm() bool { return l.HTTPRealm != "" }

// HasFormSubmitURL reports whether form_submit_url is the set alternative.
func (l Login) HasFormSubmitURL() bool { return l.FormSubmitURL != "" }

var punycodeProfile = idna.New(
	idna.MapForLookup(),
	idna.BidiRule(),
)

// canonicalizeOrigin parses s as a URL, replaces its host with the
// punycode form, and re-serialises it. An empty string is returned
// unchanged (http_realm and form_submit_url are both optional).
func canonicalizeOrigin(s string) (string, error) {
	if s == "" {
		return "", nil
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", err
	}
	host := u.Hostname()
	if host == "" {
		return "", &url.Error{Op: "parse", URL: s, Err: errEmptyHost}
	}
	puny, err := punycodeProfile.ToASCII(host)
	if err != nil {
		// Hosts that are already ASCII (including IP literals) are
		// left alone by ToASCII failures that stem from bidi/lookup
		// rules rejecting e.g. numeric-only labels; fall back to the
		// original host rather than rejecting valid origins.
		puny = host
	}
	if strings.Contains(puny, ":") {
		// IPv6 literal: Hostname() stripped the brackets.
		puny = "[" + puny + "]"
	}
	if port := u.Port(); port != "" {
		u.Host = puny + ":" + port
	} else {
		u.Host = puny
	}
	return u.String(), nil
}

type sentinelErr string

func (e sentinelErr) Error() string { return string(e) }

const errEmptyHost = sentinelErr("fixup: empty host")

// Fixup canonicalises hostname and form_submit_url, trims whitespace
// from the identifier-like fields, and returns the result. It is pure:
// Fixup(Fixup(x)) == Fixup(x) for any x that does not itself fail to
// parse.
func Fixup(l Login) (Login, error) {
	out := l
	out.Guid = strings.TrimSpace(l.Guid)
	out.UsernameField = strings.TrimSpace(l.UsernameField)
	out.PasswordField = strings.TrimSpace(l.PasswordField)

	hostname, err := canonicalizeOrigin(l.Hostname)
	if err != nil {
		return Login{}, &InvalidLoginError{Kind: InvalidOrigin, Reason: err.Error()}
	}
	out.Hostname = hostname

	if l.FormSubmitURL != "" {
		formSubmit, err := canonicalizeOrigin(l.FormSubmitURL)
		if err != nil {
			return Login{}, &InvalidLoginError{Kind: InvalidFormActionOrigin, Reason: err.Error()}
		}
		out.FormSubmitURL = formSubmit
	}

	return out, nil
}

// MaybeFixup returns the fixed-up login and true only when Fixup would
// have actually changed something; this lets callers (notably bulk
// import) skip an allocation for records that are already canonical.
func MaybeFixup(l Login) (Login, bool, error) {
	fixed, err := Fixup(l)
	if err != nil {
		return Login{}, false, err
	}
	if fixed == l {
		return Login{}, false, nil
	}
	return fixed, true, nil
}

// CheckValid enforces the field-level invariants from the data model:
// non-empty hostname, non-empty password, exactly one of
// http_realm/form_submit_url, no embedded NUL bytes, and a
// form_submit_url that is either empty or a valid origin.
func CheckValid(l Login) error {
	if l.Hostname == "" {
		return &InvalidLoginError{Kind: EmptyOrigin, Reason: "hostname is empty"}
	}
	if l.Password == "" {
		return &InvalidLoginError{Kind: EmptyPassword, Reason: "password is empty"}
	}
	if l.HasHTTPRealm() && l.HasFormSubmitURL() {
		return &InvalidLoginError{Kind: BothTargets, Reason: "both http_realm and form_submit_url are set"}
	}
	if !l.HasHTTPRealm() && !l.HasFormSubmitURL() {
		return &InvalidLoginError{Kind: NoTarget, Reason: "neither http_realm nor form_submit_url is set"}
	}
	for _, field := range []string{
		l.Guid, l.Hostname, l.HTTPRealm, l.FormSubmitURL,
		l.UsernameField, l.PasswordField, l.Username, l.Password,
	} {
		if strings.ContainsRune(field, 0) {
			return &InvalidLoginError{Kind: IllegalFieldValue, Reason: "field contains an embedded null byte"}
		}
	}
	if l.FormSubmitURL != "" {
		u, err := url.Parse(l.FormSubmitURL)
		if err != nil {
			return &InvalidLoginError{Kind: InvalidFormActionOrigin, Reason: err.Error()}
		}
		if u.Hostname() == "" {
			return &InvalidLoginError{Kind: InvalidFormActionOrigin, Reason: "form_submit_url has no host"}
		}
	}
	return nil
}
