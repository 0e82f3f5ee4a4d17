// Package email validates email addresses for delivery. The local part
// grammar is stricter than RFC 5322: no quotes or semicolons, since some
// relays bounce those as technical failures. Domains must survive IDNA
// encoding and satisfy DNS label rules.
package email

import (
	"errors"
	"regexp"
	"strings"

	"golang.org/x/net/idna"

	"github.com/ignite/recipient-engine/internal/pkg/textutil"
)

// ErrInvalidAddress is returned for every rejected address. Callers show
// the same message regardless of which rule failed.
var ErrInvalidAddress = errors.New("Not a valid email address")

// maxAddressLength caps the whole address; maxHostnameLength and
// maxLabelLength are the DNS limits on the encoded domain.
const (
	maxAddressLength  = 320
	maxHostnameLength = 253
	maxLabelLength    = 63
)

var (
	addressPattern = regexp.MustCompile(`^[a-zA-Z0-9.!#$%&'*+/=?^_` + "`" + `{|}~\-]+@([^.@][^@\s]+)$`)
	labelPattern   = regexp.MustCompile(`(?i)^(xn|[a-z0-9]+)(-?-[a-z0-9]+)*$`)
	tldPattern     = regexp.MustCompile(`(?i)^([a-z]{2,63}|xn--([a-z0-9]+-)*[a-z0-9]+)$`)
)

// Validate checks address and returns its canonical form: obscure
// whitespace removed, surrounding whitespace stripped, lower-cased.
// The IDNA encoding is validation only; an internationalised domain
// comes back in its unicode spelling.
func Validate(address string) (string, error) {
	address = textutil.StripObscure(address)

	match := addressPattern.FindStringSubmatch(address)
	if match == nil {
		return "", ErrInvalidAddress
	}
	if len(address) > maxAddressLength {
		return "", ErrInvalidAddress
	}
	// consecutive periods are invalid in both the local part and the domain
	if strings.Contains(address, "..") {
		return "", ErrInvalidAddress
	}

	hostname, err := idna.Lookup.ToASCII(match[1])
	if err != nil {
		return "", ErrInvalidAddress
	}

	labels := strings.Split(hostname, ".")
	if len(hostname) > maxHostnameLength || len(labels) < 2 {
		return "", ErrInvalidAddress
	}
	for _, label := range labels {
		if label == "" || len(label) > maxLabelLength || !labelPattern.MatchString(label) {
			return "", ErrInvalidAddress
		}
	}
	if !tldPattern.MatchString(labels[len(labels)-1]) {
		return "", ErrInvalidAddress
	}

	return strings.ToLower(address), nil
}
