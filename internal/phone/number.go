package phone

import (
	"strings"

	"github.com/ignite/recipient-engine/internal/billing"
)

// PhoneNumber is a successfully validated number together with its routing
// classification. Construction and validation are the same operation: a
// PhoneNumber is never built from input that failed validation.
type PhoneNumber struct {
	number          string
	prefix          string
	crownDependency bool
}

// Parse validates raw and classifies the result. When strict validation
// fails it retries once with a looser normalisation that drops every plus
// sign and all leading zeros, rescuing spreadsheet export artifacts like
// "0 1202 555 0104". The loose pass never runs first: a genuine "+1..."
// number must not lose its plus and be mistaken for something local.
func Parse(raw string, allowInternational bool) (*PhoneNumber, error) {
	validated, err := Validate(raw, allowInternational)
	if err != nil {
		loose := strings.TrimLeft(strings.ReplaceAll(raw, "+", ""), "0")
		validated, err = Validate(loose, allowInternational)
		if err != nil {
			return nil, err
		}
	}

	prefix, ok := billing.MatchPrefix(validated)
	if !ok {
		return nil, ValidationError{Code: CodeUnsupportedCountryCode}
	}
	return &PhoneNumber{
		number:          validated,
		prefix:          prefix,
		crownDependency: isCrownDependency(validated),
	}, nil
}

// String returns the canonical digit form sent to providers, country code
// included, no plus.
func (p *PhoneNumber) String() string {
	return p.number
}

// Prefix returns the dialing prefix used for billing lookups.
func (p *PhoneNumber) Prefix() string {
	return p.prefix
}

// IsUK reports whether the number carries the UK country code. Crown
// dependency numbers do.
func (p *PhoneNumber) IsUK() bool {
	return p.prefix == UKPrefix
}

// CrownDependency reports whether the number belongs to Jersey, Guernsey or
// the Isle of Man.
func (p *PhoneNumber) CrownDependency() bool {
	return p.crownDependency
}

// International reports whether the number bills as international. Crown
// dependency numbers do despite their UK country code.
func (p *PhoneNumber) International() bool {
	return p.prefix != UKPrefix || p.crownDependency
}

// Info returns the routing and billing classification.
func (p *PhoneNumber) Info() Info {
	return Info{
		International:   p.International(),
		CrownDependency: p.crownDependency,
		CountryPrefix:   p.prefix,
		BillableUnits:   p.BillableUnits(),
	}
}

// BillableUnits returns the cost multiplier for the number's destination.
func (p *PhoneNumber) BillableUnits() int {
	return billing.Units(p.prefix)
}

// RequiresNumericSender reports whether the destination's carriers reject
// alphanumeric sender IDs.
func (p *PhoneNumber) RequiresNumericSender() bool {
	return !billing.AlphaSenderAllowed(p.prefix)
}

// HumanReadable renders the number for display: UK mobiles in the national
// 07xxx xxxxxx form, everything else as +prefix subscriber.
func (p *PhoneNumber) HumanReadable() string {
	if !p.International() {
		rest := strings.TrimPrefix(p.number, UKPrefix)
		if len(rest) == 10 {
			return "0" + rest[:4] + " " + rest[4:]
		}
	}
	return "+" + p.prefix + " " + strings.TrimPrefix(p.number, p.prefix)
}

// FormatHumanReadable renders any input for display, returning it untouched
// when it does not validate.
func FormatHumanReadable(number string) string {
	validated, err := Validate(number, true)
	if err != nil {
		return number
	}
	prefix, ok := billing.MatchPrefix(validated)
	if !ok {
		return number
	}
	p := &PhoneNumber{number: validated, prefix: prefix, crownDependency: isCrownDependency(validated)}
	return p.HumanReadable()
}
