// Package phone validates and classifies the mobile numbers messages are
// sent to: UK mobiles, crown dependency ranges that bill as international
// despite the shared 44 country code, the reserved TV drama range, and,
// where a service allows it, international numbers resolved against the
// billing prefix table.
package phone

import (
	"strings"

	"github.com/ignite/recipient-engine/internal/billing"
	"github.com/ignite/recipient-engine/internal/pkg/logger"
	"github.com/ignite/recipient-engine/internal/pkg/textutil"
)

// UKPrefix is the UK dialing code.
const UKPrefix = "44"

// Mobile ranges allocated to Jersey, Guernsey and the Isle of Man.
var crownDependencyRanges = []string{
	"7781", "7839", "7911", "7509", "7797", "7937", "7700", "7829", "7624", "7524", "7924",
}

// tvRange is reserved by Ofcom for broadcast and fiction use. Numbers in it
// are deliverable nowhere but are accepted as valid, and are never
// classified as crown dependency even though they sit inside 7700.
const tvRange = "7700900"

// Normalise strips whitespace and the punctuation people type into phone
// numbers, rejects anything that leaves a non-digit character, and drops
// leading zeros.
func Normalise(number string) (string, error) {
	number = textutil.RemoveAll(number, textutil.AllWhitespace+"()-+")
	for _, r := range number {
		if r < '0' || r > '9' {
			return "", ValidationError{Code: CodeUnknownCharacter}
		}
	}
	return strings.TrimLeft(number, "0"), nil
}

// IsUK reports whether number reads as a UK number: a single leading zero,
// or a 44 country code, or a bare mobile number starting 7 that is short
// enough to be missing its prefix.
func IsUK(number string) (bool, error) {
	if strings.HasPrefix(number, "0") && !strings.HasPrefix(number, "00") {
		return true, nil
	}
	normalised, err := Normalise(number)
	if err != nil {
		return false, err
	}
	if strings.HasPrefix(normalised, UKPrefix) {
		return true, nil
	}
	if strings.HasPrefix(normalised, "7") && len(normalised) < 11 {
		return true, nil
	}
	return false, nil
}

// ValidateUK normalises a UK mobile number to its 12 digit 44xxxxxxxxxx
// form. The country code and any leading zero are stripped before checking
// the remainder is a 10 digit number starting 7.
func ValidateUK(number string) (string, error) {
	normalised, err := Normalise(number)
	if err != nil {
		return "", err
	}
	rest := strings.TrimLeft(strings.TrimLeft(normalised, "4"), "0")
	if !strings.HasPrefix(rest, "7") {
		return "", ValidationError{Code: CodeNotAUKMobile}
	}
	if len(rest) > 10 {
		return "", ValidationError{Code: CodeTooLong}
	}
	if len(rest) < 10 {
		return "", ValidationError{Code: CodeTooShort}
	}
	return UKPrefix + rest, nil
}

// Validate normalises and validates a phone number, returning its canonical
// digit form. UK validation applies when international sending is off or
// the number reads as UK; otherwise the number must be 8 to 15 digits and
// start with a known dialing prefix.
func Validate(number string, international bool) (string, error) {
	if !international {
		return ValidateUK(number)
	}
	uk, err := IsUK(number)
	if err != nil {
		return "", err
	}
	if uk {
		return ValidateUK(number)
	}

	normalised, err := Normalise(number)
	if err != nil {
		return "", err
	}
	if len(normalised) < 8 {
		return "", ValidationError{Code: CodeTooShort}
	}
	if len(normalised) > 15 {
		return "", ValidationError{Code: CodeTooLong}
	}
	if _, ok := billing.MatchPrefix(normalised); !ok {
		return "", ValidationError{Code: CodeUnsupportedCountryCode}
	}
	return normalised, nil
}

// TryValidate returns the canonical form when number validates and the raw
// input unchanged when it does not, for display paths that must never fail.
// Failures are logged as warnings when logMsg is set.
func TryValidate(number string, international bool, logMsg string) string {
	validated, err := Validate(number, international)
	if err != nil {
		if logMsg != "" {
			logger.Warn(logMsg, "error", err.Error())
		}
		return number
	}
	return validated
}

// Info describes how a validated number will be routed and billed.
type Info struct {
	International   bool   `json:"international"`
	CrownDependency bool   `json:"crown_dependency"`
	CountryPrefix   string `json:"country_prefix"`
	BillableUnits   int    `json:"billable_units"`
}

// InternationalInfo validates number with international destinations
// allowed and resolves its routing and billing classification. Crown
// dependency numbers report as international with the UK country prefix.
func InternationalInfo(number string) (Info, error) {
	validated, err := Validate(number, true)
	if err != nil {
		return Info{}, err
	}
	prefix, _ := billing.MatchPrefix(validated)
	crown := isCrownDependency(validated)
	return Info{
		International:   prefix != UKPrefix || crown,
		CrownDependency: crown,
		CountryPrefix:   prefix,
		BillableUnits:   billing.Units(prefix),
	}, nil
}

// RequiresNumericSender reports whether the validated number's destination
// forces a numeric sender ID instead of an alphanumeric one.
func RequiresNumericSender(number string) (bool, error) {
	validated, err := Validate(number, true)
	if err != nil {
		return false, err
	}
	prefix, ok := billing.MatchPrefix(validated)
	if !ok {
		return false, ValidationError{Code: CodeUnsupportedCountryCode}
	}
	return !billing.AlphaSenderAllowed(prefix), nil
}

// isCrownDependency expects a validated number (44 prefixed when UK).
// Digits two to five carry the mobile range.
func isCrownDependency(validated string) bool {
	if len(validated) < 6 {
		return false
	}
	inRange := false
	for _, r := range crownDependencyRanges {
		if validated[2:6] == r {
			inRange = true
			break
		}
	}
	if !inRange {
		return false
	}
	return !(len(validated) >= 9 && validated[2:9] == tvRange)
}
