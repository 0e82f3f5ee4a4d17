// Package postal validates and normalises letter addresses assembled from
// spreadsheet columns: address lines one to seven plus an optional
// postcode, with UK postcodes reformatted for automated sorting.
package postal

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/ignite/recipient-engine/internal/insensitive"
	"github.com/ignite/recipient-engine/internal/pkg/textutil"
)

// Column keys for letter sends. Only snake_case spellings are accepted
// from the API, but spreadsheet headers match insensitively.
var (
	AddressLines1To6Keys = []string{
		"address_line_1", "address_line_2", "address_line_3",
		"address_line_4", "address_line_5", "address_line_6",
	}
	AddressLines1To6AndPostcodeKeys = []string{
		"address_line_1", "address_line_2", "address_line_3",
		"address_line_4", "address_line_5", "address_line_6", "postcode",
	}
	AddressLines1To7Keys = []string{
		"address_line_1", "address_line_2", "address_line_3",
		"address_line_4", "address_line_5", "address_line_6", "address_line_7",
	}
)

// AddressLine7Key holds the whole last line when a sheet uses a single
// column instead of a postcode column.
const AddressLine7Key = "address_line_7"

const (
	MinAddressLines = 3
	MaxAddressLines = 7
)

// invalidStartChars lists characters an address line may not start with;
// they confuse the print pipeline's sorting machinery.
const invalidStartChars = `[\/()@]<>",=~`

var (
	postcodePattern       = regexp.MustCompile(`^(([A-Z]{1,2}[0-9][0-9A-Z]?[0-9][A-BD-HJLNP-UW-Z]{2})|(GIR0AA))$`)
	whitespaceBeforePunct = regexp.MustCompile(`\s+([,.])`)
)

// Address is a letter destination. The last meaningful line is either a
// UK postcode or a recognised country name; everything above it is kept
// as written, with whitespace normalised.
type Address struct {
	raw                string
	allowInternational bool
	lines              []string // normalised, with any country line removed
	country            Country
}

// NewAddress parses a newline-separated address. Each line has its
// whitespace collapsed and trailing commas removed; blank lines are
// dropped. A recognised country on the last line is lifted out.
func NewAddress(raw string, allowInternationalLetters bool) *Address {
	a := &Address{raw: raw, allowInternational: allowInternationalLetters}

	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		line = textutil.NormaliseWhitespace(line)
		line = strings.TrimRight(line, " ,")
		if line == "" {
			continue
		}
		lines = append(lines, whitespaceBeforePunct.ReplaceAllString(line, "$1"))
	}
	if len(lines) == 0 {
		lines = []string{""}
	}

	if c, ok := lookupCountry(lines[len(lines)-1]); ok {
		a.country = c
		a.lines = lines[:len(lines)-1]
	} else {
		a.country = Country{Name: "United Kingdom", UK: true}
		a.lines = lines
	}
	return a
}

// FromPersonalisation assembles an address from row values. A sheet with
// an address_line_7 column uses that as the last line; otherwise the
// postcode column does.
func FromPersonalisation(personalisation *insensitive.Dict, allowInternationalLetters bool) *Address {
	keys := AddressLines1To6AndPostcodeKeys
	if personalisation.Contains(AddressLine7Key) {
		keys = AddressLines1To7Keys
	}

	lines := make([]string, len(keys))
	for i, key := range keys {
		if value, ok := personalisation.Get(key); ok && value != nil {
			lines[i] = fmt.Sprint(value)
		}
	}
	return NewAddress(strings.Join(lines, "\n"), allowInternationalLetters)
}

func (a *Address) Raw() string { return a.raw }

func (a *Address) Country() Country { return a.country }

// International reports whether the letter leaves domestic delivery.
// Crown dependencies post at domestic rates, so they are not international.
func (a *Address) International() bool { return !a.country.UK }

// Postcode returns the print-formatted UK postcode from the last address
// line, if it is one. International addresses never have a postcode.
func (a *Address) Postcode() (string, bool) {
	if a.International() || len(a.lines) == 0 {
		return "", false
	}
	return formatPostcode(a.lines[len(a.lines)-1])
}

// NormalisedLines is the address as it will be printed: the formatted
// postcode or the canonical country name on the last line.
func (a *Address) NormalisedLines() []string {
	if a.International() {
		return append(append([]string{}, a.lines...), a.country.Name)
	}
	if postcode, ok := a.Postcode(); ok {
		out := append([]string{}, a.lines[:len(a.lines)-1]...)
		return append(out, postcode)
	}
	return append([]string{}, a.lines...)
}

func (a *Address) Normalised() string { return strings.Join(a.NormalisedLines(), "\n") }

func (a *Address) AsSingleLine() string { return strings.Join(a.NormalisedLines(), ", ") }

func (a *Address) LineCount() int {
	normalised := a.Normalised()
	if normalised == "" {
		return 0
	}
	return len(strings.Split(normalised, "\n"))
}

func (a *Address) HasEnoughLines() bool { return a.LineCount() >= MinAddressLines }

func (a *Address) HasTooManyLines() bool { return a.LineCount() > MaxAddressLines }

func (a *Address) HasValidPostcode() bool {
	_, ok := a.Postcode()
	return ok
}

// HasValidLastLine wants a real postcode for domestic mail, or any
// recognised country when international letters are allowed.
func (a *Address) HasValidLastLine() bool {
	if a.allowInternational && a.International() {
		return true
	}
	return a.HasValidPostcode()
}

func (a *Address) HasInvalidCharacters() bool {
	for _, line := range a.NormalisedLines() {
		if line != "" && strings.IndexByte(invalidStartChars, line[0]) >= 0 {
			return true
		}
	}
	return false
}

func (a *Address) Valid() bool {
	return a.HasValidLastLine() &&
		a.HasEnoughLines() &&
		!a.HasTooManyLines() &&
		!a.HasInvalidCharacters()
}

// AsPersonalisation flattens the normalised address back into column
// values. The last line appears under both postcode and address_line_7.
func (a *Address) AsPersonalisation() map[string]string {
	out := make(map[string]string, len(AddressLines1To7Keys)+1)
	for _, key := range AddressLines1To6Keys {
		out[key] = ""
	}

	normalised := a.NormalisedLines()
	for i, value := range normalised[:len(normalised)-1] {
		if i+1 < 7 {
			out[fmt.Sprintf("address_line_%d", i+1)] = value
		}
	}
	out["postcode"] = normalised[len(normalised)-1]
	out[AddressLine7Key] = normalised[len(normalised)-1]
	return out
}

// NormalisePostcode strips all whitespace, visible or not, and upper-cases.
func NormalisePostcode(postcode string) string {
	return strings.ToUpper(textutil.RemoveAll(postcode, textutil.AllWhitespace))
}

func isRealUKPostcode(postcode string) bool {
	return postcodePattern.MatchString(NormalisePostcode(postcode))
}

// FormatPostcodeForPrinting splits the postcode before its inward code,
// the form Royal Mail's sorting machines expect. The input must already
// be a real UK postcode.
func FormatPostcodeForPrinting(postcode string) string {
	postcode = NormalisePostcode(postcode)
	return postcode[:len(postcode)-3] + " " + postcode[len(postcode)-3:]
}

// postcodeCache keeps the last few postcode formats. Validating one row
// reads the postcode several times, so a handful of entries is enough.
var postcodeCache = struct {
	sync.Mutex
	formatted map[string]string
	order     []string
}{formatted: make(map[string]string)}

const postcodeCacheSize = 8

func formatPostcode(line string) (string, bool) {
	postcodeCache.Lock()
	defer postcodeCache.Unlock()

	if cached, ok := postcodeCache.formatted[line]; ok {
		return cached, cached != ""
	}

	var formatted string
	if isRealUKPostcode(line) {
		formatted = FormatPostcodeForPrinting(line)
	}

	if len(postcodeCache.order) >= postcodeCacheSize {
		oldest := postcodeCache.order[0]
		postcodeCache.order = postcodeCache.order[1:]
		delete(postcodeCache.formatted, oldest)
	}
	postcodeCache.order = append(postcodeCache.order, line)
	postcodeCache.formatted[line] = formatted

	return formatted, formatted != ""
}
