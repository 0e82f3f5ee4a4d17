package postal

import (
	"reflect"
	"strings"
	"testing"

	"github.com/ignite/recipient-engine/internal/insensitive"
)

func TestNewAddressNormalisesLines(t *testing.T) {
	a := NewAddress("  10   Downing Street , \n\n London \nSW1A 2AA", false)

	want := []string{"10 Downing Street", "London", "SW1A 2AA"}
	if got := a.NormalisedLines(); !reflect.DeepEqual(got, want) {
		t.Errorf("NormalisedLines() = %v, want %v", got, want)
	}
	if !a.Valid() {
		t.Error("address should be valid")
	}
	if got := a.AsSingleLine(); got != "10 Downing Street, London, SW1A 2AA" {
		t.Errorf("AsSingleLine() = %q", got)
	}
}

func TestNewAddressFixesWhitespaceBeforePunctuation(t *testing.T) {
	a := NewAddress("1 High Street , Anytown\nSomewhere\nM2 5PD", false)
	if got := a.NormalisedLines()[0]; got != "1 High Street, Anytown" {
		t.Errorf("got %q", got)
	}
}

func TestPostcodeFormatting(t *testing.T) {
	tests := []struct {
		lastLine string
		want     string
		valid    bool
	}{
		{"sw1a2aa", "SW1A 2AA", true},
		{"SW1A 2AA", "SW1A 2AA", true},
		{"sw1a  2aa", "SW1A 2AA", true},
		{"gir 0aa", "GIR 0AA", true},
		{"m2 5pd", "M2 5PD", true},
		{"b17tj", "B1 7TJ", true},
		{"not a postcode", "", false},
		{"SW1A 2AAA", "", false},
		{"S1 4", "", false},
		{"999 999", "", false},
	}

	for _, tt := range tests {
		a := NewAddress("1 Some Building\nSome Town\n"+tt.lastLine, false)
		got, ok := a.Postcode()
		if ok != tt.valid {
			t.Errorf("Postcode() for %q: ok = %v, want %v", tt.lastLine, ok, tt.valid)
			continue
		}
		if got != tt.want {
			t.Errorf("Postcode() for %q = %q, want %q", tt.lastLine, got, tt.want)
		}
	}
}

func TestFormatPostcodeForPrinting(t *testing.T) {
	if got := FormatPostcodeForPrinting("sw1a2aa"); got != "SW1A 2AA" {
		t.Errorf("got %q", got)
	}
	if got := NormalisePostcode(" e1  6an "); got != "E16AN" {
		t.Errorf("got %q", got)
	}
}

func TestFromPersonalisation(t *testing.T) {
	d := insensitive.NewDict()
	d.Set("Address Line 1", "12 Acacia Avenue")
	d.Set("address_line_2", "Birmingham")
	d.Set("postcode", "b17tj")

	a := FromPersonalisation(d, false)
	want := []string{"12 Acacia Avenue", "Birmingham", "B1 7TJ"}
	if got := a.NormalisedLines(); !reflect.DeepEqual(got, want) {
		t.Errorf("NormalisedLines() = %v, want %v", got, want)
	}
	if !a.Valid() {
		t.Error("address should be valid")
	}
}

func TestFromPersonalisationLine7WinsOverPostcode(t *testing.T) {
	d := insensitive.NewDict()
	d.Set("address_line_1", "12 Acacia Avenue")
	d.Set("address_line_2", "Birmingham")
	d.Set("postcode", "ignored entirely")
	d.Set("address_line_7", "SW1A 1AA")

	a := FromPersonalisation(d, false)
	want := []string{"12 Acacia Avenue", "Birmingham", "SW1A 1AA"}
	if got := a.NormalisedLines(); !reflect.DeepEqual(got, want) {
		t.Errorf("NormalisedLines() = %v, want %v", got, want)
	}
}

func TestFromPersonalisationSkipsNilValues(t *testing.T) {
	d := insensitive.NewDict()
	d.Set("address_line_1", "12 Acacia Avenue")
	d.Set("address_line_2", nil)
	d.Set("address_line_3", "Birmingham")
	d.Set("postcode", "B1 7TJ")

	a := FromPersonalisation(d, false)
	want := []string{"12 Acacia Avenue", "Birmingham", "B1 7TJ"}
	if got := a.NormalisedLines(); !reflect.DeepEqual(got, want) {
		t.Errorf("NormalisedLines() = %v, want %v", got, want)
	}
}

func TestInternationalAddresses(t *testing.T) {
	a := NewAddress("123 Rue de Paris\n75001 Paris\nFrance", true)
	if !a.International() {
		t.Error("France should be international")
	}
	want := []string{"123 Rue de Paris", "75001 Paris", "France"}
	if got := a.NormalisedLines(); !reflect.DeepEqual(got, want) {
		t.Errorf("NormalisedLines() = %v, want %v", got, want)
	}
	if !a.Valid() {
		t.Error("international address should be valid when allowed")
	}

	disallowed := NewAddress("123 Rue de Paris\n75001 Paris\nFrance", false)
	if disallowed.Valid() {
		t.Error("international address should be invalid when not allowed")
	}
}

func TestCountryRecognition(t *testing.T) {
	tests := []struct {
		lastLine      string
		wantName      string
		international bool
	}{
		{"FRANCE", "France", true},
		{"the Netherlands", "Netherlands", true},
		{"U.S.A", "United States", true},
		{"United States of America", "United States", true},
		{"Czech Republic", "Czechia", true},
		{"Türkiye", "Turkey", true},
		{"Trinidad & Tobago", "Trinidad and Tobago", true},
		{"U.K", "United Kingdom", false},
		{"Scotland", "United Kingdom", false},
		{"Jersey", "Jersey", false},
		{"Isle of Man", "Isle of Man", false},
	}

	for _, tt := range tests {
		a := NewAddress("1 Some Street\nSome Town\nAB1 2CD\n"+tt.lastLine, true)
		if got := a.Country().Name; got != tt.wantName {
			t.Errorf("Country() for %q = %q, want %q", tt.lastLine, got, tt.wantName)
		}
		if got := a.International(); got != tt.international {
			t.Errorf("International() for %q = %v, want %v", tt.lastLine, got, tt.international)
		}
	}
}

func TestUnknownLastLineDefaultsToUK(t *testing.T) {
	a := NewAddress("1 Some Street\nSome Town\nNot A Country", false)
	if a.International() {
		t.Error("unrecognised last line should fall back to UK")
	}
	if a.Valid() {
		t.Error("last line is neither a postcode nor a country")
	}
}

func TestValidity(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want bool
	}{
		{"complete UK address", "10 Downing Street\nLondon\nSW1A 2AA", true},
		{"too few lines", "10 Downing Street\nSW1A 2AA", false},
		{"too many lines", "a\nb\nc\nd\ne\nf\ng\nSW1A 2AA", false},
		{"no postcode", "10 Downing Street\nLondon\nFake Town", false},
		{"invalid leading character", "(c/o John Smith)\n10 Downing Street\nLondon\nSW1A 2AA", false},
		{"empty", "", false},
		{"seven lines", "a\nb\nc\nd\ne\nf\nSW1A 2AA", true},
		{"three lines exactly", "a\nb\nSW1A 2AA", true},
	}

	for _, tt := range tests {
		if got := NewAddress(tt.raw, false).Valid(); got != tt.want {
			t.Errorf("%s: Valid() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestInvalidLeadingCharacters(t *testing.T) {
	for _, c := range strings.Split(`[ \ / ( ) @ ] < > " , = ~`, " ") {
		a := NewAddress(c+"line one\nline two\nSW1A 2AA", false)
		if !a.HasInvalidCharacters() {
			t.Errorf("line starting %q should be flagged", c)
		}
	}
	if NewAddress("fine line\nline two\nSW1A 2AA", false).HasInvalidCharacters() {
		t.Error("ordinary lines should not be flagged")
	}
}

func TestAsPersonalisation(t *testing.T) {
	a := NewAddress("12 Acacia Avenue\nBirmingham\nb17tj", false)
	want := map[string]string{
		"address_line_1": "12 Acacia Avenue",
		"address_line_2": "Birmingham",
		"address_line_3": "",
		"address_line_4": "",
		"address_line_5": "",
		"address_line_6": "",
		"postcode":       "B1 7TJ",
		"address_line_7": "B1 7TJ",
	}
	if got := a.AsPersonalisation(); !reflect.DeepEqual(got, want) {
		t.Errorf("AsPersonalisation() = %v, want %v", got, want)
	}
}

func TestLineCount(t *testing.T) {
	if got := NewAddress("", false).LineCount(); got != 0 {
		t.Errorf("empty address LineCount() = %d, want 0", got)
	}
	if got := NewAddress("a\nb\nSW1A 2AA", false).LineCount(); got != 3 {
		t.Errorf("LineCount() = %d, want 3", got)
	}
}

func TestPostcodeCacheStaysCorrectUnderEviction(t *testing.T) {
	postcodes := []string{
		"SW1A 2AA", "M2 5PD", "B1 7TJ", "E1 6AN", "N1 7LH",
		"L1 8JQ", "G1 2FF", "EH1 1YZ", "CF10 1EP", "BT1 5GS",
	}
	for i := 0; i < 3; i++ {
		for _, pc := range postcodes {
			a := NewAddress("1 Some Street\nSome Town\n"+pc, false)
			got, ok := a.Postcode()
			if !ok || got != pc {
				t.Fatalf("Postcode() for %q = %q, %v", pc, got, ok)
			}
		}
	}
}
