package email

import (
	"errors"
	"strings"
	"testing"
)

var validEmailAddresses = []string{
	"email@domain.com",
	"email@domain.COM",
	"firstname.lastname@domain.com",
	"firstname.o'lastname@domain.com",
	"email@subdomain.domain.com",
	"firstname+lastname@domain.com",
	"1234567890@domain.com",
	"email@domain-one.com",
	"_______@domain.com",
	"email@domain.name",
	"email@domain.superlongtld",
	"email@domain.co.jp",
	"firstname-lastname@domain.com",
	"info@german-financial-services.vermögensberatung",
	"info@german-financial-services.reallylongarbitrarytldthatiswaytoohugejustincase",
	"japanese-info@例え.テスト",
	"email@double--hyphen.com",
}

var invalidEmailAddresses = []string{
	"email@123.123.123.123",
	"email@[123.123.123.123]",
	"plainaddress",
	"@no-local-part.com",
	"Outlook Contact <outlook-contact@domain.com>",
	"no-at.domain.com",
	"no-tld@domain",
	";beginning-semicolon@domain.co.uk",
	"middle-semicolon@domain.co;uk",
	"trailing-semicolon@domain.com;",
	`"email+leading-quotes@domain.com`,
	`email+middle"-quotes@domain.com`,
	`"quoted-local-part"@domain.com`,
	`"quoted@domain.com"`,
	"lots-of-dots@domain..gov..uk",
	"two-dots..in-local@domain.com",
	"multiple@domains@domain.com",
	"spaces in local@domain.com",
	"spaces-in-domain@dom ain.com",
	"underscores-in-domain@dom_ain.com",
	"pipe-in-domain@example.com|gov.uk",
	"comma,in-local@gov.uk",
	"comma-in-domain@domain,gov.uk",
	"pound-sign-in-local£@domain.com",
	"local-with-’-apostrophe@domain.com",
	"local-with-”-quotes@domain.com",
	"domain-starts-with-a-dot@.domain.com",
	"brackets(in)local@domain.com",
	"incorrect-punycode@xn---something.com",
}

func TestValidateAcceptsValidAddresses(t *testing.T) {
	for _, address := range validEmailAddresses {
		got, err := Validate(address)
		if err != nil {
			t.Errorf("Validate(%q) returned error %v", address, err)
			continue
		}
		if want := strings.ToLower(address); got != want {
			t.Errorf("Validate(%q) = %q, want %q", address, got, want)
		}
	}
}

func TestValidateRejectsInvalidAddresses(t *testing.T) {
	cases := append([]string{}, invalidEmailAddresses...)
	cases = append(cases, "email-too-long-"+strings.Repeat("a", 320)+"@example.com")

	for _, address := range cases {
		if _, err := Validate(address); !errors.Is(err, ErrInvalidAddress) {
			t.Errorf("Validate(%q) = %v, want ErrInvalidAddress", address, err)
		}
	}
}

func TestValidateStripsWhitespace(t *testing.T) {
	for _, address := range []string{
		" email@domain.com ",
		"\temail@domain.com",
		"\temail@domain.com\n",
		"​email@domain.com​",
	} {
		got, err := Validate(address)
		if err != nil {
			t.Fatalf("Validate(%q) returned error %v", address, err)
		}
		if got != "email@domain.com" {
			t.Errorf("Validate(%q) = %q, want %q", address, got, "email@domain.com")
		}
	}
}

func TestValidateLowercases(t *testing.T) {
	got, err := Validate("TeSt@ExAmPl3.com")
	if err != nil {
		t.Fatal(err)
	}
	if got != "test@exampl3.com" {
		t.Errorf("got %q, want %q", got, "test@exampl3.com")
	}
}

func TestErrInvalidAddressMessage(t *testing.T) {
	if got := ErrInvalidAddress.Error(); got != "Not a valid email address" {
		t.Errorf("got %q", got)
	}
}
