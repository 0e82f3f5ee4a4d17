package phone

// Code identifies the closed set of reasons a phone number can fail
// validation. Codes are stable API; messages are display copy.
type Code string

const (
	CodeInvalidNumber          Code = "invalid_number"
	CodeTooLong                Code = "too_long"
	CodeTooShort               Code = "too_short"
	CodeNotAUKMobile           Code = "not_a_uk_mobile"
	CodeUnknownCharacter       Code = "unknown_character"
	CodeUnsupportedCountryCode Code = "unsupported_country_code"
)

var messages = map[Code]string{
	CodeInvalidNumber:          "Number is not valid – double check the phone number you entered",
	CodeTooLong:                "Mobile number is too long",
	CodeTooShort:               "Mobile number is too short",
	CodeNotAUKMobile:           "This does not look like a UK mobile number – double check the mobile number you entered",
	CodeUnknownCharacter:       "Mobile numbers can only include: 0 1 2 3 4 5 6 7 8 9 ( ) + -",
	CodeUnsupportedCountryCode: "Country code not found - double check the mobile number you entered",
}

// ValidationError is a typed validation failure. It is a comparable value,
// so errors.Is(err, ValidationError{Code: CodeTooLong}) works directly.
type ValidationError struct {
	Code Code
}

func (e ValidationError) Error() string {
	return messages[e.Code]
}

// Message returns the display copy for a code.
func Message(code Code) string {
	return messages[code]
}
