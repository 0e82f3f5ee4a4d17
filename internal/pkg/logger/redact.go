package logger

import "strings"

// RedactEmail masks an email address for safe logging.
// "john.doe@example.com" → "jo***@example.com"
// Short local parts (≤2 chars) are fully masked: "ab@example.com" → "***@example.com"
func RedactEmail(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return "***@***"
	}
	name := parts[0]
	if len(name) > 2 {
		return name[:2] + "***@" + parts[1]
	}
	return "***@" + parts[1]
}

// RedactPhone masks a phone number for safe logging, keeping the last three
// digits: "447700900123" → "*********123"
func RedactPhone(number string) string {
	if len(number) <= 3 {
		return "***"
	}
	return strings.Repeat("*", len(number)-3) + number[len(number)-3:]
}
