// Package template models message content for each channel using the
// Liquid template language. Row validation asks a template whether the
// filled-in message is empty, too long, or carries a QR code with more
// data than can be printed legibly.
package template

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/osteele/liquid"
)

// Type identifies the channel a template sends through.
type Type string

const (
	TypeEmail  Type = "email"
	TypeSMS    Type = "sms"
	TypeLetter Type = "letter"
)

const (
	// SMSCharCountLimit is the most characters a text message can carry.
	SMSCharCountLimit = 918

	// maxEmailBytes caps the size of a rendered email body.
	maxEmailBytes = 2_000_000

	// QRCodeMaxBytes is the most data a printed QR code can hold and
	// still scan reliably at medium error correction.
	QRCodeMaxBytes = 504
)

// Template is the surface row validation needs from any channel's content.
type Template interface {
	Type() Type
	Placeholders() []string
	SetValues(values map[string]interface{})
	IsMessageTooLong() bool
	IsMessageEmpty() bool
}

// QRCodeError reports a QR code paragraph whose data exceeds QRCodeMaxBytes.
type QRCodeError struct {
	NumBytes int    `json:"num_bytes"`
	MaxBytes int    `json:"max_bytes"`
	Data     string `json:"data"`
}

func (e *QRCodeError) Error() string {
	return fmt.Sprintf("Too much data for QR code (num_bytes=%d, max_bytes=%d)", e.NumBytes, e.MaxBytes)
}

var (
	engine = newEngine()
	parsed sync.Map // map[string]*liquid.Template

	// varPattern matches {{ var }}, {{ var | filter }} and {{ var.nested }}.
	varPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z_][a-zA-Z0-9_.]*?)(?:\s*\||\s*\}\})`)

	qrParagraphPattern = regexp.MustCompile(`(?i)^\s*qr\s*:\s*(.+)`)
)

func newEngine() *liquid.Engine {
	e := liquid.NewEngine()

	// {{ first_name | default: "Friend" }}
	e.RegisterFilter("default", func(value interface{}, defaultVal string) interface{} {
		if value == nil {
			return defaultVal
		}
		strVal := fmt.Sprintf("%v", value)
		if strVal == "" || strVal == "<nil>" {
			return defaultVal
		}
		return value
	})

	return e
}

// render fills content with values. Parse and render failures fall back to
// the raw content so a malformed template never loses the message.
func render(content string, values map[string]interface{}) string {
	if content == "" {
		return ""
	}

	var tpl *liquid.Template
	if cached, ok := parsed.Load(content); ok {
		tpl = cached.(*liquid.Template)
	} else {
		compiled, err := engine.ParseString(content)
		if err != nil {
			return content
		}
		parsed.Store(content, compiled)
		tpl = compiled
	}

	out, err := tpl.RenderString(values)
	if err != nil {
		return content
	}
	return out
}

// scanPlaceholders returns the variable names used in content, first use
// first, Liquid keywords excluded.
func scanPlaceholders(content string) []string {
	var names []string
	seen := make(map[string]bool)

	for _, match := range varPattern.FindAllStringSubmatch(content, -1) {
		name := strings.TrimSpace(match[1])
		if seen[name] || isLiquidKeyword(name) {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}

	return names
}

func isLiquidKeyword(name string) bool {
	switch strings.ToLower(name) {
	case "if", "elsif", "else", "endif",
		"unless", "endunless",
		"case", "when", "endcase",
		"for", "endfor", "break", "continue",
		"assign", "capture", "endcapture",
		"comment", "endcomment", "raw", "endraw",
		"forloop", "empty", "blank",
		"true", "false", "nil", "null",
		"and", "or", "not", "contains", "in":
		return true
	}
	return false
}

// base carries the content and per-row values shared by every channel.
type base struct {
	content      string
	placeholders []string
	values       map[string]interface{}
}

func (b *base) Placeholders() []string { return b.placeholders }

func (b *base) SetValues(values map[string]interface{}) { b.values = values }

func (b *base) rendered() string {
	return strings.TrimSpace(render(b.content, b.values))
}

// IsMessageEmpty reports whether the filled-in content is blank. Content
// that does not both start and end with a placeholder can never be empty,
// which skips rendering for the common case.
func (b *base) IsMessageEmpty() bool {
	if b.content == "" {
		return true
	}
	if !strings.HasPrefix(b.content, "{{") || !strings.HasSuffix(b.content, "}}") {
		return false
	}
	return b.rendered() == ""
}

// SMS is a text message template.
type SMS struct {
	base
}

func NewSMS(content string) *SMS {
	return &SMS{base{content: content, placeholders: scanPlaceholders(content)}}
}

func (t *SMS) Type() Type { return TypeSMS }

func (t *SMS) IsMessageTooLong() bool {
	return utf8.RuneCountInString(t.rendered()) > SMSCharCountLimit
}

// Email is an email template with a subject line and a body.
type Email struct {
	base
	subject string
}

func NewEmail(subject, content string) *Email {
	t := &Email{base: base{content: content}, subject: subject}
	names := scanPlaceholders(subject)
	for _, name := range scanPlaceholders(content) {
		if !contains(names, name) {
			names = append(names, name)
		}
	}
	t.placeholders = names
	return t
}

func (t *Email) Type() Type { return TypeEmail }

func (t *Email) Subject() string { return t.subject }

func (t *Email) IsMessageTooLong() bool {
	return len(t.rendered()) > maxEmailBytes
}

// Letter is a printed letter template.
type Letter struct {
	base
}

func NewLetter(content string) *Letter {
	return &Letter{base{content: content, placeholders: scanPlaceholders(content)}}
}

func (t *Letter) Type() Type { return TypeLetter }

func (t *Letter) IsMessageTooLong() bool { return false }

// HasQRCodeWithTooMuchData checks the first QR paragraph of the filled-in
// letter, if any, against QRCodeMaxBytes.
func (t *Letter) HasQRCodeWithTooMuchData() *QRCodeError {
	for _, paragraph := range strings.Split(t.rendered(), "\n") {
		match := qrParagraphPattern.FindStringSubmatch(paragraph)
		if match == nil {
			continue
		}
		data := match[1]
		if len(data) > QRCodeMaxBytes {
			return &QRCodeError{NumBytes: len(data), MaxBytes: QRCodeMaxBytes, Data: data}
		}
		return nil
	}
	return nil
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
