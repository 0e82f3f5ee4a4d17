// Package recipients ingests uploaded sheets of message recipients. It
// parses CSV text against a template, validates every phone number, email
// address or postal address it finds, and reports everything a sender has
// to fix before the sheet can be sent.
package recipients

import (
	"encoding/csv"
	"errors"
	"math"
	"strings"

	"github.com/ignite/recipient-engine/internal/email"
	"github.com/ignite/recipient-engine/internal/insensitive"
	"github.com/ignite/recipient-engine/internal/phone"
	"github.com/ignite/recipient-engine/internal/pkg/textutil"
	"github.com/ignite/recipient-engine/internal/postal"
	"github.com/ignite/recipient-engine/internal/template"
)

// ErrTemplateRequired is returned by New when no template is given. The
// template decides the recipient columns and placeholders, so nothing can
// be parsed without one.
var ErrTemplateRequired = errors.New("template is required")

var (
	emailColumnHeadings = []string{"email address"}
	smsColumnHeadings   = []string{"phone number"}

	// letterColumnHeadings spells the address keys the way sheets write
	// them: "address line 1" through "address line 6", "postcode" and
	// "address line 7".
	letterColumnHeadings = buildLetterColumnHeadings()

	// addressColumns matches any spelling of the letter address headings.
	addressColumns = insensitive.FromKeys(letterColumnHeadings)
)

func buildLetterColumnHeadings() []string {
	keys := append([]string{}, postal.AddressLines1To6AndPostcodeKeys...)
	keys = append(keys, postal.AddressLine7Key)
	for i, key := range keys {
		keys[i] = strings.ReplaceAll(key, "_", " ")
	}
	return keys
}

func recipientColumnHeadings(t template.Type) []string {
	switch t {
	case template.TypeSMS:
		return smsColumnHeadings
	case template.TypeLetter:
		return letterColumnHeadings
	}
	return emailColumnHeadings
}

const (
	defaultMaxErrorsShown      = 20
	defaultMaxInitialRowsShown = 10
	defaultMaxRows             = 100_000
)

// Options tune an ingestion session. Zero values mean the defaults: show
// up to 20 errors and 10 initial rows, cap sheets at 100,000 rows, no send
// budget, UK numbers and addresses only, full validation.
type Options struct {
	MaxErrorsShown      int
	MaxInitialRowsShown int
	MaxRows             int

	// RemainingMessages is how many messages the sender may still send.
	// Zero or negative means unlimited.
	RemainingMessages int

	// Guestlist restricts who can be sent to. Empty means unrestricted.
	Guestlist []string

	AllowInternationalSMS     bool
	AllowInternationalLetters bool

	// SkipValidation parses rows without validating them, for callers
	// that only need the data.
	SkipValidation bool
}

// RecipientCSV owns one uploaded sheet: the raw text, the template it is
// for, and every error view over the parsed rows. Rows are parsed and
// validated once, on first use, and cached so counts and error flags stay
// consistent for the whole review cycle. Instances are not safe for
// concurrent use.
type RecipientCSV struct {
	fileData     string
	tmpl         template.Template
	templateType template.Type

	maxErrorsShown      int
	maxInitialRowsShown int
	maxRows             int
	remainingMessages   int

	guestlist                 []string
	allowInternationalSMS     bool
	allowInternationalLetters bool
	validate                  bool

	recipientColumnHeaders []string // display spellings, e.g. "email address"
	recipientColumnKeys    []string
	placeholders           []string // template placeholders plus recipient headers
	placeholderKeys        []string

	rawHeaders []string
	rows       []*Row
	rowsBuilt  bool
}

// New builds an ingestion session for fileData against tmpl.
func New(fileData string, tmpl template.Template, opts Options) (*RecipientCSV, error) {
	if tmpl == nil {
		return nil, ErrTemplateRequired
	}

	c := &RecipientCSV{
		fileData:                  textutil.StripAll(fileData, ","),
		tmpl:                      tmpl,
		templateType:              tmpl.Type(),
		maxErrorsShown:            opts.MaxErrorsShown,
		maxInitialRowsShown:       opts.MaxInitialRowsShown,
		maxRows:                   opts.MaxRows,
		remainingMessages:         opts.RemainingMessages,
		guestlist:                 opts.Guestlist,
		allowInternationalSMS:     opts.AllowInternationalSMS,
		allowInternationalLetters: opts.AllowInternationalLetters,
		validate:                  !opts.SkipValidation,
	}

	if c.maxErrorsShown <= 0 {
		c.maxErrorsShown = defaultMaxErrorsShown
	}
	if c.maxInitialRowsShown <= 0 {
		c.maxInitialRowsShown = defaultMaxInitialRowsShown
	}
	if c.maxRows <= 0 {
		c.maxRows = defaultMaxRows
	}
	if c.remainingMessages <= 0 {
		c.remainingMessages = math.MaxInt
	}

	c.recipientColumnHeaders = recipientColumnHeadings(c.templateType)
	c.recipientColumnKeys = insensitive.Keys(c.recipientColumnHeaders)
	c.placeholders = append(append([]string{}, tmpl.Placeholders()...), c.recipientColumnHeaders...)
	c.placeholderKeys = insensitive.Keys(c.placeholders)

	c.rawHeaders = c.readHeaders()

	return c, nil
}

func (c *RecipientCSV) reader() *csv.Reader {
	r := csv.NewReader(strings.NewReader(strings.TrimSpace(c.fileData)))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	return r
}

func (c *RecipientCSV) readHeaders() []string {
	record, err := c.reader().Read()
	if err != nil {
		return nil
	}
	return record
}

// Rows parses, validates and caches every data row on first call. Rows
// past the cap are nil placeholders; they count towards Len but are never
// validated.
func (c *RecipientCSV) Rows() []*Row {
	if !c.rowsBuilt {
		c.rows = c.buildRows()
		c.rowsBuilt = true
	}
	return c.rows
}

// Len is the number of data rows in the sheet, capped rows included.
func (c *RecipientCSV) Len() int { return len(c.Rows()) }

func (c *RecipientCSV) buildRows() []*Row {
	reader := c.reader()
	if _, err := reader.Read(); err != nil { // skip the header row
		return nil
	}

	var rows []*Row
	for index := 0; ; index++ {
		record, err := reader.Read()
		if err != nil {
			break
		}
		if index >= c.maxRows {
			rows = append(rows, nil)
			continue
		}
		rows = append(rows, c.buildRow(record, index))
	}
	return rows
}

// buildRow zips one record against the headers. Recipient columns hold a
// single value, other columns accumulate repeats into a list. Values past
// the headers are kept aside unvalidated; headers past the values are
// filled with nil.
func (c *RecipientCSV) buildRow(record []string, index int) *Row {
	headers := c.rawHeaders
	data := rowData{values: make(map[string]interface{})}

	n := len(headers)
	if len(record) < n {
		n = len(record)
	}

	for i := 0; i < n; i++ {
		var value interface{}
		if stripped := textutil.StripObscure(record[i]); stripped != "" {
			value = stripped
		}

		if keyIn(c.recipientColumnKeys, insensitive.Key(headers[i])) {
			data.set(headers[i], value)
		} else {
			data.insertOrAppend(headers[i], value)
		}
	}

	if len(record) > len(headers) {
		for _, value := range record[len(headers):] {
			data.extra = append(data.extra, value)
		}
	} else {
		for _, header := range headers[len(record):] {
			data.insertOrAppend(header, nil)
		}
	}

	return newRow(
		data,
		index,
		c.errorForField,
		c.recipientColumnHeaders,
		c.placeholderKeys,
		c.tmpl,
		c.allowInternationalLetters,
		c.validate,
	)
}

// rowData is a row under construction: values keyed by the exact header
// spelling, in header order, plus any values beyond the headers.
type rowData struct {
	keys   []string
	values map[string]interface{}
	extra  []interface{}
}

func (d *rowData) set(key string, value interface{}) {
	if _, seen := d.values[key]; !seen {
		d.keys = append(d.keys, key)
	}
	d.values[key] = value
}

// insertOrAppend stores value under key, accumulating a list when the key
// already holds something. Empty columns with no value are not recorded.
func (d *rowData) insertOrAppend(key string, value interface{}) {
	if key == "" && value == nil {
		return
	}

	existing, seen := d.values[key]
	if !seen || existing == nil || existing == "" {
		d.set(key, value)
		return
	}
	if list, ok := existing.([]interface{}); ok {
		d.values[key] = append(list, value)
		return
	}
	d.values[key] = []interface{}{existing, value}
}

// HasErrors reports whether anything at all is wrong with the sheet.
// Checks are ordered cheapest first.
func (c *RecipientCSV) HasErrors() bool {
	return len(c.MissingColumnHeaders()) > 0 ||
		len(c.DuplicateRecipientColumnHeaders()) > 0 ||
		c.MoreRowsThanCanSend() ||
		c.TooManyRows() ||
		!c.AllowedToSendTo() ||
		c.hasRowErrors()
}

func (c *RecipientCSV) hasRowErrors() bool {
	for _, row := range c.Rows() {
		if row != nil && row.HasError() {
			return true
		}
	}
	return false
}

// TooManyRows reports whether the sheet is over the hard row cap.
func (c *RecipientCSV) TooManyRows() bool { return c.Len() > c.maxRows }

// MoreRowsThanCanSend reports whether the sheet is over the sender's
// remaining message budget.
func (c *RecipientCSV) MoreRowsThanCanSend() bool { return c.Len() > c.remainingMessages }

// AllowedToSendTo reports whether every recipient is on the guestlist.
// Letters are never restricted, nor is an empty guestlist.
func (c *RecipientCSV) AllowedToSendTo() bool {
	if c.templateType == template.TypeLetter {
		return true
	}
	if len(c.guestlist) == 0 {
		return true
	}
	for _, row := range c.Rows() {
		if row == nil {
			continue
		}
		if !AllowedToSendTo(row.Recipient(), c.guestlist) {
			return false
		}
	}
	return true
}

// ColumnHeaders returns the header row with exact duplicates removed,
// spelling preserved.
func (c *RecipientCSV) ColumnHeaders() []string {
	out := make([]string, 0, len(c.rawHeaders))
	seen := make(map[string]bool)
	for _, header := range c.rawHeaders {
		if seen[header] {
			continue
		}
		seen[header] = true
		out = append(out, header)
	}
	return out
}

func (c *RecipientCSV) columnHeaderKeys() []string {
	return insensitive.FromKeys(c.rawHeaders).Keys()
}

// MissingColumnHeaders lists the required columns the sheet does not have:
// recipient columns and template placeholders, except letter address
// columns, which HasRecipientColumns checks as a group.
func (c *RecipientCSV) MissingColumnHeaders() []string {
	headerKeys := c.columnHeaderKeys()

	var missing []string
	seen := make(map[string]bool)
	for _, placeholder := range c.placeholders {
		if seen[placeholder] {
			continue
		}
		if keyIn(headerKeys, insensitive.Key(placeholder)) || c.isAddressColumn(placeholder) {
			continue
		}
		seen[placeholder] = true
		missing = append(missing, placeholder)
	}
	return missing
}

// DuplicateRecipientColumnHeaders lists the header spellings whose
// insensitive key appears more than once among the recipient columns.
func (c *RecipientCSV) DuplicateRecipientColumnHeaders() []string {
	counts := make(map[string]int)
	for _, header := range c.rawHeaders {
		if key := insensitive.Key(header); keyIn(c.recipientColumnKeys, key) {
			counts[key]++
		}
	}

	var duplicates []string
	seen := make(map[string]bool)
	for _, header := range c.rawHeaders {
		if seen[header] || counts[insensitive.Key(header)] < 2 {
			continue
		}
		seen[header] = true
		duplicates = append(duplicates, header)
	}
	return duplicates
}

func (c *RecipientCSV) isAddressColumn(key string) bool {
	return c.templateType == template.TypeLetter && addressColumns.Contains(key)
}

func (c *RecipientCSV) countOfRequiredRecipientColumns() int {
	if c.templateType == template.TypeLetter {
		return 3
	}
	return 1
}

// HasRecipientColumns reports whether the sheet can address anyone at all:
// a recipient column for email and sms, at least three address columns for
// letters, in either the postcode or the single-last-line layout.
func (c *RecipientCSV) HasRecipientColumns() bool {
	var setsToCheck [][]string
	if c.templateType == template.TypeLetter {
		setsToCheck = [][]string{
			insensitive.Keys(postal.AddressLines1To6AndPostcodeKeys),
			insensitive.Keys(postal.AddressLines1To7Keys),
		}
	} else {
		setsToCheck = [][]string{c.recipientColumnKeys}
	}

	headerKeys := c.columnHeaderKeys()
	for _, required := range setsToCheck {
		shared := 0
		for _, key := range required {
			if keyIn(headerKeys, key) {
				shared++
			}
		}
		if shared >= c.countOfRequiredRecipientColumns() {
			return true
		}
	}
	return false
}

func (c *RecipientCSV) filterRows(match func(*Row) bool) []*Row {
	var out []*Row
	for _, row := range c.Rows() {
		if row != nil && match(row) {
			out = append(out, row)
		}
	}
	return out
}

// RowsWithErrors returns every parsed row that has any problem.
func (c *RecipientCSV) RowsWithErrors() []*Row {
	return c.filterRows(func(r *Row) bool { return r.HasError() })
}

func (c *RecipientCSV) RowsWithBadRecipients() []*Row {
	return c.filterRows(func(r *Row) bool { return r.HasBadRecipient() })
}

func (c *RecipientCSV) RowsWithMissingData() []*Row {
	return c.filterRows(func(r *Row) bool { return r.HasMissingData() })
}

func (c *RecipientCSV) RowsWithMessageTooLong() []*Row {
	return c.filterRows(func(r *Row) bool { return r.MessageTooLong() })
}

func (c *RecipientCSV) RowsWithEmptyMessage() []*Row {
	return c.filterRows(func(r *Row) bool { return r.MessageEmpty() })
}

func (c *RecipientCSV) RowsWithBadQRCodes() []*Row {
	return c.filterRows(func(r *Row) bool { return r.QRCodeTooLong() != nil })
}

// InitialRows returns the first rows of the sheet for preview, nil
// placeholders included.
func (c *RecipientCSV) InitialRows() []*Row {
	rows := c.Rows()
	if len(rows) > c.maxInitialRowsShown {
		rows = rows[:c.maxInitialRowsShown]
	}
	return rows
}

// InitialRowsWithErrors returns the first rows with errors, capped at the
// number worth showing at once.
func (c *RecipientCSV) InitialRowsWithErrors() []*Row {
	rows := c.RowsWithErrors()
	if len(rows) > c.maxErrorsShown {
		rows = rows[:c.maxErrorsShown]
	}
	return rows
}

// DisplayedRows picks what an upload preview shows: the erroring rows when
// there are any and the headers are usable, the first rows otherwise.
func (c *RecipientCSV) DisplayedRows() []*Row {
	if c.hasRowErrors() && len(c.MissingColumnHeaders()) == 0 {
		return c.InitialRowsWithErrors()
	}
	return c.InitialRows()
}

// errorForField validates one cell. Address columns are skipped here and
// validated whole at the row level.
func (c *RecipientCSV) errorForField(key string, value interface{}) string {
	if c.isAddressColumn(key) {
		return ""
	}

	if keyIn(c.recipientColumnKeys, key) {
		if isEmptyOrList(value) {
			if len(c.DuplicateRecipientColumnHeaders()) > 0 {
				// The duplicate-header error already covers these cells.
				return ""
			}
			return MissingFieldError
		}
		if err := c.validateRecipient(value); err != nil {
			return err.Error()
		}
	}

	if !keyIn(c.placeholderKeys, key) {
		return ""
	}
	if value == nil || value == "" {
		return MissingFieldError
	}
	return ""
}

func (c *RecipientCSV) validateRecipient(value interface{}) error {
	s, _ := value.(string)
	switch c.templateType {
	case template.TypeEmail:
		_, err := email.Validate(s)
		return err
	case template.TypeSMS:
		_, err := phone.Validate(s, c.allowInternationalSMS)
		return err
	}
	return nil
}

func isEmptyOrList(value interface{}) bool {
	if value == nil || value == "" {
		return true
	}
	_, isList := value.([]interface{})
	return isList
}
