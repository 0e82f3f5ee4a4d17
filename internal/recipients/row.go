package recipients

import (
	"github.com/ignite/recipient-engine/internal/insensitive"
	"github.com/ignite/recipient-engine/internal/postal"
	"github.com/ignite/recipient-engine/internal/template"
)

// Row is one data row of a sheet: cells keyed insensitively by column name,
// plus the outcome of the row-level template checks. Rows built with
// validation disabled carry data only; every error flag stays false.
type Row struct {
	Index int

	cells *insensitive.Dict // column key -> Cell
	extra []interface{}     // values beyond the header row, unvalidated

	recipientColumnHeaders    []string
	placeholderKeys           []string
	allowInternationalLetters bool

	templateType   template.Type // "" when validation was skipped
	messageTooLong bool
	messageEmpty   bool
	qrCodeTooLong  *template.QRCodeError
}

func newRow(
	data rowData,
	index int,
	errorFn fieldErrorFunc,
	recipientColumnHeaders []string,
	placeholderKeys []string,
	tmpl template.Template,
	allowInternationalLetters bool,
	validateRow bool,
) *Row {
	// Skipping validation drops both the per-cell checks and the
	// template-level message checks.
	if !validateRow {
		tmpl = nil
		errorFn = nil
	}

	r := &Row{
		Index:                     index,
		cells:                     insensitive.NewDict(),
		extra:                     data.extra,
		recipientColumnHeaders:    recipientColumnHeaders,
		placeholderKeys:           placeholderKeys,
		allowInternationalLetters: allowInternationalLetters,
	}

	for _, key := range data.keys {
		r.cells.Set(key, newCell(insensitive.Key(key), data.values[key], errorFn, placeholderKeys))
	}

	if tmpl != nil {
		values := make(map[string]interface{})
		for _, name := range tmpl.Placeholders() {
			if cell, ok := r.cells.Get(name); ok {
				values[name] = cell.(Cell).Data
			}
		}
		tmpl.SetValues(values)

		r.templateType = tmpl.Type()
		// Email size is not checked per row to keep large sheets fast.
		if r.templateType != template.TypeEmail {
			r.messageTooLong = tmpl.IsMessageTooLong()
		}
		r.messageEmpty = tmpl.IsMessageEmpty()
		if letter, ok := tmpl.(*template.Letter); ok {
			r.qrCodeTooLong = letter.HasQRCodeWithTooMuchData()
		}
	}

	return r
}

// Get returns the cell for any spelling of a column name, or an empty Cell
// if the row has no such column.
func (r *Row) Get(key string) Cell {
	if v, ok := r.cells.Get(key); ok {
		return v.(Cell)
	}
	return Cell{}
}

// Len is the number of distinct columns in the row.
func (r *Row) Len() int { return r.cells.Len() }

// Keys returns the row's column keys in sheet order.
func (r *Row) Keys() []string { return r.cells.Keys() }

// Extra returns values from columns beyond the header row, if any.
func (r *Row) Extra() []interface{} { return r.extra }

func (r *Row) MessageTooLong() bool { return r.messageTooLong }

func (r *Row) MessageEmpty() bool { return r.messageEmpty }

func (r *Row) QRCodeTooLong() *template.QRCodeError { return r.qrCodeTooLong }

// HasError reports whether anything is wrong with the row, spanning checks
// included.
func (r *Row) HasError() bool {
	if r.HasErrorSpanningMultipleCells() {
		return true
	}
	for _, key := range r.cells.Keys() {
		if r.Get(key).Error != "" {
			return true
		}
	}
	return false
}

// HasErrorSpanningMultipleCells covers the checks that look at the whole
// message or address rather than a single cell.
func (r *Row) HasErrorSpanningMultipleCells() bool {
	return r.messageTooLong || r.messageEmpty || r.HasBadPostalAddress() || r.qrCodeTooLong != nil
}

// HasBadRecipient reports whether the destination itself is unusable.
func (r *Row) HasBadRecipient() bool {
	if r.templateType == template.TypeLetter {
		return r.HasBadPostalAddress()
	}
	if len(r.recipientColumnHeaders) == 0 {
		return false
	}
	return r.Get(r.recipientColumnHeaders[0]).RecipientError()
}

func (r *Row) HasBadPostalAddress() bool {
	return r.templateType == template.TypeLetter && !r.AsPostalAddress().Valid()
}

// HasMissingData reports whether any required cell is empty.
func (r *Row) HasMissingData() bool {
	for _, key := range r.cells.Keys() {
		if r.Get(key).Error == MissingFieldError {
			return true
		}
	}
	return false
}

// Recipient returns the destination value: a single value for email and
// sms, a list of address line values for letters.
func (r *Row) Recipient() interface{} {
	if len(r.recipientColumnHeaders) == 1 {
		return r.Get(r.recipientColumnHeaders[0]).Data
	}
	columns := make([]interface{}, len(r.recipientColumnHeaders))
	for i, header := range r.recipientColumnHeaders {
		columns[i] = r.Get(header).Data
	}
	return columns
}

// AsPostalAddress assembles the letter address from this row's values.
func (r *Row) AsPostalAddress() *postal.Address {
	return postal.FromPersonalisation(r.RecipientAndPersonalisation(), r.allowInternationalLetters)
}

// Personalisation returns the cells that feed template placeholders.
func (r *Row) Personalisation() *insensitive.Dict {
	d := insensitive.NewDict()
	r.cells.Each(func(key string, value interface{}) {
		if keyIn(r.placeholderKeys, key) {
			d.Set(key, value.(Cell).Data)
		}
	})
	return d
}

// RecipientAndPersonalisation returns every cell's data, keyed by column.
func (r *Row) RecipientAndPersonalisation() *insensitive.Dict {
	d := insensitive.NewDict()
	r.cells.Each(func(key string, value interface{}) {
		d.Set(key, value.(Cell).Data)
	})
	return d
}
