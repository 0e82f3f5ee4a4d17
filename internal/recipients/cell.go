package recipients

// MissingFieldError marks a cell whose column requires a value it does not have.
const MissingFieldError = "Missing"

// fieldErrorFunc validates one (column, value) pair. An empty string means
// the value is fine.
type fieldErrorFunc func(key string, value interface{}) string

// Cell is one column's value within a row, along with its validation
// outcome. Error is "" when the value passed; Ignore marks columns that are
// neither recipient columns nor known placeholders.
type Cell struct {
	Data   interface{}
	Error  string
	Ignore bool
}

func newCell(key string, value interface{}, errorFn fieldErrorFunc, placeholderKeys []string) Cell {
	c := Cell{
		Data:   value,
		Ignore: !keyIn(placeholderKeys, key),
	}
	if errorFn != nil {
		c.Error = errorFn(key, value)
	}
	return c
}

// RecipientError reports whether the cell failed recipient validation, as
// opposed to merely being empty.
func (c Cell) RecipientError() bool {
	return c.Error != "" && c.Error != MissingFieldError
}

func keyIn(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}
