package core

// value.go defines the scalar stored in a row field.
//
// A field holds either text or a number. An absent field is simply missing
// from the row's Fields map; it displays and compares as an empty string.
//
// Values decode from the loose JSON the browser used to persist:
//   - strings stay text
//   - numbers become numbers
//   - booleans become the text "true"/"false"
//   - null is treated as absent by the Row decoder

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// numericRegex validates that a string is a plain numeric literal.
// Matches integers, decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// ValueKind distinguishes the two scalar kinds a field can hold.
type ValueKind int

const (
	KindText ValueKind = iota
	KindNumber
)

// Value is a single field value: text or a number.
// The zero Value is empty text.
type Value struct {
	kind ValueKind
	text string
	num  float64
}

// Text returns a text value.
func Text(s string) Value {
	return Value{kind: KindText, text: s}
}

// Number returns a numeric value.
func Number(f float64) Value {
	return Value{kind: KindNumber, num: f}
}

// Kind reports whether v is text or a number.
func (v Value) Kind() ValueKind {
	return v.kind
}

// IsNumber reports whether v was stored as a number.
func (v Value) IsNumber() bool {
	return v.kind == KindNumber
}

// String renders v the way it is displayed, searched and exported.
// Numbers drop trailing zeros: 28, 3.5.
func (v Value) String() string {
	if v.kind == KindNumber {
		return formatNumber(v.num)
	}
	return v.text
}

// Float returns the numeric reading of v.
// Text that is a plain numeric literal counts as numeric.
func (v Value) Float() (float64, bool) {
	if v.kind == KindNumber {
		return v.num, true
	}
	return ParseNumber(v.text)
}

// Equal reports whether two values have the same kind and content.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	if v.kind == KindNumber {
		return v.num == o.num
	}
	return v.text == o.text
}

// MarshalJSON encodes numbers as JSON numbers and text as JSON strings.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.kind == KindNumber {
		if math.IsNaN(v.num) || math.IsInf(v.num, 0) {
			return json.Marshal(formatNumber(v.num))
		}
		return []byte(strconv.FormatFloat(v.num, 'f', -1, 64)), nil
	}
	return json.Marshal(v.text)
}

// UnmarshalJSON accepts strings, numbers and booleans.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("value: empty input")
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("value: %w", err)
		}
		*v = Text(s)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return fmt.Errorf("value: %w", err)
		}
		*v = Text(strconv.FormatBool(b))
	case 'n':
		*v = Value{}
	default:
		f, err := strconv.ParseFloat(string(data), 64)
		if err != nil {
			return fmt.Errorf("value: invalid number %s", data)
		}
		*v = Number(f)
	}
	return nil
}

// ParseNumber reports whether s is a plain numeric literal and returns it.
// Leading and trailing whitespace is ignored; anything else (currency
// symbols, thousands separators, words) makes s text.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || !numericRegex.MatchString(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
