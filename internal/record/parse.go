package record

import (
	"fmt"
	"strconv"
	"strings"
)

// NumberFormat controls locale handling when coercing text to numbers.
type NumberFormat struct {
	// DecimalSeparator; if 0, auto-detect per value.
	DecimalSeparator rune
	// ThousandsSeparator; if 0, strip the common separators (',' '.' space) that differ from the decimal.
	ThousandsSeparator rune
}

// ParseValue coerces a raw cell into a Value. Numeric Go kinds pass through,
// strings are parsed with auto-detected separators, and anything else
// (nil, empty, unparseable) becomes missing.
func ParseValue(raw any) Value {
	return NumberFormat{}.Parse(raw)
}

// Parse coerces raw using the configured separators.
func (nf NumberFormat) Parse(raw any) Value {
	switch x := raw.(type) {
	case nil:
		return Missing()
	case Value:
		return x
	case float64:
		return Some(x)
	case float32:
		return Some(float64(x))
	case int:
		return Some(float64(x))
	case int8:
		return Some(float64(x))
	case int16:
		return Some(float64(x))
	case int32:
		return Some(float64(x))
	case int64:
		return Some(float64(x))
	case uint:
		return Some(float64(x))
	case uint8:
		return Some(float64(x))
	case uint16:
		return Some(float64(x))
	case uint32:
		return Some(float64(x))
	case uint64:
		return Some(float64(x))
	case string:
		if f, ok := nf.parseString(x); ok {
			return Some(f)
		}
		return Missing()
	case fmt.Stringer:
		return nf.Parse(x.String())
	}
	return Missing()
}

func (nf NumberFormat) parseString(s string) (float64, bool) {
	raw := strings.TrimSpace(strings.Map(func(r rune) rune {
		switch r {
		case '%':
			return -1
		case '\u00A0', '\u3000':
			return ' '
		}
		return r
	}, s))
	if raw == "" {
		return 0, false
	}
	var num string
	var ok bool
	if nf.DecimalSeparator != 0 {
		num, ok = nf.canonical(raw)
	} else {
		num, ok = detect(raw)
	}
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// canonical rewrites raw with the configured separators into Go float
// syntax. With no thousands separator set, every common separator other than
// the decimal one is dropped.
func (nf NumberFormat) canonical(raw string) (string, bool) {
	dec, thou := nf.DecimalSeparator, nf.ThousandsSeparator
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r == dec:
			b.WriteByte('.')
		case r == thou:
		case thou == 0 && (r == ',' || r == '.' || r == ' '):
		default:
			b.WriteRune(r)
		}
	}
	return b.String(), true
}

// detect infers separators from raw alone. When both ',' and '.' occur the
// rightmost is the decimal point. A value with only one kind of separator is
// read as digit grouping when every group after the first has three digits;
// a single '.' is a decimal point. Anything else, such as "3,5", is ambiguous
// and rejected.
func detect(raw string) (string, bool) {
	raw = strings.ReplaceAll(raw, " ", "")
	c := strings.LastIndexByte(raw, ',')
	d := strings.LastIndexByte(raw, '.')
	switch {
	case c >= 0 && d >= 0:
		point, group := byte('.'), ","
		if c > d {
			point, group = ',', "."
		}
		at := max(c, d)
		intPart, frac := raw[:at], raw[at+1:]
		if strings.ContainsAny(frac, ",.") {
			return "", false
		}
		digits, ok := ungroup(intPart, group)
		if !ok || strings.IndexByte(digits, point) >= 0 {
			return "", false
		}
		return digits + "." + frac, true
	case c >= 0:
		return ungroup(raw, ",")
	case d >= 0 && strings.Count(raw, ".") > 1:
		return ungroup(raw, ".")
	}
	return raw, true
}

// ungroup strips sep from s when it splits an optionally signed integer into
// a 1-3 digit lead group followed by groups of exactly three digits.
func ungroup(s, sep string) (string, bool) {
	if !strings.Contains(s, sep) {
		return s, true
	}
	body := strings.TrimLeft(s, "+-")
	sign := s[:len(s)-len(body)]
	groups := strings.Split(body, sep)
	for i, g := range groups {
		if !allDigits(g) || (i == 0 && len(g) > 3) || (i > 0 && len(g) != 3) {
			return "", false
		}
	}
	return sign + strings.Join(groups, ""), true
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// categorical turns a raw cell into a trimmed string.
func categorical(raw any) string {
	switch x := raw.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	return strings.TrimSpace(fmt.Sprint(raw))
}
