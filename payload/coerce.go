package payload

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xraph/filer/catalog"
)

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"02/01/2006",
}

// coerce converts a business value to the representation its kind renders as.
func coerce(kind catalog.Kind, v any) (any, error) {
	switch kind {
	case catalog.KindIdentifier:
		return coerceIdentifier(v)
	case catalog.KindDate:
		t, err := coerceTime(v)
		if err != nil {
			return nil, err
		}
		return t.Format("2006-01-02"), nil
	case catalog.KindPeriod:
		return coercePeriod(v)
	case catalog.KindMoney:
		return coerceMoney(v)
	case catalog.KindCode:
		s, err := coerceString(v)
		if err != nil {
			return nil, err
		}
		return strings.ReplaceAll(strings.ToUpper(s), " ", "_"), nil
	case catalog.KindInteger:
		return coerceInteger(v)
	case catalog.KindBool:
		return coerceBool(v)
	default:
		return coerceString(v)
	}
}

func coerceString(v any) (string, error) {
	var s string
	switch x := v.(type) {
	case string:
		s = x
	case fmt.Stringer:
		s = x.String()
	case json.Number:
		s = x.String()
	case int, int32, int64, uint, uint32, uint64, float32, float64, bool:
		s = fmt.Sprint(x)
	default:
		return "", fmt.Errorf("unsupported value of type %T", v)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("empty value")
	}
	return s, nil
}

// Identifier returns only the digits of s. Registration numbers are often
// written with punctuation ("123.456.789-01").
func Identifier(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func coerceIdentifier(v any) (string, error) {
	s, err := coerceString(v)
	if err != nil {
		return "", err
	}
	id := Identifier(s)
	if id == "" {
		return "", fmt.Errorf("%q contains no digits", s)
	}
	return id, nil
}

func coerceTime(v any) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		if x.IsZero() {
			return time.Time{}, fmt.Errorf("zero time")
		}
		return x, nil
	case *time.Time:
		if x == nil || x.IsZero() {
			return time.Time{}, fmt.Errorf("zero time")
		}
		return *x, nil
	}

	s, err := coerceString(v)
	if err != nil {
		return time.Time{}, err
	}
	for _, layout := range dateLayouts {
		if t, parseErr := time.Parse(layout, s); parseErr == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%q is not a date", s)
}

func coercePeriod(v any) (string, error) {
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		if t, err := time.Parse("2006-01", s); err == nil {
			return t.Format("2006-01"), nil
		}
	}
	t, err := coerceTime(v)
	if err != nil {
		return "", err
	}
	return t.Format("2006-01"), nil
}

// coerceMoney renders an amount with exactly two decimals. Amounts are
// handled as integer cents; a value that needs rounding is rejected.
func coerceMoney(v any) (string, error) {
	var (
		cents int64
		err   error
	)
	switch x := v.(type) {
	case float64:
		cents, err = floatCents(x, 64)
	case float32:
		cents, err = floatCents(float64(x), 32)
	case int:
		cents, err = intCents(int64(x))
	case int64:
		cents, err = intCents(x)
	default:
		s, serr := coerceString(v)
		if serr != nil {
			return "", serr
		}
		cents, err = parseAmount(s)
	}
	if err != nil {
		return "", err
	}

	sign := ""
	if cents < 0 {
		sign, cents = "-", -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100), nil
}

func floatCents(f float64, bitSize int) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("amount is not finite")
	}
	s := strconv.FormatFloat(f, 'f', -1, bitSize)
	neg := strings.HasPrefix(s, "-")
	whole, frac, _ := strings.Cut(strings.TrimPrefix(s, "-"), ".")
	return toCents(s, neg, whole, frac)
}

func intCents(n int64) (int64, error) {
	if n > math.MaxInt64/100 || n < math.MinInt64/100 {
		return 0, fmt.Errorf("amount %d is out of range", n)
	}
	return n * 100, nil
}

// parseAmount reads "1518", "1518.5", "1,518.00", "1.518,00" or "2,50".
// The last separator is the decimal one when both appear; a single
// separator followed by exactly three digits is ambiguous and rejected.
func parseAmount(raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	neg := false
	switch {
	case strings.HasPrefix(s, "-"):
		neg, s = true, s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}

	dec, group, err := separators(s)
	if err != nil {
		return 0, fmt.Errorf("%q: %w", raw, err)
	}

	whole, frac := s, ""
	if dec != 0 {
		i := strings.LastIndexByte(s, dec)
		whole, frac = s[:i], s[i+1:]
		if frac == "" {
			return 0, fmt.Errorf("%q is not an amount", raw)
		}
	}
	if group != 0 {
		parts := strings.Split(whole, string(group))
		if len(parts[0]) == 0 || len(parts[0]) > 3 {
			return 0, fmt.Errorf("%q has misplaced digit grouping", raw)
		}
		for _, p := range parts[1:] {
			if len(p) != 3 {
				return 0, fmt.Errorf("%q has misplaced digit grouping", raw)
			}
		}
		whole = strings.Join(parts, "")
	}
	return toCents(raw, neg, whole, frac)
}

func separators(s string) (dec, group byte, err error) {
	dots, commas := strings.Count(s, "."), strings.Count(s, ",")
	switch {
	case dots > 0 && commas > 0:
		dec, group = ',', '.'
		if strings.LastIndexByte(s, '.') > strings.LastIndexByte(s, ',') {
			dec, group = '.', ','
		}
		if strings.Count(s, string(dec)) > 1 {
			return 0, 0, fmt.Errorf("repeated decimal separator")
		}
		return dec, group, nil
	case dots == 0 && commas == 0:
		return 0, 0, nil
	}

	sep, n := byte('.'), dots
	if commas > 0 {
		sep, n = ',', commas
	}
	if n > 1 {
		return 0, sep, nil
	}
	if len(s)-strings.IndexByte(s, sep)-1 == 3 {
		return 0, 0, fmt.Errorf("ambiguous separator %q", string(sep))
	}
	return sep, 0, nil
}

func toCents(raw string, neg bool, whole, frac string) (int64, error) {
	if !isDigits(whole) || (frac != "" && !isDigits(frac)) {
		return 0, fmt.Errorf("%q is not an amount", raw)
	}
	if len(frac) > 2 {
		if strings.Trim(frac[2:], "0") != "" {
			return 0, fmt.Errorf("%q has more than two decimal places", raw)
		}
		frac = frac[:2]
	}
	for len(frac) < 2 {
		frac += "0"
	}
	n, err := strconv.ParseInt(whole+frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is out of range", raw)
	}
	if neg {
		n = -n
	}
	return n, nil
}

func isDigits(s string) bool {
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

func coerceInteger(v any) (int64, error) {
	switch x := v.(type) {
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case float64:
		if x != math.Trunc(x) {
			return 0, fmt.Errorf("%v is not a whole number", x)
		}
		return int64(x), nil
	}
	s, err := coerceString(v)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not an integer", s)
	}
	return n, nil
}

func coerceBool(v any) (bool, error) {
	if b, ok := v.(bool); ok {
		return b, nil
	}
	s, err := coerceString(v)
	if err != nil {
		return false, err
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("%q is not a boolean", s)
	}
	return b, nil
}
