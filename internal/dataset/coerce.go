package dataset

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006.01.02",
	"2006.01.02.",
}

// Coerce converts a raw value to the column kind. Values that cannot be
// converted become nil; so do empty strings.
//
// Text yields string, Date yields a UTC midnight time.Time and Number yields
// decimal.Decimal.
func Coerce(kind Kind, v any) any {
	if v == nil {
		return nil
	}

	switch kind {
	case KindDate:
		return coerceDate(v)
	case KindNumber:
		return coerceNumber(v)
	default:
		return coerceText(v)
	}
}

func coerceText(v any) any {
	switch t := v.(type) {
	case string:
		if t == "" {
			return nil
		}
		return t
	case time.Time:
		return t.Format("2006-01-02")
	case decimal.Decimal:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	}
	return nil
}

func coerceDate(v any) any {
	switch t := v.(type) {
	case time.Time:
		return dateOnly(t)
	case float64:
		return serialToDate(t)
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil
		}
		for _, layout := range dateLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return dateOnly(parsed)
			}
		}
		// raw xlsx cells carry dates as serial numbers
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return serialToDate(f)
		}
	}
	return nil
}

func serialToDate(f float64) any {
	if f <= 0 {
		return nil
	}
	t, err := excelize.ExcelDateToTime(f, false)
	if err != nil {
		return nil
	}
	return dateOnly(t)
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func coerceNumber(v any) any {
	switch t := v.(type) {
	case decimal.Decimal:
		return t
	case float64:
		return decimal.NewFromFloat(t)
	case int:
		return decimal.NewFromInt(int64(t))
	case int64:
		return decimal.NewFromInt(t)
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return nil
		}
		return d
	}
	return nil
}
