package query

import (
	"bytes"
	"cmp"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// codec knows how to parse, compare and (for text) render one value type.
type codec[V any] struct {
	parse   func(string) (V, error)
	compare func(a, b V) int
	equal   func(a, b V) bool
	text    func(V) string
}

func ordered[V cmp.Ordered](parse func(string) (V, error)) codec[V] {
	return codec[V]{
		parse:   parse,
		compare: cmp.Compare[V],
		equal:   func(a, b V) bool { return a == b },
	}
}

var stringCodec = codec[string]{
	parse:   func(s string) (string, error) { return s, nil },
	compare: strings.Compare,
	equal:   func(a, b string) bool { return a == b },
	text:    func(s string) string { return s },
}

var int32Codec = ordered(func(s string) (int32, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 32)
	return int32(n), err
})

var int64Codec = ordered(func(s string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(s), 10, 64)
})

var float32Codec = ordered(func(s string) (float32, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 32)
	return float32(f), err
})

var float64Codec = ordered(func(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
})

var durationCodec = ordered(parseDuration)

var boolCodec = codec[bool]{
	parse: func(s string) (bool, error) { return strconv.ParseBool(strings.TrimSpace(s)) },
	compare: func(a, b bool) int {
		switch {
		case a == b:
			return 0
		case !a:
			return -1
		default:
			return 1
		}
	},
	equal: func(a, b bool) bool { return a == b },
}

var uuidCodec = codec[uuid.UUID]{
	parse:   func(s string) (uuid.UUID, error) { return uuid.Parse(strings.TrimSpace(s)) },
	compare: func(a, b uuid.UUID) int { return bytes.Compare(a[:], b[:]) },
	equal:   func(a, b uuid.UUID) bool { return a == b },
}

var timeCodec = codec[time.Time]{
	parse:   parseTime,
	compare: func(a, b time.Time) int { return a.Compare(b) },
	equal:   func(a, b time.Time) bool { return a.Equal(b) },
}

var timeOffsetCodec = codec[time.Time]{
	parse: func(s string) (time.Time, error) {
		return time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
	},
	compare: func(a, b time.Time) int { return a.Compare(b) },
	equal:   func(a, b time.Time) bool { return a.Equal(b) },
}

var decimalCodec = codec[decimal.Decimal]{
	parse:   func(s string) (decimal.Decimal, error) { return decimal.NewFromString(strings.TrimSpace(s)) },
	compare: func(a, b decimal.Decimal) int { return a.Cmp(b) },
	equal:   func(a, b decimal.Decimal) bool { return a.Equal(b) },
}

// Layouts accepted for date/time fields without an explicit offset. Values
// without a zone are read as UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date/time %q", s)
}

// parseDuration accepts Go duration syntax ("1h30m") and clock syntax
// "[-][d.]hh:mm:ss[.fraction]".
func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}

	neg := strings.HasPrefix(s, "-")
	clock := strings.TrimPrefix(s, "-")
	parts := strings.Split(clock, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("unrecognized duration %q", s)
	}

	var days int64
	hours := parts[0]
	if i := strings.IndexByte(hours, '.'); i >= 0 {
		d, err := strconv.ParseInt(hours[:i], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("unrecognized duration %q", s)
		}
		days, hours = d, hours[i+1:]
	}
	h, err := strconv.ParseInt(hours, 10, 64)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("unrecognized duration %q", s)
	}
	m, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("unrecognized duration %q", s)
	}
	sec, err := strconv.ParseFloat(parts[2], 64)
	if err != nil || sec < 0 || sec >= 60 {
		return 0, fmt.Errorf("unrecognized duration %q", s)
	}

	d := time.Duration(days)*24*time.Hour +
		time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(math.Round(sec*float64(time.Second)))
	if neg {
		d = -d
	}
	return d, nil
}
