package ridehistory

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/richxcame/scooter-ride/internal/payload"
)

var (
	errNoDigits     = errors.New("no digits")
	errUnknownUnit  = errors.New("unknown duration unit")
	errTrailingText = errors.New("unexpected text")
)

// ParseAmount reads a display amount such as "45,50 kr", "SEK 1 234.50" or
// "1.234,50". Currency symbols and spaces are ignored. A single separator is
// the decimal mark; a repeated one groups thousands; when both appear the
// last one is the decimal mark.
func ParseAmount(s string) (float64, error) {
	var b strings.Builder
	negative := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.', r == ',':
			b.WriteRune(r)
		case r == '-' && b.Len() == 0:
			negative = true
		}
	}
	cleaned := strings.Trim(b.String(), ".,")
	if !strings.ContainsAny(cleaned, "0123456789") {
		return 0, fmt.Errorf("parse amount %q: %w", s, errNoDigits)
	}

	dots := strings.Count(cleaned, ".")
	commas := strings.Count(cleaned, ",")
	switch {
	case dots > 0 && commas > 0:
		decimal := ","
		if strings.LastIndex(cleaned, ".") > strings.LastIndex(cleaned, ",") {
			decimal = "."
		}
		group := "."
		if decimal == "." {
			group = ","
		}
		cleaned = strings.ReplaceAll(cleaned, group, "")
		cleaned = strings.Replace(cleaned, decimal, ".", 1)
	case commas == 1:
		cleaned = strings.Replace(cleaned, ",", ".", 1)
	case commas > 1:
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	case dots > 1:
		cleaned = strings.ReplaceAll(cleaned, ".", "")
	}

	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	if negative {
		v = -v
	}
	return v, nil
}

var (
	durationToken = regexp.MustCompile(`(\d+(?:[.,]\d+)?)\s*([a-zåäö]*)`)
	clockDuration = regexp.MustCompile(`^(\d+):(\d{2})(?::(\d{2}))?$`)
)

// unitSeconds maps English and Swedish unit spellings to seconds.
var unitSeconds = map[string]float64{
	"s": 1, "sec": 1, "secs": 1, "second": 1, "seconds": 1,
	"sek": 1, "sekund": 1, "sekunder": 1,
	"m": 60, "min": 60, "mins": 60, "minute": 60, "minutes": 60,
	"minut": 60, "minuter": 60,
	"h": 3600, "hr": 3600, "hrs": 3600, "hour": 3600, "hours": 3600,
	"t": 3600, "tim": 3600, "timme": 3600, "timmar": 3600,
}

// connectives may appear between duration parts ("1 h and 5 min").
var connectives = map[string]bool{"and": true, "och": true}

// ParseDurationSeconds reads a duration such as "30 minutes", "1 h 5 min",
// "45 sek", "00:12:30" or a bare number of seconds.
func ParseDurationSeconds(s string) (int, error) {
	text := strings.ToLower(strings.TrimSpace(s))
	if text == "" {
		return 0, fmt.Errorf("parse duration %q: %w", s, errNoDigits)
	}

	if m := clockDuration.FindStringSubmatch(text); m != nil {
		a, _ := strconv.Atoi(m[1])
		b, _ := strconv.Atoi(m[2])
		if m[3] == "" {
			// mm:ss
			return a*60 + b, nil
		}
		c, _ := strconv.Atoi(m[3])
		return a*3600 + b*60 + c, nil
	}

	matches := durationToken.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return 0, fmt.Errorf("parse duration %q: %w", s, errNoDigits)
	}

	var total float64
	last := 0
	for _, m := range matches {
		if err := checkGap(text[last:m[0]]); err != nil {
			return 0, fmt.Errorf("parse duration %q: %w", s, err)
		}
		last = m[1]

		number := strings.Replace(text[m[2]:m[3]], ",", ".", 1)
		value, err := strconv.ParseFloat(number, 64)
		if err != nil {
			return 0, fmt.Errorf("parse duration %q: %w", s, err)
		}

		unit := text[m[4]:m[5]]
		if unit == "" {
			if len(matches) > 1 {
				return 0, fmt.Errorf("parse duration %q: %w", s, errUnknownUnit)
			}
			total += value
			continue
		}
		factor, ok := unitSeconds[unit]
		if !ok {
			return 0, fmt.Errorf("parse duration %q: %w %q", s, errUnknownUnit, unit)
		}
		total += value * factor
	}
	if err := checkGap(text[last:]); err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}

	return int(math.Round(total)), nil
}

func checkGap(gap string) error {
	for _, word := range strings.FieldsFunc(gap, func(r rune) bool {
		return unicode.IsSpace(r) || r == ','
	}) {
		if !connectives[word] {
			return errTrailingText
		}
	}
	return nil
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// epochMillisThreshold separates epoch seconds from epoch milliseconds.
const epochMillisThreshold = 1e12

// parseTime accepts RFC3339 strings (with or without zone) and epoch seconds
// or milliseconds, numeric or quoted. Zoneless times are taken as UTC.
func parseTime(v interface{}) (time.Time, error) {
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), nil
			}
		}
	}

	epoch, ok := payload.Float(v)
	if !ok || epoch < 0 {
		return time.Time{}, fmt.Errorf("unrecognized timestamp %v", v)
	}
	if epoch >= epochMillisThreshold {
		return time.UnixMilli(int64(epoch)).UTC(), nil
	}
	sec, frac := math.Modf(epoch)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC(), nil
}
