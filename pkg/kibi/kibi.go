package kibi

// kibi formats and parses byte sizes using 1024-based units

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var digitRegex = regexp.MustCompile(`\d+`)
var ErrInvalidByteSizeString = fmt.Errorf("Invalid byte size string")

var unitSuffixes = []struct {
	name       string
	multiplier int64
}{
	{"KB", 1024},
	{"MB", 1024 * 1024},
	{"GB", 1024 * 1024 * 1024},
	{"TB", 1024 * 1024 * 1024 * 1024},
	{"PB", 1024 * 1024 * 1024 * 1024 * 1024},
}

// FormatBytes returns a human readable size such as "35 MB"
func FormatBytes(b int64) string {
	if b < 1024 {
		return fmt.Sprintf("%v bytes", b)
	}
	for i := len(unitSuffixes) - 1; i >= 0; i-- {
		u := unitSuffixes[i]
		if b >= u.multiplier {
			return fmt.Sprintf("%v %v", b/u.multiplier, u.name)
		}
	}
	return fmt.Sprintf("%v bytes", b)
}

// ParseBytes parses strings such as "10 mb", "512K", "123".
// We support suffixes 'kb', 'mb', 'gb', etc, and also just the letter, eg 'm', 'g'.
func ParseBytes(v string) (int64, error) {
	v = strings.TrimSpace(strings.ToLower(v))
	digits := digitRegex.FindString(v)
	if digits == "" || !strings.HasPrefix(v, digits) {
		return 0, ErrInvalidByteSizeString
	}
	suffix := strings.TrimSpace(v[len(digits):])
	multiplier := int64(1)
	if suffix != "" && suffix != "bytes" {
		found := false
		for _, u := range unitSuffixes {
			low := strings.ToLower(u.name)
			if suffix == low || suffix == low[:1] {
				multiplier = u.multiplier
				found = true
				break
			}
		}
		if !found {
			return 0, ErrInvalidByteSizeString
		}
	}
	value, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, err
	}
	return value * multiplier, nil
}
