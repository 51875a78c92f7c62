package workflow

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

const (
	idPrefix = "INS"
	dayFmt   = "20060102"
	maxSeq   = 99999
)

var idPattern = regexp.MustCompile(`^INS-(\d{8})-(\d{5})$`)

// DayKey is the calendar day component of identifiers created at now.
func DayKey(now time.Time) string {
	return now.UTC().Format(dayFmt)
}

// FormatID renders the human readable identifier INS-YYYYMMDD-NNNNN for the
// seq'th request of day.
func FormatID(day string, seq int) (string, error) {
	if _, err := time.Parse(dayFmt, day); err != nil {
		return "", fmt.Errorf("invalid day key %q: %w", day, err)
	}
	if seq < 1 || seq > maxSeq {
		return "", fmt.Errorf("daily sequence %d out of range", seq)
	}
	return fmt.Sprintf("%s-%s-%05d", idPrefix, day, seq), nil
}

// ParseID splits an identifier into its day key and sequence number.
func ParseID(id string) (string, int, error) {
	m := idPattern.FindStringSubmatch(id)
	if m == nil {
		return "", 0, fmt.Errorf("malformed inspection id %q", id)
	}
	if _, err := time.Parse(dayFmt, m[1]); err != nil {
		return "", 0, fmt.Errorf("malformed inspection id %q: %w", id, err)
	}
	seq, _ := strconv.Atoi(m[2])
	if seq < 1 {
		return "", 0, fmt.Errorf("malformed inspection id %q", id)
	}
	return m[1], seq, nil
}

func ValidID(id string) bool {
	_, _, err := ParseID(id)
	return err == nil
}
