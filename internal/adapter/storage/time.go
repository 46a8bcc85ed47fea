package storage

import (
	"fmt"
	"time"
)

// timeLayout is fixed width so SQLite TEXT columns compare chronologically.
const timeLayout = "2006-01-02 15:04:05.000000"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// timeScanner accepts what either driver hands back for a timestamp column:
// time.Time (MySQL with parseTime), or TEXT / []byte.
type timeScanner struct {
	t *time.Time
}

func scanTime(t *time.Time) timeScanner {
	return timeScanner{t: t}
}

func (s timeScanner) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*s.t = time.Time{}
		return nil
	case time.Time:
		*s.t = v.UTC()
		return nil
	case string:
		return s.parse(v)
	case []byte:
		return s.parse(string(v))
	}
	return fmt.Errorf("scan time: unsupported type %T", src)
}

func (s timeScanner) parse(v string) error {
	// Fractional seconds are accepted even though the layout omits them.
	t, err := time.Parse("2006-01-02 15:04:05", v)
	if err != nil {
		t, err = time.Parse(time.RFC3339Nano, v)
	}
	if err != nil {
		return fmt.Errorf("parse time %q: %w", v, err)
	}
	*s.t = t.UTC()
	return nil
}
