package store

import (
	"fmt"
	"time"
)

const timeLayout = time.RFC3339Nano

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("missing expiresAt")
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid expiresAt %q: %w", s, err)
	}
	return t.UTC(), nil
}
