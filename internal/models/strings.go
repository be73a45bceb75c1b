package models

import "strings"

// NullableString trims s and returns nil when nothing is left.
func NullableString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
