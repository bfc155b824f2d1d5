package model

import (
	"fmt"
	"strings"
)

// Dialect identifies one of the web-UI families a switch speaks.
type Dialect string

const (
	DialectGS1900 Dialect = "gs1900"
	DialectGS1915 Dialect = "gs1915"
	DialectGS1920 Dialect = "gs1920"

	// DialectAuto asks the session to sniff the landing page.
	DialectAuto Dialect = ""
)

var dialects = []Dialect{DialectGS1900, DialectGS1915, DialectGS1920}

// Dialects returns all known dialects in detection priority order.
func Dialects() []Dialect {
	return append([]Dialect(nil), dialects...)
}

// ParseDialect accepts a dialect name case-insensitively, "" and "auto" map to DialectAuto.
func ParseDialect(s string) (Dialect, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || s == "auto" {
		return DialectAuto, nil
	}
	for _, d := range dialects {
		if string(d) == s {
			return d, nil
		}
	}
	return DialectAuto, fmt.Errorf("unknown dialect %q", s)
}

// Marker is the landing page substring identifying the dialect.
func (d Dialect) Marker() string {
	return strings.ToUpper(string(d))
}

func (d Dialect) String() string {
	if d == DialectAuto {
		return "auto"
	}
	return string(d)
}
