package http

import (
	"time"

	xutil "SignalForge/pkg/util"
)

// ParseTime tries RFC3339, RFC3339Nano, and unix seconds.
func ParseTime(s string) (time.Time, bool) { return xutil.ParseTime(s) }

// ParseTimeDefault parses time or returns def if empty/invalid.
func ParseTimeDefault(s string, def time.Time) time.Time { return xutil.ParseTimeDefault(s, def) }
