package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2025-06-02T09:30:00Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("ParseTime(%q) not ok", s)
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("got %v, want %s", got, s)
	}
}

func TestParseTimeUnixSeconds(t *testing.T) {
	want := time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(want, 10))
	if !ok {
		t.Fatal("unix seconds should parse")
	}
	if got.Unix() != want {
		t.Fatalf("got unix %d, want %d", got.Unix(), want)
	}
}

func TestParseTimeRejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "yesterday", "-5"} {
		if _, ok := ParseTime(s); ok {
			t.Fatalf("ParseTime(%q) should fail", s)
		}
	}
}

func TestParseTimeDefault(t *testing.T) {
	def := time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)
	if got := ParseTimeDefault("", def); !got.Equal(def) {
		t.Fatalf("empty input should return default, got %v", got)
	}
	if got := ParseTimeDefault("2025-06-02T10:00:00Z", def); got.Equal(def) {
		t.Fatal("valid input should override default")
	}
}
