package repository

// IsValidTimeframe reports whether tf names a supported candle resolution.
func IsValidTimeframe(tf Timeframe) bool {
	switch tf {
	case TF1s, TF1m, TF5m:
		return true
	}
	return false
}

// DefaultTimeframe is the scalper default, 1m bars.
func DefaultTimeframe() Timeframe { return TF1m }

// NormalizeTimeframe maps a raw config string onto a valid timeframe,
// falling back to the default when empty or unknown.
func NormalizeTimeframe(s string) Timeframe {
	if tf := Timeframe(s); IsValidTimeframe(tf) {
		return tf
	}
	return DefaultTimeframe()
}
