package reporting

// Check renders a boolean as a check or cross mark.
func Check(ok bool) string {
	if ok {
		return "✅"
	}
	return "❌"
}

// AreaIcon grades a percentage: at least good is a check, at least warn is
// a warning sign, anything lower a cross.
func AreaIcon(pct, good, warn float64) string {
	switch {
	case pct >= good:
		return "✅"
	case pct >= warn:
		return "⚠️"
	default:
		return "❌"
	}
}
