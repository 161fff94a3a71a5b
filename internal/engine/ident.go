package engine

// ValidIdentifier reports whether name is lexically safe to embed as a
// column reference: an unquoted SQL identifier, optionally qualified with
// a single table prefix. Schema allowlists decide which columns are
// permitted; this check only stops arbitrary SQL reaching the builder
// when no allowlist is configured.
func ValidIdentifier(name string) bool {
	if name == "" {
		return false
	}

	dots := 0
	expectStart := true
	for _, r := range name {
		if r == '.' {
			if expectStart || dots == 1 {
				return false
			}
			dots++
			expectStart = true
			continue
		}

		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_':
			expectStart = false
		case r >= '0' && r <= '9':
			if expectStart {
				return false
			}
		default:
			return false
		}
	}

	return !expectStart
}
