package cty

// IsValidGrid reports whether s is a well-formed 4- or 6-character Maidenhead
// locator: field letters A-R, square digits, optional subsquare letters A-X.
// Cluster grid fields are frequently empty or garbage; validating here keeps
// junk out of the grid-award check.
func IsValidGrid(s string) bool {
	if len(s) != 4 && len(s) != 6 {
		return false
	}
	for i := 0; i < 2; i++ {
		c := upperByte(s[i])
		if c < 'A' || c > 'R' {
			return false
		}
	}
	for i := 2; i < 4; i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	if len(s) == 6 {
		for i := 4; i < 6; i++ {
			c := upperByte(s[i])
			if c < 'A' || c > 'X' {
				return false
			}
		}
	}
	return true
}

func upperByte(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - 'a' + 'A'
	}
	return c
}
