package contracts

import "strings"

// NormalizeSymbol normalizes a stock code to the "600000.SH" /
// "000001.SZ" form. Unrecognized inputs are returned upper-cased as-is
// so they can still be logged.
func NormalizeSymbol(code string) string {
	if code == "" {
		return ""
	}

	s := strings.ToUpper(strings.TrimSpace(code))
	if s == "" {
		return ""
	}

	if left, right, ok := strings.Cut(s, "."); ok {
		switch {
		case len(left) == 6 && (right == "SH" || right == "SZ"):
			return left + "." + right
		case len(left) == 6 && (right == "XSHG" || right == "SSE"):
			return left + ".SH"
		case len(left) == 6 && (right == "XSHE" || right == "SZSE"):
			return left + ".SZ"
		case len(right) == 6 && (left == "SH" || left == "SSE" || left == "XSHG"):
			return right + ".SH"
		case len(right) == 6 && (left == "SZ" || left == "SZSE" || left == "XSHE"):
			return right + ".SZ"
		}
		return s
	}

	if len(s) == 6 && isDigits(s) {
		if strings.HasPrefix(s, "6") {
			return s + ".SH"
		}
		return s + ".SZ"
	}

	// undotted exchange prefix, e.g. SH600000
	if len(s) == 8 && isDigits(s[2:]) {
		switch s[:2] {
		case "SH":
			return s[2:] + ".SH"
		case "SZ":
			return s[2:] + ".SZ"
		}
	}

	return s
}

// IsMainBoard reports whether the symbol is a main-board A share.
// ChiNext (300) and STAR (688/689) listings are excluded.
func IsMainBoard(symbol string) bool {
	if symbol == "" {
		return false
	}

	code, _, _ := strings.Cut(symbol, ".")

	if strings.HasPrefix(code, "300") || strings.HasPrefix(code, "688") || strings.HasPrefix(code, "689") {
		return false
	}

	// SH main board 600/601/603/605, SZ main board 000/001/002
	for _, prefix := range []string{"600", "601", "603", "605", "000", "001", "002"} {
		if strings.HasPrefix(code, prefix) {
			return true
		}
	}
	return false
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
