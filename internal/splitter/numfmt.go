package splitter

import "strings"

// isBuiltinDateFormat reports whether a built-in number format id renders
// dates or times. Ids 27-36 and 50-58 are the East Asian locale variants.
func isBuiltinDateFormat(id int) bool {
	switch {
	case id >= 14 && id <= 22:
		return true
	case id >= 27 && id <= 36:
		return true
	case id >= 45 && id <= 47:
		return true
	case id >= 50 && id <= 58:
		return true
	}
	return false
}

// isDateFormatCode reports whether a custom number format code contains
// date or time tokens. Quoted literals, escaped characters, padding and
// fill directives and bracketed sections other than elapsed time are
// ignored. Only the first section of a multi-section code is considered.
func isDateFormatCode(code string) bool {
	if code == "" || strings.EqualFold(code, "general") {
		return false
	}

	runes := []rune(code)
	for i := 0; i < len(runes); i++ {
		switch r := runes[i]; r {
		case ';':
			return false
		case '"':
			for i++; i < len(runes) && runes[i] != '"'; i++ {
			}
		case '\\', '_', '*':
			i++
		case '[':
			end := i + 1
			for end < len(runes) && runes[end] != ']' {
				end++
			}
			if isElapsedTime(string(runes[i+1 : min(end, len(runes))])) {
				return true
			}
			i = end
		default:
			switch r {
			case 'y', 'Y', 'm', 'M', 'd', 'D', 'h', 'H', 's', 'S':
				return true
			}
			if (r == 'A' || r == 'a') && hasAMPM(runes[i:]) {
				return true
			}
		}
	}
	return false
}

func isElapsedTime(s string) bool {
	if s == "" {
		return false
	}
	s = strings.ToLower(s)
	for _, r := range s {
		if r != 'h' && r != 'm' && r != 's' {
			return false
		}
	}
	return true
}

func hasAMPM(r []rune) bool {
	s := strings.ToUpper(string(r))
	return strings.HasPrefix(s, "AM/PM") || strings.HasPrefix(s, "A/P")
}
