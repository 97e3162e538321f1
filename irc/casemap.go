package irc

import "strings"

// CasemapASCII folds a nick/channel name using plain ASCII case folding.
func CasemapASCII(name string) string {
	return strings.ToLower(name)
}

// CasemapRFC1459 folds a nick/channel name per RFC 1459, where
// '{', '}', '|', '^' are the lowercase counterparts of '[', ']', '\\', '~'.
func CasemapRFC1459(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch r {
		case '[':
			r = '{'
		case ']':
			r = '}'
		case '\\':
			r = '|'
		case '~':
			r = '^'
		default:
			if 'A' <= r && r <= 'Z' {
				r += 'a' - 'A'
			}
		}
		b.WriteRune(r)
	}
	return b.String()
}
