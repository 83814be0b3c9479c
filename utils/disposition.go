package utils

import (
	"strings"
)

// ContentDisposition builds an attachment header carrying both a plain
// ASCII filename and the exact UTF-8 name (RFC 6266 / RFC 5987).
func ContentDisposition(name string) string {
	return `attachment; filename="` + ASCIIFilename(name) + `"; filename*=UTF-8''` + PercentEncodeUTF8(name)
}

// ASCIIFilename replaces every rune outside printable ASCII, and every
// double quote, with an underscore.
func ASCIIFilename(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if r < 0x20 || r > 0x7e || r == '"' {
			b.WriteByte('_')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// PercentEncodeUTF8 encodes every byte except RFC 3986 unreserved characters.
func PercentEncodeUTF8(name string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(name) * 3)
	for i := 0; i < len(name); i++ {
		c := name[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	case c == '-' || c == '.' || c == '_' || c == '~':
		return true
	}
	return false
}
