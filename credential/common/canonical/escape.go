package canonical

import (
	"bytes"
	"unicode/utf16"
	"unicode/utf8"
)

// Escaping lists the characters a JSON producer escapes beyond what
// JSON.stringify does. Some mobile JSON libraries write "/" as "\/" and
// HTML-sensitive characters such as "=" as "\u003d"; signatures made over
// their output only verify when the same escaping is reproduced.
type Escaping struct {
	Slash bool
	Runes []rune
}

// IsZero reports whether the policy leaves the bytes untouched.
func (e Escaping) IsZero() bool {
	return !e.Slash && len(e.Runes) == 0
}

// Escape applies e inside the string literals of the JSON text b. Escape
// sequences already present are copied unchanged, so the transform can run
// over embedded documents that were escaped by their producer.
func Escape(b []byte, e Escaping) []byte {
	if e.IsZero() {
		return b
	}

	var out bytes.Buffer
	out.Grow(len(b) + len(b)/8)

	inString := false
	for i := 0; i < len(b); {
		c := b[i]
		if !inString {
			if c == '"' {
				inString = true
			}
			out.WriteByte(c)
			i++
			continue
		}

		switch {
		case c == '\\':
			out.WriteByte(c)
			if i+1 < len(b) {
				out.WriteByte(b[i+1])
			}
			i += 2
		case c == '"':
			inString = false
			out.WriteByte(c)
			i++
		case c == '/' && e.Slash:
			out.WriteString(`\/`)
			i++
		default:
			r, size := utf8.DecodeRune(b[i:])
			if e.escapes(r) {
				writeUnicodeEscape(&out, r)
			} else {
				out.Write(b[i : i+size])
			}
			i += size
		}
	}
	return out.Bytes()
}

func (e Escaping) escapes(r rune) bool {
	for _, x := range e.Runes {
		if x == r {
			return true
		}
	}
	return false
}

func writeUnicodeEscape(out *bytes.Buffer, r rune) {
	if r > 0xFFFF {
		hi, lo := utf16.EncodeRune(r)
		writeUnicodeEscape(out, hi)
		writeUnicodeEscape(out, lo)
		return
	}
	out.WriteString(`\u`)
	out.WriteByte(hexDigits[(r>>12)&0xF])
	out.WriteByte(hexDigits[(r>>8)&0xF])
	out.WriteByte(hexDigits[(r>>4)&0xF])
	out.WriteByte(hexDigits[r&0xF])
}
