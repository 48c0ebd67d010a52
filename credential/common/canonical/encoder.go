package canonical

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"slices"
	"strconv"
	"unicode/utf16"
	"unicode/utf8"

	"golang.org/x/exp/maps"
)

const hexDigits = "0123456789abcdef"

// Options selects how a document is encoded.
type Options struct {
	View      View
	Escaping  Escaping
	Binding   Binding
	Challenge string
}

// Encode returns the canonical bytes of doc under opts. When the binding is
// BindingSuffix the challenge is appended verbatim after the encoded view.
func Encode(doc map[string]interface{}, opts Options) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("failed to canonicalize document: document is nil")
	}

	var out []byte
	switch opts.View.Algorithm {
	case AlgorithmJSON:
		var buf bytes.Buffer
		if err := encodeView(&buf, doc, opts.View); err != nil {
			return nil, err
		}
		out = Escape(buf.Bytes(), opts.Escaping)
	case AlgorithmURDNA2015:
		nquads, err := normalizeRDF(opts.View.project(doc))
		if err != nil {
			return nil, err
		}
		out = nquads
	default:
		return nil, fmt.Errorf("failed to canonicalize document: unknown algorithm %q", opts.View.Algorithm)
	}

	if opts.Binding == BindingSuffix {
		out = append(out, opts.Challenge...)
	}
	return out, nil
}

// Marshal encodes a single value with recursively sorted object keys and no
// insignificant whitespace. It is the byte form used to freeze a signed
// document before it is embedded in another one.
func Marshal(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeValue(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeView(buf *bytes.Buffer, doc map[string]interface{}, view View) error {
	buf.WriteByte('{')
	for i, key := range view.keys(doc) {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeString(buf, key)
		buf.WriteByte(':')
		if err := writeValue(buf, doc[key]); err != nil {
			return fmt.Errorf("failed to encode field %q: %w", key, err)
		}
	}
	buf.WriteByte('}')
	return nil
}

func writeValue(buf *bytes.Buffer, v interface{}) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
	case json.RawMessage:
		if err := json.Compact(buf, val); err != nil {
			return fmt.Errorf("invalid embedded document: %w", err)
		}
	case string:
		writeString(buf, val)
	case bool:
		buf.WriteString(strconv.FormatBool(val))
	case json.Number:
		if _, err := strconv.ParseFloat(string(val), 64); err != nil {
			return fmt.Errorf("invalid number %q", val)
		}
		buf.WriteString(string(val))
	case float64:
		return writeFloat(buf, val)
	case float32:
		return writeFloat(buf, float64(val))
	case int:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case int32:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case int64:
		buf.WriteString(strconv.FormatInt(val, 10))
	case uint:
		buf.WriteString(strconv.FormatUint(uint64(val), 10))
	case uint64:
		buf.WriteString(strconv.FormatUint(val, 10))
	case map[string]interface{}:
		buf.WriteByte('{')
		for i, key := range sortedKeys(val) {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeString(buf, key)
			buf.WriteByte(':')
			if err := writeValue(buf, val[key]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case map[string]string:
		buf.WriteByte('{')
		for i, key := range sortedKeys(val) {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeString(buf, key)
			buf.WriteByte(':')
			writeString(buf, val[key])
		}
		buf.WriteByte('}')
	case []interface{}:
		buf.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeValue(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case []string:
		buf.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeString(buf, item)
		}
		buf.WriteByte(']')
	default:
		return writeGeneric(buf, v)
	}
	return nil
}

// writeGeneric handles named map types and structs by taking them through
// their JSON form first.
func writeGeneric(buf *bytes.Buffer, v interface{}) error {
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String {
		if rv.IsNil() {
			buf.WriteString("null")
			return nil
		}
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("unsupported value of type %T: %w", v, err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var generic interface{}
	if err := dec.Decode(&generic); err != nil {
		return fmt.Errorf("unsupported value of type %T: %w", v, err)
	}
	return writeValue(buf, generic)
}

func writeFloat(buf *bytes.Buffer, f float64) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("unsupported number %v", f)
	}
	// encoding/json already formats float64 the way ECMAScript does.
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	buf.Write(data)
	return nil
}

// writeString quotes s the way JSON.stringify does: only the quote, the
// backslash and control characters are escaped.
func writeString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for i := 0; i < len(s); {
		c := s[i]
		if c < utf8.RuneSelf {
			switch c {
			case '"':
				buf.WriteString(`\"`)
			case '\\':
				buf.WriteString(`\\`)
			case '\b':
				buf.WriteString(`\b`)
			case '\f':
				buf.WriteString(`\f`)
			case '\n':
				buf.WriteString(`\n`)
			case '\r':
				buf.WriteString(`\r`)
			case '\t':
				buf.WriteString(`\t`)
			default:
				if c < 0x20 {
					buf.WriteString(`\u00`)
					buf.WriteByte(hexDigits[c>>4])
					buf.WriteByte(hexDigits[c&0xF])
				} else {
					buf.WriteByte(c)
				}
			}
			i++
			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			buf.WriteString("\ufffd")
		} else {
			buf.WriteString(s[i : i+size])
		}
		i += size
	}
	buf.WriteByte('"')
}

func sortedKeys[V any](m map[string]V) []string {
	keys := maps.Keys(m)
	slices.SortFunc(keys, compareUTF16)
	return keys
}

// compareUTF16 orders strings by UTF-16 code units, matching the default
// Array.prototype.sort used by JSON producers on the mobile side.
func compareUTF16(a, b string) int {
	ua := utf16.Encode([]rune(a))
	ub := utf16.Encode([]rune(b))
	return slices.Compare(ua, ub)
}
