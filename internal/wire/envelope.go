// Package wire decodes the game's match envelope.
//
// Requests arrive as a pseudo-array `[MethodName,{...}]` whose object part is
// not valid JSON: IPv4 addresses are written as bare `0xHHHHHHHH` literals and
// the outer array does not parse. The helpers here slice the method name off,
// rewrap the fields as a JSON object and quote every hex address as a
// dotted-decimal string so the result can be handed to encoding/json.
package wire

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"net/netip"
	"strconv"
	"strings"
)

// UnknownIPAddress is returned for hex literals that cannot be decoded.
// Callers must treat it as "no address", never as a routable peer.
const UnknownIPAddress = "0.0.0.0"

const (
	hexIPPrefix = "0x"
	hexIPDigits = 8
)

var ErrMalformedEnvelope = errors.New("malformed match envelope")

// Envelope is a parsed match request
type Envelope struct {
	Method string
	Body   json.RawMessage
}

// Parse extracts the method and returns its fields as valid JSON
func Parse(raw string) (*Envelope, error) {
	method, body, err := ExtractMethodAndBody(raw)
	if err != nil {
		return nil, err
	}

	body = ReplaceHexValuesWithIPAddresses(body)
	if !json.Valid([]byte(body)) {
		return nil, ErrMalformedEnvelope
	}

	return &Envelope{
		Method: method,
		Body:   json.RawMessage(body),
	}, nil
}

// ExtractMethodAndBody splits `[Method,{fields}]` into the method name and a
// JSON object string. The fields may be wrapped in braces or brackets; either
// way they are rewrapped in braces.
func ExtractMethodAndBody(raw string) (string, string, error) {
	raw = strings.TrimSpace(raw)

	start := strings.IndexByte(raw, '[')
	end := strings.LastIndexByte(raw, ']')
	if start < 0 || end <= start {
		return "", "", ErrMalformedEnvelope
	}
	inner := raw[start+1 : end]

	comma := strings.IndexByte(inner, ',')
	if comma < 0 {
		// Methods without arguments
		method := trimMethodName(inner)
		if method == "" {
			return "", "", ErrMalformedEnvelope
		}
		return method, "{}", nil
	}

	method := trimMethodName(inner[:comma])
	if method == "" {
		return "", "", ErrMalformedEnvelope
	}

	fields := strings.TrimSpace(inner[comma+1:])
	if len(fields) >= 2 {
		first, last := fields[0], fields[len(fields)-1]
		if (first == '{' && last == '}') || (first == '[' && last == ']') {
			fields = fields[1 : len(fields)-1]
		}
	}

	return method, "{" + fields + "}", nil
}

func trimMethodName(s string) string {
	return strings.Trim(strings.TrimSpace(s), `"`)
}

// ReplaceHexValuesWithIPAddresses quotes every bare `0x` hex literal as a
// dotted-decimal string. Literals of any width other than eight digits become
// UnknownIPAddress. Literals inside JSON strings are left untouched.
func ReplaceHexValuesWithIPAddresses(body string) string {
	var b strings.Builder
	b.Grow(len(body) + 8)

	inString := false
	escaped := false
	for i := 0; i < len(body); {
		ch := body[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			b.WriteByte(ch)
			i++
			continue
		}

		if ch == '"' {
			inString = true
			b.WriteByte(ch)
			i++
			continue
		}

		if end, ok := hexLiteralEnd(body, i); ok {
			b.WriteByte('"')
			b.WriteString(ConvertHexIPToString(body[i:end]))
			b.WriteByte('"')
			i = end
			continue
		}

		b.WriteByte(ch)
		i++
	}

	return b.String()
}

// hexLiteralEnd reports whether a standalone `0x` literal with at least one
// hex digit starts at i, and where it ends.
func hexLiteralEnd(s string, i int) (int, bool) {
	if !strings.HasPrefix(s[i:], hexIPPrefix) {
		return 0, false
	}
	if i > 0 && isIdentByte(s[i-1]) {
		return 0, false
	}
	end := i + len(hexIPPrefix)
	for end < len(s) && isHexDigit(s[end]) {
		end++
	}
	if end == i+len(hexIPPrefix) {
		return 0, false
	}
	if end < len(s) && isIdentByte(s[end]) {
		return 0, false
	}
	return end, true
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isIdentByte(c byte) bool {
	return isHexDigit(c) || (c >= 'g' && c <= 'z') || (c >= 'G' && c <= 'Z') || c == '_' || c == '.'
}

// ConvertHexIPToString decodes `0xHHHHHHHH` as a big-endian IPv4 address.
// Anything that is not exactly eight hex digits yields UnknownIPAddress.
func ConvertHexIPToString(hex string) string {
	digits := strings.TrimPrefix(hex, hexIPPrefix)
	if len(digits) != hexIPDigits {
		return UnknownIPAddress
	}

	value, err := strconv.ParseUint(digits, 16, 32)
	if err != nil {
		return UnknownIPAddress
	}

	var octets [4]byte
	binary.BigEndian.PutUint32(octets[:], uint32(value))
	return netip.AddrFrom4(octets).String()
}
