package jsonutil

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Pretty indents raw JSON; invalid input is returned unchanged.
func Pretty(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return raw
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(raw), "", "  "); err != nil {
		return raw
	}
	return buf.String()
}

// Compact strips insignificant whitespace; invalid input is returned unchanged.
func Compact(raw string) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(strings.TrimSpace(raw))); err != nil {
		return raw
	}
	return buf.String()
}
