package couch

import (
	"bytes"
	"encoding/json"
)

// ParseBody decodes text into a document body. It fails with an
// InvalidJSON error before any network activity, so a caller can fix
// its original text; malformed input carries the byte offset of the
// first syntax error in the reason.
func ParseBody(text string) (Body, error) {
	var raw interface{}
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		if syn, ok := err.(*json.SyntaxError); ok {
			return nil, WrapError(KindInvalidJSON, err, "malformed JSON at offset %d", syn.Offset)
		}
		return nil, WrapError(KindInvalidJSON, err, "malformed JSON")
	}
	body, ok := raw.(map[string]interface{})
	if !ok {
		return nil, NewError(KindInvalidJSON, "document body must be a JSON object")
	}
	return Body(body), nil
}

// FormatJSON re-indents text, or fails with InvalidJSON if it does not
// parse.
func FormatJSON(text string) (string, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(text), "", "  "); err != nil {
		if syn, ok := err.(*json.SyntaxError); ok {
			return "", WrapError(KindInvalidJSON, err, "malformed JSON at offset %d", syn.Offset)
		}
		return "", WrapError(KindInvalidJSON, err, "malformed JSON")
	}
	return buf.String(), nil
}
