package models

import "encoding/json"

// IDFromJSON decodes an engine primary key. String and numeric ids are accepted;
// anything else yields "" so the merger drops the candidate.
func IDFromJSON(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}
