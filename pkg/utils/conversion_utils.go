package utils

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Int64ToStr converts an int64 to its string representation.
func Int64ToStr(num int64) string {
	return strconv.FormatInt(num, 10)
}

// StrToInt64 converts a string to an int64.
// Returns 0 and an error if the conversion fails.
func StrToInt64(s string) (int64, error) {
	num, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, err
	}
	return num, nil
}

// FlexibleID accepts either a JSON number or a JSON string holding an integer.
// Raw keeps the original text so callers can tell "missing" from "malformed".
type FlexibleID struct {
	Raw string
	Set bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexibleID) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*f = FlexibleID{}
		return nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("flexible id: %w", err)
		}
		*f = FlexibleID{Raw: s, Set: strings.TrimSpace(s) != ""}
		return nil
	}
	*f = FlexibleID{Raw: trimmed, Set: trimmed != ""}
	return nil
}

// Int64 parses the raw value.
func (f FlexibleID) Int64() (int64, error) {
	return StrToInt64(f.Raw)
}
