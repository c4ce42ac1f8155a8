package utils

// NewNullString returns nil for an empty string, so optional columns are stored as NULL.
func NewNullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
