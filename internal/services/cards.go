package services

import "strings"

// NormalizeCardUID maps the UID formats readers and manual entry produce
// ("27:9A:99:54", "27-9a-99-54", "27 9A 99 54", "279a9954") to a single
// canonical form: separators stripped, uppercased. Idempotent; no length or
// charset validation.
func NormalizeCardUID(raw string) string {
	replacer := strings.NewReplacer(":", "", "-", "", " ", "")
	return strings.ToUpper(replacer.Replace(raw))
}
