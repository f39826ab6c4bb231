package cachekey

// Namespace tags prefix every domain key so keys built for different
// purposes never collide, even over identical parts.
const (
	NamespaceFormatter    = "fmt"
	NamespaceParse        = "parse"
	NamespaceComparison   = "cmp"
	NamespaceCustomFormat = "cfmt"
	NamespaceZone         = "tz"
	NamespaceLocale       = "loc"
)

// ForFormatter fingerprints a formatter construction: locale plus its
// option record.
func ForFormatter(locale string, options map[string]any) (string, error) {
	return NewBuilder(3).Tag(NamespaceFormatter).String(locale).Record(options).Key()
}

// ForParse fingerprints a parse attempt: the raw input and the resolved
// option bundle. Returns ErrUnkeyable for inputs without a stable encoding.
func ForParse(input any, zone, calendar string, strict bool) (string, error) {
	return NewBuilder(5).
		Tag(NamespaceParse).
		Value(input).
		String(zone).
		String(calendar).
		Bool(strict).
		Key()
}

// ForComparison fingerprints a comparison of two values at a unit granularity.
func ForComparison(a, b any, unit string) (string, error) {
	return NewBuilder(4).Tag(NamespaceComparison).Value(a).Value(b).String(unit).Key()
}

// ForCustomFormat fingerprints a compiled custom format pattern.
func ForCustomFormat(pattern, locale string) string {
	key, _ := NewBuilder(3).Tag(NamespaceCustomFormat).String(pattern).String(locale).Key()
	return key
}

// ForZone fingerprints a zone validation lookup.
func ForZone(zone string) string {
	key, _ := NewBuilder(2).Tag(NamespaceZone).String(zone).Key()
	return key
}

// ForLocale fingerprints a locale validation lookup.
func ForLocale(locale string) string {
	key, _ := NewBuilder(2).Tag(NamespaceLocale).String(locale).Key()
	return key
}
