package lookup

// Language code tables, as small as the sources warrant. Unknown codes
// fall back to the code itself so the label is still usable.

var languageNames2 = map[string]string{
	"fr": "French",
	"en": "English",
	"es": "Spanish",
}

var languageNames3 = map[string]string{
	"fre": "French",
	"eng": "English",
	"spa": "Spanish",
}

// languageName maps a 2- or 3-letter language code to its display name,
// with identity fallback for unknown codes.
func languageName(code string) string {
	if name, ok := languageNames2[code]; ok {
		return name
	}
	if name, ok := languageNames3[code]; ok {
		return name
	}
	return code
}
