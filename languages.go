package transapi

import "strings"

// NormalizeLocale converts a locale to the underscore form the translation
// service routes on: "fr-fr" → "fr_FR", "de_DE_formal" stays as is. Single-part
// codes such as "ja" are valid locales and are only lowercased.
func NormalizeLocale(locale string) string {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		return ""
	}

	parts := strings.Split(strings.ReplaceAll(locale, "-", "_"), "_")
	parts[0] = strings.ToLower(parts[0])
	if len(parts) > 1 && len(parts[1]) == 2 {
		parts[1] = strings.ToUpper(parts[1])
	}
	return strings.Join(parts, "_")
}

// BaseLanguage extracts the language code (e.g., "pt" from "pt_BR").
func BaseLanguage(locale string) string {
	return strings.SplitN(NormalizeLocale(locale), "_", 2)[0]
}
