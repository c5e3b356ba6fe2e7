package transapi

import "testing"

func TestNormalizeLocale(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"fr_FR", "fr_FR"},
		{"fr-fr", "fr_FR"},
		{"FR-fr", "fr_FR"},
		{"pt_br", "pt_BR"},
		{"ja", "ja"},
		{"JA", "ja"},
		{"fr", "fr"},
		{"de_DE_formal", "de_DE_formal"},
		{"de-de-formal", "de_DE_formal"},
		{"  es_ES ", "es_ES"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := NormalizeLocale(tt.input); got != tt.expected {
				t.Errorf("NormalizeLocale(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestBaseLanguage(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"pt_BR", "pt"},
		{"de-DE", "de"},
		{"ja", "ja"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := BaseLanguage(tt.input); got != tt.expected {
			t.Errorf("BaseLanguage(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}
