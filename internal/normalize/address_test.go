package normalize

import (
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name         string
		input        string
		wantKey      string
		wantLocality string
	}{
		{
			name:         "street abbreviation with commas",
			input:        "ul. Kwiatowa 5, Warszawa",
			wantKey:      "warszawa kwiatowa 5",
			wantLocality: "warszawa",
		},
		{
			name:         "expanded street prefix without punctuation",
			input:        "Ulica Kwiatowa 5 Warszawa",
			wantKey:      "warszawa kwiatowa 5",
			wantLocality: "warszawa",
		},
		{
			name:         "diacritics folded",
			input:        "al. Jana Pawła 21, Łódź",
			wantKey:      "lodz jana pawla 21",
			wantLocality: "lodz",
		},
		{
			name:         "no street marker, number splits street and locality",
			input:        "Kwiatowa 5 Kraków",
			wantKey:      "krakow kwiatowa 5",
			wantLocality: "krakow",
		},
		{
			name:         "locality only",
			input:        "Białystok",
			wantKey:      "bialystok",
			wantLocality: "bialystok",
		},
		{
			name:         "generic place word dropped from locality",
			input:        "Kolonia Borek",
			wantKey:      "borek",
			wantLocality: "borek",
		},
		{
			name:         "split house number",
			input:        "ul. Długa 5/7, Gdańsk",
			wantKey:      "gdansk dluga 5/7",
			wantLocality: "gdansk",
		},
		{
			name:         "split house number without street marker",
			input:        "Słowackiego 10/12, Katowice",
			wantKey:      "katowice slowackiego 10/12",
			wantLocality: "katowice",
		},
		{
			name:         "split house number with staircase letter",
			input:        "ul. Długa 5a/7, Gdańsk",
			wantKey:      "gdansk dluga 5a/7",
			wantLocality: "gdansk",
		},
		{
			name:    "empty input degrades to empty key",
			input:   "   ",
			wantKey: "",
		},
		{
			name:    "punctuation only",
			input:   "---",
			wantKey: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.input)

			if got.Key != tt.wantKey {
				t.Errorf("Normalize() key = %q, want %q", got.Key, tt.wantKey)
			}

			if got.Locality != tt.wantLocality {
				t.Errorf("Normalize() locality = %q, want %q", got.Locality, tt.wantLocality)
			}
		})
	}
}

func TestNormalizeEquivalence(t *testing.T) {
	pairs := [][2]string{
		{"ul. Kwiatowa 5, Warszawa", "Ulica Kwiatowa 5 Warszawa"},
		{"al. Niepodległości 12, Poznań", "Aleja Niepodleglosci 12 Poznan"},
		{"pl. Wolności 1, Wrocław", "Plac Wolnosci 1, WROCŁAW"},
	}

	for _, pair := range pairs {
		a, b := Normalize(pair[0]), Normalize(pair[1])
		if a.Key == "" || a.Key != b.Key {
			t.Errorf("Normalize(%q).Key = %q, Normalize(%q).Key = %q; want equal and non-empty",
				pair[0], a.Key, pair[1], b.Key)
		}
	}
}

func TestLocalityBase(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Warszawa", "warszawa"},
		{"Kolonia Borek", "borek"},
		{"Nowa Wieś", "wies"},
		{"Kolonia", "kolonia"}, // dropping everything keeps the folded form
		{"", ""},
	}

	for _, tt := range tests {
		if got := LocalityBase(tt.input); got != tt.want {
			t.Errorf("LocalityBase(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestFold(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Łódź", "lodz"},
		{"ŚWIĘTOKRZYSKIE", "swietokrzyskie"},
		{"Zażółć gęślą jaźń", "zazolc gesla jazn"},
	}

	for _, tt := range tests {
		if got := Fold(tt.input); got != tt.want {
			t.Errorf("Fold(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
