package mpi

import "testing"

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"kitten", "kitten", 0},
		{"", "abc", 3},
		{"abcd", "", 4},
		{"kitten", "sitting", 3},
		{"John", "Jon", 1},
		{"SMITH", "smith", 0},
		{"  Doe ", "doe", 0},
		{"flaw", "lawn", 2},
		{"naïve", "naive", 1},
		{"张伟", "张", 1},
	}
	for _, tt := range tests {
		if got := LevenshteinDistance(tt.a, tt.b); got != tt.want {
			t.Errorf("LevenshteinDistance(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestLevenshteinDistance_Symmetric(t *testing.T) {
	pairs := [][2]string{{"kwame", "kwami"}, {"abena", "adwoa"}, {"mensah", "mensa"}}
	for _, p := range pairs {
		if LevenshteinDistance(p[0], p[1]) != LevenshteinDistance(p[1], p[0]) {
			t.Errorf("distance not symmetric for %q/%q", p[0], p[1])
		}
	}
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 100},
		{"", "john", 0},
		{"john", "", 0},
		{"john", "john", 100},
		{"John", "JOHN", 100},
		{"john", "jon", 75},
		{"kitten", "sitting", 57},
		{"abc", "xyz", 0},
		{"Zoë", "zoe", 67},
	}
	for _, tt := range tests {
		if got := Similarity(tt.a, tt.b); got != tt.want {
			t.Errorf("Similarity(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestSimilarity_SelfIsHundred(t *testing.T) {
	for _, s := range []string{"a", "Ama", "Kofi Annan", "Nii-Armah", "éàü"} {
		if d := LevenshteinDistance(s, s); d != 0 {
			t.Errorf("LevenshteinDistance(%q, %q) = %d, want 0", s, s, d)
		}
		if got := Similarity(s, s); got != 100 {
			t.Errorf("Similarity(%q, %q) = %d, want 100", s, s, got)
		}
	}
}
