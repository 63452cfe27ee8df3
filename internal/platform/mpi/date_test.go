package mpi

import "testing"

func TestDateSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want int
	}{
		{"exact", "1990-01-01", "1990-01-01", 100},
		{"exact across layouts", "1990-01-01", "1990-01-01T00:00:00Z", 100},
		{"day slip", "1990-01-01", "1990-01-10", 80},
		{"same year", "1990-01-01", "1990-07-01", 50},
		{"one year later", "1990-01-01", "1991-12-31", 30},
		{"one year earlier", "1991-03-04", "1990-03-04", 30},
		{"two years apart", "1990-01-01", "1992-01-01", 0},
		{"decade apart", "1980-05-05", "1990-05-05", 0},
		{"malformed", "01/01/1990", "1990-01-01", 0},
		{"missing", "", "1990-01-01", 0},
		{"garbage", "not-a-date", "also-not", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DateSimilarity(tt.a, tt.b); got != tt.want {
				t.Errorf("DateSimilarity(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	d, ok := ParseDate(" 2001-02-03 ")
	if !ok {
		t.Fatal("expected date to parse")
	}
	if d.Year() != 2001 || d.Month() != 2 || d.Day() != 3 {
		t.Errorf("unexpected date %v", d)
	}
	if _, ok := ParseDate("2001-13-40"); ok {
		t.Error("expected invalid calendar date to fail")
	}
}
