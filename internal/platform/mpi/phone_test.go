package mpi

import "testing"

func TestNormalizePhone(t *testing.T) {
	rules := DefaultPhoneRules()
	tests := []struct {
		in   string
		want string
	}{
		{"+233 24 123 4567", "241234567"},
		{"0241234567", "241234567"},
		{"233241234567", "241234567"},
		{"(024) 123-4567", "241234567"},
		{"241234567", "241234567"},
		{"2331234", "2331234"},
		{"", ""},
		{"n/a", ""},
	}
	for _, tt := range tests {
		if got := rules.NormalizePhone(tt.in); got != tt.want {
			t.Errorf("NormalizePhone(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizePhone_FormattingVariantsAgree(t *testing.T) {
	rules := DefaultPhoneRules()
	a := rules.NormalizePhone("+233 24 123 4567")
	b := rules.NormalizePhone("0241234567")
	if a != b {
		t.Errorf("expected equal normalization, got %q and %q", a, b)
	}
	if len(a) != 9 {
		t.Errorf("expected 9 digits, got %d", len(a))
	}
}

func TestPhoneSimilarity(t *testing.T) {
	rules := DefaultPhoneRules()
	tests := []struct {
		name string
		a, b string
		want int
	}{
		{"exact", "0241234567", "0241234567", 100},
		{"country code vs trunk zero", "+233241234567", "0241234567", 100},
		{"country code vs bare", "233241234567", "241234567", 100},
		{"suffix match with extra prefix digits", "00233241234567", "0241234567", 100},
		{"one digit off", "0241234567", "0241234568", 80},
		{"two digits off", "0241234567", "0241234598", 50},
		{"four digits off", "0241234567", "0241239876", 0},
		{"different lengths", "0241234567", "12345", 0},
		{"empty side", "", "0241234567", 0},
		{"no digits", "none", "0241234567", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rules.PhoneSimilarity(tt.a, tt.b); got != tt.want {
				t.Errorf("PhoneSimilarity(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestPhoneRules_Regional(t *testing.T) {
	rules := PhoneRules{CountryCode: "44", SuffixDigits: 10, NationalLength: 11}
	if got := rules.NormalizePhone("+44 7911 123456"); got != "7911123456" {
		t.Errorf("unexpected UK normalization %q", got)
	}
	if got := rules.NormalizePhone("07911123456"); got != "7911123456" {
		t.Errorf("unexpected UK trunk normalization %q", got)
	}
}
