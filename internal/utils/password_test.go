package utils

import (
	"strings"
	"testing"
)

func TestHashAndCheckPassword(t *testing.T) {
	h, err := HashPassword("patrick123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !CheckPasswordHash("patrick123", h) {
		t.Fatal("expected password to match")
	}
	if CheckPasswordHash("patrick124", h) {
		t.Fatal("expected mismatch")
	}
}

func TestValidatePasswordPolicy(t *testing.T) {
	cases := []struct {
		pw      string
		extra   []string
		wantOK  bool
		comment string
	}{
		{"Sh0rt!", nil, false, "too short"},
		{"alllowercase1!", nil, false, "no upper"},
		{"NoDigitsHere!!", nil, false, "no digit"},
		{"NoSpecial12345", nil, false, "no special"},
		{"MyPassword#2024", nil, false, "common fragment"},
		{"Patrick#Rocks99", []string{"patrick"}, false, "personal info"},
		{"Blue-Heron#4812", []string{"patrick", "pa"}, true, "valid"},
		{"Aa1!" + strings.Repeat("z", 80), nil, false, "longer than bcrypt accepts"},
	}
	for _, tc := range cases {
		ok, reason := ValidatePasswordPolicy(tc.pw, tc.extra...)
		if ok != tc.wantOK {
			t.Errorf("%s: ValidatePasswordPolicy(%q) = %v (%s)", tc.comment, tc.pw, ok, reason)
		}
	}
}

func TestCompareDummyHash(t *testing.T) {
	if CompareDummyHash("no-such-user-placeholder") {
		t.Fatal("dummy comparison must never succeed")
	}
}
