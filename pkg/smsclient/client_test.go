package smsclient

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestCleanPhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"0821234567", "+27821234567"},
		{"082 123 4567", "+27821234567"},
		{"082-123-4567", "+27821234567"},
		{"+27821234567", "+27821234567"},
		{"27821234567", "+27821234567"},
		{" 0731112222 ", "+27731112222"},
		{"12345", ""},
		{"", ""},
		{"abc", ""},
	}
	for _, tc := range cases {
		if got := CleanPhone(tc.in); got != tc.want {
			t.Errorf("CleanPhone(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	short := "Your transfer is ready"
	if got := Truncate(short); got != short {
		t.Fatalf("expected short body untouched, got %q", got)
	}

	long := strings.Repeat("a", 200)
	got := Truncate(long)
	if len([]rune(got)) != 160 {
		t.Fatalf("expected 160-rune body, got %d", len([]rune(got)))
	}
}

func TestMessageTemplatesFitOneSegment(t *testing.T) {
	amount := decimal.RequireFromString("54.054054")

	receiver := ReceiverCreatedMessage("Hodan Abdullahi", "ISA-A1B2C3D4123456", amount)
	if len([]rune(receiver)) > 160 {
		t.Fatalf("receiver message exceeds one segment: %d runes", len([]rune(receiver)))
	}
	if !strings.Contains(receiver, "ISA-A1B2C3D4123456") {
		t.Fatal("expected receiver message to carry the reference")
	}

	sender := SenderCompletedMessage("Ayanda Mokoena", "Hodan Abdullahi", "ISA-A1B2C3D4123456")
	if len([]rune(sender)) > 160 {
		t.Fatalf("sender message exceeds one segment: %d runes", len([]rune(sender)))
	}
	if !strings.Contains(sender, "ISA-A1B2C3D4123456") {
		t.Fatal("expected sender message to carry the reference")
	}
}
