package service

import "testing"

func TestSafeExtension(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plan.PDF", "pdf"},
		{"piece.step", "step"},
		{"archive.tar.gz", "gz"},
		{"sans-extension", ""},
		{"pointfinal.", ""},
		{"bizarre.p df", ""},
		{"trop-long.extension", ""},
		{"injection.../../x", ""},
	}
	for _, tt := range tests {
		if got := safeExtension(tt.in); got != tt.want {
			t.Errorf("safeExtension(%q) = %q, attendu %q", tt.in, got, tt.want)
		}
	}
}

func TestObjectName(t *testing.T) {
	if got := objectName("abc123", "pdf"); got != "parts/abc123.pdf" {
		t.Errorf("objectName = %q", got)
	}
	if got := objectName("abc123", ""); got != "parts/abc123" {
		t.Errorf("objectName sans extension = %q", got)
	}
}
