package pdf

import "testing"

func TestValidatePDF(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want bool
	}{
		{"pdf header", []byte("%PDF-1.7\n..."), true},
		{"png", []byte("\x89PNG\r\n\x1a\n"), false},
		{"too short", []byte("%PD"), false},
		{"empty", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidatePDF(tt.data); got != tt.want {
				t.Errorf("ValidatePDF() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExtractRejectsNonPDF(t *testing.T) {
	if _, err := Extract([]byte("just some text")); err == nil {
		t.Fatal("Extract() on non-PDF data should fail")
	}
}

func TestExtractRejectsTruncatedPDF(t *testing.T) {
	if _, err := Extract([]byte("%PDF-1.4\n1 0 obj\n<<")); err == nil {
		t.Fatal("Extract() on truncated PDF should fail")
	}
}
