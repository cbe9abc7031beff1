package film

import "testing"

func TestClassifyCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code string
		want CodeCategory
	}{
		{code: "TOKYO-HOT-N1234", want: CategoryPrefixed},
		{code: "GACHINCO-GACHI1001", want: CategoryPrefixed},
		{code: "CARIB-123-456", want: CategoryCarib},
		{code: "CARIBPR-12-34", want: CategoryUnderscored},
		{code: "PACO-010101-001", want: CategoryUnderscored},
		{code: "10MU-112233-01", want: CategoryUnderscored},
		{code: "1PONDO-99-01", want: CategoryUnderscored},
		{code: "ABP-123", want: CategoryPlain},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.code, func(t *testing.T) {
			t.Parallel()
			if got := ClassifyCode(tt.code); got != tt.want {
				t.Fatalf("ClassifyCode(%q) = %v, want %v", tt.code, got, tt.want)
			}
		})
	}
}

func TestNormalizeCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		code   string
		want   string
		wantOK bool
	}{
		{name: "tokyo hot prefix stripped", code: "TOKYO-HOT-N1234", want: "N1234", wantOK: true},
		{name: "gachinco prefix stripped", code: "GACHINCO-GACHI1001", want: "GACHI1001", wantOK: true},
		{name: "tokyo hot without dash kept", code: "TOKYO-HOTN1", want: "TOKYO-HOTN1", wantOK: true},
		{name: "carib pair verbatim", code: "CARIB-123-456", want: "123-456", wantOK: true},
		{name: "carib without pair", code: "CARIB-NOPE", wantOK: false},
		{name: "caribpr pair underscored", code: "CARIBPR-12-34", want: "12_34", wantOK: true},
		{name: "caribpr without pair", code: "CARIBPR-ABC", wantOK: false},
		{name: "1pondo pair underscored", code: "1PONDO-99-01", want: "99_01", wantOK: true},
		{name: "paco pair underscored", code: "PACO-010120-211", want: "010120_211", wantOK: true},
		{name: "10mu pair underscored", code: "10MU-081519-01", want: "081519_01", wantOK: true},
		{name: "plain code unchanged", code: "ABP-123", want: "ABP-123", wantOK: true},
		{name: "plain code with pair unchanged", code: "HEYZO-12-34", want: "HEYZO-12-34", wantOK: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := NormalizeCode(tt.code)
			if ok != tt.wantOK {
				t.Fatalf("NormalizeCode(%q) ok = %v, want %v", tt.code, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Fatalf("NormalizeCode(%q) = %q, want %q", tt.code, got, tt.want)
			}
		})
	}
}

func TestDocumentURL(t *testing.T) {
	t.Parallel()

	var docs = []Document{
		Record{URL: "https://example.com/watch-a1"},
		UpdateRecord{URL: "https://example.com/watch-b2"},
	}
	want := []string{"https://example.com/watch-a1", "https://example.com/watch-b2"}
	for i, doc := range docs {
		if doc.DocumentURL() != want[i] {
			t.Fatalf("DocumentURL() = %q, want %q", doc.DocumentURL(), want[i])
		}
	}
}
