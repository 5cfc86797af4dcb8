package urlutil

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "strips utm params",
			in:   "https://example.com/post?utm_source=x&utm_medium=y&id=5",
			want: "https://example.com/post?id=5",
		},
		{
			name: "strips fragment",
			in:   "https://example.com/post#section-2",
			want: "https://example.com/post",
		},
		{
			name: "strips trailing slash on non-root path",
			in:   "https://example.com/post/",
			want: "https://example.com/post",
		},
		{
			name: "keeps root path",
			in:   "https://example.com/",
			want: "https://example.com/",
		},
		{
			name: "sorts remaining params",
			in:   "https://example.com/a?z=1&b=2&m=3",
			want: "https://example.com/a?b=2&m=3&z=1",
		},
		{
			name: "strips fbclid and gclid",
			in:   "https://example.com/a?fbclid=abc&gclid=def&page=2",
			want: "https://example.com/a?page=2",
		},
		{
			name: "prefix match mc_",
			in:   "https://example.com/a?mc_eid=123&q=go",
			want: "https://example.com/a?q=go",
		},
		{
			name: "suffix match _id",
			in:   "https://example.com/a?tracker_id=9&q=go",
			want: "https://example.com/a?q=go",
		},
		{
			name: "invalid url returned unchanged",
			in:   "not a url",
			want: "not a url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	urls := []string{
		"https://example.com/post?utm_source=x&id=5#frag",
		"https://example.com/docs/guide/",
		"https://example.com/?b=2&a=1",
	}
	for _, u := range urls {
		once := Normalize(u)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: %q != %q", u, once, twice)
		}
	}
}

