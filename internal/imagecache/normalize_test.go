package imagecache

import "testing"

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{
			name: "print service extracts id parameter",
			url:  "https://www.makeplayingcards.com/products/playingcard/design/dn_playingcards_front_dynamic.aspx?id=AbC123&ssid=xyz",
			want: "AbC123",
		},
		{
			name: "print service without id keeps raw",
			url:  "https://www.makeplayingcards.com/products/playingcard/design/front.aspx?ssid=xyz",
			want: "https://www.makeplayingcards.com/products/playingcard/design/front.aspx?ssid=xyz",
		},
		{
			name: "scryfall keys on host and path without query",
			url:  "https://cards.scryfall.io/large/front/a/b/ab4ee49b.jpg?1562567848",
			want: "cards.scryfall.io/large/front/a/b/ab4ee49b.jpg",
		},
		{
			name: "proxy wrapper unwraps and renormalizes",
			url:  "https://proxy.example.com/fetch?url=https%3A%2F%2Fcards.scryfall.io%2Flarge%2Ffront%2Fa%2Fb%2Fab4ee49b.jpg%3F1562567848",
			want: "cards.scryfall.io/large/front/a/b/ab4ee49b.jpg",
		},
		{
			name: "unknown host keeps raw URL",
			url:  "https://images.example.com/custom/art.png?v=2",
			want: "https://images.example.com/custom/art.png?v=2",
		},
		{
			name: "unparseable string keeps raw",
			url:  "::not a url::",
			want: "::not a url::",
		},
		{
			name: "relative path keeps raw",
			url:  "/local/upload/abc.png",
			want: "/local/upload/abc.png",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeKey(tt.url); got != tt.want {
				t.Errorf("NormalizeKey(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

func TestNormalizeKey_EquivalentURLsCollide(t *testing.T) {
	a := "https://www.makeplayingcards.com/design/front.aspx?ssid=1&id=SAME"
	b := "https://www.printerstudio.com/design/other.aspx?id=SAME&session=2"

	if NormalizeKey(a) != NormalizeKey(b) {
		t.Errorf("equivalent assets got different keys: %q vs %q", NormalizeKey(a), NormalizeKey(b))
	}
}

func TestNormalizeKey_SamePathDifferentHostsStayDistinct(t *testing.T) {
	a := "https://cards.scryfall.io/large/front/a/b/ab4ee49b.jpg"
	b := "https://api.scryfall.com/large/front/a/b/ab4ee49b.jpg"

	if NormalizeKey(a) == NormalizeKey(b) {
		t.Errorf("distinct hosts collided on key %q", NormalizeKey(a))
	}
}
