package transcript

import "testing"

func TestSplitExcerpt(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		limit    int
		wantHead string
		wantTail string
	}{
		{name: "fits", in: "one two", limit: 10, wantHead: "one two"},
		{name: "no limit", in: "one two three", limit: 0, wantHead: "one two three"},
		{name: "backs off to word boundary", in: "Well, one. Two three", limit: 12, wantHead: "Well, one.", wantTail: "Two three"},
		{name: "cut on space", in: "one two three", limit: 7, wantHead: "one two", wantTail: "three"},
		{name: "single long word", in: "abcdefgh ij", limit: 4, wantHead: "abcd", wantTail: "efgh ij"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			head, tail := SplitExcerpt(tt.in, tt.limit)
			if head != tt.wantHead || tail != tt.wantTail {
				t.Errorf("SplitExcerpt(%q, %d) = (%q, %q), want (%q, %q)",
					tt.in, tt.limit, head, tail, tt.wantHead, tt.wantTail)
			}
		})
	}
}
