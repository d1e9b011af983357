package source_test

import (
	"errors"
	"testing"

	"github.com/MrWong99/debatescribe/internal/source"
)

func ptr(p source.Platform) *source.Platform { return &p }

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		hint     *source.Platform
		platform source.Platform
		id       string
	}{
		{"video with hint", "https://example-video.test/watch?v=ABC123", ptr(source.VideoPlatform), source.VideoPlatform, "ABC123"},
		{"video by host", "https://example-video.test/watch?v=ABC123", nil, source.VideoPlatform, "ABC123"},
		{"youtube watch", "https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=42", nil, source.VideoPlatform, "dQw4w9WgXcQ"},
		{"youtube short link", "https://youtu.be/dQw4w9WgXcQ?si=x", nil, source.VideoPlatform, "dQw4w9WgXcQ"},
		{"youtube live", "https://m.youtube.com/live/abcDEF12345", nil, source.VideoPlatform, "abcDEF12345"},
		{"microblog", "https://micro.test/status/99988877", nil, source.MicroblogPlatform, "99988877"},
		{"x.com", "https://x.com/debates/status/1234567890?s=20", nil, source.MicroblogPlatform, "1234567890"},
		{"soundcloud", "https://soundcloud.com/debate-club/round-one", nil, source.AudioPlatform, "debate-club/round-one"},
		{"tiktok", "https://www.tiktok.com/@user/video/7301234567890", nil, source.ShortFormPlatform, "7301234567890"},
		{"instagram reel", "https://www.instagram.com/reel/C1a2B3c4D5e/", nil, source.ShortFormPlatform, "C1a2B3c4D5e"},
		{"apple podcast episode", "https://podcasts.apple.com/us/podcast/the-debate/id123456?i=1000654321", nil, source.PodcastPlatform, "1000654321"},
		{"apple podcast show", "https://podcasts.apple.com/us/podcast/the-debate/id123456", nil, source.PodcastPlatform, "123456"},
		{"discord message", "https://discord.com/channels/111/222/333", nil, source.MessagingPlatform, "222/333"},
		{"direct media with query", "https://files.test/clip.mp3?token=xyz", nil, source.DirectMedia, "/clip.mp3"},
		{"direct media upper ext", "https://cdn.test/a/b/Debate.MP4#t=3", nil, source.DirectMedia, "/a/b/Debate.MP4"},
		{"unknown host", "https://example.org/some/page", nil, source.Unknown, "https://example.org/some/page"},
		{"not a url", "not a url", nil, source.Unknown, "not a url"},
		{"empty", "", nil, source.Unknown, ""},
		{"no scheme", "youtube.com/watch?v=x", nil, source.Unknown, "youtube.com/watch?v=x"},
		{"ftp scheme", "ftp://files.test/clip.mp3", nil, source.Unknown, "ftp://files.test/clip.mp3"},
		{"unknown hint ignored", "https://files.test/clip.mp3", ptr(source.Unknown), source.DirectMedia, "/clip.mp3"},
		{"hint overrides host", "https://files.test/watch?v=Q1", ptr(source.VideoPlatform), source.VideoPlatform, "Q1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := source.Resolve(tt.url, tt.hint)
			if err != nil {
				t.Fatalf("Resolve(%q): unexpected error: %v", tt.url, err)
			}
			if ref.Platform != tt.platform {
				t.Errorf("platform = %q, want %q", ref.Platform, tt.platform)
			}
			if ref.ID != tt.id {
				t.Errorf("id = %q, want %q", ref.ID, tt.id)
			}
			if ref.URL != tt.url {
				t.Errorf("url = %q, want %q", ref.URL, tt.url)
			}
		})
	}
}

func TestResolve_ExtractionFailure(t *testing.T) {
	tests := []struct {
		url      string
		platform source.Platform
	}{
		{"https://www.youtube.com/feed/subscriptions", source.VideoPlatform},
		{"https://micro.test/debates", source.MicroblogPlatform},
		{"https://soundcloud.com/debate-club/sets/season-1", source.AudioPlatform},
		{"https://discord.com/channels/111", source.MessagingPlatform},
	}
	for _, tt := range tests {
		ref, err := source.Resolve(tt.url, nil)
		if !errors.Is(err, source.ErrSourceIDExtraction) {
			t.Fatalf("%s: err = %v, want ErrSourceIDExtraction", tt.url, err)
		}
		var ee *source.ExtractionError
		if !errors.As(err, &ee) || ee.Platform != tt.platform {
			t.Errorf("%s: extraction error platform = %v, want %q", tt.url, ee, tt.platform)
		}
		if ref.Platform != source.Unknown || ref.ID != tt.url {
			t.Errorf("%s: ref = %+v, want unknown with the url as id", tt.url, ref)
		}
	}
}

func TestResolve_Deterministic(t *testing.T) {
	inputs := []string{
		"https://example-video.test/watch?v=ABC123",
		"https://files.test/clip.mp3?token=xyz",
		"not a url",
		"https://micro.test/status/99988877",
	}
	for _, in := range inputs {
		first, firstErr := source.Resolve(in, nil)
		for range 5 {
			again, err := source.Resolve(in, nil)
			if again != first || (err == nil) != (firstErr == nil) {
				t.Fatalf("Resolve(%q) not deterministic: %+v vs %+v", in, first, again)
			}
		}
	}
}

func TestResolve_KnownPlatformHasID(t *testing.T) {
	inputs := []string{
		"https://youtu.be/",
		"https://www.youtube.com/watch",
		"https://x.com/status/",
		"https://podcasts.apple.com/us/podcast/x",
		"https://files.test/clip.mp3",
		"https://discord.com/channels/1/2/3",
	}
	for _, in := range inputs {
		ref, _ := source.Resolve(in, nil)
		if ref.Platform != source.Unknown && ref.ID == "" {
			t.Errorf("Resolve(%q) = %+v: known platform with empty id", in, ref)
		}
	}
}

func TestIsDirectMedia(t *testing.T) {
	tests := map[string]bool{
		"https://files.test/clip.mp3":            true,
		"https://files.test/clip.mp3?token=xyz":  true,
		"https://files.test/video.webm#t=1":      true,
		"https://files.test/page.html":           false,
		"https://files.test/mp3":                 false,
		"https://www.youtube.com/watch?v=x.mp4":  false,
		"not a url":                              false,
		"https://files.test/archive/episode.M4A": true,
	}
	for in, want := range tests {
		if got := source.IsDirectMedia(in); got != want {
			t.Errorf("IsDirectMedia(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestParsePlatform(t *testing.T) {
	for _, p := range source.AllPlatforms() {
		got, err := source.ParsePlatform(p.String())
		if err != nil || got != p {
			t.Errorf("ParsePlatform(%q) = (%q, %v)", p, got, err)
		}
	}
	if got, err := source.ParsePlatform("Short-Form"); err != nil || got != source.ShortFormPlatform {
		t.Errorf("ParsePlatform(Short-Form) = (%q, %v)", got, err)
	}
	if _, err := source.ParsePlatform("carrier-pigeon"); err == nil {
		t.Error("expected error for unknown platform")
	}
}

func TestAllPlatforms_ReturnsCopy(t *testing.T) {
	a := source.AllPlatforms()
	a[0] = "mutated"
	if source.AllPlatforms()[0] == "mutated" {
		t.Fatal("AllPlatforms must return a copy")
	}
}
