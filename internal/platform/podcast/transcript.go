package podcast

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/MrWong99/debatescribe/internal/acquire"
)

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// ParseTranscript converts a published transcript file into plain text.
// mimeType selects the format; unknown types are sniffed from the content.
func ParseTranscript(body []byte, mimeType string) (string, error) {
	mt, _, _ := strings.Cut(strings.ToLower(mimeType), ";")
	mt = strings.TrimSpace(mt)
	trimmed := bytes.TrimSpace(body)

	var (
		text string
		err  error
	)
	switch {
	case mt == "application/json" || (mt == "" && bytes.HasPrefix(trimmed, []byte("{"))):
		text, err = parseJSON(trimmed)
	case mt == "text/html" || (mt == "" && bytes.HasPrefix(trimmed, []byte("<"))):
		text, err = parseHTML(trimmed)
	case mt == "text/vtt", strings.Contains(mt, "srt"), strings.Contains(mt, "subrip"),
		bytes.HasPrefix(trimmed, []byte("WEBVTT")), bytes.Contains(trimmed, []byte("-->")):
		text = parseCues(string(trimmed))
	default:
		text = strings.Join(strings.Fields(string(trimmed)), " ")
	}
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", fmt.Errorf("%w: transcript file is empty", acquire.ErrNoTranscript)
	}
	return text, nil
}

// parseCues handles WebVTT and SubRip: cue numbers, timing lines, headers
// and NOTE/STYLE blocks are dropped, inline tags stripped, and repeated
// lines from roll-up captions collapsed.
func parseCues(body string) string {
	var (
		parts []string
		skip  bool
	)
	lines := strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n")
	for i, line := range lines {
		line = strings.TrimSpace(line)
		switch {
		case line == "":
			skip = false
			continue
		case skip:
			continue
		case strings.HasPrefix(line, "WEBVTT"):
			continue
		case strings.HasPrefix(line, "NOTE"), strings.HasPrefix(line, "STYLE"), strings.HasPrefix(line, "REGION"):
			skip = true
			continue
		case isTiming(line):
			continue
		case i+1 < len(lines) && isTiming(lines[i+1]):
			// cue identifier, such as an SRT sequence number
			continue
		}
		text := strings.Join(strings.Fields(tagPattern.ReplaceAllString(line, "")), " ")
		if text == "" || (len(parts) > 0 && parts[len(parts)-1] == text) {
			continue
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, " ")
}

func isTiming(line string) bool {
	return strings.Contains(line, "-->")
}

// parseJSON handles the Podcasting 2.0 JSON transcript format.
func parseJSON(body []byte) (string, error) {
	var doc struct {
		Segments []struct {
			Body string `json:"body"`
		} `json:"segments"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return "", fmt.Errorf("podcast: parse json transcript: %w", err)
	}
	parts := make([]string, 0, len(doc.Segments))
	for _, s := range doc.Segments {
		if t := strings.Join(strings.Fields(s.Body), " "); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " "), nil
}

// parseHTML joins paragraph text, or the whole body when the document has no
// paragraphs.
func parseHTML(body []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("podcast: parse html transcript: %w", err)
	}
	doc.Find("script, style").Remove()

	var parts []string
	doc.Find("p").Each(func(_ int, p *goquery.Selection) {
		if t := strings.Join(strings.Fields(p.Text()), " "); t != "" {
			parts = append(parts, t)
		}
	})
	if len(parts) == 0 {
		return strings.Join(strings.Fields(doc.Find("body").Text()), " "), nil
	}
	return strings.Join(parts, " "), nil
}
