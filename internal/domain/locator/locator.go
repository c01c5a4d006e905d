package locator

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/ragavsathish/yt-sl/internal/domain/entity"
)

var videoIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{10,12}$`)

var youtubeHosts = map[string]bool{
	"www.youtube.com":   true,
	"youtube.com":       true,
	"youtu.be":          true,
	"m.youtube.com":     true,
	"music.youtube.com": true,
}

// Validator checks video URLs before any network activity and extracts the
// video ID, which doubles as the default session ID.
//
// Accepted shapes: watch?v=ID, youtu.be/ID, /embed/ID, /shorts/ID and /v/ID
// on the known YouTube hosts.
type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

// Validate parses rawURL and returns the video ID it names.
func (v *Validator) Validate(rawURL string) (string, error) {
	if rawURL == "" {
		return "", entity.ErrInvalidLocator(rawURL, "URL is empty")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", entity.ErrInvalidLocator(rawURL, "malformed URL")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", entity.ErrInvalidLocator(rawURL, "missing or unsupported scheme")
	}
	if !youtubeHosts[parsed.Hostname()] {
		return "", entity.ErrInvalidLocator(rawURL, "not a YouTube host")
	}

	id, err := extractVideoID(parsed)
	if err != nil {
		return "", err
	}
	if !videoIDPattern.MatchString(id) {
		return "", entity.ErrInvalidLocator(rawURL, "video ID has invalid format")
	}
	return id, nil
}

func extractVideoID(u *url.URL) (string, error) {
	if u.Hostname() == "youtu.be" {
		id := strings.Trim(u.Path, "/")
		if id == "" {
			return "", entity.ErrInvalidLocator(u.String(), "no video ID in URL")
		}
		return id, nil
	}

	if id := u.Query().Get("v"); id != "" {
		return id, nil
	}

	segments := strings.FieldsFunc(u.Path, func(r rune) bool { return r == '/' })
	if len(segments) >= 2 {
		switch segments[0] {
		case "embed", "shorts", "v":
			return segments[1], nil
		}
	}

	return "", entity.ErrInvalidLocator(u.String(), "no video ID in URL")
}
