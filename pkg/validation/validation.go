package validation

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

const (
	MinThreads = 1
	MaxThreads = 20
)

// PlaylistURLPrefix is the public URL form the backend expects.
const PlaylistURLPrefix = "https://open.spotify.com/playlist/"

// ErrInvalidInput is wrapped by every error this package returns.
var ErrInvalidInput = errors.New("invalid input")

var playlistIDPattern = regexp.MustCompile(`^[A-Za-z0-9]{10,40}$`)

func ValidateThreadCount(threads int) error {
	if threads < MinThreads || threads > MaxThreads {
		return fmt.Errorf("%w: thread count must be between %d and %d, got %d", ErrInvalidInput, MinThreads, MaxThreads, threads)
	}
	return nil
}

func ValidateNonEmptyString(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: %s cannot be empty", ErrInvalidInput, fieldName)
	}
	return nil
}

// PlaylistID extracts the playlist ID from a playlist URL, a spotify:playlist: URI or a bare ID.
// Query strings and trailing slashes are ignored.
func PlaylistID(input string) (string, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return "", fmt.Errorf("%w: playlist URL cannot be empty", ErrInvalidInput)
	}

	var id string
	switch {
	case strings.HasPrefix(s, "spotify:playlist:"):
		id = strings.TrimPrefix(s, "spotify:playlist:")
	case strings.Contains(s, "://"):
		u, err := url.Parse(s)
		if err != nil {
			return "", fmt.Errorf("%w: invalid playlist URL %q: %w", ErrInvalidInput, input, err)
		}
		if !strings.HasSuffix(u.Hostname(), "spotify.com") {
			return "", fmt.Errorf("%w: invalid playlist URL %q: not a Spotify link", ErrInvalidInput, input)
		}
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		if len(parts) < 2 || parts[len(parts)-2] != "playlist" {
			return "", fmt.Errorf("%w: invalid playlist URL %q: not a playlist link", ErrInvalidInput, input)
		}
		id = parts[len(parts)-1]
	default:
		id = s
	}

	if !playlistIDPattern.MatchString(id) {
		return "", fmt.Errorf("%w: invalid playlist ID %q", ErrInvalidInput, id)
	}
	return id, nil
}

// NormalizePlaylistURL returns the canonical public URL for any input PlaylistID accepts.
func NormalizePlaylistURL(input string) (string, error) {
	id, err := PlaylistID(input)
	if err != nil {
		return "", err
	}
	return PlaylistURLPrefix + id, nil
}
