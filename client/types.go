package client

import (
	"encoding/json"
	"fmt"

	"github.com/habedi/pldl/auth"
)

// Playlist is a playlist summary as returned by the backend.
type Playlist struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Description  string            `json:"description,omitempty"`
	URI          string            `json:"uri,omitempty"`
	ExternalURLs map[string]string `json:"external_urls,omitempty"`
	Owner        Owner             `json:"owner"`
	Tracks       TrackCount        `json:"tracks"`
}

type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type TrackCount struct {
	Total int `json:"total"`
}

// URL returns the public playlist URL when the backend supplied one.
func (p Playlist) URL() string {
	return p.ExternalURLs["spotify"]
}

// YouTubeLink is one track resolved to a YouTube video.
type YouTubeLink struct {
	Artist     string `json:"artist"`
	Title      string `json:"title"`
	YouTubeURL string `json:"youtube_url"`
}

// Analysis is the result of analyzing a playlist.
type Analysis struct {
	Playlist     Playlist      `json:"playlist"`
	YouTubeLinks []YouTubeLink `json:"youtube_links"`
}

// parsePlaylists accepts a bare JSON array or a paging object with an items field.
func parsePlaylists(body []byte) ([]Playlist, error) {
	var list []Playlist
	if err := json.Unmarshal(body, &list); err == nil {
		return list, nil
	}
	var page struct {
		Items []Playlist `json:"items"`
	}
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("%w: failed to parse playlists: %w", auth.ErrRequestFailed, err)
	}
	return page.Items, nil
}
