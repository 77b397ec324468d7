package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/habedi/pldl/auth"
)

// API is the typed surface of the playlist backend.
type API struct {
	client    *Client
	downloads *Client
}

// NewAPI wraps an authenticated Client.
func NewAPI(c *Client) *API { return &API{client: c, downloads: c} }

// WithDownloadClient sends archive requests through d, usually a client without an overall timeout.
// d should share the store and refresher of the main client.
func (a *API) WithDownloadClient(d *Client) *API {
	a.downloads = d
	return a
}

// Playlists lists the current user's playlists.
func (a *API) Playlists(ctx context.Context) ([]Playlist, error) {
	resp, err := a.client.Send(ctx, &Request{Method: http.MethodGet, Path: "/playlists"})
	if err != nil {
		return nil, err
	}
	return parsePlaylists(resp.Body)
}

// AnalyzePlaylist resolves a playlist URL to its metadata and YouTube links.
func (a *API) AnalyzePlaylist(ctx context.Context, playlistURL string) (*Analysis, error) {
	playlistURL = strings.TrimSpace(playlistURL)
	if playlistURL == "" {
		return nil, fmt.Errorf("%w: no playlist URL provided", auth.ErrRequestFailed)
	}
	resp, err := a.client.Send(ctx, &Request{
		Method: http.MethodPost,
		Path:   "/analyze_playlist",
		Body:   map[string]string{"playlist_url": playlistURL},
	})
	if err != nil {
		return nil, err
	}
	var analysis Analysis
	if err := resp.DecodeJSON(&analysis); err != nil {
		return nil, err
	}
	return &analysis, nil
}

// DownloadAll asks the backend to bundle the given tracks into an archive.
// The returned response body is the archive; the caller must close it.
func (a *API) DownloadAll(ctx context.Context, links []YouTubeLink) (*http.Response, error) {
	if len(links) == 0 {
		return nil, fmt.Errorf("%w: no YouTube links provided", auth.ErrRequestFailed)
	}
	return a.downloads.SendStream(ctx, &Request{
		Method: http.MethodPost,
		Path:   "/download_all",
		Body:   map[string][]YouTubeLink{"youtube_links": links},
		Accept: "application/zip, application/octet-stream",
	})
}
