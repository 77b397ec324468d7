package operations

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/habedi/pldl/client"
	"github.com/habedi/pldl/pkg/hasher"
	"github.com/habedi/pldl/pkg/validation"
	"github.com/rs/zerolog/log"
)

// ErrNoLinks is returned when a playlist has no track that resolved to a YouTube video.
var ErrNoLinks = errors.New("no YouTube links found for playlist")

// DownloadParams controls where and how a playlist archive is saved.
type DownloadParams struct {
	Dir      string
	Name     string // empty uses the name the backend sends
	HashAlgo string // empty skips the checksum
	Progress io.Writer
}

// DownloadResult describes a saved playlist archive.
type DownloadResult struct {
	Playlist     client.Playlist
	Tracks       int
	Path         string
	Bytes        int64
	Checksum     string
	ChecksumPath string
}

// DownloadPlaylist analyzes a playlist, downloads its tracks as one archive and saves it under params.Dir.
func DownloadPlaylist(ctx context.Context, api PlaylistAPI, input string, params DownloadParams) (*DownloadResult, error) {
	if params.HashAlgo != "" && !hasher.IsValidHashAlgo(params.HashAlgo) {
		return nil, fmt.Errorf("%w: unsupported hash algorithm: %s", validation.ErrInvalidInput, params.HashAlgo)
	}
	playlistURL, err := validation.NormalizePlaylistURL(input)
	if err != nil {
		return nil, err
	}

	analysis, err := api.AnalyzePlaylist(ctx, playlistURL)
	if err != nil {
		return nil, err
	}
	if len(analysis.YouTubeLinks) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoLinks, playlistURL)
	}
	log.Info().Str("playlist", analysis.Playlist.Name).Int("tracks", len(analysis.YouTubeLinks)).Msg("Requesting playlist archive")

	resp, err := api.DownloadAll(ctx, analysis.YouTubeLinks)
	if err != nil {
		return nil, err
	}
	path, n, err := client.SaveArchive(ctx, resp, params.Dir, params.Name, params.Progress)
	if err != nil {
		return nil, err
	}

	result := &DownloadResult{
		Playlist: analysis.Playlist,
		Tracks:   len(analysis.YouTubeLinks),
		Path:     path,
		Bytes:    n,
	}
	if params.HashAlgo != "" {
		sum, sumPath, err := hasher.WriteChecksumFile(path, params.HashAlgo)
		if err != nil {
			return result, fmt.Errorf("archive saved but checksum failed: %w", err)
		}
		result.Checksum, result.ChecksumPath = sum, sumPath
	}
	return result, nil
}
