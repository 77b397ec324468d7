package operations

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/habedi/pldl/client"
	"github.com/habedi/pldl/pkg/pool"
	"github.com/habedi/pldl/pkg/validation"
	"github.com/rs/zerolog/log"
)

// PlaylistAPI is the part of the backend the playlist operations need.
type PlaylistAPI interface {
	AnalyzePlaylist(ctx context.Context, playlistURL string) (*client.Analysis, error)
	DownloadAll(ctx context.Context, links []client.YouTubeLink) (*http.Response, error)
}

// AnalysisResult is the outcome of analyzing one user-supplied playlist reference.
type AnalysisResult struct {
	Input    string           `json:"input"`
	URL      string           `json:"url,omitempty"`
	Analysis *client.Analysis `json:"analysis,omitempty"`
	Err      error            `json:"-"`
}

// AnalyzePlaylists analyzes every input with up to numThreads concurrent requests.
// Results are returned in input order. Invalid inputs fail without reaching the backend.
func AnalyzePlaylists(ctx context.Context, api PlaylistAPI, inputs []string, numThreads int) []AnalysisResult {
	results := make([]AnalysisResult, len(inputs))
	indexes := make([]int, 0, len(inputs))
	for i, in := range inputs {
		results[i].Input = in
		u, err := validation.NormalizePlaylistURL(in)
		if err != nil {
			results[i].Err = err
			continue
		}
		results[i].URL = u
		indexes = append(indexes, i)
	}

	outcomes := pool.Map(ctx, indexes, numThreads, func(ctx context.Context, i int) (*client.Analysis, error) {
		return api.AnalyzePlaylist(ctx, results[i].URL)
	})
	for k, i := range indexes {
		results[i].Analysis, results[i].Err = outcomes[k].Value, outcomes[k].Err
		if results[i].Err == nil && results[i].Analysis == nil {
			results[i].Err = fmt.Errorf("backend returned no analysis for %s", results[i].URL)
		}
		if results[i].Err != nil {
			log.Warn().Err(results[i].Err).Str("url", results[i].URL).Msg("Playlist analysis failed")
			results[i].Analysis = nil
			continue
		}
		log.Info().Str("playlist", results[i].Analysis.Playlist.Name).Int("links", len(results[i].Analysis.YouTubeLinks)).Msg("Playlist analyzed")
	}
	return results
}

// WriteLinksFile writes the successful analyses in results to path as indented JSON.
func WriteLinksFile(path string, results []AnalysisResult) error {
	var ok []AnalysisResult
	for _, r := range results {
		if r.Err == nil && r.Analysis != nil {
			ok = append(ok, r)
		}
	}
	data, err := json.MarshalIndent(ok, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode analysis results: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
