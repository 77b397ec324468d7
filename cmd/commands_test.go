package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/habedi/pldl/auth"
	"github.com/habedi/pldl/pkg/clierr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

const testPlaylistID = "37i9dQZF1DXcBWIGoYBM5M"

type fakeBackend struct {
	*httptest.Server
	valid     atomic.Value
	refreshes atomic.Int64
	archive   []byte
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	b := &fakeBackend{archive: []byte("PK\x03\x04 fake archive")}
	b.valid.Store("")
	b.Server = httptest.NewServer(http.HandlerFunc(b.serve))
	t.Cleanup(b.Close)
	return b
}

func (b *fakeBackend) serve(w http.ResponseWriter, r *http.Request) {
	reply := func(status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}

	switch r.URL.Path {
	case "/callback":
		token := "access-" + r.URL.Query().Get("code")
		b.valid.Store(token)
		reply(http.StatusOK, map[string]any{"access_token": token, "refresh_token": "refresh-1", "expires_in": 3600, "token_type": "Bearer"})
		return
	case "/refresh_token":
		b.refreshes.Add(1)
		b.valid.Store("renewed")
		reply(http.StatusOK, map[string]any{"access_token": "renewed", "expires_in": 3600})
		return
	}

	if r.Header.Get("Authorization") != "Bearer "+b.valid.Load().(string) {
		reply(http.StatusUnauthorized, map[string]bool{"authenticated": false})
		return
	}

	switch r.URL.Path {
	case "/playlists":
		reply(http.StatusOK, []map[string]any{
			{"id": testPlaylistID, "name": "Road Trip", "tracks": map[string]int{"total": 2}, "owner": map[string]string{"display_name": "ana"},
				"external_urls": map[string]string{"spotify": "https://open.spotify.com/playlist/" + testPlaylistID}},
		})
	case "/analyze_playlist":
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if !strings.HasSuffix(body["playlist_url"], testPlaylistID) {
			reply(http.StatusInternalServerError, map[string]string{"error": "playlist not found"})
			return
		}
		reply(http.StatusOK, map[string]any{
			"playlist": map[string]any{"id": testPlaylistID, "name": "Road Trip"},
			"youtube_links": []map[string]string{
				{"artist": "Band", "title": "Song One", "youtube_url": "https://www.youtube.com/watch?v=one"},
				{"artist": "Band", "title": "Song Two", "youtube_url": "https://www.youtube.com/watch?v=two"},
			},
		})
	case "/download_all":
		w.Header().Set("Content-Type", "application/zip")
		_, _ = w.Write(b.archive)
	default:
		http.NotFound(w, r)
	}
}

// run executes one CLI invocation the way Execute does, without exiting the process.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	rootCmd, opts := newRootCmd()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)

	err := rootCmd.ExecuteContext(context.Background())
	opts.close()
	return out.String(), err
}

func useKeyring(t *testing.T, b *fakeBackend) []string {
	t.Helper()
	isolateEnv(t)
	keyring.MockInit()
	return []string{"--backend", b.URL, "--store", "keyring"}
}

func TestLoginStatusLogout(t *testing.T) {
	b := newFakeBackend(t)
	flags := useKeyring(t, b)

	out, err := run(t, "", append([]string{"login", "abc"}, flags...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Login was successful")

	out, err = run(t, "", append([]string{"status"}, flags...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in")
	assert.Contains(t, out, "Access token expires in")
	assert.NotContains(t, out, "Renewal is due")

	out, err = run(t, "", append([]string{"logout"}, flags...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Logged out.")

	out, err = run(t, "", append([]string{"status"}, flags...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Not logged in.")
}

func TestLogin_PromptsForCode(t *testing.T) {
	b := newFakeBackend(t)
	flags := useKeyring(t, b)

	out, err := run(t, "typed-code\n", append([]string{"login"}, flags...)...)

	require.NoError(t, err)
	assert.Contains(t, out, b.URL+"/login")
	assert.Equal(t, "access-typed-code", b.valid.Load())
}

func TestLogin_EmptyCode(t *testing.T) {
	b := newFakeBackend(t)
	flags := useKeyring(t, b)

	_, err := run(t, "\n", append([]string{"login"}, flags...)...)

	require.Error(t, err)
	assert.Equal(t, clierr.Validation, clierr.FromError(err).Type)
}

func TestPlaylists_SQLiteStore(t *testing.T) {
	b := newFakeBackend(t)
	isolateEnv(t)
	t.Setenv("PLDL_DB_PATH", filepath.Join(t.TempDir(), "pldl.db"))
	flags := []string{"--backend", b.URL}

	_, err := run(t, "", append([]string{"login", "xyz"}, flags...)...)
	require.NoError(t, err)

	out, err := run(t, "", append([]string{"playlists"}, flags...)...)

	require.NoError(t, err)
	assert.Contains(t, out, "Road Trip")
	assert.Contains(t, out, "ana")
	assert.Contains(t, out, "https://open.spotify.com/playlist/"+testPlaylistID)
	assert.Equal(t, int64(0), b.refreshes.Load())
}

func TestPlaylists_RenewsExpiredToken(t *testing.T) {
	b := newFakeBackend(t)
	flags := useKeyring(t, b)
	b.valid.Store("renewed")
	require.NoError(t, auth.NewKeyringStore().Write(context.Background(), auth.TokenRecord{
		AccessToken:  "stale",
		RefreshToken: "refresh-1",
		ExpiresAt:    time.Now().Add(-time.Minute).Unix(),
		TokenType:    "Bearer",
	}))

	out, err := run(t, "", append([]string{"status"}, flags...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Renewal is due")

	out, err = run(t, "", append([]string{"playlists"}, flags...)...)

	require.NoError(t, err)
	assert.Contains(t, out, "Road Trip")
	// The renewal loop checks on start and the rejected request refreshes too; they share one exchange.
	assert.Equal(t, int64(1), b.refreshes.Load())
	rec, err := auth.NewKeyringStore().Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "renewed", rec.AccessToken)
	assert.Equal(t, "refresh-1", rec.RefreshToken)
}

func TestPlaylists_NotLoggedIn(t *testing.T) {
	b := newFakeBackend(t)
	flags := useKeyring(t, b)

	_, err := run(t, "", append([]string{"playlists"}, flags...)...)

	assert.ErrorIs(t, err, auth.ErrUnauthenticated)
	assert.Equal(t, 3, clierr.FromError(err).Type.ExitCode())
}

func TestAnalyze(t *testing.T) {
	b := newFakeBackend(t)
	flags := useKeyring(t, b)
	_, err := run(t, "", append([]string{"login", "abc"}, flags...)...)
	require.NoError(t, err)
	linksOut := filepath.Join(t.TempDir(), "links.json")

	out, err := run(t, "", append([]string{"analyze", "spotify:playlist:" + testPlaylistID, "-o", linksOut}, flags...)...)

	require.NoError(t, err)
	assert.Contains(t, out, "Road Trip (2 tracks)")
	assert.Contains(t, out, "https://www.youtube.com/watch?v=two")
	data, err := os.ReadFile(linksOut)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Song One")
}

func TestAnalyze_PartialFailure(t *testing.T) {
	b := newFakeBackend(t)
	flags := useKeyring(t, b)
	_, err := run(t, "", append([]string{"login", "abc"}, flags...)...)
	require.NoError(t, err)

	out, err := run(t, "", append([]string{"analyze", testPlaylistID, "https://open.spotify.com/playlist/4rOoJ6Egrf8K2IrywzwOMk"}, flags...)...)

	require.Error(t, err)
	assert.Equal(t, clierr.Request, clierr.FromError(err).Type)
	assert.Contains(t, out, "Road Trip")
	assert.Contains(t, out, "Failed to analyze")
}

func TestAnalyze_InvalidThreads(t *testing.T) {
	isolateEnv(t)
	_, err := run(t, "", "analyze", testPlaylistID, "--threads", "21")

	require.Error(t, err)
	assert.Equal(t, clierr.Validation, clierr.FromError(err).Type)
}

func TestInvalidPlaylistInput(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"analyze free text", []string{"analyze", "not a playlist"}},
		{"analyze one bad of two", []string{"analyze", testPlaylistID, "https://open.spotify.com/album/" + testPlaylistID}},
		{"download album link", []string{"download", "https://open.spotify.com/album/" + testPlaylistID, "out"}},
		{"download blank dir", []string{"download", testPlaylistID, "  "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newFakeBackend(t)
			flags := useKeyring(t, b)

			_, err := run(t, "", append(tt.args, flags...)...)

			require.Error(t, err)
			cliErr := clierr.FromError(err)
			assert.Equal(t, clierr.Validation, cliErr.Type)
			assert.Equal(t, 2, cliErr.Type.ExitCode())
		})
	}
}

func TestDownload(t *testing.T) {
	b := newFakeBackend(t)
	flags := useKeyring(t, b)
	_, err := run(t, "", append([]string{"login", "abc"}, flags...)...)
	require.NoError(t, err)
	dir := filepath.Join(t.TempDir(), "music")

	out, err := run(t, "", append([]string{"download", "https://open.spotify.com/playlist/" + testPlaylistID + "?si=1", dir, "--hash", "sha256"}, flags...)...)

	require.NoError(t, err)
	assert.Contains(t, out, `Saved 2 tracks of "Road Trip"`)
	saved, err := os.ReadFile(filepath.Join(dir, "playlist_audio.zip"))
	require.NoError(t, err)
	assert.Equal(t, b.archive, saved)
	assert.FileExists(t, filepath.Join(dir, "playlist_audio.zip.sha256"))
	assert.Contains(t, out, "sha256:")
}

func TestDownload_InvalidHash(t *testing.T) {
	isolateEnv(t)
	_, err := run(t, "", "download", testPlaylistID, t.TempDir(), "--hash", "crc32")

	require.Error(t, err)
	assert.Equal(t, clierr.Validation, clierr.FromError(err).Type)
}
