package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
)

// DefaultArchiveName is used when the backend does not name the archive.
const DefaultArchiveName = "playlist_audio.zip"

// archiveFileMode replaces the owner-only mode of the temporary file.
const archiveFileMode = 0o644

func ensureDirExists(path string) error {
	info, err := os.Stat(path)
	if err == nil {
		if !info.IsDir() {
			return fmt.Errorf("path %s exists but is not a directory", path)
		}
		return nil
	}
	if os.IsNotExist(err) {
		log.Info().Msgf("Creating directory: %s", path)
		return os.MkdirAll(path, 0o750)
	}
	return err
}

// SanitizePath turns a display name into something safe to use as a file name.
func SanitizePath(name string) string {
	replacements := []struct {
		old string
		new string
	}{
		{"/", "-"}, {"\\", "-"}, {":", ""}, {" ", "-"}, {"(", ""}, {")", ""}, {"?", ""}, {"*", ""}, {"\"", ""},
	}
	name = strings.ToLower(strings.TrimSpace(name))
	for _, r := range replacements {
		name = strings.ReplaceAll(name, r.old, r.new)
	}
	return strings.Trim(name, ".-")
}

// archiveName picks the file name from Content-Disposition, falling back to DefaultArchiveName.
func archiveName(resp *http.Response) string {
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			if name := filepath.Base(params["filename"]); name != "" && name != "." && name != ".." && name != string(filepath.Separator) {
				return name
			}
		}
	}
	return DefaultArchiveName
}

// SaveArchive streams the archive in resp into dir and returns the saved path and its size.
// An empty name uses the name the backend sent. Progress is drawn on progressWriter when it is not nil.
// The file appears only once it is complete. resp.Body is always closed.
func SaveArchive(ctx context.Context, resp *http.Response, dir, name string, progressWriter io.Writer) (string, int64, error) {
	defer closeResponseBody(resp)

	if err := ensureDirExists(dir); err != nil {
		return "", 0, fmt.Errorf("failed to prepare download directory: %w", err)
	}
	if name == "" {
		name = archiveName(resp)
	}
	target := filepath.Join(dir, name)

	tmp, err := os.CreateTemp(dir, ".pldl-*.part")
	if err != nil {
		return "", 0, fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if tmpPath != "" {
			_ = os.Remove(tmpPath)
		}
	}()

	var reader = wrapWithGlobalRateLimiter(ctx, resp.Body)
	var bar *progressbar.ProgressBar
	if progressWriter != nil {
		bar = progressbar.NewOptions64(
			resp.ContentLength, // -1 shows a spinner
			progressbar.OptionSetDescription(fmt.Sprintf("Downloading %s", name)),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetWriter(progressWriter),
			progressbar.OptionThrottle(200*time.Millisecond),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionSetPredictTime(false),
		)
		progressReader := progressbar.NewReader(reader, bar)
		reader = &progressReader
	}

	buffer := make([]byte, 32*1024)
	written, err := io.CopyBuffer(tmp, reader, buffer)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			log.Info().Msgf("Download cancelled while saving %s", name)
			return "", 0, ctx.Err()
		}
		return "", 0, fmt.Errorf("failed to save archive %s: %w", target, err)
	}
	if bar != nil {
		_ = bar.Finish()
	}

	if err := os.Chmod(tmpPath, archiveFileMode); err != nil {
		return "", 0, fmt.Errorf("failed to set archive permissions: %w", err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		return "", 0, fmt.Errorf("failed to move archive into place: %w", err)
	}
	tmpPath = ""
	log.Info().Str("path", target).Int64("bytes", written).Msg("Archive saved")
	return target, written, nil
}
