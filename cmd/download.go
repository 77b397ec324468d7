package cmd

import (
	"errors"
	"io"
	"os"

	"github.com/habedi/pldl/pkg/clierr"
	"github.com/habedi/pldl/pkg/hasher"
	"github.com/habedi/pldl/pkg/operations"
	"github.com/habedi/pldl/pkg/validation"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// downloadCmd analyzes a playlist and saves all its tracks as one archive.
func downloadCmd(opts *rootOptions) *cobra.Command {
	var name string
	var hashAlgo string
	var showProgress bool

	cmd := &cobra.Command{
		Use:   "download [playlistURL] [downloadDir]",
		Short: "Download a playlist as a zip archive",
		Long:  "Download every track of a playlist that has a YouTube match, bundled by the backend into one zip archive.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if hashAlgo != "" && !hasher.IsValidHashAlgo(hashAlgo) {
				return clierr.New(clierr.Validation, "Unsupported hash algorithm: "+hashAlgo, nil)
			}
			if _, err := validation.PlaylistID(args[0]); err != nil {
				return clierr.FromError(err)
			}
			if err := validation.ValidateNonEmptyString("download directory", args[1]); err != nil {
				return clierr.FromError(err)
			}
			a, err := opts.load(cmd)
			if err != nil {
				return err
			}
			if err := a.resume(cmd.Context()); err != nil {
				return err
			}

			var progress io.Writer
			if showProgress && isTerminal(cmd.ErrOrStderr()) {
				progress = cmd.ErrOrStderr()
			}

			result, err := operations.DownloadPlaylist(cmd.Context(), a.api, args[0], operations.DownloadParams{
				Dir:      args[1],
				Name:     name,
				HashAlgo: hashAlgo,
				Progress: progress,
			})
			if err != nil {
				switch {
				case errors.Is(err, operations.ErrNoLinks):
					return clierr.New(clierr.Download, "No track of this playlist could be found on YouTube.", err)
				case result != nil:
					log.Warn().Err(err).Msg("Checksum failed")
				default:
					return clierr.FromError(err)
				}
			}

			cmd.Printf("Saved %d tracks of %q to %s (%d bytes).\n", result.Tracks, result.Playlist.Name, result.Path, result.Bytes)
			if result.Checksum != "" {
				cmd.Printf("%s: %s (%s)\n", hashAlgo, result.Checksum, result.ChecksumPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Archive file name (default: the name the backend sends, or playlist_audio.zip)")
	cmd.Flags().StringVar(&hashAlgo, "hash", "", "Write a checksum file next to the archive [md5, sha1, sha256, sha512]")
	cmd.Flags().BoolVarP(&showProgress, "progress", "p", true, "Show a progress bar when stderr is a terminal? [true, false]")
	return cmd
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
