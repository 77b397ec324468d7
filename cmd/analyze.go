package cmd

import (
	"fmt"

	"github.com/habedi/pldl/pkg/clierr"
	"github.com/habedi/pldl/pkg/operations"
	"github.com/habedi/pldl/pkg/validation"
	"github.com/spf13/cobra"
)

func analyzeCmd(opts *rootOptions) *cobra.Command {
	var numThreads int
	var linksOut string

	cmd := &cobra.Command{
		Use:   "analyze [playlistURL]...",
		Short: "Resolve playlist tracks to YouTube links",
		Long:  "Analyze one or more playlists (URL, spotify:playlist: URI or ID) and show the YouTube link found for each track.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validation.ValidateThreadCount(numThreads); err != nil {
				return clierr.New(clierr.Validation, err.Error(), err)
			}
			for _, arg := range args {
				if _, err := validation.PlaylistID(arg); err != nil {
					return clierr.FromError(err)
				}
			}
			a, err := opts.load(cmd)
			if err != nil {
				return err
			}
			if err := a.resume(cmd.Context()); err != nil {
				return err
			}

			results := operations.AnalyzePlaylists(cmd.Context(), a.api, args, numThreads)

			var firstErr error
			failed := 0
			for _, r := range results {
				if r.Err != nil {
					failed++
					if firstErr == nil {
						firstErr = r.Err
					}
					cmd.PrintErrf("Failed to analyze %s: %v\n", r.Input, r.Err)
					continue
				}
				renderLinks(cmd.OutOrStdout(), r.Analysis)
			}

			if linksOut != "" && failed < len(results) {
				if err := operations.WriteLinksFile(linksOut, results); err != nil {
					return clierr.New(clierr.Internal, err.Error(), err)
				}
				cmd.Printf("Links written to %s\n", linksOut)
			}

			if failed > 0 {
				if cliErr := clierr.FromError(firstErr); cliErr.Type != clierr.Internal {
					return cliErr
				}
				return clierr.New(clierr.Request, fmt.Sprintf("%d of %d playlists could not be analyzed.", failed, len(results)), firstErr)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&numThreads, "threads", "t", 4, "Number of playlists to analyze concurrently [1-20]")
	cmd.Flags().StringVarP(&linksOut, "links-out", "o", "", "Write the analysis results to this JSON file")
	return cmd
}
