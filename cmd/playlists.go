package cmd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/habedi/pldl/client"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func playlistsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "playlists",
		Short: "List your playlists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.load(cmd)
			if err != nil {
				return err
			}
			if err := a.resume(cmd.Context()); err != nil {
				return err
			}

			playlists, err := a.api.Playlists(cmd.Context())
			if err != nil {
				return err
			}
			if len(playlists) == 0 {
				cmd.Println("No playlists found.")
				return nil
			}
			renderPlaylists(cmd.OutOrStdout(), playlists)
			return nil
		},
	}
}

func renderPlaylists(w io.Writer, playlists []client.Playlist) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Row ID", "Name", "Tracks", "Owner", "URL"})
	table.SetColMinWidth(1, 40)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoWrapText(false)
	table.SetRowLine(false)

	for i, p := range playlists {
		table.Append([]string{
			strconv.Itoa(i + 1),
			p.Name,
			strconv.Itoa(p.Tracks.Total),
			p.Owner.DisplayName,
			p.URL(),
		})
	}
	table.Render()
}

func renderLinks(w io.Writer, analysis *client.Analysis) {
	fmt.Fprintf(w, "%s (%d tracks)\n", analysis.Playlist.Name, len(analysis.YouTubeLinks))
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"#", "Artist", "Title", "YouTube URL"})
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoWrapText(false)
	table.SetRowLine(false)

	for i, l := range analysis.YouTubeLinks {
		table.Append([]string{strconv.Itoa(i + 1), l.Artist, l.Title, l.YouTubeURL})
	}
	table.Render()
}
