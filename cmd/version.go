package cmd

import (
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X github.com/habedi/pldl/cmd.version=...".
var version = "0.1.0"

type buildDetails struct {
	Version  string
	Revision string
	Time     string
	Modified bool
	Go       string
	Platform string
}

// describeBuild fills in what the binary knows about itself. Module builds
// replace the default version; VCS stamps are only present in builds from a checkout.
func describeBuild(info *debug.BuildInfo, ok bool) buildDetails {
	d := buildDetails{
		Version:  version,
		Go:       runtime.Version(),
		Platform: runtime.GOOS + "/" + runtime.GOARCH,
	}
	if !ok || info == nil {
		return d
	}
	if v := info.Main.Version; v != "" && v != "(devel)" && version == "0.1.0" {
		d.Version = v
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			d.Revision = s.Value
		case "vcs.time":
			d.Time = s.Value
		case "vcs.modified":
			d.Modified = s.Value == "true"
		}
	}
	return d
}

func versionCmd() *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			d := describeBuild(debug.ReadBuildInfo())
			if short {
				cmd.Println(d.Version)
				return
			}
			cmd.Println("pldl version:", d.Version)
			if d.Revision != "" {
				rev := d.Revision
				if d.Modified {
					rev += " (modified)"
				}
				cmd.Println("Commit:", rev)
			}
			if d.Time != "" {
				cmd.Println("Built:", d.Time)
			}
			cmd.Println("Go version:", d.Go)
			cmd.Println("Platform:", d.Platform)
		},
	}
	cmd.Flags().BoolVarP(&short, "short", "s", false, "Print only the version number")
	return cmd
}
