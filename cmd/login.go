package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/habedi/pldl/auth"
	"github.com/habedi/pldl/pkg/clierr"
	"github.com/habedi/pldl/pkg/validation"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// loginCmd exchanges an authorization code from the backend's /callback redirect for a token.
func loginCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login [code]",
		Short: "Log in with an authorization code",
		Long: "Log in by exchanging the authorization code from the Spotify redirect. " +
			"Without an argument, pldl prints the login URL and prompts for the code.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.load(cmd)
			if err != nil {
				return err
			}

			var code string
			if len(args) == 1 {
				code = args[0]
			} else {
				cmd.Printf("Open %s/login in a browser and approve access.\n", a.cfg.BackendURL)
				cmd.Println("Then paste the value of the code parameter from the callback URL.")
				code, err = readCode(cmd.InOrStdin(), cmd.OutOrStdout(), "Authorization code: ")
				if err != nil {
					return clierr.New(clierr.Validation, "Failed to read the authorization code.", err)
				}
			}
			if err := validation.ValidateNonEmptyString("authorization code", code); err != nil {
				return clierr.New(clierr.Validation, err.Error(), err)
			}

			if err := a.session.Login(cmd.Context(), code); err != nil {
				return err
			}
			rec, err := a.session.Current(cmd.Context())
			if err != nil {
				return err
			}
			cmd.Printf("Login was successful. Token valid until %s.\n", rec.Expiry().Local().Format(time.RFC1123))
			return nil
		},
	}
	return cmd
}

func logoutCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.load(cmd)
			if err != nil {
				return err
			}
			if err := a.session.Logout(cmd.Context()); err != nil {
				return err
			}
			cmd.Println("Logged out.")
			return nil
		},
	}
}

// statusCmd reports the stored credentials without touching the backend.
func statusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether you are logged in and when the token expires",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.load(cmd)
			if err != nil {
				return err
			}
			if !a.session.IsAuthenticated(cmd.Context()) {
				cmd.Println("Not logged in.")
				return nil
			}
			rec, err := a.session.Current(cmd.Context())
			if err != nil {
				return err
			}

			now := time.Now()
			remaining := auth.RemainingSeconds(rec, now)
			cmd.Printf("Logged in (backend %s, store %s).\n", a.cfg.BackendURL, a.cfg.Store)
			if remaining <= 0 {
				cmd.Println("Access token expired; it will be renewed on the next request.")
			} else {
				cmd.Printf("Access token expires in %s.\n", (time.Duration(remaining) * time.Second).String())
			}
			if auth.RenewalDue(rec, now, auth.RenewalThreshold) {
				cmd.Println("Renewal is due.")
			}
			if rec.RefreshToken == "" {
				cmd.Println("No refresh token stored; log in again once the token expires.")
			}
			return nil
		},
	}
}

// readCode reads one line from in. A terminal gets a hidden prompt.
func readCode(in io.Reader, out io.Writer, prompt string) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(out, prompt)
		code, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(code)), nil
	}

	fmt.Fprint(out, prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
