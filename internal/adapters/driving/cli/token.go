package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/medrag/internal/adapters/driving/httpapi"
)

// promptPassword reads a password from the terminal.
var promptPassword = readPassword

var tokenUser string

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue an API bearer token",
	Long: `Issues a JWT for the HTTP API after checking the password of a user listed
in server.users. The token is printed to stdout so it can be captured:

  TOKEN=$(medrag token --user alice)
  curl -H "Authorization: Bearer $TOKEN" ...`,
	Args:        cobra.NoArgs,
	Annotations: requires("settings"),
	RunE:        runToken,
}

func init() {
	tokenCmd.Flags().StringVarP(&tokenUser, "user", "u", "", "username from server.users")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	if tokenUser == "" {
		return errors.New("--user is required")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	users, err := httpapi.ParseUsers(settings.Server.Users)
	if err != nil {
		return err
	}
	auth, err := httpapi.NewAuthenticator(settings.Server.JWTSecret, settings.Server.TokenTTL, users)
	if err != nil {
		return fmt.Errorf("%w (set it with 'medrag settings set server.jwt_secret <secret>')", err)
	}

	cmd.PrintErr("Password: ")
	password := promptPassword()
	cmd.PrintErrln()

	token, err := auth.Login(tokenUser, password)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), token)
	cmd.PrintErrf("Expires in %s\n", auth.TTL())
	return nil
}
