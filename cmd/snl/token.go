package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Gundoganfa/SomeNiceLinks/internal/auth"
	"github.com/Gundoganfa/SomeNiceLinks/internal/version"
)

var (
	tokenUser string
	tokenTTL  time.Duration
)

// tokenCmd is a development helper; production tokens come from the
// identity provider that shares the server secret.
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a development token for a user",
	Long: `Token signs a bearer token with the server secret (jwt_secret in the
config or SNL_JWT_SECRET). Put the output in the token config key.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if tokenUser == "" {
			return errors.New("--user is required")
		}
		v, err := loadConfig(configFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		secret := v.GetString(cfgKeyJWTSecret)
		if secret == "" {
			return errors.New("jwt_secret is not configured")
		}

		verifier := auth.NewVerifier(secret, v.GetString(cfgKeyJWTIssuer), v.GetString(cfgKeyJWTAudience))
		token, err := verifier.Issue(tokenUser, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "snl", version.String())
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUser, "user", "", "user id to issue the token for")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
}
