package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	jwttoken "filegov/internal/jwt_token"
	"filegov/internal/platform/config"
)

var tokenJSON bool

// tokenCmd signs an access token with the configured key. Only useful
// against a server sharing JWT_SIGNING_KEY, which in development is the
// built-in default.
var tokenCmd = &cobra.Command{
	Use:   "token <handle>",
	Short: "Issue a development access token for an actor handle",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromEnv()
		svc := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer, cfg.Server.JWTAudience, cfg.Server.TokenTTL)
		token, err := svc.IssueToken(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if tokenJSON {
			return json.NewEncoder(out).Encode(map[string]string{
				"token":      token,
				"handle":     args[0],
				"expires_in": cfg.Server.TokenTTL.String(),
			})
		}
		_, err = fmt.Fprintln(out, token)
		return err
	},
}

func init() {
	tokenCmd.Flags().BoolVar(&tokenJSON, "json", false, "Output as JSON")
}
