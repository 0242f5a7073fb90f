package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/user/authgate/jwtauth"
)

// tokenOutput is printed by "token issue --json" and "token inspect"
type tokenOutput struct {
	Token     string    `json:"token,omitempty"`
	Subject   string    `json:"subject"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func newTokenCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue and inspect tokens with the configured secret",
	}
	cmd.AddCommand(newTokenIssueCmd(v), newTokenInspectCmd(v))
	return cmd
}

func newTokenIssueCmd(v *viper.Viper) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "issue <subject>",
		Short: "Issue a token for subject",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := gateConfig(v, nil)
			if err != nil {
				return err
			}

			token, claims, err := jwtauth.NewCodec(cfg).IssueClaims(args[0])
			if err != nil {
				return fmt.Errorf("issuing token: %w", err)
			}

			if !asJSON {
				fmt.Fprintln(cmd.OutOrStdout(), token)
				return nil
			}
			return writeTokenJSON(cmd, tokenOutput{
				Token:     token,
				Subject:   claims.Subject,
				IssuedAt:  claims.IssuedAt.UTC(),
				ExpiresAt: claims.ExpiresAt.UTC(),
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the token with its claims as JSON")
	return cmd
}

func newTokenInspectCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <token>",
		Short: "Verify a token and print its claims",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := gateConfig(v, nil)
			if err != nil {
				return err
			}

			claims, err := jwtauth.NewCodec(cfg).Decode(args[0])
			if err != nil {
				return fmt.Errorf("token rejected (%s): %w", jwtauth.CodeOf(err), err)
			}
			return writeTokenJSON(cmd, tokenOutput{
				Subject:   claims.Subject,
				IssuedAt:  claims.IssuedAt.UTC(),
				ExpiresAt: claims.ExpiresAt.UTC(),
			})
		},
	}
}

func writeTokenJSON(cmd *cobra.Command, out tokenOutput) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
