package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pesio-ai/be-relocation-cases/internal/platform/auth"
)

var (
	tokenUser  string
	tokenOrg   string
	tokenRole  string
	tokenEmail string
	tokenTTL   time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a session token signed with RELOCASE_JWT_SECRET",
	RunE: func(cmd *cobra.Command, args []string) error {
		secret := cfg.GetString("jwt-secret")
		if secret == "" {
			return fmt.Errorf("jwt secret is required (--jwt-secret or RELOCASE_JWT_SECRET)")
		}
		role := auth.Role(tokenRole)
		if !role.Valid() {
			return fmt.Errorf("unknown role %q", tokenRole)
		}

		tokens := auth.NewTokenManager(secret, cfg.GetString("issuer"))
		token, err := tokens.Issue(auth.Session{
			UserID: tokenUser,
			OrgID:  tokenOrg,
			Role:   role,
			Email:  tokenEmail,
		}, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenUser, "user", "", "User id (subject)")
	tokenCmd.Flags().StringVar(&tokenOrg, "org", "", "Organisation id")
	tokenCmd.Flags().StringVar(&tokenRole, "role", string(auth.RoleEmployee), "HR or EMPLOYEE")
	tokenCmd.Flags().StringVar(&tokenEmail, "email", "", "Email claim")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 8*time.Hour, "Token lifetime")
	tokenCmd.Flags().String("jwt-secret", "", "Signing secret")
	tokenCmd.Flags().String("issuer", "relopass", "Token issuer")
	_ = tokenCmd.MarkFlagRequired("user")
	_ = tokenCmd.MarkFlagRequired("org")
	_ = cfg.BindPFlag("jwt-secret", tokenCmd.Flags().Lookup("jwt-secret"))
	_ = cfg.BindPFlag("issuer", tokenCmd.Flags().Lookup("issuer"))
}
