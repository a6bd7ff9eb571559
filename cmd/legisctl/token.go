package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"legisdraft/api/internal/auth"
	"legisdraft/api/internal/config"
	"legisdraft/api/internal/rbac"
)

func tokenCmd() *cobra.Command {
	var (
		nameFlag  string
		emailFlag string
		roleFlag  string
		ttlFlag   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Issue a bearer token signed with the configured secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if ttlFlag <= 0 {
				ttlFlag = cfg.TokenTTL
			}
			token, err := auth.Issue([]byte(cfg.TokenSecret), auth.Claims{
				Sub:   args[0],
				Name:  nameFlag,
				Email: emailFlag,
				Role:  string(rbac.Normalize(roleFlag)),
			}, ttlFlag)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&nameFlag, "name", "", "display name")
	cmd.Flags().StringVar(&emailFlag, "email", "", "email address")
	cmd.Flags().StringVar(&roleFlag, "role", string(rbac.RoleContributor), "contributor, moderator or admin")
	cmd.Flags().DurationVar(&ttlFlag, "ttl", 0, "token lifetime (default from config)")
	return cmd
}
