package main

import (
	"context"
	"fmt"

	"studio_booking_backend/internal/models"
	"studio_booking_backend/internal/services"

	"github.com/spf13/cobra"
)

// newCreateAdminCmd registers an admin client. The HTTP register route only creates users.
func newCreateAdminCmd() *cobra.Command {
	var req services.RegisterRequest

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Register a client with the admin role",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			a, err := newApp(ctx, cfg, false)
			if err != nil {
				return err
			}
			defer a.Close()

			client, err := a.clients.Register(ctx, req, models.RoleAdmin)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (id=%d)\n", client.Username, client.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Username, "username", "", "login name")
	cmd.Flags().StringVar(&req.Password, "password", "", "password")
	cmd.Flags().StringVar(&req.FullName, "full-name", "", "full name")
	cmd.Flags().StringVar(&req.Email, "email", "", "email address")
	for _, f := range []string{"username", "password", "full-name", "email"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}
