package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var permissionCmd = &cobra.Command{
	Use:   "permission",
	Short: "Manage usage access",
}

var permissionStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether usage events can be read",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			granted, err := a.service.IsPermissionGranted(ctx)
			if err != nil {
				return err
			}
			if granted {
				color.New(color.FgGreen, color.Bold).Println("GRANTED")
			} else {
				color.New(color.FgRed, color.Bold).Println("NOT GRANTED")
			}
			return nil
		})
	},
}

var permissionGrantCmd = &cobra.Command{
	Use:   "grant",
	Short: "Record that usage access has been granted",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			if err := a.service.RequestPermission(ctx); err != nil {
				return err
			}
			fmt.Println("Usage access granted")
			return nil
		})
	},
}

var permissionRevokeCmd = &cobra.Command{
	Use:   "revoke",
	Short: "Record that usage access has been withdrawn",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			if err := a.permission.Revoke(ctx); err != nil {
				return err
			}
			fmt.Println("Usage access revoked")
			return nil
		})
	},
}

func init() {
	permissionCmd.AddCommand(permissionStatusCmd)
	permissionCmd.AddCommand(permissionGrantCmd)
	permissionCmd.AddCommand(permissionRevokeCmd)
	rootCmd.AddCommand(permissionCmd)
}

// withApp runs fn with a wired app that is closed afterwards.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	cmd.SilenceUsage = true

	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(context.Background(), a)
}
