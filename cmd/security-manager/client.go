package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/krzsas/security-manager/pkg/client"
	"github.com/krzsas/security-manager/pkg/config"
	"github.com/krzsas/security-manager/pkg/types"
)

var socketPath string

// withClient dials the daemon socket and runs fn with the client
func withClient(fn func(*client.Client) error) error {
	c, err := client.New(socketPath)
	if err != nil {
		return err
	}
	defer c.Close()
	return fn(c)
}

func printNames(names []string) {
	for _, name := range names {
		fmt.Println(name)
	}
}

// App commands
var appCmd = &cobra.Command{
	Use:   "app",
	Short: "Manage application registrations",
}

var appAddCmd = &cobra.Command{
	Use:   "add APP_ID",
	Short: "Register an application",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pkgID, _ := cmd.Flags().GetString("pkg")
		uid, _ := cmd.Flags().GetUint32("uid")
		if pkgID == "" {
			return fmt.Errorf("--pkg is required")
		}
		return withClient(func(c *client.Client) error {
			if err := c.AddApplication(args[0], pkgID, uid); err != nil {
				return err
			}
			fmt.Printf("✓ Application %s registered in %s for uid %d\n", args[0], pkgID, uid)
			return nil
		})
	},
}

var appRemoveCmd = &cobra.Command{
	Use:   "remove APP_ID",
	Short: "Unregister an application",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		uid, _ := cmd.Flags().GetUint32("uid")
		return withClient(func(c *client.Client) error {
			noMore, err := c.RemoveApplication(args[0], uid)
			if err != nil {
				return err
			}
			fmt.Printf("✓ Application %s removed\n", args[0])
			if noMore {
				fmt.Println("  package no longer exists")
			}
			return nil
		})
	},
}

var appPkgIDCmd = &cobra.Command{
	Use:   "pkg-id APP_ID",
	Short: "Resolve the package owning an application",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(c *client.Client) error {
			pkgID, err := c.GetAppPkgID(args[0])
			if errors.Is(err, types.ErrNotFound) {
				return fmt.Errorf("no such application: %s", args[0])
			}
			if err != nil {
				return err
			}
			fmt.Println(pkgID)
			return nil
		})
	},
}

var appPrivilegesCmd = &cobra.Command{
	Use:   "privileges APP_ID",
	Short: "List the privileges granted to an application",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		uid, _ := cmd.Flags().GetUint32("uid")
		return withClient(func(c *client.Client) error {
			privs, err := c.GetAppPrivileges(args[0], uid)
			if err != nil {
				return err
			}
			printNames(privs)
			return nil
		})
	},
}

var appUpdatePrivilegesCmd = &cobra.Command{
	Use:   "update-privileges APP_ID PRIVILEGE...",
	Short: "Replace an application's complete privilege set",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		uid, _ := cmd.Flags().GetUint32("uid")
		return withClient(func(c *client.Client) error {
			if err := c.UpdateAppPrivileges(args[0], uid, args[1:]); err != nil {
				return err
			}
			fmt.Printf("✓ Privileges of %s replaced (%d entries)\n", args[0], len(args)-1)
			return nil
		})
	},
}

// Package commands
var pkgCmd = &cobra.Command{
	Use:   "pkg",
	Short: "Query package registrations",
}

var pkgPrivilegesCmd = &cobra.Command{
	Use:   "privileges PKG_ID",
	Short: "List the privileges granted to a package",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		uid, _ := cmd.Flags().GetUint32("uid")
		return withClient(func(c *client.Client) error {
			privs, err := c.GetPkgPrivileges(args[0], uid)
			if err != nil {
				return err
			}
			printNames(privs)
			return nil
		})
	},
}

var pkgAppsCmd = &cobra.Command{
	Use:   "apps PKG_ID",
	Short: "List the applications in a package",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(c *client.Client) error {
			apps, err := c.GetAppIDsForPkg(args[0])
			if err != nil {
				return err
			}
			printNames(apps)
			return nil
		})
	},
}

var pkgExistsCmd = &cobra.Command{
	Use:   "exists PKG_ID",
	Short: "Check whether a package is registered",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(c *client.Client) error {
			exists, err := c.PkgIDExists(args[0])
			if err != nil {
				return err
			}
			if !exists {
				return fmt.Errorf("package %s does not exist", args[0])
			}
			fmt.Printf("✓ Package %s exists\n", args[0])
			return nil
		})
	},
}

// User commands
var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Query per-user state",
}

var userAppsCmd = &cobra.Command{
	Use:   "apps",
	Short: "List the applications registered for a uid",
	RunE: func(cmd *cobra.Command, args []string) error {
		uid, _ := cmd.Flags().GetUint32("uid")
		return withClient(func(c *client.Client) error {
			apps, err := c.GetUserApps(uid)
			if err != nil {
				return err
			}
			printNames(apps)
			return nil
		})
	},
}

// Privilege commands
var privilegeCmd = &cobra.Command{
	Use:   "privilege",
	Short: "Query privilege metadata",
}

var privilegeGroupsCmd = &cobra.Command{
	Use:   "groups PRIVILEGE",
	Short: "List the OS groups implied by a privilege",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(c *client.Client) error {
			groups, err := c.GetPrivilegeGroups(args[0])
			if err != nil {
				return err
			}
			printNames(groups)
			return nil
		})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&socketPath, "socket",
		config.Default().PrivilegeSocketPath(), "Privilege service socket path")

	appCmd.AddCommand(appAddCmd)
	appCmd.AddCommand(appRemoveCmd)
	appCmd.AddCommand(appPkgIDCmd)
	appCmd.AddCommand(appPrivilegesCmd)
	appCmd.AddCommand(appUpdatePrivilegesCmd)

	appAddCmd.Flags().String("pkg", "", "Package id owning the application")
	appAddCmd.Flags().Uint32("uid", 0, "Target uid")
	appRemoveCmd.Flags().Uint32("uid", 0, "Target uid")
	appPrivilegesCmd.Flags().Uint32("uid", 0, "Target uid")
	appUpdatePrivilegesCmd.Flags().Uint32("uid", 0, "Target uid")

	pkgCmd.AddCommand(pkgPrivilegesCmd)
	pkgCmd.AddCommand(pkgAppsCmd)
	pkgCmd.AddCommand(pkgExistsCmd)
	pkgPrivilegesCmd.Flags().Uint32("uid", 0, "Target uid")

	userCmd.AddCommand(userAppsCmd)
	userAppsCmd.Flags().Uint32("uid", 0, "Target uid")

	privilegeCmd.AddCommand(privilegeGroupsCmd)
}
