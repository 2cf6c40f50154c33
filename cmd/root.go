// Package cmd holds the command line of the menu manager.
package cmd

import (
	"fmt"
	"os"

	"restaurant-menu/config"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Execute runs the root command, serving by default.
func Execute() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := NewCommand(config.NewViper()).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// NewCommand returns the root command. Flags override MENU_* environment
// variables, which override the defaults.
func NewCommand(v *viper.Viper) *cobra.Command {
	serve := newServeCommand(v)

	root := &cobra.Command{
		Use:           "restaurant-menu",
		Short:         "Multi-tenant restaurant menu manager",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve.RunE,
	}
	root.PersistentFlags().String("db-path", v.GetString("db.path"), "path of the SQLite database file")
	root.PersistentFlags().String("log-level", v.GetString("log.level"), "log level (debug, info, warn, error)")
	root.PersistentFlags().String("log-format", v.GetString("log.format"), "log format (json or console)")
	_ = v.BindPFlag("db.path", root.PersistentFlags().Lookup("db-path"))
	_ = v.BindPFlag("log.level", root.PersistentFlags().Lookup("log-level"))
	_ = v.BindPFlag("log.format", root.PersistentFlags().Lookup("log-format"))

	root.Flags().AddFlagSet(serve.Flags())
	root.AddCommand(serve, newCreateSuperuserCommand(v))
	return root
}
