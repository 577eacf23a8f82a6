// Command snl is the SomeNiceLinks client. It keeps the link collection in
// a local cache and syncs it with the link server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// configFile is set by the --config flag.
	configFile string

	// cli is the client opened by PersistentPreRunE.
	cli *client
)

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, "❌", err)
		os.Exit(1)
	}
}

// execute runs the command line and closes the client even when the
// command failed.
func execute() error {
	err := rootCmd.Execute()
	if cli != nil {
		if cerr := cli.Close(); err == nil {
			err = cerr
		}
		cli = nil
	}
	return err
}

var rootCmd = &cobra.Command{
	Use:           "snl",
	Short:         "snl manages your SomeNiceLinks collection",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if !needsClient(cmd) {
			return nil
		}
		v, err := loadConfig(configFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		c, err := openClient(cmd.Context(), v, sessionFor(cmd), cmd.OutOrStdout())
		if err != nil {
			return err
		}
		cli = c
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default: ~/.snl.yaml)")

	rootCmd.AddCommand(listCmd, addCmd, deleteCmd, colorCmd, moveCmd, clickCmd)
	rootCmd.AddCommand(syncCmd, deltasCmd, watchCmd)
	rootCmd.AddCommand(importCmd, exportCmd, defaultsCmd, clearCmd, themeCmd, showClicksCmd)
	rootCmd.AddCommand(tokenCmd, versionCmd)
}

// needsClient reports whether cmd works on the local collection.
func needsClient(cmd *cobra.Command) bool {
	switch cmd.Name() {
	case "version", "token", "help", "completion":
		return false
	}
	return true
}

// sessionFor picks how cmd attaches the session. Only sync and watch run
// the full sign-in transition; watch keeps going while the cloud is down.
func sessionFor(cmd *cobra.Command) sessionMode {
	switch cmd.Name() {
	case "sync":
		return sessionSignIn
	case "watch":
		return sessionSignInLater
	}
	return sessionRestore
}
