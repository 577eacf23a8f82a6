package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Gundoganfa/SomeNiceLinks/internal/domain"
	"github.com/Gundoganfa/SomeNiceLinks/internal/linksync"
	"github.com/Gundoganfa/SomeNiceLinks/internal/utils"
)

var (
	importReplace bool
	clearYes      bool
)

var errNotConfirmed = errors.New("refusing to clear without --yes")

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import links from an exported JSON file",
	Long: `Import merges the file into the collection by url, keeping the
existing entry when both sides have the same url. --replace swaps the whole
collection instead. When signed in the result is written to the cloud.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open import file: %w", err)
		}
		defer utils.Close(f)

		n, err := cli.mgr.Import(cmd.Context(), f, !importReplace)
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "imported %d links, collection has %d\n", n, len(cli.mgr.Links()))
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Export the collection as JSON",
	Long: `Export writes the collection to file, or to a timestamped file in the
current directory when none is given. Use "-" for stdout.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := linksync.ExportFileName(time.Now())
		if len(args) == 1 {
			path = args[0]
		}
		if path == "-" {
			return cli.mgr.Export(cli.out)
		}

		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create export file: %w", err)
		}
		if err := cli.mgr.Export(f); err != nil {
			utils.Close(f)
			return err
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("write export file: %w", err)
		}
		fmt.Fprintf(cli.out, "exported %d links to %s\n", len(cli.mgr.Links()), path)
		return nil
	},
}

var defaultsCmd = &cobra.Command{
	Use:   "defaults",
	Short: "Replace the local collection with the default links",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		links, err := cli.mgr.ResetToDefaults(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "loaded %d default links\n", len(links))
		return nil
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every local link and pending click",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !clearYes {
			return errNotConfirmed
		}
		return cli.mgr.ClearAll(cmd.Context())
	},
}

var themeCmd = &cobra.Command{
	Use:   "theme [name]",
	Short: "Show or set the background theme",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			t, err := cli.mgr.SetTheme(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cli.out, "theme: %s\n", t.Name)
			return nil
		}

		current := cli.mgr.Theme()
		for _, t := range domain.BackgroundThemes {
			marker := " "
			if t.Class == current.Class {
				marker = "*"
			}
			fmt.Fprintf(cli.out, "%s %s\n", marker, t.Name)
		}
		return nil
	},
}

var showClicksCmd = &cobra.Command{
	Use:       "show-clicks on|off",
	Short:     "Show or hide click counts in listings",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"on", "off"},
	RunE: func(cmd *cobra.Command, args []string) error {
		show, err := parseOnOff(args[0])
		if err != nil {
			return err
		}
		return cli.mgr.SetShowClickCounts(cmd.Context(), show)
	},
}

func init() {
	importCmd.Flags().BoolVar(&importReplace, "replace", false, "replace the collection instead of merging")
	clearCmd.Flags().BoolVar(&clearYes, "yes", false, "confirm deleting everything")
}

func parseOnOff(s string) (bool, error) {
	switch s {
	case "on", "true", "yes":
		return true, nil
	case "off", "false", "no":
		return false, nil
	}
	return false, fmt.Errorf("invalid value %q (want on or off)", s)
}
