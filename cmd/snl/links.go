package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Gundoganfa/SomeNiceLinks/internal/domain"
	"github.com/Gundoganfa/SomeNiceLinks/internal/linksync"
)

var (
	viewQuery    string
	viewCategory string
	listJSON     bool

	addDescription string
	addIcon        string
	addCategory    string
	addColor       string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List links in display order",
	Long: `List prints the links of the current view. --query matches title,
url, description and category; --category restricts to one category.

Example:
  snl list
  snl list --category Dev
  snl list --query git --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		links := cli.mgr.Visible(currentView())
		if listJSON {
			return writeJSON(cli.out, links)
		}
		return printLinks(cli.out, links, cli.mgr.ShowClickCounts())
	},
}

var addCmd = &cobra.Command{
	Use:   "add <title> <url>",
	Short: "Add a link at the end of the collection",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		link, err := cli.mgr.AddLink(cmd.Context(), domain.NewLink{
			Title:       args[0],
			URL:         args[1],
			Description: addDescription,
			Icon:        addIcon,
			Category:    addCategory,
			CustomColor: addColor,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "added %s (%s)\n", link.Title, link.ID)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a link",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cli.mgr.DeleteLink(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "deleted %s\n", args[0])
		return nil
	},
}

var colorCmd = &cobra.Command{
	Use:   "color <id> <color>",
	Short: "Set or reset the custom color of a link",
	Long: `Color sets the custom color class of a link. Pass "default" to go
back to the category color.

Example:
  snl color 3f2a... "from-red-500 to-pink-600"
  snl color 3f2a... default`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		link, err := cli.mgr.ChangeColor(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		color := link.CustomColor
		if color == "" {
			color = domain.ColorReset
		}
		fmt.Fprintf(cli.out, "%s color: %s\n", link.Title, color)
		return nil
	},
}

var moveCmd = &cobra.Command{
	Use:   "move <from> <to>",
	Short: "Move a link within the current view",
	Long: `Move takes positions as shown by "snl list" with the same --query
and --category, so a filtered view can be reordered directly.

Example:
  snl move 0 3
  snl move --category Dev 2 0`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		from, err := parsePosition(args[0])
		if err != nil {
			return err
		}
		to, err := parsePosition(args[1])
		if err != nil {
			return err
		}
		v := currentView()
		if _, err := cli.mgr.Reorder(cmd.Context(), v, from, to); err != nil {
			return err
		}
		return printLinks(cli.out, cli.mgr.Visible(v), cli.mgr.ShowClickCounts())
	},
}

var clickCmd = &cobra.Command{
	Use:   "click <id|url>",
	Short: "Record a click on a link",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, url := clickTarget(args[0])
		link, err := cli.mgr.TrackClick(cmd.Context(), id, url)
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "%s: %d clicks\n", link.Title, link.ClickCount)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{listCmd, moveCmd} {
		c.Flags().StringVar(&viewQuery, "query", "", "filter by text")
		c.Flags().StringVar(&viewCategory, "category", "", "filter by category")
	}
	listCmd.Flags().BoolVar(&listJSON, "json", false, "output as JSON")

	addCmd.Flags().StringVar(&addDescription, "description", "", "link description")
	addCmd.Flags().StringVar(&addIcon, "icon", "", "icon name (default globe)")
	addCmd.Flags().StringVar(&addCategory, "category", "", "category (default Genel)")
	addCmd.Flags().StringVar(&addColor, "color", "", "custom color class")
}

func currentView() linksync.View {
	return linksync.View{Query: viewQuery, Category: viewCategory}
}

func parsePosition(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid position %q", s)
	}
	return n, nil
}

// clickTarget reads a link reference as a url when it carries a scheme.
func clickTarget(ref string) (id, url string) {
	if strings.Contains(ref, "://") {
		return "", ref
	}
	return ref, ""
}

func printLinks(w io.Writer, links []domain.Link, showClicks bool) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	header := "#\tTITLE\tCATEGORY\tURL\tID"
	if showClicks {
		header += "\tCLICKS"
	}
	fmt.Fprintln(tw, header)
	for i, l := range links {
		row := fmt.Sprintf("%d\t%s\t%s\t%s\t%s", i, l.Title, l.Category, l.URL, l.ID)
		if showClicks {
			row += fmt.Sprintf("\t%d", l.ClickCount)
		}
		fmt.Fprintln(tw, row)
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
