package cmd

import (
	"fmt"

	"github.com/foysalahmedmin/mehdihasanrafi-portfolio-website-sub000/internal/content"
	"github.com/foysalahmedmin/mehdihasanrafi-portfolio-website-sub000/internal/tui"
	"github.com/spf13/cobra"
)

var flagTab string

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse news, projects and publications in the terminal",
	Long: `Open the terminal browser. Each collection has its own search, category and
sort selection, just like the list pages of the site.`,
	RunE: runBrowse,
}

func init() {
	browseCmd.Flags().StringVar(&flagTab, "tab", "", "open straight into a collection (news, projects, publications)")
}

func runBrowse(cmd *cobra.Command, args []string) error {
	var tab content.Kind
	if flagTab != "" {
		k, err := content.ParseKind(flagTab)
		if err != nil {
			return err
		}
		if k == content.KindGallery {
			return fmt.Errorf("the gallery has no terminal view")
		}
		tab = k
	}

	b, err := openBackend()
	if err != nil {
		return err
	}
	defer b.Close()

	return tui.Run(tui.RunOpts{Cfg: cfg, Source: b.source, Tab: tab})
}
