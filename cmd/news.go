package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/foysalahmedmin/mehdihasanrafi-portfolio-website-sub000/internal/api"
	"github.com/foysalahmedmin/mehdihasanrafi-portfolio-website-sub000/internal/content"
	"github.com/foysalahmedmin/mehdihasanrafi-portfolio-website-sub000/internal/session"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	flagCategory string
	flagDryRun   bool
)

var newsCmd = &cobra.Command{
	Use:   "news",
	Short: "Manage news items",
}

var newsImportCmd = &cobra.Command{
	Use:   "import <feed-url>",
	Short: "Create news items from an RSS or Atom feed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := openBackend()
		if err != nil {
			return err
		}
		defer b.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
		defer cancel()

		drafts, err := b.source.ImportFeed(ctx, args[0], flagCategory)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if flagDryRun {
			for _, n := range drafts {
				fmt.Fprintf(out, "  %s  %s\n", n.Date, n.Title)
			}
			fmt.Fprintf(out, "%d item(s) would be created\n", len(drafts))
			return nil
		}

		sess, err := newCLISession()
		if err != nil {
			return err
		}
		if err := sess.Hydrate(ctx); err != nil {
			return err
		}
		if !session.Allowed(sess.User()) {
			return errors.New("not signed in; run login first")
		}

		client := b.client.WithToken(sess.Token())
		created := 0
		for _, n := range drafts {
			if _, err := client.Create(ctx, content.KindNews, newsForm(n)); err != nil {
				if api.IsUnauthorized(err) {
					_ = sess.Logout()
					return fmt.Errorf("token rejected, signed out: %w", err)
				}
				logger.Warn("creating news item", zap.String("title", n.Title), zap.Error(err))
				fmt.Fprintf(out, "  [fail] %s: %v\n", n.Title, err)
				continue
			}
			created++
			fmt.Fprintf(out, "  [ok]   %s\n", n.Title)
		}
		if created > 0 {
			if err := b.source.Invalidate(content.KindNews); err != nil {
				logger.Warn("invalidating news cache", zap.Error(err))
			}
		}
		fmt.Fprintf(out, "%d of %d item(s) created\n", created, len(drafts))
		return nil
	},
}

func init() {
	newsImportCmd.Flags().StringVar(&flagCategory, "category", "", "category assigned to every imported item")
	newsImportCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "list the items without creating them")
	newsCmd.AddCommand(newsImportCmd)
}

func newsForm(n content.News) *api.Form {
	return api.NewForm().
		Set("title", n.Title).
		Set("slug", n.Slug).
		Set("category", n.Category).
		Set("date", n.Date).
		Set("summary", n.Summary).
		Set("content", n.Content).
		Set("link", n.Link)
}
