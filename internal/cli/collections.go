package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mrlokans/cms-migrator/internal/config"
	"github.com/mrlokans/cms-migrator/internal/entities"
	"github.com/mrlokans/cms-migrator/internal/fields"
	"github.com/mrlokans/cms-migrator/internal/webflow"
)

// CollectionsCommand lists source collections and, with --items, analyses
// their fields.
type CollectionsCommand struct {
	Items bool
}

type collectionLister interface {
	ListCollections(ctx context.Context) ([]entities.SourceCollection, error)
	FetchAllItems(ctx context.Context, collectionID string) ([]entities.SourceItem, error)
}

var _ collectionLister = (*webflow.Client)(nil)

func newCollectionsCommand(app *App) *cobra.Command {
	cc := &CollectionsCommand{}

	cmd := &cobra.Command{
		Use:   "collections [collection...]",
		Short: "List source collections and analyse their fields",
		Long: `List the collections of the configured Webflow site.

With --items every item of each collection is read and each field is
classified (text, image, reference, date, number, unknown). Rich-text fields
are checked for links, images, lists, headings and embeds that plain-text
extraction will drop.

Collections can be narrowed by id, slug or display name.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Config.Require(config.RequireWebflow); err != nil {
				return err
			}
			return cc.Run(cmd.Context(), newWebflowClient(app.Config, app.Logger), app.Out, args)
		},
	}

	cmd.Flags().BoolVar(&cc.Items, "items", false, "Read every item and report field classification")
	return cmd
}

func (cc *CollectionsCommand) Run(ctx context.Context, client collectionLister, out io.Writer, refs []string) error {
	collections, err := client.ListCollections(ctx)
	if err != nil {
		return err
	}

	if len(refs) > 0 {
		var selected []entities.SourceCollection
		for _, ref := range refs {
			c, err := webflow.FindCollection(collections, ref)
			if err != nil {
				return err
			}
			selected = append(selected, c)
		}
		collections = selected
	}

	fmt.Fprintf(out, "=== Collections (%d) ===\n", len(collections))
	for _, c := range collections {
		fmt.Fprintf(out, "%s  %s  (id %s)\n", c.Slug, c.DisplayName, c.ID)
		if !cc.Items {
			continue
		}

		items, err := client.FetchAllItems(ctx, c.ID)
		if err != nil {
			fmt.Fprintf(out, "  [ERROR] failed to read items: %v\n", err)
			continue
		}
		printCollectionAnalysis(out, items)
	}
	return nil
}

func printCollectionAnalysis(out io.Writer, items []entities.SourceItem) {
	archived, drafts := 0, 0
	for _, item := range items {
		if item.IsArchived {
			archived++
		}
		if item.IsDraft {
			drafts++
		}
	}
	fmt.Fprintf(out, "  items: %d (%d archived, %d drafts)\n", len(items), archived, drafts)
	if len(items) == 0 {
		return
	}

	fmt.Fprintln(out, "  fields:")
	for _, s := range fields.Summarize(items) {
		line := fmt.Sprintf("    %-24s %s", s.Name, s.Dominant())
		if s.Mixed() {
			line += " (mixed: " + formatCounts(s.Counts) + ")"
		}
		if s.Seen < len(items) {
			line += fmt.Sprintf(" [in %d of %d items]", s.Seen, len(items))
		}
		fmt.Fprintln(out, line)
	}

	losses := fields.RichTextReport(items)
	if len(losses) == 0 {
		return
	}
	fmt.Fprintln(out, "  rich text that plain-text extraction will lose:")
	for _, l := range losses {
		fmt.Fprintf(out, "    %s: %d item(s), %d link(s), %d image(s), %d list(s), %d heading(s), %d embed(s)\n",
			l.Field, l.Items, l.Links, l.Images, l.Lists, l.Headings, l.Embeds)
	}
}

func formatCounts(counts map[string]int) string {
	buckets := make([]string, 0, len(counts))
	for bucket := range counts {
		buckets = append(buckets, bucket)
	}
	sort.Strings(buckets)

	parts := make([]string, 0, len(buckets))
	for _, bucket := range buckets {
		parts = append(parts, fmt.Sprintf("%s %d", bucket, counts[bucket]))
	}
	return strings.Join(parts, ", ")
}
