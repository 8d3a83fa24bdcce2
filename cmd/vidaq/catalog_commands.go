package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"vidaq/internal/artifacts"
	"vidaq/internal/catalog"
	"vidaq/internal/config"
	"vidaq/internal/playback"
)

type itemView struct {
	ID              int64   `json:"id"`
	Fingerprint     string  `json:"fingerprint"`
	DurationSeconds float64 `json:"duration_seconds"`
	OriginalName    string  `json:"original_name"`
	CreatedAt       string  `json:"created_at"`
	Ready           bool    `json:"ready"`
	Path            string  `json:"path"`
}

func newItemView(layout artifacts.Layout, item *catalog.Item) itemView {
	ready, _ := layout.ManifestReady(item.ID, artifacts.BaseName(item.OriginalName))
	return itemView{
		ID:              item.ID,
		Fingerprint:     item.Fingerprint.String(),
		DurationSeconds: item.DurationSeconds,
		OriginalName:    item.OriginalName,
		CreatedAt:       item.CreatedAt.UTC().Format(time.RFC3339),
		Ready:           ready,
		Path:            layout.PathFor(item.ID),
	}
}

func newCatalogCommand(ctx *commandContext) *cobra.Command {
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect cataloged items",
	}
	catalogCmd.AddCommand(newCatalogListCommand(ctx))
	catalogCmd.AddCommand(newCatalogShowCommand(ctx))
	catalogCmd.AddCommand(newCatalogOrphansCommand(ctx))
	return catalogCmd
}

func newCatalogListCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cataloged items, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCatalog(func(cfg *config.Config, store *catalog.Store) error {
				items, err := store.List(cmd.Context(), limit)
				if err != nil {
					return err
				}
				return printItems(cmd, cfg, items, asJSON, "No items cataloged")
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum items to list (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON")
	return cmd
}

func newCatalogShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show ID",
		Short: "Show one cataloged item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := playback.ParseID(args[0])
			if err != nil {
				return err
			}
			return ctx.withCatalog(func(cfg *config.Config, store *catalog.Store) error {
				item, err := store.GetByID(cmd.Context(), id)
				if err != nil {
					return err
				}
				if item == nil {
					return fmt.Errorf("item %d not found", id)
				}
				view := newItemView(artifacts.New(cfg.Paths.ArtifactDir), item)
				if asJSON {
					return writeJSON(cmd, view)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "ID:           %d\n", view.ID)
				fmt.Fprintf(out, "Fingerprint:  %s\n", view.Fingerprint)
				fmt.Fprintf(out, "Name:         %s\n", view.OriginalName)
				fmt.Fprintf(out, "Duration:     %s\n", formatDuration(view.DurationSeconds))
				fmt.Fprintf(out, "Created:      %s\n", view.CreatedAt)
				fmt.Fprintf(out, "Ready:        %s\n", yesNo(view.Ready))
				fmt.Fprintf(out, "Artifacts:    %s\n", view.Path)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON")
	return cmd
}

func newCatalogOrphansCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "orphans",
		Short: "List items whose artifacts were never committed",
		Long: "List catalog items whose render never completed. Such items answer downloads with 503;\n" +
			"uploading the same file with the same pitch again re-renders them.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withCatalog(func(cfg *config.Config, store *catalog.Store) error {
				items, err := playback.New(cfg, store).Orphans(cmd.Context())
				if err != nil {
					return err
				}
				return printItems(cmd, cfg, items, asJSON, "No orphaned items")
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON")
	return cmd
}

var itemColumns = []column{
	{title: "ID", align: text.AlignRight},
	{title: "Name"},
	{title: "Duration", align: text.AlignRight},
	{title: "Ready"},
	{title: "Created"},
	{title: "Fingerprint"},
}

func printItems(cmd *cobra.Command, cfg *config.Config, items []*catalog.Item, asJSON bool, empty string) error {
	layout := artifacts.New(cfg.Paths.ArtifactDir)
	views := make([]itemView, 0, len(items))
	for _, item := range items {
		views = append(views, newItemView(layout, item))
	}
	if asJSON {
		return writeJSON(cmd, views)
	}
	out := cmd.OutOrStdout()
	if len(views) == 0 {
		fmt.Fprintln(out, empty)
		return nil
	}
	rows := make([][]string, 0, len(views))
	for _, view := range views {
		rows = append(rows, []string{
			strconv.FormatInt(view.ID, 10),
			view.OriginalName,
			formatDuration(view.DurationSeconds),
			yesNo(view.Ready),
			view.CreatedAt,
			view.Fingerprint,
		})
	}
	fmt.Fprintln(out, renderTable(itemColumns, rows))
	return nil
}

func formatDuration(seconds float64) string {
	return (time.Duration(seconds * float64(time.Second))).Round(10 * time.Millisecond).String()
}
