package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"gamearbiter/internal/catalog"
	"gamearbiter/internal/fileutil"
	"gamearbiter/internal/request"
	"gamearbiter/internal/systems"
)

func newCatalogCommand(ctx *commandContext) *cobra.Command {
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect and maintain the game catalog",
		Long: "Inspect and maintain the game catalog. These commands open the catalog\n" +
			"database directly; the daemon picks up changes on its next lookup.",
	}

	catalogCmd.AddCommand(newCatalogImportCommand(ctx))
	catalogCmd.AddCommand(newCatalogScanCommand(ctx))
	catalogCmd.AddCommand(newCatalogListCommand(ctx))
	catalogCmd.AddCommand(newCatalogStatsCommand(ctx))
	catalogCmd.AddCommand(newCatalogHashCommand(ctx))
	catalogCmd.AddCommand(newCatalogSystemsCommand())

	return catalogCmd
}

func newCatalogImportCommand(ctx *commandContext) *cobra.Command {
	var replace bool
	cmd := &cobra.Command{
		Use:   "import <file>...",
		Short: "Import JSON, YAML or CSV catalog files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Parse everything before touching the store so one bad file
			// leaves the catalog unchanged.
			var entries []catalog.Entry
			for _, path := range args {
				loaded, err := catalog.LoadFile(path)
				if err != nil {
					return err
				}
				entries = append(entries, loaded...)
			}

			store, err := ctx.openCatalog()
			if err != nil {
				return err
			}
			defer store.Close()

			if replace {
				if err := store.Clear(cmd.Context()); err != nil {
					return err
				}
			}
			n, err := store.Import(cmd.Context(), entries)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d entries from %d file(s)\n", n, len(args))
			return nil
		},
	}
	cmd.Flags().BoolVar(&replace, "replace", false, "Clear the catalog before importing")
	return cmd
}

func newCatalogScanCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "scan [dir]",
		Short: "Add every recognised ROM under the games directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			root := cfg.Paths.GamesDir
			if len(args) == 1 {
				root = args[0]
			}
			if strings.TrimSpace(root) == "" {
				return fmt.Errorf("no games directory configured; pass one or set paths.games_dir")
			}

			entries, err := catalog.Scan(cmd.Context(), root)
			if err != nil {
				return err
			}
			store, err := ctx.openCatalog()
			if err != nil {
				return err
			}
			defer store.Close()

			n, err := store.Import(cmd.Context(), entries)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Scanned %s: %d entries\n", root, n)
			return nil
		},
	}
}

func newCatalogListCommand(ctx *commandContext) *cobra.Command {
	var system string
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "list --system <id>",
		Short: "List catalog entries for one system",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(system) == "" {
				return fmt.Errorf("--system is required")
			}
			store, err := ctx.openCatalog()
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.BySystem(cmd.Context(), system)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, entries)
			}
			if len(entries) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No entries for %s\n", system)
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{
					strconv.FormatInt(e.ID, 10),
					e.Title,
					e.Region,
					e.Serial,
					strconv.Itoa(len(e.Aliases)),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Title", "Region", "Serial", "Aliases"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}
	cmd.Flags().StringVarP(&system, "system", "s", "", "System ID or alias")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print entries as JSON")
	return cmd
}

func newCatalogStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show entry counts per system",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openCatalog()
			if err != nil {
				return err
			}
			defer store.Close()

			counts, err := store.Systems(cmd.Context())
			if err != nil {
				return err
			}
			total := 0
			rows := make([][]string, 0, len(counts)+1)
			for _, c := range counts {
				total += c.Entries
				rows = append(rows, []string{c.System, strconv.Itoa(c.Entries)})
			}
			rows = append(rows, []string{"Total", strconv.Itoa(total)})
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"System", "Entries"},
				rows,
				[]columnAlignment{alignLeft, alignRight},
			))
			return nil
		},
	}
}

func newCatalogHashCommand(ctx *commandContext) *cobra.Command {
	var entryID int64
	var limit int64
	cmd := &cobra.Command{
		Use:   "hash <file>",
		Short: "Print a ROM's SHA-1 and optionally bind it to an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sum, err := fileutil.HashPrefix(args[0], limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, sum)
			if entryID == 0 {
				return nil
			}

			store, err := ctx.openCatalog()
			if err != nil {
				return err
			}
			defer store.Close()

			entry, err := store.Get(cmd.Context(), entryID)
			if err != nil {
				return err
			}
			if entry == nil {
				return fmt.Errorf("catalog entry %d not found", entryID)
			}
			if err := store.AddAlias(cmd.Context(), entryID, request.IDHash, sum); err != nil {
				return err
			}
			fmt.Fprintf(out, "Bound hash to %s [%s]\n", entry.Label(), entry.System)
			return nil
		},
	}
	cmd.Flags().Int64Var(&entryID, "entry", 0, "Catalog entry ID to bind the hash to")
	cmd.Flags().Int64Var(&limit, "limit", 0, "Hash only the first N bytes (0 hashes the whole file)")
	return cmd
}

func newCatalogSystemsCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "systems",
		Short:       "List the systems the launcher knows",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			all := systems.All()
			rows := make([][]string, 0, len(all))
			for _, s := range all {
				rows = append(rows, []string{s.ID, s.Name, strings.Join(s.Aliases, ", "), strings.Join(s.Extensions, " ")})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Name", "Aliases", "Extensions"},
				rows,
				nil,
			))
			return nil
		},
	}
}
