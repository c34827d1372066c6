package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/avvvet/erpbuddy-assistant/internal/catalog"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage the local entity catalog",
}

var catalogAddCmd = &cobra.Command{
	Use:   "add <kind> <name>...",
	Short: "Add customers, suppliers or products",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runCatalogAdd,
}

var catalogListCmd = &cobra.Command{
	Use:   "list <kind> [query]",
	Short: "List names, optionally filtered by a fuzzy query",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runCatalogList,
}

func init() {
	catalogListCmd.Flags().Int("limit", 50, "maximum names to print")
	catalogCmd.AddCommand(catalogAddCmd, catalogListCmd)
	rootCmd.AddCommand(catalogCmd)
}

func parseKind(s string) (catalog.EntityKind, error) {
	k := catalog.EntityKind(strings.TrimSuffix(strings.ToLower(s), "s"))
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q (want customer, supplier or product)", catalog.ErrUnknownKind, s)
	}
	return k, nil
}

func openCatalog(cmd *cobra.Command) (*catalog.SQLite, string, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, "", err
	}
	company, _ := cmd.Flags().GetString("company")
	cat, err := catalog.OpenSQLite(cmd.Context(), cfg.CatalogDSN)
	return cat, company, err
}

func runCatalogAdd(cmd *cobra.Command, args []string) error {
	kind, err := parseKind(args[0])
	if err != nil {
		return err
	}
	cat, company, err := openCatalog(cmd)
	if err != nil {
		return err
	}
	defer cat.Close()

	if err := cat.Add(cmd.Context(), company, kind, args[1:]...); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "added %d %s name(s) for %s\n", len(args)-1, kind, company)
	return nil
}

func runCatalogList(cmd *cobra.Command, args []string) error {
	kind, err := parseKind(args[0])
	if err != nil {
		return err
	}
	query := ""
	if len(args) == 2 {
		query = args[1]
	}
	limit, _ := cmd.Flags().GetInt("limit")

	cat, company, err := openCatalog(cmd)
	if err != nil {
		return err
	}
	defer cat.Close()

	names, err := cat.FindCandidatesByFuzzyName(cmd.Context(), company, kind, query, limit)
	if err != nil {
		return err
	}
	for _, n := range names {
		fmt.Fprintln(cmd.OutOrStdout(), n)
	}
	return nil
}
