package main

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"counter-desk/internal/config"
	"counter-desk/internal/export"
	"counter-desk/library"
	"counter-desk/market"
)

var libraryReports = map[string]func(context.Context, *library.LibraryManager) (any, error){
	"low-stock":     func(ctx context.Context, m *library.LibraryManager) (any, error) { return m.LowStock(ctx) },
	"most-borrowed": func(ctx context.Context, m *library.LibraryManager) (any, error) { return m.MostBorrowed(ctx) },
	"fines":         func(ctx context.Context, m *library.LibraryManager) (any, error) { return m.OutstandingFines(ctx) },
}

var marketReports = map[string]func(context.Context, *market.MarketManager) (any, error){
	"low-stock":     func(ctx context.Context, m *market.MarketManager) (any, error) { return m.LowStock(ctx) },
	"never-bought":  func(ctx context.Context, m *market.MarketManager) (any, error) { return m.NeverBought(ctx) },
	"top-customers": func(ctx context.Context, m *market.MarketManager) (any, error) { return m.TopCustomers(ctx) },
	"summary": func(ctx context.Context, m *market.MarketManager) (any, error) {
		sum, err := m.Summary(ctx)
		if err != nil {
			return nil, err
		}
		return []market.SpendSummary{sum}, nil
	},
}

func runLibraryReport(ctx context.Context, cfg *config.Config, log *zap.Logger, kind string) (any, error) {
	mgr, err := openLibrary(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	defer mgr.Close()
	return libraryReports[kind](ctx, mgr)
}

func runMarketReport(ctx context.Context, cfg *config.Config, log *zap.Logger, kind string) (any, error) {
	mgr, err := openMarket(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	defer mgr.Close()
	return marketReports[kind](ctx, mgr)
}

func newReportCmd(flags *globalFlags) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print a read-only report as a table, CSV or JSON",
	}
	cmd.PersistentFlags().StringVarP(&format, "format", "f", "table", "output format: table, csv or json")
	cmd.AddCommand(
		newReportDomainCmd("library", slices.Sorted(maps.Keys(libraryReports)), runLibraryReport, flags, &format),
		newReportDomainCmd("market", slices.Sorted(maps.Keys(marketReports)), runMarketReport, flags, &format),
	)
	return cmd
}

type reportRunner func(ctx context.Context, cfg *config.Config, log *zap.Logger, kind string) (any, error)

func newReportDomainCmd(domain string, kinds []string, run reportRunner, flags *globalFlags, format *string) *cobra.Command {
	return &cobra.Command{
		Use:       fmt.Sprintf("%s <%s>", domain, strings.Join(kinds, "|")),
		Short:     fmt.Sprintf("Report on the %s", domain),
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: kinds,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(*format)
			if err != nil {
				return err
			}
			cfg, log, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}
			defer log.Sync()

			rows, err := run(cmd.Context(), cfg, log, args[0])
			if err != nil {
				return err
			}
			return export.Write(cmd.OutOrStdout(), f, rows)
		},
	}
}
