// etfcompare — ETF performance comparison from daily adjusted closes.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/etfcompare/etfcompare/api"
	"github.com/etfcompare/etfcompare/internal/catalog"
	"github.com/etfcompare/etfcompare/internal/compare"
	"github.com/etfcompare/etfcompare/internal/config"
	"github.com/etfcompare/etfcompare/internal/datasource"
	applog "github.com/etfcompare/etfcompare/internal/log"
	"github.com/etfcompare/etfcompare/internal/report"
	"github.com/etfcompare/etfcompare/internal/store"
	"github.com/etfcompare/etfcompare/pkg/models"
	"github.com/etfcompare/etfcompare/pkg/utils"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config and logger, initialized in PersistentPreRunE.
var (
	cfg    *config.Config
	logger *zap.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "etfcompare",
	Short: "Compare ETF performance metrics from daily adjusted closes",
	Long: `etfcompare loads daily adjusted closes for exchange-traded funds,
computes return and risk statistics (total and annualized return,
volatility, Sharpe, Sortino, max drawdown), regresses each fund against
a benchmark (beta, alpha, R-squared, tracking error, information ratio),
and renders the comparison as text, CSV, JSON, or HTML.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if level, _ := cmd.Flags().GetString("log-level"); level != "" {
			cfg.Logging.Level = level
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		logger, err = applog.New(cfg.Logging)
		if err != nil {
			return fmt.Errorf("failed to build logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(etfsCmd)
	rootCmd.AddCommand(newsCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
}

// --- Wiring helpers ---

// openStore opens the configured SQLite price store.
func openStore() (store.PriceStore, error) {
	path := cfg.Database.Path
	if path == "" {
		path = config.DefaultDatabasePath()
	}
	return store.NewSQLite(path)
}

// newSource builds the configured market data source.
func newSource() (datasource.MarketData, error) {
	switch cfg.MarketData.Provider {
	case "", "yahoo":
		return datasource.NewYahoo(cfg.CacheTTL(), cfg.MarketData.RateLimit), nil
	default:
		return nil, fmt.Errorf("unknown market data provider %q", cfg.MarketData.Provider)
	}
}

// newService wires the market data source and price store into a
// comparison service.
func newService(st store.PriceStore) (*compare.Service, error) {
	src, err := newSource()
	if err != nil {
		return nil, err
	}
	return compare.New(src, st, logger, cfg.Analysis), nil
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("etfcompare %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Compare Command ---

var compareCmd = &cobra.Command{
	Use:   "compare [base] [comparisons...]",
	Short: "Compare performance metrics across ETFs",
	Long: `Compare one base ETF against any number of comparison ETFs over a
common window. Each instrument also gets benchmark-relative statistics
unless the benchmark is disabled.

Examples:
  etfcompare compare VTI QQQ VOO
  etfcompare compare VTI QQQ --period 3y --benchmark SPY
  etfcompare compare VTI QQQ --benchmark none --risk-free 0.03
  etfcompare compare VTI QQQ --format html --output report.html`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		period, _ := cmd.Flags().GetString("period")
		benchmark, _ := cmd.Flags().GetString("benchmark")
		formatName, _ := cmd.Flags().GetString("format")
		output, _ := cmd.Flags().GetString("output")

		format, err := report.ParseFormat(formatName)
		if err != nil {
			return err
		}

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		svc, err := newService(st)
		if err != nil {
			return err
		}

		req := compare.Request{
			BaseTicker:        args[0],
			ComparisonTickers: args[1:],
			Period:            period,
			Benchmark:         benchmark,
		}
		if cmd.Flags().Changed("risk-free") {
			rf, _ := cmd.Flags().GetFloat64("risk-free")
			req.RiskFreeRate = &rf
		}

		ctx := cmd.Context()
		result, err := svc.Compare(ctx, req)
		if err != nil {
			return err
		}

		// The HTML report embeds a performance chart, which needs the
		// price series. These all hit the store after the comparison.
		var series []*models.PriceSeries
		if format == report.FormatHTML {
			for _, ticker := range result.Tickers() {
				s, err := svc.FetchHistory(ctx, ticker, result.Period)
				if err != nil {
					logger.Warn("chart series unavailable",
						zap.String("ticker", ticker),
						zap.Error(err))
					continue
				}
				series = append(series, s)
			}
		}

		rcfg := report.DefaultConfig()
		rcfg.Format = format
		out, err := report.Generate(result, series, rcfg)
		if err != nil {
			return err
		}

		if output == "" && format == report.FormatHTML {
			output = report.OutputFilename(result.BaseTicker, format, time.Now())
		}
		if output == "" {
			_, err := os.Stdout.Write(out)
			return err
		}
		if err := os.WriteFile(output, out, 0o644); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
		fmt.Printf("Report written to %s\n", output)
		return nil
	},
}

func init() {
	compareCmd.Flags().String("period", "", "analysis window: 1mo, 3mo, 6mo, 1y, 3y, 5y, max (default from config)")
	compareCmd.Flags().String("benchmark", "", `benchmark ticker ("none" disables relative statistics)`)
	compareCmd.Flags().Float64("risk-free", 0, "annualized risk-free rate override, e.g. 0.03")
	compareCmd.Flags().String("format", "text", "output format: text, csv, json, html")
	compareCmd.Flags().StringP("output", "o", "", "write the report to a file (html defaults to a timestamped file)")
}

// --- Fetch Command ---

var fetchCmd = &cobra.Command{
	Use:   "fetch [ticker]",
	Short: "Fetch and store daily price history for a ticker",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		period, _ := cmd.Flags().GetString("period")

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		svc, err := newService(st)
		if err != nil {
			return err
		}

		series, err := svc.FetchHistory(cmd.Context(), args[0], period)
		if err != nil {
			return err
		}

		fmt.Printf("%s: %d daily closes (%s to %s)\n",
			series.Ticker, series.Len(),
			utils.FormatDate(series.Start()), utils.FormatDate(series.End()))
		if series.Len() >= 2 {
			first := series.Points[0].AdjClose
			last := series.Points[series.Len()-1].AdjClose
			fmt.Printf("  First: %.2f  Last: %.2f  Change: %s\n",
				first, last, utils.FormatSignedPct(last/first-1))
		}
		return nil
	},
}

func init() {
	fetchCmd.Flags().String("period", "", "lookback window: 1mo, 3mo, 6mo, 1y, 3y, 5y, max (default from config)")
}

// --- ETFs Commands ---

var etfsCmd = &cobra.Command{
	Use:   "etfs",
	Short: "Inspect and seed the ETF catalog",
}

var etfsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List ETFs in the catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		etfs, err := st.ListETFs(cmd.Context())
		if err != nil {
			return err
		}
		if len(etfs) == 0 {
			fmt.Println("Catalog is empty. Seed it with: etfcompare etfs seed <file.csv>")
			return nil
		}

		fmt.Printf("%-8s %-44s %-16s %8s\n", "TICKER", "NAME", "ISSUER", "EXPENSE")
		fmt.Println(strings.Repeat("─", 80))
		for _, e := range etfs {
			expense := "-"
			if e.ExpenseRatio > 0 {
				expense = utils.FormatPct(e.ExpenseRatio)
			}
			fmt.Printf("%-8s %-44s %-16s %8s\n", e.Ticker, truncate(e.Name, 44), truncate(e.Issuer, 16), expense)
		}
		return nil
	},
}

var etfsShowCmd = &cobra.Command{
	Use:   "show [ticker]",
	Short: "Show catalog details for one ETF",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		etf, err := st.GetETF(cmd.Context(), utils.NormalizeTicker(args[0]))
		if err != nil {
			return err
		}

		fmt.Printf("%s — %s\n", etf.Ticker, etf.Name)
		if etf.Issuer != "" {
			fmt.Printf("  Issuer:         %s\n", etf.Issuer)
		}
		if etf.Category != "" {
			fmt.Printf("  Category:       %s\n", etf.Category)
		}
		if etf.ExpenseRatio > 0 {
			fmt.Printf("  Expense Ratio:  %s\n", utils.FormatPct(etf.ExpenseRatio))
		}
		if etf.AUM > 0 {
			fmt.Printf("  AUM:            %s\n", utils.FormatUSDCompact(etf.AUM))
		}
		if !etf.InceptionDate.IsZero() {
			fmt.Printf("  Inception:      %s\n", utils.FormatDate(etf.InceptionDate))
		}
		if etf.Description != "" {
			fmt.Printf("  %s\n", etf.Description)
		}
		return nil
	},
}

var etfsSeedCmd = &cobra.Command{
	Use:   "seed [file]",
	Short: "Load ETF metadata from a CSV catalog file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfg.Catalog.Path
		if len(args) == 1 {
			path = args[0]
		}
		if path == "" {
			return fmt.Errorf("no catalog file configured; pass one: etfcompare etfs seed etfs.csv")
		}

		etfs, err := catalog.Load(path)
		if err != nil {
			return err
		}

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		if err := catalog.Seed(cmd.Context(), st, etfs); err != nil {
			return err
		}
		fmt.Printf("Seeded %d ETFs from %s\n", len(etfs), path)
		return nil
	},
}

func init() {
	etfsCmd.AddCommand(etfsListCmd)
	etfsCmd.AddCommand(etfsShowCmd)
	etfsCmd.AddCommand(etfsSeedCmd)
}

// --- News Command ---

var newsCmd = &cobra.Command{
	Use:   "news [ticker]",
	Short: "Show the latest fund headlines",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		src := datasource.NewNews()
		articles, err := src.GetTickerNews(cmd.Context(), utils.NormalizeTicker(args[0]), limit)
		if err != nil {
			return err
		}
		if len(articles) == 0 {
			fmt.Println("No recent headlines.")
			return nil
		}

		for _, a := range articles {
			fmt.Printf("• %s (%s, %s)\n", a.Title, a.Source, a.PublishedAt.Format("02 Jan 2006"))
			if a.URL != "" {
				fmt.Printf("  %s\n", a.URL)
			}
		}
		return nil
	},
}

func init() {
	newsCmd.Flags().Int("limit", 5, "maximum number of headlines")
}

// --- Cache Commands ---

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage stored price data",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear [ticker]",
	Short: "Delete stored price history",
	Long:  "Delete stored price history for one ticker, or for all tickers when none is given.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ticker := ""
		if len(args) == 1 {
			ticker = utils.NormalizeTicker(args[0])
		}

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		n, err := st.ClearPrices(cmd.Context(), ticker)
		if err != nil {
			return err
		}
		fmt.Printf("Removed %d price rows.\n", n)
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
}

// --- Serve Command (API Server) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("host") {
			cfg.Server.Host, _ = cmd.Flags().GetString("host")
		}
		if cmd.Flags().Changed("port") {
			cfg.Server.Port, _ = cmd.Flags().GetInt("port")
		}

		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		svc, err := newService(st)
		if err != nil {
			return err
		}

		srv := api.NewServer(cfg, logger, svc, datasource.NewNews(), st)
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		fmt.Printf("🌐 etfcompare API listening on %s\n", addr)
		return srv.ListenAndServe(addr)
	},
}

func init() {
	serveCmd.Flags().String("host", "", "bind address override")
	serveCmd.Flags().Int("port", 0, "port override")
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration and storage status",
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath := cfg.Database.Path
		if dbPath == "" {
			dbPath = config.DefaultDatabasePath()
		}

		line := strings.Repeat("═", 47)
		fmt.Println(line)
		fmt.Println("  etfcompare — Status")
		fmt.Println(line)
		fmt.Printf("  Version:        %s (%s)\n", version, commit)
		fmt.Printf("  Provider:       %s\n", cfg.MarketData.Provider)
		fmt.Printf("  Database:       %s\n", dbPath)
		fmt.Printf("  Benchmark:      %s\n", cfg.Analysis.Benchmark)
		fmt.Printf("  Default Period: %s\n", cfg.Analysis.DefaultPeriod)
		fmt.Printf("  Risk-Free Rate: %s\n", utils.FormatPct(cfg.Analysis.RiskFreeRate))
		fmt.Printf("  API Server:     %s:%d\n", cfg.Server.Host, cfg.Server.Port)

		st, err := openStore()
		if err == nil {
			defer st.Close()
			if etfs, err := st.ListETFs(cmd.Context()); err == nil {
				fmt.Printf("  Catalog:        %d ETFs\n", len(etfs))
			}
		}

		fmt.Println(line)
		return nil
	},
}

// truncate shortens s to at most n runes for fixed-width table columns.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
