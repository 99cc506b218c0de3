// Package report renders comparison results as terminal tables, CSV, JSON,
// and self-contained HTML documents with an embedded performance chart.
package report

import (
	"bytes"
	"encoding/base64"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/etfcompare/etfcompare/pkg/models"
	"github.com/etfcompare/etfcompare/pkg/utils"
)

// ════════════════════════════════════════════════════════════════════
// Formats
// ════════════════════════════════════════════════════════════════════

// Format specifies the report output format.
type Format string

const (
	FormatText Format = "text"
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatHTML Format = "html"
)

// ParseFormat maps a user-supplied format name onto a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return FormatText, nil
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	case "html":
		return FormatHTML, nil
	default:
		return "", fmt.Errorf("unknown report format %q (valid: text, csv, json, html)", s)
	}
}

// Config controls report generation behaviour.
type Config struct {
	Format   Format      // output format (default: text)
	Title    string      // custom report title (optional)
	ChartCfg ChartConfig // chart rendering config (HTML only)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Format:   FormatText,
		ChartCfg: DefaultChartConfig(),
	}
}

// ════════════════════════════════════════════════════════════════════
// Rows — one metric across all compared instruments
// ════════════════════════════════════════════════════════════════════

// Row is one metric rendered across every compared instrument.
type Row struct {
	Label string
	Cells []Cell
}

// Cell is one formatted metric value.
type Cell struct {
	Text  string
	Class string // "positive", "negative", or "" for neutral values
}

// absent marks a statistic that was not computed for an instrument.
const absent = "N/A"

// buildRows flattens the per-ticker metrics into display rows: one metric
// per row, one column per instrument, in the same order as the header
// tickers. Benchmark-relative rows appear only when the comparison ran
// against a benchmark.
func buildRows(result *models.ComparisonResult) ([]string, []Row) {
	tickers := result.Tickers()

	row := func(label string, f func(*models.PerformanceMetrics) Cell) Row {
		r := Row{Label: label, Cells: make([]Cell, len(tickers))}
		for i, t := range tickers {
			r.Cells[i] = f(result.Metrics[t])
		}
		return r
	}

	signedPct := func(v float64) Cell {
		c := Cell{Text: utils.FormatSignedPct(v)}
		switch {
		case v > 0:
			c.Class = "positive"
		case v < 0:
			c.Class = "negative"
		}
		return c
	}
	pct := func(v float64) Cell { return Cell{Text: utils.FormatPct(v)} }
	ratio := func(v float64) Cell { return Cell{Text: utils.FormatRatio(v)} }

	rows := []Row{
		row("Total Return", func(m *models.PerformanceMetrics) Cell { return signedPct(m.TotalReturn) }),
		row("Annualized Return", func(m *models.PerformanceMetrics) Cell { return signedPct(m.AnnualizedReturn) }),
		row("Volatility (ann.)", func(m *models.PerformanceMetrics) Cell { return pct(m.Volatility) }),
		row("Sharpe Ratio", func(m *models.PerformanceMetrics) Cell { return ratio(m.SharpeRatio) }),
		row("Sortino Ratio", func(m *models.PerformanceMetrics) Cell { return ratio(m.SortinoRatio) }),
		row("Max Drawdown", func(m *models.PerformanceMetrics) Cell {
			c := Cell{Text: utils.FormatPct(m.MaxDrawdown)}
			if m.MaxDrawdown > 0 {
				c.Class = "negative"
			}
			return c
		}),
	}

	if result.Benchmark != "" {
		optRatio := func(p *float64) Cell {
			if p == nil {
				return Cell{Text: absent}
			}
			return ratio(*p)
		}
		optSignedPct := func(p *float64) Cell {
			if p == nil {
				return Cell{Text: absent}
			}
			return signedPct(*p)
		}
		optPct := func(p *float64) Cell {
			if p == nil {
				return Cell{Text: absent}
			}
			return pct(*p)
		}
		rows = append(rows,
			row("Beta", func(m *models.PerformanceMetrics) Cell { return optRatio(m.Beta) }),
			row("Alpha", func(m *models.PerformanceMetrics) Cell { return optSignedPct(m.Alpha) }),
			row("R-Squared", func(m *models.PerformanceMetrics) Cell { return optRatio(m.RSquared) }),
			row("Tracking Error", func(m *models.PerformanceMetrics) Cell { return optPct(m.TrackingError) }),
			row("Information Ratio", func(m *models.PerformanceMetrics) Cell { return optRatio(m.InformationRatio) }),
		)
	}

	return tickers, rows
}

// ════════════════════════════════════════════════════════════════════
// Generate
// ════════════════════════════════════════════════════════════════════

// Generate renders the comparison in the configured format. series feeds
// the HTML performance chart and may be nil for the other formats.
func Generate(result *models.ComparisonResult, series []*models.PriceSeries, cfg Config) ([]byte, error) {
	if result == nil {
		return nil, fmt.Errorf("comparison result is nil")
	}
	switch cfg.Format {
	case FormatText, "":
		s, err := GenerateText(result)
		if err != nil {
			return nil, err
		}
		return []byte(s), nil
	case FormatCSV:
		return GenerateCSV(result)
	case FormatJSON:
		return GenerateJSON(result)
	case FormatHTML:
		s, err := GenerateHTML(result, series, cfg)
		if err != nil {
			return nil, err
		}
		return []byte(s), nil
	default:
		return nil, fmt.Errorf("unknown report format %q", cfg.Format)
	}
}

// GenerateText renders a terminal-friendly comparison table.
func GenerateText(result *models.ComparisonResult) (string, error) {
	if result == nil {
		return "", fmt.Errorf("comparison result is nil")
	}
	tickers, rows := buildRows(result)

	const labelWidth = 20
	const colWidth = 14
	width := labelWidth + colWidth*len(tickers) + 2
	if width < 60 {
		width = 60
	}
	line := strings.Repeat("═", width)
	thinLine := strings.Repeat("─", width)

	var sb strings.Builder
	sb.WriteString("\n" + line + "\n")
	sb.WriteString("  ETF Performance Comparison\n")
	sb.WriteString(fmt.Sprintf("  %s vs %s\n", result.BaseTicker, strings.Join(result.ComparisonTickers, ", ")))
	sb.WriteString(line + "\n")

	sb.WriteString(fmt.Sprintf("  Period: %s (%s to %s)\n",
		result.Period, utils.FormatDate(result.StartDate), utils.FormatDate(result.EndDate)))
	if result.Benchmark != "" {
		sb.WriteString(fmt.Sprintf("  Benchmark: %s\n", result.Benchmark))
	} else {
		sb.WriteString("  Benchmark: none (absolute metrics only)\n")
	}
	sb.WriteString(fmt.Sprintf("  Generated: %s\n", result.GeneratedAt.UTC().Format("02 Jan 2006, 03:04 PM MST")))
	sb.WriteString(thinLine + "\n\n")

	// Header row.
	sb.WriteString(fmt.Sprintf("  %-*s", labelWidth, "Metric"))
	for _, t := range tickers {
		sb.WriteString(fmt.Sprintf("%*s", colWidth, t))
	}
	sb.WriteString("\n  " + strings.Repeat("─", width-2) + "\n")

	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("  %-*s", labelWidth, r.Label))
		for _, c := range r.Cells {
			sb.WriteString(fmt.Sprintf("%*s", colWidth, c.Text))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("\n" + line + "\n")
	sb.WriteString("  Data: daily adjusted closes. Past performance does not guarantee\n")
	sb.WriteString("  future results. Not investment advice.\n")
	sb.WriteString(line + "\n")

	return sb.String(), nil
}

// GenerateCSV renders the comparison table as CSV: a metric column followed
// by one column per instrument, values formatted as in the text report.
func GenerateCSV(result *models.ComparisonResult) ([]byte, error) {
	if result == nil {
		return nil, fmt.Errorf("comparison result is nil")
	}
	tickers, rows := buildRows(result)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(append([]string{"metric"}, tickers...)); err != nil {
		return nil, err
	}
	for _, r := range rows {
		record := make([]string, 0, len(r.Cells)+1)
		record = append(record, r.Label)
		for _, c := range r.Cells {
			record = append(record, c.Text)
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GenerateJSON renders the raw comparison result as indented JSON.
func GenerateJSON(result *models.ComparisonResult) ([]byte, error) {
	if result == nil {
		return nil, fmt.Errorf("comparison result is nil")
	}
	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding result: %w", err)
	}
	return append(out, '\n'), nil
}

// GenerateHTML renders a self-contained HTML comparison report. When price
// series are supplied the performance chart is embedded as a base64 PNG; a
// failed chart render leaves the report chartless.
func GenerateHTML(result *models.ComparisonResult, series []*models.PriceSeries, cfg Config) (string, error) {
	if result == nil {
		return "", fmt.Errorf("comparison result is nil")
	}

	data := buildHTMLData(result, series, cfg)

	tmpl, err := template.New("comparison").Parse(ComparisonTemplate)
	if err != nil {
		return "", fmt.Errorf("parsing template: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("executing template: %w", err)
	}
	return buf.String(), nil
}

// ════════════════════════════════════════════════════════════════════
// Internal — Build template data
// ════════════════════════════════════════════════════════════════════

// htmlData is the template model passed to the HTML template.
type htmlData struct {
	Title       string
	BaseTicker  string
	Comparisons string
	Period      string
	DateRange   string
	Benchmark   string
	Instruments int
	GeneratedAt string

	Tickers []string
	Rows    []Row

	ChartURI template.URL // data URI of the performance chart PNG, empty when absent
}

func buildHTMLData(result *models.ComparisonResult, series []*models.PriceSeries, cfg Config) htmlData {
	tickers, rows := buildRows(result)

	data := htmlData{
		Title:       cfg.Title,
		BaseTicker:  result.BaseTicker,
		Comparisons: strings.Join(result.ComparisonTickers, ", "),
		Period:      result.Period,
		DateRange:   utils.FormatDate(result.StartDate) + " — " + utils.FormatDate(result.EndDate),
		Benchmark:   result.Benchmark,
		Instruments: len(tickers),
		GeneratedAt: result.GeneratedAt.UTC().Format("02 Jan 2006, 03:04 PM MST"),
		Tickers:     tickers,
		Rows:        rows,
	}
	if data.Title == "" {
		data.Title = fmt.Sprintf("%s Comparison Report", result.BaseTicker)
	}

	if len(series) > 0 {
		chartCfg := cfg.ChartCfg
		png, err := PerformanceChart(series, fmt.Sprintf("Growth of 100 (%s)", result.Period), chartCfg)
		if err == nil {
			data.ChartURI = template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(png))
		}
	}

	return data
}

// ════════════════════════════════════════════════════════════════════
// Utility: output filename
// ════════════════════════════════════════════════════════════════════

// OutputFilename builds a timestamped report filename such as
// "etfcompare_VTI_20240603_150405.html".
func OutputFilename(baseTicker string, format Format, t time.Time) string {
	ext := string(format)
	if format == FormatText {
		ext = "txt"
	}
	return fmt.Sprintf("etfcompare_%s_%s.%s", baseTicker, t.Format("20060102_150405"), ext)
}
