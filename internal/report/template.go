package report

// ComparisonTemplate is the HTML template for the comparison report.
// It is embedded as a Go constant — no external file dependencies.
const ComparisonTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Title}}</title>
<style>
  :root {
    --bg: #ffffff;
    --text: #1a1a2e;
    --muted: #6b7280;
    --border: #e5e7eb;
    --accent: #2563eb;
    --green: #16a34a;
    --red: #dc2626;
    --section-bg: #f8fafc;
  }
  * { margin: 0; padding: 0; box-sizing: border-box; }
  body {
    font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
    color: var(--text);
    background: var(--bg);
    line-height: 1.6;
    max-width: 960px;
    margin: 0 auto;
    padding: 20px;
  }
  h1, h2 { font-weight: 600; }
  h1 { font-size: 1.5rem; margin-bottom: 4px; }
  h2 { font-size: 1.2rem; margin: 24px 0 12px; padding-bottom: 6px; border-bottom: 2px solid var(--accent); }
  p { margin: 6px 0; }
  .muted { color: var(--muted); font-size: 0.85rem; }

  /* Header */
  .header {
    display: flex;
    justify-content: space-between;
    align-items: flex-start;
    border-bottom: 3px solid var(--accent);
    padding-bottom: 12px;
    margin-bottom: 16px;
  }
  .header-left h1 { color: var(--accent); }
  .header-right { text-align: right; }
  .ticker-badge {
    display: inline-block;
    background: var(--accent);
    color: white;
    padding: 2px 12px;
    border-radius: 4px;
    font-weight: 700;
    font-size: 1.1rem;
    margin-right: 8px;
  }

  /* Summary bar */
  .summary-bar {
    display: grid;
    grid-template-columns: repeat(auto-fill, minmax(160px, 1fr));
    gap: 8px;
    background: var(--section-bg);
    padding: 12px;
    border-radius: 8px;
    margin-bottom: 16px;
  }
  .summary-item { text-align: center; }
  .summary-item .label { font-size: 0.75rem; color: var(--muted); text-transform: uppercase; }
  .summary-item .value { font-size: 1rem; font-weight: 600; }
  .positive { color: var(--green); }
  .negative { color: var(--red); }

  /* Metrics table */
  table { width: 100%; border-collapse: collapse; margin: 8px 0 16px; font-size: 0.9rem; }
  th { background: var(--section-bg); text-align: right; padding: 8px; font-weight: 600; }
  th:first-child { text-align: left; }
  td { padding: 8px; border-bottom: 1px solid var(--border); text-align: right; }
  td:first-child { text-align: left; color: var(--muted); }

  /* Chart container */
  .chart-container { margin: 12px 0; overflow-x: auto; }
  .chart-container img { max-width: 100%; height: auto; }

  /* Section */
  .section { margin: 20px 0; }

  /* Footer */
  .footer {
    margin-top: 30px;
    padding-top: 12px;
    border-top: 2px solid var(--border);
    font-size: 0.8rem;
    color: var(--muted);
    text-align: center;
  }

  @media print {
    body { max-width: 100%; padding: 10px; }
    .section { page-break-inside: avoid; }
  }
</style>
</head>
<body>

<!-- ═══════ HEADER ═══════ -->
<div class="header">
  <div class="header-left">
    <h1><span class="ticker-badge">{{.BaseTicker}}</span> {{.Title}}</h1>
    {{if .Comparisons}}<p class="muted">vs {{.Comparisons}}</p>{{end}}
  </div>
  <div class="header-right">
    <p class="muted">{{.GeneratedAt}}</p>
  </div>
</div>

<!-- ═══════ SUMMARY BAR ═══════ -->
<div class="summary-bar">
  <div class="summary-item">
    <div class="label">Period</div>
    <div class="value">{{.Period}}</div>
  </div>
  <div class="summary-item">
    <div class="label">Window</div>
    <div class="value">{{.DateRange}}</div>
  </div>
  <div class="summary-item">
    <div class="label">Benchmark</div>
    <div class="value">{{if .Benchmark}}{{.Benchmark}}{{else}}none{{end}}</div>
  </div>
  <div class="summary-item">
    <div class="label">Instruments</div>
    <div class="value">{{.Instruments}}</div>
  </div>
</div>

<!-- ═══════ PERFORMANCE CHART ═══════ -->
{{if .ChartURI}}
<div class="section">
  <h2>Performance</h2>
  <div class="chart-container"><img src="{{.ChartURI}}" alt="Performance chart"></div>
</div>
{{end}}

<!-- ═══════ METRICS TABLE ═══════ -->
<div class="section">
  <h2>Metrics</h2>
  <table>
    <thead>
      <tr>
        <th>Metric</th>
        {{range .Tickers}}<th>{{.}}</th>{{end}}
      </tr>
    </thead>
    <tbody>
    {{range .Rows}}
    <tr>
      <td>{{.Label}}</td>
      {{range .Cells}}<td class="{{.Class}}">{{.Text}}</td>{{end}}
    </tr>
    {{end}}
    </tbody>
  </table>
</div>

<!-- ═══════ FOOTER ═══════ -->
<div class="footer">
  <p><strong>Disclaimer:</strong> Metrics are computed from daily adjusted closes over the stated window.
  Past performance does not guarantee future results. This report is for informational purposes only
  and does not constitute investment advice.</p>
  <p>Generated by etfcompare on {{.GeneratedAt}}</p>
</div>

</body>
</html>`
