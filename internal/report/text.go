package report

import (
	"bytes"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/andresuchdata/conventicore/internal/pipeline"
)

var funcs = template.FuncMap{
	"pct":  pct,
	"join": strings.Join,
	"rule": func(n int) string { return strings.Repeat("=", n) },
}

var executiveSummary = template.Must(template.New("executive_summary").Funcs(funcs).Parse(
	`EXECUTIVE SUMMARY - CONVENTION INVENTORY PLANNING
Period: {{.S.Period}}
Generated: {{.Generated}}

DATA QUALITY:
- Count records in: {{.S.InputCounts}}, ledger records: {{.S.LedgerRecords}}
- Excluded records: {{.S.ExcludedRecords}} ({{.S.InvalidQuantities}} invalid quantities, {{.S.InvalidSales}} invalid sales)
- Deduplicated keys: {{.S.DeduplicatedKeys}}, overridden records: {{.S.OverriddenRecords}}
- Exceptions: {{.S.HighSeverity}} HIGH, {{.S.MediumSeverity}} MEDIUM
{{- if .S.LifecycleWarnings}}
- Events with dates out of order: {{.S.LifecycleWarnings}}
{{- end}}

FORECAST:
- SKUs forecast: {{.S.ForecastSKUs}}
- LOW confidence (no sales history): {{len .S.LowConfidenceSKUs}}{{if .S.LowConfidenceSKUs}} [{{join .S.LowConfidenceSKUs ", "}}]{{end}}
{{- if .S.RatesConfigured}}
- Default event rates used for: {{len .S.FallbackRateSKUs}} SKUs, {{.S.MissingRateMappings}} missing rate mappings
{{- else}}
- No rate table configured, default event rates used throughout
{{- end}}

BUY PLAN:
- Safety stock at {{printf "%.2f" .S.ZServiceLevel}} sigma, target {{.S.TargetDaysOfSupply}} days of supply
- Rows: {{.S.PlanRows}}, HIGH priority: {{.S.HighPriority}}, below {{.S.LowDoSWarning}} days of supply: {{.S.LowDoS}}
- Total order value: {{.S.TotalOrderValue}} against a budget of {{.S.Budget}}
{{- if .S.OverBudget}}
- OVER BUDGET by {{.S.BudgetOverage}}: phase orders by priority
{{- end}}

PROFITABILITY:
- Revenue: {{printf "%.2f" .S.PnL.TotalRevenue}}, gross margin: {{printf "%.2f" .S.PnL.TotalGrossMargin}} ({{pct .S.PnL.GMPct}})
- Average GMROI: {{printf "%.2f" .S.PnL.AvgGMROI}}x, average sell-through: {{pct .S.PnL.AvgSellThrough}}
- SKUs under 20% margin: {{.S.PnL.LowMarginSKUs}}, under 2.0x GMROI: {{.S.PnL.LowGMROISKUs}}

KEY RECOMMENDATIONS:
1. Reorder HIGH priority SKUs first
2. Watch SKUs below {{.S.LowDoSWarning}} days of supply
3. Review SKUs with GMROI under 2.0x
4. Investigate shrink variances over {{pct .S.ShrinkThresholdPct}}
{{- if .S.StageErrors}}

STAGE ERRORS:
{{- range $stage, $err := .S.StageErrors}}
- {{$stage}}: {{$err}}
{{- end}}
{{- end}}
`))

var dashboard = template.Must(template.New("dashboard").Funcs(funcs).Parse(
	`CONVENTION INVENTORY DASHBOARD - {{.S.Period}}
{{rule 50}}

INVENTORY
  Ledger records ........ {{.S.LedgerRecords}}
  SKUs forecast ......... {{.S.ForecastSKUs}}
  HIGH priority ......... {{.S.HighPriority}}
  Low days of supply .... {{.S.LowDoS}}

CASH
  Order value ........... {{.S.TotalOrderValue}}
  Budget ................ {{.S.Budget}}
  Over budget ........... {{if .S.OverBudget}}YES ({{.S.BudgetOverage}}){{else}}no{{end}}

PROFITABILITY
  Revenue ............... {{printf "%.2f" .S.PnL.TotalRevenue}}
  COGS .................. {{printf "%.2f" .S.PnL.TotalCOGS}}
  Gross margin .......... {{printf "%.2f" .S.PnL.TotalGrossMargin}} ({{pct .S.PnL.GMPct}})
  Avg GMROI ............. {{printf "%.2f" .S.PnL.AvgGMROI}}x
  Avg sell-through ...... {{pct .S.PnL.AvgSellThrough}}

DATA QUALITY
  HIGH exceptions ....... {{.S.HighSeverity}}
  MEDIUM exceptions ..... {{.S.MediumSeverity}}
  Excluded records ...... {{.S.ExcludedRecords}}

Last Updated: {{.Generated}}
`))

func pct(v float64) string {
	return strconv.FormatFloat(v*100, 'f', 1, 64) + "%"
}

type textData struct {
	S         pipeline.RunSummary
	Generated string
}

// ExecutiveSummary renders the executive summary text for a run.
func ExecutiveSummary(s pipeline.RunSummary, at time.Time) (string, error) {
	return render(executiveSummary, s, at)
}

// Dashboard renders the text dashboard for a run.
func Dashboard(s pipeline.RunSummary, at time.Time) (string, error) {
	return render(dashboard, s, at)
}

func render(t *template.Template, s pipeline.RunSummary, at time.Time) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, textData{S: s, Generated: at.Format("2006-01-02 15:04:05")}); err != nil {
		return "", err
	}
	return buf.String(), nil
}
