package advisor

import (
	"fmt"
	"sort"
	"strings"

	"pathfinder/internal/risk"
)

const systemPrompt = "You are an expert energy transition consultant. Answer with valid JSON only."

// Action is an energy transition action found in the company's reporting
type Action struct {
	Name          string `json:"name"`
	Justification string `json:"justification"`
}

// Profile is what is known about the company outside the risk models
type Profile struct {
	ExecutiveSummary      string   `json:"executive_summary"`
	StrategicPriorities   string   `json:"strategic_priorities"`
	FinancialCommitments  string   `json:"financial_commitments"`
	SustainabilityTargets string   `json:"sustainability_targets"`
	IdentifiedRisks       string   `json:"identified_risks"`
	TransitionCapex       string   `json:"transition_capex"`
	ProjectAllocations    string   `json:"project_allocations"`
	Actions               []Action `json:"actions"`
}

// FormatRisk renders the assessment as the text block the roadmap prompt
// quotes. Countries are listed in alphabetical order.
func FormatRisk(b risk.Bundle) string {
	var sb strings.Builder
	if b.Error != "" {
		fmt.Fprintf(&sb, "Risk assessment unavailable: %s\n", b.Error)
	}
	if b.Timestamp != "" {
		fmt.Fprintf(&sb, "Assessment date: %s\n", b.Timestamp)
	}
	if len(b.EvaluatedCountries) > 0 {
		fmt.Fprintf(&sb, "Countries: %s\n", strings.Join(b.EvaluatedCountries, ", "))
	}

	writeDomain(&sb, "Climate Risk", b.Climate.Overall, b.Climate.Countries, b.Climate.Error)
	carbonNote := b.Carbon.Error
	if carbonNote == "" {
		carbonNote = b.Carbon.Details
	}
	writeDomain(&sb, "Carbon Price Risk", b.Carbon.Overall, b.Carbon.Countries, carbonNote)
	writeDomain(&sb, "Technology Risk", b.Technology.Overall, b.Technology.Countries, b.Technology.Error)
	return sb.String()
}

func writeDomain(sb *strings.Builder, title string, overall risk.Level, countries map[string]risk.Outcome, note string) {
	fmt.Fprintf(sb, "- %s: %s\n", title, overall)
	if note != "" {
		fmt.Fprintf(sb, "  (%s)\n", note)
	}

	names := make([]string, 0, len(countries))
	for name := range countries {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(sb, "  - %s: %s\n", name, describe(countries[name]))
	}
}

func describe(o risk.Outcome) string {
	switch o := o.(type) {
	case risk.ClimateForecast:
		return fmt.Sprintf("%s (temperature change %.2f°C by %d)", o.RiskLevel, o.TempRise, o.Year)
	case risk.CarbonForecast:
		return fmt.Sprintf("%s (%s)", o.RiskLevel, o.InstrumentMix)
	case risk.TechnologyForecast:
		return fmt.Sprintf("%s (%s low-carbon trade, %.2f%% to %.2f%% of GDP)",
			o.RiskLevel, strings.ToLower(o.Trend), o.CurrentValue, o.ForecastValue)
	default:
		return fmt.Sprintf("%s (%s)", o.Level(), o.Status())
	}
}

// BuildRoadmapPrompt interpolates the company profile and the formatted
// assessment into the roadmap request
func BuildRoadmapPrompt(company string, p Profile, b risk.Bundle) string {
	var actions strings.Builder
	if len(p.Actions) == 0 {
		actions.WriteString("No specific energy transition actions identified in the annual report.")
	} else {
		actions.WriteString("Identified Actions from Annual Report:\n")
		for _, a := range p.Actions {
			fmt.Fprintf(&actions, "- %s: %s\n", a.Name, a.Justification)
		}
	}

	return fmt.Sprintf(roadmapTemplate,
		company,
		orMissing(p.ExecutiveSummary, "executive summary"),
		orMissing(p.StrategicPriorities, "strategic priorities"),
		orMissing(p.FinancialCommitments, "financial commitments"),
		orMissing(p.SustainabilityTargets, "sustainability targets"),
		orMissing(p.IdentifiedRisks, "risks"),
		orMissing(p.TransitionCapex, "transition capex"),
		orMissing(p.ProjectAllocations, "project allocations"),
		FormatRisk(b),
		actions.String(),
		company,
		company,
	)
}

func orMissing(v, what string) string {
	v = strings.TrimSpace(v)
	if v == "" || v == "Not Mentioned" {
		return fmt.Sprintf("No specific %s mentioned.", what)
	}
	return v
}

const roadmapTemplate = `You are creating a detailed, time-based roadmap of energy transition recommendations for %s.

COMPANY PROFILE FROM ANNUAL REPORT:
- Executive Summary: %s
- Strategic Priorities: %s
- Financial Commitments: %s
- Sustainability Targets: %s
- Identified Risks: %s

FINANCIAL VIABILITY ASSESSMENT:
- CapEx for Sustainability: %s
- Current Investment Areas: %s

RISK EVALUATION:
The following scores come from the in-house forecasting models:
- Climate Risk: temperature rise forecasts
- Carbon Price Risk: carbon tax and subsidy forecasts
- Technology Risk: low-carbon technology adoption forecasts

Use these scores when filling in the score field for each factor.

%s

%s

TASK: Create an energy transition roadmap for %s.
- Organize the analysis into External Factors, Internal Factors, Factor Rankings and Time-based Recommendations.
- For high climate risk regions, prioritize adaptation measures and faster timelines.
- For high carbon price risk regions, focus on emissions reduction and cost mitigation.
- For high technology risk regions, recommend incremental technology adoption strategies.
- Use the timeframes "Immediate actions (Now - 2030)", "Medium-term actions (2030 - 2040)" and "Long-term goals (2040 - 2050)".

Output a single JSON object with the keys "company" (set to "%s"), "external_factors", "internal_factors", "factor_rankings" and "timeframes".
`
