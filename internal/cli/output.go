package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/MikeSquared-Agency/Prioritize/internal/scoring"
)

type palette struct {
	warn, ok, dim func(...any) string
}

func newPalette(useColors bool) palette {
	if !useColors {
		return palette{warn: fmt.Sprint, ok: fmt.Sprint, dim: fmt.Sprint}
	}
	return palette{
		warn: color.New(color.FgYellow, color.Bold).SprintFunc(),
		ok:   color.New(color.FgGreen).SprintFunc(),
		dim:  color.New(color.FgHiBlack).SprintFunc(),
	}
}

func f4(v float64) string { return strconv.FormatFloat(v, 'f', 4, 64) }

func renderTable(w io.Writer, headers []string, rows [][]string) error {
	table := tablewriter.NewWriter(w)
	defer func() { _ = table.Close() }()

	table.Header(headers)
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}

// writeWarnings prints weight-sum warnings, or a confirmation when the
// hierarchy is consistent.
func writeWarnings(w io.Writer, version string, warnings []scoring.WeightSumWarning, p palette) error {
	if len(warnings) == 0 {
		_, err := fmt.Fprintf(w, "%s configuration %s: weight sums are consistent\n", p.ok("OK"), version)
		return err
	}
	for _, wn := range warnings {
		if _, err := fmt.Fprintf(w, "%s %s\n", p.warn("WARNING"), wn.String()); err != nil {
			return err
		}
	}
	return nil
}

func writeEvaluations(w io.Writer, evaluations []*scoring.Evaluation) error {
	if len(evaluations) == 0 {
		return nil
	}
	rows := make([][]string, 0, len(evaluations))
	for _, ev := range evaluations {
		rows = append(rows, []string{
			ev.BuildingCode,
			f4(ev.Depreciation.Total),
			f4(ev.Components.Total),
			f4(ev.ServiceabilityScore),
			f4(ev.SubScore.WeightedDepreciation),
			f4(ev.SubScore.WeightedComponent),
			f4(ev.SubScore.WeightedService),
			f4(ev.TotalBuildingScore),
		})
	}
	return renderTable(w, []string{"Building", "Depreciation", "Components", "Serviceability", "W.Dep", "W.Comp", "W.Serv", "Building Score"}, rows)
}

func writeBreakdown(w io.Writer, p *scoring.Project, pal palette) error {
	if p.Score == nil {
		return nil
	}
	if _, err := fmt.Fprintf(w, "\n%s (%s)\n", p.Name, p.BuildingType); err != nil {
		return err
	}
	rows := make([][]string, 0, len(p.Score.PerCriterion))
	for _, c := range p.Score.PerCriterion {
		param := c.ParameterLabel
		if c.Unscored {
			param = pal.dim(c.Reason)
		}
		rows = append(rows, []string{c.AxisID, c.Name, param, f4(c.Value), f4(c.Weight), f4(c.Score)})
	}
	if err := renderTable(w, []string{"Axis", "Criterion", "Parameter", "Value", "Weight", "Score"}, rows); err != nil {
		return err
	}
	if p.Score.ExistingSubScore != nil {
		if _, err := fmt.Fprintf(w, "existing building sub-score: %s\n", f4(*p.Score.ExistingSubScore)); err != nil {
			return err
		}
	}
	if n := len(p.Score.UnscoredCriteria); n > 0 {
		if _, err := fmt.Fprintf(w, "%s %d criteria without a selected parameter\n", pal.warn("UNSCORED"), n); err != nil {
			return err
		}
	}
	return nil
}

func writeRanking(w io.Writer, entries []scoring.RankEntry) error {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		existing := "-"
		if e.Score != nil && e.Score.ExistingSubScore != nil {
			existing = f4(*e.Score.ExistingSubScore)
		}
		axes := "-"
		if e.Score != nil {
			axes = f4(e.Score.AxesTotal)
		}
		rows = append(rows, []string{strconv.Itoa(e.Position), e.Name, string(e.BuildingType), e.BuildingCode, axes, existing, f4(e.Total)})
	}
	return renderTable(w, []string{"Rank", "Project", "Type", "Building", "Axes", "Existing", "Total"}, rows)
}
