// Command validate checks a projection CSV export for integrity before it is fed to
// the pipeline: row shape, date ordering, count sanity, and the derived series the
// projection model computes from it. When a summary JSON (the output of cmd/project or
// a message from the sink topic) is given, it also re-runs the projection and compares.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -csv data/md_current_trends.csv \
//	  -summary out/md_current_trends.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/couchcryptid/covid-projection-etl/internal/domain"
)

// minColumns is the width needed to reach the last positional column (population).
const minColumns = 18

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	csvPath := flag.String("csv", "", "path to the projection CSV")
	header := flag.Bool("header", true, "skip the first CSV line")
	inferred := flag.Bool("inferred", false, "rows carry inferred Rt values")
	summaryPath := flag.String("summary", "", "optional summary JSON to cross-check")
	flag.Parse()

	if *csvPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*csvPath, *header, *inferred, *summaryPath); code != 0 {
		os.Exit(code)
	}
}

func run(csvPath string, header, inferred bool, summaryPath string) int {
	fmt.Println("=== Projection Data Integrity Validation ===")
	fmt.Println()

	rows, records, err := loadCSV(csvPath, header)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load CSV: %v\n", err)
		return 1
	}

	var summary *domain.ProjectionSummary
	if summaryPath != "" {
		summary, err = loadSummary(summaryPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: load summary JSON: %v\n", err)
			return 1
		}
		inferred = summary.IsInferred
	}

	phases := []*phase{
		validateSchema(records),
		validateDates(rows, records),
		validateCounts(rows),
		validateDerived(rows, inferred),
	}
	if summary != nil {
		phases = append(phases, validateSummary(rows, summary))
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Rows: %d CSV", len(rows))
	if summary != nil {
		fmt.Printf(", summary %s", summary.ID)
	}
	fmt.Println()

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Data loading ──

func loadCSV(path string, header bool) ([]domain.Row, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	rows, records, err := domain.ReadCSV(f, header)
	if err != nil {
		return nil, nil, err
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("no data rows in %s", path)
	}
	return rows, records, nil
}

// loadSummary accepts either a bare summary or the {"summary": ...} envelope of cmd/project.
func loadSummary(path string) (*domain.ProjectionSummary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var envelope struct {
		Summary *domain.ProjectionSummary `json:"summary"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, err
	}
	if envelope.Summary != nil {
		return envelope.Summary, nil
	}
	var s domain.ProjectionSummary
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// lineNum maps a data row index back to its CSV line.
func lineNum(i int) int { return i + 2 }

// ── Phase 1: Schema ──

func validateSchema(records [][]string) *phase {
	p := &phase{name: "Phase 1: Schema (positional columns)"}
	for i, rec := range records {
		if len(rec) < minColumns {
			p.errorf("line %d: %d columns, need at least %d", lineNum(i), len(rec), minColumns)
		}
	}
	return p
}

// ── Phase 2: Dates ──

func validateDates(rows []domain.Row, records [][]string) *phase {
	p := &phase{name: "Phase 2: Dates (parseable, ascending)"}
	var prev time.Time
	for i, r := range rows {
		if r.Date.IsZero() {
			raw := ""
			if len(records[i]) > domain.Schema.Date {
				raw = records[i][domain.Schema.Date]
			}
			p.errorf("line %d: unparseable date %q", lineNum(i), raw)
			continue
		}
		if !prev.IsZero() && !r.Date.After(prev) {
			p.errorf("line %d: date %s not after %s", lineNum(i), r.Date.Format(time.DateOnly), prev.Format(time.DateOnly))
		}
		prev = r.Date
	}
	return p
}

// ── Phase 3: Counts ──

func validateCounts(rows []domain.Row) *phase {
	p := &phase{name: "Phase 3: Counts (non-negative)"}
	for i, r := range rows {
		checks := []struct {
			name  string
			value int
		}{
			{"hospitalizations", r.Hospitalizations},
			{"infected", r.Infected},
			{"deaths", r.Deaths},
			{"beds", r.Beds},
		}
		for _, c := range checks {
			if c.value < 0 {
				p.errorf("line %d: %s is negative (%d)", lineNum(i), c.name, c.value)
			}
		}
		if r.RtStdev != nil && *r.RtStdev < 0 {
			p.errorf("line %d: rt_stdev is negative (%g)", lineNum(i), *r.RtStdev)
		}
	}
	if rows[0].TotalPopulation <= 0 {
		p.errorf("line %d: total population is %d", lineNum(0), rows[0].TotalPopulation)
	}
	return p
}

// ── Phase 4: Derived series ──
// Rebuilds the projection and checks the cumulative and overwhelm invariants.

func validateDerived(rows []domain.Row, inferred bool) *phase {
	p := &phase{name: "Phase 4: Derived series (projection)"}

	proj, err := domain.FromRows(rows, domain.Params{IsInferred: inferred})
	if err != nil {
		p.errorf("build projection: %v", err)
		return p
	}

	sum := 0
	for i, v := range proj.CumulativeInfected {
		sum += proj.Infected[i]
		if want := float64(sum) * 2 / 3; !floatEq(v, want) {
			p.errorf("line %d: cumulative infected %g, expected %g", lineNum(i), v, want)
		}
		if i > 0 && proj.Infected[i] >= 0 && v < proj.CumulativeInfected[i-1] {
			p.errorf("line %d: cumulative infected decreased", lineNum(i))
		}
	}
	if proj.CumulativeDead != proj.Deaths[len(proj.Deaths)-1] {
		p.errorf("cumulative dead %d, expected last deaths value %d", proj.CumulativeDead, proj.Deaths[len(proj.Deaths)-1])
	}

	if d := proj.DateOverwhelmed; d != nil {
		first, last := proj.Dates[0], proj.Dates[len(proj.Dates)-1]
		if d.Before(first) || d.After(last) {
			p.errorf("overwhelm date %s outside %s..%s", d.Format(time.DateOnly), first.Format(time.DateOnly), last.Format(time.DateOnly))
		}
		if proj.OverwhelmDegenerate {
			fmt.Println("  Note: hospitals already overwhelmed at first observation")
		}
	}

	if inferred && proj.Rt == nil {
		p.errorf("inferred projection has no Rt in its last row")
	}
	return p
}

// ── Phase 5: Summary ──
// Re-runs the projection with the summary's own parameters and compares.

func validateSummary(rows []domain.Row, s *domain.ProjectionSummary) *phase {
	p := &phase{name: "Phase 5: Summary (recomputed vs given)"}

	proj, err := domain.FromRows(rows, domain.Params{
		Intervention: s.Intervention,
		IsInferred:   s.IsInferred,
		DurationDays: s.DurationDays,
		DelayDays:    s.DelayDays,
	})
	if err != nil {
		p.errorf("build projection: %v", err)
		return p
	}
	want := domain.Summarize(s.Location, proj)

	if s.ID != want.ID {
		p.errorf("id: expected %q, got %q", want.ID, s.ID)
	} else if !strings.HasPrefix(s.ID, s.Location.StateCode+"-") {
		p.errorf("id %q doesn't start with state prefix %q-", s.ID, s.Location.StateCode)
	}
	if s.Label != want.Label {
		p.errorf("label: expected %q, got %q", want.Label, s.Label)
	}
	if !s.DayZero.Equal(want.DayZero) {
		p.errorf("day_zero: expected %s, got %s", want.DayZero.Format(time.DateOnly), s.DayZero.Format(time.DateOnly))
	}
	if s.Observations != want.Observations {
		p.errorf("observations: expected %d, got %d", want.Observations, s.Observations)
	}
	if !floatEq(s.CumulativeInfected, want.CumulativeInfected) {
		p.errorf("cumulative_infected: expected %g, got %g", want.CumulativeInfected, s.CumulativeInfected)
	}
	if s.CumulativeDead != want.CumulativeDead {
		p.errorf("cumulative_dead: expected %d, got %d", want.CumulativeDead, s.CumulativeDead)
	}
	if !ptrTimeEq(s.DateOverwhelmed, want.DateOverwhelmed) {
		p.errorf("date_overwhelmed: expected %s, got %s", ptrTime(want.DateOverwhelmed), ptrTime(s.DateOverwhelmed))
	}
	if !ptrFloatEq(s.Rt, want.Rt) {
		p.errorf("rt mismatch")
	}
	if s.AlarmLevel != want.AlarmLevel {
		p.errorf("alarm_level: expected %q, got %q", want.AlarmLevel, s.AlarmLevel)
	}
	if s.ProcessedAt.IsZero() {
		p.errorf("processed_at is zero")
	}
	return p
}

// ── Helpers ──

func floatEq(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func ptrFloatEq(a, b *float64) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return floatEq(*a, *b)
}

func ptrTimeEq(a, b *time.Time) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return a.Equal(*b)
}

func ptrTime(t *time.Time) string {
	if t == nil {
		return "<nil>"
	}
	return t.Format(time.DateOnly)
}
