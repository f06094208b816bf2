// Command project builds a projection from a CSV export of model rows and prints its
// summary as JSON. It runs the same domain code as the pipeline, so its output matches
// what the service publishes for the same rows.
//
// Usage:
//
//	go run ./cmd/project \
//	  -csv data/md_current_trends.csv \
//	  -state MD -state-name Maryland \
//	  -intervention "Current Trends" -inferred \
//	  -column hospitalizations -days 30 \
//	  -db projections.db
//
// With -list-state, it instead prints every summary stored for a state:
//
//	go run ./cmd/project -db projections.db -list-state MD
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/couchcryptid/covid-projection-etl/internal/adapter/sqlite"
	"github.com/couchcryptid/covid-projection-etl/internal/domain"
)

type options struct {
	csvPath      string
	header       bool
	intervention string
	inferred     bool
	durationDays int
	delayDays    int
	location     domain.Location
	column       string
	days         int
	dbPath       string
	listState    string
}

// output is what the command prints: the summary plus an optional chart dataset.
type output struct {
	Summary domain.ProjectionSummary `json:"summary"`
	Dataset *domain.Dataset          `json:"dataset,omitempty"`
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	var opts options
	flag.StringVar(&opts.csvPath, "csv", "", "path to the projection CSV")
	flag.BoolVar(&opts.header, "header", true, "skip the first CSV line")
	flag.StringVar(&opts.intervention, "intervention", "Current Trends", "intervention label")
	flag.BoolVar(&opts.inferred, "inferred", false, "rows carry inferred Rt values")
	flag.IntVar(&opts.durationDays, "duration", 0, "intervention duration in days (0 = permanent)")
	flag.IntVar(&opts.delayDays, "delay", 0, "days until the intervention starts")
	flag.StringVar(&opts.location.StateCode, "state", "", "two-letter state code")
	flag.StringVar(&opts.location.StateName, "state-name", "", "state display name")
	flag.StringVar(&opts.location.CountyName, "county", "", "county name for county-level rows")
	flag.StringVar(&opts.location.FIPS, "fips", "", "FIPS code")
	flag.StringVar(&opts.column, "column", "", "also print this series as a chart dataset")
	flag.IntVar(&opts.days, "days", 0, "days past today covered by -column")
	flag.StringVar(&opts.dbPath, "db", "", "optional SQLite database to store the summary")
	flag.StringVar(&opts.listState, "list-state", "", "print summaries stored in -db for this state and exit")
	flag.Parse()

	if opts.listState != "" {
		if opts.dbPath == "" {
			flag.Usage()
			return fmt.Errorf("-list-state requires -db")
		}
		return list(os.Stdout, opts.dbPath, opts.listState)
	}

	if opts.csvPath == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -csv")
	}

	out, err := project(opts)
	if err != nil {
		return err
	}

	if opts.dbPath != "" {
		if err := store(opts.dbPath, out.Summary); err != nil {
			return err
		}
	}

	return writeJSON(os.Stdout, out)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func project(opts options) (output, error) {
	f, err := os.Open(opts.csvPath)
	if err != nil {
		return output{}, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	rows, _, err := domain.ReadCSV(f, opts.header)
	if err != nil {
		return output{}, err
	}

	p, err := domain.FromRows(rows, domain.Params{
		Intervention: opts.intervention,
		IsInferred:   opts.inferred,
		DurationDays: opts.durationDays,
		DelayDays:    opts.delayDays,
	})
	if err != nil {
		return output{}, fmt.Errorf("%s: %w", opts.csvPath, err)
	}
	if p.OverwhelmDegenerate {
		log.Printf("warning: hospitals already overwhelmed at first observation; overwhelm date is approximate")
	}

	out := output{Summary: domain.Summarize(opts.location, p)}
	if opts.column != "" {
		ds, err := p.Dataset(opts.column, opts.days, "")
		if err != nil {
			return output{}, err
		}
		out.Dataset = &ds
	}
	log.Printf("%s: %d rows, alarm level %s", opts.csvPath, len(rows), out.Summary.AlarmLevel)
	return out, nil
}

func store(path string, summary domain.ProjectionSummary) error {
	ctx := context.Background()
	s, err := sqlite.Open(ctx, path)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.Save(ctx, summary); err != nil {
		return fmt.Errorf("store summary: %w", err)
	}
	log.Printf("stored %s in %s (run %s)", summary.ID, path, s.RunID())
	return nil
}

func list(w io.Writer, path, stateCode string) error {
	ctx := context.Background()
	s, err := sqlite.Open(ctx, path)
	if err != nil {
		return err
	}
	defer s.Close()

	summaries, err := s.ListByState(ctx, strings.ToUpper(stateCode))
	if err != nil {
		return err
	}
	log.Printf("%s: %d stored projections", stateCode, len(summaries))
	return writeJSON(w, summaries)
}
