package domain

import (
	"errors"
	"fmt"
	"math"
	"time"
)

const (
	// ObservationIntervalDays is the spacing between upstream observations.
	ObservationIntervalDays = 4

	// infectedReportingFactor corrects cumulative infections for under-reporting.
	infectedReportingFactor = 2.0 / 3.0

	day = 24 * time.Hour
)

// Column names accepted by Column, ColumnAt and Dataset.
const (
	ColumnHospitalizations   = "hospitalizations"
	ColumnBeds               = "beds"
	ColumnDeaths             = "deaths"
	ColumnInfected           = "infected"
	ColumnCumulativeInfected = "cumulativeInfected"
	ColumnCumulativeDeaths   = "cumulativeDeaths"
)

var (
	// ErrNoRows is returned when a projection is built from an empty batch.
	ErrNoRows = errors.New("projection requires at least one row")
	// ErrUnknownColumn is returned for a column name that is not a projection series.
	ErrUnknownColumn = errors.New("unknown column")
	// ErrColumnIndex is returned when a day offset falls past the end of the series.
	ErrColumnIndex = errors.New("day offset outside series")
)

// Params are the scenario parameters of a projection. Zero DurationDays means the
// intervention is permanent; zero DelayDays means it starts immediately.
type Params struct {
	Intervention string
	IsInferred   bool
	DurationDays int
	DelayDays    int
}

// Projection is one intervention scenario for one location over time.
// It is fully populated by New and never mutated afterwards.
type Projection struct {
	Intervention string
	IsInferred   bool
	DurationDays int
	DelayDays    int

	Dates            []time.Time
	DayZero          time.Time
	Hospitalizations []int
	Beds             []int
	Deaths           []int
	Infected         []int

	CumulativeInfected []float64
	CumulativeDeaths   []int
	CumulativeDead     int
	TotalPopulation    int

	Rt      *float64
	RtStdev *float64

	DateOverwhelmed     *time.Time
	OverwhelmDegenerate bool

	GrowthRate []RtPoint

	// Captured at construction; accessors never consult the clock.
	daysSinceDayZero int
}

// New decodes positional rows with Schema and builds a Projection.
func New(rows [][]Cell, params Params) (*Projection, error) {
	decoded := make([]Row, len(rows))
	for i, r := range rows {
		decoded[i] = Schema.DecodeRow(r)
	}
	return FromRows(decoded, params)
}

// FromRows builds a Projection from decoded rows.
func FromRows(rows []Row, params Params) (*Projection, error) {
	if len(rows) == 0 {
		return nil, ErrNoRows
	}

	n := len(rows)
	p := &Projection{
		Intervention:     params.Intervention,
		IsInferred:       params.IsInferred,
		DurationDays:     params.DurationDays,
		DelayDays:        params.DelayDays,
		Dates:            make([]time.Time, n),
		Hospitalizations: make([]int, n),
		Beds:             make([]int, n),
		Deaths:           make([]int, n),
		Infected:         make([]int, n),
		TotalPopulation:  rows[0].TotalPopulation,
	}
	for i, r := range rows {
		p.Dates[i] = r.Date
		p.Hospitalizations[i] = r.Hospitalizations
		p.Beds[i] = r.Beds
		p.Deaths[i] = r.Deaths
		p.Infected[i] = r.Infected
	}
	p.DayZero = p.Dates[0]
	p.daysSinceDayZero = int(math.Floor(float64(clock.Now().Sub(p.DayZero)) / float64(day)))

	if p.IsInferred {
		last := rows[n-1]
		p.Rt = last.Rt
		p.RtStdev = last.RtStdev
		p.GrowthRate = growthRateSeries(rows)
	}

	p.CumulativeInfected = cumulativeInfected(p.Infected)
	// Deaths arrive already cumulative.
	p.CumulativeDeaths = p.Deaths
	p.CumulativeDead = p.CumulativeDeaths[n-1]

	p.DateOverwhelmed, p.OverwhelmDegenerate = estimateOverwhelmed(p.Dates, p.Hospitalizations, p.Beds)
	return p, nil
}

func cumulativeInfected(infected []int) []float64 {
	out := make([]float64, len(infected))
	soFar := 0
	for i, v := range infected {
		soFar += v
		out[i] = float64(soFar) * infectedReportingFactor
	}
	return out
}

// estimateOverwhelmed interpolates the date hospitalizations first exceed beds.
// It returns nil when they never do. The bool reports that the two segments were
// parallel, in which case the date of the first observation of the pair is used.
func estimateOverwhelmed(dates []time.Time, hospitalizations, beds []int) (*time.Time, bool) {
	idx := -1
	for i := range dates {
		if hospitalizations[i] > beds[i] {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, false
	}

	start := max(0, idx-1)
	end := idx
	bedsStart := Point{X: 0, Y: float64(beds[start])}
	bedsEnd := Point{X: 1, Y: float64(beds[end])}
	hospStart := Point{X: 0, Y: float64(hospitalizations[start])}
	hospEnd := Point{X: 1, Y: float64(hospitalizations[end])}

	crossing, err := Intersect(bedsStart, bedsEnd, hospStart, hospEnd)
	if err != nil {
		d := dates[start]
		return &d, true
	}

	dayDelta := int(math.Floor(ObservationIntervalDays * crossing.X))
	d := dates[start].Add(time.Duration(dayDelta) * day)
	return &d, false
}

// DurationLabelMonths renders the intervention duration in months, or "" when permanent.
func (p *Projection) DurationLabelMonths() string {
	if p.DurationDays == 0 {
		return ""
	}
	months := roundHalfUp(float64(p.DurationDays) / 30)
	return fmt.Sprintf("%d Month%s", months, plural(months))
}

// DelayLabelWeeks renders the start delay. The unit reads "Month" although the count
// is in weeks; downstream copy depends on this wording.
func (p *Projection) DelayLabelWeeks() string {
	if p.DelayDays == 0 {
		return "Starting Today"
	}
	weeks := roundHalfUp(float64(p.DelayDays) / 7)
	return fmt.Sprintf("Starting In %d Month%s", weeks, plural(weeks))
}

// Label is the human-readable scenario name, e.g. "2 Months of Stay Home".
func (p *Projection) Label() string {
	label := ""
	if p.DurationDays != 0 {
		label += p.DurationLabelMonths() + " of "
	}
	label += p.Intervention
	if p.DelayDays != 0 {
		label += ", " + p.DelayLabelWeeks()
	}
	return label
}

// LabelWithR0 is the label used for chart datasets.
func (p *Projection) LabelWithR0() string {
	return p.Label()
}

// DaysSinceDayZero is the number of whole days between the first observation and the
// time the projection was built.
func (p *Projection) DaysSinceDayZero() int {
	return p.daysSinceDayZero
}

// InterventionEnd is the date a time-limited intervention ends, counted from today.
func (p *Projection) InterventionEnd() time.Time {
	return p.DayZero.Add(time.Duration(p.DaysSinceDayZero()+p.DurationDays) * day)
}

// CumulativeInfectedAfter returns the final cumulative infections. The series is not
// sliced by days.
func (p *Projection) CumulativeInfectedAfter(_ int) float64 {
	return p.CumulativeInfected[len(p.CumulativeInfected)-1]
}

// CumulativeDeadAfter returns the final cumulative deaths.
func (p *Projection) CumulativeDeadAfter(_ int) int {
	return p.CumulativeDeaths[len(p.CumulativeDeaths)-1]
}

// DateAfter returns the last observation date.
func (p *Projection) DateAfter(_ int) time.Time {
	return p.Dates[len(p.Dates)-1]
}

// ColumnPoint is one (date, value) pair of a series.
type ColumnPoint struct {
	X time.Time `json:"x"`
	Y float64   `json:"y"`
}

// Dataset is a labeled series ready for charting.
type Dataset struct {
	Label string        `json:"label"`
	Data  []ColumnPoint `json:"data"`
}

// Column returns the first ceil(days/4)+1 points of the named series.
func (p *Projection) Column(name string, days int) ([]ColumnPoint, error) {
	values, err := p.series(name)
	if err != nil {
		return nil, err
	}
	// Negative ends clamp to an empty slice rather than trimming from the tail.
	end := min(max(dayIndex(days)+1, 0), len(p.Dates))
	points := make([]ColumnPoint, end)
	for i := range end {
		points[i] = ColumnPoint{X: p.Dates[i], Y: values[i]}
	}
	return points, nil
}

// ColumnAt returns the value of the named series at index ceil(days/4).
func (p *Projection) ColumnAt(name string, days int) (float64, error) {
	values, err := p.series(name)
	if err != nil {
		return 0, err
	}
	idx := dayIndex(days)
	if idx < 0 || idx >= len(values) {
		return 0, fmt.Errorf("%w: day %d", ErrColumnIndex, days)
	}
	return values[idx], nil
}

// Dataset packages the named series for charting, covering duration days past today.
// An empty label falls back to LabelWithR0.
func (p *Projection) Dataset(name string, duration int, label string) (Dataset, error) {
	if label == "" {
		label = p.LabelWithR0()
	}
	data, err := p.Column(name, duration+p.DaysSinceDayZero())
	if err != nil {
		return Dataset{}, err
	}
	return Dataset{Label: label, Data: data}, nil
}

func (p *Projection) series(name string) ([]float64, error) {
	switch name {
	case ColumnHospitalizations:
		return toFloats(p.Hospitalizations), nil
	case ColumnBeds:
		return toFloats(p.Beds), nil
	case ColumnDeaths:
		return toFloats(p.Deaths), nil
	case ColumnInfected:
		return toFloats(p.Infected), nil
	case ColumnCumulativeDeaths:
		return toFloats(p.CumulativeDeaths), nil
	case ColumnCumulativeInfected:
		return p.CumulativeInfected, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
	}
}

func dayIndex(days int) int {
	return int(math.Ceil(float64(days) / ObservationIntervalDays))
}

func toFloats(in []int) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}

func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}

func plural(n int) string {
	if n > 1 {
		return "s"
	}
	return ""
}
