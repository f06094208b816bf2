package domain

import (
	"context"
	"time"
)

// RawEvent represents an unprocessed message from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// Location identifies the state or county a projection covers.
type Location struct {
	StateCode  string `json:"state_code"`
	StateName  string `json:"state_name,omitempty"`
	CountyName string `json:"county_name,omitempty"`
	FIPS       string `json:"fips,omitempty"`
}

// IsCounty reports whether the location is a county rather than a whole state.
func (l Location) IsCounty() bool {
	return l.CountyName != ""
}

// DisplayName renders "County, State" for counties and the state name otherwise.
func (l Location) DisplayName() string {
	state := l.StateName
	if state == "" {
		state = l.StateCode
	}
	if l.IsCounty() {
		return l.CountyName + ", " + state
	}
	return state
}

// ProjectionRequest is the message published by the collector: one scenario's rows for
// one location.
type ProjectionRequest struct {
	Location     Location `json:"location"`
	Intervention string   `json:"intervention"`
	IsInferred   bool     `json:"is_inferred"`
	DurationDays int      `json:"duration_days,omitempty"`
	DelayDays    int      `json:"delay_days,omitempty"`
	Rows         [][]Cell `json:"rows"`
}

// Params returns the scenario parameters of the request.
func (r ProjectionRequest) Params() Params {
	return Params{
		Intervention: r.Intervention,
		IsInferred:   r.IsInferred,
		DurationDays: r.DurationDays,
		DelayDays:    r.DelayDays,
	}
}

// ProjectionSummary is the derived view of a projection published downstream.
type ProjectionSummary struct {
	ID                  string     `json:"id"`
	Location            Location   `json:"location"`
	Label               string     `json:"label"`
	Intervention        string     `json:"intervention"`
	IsInferred          bool       `json:"is_inferred"`
	DurationDays        int        `json:"duration_days,omitempty"`
	DelayDays           int        `json:"delay_days,omitempty"`
	DayZero             time.Time  `json:"day_zero"`
	LastDate            time.Time  `json:"last_date"`
	Observations        int        `json:"observations"`
	TotalPopulation     int        `json:"total_population"`
	CumulativeInfected  float64    `json:"cumulative_infected"`
	CumulativeDead      int        `json:"cumulative_dead"`
	Rt                  *float64   `json:"rt,omitempty"`
	RtStdev             *float64   `json:"rt_stdev,omitempty"`
	DateOverwhelmed     *time.Time `json:"date_overwhelmed,omitempty"`
	OverwhelmDegenerate bool       `json:"overwhelm_degenerate,omitempty"`
	AlarmLevel          AlarmLevel `json:"alarm_level"`
	AlarmColor          string     `json:"alarm_color"`
	Headline            string     `json:"headline"`
	Summary             string     `json:"summary"`
	GrowthRate          []RtPoint  `json:"growth_rate,omitempty"`
	ProcessedAt         time.Time  `json:"processed_at"`
}

// OutputEvent is the serialized form destined for the sink.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}
