package domain

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// ParseProjectionRequest decodes a RawEvent's value into a ProjectionRequest.
// Numeric cells are kept as json.Number so large counts survive intact.
func ParseProjectionRequest(raw RawEvent) (ProjectionRequest, error) {
	var req ProjectionRequest
	dec := json.NewDecoder(bytes.NewReader(raw.Value))
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		return ProjectionRequest{}, fmt.Errorf("parse projection request: %w", err)
	}
	return req, nil
}

// Summarize derives the downstream summary of a built projection.
func Summarize(loc Location, p *Projection) ProjectionSummary {
	level := ClassifyAlarmLevel(p)
	return ProjectionSummary{
		ID:                  generateID(loc, p),
		Location:            loc,
		Label:               p.Label(),
		Intervention:        p.Intervention,
		IsInferred:          p.IsInferred,
		DurationDays:        p.DurationDays,
		DelayDays:           p.DelayDays,
		DayZero:             p.DayZero,
		LastDate:            p.DateAfter(0),
		Observations:        len(p.Dates),
		TotalPopulation:     p.TotalPopulation,
		CumulativeInfected:  p.CumulativeInfectedAfter(0),
		CumulativeDead:      p.CumulativeDead,
		Rt:                  p.Rt,
		RtStdev:             p.RtStdev,
		DateOverwhelmed:     p.DateOverwhelmed,
		OverwhelmDegenerate: p.OverwhelmDegenerate,
		AlarmLevel:          level,
		AlarmColor:          level.Color(),
		Headline:            level.Headline(loc),
		Summary:             level.Summary(),
		GrowthRate:          p.GrowthRate,
		ProcessedAt:         clock.Now().UTC(),
	}
}

// SerializeSummary marshals a summary into an OutputEvent keyed by its ID.
func SerializeSummary(s ProjectionSummary) (OutputEvent, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("serialize projection summary: %w", err)
	}
	return OutputEvent{
		Key:   []byte(s.ID),
		Value: data,
		Headers: map[string]string{
			"alarm_level":  string(s.AlarmLevel),
			"processed_at": s.ProcessedAt.Format(time.RFC3339),
		},
	}, nil
}

// generateID produces a deterministic ID from the scenario's identifying fields so a
// replayed batch upserts onto the same downstream row.
func generateID(loc Location, p *Projection) string {
	input := fmt.Sprintf("%s|%s|%s|%s|%d|%d|%s",
		loc.StateCode, loc.CountyName, loc.FIPS,
		p.Intervention, p.DurationDays, p.DelayDays,
		p.DayZero.Format("2006-01-02"))
	hash := sha256.Sum256([]byte(input))
	short := hex.EncodeToString(hash[:8])
	if loc.StateCode == "" {
		return short
	}
	return loc.StateCode + "-" + short
}
