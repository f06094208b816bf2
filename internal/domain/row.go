package domain

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Schema is the positional layout of a projection row. Offsets are zero-based.
var Schema = RowSchema{
	Date:             1,
	Hospitalizations: 9,
	Infected:         10,
	Deaths:           11,
	Beds:             12,
	Rt:               14,
	RtStdev:          15,
	TotalPopulation:  17,
}

// RowSchema maps each named field to its column offset.
type RowSchema struct {
	Date             int
	Hospitalizations int
	Infected         int
	Deaths           int
	Beds             int
	Rt               int
	RtStdev          int
	TotalPopulation  int
}

// Cell is a raw row value: a string, a JSON number, or nil.
type Cell = any

// Row is the named-field form of a positional row.
type Row struct {
	Date             time.Time
	Hospitalizations int
	Infected         int
	Deaths           int
	Beds             int
	TotalPopulation  int
	Rt               *float64
	RtStdev          *float64
}

// DecodeRow reads a positional row using s. Missing columns decode as zero values.
func (s RowSchema) DecodeRow(cells []Cell) Row {
	at := func(i int) Cell {
		if i < 0 || i >= len(cells) {
			return nil
		}
		return cells[i]
	}
	return Row{
		Date:             parseDate(at(s.Date)),
		Hospitalizations: parseCount(at(s.Hospitalizations)),
		Infected:         parseCount(at(s.Infected)),
		Deaths:           parseCount(at(s.Deaths)),
		Beds:             parseCount(at(s.Beds)),
		TotalPopulation:  parseCount(at(s.TotalPopulation)),
		Rt:               parseOptionalFloat(at(s.Rt)),
		RtStdev:          parseOptionalFloat(at(s.RtStdev)),
	}
}

// DecodeStringRow is DecodeRow for rows read from CSV.
func (s RowSchema) DecodeStringRow(record []string) Row {
	cells := make([]Cell, len(record))
	for i, v := range record {
		cells[i] = v
	}
	return s.DecodeRow(cells)
}

// parseCount parses a count cell, returning 0 for anything that is not a number.
func parseCount(v Cell) int {
	switch n := v.(type) {
	case nil:
		return 0
	case string:
		return parseLeadingInt(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			if i < math.MinInt || i > math.MaxInt {
				return 0
			}
			return int(i)
		}
		f, err := n.Float64()
		if err != nil {
			return 0
		}
		return floatToCount(f)
	case float64:
		return floatToCount(n)
	case int:
		return n
	case int64:
		return int(n)
	default:
		return 0
	}
}

// floatToCount truncates toward zero. NaN, infinities and values outside the int range
// count as 0.
func floatToCount(f float64) int {
	if math.IsNaN(f) || f < math.MinInt || f >= math.MaxInt {
		return 0
	}
	return int(f)
}

// parseLeadingInt strips thousands separators and keeps the leading integer,
// e.g. "1,234" -> 1234, "12.7" -> 12, "abc" -> 0.
func parseLeadingInt(s string) int {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0
	}
	v, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return v
}

// parseOptionalFloat returns nil for empty or non-numeric cells.
func parseOptionalFloat(v Cell) *float64 {
	var f float64
	switch n := v.(type) {
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(n, ",", ""))
		if s == "" {
			return nil
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		f = parsed
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return nil
		}
		f = parsed
	case float64:
		f = n
	case int:
		f = float64(n)
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"01/02/2006",
	"1/2/2006",
}

// parseDate parses a calendar date in UTC. Unparseable values yield the zero time.
func parseDate(v Cell) time.Time {
	s, ok := v.(string)
	if !ok {
		return time.Time{}
	}
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
