package domain

import "time"

// Rt zone boundaries shared by the growth-rate chart and alarm classification.
const (
	rtMediumThreshold = 1.2
	rtHighThreshold   = 1.4
)

// RtPoint is one point of the growth-rate series: Rt with its uncertainty band.
type RtPoint struct {
	Date time.Time  `json:"date"`
	Rt   float64    `json:"rt"`
	Low  float64    `json:"rt_low"`
	High float64    `json:"rt_high"`
	Zone AlarmLevel `json:"zone"`
}

// Millis is the point's date as Unix milliseconds, the x unit charting clients use.
func (pt RtPoint) Millis() int64 {
	return pt.Date.UnixMilli()
}

// growthRateSeries collects the per-row Rt estimates. Rows without Rt are skipped and a
// missing standard deviation yields a zero-width band.
func growthRateSeries(rows []Row) []RtPoint {
	var out []RtPoint
	for _, r := range rows {
		if r.Rt == nil {
			continue
		}
		spread := 0.0
		if r.RtStdev != nil {
			spread = *r.RtStdev
		}
		out = append(out, RtPoint{
			Date: r.Date,
			Rt:   *r.Rt,
			Low:  *r.Rt - spread,
			High: *r.Rt + spread,
			Zone: rtZone(*r.Rt),
		})
	}
	return out
}

func rtZone(rt float64) AlarmLevel {
	switch {
	case rt < rtMediumThreshold:
		return AlarmLow
	case rt < rtHighThreshold:
		return AlarmMedium
	default:
		return AlarmHigh
	}
}
