package domain

// AlarmLevel classifies how fast cases are growing at a location.
type AlarmLevel string

const (
	AlarmUnknown AlarmLevel = "unknown"
	AlarmLow     AlarmLevel = "low"
	AlarmMedium  AlarmLevel = "medium"
	AlarmHigh    AlarmLevel = "high"
)

// ClassifyAlarmLevel maps the latest inferred Rt to an alarm level. Projections without
// an inferred Rt are AlarmUnknown.
func ClassifyAlarmLevel(p *Projection) AlarmLevel {
	if p == nil || !p.IsInferred || p.Rt == nil {
		return AlarmUnknown
	}
	return rtZone(*p.Rt)
}

// Color is the display color for the level.
func (l AlarmLevel) Color() string {
	switch l {
	case AlarmLow:
		return "#3BBCE6"
	case AlarmMedium:
		return "#FD9026"
	case AlarmHigh:
		return "#FC374D"
	default:
		return "#000000"
	}
}

// Headline is the page title for a location at this level,
// e.g. "COVID cases are shrinking in Maryland".
func (l AlarmLevel) Headline(loc Location) string {
	var prefix string
	switch l {
	case AlarmLow:
		prefix = "COVID cases are shrinking in"
	case AlarmMedium:
		prefix = "COVID cases are roughly stable in"
	case AlarmHigh:
		prefix = "COVID cases are growing exponentially in"
	default:
		prefix = "We don’t have enough data for"
	}
	return prefix + " " + loc.DisplayName()
}

// Summary is the explanatory paragraph shown under the headline.
func (l AlarmLevel) Summary() string {
	const checkBack = " Check back — projections update every 3 days with the most recent data."
	switch l {
	case AlarmLow:
		return "Assuming current interventions remain in place, we expect the total cases in your area to decrease. " +
			"14 days of decreasing cases is the first step to reopening." + checkBack
	case AlarmMedium:
		return "Assuming current interventions remain in place, cases in your area are stable, " +
			"and may even begin to decrease soon." + checkBack
	case AlarmHigh:
		return "Our projections show that cases in your area are increasing exponentially. " +
			"Stay home to help prevent an outbreak." + checkBack
	default:
		return "Unfortunately, we don’t have enough data for your area to make a prediction, " +
			"or your area has not reported cases yet." + checkBack
	}
}
