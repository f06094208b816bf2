package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCSV = `,date,a,b,c,d,e,f,g,hospitalizations,infected,deaths,beds,h,rt,rt_stdev,i,population
0,2020-04-01,,,,,,,,80,"1,000",3,100,,1.61,0.5,,"6,045,680"
1,2020-04-05,,,,,,,,120,"2,000",9,100,,1.25,0.2,,1
`

func TestReadCSV(t *testing.T) {
	rows, records, err := ReadCSV(strings.NewReader(testCSV), true)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Len(t, records, 2)

	assert.Equal(t, time.Date(2020, time.April, 1, 0, 0, 0, 0, time.UTC), rows[0].Date)
	assert.Equal(t, 80, rows[0].Hospitalizations)
	assert.Equal(t, 1000, rows[0].Infected)
	assert.Equal(t, 6045680, rows[0].TotalPopulation)
	assert.Equal(t, 2000, rows[1].Infected)

	p, err := FromRows(rows, Params{Intervention: "Current Trends", IsInferred: true})
	require.NoError(t, err)
	assert.InDelta(t, 2000.0, p.CumulativeInfected[1], 1e-9)
	require.NotNil(t, p.DateOverwhelmed)
	assert.Equal(t, time.Date(2020, time.April, 3, 0, 0, 0, 0, time.UTC), *p.DateOverwhelmed)
}

func TestReadCSV_WithoutHeader(t *testing.T) {
	rows, _, err := ReadCSV(strings.NewReader("0,2020-04-01\n1,2020-04-05,x\n"), false)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestReadCSV_Malformed(t *testing.T) {
	_, _, err := ReadCSV(strings.NewReader("0,\"unterminated\n"), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read csv")
}
