package suncalc

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Chennai, where the first seeded vehicle operates
const (
	chennaiLat = 13.0827
	chennaiLon = 80.2707
)

func TestGetSunEventTimes(t *testing.T) {
	t.Parallel()

	sc := NewSunCalc(0, nil)
	date := time.Date(2025, 10, 10, 0, 0, 0, 0, time.UTC)

	times, err := sc.GetSunEventTimes(chennaiLat, chennaiLon, date)
	require.NoError(t, err)

	assert.True(t, times.CivilDawn.Before(times.Sunrise))
	assert.True(t, times.Sunrise.Before(times.Sunset))
	assert.True(t, times.Sunset.Before(times.CivilDusk))

	// sunrise in Chennai is just before 06:00 IST, 00:30 UTC
	assert.Equal(t, 0, times.Sunrise.UTC().Hour())
	// sunset around 17:55 IST, 12:25 UTC
	assert.Equal(t, 12, times.Sunset.UTC().Hour())
	assert.Equal(t, time.UTC, times.Sunrise.Location())
}

func TestGetSunEventTimes_Cached(t *testing.T) {
	t.Parallel()

	sc := NewSunCalc(0, nil)
	date := time.Date(2024, 6, 21, 0, 0, 0, 0, time.UTC)

	first, err := sc.GetSunEventTimes(60.1699, 24.9384, date)
	require.NoError(t, err)
	assert.Equal(t, 1, sc.cache.ItemCount())

	// nearby positions and other times of the same day share an entry
	second, err := sc.GetSunEventTimes(60.1701, 24.9381, date.Add(15*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, sc.cache.ItemCount())
	assert.True(t, first.Sunrise.Equal(second.Sunrise))

	_, err = sc.GetSunEventTimes(60.1699, 24.9384, date.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, 2, sc.cache.ItemCount())
}

func TestGetSunEventTimes_Location(t *testing.T) {
	t.Parallel()

	ist := time.FixedZone("IST", 5*3600+1800)
	sc := NewSunCalc(0, ist)

	times, err := sc.GetSunEventTimes(chennaiLat, chennaiLon, time.Date(2025, 10, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, ist, times.Sunrise.Location())
	minutes := times.Sunrise.Hour()*60 + times.Sunrise.Minute()
	assert.InDelta(t, 6*60, minutes, 30)
}

func TestGetSunEventTimes_InvalidCoordinates(t *testing.T) {
	t.Parallel()

	sc := NewSunCalc(0, nil)
	for _, c := range [][2]float64{{91, 0}, {0, 181}, {-91, -181}, {math.NaN(), 0}, {0, math.Inf(1)}} {
		_, err := sc.GetSunEventTimes(c[0], c[1], time.Now())
		require.Error(t, err, "coordinates %v", c)
	}
}

func TestContext(t *testing.T) {
	t.Parallel()

	sc := NewSunCalc(90*time.Minute, nil)

	tests := []struct {
		name   string
		at     time.Time
		phase  string
		lowSun bool
	}{
		{"midday", time.Date(2025, 10, 10, 6, 30, 0, 0, time.UTC), PhaseDay, false},
		{"early morning sun", time.Date(2025, 10, 10, 1, 15, 0, 0, time.UTC), PhaseDay, true},
		{"evening sun", time.Date(2025, 10, 10, 11, 45, 0, 0, time.UTC), PhaseDay, true},
		{"night", time.Date(2025, 10, 10, 18, 0, 0, 0, time.UTC), PhaseNight, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx, err := sc.Context(chennaiLat, chennaiLon, tt.at)
			require.NoError(t, err)
			assert.Equal(t, tt.phase, ctx.Phase)
			assert.Equal(t, tt.lowSun, ctx.LowSun)
			require.NotNil(t, ctx.Sunrise)
			require.NotNil(t, ctx.Sunset)
		})
	}
}

func TestContext_PolarDay(t *testing.T) {
	t.Parallel()

	// Longyearbyen at midsummer, the sun never sets
	sc := NewSunCalc(0, nil)
	ctx, err := sc.Context(78.2232, 15.6267, time.Date(2025, 6, 21, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Contains(t, []string{PhaseUnknown, PhaseDay, PhaseTwilight, PhaseNight}, ctx.Phase)
}

func TestContext_InvalidCoordinates(t *testing.T) {
	t.Parallel()

	_, err := NewSunCalc(0, nil).Context(100, 0, time.Now())
	require.Error(t, err)
}

func TestValidCoordinates(t *testing.T) {
	t.Parallel()

	assert.True(t, ValidCoordinates(0, 0))
	assert.True(t, ValidCoordinates(-90, 180))
	assert.False(t, ValidCoordinates(90.01, 0))
	assert.False(t, ValidCoordinates(0, -180.5))
	assert.False(t, ValidCoordinates(math.NaN(), 10))
}

func TestSolarDate(t *testing.T) {
	t.Parallel()

	// 20:00 UTC is already the next morning in Chennai solar time
	at := time.Date(2025, 10, 10, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, 11, solarDate(at, chennaiLon).Day())
	// and still the same afternoon in Los Angeles
	assert.Equal(t, 10, solarDate(at, -118.24).Day())
}
