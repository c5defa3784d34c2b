// Package suncalc computes sun event times and the low-sun context of a frame
// from the vehicle's position.
package suncalc

import (
	"fmt"
	"math"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sj14/astral/pkg/astral"

	"github.com/visorax/visorax-go/internal/errors"
	"github.com/visorax/visorax-go/internal/logger"
)

// Sun phases reported in Context
const (
	PhaseDay      = "day"
	PhaseTwilight = "twilight"
	PhaseNight    = "night"
	PhaseUnknown  = "unknown"
)

const (
	// DefaultLowSunWindow is how long after sunrise and before sunset the sun
	// is considered low on the horizon.
	DefaultLowSunWindow = 90 * time.Minute

	cacheTTL           = 24 * time.Hour
	cacheCleanup       = time.Hour
	coordinatePrecison = 100 // cache coordinates rounded to 0.01 degree
)

// SunEventTimes holds the sun event times of one day
type SunEventTimes struct {
	CivilDawn time.Time
	Sunrise   time.Time
	Sunset    time.Time
	CivilDusk time.Time
}

// Context describes the sun at the moment a frame was captured
type Context struct {
	Phase   string     `json:"phase"`
	LowSun  bool       `json:"low_sun"`
	Sunrise *time.Time `json:"sunrise,omitempty"`
	Sunset  *time.Time `json:"sunset,omitempty"`
}

// SunCalc calculates sun event times and caches them per position and date.
// It is safe for concurrent use.
type SunCalc struct {
	cache        *cache.Cache
	lowSunWindow time.Duration
	location     *time.Location
}

// NewSunCalc creates a SunCalc. Event times are reported in loc, or UTC when
// loc is nil. A non-positive window uses DefaultLowSunWindow.
func NewSunCalc(lowSunWindow time.Duration, loc *time.Location) *SunCalc {
	if lowSunWindow <= 0 {
		lowSunWindow = DefaultLowSunWindow
	}
	if loc == nil {
		loc = time.UTC
	}
	return &SunCalc{
		cache:        cache.New(cacheTTL, cacheCleanup),
		lowSunWindow: lowSunWindow,
		location:     loc,
	}
}

// ValidCoordinates reports whether lat and lon are finite and in range
func ValidCoordinates(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// GetSunEventTimes returns the sun event times at lat, lon for the calendar
// date of date, using the cache if available.
func (sc *SunCalc) GetSunEventTimes(lat, lon float64, date time.Time) (SunEventTimes, error) {
	if !ValidCoordinates(lat, lon) {
		return SunEventTimes{}, errors.Newf("invalid coordinates %v,%v", lat, lon).
			Category(errors.CategoryValidation).
			Context("latitude", lat).
			Context("longitude", lon).
			Build()
	}

	lat = roundCoordinate(lat)
	lon = roundCoordinate(lon)
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	key := fmt.Sprintf("%.2f,%.2f,%s", lat, lon, day.Format(time.DateOnly))

	if cached, found := sc.cache.Get(key); found {
		if times, ok := cached.(SunEventTimes); ok {
			return times, nil
		}
	}

	times, err := sc.calculateSunEventTimes(astral.Observer{Latitude: lat, Longitude: lon}, day)
	if err != nil {
		return SunEventTimes{}, err
	}

	sc.cache.SetDefault(key, times)
	return times, nil
}

func (sc *SunCalc) calculateSunEventTimes(observer astral.Observer, day time.Time) (SunEventTimes, error) {
	civilDawn, err := astral.Dawn(observer, day, astral.DepressionCivil)
	if err != nil {
		return SunEventTimes{}, sunError(err, "civil dawn", observer, day)
	}

	sunrise, err := astral.Sunrise(observer, day)
	if err != nil {
		return SunEventTimes{}, sunError(err, "sunrise", observer, day)
	}

	sunset, err := astral.Sunset(observer, day)
	if err != nil {
		return SunEventTimes{}, sunError(err, "sunset", observer, day)
	}

	civilDusk, err := astral.Dusk(observer, day, astral.DepressionCivil)
	if err != nil {
		return SunEventTimes{}, sunError(err, "civil dusk", observer, day)
	}

	return SunEventTimes{
		CivilDawn: civilDawn.In(sc.location),
		Sunrise:   sunrise.In(sc.location),
		Sunset:    sunset.In(sc.location),
		CivilDusk: civilDusk.In(sc.location),
	}, nil
}

// Context classifies the sun at lat, lon at time at. Positions where the sun
// does not rise or set that day, as in polar summer and winter, get
// PhaseUnknown.
func (sc *SunCalc) Context(lat, lon float64, at time.Time) (Context, error) {
	if !ValidCoordinates(lat, lon) {
		return Context{}, errors.Newf("invalid coordinates %v,%v", lat, lon).
			Category(errors.CategoryValidation).
			Build()
	}

	times, err := sc.GetSunEventTimes(lat, lon, solarDate(at, lon))
	if err != nil {
		GetLogger().Debug("sun events unavailable",
			logger.Float64("latitude", lat),
			logger.Float64("longitude", lon),
			logger.Error(err))
		return Context{Phase: PhaseUnknown}, nil
	}

	ctx := Context{Sunrise: &times.Sunrise, Sunset: &times.Sunset}
	switch {
	case !at.Before(times.Sunrise) && at.Before(times.Sunset):
		ctx.Phase = PhaseDay
		ctx.LowSun = at.Before(times.Sunrise.Add(sc.lowSunWindow)) ||
			!at.Before(times.Sunset.Add(-sc.lowSunWindow))
	case !at.Before(times.CivilDawn) && at.Before(times.CivilDusk):
		ctx.Phase = PhaseTwilight
		ctx.LowSun = true
	default:
		ctx.Phase = PhaseNight
	}
	return ctx, nil
}

// solarDate shifts at by the longitude so the calendar date follows local
// solar time rather than UTC.
func solarDate(at time.Time, lon float64) time.Time {
	offset := time.Duration(lon / 15 * float64(time.Hour))
	return at.UTC().Add(offset)
}

func roundCoordinate(v float64) float64 {
	return math.Round(v*coordinatePrecison) / coordinatePrecison
}

func sunError(err error, event string, observer astral.Observer, day time.Time) error {
	return errors.New(err).
		Category(errors.CategoryValidation).
		Context("event", event).
		Context("latitude", observer.Latitude).
		Context("longitude", observer.Longitude).
		Context("date", day.Format(time.DateOnly)).
		Build()
}
