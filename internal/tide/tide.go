// Package tide models tide heights with an equilibrium-tide approximation
// driven by lunar and solar ephemerides. It is not a harmonic model fitted
// to gauge data; it captures the semidiurnal and spring/neap structure well
// enough to rank scenes by tide stage, which is all the filmstrip pipeline
// needs from it.
package tide

import (
	"math"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
	"github.com/soniakeys/meeus/v3/moonposition"
	"github.com/soniakeys/meeus/v3/nutation"
	"github.com/soniakeys/meeus/v3/solar"
	"github.com/soniakeys/unit"
)

// Equilibrium tidal amplitudes in meters at mean body distance
const (
	lunarAmplitude = 0.358
	solarAmplitude = 0.165
)

// Mean Earth-Moon distance in km, for the (mean/actual)^3 distance factor
const meanLunarDistanceKm = 385000.56

// Model computes tide heights for a fixed observer location
type Model struct {
	Lat float64 // degrees north
	Lon float64 // degrees east
}

// New creates a tide model for the given lon/lat location
func New(lat, lon float64) *Model {
	return &Model{Lat: lat, Lon: lon}
}

// Height returns the modeled tide height in meters relative to mean sea
// level at time t.
func (m *Model) Height(t time.Time) float64 {
	jd := julian.TimeToJD(t.UTC())

	// Moon: ecliptic position and true distance
	moonLon, moonLat, moonDistKm := moonposition.Position(jd)
	ε := nutation.MeanObliquity(jd)
	moonRA, moonDec := eclToEq(moonLon, moonLat, ε)

	// Sun: apparent equatorial position
	sunRA, sunDec := solar.ApparentEquatorial(jd)

	gst := greenwichSiderealTime(jd)
	latRad := m.Lat * math.Pi / 180
	lonRad := m.Lon * math.Pi / 180

	moonZen := cosZenith(latRad, lonRad, gst, moonRA.Rad(), moonDec.Rad())
	sunZen := cosZenith(latRad, lonRad, gst, sunRA.Rad(), sunDec.Rad())

	// Second-degree zonal tide: amplitude * (cos^2 z - 1/3), lunar term
	// scaled by the cube of the mean-to-true distance ratio.
	distFactor := math.Pow(meanLunarDistanceKm/moonDistKm, 3)
	return lunarAmplitude*distFactor*(moonZen*moonZen-1.0/3.0) +
		solarAmplitude*(sunZen*sunZen-1.0/3.0)
}

// Range samples the model over [start,end) at the given interval and
// returns the observed min and max heights.
func (m *Model) Range(start, end time.Time, interval time.Duration) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for t := start; t.Before(end); t = t.Add(interval) {
		h := m.Height(t)
		lo = math.Min(lo, h)
		hi = math.Max(hi, h)
	}
	return lo, hi
}

// eclToEq converts ecliptic to equatorial coordinates for obliquity ε
func eclToEq(λ, β, ε unit.Angle) (unit.RA, unit.Angle) {
	sλ, cλ := λ.Sincos()
	sβ, cβ := β.Sincos()
	sε, cε := ε.Sincos()
	ra := math.Atan2(sλ*cε-(sβ/cβ)*sε, cλ)
	dec := math.Asin(sβ*cε + cβ*sε*sλ)
	return unit.RAFromRad(ra), unit.Angle(dec)
}

// greenwichSiderealTime returns GMST in radians for Julian day jd
func greenwichSiderealTime(jd float64) float64 {
	T := (jd - 2451545.0) / 36525.0
	gstDeg := 280.46061837 + 360.98564736629*(jd-2451545.0) +
		0.000387933*T*T - T*T*T/38710000.0
	gstDeg = math.Mod(gstDeg, 360)
	if gstDeg < 0 {
		gstDeg += 360
	}
	return gstDeg * math.Pi / 180
}

// cosZenith returns cos of the body's zenith angle at the observer
func cosZenith(latRad, lonRad, gst, ra, dec float64) float64 {
	// Local hour angle: local sidereal time minus right ascension
	ha := gst + lonRad - ra
	return math.Sin(latRad)*math.Sin(dec) + math.Cos(latRad)*math.Cos(dec)*math.Cos(ha)
}
