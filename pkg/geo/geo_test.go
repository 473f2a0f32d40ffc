package geo

import (
	"math"
	"testing"
)

func TestHaversineKm_SamePoint(t *testing.T) {
	loc := Location{Lat: 28.7041, Lng: 77.1025}
	got := HaversineKm(loc, loc)
	if got != 0 {
		t.Errorf("HaversineKm(same point) = %v, want 0", got)
	}
}

func TestHaversineKm_KnownDistance(t *testing.T) {
	connaught := Location{Lat: 28.6315, Lng: 77.2167}
	igi := Location{Lat: 28.5562, Lng: 77.0889}
	got := HaversineKm(connaught, igi)
	wantMin, wantMax := 14.0, 20.0
	if got < wantMin || got > wantMax {
		t.Errorf("HaversineKm(Connaught→IGI) = %.2f km, want between %.1f and %.1f", got, wantMin, wantMax)
	}
}

func TestHaversineM(t *testing.T) {
	a := Location{Lat: 0, Lng: 0}
	b := Location{Lat: 0.001, Lng: 0}
	km := HaversineKm(a, b)
	m := HaversineM(a, b)
	if math.Abs(m-km*1000) > 0.01 {
		t.Errorf("HaversineM = %v, want HaversineKm*1000 = %v", m, km*1000)
	}
}

func TestValidCoordinate(t *testing.T) {
	cases := []struct {
		lat, lng float64
		want     bool
	}{
		{0, 0, true},
		{90, 180, true},
		{-90, -180, true},
		{91, 0, false},
		{0, 181, false},
		{math.NaN(), 0, false},
	}
	for _, c := range cases {
		if got := ValidCoordinate(c.lat, c.lng); got != c.want {
			t.Errorf("ValidCoordinate(%v, %v) = %v, want %v", c.lat, c.lng, got, c.want)
		}
	}
}
