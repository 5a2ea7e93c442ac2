package environment

import (
	"math"
	"testing"

	"github.com/pthm-cable/sprout/config"
)

func testDayCycle() *DayCycle {
	return &DayCycle{DayLength: 24, Peak: 2, StartHour: 0, Points: 16}
}

func TestDayCycleIrradiance(t *testing.T) {
	d := testDayCycle()

	if got := d.Irradiance(3); got != 0 {
		t.Errorf("expected darkness at 03:00, got %f", got)
	}
	if got := d.Irradiance(12); math.Abs(got-2) > 1e-9 {
		t.Errorf("expected peak at noon, got %f", got)
	}
	if got := d.Irradiance(20); got != 0 {
		t.Errorf("expected darkness at 20:00, got %f", got)
	}
}

func TestDayCycleIntegral(t *testing.T) {
	d := testDayCycle()

	// Peak * (12h) * 2/pi over one daylight period
	want := 2 * 12 * 2 / math.Pi
	if got := d.Integral(0, 24); math.Abs(got-want) > 1e-6 {
		t.Errorf("expected full-day integral %f, got %f", want, got)
	}
	if got := d.Integral(0, 48); math.Abs(got-2*want) > 1e-6 {
		t.Errorf("expected two-day integral %f, got %f", 2*want, got)
	}
	if got := d.Integral(19, 29); got != 0 {
		t.Errorf("expected zero light overnight, got %f", got)
	}
	if got := d.Integral(5, 5); got != 0 {
		t.Errorf("expected zero for an empty interval, got %f", got)
	}
}

func TestDayCycleFromConfig(t *testing.T) {
	d := NewDayCycle(config.Cfg().Light)

	if got := d.HourAt(0); got != config.Cfg().Light.StartHour {
		t.Errorf("expected start hour %f, got %f", config.Cfg().Light.StartHour, got)
	}
	if d.Integral(0, 60) <= 0 {
		t.Error("expected daylight during the first minute at the default start hour")
	}
}
