package reconciliation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCalculator_AnchorFor(t *testing.T) {
	calc := NewCalculator(time.UTC)
	monday := date(2024, time.June, 10)

	tests := []struct {
		name      string
		reference time.Time
		want      time.Time
	}{
		{"monday midnight", monday, monday},
		{"monday late", monday.Add(23*time.Hour + 59*time.Minute), monday},
		{"wednesday", date(2024, time.June, 12).Add(9 * time.Hour), monday},
		{"saturday", date(2024, time.June, 15).Add(14 * time.Hour), monday},
		{"sunday belongs to previous monday", date(2024, time.June, 16).Add(20 * time.Hour), monday},
		{"next monday starts a new week", date(2024, time.June, 17), date(2024, time.June, 17)},
		{"across a month boundary", date(2024, time.July, 2), date(2024, time.July, 1)},
		{"across a year boundary", date(2025, time.January, 1), date(2024, time.December, 30)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calc.AnchorFor(tt.reference)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
			assert.Equal(t, time.Monday, got.Weekday())
		})
	}
}

func TestCalculator_SameDaySameCycle(t *testing.T) {
	calc := NewCalculator(time.UTC)
	morning := time.Date(2024, time.June, 13, 0, 0, 1, 0, time.UTC)
	night := time.Date(2024, time.June, 13, 23, 59, 59, 0, time.UTC)
	assert.Equal(t, calc.CycleFor(morning), calc.CycleFor(night))
}

func TestCalculator_Windows(t *testing.T) {
	calc := NewCalculator(time.UTC)
	cycle := calc.CycleFor(date(2024, time.June, 12))

	assert.True(t, date(2024, time.June, 10).Equal(cycle.Anchor))
	assert.True(t, date(2024, time.June, 8).Equal(cycle.Intake.Start))
	assert.True(t, date(2024, time.June, 15).Equal(cycle.Intake.End))
	assert.True(t, date(2024, time.June, 15).Equal(cycle.Reporting.Start))
	assert.True(t, date(2024, time.June, 17).Equal(cycle.Reporting.End))

	t.Run("intake window is half open", func(t *testing.T) {
		assert.True(t, cycle.Intake.Contains(date(2024, time.June, 8)))
		assert.True(t, cycle.Intake.Contains(date(2024, time.June, 14).Add(23*time.Hour)))
		assert.False(t, cycle.Intake.Contains(date(2024, time.June, 15)))
		assert.False(t, cycle.Intake.Contains(date(2024, time.June, 8).Add(-time.Nanosecond)))
	})

	t.Run("reporting window follows intake", func(t *testing.T) {
		assert.True(t, cycle.Reporting.Contains(date(2024, time.June, 16).Add(12*time.Hour)))
		assert.False(t, cycle.Reporting.Contains(date(2024, time.June, 17)))
	})
}

func TestCalculator_TimeZone(t *testing.T) {
	loc := time.FixedZone("WIB", 7*60*60)
	calc := NewCalculator(loc)

	// Sunday 20:00 UTC is already Monday 03:00 at UTC+7
	ref := time.Date(2024, time.June, 16, 20, 0, 0, 0, time.UTC)
	anchor := calc.AnchorFor(ref)
	assert.True(t, time.Date(2024, time.June, 17, 0, 0, 0, 0, loc).Equal(anchor))
	assert.True(t, anchor.Equal(calc.AnchorFor(anchor.Add(time.Hour))))
}

func TestCalculator_CycleAtNormalizes(t *testing.T) {
	calc := NewCalculator(nil)
	assert.Equal(t, time.UTC, calc.Location())
	assert.Equal(t, calc.CycleAt(date(2024, time.June, 10)), calc.CycleAt(date(2024, time.June, 14).Add(5*time.Hour)))
}
