// Package reconciliation derives how much stock a distributor may report
// against for a product in a weekly cycle. Everything here is a pure function
// of the order and report history handed in; nothing is stored.
package reconciliation

import (
	"time"

	"github.com/jinzhu/now"
)

const (
	intakeLeadDays     = 2 // intake opens on the Saturday before the anchor
	intakeSpanDays     = 7 // and closes after Friday
	reportingStartDays = 5 // reports are filed on the following Saturday
	reportingSpanDays  = 2 // and Sunday
)

// Window is a half-open interval [Start, End)
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the window
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Cycle is one weekly reporting cycle. Anchor is the Monday at midnight and is
// the only key a report is filed under.
type Cycle struct {
	Anchor    time.Time `json:"anchor"`
	Intake    Window    `json:"intake_window"`
	Reporting Window    `json:"reporting_window"`
}

// Calculator maps wall-clock instants to cycles in a fixed business time zone
type Calculator struct {
	loc    *time.Location
	config *now.Config
}

// NewCalculator returns a calculator for loc; nil means UTC
func NewCalculator(loc *time.Location) *Calculator {
	if loc == nil {
		loc = time.UTC
	}
	return &Calculator{
		loc: loc,
		config: &now.Config{
			WeekStartDay: time.Monday,
			TimeLocation: loc,
		},
	}
}

// Location returns the business time zone
func (c *Calculator) Location() *time.Location {
	return c.loc
}

// AnchorFor returns the Monday 00:00 of the ISO week containing reference.
// Sunday belongs to the week that started six days earlier.
func (c *Calculator) AnchorFor(reference time.Time) time.Time {
	return c.config.With(reference.In(c.loc)).BeginningOfWeek()
}

// CycleFor returns the cycle whose week contains reference
func (c *Calculator) CycleFor(reference time.Time) Cycle {
	return c.cycleAt(c.AnchorFor(reference))
}

// CycleAt returns the cycle keyed by anchor. Any instant inside the anchor
// week is accepted and normalized, so callers can pass a raw date.
func (c *Calculator) CycleAt(anchor time.Time) Cycle {
	return c.CycleFor(anchor)
}

func (c *Calculator) cycleAt(anchor time.Time) Cycle {
	intakeStart := anchor.AddDate(0, 0, -intakeLeadDays)
	reportingStart := anchor.AddDate(0, 0, reportingStartDays)
	return Cycle{
		Anchor: anchor,
		Intake: Window{
			Start: intakeStart,
			End:   intakeStart.AddDate(0, 0, intakeSpanDays),
		},
		Reporting: Window{
			Start: reportingStart,
			End:   reportingStart.AddDate(0, 0, reportingSpanDays),
		},
	}
}
