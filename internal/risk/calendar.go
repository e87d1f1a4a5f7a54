package risk

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// clockTime is a time of day in UTC
type clockTime struct {
	Hour   int
	Minute int
}

func (t clockTime) String() string { return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute) }

// Event is an upcoming scheduled release
type Event struct {
	Time        time.Time
	Description string
}

// Calendar holds the scheduled high-impact release times and blocks
// trading within a buffer around them. Times are typical UTC release
// slots; a live deployment would refresh them from a calendar API.
type Calendar struct {
	buffer           time.Duration
	highImpactTimes  map[time.Weekday][]clockTime
	centralBankTimes []clockTime
	now              func() time.Time
	logger           zerolog.Logger
}

// NewCalendar creates a calendar with the default schedule and buffer
func NewCalendar(buffer time.Duration) *Calendar {
	return &Calendar{
		buffer: buffer,
		highImpactTimes: map[time.Weekday][]clockTime{
			time.Tuesday:   {{13, 30}},
			time.Wednesday: {{12, 30}, {18, 0}},
			time.Thursday:  {{12, 30}},
			time.Friday:    {{12, 30}, {13, 30}},
		},
		centralBankTimes: []clockTime{{12, 0}, {18, 0}, {19, 0}},
		now:              func() time.Time { return time.Now().UTC() },
		logger:           log.With().Str("component", "calendar").Logger(),
	}
}

// TradingAllowed reports whether the current moment is clear of
// scheduled releases. The reason is non-empty when blocked. Adjacent
// days are checked too, so a buffer spanning midnight still blocks.
func (c *Calendar) TradingAllowed() (bool, string) {
	now := c.now()

	for offset := -1; offset <= 1; offset++ {
		day := now.AddDate(0, 0, offset)
		for _, t := range c.highImpactTimes[day.Weekday()] {
			if c.withinBuffer(now, day, t) {
				return false, fmt.Sprintf("high-impact news at %s UTC", t)
			}
		}
		for _, t := range c.centralBankTimes {
			if c.withinBuffer(now, day, t) {
				return false, fmt.Sprintf("central bank announcement at %s UTC", t)
			}
		}
		if isNFPFriday(day) && c.withinBuffer(now, day, clockTime{12, 30}) {
			return false, "US Non-Farm Payrolls release time"
		}
	}
	return true, ""
}

// AddEvent registers a custom high-impact slot
func (c *Calendar) AddEvent(day time.Weekday, hour, minute int, description string) {
	c.highImpactTimes[day] = append(c.highImpactTimes[day], clockTime{hour, minute})
	c.logger.Info().
		Stringer("day", day).
		Str("time", clockTime{hour, minute}.String()).
		Str("description", description).
		Msg("Added news event")
}

// UpcomingEvents lists the scheduled high-impact releases within the
// given horizon, sorted by time.
func (c *Calendar) UpcomingEvents(horizon time.Duration) []Event {
	now := c.now()
	seen := make(map[time.Time]bool)
	var events []Event

	for d := time.Duration(0); d < horizon; d += time.Hour {
		day := now.Add(d)
		for _, t := range c.highImpactTimes[day.Weekday()] {
			at := time.Date(day.Year(), day.Month(), day.Day(), t.Hour, t.Minute, 0, 0, time.UTC)
			if at.After(now) && at.Before(now.Add(horizon)) && !seen[at] {
				seen[at] = true
				events = append(events, Event{Time: at, Description: "High-impact economic news"})
			}
		}
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Time.Before(events[j].Time) })
	return events
}

// withinBuffer reports whether now falls inside the buffer around the
// event scheduled on the given day.
func (c *Calendar) withinBuffer(now, day time.Time, event clockTime) bool {
	at := time.Date(day.Year(), day.Month(), day.Day(), event.Hour, event.Minute, 0, 0, time.UTC)
	d := now.Sub(at)
	if d < 0 {
		d = -d
	}
	return d <= c.buffer
}

// isNFPFriday reports whether the date is the first Friday of its month
func isNFPFriday(now time.Time) bool {
	if now.Weekday() != time.Friday {
		return false
	}
	return now.Day() <= 7
}
