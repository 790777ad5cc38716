// Package timeslot turns a venue's opening hours into bookable time windows
// and parses the "HH:MM-HH:MM" slot strings used across the system.
package timeslot

import (
	"fmt"
	"iter"
	"regexp"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"

	"seatbooking/internal/domain"
	"seatbooking/internal/models"
)

var ErrInvalidConfig = errors.New("invalid slot configuration")

var (
	slotPattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d-([01]\d|2[0-3]):[0-5]\d$`)
	timePattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)
)

// Slot is a window expressed in minutes since midnight.
type Slot struct {
	Start int
	End   int
}

func (s Slot) String() string {
	return FormatMinutes(s.Start) + "-" + FormatMinutes(s.End)
}

func (s Slot) Duration() time.Duration {
	return time.Duration(s.End-s.Start) * time.Minute
}

// FormatMinutes renders minutes since midnight as zero-padded "HH:MM".
func FormatMinutes(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// ParseTime parses a 24-hour "HH:MM" string into minutes since midnight.
func ParseTime(s string) (int, error) {
	if !timePattern.MatchString(s) {
		return 0, domain.Validationf("invalid time %q, expected HH:MM", s)
	}
	h, _ := strconv.Atoi(s[:2])
	m, _ := strconv.Atoi(s[3:])
	return h*60 + m, nil
}

// Valid reports whether s has the "HH:MM-HH:MM" shape with 24-hour components.
func Valid(s string) bool {
	return slotPattern.MatchString(s)
}

func Parse(s string) (Slot, error) {
	if !Valid(s) {
		return Slot{}, domain.Validationf("Invalid time slot format. Expected HH:MM-HH:MM")
	}
	start, _ := ParseTime(s[:5])
	end, _ := ParseTime(s[6:])
	if end <= start {
		return Slot{}, domain.Validationf("Time slot must end after it starts")
	}
	return Slot{Start: start, End: end}, nil
}

// Generate returns the slots between opening and closing, each duration
// minutes long. A slot is included only when it ends at or before closing.
// The sequence is lazy and may be ranged over any number of times.
func Generate(opening, closing string, duration int) (iter.Seq[Slot], error) {
	open, err := ParseTime(opening)
	if err != nil {
		return nil, invalidConfig(err.Error())
	}
	closeAt, err := ParseTime(closing)
	if err != nil {
		return nil, invalidConfig(err.Error())
	}
	if duration <= 0 {
		return nil, invalidConfig("slot duration must be positive")
	}
	if open >= closeAt {
		return nil, invalidConfig("opening time must be before closing time")
	}

	return func(yield func(Slot) bool) {
		for start := open; start+duration <= closeAt; start += duration {
			if !yield(Slot{Start: start, End: start + duration}) {
				return
			}
		}
	}, nil
}

// ForRestaurant is Generate applied to a venue configuration.
func ForRestaurant(r *models.Restaurant) (iter.Seq[Slot], error) {
	return Generate(r.OpeningTime, r.ClosingTime, r.SlotDuration)
}

// Strings collects a slot sequence into its string form.
func Strings(seq iter.Seq[Slot]) []string {
	out := make([]string, 0)
	for s := range seq {
		out = append(out, s.String())
	}
	return out
}

func invalidConfig(reason string) error {
	return errors.Mark(errors.Wrap(ErrInvalidConfig, reason), domain.ErrValidation)
}

// ParseDate accepts "YYYY-MM-DD" or an RFC 3339 timestamp and returns the
// calendar date at midnight in loc together with its canonical string.
func ParseDate(s string, loc *time.Location) (time.Time, string, error) {
	if s == "" {
		return time.Time{}, "", domain.Validationf("date is required")
	}
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(models.DateLayout, s, loc)
	if err != nil {
		ts, errTS := time.Parse(time.RFC3339, s)
		if errTS != nil {
			return time.Time{}, "", domain.Validationf("invalid date %q, expected YYYY-MM-DD", s)
		}
		t = time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, loc)
	}
	return t, t.Format(models.DateLayout), nil
}

// StartAt is the instant the slot begins on the given date in loc.
func StartAt(date time.Time, slot Slot, loc *time.Location) time.Time {
	if loc == nil {
		loc = date.Location()
	}
	y, m, d := date.Date()
	return time.Date(y, m, d, slot.Start/60, slot.Start%60, 0, 0, loc)
}
