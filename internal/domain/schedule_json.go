package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

var dayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// MarshalJSON encodes the schedule keyed by lowercase day names, the
// shape stored in the policies table and exposed on the admin API.
func (s WeeklySchedule) MarshalJSON() ([]byte, error) {
	out := make(map[string]DayWindow, len(s))
	for day, w := range s {
		out[strings.ToLower(day.String())] = w
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes day-name keys back into weekdays.
func (s *WeeklySchedule) UnmarshalJSON(data []byte) error {
	raw := map[string]DayWindow{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	decoded := WeeklySchedule{}
	for name, w := range raw {
		day, ok := dayNames[strings.ToLower(name)]
		if !ok {
			return fmt.Errorf("unknown weekday %q", name)
		}
		decoded[day] = w
	}
	*s = decoded
	return nil
}
