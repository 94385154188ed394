package dataset

import (
	"math"
	"time"

	"github.com/rickar/cal/v2"
)

// Season buckets follow the Southern-hemisphere convention of the source
// market: Dec-Feb summer (0), Mar-May autumn (1), Jun-Aug winter (2),
// Sep-Nov spring (3).
const (
	SeasonSummer = 0
	SeasonAutumn = 1
	SeasonWinter = 2
	SeasonSpring = 3
)

// fixed-date holidays of the source market (Peru). Day and month match in
// any year; there is no moved-observance or lunar logic.
var holidays = []*cal.Holiday{
	{Name: "Nochebuena", Month: time.December, Day: 24, Func: cal.CalcDayOfMonth},
	{Name: "Navidad", Month: time.December, Day: 25, Func: cal.CalcDayOfMonth},
	{Name: "Nochevieja", Month: time.December, Day: 31, Func: cal.CalcDayOfMonth},
	{Name: "Año Nuevo", Month: time.January, Day: 1, Func: cal.CalcDayOfMonth},
	{Name: "Fiestas Patrias", Month: time.July, Day: 28, Func: cal.CalcDayOfMonth},
	{Name: "Santa Rosa de Lima", Month: time.August, Day: 30, Func: cal.CalcDayOfMonth},
}

func newHolidayCalendar() *cal.Calendar {
	c := &cal.Calendar{Name: "minimarket-pe"}
	c.AddHoliday(holidays...)
	return c
}

// CalendarFeatures are the deterministic per-date features. They carry no
// error conditions.
type CalendarFeatures struct {
	Year         float64
	Month        float64
	Day          float64
	DayOfWeek    float64 // Monday = 0
	DayOfYear    float64
	Week         float64 // ISO week
	Quarter      float64
	IsWeekend    float64
	IsMonthStart float64
	IsMonthEnd   float64

	SinDayOfYear float64
	CosDayOfYear float64
	SinDayOfWeek float64
	CosDayOfWeek float64
	SinMonth     float64
	CosMonth     float64

	Season    float64
	IsHoliday float64
}

// NewCalendarFeatures computes the calendar, trigonometric seasonal, season
// bucket, and holiday features for one date.
func NewCalendarFeatures(t time.Time, hcal *cal.Calendar) CalendarFeatures {
	t = Day(t)

	dow := (int(t.Weekday()) + 6) % 7
	doy := t.YearDay()
	month := int(t.Month())
	_, week := t.ISOWeek()

	f := CalendarFeatures{
		Year:      float64(t.Year()),
		Month:     float64(month),
		Day:       float64(t.Day()),
		DayOfWeek: float64(dow),
		DayOfYear: float64(doy),
		Week:      float64(week),
		Quarter:   float64((month-1)/3 + 1),

		SinDayOfYear: math.Sin(2 * math.Pi * float64(doy) / 365.25),
		CosDayOfYear: math.Cos(2 * math.Pi * float64(doy) / 365.25),
		SinDayOfWeek: math.Sin(2 * math.Pi * float64(dow) / 7),
		CosDayOfWeek: math.Cos(2 * math.Pi * float64(dow) / 7),
		SinMonth:     math.Sin(2 * math.Pi * float64(month) / 12),
		CosMonth:     math.Cos(2 * math.Pi * float64(month) / 12),

		Season: float64(SeasonOf(t.Month())),
	}

	if dow >= 5 {
		f.IsWeekend = 1
	}
	if t.Day() == 1 {
		f.IsMonthStart = 1
	}
	if t.AddDate(0, 0, 1).Month() != t.Month() {
		f.IsMonthEnd = 1
	}
	if actual, _, _ := hcal.IsHoliday(t); actual {
		f.IsHoliday = 1
	}
	return f
}

// SeasonOf maps a month to its Southern-hemisphere season bucket.
func SeasonOf(m time.Month) int {
	switch m {
	case time.December, time.January, time.February:
		return SeasonSummer
	case time.March, time.April, time.May:
		return SeasonAutumn
	case time.June, time.July, time.August:
		return SeasonWinter
	default:
		return SeasonSpring
	}
}
