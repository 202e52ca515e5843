package caltime

const (
	// Days from 0000-03-01 to 1970-01-01. March 1st of year 0 opens a
	// 400 year era right after a leap day, so February 29 needs no
	// special case in the arithmetic below.
	epochAdjustmentDays = 719468
	// 0000-03-01 was a Wednesday.
	adjustedEpochWDay = 3
	adjustedEpochYear = 0

	daysPerEra     = 146097 // (400-97)*365 + 97*366
	daysPerCentury = 36524  // (100-24)*365 + 24*366
	daysPer4Years  = 3*365 + 366
	daysPerYear    = 365
	yearsPerEra    = 400
	daysPerWeek    = 7

	secsPerMin  = 60
	secsPerHour = 60 * secsPerMin
	secsPerDay  = 24 * secsPerHour

	epochYear = 1970
)

// monthYDay holds the day of year preceding the first of each month,
// offset by one so that adding a 1-based day of month yields a 0-based
// day of year.
var monthYDay = [2][12]int{
	{-1, 30, 58, 89, 119, 150, 180, 211, 242, 272, 303, 333},
	{-1, 30, 59, 90, 120, 151, 181, 212, 243, 273, 304, 334},
}

// IsLeapYear reports whether the Anno Domini year is a Gregorian leap year.
func IsLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// LeapYearsSince1970 counts the leap years in (1969, year]. The result is
// negative for years before 1969.
func LeapYearsSince1970(year int) int {
	div4 := floorDiv(year-1968, 4)     // 1968 is the first year divisible by 4 before the epoch
	div100 := floorDiv(year-1900, 100) // 1900 for 100
	div400 := floorDiv(year-1600, 400) // 1600 for 400
	return div4 - div100 + div400
}

// FromTimestamp converts seconds since 1970-01-01 00:00:00 into a calendar
// record without zone conversion. isDST is copied into the result.
//
// Year, month and day come from the civil_from_days algorithm described at
// http://howardhinnant.github.io/date_algorithms.html#civil_from_days.
func FromTimestamp(ts int64, isDST bool) Tm {
	days := ts/secsPerDay + epochAdjustmentDays
	remain := ts % secsPerDay
	if remain < 0 {
		remain += secsPerDay
		days--
	}

	var tm Tm
	tm.WDay = int(floorMod(adjustedEpochWDay+days, daysPerWeek))

	tm.Hour = int(remain / secsPerHour)
	remain %= secsPerHour
	tm.Min = int(remain / secsPerMin)
	tm.Sec = int(remain % secsPerMin)

	era := floorDiv64(days, daysPerEra)
	eraDay := days - era*daysPerEra // [0, 146096]
	eraYear := (eraDay - eraDay/(daysPer4Years-1) + eraDay/daysPerCentury -
		eraDay/(daysPerEra-1)) / daysPerYear // [0, 399]
	yearDay := eraDay - (daysPerYear*eraYear + eraYear/4 - eraYear/100) // [0, 365], March based
	m := (5*yearDay + 2) / 153                                           // [0, 11], March = 0

	month := m + 2
	if m >= 10 {
		month = m - 10
	}
	year := adjustedEpochYear + eraYear + era*yearsPerEra
	if month <= 1 {
		year++
	}

	tm.MDay = int(yearDay - (153*m+2)/5 + 1)
	tm.Mon = int(month)
	tm.Year = int(year) - YearBase
	tm.YDay = yearDayOf(int(year), tm.Mon, tm.MDay)
	tm.IsDST = isDST
	return tm
}

// Timestamp converts tm into seconds since 1970-01-01 00:00:00 without zone
// conversion. WDay, YDay and IsDST are ignored. Fields are not validated,
// except that a month outside [0, 11] is carried into the year.
func (tm Tm) Timestamp() int64 {
	year := tm.Year + YearBase + floorDiv(tm.Mon, 12)
	mon := int(floorMod(int64(tm.Mon), 12))

	leapBefore := int64(LeapYearsSince1970(year))
	if IsLeapYear(year) {
		leapBefore--
	}
	yearOffset := int64(year - epochYear)
	days := int64(yearDayOf(year, mon, tm.MDay)) + leapBefore + yearOffset*daysPerYear

	return int64(tm.Sec) + (int64(tm.Min)+(int64(tm.Hour)+days*24)*60)*60
}

// YearDay returns the 0-based day of year of tm, computed from its fields.
func (tm Tm) YearDay() int {
	year := tm.Year + YearBase + floorDiv(tm.Mon, 12)
	return yearDayOf(year, int(floorMod(int64(tm.Mon), 12)), tm.MDay)
}

func yearDayOf(year, mon, mday int) int {
	leap := 0
	if IsLeapYear(year) {
		leap = 1
	}
	return monthYDay[leap][mon] + mday
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorDiv64(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorMod(a, b int64) int64 {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}
