package tracker

// Nature classifies a migraine. The set is closed; declaration order is the
// order used by the by-nature distribution.
type Nature string

const (
	NatureMigraine Nature = "M"
	NatureHeadache Nature = "H"
	NatureStrong   Nature = "strong"
	NatureWeak     Nature = "weak"
)

var natures = []Nature{NatureMigraine, NatureHeadache, NatureStrong, NatureWeak}

var natureLabels = map[Nature]string{
	NatureMigraine: "Migraine",
	NatureHeadache: "Headache",
	NatureStrong:   "Strong",
	NatureWeak:     "Weak",
}

// Natures returns every Nature in declaration order.
func Natures() []Nature {
	out := make([]Nature, len(natures))
	copy(out, natures)
	return out
}

// Valid reports whether n is one of the declared values.
func (n Nature) Valid() bool {
	_, ok := natureLabels[n]
	return ok
}

// Label returns the human-readable label, or the raw value for unknown natures.
func (n Nature) Label() string {
	if l, ok := natureLabels[n]; ok {
		return l
	}
	return string(n)
}

// Intensity bounds.
const (
	MinIntensity = 0
	MaxIntensity = 10
)

// IntensityLevels returns MinIntensity..MaxIntensity ascending.
func IntensityLevels() []int {
	levels := make([]int, 0, MaxIntensity-MinIntensity+1)
	for i := MinIntensity; i <= MaxIntensity; i++ {
		levels = append(levels, i)
	}
	return levels
}

// weekdayNames indexes lowercase day names by time.Weekday (Sunday=0).
var weekdayNames = [7]string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

// WeekdayName returns the lowercase English name for a weekday slot 0..6.
func WeekdayName(slot int) string {
	if slot < 0 || slot > 6 {
		return ""
	}
	return weekdayNames[slot]
}
