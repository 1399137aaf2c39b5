package generator

// Strength is an entropy band.
type Strength int

const (
	VeryWeak Strength = iota
	Weak
	Fair
	Good
	Strong
	VeryStrong
)

func (s Strength) String() string {
	switch s {
	case VeryWeak:
		return "very weak"
	case Weak:
		return "weak"
	case Fair:
		return "fair"
	case Good:
		return "good"
	case Strong:
		return "strong"
	default:
		return "very strong"
	}
}

// Classify maps entropy bits to a Strength band.
func Classify(bits float64) Strength {
	switch {
	case bits < 28:
		return VeryWeak
	case bits < 36:
		return Weak
	case bits < 60:
		return Fair
	case bits < 80:
		return Good
	case bits < 100:
		return Strong
	default:
		return VeryStrong
	}
}
