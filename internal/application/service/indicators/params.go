package indicators

// Params holds every period and coefficient of the indicator chain.
type Params struct {
	ATRLength     int
	ATRMultiplier float64
	ADXPeriod     int
	EMAFast       int
	EMASlow       int
	RSILength     int
	StochLength   int
	SmoothK       int
	SmoothD       int
	FlowLength    int
}

// DefaultParams returns the production configuration.
func DefaultParams() Params {
	return Params{
		ATRLength:     10,
		ATRMultiplier: 3,
		ADXPeriod:     2,
		EMAFast:       22,
		EMASlow:       33,
		RSILength:     14,
		StochLength:   14,
		SmoothK:       3,
		SmoothD:       3,
		FlowLength:    7,
	}
}
