package marketdata

// IndicatorBar is a finalized candle together with every indicator column
// computed for it. The price chain (trend bands, channels, averages) is
// defined from the first bar of a series. The directional branch and the
// oscillator branch need warm-up history or a non-zero denominator, so their
// fields are pointers and nil means "undefined at this bar".
type IndicatorBar struct {
	Candle

	HL2             float64 `json:"hl2"`
	ATR             float64 `json:"atr"`
	InitialUpper    float64 `json:"initial_upper"`
	InitialLower    float64 `json:"initial_lower"`
	SupertrendUpper float64 `json:"supertrend_upper"`
	SupertrendLower float64 `json:"supertrend_lower"`
	OS              int32   `json:"os"`
	SPT             float64 `json:"spt"`
	MaxChannel      float64 `json:"max_channel"`
	MinChannel      float64 `json:"min_channel"`
	ChannelAvg      float64 `json:"channel_avg"`
	EMAFast         float64 `json:"ema_fast"`
	EMASlow         float64 `json:"ema_slow"`

	ADX     *float64 `json:"adx,omitempty"`
	DIPlus  *float64 `json:"di_plus,omitempty"`
	DIMinus *float64 `json:"di_minus,omitempty"`

	// Oscillator branch, computed only once the bar has its volume.
	StochK      *float64 `json:"stoch_k,omitempty"`
	StochD      *float64 `json:"stoch_d,omitempty"`
	OddBull     *float64 `json:"odd_bull,omitempty"`
	OddBear     *float64 `json:"odd_bear,omitempty"`
	OddStagnant *float64 `json:"odd_stagnant,omitempty"`
}
