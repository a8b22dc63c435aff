package market

import "time"

// Bar is one closed OHLCV candle. Times are unix milliseconds.
type Bar struct {
	OpenTime  int64   `json:"open_time"`
	CloseTime int64   `json:"close_time"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
	Trades    int64   `json:"trades"`
}

func (b Bar) OpenedAt() time.Time {
	return time.UnixMilli(b.OpenTime).UTC()
}

// Bars is a window ordered by OpenTime ascending.
type Bars []Bar

func (bs Bars) Last() (Bar, bool) {
	if len(bs) == 0 {
		return Bar{}, false
	}
	return bs[len(bs)-1], true
}

func (bs Bars) Closes() []float64 {
	out := make([]float64, len(bs))
	for i, b := range bs {
		out[i] = b.Close
	}
	return out
}

func (bs Bars) Highs() []float64 {
	out := make([]float64, len(bs))
	for i, b := range bs {
		out[i] = b.High
	}
	return out
}

func (bs Bars) Lows() []float64 {
	out := make([]float64, len(bs))
	for i, b := range bs {
		out[i] = b.Low
	}
	return out
}

func (bs Bars) Volumes() []float64 {
	out := make([]float64, len(bs))
	for i, b := range bs {
		out[i] = b.Volume
	}
	return out
}

// Ordered reports whether open times are strictly increasing.
func (bs Bars) Ordered() bool {
	for i := 1; i < len(bs); i++ {
		if bs[i].OpenTime <= bs[i-1].OpenTime {
			return false
		}
	}
	return true
}
