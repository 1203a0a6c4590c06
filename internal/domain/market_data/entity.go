package market_data

import "time"

// OHLCV represents candlestick data
type OHLCV struct {
	Exchange    string    `ch:"exchange" json:"exchange"`
	Symbol      string    `ch:"symbol" json:"symbol"`
	Timeframe   string    `ch:"timeframe" json:"timeframe"` // 1m, 5m, 15m, 1h, 4h, 1d
	OpenTime    time.Time `ch:"open_time" json:"open_time"`
	CloseTime   time.Time `ch:"close_time" json:"close_time"`
	Open        float64   `ch:"open" json:"open"`
	High        float64   `ch:"high" json:"high"`
	Low         float64   `ch:"low" json:"low"`
	Close       float64   `ch:"close" json:"close"`
	Volume      float64   `ch:"volume" json:"volume"`
	QuoteVolume float64   `ch:"quote_volume" json:"quote_volume"`
	Trades      uint64    `ch:"trades" json:"trades"`
	IsClosed    bool      `ch:"is_closed" json:"is_closed"`
}

// OHLCVQuery represents query parameters for OHLCV data
type OHLCVQuery struct {
	Exchange  string
	Symbol    string
	Timeframe string
	StartTime time.Time
	EndTime   time.Time
	Limit     int
}

// Series is a columnar view over a chronological candle window. It is built
// once per optimization run and shared read-only across all trials, so the
// per-trial work touches only derived indicator arrays.
type Series struct {
	Exchange  string
	Symbol    string
	Timeframe string

	Times  []time.Time
	Open   []float64
	High   []float64
	Low    []float64
	Close  []float64
	Volume []float64
}

// NewSeries converts candles into columnar form. Candles must be in
// chronological order; the caller owns that guarantee (repositories return
// them ordered by open_time).
func NewSeries(candles []OHLCV) *Series {
	s := &Series{
		Times:  make([]time.Time, len(candles)),
		Open:   make([]float64, len(candles)),
		High:   make([]float64, len(candles)),
		Low:    make([]float64, len(candles)),
		Close:  make([]float64, len(candles)),
		Volume: make([]float64, len(candles)),
	}
	if len(candles) > 0 {
		s.Exchange = candles[0].Exchange
		s.Symbol = candles[0].Symbol
		s.Timeframe = candles[0].Timeframe
	}
	for i, c := range candles {
		s.Times[i] = c.OpenTime
		s.Open[i] = c.Open
		s.High[i] = c.High
		s.Low[i] = c.Low
		s.Close[i] = c.Close
		s.Volume[i] = c.Volume
	}
	return s
}

// Len returns the number of bars in the series.
func (s *Series) Len() int {
	return len(s.Close)
}
