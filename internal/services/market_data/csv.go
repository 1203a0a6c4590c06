package market_data

import (
	"bufio"
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"time"

	"kairos/internal/domain/market_data"
	"kairos/internal/metrics"
	"kairos/pkg/errors"
)

// LoadCSV reads candles from a CSV file with columns
// timestamp,open,high,low,close,volume[,quote_volume[,trades]].
// Timestamps may be unix seconds, unix milliseconds or RFC3339. A header row
// is detected by a non-numeric first field and skipped. Rows must be in
// chronological order; the loader verifies and rejects out-of-order data
// instead of silently producing a corrupt series.
func LoadCSV(path, exchange, symbol, timeframe string) ([]market_data.OHLCV, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open csv")
	}
	defer f.Close()

	candles, err := readCSV(f, exchange, symbol, timeframe)
	if err != nil {
		return nil, errors.Wrapf(err, "read csv %s", path)
	}

	metrics.CandlesLoaded.WithLabelValues("csv").Add(float64(len(candles)))
	return candles, nil
}

func readCSV(f io.Reader, exchange, symbol, timeframe string) ([]market_data.OHLCV, error) {
	r := csv.NewReader(bufio.NewReaderSize(f, 1<<20))
	r.ReuseRecord = true
	r.FieldsPerRecord = -1

	var candles []market_data.OHLCV
	line := 0

	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		line++
		if len(rec) < 6 {
			return nil, errors.Newf("line %d: expected at least 6 columns, got %d", line, len(rec))
		}

		ts, err := parseTimestamp(rec[0])
		if err != nil {
			if line == 1 {
				continue // Header row
			}
			return nil, errors.Wrapf(err, "line %d: timestamp", line)
		}

		candle := market_data.OHLCV{
			Exchange:  exchange,
			Symbol:    symbol,
			Timeframe: timeframe,
			OpenTime:  ts,
			IsClosed:  true,
		}

		fields := []struct {
			name string
			dst  *float64
		}{
			{"open", &candle.Open},
			{"high", &candle.High},
			{"low", &candle.Low},
			{"close", &candle.Close},
			{"volume", &candle.Volume},
		}
		for i, field := range fields {
			v, err := strconv.ParseFloat(rec[i+1], 64)
			if err != nil {
				return nil, errors.Wrapf(err, "line %d: %s", line, field.name)
			}
			*field.dst = v
		}

		if len(rec) > 6 {
			if v, err := strconv.ParseFloat(rec[6], 64); err == nil {
				candle.QuoteVolume = v
			}
		}
		if len(rec) > 7 {
			if v, err := strconv.ParseUint(rec[7], 10, 64); err == nil {
				candle.Trades = v
			}
		}

		if n := len(candles); n > 0 && !candles[n-1].OpenTime.Before(candle.OpenTime) {
			return nil, errors.Newf("line %d: timestamps not strictly increasing", line)
		}

		candles = append(candles, candle)
	}

	if len(candles) == 0 {
		return nil, errors.ErrNoData
	}

	return candles, nil
}

// parseTimestamp accepts unix seconds, unix milliseconds or RFC3339.
// Millisecond values are told apart from seconds by magnitude: anything past
// the year 33658 in seconds is treated as milliseconds.
func parseTimestamp(s string) (time.Time, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n > 1e12 {
			return time.UnixMilli(n).UTC(), nil
		}
		return time.Unix(n, 0).UTC(), nil
	}

	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}

	t, err := time.Parse("2006-01-02 15:04:05", s)
	if err != nil {
		return time.Time{}, errors.Newf("unrecognized timestamp %q", s)
	}
	return t.UTC(), nil
}
