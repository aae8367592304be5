package trends

import (
	"fmt"
	"math"

	"github.com/aristath/renewals/internal/domain"
	"github.com/aristath/renewals/internal/modules/metrics"
	"github.com/aristath/renewals/pkg/formulas"
)

const (
	// DefaultBand is how far (in rate points) a forecast may leave the observed range
	DefaultBand = 5.0
	// MaxHorizon is the longest forecast, in periods, that Forecast accepts
	MaxHorizon = 36
)

// ForecastOptions tunes the forecast. Window is the number of most recent
// periods the trend is fitted on; 0 uses the whole history.
type ForecastOptions struct {
	Window    int
	Band      float64
	SeasonKey SeasonKey
}

// DefaultForecastOptions fits on all history with quarterly seasonality
func DefaultForecastOptions() ForecastOptions {
	return ForecastOptions{Window: 0, Band: DefaultBand, SeasonKey: SeasonQuarter}
}

// Point is one period of a forecast series. Forecast distinguishes projected
// values from observed ones.
type Point struct {
	Period          string   `json:"period"`
	CollectionRate  *float64 `json:"collection_rate"`
	AmountDue       float64  `json:"amount_due"`
	AmountCollected float64  `json:"amount_collected"`
	Forecast        bool     `json:"forecast"`
}

// Forecast returns the observed history followed by horizon projected periods.
//
// The collection rate follows a least-squares line over the window plus the
// seasonal deviation of the target period's bucket, bounded to the window's
// observed range widened by Band and to [0, 150]. Amount due follows its own
// line (floored at zero); collected is due times the projected rate.
func Forecast(history []metrics.Derived, horizon int, opts ForecastOptions) ([]Point, error) {
	if horizon <= 0 || horizon > MaxHorizon {
		return nil, fmt.Errorf("%w: horizon must be between 1 and %d, got %d", domain.ErrInvalidQuery, MaxHorizon, horizon)
	}
	if opts.Window < 0 {
		return nil, fmt.Errorf("%w: window must not be negative, got %d", domain.ErrInvalidQuery, opts.Window)
	}
	if opts.SeasonKey == "" {
		opts.SeasonKey = SeasonQuarter
	}
	if opts.Band < 0 {
		opts.Band = 0
	}

	window := history
	if opts.Window > 0 && opts.Window < len(history) {
		window = history[len(history)-opts.Window:]
	}

	var xs, rates, dueXs, dues []float64
	for i, d := range window {
		dueXs = append(dueXs, float64(i))
		dues = append(dues, d.AmountDue)
		if d.CollectionRate != nil {
			xs = append(xs, float64(i))
			rates = append(rates, *d.CollectionRate)
		}
	}
	if len(rates) < 2 {
		return nil, fmt.Errorf("%w: %d rated periods, need at least 2", domain.ErrInsufficientHistory, len(rates))
	}

	rateIntercept, rateSlope, ok := formulas.LinearTrend(xs, rates)
	if !ok {
		return nil, fmt.Errorf("%w: cannot fit collection rate trend", domain.ErrInsufficientHistory)
	}
	dueIntercept, dueSlope, ok := formulas.LinearTrend(dueXs, dues)
	if !ok {
		dueIntercept, dueSlope = formulas.Mean(dues), 0
	}

	buckets, err := Seasonal(window, opts.SeasonKey)
	if err != nil {
		return nil, err
	}
	overall := formulas.Mean(rates)
	deviation := make(map[string]float64, len(buckets))
	for _, b := range buckets {
		deviation[b.Key] = b.MeanRate - overall
	}

	lo, hi, _ := formulas.MinMax(rates)
	lo = math.Max(lo-opts.Band, 0)
	hi = math.Min(hi+opts.Band, metrics.MaxCollectionRate)

	last, err := domain.ParsePeriod(window[len(window)-1].Period)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidQuery, err)
	}

	points := make([]Point, 0, len(history)+horizon)
	for _, d := range history {
		points = append(points, Point{
			Period:          d.Period,
			CollectionRate:  d.CollectionRate,
			AmountDue:       d.AmountDue,
			AmountCollected: d.AmountCollected,
		})
	}

	for h := 1; h <= horizon; h++ {
		period := last.Add(h)
		x := float64(len(window) - 1 + h)

		rate := rateIntercept + rateSlope*x + deviation[opts.SeasonKey.Bucket(period)]
		rate = formulas.Clamp(rate, lo, hi)
		due := math.Max(0, dueIntercept+dueSlope*x)

		points = append(points, Point{
			Period:          period.String(),
			CollectionRate:  &rate,
			AmountDue:       due,
			AmountCollected: due * rate / 100,
			Forecast:        true,
		})
	}
	return points, nil
}
