package model

import (
	"fmt"
	"math"

	"github.com/andresuchdata/grocerystock/internal/domain"
)

// z-score of an 80% two-sided interval, the width Prophet reports by default.
const intervalZ = 1.2816

// HoltWinters is additive triple exponential smoothing. The seasonal
// component is only used when the history covers at least two full seasons;
// shorter series fall back to Holt's linear trend.
type HoltWinters struct {
	Alpha        float64 // level smoothing
	Beta         float64 // trend smoothing
	Gamma        float64 // seasonal smoothing
	SeasonLength int     // periods per season, 0 disables seasonality
}

// NewHoltWinters returns a forecaster with weekly seasonality.
func NewHoltWinters() *HoltWinters {
	return &HoltWinters{
		Alpha:        0.5,
		Beta:         0.3,
		Gamma:        0.3,
		SeasonLength: 7,
	}
}

func (hw *HoltWinters) Name() string {
	if hw.SeasonLength <= 1 {
		return "holt_linear"
	}
	return "holt_winters"
}

func (hw *HoltWinters) Signature() string {
	return fmt.Sprintf("%s(alpha=%g,beta=%g,gamma=%g,season=%d)", hw.Name(), hw.Alpha, hw.Beta, hw.Gamma, hw.SeasonLength)
}

func (hw *HoltWinters) Forecast(history []Observation, horizon int) ([]domain.ForecastPoint, error) {
	n := len(history)
	if n == 0 {
		return nil, fmt.Errorf("holt-winters: empty history")
	}
	if horizon < 0 {
		return nil, fmt.Errorf("holt-winters: negative horizon %d", horizon)
	}

	ys := make([]float64, n)
	for i, o := range history {
		ys[i] = o.Value
	}

	L := hw.SeasonLength
	seasonal := L > 1 && n >= 2*L
	season := make([]float64, max(L, 1))

	var level, trend float64
	if seasonal {
		first := mean(ys[:L])
		second := mean(ys[L : 2*L])
		level = first
		trend = (second - first) / float64(L)
		for i := 0; i < L; i++ {
			season[i] = ys[i] - first
		}
	} else {
		level = ys[0]
		if n > 1 {
			trend = ys[1] - ys[0]
		}
	}

	seasonAt := func(t int) float64 {
		if !seasonal {
			return 0
		}
		return season[t%L]
	}

	points := make([]domain.ForecastPoint, 0, n+horizon)
	points = append(points, domain.ForecastPoint{
		Date:  history[0].Date,
		Yhat:  level + seasonAt(0),
		Trend: level,
	})

	var sse float64
	for t := 1; t < n; t++ {
		fitted := level + trend + seasonAt(t)
		resid := ys[t] - fitted
		sse += resid * resid

		prevLevel := level
		level = hw.Alpha*(ys[t]-seasonAt(t)) + (1-hw.Alpha)*(level+trend)
		trend = hw.Beta*(level-prevLevel) + (1-hw.Beta)*trend
		if seasonal {
			season[t%L] = hw.Gamma*(ys[t]-level) + (1-hw.Gamma)*season[t%L]
		}

		points = append(points, domain.ForecastPoint{
			Date:  history[t].Date,
			Yhat:  fitted,
			Trend: prevLevel + trend,
		})
	}

	sigma := 0.0
	if n > 1 {
		sigma = math.Sqrt(sse / float64(n-1))
	}
	for i := range points {
		points[i].YhatLower = points[i].Yhat - intervalZ*sigma
		points[i].YhatUpper = points[i].Yhat + intervalZ*sigma
	}

	last := history[n-1].Date
	for h := 1; h <= horizon; h++ {
		base := level + float64(h)*trend
		yhat := base + seasonAt(n-1+h)
		width := intervalZ * sigma * math.Sqrt(float64(h))
		points = append(points, domain.ForecastPoint{
			Date:      last.AddDate(0, 0, h),
			Yhat:      yhat,
			YhatLower: yhat - width,
			YhatUpper: yhat + width,
			Trend:     base,
			Future:    true,
		})
	}

	return points, nil
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
