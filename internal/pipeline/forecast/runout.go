package forecast

import (
	"fmt"

	"github.com/andresuchdata/grocerystock/internal/domain"
)

// PredictRunout returns the first future date whose predicted value falls
// below threshold. When none does, the item is reported as not at risk
// within the horizon.
func PredictRunout(result domain.ForecastResult, threshold float64) domain.Runout {
	runout := domain.Runout{
		ItemName:  result.ItemName,
		Threshold: threshold,
	}

	for _, p := range result.FuturePoints() {
		if p.Yhat < threshold {
			date := p.Date
			runout.AtRisk = true
			runout.Date = &date
			runout.Message = fmt.Sprintf("predicted runout on %s", date.Format(domain.DateLayout))
			return runout
		}
	}

	runout.Message = "no depletion expected within horizon"
	return runout
}
