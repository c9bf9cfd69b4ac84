// Package pricing implements the sell-flow price suggestion.  It is pure
// arithmetic over a catalog entry and a fault tree: no state, no I/O.
package pricing

import "github.com/repart/marketplace/internal/model"

// Fractional price impact per answered condition question.  Unanswered and
// positive answers carry no impact.  Display only matters when the screen
// glass is broken, and then the broken-screen impact already covers it.
var impacts = map[string]map[string]float64{
	"screen": {
		model.AnswerBroken: -0.30,
	},
	"board": {
		model.AnswerNotWorking: -0.50,
	},
	"battery": {
		model.AnswerBad: -0.10,
	},
}

// Condition summaries derived from the accumulated risk score.
const (
	SummaryExcellent = "excellent"
	SummaryGood      = "good"
	SummaryFair      = "fair"
	SummaryPoor      = "poor"
)

// Adjustment is one applied price impact, reported back to the client so
// the sell flow can show a breakdown.
type Adjustment struct {
	Question string  `json:"question"`
	Answer   string  `json:"answer"`
	Impact   float64 `json:"impact"`
	Amount   int64   `json:"amount"`
}

// Quote is the result of a valuation.
type Quote struct {
	Suggested   int64        `json:"suggested"`
	BasePrice   int64        `json:"base_price"`
	FloorPrice  int64        `json:"floor_price"`
	RiskScore   int          `json:"risk_score"`
	Summary     string       `json:"summary"`
	Adjustments []Adjustment `json:"adjustments"`
}

// Suggest computes the suggested price for a device.  The suggestion is the
// catalog base price plus round(base*impact) per answered question, floored
// at the catalog floor price and rounded to the nearest 10 (rounding never
// takes the result back below the floor).  The risk score accumulates the
// magnitude of negative impacts on a 0-100 scale.
func Suggest(entry model.DeviceCatalogEntry, f model.FaultTree) Quote {
	f.Normalize()
	q := Quote{
		BasePrice:   entry.BasePrice,
		FloorPrice:  entry.FloorPrice,
		Adjustments: []Adjustment{},
	}

	answers := map[string]string{
		"screen":  f.Screen,
		"board":   f.Board,
		"battery": f.Battery,
	}
	suggested := entry.BasePrice
	risk := 0
	for _, question := range []string{"screen", "board", "battery"} {
		answer := answers[question]
		impact, ok := impacts[question][answer]
		if !ok {
			continue
		}
		amount := roundHalfUp(float64(entry.BasePrice) * impact)
		suggested += amount
		if impact < 0 {
			risk += int(-impact * 100)
		}
		q.Adjustments = append(q.Adjustments, Adjustment{
			Question: question,
			Answer:   answer,
			Impact:   impact,
			Amount:   amount,
		})
	}

	if suggested < entry.FloorPrice {
		suggested = entry.FloorPrice
	}
	suggested = roundToTen(suggested)
	if suggested < entry.FloorPrice {
		suggested += 10
	}
	q.Suggested = suggested

	if risk > 100 {
		risk = 100
	}
	q.RiskScore = risk
	q.Summary = summarize(risk)
	return q
}

// summarize maps a risk score to the condition summary shown to buyers.
func summarize(risk int) string {
	switch {
	case risk == 0:
		return SummaryExcellent
	case risk <= 15:
		return SummaryGood
	case risk <= 40:
		return SummaryFair
	default:
		return SummaryPoor
	}
}

func roundHalfUp(v float64) int64 {
	if v < 0 {
		return -int64(-v + 0.5)
	}
	return int64(v + 0.5)
}

// roundToTen rounds to the nearest multiple of 10, halves away from zero.
func roundToTen(v int64) int64 {
	if v < 0 {
		return -roundToTen(-v)
	}
	return (v + 5) / 10 * 10
}
