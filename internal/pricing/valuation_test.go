package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/repart/marketplace/internal/model"
)

func entry(base, floor int64) model.DeviceCatalogEntry {
	return model.DeviceCatalogEntry{
		DeviceType: model.DevicePhone,
		Brand:      "Apple",
		Model:      "iPhone 12",
		BasePrice:  base,
		FloorPrice: floor,
		Status:     model.CatalogActive,
	}
}

func TestSuggestNoNegativeAnswers(t *testing.T) {
	// All-positive answers: suggestion equals base rounded to nearest 10.
	q := Suggest(entry(905, 200), model.FaultTree{
		Screen:  model.AnswerWorking,
		Board:   model.AnswerWorking,
		Battery: model.AnswerGood,
	})
	assert.Equal(t, int64(910), q.Suggested)
	assert.Equal(t, 0, q.RiskScore)
	assert.Equal(t, SummaryExcellent, q.Summary)
	assert.Empty(t, q.Adjustments)
}

func TestSuggestUnknownDefaults(t *testing.T) {
	// Unanswered questions default to unknown, which carries no impact.
	q := Suggest(entry(900, 200), model.FaultTree{})
	assert.Equal(t, int64(900), q.Suggested)
	assert.Equal(t, 0, q.RiskScore)
}

func TestSuggestBrokenScreen(t *testing.T) {
	q := Suggest(entry(900, 200), model.FaultTree{
		Screen:  model.AnswerBroken,
		Board:   model.AnswerWorking,
		Battery: model.AnswerGood,
	})
	// 900 - round(900*0.30) = 630.
	assert.Equal(t, int64(630), q.Suggested)
	assert.Equal(t, 30, q.RiskScore)
	assert.Equal(t, SummaryFair, q.Summary)
	assert.Len(t, q.Adjustments, 1)
	assert.Equal(t, int64(-270), q.Adjustments[0].Amount)
}

func TestSuggestAllFaults(t *testing.T) {
	q := Suggest(entry(900, 200), model.FaultTree{
		Screen:  model.AnswerBroken,
		Board:   model.AnswerNotWorking,
		Battery: model.AnswerBad,
	})
	// 900 - 270 - 450 - 90 = 90, floored at 200.
	assert.Equal(t, int64(200), q.Suggested)
	assert.Equal(t, 90, q.RiskScore)
	assert.Equal(t, SummaryPoor, q.Summary)
	assert.Len(t, q.Adjustments, 3)
}

func TestSuggestFloorHoldsAfterRounding(t *testing.T) {
	// Floor 205: raw suggestion clamps to 205, rounds to 210, stays >= floor.
	q := Suggest(entry(900, 205), model.FaultTree{
		Screen:  model.AnswerBroken,
		Board:   model.AnswerNotWorking,
		Battery: model.AnswerBad,
	})
	assert.Equal(t, int64(210), q.Suggested)
	assert.GreaterOrEqual(t, q.Suggested, int64(205))
}

func TestSuggestBatteryOnly(t *testing.T) {
	q := Suggest(entry(600, 100), model.FaultTree{
		Screen:  model.AnswerWorking,
		Board:   model.AnswerWorking,
		Battery: model.AnswerBad,
	})
	// 600 - 60 = 540.
	assert.Equal(t, int64(540), q.Suggested)
	assert.Equal(t, 10, q.RiskScore)
	assert.Equal(t, SummaryGood, q.Summary)
}
