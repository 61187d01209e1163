package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeverityFor(t *testing.T) {
	tests := []struct {
		count int
		want  Severity
	}{
		{0, SeverityNone},
		{1, SeverityLow},
		{5, SeverityLow},
		{6, SeverityMedium},
		{15, SeverityMedium},
		{16, SeverityHigh},
		{30, SeverityHigh},
		{31, SeverityCritical},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, SeverityFor(tt.count), "count %d", tt.count)
	}
}

func TestEffortFor(t *testing.T) {
	assert.Equal(t, LevelLow, EffortFor(0, 0))
	assert.Equal(t, LevelLow, EffortFor(9_999, 5))
	assert.Equal(t, LevelMedium, EffortFor(10_000, 0))
	assert.Equal(t, LevelMedium, EffortFor(0, 6))
	assert.Equal(t, LevelHigh, EffortFor(100_000, 0))
	assert.Equal(t, LevelHigh, EffortFor(0, 16))
}

func TestRiskFor(t *testing.T) {
	assert.Equal(t, LevelLow, RiskFor(0))
	assert.Equal(t, LevelMedium, RiskFor(1))
	assert.Equal(t, LevelMedium, RiskFor(10))
	assert.Equal(t, LevelHigh, RiskFor(11))
}

func TestSimilarityRatio(t *testing.T) {
	assert.Equal(t, 1.0, SimilarityRatio("", ""))
	assert.Equal(t, 1.0, SimilarityRatio("Customer", "customer"))
	assert.Equal(t, 0.0, SimilarityRatio("abc", "xyz"))
	assert.InDelta(t, 0.9286, SimilarityRatio("Sales Invoice", "Sales Invoices"), 0.0001)
	assert.Equal(t, 93, SimilarityPercent(SimilarityRatio("Sales Invoice", "Sales Invoices")))
}
