package planner

// Severity grades a conflict report by its total conflict count.
type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// SeverityFor maps a conflict count onto the severity staircase:
// 0 none, up to 5 low, up to 15 medium, up to 30 high, critical beyond.
func SeverityFor(count int) Severity {
	switch {
	case count <= 0:
		return SeverityNone
	case count <= 5:
		return SeverityLow
	case count <= 15:
		return SeverityMedium
	case count <= 30:
		return SeverityHigh
	default:
		return SeverityCritical
	}
}

// Level is a coarse low/medium/high classification.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// Thresholds used by EffortFor and RiskFor.
const (
	effortMediumRecords = 10_000
	effortHighRecords   = 100_000
	effortMediumConf    = 5
	effortHighConf      = 15
	riskHighConflicts   = 10
)

// EffortFor classifies the work a plan represents from the estimated record
// volume and the number of conflicts that need a decision.
func EffortFor(records, conflicts int) Level {
	switch {
	case records >= effortHighRecords || conflicts > effortHighConf:
		return LevelHigh
	case records >= effortMediumRecords || conflicts > effortMediumConf:
		return LevelMedium
	default:
		return LevelLow
	}
}

// RiskFor classifies a plan's risk from its conflict count.
func RiskFor(conflicts int) Level {
	switch {
	case conflicts == 0:
		return LevelLow
	case conflicts <= riskHighConflicts:
		return LevelMedium
	default:
		return LevelHigh
	}
}
