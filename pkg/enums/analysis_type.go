package enums

import "fmt"

// AnalysisType identifies which path analysis produced a pattern row.
type AnalysisType string

const (
	AnalysisEntryPoint   AnalysisType = "entry_point"
	AnalysisCombination  AnalysisType = "combination"
	AnalysisFullSequence AnalysisType = "full_sequence"
)

var validAnalysisTypes = []AnalysisType{
	AnalysisEntryPoint,
	AnalysisCombination,
	AnalysisFullSequence,
}

// DisplayOrder returns the fixed presentation priority of the analysis type.
// Reports always list entry points first, then combinations, then sequences.
func (a AnalysisType) DisplayOrder() int {
	for i, candidate := range validAnalysisTypes {
		if candidate == a {
			return i
		}
	}
	return len(validAnalysisTypes)
}

// IsValid reports whether the value matches the canonical analysis_type enum.
func (a AnalysisType) IsValid() bool {
	for _, candidate := range validAnalysisTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAnalysisType converts the raw string to AnalysisType.
func ParseAnalysisType(value string) (AnalysisType, error) {
	for _, candidate := range validAnalysisTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid analysis type %q", value)
}
