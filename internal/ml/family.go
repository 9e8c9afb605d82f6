// Package ml loads model artifacts exported by the offline training
// pipeline and manages the registry of active model handles.
package ml

import (
	"fmt"
	"sort"
)

// Family identifies one model family served by the registry.
type Family string

const (
	FamilyRiskScorer      Family = "risk_scorer"
	FamilyNowcaster       Family = "nowcaster"
	FamilyAnomalyDetector Family = "anomaly_detector"
)

// Families returns all known families in a stable order.
func Families() []Family {
	fams := []Family{FamilyRiskScorer, FamilyNowcaster, FamilyAnomalyDetector}
	sort.Slice(fams, func(i, j int) bool { return fams[i] < fams[j] })
	return fams
}

// ParseFamily validates a family name from an external caller.
func ParseFamily(s string) (Family, error) {
	switch Family(s) {
	case FamilyRiskScorer, FamilyNowcaster, FamilyAnomalyDetector:
		return Family(s), nil
	}
	return "", fmt.Errorf("unknown model family %q", s)
}
