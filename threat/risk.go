package threat

import (
	"fmt"
	"strings"

	"jarsentry/patterns"
)

// RiskLevel is ordered: Low < Medium < High < Critical.
type RiskLevel int

const (
	Low RiskLevel = iota
	Medium
	High
	Critical
)

var riskLabels = [...]string{"Low", "Medium", "High", "Critical"}

var riskColors = [...]string{"#4CAF50", "#FF9800", "#F44336", "#9C27B0"}

func (r RiskLevel) String() string {
	if r < Low || r > Critical {
		return fmt.Sprintf("RiskLevel(%d)", int(r))
	}
	return riskLabels[r]
}

// Color returns the display color for the level.
func (r RiskLevel) Color() string {
	if r < Low || r > Critical {
		return ""
	}
	return riskColors[r]
}

func (r RiskLevel) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *RiskLevel) UnmarshalText(text []byte) error {
	level, err := ParseRiskLevel(string(text))
	if err != nil {
		return err
	}
	*r = level
	return nil
}

func ParseRiskLevel(s string) (RiskLevel, error) {
	for i, label := range riskLabels {
		if strings.EqualFold(strings.TrimSpace(s), label) {
			return RiskLevel(i), nil
		}
	}
	return Low, fmt.Errorf("unknown risk level %q", s)
}

// Escalate moves Low to Medium and Medium to High. High and Critical are
// returned unchanged.
func Escalate(r RiskLevel) RiskLevel {
	switch r {
	case Low:
		return Medium
	case Medium:
		return High
	default:
		return r
	}
}

// URLRisk grades a URL literal by keyword tier.
func URLRisk(url string) RiskLevel {
	switch {
	case patterns.CriticalURLKeywords.ContainsAny(url):
		return Critical
	case patterns.HighURLKeywords.ContainsAny(url), patterns.HasRawIPHost(url):
		return High
	case patterns.MediumURLKeywords.ContainsAny(url):
		return Medium
	default:
		return Low
	}
}

// AlgorithmRisk grades a cipher name from patterns.CipherAlgorithms.
func AlgorithmRisk(algorithm string) RiskLevel {
	if patterns.StrongCipherAlgorithms.Has(strings.ToUpper(algorithm)) {
		return High
	}
	return Medium
}

// HashRisk grades a digest name from patterns.HashAlgorithms.
func HashRisk(algorithm string) RiskLevel {
	if patterns.WeakHashAlgorithms.Has(strings.ToUpper(algorithm)) {
		return Medium
	}
	return Low
}
