package scanner

import (
	"jarsentry/classfile"
	"jarsentry/patterns"
	"jarsentry/threat"
	"jarsentry/utils"
)

// urlChecker flags network literals. Each test runs independently so one
// literal can produce several findings.
type urlChecker struct{}

func (urlChecker) Kind() CheckerKind         { return CheckURL }
func (urlChecker) Category() threat.Category { return threat.URL }

func (urlChecker) AnalyzeConstant(site Site, value string) []threat.Finding {
	var out []threat.Finding
	add := func(risk threat.RiskLevel, summary, details string) {
		out = append(out, threat.New(threat.URL, risk, site.Class, site.Method, summary, details))
	}

	if patterns.ContainsURL(value) {
		add(threat.URLRisk(value), "URL found: "+utils.Truncate(value, 50), "Full URL: "+value)
	}
	if patterns.ContainsSuspiciousDomain(value) {
		add(threat.High, "Suspicious domain: "+utils.Truncate(value, 50),
			"Potential URL shortener or suspicious service: "+value)
	}
	if ip, ok := patterns.FindIP(value); ok {
		if utils.IsPrivateIP(ip) {
			add(threat.Low, "IP address found: "+ip, "Private IP address")
		} else {
			add(threat.Medium, "IP address found: "+ip, "Public IP address - potential C2")
		}
	}
	if len(value) > 20 && patterns.IsBase64(value) {
		add(threat.Medium, "Potential Base64 encoded data", "Base64 string: "+utils.Truncate(value, 50))
	}
	return out
}

func (urlChecker) AnalyzeCall(Site, classfile.MethodCall, string, bool) []threat.Finding {
	return nil
}
