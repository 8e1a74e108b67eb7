package scanner

import (
	"strings"

	"jarsentry/classfile"
	"jarsentry/patterns"
	"jarsentry/threat"
	"jarsentry/utils"
)

type webChecker struct{}

func (webChecker) Kind() CheckerKind         { return CheckWebConnection }
func (webChecker) Category() threat.Category { return threat.WebConnection }

func (webChecker) AnalyzeConstant(site Site, value string) []threat.Finding {
	upper := strings.ToUpper(value)
	lower := strings.ToLower(value)
	one := func(risk threat.RiskLevel, summary, details string) []threat.Finding {
		return []threat.Finding{threat.New(threat.WebConnection, risk, site.Class, site.Method, summary, details)}
	}

	if verb, ok := httpVerb(upper); ok {
		return one(threat.Medium, "HTTP method: "+verb, "Potentially dangerous HTTP method for data modification")
	}
	if header, ok := suspiciousHeader(lower); ok {
		risk := threat.Medium
		if patterns.HighRiskHeaders.Has(header) {
			risk = threat.High
		}
		return one(risk, "Suspicious HTTP header: "+header, "Header value: "+utils.Truncate(value, 60))
	}
	if patterns.BrowserAgents.ContainsAny(lower) {
		return one(threat.Medium, "Browser User-Agent spoofing", "User-Agent: "+utils.Truncate(value, 60))
	}
	for _, prefix := range patterns.ContentTypePrefixes {
		if strings.HasPrefix(lower, prefix) {
			return one(threat.Low, "Content-Type header", "Content-Type: "+value)
		}
	}
	return nil
}

func httpVerb(upper string) (string, bool) {
	for _, verb := range patterns.MutatingHTTPMethods {
		if upper == verb || strings.HasPrefix(upper, verb+" ") {
			return verb, true
		}
	}
	return "", false
}

func suspiciousHeader(lower string) (string, bool) {
	for _, header := range patterns.SuspiciousHeaders {
		if lower == header || strings.HasPrefix(lower, header+":") {
			return header, true
		}
	}
	return "", false
}

func (webChecker) AnalyzeCall(site Site, call classfile.MethodCall, recent string, hasRecent bool) []threat.Finding {
	var out []threat.Finding
	add := func(risk threat.RiskLevel, summary, details string) {
		out = append(out, threat.New(threat.WebConnection, risk, site.Class, site.Method, summary, details))
	}
	simple := utils.SimpleClassName(call.Owner)

	switch {
	case patterns.WebConnectionClasses.Has(call.Owner):
		risk := threat.Medium
		if patterns.DangerousNetworkMethods.Has(call.Name) {
			risk = threat.High
		}
		details := "Method: " + call.Owner + "." + call.Name + call.Descriptor
		if hasRecent {
			risk = threat.High
			details += "\nURL: " + utils.Truncate(recent, 60)
		}
		add(risk, "Web connection method: "+simple+"."+call.Name, details)
	case patterns.ThirdPartyHTTPPackages.ContainsAny(call.Owner):
		add(threat.Medium, "Third-party HTTP client usage", "Library: "+simple+"\nMethod: "+call.Name)
	case patterns.TLSBypassOwners.ContainsAny(call.Owner) || patterns.TLSBypassMethods.Has(call.Name):
		add(threat.High, "SSL/TLS security bypass attempt",
			"May disable certificate validation: "+simple+"."+call.Name)
	}
	return out
}
