package scanner

import (
	"strings"

	"jarsentry/classfile"
	"jarsentry/patterns"
	"jarsentry/threat"
	"jarsentry/utils"
)

// commandChecker keeps a string constant in context only when it looked
// like a command; any other literal clears it.
type commandChecker struct{}

func (commandChecker) Kind() CheckerKind         { return CheckCommandExecution }
func (commandChecker) Category() threat.Category { return threat.CommandExecution }

// AnalyzeConstant reports at most one finding per literal: shell names
// first, then destructive commands, then execution flags.
func (commandChecker) AnalyzeConstant(site Site, value string) []threat.Finding {
	lower := strings.ToLower(value)
	one := func(risk threat.RiskLevel, summary, details string) []threat.Finding {
		return []threat.Finding{threat.New(threat.CommandExecution, risk, site.Class, site.Method, summary, details)}
	}

	if shell, ok := patterns.ShellCommands.First(lower); ok {
		return one(threat.High, "Shell command found: "+shell, "Command string: "+utils.Truncate(value, 100))
	}
	if cmd, ok := patterns.DangerousCommands.First(lower); ok {
		return one(threat.Critical, "Dangerous command: "+strings.TrimSpace(cmd), "Full command: "+utils.Truncate(value, 100))
	}
	if _, ok := patterns.ExecutionFlags.First(lower); ok {
		return one(threat.High, "Command execution flag detected", "Command: "+utils.Truncate(value, 100))
	}
	return nil
}

func (commandChecker) RetainContext(_ string, produced []threat.Finding) bool {
	return len(produced) > 0
}

func (commandChecker) AnalyzeNewArray(site Site, elementType string) []threat.Finding {
	if elementType != patterns.StringClass {
		return nil
	}
	return []threat.Finding{threat.New(threat.CommandExecution, threat.Medium, site.Class, site.Method,
		"String array creation (potential command arguments)", "Array type: "+elementType)}
}

func (commandChecker) AnalyzeCall(site Site, call classfile.MethodCall, recent string, hasRecent bool) []threat.Finding {
	switch {
	case patterns.CommandExecutionClasses.Has(call.Owner):
		risk := threat.Medium
		if patterns.DangerousNetworkMethods.Has(call.Name) {
			risk = threat.High
		}
		details := "Method: " + call.Owner + "." + call.Name + call.Descriptor
		if hasRecent {
			risk = threat.Critical
			details += "\nPotential command: " + utils.Truncate(recent, 100)
		}
		summary := "Command execution method: " + utils.SimpleClassName(call.Owner) + "." + call.Name
		return []threat.Finding{threat.New(threat.CommandExecution, risk, site.Class, site.Method, summary, details)}

	case call.Owner == patterns.SystemClass && patterns.SystemInfoMethods.Has(call.Name):
		return []threat.Finding{threat.New(threat.CommandExecution, threat.Low, site.Class, site.Method,
			"System information access: "+call.Name, "May be used for environment reconnaissance")}
	}
	return nil
}
