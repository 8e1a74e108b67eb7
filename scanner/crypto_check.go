package scanner

import (
	"strings"

	"jarsentry/classfile"
	"jarsentry/patterns"
	"jarsentry/threat"
	"jarsentry/utils"
)

var algorithmDisplay = map[string]string{
	"BLOWFISH": "Blowfish",
	"TWOFISH":  "Twofish",
}

type cryptoChecker struct{}

func (cryptoChecker) Kind() CheckerKind         { return CheckEncryption }
func (cryptoChecker) Category() threat.Category { return threat.Encryption }

func (cryptoChecker) AnalyzeConstant(site Site, value string) []threat.Finding {
	upper := strings.ToUpper(value)
	one := func(risk threat.RiskLevel, summary, details string) []threat.Finding {
		return []threat.Finding{threat.New(threat.Encryption, risk, site.Class, site.Method, summary, details)}
	}

	if alg, ok := patterns.CipherAlgorithms.First(upper); ok {
		name := alg
		if display, ok := algorithmDisplay[alg]; ok {
			name = display
		}
		return one(threat.AlgorithmRisk(alg), "Encryption algorithm: "+name, "Algorithm string: "+value)
	}
	if hash, ok := patterns.HashAlgorithms.First(upper); ok {
		return one(threat.HashRisk(hash), "Hash algorithm: "+hash, "Algorithm string: "+value)
	}
	if mode, ok := patterns.CipherModes.First(upper); ok {
		risk := threat.Low
		if mode == "ECB" {
			risk = threat.Medium
		}
		return one(risk, "Encryption mode detected: "+mode, "Mode string: "+value)
	}
	if len(value) > 10 && patterns.IsBase64(value) {
		return one(threat.Low, "Potential Base64 encoded data", "Data: "+utils.Truncate(value, 50))
	}
	return nil
}

func (cryptoChecker) AnalyzeCall(site Site, call classfile.MethodCall, recent string, hasRecent bool) []threat.Finding {
	one := func(risk threat.RiskLevel, summary, details string) []threat.Finding {
		return []threat.Finding{threat.New(threat.Encryption, risk, site.Class, site.Method, summary, details)}
	}

	switch {
	case call.Owner == patterns.SecureRandomClass && call.Name == "<init>":
		return one(threat.Low, "Secure random number generation", "May be used for key generation or nonce creation")

	case patterns.CryptoClasses.Has(call.Owner):
		transform := patterns.DataTransformMethods.Has(call.Name)
		risk := threat.Medium
		switch {
		case transform:
			risk = threat.High
		case call.Name == "getInstance":
			risk = threat.Low
		}
		details := "Method: " + call.Owner + "." + call.Name + call.Descriptor
		if hasRecent {
			// doFinal/update with an algorithm in context goes straight to Critical.
			if transform {
				risk = threat.Critical
			} else {
				risk = threat.Escalate(risk)
			}
			details += "\nAlgorithm: " + utils.Truncate(recent, 100)
		}
		summary := "Cryptographic method: " + utils.SimpleClassName(call.Owner) + "." + call.Name
		return one(risk, summary, details)

	case patterns.Base64Classes.Has(call.Owner):
		return one(threat.Low, "Base64 encoding/decoding", "Method: "+call.Name)
	}
	return nil
}
