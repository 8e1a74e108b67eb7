package output

import (
	"io"
	"strings"

	"github.com/owenrumney/go-sarif/v2/sarif"

	"jarsentry/threat"
)

func sarifLevel(r threat.RiskLevel) string {
	switch r {
	case threat.Critical, threat.High:
		return "error"
	case threat.Medium:
		return "warning"
	default:
		return "note"
	}
}

// writeSARIF renders r as a SARIF 2.1.0 log. informationURI is only set on
// the driver when one is configured.
func writeSARIF(out io.Writer, r *Report, informationURI string) error {
	report, err := sarif.New(sarif.Version210)
	if err != nil {
		return err
	}
	var run *sarif.Run
	if informationURI != "" {
		run = sarif.NewRunWithInformationURI(r.Tool, informationURI)
	} else {
		run = sarif.NewRun(*sarif.NewSimpleTool(r.Tool))
	}

	for _, c := range threat.Categories() {
		run.AddRule(c.ID()).
			WithName(strings.ReplaceAll(c.String(), " ", "")).
			WithDescription(c.String())
	}

	for _, f := range r.Findings {
		msg := f.Summary
		if f.Details != "" {
			msg += "\n" + f.Details
		}
		loc := sarif.NewPhysicalLocation().
			WithArtifactLocation(sarif.NewArtifactLocation().WithUri(r.EntryFor(f.Class)))
		if f.Line > 0 {
			loc = loc.WithRegion(sarif.NewRegion().WithStartLine(f.Line))
		}
		location := sarif.NewLocation().WithPhysicalLocation(loc)

		result := sarif.NewRuleResult(f.Category.ID()).
			WithMessage(sarif.NewTextMessage(msg)).
			WithLevel(sarifLevel(f.Risk)).
			WithLocations([]*sarif.Location{location})
		result.PropertyBag = *sarif.NewPropertyBag()
		result.Add("risk", f.Risk.String())
		result.Add("class", f.Class)
		result.Add("method", f.Method)
		run.AddResult(result)
	}

	run.Properties = map[string]interface{}{
		"scan_id":        r.ScanID,
		"schema_version": r.SchemaVersion,
		"archive":        r.Archive.Path,
		"version":        r.Version,
	}
	report.AddRun(run)
	return report.PrettyWrite(out)
}
