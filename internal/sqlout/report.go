package sqlout

import (
	"strings"

	"github.com/dbddl/ddlwizard/internal/model"
)

// RenderDiffReport produces the optional diff_report.txt: a human-readable
// projection of d.Summary(), independent of the SQL plan, for review
// without executing anything.
func RenderDiffReport(d *model.Diff) string {
	lines := d.Summary()
	if len(lines) == 0 {
		return "no differences between source and dest schemas.\n"
	}
	var b strings.Builder
	b.WriteString("diff report: " + d.SourceSchema + " -> " + d.DestSchema + "\n\n")
	for _, l := range lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	return b.String()
}
