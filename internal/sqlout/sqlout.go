// Package sqlout serializes a plan.Plan to the two UTF-8 SQL files the core
// produces: a timestamped header, fixed section banners, a per-statement
// comment, and a trailing completion footer.
package sqlout

import (
	"fmt"
	"strings"
	"time"

	"github.com/dbddl/ddlwizard/internal/plan"
)

// Render serializes p into one SQL script. generatedAt is embedded in the
// header as an ISO-8601 timestamp; two runs against a quiescent pair of
// schemas differ only in this line.
func Render(p *plan.Plan, sourceSchema, destSchema string, generatedAt time.Time) string {
	var b strings.Builder
	writeHeader(&b, sourceSchema, destSchema, generatedAt)
	b.WriteString("SET FOREIGN_KEY_CHECKS = 0;\n\n")
	for _, sec := range p.Sections {
		writeSection(&b, sec)
	}
	b.WriteString("SET FOREIGN_KEY_CHECKS = 1;\n\n")
	b.WriteString("-- script completed.\n")
	return b.String()
}

func writeHeader(b *strings.Builder, source, dest string, t time.Time) {
	fmt.Fprintf(b, "-- ddlwizard migration script\n")
	fmt.Fprintf(b, "-- source schema: %s\n", source)
	fmt.Fprintf(b, "-- dest schema:   %s\n", dest)
	fmt.Fprintf(b, "-- generated:     %s\n", t.Format(time.RFC3339))
	fmt.Fprintf(b, "-- review this script before executing it against a production database.\n\n")
}

func writeSection(b *strings.Builder, sec plan.Section) {
	fmt.Fprintf(b, "-- %s CHANGES\n", sec.Title)
	if len(sec.Statements) == 0 {
		b.WriteString("-- (no changes)\n\n")
		return
	}
	for _, st := range sec.Statements {
		if st.Comment != "" {
			fmt.Fprintf(b, "-- %s\n", st.Comment)
		}
		if st.Warning != "" {
			fmt.Fprintf(b, "-- WARNING: %s\n", st.Warning)
		}
		b.WriteString(st.SQL)
		b.WriteString("\n\n")
	}
}
