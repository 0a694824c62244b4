// Package plan implements the forward and reverse migration planners: given
// a Diff and the two snapshots it was computed from, it produces an ordered
// list of sections, each holding the SQL statements needed to turn dest into
// source (forward) or back again (reverse).
package plan

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dbddl/ddlwizard/internal/diff"
	"github.com/dbddl/ddlwizard/internal/model"
)

// Statement is one SQL statement plus the short comment the serializer
// prints directly above it.
type Statement struct {
	Comment string
	SQL     string
	Warning string
}

// Section is one of the fixed TABLES/PROCEDURES/FUNCTIONS/TRIGGERS/
// EVENTS/VIEWS/SEQUENCES groups, always present even when empty.
type Section struct {
	Title      string
	Statements []Statement
}

// Plan is the full ordered output of a planner run.
type Plan struct {
	Sections []Section
}

type routineSpec struct {
	kind      model.ObjectKind
	title     string
	keyword   string
	dropWord  string
	delimited bool
}

var routineOrder = []routineSpec{
	{model.KindProcedure, "PROCEDURES", "PROCEDURE", "PROCEDURE", true},
	{model.KindFunction, "FUNCTIONS", "FUNCTION", "FUNCTION", true},
	{model.KindTrigger, "TRIGGERS", "TRIGGER", "TRIGGER", true},
	{model.KindEvent, "EVENTS", "EVENT", "EVENT", false},
	{model.KindView, "VIEWS", "VIEW", "VIEW", false},
	{model.KindSequence, "SEQUENCES", "SEQUENCE", "SEQUENCE", false},
}

// Forward builds the migration plan that turns toSnap (dest) into fromSnap
// (source), using d (computed as diff.Compute(fromSnap, toSnap)).
func Forward(d *model.Diff, fromSnap, toSnap *model.Snapshot) *Plan {
	p := &Plan{}
	p.Sections = append(p.Sections, tablesSection(d, fromSnap, toSnap))
	for _, rs := range routineOrder {
		p.Sections = append(p.Sections, routineSection(d, fromSnap, toSnap, rs))
	}
	return p
}

// Reverse builds the rollback plan for a migration already described by
// diff.Compute(source, dest): it reruns the planner on the diff computed
// with the snapshot roles swapped, which naturally recreates dropped
// objects from their DEST-captured DDL and inverts every table delta.
//
// rollback.sql always executes against dest, the database the forward
// migration was applied to, so every statement in the reverse plan must be
// qualified with dest's schema regardless of which snapshot plays the
// diff's "source" role — hence dest is passed for both the DDL-source and
// the qualifying snapshot.
func Reverse(source, dest *model.Snapshot) (*Plan, []string) {
	d, warnings := diff.Compute(dest, source)
	return Forward(d, dest, dest), warnings
}

func tablesSection(d *model.Diff, fromSnap, toSnap *model.Snapshot) Section {
	sec := Section{Title: "TABLES"}
	kd := d.PerKind[model.KindTable]

	for _, name := range kd.OnlyInSource {
		rec, ok := fromSnap.ByName(model.KindTable, name)
		if !ok || rec.DDL == "" {
			continue
		}
		sql := qualifyDDL(rec.DDL, "TABLE", toSnap.Schema, name) + ";"
		sec.Statements = append(sec.Statements, Statement{
			Comment: fmt.Sprintf("create table %s.%s", toSnap.Schema, name),
			SQL:     sql,
		})
	}

	for _, name := range kd.OnlyInDest {
		sec.Statements = append(sec.Statements, Statement{
			Comment: fmt.Sprintf("drop table %s.%s", toSnap.Schema, name),
			SQL:     "DROP TABLE IF EXISTS " + qualifiedIdent(toSnap.Schema, name) + ";",
			Warning: tableDropWarning(name),
		})
	}

	names := make([]string, 0, len(d.TableDeltas))
	for name := range d.TableDeltas {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		delta := d.TableDeltas[name]
		for _, c := range reorderForEmission(delta.Changes) {
			warning := c.Warning
			if warning == "" {
				warning = changeWarning(c)
			}
			stmt := Statement{
				Comment: fmt.Sprintf("%s on %s.%s", c.Op, toSnap.Schema, name),
				SQL:     tableChangeSQL(toSnap.Schema, name, c),
				Warning: warning,
			}
			sec.Statements = append(sec.Statements, stmt)
		}
	}

	return sec
}

// reorderForEmission regroups a TableDelta's changes (stored in diff-
// detection order) into the intra-table SQL emission order: drop FKs,
// drop indexes, modify/drop/add columns, add indexes, add FKs, options.
func reorderForEmission(changes []model.Change) []model.Change {
	phase := func(op model.ChangeOp) int {
		switch op {
		case model.OpDropForeignKey:
			return 0
		case model.OpDropIndex:
			return 1
		case model.OpModifyColumn:
			return 2
		case model.OpDropColumn:
			return 3
		case model.OpAddColumn:
			return 4
		case model.OpAddIndex:
			return 5
		case model.OpAddForeignKey:
			return 6
		case model.OpSetOption:
			return 7
		default:
			return 8
		}
	}
	out := make([]model.Change, len(changes))
	copy(out, changes)
	sort.SliceStable(out, func(i, j int) bool { return phase(out[i].Op) < phase(out[j].Op) })
	return out
}

func routineSection(d *model.Diff, fromSnap, toSnap *model.Snapshot, rs routineSpec) Section {
	sec := Section{Title: rs.title}
	kd := d.PerKind[rs.kind]

	for _, name := range kd.OnlyInDest {
		sec.Statements = append(sec.Statements, Statement{
			Comment: fmt.Sprintf("drop %s %s.%s", strings.ToLower(rs.dropWord), toSnap.Schema, name),
			SQL:     fmt.Sprintf("DROP %s IF EXISTS %s;", rs.dropWord, qualifiedIdent(toSnap.Schema, name)),
		})
	}

	var toCreate []string
	toCreate = append(toCreate, kd.OnlyInSource...)
	changed := d.ChangedNonTable[rs.kind]
	for _, name := range changed {
		sec.Statements = append(sec.Statements, Statement{
			Comment: fmt.Sprintf("drop %s %s.%s (changed, recreated below)", strings.ToLower(rs.dropWord), toSnap.Schema, name),
			SQL:     fmt.Sprintf("DROP %s IF EXISTS %s;", rs.dropWord, qualifiedIdent(toSnap.Schema, name)),
		})
	}
	toCreate = append(toCreate, changed...)
	if rs.kind == model.KindProcedure || rs.kind == model.KindFunction {
		toCreate = orderRoutinesByDependency(toCreate, fromSnap, rs.kind)
	} else {
		sort.Strings(toCreate)
	}

	for _, name := range toCreate {
		rec, ok := fromSnap.ByName(rs.kind, name)
		if !ok || rec.DDL == "" {
			continue
		}
		body := qualifyDDL(rec.DDL, rs.keyword, toSnap.Schema, name)
		sql := wrapStatement(body, rs.delimited)
		sec.Statements = append(sec.Statements, Statement{
			Comment: fmt.Sprintf("create %s %s.%s", strings.ToLower(rs.keyword), toSnap.Schema, name),
			SQL:     sql,
		})
	}

	return sec
}

// orderRoutinesByDependency places a routine's callees before it when one
// routine's DDL body invokes another by name (a CALL statement or a bare
// function-call-shaped reference), so CREATE statements don't forward-
// reference a not-yet-created routine. This is a best-effort,
// string-containment heuristic, not real dependency analysis: ties (no
// detected relationship) fall back to alphabetical order, keeping the
// result deterministic.
func orderRoutinesByDependency(names []string, fromSnap *model.Snapshot, kind model.ObjectKind) []string {
	sorted := make([]string, len(names))
	copy(sorted, names)
	sort.Strings(sorted)

	ddl := make(map[string]string, len(sorted))
	for _, n := range sorted {
		if rec, ok := fromSnap.ByName(kind, n); ok {
			ddl[n] = rec.DDL
		}
	}

	invokes := func(caller, callee string) bool {
		if caller == callee {
			return false
		}
		body := ddl[caller]
		if body == "" {
			return false
		}
		return strings.Contains(body, "CALL "+callee) ||
			strings.Contains(body, "CALL `"+callee+"`") ||
			strings.Contains(body, callee+"(") ||
			strings.Contains(body, "`"+callee+"`(")
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		if invokes(sorted[i], sorted[j]) {
			return false
		}
		if invokes(sorted[j], sorted[i]) {
			return true
		}
		return sorted[i] < sorted[j]
	})
	return sorted
}

// wrapStatement wraps a CREATE ... body in DELIMITER $$ / DELIMITER ; for
// stored-code kinds, or terminates with a bare semicolon for
// events/views/sequences.
func wrapStatement(body string, delimited bool) string {
	body = strings.TrimRight(strings.TrimSpace(body), ";")
	if !delimited {
		return body + ";"
	}
	return "DELIMITER $$\n" + body + "$$\nDELIMITER ;"
}
