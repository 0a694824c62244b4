// Package diff implements the kind-level differ and the table-structure
// differ: it partitions object names between two snapshots and, for tables
// present on both sides, computes an ordered TableDelta of atomic
// column/index/foreign-key/option changes.
package diff

import (
	"sort"
	"strings"

	"github.com/dbddl/ddlwizard/internal/ddlparse"
	"github.com/dbddl/ddlwizard/internal/model"
)

// Compute produces the full Diff between source and dest snapshots.
// Parser failures on a table's DDL are recoverable: if both sides fail to
// parse, the table falls back to whitespace-normalized string comparison
// and, on inequality, an empty-but-flagged delta is not fabricated —
// instead a diagnostic entry is appended to the returned warnings.
func Compute(source, dest *model.Snapshot) (*model.Diff, []string) {
	d := model.NewDiff(source.Schema, dest.Schema)
	var warnings []string

	for _, kind := range model.AllKinds() {
		kd := partition(source.Names(kind), dest.Names(kind))
		d.PerKind[kind] = kd

		if kind == model.KindTable {
			deltas, w := diffTables(source, dest, kd.InBoth)
			for name, delta := range deltas {
				d.TableDeltas[name] = delta
			}
			warnings = append(warnings, w...)
			continue
		}

		var changed []string
		for _, name := range kd.InBoth {
			srcRec, _ := source.ByName(kind, name)
			dstRec, _ := dest.ByName(kind, name)
			if srcRec.DDL == "" || dstRec.DDL == "" {
				// A per-object DDL extraction failure: skip the comparison.
				continue
			}
			if normalizeDDL(srcRec.DDL) != normalizeDDL(dstRec.DDL) {
				changed = append(changed, name)
			}
		}
		sort.Strings(changed)
		d.ChangedNonTable[kind] = changed
	}

	return d, warnings
}

func normalizeDDL(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// partition splits source and dest name lists into only-in-source,
// only-in-dest, and in-both, each sorted.
func partition(sourceNames, destNames []string) model.KindDiff {
	srcSet := toSet(sourceNames)
	dstSet := toSet(destNames)

	var onlySrc, onlyDst, both []string
	for name := range srcSet {
		if _, ok := dstSet[name]; ok {
			both = append(both, name)
		} else {
			onlySrc = append(onlySrc, name)
		}
	}
	for name := range dstSet {
		if _, ok := srcSet[name]; !ok {
			onlyDst = append(onlyDst, name)
		}
	}
	sort.Strings(onlySrc)
	sort.Strings(onlyDst)
	sort.Strings(both)
	return model.KindDiff{OnlyInSource: onlySrc, OnlyInDest: onlyDst, InBoth: both}
}

func toSet(names []string) map[string]struct{} {
	m := make(map[string]struct{}, len(names))
	for _, n := range names {
		m[n] = struct{}{}
	}
	return m
}

// diffTables computes a TableDelta for each name in names whose parsed
// representations differ.
func diffTables(source, dest *model.Snapshot, names []string) (map[string]*model.TableDelta, []string) {
	deltas := make(map[string]*model.TableDelta)
	var warnings []string

	for _, name := range names {
		srcRec, _ := source.ByName(model.KindTable, name)
		dstRec, _ := dest.ByName(model.KindTable, name)

		if srcRec.DDL == "" || dstRec.DDL == "" {
			// A per-object DDL extraction failure — skip comparison
			// entirely rather than fabricate a delta from a parse of
			// nothing.
			continue
		}

		srcTable, _, srcErr := ddlparse.ParseCreateTable(srcRec.DDL)
		dstTable, _, dstErr := ddlparse.ParseCreateTable(dstRec.DDL)

		if srcErr != nil || dstErr != nil {
			if srcErr != nil && dstErr != nil {
				if normalizeDDL(srcRec.DDL) != normalizeDDL(dstRec.DDL) {
					warnings = append(warnings, "table "+name+": both sides failed to parse and raw DDL differs; emitting no delta")
				}
				continue
			}
			which := "source"
			err := srcErr
			if dstErr != nil {
				which = "dest"
				err = dstErr
			}
			warnings = append(warnings, "table "+name+": "+which+" DDL failed to parse: "+err.Error())
			continue
		}

		if srcTable.Equal(dstTable) {
			continue
		}

		delta := compareTables(name, srcTable, dstTable)
		if delta != nil {
			deltas[name] = delta
		}
	}

	return deltas, warnings
}

// compareTables implements the fixed emission order: columns, then
// indexes, then foreign keys, then options. The tie-break sort is applied
// within each of those four parts.
func compareTables(name string, src, dst *model.Table) *model.TableDelta {
	var changes []Change

	for _, part := range [][]Change{
		diffColumns(src, dst),
		diffIndexes(src, dst),
		diffForeignKeys(src, dst),
		diffOptions(src, dst),
	} {
		sortChanges(part)
		changes = append(changes, part...)
	}

	if len(changes) == 0 {
		return nil
	}

	delta := &model.TableDelta{TableName: name}
	for _, c := range changes {
		delta.Changes = append(delta.Changes, c.Change)
	}
	return delta
}

// Change wraps a model.Change with the sort keys needed to implement the
// tie-break rule: drops first, then modifies, then adds; within each
// sub-group, alphabetical by affected name.
type Change struct {
	model.Change
	group int // 0=drop, 1=modify, 2=add
	name  string
}

func sortChanges(changes []Change) {
	sort.SliceStable(changes, func(i, j int) bool {
		if changes[i].group != changes[j].group {
			return changes[i].group < changes[j].group
		}
		return changes[i].name < changes[j].name
	})
}

func diffColumns(src, dst *model.Table) []Change {
	var changes []Change

	srcByName := make(map[string]model.Column, len(src.Columns))
	for _, c := range src.Columns {
		srcByName[c.Name] = c
	}
	dstByName := make(map[string]model.Column, len(dst.Columns))
	for _, c := range dst.Columns {
		dstByName[c.Name] = c
	}

	var prevInSource *string
	for _, c := range src.Columns {
		c := c
		if _, ok := dstByName[c.Name]; !ok {
			after := prevInSource
			changes = append(changes, Change{
				Change: model.Change{Op: model.OpAddColumn, ColumnName: c.Name, NewColumn: &c, After: after},
				group:  2, name: c.Name,
			})
		}
		name := c.Name
		prevInSource = &name
	}

	for _, c := range dst.Columns {
		if _, ok := srcByName[c.Name]; !ok {
			c := c
			changes = append(changes, Change{
				Change: model.Change{Op: model.OpDropColumn, ColumnName: c.Name, OldColumn: &c},
				group:  0, name: c.Name,
			})
		}
	}

	for _, sc := range src.Columns {
		dc, ok := dstByName[sc.Name]
		if !ok || sc.Equal(dc) {
			continue
		}
		sc, dc := sc, dc
		changes = append(changes, Change{
			Change: model.Change{Op: model.OpModifyColumn, ColumnName: sc.Name, OldColumn: &dc, NewColumn: &sc},
			group:  1, name: sc.Name,
		})
	}

	return changes
}

func diffIndexes(src, dst *model.Table) []Change {
	var changes []Change

	srcByName := make(map[string]model.Index, len(src.Indexes))
	for _, i := range src.Indexes {
		srcByName[i.Name] = i
	}
	dstByName := make(map[string]model.Index, len(dst.Indexes))
	for _, i := range dst.Indexes {
		dstByName[i.Name] = i
	}

	for _, i := range src.Indexes {
		if _, ok := dstByName[i.Name]; !ok {
			i := i
			changes = append(changes, Change{
				Change: model.Change{Op: model.OpAddIndex, IndexName: i.Name, NewIndex: &i},
				group:  2, name: i.Name,
			})
		}
	}
	for _, i := range dst.Indexes {
		if _, ok := srcByName[i.Name]; !ok {
			changes = append(changes, Change{
				Change: model.Change{Op: model.OpDropIndex, IndexName: i.Name},
				group:  0, name: i.Name,
			})
		}
	}
	for _, si := range src.Indexes {
		di, ok := dstByName[si.Name]
		if !ok || si.Equal(di) {
			continue
		}
		si := si
		// Never a single ALTER: modification of an index is drop+add of
		// the same name.
		changes = append(changes, Change{
			Change: model.Change{Op: model.OpDropIndex, IndexName: si.Name},
			group:  0, name: si.Name,
		})
		changes = append(changes, Change{
			Change: model.Change{Op: model.OpAddIndex, IndexName: si.Name, NewIndex: &si},
			group:  2, name: si.Name,
		})
	}

	return changes
}

func diffForeignKeys(src, dst *model.Table) []Change {
	var changes []Change

	srcByName := make(map[string]model.ForeignKey, len(src.ForeignKeys))
	for _, f := range src.ForeignKeys {
		srcByName[f.Name] = f
	}
	dstByName := make(map[string]model.ForeignKey, len(dst.ForeignKeys))
	for _, f := range dst.ForeignKeys {
		dstByName[f.Name] = f
	}

	for _, f := range src.ForeignKeys {
		if _, ok := dstByName[f.Name]; !ok {
			f := f
			changes = append(changes, Change{
				Change: model.Change{Op: model.OpAddForeignKey, FKName: f.Name, NewFK: &f},
				group:  2, name: f.Name,
			})
		}
	}
	for _, f := range dst.ForeignKeys {
		if _, ok := srcByName[f.Name]; !ok {
			changes = append(changes, Change{
				Change: model.Change{Op: model.OpDropForeignKey, FKName: f.Name},
				group:  0, name: f.Name,
			})
		}
	}
	for _, sf := range src.ForeignKeys {
		df, ok := dstByName[sf.Name]
		if !ok || sf.Equal(df) {
			continue
		}
		sf := sf
		changes = append(changes, Change{
			Change: model.Change{Op: model.OpDropForeignKey, FKName: sf.Name},
			group:  0, name: sf.Name,
		})
		changes = append(changes, Change{
			Change: model.Change{Op: model.OpAddForeignKey, FKName: sf.Name, NewFK: &sf},
			group:  2, name: sf.Name,
		})
	}

	return changes
}

func diffOptions(src, dst *model.Table) []Change {
	var changes []Change
	pairs := []struct {
		key      string
		srcValue string
		dstValue string
	}{
		{"ENGINE", src.Options.Engine, dst.Options.Engine},
		{"DEFAULT CHARSET", src.Options.DefaultCharset, dst.Options.DefaultCharset},
		{"COLLATE", src.Options.Collate, dst.Options.Collate},
		{"COMMENT", src.Options.Comment, dst.Options.Comment},
	}
	for _, p := range pairs {
		if p.srcValue == p.dstValue {
			continue
		}
		changes = append(changes, Change{
			Change: model.Change{Op: model.OpSetOption, OptionKey: p.key, OldValue: p.dstValue, NewValue: p.srcValue},
			group:  1, name: p.key,
		})
	}
	return changes
}
