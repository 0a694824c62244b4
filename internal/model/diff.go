package model

import "sort"

// KindDiff partitions the names of one ObjectKind between two snapshots.
// All three lists are sorted; downstream iteration must not re-sort or
// reorder them from a map.
type KindDiff struct {
	OnlyInSource []string
	OnlyInDest   []string
	InBoth       []string
}

// Diff is the full comparison of two snapshots.
type Diff struct {
	SourceSchema string
	DestSchema   string

	PerKind map[ObjectKind]KindDiff

	// ChangedNonTable holds, for each non-table kind, the subset of
	// PerKind[kind].InBoth whose DDL differs after whitespace
	// normalization. Table changes are tracked in TableDeltas instead,
	// since tables get structural diffs rather than a single drop+create.
	ChangedNonTable map[ObjectKind][]string

	// TableDeltas holds, for every table name in
	// PerKind[KindTable].InBoth whose parsed representations differ, the
	// ordered list of atomic changes needed to turn Dest into Source.
	TableDeltas map[string]*TableDelta
}

// NewDiff returns an empty Diff with all maps initialized.
func NewDiff(sourceSchema, destSchema string) *Diff {
	return &Diff{
		SourceSchema:    sourceSchema,
		DestSchema:      destSchema,
		PerKind:         make(map[ObjectKind]KindDiff),
		ChangedNonTable: make(map[ObjectKind][]string),
		TableDeltas:     make(map[string]*TableDelta),
	}
}

// IsEmpty reports whether the diff contains zero changes of any kind.
func (d *Diff) IsEmpty() bool {
	for _, kd := range d.PerKind {
		if len(kd.OnlyInSource) > 0 || len(kd.OnlyInDest) > 0 {
			return false
		}
	}
	for _, names := range d.ChangedNonTable {
		if len(names) > 0 {
			return false
		}
	}
	return len(d.TableDeltas) == 0
}

// ChangeOp is the kind of one atomic table change.
type ChangeOp string

const (
	OpAddColumn      ChangeOp = "add_column"
	OpDropColumn     ChangeOp = "drop_column"
	OpModifyColumn   ChangeOp = "modify_column"
	OpAddIndex       ChangeOp = "add_index"
	OpDropIndex      ChangeOp = "drop_index"
	OpAddForeignKey  ChangeOp = "add_foreign_key"
	OpDropForeignKey ChangeOp = "drop_foreign_key"
	OpSetOption      ChangeOp = "set_option"
)

// Change is one atomic entry in a TableDelta. Which fields are populated
// depends on Op; see the ChangeOp constants.
type Change struct {
	Op ChangeOp

	// add_column / drop_column / modify_column
	ColumnName string
	NewColumn  *Column // add_column, modify_column (new value)
	OldColumn  *Column // modify_column (old value)
	After      *string // add_column: predecessor column name, nil if first

	// add_index / drop_index
	IndexName string
	NewIndex  *Index

	// add_foreign_key / drop_foreign_key
	FKName string
	NewFK  *ForeignKey

	// set_option
	OptionKey string
	OldValue  string
	NewValue  string

	// Warning, when non-empty, is a supplementary data-loss / narrowing
	// advisory the serializer renders as a "-- WARNING: ..." comment
	// directly above the statement this change produces.
	Warning string
}

// TableDelta is the structured difference between the source and dest
// parsed representations of one table.
type TableDelta struct {
	TableName string
	Changes   []Change
}

// Summary renders a human-readable, SQL-independent projection of the
// diff, one line per kind-level addition/removal/change and one line per
// table delta entry, for the optional diff_report.txt the CLI may write
// alongside migration.sql/rollback.sql.
func (d *Diff) Summary() []string {
	var lines []string

	for _, kind := range AllKinds() {
		kd := d.PerKind[kind]
		for _, n := range kd.OnlyInSource {
			lines = append(lines, string(kind)+" added: "+n)
		}
		for _, n := range kd.OnlyInDest {
			lines = append(lines, string(kind)+" removed: "+n)
		}
		if kind == KindTable {
			continue
		}
		for _, n := range d.ChangedNonTable[kind] {
			lines = append(lines, string(kind)+" changed: "+n)
		}
	}

	var tableNames []string
	for name := range d.TableDeltas {
		tableNames = append(tableNames, name)
	}
	sort.Strings(tableNames)
	for _, name := range tableNames {
		for _, c := range d.TableDeltas[name].Changes {
			lines = append(lines, "table "+name+": "+string(c.Op)+" "+changeSubject(c))
		}
	}

	return lines
}

func changeSubject(c Change) string {
	switch c.Op {
	case OpAddColumn, OpDropColumn, OpModifyColumn:
		return c.ColumnName
	case OpAddIndex, OpDropIndex:
		return c.IndexName
	case OpAddForeignKey, OpDropForeignKey:
		return c.FKName
	case OpSetOption:
		return c.OptionKey
	default:
		return ""
	}
}
