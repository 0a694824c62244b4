// Package model holds the structured representations shared by every stage
// of the pipeline: the raw snapshot taken by the introspector, the parsed
// table shape produced by the differ, and the diff/delta types the planner
// consumes.
package model

import "strings"

// ObjectKind is a closed enumeration of the database object kinds the
// introspector tracks.
type ObjectKind string

const (
	KindTable     ObjectKind = "table"
	KindView      ObjectKind = "view"
	KindProcedure ObjectKind = "procedure"
	KindFunction  ObjectKind = "function"
	KindTrigger   ObjectKind = "trigger"
	KindEvent     ObjectKind = "event"
	KindSequence  ObjectKind = "sequence"
)

// AllKinds lists every ObjectKind in the fixed order sections are emitted in
// (tables first, then stored code, then scheduled/derived objects). Callers
// that need the forward-planner section order should range over this slice
// directly rather than rebuilding it.
func AllKinds() []ObjectKind {
	return []ObjectKind{
		KindTable,
		KindProcedure,
		KindFunction,
		KindTrigger,
		KindEvent,
		KindView,
		KindSequence,
	}
}

// ObjectRef identifies an object within one schema.
type ObjectRef struct {
	Kind ObjectKind
	Name string
}

// ObjectRecord is an ObjectRef plus the exact CREATE text the database
// returned. DDL is empty only when extraction failed for this object;
// downstream stages must treat an empty DDL as "skip this object".
type ObjectRecord struct {
	ObjectRef
	DDL string
}

// Snapshot is the full set of objects of all kinds in one schema, as
// returned by the introspector. Lists are sorted by name; every downstream
// stage must preserve this order rather than re-deriving it from a map.
type Snapshot struct {
	Schema  string
	Objects map[ObjectKind][]ObjectRecord
}

// ByName returns the record for name in kind, or (zero, false) if absent.
func (s *Snapshot) ByName(kind ObjectKind, name string) (ObjectRecord, bool) {
	for _, rec := range s.Objects[kind] {
		if rec.Name == name {
			return rec, true
		}
	}
	return ObjectRecord{}, false
}

// Names returns the sorted list of object names for kind.
func (s *Snapshot) Names(kind ObjectKind) []string {
	recs := s.Objects[kind]
	names := make([]string, len(recs))
	for i, r := range recs {
		names[i] = r.Name
	}
	return names
}

// --- Parsed table model (object kind "table" only) ---

// Column is one column of a parsed CREATE TABLE.
type Column struct {
	Name     string
	Type     string // full type text, whitespace-collapsed
	Nullable bool
	Default  *string
	Extra    string // AUTO_INCREMENT, ON UPDATE ..., generated-column expression
	Comment  string
}

// Equal reports field-wise equality after whitespace normalization of Type.
func (c Column) Equal(o Column) bool {
	if c.Name != o.Name {
		return false
	}
	if collapseWS(c.Type) != collapseWS(o.Type) {
		return false
	}
	if c.Nullable != o.Nullable {
		return false
	}
	if !strPtrEqual(c.Default, o.Default) {
		return false
	}
	if collapseWS(c.Extra) != collapseWS(o.Extra) {
		return false
	}
	if c.Comment != o.Comment {
		return false
	}
	return true
}

func strPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func collapseWS(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}

// IndexKind is the kind of a table index.
type IndexKind string

const (
	IndexPrimary  IndexKind = "primary"
	IndexUnique   IndexKind = "unique"
	IndexKey      IndexKind = "key"
	IndexFulltext IndexKind = "fulltext"
)

// IndexColumn is one column participating in an index, with its optional
// prefix length (e.g. `name(10)`).
type IndexColumn struct {
	Name   string
	Prefix *int
}

func (a IndexColumn) Equal(b IndexColumn) bool {
	if a.Name != b.Name {
		return false
	}
	if (a.Prefix == nil) != (b.Prefix == nil) {
		return false
	}
	if a.Prefix != nil && *a.Prefix != *b.Prefix {
		return false
	}
	return true
}

// Index is a PRIMARY KEY, UNIQUE KEY, KEY, or FULLTEXT KEY.
type Index struct {
	Name    string
	Kind    IndexKind
	Columns []IndexColumn
	Options string // e.g. "USING BTREE"
}

// Equal compares kind, ordered column sequence, and options.
func (i Index) Equal(o Index) bool {
	if i.Kind != o.Kind {
		return false
	}
	if collapseWS(i.Options) != collapseWS(o.Options) {
		return false
	}
	if len(i.Columns) != len(o.Columns) {
		return false
	}
	for k := range i.Columns {
		if !i.Columns[k].Equal(o.Columns[k]) {
			return false
		}
	}
	return true
}

// ForeignKey is a named FOREIGN KEY constraint.
type ForeignKey struct {
	Name         string
	LocalColumns []string
	RefTable     string
	RefColumns   []string
	OnDelete     string
	OnUpdate     string
}

// normalizeRule defaults an absent referential action to RESTRICT, the
// MySQL/MariaDB implicit default, so foreign keys compare by structural
// referential action rather than by raw DDL text.
func normalizeRule(rule string) string {
	rule = strings.ToUpper(strings.TrimSpace(rule))
	if rule == "" {
		return "RESTRICT"
	}
	return rule
}

// Equal compares local/ref column sequences and normalized referential actions.
func (f ForeignKey) Equal(o ForeignKey) bool {
	if !strSliceEqual(f.LocalColumns, o.LocalColumns) {
		return false
	}
	if f.RefTable != o.RefTable {
		return false
	}
	if !strSliceEqual(f.RefColumns, o.RefColumns) {
		return false
	}
	if normalizeRule(f.OnDelete) != normalizeRule(o.OnDelete) {
		return false
	}
	if normalizeRule(f.OnUpdate) != normalizeRule(o.OnUpdate) {
		return false
	}
	return true
}

func strSliceEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// TableOptions is the subset of table-level options tracked by this system.
// AUTO_INCREMENT is deliberately not a field here: it is parsed and
// discarded by the parser so insert activity never looks like schema drift.
type TableOptions struct {
	Engine         string
	DefaultCharset string
	Collate        string
	Comment        string
}

func (t TableOptions) Equal(o TableOptions) bool {
	return t.Engine == o.Engine &&
		t.DefaultCharset == o.DefaultCharset &&
		t.Collate == o.Collate &&
		t.Comment == o.Comment
}

// Table is the parsed form of a CREATE TABLE statement.
type Table struct {
	Name        string
	Columns     []Column     // declaration order
	Indexes     []Index      // keyed by name; order here is declaration order
	ForeignKeys []ForeignKey // keyed by name; order here is declaration order
	Options     TableOptions
}

// Equal reports whether two parsed tables are structurally identical:
// same columns in the same order, same indexes and foreign keys (by name,
// order-independent), and same tracked options. Used to decide whether a
// table in tables.in_both actually changed.
func (t *Table) Equal(o *Table) bool {
	if t == nil || o == nil {
		return t == o
	}
	if t.Name != o.Name {
		return false
	}
	if len(t.Columns) != len(o.Columns) {
		return false
	}
	for i := range t.Columns {
		if !t.Columns[i].Equal(o.Columns[i]) {
			return false
		}
	}
	if !indexSetEqual(t.Indexes, o.Indexes) {
		return false
	}
	if !fkSetEqual(t.ForeignKeys, o.ForeignKeys) {
		return false
	}
	return t.Options.Equal(o.Options)
}

func indexSetEqual(a, b []Index) bool {
	if len(a) != len(b) {
		return false
	}
	am := indexByName(a)
	bm := indexByName(b)
	for name, ai := range am {
		bi, ok := bm[name]
		if !ok || !ai.Equal(bi) {
			return false
		}
	}
	return true
}

func indexByName(idx []Index) map[string]Index {
	m := make(map[string]Index, len(idx))
	for _, i := range idx {
		m[i.Name] = i
	}
	return m
}

func fkSetEqual(a, b []ForeignKey) bool {
	if len(a) != len(b) {
		return false
	}
	am := fkByName(a)
	bm := fkByName(b)
	for name, af := range am {
		bf, ok := bm[name]
		if !ok || !af.Equal(bf) {
			return false
		}
	}
	return true
}

func fkByName(fks []ForeignKey) map[string]ForeignKey {
	m := make(map[string]ForeignKey, len(fks))
	for _, f := range fks {
		m[f.Name] = f
	}
	return m
}

// ColumnByName returns the column named name, if present.
func (t *Table) ColumnByName(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// IndexByName returns the index named name, if present.
func (t *Table) IndexByName(name string) (Index, bool) {
	for _, i := range t.Indexes {
		if i.Name == name {
			return i, true
		}
	}
	return Index{}, false
}

// ForeignKeyByName returns the foreign key named name, if present.
func (t *Table) ForeignKeyByName(name string) (ForeignKey, bool) {
	for _, f := range t.ForeignKeys {
		if f.Name == name {
			return f, true
		}
	}
	return ForeignKey{}, false
}
