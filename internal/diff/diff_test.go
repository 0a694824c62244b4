package diff

import (
	"testing"

	"github.com/dbddl/ddlwizard/internal/model"
)

func snapshotOf(schema string, tables map[string]string) *model.Snapshot {
	snap := &model.Snapshot{Schema: schema, Objects: make(map[model.ObjectKind][]model.ObjectRecord)}
	var recs []model.ObjectRecord
	for name, ddl := range tables {
		recs = append(recs, model.ObjectRecord{ObjectRef: model.ObjectRef{Kind: model.KindTable, Name: name}, DDL: ddl})
	}
	snap.Objects[model.KindTable] = recs
	for _, k := range model.AllKinds() {
		if k == model.KindTable {
			continue
		}
		snap.Objects[k] = nil
	}
	return snap
}

func TestCompute_OnlyInSourceAndDest(t *testing.T) {
	source := snapshotOf("s", map[string]string{
		"a": "CREATE TABLE `a` (`id` int NOT NULL) ENGINE=InnoDB",
		"b": "CREATE TABLE `b` (`id` int NOT NULL) ENGINE=InnoDB",
	})
	dest := snapshotOf("d", map[string]string{
		"b": "CREATE TABLE `b` (`id` int NOT NULL) ENGINE=InnoDB",
		"c": "CREATE TABLE `c` (`id` int NOT NULL) ENGINE=InnoDB",
	})

	d, warnings := Compute(source, dest)
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	kd := d.PerKind[model.KindTable]
	if len(kd.OnlyInSource) != 1 || kd.OnlyInSource[0] != "a" {
		t.Errorf("onlyInSource = %v", kd.OnlyInSource)
	}
	if len(kd.OnlyInDest) != 1 || kd.OnlyInDest[0] != "c" {
		t.Errorf("onlyInDest = %v", kd.OnlyInDest)
	}
	if len(kd.InBoth) != 1 || kd.InBoth[0] != "b" {
		t.Errorf("inBoth = %v", kd.InBoth)
	}
	if len(d.TableDeltas) != 0 {
		t.Errorf("expected no deltas for identical table b, got %v", d.TableDeltas)
	}
}

func TestCompute_NullDiffIsEmpty(t *testing.T) {
	ddl := "CREATE TABLE `a` (`id` int NOT NULL, PRIMARY KEY (`id`)) ENGINE=InnoDB"
	source := snapshotOf("s", map[string]string{"a": ddl})
	dest := snapshotOf("d", map[string]string{"a": ddl})

	d, warnings := Compute(source, dest)
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	if !d.IsEmpty() {
		t.Errorf("expected empty diff for identical schemas")
	}
}

func TestCompute_AddDropModifyColumn(t *testing.T) {
	source := snapshotOf("s", map[string]string{
		"t": "CREATE TABLE `t` (`id` int NOT NULL, `name` varchar(100) NOT NULL, `extra` int DEFAULT NULL) ENGINE=InnoDB",
	})
	dest := snapshotOf("d", map[string]string{
		"t": "CREATE TABLE `t` (`id` int NOT NULL, `name` varchar(50) NOT NULL, `legacy` int DEFAULT NULL) ENGINE=InnoDB",
	})

	d, warnings := Compute(source, dest)
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	delta := d.TableDeltas["t"]
	if delta == nil {
		t.Fatal("expected a delta for table t")
	}

	var ops []string
	for _, c := range delta.Changes {
		ops = append(ops, string(c.Op)+":"+c.ColumnName)
	}
	// drops before modifies before adds, alphabetical within each group
	want := []string{"drop_column:legacy", "modify_column:name", "add_column:extra"}
	if len(ops) != len(want) {
		t.Fatalf("ops = %v, want %v", ops, want)
	}
	for i := range want {
		if ops[i] != want[i] {
			t.Errorf("ops[%d] = %q, want %q", i, ops[i], want[i])
		}
	}
}

func TestCompute_IndexModificationIsDropThenAdd(t *testing.T) {
	source := snapshotOf("s", map[string]string{
		"t": "CREATE TABLE `t` (`a` int, `b` int, KEY `idx_a` (`a`,`b`)) ENGINE=InnoDB",
	})
	dest := snapshotOf("d", map[string]string{
		"t": "CREATE TABLE `t` (`a` int, `b` int, KEY `idx_a` (`a`)) ENGINE=InnoDB",
	})

	d, _ := Compute(source, dest)
	delta := d.TableDeltas["t"]
	if delta == nil {
		t.Fatal("expected a delta")
	}
	if len(delta.Changes) != 2 {
		t.Fatalf("changes = %+v", delta.Changes)
	}
	if delta.Changes[0].Op != model.OpDropIndex || delta.Changes[1].Op != model.OpAddIndex {
		t.Errorf("expected drop then add, got %+v", delta.Changes)
	}
}

func TestCompute_OptionChange(t *testing.T) {
	source := snapshotOf("s", map[string]string{
		"t": "CREATE TABLE `t` (`a` int) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4",
	})
	dest := snapshotOf("d", map[string]string{
		"t": "CREATE TABLE `t` (`a` int) ENGINE=MyISAM DEFAULT CHARSET=utf8mb4",
	})

	d, _ := Compute(source, dest)
	delta := d.TableDeltas["t"]
	if delta == nil || len(delta.Changes) != 1 {
		t.Fatalf("delta = %+v", delta)
	}
	c := delta.Changes[0]
	if c.Op != model.OpSetOption || c.OptionKey != "ENGINE" || c.NewValue != "InnoDB" || c.OldValue != "MyISAM" {
		t.Errorf("change = %+v", c)
	}
}

func TestCompute_AutoIncrementOnlyDiffIsNoOp(t *testing.T) {
	source := snapshotOf("s", map[string]string{
		"t": "CREATE TABLE `t` (`id` int NOT NULL AUTO_INCREMENT, PRIMARY KEY (`id`)) ENGINE=InnoDB AUTO_INCREMENT=100",
	})
	dest := snapshotOf("d", map[string]string{
		"t": "CREATE TABLE `t` (`id` int NOT NULL AUTO_INCREMENT, PRIMARY KEY (`id`)) ENGINE=InnoDB AUTO_INCREMENT=5000",
	})

	d, _ := Compute(source, dest)
	if _, ok := d.TableDeltas["t"]; ok {
		t.Errorf("AUTO_INCREMENT-only difference must not produce a delta")
	}
}

func TestCompute_NonTableChangedByDDLText(t *testing.T) {
	source := &model.Snapshot{Schema: "s", Objects: map[model.ObjectKind][]model.ObjectRecord{
		model.KindView: {{ObjectRef: model.ObjectRef{Kind: model.KindView, Name: "v"}, DDL: "CREATE VIEW v AS SELECT 1"}},
	}}
	dest := &model.Snapshot{Schema: "d", Objects: map[model.ObjectKind][]model.ObjectRecord{
		model.KindView: {{ObjectRef: model.ObjectRef{Kind: model.KindView, Name: "v"}, DDL: "CREATE VIEW v AS SELECT   2"}},
	}}
	for _, s := range []*model.Snapshot{source, dest} {
		for _, k := range model.AllKinds() {
			if _, ok := s.Objects[k]; !ok {
				s.Objects[k] = nil
			}
		}
	}

	d, _ := Compute(source, dest)
	changed := d.ChangedNonTable[model.KindView]
	if len(changed) != 1 || changed[0] != "v" {
		t.Errorf("changedNonTable[view] = %v", changed)
	}
}

func TestCompute_NonTableWhitespaceOnlyIsNoOp(t *testing.T) {
	source := &model.Snapshot{Schema: "s", Objects: map[model.ObjectKind][]model.ObjectRecord{
		model.KindView: {{ObjectRef: model.ObjectRef{Kind: model.KindView, Name: "v"}, DDL: "CREATE VIEW v AS\nSELECT 1"}},
	}}
	dest := &model.Snapshot{Schema: "d", Objects: map[model.ObjectKind][]model.ObjectRecord{
		model.KindView: {{ObjectRef: model.ObjectRef{Kind: model.KindView, Name: "v"}, DDL: "CREATE VIEW v AS SELECT 1"}},
	}}
	for _, s := range []*model.Snapshot{source, dest} {
		for _, k := range model.AllKinds() {
			if _, ok := s.Objects[k]; !ok {
				s.Objects[k] = nil
			}
		}
	}

	d, _ := Compute(source, dest)
	if len(d.ChangedNonTable[model.KindView]) != 0 {
		t.Errorf("expected whitespace-only view DDL to be a no-op")
	}
}
