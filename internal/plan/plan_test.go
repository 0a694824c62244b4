package plan

import (
	"strings"
	"testing"

	"github.com/dbddl/ddlwizard/internal/diff"
	"github.com/dbddl/ddlwizard/internal/model"
)

func snap(schema string, kind model.ObjectKind, objs map[string]string) *model.Snapshot {
	s := &model.Snapshot{Schema: schema, Objects: make(map[model.ObjectKind][]model.ObjectRecord)}
	for _, k := range model.AllKinds() {
		s.Objects[k] = nil
	}
	var recs []model.ObjectRecord
	for name, ddl := range objs {
		recs = append(recs, model.ObjectRecord{ObjectRef: model.ObjectRef{Kind: kind, Name: name}, DDL: ddl})
	}
	s.Objects[kind] = recs
	return s
}

func findSection(p *Plan, title string) *Section {
	for i := range p.Sections {
		if p.Sections[i].Title == title {
			return &p.Sections[i]
		}
	}
	return nil
}

func TestForward_SectionOrder(t *testing.T) {
	source := snap("s", model.KindTable, nil)
	dest := snap("d", model.KindTable, nil)
	d, _ := diff.Compute(source, dest)
	p := Forward(d, source, dest)

	want := []string{"TABLES", "PROCEDURES", "FUNCTIONS", "TRIGGERS", "EVENTS", "VIEWS", "SEQUENCES"}
	if len(p.Sections) != len(want) {
		t.Fatalf("sections = %d, want %d", len(p.Sections), len(want))
	}
	for i, title := range want {
		if p.Sections[i].Title != title {
			t.Errorf("section[%d] = %q, want %q", i, p.Sections[i].Title, title)
		}
	}
}

func TestForward_OnlyInSourceTableCreated(t *testing.T) {
	source := snap("s", model.KindTable, map[string]string{
		"t": "CREATE TABLE `t` (`id` int NOT NULL) ENGINE=InnoDB",
	})
	dest := snap("d", model.KindTable, nil)
	d, _ := diff.Compute(source, dest)
	p := Forward(d, source, dest)

	sec := findSection(p, "TABLES")
	if len(sec.Statements) != 1 {
		t.Fatalf("statements = %+v", sec.Statements)
	}
	sql := sec.Statements[0].SQL
	if !strings.Contains(sql, "`d`.`t`") {
		t.Errorf("expected target-schema-qualified CREATE, got %q", sql)
	}
}

func TestForward_OnlyInDestTableDropped(t *testing.T) {
	source := snap("s", model.KindTable, nil)
	dest := snap("d", model.KindTable, map[string]string{
		"old": "CREATE TABLE `old` (`id` int) ENGINE=InnoDB",
	})
	d, _ := diff.Compute(source, dest)
	p := Forward(d, source, dest)

	sec := findSection(p, "TABLES")
	if len(sec.Statements) != 1 {
		t.Fatalf("statements = %+v", sec.Statements)
	}
	want := "DROP TABLE IF EXISTS `d`.`old`;"
	if sec.Statements[0].SQL != want {
		t.Errorf("sql = %q, want %q", sec.Statements[0].SQL, want)
	}
}

func TestForward_IntraTablePhaseOrder(t *testing.T) {
	source := snap("s", model.KindTable, map[string]string{
		"t": "CREATE TABLE `t` (`a` int, `c` int, " +
			"CONSTRAINT `fk_new` FOREIGN KEY (`a`) REFERENCES `other` (`id`)" +
			") ENGINE=InnoDB",
	})
	dest := snap("d", model.KindTable, map[string]string{
		"t": "CREATE TABLE `t` (`a` int, `b` int, " +
			"KEY `idx_b` (`b`), " +
			"CONSTRAINT `fk_old` FOREIGN KEY (`a`) REFERENCES `other` (`id`)" +
			") ENGINE=InnoDB",
	})
	d, _ := diff.Compute(source, dest)
	p := Forward(d, source, dest)

	sec := findSection(p, "TABLES")
	if len(sec.Statements) == 0 {
		t.Fatal("expected statements")
	}

	var ops []string
	for _, st := range sec.Statements {
		ops = append(ops, st.SQL)
	}
	firstIdx := -1
	for i, s := range ops {
		if strings.Contains(s, "DROP FOREIGN KEY") {
			firstIdx = i
			break
		}
	}
	addIdx := -1
	for i, s := range ops {
		if strings.Contains(s, "ADD COLUMN `c`") {
			addIdx = i
			break
		}
	}
	if firstIdx == -1 || addIdx == -1 {
		t.Fatalf("expected both a DROP FOREIGN KEY and ADD COLUMN c statement, got %v", ops)
	}
	if firstIdx > addIdx {
		t.Errorf("FK drop must precede column add: %v", ops)
	}
}

func TestForward_RoutineChangedIsDropThenCreateWrapped(t *testing.T) {
	source := snap("s", model.KindProcedure, map[string]string{
		"p": "CREATE PROCEDURE `p`() BEGIN SELECT 1; END",
	})
	dest := snap("d", model.KindProcedure, map[string]string{
		"p": "CREATE PROCEDURE `p`() BEGIN SELECT 2; END",
	})
	d, _ := diff.Compute(source, dest)
	p := Forward(d, source, dest)

	sec := findSection(p, "PROCEDURES")
	if len(sec.Statements) != 2 {
		t.Fatalf("statements = %+v", sec.Statements)
	}
	if !strings.Contains(sec.Statements[0].SQL, "DROP PROCEDURE IF EXISTS") {
		t.Errorf("first statement should be the drop: %q", sec.Statements[0].SQL)
	}
	if !strings.Contains(sec.Statements[1].SQL, "DELIMITER $$") {
		t.Errorf("recreated procedure should be delimiter-wrapped: %q", sec.Statements[1].SQL)
	}
}

func TestForward_ViewUsesSemicolonNotDelimiter(t *testing.T) {
	source := snap("s", model.KindView, map[string]string{
		"v": "CREATE VIEW `v` AS SELECT 1",
	})
	dest := snap("d", model.KindView, nil)
	d, _ := diff.Compute(source, dest)
	p := Forward(d, source, dest)

	sec := findSection(p, "VIEWS")
	if len(sec.Statements) != 1 {
		t.Fatalf("statements = %+v", sec.Statements)
	}
	if strings.Contains(sec.Statements[0].SQL, "DELIMITER") {
		t.Errorf("views must not be delimiter-wrapped: %q", sec.Statements[0].SQL)
	}
}

func TestReverse_RestoresOnlyInDestObjectFromCapturedDDL(t *testing.T) {
	// prod/staging (rather than s/d) so a qualifier bug that leaks the
	// source schema into rollback SQL can't hide behind similar-looking names.
	source := snap("prod", model.KindTable, nil)
	dest := snap("staging", model.KindTable, map[string]string{
		"gone": "CREATE TABLE `gone` (`id` int NOT NULL) ENGINE=InnoDB",
	})

	rp, warnings := Reverse(source, dest)
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	sec := findSection(rp, "TABLES")
	var stmt string
	for _, st := range sec.Statements {
		if strings.Contains(st.SQL, "CREATE TABLE") && strings.Contains(st.SQL, "`gone`") {
			stmt = st.SQL
		}
	}
	if stmt == "" {
		t.Fatalf("reverse plan should recreate the dropped table from dest's captured DDL: %+v", sec.Statements)
	}
	// rollback.sql always runs against dest, so the recreated table must be
	// qualified with dest's schema, never source's.
	if !strings.Contains(stmt, "`staging`.`gone`") {
		t.Errorf("expected table qualified with dest schema `staging`, got %q", stmt)
	}
	if strings.Contains(stmt, "`prod`") {
		t.Errorf("reverse plan statement must not reference the source schema: %q", stmt)
	}
}

func TestReversePlan_Sequence_OnlyInDest_Restored(t *testing.T) {
	source := snap("prod", model.KindSequence, nil)
	dest := snap("staging", model.KindSequence, map[string]string{
		"seq_orders": "CREATE SEQUENCE `seq_orders` start with 1 increment by 1",
	})

	rp, warnings := Reverse(source, dest)
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	sec := findSection(rp, "SEQUENCES")
	var stmt string
	for _, st := range sec.Statements {
		if strings.Contains(st.SQL, "`seq_orders`") {
			stmt = st.SQL
		}
	}
	if stmt == "" {
		t.Fatalf("reverse plan should recreate the dropped sequence from dest's captured DDL: %+v", sec.Statements)
	}
	if !strings.Contains(stmt, "`staging`.`seq_orders`") {
		t.Errorf("expected sequence qualified with dest schema `staging`, got %q", stmt)
	}
}

func TestReverse_AddColumnForwardBecomesDropColumnReverse(t *testing.T) {
	source := snap("s", model.KindTable, map[string]string{
		"t": "CREATE TABLE `t` (`id` int NOT NULL, `new_col` int) ENGINE=InnoDB",
	})
	dest := snap("d", model.KindTable, map[string]string{
		"t": "CREATE TABLE `t` (`id` int NOT NULL) ENGINE=InnoDB",
	})

	rp, _ := Reverse(source, dest)
	sec := findSection(rp, "TABLES")
	var sawDrop bool
	for _, st := range sec.Statements {
		if strings.Contains(st.SQL, "DROP COLUMN `new_col`") {
			sawDrop = true
		}
	}
	if !sawDrop {
		t.Errorf("reverse of add_column must be drop_column: %+v", sec.Statements)
	}
}
