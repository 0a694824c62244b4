package introspect

import (
	"context"
	"fmt"
	"testing"

	"github.com/dbddl/ddlwizard/internal/model"
)

type fakeFetcher struct {
	names map[model.ObjectKind][]string
	ddl   map[model.ObjectKind]map[string]string
	fail  map[model.ObjectKind]map[string]bool
}

func (f *fakeFetcher) EnumerateNames(kind model.ObjectKind) ([]string, error) {
	return f.names[kind], nil
}

func (f *fakeFetcher) FetchDDL(kind model.ObjectKind, name string) (string, error) {
	if f.fail[kind][name] {
		return "", fmt.Errorf("boom")
	}
	return f.ddl[kind][name], nil
}

func TestSnapshot_SortsByName(t *testing.T) {
	f := &fakeFetcher{
		names: map[model.ObjectKind][]string{
			model.KindTable: {"zebra", "apple", "mango"},
		},
		ddl: map[model.ObjectKind]map[string]string{
			model.KindTable: {
				"zebra": "CREATE TABLE zebra (...)",
				"apple": "CREATE TABLE apple (...)",
				"mango": "CREATE TABLE mango (...)",
			},
		},
	}
	snap, err := Snapshot(context.Background(), f, "s", 4)
	if err != nil {
		t.Fatal(err)
	}
	names := snap.Names(model.KindTable)
	want := []string{"apple", "mango", "zebra"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("names = %v, want %v", names, want)
		}
	}
}

func TestSnapshot_PerObjectFailureKeepsEmptyDDL(t *testing.T) {
	f := &fakeFetcher{
		names: map[model.ObjectKind][]string{
			model.KindTable: {"good", "bad"},
		},
		ddl: map[model.ObjectKind]map[string]string{
			model.KindTable: {"good": "CREATE TABLE good (...)"},
		},
		fail: map[model.ObjectKind]map[string]bool{
			model.KindTable: {"bad": true},
		},
	}
	snap, err := Snapshot(context.Background(), f, "s", 4)
	if err != nil {
		t.Fatalf("per-object failure must not be fatal: %v", err)
	}
	rec, ok := snap.ByName(model.KindTable, "bad")
	if !ok {
		t.Fatal("expected record kept for bad object")
	}
	if rec.DDL != "" {
		t.Errorf("expected empty DDL for failed object, got %q", rec.DDL)
	}
	rec, ok = snap.ByName(model.KindTable, "good")
	if !ok || rec.DDL == "" {
		t.Errorf("good object should retain its DDL")
	}
}

func TestSnapshot_AllKindsPresent(t *testing.T) {
	f := &fakeFetcher{names: map[model.ObjectKind][]string{}}
	snap, err := Snapshot(context.Background(), f, "s", 2)
	if err != nil {
		t.Fatal(err)
	}
	for _, kind := range model.AllKinds() {
		if _, ok := snap.Objects[kind]; !ok {
			t.Errorf("missing kind %s in snapshot", kind)
		}
	}
}
