// Package reader retrieves DDL text from a live connection: for a
// connection and a schema, it retrieves the CREATE ... text for one named
// object of a given kind, backed by the SHOW-class queries MariaDB/MySQL
// expose.
package reader

import (
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/dbddl/ddlwizard/internal/model"
)

// Reader retrieves raw DDL text over a *sql.DB.
type Reader struct {
	DB     *sql.DB
	Schema string
}

// New returns a Reader bound to db and schema.
func New(db *sql.DB, schema string) *Reader {
	return &Reader{DB: db, Schema: schema}
}

// EnumerateNames lists the names of every object of kind in the schema, in
// the order the catalog query returns them (the introspector sorts
// afterward). Enumeration errors are always fatal — a schema that can't
// even be listed can't be compared.
func (r *Reader) EnumerateNames(kind model.ObjectKind) ([]string, error) {
	query, args, scanTable := enumerationQuery(kind, r.Schema)
	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("enumerate %s: %w", kind, err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		name, err := scanTable(rows)
		if err != nil {
			return nil, fmt.Errorf("enumerate %s: scan: %w", kind, err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("enumerate %s: %w", kind, err)
	}
	return names, nil
}

// enumerationQuery returns the SQL and args to list object names of kind,
// plus a row-scanning function (some enumeration queries return more than
// one column, e.g. SHOW TRIGGERS).
func enumerationQuery(kind model.ObjectKind, schema string) (string, []any, func(*sql.Rows) (string, error)) {
	single := func(rows *sql.Rows) (string, error) {
		var name string
		err := rows.Scan(&name)
		return name, err
	}

	switch kind {
	case model.KindTable:
		return "SHOW FULL TABLES WHERE Table_type='BASE TABLE'", nil, func(rows *sql.Rows) (string, error) {
			var name, kind string
			if err := rows.Scan(&name, &kind); err != nil {
				return "", err
			}
			return name, nil
		}
	case model.KindView:
		return "SHOW FULL TABLES WHERE Table_type='VIEW'", nil, func(rows *sql.Rows) (string, error) {
			var name, kind string
			if err := rows.Scan(&name, &kind); err != nil {
				return "", err
			}
			return name, nil
		}
	case model.KindSequence:
		return "SHOW FULL TABLES WHERE Table_type='SEQUENCE'", nil, func(rows *sql.Rows) (string, error) {
			var name, kind string
			if err := rows.Scan(&name, &kind); err != nil {
				return "", err
			}
			return name, nil
		}
	case model.KindProcedure:
		return "SHOW PROCEDURE STATUS WHERE Db=?", []any{schema}, procedureStatusScan
	case model.KindFunction:
		return "SHOW FUNCTION STATUS WHERE Db=?", []any{schema}, procedureStatusScan
	case model.KindTrigger:
		return "SHOW TRIGGERS", nil, triggerScan
	case model.KindEvent:
		return "SHOW EVENTS WHERE Db=?", []any{schema}, eventScan
	default:
		return "", nil, single
	}
}

// ddlQuery returns the SHOW CREATE ... statement for the named object.
func ddlQuery(kind model.ObjectKind, schema, name string) string {
	q := quoteIdent(schema) + "." + quoteIdent(name)
	switch kind {
	case model.KindTable:
		return "SHOW CREATE TABLE " + q
	case model.KindView:
		return "SHOW CREATE VIEW " + q
	case model.KindSequence:
		return "SHOW CREATE SEQUENCE " + q
	case model.KindProcedure:
		return "SHOW CREATE PROCEDURE " + q
	case model.KindFunction:
		return "SHOW CREATE FUNCTION " + q
	case model.KindTrigger:
		return "SHOW CREATE TRIGGER " + q
	case model.KindEvent:
		return "SHOW CREATE EVENT " + q
	default:
		return ""
	}
}

func quoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// FetchDDL retrieves the CREATE ... text for one named object. The leading
// USE <schema> and CREATE DATABASE preamble some SHOW CREATE variants
// prepend is stripped if present. On permission or missing-object errors
// it returns ("", err) — the caller (introspector) is responsible for
// recoverable-failure handling (log a warning, keep the record with empty
// DDL); this function itself never silently swallows the error.
func (r *Reader) FetchDDL(kind model.ObjectKind, name string) (string, error) {
	query := ddlQuery(kind, r.Schema, name)
	if query == "" {
		return "", fmt.Errorf("fetch ddl: unsupported kind %s", kind)
	}
	rows, err := r.DB.Query(query)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return "", err
		}
		return "", fmt.Errorf("fetch ddl: no row returned for %s %s", kind, name)
	}

	ddl, err := scanDDLRow(kind, rows)
	if err != nil {
		return "", err
	}
	return stripPreamble(ddl), nil
}

// scanDDLRow scans the row shape each SHOW CREATE ... statement returns.
// They vary by kind in column count and which column carries the DDL text.
func scanDDLRow(kind model.ObjectKind, rows *sql.Rows) (string, error) {
	cols, err := rows.Columns()
	if err != nil {
		return "", err
	}
	dest := make([]any, len(cols))
	raw := make([]sql.NullString, len(cols))
	for i := range dest {
		dest[i] = &raw[i]
	}
	if err := rows.Scan(dest...); err != nil {
		return "", err
	}

	// The DDL text column is always the one whose header is
	// "Create Table"/"Create View"/... — but database/sql gives us values,
	// not headers useful for selection at runtime beyond position, and the
	// position is stable per kind:
	//   table/view/sequence: [Name, Create ...]            -> index 1
	//   procedure/function:  [Procedure, sql_mode, Create...,
	//                         character_set_client, collation_connection,
	//                         Database Collation]           -> index 2
	//   trigger:              [Trigger, sql_mode, SQL Original Statement,
	//                         ...]                           -> index 2
	//   event:                [Event, sql_mode, time_zone,
	//                         Create Event, ...]             -> index 3
	var idx int
	switch kind {
	case model.KindTable, model.KindView, model.KindSequence:
		idx = 1
	case model.KindProcedure, model.KindFunction, model.KindTrigger:
		idx = 2
	case model.KindEvent:
		idx = 3
	default:
		idx = 1
	}
	if idx >= len(raw) {
		return "", fmt.Errorf("fetch ddl: unexpected column count %d for kind %s", len(raw), kind)
	}
	return raw[idx].String, nil
}

// stripPreamble removes a leading "USE <schema>;" and/or "CREATE DATABASE
// ...;" statement some SHOW CREATE variants and dump tools prepend.
func stripPreamble(ddl string) string {
	s := strings.TrimSpace(ddl)
	for {
		upper := strings.ToUpper(s)
		switch {
		case strings.HasPrefix(upper, "USE "):
			if i := strings.IndexByte(s, ';'); i >= 0 {
				s = strings.TrimSpace(s[i+1:])
				continue
			}
		case strings.HasPrefix(upper, "CREATE DATABASE"):
			if i := strings.IndexByte(s, ';'); i >= 0 {
				s = strings.TrimSpace(s[i+1:])
				continue
			}
		}
		return s
	}
}

func procedureStatusScan(rows *sql.Rows) (string, error) {
	cols, err := rows.Columns()
	if err != nil {
		return "", err
	}
	dest := make([]any, len(cols))
	raw := make([]sql.NullString, len(cols))
	for i := range dest {
		dest[i] = &raw[i]
	}
	if err := rows.Scan(dest...); err != nil {
		return "", err
	}
	// SHOW PROCEDURE/FUNCTION STATUS: [Db, Name, Type, Definer, Modified,
	// Created, Security_type, Comment, character_set_client,
	// collation_connection, Database Collation] — Name is index 1.
	if len(raw) < 2 {
		return "", fmt.Errorf("unexpected SHOW PROCEDURE/FUNCTION STATUS row shape")
	}
	return raw[1].String, nil
}

func triggerScan(rows *sql.Rows) (string, error) {
	cols, err := rows.Columns()
	if err != nil {
		return "", err
	}
	dest := make([]any, len(cols))
	raw := make([]sql.NullString, len(cols))
	for i := range dest {
		dest[i] = &raw[i]
	}
	if err := rows.Scan(dest...); err != nil {
		return "", err
	}
	// SHOW TRIGGERS: [Trigger, Event, Table, Statement, Timing, Created,
	// sql_mode, Definer, character_set_client, collation_connection,
	// Database Collation] — Trigger is index 0.
	if len(raw) < 1 {
		return "", fmt.Errorf("unexpected SHOW TRIGGERS row shape")
	}
	return raw[0].String, nil
}

func eventScan(rows *sql.Rows) (string, error) {
	cols, err := rows.Columns()
	if err != nil {
		return "", err
	}
	dest := make([]any, len(cols))
	raw := make([]sql.NullString, len(cols))
	for i := range dest {
		dest[i] = &raw[i]
	}
	if err := rows.Scan(dest...); err != nil {
		return "", err
	}
	// SHOW EVENTS: [Db, Name, Definer, Time zone, Type, Execute at,
	// Interval value, Interval field, Starts, Ends, Status, Originator,
	// character_set_client, collation_connection, Database Collation] —
	// Name is index 1.
	if len(raw) < 2 {
		return "", fmt.Errorf("unexpected SHOW EVENTS row shape")
	}
	return raw[1].String, nil
}

// WarnSkip logs a recoverable per-object DDL extraction failure as a
// single line, never aborting enumeration.
func WarnSkip(kind model.ObjectKind, name string, err error) {
	log.Printf("WARN: skipping %s %s: %v", kind, name, err)
}
