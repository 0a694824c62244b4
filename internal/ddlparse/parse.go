// Package ddlparse implements a pattern-based CREATE TABLE parser. It is
// not a SQL grammar: it recognizes the specific shapes MariaDB/MySQL's own
// `SHOW CREATE TABLE` emits and is expected to cover the common majority of
// real-world DDL, not arbitrary legal DDL.
package ddlparse

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dbddl/ddlwizard/internal/model"
)

// ParseCreateTable parses a single CREATE TABLE statement into a *model.Table.
// Warnings accumulate advisory messages for unrecognized table options —
// they never cause an error.
func ParseCreateTable(ddl string) (*model.Table, []string, error) {
	norm := collapseWhitespace(ddl)
	pos := skipWS(norm, 0)

	if !hasFold(norm, pos, "CREATE") {
		return nil, nil, fmt.Errorf("ddlparse: expected CREATE TABLE, got %q", snippet(norm, pos))
	}
	pos = skipWS(norm, pos+len("CREATE"))
	if !hasFold(norm, pos, "TABLE") {
		return nil, nil, fmt.Errorf("ddlparse: expected CREATE TABLE, got %q", snippet(norm, pos))
	}
	pos = skipWS(norm, pos+len("TABLE"))
	if hasFold(norm, pos, "IF") {
		pos = skipWS(norm, pos+len("IF"))
		if hasFold(norm, pos, "NOT") {
			pos = skipWS(norm, pos+len("NOT"))
		}
		if hasFold(norm, pos, "EXISTS") {
			pos = skipWS(norm, pos+len("EXISTS"))
		}
	}

	name, pos, ok := parseQualifiedIdent(norm, pos)
	if !ok {
		return nil, nil, fmt.Errorf("ddlparse: expected table name at %q", snippet(norm, pos))
	}
	pos = skipWS(norm, pos)
	if pos >= len(norm) || norm[pos] != '(' {
		return nil, nil, fmt.Errorf("ddlparse: expected '(' after table name, got %q", snippet(norm, pos))
	}
	body, afterBody, ok := readBalanced(norm, pos)
	if !ok {
		return nil, nil, fmt.Errorf("ddlparse: unbalanced parentheses in table body")
	}

	table := &model.Table{Name: name}
	for _, item := range splitTopLevel(body) {
		if err := parseTableItem(item, table); err != nil {
			return nil, nil, fmt.Errorf("ddlparse: table %s: %w", name, err)
		}
	}

	tail := strings.TrimSpace(norm[afterBody:])
	warnings := parseTableOptions(tail, table, name)

	return table, warnings, nil
}

func snippet(s string, pos int) string {
	end := pos + 30
	if end > len(s) {
		end = len(s)
	}
	if pos > len(s) {
		pos = len(s)
	}
	return s[pos:end]
}

// parseTableItem classifies one top-level item inside the CREATE TABLE
// parens and appends the parsed column/index/foreign key to table. CHECK
// constraints are recognized (so they never cause a parse error) but not
// stored: the data model has no check-constraint field.
func parseTableItem(item string, table *model.Table) error {
	pos := 0

	switch {
	case hasFold(item, pos, "PRIMARY"):
		idx, err := parseIndexDef(item, model.IndexPrimary, true)
		if err != nil {
			return err
		}
		idx.Name = "PRIMARY"
		table.Indexes = append(table.Indexes, idx)
		return nil

	case hasFold(item, pos, "UNIQUE"):
		idx, err := parseIndexDef(item, model.IndexUnique, false)
		if err != nil {
			return err
		}
		table.Indexes = append(table.Indexes, idx)
		return nil

	case hasFold(item, pos, "FULLTEXT"):
		idx, err := parseIndexDef(item, model.IndexFulltext, false)
		if err != nil {
			return err
		}
		table.Indexes = append(table.Indexes, idx)
		return nil

	case hasFold(item, pos, "KEY") || hasFold(item, pos, "INDEX"):
		idx, err := parseIndexDef(item, model.IndexKey, false)
		if err != nil {
			return err
		}
		table.Indexes = append(table.Indexes, idx)
		return nil

	case hasFold(item, pos, "CONSTRAINT"):
		return parseConstraint(item, table)

	case hasFold(item, pos, "FOREIGN"):
		fk, err := parseForeignKeyDef(item, "")
		if err != nil {
			return err
		}
		table.ForeignKeys = append(table.ForeignKeys, fk)
		return nil

	case hasFold(item, pos, "CHECK"):
		return nil // tolerated, not part of the tracked model

	default:
		col, err := parseColumnDef(item)
		if err != nil {
			return err
		}
		table.Columns = append(table.Columns, col)
		return nil
	}
}

func parseConstraint(item string, table *model.Table) error {
	pos := skipWS(item, len("CONSTRAINT"))
	name, pos, ok := parseIdent(item, pos)
	if !ok {
		// Anonymous CONSTRAINT (rare); fall through with empty name.
		name = ""
	}
	pos = skipWS(item, pos)
	switch {
	case hasFold(item, pos, "FOREIGN"):
		fk, err := parseForeignKeyDef(item[pos:], name)
		if err != nil {
			return err
		}
		table.ForeignKeys = append(table.ForeignKeys, fk)
		return nil
	case hasFold(item, pos, "CHECK"):
		return nil // tolerated, not part of the tracked model
	default:
		return fmt.Errorf("unsupported CONSTRAINT clause: %q", item)
	}
}

// parseIndexDef parses PRIMARY KEY / UNIQUE [KEY|INDEX] / KEY / INDEX /
// FULLTEXT [KEY|INDEX] definitions.
func parseIndexDef(item string, kind model.IndexKind, isPrimary bool) (model.Index, error) {
	pos := 0
	switch kind {
	case model.IndexPrimary:
		pos = skipWS(item, len("PRIMARY"))
		if hasFold(item, pos, "KEY") {
			pos = skipWS(item, pos+len("KEY"))
		}
	case model.IndexUnique:
		pos = skipWS(item, len("UNIQUE"))
		if hasFold(item, pos, "KEY") {
			pos = skipWS(item, pos+len("KEY"))
		} else if hasFold(item, pos, "INDEX") {
			pos = skipWS(item, pos+len("INDEX"))
		}
	case model.IndexFulltext:
		pos = skipWS(item, len("FULLTEXT"))
		if hasFold(item, pos, "KEY") {
			pos = skipWS(item, pos+len("KEY"))
		} else if hasFold(item, pos, "INDEX") {
			pos = skipWS(item, pos+len("INDEX"))
		}
	default: // KEY / INDEX
		if hasFold(item, pos, "KEY") {
			pos = skipWS(item, pos+len("KEY"))
		} else {
			pos = skipWS(item, pos+len("INDEX"))
		}
	}

	var name string
	if pos < len(item) && item[pos] != '(' {
		n, newPos, ok := parseIdent(item, pos)
		if ok {
			name = n
			pos = skipWS(item, newPos)
		}
	}

	if pos >= len(item) || item[pos] != '(' {
		return model.Index{}, fmt.Errorf("expected '(' in index definition: %q", item)
	}
	colsBody, afterCols, ok := readBalanced(item, pos)
	if !ok {
		return model.Index{}, fmt.Errorf("unbalanced parens in index column list: %q", item)
	}

	idx := model.Index{Name: name, Kind: kind}
	for _, colSpec := range splitTopLevel(colsBody) {
		ic, err := parseIndexColumn(colSpec)
		if err != nil {
			return model.Index{}, err
		}
		idx.Columns = append(idx.Columns, ic)
	}

	idx.Options = strings.TrimSpace(item[afterCols:])
	return idx, nil
}

func parseIndexColumn(spec string) (model.IndexColumn, error) {
	pos := 0
	name, pos, ok := parseIdent(spec, pos)
	if !ok {
		return model.IndexColumn{}, fmt.Errorf("expected column name in index spec: %q", spec)
	}
	ic := model.IndexColumn{Name: name}
	pos = skipWS(spec, pos)
	if pos < len(spec) && spec[pos] == '(' {
		body, newPos, ok := readBalanced(spec, pos)
		if ok {
			if n, err := strconv.Atoi(strings.TrimSpace(body)); err == nil {
				ic.Prefix = &n
			}
			pos = newPos
		}
	}
	// Anything after the name and prefix (an ASC/DESC suffix) is ignored:
	// Index.columns only carries column_name and an optional prefix length.
	// Each spec is its own item from splitTopLevel, so the suffix cannot
	// leak into the next column's name parsing.
	return ic, nil
}

func parseForeignKeyDef(item string, name string) (model.ForeignKey, error) {
	pos := skipWS(item, len("FOREIGN"))
	if hasFold(item, pos, "KEY") {
		pos = skipWS(item, pos+len("KEY"))
	}
	if pos < len(item) && item[pos] != '(' {
		// Optional index name before the column list (rare in SHOW CREATE output).
		_, newPos, ok := parseIdent(item, pos)
		if ok {
			pos = skipWS(item, newPos)
		}
	}
	if pos >= len(item) || item[pos] != '(' {
		return model.ForeignKey{}, fmt.Errorf("expected '(' in FOREIGN KEY definition: %q", item)
	}
	colsBody, pos2, ok := readBalanced(item, pos)
	if !ok {
		return model.ForeignKey{}, fmt.Errorf("unbalanced parens in FOREIGN KEY columns: %q", item)
	}
	localCols := identList(colsBody)

	pos = skipWS(item, pos2)
	if !hasFold(item, pos, "REFERENCES") {
		return model.ForeignKey{}, fmt.Errorf("expected REFERENCES in FOREIGN KEY definition: %q", item)
	}
	pos = skipWS(item, pos+len("REFERENCES"))
	refTable, pos, ok := parseQualifiedIdent(item, pos)
	if !ok {
		return model.ForeignKey{}, fmt.Errorf("expected referenced table name: %q", item)
	}
	pos = skipWS(item, pos)
	if pos >= len(item) || item[pos] != '(' {
		return model.ForeignKey{}, fmt.Errorf("expected '(' for referenced columns: %q", item)
	}
	refColsBody, pos3, ok := readBalanced(item, pos)
	if !ok {
		return model.ForeignKey{}, fmt.Errorf("unbalanced parens in referenced columns: %q", item)
	}
	refCols := identList(refColsBody)
	pos = skipWS(item, pos3)

	fk := model.ForeignKey{
		Name:         name,
		LocalColumns: localCols,
		RefTable:     refTable,
		RefColumns:   refCols,
	}

	for pos < len(item) {
		switch {
		case hasFold(item, pos, "ON"):
			actionPos := skipWS(item, pos+len("ON"))
			switch {
			case hasFold(item, actionPos, "DELETE"):
				rulePos := skipWS(item, actionPos+len("DELETE"))
				rule, newPos := readReferentialAction(item, rulePos)
				fk.OnDelete = rule
				pos = newPos
			case hasFold(item, actionPos, "UPDATE"):
				rulePos := skipWS(item, actionPos+len("UPDATE"))
				rule, newPos := readReferentialAction(item, rulePos)
				fk.OnUpdate = rule
				pos = newPos
			default:
				pos = len(item)
			}
		default:
			pos = len(item)
		}
	}

	return fk, nil
}

func readReferentialAction(s string, pos int) (string, int) {
	for _, action := range []string{"CASCADE", "RESTRICT", "NO ACTION", "SET NULL", "SET DEFAULT"} {
		if hasFoldMulti(s, pos, action) {
			return strings.ToUpper(action), skipWS(s, pos+len(action))
		}
	}
	tok, newPos := readToken(s, pos)
	return strings.ToUpper(tok), skipWS(s, newPos)
}

// hasFoldMulti is like hasFold but kw may itself contain a single space
// (e.g. "SET NULL"), which collapseWhitespace guarantees is exactly one space.
func hasFoldMulti(s string, pos int, kw string) bool {
	if pos+len(kw) > len(s) {
		return false
	}
	if !strings.EqualFold(s[pos:pos+len(kw)], kw) {
		return false
	}
	end := pos + len(kw)
	if end < len(s) && isIdentChar(s[end]) {
		return false
	}
	return true
}

func identList(body string) []string {
	var out []string
	for _, item := range splitTopLevel(body) {
		name, _, ok := parseIdent(item, 0)
		if ok {
			out = append(out, name)
		}
	}
	return out
}

// parseColumnDef parses one column definition.
func parseColumnDef(item string) (model.Column, error) {
	name, pos, ok := parseIdent(item, 0)
	if !ok {
		return model.Column{}, fmt.Errorf("expected column name: %q", item)
	}
	pos = skipWS(item, pos)

	typeStart := pos
	typeName, pos2, ok := parseIdent(item, pos)
	if !ok {
		return model.Column{}, fmt.Errorf("expected column type: %q", item)
	}
	pos = pos2
	if pos < len(item) && item[pos] == '(' {
		_, newPos, ok := readBalanced(item, pos)
		if ok {
			pos = newPos
		}
	}
	// UNSIGNED / ZEROFILL / CHARACTER SET x / COLLATE x directly following
	// the base type are considered part of the type text.
	for {
		p := skipWS(item, pos)
		switch {
		case hasFold(item, p, "UNSIGNED"):
			pos = p + len("UNSIGNED")
		case hasFold(item, p, "ZEROFILL"):
			pos = p + len("ZEROFILL")
		case hasFold(item, p, "CHARACTER"):
			after := skipWS(item, p+len("CHARACTER"))
			if hasFold(item, after, "SET") {
				after = skipWS(item, after+len("SET"))
				_, newPos, ok := parseIdent(item, after)
				if !ok {
					_, newPos = readToken(item, after)
				}
				pos = newPos
			} else {
				pos = p
				goto doneType
			}
		case hasFold(item, p, "CHARSET"):
			after := skipWS(item, p+len("CHARSET"))
			_, newPos, ok := parseIdent(item, after)
			if !ok {
				_, newPos = readToken(item, after)
			}
			pos = newPos
		case hasFold(item, p, "COLLATE"):
			after := skipWS(item, p+len("COLLATE"))
			_, newPos, ok := parseIdent(item, after)
			if !ok {
				_, newPos = readToken(item, after)
			}
			pos = newPos
		default:
			goto doneType
		}
	}
doneType:
	typeText := strings.TrimSpace(item[typeStart:pos])
	_ = typeName

	col := model.Column{Name: name, Type: typeText, Nullable: true}

	for {
		p := skipWS(item, pos)
		if p >= len(item) {
			break
		}
		switch {
		case hasFold(item, p, "NOT"):
			after := skipWS(item, p+len("NOT"))
			if hasFold(item, after, "NULL") {
				col.Nullable = false
				pos = after + len("NULL")
				continue
			}
			pos = len(item)
		case hasFold(item, p, "NULL"):
			col.Nullable = true
			pos = p + len("NULL")
			continue
		case hasFold(item, p, "DEFAULT"):
			after := skipWS(item, p+len("DEFAULT"))
			val, newPos := readDefaultValue(item, after)
			col.Default = &val
			pos = newPos
			continue
		case hasFold(item, p, "AUTO_INCREMENT"):
			col.Extra = appendExtra(col.Extra, "AUTO_INCREMENT")
			pos = p + len("AUTO_INCREMENT")
			continue
		case hasFold(item, p, "ON"):
			after := skipWS(item, p+len("ON"))
			if hasFold(item, after, "UPDATE") {
				after2 := skipWS(item, after+len("UPDATE"))
				val, newPos := readToken(item, after2)
				col.Extra = appendExtra(col.Extra, "ON UPDATE "+val)
				pos = newPos
				continue
			}
			pos = len(item)
		case hasFold(item, p, "GENERATED"):
			after := skipWS(item, p+len("GENERATED"))
			if hasFold(item, after, "ALWAYS") {
				after = skipWS(item, after+len("ALWAYS"))
			}
			if hasFold(item, after, "AS") {
				after = skipWS(item, after+len("AS"))
				if after < len(item) && item[after] == '(' {
					expr, newPos, ok := readBalanced(item, after)
					if ok {
						kind := ""
						np := skipWS(item, newPos)
						if hasFold(item, np, "STORED") {
							kind = "STORED"
							np += len("STORED")
						} else if hasFold(item, np, "VIRTUAL") {
							kind = "VIRTUAL"
							np += len("VIRTUAL")
						}
						extra := "GENERATED ALWAYS AS (" + collapseWS(expr) + ")"
						if kind != "" {
							extra += " " + kind
						}
						col.Extra = appendExtra(col.Extra, extra)
						pos = np
						continue
					}
				}
			}
			pos = len(item)
		case hasFold(item, p, "COMMENT"):
			after := skipWS(item, p+len("COMMENT"))
			if after < len(item) && item[after] == '\'' {
				text, newPos, ok := readQuotedString(item, after)
				if ok {
					col.Comment = text
					pos = newPos
					continue
				}
			}
			pos = len(item)
		case hasFold(item, p, "CHECK"):
			if p < len(item) {
				afterKw := skipWS(item, p+len("CHECK"))
				if afterKw < len(item) && item[afterKw] == '(' {
					_, newPos, ok := readBalanced(item, afterKw)
					if ok {
						pos = newPos
						continue
					}
				}
			}
			pos = len(item)
		case hasFold(item, p, "COLLATE"):
			after := skipWS(item, p+len("COLLATE"))
			_, newPos, ok := parseIdent(item, after)
			if !ok {
				_, newPos = readToken(item, after)
			}
			pos = newPos
			continue
		default:
			// Unrecognized trailing clause; stop rather than looping forever.
			pos = len(item)
		}
	}

	return col, nil
}

func collapseWS(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func appendExtra(existing, add string) string {
	if existing == "" {
		return add
	}
	return existing + " " + add
}

// readDefaultValue reads a DEFAULT clause's value: a parenthesized
// expression, a quoted string, or a bare token/function call.
func readDefaultValue(s string, pos int) (string, int) {
	if pos < len(s) && s[pos] == '(' {
		expr, newPos, ok := readBalanced(s, pos)
		if ok {
			return "(" + collapseWS(expr) + ")", newPos
		}
	}
	if pos < len(s) && s[pos] == '\'' {
		text, newPos, ok := readQuotedString(s, pos)
		if ok {
			return "'" + text + "'", newPos
		}
	}
	tok, newPos := readToken(s, pos)
	return tok, newPos
}

// parseTableOptions extracts the tracked table-level options from the text
// following the closing ')' of the column list, discarding
// AUTO_INCREMENT=<n> and warning once per unrecognized option.
func parseTableOptions(tail string, table *model.Table, tableName string) []string {
	var warnings []string
	pos := 0
	for pos < len(tail) {
		p := skipWS(tail, pos)
		if p >= len(tail) {
			break
		}
		switch {
		case hasFold(tail, p, "ENGINE"):
			val, newPos := readOptionValue(tail, p+len("ENGINE"))
			table.Options.Engine = val
			pos = newPos
		case hasFold(tail, p, "DEFAULT"):
			after := skipWS(tail, p+len("DEFAULT"))
			switch {
			case hasFold(tail, after, "CHARSET"):
				val, newPos := readOptionValue(tail, after+len("CHARSET"))
				table.Options.DefaultCharset = val
				pos = newPos
			case hasFold(tail, after, "CHARACTER"):
				csPos := skipWS(tail, after+len("CHARACTER"))
				if hasFold(tail, csPos, "SET") {
					val, newPos := readOptionValue(tail, csPos+len("SET"))
					table.Options.DefaultCharset = val
					pos = newPos
				} else {
					pos = after
				}
			case hasFold(tail, after, "COLLATE"):
				val, newPos := readOptionValue(tail, after+len("COLLATE"))
				table.Options.Collate = val
				pos = newPos
			default:
				pos = after
			}
		case hasFold(tail, p, "CHARSET"):
			val, newPos := readOptionValue(tail, p+len("CHARSET"))
			table.Options.DefaultCharset = val
			pos = newPos
		case hasFold(tail, p, "COLLATE"):
			val, newPos := readOptionValue(tail, p+len("COLLATE"))
			table.Options.Collate = val
			pos = newPos
		case hasFold(tail, p, "COMMENT"):
			eq := skipWS(tail, p+len("COMMENT"))
			if eq < len(tail) && tail[eq] == '=' {
				eq = skipWS(tail, eq+1)
			}
			if eq < len(tail) && tail[eq] == '\'' {
				text, newPos, ok := readQuotedString(tail, eq)
				if ok {
					table.Options.Comment = text
					pos = newPos
					continue
				}
			}
			pos = eq
		case hasFold(tail, p, "AUTO_INCREMENT"):
			// Deliberately discarded: insert activity must never
			// masquerade as schema drift.
			_, newPos := readOptionValue(tail, p+len("AUTO_INCREMENT"))
			pos = newPos
		default:
			tok, newPos := readToken(tail, p)
			if tok == "" {
				pos = len(tail)
				break
			}
			name := tok
			if eq := strings.IndexByte(tok, '='); eq >= 0 {
				name = tok[:eq]
			}
			warnings = append(warnings, fmt.Sprintf("table %s: unrecognized option %q ignored", tableName, name))
			pos = newPos
		}
	}
	return warnings
}

func readOptionValue(s string, pos int) (string, int) {
	p := skipWS(s, pos)
	if p < len(s) && s[p] == '=' {
		p = skipWS(s, p+1)
	}
	if p < len(s) && s[p] == '\'' {
		text, newPos, ok := readQuotedString(s, p)
		if ok {
			return text, newPos
		}
	}
	name, newPos, ok := parseIdent(s, p)
	if ok {
		return name, newPos
	}
	tok, newPos := readToken(s, p)
	return tok, newPos
}
