package plan

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dbddl/ddlwizard/internal/model"
)

// renderColumnDef renders a column definition for ADD COLUMN/MODIFY COLUMN.
// Generated columns (Extra containing GENERATED) place the nullability
// token after the AS (...) STORED/VIRTUAL clause and never carry DEFAULT;
// MySQL rejects both if rendered in the ordinary-column order.
func renderColumnDef(c *model.Column) string {
	generated := strings.Contains(strings.ToUpper(c.Extra), "GENERATED")

	var b strings.Builder
	b.WriteString(quoteIdent(c.Name))
	b.WriteString(" ")
	b.WriteString(c.Type)

	if generated {
		b.WriteString(" ")
		b.WriteString(c.Extra)
		if c.Nullable {
			b.WriteString(" NULL")
		} else {
			b.WriteString(" NOT NULL")
		}
		if c.Comment != "" {
			b.WriteString(" COMMENT '")
			b.WriteString(strings.ReplaceAll(c.Comment, "'", "''"))
			b.WriteString("'")
		}
		return b.String()
	}

	if c.Nullable {
		b.WriteString(" NULL")
	} else {
		b.WriteString(" NOT NULL")
	}
	if c.Default != nil {
		b.WriteString(" DEFAULT ")
		b.WriteString(*c.Default)
	}
	if c.Extra != "" {
		b.WriteString(" ")
		b.WriteString(c.Extra)
	}
	if c.Comment != "" {
		b.WriteString(" COMMENT '")
		b.WriteString(strings.ReplaceAll(c.Comment, "'", "''"))
		b.WriteString("'")
	}
	return b.String()
}

func renderIndexColumns(cols []model.IndexColumn) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		if c.Prefix != nil {
			parts[i] = quoteIdent(c.Name) + "(" + strconv.Itoa(*c.Prefix) + ")"
		} else {
			parts[i] = quoteIdent(c.Name)
		}
	}
	return strings.Join(parts, ",")
}

func renderIndexDef(idx *model.Index) string {
	var b strings.Builder
	switch idx.Kind {
	case model.IndexPrimary:
		b.WriteString("PRIMARY KEY (")
		b.WriteString(renderIndexColumns(idx.Columns))
		b.WriteString(")")
	case model.IndexUnique:
		b.WriteString("UNIQUE KEY ")
		b.WriteString(quoteIdent(idx.Name))
		b.WriteString(" (")
		b.WriteString(renderIndexColumns(idx.Columns))
		b.WriteString(")")
	case model.IndexFulltext:
		b.WriteString("FULLTEXT KEY ")
		b.WriteString(quoteIdent(idx.Name))
		b.WriteString(" (")
		b.WriteString(renderIndexColumns(idx.Columns))
		b.WriteString(")")
	default:
		b.WriteString("KEY ")
		b.WriteString(quoteIdent(idx.Name))
		b.WriteString(" (")
		b.WriteString(renderIndexColumns(idx.Columns))
		b.WriteString(")")
	}
	if idx.Options != "" {
		b.WriteString(" ")
		b.WriteString(idx.Options)
	}
	return b.String()
}

func renderForeignKeyDef(fk *model.ForeignKey) string {
	var b strings.Builder
	b.WriteString("CONSTRAINT ")
	b.WriteString(quoteIdent(fk.Name))
	b.WriteString(" FOREIGN KEY (")
	b.WriteString(quoteIdentList(fk.LocalColumns))
	b.WriteString(") REFERENCES ")
	b.WriteString(quoteIdent(fk.RefTable))
	b.WriteString(" (")
	b.WriteString(quoteIdentList(fk.RefColumns))
	b.WriteString(")")
	if fk.OnDelete != "" {
		b.WriteString(" ON DELETE " + fk.OnDelete)
	}
	if fk.OnUpdate != "" {
		b.WriteString(" ON UPDATE " + fk.OnUpdate)
	}
	return b.String()
}

func quoteIdentList(names []string) string {
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = quoteIdent(n)
	}
	return strings.Join(parts, ",")
}

// tableChangeSQL renders one atomic model.Change against table into a single
// ALTER TABLE statement. The reverse plan is built from a diff computed
// with the snapshot roles swapped, so this function always renders in the
// "apply forward" direction relative to whatever change it is given.
func tableChangeSQL(schema, table string, c model.Change) string {
	prefix := "ALTER TABLE " + qualifiedIdent(schema, table) + " "
	switch c.Op {
	case model.OpAddColumn:
		stmt := prefix + "ADD COLUMN " + renderColumnDef(c.NewColumn)
		if c.After != nil {
			stmt += " AFTER " + quoteIdent(*c.After)
		} else {
			stmt += " FIRST"
		}
		return stmt + ";"
	case model.OpDropColumn:
		return prefix + "DROP COLUMN " + quoteIdent(c.ColumnName) + ";"
	case model.OpModifyColumn:
		return prefix + "MODIFY COLUMN " + renderColumnDef(c.NewColumn) + ";"
	case model.OpAddIndex:
		return prefix + "ADD " + renderIndexDef(c.NewIndex) + ";"
	case model.OpDropIndex:
		if c.IndexName == "PRIMARY" {
			return prefix + "DROP PRIMARY KEY;"
		}
		return prefix + "DROP INDEX " + quoteIdent(c.IndexName) + ";"
	case model.OpAddForeignKey:
		return prefix + "ADD " + renderForeignKeyDef(c.NewFK) + ";"
	case model.OpDropForeignKey:
		return prefix + "DROP FOREIGN KEY " + quoteIdent(c.FKName) + ";"
	case model.OpSetOption:
		return prefix + tableOptionClause(c.OptionKey, c.NewValue) + ";"
	default:
		return fmt.Sprintf("-- unsupported change op %s on %s.%s\n", c.Op, schema, table)
	}
}

func tableOptionClause(key, value string) string {
	switch key {
	case "ENGINE":
		return "ENGINE=" + value
	case "DEFAULT CHARSET":
		return "DEFAULT CHARSET=" + value
	case "COLLATE":
		return "COLLATE=" + value
	case "COMMENT":
		return "COMMENT='" + strings.ReplaceAll(value, "'", "''") + "'"
	default:
		return key + "=" + value
	}
}
