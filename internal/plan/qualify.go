package plan

import "regexp"

// qualifyDDL rewrites the first bare or backtick-quoted occurrence of name
// following keyword (e.g. "TABLE", "PROCEDURE") into a schema-qualified,
// backtick-quoted identifier. DEFINER/ALGORITHM/SQL SECURITY clauses that
// precede the object keyword in views/routines are left untouched since the
// match starts at keyword itself.
func qualifyDDL(ddl, keyword, schema, name string) string {
	pattern := regexp.MustCompile(`(?i)(\b` + keyword + `\s+)` + "`?" + regexp.QuoteMeta(name) + "`?")
	quoted := "`" + schema + "`.`" + name + "`"
	loc := pattern.FindStringSubmatchIndex(ddl)
	if loc == nil {
		return ddl
	}
	return ddl[:loc[0]] + ddl[loc[2]:loc[3]] + quoted + ddl[loc[1]:]
}

func quoteIdent(name string) string {
	return "`" + name + "`"
}

func qualifiedIdent(schema, name string) string {
	return quoteIdent(schema) + "." + quoteIdent(name)
}
