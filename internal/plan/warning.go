package plan

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/dbddl/ddlwizard/internal/model"
)

var intRank = map[string]int{
	"tinyint": 1, "smallint": 2, "mediumint": 3, "int": 4, "integer": 4, "bigint": 5,
}

var typeLenRe = regexp.MustCompile(`^([a-zA-Z]+)\((\d+)`)

func baseAndLen(t string) (string, int) {
	t = strings.ToLower(strings.TrimSpace(t))
	if m := typeLenRe.FindStringSubmatch(t); m != nil {
		n, _ := strconv.Atoi(m[2])
		return m[1], n
	}
	for i, r := range t {
		if !(r >= 'a' && r <= 'z') {
			return t[:i], 0
		}
	}
	return t, 0
}

// typeNarrows reports whether changing a column from oldType to newType is
// a narrowing that can truncate or reject existing data: a smaller integer
// family member, a shorter VARCHAR/CHAR, or an ENUM that drops a member.
func typeNarrows(oldType, newType string) bool {
	oldBase, oldLen := baseAndLen(oldType)
	newBase, newLen := baseAndLen(newType)

	if r1, ok1 := intRank[oldBase]; ok1 {
		if r2, ok2 := intRank[newBase]; ok2 {
			return r2 < r1
		}
	}
	if (oldBase == "varchar" || oldBase == "char") && oldBase == newBase {
		return oldLen > 0 && newLen > 0 && newLen < oldLen
	}
	if oldBase == "enum" && newBase == "enum" {
		return enumRemovesMember(oldType, newType)
	}
	return false
}

func enumMembers(enumType string) []string {
	start := strings.IndexByte(enumType, '(')
	end := strings.LastIndexByte(enumType, ')')
	if start < 0 || end < 0 || end <= start {
		return nil
	}
	inner := enumType[start+1 : end]
	parts := strings.Split(inner, ",")
	for i, p := range parts {
		parts[i] = strings.Trim(strings.TrimSpace(p), "'")
	}
	return parts
}

func enumRemovesMember(oldType, newType string) bool {
	oldMembers := enumMembers(oldType)
	newSet := make(map[string]bool)
	for _, m := range enumMembers(newType) {
		newSet[m] = true
	}
	for _, m := range oldMembers {
		if !newSet[m] {
			return true
		}
	}
	return false
}

// changeWarning attaches a data-loss advisory to changes that discard data
// outright (drop_column) or narrow a column's storable range
// (modify_column). Other ops never warn.
func changeWarning(c model.Change) string {
	switch c.Op {
	case model.OpDropColumn:
		return "dropping column `" + c.ColumnName + "` discards its data"
	case model.OpModifyColumn:
		if c.OldColumn != nil && c.NewColumn != nil && typeNarrows(c.OldColumn.Type, c.NewColumn.Type) {
			return "column `" + c.ColumnName + "` narrows from " + c.OldColumn.Type + " to " + c.NewColumn.Type + "; existing data may be truncated or rejected"
		}
	}
	return ""
}

func tableDropWarning(tableName string) string {
	return "dropping table `" + tableName + "` discards all of its data"
}
