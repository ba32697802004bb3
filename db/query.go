package db

import (
	"fmt"
	"strings"
	"time"

	"catalog-discovery/discovery"
)

// columns maps predicate fields onto projects table columns.
var columns = map[discovery.Field]string{
	discovery.FieldID:             "id",
	discovery.FieldTitle:          "title",
	discovery.FieldDescription:    "description",
	discovery.FieldAuthor:         "author",
	discovery.FieldContributors:   "contributors",
	discovery.FieldClassification: "classification",
	discovery.FieldTags:           "tags",
	discovery.FieldGameVersions:   "game_versions",
	discovery.FieldDownloadCount:  "download_count",
	discovery.FieldFavoriteCount:  "favorite_count",
	discovery.FieldRating:         "rating",
	discovery.FieldReviewCount:    "review_count",
	discovery.FieldStatus:         "status",
	discovery.FieldCreatedAt:      "created_at",
	discovery.FieldUpdatedAt:      "updated_at",
}

func column(f discovery.Field) (string, error) {
	col, ok := columns[f]
	if !ok {
		return "", fmt.Errorf("unknown field %q", f)
	}
	return col, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// buildWhere translates a predicate tree into a parameterized SQL condition.
func buildWhere(p discovery.Predicate) (string, []any, error) {
	switch p.Op {
	case discovery.OpAll:
		return "1 = 1", nil, nil
	case discovery.OpNone:
		return "1 = 0", nil, nil
	case discovery.OpAnd, discovery.OpOr:
		if len(p.Children) == 0 {
			if p.Op == discovery.OpAnd {
				return "1 = 1", nil, nil
			}
			return "1 = 0", nil, nil
		}
		joiner := " AND "
		if p.Op == discovery.OpOr {
			joiner = " OR "
		}
		parts := make([]string, 0, len(p.Children))
		var args []any
		for _, c := range p.Children {
			sql, cargs, err := buildWhere(c)
			if err != nil {
				return "", nil, err
			}
			parts = append(parts, "("+sql+")")
			args = append(args, cargs...)
		}
		return strings.Join(parts, joiner), args, nil
	}

	col, err := column(p.Field)
	if err != nil {
		return "", nil, err
	}
	switch p.Op {
	case discovery.OpEq:
		return col + " = ?", []any{p.Value}, nil
	case discovery.OpEqFold:
		s, _ := p.Value.(string)
		return "lower(" + col + ") = ?", []any{strings.ToLower(s)}, nil
	case discovery.OpIn:
		if len(p.Values) == 0 {
			return "1 = 0", nil, nil
		}
		return col + " IN ?", []any{p.Values}, nil
	case discovery.OpContains:
		s, _ := p.Value.(string)
		return containsElement(col, s)
	case discovery.OpContainsFold:
		s, _ := p.Value.(string)
		if s == "" || strings.Contains(s, listSep) {
			return "1 = 0", nil, nil
		}
		return "instr(lower(" + col + "), ?) > 0", []any{listSep + strings.ToLower(s) + listSep}, nil
	case discovery.OpContainsAll:
		parts := make([]string, 0, len(p.Values))
		var args []any
		for _, v := range p.Values {
			sql, vargs, _ := containsElement(col, v)
			parts = append(parts, sql)
			args = append(args, vargs...)
		}
		if len(parts) == 0 {
			return "1 = 1", nil, nil
		}
		return strings.Join(parts, " AND "), args, nil
	case discovery.OpSubstring:
		s, _ := p.Value.(string)
		return col + ` LIKE ? ESCAPE '\'`, []any{"%" + likeEscaper.Replace(s) + "%"}, nil
	case discovery.OpGte, discovery.OpGt, discovery.OpLt:
		if p.Field.MultiValued() {
			return "", nil, fmt.Errorf("cannot compare multi-valued field %q", p.Field)
		}
		op := map[discovery.Op]string{discovery.OpGte: ">=", discovery.OpGt: ">", discovery.OpLt: "<"}[p.Op]
		return col + " " + op + " ?", []any{operand(p.Value)}, nil
	}
	return "", nil, fmt.Errorf("unsupported predicate %s", p.Op)
}

func containsElement(col, v string) (string, []any, error) {
	if v == "" || strings.Contains(v, listSep) {
		return "1 = 0", nil, nil
	}
	return "instr(" + col + ", ?) > 0", []any{listSep + v + listSep}, nil
}

func operand(v any) any {
	if t, ok := v.(time.Time); ok {
		return toMillis(t)
	}
	return v
}
