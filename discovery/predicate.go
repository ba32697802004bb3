package discovery

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Field names a filterable or sortable project attribute.
type Field string

const (
	FieldID             Field = "id"
	FieldTitle          Field = "title"
	FieldDescription    Field = "description"
	FieldAuthor         Field = "author"
	FieldContributors   Field = "contributors"
	FieldClassification Field = "classification"
	FieldTags           Field = "tags"
	FieldGameVersions   Field = "game_versions"
	FieldDownloadCount  Field = "download_count"
	FieldFavoriteCount  Field = "favorite_count"
	FieldRating         Field = "rating"
	FieldReviewCount    Field = "review_count"
	FieldStatus         Field = "status"
	FieldCreatedAt      Field = "created_at"
	FieldUpdatedAt      Field = "updated_at"
)

// MultiValued reports whether the field holds a set of strings.
func (f Field) MultiValued() bool {
	return f == FieldTags || f == FieldGameVersions || f == FieldContributors
}

// Op is the operator of a predicate node.
type Op int

const (
	OpAll Op = iota
	OpNone
	OpAnd
	OpOr
	OpEq
	OpEqFold
	OpIn
	OpContains
	OpContainsFold
	OpContainsAll
	OpSubstring
	OpGte
	OpGt
	OpLt
)

func (o Op) String() string {
	switch o {
	case OpAll:
		return "all"
	case OpNone:
		return "none"
	case OpAnd:
		return "and"
	case OpOr:
		return "or"
	case OpEq:
		return "eq"
	case OpEqFold:
		return "eqfold"
	case OpIn:
		return "in"
	case OpContains:
		return "contains"
	case OpContainsFold:
		return "containsfold"
	case OpContainsAll:
		return "containsAll"
	case OpSubstring:
		return "substring"
	case OpGte:
		return "gte"
	case OpGt:
		return "gt"
	case OpLt:
		return "lt"
	}
	return fmt.Sprintf("op(%d)", int(o))
}

// Predicate is a node of a boolean expression tree over project fields.
// Stores translate the tree into their native query language; Match is the
// reference semantics.
//
// Value holds a string for Eq/EqFold/Contains/ContainsFold/Substring, and a float64 or
// time.Time for the comparison operators. Values holds the operands of
// In/ContainsAll.
type Predicate struct {
	Op       Op
	Field    Field
	Value    any
	Values   []string
	Children []Predicate
}

// All matches every project.
func All() Predicate { return Predicate{Op: OpAll} }

// None matches no project.
func None() Predicate { return Predicate{Op: OpNone} }

// And combines predicates with logical AND. All children are dropped, and a
// None child collapses the whole expression to None.
func And(ps ...Predicate) Predicate {
	var kept []Predicate
	for _, p := range ps {
		switch p.Op {
		case OpAll:
			continue
		case OpNone:
			return None()
		case OpAnd:
			kept = append(kept, p.Children...)
		default:
			kept = append(kept, p)
		}
	}
	switch len(kept) {
	case 0:
		return All()
	case 1:
		return kept[0]
	}
	return Predicate{Op: OpAnd, Children: kept}
}

// Or combines predicates with logical OR.
func Or(ps ...Predicate) Predicate {
	var kept []Predicate
	for _, p := range ps {
		switch p.Op {
		case OpAll:
			return All()
		case OpNone:
			continue
		default:
			kept = append(kept, p)
		}
	}
	switch len(kept) {
	case 0:
		return None()
	case 1:
		return kept[0]
	}
	return Predicate{Op: OpOr, Children: kept}
}

// Eq matches an exact, case-sensitive string value.
func Eq(f Field, v string) Predicate { return Predicate{Op: OpEq, Field: f, Value: v} }

// EqFold matches a string value ignoring case.
func EqFold(f Field, v string) Predicate { return Predicate{Op: OpEqFold, Field: f, Value: v} }

// In matches when the field equals one of vals. An empty set matches nothing.
func In(f Field, vals []string) Predicate {
	if len(vals) == 0 {
		return None()
	}
	return Predicate{Op: OpIn, Field: f, Values: append([]string(nil), vals...)}
}

// Contains matches when a multi-valued field holds v.
func Contains(f Field, v string) Predicate { return Predicate{Op: OpContains, Field: f, Value: v} }

// ContainsFold matches when a multi-valued field holds v, ignoring case.
func ContainsFold(f Field, v string) Predicate {
	return Predicate{Op: OpContainsFold, Field: f, Value: v}
}

// ContainsAll matches when a multi-valued field holds every value in vals.
func ContainsAll(f Field, vals []string) Predicate {
	if len(vals) == 0 {
		return All()
	}
	return Predicate{Op: OpContainsAll, Field: f, Values: append([]string(nil), vals...)}
}

// Substring matches a case-insensitive literal substring. The text is never
// interpreted as a pattern.
func Substring(f Field, text string) Predicate {
	return Predicate{Op: OpSubstring, Field: f, Value: text}
}

// Gte matches field >= v. v is a number or a time.Time.
func Gte(f Field, v any) Predicate { return Predicate{Op: OpGte, Field: f, Value: normalizeOperand(v)} }

// Gt matches field > v.
func Gt(f Field, v any) Predicate { return Predicate{Op: OpGt, Field: f, Value: normalizeOperand(v)} }

// Lt matches field < v.
func Lt(f Field, v any) Predicate { return Predicate{Op: OpLt, Field: f, Value: normalizeOperand(v)} }

func normalizeOperand(v any) any {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case int32:
		return float64(n)
	case float32:
		return float64(n)
	case time.Time:
		return n.UTC()
	}
	return v
}

// Match evaluates the predicate against one project.
func (p Predicate) Match(pr Project) bool {
	switch p.Op {
	case OpAll:
		return true
	case OpNone:
		return false
	case OpAnd:
		for _, c := range p.Children {
			if !c.Match(pr) {
				return false
			}
		}
		return true
	case OpOr:
		for _, c := range p.Children {
			if c.Match(pr) {
				return true
			}
		}
		return false
	case OpEq:
		return stringField(pr, p.Field) == p.Value
	case OpEqFold:
		s, _ := p.Value.(string)
		return strings.EqualFold(stringField(pr, p.Field), s)
	case OpIn:
		return slices.Contains(p.Values, stringField(pr, p.Field))
	case OpContains:
		s, _ := p.Value.(string)
		return slices.Contains(listField(pr, p.Field), s)
	case OpContainsFold:
		s, _ := p.Value.(string)
		return slices.ContainsFunc(listField(pr, p.Field), func(v string) bool { return strings.EqualFold(v, s) })
	case OpContainsAll:
		have := listField(pr, p.Field)
		for _, want := range p.Values {
			if !slices.Contains(have, want) {
				return false
			}
		}
		return true
	case OpSubstring:
		s, _ := p.Value.(string)
		return strings.Contains(strings.ToLower(stringField(pr, p.Field)), strings.ToLower(s))
	case OpGte, OpGt, OpLt:
		c, ok := compareValues(FieldValue(pr, p.Field), p.Value)
		if !ok {
			return false
		}
		switch p.Op {
		case OpGte:
			return c >= 0
		case OpGt:
			return c > 0
		default:
			return c < 0
		}
	}
	return false
}

// String renders the tree for logs.
func (p Predicate) String() string {
	switch p.Op {
	case OpAll, OpNone:
		return p.Op.String()
	case OpAnd, OpOr:
		parts := make([]string, len(p.Children))
		for i, c := range p.Children {
			parts[i] = c.String()
		}
		return p.Op.String() + "(" + strings.Join(parts, ", ") + ")"
	case OpIn, OpContainsAll:
		return fmt.Sprintf("%s(%s, %v)", p.Op, p.Field, p.Values)
	}
	return fmt.Sprintf("%s(%s, %v)", p.Op, p.Field, p.Value)
}

// FieldValue returns the value of f on pr: a string, []string, float64 or
// time.Time.
func FieldValue(pr Project, f Field) any {
	switch f {
	case FieldID:
		return pr.ID
	case FieldTitle:
		return pr.Title
	case FieldDescription:
		return pr.Description
	case FieldAuthor:
		return pr.Author
	case FieldClassification:
		return string(pr.Classification)
	case FieldStatus:
		return string(pr.Status)
	case FieldContributors:
		return pr.Contributors
	case FieldTags:
		return pr.Tags
	case FieldGameVersions:
		return pr.GameVersions
	case FieldDownloadCount:
		return float64(pr.DownloadCount)
	case FieldFavoriteCount:
		return float64(pr.FavoriteCount)
	case FieldRating:
		return pr.Rating
	case FieldReviewCount:
		return float64(pr.ReviewCount)
	case FieldCreatedAt:
		return pr.CreatedAt
	case FieldUpdatedAt:
		return pr.UpdatedAt
	}
	return nil
}

// CompareField orders two projects by one field. Strings compare bytewise.
func CompareField(a, b Project, f Field) int {
	c, _ := compareValues(FieldValue(a, f), FieldValue(b, f))
	return c
}

func compareValues(a, b any) (int, bool) {
	switch x := a.(type) {
	case float64:
		y, ok := b.(float64)
		if !ok {
			return 0, false
		}
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	case time.Time:
		y, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return x.Compare(y), true
	case string:
		y, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(x, y), true
	}
	return 0, false
}

func stringField(pr Project, f Field) string {
	s, _ := FieldValue(pr, f).(string)
	return s
}

func listField(pr Project, f Field) []string {
	l, _ := FieldValue(pr, f).([]string)
	return l
}
