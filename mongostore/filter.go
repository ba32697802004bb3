package mongostore

import (
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"catalog-discovery/discovery"
)

var fieldKeys = map[discovery.Field]string{
	discovery.FieldID:             "_id",
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

func key(f discovery.Field) (string, error) {
	k, ok := fieldKeys[f]
	if !ok {
		return "", fmt.Errorf("unknown field %q", f)
	}
	return k, nil
}

// matchNothing is a filter no document satisfies.
var matchNothing = bson.M{"_id": bson.M{"$exists": false}}

// toFilter translates a predicate tree into a query document. Search text
// is quoted so it never acts as a pattern.
func toFilter(p discovery.Predicate) (bson.M, error) {
	switch p.Op {
	case discovery.OpAll:
		return bson.M{}, nil
	case discovery.OpNone:
		return matchNothing, nil
	case discovery.OpAnd, discovery.OpOr:
		if len(p.Children) == 0 {
			if p.Op == discovery.OpAnd {
				return bson.M{}, nil
			}
			return matchNothing, nil
		}
		children := make([]bson.M, 0, len(p.Children))
		for _, c := range p.Children {
			f, err := toFilter(c)
			if err != nil {
				return nil, err
			}
			children = append(children, f)
		}
		op := "$and"
		if p.Op == discovery.OpOr {
			op = "$or"
		}
		return bson.M{op: children}, nil
	}

	k, err := key(p.Field)
	if err != nil {
		return nil, err
	}
	switch p.Op {
	case discovery.OpEq, discovery.OpContains:
		return bson.M{k: p.Value}, nil
	case discovery.OpEqFold, discovery.OpContainsFold:
		s, _ := p.Value.(string)
		return bson.M{k: primitive.Regex{Pattern: "^" + regexp.QuoteMeta(s) + "$", Options: "i"}}, nil
	case discovery.OpIn:
		return bson.M{k: bson.M{"$in": p.Values}}, nil
	case discovery.OpContainsAll:
		return bson.M{k: bson.M{"$all": p.Values}}, nil
	case discovery.OpSubstring:
		s, _ := p.Value.(string)
		return bson.M{k: primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}}, nil
	case discovery.OpGte:
		return bson.M{k: bson.M{"$gte": p.Value}}, nil
	case discovery.OpGt:
		return bson.M{k: bson.M{"$gt": p.Value}}, nil
	case discovery.OpLt:
		return bson.M{k: bson.M{"$lt": p.Value}}, nil
	}
	return nil, fmt.Errorf("unsupported predicate %s", p.Op)
}

func sortDoc(order []discovery.SortField) (bson.D, error) {
	doc := make(bson.D, 0, len(order))
	for _, o := range order {
		k, err := key(o.Field)
		if err != nil {
			return nil, err
		}
		dir := 1
		if o.Desc {
			dir = -1
		}
		doc = append(doc, bson.E{Key: k, Value: dir})
	}
	return doc, nil
}
