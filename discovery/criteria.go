package discovery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// View is a named result scope that overrides visibility or default sort.
type View int

const (
	ViewDefault View = iota
	ViewMyProjects
	ViewFavorites
	ViewHiddenGems
	ViewPopular
	ViewTrending
)

// ViewOf maps the raw category parameter onto a view. Unknown categories
// are the default catalog view.
func ViewOf(category string) View {
	switch strings.ToLower(strings.TrimSpace(category)) {
	case "your projects", "my projects", "your_projects", "my_projects":
		return ViewMyProjects
	case "favorites", "favourites":
		return ViewFavorites
	case "hidden_gems", "hidden gems", "hidden-gems":
		return ViewHiddenGems
	case "popular":
		return ViewPopular
	case "trending":
		return ViewTrending
	}
	return ViewDefault
}

func (v View) callerScoped() bool {
	return v == ViewMyProjects || v == ViewFavorites
}

func (v View) String() string {
	switch v {
	case ViewMyProjects:
		return "my_projects"
	case ViewFavorites:
		return "favorites"
	case ViewHiddenGems:
		return "hidden_gems"
	case ViewPopular:
		return "popular"
	case ViewTrending:
		return "trending"
	}
	return "default"
}

// PublicStatuses are the lifecycle states visible in public searches.
var PublicStatuses = []string{string(StatusPublished), string(StatusArchived)}

// ownedBy matches projects the caller authored or contributes to. Both
// names compare without case.
func ownedBy(who *Identity) Predicate {
	if who == nil || who.ID == "" {
		return None()
	}
	return Or(
		EqFold(FieldAuthor, who.ID),
		ContainsFold(FieldContributors, who.ID),
	)
}

// VisibleTo matches what a caller may open directly: public projects, plus
// anything the caller owns.
func VisibleTo(who *Identity) Predicate {
	return Or(In(FieldStatus, PublicStatuses), ownedBy(who))
}

// Criteria is the normalized predicate set of one query.
type Criteria struct {
	Predicate Predicate
	View      View
	// ForcedSort overrides the requested sort when non-empty.
	ForcedSort SortKey
}

// CriteriaBuilder converts query parameters into a predicate tree.
type CriteriaBuilder struct {
	identities IdentityResolver
	log        *zap.SugaredLogger
}

// NewCriteriaBuilder creates a builder. identities may be nil, in which case
// the favorites view is always empty.
func NewCriteriaBuilder(identities IdentityResolver, log *zap.SugaredLogger) *CriteriaBuilder {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &CriteriaBuilder{identities: identities, log: log}
}

// Build composes the predicates for p, resolving relative date ranges
// against now.
func (b *CriteriaBuilder) Build(ctx context.Context, p Params, now time.Time) (Criteria, error) {
	view := ViewOf(p.Category)
	crit := Criteria{View: view}

	if view == ViewFavorites {
		pred, err := b.favorites(ctx, p.Caller)
		if err != nil {
			return Criteria{}, err
		}
		crit.Predicate = pred
		crit.ForcedSort = SortTitle
		return crit, nil
	}

	var visibility Predicate
	if view == ViewMyProjects {
		visibility = ownedBy(p.Caller)
	} else {
		visibility = In(FieldStatus, PublicStatuses)
	}

	parts := []Predicate{visibility}

	if p.Author != "" {
		parts = append(parts, EqFold(FieldAuthor, p.Author))
	}
	if p.Search != "" {
		parts = append(parts, Or(
			Substring(FieldTitle, p.Search),
			Substring(FieldDescription, p.Search),
			Substring(FieldAuthor, p.Search),
		))
	}
	if len(p.Tags) > 0 {
		parts = append(parts, ContainsAll(FieldTags, p.Tags))
	}
	if c := p.Classification; c != "" && !strings.EqualFold(c, "all") {
		parts = append(parts, Eq(FieldClassification, strings.ToUpper(c)))
	}
	if p.GameVersion != "" {
		parts = append(parts, Contains(FieldGameVersions, p.GameVersion))
	}
	if p.MinRating > 0 {
		parts = append(parts, Gte(FieldRating, p.MinRating))
	}
	if p.MinDownloads > 0 {
		parts = append(parts, Gte(FieldDownloadCount, p.MinDownloads))
	}

	cutoff, ok, err := ResolveDateCutoff(p.DateRange, now)
	if err != nil {
		b.log.Warnw("Ignoring unparseable date range", zap.String("date_range", p.DateRange), zap.Error(err))
	} else if ok {
		parts = append(parts, Gte(FieldUpdatedAt, cutoff))
	}

	crit.Predicate = And(parts...)
	return crit, nil
}

func (b *CriteriaBuilder) favorites(ctx context.Context, caller *Identity) (Predicate, error) {
	if caller == nil || caller.ID == "" || b.identities == nil {
		return None(), nil
	}
	liked, err := b.identities.LikedProjectIDs(ctx, *caller)
	if err != nil {
		return Predicate{}, fmt.Errorf("failed to resolve liked projects for %q: %w", caller.ID, err)
	}
	return And(In(FieldID, liked), In(FieldStatus, PublicStatuses)), nil
}

// ResolveDateCutoff turns a symbolic range (7d, 30d, 90d, 1y, all) or an
// explicit ISO date into a cutoff. ok is false when no date filter applies.
// An unparseable range returns an error; callers treat it as "all".
func ResolveDateCutoff(rng string, now time.Time) (cutoff time.Time, ok bool, err error) {
	switch strings.ToLower(strings.TrimSpace(rng)) {
	case "", "all":
		return time.Time{}, false, nil
	case "7d":
		return now.AddDate(0, 0, -7), true, nil
	case "30d":
		return now.AddDate(0, 0, -30), true, nil
	case "90d":
		return now.AddDate(0, 0, -90), true, nil
	case "1y":
		return now.AddDate(-1, 0, 0), true, nil
	}
	for _, layout := range []string{time.DateOnly, time.RFC3339, time.RFC3339Nano} {
		if t, perr := time.Parse(layout, strings.TrimSpace(rng)); perr == nil {
			return t.UTC(), true, nil
		}
	}
	return time.Time{}, false, fmt.Errorf("unrecognized date range %q", rng)
}
