package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"
)

// MinSearchTextLength is the shortest search text that narrows a listing.
const MinSearchTextLength = 3

// SearchDimension is one field a post search may look at.
type SearchDimension int

const (
	SearchTitle SearchDimension = iota + 1
	SearchBody
	// SearchAuthor matches authors whose name contains the text.
	SearchAuthor
	// SearchAuthorExact matches the single author whose name equals the text.
	SearchAuthorExact
)

var searchTokens = map[string]SearchDimension{
	"title":   SearchTitle,
	"body":    SearchBody,
	"author":  SearchAuthor,
	"author!": SearchAuthorExact,
}

func (d SearchDimension) String() string {
	for token, dim := range searchTokens {
		if dim == d {
			return token
		}
	}
	return fmt.Sprintf("SearchDimension(%d)", int(d))
}

// ParseSearchDimensions splits a comma separated searchType value. Tokens are
// case-insensitive; unknown and repeated tokens are dropped, order is kept.
func ParseSearchDimensions(raw string) []SearchDimension {
	dims := []SearchDimension{}
	seen := map[SearchDimension]bool{}
	for _, token := range strings.Split(strings.ToLower(raw), ",") {
		dim, ok := searchTokens[strings.TrimSpace(token)]
		if !ok || seen[dim] {
			continue
		}
		seen[dim] = true
		dims = append(dims, dim)
	}
	return dims
}

// PredicateKind tags the variant held by a Predicate.
type PredicateKind int

const (
	TitleContains PredicateKind = iota + 1
	BodyContains
	AuthorIn
)

// Predicate is a single post condition. Text is used by the *Contains kinds,
// AuthorIDs by AuthorIn.
type Predicate struct {
	Kind      PredicateKind
	Text      string
	AuthorIDs []uint
}

type filterMode int

const (
	matchAll filterMode = iota
	matchNone
	matchAny
)

// Filter selects posts. The zero value matches every post.
type Filter struct {
	mode       filterMode
	Predicates []Predicate
}

// MatchAll returns the filter that selects every post.
func MatchAll() Filter { return Filter{mode: matchAll} }

// MatchNone returns the filter that selects no post.
func MatchNone() Filter { return Filter{mode: matchNone} }

// AnyOf ORs predicates together. With no predicates it matches nothing.
func AnyOf(preds ...Predicate) Filter {
	if len(preds) == 0 {
		return MatchNone()
	}
	return Filter{mode: matchAny, Predicates: preds}
}

// MatchesAll reports whether the filter places no restriction.
func (f Filter) MatchesAll() bool { return f.mode == matchAll }

// MatchesNothing reports whether the filter can never select a post.
func (f Filter) MatchesNothing() bool { return f.mode == matchNone }

// Apply adds the filter's conditions to a query over the posts table.
func (f Filter) Apply(tx *gorm.DB) *gorm.DB {
	switch f.mode {
	case matchAll:
		return tx
	case matchNone:
		return tx.Where("1 = 0")
	}

	conds := make([]string, 0, len(f.Predicates))
	args := make([]interface{}, 0, len(f.Predicates))
	for _, p := range f.Predicates {
		switch p.Kind {
		case TitleContains:
			conds = append(conds, "LOWER(posts.title) LIKE ? ESCAPE '!'")
			args = append(args, containsPattern(p.Text))
		case BodyContains:
			conds = append(conds, "LOWER(posts.content) LIKE ? ESCAPE '!'")
			args = append(args, containsPattern(p.Text))
		case AuthorIn:
			conds = append(conds, "posts.user_id IN ?")
			args = append(args, p.AuthorIDs)
		}
	}
	if len(conds) == 0 {
		return tx.Where("1 = 0")
	}
	return tx.Where("("+strings.Join(conds, " OR ")+")", args...)
}

// UserLookup resolves author names to user ids.
type UserLookup interface {
	FindIDByExactName(ctx context.Context, name string) (uint, bool, error)
	FindIDsByNameLike(ctx context.Context, fragment string) ([]uint, error)
}

// SearchParams are the raw query parameters of a listing request.
type SearchParams struct {
	SearchType string `form:"searchType" json:"searchType"`
	SearchText string `form:"searchText" json:"searchText"`
}

// ComposeSearchFilter builds the post filter for a search request.
//
// Missing parameters or a search text shorter than MinSearchTextLength select
// every post. Otherwise each recognised dimension contributes at most one
// predicate and the predicates are ORed; if none resolve, nothing matches.
// Lookup failures are returned unchanged.
func ComposeSearchFilter(ctx context.Context, params SearchParams, users UserLookup) (Filter, error) {
	text := params.SearchText
	if params.SearchType == "" || text == "" || utf8.RuneCountInString(text) < MinSearchTextLength {
		return MatchAll(), nil
	}

	preds := []Predicate{}
	for _, dim := range ParseSearchDimensions(params.SearchType) {
		switch dim {
		case SearchTitle:
			preds = append(preds, Predicate{Kind: TitleContains, Text: text})
		case SearchBody:
			preds = append(preds, Predicate{Kind: BodyContains, Text: text})
		case SearchAuthorExact:
			id, found, err := users.FindIDByExactName(ctx, text)
			if err != nil {
				return Filter{}, fmt.Errorf("lookup author %q: %w", text, err)
			}
			if found {
				preds = append(preds, Predicate{Kind: AuthorIn, AuthorIDs: []uint{id}})
			}
		case SearchAuthor:
			ids, err := users.FindIDsByNameLike(ctx, text)
			if err != nil {
				return Filter{}, fmt.Errorf("lookup authors like %q: %w", text, err)
			}
			if len(ids) > 0 {
				preds = append(preds, Predicate{Kind: AuthorIn, AuthorIDs: ids})
			}
		}
	}
	return AnyOf(preds...), nil
}

// containsPattern lowercases text and escapes LIKE wildcards with '!'.
func containsPattern(text string) string {
	r := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return "%" + r.Replace(strings.ToLower(text)) + "%"
}
