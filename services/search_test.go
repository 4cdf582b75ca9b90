package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUsers struct {
	exact    map[string]uint
	like     map[string][]uint
	err      error
	exactHit int
	likeHit  int
}

func (f *fakeUsers) FindIDByExactName(_ context.Context, name string) (uint, bool, error) {
	f.exactHit++
	if f.err != nil {
		return 0, false, f.err
	}
	id, ok := f.exact[name]
	return id, ok, nil
}

func (f *fakeUsers) FindIDsByNameLike(_ context.Context, fragment string) ([]uint, error) {
	f.likeHit++
	if f.err != nil {
		return nil, f.err
	}
	return f.like[fragment], nil
}

func TestParseSearchDimensions(t *testing.T) {
	assert.Equal(t, []SearchDimension{SearchTitle, SearchBody}, ParseSearchDimensions("title,body"))
	assert.Equal(t, []SearchDimension{SearchAuthorExact, SearchTitle}, ParseSearchDimensions(" Author! , TITLE,title"))
	assert.Empty(t, ParseSearchDimensions("subject,,tags"))
	assert.Empty(t, ParseSearchDimensions(""))
}

func TestComposeSearchFilterMatchAll(t *testing.T) {
	users := &fakeUsers{}
	cases := []SearchParams{
		{},
		{SearchType: "title"},
		{SearchText: "golang"},
		{SearchType: "title", SearchText: "go"},
		{SearchType: "author!", SearchText: "ab"},
	}
	for _, params := range cases {
		f, err := ComposeSearchFilter(context.Background(), params, users)
		require.NoError(t, err)
		assert.True(t, f.MatchesAll(), "%+v", params)
	}
	assert.Zero(t, users.exactHit+users.likeHit, "short or missing input must not hit the user store")
}

func TestComposeSearchFilterCountsRunes(t *testing.T) {
	f, err := ComposeSearchFilter(context.Background(), SearchParams{SearchType: "title", SearchText: "日本語"}, &fakeUsers{})
	require.NoError(t, err)
	require.False(t, f.MatchesAll())
	require.Len(t, f.Predicates, 1)
	assert.Equal(t, Predicate{Kind: TitleContains, Text: "日本語"}, f.Predicates[0])
}

func TestComposeSearchFilterPredicates(t *testing.T) {
	users := &fakeUsers{
		exact: map[string]uint{"alice": 7},
		like:  map[string][]uint{"alice": {7, 9}},
	}

	f, err := ComposeSearchFilter(context.Background(), SearchParams{SearchType: "title,body,author!,author", SearchText: "alice"}, users)
	require.NoError(t, err)
	assert.Equal(t, []Predicate{
		{Kind: TitleContains, Text: "alice"},
		{Kind: BodyContains, Text: "alice"},
		{Kind: AuthorIn, AuthorIDs: []uint{7}},
		{Kind: AuthorIn, AuthorIDs: []uint{7, 9}},
	}, f.Predicates)
}

func TestComposeSearchFilterUnknownAuthorMatchesNothing(t *testing.T) {
	f, err := ComposeSearchFilter(context.Background(), SearchParams{SearchType: "author!", SearchText: "nobody"}, &fakeUsers{})
	require.NoError(t, err)
	assert.True(t, f.MatchesNothing())

	f, err = ComposeSearchFilter(context.Background(), SearchParams{SearchType: "author", SearchText: "nobody"}, &fakeUsers{})
	require.NoError(t, err)
	assert.True(t, f.MatchesNothing())
}

func TestComposeSearchFilterOnlyUnknownTokens(t *testing.T) {
	f, err := ComposeSearchFilter(context.Background(), SearchParams{SearchType: "subject", SearchText: "golang"}, &fakeUsers{})
	require.NoError(t, err)
	assert.True(t, f.MatchesNothing())
}

func TestComposeSearchFilterLookupFailure(t *testing.T) {
	boom := errors.New("connection refused")
	_, err := ComposeSearchFilter(context.Background(), SearchParams{SearchType: "title,author", SearchText: "alice"}, &fakeUsers{err: boom})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestContainsPatternEscapesWildcards(t *testing.T) {
	assert.Equal(t, "%100!% sure!_!!%", containsPattern("100% Sure_!"))
}

func TestFilterApplyAgainstDatabase(t *testing.T) {
	db := newTestDB(t)
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	now := time.Now()
	createPost(t, db, alice, 1, "Hello Gophers", "channels everywhere", now)
	createPost(t, db, bob, 2, "100% done", "nothing to see", now)
	createPost(t, db, bob, 3, "Weekly", "GOPHERS meetup", now)

	count := func(f Filter) int64 {
		var n int64
		require.NoError(t, f.Apply(db.Table("posts")).Count(&n).Error)
		return n
	}

	assert.EqualValues(t, 3, count(MatchAll()))
	assert.EqualValues(t, 0, count(MatchNone()))
	assert.EqualValues(t, 2, count(AnyOf(Predicate{Kind: TitleContains, Text: "gopher"}, Predicate{Kind: BodyContains, Text: "gopher"})))
	assert.EqualValues(t, 1, count(AnyOf(Predicate{Kind: TitleContains, Text: "100%"})))
	assert.EqualValues(t, 0, count(AnyOf(Predicate{Kind: TitleContains, Text: "1_0"})))
	assert.EqualValues(t, 2, count(AnyOf(Predicate{Kind: AuthorIn, AuthorIDs: []uint{bob.ID}})))
}

func TestUserDirectoryLookups(t *testing.T) {
	db := newTestDB(t)
	alice := createUser(t, db, "Alice")
	createUser(t, db, "malice")
	createUser(t, db, "bob")
	dir := NewUserDirectory(db)
	ctx := context.Background()

	id, found, err := dir.FindIDByExactName(ctx, "Alice")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, alice.ID, id)

	_, found, err = dir.FindIDByExactName(ctx, "ali")
	require.NoError(t, err)
	assert.False(t, found)

	ids, err := dir.FindIDsByNameLike(ctx, "LICE")
	require.NoError(t, err)
	assert.Len(t, ids, 2)

	ids, err = dir.FindIDsByNameLike(ctx, "zzz")
	require.NoError(t, err)
	assert.Empty(t, ids)
}
