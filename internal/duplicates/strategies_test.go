package duplicates

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evelasko/zotero-citation-linker-sub001/internal/domain"
	"github.com/evelasko/zotero-citation-linker-sub001/internal/identifier"
	"github.com/evelasko/zotero-citation-linker-sub001/internal/similarity"
)

// mockRepo implements ItemRepository for testing.
type mockRepo struct {
	items      []domain.Item
	exactErr   error
	containsErr error

	exactCalls    int
	containsCalls int
}

func (m *mockRepo) FindByExactField(_ context.Context, field domain.SearchField, value string, excludeTypes []domain.ItemType) ([]domain.Item, error) {
	m.exactCalls++
	if m.exactErr != nil {
		return nil, m.exactErr
	}
	var out []domain.Item
	for _, item := range m.items {
		if hasType(excludeTypes, item.ItemType) {
			continue
		}
		if strings.EqualFold(item.FieldValue(field), value) {
			out = append(out, item)
		}
	}
	return out, nil
}

func (m *mockRepo) FindByContains(_ context.Context, field domain.SearchField, substring string, excludeTypes []domain.ItemType) ([]domain.Item, error) {
	m.containsCalls++
	if m.containsErr != nil {
		return nil, m.containsErr
	}
	var out []domain.Item
	for _, item := range m.items {
		if hasType(excludeTypes, item.ItemType) {
			continue
		}
		if strings.Contains(strings.ToLower(item.FieldValue(field)), strings.ToLower(substring)) {
			out = append(out, item)
		}
	}
	return out, nil
}

func hasType(types []domain.ItemType, t domain.ItemType) bool {
	for _, x := range types {
		if x == t {
			return true
		}
	}
	return false
}

func TestDOIStrategy(t *testing.T) {
	t.Parallel()

	repo := &mockRepo{items: []domain.Item{
		{Key: "SELF", ItemType: domain.ItemTypeJournalArticle, DOI: "10.1000/xyz", Title: "Source"},
		{Key: "DUP1", ItemType: domain.ItemTypeJournalArticle, DOI: "10.1000/xyz", Title: "Existing Copy", Date: "2020"},
		{Key: "OTHER", ItemType: domain.ItemTypeJournalArticle, DOI: "10.1000/other"},
	}}

	s := NewDOIStrategy(repo)
	set := identifier.Set{DOI: "10.1000/xyz"}

	require.True(t, s.Applicable(set))
	candidates, err := s.Search(context.Background(), set, "SELF")
	require.NoError(t, err)

	require.Len(t, candidates, 1, "source item and non-matching items are excluded")
	assert.Equal(t, "DUP1", candidates[0].Key)
	assert.Equal(t, ScoreDOI, candidates[0].Similarity)
	assert.Equal(t, MatchTypeDOI, candidates[0].MatchType)
	assert.Equal(t, 2020, candidates[0].Year)
}

func TestDOIStrategy_NotApplicableWithoutDOI(t *testing.T) {
	t.Parallel()

	s := NewDOIStrategy(&mockRepo{})
	assert.False(t, s.Applicable(identifier.Set{}))
}

func TestISBNStrategy(t *testing.T) {
	t.Parallel()

	repo := &mockRepo{items: []domain.Item{
		{Key: "BOOK1", ItemType: domain.ItemTypeBook, ISBN: "9780306406157", Title: "A Book"},
	}}

	s := NewISBNStrategy(repo)
	candidates, err := s.Search(context.Background(), identifier.Set{ISBN: "9780306406157"}, "SELF")
	require.NoError(t, err)

	require.Len(t, candidates, 1)
	assert.Equal(t, ScoreISBN, candidates[0].Similarity)
	assert.Equal(t, MatchTypeISBN, candidates[0].MatchType)
}

func TestPMIDStrategy_RevalidatesSubstringHits(t *testing.T) {
	t.Parallel()

	repo := &mockRepo{items: []domain.Item{
		// Legitimate: same PMID in the canonical form.
		{Key: "HIT", ItemType: domain.ItemTypeJournalArticle, Extra: "PMID: 28495875"},
		// Accidental substring hit: the digits appear inside a longer
		// run with no PMID label.
		{Key: "NOISE", ItemType: domain.ItemTypeJournalArticle, Extra: "grant 284958751234"},
		// Different PMID.
		{Key: "OTHERID", ItemType: domain.ItemTypeJournalArticle, Extra: "PMID: 11111111"},
	}}

	s := NewPMIDStrategy(repo)
	set := identifier.Set{PMID: "28495875"}

	require.True(t, s.Applicable(set))
	candidates, err := s.Search(context.Background(), set, "SELF")
	require.NoError(t, err)

	require.Len(t, candidates, 1)
	assert.Equal(t, "HIT", candidates[0].Key)
	assert.Equal(t, ScorePMID, candidates[0].Similarity)
	assert.Equal(t, MatchTypePMID, candidates[0].MatchType)
}

func TestPMCIDStrategy(t *testing.T) {
	t.Parallel()

	repo := &mockRepo{items: []domain.Item{
		{Key: "HIT", ItemType: domain.ItemTypeJournalArticle, Extra: "PMCID: PMC5421578"},
	}}

	s := NewPMCIDStrategy(repo)
	candidates, err := s.Search(context.Background(), identifier.Set{PMCID: "PMC5421578"}, "SELF")
	require.NoError(t, err)

	require.Len(t, candidates, 1)
	assert.Equal(t, ScorePMCID, candidates[0].Similarity)
}

func TestArXivStrategy_CapsResults(t *testing.T) {
	t.Parallel()

	var items []domain.Item
	for _, key := range []string{"A", "B", "C", "D", "E", "F", "G"} {
		items = append(items, domain.Item{
			Key:      key,
			ItemType: domain.ItemTypeJournalArticle,
			Extra:    "arXiv: 1706.03762",
		})
	}
	repo := &mockRepo{items: items}

	s := NewArXivStrategy(repo)
	candidates, err := s.Search(context.Background(), identifier.Set{ArXivID: "1706.03762"}, "SELF")
	require.NoError(t, err)

	assert.Len(t, candidates, auxiliaryResultCap)
}

func TestArXivStrategy_MatchesLaterIdentifierInExtra(t *testing.T) {
	t.Parallel()

	repo := &mockRepo{items: []domain.Item{
		// The wanted ID is the second of two arXiv IDs in one extra
		// field; re-validation must check every occurrence.
		{
			Key:      "SECOND",
			ItemType: domain.ItemTypeJournalArticle,
			Extra:    "arXiv: 1111.11111\narXiv: 2222.22222",
		},
	}}

	s := NewArXivStrategy(repo)
	candidates, err := s.Search(context.Background(), identifier.Set{ArXivID: "2222.22222"}, "SELF")
	require.NoError(t, err)

	require.Len(t, candidates, 1)
	assert.Equal(t, "SECOND", candidates[0].Key)
	assert.Equal(t, MatchTypeArXiv, candidates[0].MatchType)
}

func TestPMIDStrategy_MatchesLaterIdentifierInExtra(t *testing.T) {
	t.Parallel()

	repo := &mockRepo{items: []domain.Item{
		{
			Key:      "SECOND",
			ItemType: domain.ItemTypeJournalArticle,
			Extra:    "PMID: 11111111\nPMID: 28495875",
		},
	}}

	s := NewPMIDStrategy(repo)
	candidates, err := s.Search(context.Background(), identifier.Set{PMID: "28495875"}, "SELF")
	require.NoError(t, err)

	require.Len(t, candidates, 1)
	assert.Equal(t, "SECOND", candidates[0].Key)
}

func TestURLStrategy_NormalizedEquality(t *testing.T) {
	t.Parallel()

	repo := &mockRepo{items: []domain.Item{
		// Same resource, different surface form.
		{Key: "SAME", ItemType: domain.ItemTypeWebpage, URL: "http://www.example.org/paper/"},
		// Same domain, different path.
		{Key: "SIBLING", ItemType: domain.ItemTypeWebpage, URL: "https://example.org/other"},
	}}

	s := NewURLStrategy(repo, zerolog.Nop())
	set := identifier.Set{URL: "https://example.org/paper"}

	require.True(t, s.Applicable(set))
	candidates, err := s.Search(context.Background(), set, "SELF")
	require.NoError(t, err)

	require.Len(t, candidates, 1, "only normalized-equal urls match")
	assert.Equal(t, "SAME", candidates[0].Key)
	assert.Equal(t, ScoreURL, candidates[0].Similarity)
	assert.Equal(t, MatchTypeURL, candidates[0].MatchType)
}

func TestURLStrategy_UnparseableURLIsNotAFailure(t *testing.T) {
	t.Parallel()

	s := NewURLStrategy(&mockRepo{}, zerolog.Nop())
	candidates, err := s.Search(context.Background(), identifier.Set{URL: "   "}, "SELF")
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestFuzzyStrategy(t *testing.T) {
	t.Parallel()

	repo := &mockRepo{items: []domain.Item{
		{
			Key: "NEARDUP", ItemType: domain.ItemTypeJournalArticle,
			Title: "Attention Is All You Need!",
			Date:  "2017",
			Creators: []domain.Creator{
				{FirstName: "Ashish", LastName: "Vaswani"},
			},
		},
		{
			Key: "UNRELATED", ItemType: domain.ItemTypeJournalArticle,
			Title: "A Treatise on Unrelated Matters",
			Date:  "1990",
			Creators: []domain.Creator{
				{FirstName: "Ashish", LastName: "Vaswani"},
			},
		},
	}}

	s := NewFuzzyStrategy(repo, similarity.DefaultWeights(), 70)
	set := identifier.Set{
		Title:       "Attention Is All You Need",
		FirstAuthor: "Ashish Vaswani",
		Year:        2017,
	}

	require.True(t, s.Applicable(set))
	candidates, err := s.Search(context.Background(), set, "SELF")
	require.NoError(t, err)

	require.Len(t, candidates, 1, "below-threshold items are dropped")
	assert.Equal(t, "NEARDUP", candidates[0].Key)
	assert.Equal(t, MatchTypeFuzzy, candidates[0].MatchType)
	assert.GreaterOrEqual(t, candidates[0].Similarity, 70)
	assert.LessOrEqual(t, candidates[0].Similarity, 100)
}

func TestFuzzyStrategy_RequiresTitleAndAuthor(t *testing.T) {
	t.Parallel()

	s := NewFuzzyStrategy(&mockRepo{}, similarity.DefaultWeights(), 70)
	assert.False(t, s.Applicable(identifier.Set{Title: "x"}))
	assert.False(t, s.Applicable(identifier.Set{FirstAuthor: "y"}))
	assert.True(t, s.Applicable(identifier.Set{Title: "x", FirstAuthor: "y"}))
}

func TestStrategies_RepositoryErrorPropagatesForLogging(t *testing.T) {
	t.Parallel()

	repoErr := errors.New("repository unavailable")
	repo := &mockRepo{exactErr: repoErr, containsErr: repoErr}

	set := identifier.Set{
		DOI: "10.1000/xyz", PMID: "28495875",
		Title: "t", FirstAuthor: "a",
	}

	for _, s := range []Strategy{
		NewDOIStrategy(repo),
		NewPMIDStrategy(repo),
		NewFuzzyStrategy(repo, similarity.DefaultWeights(), 70),
	} {
		_, err := s.Search(context.Background(), set, "SELF")
		assert.ErrorIs(t, err, repoErr, s.Name())
	}
}
