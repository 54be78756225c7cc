package identifier

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/evelasko/zotero-citation-linker-sub001/internal/domain"
)

func TestNormalizeDOI(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		raw   string
		want  string
		valid bool
	}{
		{"bare", "10.1000/xyz", "10.1000/xyz", true},
		{"https resolver", "https://doi.org/10.1000/xyz", "10.1000/xyz", true},
		{"http dx resolver", "http://dx.doi.org/10.1000/182", "10.1000/182", true},
		{"doi label", "doi:10.1038/nature14539", "10.1038/nature14539", true},
		{"uppercase label", "DOI: 10.1038/nature14539", "10.1038/nature14539", true},
		{"surrounding whitespace", "  10.1000/xyz  ", "10.1000/xyz", true},
		{"not a doi", "not-a-doi", "", false},
		{"missing suffix", "10.1000/", "", false},
		{"missing prefix digits", "10./xyz", "", false},
		{"wrong registrant", "11.1000/xyz", "", false},
		{"space in suffix", "10.1000/x yz", "", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := NormalizeDOI(tt.raw)
			assert.Equal(t, tt.valid, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractPMID(t *testing.T) {
	t.Parallel()

	got, ok := ExtractPMID("PMID: 28495875\nPMCID: PMC5421578")
	assert.True(t, ok)
	assert.Equal(t, "28495875", got)

	got, ok = ExtractPMID("PMID:9999999")
	assert.True(t, ok)
	assert.Equal(t, "9999999", got)

	_, ok = ExtractPMID("PMID: 123")
	assert.False(t, ok, "too few digits")

	_, ok = ExtractPMID("no identifiers here")
	assert.False(t, ok)
}

func TestExtractPMCID(t *testing.T) {
	t.Parallel()

	got, ok := ExtractPMCID("PMCID: PMC5421578")
	assert.True(t, ok)
	assert.Equal(t, "PMC5421578", got)

	_, ok = ExtractPMCID("PMID: 28495875")
	assert.False(t, ok)
}

func TestExtractArXivID(t *testing.T) {
	t.Parallel()

	got, ok := ExtractArXivID("arXiv: 1706.03762")
	assert.True(t, ok)
	assert.Equal(t, "1706.03762", got)

	got, ok = ExtractArXivID("arXiv:2301.12345v2")
	assert.True(t, ok)
	assert.Equal(t, "2301.12345v2", got)

	_, ok = ExtractArXivID("arXiv: hep-th/9901001")
	assert.False(t, ok, "old-style ids are not supported")
}

func TestNormalizeISBN(t *testing.T) {
	t.Parallel()

	got, ok := NormalizeISBN("978-0-306-40615-7")
	assert.True(t, ok)
	assert.Equal(t, "9780306406157", got)

	_, ok = NormalizeISBN("definitely not an isbn")
	assert.False(t, ok, "shape pre-filter rejects text before checksum runs")

	_, ok = NormalizeISBN("978-0-306-40615-8")
	assert.False(t, ok, "shape passes but checksum fails")
}

func TestNormalizeISSN(t *testing.T) {
	t.Parallel()

	got, ok := NormalizeISSN("0317-8471")
	assert.True(t, ok)
	assert.Equal(t, "0317-8471", got)

	got, ok = NormalizeISSN("03178471")
	assert.True(t, ok, "hyphen is optional on input")
	assert.Equal(t, "0317-8471", got)

	got, ok = NormalizeISSN("2434-561x")
	assert.True(t, ok)
	assert.Equal(t, "2434-561X", got, "check digit is uppercased")

	_, ok = NormalizeISSN("0317-8472")
	assert.False(t, ok, "shape passes but checksum fails")

	_, ok = NormalizeISSN("not an issn")
	assert.False(t, ok)
}

func TestPattern(t *testing.T) {
	t.Parallel()

	assert.NotNil(t, Pattern(KindPMID))
	assert.NotNil(t, Pattern(KindPMCID))
	assert.NotNil(t, Pattern(KindArXiv))
	assert.Nil(t, Pattern(KindDOI))
	assert.Nil(t, Pattern(KindISBN))
	assert.Nil(t, Pattern(KindURL))
}

func TestKind_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "DOI", KindDOI.String())
	assert.Equal(t, "ISBN", KindISBN.String())
	assert.Equal(t, "PMID", KindPMID.String())
	assert.Equal(t, "PMCID", KindPMCID.String())
	assert.Equal(t, "arXiv", KindArXiv.String())
	assert.Equal(t, "URL", KindURL.String())
}

func TestExtractSet(t *testing.T) {
	t.Parallel()

	item := domain.Item{
		Key:      "ABCD1234",
		ItemType: domain.ItemTypeJournalArticle,
		Title:    "  Attention Is All You Need ",
		Date:     "2017-06-12",
		Creators: []domain.Creator{{FirstName: "Ashish", LastName: "Vaswani"}},
		Extra:    "PMID: 28495875\nPMCID: PMC5421578\narXiv: 1706.03762",
		URL:      "https://arxiv.org/abs/1706.03762",
		DOI:      "https://doi.org/10.48550/arXiv.1706.03762",
		ISBN:     "not applicable",
		ISSN:     "0317-8471",
	}

	set := ExtractSet(item)
	assert.Equal(t, "Attention Is All You Need", set.Title)
	assert.Equal(t, "Ashish Vaswani", set.FirstAuthor)
	assert.Equal(t, 2017, set.Year)
	assert.Equal(t, "10.48550/arXiv.1706.03762", set.DOI)
	assert.Empty(t, set.ISBN, "invalid isbn stays absent, never partially cleaned")
	assert.Equal(t, "0317-8471", set.ISSN)
	assert.Equal(t, "28495875", set.PMID)
	assert.Equal(t, "PMC5421578", set.PMCID)
	assert.Equal(t, "1706.03762", set.ArXivID)
	assert.Equal(t, "https://arxiv.org/abs/1706.03762", set.URL)
}

func TestExtractSet_Empty(t *testing.T) {
	t.Parallel()

	set := ExtractSet(domain.Item{})
	assert.Equal(t, Set{}, set)
}
