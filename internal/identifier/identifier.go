// Package identifier normalizes and extracts bibliographic identifiers
// (DOI, ISBN, ISSN, PMID, PMCID, arXiv) from raw field values and free text.
//
// Normalization is all-or-nothing: a raw value either yields a fully
// canonical identifier or nothing at all. Callers never see a partially
// cleaned string.
package identifier

import (
	"regexp"
	"strings"

	"github.com/evelasko/zotero-citation-linker-sub001/internal/domain"
	"github.com/evelasko/zotero-citation-linker-sub001/internal/isbn"
)

// Kind identifies one supported identifier format.
type Kind int

const (
	KindDOI Kind = iota
	KindISBN
	KindPMID
	KindPMCID
	KindArXiv
	KindURL
)

// String returns the conventional name of the identifier format.
func (k Kind) String() string {
	switch k {
	case KindDOI:
		return "DOI"
	case KindISBN:
		return "ISBN"
	case KindPMID:
		return "PMID"
	case KindPMCID:
		return "PMCID"
	case KindArXiv:
		return "arXiv"
	case KindURL:
		return "URL"
	default:
		return "unknown"
	}
}

var (
	// doiValue validates a bare DOI after prefix stripping.
	doiValue = regexp.MustCompile(`^10\.\d+/\S+$`)

	// doiURLPrefix strips resolver URLs and "doi:" labels.
	doiURLPrefix = regexp.MustCompile(`(?i)^(?:https?://(?:dx\.)?doi\.org/|doi:\s*)`)

	// pmidPattern extracts a PMID from free text such as "PMID: 28495875".
	pmidPattern = regexp.MustCompile(`PMID:\s*(\d{7,8})`)

	// pmcidPattern extracts a PMCID from free text such as "PMCID: PMC5421578".
	pmcidPattern = regexp.MustCompile(`PMC(\d+)`)

	// arxivPattern extracts a modern arXiv ID from free text such as
	// "arXiv: 1706.03762v5".
	arxivPattern = regexp.MustCompile(`arXiv:\s*(\d{4}\.\d{4,5}(?:v\d+)?)`)

	// isbnShape is the coarse pre-filter that decides whether a value is
	// worth handing to the ISBN checksum validator.
	isbnShape = regexp.MustCompile(`^[\d\- .]{9,17}[\dxX]$`)

	// issnShape matches an ISSN with or without its hyphen.
	issnShape = regexp.MustCompile(`^\d{4}-?\d{3}[\dxX]$`)
)

// NormalizeDOI cleans a raw DOI value. Resolver URL prefixes
// ("https://doi.org/", "http://dx.doi.org/") and "doi:" labels are
// stripped and the remainder must be a structurally valid DOI.
func NormalizeDOI(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}
	s = doiURLPrefix.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	if !doiValue.MatchString(s) {
		return "", false
	}
	return s, true
}

// NormalizeISBN cleans a raw ISBN value. A coarse shape check gates the
// checksum validation so arbitrary text is rejected cheaply.
func NormalizeISBN(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if !isbnShape.MatchString(s) {
		return "", false
	}
	return isbn.Clean(s)
}

// NormalizeISSN cleans a raw ISSN value into the canonical hyphenated
// form. The check digit is verified; a lowercase x is canonicalized to X.
func NormalizeISSN(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if !issnShape.MatchString(s) {
		return "", false
	}
	s = strings.ToUpper(strings.ReplaceAll(s, "-", ""))

	sum := 0
	for i := 0; i < 7; i++ {
		sum += int(s[i]-'0') * (8 - i)
	}
	check := (11 - sum%11) % 11
	want := byte('0' + check)
	if check == 10 {
		want = 'X'
	}
	if s[7] != want {
		return "", false
	}
	return s[:4] + "-" + s[4:], true
}

// ExtractPMID pulls a PubMed ID out of free-form text. Only the numeric
// group is kept.
func ExtractPMID(text string) (string, bool) {
	return firstGroup(pmidPattern, text)
}

// ExtractPMCID pulls a PubMed Central ID out of free-form text, returned
// in canonical "PMC<digits>" form.
func ExtractPMCID(text string) (string, bool) {
	digits, ok := firstGroup(pmcidPattern, text)
	if !ok {
		return "", false
	}
	return "PMC" + digits, true
}

// ExtractArXivID pulls a modern arXiv identifier out of free-form text.
// A version suffix, when present, is preserved.
func ExtractArXivID(text string) (string, bool) {
	return firstGroup(arxivPattern, text)
}

func firstGroup(re *regexp.Regexp, text string) (string, bool) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Pattern returns the exact regexp a search strategy uses to re-validate
// substring hits for the given auxiliary identifier kind. Returns nil for
// kinds that are matched by exact field value rather than by pattern.
func Pattern(kind Kind) *regexp.Regexp {
	switch kind {
	case KindPMID:
		return pmidPattern
	case KindPMCID:
		return pmcidPattern
	case KindArXiv:
		return arxivPattern
	case KindDOI, KindISBN, KindURL:
		return nil
	default:
		return nil
	}
}

// Set holds every identifier and matching field extractable from one
// candidate item. A present field has passed validation for its format;
// absent is the zero value, never a partially cleaned string.
type Set struct {
	Title       string
	FirstAuthor string
	Year        int
	DOI         string
	ISBN        string
	ISSN        string
	URL         string
	PMID        string
	PMCID       string
	ArXivID     string
}

// ExtractSet derives the identifier set for an item. Structured fields
// (DOI, ISBN, ISSN, URL) are normalized from their own fields; PMID, PMCID,
// and arXiv IDs are extracted from the free-form Extra text.
func ExtractSet(item domain.Item) Set {
	set := Set{
		Title:       strings.TrimSpace(item.Title),
		FirstAuthor: item.FirstAuthor(),
		Year:        item.Year(),
		URL:         strings.TrimSpace(item.URL),
	}

	if doi, ok := NormalizeDOI(item.DOI); ok {
		set.DOI = doi
	}
	if cleaned, ok := NormalizeISBN(item.ISBN); ok {
		set.ISBN = cleaned
	}
	if cleaned, ok := NormalizeISSN(item.ISSN); ok {
		set.ISSN = cleaned
	}
	if pmid, ok := ExtractPMID(item.Extra); ok {
		set.PMID = pmid
	}
	if pmcid, ok := ExtractPMCID(item.Extra); ok {
		set.PMCID = pmcid
	}
	if arxivID, ok := ExtractArXivID(item.Extra); ok {
		set.ArXivID = arxivID
	}

	return set
}
