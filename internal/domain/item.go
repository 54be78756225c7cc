// Package domain provides the shared value types for the citation linker
// matching service.
package domain

import (
	"regexp"
	"strings"
)

// ItemType identifies the kind of a library item.
// These values match the item type names used by the Zotero data model.
type ItemType string

const (
	ItemTypeJournalArticle ItemType = "journalArticle"
	ItemTypeBook           ItemType = "book"
	ItemTypeBookSection    ItemType = "bookSection"
	ItemTypePreprint       ItemType = "preprint"
	ItemTypeWebpage        ItemType = "webpage"
	ItemTypeAttachment     ItemType = "attachment"
	ItemTypeNote           ItemType = "note"
)

// NonItemTypes lists the item types that never participate in matching.
// Attachments and notes are children of regular items, not records in
// their own right.
var NonItemTypes = []ItemType{ItemTypeAttachment, ItemTypeNote}

// Creator represents one creator of an item. Personal creators carry
// FirstName/LastName; institutional creators carry a single Name.
type Creator struct {
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Name      string `json:"name,omitempty"`
}

// Display returns the creator's display form.
func (c Creator) Display() string {
	if c.Name != "" {
		return c.Name
	}
	return strings.TrimSpace(strings.TrimSpace(c.FirstName) + " " + strings.TrimSpace(c.LastName))
}

// Item is one bibliographic record held in the external library.
// It is the statically typed view over the repository's item data: every
// field is always present, and genuinely optional data is an empty string.
type Item struct {
	// Key is the opaque stable identity of the item within its library.
	Key string `json:"key"`

	// ItemType is the kind of record (journalArticle, book, webpage, ...).
	ItemType ItemType `json:"itemType"`

	// Title is the item title. May be empty for untitled records.
	Title string `json:"title"`

	// Date is the free-form publication date field (e.g. "2017-06-12",
	// "June 2017", "2017").
	Date string `json:"date"`

	// Creators is the ordered creator list.
	Creators []Creator `json:"creators"`

	// Extra is the free-form auxiliary notes field. Identifiers such as
	// PMIDs and arXiv IDs are commonly recorded here.
	Extra string `json:"extra"`

	// URL is the item URL, when known.
	URL string `json:"url"`

	// DOI is the item DOI field, when known. Not normalized.
	DOI string `json:"DOI"`

	// ISBN is the item ISBN field, when known. Not normalized.
	ISBN string `json:"ISBN"`

	// ISSN is the item ISSN field, when known. Not normalized.
	ISSN string `json:"ISSN"`
}

// SearchField identifies one searchable item field. The set is closed:
// repository adapters switch over it exhaustively, so supporting a new
// field is a compile-time-checked change.
type SearchField string

const (
	SearchFieldDOI     SearchField = "DOI"
	SearchFieldISBN    SearchField = "ISBN"
	SearchFieldURL     SearchField = "url"
	SearchFieldExtra   SearchField = "extra"
	SearchFieldCreator SearchField = "creator"
)

// FieldValue returns the value of a searchable field on this item.
// For SearchFieldCreator it is the joined creator display string.
func (i Item) FieldValue(field SearchField) string {
	switch field {
	case SearchFieldDOI:
		return i.DOI
	case SearchFieldISBN:
		return i.ISBN
	case SearchFieldURL:
		return i.URL
	case SearchFieldExtra:
		return i.Extra
	case SearchFieldCreator:
		return i.JoinCreators()
	default:
		return ""
	}
}

// yearPattern matches the first plausible four-digit year in a date field.
var yearPattern = regexp.MustCompile(`\b(1[5-9]\d{2}|2\d{3})\b`)

// Year extracts the publication year from the free-form Date field.
// Returns 0 when no year can be found.
func (i Item) Year() int {
	m := yearPattern.FindString(i.Date)
	if m == "" {
		return 0
	}
	year := 0
	for _, r := range m {
		year = year*10 + int(r-'0')
	}
	return year
}

// FirstAuthor returns the display form of the first creator, or empty
// when the item has no creators.
func (i Item) FirstAuthor() string {
	if len(i.Creators) == 0 {
		return ""
	}
	return i.Creators[0].Display()
}

// JoinCreators returns the joined display string of all creators,
// separated by "; ".
func (i Item) JoinCreators() string {
	if len(i.Creators) == 0 {
		return ""
	}
	parts := make([]string, 0, len(i.Creators))
	for _, c := range i.Creators {
		if d := c.Display(); d != "" {
			parts = append(parts, d)
		}
	}
	return strings.Join(parts, "; ")
}

// IsRegularItem reports whether the item participates in matching.
func (i Item) IsRegularItem() bool {
	for _, t := range NonItemTypes {
		if i.ItemType == t {
			return false
		}
	}
	return true
}
