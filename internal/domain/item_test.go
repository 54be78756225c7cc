package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCreator_Display(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		creator Creator
		want    string
	}{
		{"personal", Creator{FirstName: "Ada", LastName: "Lovelace"}, "Ada Lovelace"},
		{"surname only", Creator{LastName: "Lovelace"}, "Lovelace"},
		{"institutional", Creator{Name: "World Health Organization"}, "World Health Organization"},
		{"institutional wins", Creator{FirstName: "x", Name: "ACME Corp"}, "ACME Corp"},
		{"empty", Creator{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.creator.Display())
		})
	}
}

func TestItem_Year(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		date string
		want int
	}{
		{"iso date", "2017-06-12", 2017},
		{"year only", "1998", 1998},
		{"verbose", "June 12, 2017", 2017},
		{"no year", "spring issue", 0},
		{"empty", "", 0},
		{"too short", "212", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Item{Date: tt.date}.Year())
		})
	}
}

func TestItem_JoinCreators(t *testing.T) {
	t.Parallel()

	item := Item{
		Creators: []Creator{
			{FirstName: "Ashish", LastName: "Vaswani"},
			{FirstName: "Noam", LastName: "Shazeer"},
			{Name: "Google Brain"},
		},
	}
	assert.Equal(t, "Ashish Vaswani; Noam Shazeer; Google Brain", item.JoinCreators())
	assert.Equal(t, "Ashish Vaswani", item.FirstAuthor())
	assert.Empty(t, Item{}.JoinCreators())
	assert.Empty(t, Item{}.FirstAuthor())
}

func TestItem_IsRegularItem(t *testing.T) {
	t.Parallel()

	assert.True(t, Item{ItemType: ItemTypeJournalArticle}.IsRegularItem())
	assert.True(t, Item{ItemType: ItemTypeWebpage}.IsRegularItem())
	assert.False(t, Item{ItemType: ItemTypeAttachment}.IsRegularItem())
	assert.False(t, Item{ItemType: ItemTypeNote}.IsRegularItem())
}
