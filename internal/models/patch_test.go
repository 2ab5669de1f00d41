package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strptr(s string) *string { return &s }

func TestDocumentPatch_Apply(t *testing.T) {
	now := time.Now()
	rd := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	doc := &Document{
		SyncID:         "a",
		Title:          "Car Insurance",
		Category:       "insurance",
		Notes:          "old",
		AttachmentRefs: []string{"k1"},
		RenewalDate:    &rd,
	}

	p := &DocumentPatch{
		Title:          strptr("Auto Insurance"),
		Notes:          strptr("new"),
		AttachmentRefs: []string{"k1", "k2"},
	}
	require.NoError(t, p.Validate())
	p.Apply(doc, now)

	assert.Equal(t, "Auto Insurance", doc.Title)
	assert.Equal(t, "insurance", doc.Category, "unset field untouched")
	assert.Equal(t, "new", doc.Notes)
	assert.Equal(t, []string{"k1", "k2"}, doc.AttachmentRefs)
	assert.Equal(t, rd, *doc.RenewalDate, "renewal date untouched")
	assert.Equal(t, now, doc.LastModified)
}

func TestDocumentPatch_ClearRenewalDate(t *testing.T) {
	rd := time.Now()
	doc := &Document{SyncID: "a", RenewalDate: &rd}

	p := &DocumentPatch{ClearRenewalDate: true}
	require.NoError(t, p.Validate())
	p.Apply(doc, time.Now())
	assert.Nil(t, doc.RenewalDate)
}

func TestDocumentPatch_Validate(t *testing.T) {
	rd := time.Now()

	tests := []struct {
		name    string
		patch   DocumentPatch
		wantErr bool
	}{
		{"empty patch ok", DocumentPatch{}, false},
		{"blank title rejected", DocumentPatch{Title: strptr("   ")}, true},
		{"set and clear renewal rejected", DocumentPatch{RenewalDate: &rd, ClearRenewalDate: true}, true},
		{"blank attachment ref rejected", DocumentPatch{AttachmentRefs: []string{"k1", " "}}, true},
		{"valid title", DocumentPatch{Title: strptr("Home Insurance")}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.patch.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDocumentPatch_Sanitize(t *testing.T) {
	p := &DocumentPatch{Title: strptr("  Car Insurance "), Category: strptr(" insurance ")}
	p.Sanitize()
	assert.Equal(t, "Car Insurance", *p.Title)
	assert.Equal(t, "insurance", *p.Category)
}

func TestDocumentPatch_IsZero(t *testing.T) {
	assert.True(t, (&DocumentPatch{}).IsZero())
	assert.False(t, (&DocumentPatch{Title: strptr("x")}).IsZero())
	assert.False(t, (&DocumentPatch{ClearRenewalDate: true}).IsZero())
}
