package models

import (
	"strings"
	"time"

	"github.com/philipmoss2002/life-app-sub008/internal/common"
)

// DocumentPatch is a typed partial update: one optional field per mutable
// document attribute. A nil field means "leave unchanged". RenewalDate and
// ClearRenewalDate are mutually exclusive.
type DocumentPatch struct {
	Title            *string    `json:"title,omitempty" validate:"omitempty,min=1,max=255"`
	Category         *string    `json:"category,omitempty" validate:"omitempty,max=100"`
	Notes            *string    `json:"notes,omitempty"`
	AttachmentRefs   []string   `json:"attachmentRefs,omitempty"`
	RenewalDate      *time.Time `json:"renewalDate,omitempty"`
	ClearRenewalDate bool       `json:"clearRenewalDate,omitempty"`
}

// IsZero reports whether the patch changes nothing.
func (p *DocumentPatch) IsZero() bool {
	return p.Title == nil && p.Category == nil && p.Notes == nil &&
		p.AttachmentRefs == nil && p.RenewalDate == nil && !p.ClearRenewalDate
}

// Sanitize trims surrounding whitespace from the text fields that carry it
// by accident in practice. Notes are kept verbatim.
func (p *DocumentPatch) Sanitize() {
	if p.Title != nil {
		v := strings.TrimSpace(*p.Title)
		p.Title = &v
	}
	if p.Category != nil {
		v := strings.TrimSpace(*p.Category)
		p.Category = &v
	}
}

// Validate checks field-level constraints the struct tags cannot express.
func (p *DocumentPatch) Validate() error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return common.ErrValidation
	}
	if p.RenewalDate != nil && p.ClearRenewalDate {
		return common.ErrValidation
	}
	for _, ref := range p.AttachmentRefs {
		if strings.TrimSpace(ref) == "" {
			return common.ErrValidation
		}
	}
	return nil
}

// Apply copies the set fields onto doc and stamps lastModified. The version
// is not bumped here: that happens on the successful write path.
func (p *DocumentPatch) Apply(doc *Document, now time.Time) {
	if p.Title != nil {
		doc.Title = *p.Title
	}
	if p.Category != nil {
		doc.Category = *p.Category
	}
	if p.Notes != nil {
		doc.Notes = *p.Notes
	}
	if p.AttachmentRefs != nil {
		refs := make([]string, len(p.AttachmentRefs))
		copy(refs, p.AttachmentRefs)
		doc.AttachmentRefs = refs
	}
	if p.ClearRenewalDate {
		doc.RenewalDate = nil
	} else if p.RenewalDate != nil {
		rd := *p.RenewalDate
		doc.RenewalDate = &rd
	}
	doc.LastModified = now
}
