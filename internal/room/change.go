package room

import "journal/internal/domain"

// changeKind enumerates the primitive edits a mutation decomposes into.
type changeKind int

const (
	changeInsertPage changeKind = iota
	changeRemovePage
	changeSetBackground
	changeInsertElement
	changeRemoveElement
	changePatchElement
)

// change is one primitive document edit together with everything needed to
// reverse it. Mutations build changes against the current document state, so
// the inverse side (old values, removal positions) is captured before the
// change is applied.
type change struct {
	kind changeKind

	pageID    string
	pageIndex int         // insertion/removal position for page changes
	page      domain.Page // full copy for insert/remove page

	elementID string
	elemIndex int            // insertion/removal position within the page
	element   domain.Element // full copy for insert/remove element

	background    domain.Background
	oldBackground domain.Background

	patch    domain.ElementPatch // new field values
	oldPatch domain.ElementPatch // prior values for the same keys
}
