package room

import "journal/internal/domain"

// document is the authoritative replicated state of one room: the ordered
// page list plus secondary id indexes so any element can be located without
// scanning, and a per-page snapshot cache so consumers get stable structural
// identity for pages that did not change.
type document struct {
	pages    []domain.Page
	pageIdx  map[string]int    // page id → index in pages
	elemPage map[string]string // element id → containing page id

	snap  map[string]domain.Page // frozen copies handed out by Snapshot
	dirty map[string]bool        // page ids whose frozen copy is stale
}

func newDocument(pages []domain.Page) *document {
	d := &document{
		pages: domain.ClonePages(pages),
		snap:  make(map[string]domain.Page),
		dirty: make(map[string]bool),
	}
	d.reindex()
	for _, p := range d.pages {
		d.dirty[p.ID] = true
	}
	return d
}

func (d *document) reindex() {
	d.pageIdx = make(map[string]int, len(d.pages))
	d.elemPage = make(map[string]string)
	for i, p := range d.pages {
		d.pageIdx[p.ID] = i
		for _, e := range p.Elements {
			d.elemPage[e.ID] = p.ID
		}
	}
}

// Snapshot returns the page list for consumers. Pages that were not mutated
// since the previous call keep the same backing arrays, so callers can detect
// change cheaply by comparing slices. Callers must treat the result as
// read-only.
func (d *document) Snapshot() []domain.Page {
	out := make([]domain.Page, len(d.pages))
	seen := make(map[string]bool, len(d.pages))
	for i, p := range d.pages {
		if d.dirty[p.ID] {
			d.snap[p.ID] = p.Clone()
			delete(d.dirty, p.ID)
		}
		out[i] = d.snap[p.ID]
		seen[p.ID] = true
	}
	for id := range d.snap {
		if !seen[id] {
			delete(d.snap, id)
		}
	}
	return out
}

// hasPage reports whether the page id exists.
func (d *document) hasPage(id string) bool {
	_, ok := d.pageIdx[id]
	return ok
}

// findElement returns a pointer into the live document, valid only until the
// next structural change.
func (d *document) findElement(id string) *domain.Element {
	pageID, ok := d.elemPage[id]
	if !ok {
		return nil
	}
	p := &d.pages[d.pageIdx[pageID]]
	for i := range p.Elements {
		if p.Elements[i].ID == id {
			return &p.Elements[i]
		}
	}
	return nil
}

// elementPos returns the containing page id and element index.
func (d *document) elementPos(id string) (pageID string, idx int, ok bool) {
	pageID, ok = d.elemPage[id]
	if !ok {
		return "", 0, false
	}
	p := d.pages[d.pageIdx[pageID]]
	for i := range p.Elements {
		if p.Elements[i].ID == id {
			return pageID, i, true
		}
	}
	return "", 0, false
}

// apply performs the change in the forward direction.
func (d *document) apply(c change) {
	switch c.kind {
	case changeInsertPage:
		d.insertPage(c.pageIndex, c.page)
	case changeRemovePage:
		d.removePage(c.pageIndex)
	case changeSetBackground:
		if i, ok := d.pageIdx[c.pageID]; ok {
			d.pages[i].Background = c.background
			d.dirty[c.pageID] = true
		}
	case changeInsertElement:
		d.insertElement(c.pageID, c.elemIndex, c.element)
	case changeRemoveElement:
		d.removeElement(c.elementID)
	case changePatchElement:
		d.patchElement(c.elementID, c.patch)
	}
}

// revert performs the inverse of the change.
func (d *document) revert(c change) {
	switch c.kind {
	case changeInsertPage:
		if i, ok := d.pageIdx[c.page.ID]; ok {
			d.removePage(i)
		}
	case changeRemovePage:
		d.insertPage(c.pageIndex, c.page)
	case changeSetBackground:
		if i, ok := d.pageIdx[c.pageID]; ok {
			d.pages[i].Background = c.oldBackground
			d.dirty[c.pageID] = true
		}
	case changeInsertElement:
		d.removeElement(c.element.ID)
	case changeRemoveElement:
		d.insertElement(c.pageID, c.elemIndex, c.element)
	case changePatchElement:
		d.patchElement(c.elementID, c.oldPatch)
	}
}

func (d *document) insertPage(idx int, p domain.Page) {
	if idx < 0 || idx > len(d.pages) {
		idx = len(d.pages)
	}
	p = p.Clone()
	d.pages = append(d.pages, domain.Page{})
	copy(d.pages[idx+1:], d.pages[idx:])
	d.pages[idx] = p
	d.reindex()
	d.dirty[p.ID] = true
}

func (d *document) removePage(idx int) {
	if idx < 0 || idx >= len(d.pages) {
		return
	}
	d.pages = append(d.pages[:idx], d.pages[idx+1:]...)
	d.reindex()
}

func (d *document) insertElement(pageID string, idx int, e domain.Element) {
	i, ok := d.pageIdx[pageID]
	if !ok {
		return
	}
	p := &d.pages[i]
	if idx < 0 || idx > len(p.Elements) {
		idx = len(p.Elements)
	}
	p.Elements = append(p.Elements, domain.Element{})
	copy(p.Elements[idx+1:], p.Elements[idx:])
	p.Elements[idx] = e
	d.elemPage[e.ID] = pageID
	d.dirty[pageID] = true
}

func (d *document) removeElement(id string) {
	pageID, idx, ok := d.elementPos(id)
	if !ok {
		return
	}
	p := &d.pages[d.pageIdx[pageID]]
	p.Elements = append(p.Elements[:idx], p.Elements[idx+1:]...)
	delete(d.elemPage, id)
	d.dirty[pageID] = true
}

func (d *document) patchElement(id string, patch domain.ElementPatch) {
	e := d.findElement(id)
	if e == nil {
		return
	}
	e.ApplyPatch(patch)
	d.dirty[d.elemPage[id]] = true
}
