package variant

// Pool holds the ordered candidates for one asset slot. Variants are kept
// newest first; SelectedID, when set, always references a member.
type Pool struct {
	Variants   []Variant `json:"variants"`
	SelectedID string    `json:"selected_id,omitempty"`
}

// Insert prepends v as the newest variant. The new variant becomes selected
// when autoSelect is set or when the pool has no current selection.
func (p *Pool) Insert(v Variant, autoSelect bool) {
	p.Variants = append([]Variant{v}, p.Variants...)
	if autoSelect || p.SelectedID == "" {
		p.SelectedID = v.ID
	}
}

// Select marks the variant with the given id as the active choice.
func (p *Pool) Select(id string) error {
	if _, ok := p.index(id); !ok {
		return ErrNotFound
	}
	p.SelectedID = id
	return nil
}

// Delete removes the variant with the given id. When the deleted variant was
// selected, the newest remaining variant becomes selected; an empty pool
// clears the selection.
func (p *Pool) Delete(id string) error {
	idx, ok := p.index(id)
	if !ok {
		return ErrNotFound
	}
	p.Variants = append(p.Variants[:idx], p.Variants[idx+1:]...)
	if p.SelectedID == id {
		if len(p.Variants) > 0 {
			p.SelectedID = p.Variants[0].ID
		} else {
			p.SelectedID = ""
		}
	}
	return nil
}

// SetFavorite toggles eviction protection for the variant with the given id.
func (p *Pool) SetFavorite(id string, favorited bool) error {
	idx, ok := p.index(id)
	if !ok {
		return ErrNotFound
	}
	p.Variants[idx].IsFavorited = favorited
	return nil
}

// Get returns the variant with the given id.
func (p *Pool) Get(id string) (Variant, bool) {
	idx, ok := p.index(id)
	if !ok {
		return Variant{}, false
	}
	return p.Variants[idx], true
}

// Selected returns the currently selected variant, if any.
func (p *Pool) Selected() (Variant, bool) {
	if p.SelectedID == "" {
		return Variant{}, false
	}
	return p.Get(p.SelectedID)
}

// SelectedURL returns the URL of the selected variant, or "" when none is
// selected.
func (p *Pool) SelectedURL() string {
	if v, ok := p.Selected(); ok {
		return v.URL
	}
	return ""
}

// UploadedSource returns the newest uploaded-source variant, if any.
func (p *Pool) UploadedSource() (Variant, bool) {
	for _, v := range p.Variants {
		if v.IsUploadedSource {
			return v, true
		}
	}
	return Variant{}, false
}

// Len reports the number of variants in the pool.
func (p *Pool) Len() int {
	return len(p.Variants)
}

func (p *Pool) index(id string) (int, bool) {
	for i := range p.Variants {
		if p.Variants[i].ID == id {
			return i, true
		}
	}
	return 0, false
}
