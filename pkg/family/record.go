package family

import "math"

// ID identifies a person. IDs are unique within a record set.
type ID = int64

// PersonRecord is the immutable input unit supplied by the data service.
// The core reads it and never modifies it.
type PersonRecord struct {
	ID       ID  `json:"id" bson:"id"`
	FatherID *ID `json:"father_id,omitempty" bson:"father_id,omitempty"`
	MotherID *ID `json:"mother_id,omitempty" bson:"mother_id,omitempty"`

	// SiblingOrder defines birth order among children of the same parent.
	SiblingOrder int `json:"sibling_order,omitempty" bson:"sibling_order,omitempty"`

	Name          string  `json:"name,omitempty" bson:"name,omitempty"`
	PhotoURL      string  `json:"photo_url,omitempty" bson:"photo_url,omitempty"`
	NodeWidthHint float64 `json:"node_width_hint,omitempty" bson:"node_width_hint,omitempty"`

	// Payload carries the caller's original document untouched.
	Payload any `json:"-" bson:"-"`
}

// ParentID returns the single parent reference of the record, if any.
// A record naming both parents is rejected by BuildTree, so callers holding a
// validated Tree may treat the first non-nil pointer as the parent.
func (r *PersonRecord) ParentID() (ID, bool) {
	switch {
	case r.FatherID != nil:
		return *r.FatherID, true
	case r.MotherID != nil:
		return *r.MotherID, true
	}
	return 0, false
}

// HasPhoto reports whether the record carries a photo URL.
func (r *PersonRecord) HasPhoto() bool { return r.PhotoURL != "" }

// HasWidthHint reports whether NodeWidthHint should override the default
// node width. Zero, negative and NaN hints are ignored.
func (r *PersonRecord) HasWidthHint() bool {
	return r.NodeWidthHint > 0 && !math.IsNaN(r.NodeWidthHint)
}

// Ref returns a pointer to id, convenient for building records in code.
func Ref(id ID) *ID { return &id }
