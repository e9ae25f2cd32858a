package domain

type Institution struct {
	Guid              string     `json:"guid"`
	StandardizedName  string     `json:"standardized_name"`
	Name              string     `json:"name"`
	InstitutionType   string     `json:"institution_type"`
	NeedsRatification bool       `json:"needs_ratification"`
	Offers            []Offering `json:"offers,omitempty"`
}

// Offering is an available-at edge from an attribute to an institution. The
// edge carries its own needs-ratification flag, independent of the
// attribute's and the institution's ratification state.
type Offering struct {
	AttributeGuid     string `json:"attribute_guid"`
	StandardizedName  string `json:"standardized_name"`
	Name              string `json:"name"`
	NeedsRatification bool   `json:"needs_ratification"`
}
