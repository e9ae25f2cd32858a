package domain

import "time"

// UserAttribute is a has-edge from a person vertex to an attribute vertex.
// Edge identity (EdgeGuid) is the unit of update and delete.
type UserAttribute struct {
	EdgeGuid      string `json:"edge_guid"`
	PersonGuid    string `json:"person_guid"`
	AttributeGuid string `json:"attribute_guid"`

	// Fields holds the values for the attribute's required-field schema.
	Fields map[string]any `json:"fields,omitempty"`

	Proof            string `json:"proof,omitempty"`
	UploadVerifiedBy string `json:"upload_verified_by,omitempty"`
	ObtainedFrom     string `json:"obtained_from,omitempty"`

	CoreTechAddedBy string     `json:"core_tech_added_by,omitempty"`
	CoreTechAddedOn *time.Time `json:"core_tech_added_on,omitempty"`
}

func (u *UserAttribute) IsCoreTech() bool {
	return u.CoreTechAddedBy != "" || u.CoreTechAddedOn != nil
}
