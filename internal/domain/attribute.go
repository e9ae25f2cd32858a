package domain

// Graph projections. None of these structs are persisted as-is: ratification
// state, attribute type and skill path are derived from the vertex's edge set
// on every read, so the stored graph and the projection can never disagree.

type Attribute struct {
	Guid              string   `json:"guid"`
	StandardizedName  string   `json:"standardized_name"`
	Name              string   `json:"name"`
	AttributeType     string   `json:"attribute_type"`
	NeedsRatification bool     `json:"needs_ratification"`
	RequiredFields    []string `json:"required_fields,omitempty"`
	MetaDataTags      []string `json:"meta_data_tags,omitempty"`
}

// Repeatable reports whether the attribute carries the "repeatable" metadata
// tag, which permits multiple has-edges per person.
func (a *Attribute) Repeatable() bool {
	for _, t := range a.MetaDataTags {
		if t == MetaDataTagRepeatable {
			return true
		}
	}
	return false
}

const MetaDataTagRepeatable = "repeatable"

type TopLevelTag struct {
	Guid string `json:"guid"`
	Name string `json:"name"`
}

type RelatedTag struct {
	Guid string `json:"guid"`
	Name string `json:"name"`
}

// SkillPathEntry is one hop of the ordered ancestor chain from an attribute
// up to its top-level tag.
type SkillPathEntry struct {
	Guid        string       `json:"guid"`
	Name        string       `json:"name"`
	TopLevel    bool         `json:"top_level"`
	RelatedTags []RelatedTag `json:"related_tags,omitempty"`
}

// GraphEdge is an outgoing edge of a vertex, as listed during migration.
type GraphEdge struct {
	Label      string         `json:"label"`
	ToGuid     string         `json:"to_guid"`
	Properties map[string]any `json:"properties,omitempty"`
}

// Edge labels understood by the graph stores.
const (
	EdgeIsA         = "IS_A"
	EdgeHas         = "HAS"
	EdgeAvailableAt = "AVAILABLE_AT"
	EdgeHasField    = "HAS_FIELD"
	EdgeIsRelatedTo = "IS_RELATED_TO"
	EdgeHasMetaData = "HAS_META_DATA"
)

type Page struct {
	StartIndex int `json:"start_index"`
	PageLength int `json:"page_length"`
}

// Window clamps the page against a total item count and returns the
// [from, to) slice bounds.
func (p Page) Window(total int) (int, int) {
	if p.PageLength <= 0 {
		return 0, 0
	}
	from := p.StartIndex * p.PageLength
	if from < 0 {
		from = 0
	}
	if from > total {
		from = total
	}
	to := from + p.PageLength
	if to > total {
		to = total
	}
	return from, to
}

// RatificationQueuePage is one page of a ratification queue, with the total
// queue size alongside so consumers can render progress.
type RatificationQueuePage struct {
	Items             []Attribute `json:"items"`
	RatificationCount int         `json:"ratification_count"`
}

// AttributeWithInstitutions pairs an attribute with the institutions whose
// available-at edge to it is still unratified.
type AttributeWithInstitutions struct {
	Attribute    Attribute     `json:"attribute"`
	Institutions []Institution `json:"institutions"`
}

type AttributeOfferQueuePage struct {
	Items             []AttributeWithInstitutions `json:"items"`
	RatificationCount int                         `json:"ratification_count"`
}
