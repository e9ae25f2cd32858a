package graph

import (
	"context"
	"fmt"

	"github.com/LeshegoT/the-hive-backend/internal/domain"
)

// AttributeStore is the traversal surface of the attribute taxonomy. Every
// mutation is a single committed submission; there is no cross-call
// transaction, so multi-step sequences are ordered by the calling service.
type AttributeStore interface {
	TopLevelTags(ctx context.Context) ([]domain.TopLevelTag, error)

	GetByIdentifier(ctx context.Context, identifier string) (*domain.Attribute, error)
	GetByGuid(ctx context.Context, guid string) (*domain.Attribute, error)
	// ResolveByIdentifiers returns the attributes that exist for the given
	// identifiers, silently dropping identifiers with no vertex.
	ResolveByIdentifiers(ctx context.Context, identifiers []string) ([]domain.Attribute, error)

	// CreateStaged creates the vertex quarantined under the new-<type>
	// staging parent.
	CreateStaged(ctx context.Context, guid, identifier, name, attributeType string) error
	// CreateVertex creates a bare vertex with no is-a edge; rename migrates
	// the old vertex's edges onto it.
	CreateVertex(ctx context.Context, guid, identifier, name string) error
	DeleteWithEdges(ctx context.Context, guid string) error

	ConnectToTopLevelTag(ctx context.Context, guid, attributeType string) error
	MoveUnderParent(ctx context.Context, guid, parentGuid string) error

	SkillPath(ctx context.Context, guid string) ([]domain.SkillPathEntry, error)
	RelatedTags(ctx context.Context, guid string) ([]domain.RelatedTag, error)
	MetaDataTagsForType(ctx context.Context, attributeType string) ([]string, error)
	AttachMetaDataTags(ctx context.Context, guid string, tags []string) error

	OutgoingEdges(ctx context.Context, guid string) ([]domain.GraphEdge, error)
	// EnsureOutgoingEdge is coalesce-or-create: an existing (from, to, label)
	// edge keeps its properties, so repeated migration calls are safe.
	EnsureOutgoingEdge(ctx context.Context, fromGuid, toGuid, label string, props map[string]any) error

	Unratified(ctx context.Context, attributeType string, page domain.Page, identifiers []string) ([]domain.Attribute, int, error)
	WithUnratifiedOfferings(ctx context.Context, page domain.Page, identifiers []string) ([]domain.AttributeWithInstitutions, int, error)
	ListRatified(ctx context.Context) ([]domain.Attribute, error)
}

type InstitutionStore interface {
	Types(ctx context.Context) ([]string, error)
	// AddType reports false when the type already existed.
	AddType(ctx context.Context, name string) (bool, error)

	CreateStaged(ctx context.Context, guid, identifier, name, institutionType string) error
	GetByIdentifier(ctx context.Context, identifier string) (*domain.Institution, error)
	GetByGuid(ctx context.Context, guid string) (*domain.Institution, error)
	List(ctx context.Context) ([]domain.Institution, error)

	UpdateIdentity(ctx context.Context, guid, identifier, name string) error
	SetType(ctx context.Context, guid, institutionType string) error
	Ratify(ctx context.Context, guid string) error
	DeleteWithEdges(ctx context.Context, guid string) error

	// EnsureOffering reports false when the available-at edge already existed
	// (its properties are left untouched).
	EnsureOffering(ctx context.Context, attributeGuid, institutionGuid string, needsRatification bool) (bool, error)
	RatifyOffering(ctx context.Context, attributeGuid, institutionGuid string) error
	Offerings(ctx context.Context, institutionGuid string) ([]domain.Offering, error)
	InstitutionsOffering(ctx context.Context, attributeGuid string) ([]domain.Institution, error)
	RemoveAllOfferings(ctx context.Context, institutionGuid string) error

	// FilterByIdentifiers lists institutions narrowed by ratification state
	// and type. A nil identifiers slice applies no identifier filter; an
	// empty non-nil slice matches nothing.
	FilterByIdentifiers(ctx context.Context, identifiers []string, ratified *bool, institutionType string) ([]domain.Institution, error)
}

type UserAttributeStore interface {
	EnsurePerson(ctx context.Context, personGuid string) error

	Edges(ctx context.Context, personGuid, attributeGuid string) ([]domain.UserAttribute, error)
	GetEdge(ctx context.Context, edgeGuid string) (*domain.UserAttribute, error)
	ListByPerson(ctx context.Context, personGuid string) ([]domain.UserAttribute, error)

	Add(ctx context.Context, ua domain.UserAttribute) (string, error)
	UpdateProps(ctx context.Context, edgeGuid string, props map[string]any) error
	Remove(ctx context.Context, edgeGuid string) error
	// Move re-points every has-edge from one attribute to another, skipping
	// persons that already hold an edge to the target.
	// Move re-points every has-edge from one attribute to another. With
	// dedup set, a person who already holds the target keeps a single edge
	// (the target's wins); without it edge multiplicity is preserved, as
	// repeatable attributes require. Returns the number of edges moved.
	Move(ctx context.Context, fromAttributeGuid, toAttributeGuid string, dedup bool) (int, error)
	RemoveByObtainedFrom(ctx context.Context, institutionGuid string) error

	CoreTech(ctx context.Context, personGuid string) ([]domain.UserAttribute, error)
	ClearCoreTech(ctx context.Context, personGuid string) error
	SetCoreTech(ctx context.Context, edgeGuid, addedBy string) error
}

// migratableEdgeLabels is the allowlist for EnsureOutgoingEdge; neo4j cannot
// parameterize relationship types, so the label is validated before being
// formatted into the query text.
var migratableEdgeLabels = map[string]bool{
	domain.EdgeIsA:         true,
	domain.EdgeAvailableAt: true,
	domain.EdgeIsRelatedTo: true,
	domain.EdgeHasMetaData: true,
	domain.EdgeHasField:    true,
}

func validateEdgeLabel(label string) error {
	if !migratableEdgeLabels[label] {
		return fmt.Errorf("unsupported edge label %q", label)
	}
	return nil
}

func asString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func asBool(v any) bool {
	b, _ := v.(bool)
	return b
}

func asInt(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case float64:
		return int(n)
	default:
		return 0
	}
}

func asStringSlice(v any) []string {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s := asString(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}
