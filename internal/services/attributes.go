package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/LeshegoT/the-hive-backend/internal/data/graph"
	"github.com/LeshegoT/the-hive-backend/internal/data/repos"
	"github.com/LeshegoT/the-hive-backend/internal/domain"
	"github.com/LeshegoT/the-hive-backend/internal/normalization"
	"github.com/LeshegoT/the-hive-backend/internal/pkg/apperr"
	"github.com/LeshegoT/the-hive-backend/internal/platform/logger"
	"github.com/LeshegoT/the-hive-backend/internal/platform/redisdb"
)

const attributeTypesCacheKey = "hive:attribute-types"

// NewAttribute is the propose payload for AddNewAttribute.
type NewAttribute struct {
	CanonicalName string `json:"canonical_name"`
	AttributeType string `json:"attribute_type"`
}

// AttributeSearchParams narrows a text search over the attribute taxonomy.
// Types must be drawn from the live top-level tag set. Ratified, when set,
// keeps only attributes whose ratification state matches.
type AttributeSearchParams struct {
	Text     string      `json:"text"`
	Types    []string    `json:"types,omitempty"`
	Ratified *bool       `json:"ratified,omitempty"`
	Page     domain.Page `json:"page"`
}

// AttributeSearchResult pairs a resolved attribute with its skill path.
type AttributeSearchResult struct {
	Attribute domain.Attribute        `json:"attribute"`
	SkillPath []domain.SkillPathEntry `json:"skill_path,omitempty"`
}

type AttributeService interface {
	// AddNewAttribute proposes a canonical name into the taxonomy. Proposing
	// a name that already exists under the same type returns the existing
	// attribute; under a different type it is a conflict. Previously rejected
	// names cannot be re-proposed.
	AddNewAttribute(ctx context.Context, tx *gorm.DB, in NewAttribute) (*domain.Attribute, error)

	// RenameAttribute points the attribute at a new canonical name. When the
	// new name has no vertex, a fresh vertex is created and every outgoing
	// edge and user has-edge is migrated onto it; when it names an existing
	// attribute of the same type the rename becomes a merge into that
	// attribute. A type mismatch is a conflict.
	RenameAttribute(ctx context.Context, tx *gorm.DB, standardizedName, newName string) (*domain.Attribute, error)
	MergeAttributes(ctx context.Context, tx *gorm.DB, toMergeStandardizedName, toKeepStandardizedName string) (*domain.Attribute, error)

	RejectAttribute(ctx context.Context, tx *gorm.DB, standardizedName, rejectedBy string) error
	// RatifyAttribute detaches the attribute from its staging parent and
	// attaches it under its real top-level tag (or a given parent attribute).
	// Ratification never runs in reverse.
	RatifyAttribute(ctx context.Context, standardizedName, parentStandardizedName string) (*domain.Attribute, error)

	SkillPathWithRelatedTags(ctx context.Context, guid string) ([]domain.SkillPathEntry, error)
	Search(ctx context.Context, params AttributeSearchParams) ([]AttributeSearchResult, error)

	UnratifiedSkills(ctx context.Context, attributeType string, page domain.Page, searchText string) (*domain.RatificationQueuePage, error)
	AttributesWithUnratifiedOfferings(ctx context.Context, page domain.Page, searchText string) (*domain.AttributeOfferQueuePage, error)

	LiveAttributeTypes(ctx context.Context) ([]string, error)
}

type attributeService struct {
	db    *gorm.DB
	log   *logger.Logger
	cache *redisdb.Cache

	names     repos.CanonicalNameRepo
	aliases   repos.AliasRepo
	rejected  repos.RejectedNameRepo
	categories repos.CategoryRepo
	intents   repos.WriteIntentRepo

	attrs graph.AttributeStore
	users graph.UserAttributeStore

	canonicalNames CanonicalNameService

	searchThreshold float64
}

func NewAttributeService(
	db *gorm.DB,
	baseLog *logger.Logger,
	cache *redisdb.Cache,
	names repos.CanonicalNameRepo,
	aliases repos.AliasRepo,
	rejected repos.RejectedNameRepo,
	categories repos.CategoryRepo,
	intents repos.WriteIntentRepo,
	attrs graph.AttributeStore,
	users graph.UserAttributeStore,
	canonicalNames CanonicalNameService,
	searchThreshold float64,
) AttributeService {
	return &attributeService{
		db:              db,
		log:             baseLog.With("service", "AttributeService"),
		cache:           cache,
		names:           names,
		aliases:         aliases,
		rejected:        rejected,
		categories:      categories,
		intents:         intents,
		attrs:           attrs,
		users:           users,
		canonicalNames:  canonicalNames,
		searchThreshold: searchThreshold,
	}
}

func (s *attributeService) LiveAttributeTypes(ctx context.Context) ([]string, error) {
	var cached []string
	if s.cache.GetJSON(ctx, attributeTypesCacheKey, &cached) {
		return cached, nil
	}
	tags, err := s.attrs.TopLevelTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("list top-level tags: %w", err)
	}
	types := make([]string, 0, len(tags))
	for _, t := range tags {
		types = append(types, t.Name)
	}
	s.cache.SetJSON(ctx, attributeTypesCacheKey, types, 5*time.Minute)
	return types, nil
}

func (s *attributeService) validateType(ctx context.Context, attributeType string) ([]string, error) {
	types, err := s.LiveAttributeTypes(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range types {
		if t == attributeType {
			return types, nil
		}
	}
	return types, apperr.Validation(
		fmt.Sprintf("invalid attribute type %q", attributeType),
		"valid types: "+strings.Join(types, ", "),
	)
}

func (s *attributeService) AddNewAttribute(ctx context.Context, tx *gorm.DB, in NewAttribute) (*domain.Attribute, error) {
	// The display name keeps the caller's casing; only the standardized
	// form is lowered.
	name := strings.TrimSpace(in.CanonicalName)
	if name == "" {
		return nil, apperr.Validation("canonical name is required", "")
	}
	if _, err := s.validateType(ctx, in.AttributeType); err != nil {
		return nil, err
	}
	standardized := normalization.StandardizeName(name)

	rejectedRow, err := s.rejected.GetByStandardizedName(ctx, tx, standardized)
	if err != nil {
		return nil, fmt.Errorf("check prior rejection: %w", err)
	}
	if rejectedRow != nil {
		return nil, apperr.Conflict("canonical name was previously rejected", name)
	}

	existing, err := s.attrs.GetByIdentifier(ctx, standardized)
	if err != nil {
		return nil, fmt.Errorf("look up existing attribute: %w", err)
	}
	if existing != nil {
		if existing.AttributeType != in.AttributeType {
			return nil, apperr.Conflict("canonical name already in use",
				fmt.Sprintf("%s already exists as %s", name, existing.AttributeType))
		}
		// Proposing the same name and type again is a no-op returning the
		// attribute that already exists.
		return existing, nil
	}

	category, err := s.categories.EnsureByName(ctx, tx, in.AttributeType)
	if err != nil {
		return nil, fmt.Errorf("ensure category: %w", err)
	}

	intent, err := s.intents.Create(ctx, tx, &domain.GraphWriteIntent{
		Kind:             domain.IntentKindAttribute,
		StandardizedName: standardized,
		CategoryName:     in.AttributeType,
	})
	if err != nil {
		return nil, fmt.Errorf("record write intent: %w", err)
	}

	row, err := s.names.GetByStandardizedName(ctx, tx, standardized)
	if err != nil {
		return nil, fmt.Errorf("look up canonical name row: %w", err)
	}
	sqlCreated := false
	if row == nil {
		rows, err := s.names.Create(ctx, tx, []*domain.CanonicalName{{
			CanonicalName:    name,
			StandardizedName: standardized,
			CategoryID:       category.ID,
		}})
		if err != nil {
			s.markIntent(ctx, tx, intent.ID, domain.IntentStatusCompensated)
			return nil, fmt.Errorf("create canonical name row: %w", err)
		}
		row = rows[0]
		sqlCreated = true
	}

	vertexGuid := uuid.New()
	if err := s.attrs.CreateStaged(ctx, vertexGuid.String(), standardized, name, in.AttributeType); err != nil {
		return nil, s.compensateAdd(ctx, tx, intent.ID, row, sqlCreated, "", err)
	}
	if tags, err := s.attrs.MetaDataTagsForType(ctx, in.AttributeType); err == nil && len(tags) > 0 {
		if err := s.attrs.AttachMetaDataTags(ctx, vertexGuid.String(), tags); err != nil {
			return nil, s.compensateAdd(ctx, tx, intent.ID, row, sqlCreated, vertexGuid.String(), err)
		}
	} else if err != nil {
		return nil, s.compensateAdd(ctx, tx, intent.ID, row, sqlCreated, vertexGuid.String(), err)
	}

	if err := s.names.UpdateFields(ctx, tx, row.ID, map[string]interface{}{"guid": vertexGuid}); err != nil {
		return nil, s.compensateAdd(ctx, tx, intent.ID, row, sqlCreated, vertexGuid.String(), err)
	}
	s.markIntent(ctx, tx, intent.ID, domain.IntentStatusCommitted)

	created, err := s.attrs.GetByGuid(ctx, vertexGuid.String())
	if err != nil {
		return nil, fmt.Errorf("load created attribute: %w", err)
	}
	if created == nil {
		return nil, apperr.PartialFailure("attribute vanished after create", standardized)
	}
	s.log.Info("attribute proposed", "standardizedName", standardized, "guid", vertexGuid.String())
	return created, nil
}

// compensateAdd unwinds whatever AddNewAttribute managed to write. When the
// unwind itself fails the intent row is left behind for the reconcile sweep
// and the caller gets a partial-failure error that does not pretend to know
// the data state.
func (s *attributeService) compensateAdd(ctx context.Context, tx *gorm.DB, intentID uuid.UUID, row *domain.CanonicalName, sqlCreated bool, vertexGuid string, cause error) error {
	s.log.Error("attribute create failed, compensating", "standardizedName", row.StandardizedName, "error", cause)

	var unwindErr error
	if vertexGuid != "" {
		if err := s.attrs.DeleteWithEdges(ctx, vertexGuid); err != nil {
			unwindErr = err
		}
	}
	if unwindErr == nil && sqlCreated {
		if err := s.names.Delete(ctx, tx, row.ID); err != nil {
			unwindErr = err
		}
	}

	if unwindErr != nil {
		s.log.Error("compensation failed, leaving intent pending for sweep",
			"standardizedName", row.StandardizedName, "error", unwindErr)
		s.markIntent(ctx, tx, intentID, domain.IntentStatusFailed)
		return apperr.PartialFailure("rollback failed after encountering a server error", row.StandardizedName)
	}
	s.markIntent(ctx, tx, intentID, domain.IntentStatusCompensated)
	return fmt.Errorf("create attribute: %w", cause)
}

func (s *attributeService) markIntent(ctx context.Context, tx *gorm.DB, id uuid.UUID, status string) {
	if err := s.intents.MarkStatus(ctx, tx, id, status); err != nil {
		s.log.Warn("failed to update write intent", "intentID", id.String(), "status", status, "error", err)
	}
}

func (s *attributeService) RenameAttribute(ctx context.Context, tx *gorm.DB, standardizedName, newName string) (*domain.Attribute, error) {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return nil, apperr.Validation("new name is required", "")
	}
	current, err := s.attrs.GetByIdentifier(ctx, standardizedName)
	if err != nil {
		return nil, fmt.Errorf("load attribute: %w", err)
	}
	if current == nil {
		return nil, apperr.NotFound("attribute not found", standardizedName)
	}

	newStandardized := normalization.StandardizeName(newName)
	if newStandardized == standardizedName {
		// Casing-only rename touches just the relational side.
		row, err := s.names.GetByStandardizedName(ctx, tx, standardizedName)
		if err != nil {
			return nil, fmt.Errorf("load canonical name row: %w", err)
		}
		if row != nil {
			if _, err := s.canonicalNames.Rename(ctx, tx, row.ID, newName); err != nil {
				return nil, err
			}
		}
		current.Name = newName
		return current, nil
	}

	target, err := s.attrs.GetByIdentifier(ctx, newStandardized)
	if err != nil {
		return nil, fmt.Errorf("look up rename target: %w", err)
	}
	if target != nil {
		if target.AttributeType != current.AttributeType {
			return nil, apperr.Conflict("cannot rename across attribute types",
				fmt.Sprintf("%s is a %s, %s is a %s",
					current.Name, current.AttributeType, target.Name, target.AttributeType))
		}
		// The new name already exists as an attribute of the same type, so
		// the rename is a merge into it.
		return s.MergeAttributes(ctx, tx, standardizedName, newStandardized)
	}

	// Fresh-vertex path: create the renamed vertex, migrate edges, migrate
	// user edges, then drop the old vertex. A crash mid-way leaves
	// duplicated-but-recoverable state, never lost edges.
	newGuid := uuid.New().String()
	if err := s.attrs.CreateVertex(ctx, newGuid, newStandardized, newName); err != nil {
		return nil, fmt.Errorf("create renamed vertex: %w", err)
	}
	if err := s.migrateOutgoingEdges(ctx, current.Guid, newGuid, false); err != nil {
		return nil, fmt.Errorf("migrate outgoing edges: %w", err)
	}
	if _, err := s.users.Move(ctx, current.Guid, newGuid, !current.Repeatable()); err != nil {
		return nil, fmt.Errorf("migrate user edges: %w", err)
	}
	if err := s.attrs.DeleteWithEdges(ctx, current.Guid); err != nil {
		return nil, fmt.Errorf("drop renamed-away vertex: %w", err)
	}

	row, err := s.names.GetByStandardizedName(ctx, tx, standardizedName)
	if err != nil {
		return nil, fmt.Errorf("load canonical name row: %w", err)
	}
	if row != nil {
		guid, parseErr := uuid.Parse(newGuid)
		if parseErr == nil {
			if err := s.names.UpdateFields(ctx, tx, row.ID, map[string]interface{}{
				"canonical_name":    newName,
				"standardized_name": newStandardized,
				"guid":              guid,
			}); err != nil {
				return nil, fmt.Errorf("rename canonical name row: %w", err)
			}
		}
	}

	renamed, err := s.attrs.GetByGuid(ctx, newGuid)
	if err != nil {
		return nil, fmt.Errorf("load renamed attribute: %w", err)
	}
	s.log.Info("attribute renamed", "from", standardizedName, "to", newStandardized)
	return renamed, nil
}

func (s *attributeService) MergeAttributes(ctx context.Context, tx *gorm.DB, toMergeStandardizedName, toKeepStandardizedName string) (*domain.Attribute, error) {
	if toMergeStandardizedName == toKeepStandardizedName {
		return nil, apperr.Conflict("cannot merge an attribute into itself", toMergeStandardizedName)
	}
	toMerge, err := s.attrs.GetByIdentifier(ctx, toMergeStandardizedName)
	if err != nil {
		return nil, fmt.Errorf("load merged attribute: %w", err)
	}
	if toMerge == nil {
		return nil, apperr.NotFound("attribute not found", toMergeStandardizedName)
	}
	toKeep, err := s.attrs.GetByIdentifier(ctx, toKeepStandardizedName)
	if err != nil {
		return nil, fmt.Errorf("load kept attribute: %w", err)
	}
	if toKeep == nil {
		return nil, apperr.NotFound("attribute not found", toKeepStandardizedName)
	}
	if toMerge.AttributeType != toKeep.AttributeType {
		return nil, apperr.Conflict("cannot merge across attribute types",
			fmt.Sprintf("%s is a %s, %s is a %s",
				toMerge.Name, toMerge.AttributeType, toKeep.Name, toKeep.AttributeType))
	}

	// The kept attribute has its own is-a lineage, so the merged one's is-a
	// edge is treated as already satisfied.
	if err := s.migrateOutgoingEdges(ctx, toMerge.Guid, toKeep.Guid, true); err != nil {
		return nil, fmt.Errorf("migrate outgoing edges: %w", err)
	}
	// Per-person dedup only applies when the kept attribute is not
	// repeatable; repeatable ones keep their edge multiplicity.
	if _, err := s.users.Move(ctx, toMerge.Guid, toKeep.Guid, !toKeep.Repeatable()); err != nil {
		return nil, fmt.Errorf("migrate user edges: %w", err)
	}
	if err := s.attrs.DeleteWithEdges(ctx, toMerge.Guid); err != nil {
		return nil, fmt.Errorf("drop merged vertex: %w", err)
	}

	mergedRow, err := s.names.GetByStandardizedName(ctx, tx, toMergeStandardizedName)
	if err != nil {
		return nil, fmt.Errorf("load merged canonical name row: %w", err)
	}
	keptRow, err := s.names.GetByStandardizedName(ctx, tx, toKeepStandardizedName)
	if err != nil {
		return nil, fmt.Errorf("load kept canonical name row: %w", err)
	}
	if mergedRow != nil && keptRow != nil {
		if err := s.canonicalNames.MergeInto(ctx, tx, mergedRow.ID, keptRow.ID); err != nil {
			return nil, err
		}
	}
	if keptRow != nil {
		if guid, parseErr := uuid.Parse(toKeep.Guid); parseErr == nil {
			if err := s.names.UpdateFields(ctx, tx, keptRow.ID, map[string]interface{}{"guid": guid}); err != nil {
				return nil, fmt.Errorf("update kept canonical name guid: %w", err)
			}
		}
	}

	s.log.Info("attributes merged", "merged", toMergeStandardizedName, "kept", toKeepStandardizedName)
	return s.attrs.GetByGuid(ctx, toKeep.Guid)
}

// migrateOutgoingEdges copies every outgoing edge of one vertex onto another
// with coalesce-or-create semantics, so a retry after a partial run is safe.
// skipIsA drops the is-a edge, used by merges where the target already has
// its own lineage.
func (s *attributeService) migrateOutgoingEdges(ctx context.Context, fromGuid, toGuid string, skipIsA bool) error {
	edges, err := s.attrs.OutgoingEdges(ctx, fromGuid)
	if err != nil {
		return err
	}
	for _, e := range edges {
		if skipIsA && e.Label == domain.EdgeIsA {
			continue
		}
		if e.ToGuid == toGuid {
			continue
		}
		if err := s.attrs.EnsureOutgoingEdge(ctx, toGuid, e.ToGuid, e.Label, e.Properties); err != nil {
			return err
		}
	}
	return nil
}

func (s *attributeService) RejectAttribute(ctx context.Context, tx *gorm.DB, standardizedName, rejectedBy string) error {
	if strings.TrimSpace(rejectedBy) == "" {
		return apperr.Validation("rejectedBy is required", "")
	}
	attr, err := s.attrs.GetByIdentifier(ctx, standardizedName)
	if err != nil {
		return fmt.Errorf("load attribute: %w", err)
	}
	if attr == nil {
		return apperr.NotFound("attribute not found", standardizedName)
	}

	row, err := s.names.GetByStandardizedName(ctx, tx, standardizedName)
	if err != nil {
		return fmt.Errorf("load canonical name row: %w", err)
	}

	categoryID := uuid.Nil
	if row != nil {
		categoryID = row.CategoryID
	} else if cat, err := s.categories.GetByName(ctx, tx, attr.AttributeType); err == nil && cat != nil {
		categoryID = cat.ID
	}

	// Log the rejection before anything is deleted so the name is sticky
	// even if the cleanup below is interrupted.
	if _, err := s.rejected.Create(ctx, tx, &domain.RejectedCanonicalName{
		CanonicalName:    attr.Name,
		StandardizedName: standardizedName,
		CategoryID:       categoryID,
		RejectedBy:       rejectedBy,
	}); err != nil {
		return fmt.Errorf("record rejection: %w", err)
	}

	if err := s.attrs.DeleteWithEdges(ctx, attr.Guid); err != nil {
		return fmt.Errorf("delete attribute vertex: %w", err)
	}
	if row != nil {
		if err := s.aliases.DeleteByCanonicalNameID(ctx, tx, row.ID); err != nil {
			return fmt.Errorf("delete aliases: %w", err)
		}
		if err := s.names.Delete(ctx, tx, row.ID); err != nil {
			return fmt.Errorf("delete canonical name row: %w", err)
		}
	}
	s.log.Info("attribute rejected", "standardizedName", standardizedName, "rejectedBy", rejectedBy)
	return nil
}

func (s *attributeService) RatifyAttribute(ctx context.Context, standardizedName, parentStandardizedName string) (*domain.Attribute, error) {
	attr, err := s.attrs.GetByIdentifier(ctx, standardizedName)
	if err != nil {
		return nil, fmt.Errorf("load attribute: %w", err)
	}
	if attr == nil {
		return nil, apperr.NotFound("attribute not found", standardizedName)
	}
	if !attr.NeedsRatification {
		// Ratification is one-way; ratifying twice is a no-op.
		return attr, nil
	}

	if parentStandardizedName == "" {
		if err := s.attrs.ConnectToTopLevelTag(ctx, attr.Guid, attr.AttributeType); err != nil {
			return nil, fmt.Errorf("connect to top-level tag: %w", err)
		}
	} else {
		parent, err := s.attrs.GetByIdentifier(ctx, parentStandardizedName)
		if err != nil {
			return nil, fmt.Errorf("load parent attribute: %w", err)
		}
		if parent == nil {
			return nil, apperr.NotFound("parent attribute not found", parentStandardizedName)
		}
		if parent.NeedsRatification {
			return nil, apperr.Conflict("parent attribute is not ratified", parentStandardizedName)
		}
		if parent.AttributeType != attr.AttributeType {
			return nil, apperr.Conflict("parent attribute has a different type",
				fmt.Sprintf("%s is a %s", parent.Name, parent.AttributeType))
		}
		if err := s.attrs.MoveUnderParent(ctx, attr.Guid, parent.Guid); err != nil {
			return nil, fmt.Errorf("move under parent: %w", err)
		}
	}
	s.log.Info("attribute ratified", "standardizedName", standardizedName)
	return s.attrs.GetByGuid(ctx, attr.Guid)
}

func (s *attributeService) SkillPathWithRelatedTags(ctx context.Context, guid string) ([]domain.SkillPathEntry, error) {
	path, err := s.attrs.SkillPath(ctx, guid)
	if err != nil {
		return nil, fmt.Errorf("resolve skill path: %w", err)
	}
	if len(path) == 0 {
		return nil, apperr.NotFound("attribute not found", guid)
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := range path {
		if path[i].TopLevel {
			continue
		}
		i := i
		g.Go(func() error {
			related, err := s.attrs.RelatedTags(gctx, path[i].Guid)
			if err != nil {
				return err
			}
			path[i].RelatedTags = related
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("resolve related tags: %w", err)
	}
	return path, nil
}

func (s *attributeService) Search(ctx context.Context, params AttributeSearchParams) ([]AttributeSearchResult, error) {
	text := normalization.ParseInputString(params.Text)
	if text == "" {
		return nil, apperr.Validation("search text is required", "")
	}

	liveTypes, err := s.LiveAttributeTypes(ctx)
	if err != nil {
		return nil, err
	}
	categories := params.Types
	if len(categories) == 0 {
		categories = liveTypes
	} else {
		for _, t := range categories {
			if _, err := s.validateType(ctx, t); err != nil {
				return nil, err
			}
		}
	}

	hits, err := s.names.SearchByText(ctx, nil, text, s.searchThreshold, categories)
	if err != nil {
		return nil, fmt.Errorf("relational text search: %w", err)
	}
	identifiers := make([]string, 0, len(hits))
	for _, h := range hits {
		identifiers = append(identifiers, h.StandardizedName)
	}

	// Resolve hits against the graph; rows with no vertex are dropped rather
	// than surfaced half-formed.
	resolved, err := s.attrs.ResolveByIdentifiers(ctx, identifiers)
	if err != nil {
		return nil, fmt.Errorf("resolve search hits: %w", err)
	}
	if params.Ratified != nil {
		filtered := resolved[:0]
		for _, a := range resolved {
			if a.NeedsRatification != *params.Ratified {
				filtered = append(filtered, a)
			}
		}
		resolved = filtered
	}

	from, to := params.Page.Window(len(resolved))
	if params.Page.PageLength > 0 {
		resolved = resolved[from:to]
	}

	results := make([]AttributeSearchResult, len(resolved))
	g, gctx := errgroup.WithContext(ctx)
	for i := range resolved {
		i := i
		results[i].Attribute = resolved[i]
		if resolved[i].NeedsRatification {
			continue
		}
		g.Go(func() error {
			path, err := s.attrs.SkillPath(gctx, resolved[i].Guid)
			if err != nil {
				return err
			}
			results[i].SkillPath = path
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("resolve skill paths: %w", err)
	}
	return results, nil
}

// prefilterIdentifiers narrows a ratification queue by free text using the
// relational store, whose trigram search outranks anything the graph can do
// natively. A nil return means "no prefilter".
func (s *attributeService) prefilterIdentifiers(ctx context.Context, searchText string, categories []string) ([]string, error) {
	searchText = normalization.ParseInputString(searchText)
	if searchText == "" {
		return nil, nil
	}
	hits, err := s.names.SearchByText(ctx, nil, searchText, s.searchThreshold, categories)
	if err != nil {
		return nil, fmt.Errorf("prefilter text search: %w", err)
	}
	identifiers := make([]string, 0, len(hits))
	for _, h := range hits {
		identifiers = append(identifiers, h.StandardizedName)
	}
	if len(identifiers) == 0 {
		// A prefilter that matched nothing must yield an empty page, not an
		// unfiltered one.
		identifiers = []string{""}
	}
	return identifiers, nil
}

func (s *attributeService) UnratifiedSkills(ctx context.Context, attributeType string, page domain.Page, searchText string) (*domain.RatificationQueuePage, error) {
	if attributeType != "" {
		if _, err := s.validateType(ctx, attributeType); err != nil {
			return nil, err
		}
	}
	categories := []string{attributeType}
	if attributeType == "" {
		live, err := s.LiveAttributeTypes(ctx)
		if err != nil {
			return nil, err
		}
		categories = live
	}
	identifiers, err := s.prefilterIdentifiers(ctx, searchText, categories)
	if err != nil {
		return nil, err
	}
	items, total, err := s.attrs.Unratified(ctx, attributeType, page, identifiers)
	if err != nil {
		return nil, fmt.Errorf("list unratified attributes: %w", err)
	}
	return &domain.RatificationQueuePage{Items: items, RatificationCount: total}, nil
}

func (s *attributeService) AttributesWithUnratifiedOfferings(ctx context.Context, page domain.Page, searchText string) (*domain.AttributeOfferQueuePage, error) {
	live, err := s.LiveAttributeTypes(ctx)
	if err != nil {
		return nil, err
	}
	identifiers, err := s.prefilterIdentifiers(ctx, searchText, live)
	if err != nil {
		return nil, err
	}
	items, total, err := s.attrs.WithUnratifiedOfferings(ctx, page, identifiers)
	if err != nil {
		return nil, fmt.Errorf("list attributes with unratified offerings: %w", err)
	}
	return &domain.AttributeOfferQueuePage{Items: items, RatificationCount: total}, nil
}
