package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/LeshegoT/the-hive-backend/internal/data/graph"
	"github.com/LeshegoT/the-hive-backend/internal/data/repos"
	"github.com/LeshegoT/the-hive-backend/internal/domain"
	"github.com/LeshegoT/the-hive-backend/internal/normalization"
	"github.com/LeshegoT/the-hive-backend/internal/pkg/apperr"
	"github.com/LeshegoT/the-hive-backend/internal/platform/logger"
)

// CategoryInstitution is the canonical-name category for institutions.
const CategoryInstitution = "institution"

// NewInstitution is the create/upsert payload for AddOrUpdateInstitution.
// OfferedAttributes are standardized attribute names; each becomes an
// available-at edge whose own needsRatification flag starts true.
type NewInstitution struct {
	Name              string   `json:"name"`
	InstitutionType   string   `json:"institution_type"`
	Aliases           []string `json:"aliases,omitempty"`
	OfferedAttributes []string `json:"offered_attributes,omitempty"`
}

// InstitutionUpdate multiplexes the three update intents. They are applied
// with fixed precedence: name first, then ratification, then type.
type InstitutionUpdate struct {
	Name              string `json:"name,omitempty"`
	NeedsRatification *bool  `json:"needs_ratification,omitempty"`
	InstitutionType   string `json:"institution_type,omitempty"`
}

// InstitutionSearchParams: Text searches by name via the relational store;
// OffersAttribute searches by reverse available-at edge in the graph. Both
// honor the Ratified and Type narrowing.
type InstitutionSearchParams struct {
	Text            string `json:"text,omitempty"`
	OffersAttribute string `json:"offers_attribute,omitempty"`
	Ratified        *bool  `json:"ratified,omitempty"`
	Type            string `json:"type,omitempty"`
}

type InstitutionService interface {
	AddOrUpdateInstitution(ctx context.Context, tx *gorm.DB, in NewInstitution) (*domain.Institution, error)
	UpdateInstitution(ctx context.Context, tx *gorm.DB, standardizedName string, update InstitutionUpdate) (*domain.Institution, error)
	MergeInstitutions(ctx context.Context, tx *gorm.DB, toMergeStandardizedName, toKeepStandardizedName string) (*domain.Institution, error)
	RatifyInstitution(ctx context.Context, standardizedName string) (*domain.Institution, error)
	// DeleteInstitution refuses while the institution still offers anything.
	DeleteInstitution(ctx context.Context, tx *gorm.DB, standardizedName string) error

	RatifyOffering(ctx context.Context, attributeStandardizedName, institutionStandardizedName string) error

	Search(ctx context.Context, params InstitutionSearchParams) ([]domain.Institution, error)
	Get(ctx context.Context, standardizedName string) (*domain.Institution, error)

	InstitutionTypes(ctx context.Context) ([]string, error)
	AddInstitutionType(ctx context.Context, name string) error
}

type institutionService struct {
	db  *gorm.DB
	log *logger.Logger

	names      repos.CanonicalNameRepo
	aliases    repos.AliasRepo
	rejected   repos.RejectedNameRepo
	categories repos.CategoryRepo
	intents    repos.WriteIntentRepo

	insts graph.InstitutionStore
	attrs graph.AttributeStore
	users graph.UserAttributeStore

	canonicalNames CanonicalNameService

	searchThreshold float64
}

func NewInstitutionService(
	db *gorm.DB,
	baseLog *logger.Logger,
	names repos.CanonicalNameRepo,
	aliases repos.AliasRepo,
	rejected repos.RejectedNameRepo,
	categories repos.CategoryRepo,
	intents repos.WriteIntentRepo,
	insts graph.InstitutionStore,
	attrs graph.AttributeStore,
	users graph.UserAttributeStore,
	canonicalNames CanonicalNameService,
	searchThreshold float64,
) InstitutionService {
	return &institutionService{
		db:              db,
		log:             baseLog.With("service", "InstitutionService"),
		names:           names,
		aliases:         aliases,
		rejected:        rejected,
		categories:      categories,
		intents:         intents,
		insts:           insts,
		attrs:           attrs,
		users:           users,
		canonicalNames:  canonicalNames,
		searchThreshold: searchThreshold,
	}
}

func (s *institutionService) InstitutionTypes(ctx context.Context) ([]string, error) {
	return s.insts.Types(ctx)
}

func (s *institutionService) AddInstitutionType(ctx context.Context, name string) error {
	name = normalization.ParseInputString(name)
	if name == "" {
		return apperr.Validation("institution type is required", "")
	}
	created, err := s.insts.AddType(ctx, name)
	if err != nil {
		return fmt.Errorf("add institution type: %w", err)
	}
	if !created {
		return apperr.Conflict("institution type already exists", name)
	}
	return nil
}

func (s *institutionService) validateType(ctx context.Context, institutionType string) error {
	types, err := s.insts.Types(ctx)
	if err != nil {
		return err
	}
	for _, t := range types {
		if t == institutionType {
			return nil
		}
	}
	return apperr.Validation(
		fmt.Sprintf("invalid institution type %q", institutionType),
		"valid types: "+strings.Join(types, ", "),
	)
}

func (s *institutionService) AddOrUpdateInstitution(ctx context.Context, tx *gorm.DB, in NewInstitution) (*domain.Institution, error) {
	// Display name keeps the caller's casing; the standardized form is the
	// lowered join key.
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.Validation("institution name is required", "")
	}
	if err := s.validateType(ctx, in.InstitutionType); err != nil {
		return nil, err
	}
	standardized := normalization.StandardizeName(name)

	rejectedRow, err := s.rejected.GetByStandardizedName(ctx, tx, standardized)
	if err != nil {
		return nil, fmt.Errorf("check prior rejection: %w", err)
	}
	if rejectedRow != nil {
		return nil, apperr.Conflict("institution name was previously rejected", name)
	}

	existing, err := s.insts.GetByIdentifier(ctx, standardized)
	if err != nil {
		return nil, fmt.Errorf("look up existing institution: %w", err)
	}

	var institutionGuid string
	if existing != nil {
		institutionGuid = existing.Guid
	} else {
		created, err := s.createInstitution(ctx, tx, name, standardized, in.InstitutionType)
		if err != nil {
			return nil, err
		}
		institutionGuid = created
	}

	row, err := s.names.GetByStandardizedName(ctx, tx, standardized)
	if err != nil {
		return nil, fmt.Errorf("load canonical name row: %w", err)
	}
	if row != nil && len(in.Aliases) > 0 {
		for _, alias := range in.Aliases {
			if _, err := s.canonicalNames.AddAlias(ctx, tx, row.ID, alias); err != nil {
				if apperr.IsConflict(err) {
					continue
				}
				return nil, err
			}
		}
	}

	// Each offered attribute gets its own available-at edge; the edge's
	// needsRatification flag is independent of both endpoints' state. An
	// edge that already exists keeps its properties.
	for _, attrName := range in.OfferedAttributes {
		attr, err := s.attrs.GetByIdentifier(ctx, normalization.StandardizeName(attrName))
		if err != nil {
			return nil, fmt.Errorf("look up offered attribute: %w", err)
		}
		if attr == nil {
			return nil, apperr.NotFound("offered attribute not found", attrName)
		}
		if _, err := s.insts.EnsureOffering(ctx, attr.Guid, institutionGuid, true); err != nil {
			return nil, fmt.Errorf("link offered attribute: %w", err)
		}
	}

	return s.insts.GetByGuid(ctx, institutionGuid)
}

// createInstitution runs the cross-store create under a write intent, the
// same protocol as attribute creation.
func (s *institutionService) createInstitution(ctx context.Context, tx *gorm.DB, name, standardized, institutionType string) (string, error) {
	category, err := s.categories.EnsureByName(ctx, tx, CategoryInstitution)
	if err != nil {
		return "", fmt.Errorf("ensure institution category: %w", err)
	}

	intent, err := s.intents.Create(ctx, tx, &domain.GraphWriteIntent{
		Kind:             domain.IntentKindInstitution,
		StandardizedName: standardized,
		CategoryName:     CategoryInstitution,
	})
	if err != nil {
		return "", fmt.Errorf("record write intent: %w", err)
	}

	row, err := s.names.GetByStandardizedName(ctx, tx, standardized)
	if err != nil {
		return "", fmt.Errorf("look up canonical name row: %w", err)
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
			return "", fmt.Errorf("create canonical name row: %w", err)
		}
		row = rows[0]
		sqlCreated = true
	}

	vertexGuid := uuid.New()
	if err := s.insts.CreateStaged(ctx, vertexGuid.String(), standardized, name, institutionType); err != nil {
		return "", s.compensateCreate(ctx, tx, intent.ID, row, sqlCreated, "", err)
	}
	if err := s.names.UpdateFields(ctx, tx, row.ID, map[string]interface{}{"guid": vertexGuid}); err != nil {
		return "", s.compensateCreate(ctx, tx, intent.ID, row, sqlCreated, vertexGuid.String(), err)
	}
	s.markIntent(ctx, tx, intent.ID, domain.IntentStatusCommitted)
	s.log.Info("institution created", "standardizedName", standardized, "guid", vertexGuid.String())
	return vertexGuid.String(), nil
}

func (s *institutionService) compensateCreate(ctx context.Context, tx *gorm.DB, intentID uuid.UUID, row *domain.CanonicalName, sqlCreated bool, vertexGuid string, cause error) error {
	s.log.Error("institution create failed, compensating", "standardizedName", row.StandardizedName, "error", cause)

	var unwindErr error
	if vertexGuid != "" {
		if err := s.insts.DeleteWithEdges(ctx, vertexGuid); err != nil {
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
	return fmt.Errorf("create institution: %w", cause)
}

func (s *institutionService) markIntent(ctx context.Context, tx *gorm.DB, id uuid.UUID, status string) {
	if err := s.intents.MarkStatus(ctx, tx, id, status); err != nil {
		s.log.Warn("failed to update write intent", "intentID", id.String(), "status", status, "error", err)
	}
}

func (s *institutionService) UpdateInstitution(ctx context.Context, tx *gorm.DB, standardizedName string, update InstitutionUpdate) (*domain.Institution, error) {
	current, err := s.insts.GetByIdentifier(ctx, standardizedName)
	if err != nil {
		return nil, fmt.Errorf("load institution: %w", err)
	}
	if current == nil {
		return nil, apperr.NotFound("institution not found", standardizedName)
	}

	// Name change first. A new name colliding with another institution
	// cascades into an explicit merge, with the collided-with institution
	// kept.
	newName := strings.TrimSpace(update.Name)
	if newName != "" && newName != current.Name {
		newStandardized := normalization.StandardizeName(newName)
		if newStandardized != standardizedName {
			collide, err := s.insts.GetByIdentifier(ctx, newStandardized)
			if err != nil {
				return nil, fmt.Errorf("look up rename target: %w", err)
			}
			if collide != nil {
				return s.MergeInstitutions(ctx, tx, standardizedName, newStandardized)
			}
		}
		// Institutions rename in place: vertex identity is stable, only
		// identifier and display name move.
		if err := s.insts.UpdateIdentity(ctx, current.Guid, newStandardized, newName); err != nil {
			return nil, fmt.Errorf("update institution identity: %w", err)
		}
		if row, err := s.names.GetByStandardizedName(ctx, tx, standardizedName); err != nil {
			return nil, fmt.Errorf("load canonical name row: %w", err)
		} else if row != nil {
			if _, err := s.canonicalNames.Rename(ctx, tx, row.ID, newName); err != nil {
				return nil, err
			}
		}
		standardizedName = newStandardized
		current.Name = newName
		current.StandardizedName = newStandardized
	}

	// Ratification transition second: only true -> false does anything.
	if update.NeedsRatification != nil && current.NeedsRatification && !*update.NeedsRatification {
		if _, err := s.RatifyInstitution(ctx, standardizedName); err != nil {
			return nil, err
		}
	}

	// Type change last.
	if update.InstitutionType != "" && update.InstitutionType != current.InstitutionType {
		if err := s.validateType(ctx, update.InstitutionType); err != nil {
			return nil, err
		}
		if err := s.insts.SetType(ctx, current.Guid, update.InstitutionType); err != nil {
			return nil, fmt.Errorf("set institution type: %w", err)
		}
	}

	return s.insts.GetByGuid(ctx, current.Guid)
}

func (s *institutionService) MergeInstitutions(ctx context.Context, tx *gorm.DB, toMergeStandardizedName, toKeepStandardizedName string) (*domain.Institution, error) {
	if toMergeStandardizedName == toKeepStandardizedName {
		return nil, apperr.Conflict("cannot merge an institution into itself", toMergeStandardizedName)
	}
	toMerge, err := s.insts.GetByIdentifier(ctx, toMergeStandardizedName)
	if err != nil {
		return nil, fmt.Errorf("load merged institution: %w", err)
	}
	if toMerge == nil {
		return nil, apperr.NotFound("institution not found", toMergeStandardizedName)
	}
	toKeep, err := s.insts.GetByIdentifier(ctx, toKeepStandardizedName)
	if err != nil {
		return nil, fmt.Errorf("load kept institution: %w", err)
	}
	if toKeep == nil {
		return nil, apperr.NotFound("institution not found", toKeepStandardizedName)
	}

	// Offerings the kept institution already has keep their own edge
	// properties; only genuinely new offerings are carried over.
	offerings, err := s.insts.Offerings(ctx, toMerge.Guid)
	if err != nil {
		return nil, fmt.Errorf("list merged institution offerings: %w", err)
	}
	for _, o := range offerings {
		if _, err := s.insts.EnsureOffering(ctx, o.AttributeGuid, toKeep.Guid, o.NeedsRatification); err != nil {
			return nil, fmt.Errorf("transfer offering: %w", err)
		}
	}
	if err := s.insts.RemoveAllOfferings(ctx, toMerge.Guid); err != nil {
		return nil, fmt.Errorf("remove merged institution offerings: %w", err)
	}
	if err := s.users.RemoveByObtainedFrom(ctx, toMerge.Guid); err != nil {
		return nil, fmt.Errorf("remove user edges obtained from merged institution: %w", err)
	}
	if err := s.insts.DeleteWithEdges(ctx, toMerge.Guid); err != nil {
		return nil, fmt.Errorf("delete merged institution vertex: %w", err)
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

	s.log.Info("institutions merged", "merged", toMergeStandardizedName, "kept", toKeepStandardizedName)
	return s.insts.GetByGuid(ctx, toKeep.Guid)
}

func (s *institutionService) RatifyInstitution(ctx context.Context, standardizedName string) (*domain.Institution, error) {
	inst, err := s.insts.GetByIdentifier(ctx, standardizedName)
	if err != nil {
		return nil, fmt.Errorf("load institution: %w", err)
	}
	if inst == nil {
		return nil, apperr.NotFound("institution not found", standardizedName)
	}
	if !inst.NeedsRatification {
		return inst, nil
	}
	if err := s.insts.Ratify(ctx, inst.Guid); err != nil {
		return nil, fmt.Errorf("ratify institution: %w", err)
	}
	s.log.Info("institution ratified", "standardizedName", standardizedName)
	return s.insts.GetByGuid(ctx, inst.Guid)
}

func (s *institutionService) RatifyOffering(ctx context.Context, attributeStandardizedName, institutionStandardizedName string) error {
	attr, err := s.attrs.GetByIdentifier(ctx, attributeStandardizedName)
	if err != nil {
		return fmt.Errorf("load attribute: %w", err)
	}
	if attr == nil {
		return apperr.NotFound("attribute not found", attributeStandardizedName)
	}
	inst, err := s.insts.GetByIdentifier(ctx, institutionStandardizedName)
	if err != nil {
		return fmt.Errorf("load institution: %w", err)
	}
	if inst == nil {
		return apperr.NotFound("institution not found", institutionStandardizedName)
	}
	return s.insts.RatifyOffering(ctx, attr.Guid, inst.Guid)
}

func (s *institutionService) DeleteInstitution(ctx context.Context, tx *gorm.DB, standardizedName string) error {
	inst, err := s.insts.GetByIdentifier(ctx, standardizedName)
	if err != nil {
		return fmt.Errorf("load institution: %w", err)
	}
	if inst == nil {
		return apperr.NotFound("institution not found", standardizedName)
	}
	offerings, err := s.insts.Offerings(ctx, inst.Guid)
	if err != nil {
		return fmt.Errorf("list offerings: %w", err)
	}
	if len(offerings) > 0 {
		return apperr.IntegrityRefusal("institution still offers attributes",
			fmt.Sprintf("%s offers %d attributes", inst.Name, len(offerings)))
	}

	// Graph side first; a crash here leaves a relational row the sweep can
	// finish deleting.
	if err := s.insts.DeleteWithEdges(ctx, inst.Guid); err != nil {
		return fmt.Errorf("delete institution vertex: %w", err)
	}
	row, err := s.names.GetByStandardizedName(ctx, tx, standardizedName)
	if err != nil {
		return fmt.Errorf("load canonical name row: %w", err)
	}
	if row != nil {
		if err := s.aliases.DeleteByCanonicalNameID(ctx, tx, row.ID); err != nil {
			return fmt.Errorf("delete aliases: %w", err)
		}
		if err := s.names.Delete(ctx, tx, row.ID); err != nil {
			return fmt.Errorf("delete canonical name row: %w", err)
		}
	}
	s.log.Info("institution deleted", "standardizedName", standardizedName)
	return nil
}

func (s *institutionService) Get(ctx context.Context, standardizedName string) (*domain.Institution, error) {
	inst, err := s.insts.GetByIdentifier(ctx, standardizedName)
	if err != nil {
		return nil, fmt.Errorf("load institution: %w", err)
	}
	if inst == nil {
		return nil, apperr.NotFound("institution not found", standardizedName)
	}
	return inst, nil
}

func (s *institutionService) Search(ctx context.Context, params InstitutionSearchParams) ([]domain.Institution, error) {
	if params.OffersAttribute != "" {
		attr, err := s.attrs.GetByIdentifier(ctx, normalization.StandardizeName(params.OffersAttribute))
		if err != nil {
			return nil, fmt.Errorf("load offered attribute: %w", err)
		}
		if attr == nil {
			return nil, apperr.NotFound("attribute not found", params.OffersAttribute)
		}
		insts, err := s.insts.InstitutionsOffering(ctx, attr.Guid)
		if err != nil {
			return nil, fmt.Errorf("list offering institutions: %w", err)
		}
		return filterInstitutions(insts, params.Ratified, params.Type), nil
	}

	var identifiers []string
	if text := normalization.ParseInputString(params.Text); text != "" {
		hits, err := s.names.SearchByText(ctx, nil, text, s.searchThreshold, []string{CategoryInstitution})
		if err != nil {
			return nil, fmt.Errorf("relational text search: %w", err)
		}
		identifiers = make([]string, 0, len(hits))
		for _, h := range hits {
			identifiers = append(identifiers, h.StandardizedName)
		}
		if len(identifiers) == 0 {
			return []domain.Institution{}, nil
		}
	}
	return s.insts.FilterByIdentifiers(ctx, identifiers, params.Ratified, params.Type)
}

func filterInstitutions(insts []domain.Institution, ratified *bool, institutionType string) []domain.Institution {
	out := insts[:0]
	for _, i := range insts {
		if ratified != nil && i.NeedsRatification == *ratified {
			continue
		}
		if institutionType != "" && i.InstitutionType != institutionType {
			continue
		}
		out = append(out, i)
	}
	return out
}
