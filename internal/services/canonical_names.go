package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/LeshegoT/the-hive-backend/internal/data/repos"
	"github.com/LeshegoT/the-hive-backend/internal/domain"
	"github.com/LeshegoT/the-hive-backend/internal/normalization"
	"github.com/LeshegoT/the-hive-backend/internal/pkg/apperr"
	"github.com/LeshegoT/the-hive-backend/internal/platform/logger"
)

// GuidUpdate links a canonical-name row back to its graph vertex.
type GuidUpdate struct {
	StandardizedName string    `json:"standardized_name"`
	Guid             uuid.UUID `json:"guid"`
}

type GuidUpdateFailure struct {
	GuidUpdate
	Reason string `json:"reason"`
}

// GuidBatchResult partitions a best-effort batch so the caller can retry
// just the failures.
type GuidBatchResult struct {
	Succeeded []GuidUpdate        `json:"succeeded"`
	Failed    []GuidUpdateFailure `json:"failed"`
}

type CanonicalNameService interface {
	// Rename changes the display name of a canonical name. Renaming onto a
	// name held by a different row is a conflict: merging is a separate,
	// explicit operation, never inferred from a rename.
	Rename(ctx context.Context, tx *gorm.DB, canonicalNameID uuid.UUID, newName string) (*domain.CanonicalName, error)
	// MergeInto re-points the merged row's aliases onto the target, records
	// the merged primary name as an alias of the target, and deletes the
	// merged row.
	MergeInto(ctx context.Context, tx *gorm.DB, fromID, intoID uuid.UUID) error

	RetrieveDetails(ctx context.Context, standardizedName string) (*domain.CanonicalNameDetails, error)
	UpdateGuidsByStandardizedNames(ctx context.Context, updates []GuidUpdate) (*GuidBatchResult, error)

	AddAlias(ctx context.Context, tx *gorm.DB, canonicalNameID uuid.UUID, alias string) (*domain.Alias, error)
	AddSearchTextException(ctx context.Context, tx *gorm.DB, searchText string) error
	RetrieveSearchTextExceptions(ctx context.Context) ([]string, error)
}

type canonicalNameService struct {
	db  *gorm.DB
	log *logger.Logger

	names      repos.CanonicalNameRepo
	aliases    repos.AliasRepo
	exceptions repos.SearchExceptionRepo
}

func NewCanonicalNameService(
	db *gorm.DB,
	baseLog *logger.Logger,
	names repos.CanonicalNameRepo,
	aliases repos.AliasRepo,
	exceptions repos.SearchExceptionRepo,
) CanonicalNameService {
	return &canonicalNameService{
		db:         db,
		log:        baseLog.With("service", "CanonicalNameService"),
		names:      names,
		aliases:    aliases,
		exceptions: exceptions,
	}
}

func (s *canonicalNameService) Rename(ctx context.Context, tx *gorm.DB, canonicalNameID uuid.UUID, newName string) (*domain.CanonicalName, error) {
	row, err := s.names.GetByID(ctx, tx, canonicalNameID)
	if err != nil {
		return nil, fmt.Errorf("load canonical name: %w", err)
	}
	if row == nil {
		return nil, apperr.NotFound("canonical name not found", canonicalNameID.String())
	}

	newStandardized := normalization.StandardizeName(newName)
	if newStandardized == "" {
		return nil, apperr.Validation("canonical name is required", "")
	}

	collide, err := s.names.GetByStandardizedName(ctx, tx, newStandardized)
	if err != nil {
		return nil, fmt.Errorf("check name collision: %w", err)
	}
	if collide != nil && collide.ID != row.ID {
		detail := newName + " already exists"
		if collide.Category != nil && (row.Category == nil || collide.Category.Name != row.Category.Name) {
			detail = fmt.Sprintf("%s already exists as %s", newName, collide.Category.Name)
		}
		return nil, apperr.Conflict("canonical name already in use", detail)
	}

	// Identical casing is a no-op; "TypeScript" -> "typescript" is a rename.
	if row.CanonicalName == newName {
		return row, nil
	}

	if err := s.names.UpdateFields(ctx, tx, row.ID, map[string]interface{}{
		"canonical_name":    newName,
		"standardized_name": newStandardized,
	}); err != nil {
		return nil, fmt.Errorf("rename canonical name: %w", err)
	}
	row.CanonicalName = newName
	row.StandardizedName = newStandardized
	return row, nil
}

func (s *canonicalNameService) MergeInto(ctx context.Context, tx *gorm.DB, fromID, intoID uuid.UUID) error {
	if fromID == intoID {
		return apperr.Conflict("cannot merge a canonical name into itself", fromID.String())
	}
	from, err := s.names.GetByID(ctx, tx, fromID)
	if err != nil {
		return fmt.Errorf("load merged canonical name: %w", err)
	}
	if from == nil {
		return apperr.NotFound("canonical name not found", fromID.String())
	}
	into, err := s.names.GetByID(ctx, tx, intoID)
	if err != nil {
		return fmt.Errorf("load target canonical name: %w", err)
	}
	if into == nil {
		return apperr.NotFound("canonical name not found", intoID.String())
	}
	if from.CategoryID != into.CategoryID {
		return apperr.Conflict("cannot merge canonical names across categories",
			fmt.Sprintf("%s and %s have different categories", from.CanonicalName, into.CanonicalName))
	}

	if err := s.aliases.Repoint(ctx, tx, from.ID, into.ID); err != nil {
		return fmt.Errorf("re-point aliases: %w", err)
	}
	if _, err := s.aliases.Create(ctx, tx, []*domain.Alias{{
		Alias:             from.CanonicalName,
		StandardizedAlias: from.StandardizedName,
		CanonicalNameID:   into.ID,
	}}); err != nil {
		return fmt.Errorf("record merged name as alias: %w", err)
	}
	if err := s.names.Delete(ctx, tx, from.ID); err != nil {
		return fmt.Errorf("delete merged canonical name: %w", err)
	}
	return nil
}

func (s *canonicalNameService) RetrieveDetails(ctx context.Context, standardizedName string) (*domain.CanonicalNameDetails, error) {
	row, err := s.names.GetByStandardizedName(ctx, nil, standardizedName)
	if err != nil {
		return nil, fmt.Errorf("load canonical name: %w", err)
	}
	if row == nil {
		return nil, apperr.NotFound("canonical name not found", standardizedName)
	}
	aliases, err := s.aliases.GetByCanonicalNameID(ctx, nil, row.ID)
	if err != nil {
		return nil, fmt.Errorf("load aliases: %w", err)
	}

	details := &domain.CanonicalNameDetails{
		CanonicalNameID:  row.ID,
		CanonicalName:    row.CanonicalName,
		StandardizedName: row.StandardizedName,
		Guid:             row.Guid,
		Aliases:          make([]string, 0, len(aliases)),
	}
	if row.Category != nil {
		details.Category = row.Category.Name
	}
	for _, a := range aliases {
		details.Aliases = append(details.Aliases, a.Alias)
	}
	return details, nil
}

// UpdateGuidsByStandardizedNames never aborts mid-batch: each failure is
// collected so the caller can resubmit just the failed entries.
func (s *canonicalNameService) UpdateGuidsByStandardizedNames(ctx context.Context, updates []GuidUpdate) (*GuidBatchResult, error) {
	result := &GuidBatchResult{}
	for _, u := range updates {
		row, err := s.names.GetByStandardizedName(ctx, nil, u.StandardizedName)
		if err != nil {
			result.Failed = append(result.Failed, GuidUpdateFailure{GuidUpdate: u, Reason: err.Error()})
			continue
		}
		if row == nil {
			result.Failed = append(result.Failed, GuidUpdateFailure{GuidUpdate: u, Reason: "canonical name not found"})
			continue
		}
		if err := s.names.UpdateFields(ctx, nil, row.ID, map[string]interface{}{"guid": u.Guid}); err != nil {
			result.Failed = append(result.Failed, GuidUpdateFailure{GuidUpdate: u, Reason: err.Error()})
			continue
		}
		result.Succeeded = append(result.Succeeded, u)
	}
	return result, nil
}

func (s *canonicalNameService) AddAlias(ctx context.Context, tx *gorm.DB, canonicalNameID uuid.UUID, alias string) (*domain.Alias, error) {
	row, err := s.names.GetByID(ctx, tx, canonicalNameID)
	if err != nil {
		return nil, fmt.Errorf("load canonical name: %w", err)
	}
	if row == nil {
		return nil, apperr.NotFound("canonical name not found", canonicalNameID.String())
	}

	standardizedAlias := normalization.StandardizeName(alias)
	if standardizedAlias == "" {
		return nil, apperr.Validation("alias is required", "")
	}

	// An alias must not shadow another canonical name's primary name.
	if other, err := s.names.GetByStandardizedName(ctx, tx, standardizedAlias); err != nil {
		return nil, fmt.Errorf("check alias collision: %w", err)
	} else if other != nil && other.ID != row.ID {
		return nil, apperr.Conflict("alias collides with an existing canonical name", alias)
	}

	existing, err := s.aliases.GetByStandardizedAlias(ctx, tx, standardizedAlias)
	if err != nil {
		return nil, fmt.Errorf("check existing alias: %w", err)
	}
	for _, e := range existing {
		if e.CanonicalNameID == row.ID {
			return e, nil
		}
	}

	created, err := s.aliases.Create(ctx, tx, []*domain.Alias{{
		Alias:             alias,
		StandardizedAlias: standardizedAlias,
		CanonicalNameID:   row.ID,
	}})
	if err != nil {
		return nil, fmt.Errorf("create alias: %w", err)
	}
	return created[0], nil
}

func (s *canonicalNameService) AddSearchTextException(ctx context.Context, tx *gorm.DB, searchText string) error {
	if normalization.ParseInputString(searchText) == "" {
		return apperr.Validation("search text is required", "")
	}
	_, err := s.exceptions.Create(ctx, tx, searchText)
	return err
}

func (s *canonicalNameService) RetrieveSearchTextExceptions(ctx context.Context) ([]string, error) {
	rows, err := s.exceptions.List(ctx, nil)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.SearchText)
	}
	return out, nil
}
