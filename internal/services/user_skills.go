package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/LeshegoT/the-hive-backend/internal/data/graph"
	"github.com/LeshegoT/the-hive-backend/internal/domain"
	"github.com/LeshegoT/the-hive-backend/internal/pkg/apperr"
	"github.com/LeshegoT/the-hive-backend/internal/platform/logger"
)

// NewUserAttribute is the payload for AddUserAttribute.
type NewUserAttribute struct {
	PersonGuid    string         `json:"person_guid"`
	AttributeGuid string         `json:"attribute_guid"`
	Fields        map[string]any `json:"fields,omitempty"`
	Proof         string         `json:"proof,omitempty"`
	ObtainedFrom  string         `json:"obtained_from,omitempty"`
}

// CoreTechConfig caps the core-tech selection and restricts which attribute
// types may appear in it.
type CoreTechConfig struct {
	Max          int
	AllowedTypes []string
}

type UserSkillService interface {
	// AddUserAttribute adds a has-edge. A person holds at most one edge per
	// non-repeatable attribute: re-adding one updates the existing edge
	// instead. Repeatable attributes always get a new edge.
	AddUserAttribute(ctx context.Context, in NewUserAttribute) (*domain.UserAttribute, error)
	UpdateUserAttribute(ctx context.Context, edgeGuid string, fields map[string]any) (*domain.UserAttribute, error)
	RemoveUserAttribute(ctx context.Context, edgeGuid string) error
	ListUserAttributes(ctx context.Context, personGuid string) ([]domain.UserAttribute, error)

	// ReplaceCoreTech swaps the person's core-tech selection atomically from
	// the caller's perspective: the whole batch is validated before any
	// mutation, and one disallowed candidate rejects the entire batch.
	ReplaceCoreTech(ctx context.Context, personGuid string, edgeGuids []string, addedBy string) ([]domain.UserAttribute, error)
	CoreTech(ctx context.Context, personGuid string) ([]domain.UserAttribute, error)

	SetProof(ctx context.Context, edgeGuid, proof string) error
	VerifyProof(ctx context.Context, edgeGuid, verifiedBy string) error
}

type userSkillService struct {
	log *logger.Logger

	users graph.UserAttributeStore
	attrs graph.AttributeStore

	coreTech CoreTechConfig
}

func NewUserSkillService(
	baseLog *logger.Logger,
	users graph.UserAttributeStore,
	attrs graph.AttributeStore,
	coreTech CoreTechConfig,
) UserSkillService {
	return &userSkillService{
		log:      baseLog.With("service", "UserSkillService"),
		users:    users,
		attrs:    attrs,
		coreTech: coreTech,
	}
}

func (s *userSkillService) AddUserAttribute(ctx context.Context, in NewUserAttribute) (*domain.UserAttribute, error) {
	if in.PersonGuid == "" || in.AttributeGuid == "" {
		return nil, apperr.Validation("person and attribute are required", "")
	}
	attr, err := s.attrs.GetByGuid(ctx, in.AttributeGuid)
	if err != nil {
		return nil, fmt.Errorf("load attribute: %w", err)
	}
	if attr == nil {
		return nil, apperr.NotFound("attribute not found", in.AttributeGuid)
	}
	if err := s.users.EnsurePerson(ctx, in.PersonGuid); err != nil {
		return nil, fmt.Errorf("ensure person: %w", err)
	}

	for _, f := range attr.RequiredFields {
		if _, ok := in.Fields[f]; !ok {
			return nil, apperr.Validation("missing required field", f)
		}
	}

	if !attr.Repeatable() {
		existing, err := s.users.Edges(ctx, in.PersonGuid, in.AttributeGuid)
		if err != nil {
			return nil, fmt.Errorf("list existing edges: %w", err)
		}
		if len(existing) > 0 {
			// Non-repeatable: update the edge the person already has.
			edge := existing[0]
			props := map[string]any{}
			for k, v := range in.Fields {
				props[k] = v
			}
			if in.Proof != "" {
				props["proof"] = in.Proof
			}
			if in.ObtainedFrom != "" {
				props["obtainedFrom"] = in.ObtainedFrom
			}
			if err := s.users.UpdateProps(ctx, edge.EdgeGuid, props); err != nil {
				return nil, fmt.Errorf("update existing edge: %w", err)
			}
			return s.users.GetEdge(ctx, edge.EdgeGuid)
		}
	}

	edgeGuid, err := s.users.Add(ctx, domain.UserAttribute{
		EdgeGuid:      uuid.New().String(),
		PersonGuid:    in.PersonGuid,
		AttributeGuid: in.AttributeGuid,
		Fields:        in.Fields,
		Proof:         in.Proof,
		ObtainedFrom:  in.ObtainedFrom,
	})
	if err != nil {
		return nil, fmt.Errorf("add user attribute: %w", err)
	}
	return s.users.GetEdge(ctx, edgeGuid)
}

func (s *userSkillService) UpdateUserAttribute(ctx context.Context, edgeGuid string, fields map[string]any) (*domain.UserAttribute, error) {
	edge, err := s.users.GetEdge(ctx, edgeGuid)
	if err != nil {
		return nil, fmt.Errorf("load edge: %w", err)
	}
	if edge == nil {
		return nil, apperr.NotFound("user attribute not found", edgeGuid)
	}
	if err := s.users.UpdateProps(ctx, edgeGuid, fields); err != nil {
		return nil, fmt.Errorf("update edge: %w", err)
	}
	return s.users.GetEdge(ctx, edgeGuid)
}

func (s *userSkillService) RemoveUserAttribute(ctx context.Context, edgeGuid string) error {
	edge, err := s.users.GetEdge(ctx, edgeGuid)
	if err != nil {
		return fmt.Errorf("load edge: %w", err)
	}
	if edge == nil {
		return apperr.NotFound("user attribute not found", edgeGuid)
	}
	return s.users.Remove(ctx, edgeGuid)
}

func (s *userSkillService) ListUserAttributes(ctx context.Context, personGuid string) ([]domain.UserAttribute, error) {
	return s.users.ListByPerson(ctx, personGuid)
}

func (s *userSkillService) ReplaceCoreTech(ctx context.Context, personGuid string, edgeGuids []string, addedBy string) ([]domain.UserAttribute, error) {
	if strings.TrimSpace(addedBy) == "" {
		return nil, apperr.Validation("addedBy is required", "")
	}
	if len(edgeGuids) > s.coreTech.Max {
		return nil, apperr.Validation(
			fmt.Sprintf("at most %d core tech entries are allowed", s.coreTech.Max),
			fmt.Sprintf("%d requested", len(edgeGuids)))
	}

	// Validate the whole batch before touching anything: one disallowed
	// candidate rejects the lot.
	edges := make([]*domain.UserAttribute, 0, len(edgeGuids))
	for _, g := range edgeGuids {
		edge, err := s.users.GetEdge(ctx, g)
		if err != nil {
			return nil, fmt.Errorf("load edge: %w", err)
		}
		if edge == nil {
			return nil, apperr.NotFound("user attribute not found", g)
		}
		if edge.PersonGuid != personGuid {
			return nil, apperr.Validation("user attribute belongs to a different person", g)
		}
		attr, err := s.attrs.GetByGuid(ctx, edge.AttributeGuid)
		if err != nil {
			return nil, fmt.Errorf("load attribute: %w", err)
		}
		if attr == nil {
			return nil, apperr.NotFound("attribute not found", edge.AttributeGuid)
		}
		if !s.coreTechTypeAllowed(attr.AttributeType) {
			return nil, apperr.Validation("attribute type not allowed as core tech",
				fmt.Sprintf("%s is a %s; allowed: %s",
					attr.Name, attr.AttributeType, strings.Join(s.coreTech.AllowedTypes, ", ")))
		}
		edges = append(edges, edge)
	}

	if err := s.users.ClearCoreTech(ctx, personGuid); err != nil {
		return nil, fmt.Errorf("clear core tech: %w", err)
	}
	for _, edge := range edges {
		if err := s.users.SetCoreTech(ctx, edge.EdgeGuid, addedBy); err != nil {
			return nil, fmt.Errorf("set core tech: %w", err)
		}
	}
	return s.users.CoreTech(ctx, personGuid)
}

func (s *userSkillService) coreTechTypeAllowed(attributeType string) bool {
	for _, t := range s.coreTech.AllowedTypes {
		if t == attributeType {
			return true
		}
	}
	return false
}

func (s *userSkillService) CoreTech(ctx context.Context, personGuid string) ([]domain.UserAttribute, error) {
	return s.users.CoreTech(ctx, personGuid)
}

func (s *userSkillService) SetProof(ctx context.Context, edgeGuid, proof string) error {
	if strings.TrimSpace(proof) == "" {
		return apperr.Validation("proof is required", "")
	}
	edge, err := s.users.GetEdge(ctx, edgeGuid)
	if err != nil {
		return fmt.Errorf("load edge: %w", err)
	}
	if edge == nil {
		return apperr.NotFound("user attribute not found", edgeGuid)
	}
	// A new proof restarts the verification workflow.
	return s.users.UpdateProps(ctx, edgeGuid, map[string]any{
		"proof":            proof,
		"uploadVerifiedBy": "",
	})
}

func (s *userSkillService) VerifyProof(ctx context.Context, edgeGuid, verifiedBy string) error {
	if strings.TrimSpace(verifiedBy) == "" {
		return apperr.Validation("verifiedBy is required", "")
	}
	edge, err := s.users.GetEdge(ctx, edgeGuid)
	if err != nil {
		return fmt.Errorf("load edge: %w", err)
	}
	if edge == nil {
		return apperr.NotFound("user attribute not found", edgeGuid)
	}
	if edge.Proof == "" {
		return apperr.Validation("no proof to verify", edgeGuid)
	}
	return s.users.UpdateProps(ctx, edgeGuid, map[string]any{"uploadVerifiedBy": verifiedBy})
}
