package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/LeshegoT/the-hive-backend/internal/data/graph"
	"github.com/LeshegoT/the-hive-backend/internal/data/repos"
	"github.com/LeshegoT/the-hive-backend/internal/domain"
	"github.com/LeshegoT/the-hive-backend/internal/platform/logger"
)

// SweepReport summarizes one reconcile pass.
type SweepReport struct {
	Examined    int `json:"examined"`
	Committed   int `json:"committed"`
	Compensated int `json:"compensated"`
	Skipped     int `json:"skipped"`
}

// ReconcileService repairs cross-store creates that died between stores. An
// intent left pending means the SQL row and the graph vertex may disagree;
// the sweep finishes pairs that both exist and unwinds one-sided ones.
type ReconcileService interface {
	Sweep(ctx context.Context) (*SweepReport, error)
}

type reconcileService struct {
	log *logger.Logger

	names   repos.CanonicalNameRepo
	intents repos.WriteIntentRepo

	attrs graph.AttributeStore
	insts graph.InstitutionStore

	// minAge keeps the sweep from racing an operation still in flight.
	minAge time.Duration
}

func NewReconcileService(
	baseLog *logger.Logger,
	names repos.CanonicalNameRepo,
	intents repos.WriteIntentRepo,
	attrs graph.AttributeStore,
	insts graph.InstitutionStore,
	minAge time.Duration,
) ReconcileService {
	if minAge <= 0 {
		minAge = 10 * time.Minute
	}
	return &reconcileService{
		log:     baseLog.With("service", "ReconcileService"),
		names:   names,
		intents: intents,
		attrs:   attrs,
		insts:   insts,
		minAge:  minAge,
	}
}

func (s *reconcileService) Sweep(ctx context.Context) (*SweepReport, error) {
	pending, err := s.intents.ListPendingOlderThan(ctx, nil, s.minAge)
	if err != nil {
		return nil, fmt.Errorf("list pending intents: %w", err)
	}

	report := &SweepReport{}
	for _, intent := range pending {
		report.Examined++
		if err := s.resolve(ctx, intent, report); err != nil {
			// One stuck intent must not block the rest of the sweep.
			s.log.Warn("intent left unresolved",
				"intentID", intent.ID.String(),
				"standardizedName", intent.StandardizedName,
				"error", err)
			report.Skipped++
		}
	}
	if report.Examined > 0 {
		s.log.Info("reconcile sweep finished",
			"examined", report.Examined,
			"committed", report.Committed,
			"compensated", report.Compensated,
			"skipped", report.Skipped)
	}
	return report, nil
}

func (s *reconcileService) resolve(ctx context.Context, intent *domain.GraphWriteIntent, report *SweepReport) error {
	row, err := s.names.GetByStandardizedName(ctx, nil, intent.StandardizedName)
	if err != nil {
		return fmt.Errorf("load canonical name row: %w", err)
	}

	vertexGuid, err := s.lookupVertex(ctx, intent)
	if err != nil {
		return fmt.Errorf("look up graph vertex: %w", err)
	}

	switch {
	case row != nil && vertexGuid != "":
		// Both sides exist: finish the pair by backfilling the guid if the
		// crash happened before the backfill.
		if row.Guid == nil || row.Guid.String() != vertexGuid {
			guid, parseErr := uuid.Parse(vertexGuid)
			if parseErr != nil {
				return fmt.Errorf("parse vertex guid: %w", parseErr)
			}
			if err := s.names.UpdateFields(ctx, nil, row.ID, map[string]interface{}{"guid": guid}); err != nil {
				return fmt.Errorf("backfill guid: %w", err)
			}
		}
		if err := s.intents.MarkStatus(ctx, nil, intent.ID, domain.IntentStatusCommitted); err != nil {
			return err
		}
		report.Committed++

	case row != nil && vertexGuid == "":
		// SQL-only orphan: a row that never got a guid belongs to the
		// failed create and is removed.
		if row.Guid == nil {
			if err := s.names.Delete(ctx, nil, row.ID); err != nil {
				return fmt.Errorf("delete orphan row: %w", err)
			}
		}
		if err := s.intents.MarkStatus(ctx, nil, intent.ID, domain.IntentStatusCompensated); err != nil {
			return err
		}
		report.Compensated++

	case row == nil && vertexGuid != "":
		// Graph-only orphan: drop the vertex.
		if err := s.deleteVertex(ctx, intent.Kind, vertexGuid); err != nil {
			return fmt.Errorf("delete orphan vertex: %w", err)
		}
		if err := s.intents.MarkStatus(ctx, nil, intent.ID, domain.IntentStatusCompensated); err != nil {
			return err
		}
		report.Compensated++

	default:
		// Neither side exists: the compensation already ran to completion.
		if err := s.intents.MarkStatus(ctx, nil, intent.ID, domain.IntentStatusCompensated); err != nil {
			return err
		}
		report.Compensated++
	}
	return nil
}

func (s *reconcileService) lookupVertex(ctx context.Context, intent *domain.GraphWriteIntent) (string, error) {
	switch intent.Kind {
	case domain.IntentKindInstitution:
		inst, err := s.insts.GetByIdentifier(ctx, intent.StandardizedName)
		if err != nil || inst == nil {
			return "", err
		}
		return inst.Guid, nil
	default:
		attr, err := s.attrs.GetByIdentifier(ctx, intent.StandardizedName)
		if err != nil || attr == nil {
			return "", err
		}
		return attr.Guid, nil
	}
}

func (s *reconcileService) deleteVertex(ctx context.Context, kind, guid string) error {
	if kind == domain.IntentKindInstitution {
		return s.insts.DeleteWithEdges(ctx, guid)
	}
	return s.attrs.DeleteWithEdges(ctx, guid)
}
