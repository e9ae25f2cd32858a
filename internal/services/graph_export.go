package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strings"
	"time"

	"github.com/LeshegoT/the-hive-backend/internal/data/graph"
	"github.com/LeshegoT/the-hive-backend/internal/platform/gcs"
	"github.com/LeshegoT/the-hive-backend/internal/platform/logger"
)

// GraphExportService snapshots the ratified taxonomy to object storage as
// CSV, one file for attributes (with skill paths) and one for institution
// offerings.
type GraphExportService interface {
	Export(ctx context.Context) (ExportResult, error)
}

type ExportResult struct {
	AttributesKey   string `json:"attributes_key"`
	InstitutionsKey string `json:"institutions_key"`
	AttributeCount  int    `json:"attribute_count"`
	OfferingCount   int    `json:"offering_count"`
}

type graphExportService struct {
	log    *logger.Logger
	bucket gcs.BucketService

	attrs graph.AttributeStore
	insts graph.InstitutionStore
}

func NewGraphExportService(
	baseLog *logger.Logger,
	bucket gcs.BucketService,
	attrs graph.AttributeStore,
	insts graph.InstitutionStore,
) GraphExportService {
	return &graphExportService{
		log:    baseLog.With("service", "GraphExportService"),
		bucket: bucket,
		attrs:  attrs,
		insts:  insts,
	}
}

func (s *graphExportService) Export(ctx context.Context) (ExportResult, error) {
	stamp := time.Now().UTC().Format("2006-01-02T15-04-05")
	result := ExportResult{
		AttributesKey:   fmt.Sprintf("exports/%s/attributes.csv", stamp),
		InstitutionsKey: fmt.Sprintf("exports/%s/institution-offerings.csv", stamp),
	}

	attrCount, err := s.exportAttributes(ctx, result.AttributesKey)
	if err != nil {
		return result, fmt.Errorf("export attributes: %w", err)
	}
	result.AttributeCount = attrCount

	offerCount, err := s.exportOfferings(ctx, result.InstitutionsKey)
	if err != nil {
		return result, fmt.Errorf("export institution offerings: %w", err)
	}
	result.OfferingCount = offerCount

	s.log.Info("taxonomy exported",
		"attributes", attrCount, "offerings", offerCount, "prefix", "exports/"+stamp)
	return result, nil
}

func (s *graphExportService) exportAttributes(ctx context.Context, key string) (int, error) {
	attrs, err := s.attrs.ListRatified(ctx)
	if err != nil {
		return 0, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"guid", "standardized_name", "name", "attribute_type", "skill_path"}); err != nil {
		return 0, err
	}
	for _, a := range attrs {
		path, err := s.attrs.SkillPath(ctx, a.Guid)
		if err != nil {
			return 0, err
		}
		names := make([]string, 0, len(path))
		for _, p := range path {
			names = append(names, p.Name)
		}
		if err := w.Write([]string{
			a.Guid, a.StandardizedName, a.Name, a.AttributeType, strings.Join(names, " > "),
		}); err != nil {
			return 0, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return 0, err
	}
	if err := s.bucket.Upload(ctx, key, &buf); err != nil {
		return 0, err
	}
	return len(attrs), nil
}

func (s *graphExportService) exportOfferings(ctx context.Context, key string) (int, error) {
	insts, err := s.insts.List(ctx)
	if err != nil {
		return 0, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"institution", "institution_type", "attribute", "offering_ratified"}); err != nil {
		return 0, err
	}
	count := 0
	for _, inst := range insts {
		for _, o := range inst.Offers {
			ratified := "true"
			if o.NeedsRatification {
				ratified = "false"
			}
			if err := w.Write([]string{inst.Name, inst.InstitutionType, o.Name, ratified}); err != nil {
				return 0, err
			}
			count++
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return 0, err
	}
	if err := s.bucket.Upload(ctx, key, &buf); err != nil {
		return 0, err
	}
	return count, nil
}
