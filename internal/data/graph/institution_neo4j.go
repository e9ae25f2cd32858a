package graph

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/LeshegoT/the-hive-backend/internal/domain"
	"github.com/LeshegoT/the-hive-backend/internal/platform/logger"
	"github.com/LeshegoT/the-hive-backend/internal/platform/neo4jdb"
)

// stagingInstitution is the quarantine parent for unratified institutions.
const stagingInstitution = "new-institution"

type neo4jInstitutionStore struct {
	client *neo4jdb.Client
	log    *logger.Logger
}

func NewInstitutionStore(client *neo4jdb.Client, baseLog *logger.Logger) InstitutionStore {
	return &neo4jInstitutionStore{client: client, log: baseLog.With("store", "InstitutionStore")}
}

func (s *neo4jInstitutionStore) readSession(ctx context.Context) neo4j.SessionWithContext {
	return s.client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: s.client.Database,
	})
}

func (s *neo4jInstitutionStore) writeSession(ctx context.Context) neo4j.SessionWithContext {
	return s.client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: s.client.Database,
	})
}

// institutionProjection derives type from the is-a tag edge, ratification
// from the staging edge, and offerings from reverse available-at edges.
const institutionProjection = `
OPTIONAL MATCH (i)-[:IS_A]->(st:Staging {identifier: '` + stagingInstitution + `'})
OPTIONAL MATCH (i)-[:IS_A]->(t:Tag)
OPTIONAL MATCH (att:Attribute)-[o:AVAILABLE_AT]->(i)
RETURN i.guid AS guid,
       i.identifier AS identifier,
       i.name AS name,
       st IS NOT NULL AS needsRatification,
       coalesce(t.name, '') AS institutionType,
       collect(CASE WHEN att IS NULL THEN NULL ELSE {
           attributeGuid: att.guid,
           identifier: att.identifier,
           name: att.name,
           needsRatification: coalesce(o.needsRatification, false)
       } END) AS offers
`

func institutionFromRecord(rec *neo4j.Record) domain.Institution {
	vals := rec.AsMap()
	inst := domain.Institution{
		Guid:              asString(vals["guid"]),
		StandardizedName:  asString(vals["identifier"]),
		Name:              asString(vals["name"]),
		InstitutionType:   asString(vals["institutionType"]),
		NeedsRatification: asBool(vals["needsRatification"]),
	}
	if raw, ok := vals["offers"].([]any); ok {
		for _, ro := range raw {
			m, ok := ro.(map[string]any)
			if !ok || asString(m["attributeGuid"]) == "" {
				continue
			}
			inst.Offers = append(inst.Offers, domain.Offering{
				AttributeGuid:     asString(m["attributeGuid"]),
				StandardizedName:  asString(m["identifier"]),
				Name:              asString(m["name"]),
				NeedsRatification: asBool(m["needsRatification"]),
			})
		}
	}
	return inst
}

func (s *neo4jInstitutionStore) Types(ctx context.Context) ([]string, error) {
	session := s.readSession(ctx)
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (t:Tag)
RETURN t.name AS name
ORDER BY name
`, nil)
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		types := make([]string, 0, len(records))
		for _, rec := range records {
			if name := asString(rec.AsMap()["name"]); name != "" {
				types = append(types, name)
			}
		}
		return types, nil
	})
	if err != nil {
		return nil, err
	}
	return out.([]string), nil
}

func (s *neo4jInstitutionStore) AddType(ctx context.Context, name string) (bool, error) {
	session := s.writeSession(ctx)
	defer session.Close(ctx)

	guid := uuid.NewString()
	out, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MERGE (t:Tag {name: $name})
ON CREATE SET t.guid = $guid
RETURN t.guid = $guid AS created
`, map[string]any{"name": name, "guid": guid})
		if err != nil {
			return nil, err
		}
		rec, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		return asBool(rec.AsMap()["created"]), nil
	})
	if err != nil {
		return false, err
	}
	return out.(bool), nil
}

func (s *neo4jInstitutionStore) CreateStaged(ctx context.Context, guid, identifier, name, institutionType string) error {
	session := s.writeSession(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MERGE (st:Staging {identifier: $staging})
CREATE (i:Institution {guid: $guid, identifier: $identifier, name: $name, createdAt: $now})
MERGE (i)-[:IS_A]->(st)
WITH i
MATCH (t:Tag {name: $institutionType})
MERGE (i)-[:IS_A]->(t)
`, map[string]any{
			"staging":         stagingInstitution,
			"guid":            guid,
			"identifier":      identifier,
			"name":            name,
			"institutionType": institutionType,
			"now":             time.Now().UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return nil, err
		}
		_, err = res.Consume(ctx)
		return nil, err
	})
	return err
}

func (s *neo4jInstitutionStore) getOne(ctx context.Context, match string, params map[string]any) (*domain.Institution, error) {
	session := s.readSession(ctx)
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, match+institutionProjection, params)
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			return nil, nil
		}
		inst := institutionFromRecord(records[0])
		return &inst, nil
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, nil
	}
	return out.(*domain.Institution), nil
}

func (s *neo4jInstitutionStore) GetByIdentifier(ctx context.Context, identifier string) (*domain.Institution, error) {
	if identifier == "" {
		return nil, nil
	}
	return s.getOne(ctx, `MATCH (i:Institution {identifier: $identifier})`+"\n", map[string]any{"identifier": identifier})
}

func (s *neo4jInstitutionStore) GetByGuid(ctx context.Context, guid string) (*domain.Institution, error) {
	if guid == "" {
		return nil, nil
	}
	return s.getOne(ctx, `MATCH (i:Institution {guid: $guid})`+"\n", map[string]any{"guid": guid})
}

func (s *neo4jInstitutionStore) List(ctx context.Context) ([]domain.Institution, error) {
	session := s.readSession(ctx)
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (i:Institution)
WITH i
ORDER BY i.name ASC
`+institutionProjection, nil)
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		items := make([]domain.Institution, 0, len(records))
		for _, rec := range records {
			items = append(items, institutionFromRecord(rec))
		}
		return items, nil
	})
	if err != nil {
		return nil, err
	}
	return out.([]domain.Institution), nil
}

func (s *neo4jInstitutionStore) UpdateIdentity(ctx context.Context, guid, identifier, name string) error {
	session := s.writeSession(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (i:Institution {guid: $guid})
SET i.identifier = $identifier, i.name = $name
`, map[string]any{"guid": guid, "identifier": identifier, "name": name})
		if err != nil {
			return nil, err
		}
		_, err = res.Consume(ctx)
		return nil, err
	})
	return err
}

func (s *neo4jInstitutionStore) SetType(ctx context.Context, guid, institutionType string) error {
	session := s.writeSession(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (i:Institution {guid: $guid})
MATCH (t:Tag {name: $institutionType})
OPTIONAL MATCH (i)-[r:IS_A]->(:Tag)
DELETE r
MERGE (i)-[:IS_A]->(t)
`, map[string]any{"guid": guid, "institutionType": institutionType})
		if err != nil {
			return nil, err
		}
		_, err = res.Consume(ctx)
		return nil, err
	})
	return err
}

// Ratify drops the staging edge only; the type edge stays.
func (s *neo4jInstitutionStore) Ratify(ctx context.Context, guid string) error {
	session := s.writeSession(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (i:Institution {guid: $guid})-[r:IS_A]->(:Staging)
DELETE r
`, map[string]any{"guid": guid})
		if err != nil {
			return nil, err
		}
		_, err = res.Consume(ctx)
		return nil, err
	})
	return err
}

func (s *neo4jInstitutionStore) DeleteWithEdges(ctx context.Context, guid string) error {
	if guid == "" {
		return nil
	}
	session := s.writeSession(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (i:Institution {guid: $guid})
DETACH DELETE i
`, map[string]any{"guid": guid})
		if err != nil {
			return nil, err
		}
		_, err = res.Consume(ctx)
		return nil, err
	})
	return err
}

func (s *neo4jInstitutionStore) EnsureOffering(ctx context.Context, attributeGuid, institutionGuid string, needsRatification bool) (bool, error) {
	session := s.writeSession(ctx)
	defer session.Close(ctx)

	edgeGuid := uuid.NewString()
	out, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (a:Attribute {guid: $attributeGuid})
MATCH (i:Institution {guid: $institutionGuid})
MERGE (a)-[o:AVAILABLE_AT]->(i)
ON CREATE SET o.guid = $edgeGuid, o.needsRatification = $needsRatification
RETURN o.guid = $edgeGuid AS created
`, map[string]any{
			"attributeGuid":     attributeGuid,
			"institutionGuid":   institutionGuid,
			"edgeGuid":          edgeGuid,
			"needsRatification": needsRatification,
		})
		if err != nil {
			return nil, err
		}
		rec, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		return asBool(rec.AsMap()["created"]), nil
	})
	if err != nil {
		return false, err
	}
	return out.(bool), nil
}

func (s *neo4jInstitutionStore) RatifyOffering(ctx context.Context, attributeGuid, institutionGuid string) error {
	session := s.writeSession(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (:Attribute {guid: $attributeGuid})-[o:AVAILABLE_AT]->(:Institution {guid: $institutionGuid})
SET o.needsRatification = false
`, map[string]any{"attributeGuid": attributeGuid, "institutionGuid": institutionGuid})
		if err != nil {
			return nil, err
		}
		_, err = res.Consume(ctx)
		return nil, err
	})
	return err
}

func (s *neo4jInstitutionStore) Offerings(ctx context.Context, institutionGuid string) ([]domain.Offering, error) {
	session := s.readSession(ctx)
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (a:Attribute)-[o:AVAILABLE_AT]->(:Institution {guid: $guid})
RETURN a.guid AS attributeGuid, a.identifier AS identifier, a.name AS name,
       coalesce(o.needsRatification, false) AS needsRatification
ORDER BY name
`, map[string]any{"guid": institutionGuid})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		offers := make([]domain.Offering, 0, len(records))
		for _, rec := range records {
			vals := rec.AsMap()
			offers = append(offers, domain.Offering{
				AttributeGuid:     asString(vals["attributeGuid"]),
				StandardizedName:  asString(vals["identifier"]),
				Name:              asString(vals["name"]),
				NeedsRatification: asBool(vals["needsRatification"]),
			})
		}
		return offers, nil
	})
	if err != nil {
		return nil, err
	}
	return out.([]domain.Offering), nil
}

func (s *neo4jInstitutionStore) InstitutionsOffering(ctx context.Context, attributeGuid string) ([]domain.Institution, error) {
	session := s.readSession(ctx)
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (:Attribute {guid: $attributeGuid})-[:AVAILABLE_AT]->(i:Institution)
WITH DISTINCT i
ORDER BY i.name ASC
`+institutionProjection, map[string]any{"attributeGuid": attributeGuid})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		items := make([]domain.Institution, 0, len(records))
		for _, rec := range records {
			items = append(items, institutionFromRecord(rec))
		}
		return items, nil
	})
	if err != nil {
		return nil, err
	}
	return out.([]domain.Institution), nil
}

func (s *neo4jInstitutionStore) RemoveAllOfferings(ctx context.Context, institutionGuid string) error {
	session := s.writeSession(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (:Attribute)-[o:AVAILABLE_AT]->(:Institution {guid: $guid})
DELETE o
`, map[string]any{"guid": institutionGuid})
		if err != nil {
			return nil, err
		}
		_, err = res.Consume(ctx)
		return nil, err
	})
	return err
}

func (s *neo4jInstitutionStore) FilterByIdentifiers(ctx context.Context, identifiers []string, ratified *bool, institutionType string) ([]domain.Institution, error) {
	// A nil slice means no identifier filter; an empty non-nil one means a
	// text prefilter matched nothing.
	if identifiers != nil && len(identifiers) == 0 {
		return []domain.Institution{}, nil
	}
	session := s.readSession(ctx)
	defer session.Close(ctx)

	var wantStaged any
	if ratified != nil {
		wantStaged = !*ratified
	}
	var identifiersParam any
	if identifiers != nil {
		identifiersParam = identifiers
	}

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (i:Institution)
WHERE ($identifiers IS NULL OR i.identifier IN $identifiers)
  AND ($wantStaged IS NULL OR EXISTS { (i)-[:IS_A]->(:Staging) } = $wantStaged)
  AND ($institutionType = '' OR EXISTS { (i)-[:IS_A]->(:Tag {name: $institutionType}) })
WITH i
ORDER BY i.name ASC
`+institutionProjection, map[string]any{
			"identifiers":     identifiersParam,
			"wantStaged":      wantStaged,
			"institutionType": institutionType,
		})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		items := make([]domain.Institution, 0, len(records))
		for _, rec := range records {
			items = append(items, institutionFromRecord(rec))
		}
		return items, nil
	})
	if err != nil {
		return nil, err
	}
	return out.([]domain.Institution), nil
}
