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

type neo4jUserAttributeStore struct {
	client *neo4jdb.Client
	log    *logger.Logger
}

func NewUserAttributeStore(client *neo4jdb.Client, baseLog *logger.Logger) UserAttributeStore {
	return &neo4jUserAttributeStore{client: client, log: baseLog.With("store", "UserAttributeStore")}
}

func (s *neo4jUserAttributeStore) readSession(ctx context.Context) neo4j.SessionWithContext {
	return s.client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: s.client.Database,
	})
}

func (s *neo4jUserAttributeStore) writeSession(ctx context.Context) neo4j.SessionWithContext {
	return s.client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: s.client.Database,
	})
}

// reservedEdgeProps are has-edge properties with dedicated fields on the
// projection; everything else on the edge is a required-field value.
var reservedEdgeProps = map[string]bool{
	"guid":             true,
	"proof":            true,
	"uploadVerifiedBy": true,
	"obtainedFrom":     true,
	"coreTechAddedBy":  true,
	"coreTechAddedOn":  true,
}

func userAttributeFromValues(vals map[string]any) domain.UserAttribute {
	ua := domain.UserAttribute{
		PersonGuid:    asString(vals["personGuid"]),
		AttributeGuid: asString(vals["attributeGuid"]),
	}
	props, _ := vals["props"].(map[string]any)
	ua.EdgeGuid = asString(props["guid"])
	ua.Proof = asString(props["proof"])
	ua.UploadVerifiedBy = asString(props["uploadVerifiedBy"])
	ua.ObtainedFrom = asString(props["obtainedFrom"])
	ua.CoreTechAddedBy = asString(props["coreTechAddedBy"])
	if raw := asString(props["coreTechAddedOn"]); raw != "" {
		if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			ua.CoreTechAddedOn = &ts
		}
	}
	for k, v := range props {
		if reservedEdgeProps[k] {
			continue
		}
		if ua.Fields == nil {
			ua.Fields = map[string]any{}
		}
		ua.Fields[k] = v
	}
	return ua
}

func edgePropsFrom(ua domain.UserAttribute) map[string]any {
	props := map[string]any{}
	for k, v := range ua.Fields {
		if !reservedEdgeProps[k] {
			props[k] = v
		}
	}
	if ua.Proof != "" {
		props["proof"] = ua.Proof
	}
	if ua.UploadVerifiedBy != "" {
		props["uploadVerifiedBy"] = ua.UploadVerifiedBy
	}
	if ua.ObtainedFrom != "" {
		props["obtainedFrom"] = ua.ObtainedFrom
	}
	if ua.CoreTechAddedBy != "" {
		props["coreTechAddedBy"] = ua.CoreTechAddedBy
	}
	if ua.CoreTechAddedOn != nil {
		props["coreTechAddedOn"] = ua.CoreTechAddedOn.UTC().Format(time.RFC3339Nano)
	}
	return props
}

func (s *neo4jUserAttributeStore) EnsurePerson(ctx context.Context, personGuid string) error {
	session := s.writeSession(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MERGE (p:Person {guid: $guid})
`, map[string]any{"guid": personGuid})
		if err != nil {
			return nil, err
		}
		_, err = res.Consume(ctx)
		return nil, err
	})
	return err
}

func (s *neo4jUserAttributeStore) collectEdges(ctx context.Context, query string, params map[string]any) ([]domain.UserAttribute, error) {
	session := s.readSession(ctx)
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		edges := make([]domain.UserAttribute, 0, len(records))
		for _, rec := range records {
			edges = append(edges, userAttributeFromValues(rec.AsMap()))
		}
		return edges, nil
	})
	if err != nil {
		return nil, err
	}
	return out.([]domain.UserAttribute), nil
}

func (s *neo4jUserAttributeStore) Edges(ctx context.Context, personGuid, attributeGuid string) ([]domain.UserAttribute, error) {
	return s.collectEdges(ctx, `
MATCH (p:Person {guid: $personGuid})-[r:HAS]->(a:Attribute {guid: $attributeGuid})
RETURN p.guid AS personGuid, a.guid AS attributeGuid, properties(r) AS props
`, map[string]any{"personGuid": personGuid, "attributeGuid": attributeGuid})
}

func (s *neo4jUserAttributeStore) GetEdge(ctx context.Context, edgeGuid string) (*domain.UserAttribute, error) {
	edges, err := s.collectEdges(ctx, `
MATCH (p:Person)-[r:HAS {guid: $edgeGuid}]->(a:Attribute)
RETURN p.guid AS personGuid, a.guid AS attributeGuid, properties(r) AS props
`, map[string]any{"edgeGuid": edgeGuid})
	if err != nil {
		return nil, err
	}
	if len(edges) == 0 {
		return nil, nil
	}
	return &edges[0], nil
}

func (s *neo4jUserAttributeStore) ListByPerson(ctx context.Context, personGuid string) ([]domain.UserAttribute, error) {
	return s.collectEdges(ctx, `
MATCH (p:Person {guid: $personGuid})-[r:HAS]->(a:Attribute)
RETURN p.guid AS personGuid, a.guid AS attributeGuid, properties(r) AS props
ORDER BY a.name ASC
`, map[string]any{"personGuid": personGuid})
}

func (s *neo4jUserAttributeStore) Add(ctx context.Context, ua domain.UserAttribute) (string, error) {
	session := s.writeSession(ctx)
	defer session.Close(ctx)

	edgeGuid := uuid.NewString()
	props := edgePropsFrom(ua)
	props["guid"] = edgeGuid

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (p:Person {guid: $personGuid})
MATCH (a:Attribute {guid: $attributeGuid})
CREATE (p)-[r:HAS]->(a)
SET r = $props
`, map[string]any{
			"personGuid":    ua.PersonGuid,
			"attributeGuid": ua.AttributeGuid,
			"props":         props,
		})
		if err != nil {
			return nil, err
		}
		_, err = res.Consume(ctx)
		return nil, err
	})
	if err != nil {
		return "", err
	}
	return edgeGuid, nil
}

func (s *neo4jUserAttributeStore) UpdateProps(ctx context.Context, edgeGuid string, props map[string]any) error {
	if len(props) == 0 {
		return nil
	}
	session := s.writeSession(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (:Person)-[r:HAS {guid: $edgeGuid}]->(:Attribute)
SET r += $props
`, map[string]any{"edgeGuid": edgeGuid, "props": props})
		if err != nil {
			return nil, err
		}
		_, err = res.Consume(ctx)
		return nil, err
	})
	return err
}

func (s *neo4jUserAttributeStore) Remove(ctx context.Context, edgeGuid string) error {
	session := s.writeSession(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (:Person)-[r:HAS {guid: $edgeGuid}]->(:Attribute)
DELETE r
`, map[string]any{"edgeGuid": edgeGuid})
		if err != nil {
			return nil, err
		}
		_, err = res.Consume(ctx)
		return nil, err
	})
	return err
}

func (s *neo4jUserAttributeStore) Move(ctx context.Context, fromAttributeGuid, toAttributeGuid string, dedup bool) (int, error) {
	session := s.writeSession(ctx)
	defer session.Close(ctx)

	out, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (p:Person)-[r:HAS]->(:Attribute {guid: $fromGuid})
MATCH (tgt:Attribute {guid: $toGuid})
WITH p, r, tgt,
     CASE WHEN $dedup AND EXISTS { (p)-[:HAS]->(tgt) } THEN false ELSE true END AS copy
FOREACH (_ IN CASE WHEN copy THEN [1] ELSE [] END |
    CREATE (p)-[nr:HAS]->(tgt)
    SET nr = properties(r)
)
DELETE r
RETURN sum(CASE WHEN copy THEN 1 ELSE 0 END) AS moved
`, map[string]any{"fromGuid": fromAttributeGuid, "toGuid": toAttributeGuid, "dedup": dedup})
		if err != nil {
			return nil, err
		}
		rec, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		return asInt(rec.AsMap()["moved"]), nil
	})
	if err != nil {
		return 0, err
	}
	return out.(int), nil
}

func (s *neo4jUserAttributeStore) RemoveByObtainedFrom(ctx context.Context, institutionGuid string) error {
	session := s.writeSession(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (:Person)-[r:HAS]->(:Attribute)
WHERE r.obtainedFrom = $institutionGuid
DELETE r
`, map[string]any{"institutionGuid": institutionGuid})
		if err != nil {
			return nil, err
		}
		_, err = res.Consume(ctx)
		return nil, err
	})
	return err
}

func (s *neo4jUserAttributeStore) CoreTech(ctx context.Context, personGuid string) ([]domain.UserAttribute, error) {
	return s.collectEdges(ctx, `
MATCH (p:Person {guid: $personGuid})-[r:HAS]->(a:Attribute)
WHERE r.coreTechAddedOn IS NOT NULL
RETURN p.guid AS personGuid, a.guid AS attributeGuid, properties(r) AS props
ORDER BY r.coreTechAddedOn ASC
`, map[string]any{"personGuid": personGuid})
}

func (s *neo4jUserAttributeStore) ClearCoreTech(ctx context.Context, personGuid string) error {
	session := s.writeSession(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (:Person {guid: $personGuid})-[r:HAS]->(:Attribute)
REMOVE r.coreTechAddedBy, r.coreTechAddedOn
`, map[string]any{"personGuid": personGuid})
		if err != nil {
			return nil, err
		}
		_, err = res.Consume(ctx)
		return nil, err
	})
	return err
}

func (s *neo4jUserAttributeStore) SetCoreTech(ctx context.Context, edgeGuid, addedBy string) error {
	session := s.writeSession(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (:Person)-[r:HAS {guid: $edgeGuid}]->(:Attribute)
SET r.coreTechAddedBy = $addedBy, r.coreTechAddedOn = $now
`, map[string]any{
			"edgeGuid": edgeGuid,
			"addedBy":  addedBy,
			"now":      time.Now().UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return nil, err
		}
		_, err = res.Consume(ctx)
		return nil, err
	})
	return err
}
