package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/LeshegoT/the-hive-backend/internal/domain"
	"github.com/LeshegoT/the-hive-backend/internal/platform/logger"
	"github.com/LeshegoT/the-hive-backend/internal/platform/neo4jdb"
)

type neo4jAttributeStore struct {
	client *neo4jdb.Client
	log    *logger.Logger
}

func NewAttributeStore(client *neo4jdb.Client, baseLog *logger.Logger) AttributeStore {
	return &neo4jAttributeStore{client: client, log: baseLog.With("store", "AttributeStore")}
}

func (s *neo4jAttributeStore) readSession(ctx context.Context) neo4j.SessionWithContext {
	return s.client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: s.client.Database,
	})
}

func (s *neo4jAttributeStore) writeSession(ctx context.Context) neo4j.SessionWithContext {
	return s.client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: s.client.Database,
	})
}

// maxIsADepth bounds every is-a traversal. Ratified attributes sit a handful
// of levels below their top-level tag; a chain deeper than this is truncated
// and its attributes resolve with no top-level ancestor.
const maxIsADepth = 8

// attributeProjection returns an attribute with its derived state: needs
// ratification when the is-a target is a staging vertex, type from the
// top-level ancestor (or the staging vertex while quarantined), required
// fields from the top-level tag's has-field edges.
var attributeProjection = fmt.Sprintf(`
OPTIONAL MATCH (a)-[:IS_A]->(s:Staging)
OPTIONAL MATCH (a)-[:IS_A*1..%d]->(t:TopLevelTag)
OPTIONAL MATCH (a)-[:HAS_META_DATA]->(m:MetaDataTag)
WITH a, s, t, collect(DISTINCT m.name) AS metaTags
OPTIONAL MATCH (tl:TopLevelTag {identifier: coalesce(t.identifier, s.attributeType, '')})-[:HAS_FIELD]->(f:Field)
RETURN a.guid AS guid,
       a.identifier AS identifier,
       a.name AS name,
       s IS NOT NULL AS needsRatification,
       coalesce(t.identifier, s.attributeType, '') AS attributeType,
       metaTags AS metaDataTags,
       collect(DISTINCT f.name) AS requiredFields
`, maxIsADepth)

func attributeFromRecord(rec *neo4j.Record) domain.Attribute {
	vals := rec.AsMap()
	return domain.Attribute{
		Guid:              asString(vals["guid"]),
		StandardizedName:  asString(vals["identifier"]),
		Name:              asString(vals["name"]),
		AttributeType:     asString(vals["attributeType"]),
		NeedsRatification: asBool(vals["needsRatification"]),
		MetaDataTags:      asStringSlice(vals["metaDataTags"]),
		RequiredFields:    asStringSlice(vals["requiredFields"]),
	}
}

func (s *neo4jAttributeStore) TopLevelTags(ctx context.Context) ([]domain.TopLevelTag, error) {
	session := s.readSession(ctx)
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (t:TopLevelTag)
RETURN t.guid AS guid, t.identifier AS name
ORDER BY name
`, nil)
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		tags := make([]domain.TopLevelTag, 0, len(records))
		for _, rec := range records {
			vals := rec.AsMap()
			tags = append(tags, domain.TopLevelTag{
				Guid: asString(vals["guid"]),
				Name: asString(vals["name"]),
			})
		}
		return tags, nil
	})
	if err != nil {
		return nil, err
	}
	return out.([]domain.TopLevelTag), nil
}

func (s *neo4jAttributeStore) getOne(ctx context.Context, match string, params map[string]any) (*domain.Attribute, error) {
	session := s.readSession(ctx)
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, match+attributeProjection, params)
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
		attr := attributeFromRecord(records[0])
		return &attr, nil
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, nil
	}
	return out.(*domain.Attribute), nil
}

func (s *neo4jAttributeStore) GetByIdentifier(ctx context.Context, identifier string) (*domain.Attribute, error) {
	if identifier == "" {
		return nil, nil
	}
	return s.getOne(ctx, `MATCH (a:Attribute {identifier: $identifier})`+"\n", map[string]any{"identifier": identifier})
}

func (s *neo4jAttributeStore) GetByGuid(ctx context.Context, guid string) (*domain.Attribute, error) {
	if guid == "" {
		return nil, nil
	}
	return s.getOne(ctx, `MATCH (a:Attribute {guid: $guid})`+"\n", map[string]any{"guid": guid})
}

func (s *neo4jAttributeStore) ResolveByIdentifiers(ctx context.Context, identifiers []string) ([]domain.Attribute, error) {
	if len(identifiers) == 0 {
		return []domain.Attribute{}, nil
	}
	session := s.readSession(ctx)
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (a:Attribute)
WHERE a.identifier IN $identifiers
WITH a
`+attributeProjection, map[string]any{"identifiers": identifiers})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		attrs := make([]domain.Attribute, 0, len(records))
		for _, rec := range records {
			attrs = append(attrs, attributeFromRecord(rec))
		}
		return attrs, nil
	})
	if err != nil {
		return nil, err
	}
	resolved := out.([]domain.Attribute)

	// Preserve the caller's ordering; drop identifiers with no vertex.
	byIdentifier := make(map[string]domain.Attribute, len(resolved))
	for _, a := range resolved {
		byIdentifier[a.StandardizedName] = a
	}
	ordered := make([]domain.Attribute, 0, len(resolved))
	for _, id := range identifiers {
		if a, ok := byIdentifier[id]; ok {
			ordered = append(ordered, a)
		}
	}
	return ordered, nil
}

func (s *neo4jAttributeStore) CreateStaged(ctx context.Context, guid, identifier, name, attributeType string) error {
	session := s.writeSession(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MERGE (s:Staging {identifier: $staging})
ON CREATE SET s.attributeType = $attributeType
CREATE (a:Attribute {guid: $guid, identifier: $identifier, name: $name, createdAt: $now})
MERGE (a)-[:IS_A]->(s)
`, map[string]any{
			"staging":       "new-" + attributeType,
			"attributeType": attributeType,
			"guid":          guid,
			"identifier":    identifier,
			"name":          name,
			"now":           time.Now().UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return nil, err
		}
		_, err = res.Consume(ctx)
		return nil, err
	})
	return err
}

func (s *neo4jAttributeStore) CreateVertex(ctx context.Context, guid, identifier, name string) error {
	session := s.writeSession(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
CREATE (a:Attribute {guid: $guid, identifier: $identifier, name: $name, createdAt: $now})
`, map[string]any{
			"guid":       guid,
			"identifier": identifier,
			"name":       name,
			"now":        time.Now().UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return nil, err
		}
		_, err = res.Consume(ctx)
		return nil, err
	})
	return err
}

func (s *neo4jAttributeStore) DeleteWithEdges(ctx context.Context, guid string) error {
	if guid == "" {
		return nil
	}
	session := s.writeSession(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (a:Attribute {guid: $guid})
DETACH DELETE a
`, map[string]any{"guid": guid})
		if err != nil {
			return nil, err
		}
		_, err = res.Consume(ctx)
		return nil, err
	})
	return err
}

// ConnectToTopLevelTag ratifies the attribute: the staging is-a edge is
// dropped and the vertex is attached under the real top-level tag.
func (s *neo4jAttributeStore) ConnectToTopLevelTag(ctx context.Context, guid, attributeType string) error {
	session := s.writeSession(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (a:Attribute {guid: $guid})
MATCH (t:TopLevelTag {identifier: $attributeType})
OPTIONAL MATCH (a)-[r:IS_A]->(:Staging)
DELETE r
MERGE (a)-[:IS_A]->(t)
`, map[string]any{"guid": guid, "attributeType": attributeType})
		if err != nil {
			return nil, err
		}
		_, err = res.Consume(ctx)
		return nil, err
	})
	return err
}

func (s *neo4jAttributeStore) MoveUnderParent(ctx context.Context, guid, parentGuid string) error {
	session := s.writeSession(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (a:Attribute {guid: $guid})
MATCH (p:Attribute {guid: $parentGuid})
OPTIONAL MATCH (a)-[r:IS_A]->()
DELETE r
MERGE (a)-[:IS_A]->(p)
`, map[string]any{"guid": guid, "parentGuid": parentGuid})
		if err != nil {
			return nil, err
		}
		_, err = res.Consume(ctx)
		return nil, err
	})
	return err
}

func (s *neo4jAttributeStore) SkillPath(ctx context.Context, guid string) ([]domain.SkillPathEntry, error) {
	session := s.readSession(ctx)
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, fmt.Sprintf(`
MATCH (a:Attribute {guid: $guid})
MATCH path = (a)-[:IS_A*1..%d]->(t:TopLevelTag)
WITH nodes(path) AS ns
UNWIND range(1, size(ns)-1) AS i
WITH ns[i] AS n, i
RETURN n.guid AS guid,
       coalesce(n.name, n.identifier) AS name,
       'TopLevelTag' IN labels(n) AS topLevel
ORDER BY i
`, maxIsADepth), map[string]any{"guid": guid})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		entries := make([]domain.SkillPathEntry, 0, len(records))
		for _, rec := range records {
			vals := rec.AsMap()
			entries = append(entries, domain.SkillPathEntry{
				Guid:     asString(vals["guid"]),
				Name:     asString(vals["name"]),
				TopLevel: asBool(vals["topLevel"]),
			})
		}
		return entries, nil
	})
	if err != nil {
		return nil, err
	}
	return out.([]domain.SkillPathEntry), nil
}

func (s *neo4jAttributeStore) RelatedTags(ctx context.Context, guid string) ([]domain.RelatedTag, error) {
	session := s.readSession(ctx)
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (n {guid: $guid})-[:IS_RELATED_TO]-(r)
WHERE r.guid <> $guid
RETURN DISTINCT r.guid AS guid, coalesce(r.name, r.identifier) AS name
ORDER BY name
`, map[string]any{"guid": guid})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		tags := make([]domain.RelatedTag, 0, len(records))
		for _, rec := range records {
			vals := rec.AsMap()
			tags = append(tags, domain.RelatedTag{
				Guid: asString(vals["guid"]),
				Name: asString(vals["name"]),
			})
		}
		return tags, nil
	})
	if err != nil {
		return nil, err
	}
	return out.([]domain.RelatedTag), nil
}

func (s *neo4jAttributeStore) MetaDataTagsForType(ctx context.Context, attributeType string) ([]string, error) {
	session := s.readSession(ctx)
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (t:TopLevelTag {identifier: $attributeType})-[:HAS_META_DATA]->(m:MetaDataTag)
RETURN m.name AS name
ORDER BY name
`, map[string]any{"attributeType": attributeType})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		tags := make([]string, 0, len(records))
		for _, rec := range records {
			vals := rec.AsMap()
			if name := asString(vals["name"]); name != "" {
				tags = append(tags, name)
			}
		}
		return tags, nil
	})
	if err != nil {
		return nil, err
	}
	return out.([]string), nil
}

func (s *neo4jAttributeStore) AttachMetaDataTags(ctx context.Context, guid string, tags []string) error {
	if len(tags) == 0 {
		return nil
	}
	session := s.writeSession(ctx)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (a:Attribute {guid: $guid})
UNWIND $tags AS tag
MERGE (m:MetaDataTag {name: tag})
MERGE (a)-[:HAS_META_DATA]->(m)
`, map[string]any{"guid": guid, "tags": tags})
		if err != nil {
			return nil, err
		}
		_, err = res.Consume(ctx)
		return nil, err
	})
	return err
}

func (s *neo4jAttributeStore) OutgoingEdges(ctx context.Context, guid string) ([]domain.GraphEdge, error) {
	session := s.readSession(ctx)
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (a:Attribute {guid: $guid})-[r]->(n)
RETURN type(r) AS label, n.guid AS toGuid, properties(r) AS props
`, map[string]any{"guid": guid})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		edges := make([]domain.GraphEdge, 0, len(records))
		for _, rec := range records {
			vals := rec.AsMap()
			props, _ := vals["props"].(map[string]any)
			edges = append(edges, domain.GraphEdge{
				Label:      asString(vals["label"]),
				ToGuid:     asString(vals["toGuid"]),
				Properties: props,
			})
		}
		return edges, nil
	})
	if err != nil {
		return nil, err
	}
	return out.([]domain.GraphEdge), nil
}

func (s *neo4jAttributeStore) EnsureOutgoingEdge(ctx context.Context, fromGuid, toGuid, label string, props map[string]any) error {
	if err := validateEdgeLabel(label); err != nil {
		return err
	}
	if props == nil {
		props = map[string]any{}
	}
	session := s.writeSession(ctx)
	defer session.Close(ctx)

	query := fmt.Sprintf(`
MATCH (a {guid: $from})
MATCH (b {guid: $to})
MERGE (a)-[r:%s]->(b)
ON CREATE SET r += $props
`, label)
	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, map[string]any{"from": fromGuid, "to": toGuid, "props": props})
		if err != nil {
			return nil, err
		}
		_, err = res.Consume(ctx)
		return nil, err
	})
	return err
}

func (s *neo4jAttributeStore) Unratified(ctx context.Context, attributeType string, page domain.Page, identifiers []string) ([]domain.Attribute, int, error) {
	session := s.readSession(ctx)
	defer session.Close(ctx)

	var idents any
	if identifiers != nil {
		idents = identifiers
	}

	type queueResult struct {
		items []domain.Attribute
		total int
	}
	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		filter := `
MATCH (a:Attribute)-[:IS_A]->(st:Staging)
WHERE ($attributeType = '' OR st.attributeType = $attributeType)
  AND ($identifiers IS NULL OR a.identifier IN $identifiers)
`
		params := map[string]any{
			"attributeType": attributeType,
			"identifiers":   idents,
		}

		countRes, err := tx.Run(ctx, filter+`RETURN count(a) AS total`, params)
		if err != nil {
			return nil, err
		}
		countRec, err := countRes.Single(ctx)
		if err != nil {
			return nil, err
		}
		total := asInt(countRec.AsMap()["total"])

		from, to := page.Window(total)
		params["skip"] = from
		params["limit"] = to - from
		pageRes, err := tx.Run(ctx, filter+`
WITH a
ORDER BY a.name ASC
SKIP $skip LIMIT $limit
`+attributeProjection, params)
		if err != nil {
			return nil, err
		}
		records, err := pageRes.Collect(ctx)
		if err != nil {
			return nil, err
		}
		items := make([]domain.Attribute, 0, len(records))
		for _, rec := range records {
			items = append(items, attributeFromRecord(rec))
		}
		return queueResult{items: items, total: total}, nil
	})
	if err != nil {
		return nil, 0, err
	}
	res := out.(queueResult)
	return res.items, res.total, nil
}

func (s *neo4jAttributeStore) WithUnratifiedOfferings(ctx context.Context, page domain.Page, identifiers []string) ([]domain.AttributeWithInstitutions, int, error) {
	session := s.readSession(ctx)
	defer session.Close(ctx)

	var idents any
	if identifiers != nil {
		idents = identifiers
	}

	type queueResult struct {
		items []domain.AttributeWithInstitutions
		total int
	}
	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		filter := `
MATCH (a:Attribute)-[o:AVAILABLE_AT]->(i:Institution)
WHERE o.needsRatification = true
  AND ($identifiers IS NULL OR a.identifier IN $identifiers)
`
		params := map[string]any{"identifiers": idents}

		countRes, err := tx.Run(ctx, filter+`RETURN count(DISTINCT a) AS total`, params)
		if err != nil {
			return nil, err
		}
		countRec, err := countRes.Single(ctx)
		if err != nil {
			return nil, err
		}
		total := asInt(countRec.AsMap()["total"])

		from, to := page.Window(total)
		params["skip"] = from
		params["limit"] = to - from
		pageRes, err := tx.Run(ctx, filter+`
WITH a, collect({guid: i.guid, identifier: i.identifier, name: i.name}) AS insts
ORDER BY a.name ASC
SKIP $skip LIMIT $limit
RETURN a.guid AS guid, a.identifier AS identifier, a.name AS name, insts
`, params)
		if err != nil {
			return nil, err
		}
		records, err := pageRes.Collect(ctx)
		if err != nil {
			return nil, err
		}
		items := make([]domain.AttributeWithInstitutions, 0, len(records))
		for _, rec := range records {
			vals := rec.AsMap()
			item := domain.AttributeWithInstitutions{
				Attribute: domain.Attribute{
					Guid:              asString(vals["guid"]),
					StandardizedName:  asString(vals["identifier"]),
					Name:              asString(vals["name"]),
					NeedsRatification: false,
				},
			}
			if rawInsts, ok := vals["insts"].([]any); ok {
				for _, ri := range rawInsts {
					m, ok := ri.(map[string]any)
					if !ok || asString(m["guid"]) == "" {
						continue
					}
					item.Institutions = append(item.Institutions, domain.Institution{
						Guid:             asString(m["guid"]),
						StandardizedName: asString(m["identifier"]),
						Name:             asString(m["name"]),
					})
				}
			}
			items = append(items, item)
		}
		return queueResult{items: items, total: total}, nil
	})
	if err != nil {
		return nil, 0, err
	}
	res := out.(queueResult)
	return res.items, res.total, nil
}

func (s *neo4jAttributeStore) ListRatified(ctx context.Context) ([]domain.Attribute, error) {
	session := s.readSession(ctx)
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (a:Attribute)
WHERE NOT (a)-[:IS_A]->(:Staging)
WITH a
ORDER BY a.name ASC
`+attributeProjection, nil)
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		items := make([]domain.Attribute, 0, len(records))
		for _, rec := range records {
			items = append(items, attributeFromRecord(rec))
		}
		return items, nil
	})
	if err != nil {
		return nil, err
	}
	return out.([]domain.Attribute), nil
}
