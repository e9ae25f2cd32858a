package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/LeshegoT/the-hive-backend/internal/domain"
	"github.com/LeshegoT/the-hive-backend/internal/platform/logger"
)

func testLogger() *logger.Logger {
	l, _ := logger.New("dev")
	return l
}

// fakeGraph is an in-memory stand-in for all three graph stores, so tests
// observe cross-store effects (offerings, user edges) through one state.
type fakeGraph struct {
	attrs        map[string]*fakeAttr // by guid
	topLevelTags map[string]string    // identifier -> guid
	instTypes    []string
	insts        map[string]*fakeInst // by guid
	offerings    map[string]*fakeOffering
	persons      map[string]bool
	userEdges    map[string]*domain.UserAttribute
	metaByType   map[string][]string

	failCreateStaged bool
	failDelete       bool
}

type fakeAttr struct {
	guid, identifier, name string
	attrType               string
	staged                 bool
	parentGuid             string // empty while staged or bare
	metaTags               []string
	requiredFields         []string
	related                []string
	edges                  []domain.GraphEdge
}

type fakeInst struct {
	guid, identifier, name string
	instType               string
	staged                 bool
}

type fakeOffering struct {
	attrGuid, instGuid string
	needsRatification  bool
}

func newFakeGraph() *fakeGraph {
	return &fakeGraph{
		attrs:        map[string]*fakeAttr{},
		topLevelTags: map[string]string{},
		insts:        map[string]*fakeInst{},
		offerings:    map[string]*fakeOffering{},
		persons:      map[string]bool{},
		userEdges:    map[string]*domain.UserAttribute{},
		metaByType:   map[string][]string{},
	}
}

func (g *fakeGraph) addTopLevelTag(name string) string {
	guid := uuid.New().String()
	g.topLevelTags[name] = guid
	return guid
}

func (g *fakeGraph) offeringKey(attrGuid, instGuid string) string {
	return attrGuid + "|" + instGuid
}

func (g *fakeGraph) project(a *fakeAttr) domain.Attribute {
	return domain.Attribute{
		Guid:              a.guid,
		StandardizedName:  a.identifier,
		Name:              a.name,
		AttributeType:     a.attrType,
		NeedsRatification: a.staged,
		RequiredFields:    a.requiredFields,
		MetaDataTags:      a.metaTags,
	}
}

// AttributeStore

func (g *fakeGraph) TopLevelTags(ctx context.Context) ([]domain.TopLevelTag, error) {
	out := make([]domain.TopLevelTag, 0, len(g.topLevelTags))
	for name, guid := range g.topLevelTags {
		out = append(out, domain.TopLevelTag{Guid: guid, Name: name})
	}
	return out, nil
}

func (g *fakeGraph) GetByIdentifier(ctx context.Context, identifier string) (*domain.Attribute, error) {
	for _, a := range g.attrs {
		if a.identifier == identifier {
			p := g.project(a)
			return &p, nil
		}
	}
	return nil, nil
}

func (g *fakeGraph) GetByGuid(ctx context.Context, guid string) (*domain.Attribute, error) {
	a, ok := g.attrs[guid]
	if !ok {
		return nil, nil
	}
	p := g.project(a)
	return &p, nil
}

func (g *fakeGraph) ResolveByIdentifiers(ctx context.Context, identifiers []string) ([]domain.Attribute, error) {
	out := []domain.Attribute{}
	for _, id := range identifiers {
		if a, err := g.GetByIdentifier(ctx, id); err == nil && a != nil {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (g *fakeGraph) CreateStaged(ctx context.Context, guid, identifier, name, attributeType string) error {
	if g.failCreateStaged {
		return fmt.Errorf("graph unavailable")
	}
	g.attrs[guid] = &fakeAttr{
		guid: guid, identifier: identifier, name: name,
		attrType: attributeType, staged: true,
	}
	return nil
}

func (g *fakeGraph) CreateVertex(ctx context.Context, guid, identifier, name string) error {
	g.attrs[guid] = &fakeAttr{guid: guid, identifier: identifier, name: name}
	return nil
}

func (g *fakeGraph) DeleteWithEdges(ctx context.Context, guid string) error {
	if g.failDelete {
		return fmt.Errorf("graph unavailable")
	}
	if _, ok := g.attrs[guid]; ok {
		delete(g.attrs, guid)
		for k, o := range g.offerings {
			if o.attrGuid == guid {
				delete(g.offerings, k)
			}
		}
		for k, e := range g.userEdges {
			if e.AttributeGuid == guid {
				delete(g.userEdges, k)
			}
		}
		for _, a := range g.attrs {
			if a.parentGuid == guid {
				a.parentGuid = ""
			}
		}
		return nil
	}
	if _, ok := g.insts[guid]; ok {
		delete(g.insts, guid)
		for k, o := range g.offerings {
			if o.instGuid == guid {
				delete(g.offerings, k)
			}
		}
		return nil
	}
	return nil
}

func (g *fakeGraph) ConnectToTopLevelTag(ctx context.Context, guid, attributeType string) error {
	a, ok := g.attrs[guid]
	if !ok {
		return fmt.Errorf("no attribute %s", guid)
	}
	tlt, ok := g.topLevelTags[attributeType]
	if !ok {
		return fmt.Errorf("no top-level tag %s", attributeType)
	}
	a.staged = false
	a.attrType = attributeType
	a.parentGuid = tlt
	return nil
}

func (g *fakeGraph) MoveUnderParent(ctx context.Context, guid, parentGuid string) error {
	a, ok := g.attrs[guid]
	if !ok {
		return fmt.Errorf("no attribute %s", guid)
	}
	a.staged = false
	a.parentGuid = parentGuid
	return nil
}

func (g *fakeGraph) SkillPath(ctx context.Context, guid string) ([]domain.SkillPathEntry, error) {
	a, ok := g.attrs[guid]
	if !ok || a.staged {
		return nil, nil
	}
	var path []domain.SkillPathEntry
	cur := a.parentGuid
	for i := 0; cur != "" && i < 8; i++ {
		if parent, ok := g.attrs[cur]; ok {
			path = append(path, domain.SkillPathEntry{Guid: parent.guid, Name: parent.name})
			cur = parent.parentGuid
			continue
		}
		for name, tltGuid := range g.topLevelTags {
			if tltGuid == cur {
				path = append(path, domain.SkillPathEntry{Guid: tltGuid, Name: name, TopLevel: true})
			}
		}
		break
	}
	return path, nil
}

func (g *fakeGraph) RelatedTags(ctx context.Context, guid string) ([]domain.RelatedTag, error) {
	a, ok := g.attrs[guid]
	if !ok {
		return nil, nil
	}
	out := []domain.RelatedTag{}
	for _, rg := range a.related {
		if r, ok := g.attrs[rg]; ok {
			out = append(out, domain.RelatedTag{Guid: r.guid, Name: r.name})
		}
	}
	return out, nil
}

func (g *fakeGraph) MetaDataTagsForType(ctx context.Context, attributeType string) ([]string, error) {
	return g.metaByType[attributeType], nil
}

func (g *fakeGraph) AttachMetaDataTags(ctx context.Context, guid string, tags []string) error {
	a, ok := g.attrs[guid]
	if !ok {
		return fmt.Errorf("no attribute %s", guid)
	}
	for _, t := range tags {
		found := false
		for _, have := range a.metaTags {
			if have == t {
				found = true
			}
		}
		if !found {
			a.metaTags = append(a.metaTags, t)
		}
	}
	return nil
}

func (g *fakeGraph) OutgoingEdges(ctx context.Context, guid string) ([]domain.GraphEdge, error) {
	a, ok := g.attrs[guid]
	if !ok {
		return nil, nil
	}
	edges := append([]domain.GraphEdge{}, a.edges...)
	if a.parentGuid != "" {
		edges = append(edges, domain.GraphEdge{Label: domain.EdgeIsA, ToGuid: a.parentGuid})
	}
	for _, o := range g.offerings {
		if o.attrGuid == guid {
			edges = append(edges, domain.GraphEdge{
				Label:      domain.EdgeAvailableAt,
				ToGuid:     o.instGuid,
				Properties: map[string]any{"needsRatification": o.needsRatification},
			})
		}
	}
	return edges, nil
}

func (g *fakeGraph) EnsureOutgoingEdge(ctx context.Context, fromGuid, toGuid, label string, props map[string]any) error {
	a, ok := g.attrs[fromGuid]
	if !ok {
		return fmt.Errorf("no attribute %s", fromGuid)
	}
	switch label {
	case domain.EdgeIsA:
		if a.parentGuid == "" {
			a.parentGuid = toGuid
		}
	case domain.EdgeAvailableAt:
		key := g.offeringKey(fromGuid, toGuid)
		if _, exists := g.offerings[key]; !exists {
			needs, _ := props["needsRatification"].(bool)
			g.offerings[key] = &fakeOffering{attrGuid: fromGuid, instGuid: toGuid, needsRatification: needs}
		}
	default:
		for _, e := range a.edges {
			if e.Label == label && e.ToGuid == toGuid {
				return nil
			}
		}
		a.edges = append(a.edges, domain.GraphEdge{Label: label, ToGuid: toGuid, Properties: props})
	}
	return nil
}

func (g *fakeGraph) Unratified(ctx context.Context, attributeType string, page domain.Page, identifiers []string) ([]domain.Attribute, int, error) {
	allowed := map[string]bool{}
	if identifiers != nil {
		for _, id := range identifiers {
			allowed[id] = true
		}
	}
	// Deterministic order by identifier.
	var matched []domain.Attribute
	for _, a := range g.attrs {
		if !a.staged {
			continue
		}
		if attributeType != "" && a.attrType != attributeType {
			continue
		}
		if identifiers != nil && !allowed[a.identifier] {
			continue
		}
		matched = append(matched, g.project(a))
	}
	sortAttributes(matched)
	total := len(matched)
	from, to := page.Window(total)
	return matched[from:to], total, nil
}

func (g *fakeGraph) WithUnratifiedOfferings(ctx context.Context, page domain.Page, identifiers []string) ([]domain.AttributeWithInstitutions, int, error) {
	allowed := map[string]bool{}
	if identifiers != nil {
		for _, id := range identifiers {
			allowed[id] = true
		}
	}
	var matched []domain.AttributeWithInstitutions
	for _, a := range g.attrs {
		if identifiers != nil && !allowed[a.identifier] {
			continue
		}
		var insts []domain.Institution
		for _, o := range g.offerings {
			if o.attrGuid == a.guid && o.needsRatification {
				if inst, ok := g.insts[o.instGuid]; ok {
					insts = append(insts, g.projectInst(inst))
				}
			}
		}
		if len(insts) > 0 {
			matched = append(matched, domain.AttributeWithInstitutions{
				Attribute:    g.project(a),
				Institutions: insts,
			})
		}
	}
	total := len(matched)
	from, to := page.Window(total)
	return matched[from:to], total, nil
}

func (g *fakeGraph) ListRatified(ctx context.Context) ([]domain.Attribute, error) {
	var out []domain.Attribute
	for _, a := range g.attrs {
		if !a.staged && a.parentGuid != "" {
			out = append(out, g.project(a))
		}
	}
	sortAttributes(out)
	return out, nil
}

func sortAttributes(attrs []domain.Attribute) {
	for i := 1; i < len(attrs); i++ {
		for j := i; j > 0 && attrs[j].StandardizedName < attrs[j-1].StandardizedName; j-- {
			attrs[j], attrs[j-1] = attrs[j-1], attrs[j]
		}
	}
}

// InstitutionStore

func (g *fakeGraph) projectInst(i *fakeInst) domain.Institution {
	inst := domain.Institution{
		Guid:              i.guid,
		StandardizedName:  i.identifier,
		Name:              i.name,
		InstitutionType:   i.instType,
		NeedsRatification: i.staged,
	}
	for _, o := range g.offerings {
		if o.instGuid == i.guid {
			if a, ok := g.attrs[o.attrGuid]; ok {
				inst.Offers = append(inst.Offers, domain.Offering{
					AttributeGuid:     a.guid,
					StandardizedName:  a.identifier,
					Name:              a.name,
					NeedsRatification: o.needsRatification,
				})
			}
		}
	}
	return inst
}

func (g *fakeGraph) Types(ctx context.Context) ([]string, error) {
	return append([]string{}, g.instTypes...), nil
}

func (g *fakeGraph) AddType(ctx context.Context, name string) (bool, error) {
	for _, t := range g.instTypes {
		if t == name {
			return false, nil
		}
	}
	g.instTypes = append(g.instTypes, name)
	return true, nil
}

func (g *fakeGraph) CreateStaged2(ctx context.Context, guid, identifier, name, institutionType string) error {
	g.insts[guid] = &fakeInst{guid: guid, identifier: identifier, name: name, instType: institutionType, staged: true}
	return nil
}

func (g *fakeGraph) instByIdentifier(identifier string) *fakeInst {
	for _, i := range g.insts {
		if i.identifier == identifier {
			return i
		}
	}
	return nil
}

func (g *fakeGraph) List(ctx context.Context) ([]domain.Institution, error) {
	var out []domain.Institution
	for _, i := range g.insts {
		out = append(out, g.projectInst(i))
	}
	return out, nil
}

func (g *fakeGraph) UpdateIdentity(ctx context.Context, guid, identifier, name string) error {
	i, ok := g.insts[guid]
	if !ok {
		return fmt.Errorf("no institution %s", guid)
	}
	i.identifier = identifier
	i.name = name
	return nil
}

func (g *fakeGraph) SetType(ctx context.Context, guid, institutionType string) error {
	i, ok := g.insts[guid]
	if !ok {
		return fmt.Errorf("no institution %s", guid)
	}
	i.instType = institutionType
	return nil
}

func (g *fakeGraph) Ratify(ctx context.Context, guid string) error {
	i, ok := g.insts[guid]
	if !ok {
		return fmt.Errorf("no institution %s", guid)
	}
	i.staged = false
	return nil
}

func (g *fakeGraph) EnsureOffering(ctx context.Context, attributeGuid, institutionGuid string, needsRatification bool) (bool, error) {
	key := g.offeringKey(attributeGuid, institutionGuid)
	if _, exists := g.offerings[key]; exists {
		return false, nil
	}
	g.offerings[key] = &fakeOffering{
		attrGuid: attributeGuid, instGuid: institutionGuid, needsRatification: needsRatification,
	}
	return true, nil
}

func (g *fakeGraph) RatifyOffering(ctx context.Context, attributeGuid, institutionGuid string) error {
	o, ok := g.offerings[g.offeringKey(attributeGuid, institutionGuid)]
	if !ok {
		return fmt.Errorf("no offering")
	}
	o.needsRatification = false
	return nil
}

func (g *fakeGraph) Offerings(ctx context.Context, institutionGuid string) ([]domain.Offering, error) {
	i, ok := g.insts[institutionGuid]
	if !ok {
		return nil, nil
	}
	return g.projectInst(i).Offers, nil
}

func (g *fakeGraph) InstitutionsOffering(ctx context.Context, attributeGuid string) ([]domain.Institution, error) {
	var out []domain.Institution
	for _, o := range g.offerings {
		if o.attrGuid == attributeGuid {
			if inst, ok := g.insts[o.instGuid]; ok {
				out = append(out, g.projectInst(inst))
			}
		}
	}
	return out, nil
}

func (g *fakeGraph) RemoveAllOfferings(ctx context.Context, institutionGuid string) error {
	for k, o := range g.offerings {
		if o.instGuid == institutionGuid {
			delete(g.offerings, k)
		}
	}
	return nil
}

func (g *fakeGraph) FilterByIdentifiers(ctx context.Context, identifiers []string, ratified *bool, institutionType string) ([]domain.Institution, error) {
	allowed := map[string]bool{}
	for _, id := range identifiers {
		allowed[id] = true
	}
	var out []domain.Institution
	for _, i := range g.insts {
		if identifiers != nil && !allowed[i.identifier] {
			continue
		}
		if ratified != nil && i.staged == *ratified {
			continue
		}
		if institutionType != "" && i.instType != institutionType {
			continue
		}
		out = append(out, g.projectInst(i))
	}
	return out, nil
}

// UserAttributeStore

func (g *fakeGraph) EnsurePerson(ctx context.Context, personGuid string) error {
	g.persons[personGuid] = true
	return nil
}

func (g *fakeGraph) Edges(ctx context.Context, personGuid, attributeGuid string) ([]domain.UserAttribute, error) {
	var out []domain.UserAttribute
	for _, e := range g.userEdges {
		if e.PersonGuid == personGuid && e.AttributeGuid == attributeGuid {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (g *fakeGraph) GetEdge(ctx context.Context, edgeGuid string) (*domain.UserAttribute, error) {
	e, ok := g.userEdges[edgeGuid]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (g *fakeGraph) ListByPerson(ctx context.Context, personGuid string) ([]domain.UserAttribute, error) {
	var out []domain.UserAttribute
	for _, e := range g.userEdges {
		if e.PersonGuid == personGuid {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (g *fakeGraph) Add(ctx context.Context, ua domain.UserAttribute) (string, error) {
	if ua.EdgeGuid == "" {
		ua.EdgeGuid = uuid.New().String()
	}
	cp := ua
	g.userEdges[ua.EdgeGuid] = &cp
	return ua.EdgeGuid, nil
}

func (g *fakeGraph) UpdateProps(ctx context.Context, edgeGuid string, props map[string]any) error {
	e, ok := g.userEdges[edgeGuid]
	if !ok {
		return fmt.Errorf("no edge %s", edgeGuid)
	}
	for k, v := range props {
		switch k {
		case "proof":
			e.Proof, _ = v.(string)
		case "uploadVerifiedBy":
			e.UploadVerifiedBy, _ = v.(string)
		case "obtainedFrom":
			e.ObtainedFrom, _ = v.(string)
		case "coreTechAddedBy":
			e.CoreTechAddedBy, _ = v.(string)
		default:
			if e.Fields == nil {
				e.Fields = map[string]any{}
			}
			e.Fields[k] = v
		}
	}
	return nil
}

func (g *fakeGraph) Remove(ctx context.Context, edgeGuid string) error {
	delete(g.userEdges, edgeGuid)
	return nil
}

func (g *fakeGraph) Move(ctx context.Context, fromAttributeGuid, toAttributeGuid string, dedup bool) (int, error) {
	moved := 0
	for k, e := range g.userEdges {
		if e.AttributeGuid != fromAttributeGuid {
			continue
		}
		duplicate := false
		if dedup {
			for _, other := range g.userEdges {
				if other.PersonGuid == e.PersonGuid && other.AttributeGuid == toAttributeGuid {
					duplicate = true
					break
				}
			}
		}
		if duplicate {
			delete(g.userEdges, k)
			continue
		}
		e.AttributeGuid = toAttributeGuid
		moved++
	}
	return moved, nil
}

func (g *fakeGraph) RemoveByObtainedFrom(ctx context.Context, institutionGuid string) error {
	for k, e := range g.userEdges {
		if e.ObtainedFrom == institutionGuid {
			delete(g.userEdges, k)
		}
	}
	return nil
}

func (g *fakeGraph) CoreTech(ctx context.Context, personGuid string) ([]domain.UserAttribute, error) {
	var out []domain.UserAttribute
	for _, e := range g.userEdges {
		if e.PersonGuid == personGuid && e.IsCoreTech() {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (g *fakeGraph) ClearCoreTech(ctx context.Context, personGuid string) error {
	for _, e := range g.userEdges {
		if e.PersonGuid == personGuid {
			e.CoreTechAddedBy = ""
			e.CoreTechAddedOn = nil
		}
	}
	return nil
}

func (g *fakeGraph) SetCoreTech(ctx context.Context, edgeGuid, addedBy string) error {
	e, ok := g.userEdges[edgeGuid]
	if !ok {
		return fmt.Errorf("no edge %s", edgeGuid)
	}
	now := time.Now().UTC()
	e.CoreTechAddedBy = addedBy
	e.CoreTechAddedOn = &now
	return nil
}

// instStore adapts fakeGraph to InstitutionStore, whose CreateStaged clashes
// with the attribute-side signature.
type instStore struct{ *fakeGraph }

func (s instStore) CreateStaged(ctx context.Context, guid, identifier, name, institutionType string) error {
	return s.fakeGraph.CreateStaged2(ctx, guid, identifier, name, institutionType)
}

func (s instStore) GetByIdentifier(ctx context.Context, identifier string) (*domain.Institution, error) {
	i := s.fakeGraph.instByIdentifier(identifier)
	if i == nil {
		return nil, nil
	}
	p := s.fakeGraph.projectInst(i)
	return &p, nil
}

func (s instStore) GetByGuid(ctx context.Context, guid string) (*domain.Institution, error) {
	i, ok := s.fakeGraph.insts[guid]
	if !ok {
		return nil, nil
	}
	p := s.fakeGraph.projectInst(i)
	return &p, nil
}

// Relational fakes.

type fakeNameStore struct {
	names      map[uuid.UUID]*domain.CanonicalName
	aliases    map[uuid.UUID]*domain.Alias
	rejected   []*domain.RejectedCanonicalName
	categories map[string]*domain.CanonicalNameCategory
	exceptions map[string]bool
	intents    map[uuid.UUID]*domain.GraphWriteIntent

	failNameCreate bool
}

func newFakeNameStore() *fakeNameStore {
	return &fakeNameStore{
		names:      map[uuid.UUID]*domain.CanonicalName{},
		aliases:    map[uuid.UUID]*domain.Alias{},
		categories: map[string]*domain.CanonicalNameCategory{},
		exceptions: map[string]bool{},
		intents:    map[uuid.UUID]*domain.GraphWriteIntent{},
	}
}

func (f *fakeNameStore) Create(ctx context.Context, tx *gorm.DB, rows []*domain.CanonicalName) ([]*domain.CanonicalName, error) {
	if f.failNameCreate {
		return nil, fmt.Errorf("database unavailable")
	}
	for _, r := range rows {
		if r.ID == uuid.Nil {
			r.ID = uuid.New()
		}
		f.names[r.ID] = r
	}
	return rows, nil
}

func (f *fakeNameStore) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.CanonicalName, error) {
	r, ok := f.names[id]
	if !ok {
		return nil, nil
	}
	return f.withCategory(r), nil
}

func (f *fakeNameStore) withCategory(r *domain.CanonicalName) *domain.CanonicalName {
	cp := *r
	for _, c := range f.categories {
		if c.ID == r.CategoryID {
			cat := *c
			cp.Category = &cat
		}
	}
	return &cp
}

func (f *fakeNameStore) GetByStandardizedName(ctx context.Context, tx *gorm.DB, standardizedName string) (*domain.CanonicalName, error) {
	for _, r := range f.names {
		if r.StandardizedName == standardizedName {
			return f.withCategory(r), nil
		}
	}
	return nil, nil
}

func (f *fakeNameStore) GetByStandardizedNames(ctx context.Context, tx *gorm.DB, standardizedNames []string) ([]*domain.CanonicalName, error) {
	var out []*domain.CanonicalName
	for _, sn := range standardizedNames {
		if r, _ := f.GetByStandardizedName(ctx, tx, sn); r != nil {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeNameStore) GetByName(ctx context.Context, tx *gorm.DB, canonicalName string) (*domain.CanonicalName, error) {
	for _, r := range f.names {
		if strings.EqualFold(r.CanonicalName, canonicalName) {
			return f.withCategory(r), nil
		}
	}
	return nil, nil
}

func (f *fakeNameStore) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	r, ok := f.names[id]
	if !ok {
		return fmt.Errorf("no row %s", id)
	}
	for k, v := range updates {
		switch k {
		case "canonical_name":
			r.CanonicalName, _ = v.(string)
		case "standardized_name":
			r.StandardizedName, _ = v.(string)
		case "guid":
			if g, ok := v.(uuid.UUID); ok {
				r.Guid = &g
			}
		}
	}
	return nil
}

func (f *fakeNameStore) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	delete(f.names, id)
	return nil
}

// SearchByText matches case-insensitive substrings, a stand-in for the
// trigram ranking that is exact enough for service-level assertions. An
// excepted search text matches by name prefix only, as the SQL does.
func (f *fakeNameStore) SearchByText(ctx context.Context, tx *gorm.DB, text string, threshold float64, categories []string) ([]*domain.CanonicalNameHit, error) {
	catIDs := map[uuid.UUID]bool{}
	for _, c := range categories {
		if cat, ok := f.categories[c]; ok {
			catIDs[cat.ID] = true
		}
	}
	needle := strings.ToLower(text)
	excepted := false
	for s := range f.exceptions {
		if strings.ToLower(s) == needle {
			excepted = true
			break
		}
	}
	var out []*domain.CanonicalNameHit
	for _, r := range f.names {
		if !catIDs[r.CategoryID] {
			continue
		}
		var match bool
		if excepted {
			match = strings.HasPrefix(strings.ToLower(r.CanonicalName), needle)
		} else {
			match = strings.Contains(strings.ToLower(r.CanonicalName), needle)
		}
		if !match && !excepted {
			for _, a := range f.aliases {
				if a.CanonicalNameID == r.ID && strings.Contains(strings.ToLower(a.Alias), needle) {
					match = true
					break
				}
			}
		}
		if match {
			out = append(out, &domain.CanonicalNameHit{CanonicalName: *f.withCategory(r), Rank: 1})
		}
	}
	return out, nil
}

// AliasRepo

func (f *fakeNameStore) CreateAliases(ctx context.Context, tx *gorm.DB, rows []*domain.Alias) ([]*domain.Alias, error) {
	for _, r := range rows {
		if r.ID == uuid.Nil {
			r.ID = uuid.New()
		}
		f.aliases[r.ID] = r
	}
	return rows, nil
}

func (f *fakeNameStore) GetByCanonicalNameID(ctx context.Context, tx *gorm.DB, canonicalNameID uuid.UUID) ([]*domain.Alias, error) {
	var out []*domain.Alias
	for _, a := range f.aliases {
		if a.CanonicalNameID == canonicalNameID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeNameStore) GetByStandardizedAlias(ctx context.Context, tx *gorm.DB, standardizedAlias string) ([]*domain.Alias, error) {
	var out []*domain.Alias
	for _, a := range f.aliases {
		if a.StandardizedAlias == standardizedAlias {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeNameStore) Repoint(ctx context.Context, tx *gorm.DB, fromCanonicalNameID, toCanonicalNameID uuid.UUID) error {
	for _, a := range f.aliases {
		if a.CanonicalNameID == fromCanonicalNameID {
			a.CanonicalNameID = toCanonicalNameID
		}
	}
	return nil
}

func (f *fakeNameStore) DeleteByCanonicalNameID(ctx context.Context, tx *gorm.DB, canonicalNameID uuid.UUID) error {
	for k, a := range f.aliases {
		if a.CanonicalNameID == canonicalNameID {
			delete(f.aliases, k)
		}
	}
	return nil
}

// RejectedNameRepo

func (f *fakeNameStore) CreateRejected(ctx context.Context, tx *gorm.DB, row *domain.RejectedCanonicalName) (*domain.RejectedCanonicalName, error) {
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	f.rejected = append(f.rejected, row)
	return row, nil
}

func (f *fakeNameStore) GetRejectedByStandardizedName(ctx context.Context, tx *gorm.DB, standardizedName string) (*domain.RejectedCanonicalName, error) {
	for _, r := range f.rejected {
		if r.StandardizedName == standardizedName {
			return r, nil
		}
	}
	return nil, nil
}

// CategoryRepo

func (f *fakeNameStore) GetCategoryByName(ctx context.Context, tx *gorm.DB, name string) (*domain.CanonicalNameCategory, error) {
	c, ok := f.categories[name]
	if !ok {
		return nil, nil
	}
	return c, nil
}

func (f *fakeNameStore) ListCategories(ctx context.Context, tx *gorm.DB) ([]*domain.CanonicalNameCategory, error) {
	var out []*domain.CanonicalNameCategory
	for _, c := range f.categories {
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeNameStore) EnsureByName(ctx context.Context, tx *gorm.DB, name string) (*domain.CanonicalNameCategory, error) {
	if c, ok := f.categories[name]; ok {
		return c, nil
	}
	c := &domain.CanonicalNameCategory{ID: uuid.New(), Name: name}
	f.categories[name] = c
	return c, nil
}

// SearchExceptionRepo

func (f *fakeNameStore) CreateException(ctx context.Context, tx *gorm.DB, searchText string) (*domain.SearchTextException, error) {
	f.exceptions[searchText] = true
	return &domain.SearchTextException{ID: uuid.New(), SearchText: searchText}, nil
}

func (f *fakeNameStore) ListExceptions(ctx context.Context, tx *gorm.DB) ([]*domain.SearchTextException, error) {
	var out []*domain.SearchTextException
	for s := range f.exceptions {
		out = append(out, &domain.SearchTextException{SearchText: s})
	}
	return out, nil
}

// WriteIntentRepo

func (f *fakeNameStore) CreateIntent(ctx context.Context, tx *gorm.DB, row *domain.GraphWriteIntent) (*domain.GraphWriteIntent, error) {
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.Status == "" {
		row.Status = domain.IntentStatusPending
	}
	row.CreatedAt = time.Now().UTC()
	row.UpdatedAt = row.CreatedAt
	f.intents[row.ID] = row
	return row, nil
}

func (f *fakeNameStore) MarkStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status string) error {
	r, ok := f.intents[id]
	if !ok {
		return fmt.Errorf("no intent %s", id)
	}
	r.Status = status
	r.UpdatedAt = time.Now().UTC()
	return nil
}

func (f *fakeNameStore) ListPendingOlderThan(ctx context.Context, tx *gorm.DB, age time.Duration) ([]*domain.GraphWriteIntent, error) {
	cutoff := time.Now().UTC().Add(-age)
	var out []*domain.GraphWriteIntent
	for _, r := range f.intents {
		if r.Status == domain.IntentStatusPending && r.UpdatedAt.Before(cutoff) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeNameStore) DeleteIntent(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	delete(f.intents, id)
	return nil
}

// Narrow adapters so one fakeNameStore serves every repo interface despite
// overlapping method names.

type aliasRepoFake struct{ *fakeNameStore }

func (a aliasRepoFake) Create(ctx context.Context, tx *gorm.DB, rows []*domain.Alias) ([]*domain.Alias, error) {
	return a.CreateAliases(ctx, tx, rows)
}

type rejectedRepoFake struct{ *fakeNameStore }

func (r rejectedRepoFake) Create(ctx context.Context, tx *gorm.DB, row *domain.RejectedCanonicalName) (*domain.RejectedCanonicalName, error) {
	return r.CreateRejected(ctx, tx, row)
}
func (r rejectedRepoFake) GetByStandardizedName(ctx context.Context, tx *gorm.DB, standardizedName string) (*domain.RejectedCanonicalName, error) {
	return r.GetRejectedByStandardizedName(ctx, tx, standardizedName)
}

type categoryRepoFake struct{ *fakeNameStore }

func (c categoryRepoFake) GetByName(ctx context.Context, tx *gorm.DB, name string) (*domain.CanonicalNameCategory, error) {
	return c.GetCategoryByName(ctx, tx, name)
}
func (c categoryRepoFake) List(ctx context.Context, tx *gorm.DB) ([]*domain.CanonicalNameCategory, error) {
	return c.ListCategories(ctx, tx)
}

type exceptionRepoFake struct{ *fakeNameStore }

func (e exceptionRepoFake) Create(ctx context.Context, tx *gorm.DB, searchText string) (*domain.SearchTextException, error) {
	return e.CreateException(ctx, tx, searchText)
}
func (e exceptionRepoFake) List(ctx context.Context, tx *gorm.DB) ([]*domain.SearchTextException, error) {
	return e.ListExceptions(ctx, tx)
}

type intentRepoFake struct{ *fakeNameStore }

func (i intentRepoFake) Create(ctx context.Context, tx *gorm.DB, row *domain.GraphWriteIntent) (*domain.GraphWriteIntent, error) {
	return i.CreateIntent(ctx, tx, row)
}
func (i intentRepoFake) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	return i.DeleteIntent(ctx, tx, id)
}

// harness wires the services over the fakes.
type harness struct {
	graph *fakeGraph
	store *fakeNameStore

	canonicalNames CanonicalNameService
	attributes     AttributeService
	institutions   InstitutionService
	userSkills     UserSkillService
	reconcile      ReconcileService
}

func newHarness() *harness {
	g := newFakeGraph()
	st := newFakeNameStore()
	log := testLogger()

	cn := NewCanonicalNameService(nil, log, st, aliasRepoFake{st}, exceptionRepoFake{st})
	attrs := NewAttributeService(nil, log, nil,
		st, aliasRepoFake{st}, rejectedRepoFake{st}, categoryRepoFake{st}, intentRepoFake{st},
		g, g, cn, 0.8)
	insts := NewInstitutionService(nil, log,
		st, aliasRepoFake{st}, rejectedRepoFake{st}, categoryRepoFake{st}, intentRepoFake{st},
		instStore{g}, g, g, cn, 0.8)
	users := NewUserSkillService(log, g, g, CoreTechConfig{
		Max:          3,
		AllowedTypes: []string{"skill", "industry-knowledge"},
	})
	rec := NewReconcileService(log, st, intentRepoFake{st}, g, instStore{g}, time.Nanosecond)

	return &harness{
		graph:          g,
		store:          st,
		canonicalNames: cn,
		attributes:     attrs,
		institutions:   insts,
		userSkills:     users,
		reconcile:      rec,
	}
}

func (h *harness) seedTopLevelTags(names ...string) {
	for _, n := range names {
		h.graph.addTopLevelTag(n)
	}
}
