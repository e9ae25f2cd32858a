package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type CanonicalNameCategory struct {
	ID   uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name string    `gorm:"column:name;not null;uniqueIndex" json:"name"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (CanonicalNameCategory) TableName() string { return "canonical_name_category" }

type CanonicalName struct {
	ID uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`

	CanonicalName    string `gorm:"column:canonical_name;not null" json:"canonical_name"`
	StandardizedName string `gorm:"column:standardized_name;not null;uniqueIndex" json:"standardized_name"`

	CategoryID uuid.UUID              `gorm:"type:uuid;column:category_id;not null;index" json:"category_id"`
	Category   *CanonicalNameCategory `gorm:"foreignKey:CategoryID;references:ID" json:"category,omitempty"`

	// Guid is a weak back-reference to the graph vertex; set after the vertex
	// is created, never used for ownership.
	Guid *uuid.UUID `gorm:"type:uuid;column:guid;index" json:"guid,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (CanonicalName) TableName() string { return "canonical_name" }

type Alias struct {
	ID uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`

	Alias             string `gorm:"column:alias;not null" json:"alias"`
	StandardizedAlias string `gorm:"column:standardized_alias;not null;index" json:"standardized_alias"`

	CanonicalNameID uuid.UUID      `gorm:"type:uuid;column:canonical_name_id;not null;index" json:"canonical_name_id"`
	CanonicalName   *CanonicalName `gorm:"constraint:OnDelete:CASCADE;foreignKey:CanonicalNameID;references:ID" json:"-"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (Alias) TableName() string { return "alias" }

// RejectedCanonicalName is an append-only log blocking re-submission of
// previously rejected names.
type RejectedCanonicalName struct {
	ID uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`

	CanonicalName    string    `gorm:"column:canonical_name;not null" json:"canonical_name"`
	StandardizedName string    `gorm:"column:standardized_name;not null;index" json:"standardized_name"`
	CategoryID       uuid.UUID `gorm:"type:uuid;column:category_id;not null" json:"category_id"`

	RejectedBy string    `gorm:"column:rejected_by;not null" json:"rejected_by"`
	RejectedAt time.Time `gorm:"column:rejected_at;not null;default:now()" json:"rejected_at"`
}

func (RejectedCanonicalName) TableName() string { return "rejected_canonical_name" }

type SearchTextException struct {
	ID         uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SearchText string    `gorm:"column:search_text;not null;uniqueIndex" json:"search_text"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (SearchTextException) TableName() string { return "search_text_exception" }

const (
	IntentStatusPending     = "pending"
	IntentStatusCommitted   = "committed"
	IntentStatusCompensated = "compensated"
	IntentStatusFailed      = "failed"
)

const (
	IntentKindAttribute   = "attribute"
	IntentKindInstitution = "institution"
)

// GraphWriteIntent is the write-ahead intent log for cross-store creates: a
// row is recorded before the first store write and resolved once the SQL row
// and the graph vertex agree, so a background sweep can finish or unwind
// incomplete pairs.
type GraphWriteIntent struct {
	ID uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`

	Kind             string `gorm:"column:kind;not null;index" json:"kind"`
	StandardizedName string `gorm:"column:standardized_name;not null;index" json:"standardized_name"`
	CategoryName     string `gorm:"column:category_name;not null" json:"category_name"`

	Payload datatypes.JSON `gorm:"column:payload;type:jsonb" json:"payload,omitempty"`
	Status  string         `gorm:"column:status;not null;default:'pending';index" json:"status"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (GraphWriteIntent) TableName() string { return "graph_write_intent" }

// CanonicalNameDetails is the read-side projection of a canonical name with
// its aliases resolved.
type CanonicalNameDetails struct {
	CanonicalNameID  uuid.UUID  `json:"canonical_name_id"`
	CanonicalName    string     `json:"canonical_name"`
	StandardizedName string     `json:"standardized_name"`
	Category         string     `json:"category"`
	Guid             *uuid.UUID `json:"guid,omitempty"`
	Aliases          []string   `json:"aliases"`
}

// CanonicalNameHit is a relational text-search hit with its similarity rank.
type CanonicalNameHit struct {
	CanonicalName
	Rank float64 `json:"rank"`
}
