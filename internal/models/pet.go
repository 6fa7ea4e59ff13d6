package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PetStatus is the availability state of a pet in the catalog.
type PetStatus string

const (
	PetAvailable PetStatus = "available"
	PetPending   PetStatus = "pending"
	PetAdopted   PetStatus = "adopted"
)

// PetStatusAll is the listing filter value that disables status filtering.
// The public listing defaults to "available"; passing status=all overrides it.
const PetStatusAll = "all"

func (s PetStatus) Valid() bool {
	switch s {
	case PetAvailable, PetPending, PetAdopted:
		return true
	}
	return false
}

// Pet is a single adoptable-animal record stored in MongoDB.
type Pet struct {
	ID          primitive.ObjectID `json:"id"                    bson:"_id,omitempty"`
	Name        string             `json:"name"                  bson:"name"`
	Species     string             `json:"species"               bson:"species"`
	Breed       string             `json:"breed,omitempty"       bson:"breed,omitempty"`
	Age         int                `json:"age,omitempty"         bson:"age,omitempty"`
	Color       string             `json:"color,omitempty"       bson:"color,omitempty"`
	Description string             `json:"description,omitempty" bson:"description,omitempty"`
	Image       string             `json:"image,omitempty"       bson:"image,omitempty"`
	Status      PetStatus          `json:"status"                bson:"status"`
	CreatedAt   time.Time          `json:"created_at"            bson:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"            bson:"updated_at"`
}

// PetFilter narrows the catalog listing. Species, breed and age are equality
// matches; Search is a case-insensitive substring match on the pet name.
// Status is an explicit parameter: empty means "available", PetStatusAll
// means no status filter.
type PetFilter struct {
	Species string
	Breed   string
	Search  string
	Status  string
	Age     *int
}

// PetUpdate is a partial update; nil fields are left unchanged.
type PetUpdate struct {
	Name        *string
	Species     *string
	Breed       *string
	Age         *int
	Color       *string
	Description *string
	Image       *string
	Status      *PetStatus
}
