package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ApplicationStatus is the lifecycle state of an adoption application.
// Approved and rejected are terminal for the pet side effect; the review
// endpoint itself performs no current-state guard.
type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationApproved ApplicationStatus = "approved"
	ApplicationRejected ApplicationStatus = "rejected"
)

func (s ApplicationStatus) Valid() bool {
	switch s {
	case ApplicationPending, ApplicationApproved, ApplicationRejected:
		return true
	}
	return false
}

// Adoption is a user's application to adopt a specific pet, stored in MongoDB.
type Adoption struct {
	ID        primitive.ObjectID `json:"id"         bson:"_id,omitempty"`
	UserID    string             `json:"user_id"    bson:"user_id"`
	PetID     primitive.ObjectID `json:"pet_id"     bson:"pet_id"`
	Status    ApplicationStatus  `json:"status"     bson:"status"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time          `json:"updated_at" bson:"updated_at"`
}

// MyApplication is the flat view returned by GET /api/adoptions/my. The pet's
// id is aliased as the primary _id for the client; the application id is
// carried separately as adoptionId.
type MyApplication struct {
	ID          string            `json:"_id"`
	Name        string            `json:"name"`
	Species     string            `json:"species"`
	Breed       string            `json:"breed,omitempty"`
	Age         int               `json:"age,omitempty"`
	Color       string            `json:"color,omitempty"`
	Description string            `json:"description,omitempty"`
	Photo       string            `json:"photo,omitempty"`
	Status      ApplicationStatus `json:"status"`
	PetStatus   PetStatus         `json:"petStatus"`
	AppliedAt   time.Time         `json:"appliedAt"`
	AdoptionID  string            `json:"adoptionId"`
}

// Applicant is the user summary embedded in the admin review view.
type Applicant struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// PetSummary is the pet summary embedded in the admin review view.
type PetSummary struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Species string    `json:"species"`
	Breed   string    `json:"breed,omitempty"`
	Status  PetStatus `json:"status"`
}

// AdminApplication is one row of the admin review queue, joined with the pet
// and the applying user.
type AdminApplication struct {
	ID        string            `json:"_id"`
	User      Applicant         `json:"user"`
	Pet       PetSummary        `json:"pet"`
	Status    ApplicationStatus `json:"status"`
	AppliedAt time.Time         `json:"appliedAt"`
}
