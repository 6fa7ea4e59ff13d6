package adoption

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/pawhaven/pet-adoption-api/internal/models"
	"github.com/pawhaven/pet-adoption-api/internal/store"
)

var (
	ErrPetNotFound         = errors.New("pet not found")
	ErrPetUnavailable      = errors.New("pet not available")
	ErrAlreadyApplied      = errors.New("already applied")
	ErrApplicationNotFound = errors.New("application not found")
	ErrInvalidStatus       = errors.New("invalid application status")
)

// PetStore is the pet persistence the workflow needs.
type PetStore interface {
	GetByID(ctx context.Context, id string) (*models.Pet, error)
	CompareAndSetStatus(ctx context.Context, id primitive.ObjectID, from, to models.PetStatus) error
	SetStatus(ctx context.Context, id primitive.ObjectID, to models.PetStatus) error
}

// ApplicationStore is the adoption-application persistence.
type ApplicationStore interface {
	Insert(ctx context.Context, app *models.Adoption) error
	Exists(ctx context.Context, userID string, petID primitive.ObjectID) (bool, error)
	SetStatus(ctx context.Context, id string, status models.ApplicationStatus) (*models.Adoption, error)
	ListByUser(ctx context.Context, userID string, status models.ApplicationStatus, search string, page models.PageRequest) ([]store.JoinedApplication, int64, error)
	ListAll(ctx context.Context, status models.ApplicationStatus, search string, userIDs []string, page models.PageRequest) ([]store.JoinedApplication, int64, error)
}

// UserDirectory resolves applicants for the admin review listing.
type UserDirectory interface {
	GetUsersByIDs(ctx context.Context, ids []string) ([]models.User, error)
	FindUserIDsByEmail(ctx context.Context, search string) ([]string, error)
}

// Service mediates the adoption workflow: applying claims an available pet,
// reviewing an application writes the pet-side effect.
type Service struct {
	apps  ApplicationStore
	pets  PetStore
	users UserDirectory
	log   zerolog.Logger
}

func NewService(apps ApplicationStore, pets PetStore, users UserDirectory, log zerolog.Logger) *Service {
	return &Service{apps: apps, pets: pets, users: users, log: log}
}

// Apply submits an adoption application for an available pet. The pet is
// claimed with a conditional status write, so concurrent applicants race on
// a single compare-and-swap rather than a check-then-act window; the partial
// unique index on pending applications backstops the duplicate check.
func (s *Service) Apply(ctx context.Context, petID, userID string) (*models.Adoption, error) {
	pet, err := s.pets.GetByID(ctx, petID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrPetNotFound
	}
	if err != nil {
		return nil, err
	}
	if pet.Status != models.PetAvailable {
		return nil, ErrPetUnavailable
	}

	exists, err := s.apps.Exists(ctx, userID, pet.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrAlreadyApplied
	}

	if err := s.pets.CompareAndSetStatus(ctx, pet.ID, models.PetAvailable, models.PetPending); err != nil {
		if errors.Is(err, store.ErrStale) || errors.Is(err, store.ErrNotFound) {
			return nil, ErrPetUnavailable
		}
		return nil, err
	}

	app := &models.Adoption{
		UserID: userID,
		PetID:  pet.ID,
		Status: models.ApplicationPending,
	}
	if err := s.apps.Insert(ctx, app); err != nil {
		// Release the claim; no application was recorded.
		if rbErr := s.pets.CompareAndSetStatus(ctx, pet.ID, models.PetPending, models.PetAvailable); rbErr != nil {
			s.log.Error().Err(rbErr).Str("pet_id", petID).Msg("releasing pet claim failed")
		}
		if errors.Is(err, store.ErrDuplicate) {
			return nil, ErrAlreadyApplied
		}
		return nil, err
	}
	return app, nil
}

// SetStatus writes the reviewed status and the pet-side effect: approval
// marks the pet adopted, rejection returns it to the available pool. No
// side effect is defined for any other status.
func (s *Service) SetStatus(ctx context.Context, applicationID string, status models.ApplicationStatus) (*models.Adoption, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	app, err := s.apps.SetStatus(ctx, applicationID, status)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrApplicationNotFound
	}
	if err != nil {
		return nil, err
	}

	switch status {
	case models.ApplicationApproved:
		err = s.pets.SetStatus(ctx, app.PetID, models.PetAdopted)
	case models.ApplicationRejected:
		err = s.pets.SetStatus(ctx, app.PetID, models.PetAvailable)
	}
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	return app, nil
}

// ListMine returns the caller's applications joined with pet data, newest
// first, reshaped into the flat pet-keyed view.
func (s *Service) ListMine(ctx context.Context, userID string, status models.ApplicationStatus, search string, page models.PageRequest) ([]models.MyApplication, int64, error) {
	rows, total, err := s.apps.ListByUser(ctx, userID, status, search, page)
	if err != nil {
		return nil, 0, err
	}

	apps := make([]models.MyApplication, 0, len(rows))
	for _, row := range rows {
		view := models.MyApplication{
			Name:        row.Pet.Name,
			Species:     row.Pet.Species,
			Breed:       row.Pet.Breed,
			Age:         row.Pet.Age,
			Color:       row.Pet.Color,
			Description: row.Pet.Description,
			Photo:       row.Pet.Image,
			Status:      row.Status,
			PetStatus:   row.Pet.Status,
			AppliedAt:   row.CreatedAt,
			AdoptionID:  row.ID.Hex(),
		}
		if !row.Pet.ID.IsZero() {
			view.ID = row.Pet.ID.Hex()
		}
		apps = append(apps, view)
	}
	return apps, total, nil
}

// ListAll returns every application joined with pet and applicant, newest
// first. The search term matches pet name or user email and is resolved
// before pagination.
func (s *Service) ListAll(ctx context.Context, status models.ApplicationStatus, search string, page models.PageRequest) ([]models.AdminApplication, int64, error) {
	var matchedUsers []string
	if search != "" {
		ids, err := s.users.FindUserIDsByEmail(ctx, search)
		if err != nil {
			return nil, 0, err
		}
		matchedUsers = ids
	}

	rows, total, err := s.apps.ListAll(ctx, status, search, matchedUsers, page)
	if err != nil {
		return nil, 0, err
	}

	userIDs := make([]string, 0, len(rows))
	seen := make(map[string]bool, len(rows))
	for _, row := range rows {
		if !seen[row.UserID] {
			seen[row.UserID] = true
			userIDs = append(userIDs, row.UserID)
		}
	}
	users, err := s.users.GetUsersByIDs(ctx, userIDs)
	if err != nil {
		return nil, 0, err
	}
	byID := make(map[string]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	apps := make([]models.AdminApplication, 0, len(rows))
	for _, row := range rows {
		view := models.AdminApplication{
			ID:        row.ID.Hex(),
			Status:    row.Status,
			AppliedAt: row.CreatedAt,
		}
		if u, ok := byID[row.UserID]; ok {
			view.User = models.Applicant{ID: u.ID, Name: u.Name, Email: u.Email}
		}
		if !row.Pet.ID.IsZero() {
			view.Pet = models.PetSummary{
				ID:      row.Pet.ID.Hex(),
				Name:    row.Pet.Name,
				Species: row.Pet.Species,
				Breed:   row.Pet.Breed,
				Status:  row.Pet.Status,
			}
		}
		apps = append(apps, view)
	}
	return apps, total, nil
}
