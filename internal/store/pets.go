package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pawhaven/pet-adoption-api/internal/models"
)

// PetStore handles pet catalog CRUD in MongoDB.
type PetStore struct {
	col *mongo.Collection
}

func NewPetStore(db *mongo.Database) *PetStore {
	return &PetStore{col: db.Collection("pets")}
}

// EnsureIndexes creates the indexes backing the catalog listing.
func (s *PetStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "species", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("pet indexes: %w", err)
	}
	return nil
}

func (s *PetStore) Insert(ctx context.Context, pet *models.Pet) error {
	now := time.Now().UTC()
	pet.CreatedAt = now
	pet.UpdatedAt = now
	if pet.Status == "" {
		pet.Status = models.PetAvailable
	}
	res, err := s.col.InsertOne(ctx, pet)
	if err != nil {
		return fmt.Errorf("pet insert: %w", err)
	}
	pet.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func petFilterQuery(filter models.PetFilter) bson.M {
	query := bson.M{}
	if filter.Species != "" {
		query["species"] = filter.Species
	}
	if filter.Breed != "" {
		query["breed"] = filter.Breed
	}
	if filter.Age != nil {
		query["age"] = *filter.Age
	}
	if filter.Search != "" {
		query["name"] = primitive.Regex{Pattern: filter.Search, Options: "i"}
	}
	switch filter.Status {
	case models.PetStatusAll:
		// no status filter
	case "":
		query["status"] = models.PetAvailable
	default:
		query["status"] = filter.Status
	}
	return query
}

// List returns one page of pets matching the filter, newest first, together
// with the total match count across all pages.
func (s *PetStore) List(ctx context.Context, filter models.PetFilter, page models.PageRequest) ([]models.Pet, int64, error) {
	query := petFilterQuery(filter)

	total, err := s.col.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("pet count: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(page.Skip()).
		SetLimit(int64(page.Limit))
	cur, err := s.col.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("pet find: %w", err)
	}
	defer cur.Close(ctx)

	var pets []models.Pet
	if err := cur.All(ctx, &pets); err != nil {
		return nil, 0, fmt.Errorf("pet decode: %w", err)
	}
	return pets, total, nil
}

func (s *PetStore) GetByID(ctx context.Context, id string) (*models.Pet, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var pet models.Pet
	err = s.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&pet)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pet get: %w", err)
	}
	return &pet, nil
}

func petUpdateDoc(upd models.PetUpdate) bson.M {
	set := bson.M{"updated_at": time.Now().UTC()}
	if upd.Name != nil {
		set["name"] = *upd.Name
	}
	if upd.Species != nil {
		set["species"] = *upd.Species
	}
	if upd.Breed != nil {
		set["breed"] = *upd.Breed
	}
	if upd.Age != nil {
		set["age"] = *upd.Age
	}
	if upd.Color != nil {
		set["color"] = *upd.Color
	}
	if upd.Description != nil {
		set["description"] = *upd.Description
	}
	if upd.Image != nil {
		set["image"] = *upd.Image
	}
	if upd.Status != nil {
		set["status"] = *upd.Status
	}
	return bson.M{"$set": set}
}

// Update applies a partial update and returns the updated record.
func (s *PetStore) Update(ctx context.Context, id string, upd models.PetUpdate) (*models.Pet, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var pet models.Pet
	err = s.col.FindOneAndUpdate(ctx, bson.M{"_id": oid}, petUpdateDoc(upd), opts).Decode(&pet)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pet update: %w", err)
	}
	return &pet, nil
}

// Delete removes the pet and returns the deleted record so callers can clean
// up the stored image object.
func (s *PetStore) Delete(ctx context.Context, id string) (*models.Pet, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var pet models.Pet
	err = s.col.FindOneAndDelete(ctx, bson.M{"_id": oid}).Decode(&pet)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pet delete: %w", err)
	}
	return &pet, nil
}

// CompareAndSetStatus flips the pet's status only if it still has the
// expected current value. ErrStale means another writer got there first.
func (s *PetStore) CompareAndSetStatus(ctx context.Context, id primitive.ObjectID, from, to models.PetStatus) error {
	res, err := s.col.UpdateOne(ctx,
		bson.M{"_id": id, "status": from},
		bson.M{"$set": bson.M{"status": to, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("pet status cas: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrStale
	}
	return nil
}

// SetStatus writes the pet's status unconditionally. Used for the
// approve/reject side effects on the referenced pet.
func (s *PetStore) SetStatus(ctx context.Context, id primitive.ObjectID, to models.PetStatus) error {
	res, err := s.col.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"status": to, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("pet status set: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
