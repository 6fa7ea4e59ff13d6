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

// AdoptionStore handles adoption applications in MongoDB.
type AdoptionStore struct {
	col *mongo.Collection
}

func NewAdoptionStore(db *mongo.Database) *AdoptionStore {
	return &AdoptionStore{col: db.Collection("adoptions")}
}

// JoinedApplication is an application row joined with its pet document.
type JoinedApplication struct {
	ID        primitive.ObjectID       `bson:"_id"`
	UserID    string                   `bson:"user_id"`
	Status    models.ApplicationStatus `bson:"status"`
	CreatedAt time.Time                `bson:"created_at"`
	Pet       models.Pet               `bson:"pet"`
}

// EnsureIndexes creates the listing index and the partial unique index that
// makes the one-pending-application-per-(user,pet) guard a storage-level
// constraint instead of a check-then-act race.
func (s *AdoptionStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "pet_id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"status": models.ApplicationPending}),
		},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("adoption indexes: %w", err)
	}
	return nil
}

func (s *AdoptionStore) Insert(ctx context.Context, app *models.Adoption) error {
	now := time.Now().UTC()
	app.CreatedAt = now
	app.UpdatedAt = now
	if app.Status == "" {
		app.Status = models.ApplicationPending
	}
	res, err := s.col.InsertOne(ctx, app)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("adoption insert: %w", err)
	}
	app.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

// Exists reports whether any application (in any state) already exists for
// the user/pet pair.
func (s *AdoptionStore) Exists(ctx context.Context, userID string, petID primitive.ObjectID) (bool, error) {
	err := s.col.FindOne(ctx, bson.M{"user_id": userID, "pet_id": petID}).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("adoption exists: %w", err)
	}
	return true, nil
}

func (s *AdoptionStore) GetByID(ctx context.Context, id string) (*models.Adoption, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var app models.Adoption
	err = s.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&app)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("adoption get: %w", err)
	}
	return &app, nil
}

// SetStatus writes the application status and returns the updated record.
func (s *AdoptionStore) SetStatus(ctx context.Context, id string, status models.ApplicationStatus) (*models.Adoption, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var app models.Adoption
	err = s.col.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{"status": status, "updated_at": time.Now().UTC()}},
		opts,
	).Decode(&app)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("adoption set status: %w", err)
	}
	return &app, nil
}

// pagedPipeline appends the shared sort/facet tail: newest first, one facet
// for the requested page and one for the total match count. Filtering always
// happens before this point, so totals are independent of page and limit.
func pagedPipeline(pipeline mongo.Pipeline, page models.PageRequest) mongo.Pipeline {
	return append(pipeline,
		bson.D{{Key: "$sort", Value: bson.D{{Key: "created_at", Value: -1}}}},
		bson.D{{Key: "$facet", Value: bson.M{
			"data": bson.A{
				bson.M{"$skip": page.Skip()},
				bson.M{"$limit": int64(page.Limit)},
			},
			"total": bson.A{bson.M{"$count": "count"}},
		}}},
	)
}

func (s *AdoptionStore) runPaged(ctx context.Context, pipeline mongo.Pipeline) ([]JoinedApplication, int64, error) {
	cur, err := s.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, 0, fmt.Errorf("adoption aggregate: %w", err)
	}
	defer cur.Close(ctx)

	var results []struct {
		Data  []JoinedApplication `bson:"data"`
		Total []struct {
			Count int64 `bson:"count"`
		} `bson:"total"`
	}
	if err := cur.All(ctx, &results); err != nil {
		return nil, 0, fmt.Errorf("adoption decode: %w", err)
	}
	if len(results) == 0 {
		return nil, 0, nil
	}
	var total int64
	if len(results[0].Total) > 0 {
		total = results[0].Total[0].Count
	}
	return results[0].Data, total, nil
}

func lookupPetStage() mongo.Pipeline {
	return mongo.Pipeline{
		bson.D{{Key: "$lookup", Value: bson.M{
			"from":         "pets",
			"localField":   "pet_id",
			"foreignField": "_id",
			"as":           "pet",
		}}},
		bson.D{{Key: "$unwind", Value: bson.M{
			"path":                       "$pet",
			"preserveNullAndEmptyArrays": true,
		}}},
	}
}

// ListByUser returns one page of the user's applications joined with pet
// data, newest first. The optional search term matches the joined pet's name
// or breed; status narrows by application status.
func (s *AdoptionStore) ListByUser(ctx context.Context, userID string, status models.ApplicationStatus, search string, page models.PageRequest) ([]JoinedApplication, int64, error) {
	match := bson.M{"user_id": userID}
	if status != "" {
		match["status"] = status
	}
	pipeline := mongo.Pipeline{bson.D{{Key: "$match", Value: match}}}
	pipeline = append(pipeline, lookupPetStage()...)
	if search != "" {
		regex := primitive.Regex{Pattern: search, Options: "i"}
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: bson.M{
			"$or": bson.A{
				bson.M{"pet.name": regex},
				bson.M{"pet.breed": regex},
			},
		}}})
	}
	return s.runPaged(ctx, pagedPipeline(pipeline, page))
}

// ListAll returns one page of all applications joined with pet data, newest
// first. The search term matches the pet name; userIDs carries the ids of
// users whose email matched the same term, resolved against the identity
// store by the caller. Both conditions are applied before pagination.
func (s *AdoptionStore) ListAll(ctx context.Context, status models.ApplicationStatus, search string, userIDs []string, page models.PageRequest) ([]JoinedApplication, int64, error) {
	pipeline := mongo.Pipeline{}
	if status != "" {
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: bson.M{"status": status}}})
	}
	pipeline = append(pipeline, lookupPetStage()...)
	if search != "" {
		regex := primitive.Regex{Pattern: search, Options: "i"}
		or := bson.A{bson.M{"pet.name": regex}}
		if len(userIDs) > 0 {
			or = append(or, bson.M{"user_id": bson.M{"$in": userIDs}})
		}
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: bson.M{"$or": or}}})
	}
	return s.runPaged(ctx, pagedPipeline(pipeline, page))
}
