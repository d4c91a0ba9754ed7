package mongo

import (
	"context"
	"errors"
	"time"

	"streamvault/video-platform/internal/domain"
	"streamvault/video-platform/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

const organizationCollectionName = "organizations"

// mongoOrganizationRepository implements repository.OrganizationRepository
type mongoOrganizationRepository struct {
	collection *mongo.Collection
}

// NewMongoOrganizationRepository creates a new Organization repository backed by MongoDB.
func NewMongoOrganizationRepository(db *mongo.Database) repository.OrganizationRepository {
	return &mongoOrganizationRepository{
		collection: db.Collection(organizationCollectionName),
	}
}

// Create inserts a new organization (tenant) into the database.
func (r *mongoOrganizationRepository) Create(ctx context.Context, org *domain.Organization) (primitive.ObjectID, error) {
	if org.Name == "" {
		return primitive.NilObjectID, errors.New("organization name is required")
	}

	org.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	org.IsActive = true
	org.CreatedAt = now
	org.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, org)
	if err != nil {
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted ID")
	}

	return insertedID, nil
}

// GetByID retrieves an organization by its MongoDB ObjectID.
func (r *mongoOrganizationRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Organization, error) {
	var org domain.Organization
	filter := bson.M{"_id": id}

	err := r.collection.FindOne(ctx, filter).Decode(&org)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &org, nil
}
