package mongo

import (
	"context"
	"errors"
	"log"
	"time"

	"streamvault/video-platform/internal/domain"
	"streamvault/video-platform/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const videoCollectionName = "videos"

// mongoVideoRepository implements repository.VideoRepository
type mongoVideoRepository struct {
	collection *mongo.Collection
}

// NewMongoVideoRepository creates a new Video repository backed by MongoDB.
func NewMongoVideoRepository(db *mongo.Database) repository.VideoRepository {
	return &mongoVideoRepository{
		collection: db.Collection(videoCollectionName),
	}
}

// Create inserts a new video record into the database.
func (r *mongoVideoRepository) Create(ctx context.Context, video *domain.Video) (primitive.ObjectID, error) {
	// Basic validation
	if video.Filename == "" || video.OriginalName == "" || video.FilePath == "" ||
		video.TenantID == primitive.NilObjectID || video.UploadedBy == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("video requires filename, originalName, filePath, tenantId and uploadedBy")
	}

	now := time.Now().UTC()
	video.ID = primitive.NewObjectID()
	if video.Status == "" {
		video.Status = domain.StatusUploaded
	}
	video.CreatedAt = now
	video.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, video)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, repository.ErrDuplicateKey
		}
		return primitive.NilObjectID, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted ID")
	}

	return insertedID, nil
}

// GetByID retrieves a video by id within the given tenant. A valid id owned
// by another tenant returns ErrNotFound, same as an unknown id.
func (r *mongoVideoRepository) GetByID(ctx context.Context, id, tenantID primitive.ObjectID) (*domain.Video, error) {
	var video domain.Video
	filter := bson.M{"_id": id, "tenantId": tenantID}

	err := r.collection.FindOne(ctx, filter).Decode(&video)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &video, nil
}

// List returns one page of a tenant's videos, newest first.
func (r *mongoVideoRepository) List(ctx context.Context, tenantID primitive.ObjectID, filter repository.VideoFilter, page, limit int) ([]domain.Video, *repository.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	query := bson.M{"tenantId": tenantID}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.Sensitivity != "" {
		query["sensitivity"] = filter.Sensitivity
	}
	if filter.Search != "" {
		regex := primitive.Regex{Pattern: filter.Search, Options: "i"}
		query["$or"] = bson.A{
			bson.M{"originalName": regex},
			bson.M{"description": regex},
			bson.M{"tags": regex},
		}
	}

	total, err := r.collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, nil, err
	}

	findOptions := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, query, findOptions)
	if err != nil {
		return nil, nil, err
	}
	defer cursor.Close(ctx)

	videos := []domain.Video{}
	if err := cursor.All(ctx, &videos); err != nil {
		return nil, nil, err
	}

	pages := int((total + int64(limit) - 1) / int64(limit))
	pagination := &repository.Pagination{
		Page:  page,
		Limit: limit,
		Total: total,
		Pages: pages,
	}
	return videos, pagination, nil
}

// UpdateStatus applies a status transition plus the patched fields in a single
// conditional write scoped by (id, tenantId). Returns the updated document.
func (r *mongoVideoRepository) UpdateStatus(ctx context.Context, id, tenantID primitive.ObjectID, status domain.VideoStatus, patch repository.VideoPatch) (*domain.Video, error) {
	set := bson.M{
		"status":    status,
		"updatedAt": time.Now().UTC(),
	}
	if patch.Progress != nil {
		set["progress"] = *patch.Progress
	}
	if patch.Metadata != nil {
		set["metadata"] = *patch.Metadata
	}
	if patch.Sensitivity != nil {
		set["sensitivity"] = *patch.Sensitivity
	}
	if patch.ErrorMessage != nil {
		set["errorMessage"] = *patch.ErrorMessage
	}
	if patch.ArchiveKey != nil {
		set["archiveKey"] = *patch.ArchiveKey
	}
	if patch.ProcessingStartedAt != nil {
		set["processingStartedAt"] = *patch.ProcessingStartedAt
	}
	if patch.ProcessingCompletedAt != nil {
		set["processingCompletedAt"] = *patch.ProcessingCompletedAt
	}

	filter := bson.M{"_id": id, "tenantId": tenantID}
	update := bson.M{"$set": set}
	if patch.ClearOutcome {
		update["$unset"] = bson.M{
			"errorMessage":          "",
			"sensitivity":           "",
			"processingCompletedAt": "",
		}
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var video domain.Video
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&video)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &video, nil
}

// Delete removes a video record within the given tenant and returns the
// removed document so the caller can delete the backing file as well.
func (r *mongoVideoRepository) Delete(ctx context.Context, id, tenantID primitive.ObjectID) (*domain.Video, error) {
	filter := bson.M{"_id": id, "tenantId": tenantID}

	var video domain.Video
	err := r.collection.FindOneAndDelete(ctx, filter).Decode(&video)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &video, nil
}

// Stats aggregates counts by status and sensitivity plus total byte size over
// the tenant's videos.
func (r *mongoVideoRepository) Stats(ctx context.Context, tenantID primitive.ObjectID) (*repository.VideoStats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"tenantId": tenantID}}},
		{{Key: "$facet", Value: bson.M{
			"byStatus": bson.A{
				bson.M{"$group": bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}},
			},
			"bySensitivity": bson.A{
				bson.M{"$group": bson.M{"_id": "$sensitivity", "count": bson.M{"$sum": 1}}},
			},
			"totals": bson.A{
				bson.M{"$group": bson.M{"_id": nil, "count": bson.M{"$sum": 1}, "size": bson.M{"$sum": "$size"}}},
			},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var results []struct {
		ByStatus []struct {
			ID    string `bson:"_id"`
			Count int64  `bson:"count"`
		} `bson:"byStatus"`
		BySensitivity []struct {
			ID    string `bson:"_id"`
			Count int64  `bson:"count"`
		} `bson:"bySensitivity"`
		Totals []struct {
			Count int64 `bson:"count"`
			Size  int64 `bson:"size"`
		} `bson:"totals"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return nil, err
	}

	stats := &repository.VideoStats{
		ByStatus: map[string]int64{
			string(domain.StatusUploaded):   0,
			string(domain.StatusProcessing): 0,
			string(domain.StatusCompleted):  0,
			string(domain.StatusFailed):     0,
		},
		BySensitivity: map[string]int64{
			string(domain.SensitivitySafe):    0,
			string(domain.SensitivityFlagged): 0,
			"unknown":                         0,
		},
	}
	if len(results) == 0 {
		return stats, nil
	}

	for _, g := range results[0].ByStatus {
		stats.ByStatus[g.ID] = g.Count
	}
	for _, g := range results[0].BySensitivity {
		key := g.ID
		if key == "" {
			// Videos the pipeline has not classified yet.
			key = "unknown"
		}
		stats.BySensitivity[key] = g.Count
	}
	if len(results[0].Totals) > 0 {
		stats.TotalVideos = results[0].Totals[0].Count
		stats.TotalSize = results[0].Totals[0].Size
	}
	return stats, nil
}

// EnsureVideoIndexes creates necessary indexes for the videos collection.
func EnsureVideoIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			// Stored filenames are uuid-based and must stay unique.
			Keys:    bson.D{{Key: "filename", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			// Tenant-scoped listing filtered by status.
			Keys:    bson.D{{Key: "tenantId", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "tenantId", Value: 1}, {Key: "uploadedBy", Value: 1}},
			Options: options.Index(),
		},
	}

	if _, err := collection.Indexes().CreateMany(ctx, indexes); err != nil {
		log.Printf("WARN: Failed to create indexes for collection %s: %v", collection.Name(), err)
	}
}
