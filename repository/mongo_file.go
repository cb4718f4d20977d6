package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"webdesk/models"
)

type MongoFileRepository struct {
	collection *mongo.Collection
}

func NewMongoFileRepository(db *mongo.Database) *MongoFileRepository {
	return &MongoFileRepository{collection: db.Collection("files")}
}

func (r *MongoFileRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "state", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "physical_path", Value: 1}}},
		{Keys: bson.D{{Key: "state", Value: 1}, {Key: "deleted_at", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create file indexes: %w", err)
	}
	return nil
}

func (r *MongoFileRepository) Create(ctx context.Context, file *models.File) error {
	prepareFile(file, time.Now().UTC())
	if _, err := r.collection.InsertOne(ctx, file); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to insert file: %w", err)
	}
	return nil
}

func (r *MongoFileRepository) FindByIDAndOwner(ctx context.Context, id, ownerID string) (*models.File, error) {
	var file models.File
	err := r.collection.FindOne(ctx, bson.M{"_id": id, "owner_id": ownerID}).Decode(&file)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find file: %w", err)
	}
	return &file, nil
}

func (r *MongoFileRepository) ListByOwner(ctx context.Context, ownerID string, state models.FileState) ([]models.File, error) {
	sortKey := "created_at"
	if state == models.StateTrashed {
		sortKey = "deleted_at"
	}
	opts := options.Find().SetSort(bson.D{{Key: sortKey, Value: -1}})
	return r.find(ctx, bson.M{"owner_id": ownerID, "state": state}, opts)
}

func (r *MongoFileRepository) Update(ctx context.Context, file *models.File) error {
	res, err := r.collection.ReplaceOne(ctx, bson.M{"_id": file.ID, "owner_id": file.OwnerID}, file)
	if err != nil {
		return fmt.Errorf("failed to update file: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoFileRepository) Delete(ctx context.Context, id, ownerID string) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id, "owner_id": ownerID})
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoFileRepository) DeleteByPhysicalPath(ctx context.Context, ownerID, physicalPath string) (int64, error) {
	res, err := r.collection.DeleteMany(ctx, bson.M{"owner_id": ownerID, "physical_path": physicalPath})
	if err != nil {
		return 0, fmt.Errorf("failed to delete files by path: %w", err)
	}
	return res.DeletedCount, nil
}

func (r *MongoFileRepository) DeleteByOwner(ctx context.Context, ownerID string) (int64, error) {
	res, err := r.collection.DeleteMany(ctx, bson.M{"owner_id": ownerID})
	if err != nil {
		return 0, fmt.Errorf("failed to delete files by owner: %w", err)
	}
	return res.DeletedCount, nil
}

func (r *MongoFileRepository) SumActiveSize(ctx context.Context, ownerID string) (int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"owner_id": ownerID, "state": models.StateActive}}},
		{{Key: "$group", Value: bson.M{"_id": nil, "total": bson.M{"$sum": "$size_bytes"}}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("failed to sum file sizes: %w", err)
	}
	defer cursor.Close(ctx)

	var result []struct {
		Total int64 `bson:"total"`
	}
	if err := cursor.All(ctx, &result); err != nil {
		return 0, fmt.Errorf("failed to decode file size total: %w", err)
	}
	if len(result) == 0 {
		return 0, nil
	}
	return result[0].Total, nil
}

func (r *MongoFileRepository) ListTrashedBefore(ctx context.Context, cutoff time.Time) ([]models.File, error) {
	filter := bson.M{
		"state":      models.StateTrashed,
		"deleted_at": bson.M{"$lte": cutoff},
	}
	return r.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "deleted_at", Value: 1}}))
}

func (r *MongoFileRepository) ListPhysicalPaths(ctx context.Context, ownerID string) ([]string, error) {
	files, err := r.find(ctx, bson.M{"owner_id": ownerID}, options.Find().SetProjection(bson.M{"physical_path": 1}))
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(files))
	for _, f := range files {
		paths = append(paths, f.PhysicalPath)
	}
	return paths, nil
}

func (r *MongoFileRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.File, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch files: %w", err)
	}
	defer cursor.Close(ctx)

	files := []models.File{}
	if err := cursor.All(ctx, &files); err != nil {
		return nil, fmt.Errorf("failed to decode files: %w", err)
	}
	return files, nil
}
