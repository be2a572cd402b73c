package storage

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/soaringjerry/psyscore/internal/services"
)

const artifactCollection = "export_artifacts"

// ArtifactCollection is the subset of *mongo.Collection the artifact store
// uses.
type ArtifactCollection interface {
	ReplaceOne(ctx context.Context, filter interface{}, replacement interface{}, opts ...*options.ReplaceOptions) (*mongo.UpdateResult, error)
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult
}

// MongoArtifactStore keeps one document per uploaded export.
type MongoArtifactStore struct {
	coll ArtifactCollection
	db   string
}

func NewMongoArtifactStore(db *mongo.Database) *MongoArtifactStore {
	return &MongoArtifactStore{coll: db.Collection(artifactCollection), db: db.Name()}
}

// Save upserts the artifact by id and returns a mongodb:// location.
func (s *MongoArtifactStore) Save(ctx context.Context, a *services.Artifact) (string, error) {
	opts := options.Replace().SetUpsert(true)
	if _, err := s.coll.ReplaceOne(ctx, bson.M{"_id": a.ID}, a, opts); err != nil {
		return "", fmt.Errorf("storage.Save %s: %w", a.Filename, err)
	}
	return fmt.Sprintf("mongodb://%s/%s/%s", s.db, artifactCollection, a.ID), nil
}

// Get returns nil, nil when no artifact has the id.
func (s *MongoArtifactStore) Get(ctx context.Context, id string) (*services.Artifact, error) {
	var a services.Artifact
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&a)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}
