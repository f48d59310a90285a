package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/GooseOb/pai2024/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type mongoStore struct {
	db       *mongo.Database
	persons  *mongoRepo[models.Person]
	projects *mongoRepo[models.Project]
	tasks    *mongoRepo[models.Task]
	sessions *mongoRepo[models.Session]
}

// NewMongo returns a Store with one collection per entity in db.
func NewMongo(db *mongo.Database) Store {
	return &mongoStore{
		db:       db,
		persons:  &mongoRepo[models.Person]{coll: db.Collection(models.Person{}.TableName())},
		projects: &mongoRepo[models.Project]{coll: db.Collection(models.Project{}.TableName())},
		tasks:    &mongoRepo[models.Task]{coll: db.Collection(models.Task{}.TableName())},
		sessions: &mongoRepo[models.Session]{coll: db.Collection(models.Session{}.TableName())},
	}
}

func (s *mongoStore) Persons() Repository[models.Person]   { return s.persons }
func (s *mongoStore) Projects() Repository[models.Project] { return s.projects }
func (s *mongoStore) Tasks() Repository[models.Task]       { return s.tasks }
func (s *mongoStore) Sessions() Repository[models.Session] { return s.sessions }

func (s *mongoStore) Ping(ctx context.Context) error {
	return s.db.Client().Ping(ctx, nil)
}

func (s *mongoStore) Close(ctx context.Context) error {
	return s.db.Client().Disconnect(ctx)
}

type mongoRepo[T Entity] struct {
	coll *mongo.Collection
}

func mongoErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	default:
		return err
	}
}

func mongoFilter(f Filter) bson.M {
	m := bson.M{}
	for k, v := range f {
		if k == FieldID {
			k = "_id"
		}
		m[k] = v
	}
	return m
}

func (r *mongoRepo[T]) List(ctx context.Context, f Filter) ([]T, error) {
	cur, err := r.coll.Find(ctx, mongoFilter(f))
	if err != nil {
		return nil, mongoErr(err)
	}
	out := make([]T, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, mongoErr(err)
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

func (r *mongoRepo[T]) Get(ctx context.Context, id string) (*T, error) {
	var v T
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&v); err != nil {
		return nil, mongoErr(err)
	}
	return &v, nil
}

func (r *mongoRepo[T]) Count(ctx context.Context, f Filter) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, mongoFilter(f))
	return n, mongoErr(err)
}

func (r *mongoRepo[T]) Create(ctx context.Context, v *T) error {
	_, err := r.coll.InsertOne(ctx, v)
	return mongoErr(err)
}

func (r *mongoRepo[T]) Update(ctx context.Context, v *T) error {
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": (*v).EntityID()}, v)
	if err != nil {
		return mongoErr(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoRepo[T]) Delete(ctx context.Context, id string) (*T, error) {
	var v T
	if err := r.coll.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&v); err != nil {
		return nil, mongoErr(err)
	}
	return &v, nil
}

func (r *mongoRepo[T]) DeleteMany(ctx context.Context, f Filter) (int64, error) {
	if len(f) == 0 {
		return 0, errors.New("store: DeleteMany requires a filter")
	}
	res, err := r.coll.DeleteMany(ctx, mongoFilter(f))
	if err != nil {
		return 0, mongoErr(err)
	}
	return res.DeletedCount, nil
}
