package implementation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"studyhub-be/internal/entity"
	"studyhub-be/internal/repository/contract"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const noteCanvasCollection = "notecanvasstates"

// noteCanvasDocument mirrors the documents written by the original Node
// backend, so both can share one collection.
type noteCanvasDocument struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	UserID    string        `bson:"user_id"`
	Data      bson.Raw      `bson:"data"`
	CreatedAt time.Time     `bson:"createdAt"`
	UpdatedAt time.Time     `bson:"updatedAt"`
}

var _ contract.NoteCanvasRepository = (*NoteCanvasMongoRepository)(nil)

type NoteCanvasMongoRepository struct {
	client *mongo.Client
	coll   *mongo.Collection
}

func NewNoteCanvasMongoRepository(client *mongo.Client, database string) *NoteCanvasMongoRepository {
	return &NoteCanvasMongoRepository{
		client: client,
		coll:   client.Database(database).Collection(noteCanvasCollection),
	}
}

// EnsureIndexes creates the unique user_id index.
func (r *NoteCanvasMongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (r *NoteCanvasMongoRepository) FindByUserID(ctx context.Context, userID string) (*entity.NoteCanvasState, error) {
	var doc noteCanvasDocument
	err := r.coll.FindOne(ctx, bson.M{"user_id": userID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return toCanvasEntity(&doc)
}

func (r *NoteCanvasMongoRepository) Upsert(ctx context.Context, state *entity.NoteCanvasState) (*entity.NoteCanvasState, error) {
	data, err := jsonToBSON(state.Data)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	update := bson.M{
		"$set":         bson.M{"user_id": state.UserId, "data": data, "updatedAt": now},
		"$setOnInsert": bson.M{"createdAt": now},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var doc noteCanvasDocument
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"user_id": state.UserId}, update, opts).Decode(&doc); err != nil {
		return nil, err
	}
	return toCanvasEntity(&doc)
}

func (r *NoteCanvasMongoRepository) DeleteByUserID(ctx context.Context, userID string) error {
	_, err := r.coll.DeleteOne(ctx, bson.M{"user_id": userID})
	return err
}

func (r *NoteCanvasMongoRepository) List(ctx context.Context, limit, offset int) ([]*entity.NoteCanvasState, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	if offset > 0 {
		opts.SetSkip(int64(offset))
	}

	cursor, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []noteCanvasDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*entity.NoteCanvasState, 0, len(docs))
	for i := range docs {
		e, err := toCanvasEntity(&docs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *NoteCanvasMongoRepository) Count(ctx context.Context) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.M{})
}

func (r *NoteCanvasMongoRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, nil)
}

// jsonToBSON stores the snapshot as a real sub-document rather than a
// string. Integers stay integers thanks to relaxed extended JSON parsing.
func jsonToBSON(raw []byte) (bson.D, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return bson.D{}, nil
	}
	var doc bson.D
	if err := bson.UnmarshalExtJSON(raw, false, &doc); err != nil {
		return nil, fmt.Errorf("snapshot is not a json object: %w", err)
	}
	return doc, nil
}

func toCanvasEntity(doc *noteCanvasDocument) (*entity.NoteCanvasState, error) {
	data := []byte("{}")
	if len(doc.Data) > 0 {
		out, err := bson.MarshalExtJSON(doc.Data, false, false)
		if err != nil {
			return nil, fmt.Errorf("decode stored snapshot: %w", err)
		}
		data = out
	}
	return &entity.NoteCanvasState{
		Id:        doc.ID.Hex(),
		UserId:    doc.UserID,
		Data:      data,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}, nil
}
