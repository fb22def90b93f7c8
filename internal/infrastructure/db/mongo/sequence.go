package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const countersCollection = "counters"

// Sequence hands out monotonically increasing numeric ids backed by an
// atomic $inc on a counters document.
type Sequence struct {
	coll *mongo.Collection
	name string
}

func NewSequence(db *mongo.Database, name string) *Sequence {
	return &Sequence{coll: db.Collection(countersCollection), name: name}
}

// Next returns the next id, starting at 1.
func (s *Sequence) Next(ctx context.Context) (int64, error) {
	var doc struct {
		Seq int64 `bson:"seq"`
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	err := s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": s.name},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		opts,
	).Decode(&doc)
	if err != nil {
		return 0, fmt.Errorf("next %s id: %w", s.name, err)
	}
	return doc.Seq, nil
}
