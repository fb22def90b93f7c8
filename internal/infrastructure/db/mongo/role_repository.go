package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/99minutos/todo-system/internal/core/domain"
)

const rolesCollection = "roles"

type RoleRepository struct {
	coll *mongo.Collection
	seq  *Sequence
}

func NewRoleRepository(db *mongo.Database) *RoleRepository {
	return &RoleRepository{
		coll: db.Collection(rolesCollection),
		seq:  NewSequence(db, rolesCollection),
	}
}

type mongoRole struct {
	ID   int64  `bson:"_id"`
	Name string `bson:"name"`
}

func (r *RoleRepository) FindByName(ctx context.Context, name string) (*domain.Role, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var mr mongoRole
	if err := r.coll.FindOne(ctx, bson.M{"name": name}).Decode(&mr); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", domain.ErrRoleNotConfigured, name)
		}
		return nil, fmt.Errorf("find role: %w", err)
	}
	return &domain.Role{ID: mr.ID, Name: mr.Name}, nil
}

// resolve maps embedded role names back to role records. Names that no
// longer exist in the roles collection are dropped.
func (r *RoleRepository) resolve(ctx context.Context, names []string) ([]domain.Role, error) {
	if len(names) == 0 {
		return nil, nil
	}

	cur, err := r.coll.Find(ctx, bson.M{"name": bson.M{"$in": names}})
	if err != nil {
		return nil, fmt.Errorf("resolve roles: %w", err)
	}
	defer cur.Close(ctx)

	var docs []mongoRole
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("resolve roles: %w", err)
	}

	roles := make([]domain.Role, 0, len(docs))
	for _, d := range docs {
		roles = append(roles, domain.Role{ID: d.ID, Name: d.Name})
	}
	return roles, nil
}

// Seed inserts any of names that are missing. Existing roles keep their ids.
func (r *RoleRepository) Seed(ctx context.Context, names ...string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	for _, name := range names {
		n, err := r.coll.CountDocuments(ctx, bson.M{"name": name})
		if err != nil {
			return fmt.Errorf("seed role %s: %w", name, err)
		}
		if n > 0 {
			continue
		}

		id, err := r.seq.Next(ctx)
		if err != nil {
			return err
		}
		_, err = r.coll.UpdateOne(ctx,
			bson.M{"name": name},
			bson.M{"$setOnInsert": mongoRole{ID: id, Name: name}},
			options.Update().SetUpsert(true),
		)
		if err != nil && !mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("seed role %s: %w", name, err)
		}
	}
	return nil
}

// EnsureIndexes creates the unique name index.
func (r *RoleRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.coll.Indexes().CreateMany(ctx, uniqueIndexes("name"))
	return err
}

func uniqueIndexes(fields ...string) []mongo.IndexModel {
	models := make([]mongo.IndexModel, 0, len(fields))
	for _, f := range fields {
		models = append(models, mongo.IndexModel{
			Keys:    bson.D{{Key: f, Value: 1}},
			Options: options.Index().SetUnique(true),
		})
	}
	return models
}
