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
	"github.com/99minutos/todo-system/internal/core/ports"
)

const todosCollection = "todos"

type TodoRepository struct {
	col *mongo.Collection
	seq *Sequence
}

func NewTodoRepository(db *mongo.Database) *TodoRepository {
	return &TodoRepository{
		col: db.Collection(todosCollection),
		seq: NewSequence(db, todosCollection),
	}
}

type mongoTodo struct {
	ID          int64     `bson:"_id"`
	Title       string    `bson:"title"`
	Description string    `bson:"description"`
	Completed   bool      `bson:"completed"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

func toMongoTodo(t *domain.Todo) mongoTodo {
	return mongoTodo{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Completed:   t.Completed,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func (m mongoTodo) toDomain() *domain.Todo {
	return &domain.Todo{
		ID:          m.ID,
		Title:       m.Title,
		Description: m.Description,
		Completed:   m.Completed,
		CreatedAt:   m.CreatedAt.UTC(),
		UpdatedAt:   m.UpdatedAt.UTC(),
	}
}

// Create assigns the next todo id and inserts the document.
func (r *TodoRepository) Create(ctx context.Context, t *domain.Todo) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	id, err := r.seq.Next(ctx)
	if err != nil {
		return err
	}
	t.ID = id

	if _, err := r.col.InsertOne(ctx, toMongoTodo(t)); err != nil {
		return fmt.Errorf("insert todo: %w", err)
	}
	return nil
}

func (r *TodoRepository) FindByID(ctx context.Context, id int64) (*domain.Todo, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc mongoTodo
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrTodoNotFound
		}
		return nil, err
	}
	return doc.toDomain(), nil
}

// List returns todos ordered by id together with the total count. A zero
// Limit returns every row.
func (r *TodoRepository) List(ctx context.Context, f ports.ListTodosFilter) ([]*domain.Todo, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	total, err := r.col.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, fmt.Errorf("count todos: %w", err)
	}

	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	if f.Limit > 0 {
		opts.SetSkip(int64((f.Page - 1) * f.Limit)).SetLimit(int64(f.Limit))
	}

	cur, err := r.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list todos: %w", err)
	}
	defer cur.Close(ctx)

	var docs []mongoTodo
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("decode todos: %w", err)
	}

	out := make([]*domain.Todo, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, total, nil
}

func (r *TodoRepository) Update(ctx context.Context, t *domain.Todo) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateOne(ctx, bson.M{"_id": t.ID}, bson.M{"$set": bson.M{
		"title":       t.Title,
		"description": t.Description,
		"completed":   t.Completed,
		"updated_at":  t.UpdatedAt,
	}})
	if err != nil {
		return fmt.Errorf("update todo: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrTodoNotFound
	}
	return nil
}

func (r *TodoRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete todo: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrTodoNotFound
	}
	return nil
}
