package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/99minutos/todo-system/internal/core/domain"
)

const refreshTokensCollection = "refresh_tokens"

// RefreshTokenRepository stores one document per user. Unique indexes on
// user_id and token turn a racing second insert into ErrRefreshTokenExists.
type RefreshTokenRepository struct {
	coll *mongo.Collection
}

func NewRefreshTokenRepository(db *mongo.Database) *RefreshTokenRepository {
	return &RefreshTokenRepository{coll: db.Collection(refreshTokensCollection)}
}

type mongoRefreshToken struct {
	ID        string `bson:"_id"`
	Token     string `bson:"token"`
	UserID    int64  `bson:"user_id"`
	CreatedAt int64  `bson:"created_at"`
}

func (r *RefreshTokenRepository) Create(ctx context.Context, t *domain.RefreshToken) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.coll.InsertOne(ctx, mongoRefreshToken{
		ID:        t.ID,
		Token:     t.Token,
		UserID:    t.UserID,
		CreatedAt: t.CreatedAt.Unix(),
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrRefreshTokenExists
		}
		return fmt.Errorf("insert refresh token: %w", err)
	}
	return nil
}

func (r *RefreshTokenRepository) FindByUserID(ctx context.Context, userID int64) (*domain.RefreshToken, error) {
	return r.findOne(ctx, bson.M{"user_id": userID})
}

func (r *RefreshTokenRepository) FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	return r.findOne(ctx, bson.M{"token": token})
}

func (r *RefreshTokenRepository) DeleteByToken(ctx context.Context, token string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.coll.DeleteOne(ctx, bson.M{"token": token})
	if err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrRefreshTokenNotFound
	}
	return nil
}

func (r *RefreshTokenRepository) findOne(ctx context.Context, filter bson.M) (*domain.RefreshToken, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc mongoRefreshToken
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrRefreshTokenNotFound
		}
		return nil, fmt.Errorf("find refresh token: %w", err)
	}
	return &domain.RefreshToken{
		ID:        doc.ID,
		Token:     doc.Token,
		UserID:    doc.UserID,
		CreatedAt: unixToTime(doc.CreatedAt),
	}, nil
}

// EnsureIndexes creates the unique user_id and token indexes.
func (r *RefreshTokenRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := r.coll.Indexes().CreateMany(ctx, uniqueIndexes("user_id", "token"))
	return err
}
