package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/edustream/session-system/internal/core/domain"
)

const profilesCollection = "account_profiles"

// ProfileRepository persists account profiles keyed by the identity
// provider's account id.
type ProfileRepository struct {
	coll *mongo.Collection
}

func NewProfileRepository(db *mongo.Database) *ProfileRepository {
	return &ProfileRepository{coll: db.Collection(profilesCollection)}
}

type profileDoc struct {
	ID                 string `bson:"_id"`
	Email              string `bson:"email,omitempty"`
	Role               string `bson:"role"`
	SubscriptionActive bool   `bson:"subscription_active"`
	SubscriptionExpiry int64  `bson:"subscription_expiry,omitempty"`
	CreatedAt          int64  `bson:"created_at"`
	UpdatedAt          int64  `bson:"updated_at"`
}

func (r *ProfileRepository) Get(ctx context.Context, accountID string) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc profileDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": accountID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, storeErr("find profile", err)
	}
	return doc.toDomain(), nil
}

func (r *ProfileRepository) Create(ctx context.Context, account *domain.Account) (*domain.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := profileDoc{
		ID:                 account.ID,
		Email:              account.Email,
		Role:               account.Role,
		SubscriptionActive: account.SubscriptionActive,
		CreatedAt:          account.CreatedAt.Unix(),
		UpdatedAt:          account.UpdatedAt.Unix(),
	}
	if !account.SubscriptionExpiry.IsZero() {
		doc.SubscriptionExpiry = account.SubscriptionExpiry.Unix()
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// Concurrent first login created it; return the stored profile.
			return r.Get(ctx, account.ID)
		}
		return nil, storeErr("insert profile", err)
	}
	return doc.toDomain(), nil
}

func (d profileDoc) toDomain() *domain.Account {
	return &domain.Account{
		ID:                 d.ID,
		Email:              d.Email,
		Role:               d.Role,
		SubscriptionActive: d.SubscriptionActive,
		SubscriptionExpiry: unixToTime(d.SubscriptionExpiry),
		CreatedAt:          unixToTime(d.CreatedAt),
		UpdatedAt:          unixToTime(d.UpdatedAt),
	}
}

func unixToTime(ts int64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}
