package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/pkg/password"
)

const identityCollection = "identities"

// PasswordHasher is the hashing capability the repository needs.
type PasswordHasher interface {
	password.Hasher
	VerifyDummy(password string)
}

// IdentityRepository implements ports.CredentialStore on MongoDB.
type IdentityRepository struct {
	coll   *mongo.Collection
	roles  *RoleRepository
	hasher PasswordHasher
	policy password.Policy
	now    func() time.Time
}

func NewIdentityRepository(db *mongo.Database, roles *RoleRepository, hasher PasswordHasher, policy password.Policy) *IdentityRepository {
	return &IdentityRepository{
		coll:   db.Collection(identityCollection),
		roles:  roles,
		hasher: hasher,
		policy: policy,
		now:    time.Now,
	}
}

type mongoIdentity struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty"`
	Username           string             `bson:"username"`
	NormalizedUsername string             `bson:"normalized_username"`
	Email              string             `bson:"email"`
	NormalizedEmail    string             `bson:"normalized_email"`
	PasswordHash       string             `bson:"password_hash"`
	SecurityStamp      string             `bson:"security_stamp"`
	Roles              []string           `bson:"roles"`
	CreatedAt          int64              `bson:"created_at"`
	UpdatedAt          int64              `bson:"updated_at"`
}

// EnsureIndexes creates the unique username index and the email lookup index.
func (r *IdentityRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "normalized_username", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_normalized_username"),
		},
		{
			Keys:    bson.D{{Key: "normalized_email", Value: 1}},
			Options: options.Index().SetName("idx_normalized_email"),
		},
	})
	if err != nil {
		return fmt.Errorf("ensure identity indexes: %w", err)
	}
	return nil
}

func (r *IdentityRepository) Create(ctx context.Context, in domain.NewIdentity) (*domain.Identity, error) {
	if reasons := r.policy.Check(in.Password); len(reasons) > 0 {
		return nil, domain.NewReasonError(domain.ErrPasswordPolicy, reasons...)
	}

	hash, err := r.hasher.Hash(in.Password)
	if err != nil {
		return nil, hashError(err)
	}

	stamp := in.SecurityStamp
	if stamp == "" {
		stamp = uuid.NewString()
	}

	now := r.now().UTC().Unix()
	doc := mongoIdentity{
		Username:           in.Username,
		NormalizedUsername: normalize(in.Username),
		Email:              in.Email,
		NormalizedEmail:    normalize(in.Email),
		PasswordHash:       hash,
		SecurityStamp:      stamp,
		Roles:              []string{},
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrUserExists
		}
		return nil, fmt.Errorf("insert identity: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		doc.ID = oid
	}
	return doc.toDomain(), nil
}

func (r *IdentityRepository) FindByName(ctx context.Context, username string) (*domain.Identity, error) {
	return r.findOne(ctx, bson.M{"normalized_username": normalize(username)})
}

func (r *IdentityRepository) FindByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	if email == "" {
		return nil, domain.ErrUserNotFound
	}
	return r.findOne(ctx, bson.M{"normalized_email": normalize(email)})
}

// VerifyPassword compares against the stored bcrypt hash. A nil identity is
// checked against a dummy hash and always fails.
func (r *IdentityRepository) VerifyPassword(_ context.Context, identity *domain.Identity, pw string) error {
	if identity == nil || identity.PasswordHash == "" {
		r.hasher.VerifyDummy(pw)
		return domain.ErrInvalidCredentials
	}
	if err := r.hasher.Verify(pw, identity.PasswordHash); err != nil {
		return domain.ErrInvalidCredentials
	}
	return nil
}

// ResetPassword swaps the hash and rotates the stamp in a single conditional
// update, so two concurrent resets with the same token cannot both win.
func (r *IdentityRepository) ResetPassword(ctx context.Context, identityID, expectedStamp, newPassword string) error {
	if reasons := r.policy.Check(newPassword); len(reasons) > 0 {
		return domain.NewReasonError(domain.ErrPasswordPolicy, reasons...)
	}

	oid, err := primitive.ObjectIDFromHex(identityID)
	if err != nil {
		return domain.ErrUserNotFound
	}

	hash, err := r.hasher.Hash(newPassword)
	if err != nil {
		return hashError(err)
	}

	filter := bson.M{"_id": oid, "security_stamp": expectedStamp}
	update := bson.M{"$set": bson.M{
		"password_hash":  hash,
		"security_stamp": uuid.NewString(),
		"updated_at":     r.now().UTC().Unix(),
	}}

	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrStaleStamp
	}
	return nil
}

// RolesOf reads the current role set rather than trusting the passed snapshot.
func (r *IdentityRepository) RolesOf(ctx context.Context, identity *domain.Identity) ([]string, error) {
	oid, err := primitive.ObjectIDFromHex(identity.ID)
	if err != nil {
		return nil, domain.ErrUserNotFound
	}

	var doc struct {
		Roles []string `bson:"roles"`
	}
	opts := options.FindOne().SetProjection(bson.M{"roles": 1})
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find roles: %w", err)
	}
	if doc.Roles == nil {
		return []string{}, nil
	}
	return doc.Roles, nil
}

// AddToRole assigns an existing role. Unknown roles yield domain.ErrRoleNotFound.
func (r *IdentityRepository) AddToRole(ctx context.Context, identity *domain.Identity, role string) error {
	exists, err := r.roles.Exists(ctx, role)
	if err != nil {
		return err
	}
	if !exists {
		return domain.ErrRoleNotFound
	}

	oid, err := primitive.ObjectIDFromHex(identity.ID)
	if err != nil {
		return domain.ErrUserNotFound
	}

	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{
			"$addToSet": bson.M{"roles": role},
			"$set":      bson.M{"updated_at": r.now().UTC().Unix()},
		},
	)
	if err != nil {
		return fmt.Errorf("add to role: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *IdentityRepository) findOne(ctx context.Context, filter bson.M) (*domain.Identity, error) {
	var doc mongoIdentity
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find identity: %w", err)
	}
	return doc.toDomain(), nil
}

func (d mongoIdentity) toDomain() *domain.Identity {
	roles := d.Roles
	if roles == nil {
		roles = []string{}
	}
	return &domain.Identity{
		ID:            d.ID.Hex(),
		Username:      d.Username,
		Email:         d.Email,
		PasswordHash:  d.PasswordHash,
		SecurityStamp: d.SecurityStamp,
		Roles:         roles,
		CreatedAt:     unixToTime(d.CreatedAt),
		UpdatedAt:     unixToTime(d.UpdatedAt),
	}
}

// hashError reports an over-long password as a policy violation.
func hashError(err error) error {
	if errors.Is(err, password.ErrTooLong) {
		return domain.NewReasonError(domain.ErrPasswordPolicy,
			fmt.Sprintf("Passwords must be at most %d bytes.", password.MaxBytes))
	}
	return err
}

// normalize upper-cases lookup keys so username and email matching is case-insensitive.
func normalize(s string) string {
	return strings.ToUpper(s)
}

func unixToTime(ts int64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}
