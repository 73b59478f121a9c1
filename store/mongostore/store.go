// Package mongostore implements store.Store on MongoDB. Multi-document
// mutations run inside a client session transaction, which needs a replica
// set or sharded deployment.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/duskhollow/server/model"
	"github.com/duskhollow/server/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	colUsers      = "users"
	colCharacters = "characters"
	colStatus     = "character_status"
	colDungeons   = "dungeons"
	colItems      = "items"
	colAudit      = "audit_log"
)

// Store is a MongoDB-backed store.Store.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect dials MongoDB, verifies the connection and ensures indexes.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongostore: connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongostore: ping: %w", err)
	}
	s := &Store{client: client, db: client.Database(database)}
	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

// EnsureIndexes creates the unique and lookup indexes the queries rely on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	specs := map[string][]mongo.IndexModel{
		colUsers: {
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		colCharacters: {
			{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "user_id", Value: 1}}},
			{Keys: bson.D{{Key: "level", Value: -1}, {Key: "experience", Value: -1}}},
		},
		colDungeons: {
			{Keys: bson.D{{Key: "character_id", Value: 1}, {Key: "active", Value: 1}}},
			{Keys: bson.D{{Key: "active", Value: 1}, {Key: "updated_at", Value: 1}}},
		},
		colItems: {
			{Keys: bson.D{{Key: "character_id", Value: 1}}},
		},
		colAudit: {
			{Keys: bson.D{{Key: "character_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
	}
	for name, models := range specs {
		if _, err := s.db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("mongostore: indexes on %s: %w", name, err)
		}
	}
	return nil
}

// Tx runs fn in a session transaction. The driver may retry fn on transient
// errors, so fn must reload whatever it mutates.
func (s *Store) Tx(ctx context.Context, fn func(ctx context.Context, tx store.Store) error) error {
	sess, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("mongostore: start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc, s)
	})
	return err
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *Store) col(name string) *mongo.Collection {
	return s.db.Collection(name)
}

func (s *Store) findOne(ctx context.Context, col string, filter bson.M, out interface{}) error {
	return translate(s.col(col).FindOne(ctx, filter).Decode(out))
}

func (s *Store) replace(ctx context.Context, col, id string, doc interface{}) error {
	res, err := s.col(col).ReplaceOne(ctx, bson.M{"_id": id}, doc)
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func findAll[T any](ctx context.Context, c *mongo.Collection, filter bson.M, opts *options.FindOptions) ([]T, error) {
	cur, err := c.Find(ctx, filter, opts)
	if err != nil {
		return nil, translate(err)
	}
	var out []T
	if err := cur.All(ctx, &out); err != nil {
		return nil, translate(err)
	}
	return out, nil
}

// ---- Users ----

func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	_, err := s.col(colUsers).InsertOne(ctx, u)
	return translate(err)
}

func (s *Store) UserByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	if err := s.findOne(ctx, colUsers, bson.M{"_id": id}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) UserByUsername(ctx context.Context, username string) (*model.User, error) {
	var u model.User
	if err := s.findOne(ctx, colUsers, bson.M{"username": username}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) UpdateUser(ctx context.Context, u *model.User) error {
	return s.replace(ctx, colUsers, u.ID, u)
}

func (s *Store) ListUsers(ctx context.Context, offset, limit int) ([]model.User, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))
	return findAll[model.User](ctx, s.col(colUsers), bson.M{}, opts)
}

// ---- Characters ----

func (s *Store) CreateCharacter(ctx context.Context, c *model.Character) error {
	now := time.Now()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	_, err := s.col(colCharacters).InsertOne(ctx, c)
	return translate(err)
}

func (s *Store) CharacterByID(ctx context.Context, id string) (*model.Character, error) {
	var c model.Character
	if err := s.findOne(ctx, colCharacters, bson.M{"_id": id}, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) CharactersByUser(ctx context.Context, userID string) ([]model.Character, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	return findAll[model.Character](ctx, s.col(colCharacters), bson.M{"user_id": userID}, opts)
}

func (s *Store) UpdateCharacter(ctx context.Context, c *model.Character) error {
	c.UpdatedAt = time.Now()
	return s.replace(ctx, colCharacters, c.ID, c)
}

func (s *Store) DeleteCharacter(ctx context.Context, id string) error {
	res, err := s.col(colCharacters).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return translate(err)
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) TopCharacters(ctx context.Context, limit int) ([]model.Character, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "level", Value: -1}, {Key: "experience", Value: -1}}).
		SetLimit(int64(limit))
	return findAll[model.Character](ctx, s.col(colCharacters), bson.M{}, opts)
}

func (s *Store) CountCharacters(ctx context.Context) (int64, error) {
	n, err := s.col(colCharacters).CountDocuments(ctx, bson.M{})
	return n, translate(err)
}

// ---- Statuses ----

func (s *Store) StatusByCharacter(ctx context.Context, characterID string) (*model.CharacterStatus, error) {
	var st model.CharacterStatus
	if err := s.findOne(ctx, colStatus, bson.M{"_id": characterID}, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *Store) SaveStatus(ctx context.Context, st *model.CharacterStatus) error {
	if st.UpdatedAt.IsZero() {
		st.UpdatedAt = time.Now()
	}
	_, err := s.col(colStatus).ReplaceOne(ctx, bson.M{"_id": st.CharacterID}, st,
		options.Replace().SetUpsert(true))
	return translate(err)
}

func (s *Store) DeleteStatus(ctx context.Context, characterID string) error {
	_, err := s.col(colStatus).DeleteOne(ctx, bson.M{"_id": characterID})
	return translate(err)
}

// ---- Dungeons ----

func (s *Store) CreateDungeon(ctx context.Context, d *model.Dungeon) error {
	now := time.Now()
	if d.StartedAt.IsZero() {
		d.StartedAt = now
	}
	d.UpdatedAt = now
	_, err := s.col(colDungeons).InsertOne(ctx, d)
	return translate(err)
}

func (s *Store) DungeonByID(ctx context.Context, id string) (*model.Dungeon, error) {
	var d model.Dungeon
	if err := s.findOne(ctx, colDungeons, bson.M{"_id": id}, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *Store) ActiveDungeon(ctx context.Context, characterID string) (*model.Dungeon, error) {
	var d model.Dungeon
	if err := s.findOne(ctx, colDungeons, bson.M{"character_id": characterID, "active": true}, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *Store) DungeonsByCharacter(ctx context.Context, characterID string, limit int) ([]model.Dungeon, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "started_at", Value: -1}}).
		SetLimit(int64(limit))
	return findAll[model.Dungeon](ctx, s.col(colDungeons), bson.M{"character_id": characterID}, opts)
}

func (s *Store) UpdateDungeon(ctx context.Context, d *model.Dungeon) error {
	d.UpdatedAt = time.Now()
	return s.replace(ctx, colDungeons, d.ID, d)
}

func (s *Store) DeleteDungeonsByCharacter(ctx context.Context, characterID string) error {
	_, err := s.col(colDungeons).DeleteMany(ctx, bson.M{"character_id": characterID})
	return translate(err)
}

func (s *Store) StaleDungeons(ctx context.Context, before time.Time) ([]model.Dungeon, error) {
	filter := bson.M{"active": true, "updated_at": bson.M{"$lt": before}}
	return findAll[model.Dungeon](ctx, s.col(colDungeons), filter, options.Find())
}

func (s *Store) CountActiveDungeons(ctx context.Context) (int64, error) {
	n, err := s.col(colDungeons).CountDocuments(ctx, bson.M{"active": true})
	return n, translate(err)
}

// ---- Items ----

func (s *Store) CreateItems(ctx context.Context, items []*model.Item) error {
	if len(items) == 0 {
		return nil
	}
	now := time.Now()
	docs := make([]interface{}, len(items))
	for i, it := range items {
		if it.CreatedAt.IsZero() {
			it.CreatedAt = now
		}
		docs[i] = it
	}
	_, err := s.col(colItems).InsertMany(ctx, docs)
	return translate(err)
}

func (s *Store) ItemByID(ctx context.Context, id string) (*model.Item, error) {
	var it model.Item
	if err := s.findOne(ctx, colItems, bson.M{"_id": id}, &it); err != nil {
		return nil, err
	}
	return &it, nil
}

func (s *Store) ItemsByCharacter(ctx context.Context, characterID string) ([]model.Item, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	return findAll[model.Item](ctx, s.col(colItems), bson.M{"character_id": characterID}, opts)
}

func (s *Store) UpdateItem(ctx context.Context, it *model.Item) error {
	return s.replace(ctx, colItems, it.ID, it)
}

func (s *Store) DeleteItem(ctx context.Context, id string) error {
	res, err := s.col(colItems).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return translate(err)
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteItemsByCharacter(ctx context.Context, characterID string) error {
	_, err := s.col(colItems).DeleteMany(ctx, bson.M{"character_id": characterID})
	return translate(err)
}

// ---- Audit ----

func (s *Store) InsertAuditLogs(ctx context.Context, logs []*model.AuditLog) error {
	if len(logs) == 0 {
		return nil
	}
	docs := make([]interface{}, len(logs))
	for i, l := range logs {
		docs[i] = l
	}
	_, err := s.col(colAudit).InsertMany(ctx, docs)
	return translate(err)
}

func (s *Store) AuditLogs(ctx context.Context, characterID string, limit int) ([]model.AuditLog, error) {
	filter := bson.M{}
	if characterID != "" {
		filter["character_id"] = characterID
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))
	return findAll[model.AuditLog](ctx, s.col(colAudit), filter, opts)
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return store.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return store.ErrDuplicate
	}
	return err
}
