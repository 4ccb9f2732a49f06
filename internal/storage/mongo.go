package storage

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// mongoStore implements Store on MongoDB. Rooms live in the "rooms"
// collection of the database named in the connection URI (falling back to
// "journal").
type mongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// mongoRoom is the stored document shape.
type mongoRoom struct {
	ID        string    `bson:"_id"`
	PagesJSON string    `bson:"pagesJson"`
	Version   int64     `bson:"version"`
	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

func newMongoStore(dsn string) (*mongoStore, error) {
	clientOpts := options.Client().ApplyURI(dsn).SetConnectTimeout(10 * time.Second)
	client, err := mongo.Connect(clientOpts)
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	dbName := connstringDatabase(dsn)
	return &mongoStore{
		client: client,
		coll:   client.Database(dbName).Collection("rooms"),
	}, nil
}

// connstringDatabase pulls the database name out of a mongodb:// URI path,
// defaulting to "journal".
func connstringDatabase(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "journal"
	}
	if name := strings.Trim(u.Path, "/"); name != "" {
		return name
	}
	return "journal"
}

func (s *mongoStore) LoadRoom(ctx context.Context, id string) (*RoomRecord, error) {
	var doc mongoRoom
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load room: %w", err)
	}
	return &RoomRecord{
		ID:        doc.ID,
		PagesJSON: []byte(doc.PagesJSON),
		Version:   uint64(doc.Version),
		UpdatedAt: doc.UpdatedAt,
	}, nil
}

func (s *mongoStore) SaveRoom(ctx context.Context, rec *RoomRecord) error {
	now := time.Now()
	doc := mongoRoom{
		ID:        rec.ID,
		PagesJSON: string(rec.PagesJSON),
		Version:   int64(rec.Version),
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": rec.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save room: %w", err)
	}
	return nil
}

func (s *mongoStore) ListRooms(ctx context.Context) ([]string, error) {
	cur, err := s.coll.Find(ctx, bson.M{},
		options.Find().SetProjection(bson.M{"_id": 1}).SetSort(bson.M{"updatedAt": -1}))
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	defer cur.Close(ctx)
	var ids []string
	for cur.Next(ctx) {
		var doc struct {
			ID string `bson:"_id"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode room id: %w", err)
		}
		ids = append(ids, doc.ID)
	}
	return ids, cur.Err()
}

func (s *mongoStore) DeleteRoom(ctx context.Context, id string) error {
	_, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (s *mongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
