package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Kyz7/kingsbuilder/internal/models"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	VersionsCollection = "page_versions"
	versionIndexName   = "shop_page_version_unique"
	mongoOpTimeout     = 10 * time.Second
)

// versionDoc is the stored shape. Content is kept as the JSON text sent by
// the editor so every accepted shape stores without conversion.
type versionDoc struct {
	ID          bson.ObjectID `bson:"_id,omitempty"`
	PageID      string        `bson:"pageId"`
	Shop        string        `bson:"shop"`
	Version     int           `bson:"version"`
	Title       string        `bson:"title"`
	ContentJSON string        `bson:"contentJson"`
	Comment     string        `bson:"comment"`
	CreatedBy   string        `bson:"createdBy"`
	CreatedAt   time.Time     `bson:"createdAt"`
}

// MongoStore persists versions in MongoDB. The unique index on
// (shop, pageId, version) rejects a writer that lost the max+1 race; Append
// then retries with a fresh number.
type MongoStore struct {
	coll *mongo.Collection
	now  func() time.Time
}

// NewMongoStore ensures the unique version index exists before returning.
func NewMongoStore(ctx context.Context, db *mongo.Database) (*MongoStore, error) {
	coll := db.Collection(VersionsCollection)

	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "shop", Value: 1},
			{Key: "pageId", Value: 1},
			{Key: "version", Value: 1},
		},
		Options: options.Index().SetUnique(true).SetName(versionIndexName),
	})
	if err != nil {
		return nil, fmt.Errorf("create version index: %w", err)
	}

	return &MongoStore{coll: coll, now: time.Now}, nil
}

func (s *MongoStore) Available() bool { return s.coll != nil }

func (s *MongoStore) Append(ctx context.Context, in AppendInput) (*models.PageVersion, error) {
	contentJSON, err := json.Marshal(in.Content)
	if err != nil {
		return nil, fmt.Errorf("encode content: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	for attempt := 1; attempt <= maxAppendAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrVersionConflict, err)
		}

		latest, err := s.latestVersion(ctx, in.PageID, in.Shop)
		if err != nil {
			return nil, err
		}

		v := in.build(latest+1, s.now())
		doc := versionDoc{
			PageID:      v.PageID,
			Shop:        v.Shop,
			Version:     v.Version,
			Title:       v.Title,
			ContentJSON: string(contentJSON),
			Comment:     v.Comment,
			CreatedBy:   v.CreatedBy,
			CreatedAt:   v.CreatedAt,
		}

		_, err = s.coll.InsertOne(ctx, doc)
		if err == nil {
			return &v, nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("insert version: %w", err)
		}

		log.Debug().
			Str("shop", in.Shop).
			Str("page_id", in.PageID).
			Int("version", v.Version).
			Int("attempt", attempt).
			Msg("[MONGO] version number taken, retrying")
	}

	return nil, ErrVersionConflict
}

func (s *MongoStore) latestVersion(ctx context.Context, pageID, shop string) (int, error) {
	opts := options.FindOne().
		SetSort(bson.D{{Key: "version", Value: -1}}).
		SetProjection(bson.D{{Key: "version", Value: 1}})

	var doc versionDoc
	err := s.coll.FindOne(ctx, bson.M{"shop": shop, "pageId": pageID}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read latest version: %w", err)
	}
	return doc.Version, nil
}

func (s *MongoStore) ListByPage(ctx context.Context, pageID, shop string) ([]models.PageVersion, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "version", Value: -1}})
	cursor, err := s.coll.Find(ctx, bson.M{"shop": shop, "pageId": pageID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find versions: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []versionDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode versions: %w", err)
	}

	versions := make([]models.PageVersion, 0, len(docs))
	for _, d := range docs {
		v, err := docToVersion(d)
		if err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, nil
}

func (s *MongoStore) Get(ctx context.Context, pageID, shop string, version int) (*models.PageVersion, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	var doc versionDoc
	err := s.coll.FindOne(ctx, bson.M{"shop": shop, "pageId": pageID, "version": version}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find version: %w", err)
	}

	v, err := docToVersion(doc)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *MongoStore) DeleteAllForPage(ctx context.Context, pageID, shop string) error {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	res, err := s.coll.DeleteMany(ctx, bson.M{"shop": shop, "pageId": pageID})
	if err != nil {
		return fmt.Errorf("delete versions: %w", err)
	}

	log.Debug().Str("shop", shop).Str("page_id", pageID).Int64("deleted", res.DeletedCount).Msg("[MONGO] versions deleted")
	return nil
}

func docToVersion(d versionDoc) (models.PageVersion, error) {
	var content models.PageContent
	if d.ContentJSON != "" {
		if err := json.Unmarshal([]byte(d.ContentJSON), &content); err != nil {
			return models.PageVersion{}, fmt.Errorf("decode content of version %d: %w", d.Version, err)
		}
	}

	return models.PageVersion{
		PageID:    d.PageID,
		Shop:      d.Shop,
		Version:   d.Version,
		Title:     d.Title,
		Content:   content,
		Comment:   d.Comment,
		CreatedBy: d.CreatedBy,
		CreatedAt: d.CreatedAt,
	}, nil
}
