package database

import (
	"context"
	"fmt"
	"time"

	"github.com/Kyz7/kingsbuilder/internal/config"
	"github.com/Kyz7/kingsbuilder/internal/history"
	"github.com/Kyz7/kingsbuilder/internal/models"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const connectTimeout = 10 * time.Second

func Connect(cfg *config.Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.PageVersionRecord{}); err != nil {
		return fmt.Errorf("migrate page versions: %w", err)
	}
	log.Info().Msg("✅ Database migrated successfully")
	return nil
}

// ConnectMongo connects and pings so a bad URI fails at start-up.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

// OpenHistory builds the version store named by the configuration. A backend
// that cannot be reached is logged and replaced by history.NoneStore, so the
// service still runs without version history. The returned close function is
// never nil.
func OpenHistory(ctx context.Context, cfg *config.Config) (history.Store, func()) {
	noop := func() {}

	switch cfg.HistoryBackend {
	case config.HistoryMongo:
		client, err := ConnectMongo(ctx, cfg.MongoURI)
		if err != nil {
			log.Error().Err(err).Msg("❌ MongoDB unavailable, version history disabled")
			return history.NoneStore{}, noop
		}
		closeFn := func() {
			if err := client.Disconnect(context.Background()); err != nil {
				log.Warn().Err(err).Msg("⚠️  MongoDB disconnect failed")
			}
		}

		store, err := history.NewMongoStore(ctx, client.Database(cfg.MongoDatabase))
		if err != nil {
			closeFn()
			log.Error().Err(err).Msg("❌ MongoDB index setup failed, version history disabled")
			return history.NoneStore{}, noop
		}
		log.Info().Str("database", cfg.MongoDatabase).Msg("✅ Version history stored in MongoDB")
		return store, closeFn

	case config.HistoryPostgres:
		db, err := Connect(cfg)
		if err == nil {
			err = Migrate(db)
		}
		if err != nil {
			log.Error().Err(err).Msg("❌ Database unavailable, version history disabled")
			return history.NoneStore{}, noop
		}
		closeFn := func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}
		log.Info().Str("database", cfg.DBName).Msg("✅ Version history stored in PostgreSQL")
		return history.NewGormStore(db), closeFn

	case config.HistoryMemory:
		log.Warn().Msg("⚠️  Version history kept in memory only")
		return history.NewMemoryStore(), noop

	default:
		log.Info().Msg("💡 No history backend configured, version history disabled")
		return history.NoneStore{}, noop
	}
}
