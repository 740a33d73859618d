// File: /database/database.go
package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"yonkoma-api/config"
	"yonkoma-api/models"
	"yonkoma-api/repositories"
	"yonkoma-api/utils"
)

// Open connects the backend selected by cfg.StoreDriver
func Open(ctx context.Context, cfg *config.Config) (*repositories.Store, error) {
	switch cfg.StoreDriver {
	case config.StoreMemory, "":
		store, _ := repositories.NewMemoryBackend()
		return store, nil
	case config.StoreFirestore:
		fs, err := repositories.NewFirestoreStore(ctx, cfg.FirestoreProjectID, cfg.FirestoreCredentialsFile)
		if err != nil {
			return nil, err
		}
		return repositories.NewFirestoreBackend(fs), nil
	case config.StoreMySQL, config.StorePostgres:
		db, err := Initialize(cfg.StoreDriver, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := Migrate(db); err != nil {
			return nil, err
		}
		return repositories.NewGormBackend(db), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

func Initialize(driver, databaseURL string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case config.StorePostgres:
		dialector = postgres.Open(databaseURL)
	default:
		dialector = mysql.Open(databaseURL)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Warn),
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Post{},
		&models.LikeRecord{},
		&models.ReadState{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	addCustomIndexes(db)
	return nil
}

func addCustomIndexes(db *gorm.DB) {
	// Saved items list, newest like first
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_likes_user_liked ON likes(user_id, liked_at DESC)").Error; err != nil {
		log.Warn().Err(err).Msg("Could not create index for likes.")
	}

	// Orphan cleanup scans likes by post
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_likes_post ON likes(post_id)").Error; err != nil {
		log.Warn().Err(err).Msg("Could not create post index for likes.")
	}
}

// unusablePasswordHash is not a valid bcrypt hash, so no password logs in
// as the demo author
const unusablePasswordHash = "$2a$10$dummy"

// SeedData populates an empty store with a demo author and a few posts for
// development
func SeedData(ctx context.Context, store *repositories.Store) error {
	posts, err := store.Posts.ListPosts(ctx)
	if err != nil {
		return fmt.Errorf("failed to check posts: %w", err)
	}
	if len(posts) > 0 {
		log.Info().Msg("Store already has data, skipping seed.")
		return nil
	}

	author := models.User{
		ID:       "user-1",
		Name:     "山田 花子",
		Email:    "hanako@example.com",
		Password: unusablePasswordHash,
	}
	if err := store.Users.CreateUser(ctx, &author); err != nil && !errors.Is(err, repositories.ErrDuplicate) {
		return fmt.Errorf("failed to create seed user: %w", err)
	}

	now := time.Now()
	seeds := []models.Post{
		{ID: "post-1", Title: "ねこの朝", Episode: "第1話"},
		{ID: "post-2", Title: "雨の日", Episode: "第2話"},
		{ID: "post-3", Title: "はじめての遠足", Episode: "第3話"},
	}
	for i, post := range seeds {
		post.UserID = author.ID
		post.ThumbnailPost = fmt.Sprintf("https://picsum.photos/300/200?random=%d", i+1)
		post.PostImages = make(models.StringSlice, 0, models.PanelCount)
		for panel := 0; panel < models.PanelCount; panel++ {
			post.PostImages = append(post.PostImages, fmt.Sprintf("https://picsum.photos/300/300?random=%d%d", i+1, panel))
		}
		post.CreatedAt = utils.FormatTimestamp(now.Add(-time.Duration(i) * time.Hour))
		if err := store.Posts.CreatePost(ctx, &post); err != nil {
			log.Warn().Err(err).Str("post_id", post.ID).Msg("Could not create seed post.")
		}
	}

	log.Info().Int("posts", len(seeds)).Msg("Store seeded with demo data.")
	return nil
}
