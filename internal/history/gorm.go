package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Kyz7/kingsbuilder/internal/models"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// GormStore persists versions in the page_versions table. Version numbers are
// computed as max+1 and the composite unique index rejects a losing writer,
// which then retries with a fresh number.
type GormStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db, now: time.Now}
}

func (s *GormStore) Available() bool { return s.db != nil }

func (s *GormStore) Append(ctx context.Context, in AppendInput) (*models.PageVersion, error) {
	contentJSON, err := json.Marshal(in.Content)
	if err != nil {
		return nil, fmt.Errorf("encode content: %w", err)
	}

	for attempt := 1; attempt <= maxAppendAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrVersionConflict, err)
		}

		latest, err := s.latestVersion(ctx, in.PageID, in.Shop)
		if err != nil {
			return nil, err
		}

		v := in.build(latest+1, s.now())
		record := models.PageVersionRecord{
			Shop:      v.Shop,
			PageID:    v.PageID,
			Version:   v.Version,
			Title:     v.Title,
			Content:   datatypes.JSON(contentJSON),
			Comment:   v.Comment,
			CreatedBy: v.CreatedBy,
			CreatedAt: v.CreatedAt,
		}

		err = s.db.WithContext(ctx).Create(&record).Error
		if err == nil {
			return &v, nil
		}
		if !isDuplicateKey(err) {
			return nil, fmt.Errorf("insert version: %w", err)
		}

		log.Debug().
			Str("shop", in.Shop).
			Str("page_id", in.PageID).
			Int("version", v.Version).
			Int("attempt", attempt).
			Msg("version number taken, retrying")
	}

	return nil, ErrVersionConflict
}

func (s *GormStore) latestVersion(ctx context.Context, pageID, shop string) (int, error) {
	var latest int
	err := s.db.WithContext(ctx).
		Model(&models.PageVersionRecord{}).
		Where("shop = ? AND page_id = ?", shop, pageID).
		Select("COALESCE(MAX(version), 0)").
		Scan(&latest).Error
	if err != nil {
		return 0, fmt.Errorf("read latest version: %w", err)
	}
	return latest, nil
}

func (s *GormStore) ListByPage(ctx context.Context, pageID, shop string) ([]models.PageVersion, error) {
	var records []models.PageVersionRecord
	err := s.db.WithContext(ctx).
		Where("shop = ? AND page_id = ?", shop, pageID).
		Order("version DESC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}

	versions := make([]models.PageVersion, 0, len(records))
	for _, r := range records {
		v, err := recordToVersion(r)
		if err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, nil
}

func (s *GormStore) Get(ctx context.Context, pageID, shop string, version int) (*models.PageVersion, error) {
	var record models.PageVersionRecord
	err := s.db.WithContext(ctx).
		Where("shop = ? AND page_id = ? AND version = ?", shop, pageID, version).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get version: %w", err)
	}

	v, err := recordToVersion(record)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *GormStore) DeleteAllForPage(ctx context.Context, pageID, shop string) error {
	err := s.db.WithContext(ctx).
		Where("shop = ? AND page_id = ?", shop, pageID).
		Delete(&models.PageVersionRecord{}).Error
	if err != nil {
		return fmt.Errorf("delete versions: %w", err)
	}
	return nil
}

func recordToVersion(r models.PageVersionRecord) (models.PageVersion, error) {
	var content models.PageContent
	if len(r.Content) > 0 {
		if err := json.Unmarshal(r.Content, &content); err != nil {
			return models.PageVersion{}, fmt.Errorf("decode content of version %d: %w", r.Version, err)
		}
	}

	return models.PageVersion{
		PageID:    r.PageID,
		Shop:      r.Shop,
		Version:   r.Version,
		Title:     r.Title,
		Content:   content,
		Comment:   r.Comment,
		CreatedBy: r.CreatedBy,
		CreatedAt: r.CreatedAt,
	}, nil
}

// isDuplicateKey recognizes unique violations from drivers that do not
// translate them to gorm.ErrDuplicatedKey.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "sqlstate 23505")
}
