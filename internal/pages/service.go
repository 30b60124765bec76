// Package pages keeps Shopify pages and their builder version history in
// step. Every operation acts on behalf of an explicit Identity; nothing here
// reads request or session state.
package pages

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Kyz7/kingsbuilder/internal/builder"
	"github.com/Kyz7/kingsbuilder/internal/history"
	"github.com/Kyz7/kingsbuilder/internal/models"
	"github.com/Kyz7/kingsbuilder/internal/shopify"
	"github.com/rs/zerolog/log"
)

var ErrValidation = errors.New("validation failed")

// Identity is the shop an operation runs for. User is recorded as the
// author of version snapshots and may be empty.
type Identity struct {
	Shop  string
	Token string
	User  string
}

// UpstreamError is a failed call to Shopify. Op names the page operation that
// was attempted.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("shopify %s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// PageClient is the subset of the Shopify Admin API the service needs.
type PageClient interface {
	ListPages(ctx context.Context, shop, token string) ([]models.ShopifyPage, error)
	GetPage(ctx context.Context, shop, token, pageID string) (*models.ShopifyPage, error)
	CreatePage(ctx context.Context, shop, token string, in models.PageInput) (*models.ShopifyPage, error)
	UpdatePage(ctx context.Context, shop, token, pageID string, in models.PageInput) (*models.ShopifyPage, error)
	DeletePage(ctx context.Context, shop, token, pageID string) error
}

// PageData is what the editor sends on save, publish and create.
type PageData struct {
	Title     string             `json:"title"`
	Content   models.PageContent `json:"content"`
	Handle    string             `json:"handle,omitempty"`
	Published bool               `json:"published"`
	Comment   string             `json:"comment,omitempty"`
}

// PageResult is the Shopify page after a write. Version is nil when no
// snapshot could be recorded.
type PageResult struct {
	Page    *models.ShopifyPage `json:"page"`
	Version *int                `json:"version"`
}

type VersionList struct {
	Available bool                 `json:"available"`
	Versions  []models.PageVersion `json:"versions"`
}

type Service struct {
	client PageClient
	store  history.Store
}

func NewService(client PageClient, store history.Store) *Service {
	if store == nil {
		store = history.NoneStore{}
	}
	return &Service{client: client, store: store}
}

// HistoryAvailable reports whether a history backend is configured.
func (s *Service) HistoryAvailable() bool {
	return s.store.Available()
}

func (s *Service) ListPages(ctx context.Context, ident Identity) ([]models.ShopifyPage, error) {
	if err := ident.validate(); err != nil {
		return nil, err
	}

	list, err := s.client.ListPages(ctx, ident.Shop, ident.Token)
	if err != nil {
		return nil, &UpstreamError{Op: "list", Err: err}
	}
	return list, nil
}

func (s *Service) GetPage(ctx context.Context, ident Identity, pageID string) (*models.ShopifyPage, error) {
	if err := validatePage(ident, pageID); err != nil {
		return nil, err
	}

	page, err := s.client.GetPage(ctx, ident.Shop, ident.Token, pageID)
	if err != nil {
		return nil, &UpstreamError{Op: "get", Err: err}
	}
	return page, nil
}

// Save writes the serialized content to Shopify as a draft and then records
// a version. The page is already saved when the snapshot fails, so that
// failure is only logged.
func (s *Service) Save(ctx context.Context, ident Identity, pageID string, data PageData) (*PageResult, error) {
	data.Published = false
	return s.write(ctx, ident, pageID, data, "save", history.VersionComment)
}

// Publish is Save with the page forced visible.
func (s *Service) Publish(ctx context.Context, ident Identity, pageID string, data PageData) (*PageResult, error) {
	data.Published = true
	return s.write(ctx, ident, pageID, data, "publish", history.PublishedComment)
}

func (s *Service) write(ctx context.Context, ident Identity, pageID string, data PageData, op string, defaultComment func(int) string) (*PageResult, error) {
	if err := validatePage(ident, pageID); err != nil {
		return nil, err
	}

	page, err := s.client.UpdatePage(ctx, ident.Shop, ident.Token, pageID, models.PageInput{
		Title:     data.Title,
		BodyHTML:  builder.Serialize(data.Content),
		Handle:    data.Handle,
		Published: data.Published,
	})
	if err != nil {
		return nil, &UpstreamError{Op: op, Err: err}
	}

	version := s.snapshot(ctx, ident, history.AppendInput{
		PageID:         pageID,
		Shop:           ident.Shop,
		Title:          data.Title,
		Content:        data.Content,
		Comment:        data.Comment,
		Author:         ident.User,
		DefaultComment: defaultComment,
	})

	log.Info().Str("shop", ident.Shop).Str("page_id", pageID).Str("op", op).Msg("✅ Page saved")
	return &PageResult{Page: page, Version: version}, nil
}

// Create makes a new Shopify page. A missing handle is derived from the title
// and missing content is replaced by a starter layout.
func (s *Service) Create(ctx context.Context, ident Identity, data PageData) (*PageResult, error) {
	if err := ident.validate(); err != nil {
		return nil, err
	}

	data.Title = strings.TrimSpace(data.Title)
	if data.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if data.Handle == "" {
		data.Handle = builder.Slugify(data.Title)
	}
	if data.Content.IsEmpty() {
		data.Content = builder.StarterContent(data.Title)
	}

	page, err := s.client.CreatePage(ctx, ident.Shop, ident.Token, models.PageInput{
		Title:     data.Title,
		BodyHTML:  builder.Serialize(data.Content),
		Handle:    data.Handle,
		Published: data.Published,
	})
	if err != nil {
		return nil, &UpstreamError{Op: "create", Err: err}
	}

	version := s.snapshot(ctx, ident, history.AppendInput{
		PageID:  fmt.Sprint(page.ID),
		Shop:    ident.Shop,
		Title:   data.Title,
		Content: data.Content,
		Comment: data.Comment,
		Author:  ident.User,
	})

	log.Info().Str("shop", ident.Shop).Int64("page_id", page.ID).Msg("✅ Page created")
	return &PageResult{Page: page, Version: version}, nil
}

// Delete removes the Shopify page and then its history. History that cannot
// be removed is logged and left behind.
func (s *Service) Delete(ctx context.Context, ident Identity, pageID string) error {
	if err := validatePage(ident, pageID); err != nil {
		return err
	}

	if err := s.client.DeletePage(ctx, ident.Shop, ident.Token, pageID); err != nil {
		return &UpstreamError{Op: "delete", Err: err}
	}

	if err := s.store.DeleteAllForPage(ctx, pageID, ident.Shop); err != nil {
		log.Error().Err(err).Str("shop", ident.Shop).Str("page_id", pageID).Msg("❌ Failed to delete page history")
	}

	log.Info().Str("shop", ident.Shop).Str("page_id", pageID).Msg("🗑️  Page deleted")
	return nil
}

// Restore writes version V back to Shopify as a draft and records the result
// as a new version. Earlier versions are never modified.
func (s *Service) Restore(ctx context.Context, ident Identity, pageID string, version int) (*PageResult, error) {
	if err := validatePage(ident, pageID); err != nil {
		return nil, err
	}
	if version < 1 {
		return nil, fmt.Errorf("%w: version must be a positive number", ErrValidation)
	}

	target, err := s.store.Get(ctx, pageID, ident.Shop, version)
	if err != nil {
		return nil, err
	}

	page, err := s.client.UpdatePage(ctx, ident.Shop, ident.Token, pageID, models.PageInput{
		Title:     target.Title,
		BodyHTML:  builder.Serialize(target.Content),
		Published: false,
	})
	if err != nil {
		return nil, &UpstreamError{Op: "restore", Err: err}
	}

	next := s.snapshot(ctx, ident, history.AppendInput{
		PageID:  pageID,
		Shop:    ident.Shop,
		Title:   target.Title,
		Content: target.Content,
		Comment: history.RestoredComment(version),
		Author:  ident.User,
	})

	log.Info().Str("shop", ident.Shop).Str("page_id", pageID).Int("from_version", version).Msg("♻️  Page restored")
	return &PageResult{Page: page, Version: next}, nil
}

// ListVersions never fails because of the history backend: an unavailable or
// failing store is reported through Available.
func (s *Service) ListVersions(ctx context.Context, ident Identity, pageID string) (*VersionList, error) {
	if err := validatePage(ident, pageID); err != nil {
		return nil, err
	}

	versions, err := s.store.ListByPage(ctx, pageID, ident.Shop)
	if err != nil {
		if !errors.Is(err, history.ErrUnavailable) {
			log.Error().Err(err).Str("shop", ident.Shop).Str("page_id", pageID).Msg("❌ Failed to list versions")
		}
		return &VersionList{Available: false, Versions: []models.PageVersion{}}, nil
	}
	if versions == nil {
		versions = []models.PageVersion{}
	}
	return &VersionList{Available: true, Versions: versions}, nil
}

func (s *Service) GetVersion(ctx context.Context, ident Identity, pageID string, version int) (*models.PageVersion, error) {
	if err := validatePage(ident, pageID); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, pageID, ident.Shop, version)
}

// Preview renders content without touching Shopify or history.
func (s *Service) Preview(content models.PageContent) string {
	return builder.Serialize(content)
}

// snapshot appends a version and returns its number, or nil when history is
// unavailable or the append failed.
func (s *Service) snapshot(ctx context.Context, ident Identity, in history.AppendInput) *int {
	v, err := s.store.Append(ctx, in)
	if err != nil {
		if errors.Is(err, history.ErrUnavailable) {
			log.Debug().Str("shop", ident.Shop).Str("page_id", in.PageID).Msg("version history disabled, snapshot skipped")
		} else {
			log.Error().Err(err).Str("shop", ident.Shop).Str("page_id", in.PageID).Msg("❌ Failed to record page version")
		}
		return nil
	}
	return &v.Version
}

func (ident Identity) validate() error {
	if strings.TrimSpace(ident.Shop) == "" {
		return fmt.Errorf("%w: shop is required", ErrValidation)
	}
	if !shopify.ValidShopDomain(ident.Shop) {
		return fmt.Errorf("%w: shop must be a myshopify.com domain", ErrValidation)
	}
	return nil
}

func validatePage(ident Identity, pageID string) error {
	if err := ident.validate(); err != nil {
		return err
	}
	if strings.TrimSpace(pageID) == "" {
		return fmt.Errorf("%w: page id is required", ErrValidation)
	}
	return nil
}
