package history

import (
	"context"

	"github.com/Kyz7/kingsbuilder/internal/models"
)

// NoneStore is used when no history backend is configured. Appends, lists
// and lookups report ErrUnavailable; deletes succeed without doing anything.
type NoneStore struct{}

func (NoneStore) Available() bool { return false }

func (NoneStore) Append(context.Context, AppendInput) (*models.PageVersion, error) {
	return nil, ErrUnavailable
}

func (NoneStore) ListByPage(context.Context, string, string) ([]models.PageVersion, error) {
	return nil, ErrUnavailable
}

func (NoneStore) Get(context.Context, string, string, int) (*models.PageVersion, error) {
	return nil, ErrUnavailable
}

func (NoneStore) DeleteAllForPage(context.Context, string, string) error {
	return nil
}
