package history_test

import (
	"context"
	"os"
	"sort"
	"sync"
	"testing"

	"github.com/Kyz7/kingsbuilder/internal/history"
	"github.com/Kyz7/kingsbuilder/internal/models"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	testShop = "demo.myshopify.com"
	testPage = "101"
)

func newGormStore(t *testing.T) history.Store {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "Failed to create test database")

	// every :memory: connection is its own database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.PageVersionRecord{}), "Failed to migrate test database")
	return history.NewGormStore(db)
}

func newMongoStore(t *testing.T) history.Store {
	t.Helper()

	uri := os.Getenv("MONGODB_TEST_URI")
	if uri == "" {
		t.Skip("MONGODB_TEST_URI not set")
	}

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	db := client.Database("kings_builder_test")
	require.NoError(t, db.Collection(history.VersionsCollection).Drop(context.Background()))

	store, err := history.NewMongoStore(context.Background(), db)
	require.NoError(t, err)
	return store
}

var backends = map[string]func(t *testing.T) history.Store{
	"memory": func(*testing.T) history.Store { return history.NewMemoryStore() },
	"gorm":   newGormStore,
	"mongo":  newMongoStore,
}

func appendVersion(t *testing.T, store history.Store, pageID string, html string) *models.PageVersion {
	t.Helper()
	v, err := store.Append(context.Background(), history.AppendInput{
		PageID:  pageID,
		Shop:    testShop,
		Title:   "About us",
		Content: models.HTMLContent(html),
	})
	require.NoError(t, err)
	return v
}

func TestStoreContract(t *testing.T) {
	for name, newStore := range backends {
		t.Run(name, func(t *testing.T) {
			t.Run("Success - Versions start at 1 and increase", func(t *testing.T) {
				store := newStore(t)
				assert.True(t, store.Available())

				first := appendVersion(t, store, testPage, "<p>one</p>")
				second := appendVersion(t, store, testPage, "<p>two</p>")

				assert.Equal(t, 1, first.Version)
				assert.Equal(t, 2, second.Version)
				assert.Equal(t, "Version 1", first.Comment)
				assert.Equal(t, history.DefaultAuthor, first.CreatedBy)
				assert.False(t, first.CreatedAt.IsZero())
			})

			t.Run("Success - Numbering is per page and per shop", func(t *testing.T) {
				store := newStore(t)
				appendVersion(t, store, testPage, "a")
				appendVersion(t, store, testPage, "b")

				other := appendVersion(t, store, "202", "c")
				assert.Equal(t, 1, other.Version)

				v, err := store.Append(context.Background(), history.AppendInput{
					PageID:  testPage,
					Shop:    "other.myshopify.com",
					Content: models.HTMLContent("d"),
				})
				require.NoError(t, err)
				assert.Equal(t, 1, v.Version)
			})

			t.Run("Success - List is newest first", func(t *testing.T) {
				store := newStore(t)
				for i := 0; i < 3; i++ {
					appendVersion(t, store, testPage, "x")
				}

				list, err := store.ListByPage(context.Background(), testPage, testShop)
				require.NoError(t, err)
				require.Len(t, list, 3)
				assert.Equal(t, []int{3, 2, 1}, []int{list[0].Version, list[1].Version, list[2].Version})
			})

			t.Run("Success - List of unknown page is empty", func(t *testing.T) {
				store := newStore(t)
				list, err := store.ListByPage(context.Background(), "missing", testShop)
				require.NoError(t, err)
				assert.Empty(t, list)
			})

			t.Run("Success - Get returns stored content", func(t *testing.T) {
				store := newStore(t)
				var c models.PageContent
				require.NoError(t, c.UnmarshalJSON([]byte(`{"elements":[{"id":"el-1","type":"text","content":"<p>hi</p>","styles":{"color":"red"}}]}`)))

				_, err := store.Append(context.Background(), history.AppendInput{
					PageID:  testPage,
					Shop:    testShop,
					Title:   "Landing",
					Content: c,
					Comment: "first draft",
					Author:  "jane@example.com",
				})
				require.NoError(t, err)

				got, err := store.Get(context.Background(), testPage, testShop, 1)
				require.NoError(t, err)
				assert.Equal(t, "Landing", got.Title)
				assert.Equal(t, "first draft", got.Comment)
				assert.Equal(t, "jane@example.com", got.CreatedBy)
				assert.Equal(t, models.ContentElements, got.Content.Kind)
				require.Len(t, got.Content.Elements, 1)
				assert.Equal(t, "red", got.Content.Elements[0].Styles["color"])
			})

			t.Run("Error - Get of unknown version", func(t *testing.T) {
				store := newStore(t)
				appendVersion(t, store, testPage, "x")

				_, err := store.Get(context.Background(), testPage, testShop, 9)
				assert.ErrorIs(t, err, history.ErrNotFound)
			})

			t.Run("Success - Delete removes only the page", func(t *testing.T) {
				store := newStore(t)
				appendVersion(t, store, testPage, "x")
				appendVersion(t, store, testPage, "y")
				appendVersion(t, store, "202", "z")

				require.NoError(t, store.DeleteAllForPage(context.Background(), testPage, testShop))
				require.NoError(t, store.DeleteAllForPage(context.Background(), testPage, testShop))

				list, err := store.ListByPage(context.Background(), testPage, testShop)
				require.NoError(t, err)
				assert.Empty(t, list)

				others, err := store.ListByPage(context.Background(), "202", testShop)
				require.NoError(t, err)
				assert.Len(t, others, 1)

				again := appendVersion(t, store, testPage, "fresh")
				assert.Equal(t, 1, again.Version)
			})

			t.Run("Success - Concurrent appends get distinct numbers", func(t *testing.T) {
				store := newStore(t)
				const writers = 5

				var wg sync.WaitGroup
				errs := make(chan error, writers)
				for i := 0; i < writers; i++ {
					wg.Add(1)
					go func() {
						defer wg.Done()
						_, err := store.Append(context.Background(), history.AppendInput{
							PageID:  testPage,
							Shop:    testShop,
							Content: models.HTMLContent("concurrent"),
						})
						errs <- err
					}()
				}
				wg.Wait()
				close(errs)
				for err := range errs {
					require.NoError(t, err)
				}

				list, err := store.ListByPage(context.Background(), testPage, testShop)
				require.NoError(t, err)

				numbers := make([]int, 0, len(list))
				for _, v := range list {
					numbers = append(numbers, v.Version)
				}
				sort.Ints(numbers)
				assert.Equal(t, []int{1, 2, 3, 4, 5}, numbers)
			})
		})
	}
}

func TestAppendDefaults(t *testing.T) {
	store := history.NewMemoryStore()
	ctx := context.Background()

	t.Run("Success - Custom default comment", func(t *testing.T) {
		v, err := store.Append(ctx, history.AppendInput{
			PageID:         "1",
			Shop:           testShop,
			DefaultComment: history.PublishedComment,
		})
		require.NoError(t, err)
		assert.Equal(t, "Published version 1", v.Comment)
	})

	t.Run("Success - Markup is stripped from comment and author", func(t *testing.T) {
		v, err := store.Append(ctx, history.AppendInput{
			PageID:  "2",
			Shop:    testShop,
			Comment: `<script>alert(1)</script>Fixed hero & footer`,
			Author:  `<b>Jane</b>`,
		})
		require.NoError(t, err)
		assert.Equal(t, "Fixed hero & footer", v.Comment)
		assert.Equal(t, "Jane", v.CreatedBy)
	})

	t.Run("Success - Entity encoded markup is not decoded into tags", func(t *testing.T) {
		v, err := store.Append(ctx, history.AppendInput{
			PageID:  "4",
			Shop:    testShop,
			Comment: `&lt;script&gt;alert(1)&lt;/script&gt;Fixed hero`,
			Author:  `&lt;img src=x onerror=alert(1)&gt;`,
		})
		require.NoError(t, err)
		assert.Equal(t, "Fixed hero", v.Comment)
		assert.Equal(t, history.DefaultAuthor, v.CreatedBy)
	})

	t.Run("Success - Double encoded markup is stripped", func(t *testing.T) {
		v, err := store.Append(ctx, history.AppendInput{
			PageID:  "5",
			Shop:    testShop,
			Comment: `&amp;lt;iframe src=javascript:alert(1)&amp;gt;&amp;lt;/iframe&amp;gt;Tweak`,
			Author:  `&amp;lt;b&amp;gt;Jane &amp;amp; Joe&amp;lt;/b&amp;gt;`,
		})
		require.NoError(t, err)
		assert.Equal(t, "Tweak", v.Comment)
		assert.Equal(t, "Jane & Joe", v.CreatedBy)
		assert.NotContains(t, v.Comment+v.CreatedBy, "<")
	})

	t.Run("Success - Comment made only of markup falls back to default", func(t *testing.T) {
		v, err := store.Append(ctx, history.AppendInput{
			PageID:  "3",
			Shop:    testShop,
			Comment: "<br>",
		})
		require.NoError(t, err)
		assert.Equal(t, "Version 1", v.Comment)
	})

	t.Run("Success - Restored comment", func(t *testing.T) {
		assert.Equal(t, "Restored from version 4", history.RestoredComment(4))
	})
}

func TestMemoryStoreManyWriters(t *testing.T) {
	store := history.NewMemoryStore()
	const writers = 50

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Append(context.Background(), history.AppendInput{PageID: testPage, Shop: testShop})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	list, err := store.ListByPage(context.Background(), testPage, testShop)
	require.NoError(t, err)
	require.Len(t, list, writers)
	for i, v := range list {
		assert.Equal(t, writers-i, v.Version)
	}
}

func TestNoneStore(t *testing.T) {
	store := history.NoneStore{}
	ctx := context.Background()

	assert.False(t, store.Available())

	_, err := store.Append(ctx, history.AppendInput{PageID: testPage, Shop: testShop})
	assert.ErrorIs(t, err, history.ErrUnavailable)

	_, err = store.ListByPage(ctx, testPage, testShop)
	assert.ErrorIs(t, err, history.ErrUnavailable)

	_, err = store.Get(ctx, testPage, testShop, 1)
	assert.ErrorIs(t, err, history.ErrUnavailable)

	assert.NoError(t, store.DeleteAllForPage(ctx, testPage, testShop))
}
