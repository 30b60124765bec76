package testutils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Kyz7/kingsbuilder/internal/models"
	"github.com/Kyz7/kingsbuilder/internal/shopify"
)

// FakeShopify serves the page endpoints of the Admin REST API from memory.
type FakeShopify struct {
	srv *httptest.Server

	mu      sync.Mutex
	nextID  int64
	pages   map[int64]models.ShopifyPage
	tokens  []string
	failure int
}

func NewFakeShopify(t *testing.T) *FakeShopify {
	f := &FakeShopify{nextID: 1000, pages: map[int64]models.ShopifyPage{}}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /admin/api/{version}/pages.json", f.list)
	mux.HandleFunc("POST /admin/api/{version}/pages.json", f.create)
	mux.HandleFunc("GET /admin/api/{version}/pages/{file}", f.get)
	mux.HandleFunc("PUT /admin/api/{version}/pages/{file}", f.update)
	mux.HandleFunc("DELETE /admin/api/{version}/pages/{file}", f.remove)

	f.srv = httptest.NewServer(f.guard(mux))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *FakeShopify) URL() string { return f.srv.URL }

// FailWith makes every following request answer with status. Zero restores
// normal behaviour.
func (f *FakeShopify) FailWith(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failure = status
}

// Page returns the stored page with the given id.
func (f *FakeShopify) Page(id int64) (models.ShopifyPage, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.pages[id]
	return p, ok
}

// Seed stores a page as if it had been created in the Shopify admin.
func (f *FakeShopify) Seed(title, bodyHTML string) models.ShopifyPage {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	now := time.Now().UTC()
	p := models.ShopifyPage{ID: f.nextID, Title: title, Handle: strings.ToLower(title), BodyHTML: bodyHTML, CreatedAt: &now, UpdatedAt: &now}
	f.pages[p.ID] = p
	return p
}

// Tokens lists the access tokens seen so far, in order.
func (f *FakeShopify) Tokens() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.tokens...)
}

func (f *FakeShopify) guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.tokens = append(f.tokens, r.Header.Get(shopify.AccessTokenHeader))
		failure := f.failure
		f.mu.Unlock()

		if failure != 0 {
			writeJSON(w, failure, map[string]string{"errors": http.StatusText(failure)})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (f *FakeShopify) list(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]models.ShopifyPage, 0, len(f.pages))
	for _, p := range f.pages {
		out = append(out, p)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"pages": out})
}

func (f *FakeShopify) create(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeInput(w, r)
	if !ok {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++
	now := time.Now().UTC()
	p := models.ShopifyPage{ID: f.nextID, CreatedAt: &now}
	apply(&p, in, now)
	f.pages[p.ID] = p
	writeJSON(w, http.StatusCreated, map[string]interface{}{"page": p})
}

func (f *FakeShopify) get(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	p, ok := f.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"page": p})
}

func (f *FakeShopify) update(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeInput(w, r)
	if !ok {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	p, ok := f.lookup(w, r)
	if !ok {
		return
	}
	apply(&p, in, time.Now().UTC())
	f.pages[p.ID] = p
	writeJSON(w, http.StatusOK, map[string]interface{}{"page": p})
}

func (f *FakeShopify) remove(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	p, ok := f.lookup(w, r)
	if !ok {
		return
	}
	delete(f.pages, p.ID)
	writeJSON(w, http.StatusOK, map[string]interface{}{})
}

// lookup must be called with f.mu held.
func (f *FakeShopify) lookup(w http.ResponseWriter, r *http.Request) (models.ShopifyPage, bool) {
	id, err := strconv.ParseInt(strings.TrimSuffix(r.PathValue("file"), ".json"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"errors": "Not Found"})
		return models.ShopifyPage{}, false
	}
	p, ok := f.pages[id]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"errors": "Not Found"})
		return models.ShopifyPage{}, false
	}
	return p, true
}

func decodeInput(w http.ResponseWriter, r *http.Request) (models.PageInput, bool) {
	var body struct {
		Page models.PageInput `json:"page"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"errors": err.Error()})
		return models.PageInput{}, false
	}
	return body.Page, true
}

func apply(p *models.ShopifyPage, in models.PageInput, now time.Time) {
	p.Title = in.Title
	p.BodyHTML = in.BodyHTML
	if in.Handle != "" {
		p.Handle = in.Handle
	}
	if in.Published {
		p.PublishedAt = &now
	} else {
		p.PublishedAt = nil
	}
	p.UpdatedAt = &now
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
