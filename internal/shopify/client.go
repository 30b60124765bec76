// Package shopify talks to the page resource of the Shopify Admin REST API.
package shopify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/Kyz7/kingsbuilder/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

const (
	AccessTokenHeader = "X-Shopify-Access-Token"

	// listLimit is the largest page size the REST API accepts.
	listLimit = 250
)

// shopDomain matches the permanent *.myshopify.com domain of a store. Custom
// storefront domains are not accepted by the Admin API.
var shopDomain = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*\.myshopify\.com$`)

// ValidShopDomain reports whether shop is a bare myshopify.com host. Anything
// else would let the caller pick the host the access token is sent to.
func ValidShopDomain(shop string) bool {
	return shopDomain.MatchString(shop)
}

// APIError is a non-2xx answer from Shopify.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("shopify responded %d: %s", e.Status, e.Body)
}

type Options struct {
	APIVersion string
	// Endpoint replaces https://{shop} as the base URL when set.
	Endpoint string
	Timeout  time.Duration
}

// Client is safe for concurrent use. Every call is made on behalf of one shop
// with that shop's access token.
type Client struct {
	http       *fiber.Client
	apiVersion string
	endpoint   string
	timeout    time.Duration
}

func NewClient(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		http:       &fiber.Client{JSONEncoder: json.Marshal, JSONDecoder: json.Unmarshal},
		apiVersion: opts.APIVersion,
		endpoint:   strings.TrimRight(opts.Endpoint, "/"),
		timeout:    timeout,
	}
}

type pageEnvelope struct {
	Page models.ShopifyPage `json:"page"`
}

type pagesEnvelope struct {
	Pages []models.ShopifyPage `json:"pages"`
}

type pageInputEnvelope struct {
	Page models.PageInput `json:"page"`
}

func (c *Client) ListPages(ctx context.Context, shop, token string) ([]models.ShopifyPage, error) {
	url := fmt.Sprintf("%s?limit=%d", c.url(shop, "pages.json"), listLimit)

	var out pagesEnvelope
	if err := c.do(ctx, c.http.Get(url), token, &out); err != nil {
		return nil, err
	}
	if out.Pages == nil {
		out.Pages = []models.ShopifyPage{}
	}
	return out.Pages, nil
}

func (c *Client) GetPage(ctx context.Context, shop, token, pageID string) (*models.ShopifyPage, error) {
	var out pageEnvelope
	if err := c.do(ctx, c.http.Get(c.pageURL(shop, pageID)), token, &out); err != nil {
		return nil, err
	}
	return &out.Page, nil
}

func (c *Client) CreatePage(ctx context.Context, shop, token string, in models.PageInput) (*models.ShopifyPage, error) {
	agent := c.http.Post(c.url(shop, "pages.json")).JSON(pageInputEnvelope{Page: in})

	var out pageEnvelope
	if err := c.do(ctx, agent, token, &out); err != nil {
		return nil, err
	}
	return &out.Page, nil
}

func (c *Client) UpdatePage(ctx context.Context, shop, token, pageID string, in models.PageInput) (*models.ShopifyPage, error) {
	agent := c.http.Put(c.pageURL(shop, pageID)).JSON(pageInputEnvelope{Page: in})

	var out pageEnvelope
	if err := c.do(ctx, agent, token, &out); err != nil {
		return nil, err
	}
	return &out.Page, nil
}

func (c *Client) DeletePage(ctx context.Context, shop, token, pageID string) error {
	return c.do(ctx, c.http.Delete(c.pageURL(shop, pageID)), token, nil)
}

func (c *Client) url(shop, resource string) string {
	base := c.endpoint
	if base == "" {
		base = "https://" + shop
	}
	return fmt.Sprintf("%s/admin/api/%s/%s", base, c.apiVersion, resource)
}

func (c *Client) pageURL(shop, pageID string) string {
	return c.url(shop, "pages/"+pageID+".json")
}

// do sends the request and decodes a 2xx body into out when out is not nil.
// The agent is released by Bytes, so it must not be touched afterwards.
func (c *Client) do(ctx context.Context, agent *fiber.Agent, token string, out interface{}) error {
	if err := ctx.Err(); err != nil {
		fiber.ReleaseAgent(agent)
		return err
	}

	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			fiber.ReleaseAgent(agent)
			return context.DeadlineExceeded
		}
		if remaining < timeout {
			timeout = remaining
		}
	}

	method := string(agent.Request().Header.Method())
	uri := agent.Request().URI().String()

	agent.Set(AccessTokenHeader, token).
		Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON).
		Timeout(timeout)

	status, body, errs := agent.Bytes()
	if len(errs) > 0 {
		log.Warn().Str("method", method).Str("url", uri).Err(errs[0]).Msg("❌ Shopify request failed")
		return fmt.Errorf("%s %s: %w", method, uri, errors.Join(errs...))
	}

	if status < 200 || status >= 300 {
		log.Warn().Str("method", method).Str("url", uri).Int("status", status).Msg("❌ Shopify rejected request")
		return &APIError{Status: status, Body: string(body)}
	}

	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode shopify response: %w", err)
	}
	return nil
}
