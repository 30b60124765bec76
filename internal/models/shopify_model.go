package models

import "time"

// ShopifyPage mirrors the Page resource of the Shopify Admin REST API.
type ShopifyPage struct {
	ID                int64      `json:"id"`
	Title             string     `json:"title"`
	Handle            string     `json:"handle"`
	BodyHTML          string     `json:"body_html"`
	Author            string     `json:"author,omitempty"`
	TemplateSuffix    *string    `json:"template_suffix,omitempty"`
	AdminGraphqlAPIID string     `json:"admin_graphql_api_id,omitempty"`
	PublishedAt       *time.Time `json:"published_at"`
	CreatedAt         *time.Time `json:"created_at,omitempty"`
	UpdatedAt         *time.Time `json:"updated_at,omitempty"`
}

func (p ShopifyPage) Published() bool {
	return p.PublishedAt != nil
}

// PageInput is the writable subset sent on create and update.
type PageInput struct {
	Title     string `json:"title"`
	BodyHTML  string `json:"body_html"`
	Handle    string `json:"handle,omitempty"`
	Published bool   `json:"published"`
}
