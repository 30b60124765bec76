package auth

import (
	"strings"

	"github.com/Kyz7/kingsbuilder/internal/pages"
	"github.com/Kyz7/kingsbuilder/internal/response"
	"github.com/Kyz7/kingsbuilder/internal/shopify"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

const ShopDomainHeader = "X-Shopify-Shop-Domain"

// Identity resolves the calling shop and stores a pages.Identity in the
// request locals. A bearer session token wins when present; otherwise the
// shop and access token are read from headers, then query, then cookies.
func Identity(apiSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var ident pages.Identity

		if bearer := bearerToken(c.Get(fiber.HeaderAuthorization)); bearer != "" {
			session, err := ParseSessionToken(bearer, apiSecret)
			if err != nil {
				log.Warn().Err(err).Str("ip", c.IP()).Msg("⚠️  Rejected session token")
				return response.Unauthorized(c, "Invalid or expired session token")
			}
			ident.Shop = session.Shop
			ident.User = session.User
		}

		if ident.Shop == "" {
			ident.Shop = firstNonEmpty(c.Get(ShopDomainHeader), c.Query("shop"), c.Cookies("shop"))
		}
		ident.Token = firstNonEmpty(c.Get(shopify.AccessTokenHeader), c.Query("token"), c.Cookies("accessToken"))

		ident.Shop = strings.ToLower(strings.TrimSpace(ident.Shop))
		if ident.Shop == "" {
			return response.BadRequest(c, "shop is required", nil)
		}
		if !shopify.ValidShopDomain(ident.Shop) {
			log.Warn().Str("shop", ident.Shop).Str("ip", c.IP()).Msg("⚠️  Rejected shop domain")
			return response.BadRequest(c, "shop must be a myshopify.com domain", nil)
		}

		c.Locals(pages.IdentityLocal, ident)
		return c.Next()
	}
}

func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
