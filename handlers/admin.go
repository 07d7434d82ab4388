// Package handlers exposes the authenticated admin HTTP API: peer
// inspection, protocol policy management, and promo code administration.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gosimple/slug"

	"github.com/iOSSergey/wireguard-telegram-bot/background"
	"github.com/iOSSergey/wireguard-telegram-bot/database"
	"github.com/iOSSergey/wireguard-telegram-bot/models"
	"github.com/iOSSergey/wireguard-telegram-bot/pkg/types"
	"github.com/iOSSergey/wireguard-telegram-bot/promo"
	"github.com/iOSSergey/wireguard-telegram-bot/provision"
)

// AdminHandler serves the admin API against the stores and engines.
type AdminHandler struct {
	wgs    *database.WireguardPeerStore
	vls    *database.VlessPeerStore
	policy *database.PolicyStore
	promos *promo.Service
	promoS *database.PromoStore
	wgEng  *provision.Engine
	cache  *database.PeerCache // nil when Redis is not configured
	// botName feeds the config attachment filename.
	botName string
}

func NewAdminHandler(
	wgs *database.WireguardPeerStore,
	vls *database.VlessPeerStore,
	policy *database.PolicyStore,
	promoStore *database.PromoStore,
	promos *promo.Service,
	wgEngine *provision.Engine,
	cache *database.PeerCache,
	botName string,
) *AdminHandler {
	return &AdminHandler{
		wgs:     wgs,
		vls:     vls,
		policy:  policy,
		promos:  promos,
		promoS:  promoStore,
		wgEng:   wgEngine,
		cache:   cache,
		botName: botName,
	}
}

// Status handles GET /api/status.
func (h *AdminHandler) Status(c *fiber.Ctx) error {
	wgCount, err := h.wgs.Count()
	if err != nil {
		return serverError(c, err)
	}
	vlCount, err := h.vls.Count()
	if err != nil {
		return serverError(c, err)
	}
	policy, err := h.policy.Get()
	if err != nil {
		return serverError(c, err)
	}
	return c.JSON(types.StatusResponse{
		WireguardPeers: wgCount,
		VlessPeers:     vlCount,
		Policy:         policyResponse(policy),
	})
}

// Peers handles GET /api/peers, served from the Redis cache when present
// and falling back to the store.
func (h *AdminHandler) Peers(c *fiber.Ctx) error {
	if h.cache != nil {
		if data, err := h.cache.Get(c.Context()); err == nil && data != nil {
			var summaries []types.PeerSummary
			if json.Unmarshal(data, &summaries) == nil {
				return c.JSON(summaries)
			}
		}
	}

	summaries, err := background.CollectSummaries(h.wgs, h.vls)
	if err != nil {
		return serverError(c, err)
	}
	return c.JSON(summaries)
}

// PeerConfig handles GET /api/peers/:id/config: the WireGuard client file
// as a download attachment.
func (h *AdminHandler) PeerConfig(c *fiber.Ctx) error {
	telegramID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid peer id"})
	}

	peer, err := h.wgs.ByTelegramID(telegramID)
	if err != nil {
		return serverError(c, err)
	}
	if peer == nil {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "peer not found"})
	}

	descriptor, err := h.wgEng.Provision(telegramID, peer.Name, 0)
	if err != nil {
		if errors.Is(err, provision.ErrAccessDisabled) {
			return c.Status(http.StatusConflict).JSON(fiber.Map{"error": "access is disabled or expired"})
		}
		return serverError(c, err)
	}

	filename := slug.Make(h.botName)
	if filename == "" {
		filename = "wireguard"
	}
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s.conf"`, filename))
	c.Set(fiber.HeaderContentType, "text/plain; charset=utf-8")
	return c.SendString(descriptor)
}

// GetPolicy handles GET /api/policy.
func (h *AdminHandler) GetPolicy(c *fiber.Ctx) error {
	policy, err := h.policy.Get()
	if err != nil {
		return serverError(c, err)
	}
	return c.JSON(policyResponse(policy))
}

// SetPolicy handles PUT /api/policy.
func (h *AdminHandler) SetPolicy(c *fiber.Ctx) error {
	var req types.PolicyResponse
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "bad request"})
	}

	err := h.policy.Set(models.ProtocolPolicy{
		WireguardEnabled: req.WireguardEnabled,
		VlessEnabled:     req.VlessEnabled,
		PrimaryProtocol:  req.PrimaryProtocol,
	})
	if errors.Is(err, models.ErrInvalidPolicy) {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err != nil {
		return serverError(c, err)
	}
	return c.JSON(req)
}

type generatePromoRequest struct {
	Days int `json:"days"`
}

// GeneratePromo handles POST /api/promo.
func (h *AdminHandler) GeneratePromo(c *fiber.Ctx) error {
	var req generatePromoRequest
	if err := c.BodyParser(&req); err != nil || req.Days <= 0 {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "days must be a positive integer"})
	}

	// Codes created over the API are attributed to the admin pseudo-identity.
	code, err := h.promos.Generate(req.Days, 0)
	if err != nil {
		return serverError(c, err)
	}
	return c.JSON(fiber.Map{"code": code, "days": req.Days})
}

// PromoStats handles GET /api/promo/stats.
func (h *AdminHandler) PromoStats(c *fiber.Ctx) error {
	stats, recent, err := h.promoS.Stats()
	if err != nil {
		return serverError(c, err)
	}

	resp := types.PromoStatsResponse{
		Total:     stats.Total,
		Activated: stats.Activated,
		Unused:    stats.Unused,
		Recent:    make([]types.PromoCodeResponse, 0, len(recent)),
	}
	for _, p := range recent {
		resp.Recent = append(resp.Recent, types.PromoCodeResponse{
			Code:        p.Code,
			Days:        p.Days,
			CreatedAt:   p.CreatedAt,
			ActivatedAt: p.ActivatedAt,
			ActivatedBy: p.ActivatedBy,
		})
	}
	return c.JSON(resp)
}

func policyResponse(p models.ProtocolPolicy) types.PolicyResponse {
	return types.PolicyResponse{
		WireguardEnabled: p.WireguardEnabled,
		VlessEnabled:     p.VlessEnabled,
		PrimaryProtocol:  p.PrimaryProtocol,
	}
}

// serverError returns the raw failure detail: this API is admin-facing,
// infrastructure errors are shown as-is rather than masked.
func serverError(c *fiber.Ctx, err error) error {
	return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
}
