package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"enrollment-portal/internal/models"
)

// GetClass retrieves one class
func (c *Client) GetClass(ctx context.Context, id string) (models.Class, error) {
	var out models.Class
	err := c.do(ctx, http.MethodGet, "/classes/"+url.PathEscape(id), "class", nil, &out)
	return out, err
}

// ListOrders retrieves the caller's billing orders
func (c *Client) ListOrders(ctx context.Context) ([]models.Order, error) {
	var out []models.Order
	if err := c.do(ctx, http.MethodGet, "/orders", "orders", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListChildBadges retrieves the badge awards of a child
func (c *Client) ListChildBadges(ctx context.Context, childID string) ([]models.BadgeAward, error) {
	var out []models.BadgeAward
	if err := c.do(ctx, http.MethodGet, "/children/"+url.PathEscape(childID)+"/badges", "child_badges", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AwardBadge awards a badge to a child
func (c *Client) AwardBadge(ctx context.Context, req models.AwardBadgeRequest) (models.BadgeAward, error) {
	var out models.BadgeAward
	err := c.do(ctx, http.MethodPost, "/badges/award", "badge_award", req, &out)
	return out, err
}

// RevokeBadge revokes a badge award
func (c *Client) RevokeBadge(ctx context.Context, req models.RevokeBadgeRequest) (models.MessageResponse, error) {
	var out models.MessageResponse
	err := c.do(ctx, http.MethodPost, "/badges/awards/"+url.PathEscape(req.AwardID)+"/revoke", "badge_revoke", req, &out)
	return out, err
}
