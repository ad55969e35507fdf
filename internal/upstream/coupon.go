package upstream

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"
)

type couponRequest struct {
	Code string `json:"code"`
}

type couponResponse struct {
	DiscountValue decimal.Decimal `json:"discountValue"`
}

// ValidateCoupon asks the coupon validator for the discount a code grants.
// Rejections (expired, not found, minimum not met, ...) come back as
// EREJECTED with the server-supplied reason intact.
func (c *Client) ValidateCoupon(ctx context.Context, token, code string) (decimal.Decimal, error) {
	const op = "upstream.coupon"

	var resp couponResponse
	if err := c.doJSON(ctx, op, http.MethodPost, "/api/coupons", token, couponRequest{Code: code}, &resp); err != nil {
		return decimal.Zero, err
	}
	return resp.DiscountValue, nil
}
