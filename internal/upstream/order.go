package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/nattapol/talad/internal/domain"
	"github.com/shopspring/decimal"
)

type orderItemDTO struct {
	ProductID       string          `json:"productId"`
	Quantity        int             `json:"quantity"`
	PriceAtPurchase decimal.Decimal `json:"priceAtPurchase"`
}

// orderJSONRequest is the plain submission body. The multipart variant
// carries the same logical fields flattened into form parts plus the binary
// slip; the endpoint distinguishes the two by content type.
type orderJSONRequest struct {
	Items         []orderItemDTO `json:"items"`
	Recipient     string         `json:"recipient"`
	Line1         string         `json:"line1"`
	Line2         string         `json:"line2"`
	City          string         `json:"city"`
	PostalCode    string         `json:"postalCode"`
	Country       string         `json:"country"`
	PaymentMethod string         `json:"paymentMethod"`
	CouponCode    *string        `json:"couponCode"`
}

type orderResponse struct {
	OrderID string `json:"orderId"`
}

// SubmitOrder sends a finalized order draft. When the draft carries a payment
// slip the request is encoded as multipart so the binary evidence travels
// with it; otherwise it is a single JSON payload with no file field.
func (c *Client) SubmitOrder(ctx context.Context, token string, draft *domain.OrderDraft) (*domain.OrderConfirmation, error) {
	const op = "upstream.order_submit"

	if draft.Slip != nil {
		return c.submitMultipart(ctx, op, token, draft)
	}
	return c.submitJSON(ctx, op, token, draft)
}

func orderItems(draft *domain.OrderDraft) []orderItemDTO {
	items := make([]orderItemDTO, 0, len(draft.Lines))
	for _, line := range draft.Lines {
		items = append(items, orderItemDTO{
			ProductID:       line.ProductID,
			Quantity:        line.Quantity,
			PriceAtPurchase: line.PriceAtPurchase,
		})
	}
	return items
}

func (c *Client) submitJSON(ctx context.Context, op, token string, draft *domain.OrderDraft) (*domain.OrderConfirmation, error) {
	req := orderJSONRequest{
		Items:         orderItems(draft),
		Recipient:     draft.Address.Recipient,
		Line1:         draft.Address.Line1,
		Line2:         draft.Address.Line2,
		City:          draft.Address.City,
		PostalCode:    draft.Address.PostalCode,
		Country:       draft.Address.Country,
		PaymentMethod: draft.PaymentMethod,
	}
	if draft.CouponCode != "" {
		code := draft.CouponCode
		req.CouponCode = &code
	}

	var resp orderResponse
	if err := c.doJSON(ctx, op, http.MethodPost, "/api/orders", token, req, &resp); err != nil {
		return nil, err
	}
	return &domain.OrderConfirmation{OrderID: resp.OrderID}, nil
}

func (c *Client) submitMultipart(ctx context.Context, op, token string, draft *domain.OrderDraft) (*domain.OrderConfirmation, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)

	items, err := json.Marshal(orderItems(draft))
	if err != nil {
		return nil, domain.Internal(err, op, "failed to encode order items")
	}

	fields := map[string]string{
		"items":         string(items),
		"recipient":     draft.Address.Recipient,
		"line1":         draft.Address.Line1,
		"line2":         draft.Address.Line2,
		"city":          draft.Address.City,
		"postalCode":    draft.Address.PostalCode,
		"country":       draft.Address.Country,
		"paymentMethod": draft.PaymentMethod,
	}
	for name, value := range fields {
		if err := form.WriteField(name, value); err != nil {
			return nil, domain.Internal(err, op, "failed to write form field")
		}
	}
	if draft.CouponCode != "" {
		if err := form.WriteField("couponCode", draft.CouponCode); err != nil {
			return nil, domain.Internal(err, op, "failed to write form field")
		}
	}

	part, err := form.CreatePart(slipPartHeader(draft.Slip))
	if err != nil {
		return nil, domain.Internal(err, op, "failed to create slip part")
	}
	if _, err := part.Write(draft.Slip.Data); err != nil {
		return nil, domain.Internal(err, op, "failed to write slip data")
	}

	if err := form.Close(); err != nil {
		return nil, domain.Internal(err, op, "failed to finalize form")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/orders", &buf)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to build request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, domain.Unavailable(err, op)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, decodeError(op, resp)
	}

	var result orderResponse
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.Unavailable(err, op)
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &result); err != nil {
			return nil, domain.Unavailable(err, op)
		}
	}
	return &domain.OrderConfirmation{OrderID: result.OrderID}, nil
}

// slipPartHeader builds the form part header for the slip file, preserving
// the original filename and content type.
func slipPartHeader(slip *domain.PaymentSlip) textproto.MIMEHeader {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition",
		`form-data; name="slipFile"; filename="`+escapeQuotes(slip.Filename)+`"`)
	contentType := slip.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)
	return h
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
