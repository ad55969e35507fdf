package storefront

import (
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/nattapol/talad/internal/domain"
	"github.com/nattapol/talad/internal/middleware"
	"github.com/nattapol/talad/internal/service"
)

// maxSlipSize bounds the uploaded payment slip.
const maxSlipSize = 5 << 20

// CheckoutHandler serves coupon application, quoting and order submission.
type CheckoutHandler struct {
	checkout service.CheckoutService
}

// NewCheckoutHandler creates the checkout handler.
func NewCheckoutHandler(checkout service.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout}
}

type couponRequest struct {
	Code string `json:"code"`
}

// ApplyCoupon validates a code upstream and returns the recomputed quote.
// A rejected code clears any previously applied discount.
func (h *CheckoutHandler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	sess := middleware.GetSession(r.Context())

	var req couponRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if _, err := h.checkout.ApplyCoupon(r.Context(), sess, req.Code); err != nil {
		writeError(w, r, err)
		return
	}

	q, err := h.checkout.Quote(r.Context(), sess)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toQuoteResponse(q))
}

// Quote returns the current session quote.
func (h *CheckoutHandler) Quote(w http.ResponseWriter, r *http.Request) {
	sess := middleware.GetSession(r.Context())

	q, err := h.checkout.Quote(r.Context(), sess)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toQuoteResponse(q))
}

type submitJSONRequest struct {
	Address       domain.ShippingAddress `json:"address"`
	PaymentMethod string                 `json:"paymentMethod"`
}

type submitResponse struct {
	OrderID             string `json:"orderId"`
	PaymentClientSecret string `json:"paymentClientSecret,omitempty"`
}

// Submit places the order. Bank transfers arrive as multipart with the slip
// file; everything else is plain JSON.
func (h *CheckoutHandler) Submit(w http.ResponseWriter, r *http.Request) {
	sess := middleware.GetSession(r.Context())

	sub, err := parseSubmission(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.checkout.SubmitOrder(r.Context(), sess, *sub)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, submitResponse{
		OrderID:             result.OrderID,
		PaymentClientSecret: result.PaymentClientSecret,
	})
}

func parseSubmission(r *http.Request) (*service.OrderSubmission, error) {
	const op = "checkout.parse"

	contentType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return nil, domain.Invalid(op, "Invalid content type")
	}

	if contentType == "multipart/form-data" {
		return parseMultipartSubmission(r)
	}

	var req submitJSONRequest
	if err := decodeJSON(r, &req); err != nil {
		return nil, err
	}
	return &service.OrderSubmission{
		Address:       req.Address,
		PaymentMethod: req.PaymentMethod,
	}, nil
}

func parseMultipartSubmission(r *http.Request) (*service.OrderSubmission, error) {
	const op = "checkout.parse"

	if err := r.ParseMultipartForm(maxSlipSize); err != nil {
		return nil, domain.Invalid(op, "Invalid form data")
	}

	sub := &service.OrderSubmission{
		Address: domain.ShippingAddress{
			Recipient:  strings.TrimSpace(r.FormValue("recipient")),
			Line1:      strings.TrimSpace(r.FormValue("line1")),
			Line2:      strings.TrimSpace(r.FormValue("line2")),
			City:       strings.TrimSpace(r.FormValue("city")),
			PostalCode: strings.TrimSpace(r.FormValue("postalCode")),
			Country:    strings.TrimSpace(r.FormValue("country")),
		},
		PaymentMethod: r.FormValue("paymentMethod"),
	}

	file, header, err := r.FormFile("slipFile")
	if err == http.ErrMissingFile {
		return sub, nil
	}
	if err != nil {
		return nil, domain.Invalid(op, "Invalid slip file")
	}
	defer file.Close()

	if header.Size > maxSlipSize {
		return nil, domain.Invalid(op, "Slip file is too large")
	}

	data, err := io.ReadAll(io.LimitReader(file, maxSlipSize))
	if err != nil {
		return nil, domain.Internal(err, op, "failed to read slip file")
	}

	sub.Slip = &domain.PaymentSlip{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}
	return sub, nil
}
