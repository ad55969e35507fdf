package upstream

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nattapol/talad/internal/domain"
	"github.com/shopspring/decimal"
)

func newTestClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	return New(srv.URL, 5*time.Second), srv
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantCode string
		wantMsg  string
	}{
		{
			name:     "401 is unauthorized",
			status:   http.StatusUnauthorized,
			body:     `{"error":"token expired"}`,
			wantCode: domain.EUNAUTHORIZED,
		},
		{
			name:     "404 is not found",
			status:   http.StatusNotFound,
			body:     `{"error":"product not found"}`,
			wantCode: domain.ENOTFOUND,
			wantMsg:  "product not found",
		},
		{
			name:     "409 is conflict",
			status:   http.StatusConflict,
			body:     `{"error":"stock changed"}`,
			wantCode: domain.ECONFLICT,
			wantMsg:  "stock changed",
		},
		{
			name:     "structured 4xx carries the reason verbatim",
			status:   http.StatusBadRequest,
			body:     `{"error":"คูปองหมดอายุ"}`,
			wantCode: domain.EREJECTED,
			wantMsg:  "คูปองหมดอายุ",
		},
		{
			name:     "unstructured 4xx is transient",
			status:   http.StatusBadRequest,
			body:     `<html>Bad Gateway</html>`,
			wantCode: domain.EUNAVAILABLE,
		},
		{
			name:     "5xx is transient even with a reason",
			status:   http.StatusInternalServerError,
			body:     `{"error":"database down"}`,
			wantCode: domain.EUNAVAILABLE,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})
			defer srv.Close()

			_, err := client.ValidateCoupon(context.Background(), "tok", "SAVE10")
			if err == nil {
				t.Fatal("expected an error")
			}
			if got := domain.ErrorCode(err); got != tt.wantCode {
				t.Errorf("expected code %s, got %s (%v)", tt.wantCode, got, err)
			}
			if tt.wantMsg != "" {
				if got := domain.ErrorMessage(err); got != tt.wantMsg {
					t.Errorf("expected message %q, got %q", tt.wantMsg, got)
				}
			}
		})
	}
}

func TestNetworkFailureIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	client := New(srv.URL, time.Second)
	_, err := client.Cart(context.Background(), "tok")
	if !domain.IsCode(err, domain.EUNAVAILABLE) {
		t.Fatalf("expected unavailable, got %v", err)
	}
}

func TestMalformedResponseIsUnavailable(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	})
	defer srv.Close()

	_, err := client.Products(context.Background())
	if !domain.IsCode(err, domain.EUNAVAILABLE) {
		t.Fatalf("expected unavailable, got %v", err)
	}
}

func TestBearerToken(t *testing.T) {
	var got string
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		w.Write([]byte(`{"items":[]}`))
	})
	defer srv.Close()

	if _, err := client.Cart(context.Background(), "secret-token"); err != nil {
		t.Fatalf("Cart: %v", err)
	}
	if got != "Bearer secret-token" {
		t.Errorf("expected bearer header, got %q", got)
	}
}

func TestCart(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/cart" || r.Method != http.MethodGet {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.Write([]byte(`{"items":[
			{"id":"item-1","quantity":2,"product":{"id":"p1","name":"Widget","price":"100","salePrice":"80","imageUrl":"/w.jpg"}}
		]}`))
	})
	defer srv.Close()

	items, err := client.Cart(context.Background(), "tok")
	if err != nil {
		t.Fatalf("Cart: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	item := items[0]
	if item.ID != "item-1" || item.Quantity != 2 {
		t.Errorf("unexpected item %+v", item)
	}
	if !item.Product.EffectiveUnitPrice().Equal(decimal.RequireFromString("80")) {
		t.Errorf("expected sale price 80, got %s", item.Product.EffectiveUnitPrice())
	}
}

func TestSubmitOrderJSON(t *testing.T) {
	var gotContentType string
	var gotBody orderJSONRequest
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Write([]byte(`{"orderId":"order-7"}`))
	})
	defer srv.Close()

	draft := &domain.OrderDraft{
		Lines: []domain.OrderLine{
			{ProductID: "p1", Quantity: 2, PriceAtPurchase: decimal.RequireFromString("80")},
		},
		Address: domain.ShippingAddress{
			Recipient: "Somchai",
			Line1:     "1 Main Rd",
			City:      "Bangkok",
		},
		PaymentMethod: domain.PaymentCOD,
	}

	conf, err := client.SubmitOrder(context.Background(), "tok", draft)
	if err != nil {
		t.Fatalf("SubmitOrder: %v", err)
	}
	if conf.OrderID != "order-7" {
		t.Errorf("expected order-7, got %q", conf.OrderID)
	}
	if gotContentType != "application/json" {
		t.Errorf("expected JSON content type, got %q", gotContentType)
	}
	if gotBody.PaymentMethod != domain.PaymentCOD || gotBody.Recipient != "Somchai" {
		t.Errorf("unexpected body %+v", gotBody)
	}
	// No coupon applied: the field must be null, not empty string.
	if gotBody.CouponCode != nil {
		t.Errorf("expected null couponCode, got %q", *gotBody.CouponCode)
	}
	if len(gotBody.Items) != 1 || gotBody.Items[0].ProductID != "p1" {
		t.Errorf("unexpected items %+v", gotBody.Items)
	}
}

func TestSubmitOrderMultipart(t *testing.T) {
	var gotContentType string
	fields := map[string]string{}
	var slipName, slipType string
	var slipData []byte

	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
			return
		}
		for name, values := range r.MultipartForm.Value {
			fields[name] = values[0]
		}
		file, header, err := r.FormFile("slipFile")
		if err != nil {
			t.Errorf("slip file: %v", err)
			return
		}
		defer file.Close()
		slipName = header.Filename
		slipType = header.Header.Get("Content-Type")
		slipData, _ = io.ReadAll(file)
		w.Write([]byte(`{"orderId":"order-8"}`))
	})
	defer srv.Close()

	draft := &domain.OrderDraft{
		Lines: []domain.OrderLine{
			{ProductID: "p1", Quantity: 1, PriceAtPurchase: decimal.RequireFromString("500")},
		},
		Address: domain.ShippingAddress{
			Recipient: "Somchai",
			Line1:     "1 Main Rd",
			City:      "Bangkok",
		},
		PaymentMethod: domain.PaymentBankTransfer,
		CouponCode:    "SAVE10",
		Slip: &domain.PaymentSlip{
			Filename:    "slip 01.jpg",
			ContentType: "image/jpeg",
			Data:        []byte("fake-jpeg-bytes"),
		},
	}

	conf, err := client.SubmitOrder(context.Background(), "tok", draft)
	if err != nil {
		t.Fatalf("SubmitOrder: %v", err)
	}
	if conf.OrderID != "order-8" {
		t.Errorf("expected order-8, got %q", conf.OrderID)
	}
	if gotContentType == "" || gotContentType == "application/json" {
		t.Errorf("expected multipart content type, got %q", gotContentType)
	}
	if fields["paymentMethod"] != domain.PaymentBankTransfer {
		t.Errorf("expected bank_transfer, got %q", fields["paymentMethod"])
	}
	if fields["couponCode"] != "SAVE10" {
		t.Errorf("expected coupon field, got %q", fields["couponCode"])
	}

	var items []orderItemDTO
	if err := json.Unmarshal([]byte(fields["items"]), &items); err != nil {
		t.Fatalf("items field not JSON: %v", err)
	}
	if len(items) != 1 || items[0].ProductID != "p1" {
		t.Errorf("unexpected items %+v", items)
	}

	if slipName != "slip 01.jpg" {
		t.Errorf("expected original filename preserved, got %q", slipName)
	}
	if slipType != "image/jpeg" {
		t.Errorf("expected original content type preserved, got %q", slipType)
	}
	if string(slipData) != "fake-jpeg-bytes" {
		t.Errorf("unexpected slip bytes %q", slipData)
	}
}

func TestLogin(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Email != "a@b.co" {
			t.Errorf("unexpected email %q", req.Email)
		}
		if r.Header.Get("Authorization") != "" {
			t.Error("login must not carry a bearer token")
		}
		w.Write([]byte(`{"token":"tok-1","user":{"id":"u1","name":"Somchai","email":"a@b.co","role":"customer"}}`))
	})
	defer srv.Close()

	result, err := client.Login(context.Background(), "a@b.co", "pw")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if result.Token != "tok-1" || result.User.Name != "Somchai" {
		t.Errorf("unexpected result %+v", result)
	}
}
