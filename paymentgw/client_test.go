package paymentgw

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateGatewayOrder(t *testing.T) {
	tests := []struct {
		name          string
		handler       http.HandlerFunc
		wantErr       bool
		errorContains string
	}{
		{
			name: "Success",
			handler: func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/v1/orders", r.URL.Path)
				assert.Equal(t, http.MethodPost, r.Method)

				var req GatewayOrderRequest
				require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				assert.Equal(t, int64(150000), req.AmountMinor)
				assert.Equal(t, "INR", req.Currency)
				assert.Equal(t, "PO-CUST42-ABC234", req.Receipt)
				assert.Equal(t, "PrintDesk", req.MerchantName)

				w.WriteHeader(http.StatusCreated)
				json.NewEncoder(w).Encode(GatewayOrder{Reference: "gw_order_123"})
			},
		},
		{
			name: "Gateway error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte("maintenance"))
			},
			wantErr:       true,
			errorContains: "status 503",
		},
		{
			name: "Empty reference",
			handler: func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(GatewayOrder{})
			},
			wantErr:       true,
			errorContains: "empty order reference",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			c := NewClient(srv.URL, "PrintDesk")
			gw, err := c.CreateGatewayOrder(context.Background(), GatewayOrderRequest{
				AmountMinor: 150000,
				Currency:    "INR",
				Receipt:     "PO-CUST42-ABC234",
				PayerName:   "U One",
				PayerEmail:  "u1@example.com",
			})

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorContains)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "gw_order_123", gw.Reference)
		})
	}
}
