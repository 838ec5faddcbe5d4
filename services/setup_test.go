package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"cloud.google.com/go/firestore"
	"github.com/stretchr/testify/require"

	"podoMarketAPI/internal/config"
	"podoMarketAPI/internal/payple"
)

// testFirestore connects to the local emulator. Tests that need a
// document store skip when FIRESTORE_EMULATOR_HOST is not set.
func testFirestore(t *testing.T) *firestore.Client {
	t.Helper()
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	client, err := firestore.NewClient(context.Background(), "podomarket-test")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

// testGateway stubs the payment gateway: auth always succeeds and
// points the work URL at the given pay handler.
func testGateway(t *testing.T, pay http.HandlerFunc) *payple.Client {
	t.Helper()

	mux := http.NewServeMux()
	var server *httptest.Server
	mux.HandleFunc("/php/auth.php", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"result":       "success",
			"cst_id":       "cst-1",
			"custKey":      "cust-key",
			"AuthKey":      "auth-key",
			"PCD_PAY_HOST": server.URL,
			"PCD_PAY_URL":  "/pay",
		})
	})
	mux.HandleFunc("/pay", pay)
	server = httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return payple.NewClient(config.Payple{
		BaseURL: server.URL,
		CstID:   "cst-1",
		CustKey: "cust-key",
	}, nil)
}
