package testserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rpggio/catalogbulk/internal/app"
	"github.com/rpggio/catalogbulk/internal/config"
	"github.com/rpggio/catalogbulk/internal/domain/record"
)

// Stack is a fake catalog plus the full catalogbulk service graph pointed
// at it, served over HTTP.
type Stack struct {
	Catalog *Catalog
	App     *app.App
	Server  *httptest.Server
	Token   string
}

// NewStack wires a Stack. mutate may adjust the config before the app is
// built; the catalog URL and credentials are already set.
func NewStack(t *testing.T, mutate ...func(*config.Config)) *Stack {
	t.Helper()

	cat := NewCatalog(t)
	cfg := config.Default()
	cfg.Catalog.URL = cat.URL()
	cfg.Catalog.Tenant = cat.Tenant
	cfg.Catalog.Token = cat.Token
	cfg.Catalog.Timeout = 5 * time.Second
	cfg.Catalog.RetryBaseDelay = time.Millisecond
	cfg.DB.Path = ":memory:"
	cfg.Server.Token = "operator-token"
	for _, fn := range mutate {
		fn(&cfg)
	}
	require.NoError(t, cfg.Validate())

	a, err := app.New(cfg, nil)
	require.NoError(t, err)

	server := httptest.NewServer(a.Router("test"))
	t.Cleanup(func() {
		server.Close()
		_ = a.Close()
	})

	return &Stack{Catalog: cat, App: a, Server: server, Token: cfg.Server.Token}
}

// RPCResponse is a decoded JSON-RPC reply.
type RPCResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int             `json:"code"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	} `json:"error"`
}

// RPC posts one JSON-RPC call to /rpc with the operator token.
func (s *Stack) RPC(t *testing.T, method string, params any) RPCResponse {
	t.Helper()

	body, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params":  params,
	})
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, s.Server.URL+"/rpc", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.Token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out RPCResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

// Fixture ids seeded by Seed.
const (
	InstanceID = "6f0b6b4a-7a55-4c0e-9d7e-0a1d5e7c0001"
	HoldingsID = "6f0b6b4a-7a55-4c0e-9d7e-0a1d5e7c0002"
	ItemID     = "6f0b6b4a-7a55-4c0e-9d7e-0a1d5e7c0003"
	ItemID2    = "6f0b6b4a-7a55-4c0e-9d7e-0a1d5e7c0004"
	UserID     = "6f0b6b4a-7a55-4c0e-9d7e-0a1d5e7c0005"
	LoanID     = "6f0b6b4a-7a55-4c0e-9d7e-0a1d5e7c0006"
	ClosedLoan = "6f0b6b4a-7a55-4c0e-9d7e-0a1d5e7c0007"
	LocationID = "6f0b6b4a-7a55-4c0e-9d7e-0a1d5e7c0008"
	MaterialID = "6f0b6b4a-7a55-4c0e-9d7e-0a1d5e7c0009"

	ItemBarcode  = "350470000001"
	ItemBarcode2 = "350470000002"
	ItemHrid     = "it00000001"
	HoldingsHrid = "ho00000001"
	InstanceHrid = "in00000001"
	UserBarcode  = "0000012345"
	Accession    = "cit.oai.6f0b6b4a.7a55.4c0e.9d7e.0a1d5e7c0001"
)

// Seed loads one instance with a holdings record, two items, a patron with
// an open loan on the first item and a closed loan on the second, a
// location and a material type.
func (c *Catalog) Seed() {
	c.Add(record.KindInstance, map[string]any{
		"id": InstanceID, "hrid": InstanceHrid, "title": "A Field Guide to Moths",
	})
	c.Add(record.KindHoldings, map[string]any{
		"id": HoldingsID, "hrid": HoldingsHrid, "instanceId": InstanceID,
		"permanentLocationId": LocationID,
	})
	c.Add(record.KindItem,
		map[string]any{
			"id": ItemID, "hrid": ItemHrid, "barcode": ItemBarcode,
			"holdingsRecordId": HoldingsID, "materialTypeId": MaterialID,
			"status": map[string]any{"name": "Checked out"},
		},
		map[string]any{
			"id": ItemID2, "hrid": "it00000002", "barcode": ItemBarcode2,
			"holdingsRecordId": HoldingsID, "materialTypeId": MaterialID,
			"status": map[string]any{"name": "Available"},
		},
	)
	c.Add(record.KindUser, map[string]any{
		"id": UserID, "barcode": UserBarcode, "username": "mothra",
	})
	c.Add(record.KindLoan,
		map[string]any{
			"id": LoanID, "itemId": ItemID, "userId": UserID,
			"status": map[string]any{"name": "Open"},
		},
		map[string]any{
			"id": ClosedLoan, "itemId": ItemID2, "userId": UserID,
			"status": map[string]any{"name": "Closed"},
		},
	)
	c.AddTypes(record.TypeLocations, map[string]any{
		"id": LocationID, "name": "Main stacks", "code": "MAIN",
	})
	c.AddTypes(record.TypeMaterialTypes, map[string]any{
		"id": MaterialID, "name": "book",
	})
}
