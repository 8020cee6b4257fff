package trezor

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

type bridgeRequest struct {
	ID     string                 `json:"id"`
	Method string                 `json:"method"`
	Params map[string]interface{} `json:"params"`
}

// newBridge starts a Connect bridge answering every request with the
// envelope returned by handler. A nil envelope makes the bridge drop the
// connection.
func newBridge(
	t *testing.T, handler func(req bridgeRequest) map[string]interface{},
) string {
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			req := bridgeRequest{}
			if err := json.Unmarshal(msg, &req); err != nil {
				return
			}

			resp := handler(req)
			if resp == nil {
				return
			}
			if _, ok := resp["id"]; !ok {
				resp["id"] = req.ID
			}
			buf, _ := json.Marshal(resp)
			if err := conn.WriteMessage(websocket.TextMessage, buf); err != nil {
				return
			}
		}
	}))
	t.Cleanup(server.Close)

	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func dial(t *testing.T, url string) *Client {
	client, err := Dial(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestGetPublicKey(t *testing.T) {
	requests := make(chan bridgeRequest, 1)
	url := newBridge(t, func(req bridgeRequest) map[string]interface{} {
		requests <- req
		return map[string]interface{}{
			"success": true,
			"payload": map[string]interface{}{
				"xpub":  "xpub-test",
				"depth": 3,
				"path":  []uint32{0x8000002c, 0x8000008d, 0x80000000},
			},
		}
	})
	client := dial(t, url)

	key, err := client.GetPublicKey(
		context.Background(), GetPublicKeyParams{Path: "m/44'/141'/0'"},
	)
	require.NoError(t, err)
	require.Equal(t, "xpub-test", key.XPub)
	require.Equal(t, uint8(3), key.Depth)
	require.Len(t, key.Path, 3)

	received := <-requests
	require.Equal(t, methodGetPublicKey, received.Method)
	require.Equal(t, "m/44'/141'/0'", received.Params["path"])
	require.NotEmpty(t, received.ID)
}

func TestGetAddress(t *testing.T) {
	url := newBridge(t, func(req bridgeRequest) map[string]interface{} {
		if req.Params["showOnTrezor"] == true {
			return map[string]interface{}{
				"success": false,
				"payload": map[string]interface{}{
					"error": "Cancelled", "code": "Failure_ActionCancelled",
				},
			}
		}
		return map[string]interface{}{
			"success": true,
			"payload": map[string]interface{}{
				"address": "RHgDbKKNJGEfX8dwAV7SergtXn3Rdwdi5n",
			},
		}
	})
	client := dial(t, url)
	ctx := context.Background()

	addr, err := client.GetAddress(ctx, GetAddressParams{Path: "m/44'/141'/0'/0/0"})
	require.NoError(t, err)
	require.Equal(t, "RHgDbKKNJGEfX8dwAV7SergtXn3Rdwdi5n", addr.Address)

	_, err = client.GetAddress(ctx, GetAddressParams{
		Path: "m/44'/141'/0'/0/0", ShowOnTrezor: true,
	})
	var trezorErr *Error
	require.True(t, errors.As(err, &trezorErr))
	require.Equal(t, "Cancelled", trezorErr.Message)
	require.Equal(t, "Failure_ActionCancelled", trezorErr.Code)
}

func TestSignTransaction(t *testing.T) {
	requests := make(chan bridgeRequest, 1)
	url := newBridge(t, func(req bridgeRequest) map[string]interface{} {
		requests <- req
		return map[string]interface{}{
			"success": true,
			"payload": map[string]interface{}{
				"signatures":   []string{"3044"},
				"serializedTx": "0400008085202f89",
			},
		}
	})
	client := dial(t, url)

	signed, err := client.SignTransaction(context.Background(), SignTxParams{
		VersionGroupID: 0x892f2085,
		BranchID:       0x76b809bb,
		Version:        4,
		Coin:           "kmd",
		Locktime:       1700000000,
		Outputs: []TxOutput{{
			Address: "RHgDbKKNJGEfX8dwAV7SergtXn3Rdwdi5n", Amount: "150000",
			ScriptType: "PAYTOADDRESS",
		}},
		Inputs: []TxInput{{
			AddressN:  []uint32{0x8000002c, 0x8000008d, 0x80000000, 0, 0},
			PrevHash:  "aa",
			PrevIndex: 1,
			Amount:    "100000",
		}},
		RefTxs: []RefTransaction{{
			Hash:       "aa",
			BinOutputs: []RefTxOutput{{Amount: 100000, ScriptPubKey: "76a9"}},
			ExtraData:  "0000000000000000000000",
		}},
	})
	require.NoError(t, err)
	require.Equal(t, "0400008085202f89", signed.SerializedTx)

	received := <-requests
	require.Equal(t, methodSignTransaction, received.Method)
	require.Equal(t, "kmd", received.Params["coin"])
	require.Equal(t, false, received.Params["push"])
	require.Equal(t, float64(0x76b809bb), received.Params["branchId"])

	outputs := received.Params["outputs"].([]interface{})
	require.Len(t, outputs, 1)
	require.Equal(t, "150000", outputs[0].(map[string]interface{})["amount"])

	refTxs := received.Params["refTxs"].([]interface{})
	require.Len(t, refTxs, 1)
	refTx := refTxs[0].(map[string]interface{})
	require.Equal(t, "0000000000000000000000", refTx["extra_data"])
	require.Contains(t, refTx, "bin_outputs")
	require.Contains(t, refTx, "version_group_id")
}

func TestSignTransactionErrorPayload(t *testing.T) {
	// Some bridge versions report failures with success set.
	url := newBridge(t, func(req bridgeRequest) map[string]interface{} {
		return map[string]interface{}{
			"success": true,
			"payload": map[string]interface{}{"error": "Transaction cancelled"},
		}
	})
	client := dial(t, url)

	_, err := client.SignTransaction(context.Background(), SignTxParams{})
	var trezorErr *Error
	require.ErrorAs(t, err, &trezorErr)
	require.Equal(t, "Transaction cancelled", trezorErr.Message)
}

func TestCallSkipsUnrelatedMessages(t *testing.T) {
	url := newBridge(t, func(req bridgeRequest) map[string]interface{} {
		return map[string]interface{}{
			"success": true,
			"payload": map[string]interface{}{"xpub": "xpub-test"},
		}
	})

	// Wrap the bridge with a device event sent before every response.
	upgrader := websocket.Upgrader{}
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		upstream, _, err := websocket.DefaultDialer.Dial(url, nil)
		if err != nil {
			return
		}
		defer upstream.Close()

		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			conn.WriteMessage(
				websocket.TextMessage, []byte(`{"type":"device-connect"}`),
			)
			upstream.WriteMessage(websocket.TextMessage, msg)
			_, resp, err := upstream.ReadMessage()
			if err != nil {
				return
			}
			conn.WriteMessage(websocket.TextMessage, resp)
		}
	}))
	defer proxy.Close()

	client := dial(t, "ws"+strings.TrimPrefix(proxy.URL, "http"))

	key, err := client.GetPublicKey(
		context.Background(), GetPublicKeyParams{Path: "m/141'/0'/0'/0/0"},
	)
	require.NoError(t, err)
	require.Equal(t, "xpub-test", key.XPub)
}

func TestNullPayload(t *testing.T) {
	url := newBridge(t, func(req bridgeRequest) map[string]interface{} {
		return map[string]interface{}{"success": true, "payload": nil}
	})
	client := dial(t, url)

	addr, err := client.GetAddress(
		context.Background(), GetAddressParams{Path: "m/44'/141'/0'/0/0"},
	)
	require.NoError(t, err)
	require.Empty(t, addr.Address)
}

func TestFailingCall(t *testing.T) {
	t.Run("bridge unreachable", func(t *testing.T) {
		_, err := Dial(context.Background(), "ws://127.0.0.1:1")
		require.ErrorIs(t, err, ErrConnectionFailed)
	})

	t.Run("connection dropped", func(t *testing.T) {
		url := newBridge(t, func(bridgeRequest) map[string]interface{} {
			return nil
		})
		client := dial(t, url)

		_, err := client.GetAddress(
			context.Background(), GetAddressParams{Path: "m/44'/141'/0'/0/0"},
		)
		require.ErrorIs(t, err, ErrDisconnected)
	})

	t.Run("context deadline", func(t *testing.T) {
		release := make(chan struct{})
		url := newBridge(t, func(bridgeRequest) map[string]interface{} {
			<-release
			return nil
		})
		t.Cleanup(func() { close(release) })
		client := dial(t, url)

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		_, err := client.GetAddress(ctx, GetAddressParams{Path: "m/44'/141'/0'/0/0"})
		require.Error(t, err)
	})

	t.Run("closed client", func(t *testing.T) {
		url := newBridge(t, func(bridgeRequest) map[string]interface{} {
			return map[string]interface{}{"success": true}
		})
		client := dial(t, url)
		require.NoError(t, client.Close())
		require.NoError(t, client.Close())

		_, err := client.GetAddress(
			context.Background(), GetAddressParams{Path: "m/44'/141'/0'/0/0"},
		)
		require.ErrorIs(t, err, ErrClientClosed)
	})
}
