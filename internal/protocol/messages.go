// Package protocol defines the JSON frames exchanged over a relay
// WebSocket. The relay itself emits only ready, error, disconnect and
// dapp_reconnected; every other type passes through verbatim and is typed
// here for clients and tests.
package protocol

import "encoding/json"

// Frame types
const (
	TypeReady           = "ready"
	TypeConnect         = "connect"
	TypeDisconnect      = "disconnect"
	TypeDappReconnected = "dapp_reconnected"
	TypeRequest         = "request"
	TypeResponse        = "response"
	TypeChainChanged    = "chainChanged"
	TypeAccountsChanged = "accountsChanged"
	TypeError           = "error"
)

// EIP-1193 provider error codes
const (
	CodeUserRejected      = 4001
	CodeUnauthorized      = 4100
	CodeUnsupportedMethod = 4200
	CodeDisconnected      = 4900
	CodeChainDisconnected = 4901
)

// JSON-RPC error codes
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Relay error codes
const (
	CodePeerNotConnected = -32000
	CodeSessionNotFound  = -32001
	CodeSessionExpired   = -32002
	CodeRequestTimeout   = -32003
)

type ReadyMessage struct {
	Type string `json:"type"`
}

type ConnectMessage struct {
	Type    string `json:"type"`
	Address string `json:"address"`
	ChainID int64  `json:"chainId"`
}

type DisconnectMessage struct {
	Type   string `json:"type"`
	Reason string `json:"reason,omitempty"`
}

type RequestMessage struct {
	Type   string          `json:"type"`
	ID     int64           `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

type ResponseMessage struct {
	Type   string          `json:"type"`
	ID     int64           `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *ErrorDetail    `json:"error,omitempty"`
}

type ErrorDetail struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type ChainChangedMessage struct {
	Type    string `json:"type"`
	ChainID int64  `json:"chainId"`
}

type AccountsChangedMessage struct {
	Type     string   `json:"type"`
	Accounts []string `json:"accounts"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Relay-emitted frames. Shapes are fixed wire contracts; marshaling them
// cannot fail, so constructors return bytes directly.

func Ready() []byte {
	return mustMarshal(ReadyMessage{Type: TypeReady})
}

func DappReconnected() []byte {
	return mustMarshal(ReadyMessage{Type: TypeDappReconnected})
}

func Disconnect(reason string) []byte {
	return mustMarshal(DisconnectMessage{Type: TypeDisconnect, Reason: reason})
}

func Error(code int, message string) []byte {
	return mustMarshal(ErrorMessage{Type: TypeError, Code: code, Message: message})
}

// PeerNotConnected is the frame returned to a sender whose peer is absent
// at forward time.
func PeerNotConnected() []byte {
	return Error(CodePeerNotConnected, "Peer not connected")
}

func mustMarshal(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}
