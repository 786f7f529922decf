package protocol

import "encoding/json"

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	AgentName       string `json:"agent_name"`
	EntityID        string `json:"entity_id"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	SessionID       string `json:"session_id"`
	EntityID        string `json:"entity_id"`
	ChunkSize       [3]int `json:"chunk_size"`
}

// REQ (client -> server): one read query or mutating submission.
type ReqMsg struct {
	Type            string          `json:"type"`
	ProtocolVersion string          `json:"protocol_version"`
	ID              string          `json:"id"`
	Method          string          `json:"method"`
	Params          json.RawMessage `json:"params,omitempty"`
}

// RES (server -> client): reply correlated to a REQ by id.
type ResMsg struct {
	Type            string          `json:"type"`
	ProtocolVersion string          `json:"protocol_version,omitempty"`
	ID              string          `json:"id"`
	OK              bool            `json:"ok"`
	Code            string          `json:"code,omitempty"`
	Message         string          `json:"message,omitempty"`
	Result          json.RawMessage `json:"result,omitempty"`
}

// RECEIPT (server -> client, push): final outcome of a submission.
type ReceiptMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
	SubmissionID    string `json:"submission_id"`
	Status          string `json:"status"`
	Code            string `json:"code,omitempty"`
	Message         string `json:"message,omitempty"`
	GasUsed         uint64 `json:"gas_used,omitempty"`
}

// Read params/results.

type EntityParams struct {
	Entity string `json:"entity"`
}

type PositionResult struct {
	Pos [3]int `json:"pos"`
}

type EnergyResult struct {
	Energy int64 `json:"energy"`
}

type InvSlot struct {
	Item   uint16 `json:"item"`
	Amount int64  `json:"amount"`
}

type InventoryResult struct {
	Slots []InvSlot `json:"slots"`
	Chest []InvSlot `json:"chest,omitempty"`
}

type EntityStatusResult struct {
	Active bool `json:"active"`
}

type BlockParams struct {
	Pos [3]int `json:"pos"`
}

type BlockResult struct {
	Block uint16 `json:"block"`
	Biome uint8  `json:"biome"`
}

// BlocksParams asks for the inclusive box [min, max].
type BlocksParams struct {
	Min [3]int `json:"min"`
	Max [3]int `json:"max"`
}

// BlocksResult lists cells x fastest, then z, then y.
type BlocksResult struct {
	Min    [3]int   `json:"min"`
	Max    [3]int   `json:"max"`
	Blocks []uint16 `json:"blocks"`
	Biomes []uint8  `json:"biomes"`
}

// Submission params/results.

type GasProfile struct {
	Mode   string  `json:"mode"` // "fixed" | "estimate"
	Limit  uint64  `json:"limit,omitempty"`
	Price  uint64  `json:"price,omitempty"`
	Margin float64 `json:"margin,omitempty"`
}

type SubmitParams struct {
	SubmissionID string            `json:"submission_id"`
	System       string            `json:"system"`
	Fn           string            `json:"fn"`
	Args         []json.RawMessage `json:"args"`
	Gas          GasProfile        `json:"gas"`
}

type SubmitResult struct {
	Seq uint64 `json:"seq"`
}

type ResyncResult struct {
	Seq uint64 `json:"seq"`
}
