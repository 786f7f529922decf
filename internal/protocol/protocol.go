package protocol

import "encoding/json"

const Version = "1.0"

// Frame types.
const (
	TypeHello   = "HELLO"
	TypeWelcome = "WELCOME"
	TypeReq     = "REQ"
	TypeRes     = "RES"
	TypeReceipt = "RECEIPT"
)

// Request methods.
const (
	MethodReadPosition  = "read_position"
	MethodReadEnergy    = "read_energy"
	MethodReadInventory = "read_inventory"
	MethodReadBlock     = "read_block"
	MethodReadBlocks    = "read_blocks"
	MethodEntityStatus  = "entity_status"
	MethodSubmit        = "submit"
	MethodResyncSeq     = "resync_seq"
)

// Receipt statuses.
const (
	StatusConfirmed = "CONFIRMED"
	StatusReverted  = "REVERTED"
)

// BaseMessage lets us route unknown JSON frames by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
