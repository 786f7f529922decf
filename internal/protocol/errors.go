package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Read layer.
	ErrNotFound = "E_NOT_FOUND"
	ErrStale    = "E_STALE"

	// Submission layer.
	ErrReverted   = "E_REVERTED"
	ErrNoGas      = "E_NO_GAS"
	ErrNoEnergy   = "E_NO_ENERGY"
	ErrSeqOrder   = "E_SEQ_ORDER"
	ErrRateLimit  = "E_RATE_LIMIT"
	ErrNoResource = "E_NO_RESOURCE"

	ErrInternal = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrNotFound:        {},
	ErrStale:           {},
	ErrReverted:        {},
	ErrNoGas:           {},
	ErrNoEnergy:        {},
	ErrSeqOrder:        {},
	ErrRateLimit:       {},
	ErrNoResource:      {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
