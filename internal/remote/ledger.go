package remote

import (
	"context"
	"encoding/json"
	"fmt"

	"voxelbot.ai/internal/bot/txn"
	"voxelbot.ai/internal/protocol"
)

// Ledger submits mutating calls over the client connection and resolves
// their receipts. It satisfies txn.Ledger.
type Ledger struct {
	c *Client
}

func NewLedger(c *Client) *Ledger { return &Ledger{c: c} }

func (l *Ledger) Submit(ctx context.Context, id string, call txn.Call, gas txn.GasProfile) error {
	args := make([]json.RawMessage, len(call.Args))
	for i, a := range call.Args {
		b, err := json.Marshal(a)
		if err != nil {
			return fmt.Errorf("submit %s arg %d: %w", call.Description, i, err)
		}
		args[i] = b
	}
	params := protocol.SubmitParams{
		SubmissionID: id,
		System:       call.System,
		Fn:           call.Fn,
		Args:         args,
		Gas:          encodeGas(gas),
	}
	var res protocol.SubmitResult
	return l.c.call(ctx, protocol.MethodSubmit, params, &res)
}

func encodeGas(g txn.GasProfile) protocol.GasProfile {
	if g.Mode == txn.GasEstimate {
		return protocol.GasProfile{Mode: "estimate", Margin: g.Margin}
	}
	return protocol.GasProfile{Mode: "fixed", Limit: g.Limit, Price: g.Price}
}

func (l *Ledger) Await(ctx context.Context, id string) (txn.Receipt, error) {
	rcpt, err := l.c.awaitReceipt(ctx, id)
	if err != nil {
		return txn.Receipt{}, err
	}
	return txn.Receipt{
		SubmissionID: rcpt.SubmissionID,
		Status:       txn.Status(rcpt.Status),
		Code:         rcpt.Code,
		Message:      rcpt.Message,
		GasUsed:      rcpt.GasUsed,
	}, nil
}

func (l *Ledger) Resync(ctx context.Context) error {
	var res protocol.ResyncResult
	if err := l.c.call(ctx, protocol.MethodResyncSeq, nil, &res); err != nil {
		return err
	}
	l.c.log.Printf("resynced seq=%d", res.Seq)
	return nil
}
