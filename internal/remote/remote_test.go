package remote

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"voxelbot.ai/internal/bot/txn"
	"voxelbot.ai/internal/protocol"
	"voxelbot.ai/internal/voxel"
)

// fakeServer speaks just enough of the protocol for the client tests.
type fakeServer struct {
	t  *testing.T
	mu sync.Mutex

	reverts bool // submissions resolve as REVERTED
}

func (s *fakeServer) handle(w http.ResponseWriter, r *http.Request) {
	up := websocket.Upgrader{}
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	var hello protocol.HelloMsg
	if err := conn.ReadJSON(&hello); err != nil {
		return
	}
	if hello.Type != protocol.TypeHello {
		s.t.Errorf("first frame type = %q, want HELLO", hello.Type)
		return
	}
	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       "sess-1",
		EntityID:        hello.EntityID,
		ChunkSize:       [3]int{16, 16, 16},
	}
	var wmu sync.Mutex
	write := func(v any) {
		wmu.Lock()
		defer wmu.Unlock()
		_ = conn.WriteJSON(v)
	}
	write(welcome)

	for {
		var req protocol.ReqMsg
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		res := protocol.ResMsg{Type: protocol.TypeRes, ID: req.ID, OK: true}
		switch req.Method {
		case protocol.MethodReadPosition:
			res.Result = mustJSON(protocol.PositionResult{Pos: [3]int{10, 64, -3}})
		case protocol.MethodReadEnergy:
			res.Result = mustJSON(protocol.EnergyResult{Energy: 75})
		case protocol.MethodReadInventory:
			res.Result = mustJSON(protocol.InventoryResult{
				Slots: []protocol.InvSlot{{Item: 7, Amount: 12}},
				Chest: []protocol.InvSlot{{Item: 3, Amount: 1}},
			})
		case protocol.MethodEntityStatus:
			res.Result = mustJSON(protocol.EntityStatusResult{Active: true})
		case protocol.MethodReadBlock:
			res.Result = mustJSON(protocol.BlockResult{Block: 4, Biome: 2})
		case protocol.MethodReadBlocks:
			var p protocol.BlocksParams
			_ = json.Unmarshal(req.Params, &p)
			n := (p.Max[0] - p.Min[0] + 1) * (p.Max[1] - p.Min[1] + 1) * (p.Max[2] - p.Min[2] + 1)
			blocks := make([]uint16, n)
			for i := range blocks {
				blocks[i] = uint16(i)
			}
			res.Result = mustJSON(protocol.BlocksResult{Min: p.Min, Max: p.Max, Blocks: blocks})
		case protocol.MethodSubmit:
			var p protocol.SubmitParams
			_ = json.Unmarshal(req.Params, &p)
			res.Result = mustJSON(protocol.SubmitResult{Seq: 9})
			write(res)
			rcpt := protocol.ReceiptMsg{
				Type:         protocol.TypeReceipt,
				SubmissionID: p.SubmissionID,
				Status:       protocol.StatusConfirmed,
				GasUsed:      100,
			}
			s.mu.Lock()
			if s.reverts {
				rcpt.Status = protocol.StatusReverted
				rcpt.Code = protocol.ErrReverted
				rcpt.Message = "blocked"
			}
			s.mu.Unlock()
			write(rcpt)
			continue
		case protocol.MethodResyncSeq:
			res.Result = mustJSON(protocol.ResyncResult{Seq: 42})
		default:
			res.OK = false
			res.Code = protocol.ErrProtoBadRequest
			res.Message = "unknown method " + req.Method
		}
		write(res)
	}
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

func dialFake(t *testing.T, srv *fakeServer) *Client {
	t.Helper()
	hs := httptest.NewServer(http.HandlerFunc(srv.handle))
	t.Cleanup(hs.Close)
	url := "ws" + strings.TrimPrefix(hs.URL, "http")
	logger := log.New(os.Stdout, "[test] ", log.LstdFlags)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := Dial(ctx, url, "tester", "ent-1", logger)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestObserverReads(t *testing.T) {
	c := dialFake(t, &fakeServer{t: t})
	if c.EntityID() != "ent-1" {
		t.Fatalf("entity id = %q", c.EntityID())
	}
	obs := NewObserver(c)
	ctx := context.Background()

	pos, err := obs.Position(ctx)
	if err != nil {
		t.Fatalf("Position: %v", err)
	}
	if pos != (voxel.Coord{X: 10, Y: 64, Z: -3}) {
		t.Fatalf("pos = %+v", pos)
	}

	energy, err := obs.Energy(ctx)
	if err != nil || energy != 75 {
		t.Fatalf("Energy = %d, %v", energy, err)
	}

	inv, chest, err := obs.Inventory(ctx)
	if err != nil {
		t.Fatalf("Inventory: %v", err)
	}
	if len(inv) != 1 || inv[0].Item != 7 || inv[0].Amount != 12 {
		t.Fatalf("inv = %+v", inv)
	}
	if len(chest) != 1 || chest[0].Item != 3 {
		t.Fatalf("chest = %+v", chest)
	}

	active, err := obs.Active(ctx)
	if err != nil || !active {
		t.Fatalf("Active = %v, %v", active, err)
	}

	b, err := obs.Block(ctx, voxel.Coord{X: 1, Y: 2, Z: 3})
	if err != nil {
		t.Fatalf("Block: %v", err)
	}
	if b.Type != 4 || b.Biome != 2 {
		t.Fatalf("block = %+v", b)
	}
}

func TestObserverBlocksBox(t *testing.T) {
	c := dialFake(t, &fakeServer{t: t})
	obs := NewObserver(c)

	min := voxel.Coord{X: 0, Y: 0, Z: 0}
	max := voxel.Coord{X: 1, Y: 1, Z: 1}
	blocks, err := obs.Blocks(context.Background(), min, max)
	if err != nil {
		t.Fatalf("Blocks: %v", err)
	}
	if len(blocks) != 8 {
		t.Fatalf("len = %d, want 8", len(blocks))
	}
	// x fastest, then z, then y: cell (1,0,0) is index 1, (0,0,1) index 2,
	// (0,1,0) index 4.
	if blocks[1].Type != 1 || blocks[2].Type != 2 || blocks[4].Type != 4 {
		t.Fatalf("layout mismatch: %v", blocks)
	}
}

func TestUnknownMethodReturnsCodeError(t *testing.T) {
	c := dialFake(t, &fakeServer{t: t})
	err := c.call(context.Background(), "no_such_method", nil, nil)
	var ce *CodeError
	if !errors.As(err, &ce) {
		t.Fatalf("err = %v, want CodeError", err)
	}
	if ce.Code != protocol.ErrProtoBadRequest {
		t.Fatalf("code = %q", ce.Code)
	}
}

func TestLedgerSubmitAwaitConfirmed(t *testing.T) {
	c := dialFake(t, &fakeServer{t: t})
	led := NewLedger(c)
	ctx := context.Background()

	call := txn.Call{System: "mine", Fn: "mine(int32[3])", Args: []any{[3]int{1, 2, 3}}, Description: "mine test"}
	if err := led.Submit(ctx, "sub-1", call, txn.FixedGas(1000, 1)); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	rcpt, err := led.Await(ctx, "sub-1")
	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	if rcpt.Status != txn.StatusConfirmed || rcpt.GasUsed != 100 {
		t.Fatalf("receipt = %+v", rcpt)
	}
}

func TestLedgerAwaitReverted(t *testing.T) {
	c := dialFake(t, &fakeServer{t: t, reverts: true})
	led := NewLedger(c)
	ctx := context.Background()

	call := txn.Call{System: "mine", Fn: "mine(int32[3])", Description: "doomed"}
	if err := led.Submit(ctx, "sub-2", call, txn.EstimateGas(0.2)); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	rcpt, err := led.Await(ctx, "sub-2")
	if err != nil {
		t.Fatalf("Await: %v", err)
	}
	if rcpt.Status != txn.StatusReverted || rcpt.Code != protocol.ErrReverted {
		t.Fatalf("receipt = %+v", rcpt)
	}
}

func TestLedgerResync(t *testing.T) {
	c := dialFake(t, &fakeServer{t: t})
	if err := NewLedger(c).Resync(context.Background()); err != nil {
		t.Fatalf("Resync: %v", err)
	}
}
