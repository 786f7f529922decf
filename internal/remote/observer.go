package remote

import (
	"context"
	"fmt"

	"voxelbot.ai/internal/bot"
	"voxelbot.ai/internal/protocol"
	"voxelbot.ai/internal/voxel"
)

// Observer answers read queries for the connected entity. It satisfies
// bot.Observer.
type Observer struct {
	c *Client
}

func NewObserver(c *Client) *Observer { return &Observer{c: c} }

func (o *Observer) entity() protocol.EntityParams {
	return protocol.EntityParams{Entity: o.c.entityID}
}

func (o *Observer) Position(ctx context.Context) (voxel.Coord, error) {
	var res protocol.PositionResult
	if err := o.c.call(ctx, protocol.MethodReadPosition, o.entity(), &res); err != nil {
		return voxel.Coord{}, err
	}
	return voxel.FromArray(res.Pos), nil
}

func (o *Observer) Energy(ctx context.Context) (int64, error) {
	var res protocol.EnergyResult
	if err := o.c.call(ctx, protocol.MethodReadEnergy, o.entity(), &res); err != nil {
		return 0, err
	}
	return res.Energy, nil
}

func (o *Observer) Inventory(ctx context.Context) (bot.Inventory, bot.Inventory, error) {
	var res protocol.InventoryResult
	if err := o.c.call(ctx, protocol.MethodReadInventory, o.entity(), &res); err != nil {
		return nil, nil, err
	}
	return convSlots(res.Slots), convSlots(res.Chest), nil
}

func convSlots(in []protocol.InvSlot) bot.Inventory {
	out := make(bot.Inventory, len(in))
	for i, s := range in {
		out[i] = bot.InvSlot{Item: s.Item, Amount: s.Amount}
	}
	return out
}

func (o *Observer) Active(ctx context.Context) (bool, error) {
	var res protocol.EntityStatusResult
	if err := o.c.call(ctx, protocol.MethodEntityStatus, o.entity(), &res); err != nil {
		return false, err
	}
	return res.Active, nil
}

func (o *Observer) Block(ctx context.Context, at voxel.Coord) (voxel.Block, error) {
	params := protocol.BlockParams{Pos: at.ToArray()}
	var res protocol.BlockResult
	if err := o.c.call(ctx, protocol.MethodReadBlock, params, &res); err != nil {
		return voxel.Block{}, err
	}
	return voxel.Block{Type: res.Block, Biome: res.Biome}, nil
}

// Blocks reads the inclusive box [min, max]. The result is x fastest, then
// z, then y, matching the wire layout.
func (o *Observer) Blocks(ctx context.Context, min, max voxel.Coord) ([]voxel.Block, error) {
	params := protocol.BlocksParams{Min: min.ToArray(), Max: max.ToArray()}
	var res protocol.BlocksResult
	if err := o.c.call(ctx, protocol.MethodReadBlocks, params, &res); err != nil {
		return nil, err
	}
	want := (max.X - min.X + 1) * (max.Y - min.Y + 1) * (max.Z - min.Z + 1)
	if len(res.Blocks) != want {
		return nil, fmt.Errorf("read_blocks: got %d cells, want %d", len(res.Blocks), want)
	}
	out := make([]voxel.Block, len(res.Blocks))
	for i, t := range res.Blocks {
		out[i] = voxel.Block{Type: t}
	}
	for i := range res.Biomes {
		if i < len(out) {
			out[i].Biome = res.Biomes[i]
		}
	}
	return out, nil
}
