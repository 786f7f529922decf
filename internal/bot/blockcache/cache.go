// Package blockcache memoizes remote block lookups by coordinate, grouped per
// chunk so a chunk-commit can drop exactly the region a mutation touched.
package blockcache

import (
	"context"
	"fmt"

	"voxelbot.ai/internal/voxel"
)

type ReadFunc func(ctx context.Context, c voxel.Coord) (voxel.Block, error)

// BulkReadFunc reads the inclusive box [min, max], cells x fastest, then z,
// then y, matching the wire layout of read_blocks.
type BulkReadFunc func(ctx context.Context, min, max voxel.Coord) ([]voxel.Block, error)

type Cache struct {
	read ReadFunc
	bulk BulkReadFunc // nil disables Preload

	// Accessed only from the scheduler cycle goroutine.
	chunks map[voxel.ChunkKey]map[voxel.Coord]voxel.Block

	hits   uint64
	misses uint64
}

func New(read ReadFunc, bulk BulkReadFunc) *Cache {
	return &Cache{
		read:   read,
		bulk:   bulk,
		chunks: map[voxel.ChunkKey]map[voxel.Coord]voxel.Block{},
	}
}

func (c *Cache) Block(ctx context.Context, pos voxel.Coord) (voxel.Block, error) {
	key := voxel.ChunkOf(pos)
	if m := c.chunks[key]; m != nil {
		if b, ok := m[pos]; ok {
			c.hits++
			return b, nil
		}
	}
	c.misses++
	b, err := c.read(ctx, pos)
	if err != nil {
		return voxel.Block{}, err
	}
	c.put(key, pos, b)
	return b, nil
}

// Preload bulk-reads the inclusive box [min, max] into the cache, replacing
// many small reads with one. No-op when no bulk reader is wired.
func (c *Cache) Preload(ctx context.Context, min, max voxel.Coord) error {
	if c.bulk == nil {
		return nil
	}
	if min.X > max.X || min.Y > max.Y || min.Z > max.Z {
		return fmt.Errorf("preload: inverted box %v..%v", min, max)
	}
	blocks, err := c.bulk(ctx, min, max)
	if err != nil {
		return err
	}
	nx := max.X - min.X + 1
	nz := max.Z - min.Z + 1
	ny := max.Y - min.Y + 1
	if len(blocks) != nx*ny*nz {
		return fmt.Errorf("preload: got %d cells for %dx%dx%d box", len(blocks), nx, ny, nz)
	}
	i := 0
	for y := min.Y; y <= max.Y; y++ {
		for z := min.Z; z <= max.Z; z++ {
			for x := min.X; x <= max.X; x++ {
				pos := voxel.Coord{X: x, Y: y, Z: z}
				c.put(voxel.ChunkOf(pos), pos, blocks[i])
				i++
			}
		}
	}
	return nil
}

func (c *Cache) put(key voxel.ChunkKey, pos voxel.Coord, b voxel.Block) {
	m := c.chunks[key]
	if m == nil {
		m = map[voxel.Coord]voxel.Block{}
		c.chunks[key] = m
	}
	m[pos] = b
}

// CommitChunk drops every cached cell in the chunk. Callers invoke it after a
// confirmed mutation inside that chunk; a stale read afterwards is a bug.
func (c *Cache) CommitChunk(key voxel.ChunkKey) {
	delete(c.chunks, key)
}

// CommitAt is CommitChunk for the chunk containing pos.
func (c *Cache) CommitAt(pos voxel.Coord) {
	c.CommitChunk(voxel.ChunkOf(pos))
}

// Clear drops everything. Modes call it before a fresh assessment.
func (c *Cache) Clear() {
	c.chunks = map[voxel.ChunkKey]map[voxel.Coord]voxel.Block{}
}

func (c *Cache) Stats() (hits, misses uint64) { return c.hits, c.misses }

func (c *Cache) Len() int {
	n := 0
	for _, m := range c.chunks {
		n += len(m)
	}
	return n
}
