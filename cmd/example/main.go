package main

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log"
	"math"

	"github.com/bjoern234/zarrs"
	"github.com/bjoern234/zarrs/pkg/codec"
	"github.com/bjoern234/zarrs/pkg/dtype"
	"github.com/bjoern234/zarrs/pkg/store"
	"github.com/bjoern234/zarrs/pkg/subset"
)

func main() {
	fmt.Println("Starting zarrs example")

	ctx := context.Background()
	mem := store.NewMemStore()

	// An 8x8 float32 array, sharded into 4x4 chunks with 2x2 inner chunks,
	// zstd-compressed inner data, checksummed shard index.
	shardConfig := map[string]any{
		"chunk_shape": []uint64{2, 2},
		"codecs": []map[string]any{
			{"name": "bytes", "configuration": map[string]any{"endian": "little"}},
			{"name": "zstd", "configuration": map[string]any{"level": 3}},
		},
		"index_location": "end",
	}
	shardRaw, err := json.Marshal(shardConfig)
	if err != nil {
		log.Fatalf("marshal shard config: %s", err)
	}

	arr, err := zarrs.NewArrayBuilder([]uint64{8, 8}, dtype.Float32, []uint64{4, 4}).
		FillValue(0).
		Codecs(codec.Metadata{Name: "sharding_indexed", Configuration: shardRaw}).
		DimensionNames("y", "x").
		Build(mem, "/data/example", zarrs.DefaultConfig())
	if err != nil {
		log.Fatalf("build array: %s", err)
	}
	if err := arr.StoreMetadata(ctx); err != nil {
		log.Fatalf("store metadata: %s", err)
	}

	// Fill the upper-left 6x6 region with a gradient.
	region, err := subset.New([]uint64{0, 0}, []uint64{6, 6})
	if err != nil {
		log.Fatalf("subset: %s", err)
	}
	data := make([]byte, region.NumElements()*4)
	for i := uint64(0); i < region.NumElements(); i++ {
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(float32(i)))
	}
	if err := arr.StoreArraySubset(ctx, region, data); err != nil {
		log.Fatalf("store subset: %s", err)
	}
	fmt.Println("Wrote 6x6 region")

	// Read back a window straddling chunk boundaries.
	window, err := subset.New([]uint64{2, 2}, []uint64{3, 3})
	if err != nil {
		log.Fatalf("subset: %s", err)
	}
	got, err := arr.RetrieveArraySubset(ctx, window)
	if err != nil {
		log.Fatalf("retrieve subset: %s", err)
	}
	for row := uint64(0); row < 3; row++ {
		for col := uint64(0); col < 3; col++ {
			bits := binary.LittleEndian.Uint32(got[(row*3+col)*4:])
			fmt.Printf("%8.1f", math.Float32frombits(bits))
		}
		fmt.Println()
	}

	// Reopen from the stored metadata and confirm the same read.
	reopened, err := zarrs.OpenArray(ctx, mem, "/data/example", zarrs.DefaultConfig())
	if err != nil {
		log.Fatalf("open array: %s", err)
	}
	again, err := reopened.RetrieveArraySubset(ctx, window)
	if err != nil {
		log.Fatalf("retrieve subset: %s", err)
	}
	if string(again) != string(got) {
		log.Fatal("reopened array returned different data")
	}
	fmt.Println("Reopened array matches")
}
