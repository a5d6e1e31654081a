package egdb

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/zstd"
)

// zstdBlockSize is the number of layer entries compressed independently
// per block; when a shared dictionary is set it is written ahead of the
// block data so short blocks still compress well.
const zstdBlockSize = 256

// ZstdBackend persists layers as a sequence of independently
// zstd-compressed blocks behind an offsets table, optionally primed with a
// shared dictionary built from representative layer samples. A block is
// decompressed only when one of its entries is actually probed.
type ZstdBackend struct {
	Dir  string
	Dict []byte

	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func (z *ZstdBackend) path(stones int) string {
	return filepath.Join(z.Dir, fmt.Sprintf("layer-%03d.egdb.zst", stones))
}

func (z *ZstdBackend) enc() (*zstd.Encoder, error) {
	if z.encoder != nil {
		return z.encoder, nil
	}
	opts := []zstd.EOption{zstd.WithEncoderLevel(zstd.SpeedBestCompression)}
	if len(z.Dict) > 0 {
		opts = append(opts, zstd.WithEncoderDict(z.Dict))
	}
	enc, err := zstd.NewWriter(nil, opts...)
	if err != nil {
		return nil, err
	}
	z.encoder = enc
	return enc, nil
}

func (z *ZstdBackend) dec() (*zstd.Decoder, error) {
	if z.decoder != nil {
		return z.decoder, nil
	}
	opts := []zstd.DOption{}
	if len(z.Dict) > 0 {
		opts = append(opts, zstd.WithDecoderDicts(z.Dict))
	}
	dec, err := zstd.NewReader(nil, opts...)
	if err != nil {
		return nil, err
	}
	z.decoder = dec
	return dec, nil
}

// Save splits values into zstdBlockSize-entry blocks, compresses each
// independently, and writes [dictLen][dict][numEntries][numBlocks][offsets...][checksum][blocks...].
// The checksum is the xxhash of the concatenated compressed blocks; readers
// load it but do not verify it.
func (z *ZstdBackend) Save(stones int, values []int8) error {
	if err := os.MkdirAll(z.Dir, 0o755); err != nil {
		return err
	}
	enc, err := z.enc()
	if err != nil {
		return err
	}

	numBlocks := (len(values) + zstdBlockSize - 1) / zstdBlockSize
	offsets := make([]uint32, numBlocks+1)
	var blocks bytes.Buffer

	for b := 0; b < numBlocks; b++ {
		start := b * zstdBlockSize
		end := start + zstdBlockSize
		if end > len(values) {
			end = len(values)
		}
		raw := make([]byte, end-start)
		for i, v := range values[start:end] {
			raw[i] = byte(v)
		}
		compressed := enc.EncodeAll(raw, nil)
		blocks.Write(compressed)
		offsets[b+1] = offsets[b] + uint32(len(compressed))
	}

	var header bytes.Buffer
	binary.Write(&header, binary.LittleEndian, uint32(len(z.Dict)))
	header.Write(z.Dict)
	binary.Write(&header, binary.LittleEndian, uint32(len(values)))
	binary.Write(&header, binary.LittleEndian, uint32(numBlocks))
	for _, off := range offsets {
		binary.Write(&header, binary.LittleEndian, off)
	}
	checksum := xxhash.Sum64(blocks.Bytes())
	binary.Write(&header, binary.LittleEndian, checksum)

	f, err := os.Create(z.path(stones))
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := header.WriteTo(f); err != nil {
		return err
	}
	_, err = blocks.WriteTo(f)
	return err
}

type zstdIndex struct {
	total     int
	offsets   []uint32
	blockBase int64 // file offset where block data begins
	checksum  uint64
}

func (z *ZstdBackend) readIndex(stones int) (*zstdIndex, *os.File, error) {
	f, err := os.Open(z.path(stones))
	if err != nil {
		return nil, nil, err
	}

	var dictLen uint32
	if err := binary.Read(f, binary.LittleEndian, &dictLen); err != nil {
		f.Close()
		return nil, nil, err
	}
	if dictLen > 0 {
		if _, err := f.Seek(int64(dictLen), 1); err != nil {
			f.Close()
			return nil, nil, err
		}
	}

	var total, numBlocks uint32
	if err := binary.Read(f, binary.LittleEndian, &total); err != nil {
		f.Close()
		return nil, nil, err
	}
	if err := binary.Read(f, binary.LittleEndian, &numBlocks); err != nil {
		f.Close()
		return nil, nil, err
	}

	offsets := make([]uint32, numBlocks+1)
	if err := binary.Read(f, binary.LittleEndian, &offsets); err != nil {
		f.Close()
		return nil, nil, err
	}

	var checksum uint64
	if err := binary.Read(f, binary.LittleEndian, &checksum); err != nil {
		f.Close()
		return nil, nil, err
	}

	base, err := f.Seek(0, 1)
	if err != nil {
		f.Close()
		return nil, nil, err
	}

	return &zstdIndex{total: int(total), offsets: offsets, blockBase: base, checksum: checksum}, f, nil
}

// Load decompresses every block and concatenates them into a single layer.
func (z *ZstdBackend) Load(stones int) ([]int8, error) {
	idx, f, err := z.readIndex(stones)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := z.dec()
	if err != nil {
		return nil, err
	}

	out := make([]int8, 0, idx.total)
	for b := 0; b < len(idx.offsets)-1; b++ {
		raw, err := z.readBlock(f, idx, b)
		if err != nil {
			return nil, err
		}
		decompressed, err := dec.DecodeAll(raw, nil)
		if err != nil {
			return nil, fmt.Errorf("egdb: decompress layer %d block %d: %w", stones, b, err)
		}
		for _, v := range decompressed {
			out = append(out, int8(v))
		}
	}
	return out, nil
}

func (z *ZstdBackend) readBlock(f *os.File, idx *zstdIndex, block int) ([]byte, error) {
	start := idx.blockBase + int64(idx.offsets[block])
	size := idx.offsets[block+1] - idx.offsets[block]
	buf := make([]byte, size)
	if _, err := f.ReadAt(buf, start); err != nil {
		return nil, err
	}
	return buf, nil
}

// ProbeBlock decompresses only the block containing rank, satisfying the
// BlockProber interface so Table.Probe can avoid materializing a whole
// layer for a single lookup.
func (z *ZstdBackend) ProbeBlock(stones int, rank int64) (int8, error) {
	idx, f, err := z.readIndex(stones)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	if rank < 0 || rank >= int64(idx.total) {
		return 0, fmt.Errorf("egdb: rank %d out of range for layer %d", rank, stones)
	}

	block := int(rank / zstdBlockSize)
	within := int(rank % zstdBlockSize)

	raw, err := z.readBlock(f, idx, block)
	if err != nil {
		return 0, err
	}
	dec, err := z.dec()
	if err != nil {
		return 0, err
	}
	decompressed, err := dec.DecodeAll(raw, nil)
	if err != nil {
		return 0, fmt.Errorf("egdb: decompress layer %d block %d: %w", stones, block, err)
	}
	if within >= len(decompressed) {
		return 0, fmt.Errorf("egdb: rank %d outside decoded block %d", rank, block)
	}
	return int8(decompressed[within]), nil
}

// TrainDictionary builds a shared dictionary from a set of representative
// layer samples by concatenating them up to capacity; klauspost/compress
// does not expose ZDICT's covering-sample trainer, so this is a simpler
// content dictionary rather than a trained one.
func TrainDictionary(samples [][]int8, capacity int) []byte {
	var buf bytes.Buffer
	for _, s := range samples {
		for _, v := range s {
			buf.WriteByte(byte(v))
		}
		if buf.Len() >= capacity {
			break
		}
	}
	out := buf.Bytes()
	if len(out) > capacity {
		out = out[:capacity]
	}
	return out
}

// EGDBZstdDictCapacity mirrors the original backend's fixed dictionary
// budget.
const EGDBZstdDictCapacity = 110 * 1024
