package queryproc

import (
	"encoding/binary"

	"github.com/cespare/xxhash"
)

// countingSketch is a small count-min-style sketch used to back the
// "-sketch" anomaly detector variants: instead of one exact accumulator
// per series id, each series hashes into `hashes` independent rows of
// 2^bits float64 cells. Estimate reads the minimum across rows, the
// usual count-min estimator; Decay ages every cell so that, like a real
// EWMA/SMA sketch, old contributions fade when the sliding window moves.
type countingSketch struct {
	hashes int
	mask   uint64
	salts  []uint64
	cells  [][]float64
}

func newCountingSketch(hashes int, bits uint) *countingSketch {
	size := uint64(1) << bits
	cs := &countingSketch{
		hashes: hashes,
		mask:   size - 1,
		salts:  make([]uint64, hashes),
		cells:  make([][]float64, hashes),
	}
	for i := 0; i < hashes; i++ {
		// Distinct, deterministic salts per row; constructed once so a
		// sketch's hash rows are stable for its lifetime.
		cs.salts[i] = uint64(i)*0x9E3779B97F4A7C15 + 1
		cs.cells[i] = make([]float64, size)
	}
	return cs
}

func (cs *countingSketch) rowIndex(row int, id uint64) uint64 {
	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[0:8], id)
	binary.LittleEndian.PutUint64(buf[8:16], cs.salts[row])
	return xxhash.Sum64(buf[:]) & cs.mask
}

func (cs *countingSketch) Add(id uint64, delta float64) {
	for row := 0; row < cs.hashes; row++ {
		idx := cs.rowIndex(row, id)
		cs.cells[row][idx] += delta
	}
}

func (cs *countingSketch) Estimate(id uint64) float64 {
	min := 0.0
	for row := 0; row < cs.hashes; row++ {
		idx := cs.rowIndex(row, id)
		v := cs.cells[row][idx]
		if row == 0 || v < min {
			min = v
		}
	}
	return min
}

func (cs *countingSketch) Decay(factor float64) {
	for row := 0; row < cs.hashes; row++ {
		for i := range cs.cells[row] {
			cs.cells[row][i] *= factor
		}
	}
}
