package shgat

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"math"
	"sort"
)

var formatMagic = [6]byte{'S', 'H', 'G', 'A', 'T', 0}

const formatVersion uint16 = 1

// exportParams serializes p into the binary layout of spec 6.2: a fixed
// magic, a version, a header of dimensions, every tensor in a fixed order,
// then a trailing CRC32 over everything written before it.
func exportParams(p *Parameters) []byte {
	buf := new(bytes.Buffer)
	buf.Write(formatMagic[:])
	writeU16(buf, formatVersion)

	levels := sortedLevelKeys(p.Levels)
	writeU32(buf, uint32(p.EmbeddingDim))
	writeU32(buf, uint32(p.HiddenDim))
	writeU32(buf, uint32(p.NumHeads))
	writeU32(buf, uint32(p.HeadDim))
	writeU32(buf, uint32(len(levels)))

	writeMat(buf, p.WIntent)
	for h := 0; h < p.NumHeads; h++ {
		writeMat(buf, p.WQ[h])
	}
	for h := 0; h < p.NumHeads; h++ {
		writeMat(buf, p.WK[h])
	}

	for _, level := range levels {
		writeU32(buf, uint32(level))
		lp := p.Levels[level]
		writeU32(buf, uint32(lp.InputDim))
		for h := 0; h < p.NumHeads; h++ {
			writeMat(buf, lp.WChild[h])
		}
		for h := 0; h < p.NumHeads; h++ {
			writeMat(buf, lp.WParent[h])
		}
		for h := 0; h < p.NumHeads; h++ {
			writeVec(buf, lp.AUpward[h])
		}
		for h := 0; h < p.NumHeads; h++ {
			writeVec(buf, lp.ADownward[h])
		}
	}

	sum := crc32.ChecksumIEEE(buf.Bytes())
	writeU32(buf, sum)
	return buf.Bytes()
}

// importParams deserializes a blob written by exportParams, verifying the
// magic, version, trailing CRC32, and that the declared dimensions leave no
// trailing or missing bytes (spec 6.2, testable property 5: round-trip is
// bit-for-bit equal).
func importParams(blob []byte) (*Parameters, error) {
	if len(blob) < len(formatMagic)+2+4 {
		return nil, ErrCorruptBlob
	}
	if !bytes.Equal(blob[:len(formatMagic)], formatMagic[:]) {
		return nil, ErrCorruptBlob
	}
	if len(blob) < 4 {
		return nil, ErrCorruptBlob
	}
	body, sum := blob[:len(blob)-4], blob[len(blob)-4:]
	want := binary.LittleEndian.Uint32(sum)
	got := crc32.ChecksumIEEE(body)
	if want != got {
		return nil, ErrCorruptBlob
	}

	r := bytes.NewReader(blob)
	var magic [6]byte
	if _, err := r.Read(magic[:]); err != nil {
		return nil, ErrCorruptBlob
	}
	version, err := readU16(r)
	if err != nil {
		return nil, ErrCorruptBlob
	}
	if version != formatVersion {
		return nil, ErrVersionMismatch
	}

	embeddingDim, err1 := readU32(r)
	hiddenDim, err2 := readU32(r)
	numHeads, err3 := readU32(r)
	headDim, err4 := readU32(r)
	numLevels, err5 := readU32(r)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil {
		return nil, ErrCorruptBlob
	}

	p := &Parameters{
		EmbeddingDim: int(embeddingDim),
		HiddenDim:    int(hiddenDim),
		NumHeads:     int(numHeads),
		HeadDim:      int(headDim),
		Levels:       make(map[int]*LevelParams, numLevels),
	}

	p.WIntent, err = readMat(r, int(hiddenDim), int(embeddingDim))
	if err != nil {
		return nil, err
	}
	p.WQ = make([][][]float64, numHeads)
	for h := range p.WQ {
		p.WQ[h], err = readMat(r, int(hiddenDim), int(hiddenDim))
		if err != nil {
			return nil, err
		}
	}
	p.WK = make([][][]float64, numHeads)
	for h := range p.WK {
		p.WK[h], err = readMat(r, int(hiddenDim), int(hiddenDim))
		if err != nil {
			return nil, err
		}
	}

	for i := uint32(0); i < numLevels; i++ {
		level, e := readU32(r)
		if e != nil {
			return nil, ErrCorruptBlob
		}
		inputDim, e := readU32(r)
		if e != nil {
			return nil, ErrCorruptBlob
		}
		lp := &LevelParams{InputDim: int(inputDim)}
		lp.WChild = make([][][]float64, numHeads)
		for h := range lp.WChild {
			lp.WChild[h], err = readMat(r, int(headDim), int(inputDim))
			if err != nil {
				return nil, err
			}
		}
		lp.WParent = make([][][]float64, numHeads)
		for h := range lp.WParent {
			lp.WParent[h], err = readMat(r, int(headDim), int(inputDim))
			if err != nil {
				return nil, err
			}
		}
		lp.AUpward = make([][]float64, numHeads)
		for h := range lp.AUpward {
			lp.AUpward[h], err = readVec(r, 2*int(headDim))
			if err != nil {
				return nil, err
			}
		}
		lp.ADownward = make([][]float64, numHeads)
		for h := range lp.ADownward {
			lp.ADownward[h], err = readVec(r, 2*int(headDim))
			if err != nil {
				return nil, err
			}
		}
		p.Levels[int(level)] = lp
	}

	// Only the 4-byte CRC32 may remain unread.
	if r.Len() != 4 {
		return nil, ErrCorruptBlob
	}
	return p, nil
}

func sortedLevelKeys(levels map[int]*LevelParams) []int {
	keys := make([]int, 0, len(levels))
	for k := range levels {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

func writeU16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeF32(buf *bytes.Buffer, v float64) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], math.Float32bits(float32(v)))
	buf.Write(b[:])
}

func writeVec(buf *bytes.Buffer, v []float64) {
	for _, x := range v {
		writeF32(buf, x)
	}
}

func writeMat(buf *bytes.Buffer, m [][]float64) {
	for _, row := range m {
		writeVec(buf, row)
	}
}

func readU16(r *bytes.Reader) (uint16, error) {
	var b [2]byte
	if _, err := r.Read(b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b[:]), nil
}

func readU32(r *bytes.Reader) (uint32, error) {
	var b [4]byte
	if _, err := r.Read(b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func readF32(r *bytes.Reader) (float64, error) {
	var b [4]byte
	if _, err := r.Read(b[:]); err != nil {
		return 0, ErrCorruptBlob
	}
	return float64(math.Float32frombits(binary.LittleEndian.Uint32(b[:]))), nil
}

func readVec(r *bytes.Reader, n int) ([]float64, error) {
	out := make([]float64, n)
	for i := range out {
		v, err := readF32(r)
		if err != nil {
			return nil, ErrCorruptBlob
		}
		out[i] = v
	}
	return out, nil
}

func readMat(r *bytes.Reader, rows, cols int) ([][]float64, error) {
	out := make([][]float64, rows)
	for i := range out {
		row, err := readVec(r, cols)
		if err != nil {
			return nil, err
		}
		out[i] = row
	}
	return out, nil
}
