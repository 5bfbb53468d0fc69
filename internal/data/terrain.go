package data

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
)

// TerrainExt is the file suffix of compressed terrain files.
const TerrainExt = ".terrain.zst"

// maxTerrainSide bounds a decoded header so a corrupt file cannot force a huge allocation.
const maxTerrainSide = 8192

var terrainMagic = [4]byte{'L', '1', 'T', 'R'}

type terrainHeader struct {
	Magic  [4]byte
	StartX int32
	StartY int32
	Width  int32
	Height int32
}

// TerrainData is the raw per-cell flag words of one map.
// Layout: Words[x*Height+y], x-major like the tile files.
type TerrainData struct {
	StartX int
	StartY int
	Width  int
	Height int
	Words  []uint32
}

// ReadTerrainFile opens and decodes a {mapid}.terrain.zst file.
func ReadTerrainFile(path string) (*TerrainData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	t, err := ReadTerrain(f)
	if err != nil {
		return nil, fmt.Errorf("decode terrain %s: %w", path, err)
	}
	return t, nil
}

// ReadTerrain decodes a zstd stream: a 20-byte little-endian header followed
// by Width*Height uint32 flag words.
func ReadTerrain(r io.Reader) (*TerrainData, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 64*1024)

	var hdr terrainHeader
	if err := binary.Read(br, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if hdr.Magic != terrainMagic {
		return nil, fmt.Errorf("bad magic %q", hdr.Magic[:])
	}
	if hdr.Width <= 0 || hdr.Height <= 0 || hdr.Width > maxTerrainSide || hdr.Height > maxTerrainSide {
		return nil, fmt.Errorf("bad size %dx%d", hdr.Width, hdr.Height)
	}

	words := make([]uint32, int(hdr.Width)*int(hdr.Height))
	if err := binary.Read(br, binary.LittleEndian, words); err != nil {
		return nil, fmt.Errorf("read cells: %w", err)
	}

	return &TerrainData{
		StartX: int(hdr.StartX),
		StartY: int(hdr.StartY),
		Width:  int(hdr.Width),
		Height: int(hdr.Height),
		Words:  words,
	}, nil
}

// WriteTerrain encodes t in the format ReadTerrain expects.
func WriteTerrain(w io.Writer, t *TerrainData) error {
	if t.Width <= 0 || t.Height <= 0 || len(t.Words) != t.Width*t.Height {
		return fmt.Errorf("terrain %dx%d has %d words", t.Width, t.Height, len(t.Words))
	}

	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}

	bw := bufio.NewWriterSize(enc, 64*1024)
	hdr := terrainHeader{
		Magic:  terrainMagic,
		StartX: int32(t.StartX),
		StartY: int32(t.StartY),
		Width:  int32(t.Width),
		Height: int32(t.Height),
	}
	if err := binary.Write(bw, binary.LittleEndian, &hdr); err != nil {
		enc.Close()
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, t.Words); err != nil {
		enc.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}
