// Package geotiff writes georeferenced TIFF rasters: baseline
// little-endian TIFF with the three GeoTIFF tags QGIS/GDAL need to place
// the image (geographic CRS, EPSG:4326). It is a writer only; the
// pipeline never needs to read TIFFs back.
package geotiff

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// TIFF tag IDs used by the encoder
const (
	tagImageWidth      = 256
	tagImageLength     = 257
	tagBitsPerSample   = 258
	tagCompression     = 259
	tagPhotometric     = 262
	tagStripOffsets    = 273
	tagSamplesPerPixel = 277
	tagRowsPerStrip    = 278
	tagStripByteCounts = 279
	tagPlanarConfig    = 284
	tagSampleFormat    = 339
	tagGDALNoData      = 42113
	TagModelPixelScale = 33550
	TagModelTiepoint   = 33922
	TagGeoKeyDirectory = 34735
)

// TIFF field types
const (
	typeByte     = 1
	typeASCII    = 2
	typeShort    = 3
	typeLong     = 4
	typeRational = 5
	typeDouble   = 12
)

// Georef ties pixel (0,0) to a lon/lat origin with pixel sizes in degrees.
// OriginLat is the top edge; latitude decreases down the image.
type Georef struct {
	OriginLon   float64
	OriginLat   float64
	PixelWidth  float64
	PixelHeight float64
}

// geoKeyDirectory encodes a geographic (EPSG:4326) CRS with area pixels:
// version 1.1.0 with GTModelType=Geographic, GTRasterType=PixelIsArea,
// GeographicType=4326.
var geoKeyDirectory = []uint16{
	1, 1, 0, 3,
	1024, 0, 1, 2,
	1025, 0, 1, 1,
	2048, 0, 1, 4326,
}

// ifdEntry is one directory record plus any out-of-line payload
type ifdEntry struct {
	tag      uint16
	typ      uint16
	count    uint32
	value    uint32 // inline value or payload offset, patched at layout time
	external []byte // payload when it does not fit in 4 bytes
}

// EncodeRGB writes an 8-bit interleaved RGB GeoTIFF. The three planes
// must each hold width*height samples.
func EncodeRGB(w io.Writer, r, g, b []uint8, width, height int, ref Georef) error {
	if err := checkDims(width, height, len(r), len(g), len(b)); err != nil {
		return err
	}

	pixels := make([]byte, 0, width*height*3)
	for i := 0; i < width*height; i++ {
		pixels = append(pixels, r[i], g[i], b[i])
	}

	entries := []ifdEntry{
		{tag: tagImageWidth, typ: typeLong, count: 1, value: uint32(width)},
		{tag: tagImageLength, typ: typeLong, count: 1, value: uint32(height)},
		{tag: tagBitsPerSample, typ: typeShort, count: 3, external: shortsPayload(8, 8, 8)},
		{tag: tagCompression, typ: typeShort, count: 1, value: 1},
		{tag: tagPhotometric, typ: typeShort, count: 1, value: 2},
		{tag: tagStripOffsets, typ: typeLong, count: 1},
		{tag: tagSamplesPerPixel, typ: typeShort, count: 1, value: 3},
		{tag: tagRowsPerStrip, typ: typeLong, count: 1, value: uint32(height)},
		{tag: tagStripByteCounts, typ: typeLong, count: 1, value: uint32(len(pixels))},
		{tag: tagPlanarConfig, typ: typeShort, count: 1, value: 1},
	}
	entries = append(entries, geoEntries(ref)...)

	return writeTIFF(w, entries, pixels)
}

// EncodeGray32 writes a single-band 32-bit float GeoTIFF. NaN samples are
// preserved and declared as nodata for GDAL-style readers.
func EncodeGray32(w io.Writer, data []float64, width, height int, ref Georef) error {
	if err := checkDims(width, height, len(data)); err != nil {
		return err
	}

	pixels := make([]byte, width*height*4)
	for i, v := range data {
		binary.LittleEndian.PutUint32(pixels[i*4:], math.Float32bits(float32(v)))
	}

	entries := []ifdEntry{
		{tag: tagImageWidth, typ: typeLong, count: 1, value: uint32(width)},
		{tag: tagImageLength, typ: typeLong, count: 1, value: uint32(height)},
		{tag: tagBitsPerSample, typ: typeShort, count: 1, value: 32},
		{tag: tagCompression, typ: typeShort, count: 1, value: 1},
		{tag: tagPhotometric, typ: typeShort, count: 1, value: 1},
		{tag: tagStripOffsets, typ: typeLong, count: 1},
		{tag: tagSamplesPerPixel, typ: typeShort, count: 1, value: 1},
		{tag: tagRowsPerStrip, typ: typeLong, count: 1, value: uint32(height)},
		{tag: tagStripByteCounts, typ: typeLong, count: 1, value: uint32(len(pixels))},
		{tag: tagPlanarConfig, typ: typeShort, count: 1, value: 1},
		{tag: tagSampleFormat, typ: typeShort, count: 1, value: 3},
	}
	entries = append(entries, geoEntries(ref)...)
	// "nan" with its terminator fits in the inline value word
	entries = append(entries, ifdEntry{
		tag: tagGDALNoData, typ: typeASCII, count: 4,
		value: binary.LittleEndian.Uint32([]byte("nan\x00")),
	})

	return writeTIFF(w, entries, pixels)
}

func checkDims(width, height int, lens ...int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid raster size %dx%d", width, height)
	}
	for _, n := range lens {
		if n != width*height {
			return fmt.Errorf("plane has %d samples, raster wants %d", n, width*height)
		}
	}
	return nil
}

// geoEntries builds the three GeoTIFF tags from a georeference
func geoEntries(ref Georef) []ifdEntry {
	scale := doublesPayload(ref.PixelWidth, math.Abs(ref.PixelHeight), 0)
	tiepoint := doublesPayload(0, 0, 0, ref.OriginLon, ref.OriginLat, 0)
	keys := make([]byte, 0, len(geoKeyDirectory)*2)
	for _, v := range geoKeyDirectory {
		keys = binary.LittleEndian.AppendUint16(keys, v)
	}

	return []ifdEntry{
		{tag: TagModelPixelScale, typ: typeDouble, count: 3, external: scale},
		{tag: TagModelTiepoint, typ: typeDouble, count: 6, external: tiepoint},
		{tag: TagGeoKeyDirectory, typ: typeShort, count: uint32(len(geoKeyDirectory)), external: keys},
	}
}

func shortsPayload(vals ...uint16) []byte {
	out := make([]byte, 0, len(vals)*2)
	for _, v := range vals {
		out = binary.LittleEndian.AppendUint16(out, v)
	}
	return out
}

func doublesPayload(vals ...float64) []byte {
	out := make([]byte, 0, len(vals)*8)
	for _, v := range vals {
		out = binary.LittleEndian.AppendUint64(out, math.Float64bits(v))
	}
	return out
}

// writeTIFF lays out header, strip data, IFD and external payloads.
// Entries must already be ordered by ascending tag except StripOffsets,
// which is patched here.
func writeTIFF(w io.Writer, entries []ifdEntry, pixels []byte) error {
	const headerSize = 8
	const entrySize = 12

	// Strip data sits right after the header
	stripOffset := uint32(headerSize)
	ifdOffset := stripOffset + uint32(len(pixels))
	// Word-align the IFD
	if ifdOffset%2 != 0 {
		ifdOffset++
	}

	// External payloads follow the IFD (entry count word, entries, next-IFD pointer)
	externalOffset := ifdOffset + 2 + uint32(len(entries))*entrySize + 4
	for i := range entries {
		if entries[i].tag == tagStripOffsets {
			entries[i].value = stripOffset
		}
		if entries[i].external != nil {
			if len(entries[i].external) <= 4 {
				return fmt.Errorf("tag %d: payloads of %d bytes must be inline", entries[i].tag, len(entries[i].external))
			}
			entries[i].value = externalOffset
			externalOffset += uint32(len(entries[i].external))
			if externalOffset%2 != 0 {
				externalOffset++
			}
		}
	}

	var buf bytes.Buffer

	// Header: little-endian magic and first IFD offset
	buf.WriteString("II")
	binary.Write(&buf, binary.LittleEndian, uint16(42))
	binary.Write(&buf, binary.LittleEndian, ifdOffset)

	buf.Write(pixels)
	for uint32(buf.Len()) < ifdOffset {
		buf.WriteByte(0)
	}

	binary.Write(&buf, binary.LittleEndian, uint16(len(entries)))
	for _, e := range entries {
		binary.Write(&buf, binary.LittleEndian, e.tag)
		binary.Write(&buf, binary.LittleEndian, e.typ)
		binary.Write(&buf, binary.LittleEndian, e.count)
		if e.external == nil && e.typ == typeShort && e.count == 1 {
			// Inline SHORT values occupy the low bytes of the value word
			binary.Write(&buf, binary.LittleEndian, uint16(e.value))
			binary.Write(&buf, binary.LittleEndian, uint16(0))
		} else {
			binary.Write(&buf, binary.LittleEndian, e.value)
		}
	}
	// No further IFDs
	binary.Write(&buf, binary.LittleEndian, uint32(0))

	for _, e := range entries {
		if e.external == nil {
			continue
		}
		buf.Write(e.external)
		if buf.Len()%2 != 0 {
			buf.WriteByte(0)
		}
	}

	_, err := w.Write(buf.Bytes())
	return err
}
