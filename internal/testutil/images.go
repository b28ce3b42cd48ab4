// Package testutil содержит вспомогательные функции для тестов:
// синтетические изображения, фиксированные часы и генераторы ключей.
package testutil

import (
	"bytes"
	"encoding/binary"
)

// ExifOptions описывает, какие EXIF-теги положить в синтетический JPEG.
// Координаты задаются в десятитысячных долях градуса: 160544 == 16.0544.
type ExifOptions struct {
	HasGPS     bool
	LatE4      uint32
	LatRef     string // "N" или "S"
	LonE4      uint32
	LonRef     string // "E" или "W"
	CapturedAt string // "2006:01:02 15:04:05"; пусто — тега нет
	PadTo      int    // итоговый размер файла, если больше собранного
}

const (
	tiffASCII    = 2
	tiffLong     = 4
	tiffRational = 5
)

type ifdEntry struct {
	tag   uint16
	typ   uint16
	count uint32
	value []byte // > 4 байт уходит в область данных
}

// JPEGWithExif собирает минимальный JPEG: SOI, APP1 с EXIF (little-endian TIFF), EOI.
func JPEGWithExif(opts ExifOptions) []byte {
	tiff := buildTIFF(opts)

	var buf bytes.Buffer
	buf.Write([]byte{0xFF, 0xD8})
	buf.Write([]byte{0xFF, 0xE1})
	segLen := 2 + 6 + len(tiff)
	_ = binary.Write(&buf, binary.BigEndian, uint16(segLen))
	buf.WriteString("Exif\x00\x00")
	buf.Write(tiff)

	if pad := opts.PadTo - buf.Len() - 2; pad > 0 {
		buf.Write(make([]byte, pad))
	}
	buf.Write([]byte{0xFF, 0xD9})
	return buf.Bytes()
}

// PlainJPEG — JPEG без APP1-сегмента.
func PlainJPEG() []byte {
	return []byte{0xFF, 0xD8, 0xFF, 0xDB, 0x00, 0x04, 0x00, 0x00, 0xFF, 0xD9}
}

// PNGWithoutExif — PNG-сигнатура и IHDR. Байтов 0xFF в нём нет.
func PNGWithoutExif() []byte {
	return []byte{
		0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A,
		0x00, 0x00, 0x00, 0x0D, 'I', 'H', 'D', 'R',
		0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
		0x08, 0x02, 0x00, 0x00, 0x00, 0x90, 0x77, 0x53, 0xDE,
		0x00, 0x00, 0x00, 0x00, 'I', 'E', 'N', 'D', 0xAE, 0x42, 0x60, 0x82,
	}
}

func buildTIFF(opts ExifOptions) []byte {
	le := binary.LittleEndian

	var exifEntries, gpsEntries []ifdEntry
	if opts.CapturedAt != "" {
		v := append([]byte(opts.CapturedAt), 0)
		exifEntries = append(exifEntries, ifdEntry{tag: 0x9003, typ: tiffASCII, count: uint32(len(v)), value: v})
	}
	if opts.HasGPS {
		gpsEntries = []ifdEntry{
			{tag: 0x1, typ: tiffASCII, count: 2, value: []byte{opts.LatRef[0], 0}},
			{tag: 0x2, typ: tiffRational, count: 3, value: degrees(opts.LatE4)},
			{tag: 0x3, typ: tiffASCII, count: 2, value: []byte{opts.LonRef[0], 0}},
			{tag: 0x4, typ: tiffRational, count: 3, value: degrees(opts.LonE4)},
		}
	}

	// Раскладка: заголовок(8) | IFD0 | Exif IFD + данные | GPS IFD + данные
	var ifd0 []ifdEntry
	ifd0Size := func(n int) int { return 2 + 12*n + 4 }
	n0 := 0
	if len(exifEntries) > 0 {
		n0++
	}
	if len(gpsEntries) > 0 {
		n0++
	}
	offset := 8 + ifd0Size(n0)

	exifOffset := offset
	if len(exifEntries) > 0 {
		offset += dirSize(exifEntries)
	}
	gpsOffset := offset

	if len(exifEntries) > 0 {
		ifd0 = append(ifd0, ifdEntry{tag: 0x8769, typ: tiffLong, count: 1, value: u32(le, uint32(exifOffset))})
	}
	if len(gpsEntries) > 0 {
		ifd0 = append(ifd0, ifdEntry{tag: 0x8825, typ: tiffLong, count: 1, value: u32(le, uint32(gpsOffset))})
	}

	var buf bytes.Buffer
	buf.WriteString("II")
	_ = binary.Write(&buf, le, uint16(42))
	_ = binary.Write(&buf, le, uint32(8))
	writeDir(&buf, ifd0, 8)
	if len(exifEntries) > 0 {
		writeDir(&buf, exifEntries, exifOffset)
	}
	if len(gpsEntries) > 0 {
		writeDir(&buf, gpsEntries, gpsOffset)
	}
	return buf.Bytes()
}

func dirSize(entries []ifdEntry) int {
	size := 2 + 12*len(entries) + 4
	for _, e := range entries {
		if len(e.value) > 4 {
			size += len(e.value)
		}
	}
	return size
}

// writeDir пишет IFD по смещению at, внешние значения кладёт сразу после него
func writeDir(buf *bytes.Buffer, entries []ifdEntry, at int) {
	le := binary.LittleEndian
	dataOffset := at + 2 + 12*len(entries) + 4

	var data bytes.Buffer
	_ = binary.Write(buf, le, uint16(len(entries)))
	for _, e := range entries {
		_ = binary.Write(buf, le, e.tag)
		_ = binary.Write(buf, le, e.typ)
		_ = binary.Write(buf, le, e.count)
		if len(e.value) > 4 {
			_ = binary.Write(buf, le, uint32(dataOffset+data.Len()))
			data.Write(e.value)
			continue
		}
		inline := make([]byte, 4)
		copy(inline, e.value)
		buf.Write(inline)
	}
	_ = binary.Write(buf, le, uint32(0))
	buf.Write(data.Bytes())
}

// degrees кодирует значение как три RATIONAL: e4/10000, 0/1, 0/1
func degrees(e4 uint32) []byte {
	le := binary.LittleEndian
	var b []byte
	b = append(b, u32(le, e4)...)
	b = append(b, u32(le, 10000)...)
	for i := 0; i < 2; i++ {
		b = append(b, u32(le, 0)...)
		b = append(b, u32(le, 1)...)
	}
	return b
}

func u32(order binary.ByteOrder, v uint32) []byte {
	b := make([]byte, 4)
	order.PutUint32(b, v)
	return b
}
