// Copyright 2026 肖其顿 (XIAO QI DUN)
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package jbig2

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"io"
	"strings"
	"testing"
)

// pageInfoData 页面信息段数据
func pageInfoData(width, height uint32, flags byte, striping uint16) []byte {
	b := binary.BigEndian.AppendUint32(nil, width)
	b = binary.BigEndian.AppendUint32(b, height)
	b = binary.BigEndian.AppendUint32(b, 0)
	b = binary.BigEndian.AppendUint32(b, 0)
	b = append(b, flags)
	return binary.BigEndian.AppendUint16(b, striping)
}

// regionInfoData 区域段信息
func regionInfoData(width, height, x, y int, flags byte) []byte {
	b := binary.BigEndian.AppendUint32(nil, uint32(width))
	b = binary.BigEndian.AppendUint32(b, uint32(height))
	b = binary.BigEndian.AppendUint32(b, uint32(x))
	b = binary.BigEndian.AppendUint32(b, uint32(y))
	return append(b, flags)
}

// fileData 带文件头的顺序组织文件
func fileData(pages uint32, segs ...testSegment) []byte {
	b := append([]byte(nil), fileMagic...)
	b = append(b, 0x01)
	b = binary.BigEndian.AppendUint32(b, pages)
	return append(b, sequential(segs...)...)
}

// checkerboard 8x2 棋盘格通用区域段数据
func checkerboard(t *testing.T) []byte {
	src := testBitmap(t, "#.#.#.#.", ".#.#.#.#")
	return genericRegionData(8, 2, 0, DefaultGBAT(0), encodeGenericData(src, 0, DefaultGBAT(0), false))
}

func pageRows(p *Page) []string {
	rows := make([]string, p.Height)
	for y := range rows {
		b := make([]byte, p.Width)
		for x := range b {
			b[x] = '.'
			if p.GetPixel(x, y) != 0 {
				b[x] = '#'
			}
		}
		rows[y] = string(b)
	}
	return rows
}

func checkPage(t *testing.T, p *Page, want ...string) {
	t.Helper()
	got := pageRows(p)
	if len(got) != len(want) {
		t.Fatalf("page has %d rows, want %d", len(got), len(want))
	}
	for y := range want {
		if got[y] != want[y] {
			t.Errorf("row %d = %s, want %s", y, got[y], want[y])
		}
	}
}

func checkerboardFile(t *testing.T) []byte {
	return fileData(1,
		testSegment{number: 0, typ: SegmentPageInformation, page: 1, data: pageInfoData(8, 2, 0, 0)},
		testSegment{number: 1, typ: SegmentImmediateGenericRegion, page: 1, data: checkerboard(t)},
		testSegment{number: 2, typ: SegmentEndOfPage, page: 1},
		testSegment{number: 3, typ: SegmentEndOfFile},
	)
}

func TestParseFileCheckerboard(t *testing.T) {
	p, err := ParseFile(checkerboardFile(t))
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if p.Width != 8 || p.Height != 2 || !p.HeightKnown {
		t.Fatalf("page %dx%d known=%v", p.Width, p.Height, p.HeightKnown)
	}
	if !bytes.Equal(p.Data, []byte{0xAA, 0x55}) {
		t.Fatalf("Data = %x, want aa55", p.Data)
	}
}

func TestParseFileRandomAccess(t *testing.T) {
	segs := []testSegment{
		{number: 0, typ: SegmentPageInformation, page: 1, data: pageInfoData(8, 2, 0, 0)},
		{number: 1, typ: SegmentImmediateGenericRegion, page: 1, data: checkerboard(t)},
		{number: 2, typ: SegmentEndOfPage, page: 1},
		{number: 3, typ: SegmentEndOfFile},
	}
	b := append([]byte(nil), fileMagic...)
	b = append(b, 0x00)
	b = binary.BigEndian.AppendUint32(b, 1)
	for _, s := range segs {
		b = append(b, s.header()...)
	}
	for _, s := range segs {
		b = append(b, s.data...)
	}
	p, err := ParseFile(b)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if !bytes.Equal(p.Data, []byte{0xAA, 0x55}) {
		t.Fatalf("Data = %x, want aa55", p.Data)
	}
}

func TestParseChunks(t *testing.T) {
	first := sequential(testSegment{number: 0, typ: SegmentPageInformation, page: 1, data: pageInfoData(8, 2, 0, 0)})
	second := sequential(
		testSegment{number: 1, typ: SegmentImmediateGenericRegion, page: 1, data: checkerboard(t)},
		testSegment{number: 2, typ: SegmentEndOfPage, page: 1},
	)
	padded := append([]byte{0xEE, 0xEE}, second...)
	p, err := ParseChunks([]Chunk{
		{Data: first, Start: 0, End: len(first)},
		{Data: padded, Start: 2, End: len(padded)},
	})
	if err != nil {
		t.Fatalf("ParseChunks: %v", err)
	}
	if !bytes.Equal(p.Data, []byte{0xAA, 0x55}) {
		t.Fatalf("Data = %x, want aa55", p.Data)
	}
}

func TestUnknownLengthGenericRegion(t *testing.T) {
	region := append(checkerboard(t), 0, 0, 0, 2)
	p, err := ParseFile(fileData(1,
		testSegment{number: 0, typ: SegmentPageInformation, page: 1, data: pageInfoData(8, 2, 0, 0)},
		testSegment{number: 1, typ: SegmentImmediateGenericRegion, page: 1, data: region, length: unknownSegmentLength},
		testSegment{number: 2, typ: SegmentEndOfPage, page: 1},
	))
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if !bytes.Equal(p.Data, []byte{0xAA, 0x55}) {
		t.Fatalf("Data = %x, want aa55", p.Data)
	}
}

func TestImageDecodeRegistered(t *testing.T) {
	data := checkerboardFile(t)
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("DecodeConfig: %v", err)
	}
	if format != "jbig2" || cfg.Width != 8 || cfg.Height != 2 {
		t.Fatalf("config %+v format %s", cfg, format)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got := color.GrayModel.Convert(img.At(0, 0)).(color.Gray); got.Y != 0 {
		t.Fatalf("pixel (0,0) = %v, want black", got)
	}
	if got := color.GrayModel.Convert(img.At(1, 0)).(color.Gray); got.Y != 255 {
		t.Fatalf("pixel (1,0) = %v, want white", got)
	}
}

func TestDecoderMultiplePages(t *testing.T) {
	data := fileData(2,
		testSegment{number: 0, typ: SegmentPageInformation, page: 1, data: pageInfoData(8, 2, 0, 0)},
		testSegment{number: 1, typ: SegmentImmediateGenericRegion, page: 1, data: checkerboard(t)},
		testSegment{number: 2, typ: SegmentEndOfPage, page: 1},
		testSegment{number: 3, typ: SegmentPageInformation, page: 2, data: pageInfoData(3, 1, 0x04, 0)},
		testSegment{number: 4, typ: SegmentEndOfPage, page: 2},
	)
	dec, err := NewDecoder(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	if len(dec.Pages()) != 2 {
		t.Fatalf("decoded %d pages, want 2", len(dec.Pages()))
	}
	checkPage(t, dec.Pages()[1], "###")
	images, err := dec.DecodeAll()
	if err != nil || len(images) != 2 {
		t.Fatalf("DecodeAll = %d images, %v", len(images), err)
	}
	if _, err := dec.Decode(); err != io.EOF {
		t.Fatalf("Decode after last page = %v, want io.EOF", err)
	}
}

func TestStripedPageUnknownHeight(t *testing.T) {
	stripe := binary.BigEndian.AppendUint32(nil, 3)
	p, err := ParseFile(fileData(1,
		testSegment{number: 0, typ: SegmentPageInformation, page: 1, data: pageInfoData(8, 0xFFFFFFFF, 0, 0x8004)},
		testSegment{number: 1, typ: SegmentImmediateGenericRegion, page: 1, data: checkerboard(t)},
		testSegment{number: 2, typ: SegmentEndOfStripe, page: 1, data: stripe},
		testSegment{number: 3, typ: SegmentEndOfPage, page: 1},
	))
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if !p.HeightKnown {
		t.Fatal("height is known after end of page")
	}
	checkPage(t, p, "#.#.#.#.", ".#.#.#.#", "........", "........")
}

func TestDecodeConfigUnknownHeight(t *testing.T) {
	data := fileData(1,
		testSegment{number: 0, typ: SegmentPageInformation, page: 1, data: pageInfoData(8, 0xFFFFFFFF, 0, 0x8002)},
		testSegment{number: 1, typ: SegmentImmediateGenericRegion, page: 1, data: checkerboard(t)},
		testSegment{number: 2, typ: SegmentEndOfPage, page: 1},
	)
	cfg, err := DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("DecodeConfig: %v", err)
	}
	if cfg.Width != 8 || cfg.Height != 2 {
		t.Fatalf("config %dx%d, want 8x2", cfg.Width, cfg.Height)
	}
}

func TestRefinementOfPageRegion(t *testing.T) {
	ref := testBitmap(t, "#.#.#.#.", ".#.#.#.#")
	full := testBitmap(t, "########", "########")
	enc := newMQEncoder()
	enc.encodeRefinement(full, ref, 1, 0, 0, nil)
	region := append(regionInfoData(8, 2, 0, 0, 0), 0x01)
	region = append(region, enc.flush()...)
	p, err := ParseFile(fileData(1,
		testSegment{number: 0, typ: SegmentPageInformation, page: 1, data: pageInfoData(8, 2, 0, 0)},
		testSegment{number: 1, typ: SegmentImmediateGenericRegion, page: 1, data: checkerboard(t)},
		testSegment{number: 2, typ: SegmentImmediateRefinementRegion, page: 1, data: region},
		testSegment{number: 3, typ: SegmentEndOfPage, page: 1},
	))
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if !bytes.Equal(p.Data, []byte{0xFF, 0xFF}) {
		t.Fatalf("Data = %x, want ffff", p.Data)
	}
}

func TestIntermediateRegionRefinement(t *testing.T) {
	ref := testBitmap(t, "#.#.#.#.", ".#.#.#.#")
	refined := testBitmap(t, "#.#.#.#.", "........")
	enc := newMQEncoder()
	enc.encodeRefinement(refined, ref, 1, 0, 0, nil)
	region := append(regionInfoData(8, 2, 0, 0, byte(ComposeReplace)), 0x01)
	region = append(region, enc.flush()...)
	p, err := ParseFile(fileData(1,
		testSegment{number: 0, typ: SegmentPageInformation, page: 1, data: pageInfoData(8, 2, 0x44, 0)},
		testSegment{number: 1, typ: SegmentIntermediateGenericRegion, page: 1, data: checkerboard(t)},
		testSegment{number: 2, typ: SegmentImmediateRefinementRegion, refs: []uint32{1}, page: 1, data: region},
		testSegment{number: 3, typ: SegmentEndOfPage, page: 1},
	))
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	checkPage(t, p, "#.#.#.#.", "........")
}

func TestTextRegionWithGlobals(t *testing.T) {
	syms := textSymbols(t)
	at := DefaultGBAT(0)
	enc := newMQEncoder()
	enc.encodeInteger("IADH", 3)
	enc.encodeInteger("IADW", 2)
	enc.encodeGeneric(syms[0], 0, at, false)
	enc.encodeInteger("IADW", 0)
	enc.encodeGeneric(syms[1], 0, at, false)
	enc.encodeOOB("IADW")
	enc.encodeInteger("IAEX", 0)
	enc.encodeInteger("IAEX", 2)
	dict := []byte{0, 0}
	for _, p := range at {
		dict = append(dict, byte(int8(p.X)), byte(int8(p.Y)))
	}
	dict = binary.BigEndian.AppendUint32(dict, 2)
	dict = binary.BigEndian.AppendUint32(dict, 2)
	dict = append(dict, enc.flush()...)
	globals := sequential(testSegment{number: 0, typ: SegmentSymbolDictionary, data: dict})

	text := append(regionInfoData(10, 5, 0, 0, 0), 0x00, 0x10)
	text = binary.BigEndian.AppendUint32(text, 2)
	text = append(text, encodeTwoInstances(2, 1, 2, [2]int{0, 1})...)
	data := sequential(
		testSegment{number: 1, typ: SegmentPageInformation, page: 1, data: pageInfoData(10, 5, 0, 0)},
		testSegment{number: 2, typ: SegmentImmediateTextRegion, refs: []uint32{0}, page: 1, data: text},
		testSegment{number: 3, typ: SegmentEndOfPage, page: 1},
	)
	dec, err := NewDecoderWithGlobals(bytes.NewReader(data), globals)
	if err != nil {
		t.Fatalf("NewDecoderWithGlobals: %v", err)
	}
	checkPage(t, dec.Pages()[0],
		"..........",
		"..........",
		".##..#....",
		".#..##....",
		".##..#....",
	)
}

func TestHalftoneRegionDocument(t *testing.T) {
	enc := newMQEncoder()
	enc.encodeGeneric(testBitmap(t, "..##", "..##"), 0, []Point{{-2, 0}, {-3, -1}, {2, -2}, {-2, -2}}, false)
	dict := []byte{0x00, 2, 2}
	dict = binary.BigEndian.AppendUint32(dict, 1)
	dict = append(dict, enc.flush()...)

	enc = newMQEncoder()
	enc.encodeGeneric(testBitmap(t, "#.", ".#"), 0, DefaultGBAT(0), false)
	ht := append(regionInfoData(4, 4, 0, 0, 0), 0x00)
	ht = binary.BigEndian.AppendUint32(ht, 2)
	ht = binary.BigEndian.AppendUint32(ht, 2)
	ht = binary.BigEndian.AppendUint32(ht, 0)
	ht = binary.BigEndian.AppendUint32(ht, 0)
	ht = binary.BigEndian.AppendUint16(ht, 512)
	ht = binary.BigEndian.AppendUint16(ht, 0)
	ht = append(ht, enc.flush()...)

	p, err := ParseFile(fileData(1,
		testSegment{number: 0, typ: SegmentPatternDictionary, data: dict},
		testSegment{number: 1, typ: SegmentPageInformation, page: 1, data: pageInfoData(4, 4, 0, 0)},
		testSegment{number: 2, typ: SegmentImmediateHalftoneRegion, refs: []uint32{0}, page: 1, data: ht},
		testSegment{number: 3, typ: SegmentEndOfPage, page: 1},
	))
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	checkPage(t, p, "##..", "##..", "..##", "..##")
}

func TestDecodeErrors(t *testing.T) {
	if _, err := ParseFile([]byte("not a jbig2 file")); err == nil {
		t.Fatal("expected error for missing file header")
	}
	data := fileData(1,
		testSegment{number: 0, typ: SegmentPageInformation, page: 1, data: pageInfoData(8, 2, 0, 0)},
		testSegment{number: 1, typ: SegmentProfiles, page: 1, data: []byte{0, 0, 0, 0}},
	)
	_, err := ParseFile(data)
	if err == nil {
		t.Fatal("expected error for unimplemented segment type")
	}
	var jerr *Error
	if !errors.As(err, &jerr) {
		t.Fatalf("error %T is not *Error", err)
	}
	if !strings.HasPrefix(err.Error(), "JBIG2 error: ") {
		t.Fatalf("error message %q lacks prefix", err.Error())
	}
	if _, err := ParseChunks(nil); err == nil {
		t.Fatal("expected error when no page is present")
	}
}

func TestMaxPixels(t *testing.T) {
	_, err := NewDecoderWithOptions(bytes.NewReader(checkerboardFile(t)), Options{MaxPixels: 8})
	if err == nil {
		t.Fatal("expected error for page above the pixel limit")
	}
}

func TestRegionWithoutPageIsSkipped(t *testing.T) {
	data := sequential(
		testSegment{number: 0, typ: SegmentImmediateGenericRegion, page: 1, data: checkerboard(t)},
		testSegment{number: 1, typ: SegmentPageInformation, page: 1, data: pageInfoData(8, 2, 0, 0)},
	)
	dec, err := NewDecoder(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	if !bytes.Equal(dec.Pages()[0].Data, []byte{0, 0}) {
		t.Fatalf("Data = %x, want blank page", dec.Pages()[0].Data)
	}
}

func TestEmbeddedStreamCheckerboard8x8(t *testing.T) {
	src := testBitmap(t,
		"#.#.#.#.", ".#.#.#.#", "#.#.#.#.", ".#.#.#.#",
		"#.#.#.#.", ".#.#.#.#", "#.#.#.#.", ".#.#.#.#",
	)
	region := genericRegionData(8, 8, 0, DefaultGBAT(0), encodeGenericData(src, 0, DefaultGBAT(0), false))
	data := sequential(
		testSegment{number: 0, typ: SegmentPageInformation, page: 1, data: pageInfoData(8, 8, 0, 0)},
		testSegment{number: 1, typ: SegmentImmediateGenericRegion, page: 1, data: region},
	)
	p, err := ParseChunks([]Chunk{{Data: data, Start: 0, End: len(data)}})
	if err != nil {
		t.Fatalf("ParseChunks: %v", err)
	}
	want := []byte{0xAA, 0x55, 0xAA, 0x55, 0xAA, 0x55, 0xAA, 0x55}
	if !bytes.Equal(p.Data, want) {
		t.Fatalf("Data = %x, want %x", p.Data, want)
	}
	if !p.HeightKnown {
		t.Fatal("page with a declared height is known")
	}
}
