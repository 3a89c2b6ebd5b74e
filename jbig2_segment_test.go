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
	"encoding/binary"
	"testing"
)

// testSegment 测试用段描述
type testSegment struct {
	number uint32
	typ    SegmentType
	refs   []uint32
	page   uint32
	data   []byte
	length uint32
}

// header 按短格式编码段头, length 为 0 时取数据长度
func (s testSegment) header() []byte {
	b := binary.BigEndian.AppendUint32(nil, s.number)
	flags := byte(s.typ)
	if s.page > 0xff {
		flags |= 0x40
	}
	b = append(b, flags, byte(len(s.refs))<<5)
	size := referredToNumberSize(s.number)
	for _, r := range s.refs {
		switch size {
		case 1:
			b = append(b, byte(r))
		case 2:
			b = binary.BigEndian.AppendUint16(b, uint16(r))
		default:
			b = binary.BigEndian.AppendUint32(b, r)
		}
	}
	if s.page > 0xff {
		b = binary.BigEndian.AppendUint32(b, s.page)
	} else {
		b = append(b, byte(s.page))
	}
	length := s.length
	if length == 0 {
		length = uint32(len(s.data))
	}
	return binary.BigEndian.AppendUint32(b, length)
}

// sequential 按顺序组织拼接段
func sequential(segs ...testSegment) []byte {
	var b []byte
	for _, s := range segs {
		b = append(b, s.header()...)
		b = append(b, s.data...)
	}
	return b
}

func TestReadSegmentHeaderShortForm(t *testing.T) {
	seg := testSegment{number: 3, typ: SegmentImmediateGenericRegion, refs: []uint32{1, 2}, page: 1, data: []byte{9, 9}}
	b := seg.header()
	b[5] |= 0x05
	s := NewBitStream(b, 0, len(b))
	h, err := ReadSegmentHeader(s)
	if err != nil {
		t.Fatalf("ReadSegmentHeader: %v", err)
	}
	if h.Number != 3 || h.Type != SegmentImmediateGenericRegion || h.PageAssociation != 1 || h.Length != 2 {
		t.Fatalf("unexpected header %+v", h)
	}
	if len(h.ReferredTo) != 2 || h.ReferredTo[0] != 1 || h.ReferredTo[1] != 2 {
		t.Fatalf("ReferredTo = %v", h.ReferredTo)
	}
	if !h.RetainBits.Test(0) || h.RetainBits.Test(1) || !h.RetainBits.Test(2) {
		t.Fatalf("RetainBits = %v", h.RetainBits)
	}
	if s.GetOffset() != len(b) {
		t.Fatalf("stream stopped at %d, want %d", s.GetOffset(), len(b))
	}
}

func TestReadSegmentHeaderLongForm(t *testing.T) {
	b := binary.BigEndian.AppendUint32(nil, 10)
	b = append(b, byte(SegmentImmediateTextRegion))
	b = binary.BigEndian.AppendUint32(b, 0xE0000000|9)
	b = append(b, 0x03, 0x02)
	for i := 0; i < 9; i++ {
		b = append(b, byte(i))
	}
	b = append(b, 1)
	b = binary.BigEndian.AppendUint32(b, 0)
	h, err := ReadSegmentHeader(NewBitStream(b, 0, len(b)))
	if err != nil {
		t.Fatalf("ReadSegmentHeader: %v", err)
	}
	if len(h.ReferredTo) != 9 || h.ReferredTo[8] != 8 {
		t.Fatalf("ReferredTo = %v", h.ReferredTo)
	}
	if !h.RetainBits.Test(0) || !h.RetainBits.Test(1) || !h.RetainBits.Test(9) || h.RetainBits.Test(2) {
		t.Fatalf("RetainBits = %v", h.RetainBits)
	}
}

func TestReadSegmentHeaderInvalidCount(t *testing.T) {
	for _, count := range []byte{5, 6} {
		b := binary.BigEndian.AppendUint32(nil, 1)
		b = append(b, byte(SegmentEndOfPage), count<<5, 1, 0, 0, 0, 0)
		if _, err := ReadSegmentHeader(NewBitStream(b, 0, len(b))); err == nil {
			t.Errorf("count %d: expected error", count)
		}
	}
	b := binary.BigEndian.AppendUint32(nil, 1)
	b = append(b, 44, 0, 1, 0, 0, 0, 0)
	if _, err := ReadSegmentHeader(NewBitStream(b, 0, len(b))); err == nil {
		t.Error("expected error for invalid segment type")
	}
}

func TestReferredToNumberSize(t *testing.T) {
	cases := []struct {
		number uint32
		size   int
	}{
		{1, 1}, {256, 1}, {257, 2}, {65536, 2}, {65537, 4},
	}
	for _, c := range cases {
		if got := referredToNumberSize(c.number); got != c.size {
			t.Errorf("referredToNumberSize(%d) = %d, want %d", c.number, got, c.size)
		}
		seg := testSegment{number: c.number, typ: SegmentEndOfPage, refs: []uint32{c.number - 1}, page: 300}
		b := seg.header()
		h, err := ReadSegmentHeader(NewBitStream(b, 0, len(b)))
		if err != nil {
			t.Fatalf("number %d: %v", c.number, err)
		}
		if h.ReferredTo[0] != c.number-1 || h.PageAssociation != 300 {
			t.Errorf("number %d: header %+v", c.number, h)
		}
	}
}

func TestReadSegmentsSequentialAndRandom(t *testing.T) {
	segs := []testSegment{
		{number: 0, typ: SegmentPageInformation, page: 1, data: make([]byte, 19)},
		{number: 1, typ: SegmentEndOfPage, page: 1},
		{number: 2, typ: SegmentEndOfFile},
		{number: 3, typ: SegmentEndOfPage, page: 1},
	}
	data := sequential(segs...)
	got, err := ReadSegments(data, 0, len(data), false)
	if err != nil {
		t.Fatalf("ReadSegments: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("read %d segments, want 3 (stop at end of file)", len(got))
	}
	if got[0].End-got[0].Start != 19 || got[1].Start != got[1].End {
		t.Fatalf("unexpected data ranges %+v %+v", got[0], got[1])
	}

	var random []byte
	for _, s := range segs[:3] {
		random = append(random, s.header()...)
	}
	dataStart := len(random)
	random = append(random, segs[0].data...)
	got, err = ReadSegments(random, 0, len(random), true)
	if err != nil {
		t.Fatalf("ReadSegments random access: %v", err)
	}
	if len(got) != 3 || got[0].Start != dataStart || got[0].End != dataStart+19 {
		t.Fatalf("unexpected random access ranges: %+v", got[0])
	}
}

func TestReadSegmentsTruncated(t *testing.T) {
	seg := testSegment{number: 0, typ: SegmentTables, data: []byte{1, 2, 3}, length: 10}
	data := sequential(seg)
	got, err := ReadSegments(data, 0, len(data), false)
	if err != nil {
		t.Fatalf("ReadSegments: %v", err)
	}
	if got[0].End != len(data) {
		t.Fatalf("End = %d, want %d", got[0].End, len(data))
	}
}

// genericRegionData 区域信息, 标志与编码数据
func genericRegionData(width, height int, flags byte, at []Point, payload []byte) []byte {
	b := binary.BigEndian.AppendUint32(nil, uint32(width))
	b = binary.BigEndian.AppendUint32(b, uint32(height))
	b = binary.BigEndian.AppendUint32(b, 0)
	b = binary.BigEndian.AppendUint32(b, 0)
	b = append(b, 0, flags)
	for _, p := range at {
		b = append(b, byte(int8(p.X)), byte(int8(p.Y)))
	}
	return append(b, payload...)
}

func TestUnknownLengthArithmetic(t *testing.T) {
	payload := []byte{0x12, 0x34, 0xFF, 0xAC, 0, 0, 0, 2}
	region := genericRegionData(8, 2, 0, DefaultGBAT(0), payload)
	seg := testSegment{number: 0, typ: SegmentImmediateGenericRegion, page: 1, data: region, length: unknownSegmentLength}
	eof := testSegment{number: 1, typ: SegmentEndOfFile}
	data := sequential(seg, eof)
	got, err := ReadSegments(data, 0, len(data), false)
	if err != nil {
		t.Fatalf("ReadSegments: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("read %d segments, want 2", len(got))
	}
	if !got[0].Header.UnknownLength || got[0].End-got[0].Start != len(region) {
		t.Fatalf("unknown length resolved to %d, want %d", got[0].End-got[0].Start, len(region))
	}
}

func TestUnknownLengthMMR(t *testing.T) {
	payload := []byte{0xC0, 0x04, 0x00, 0x40, 0, 0, 0, 0, 0, 2}
	region := genericRegionData(8, 2, 1, nil, payload)
	length, err := findUnknownLength(region, 0, len(region))
	if err != nil {
		t.Fatalf("findUnknownLength: %v", err)
	}
	if int(length) != len(region) {
		t.Fatalf("length = %d, want %d", length, len(region))
	}
}

func TestUnknownLengthErrors(t *testing.T) {
	seg := testSegment{number: 0, typ: SegmentImmediateTextRegion, page: 1, data: []byte{0xFF, 0xAC}, length: unknownSegmentLength}
	data := sequential(seg)
	if _, err := ReadSegments(data, 0, len(data), false); err == nil {
		t.Fatal("expected error for unknown length on a text region")
	}
	region := genericRegionData(8, 2, 0, DefaultGBAT(0), []byte{0x12, 0x34})
	seg = testSegment{number: 0, typ: SegmentImmediateGenericRegion, page: 1, data: region, length: unknownSegmentLength}
	data = sequential(seg)
	if _, err := ReadSegments(data, 0, len(data), false); err == nil {
		t.Fatal("expected error when the end marker is missing")
	}
	seg.data = nil
	data = seg.header()
	if _, err := ReadSegments(data, 0, len(data), true); err == nil {
		t.Fatal("expected error for unknown length in random-access organisation")
	}
}

func TestSegmentTypeString(t *testing.T) {
	if SegmentPageInformation.String() != "PageInformation" {
		t.Fatalf("String = %s", SegmentPageInformation)
	}
	if SegmentType(1).String() != "Unknown" {
		t.Fatalf("String = %s", SegmentType(1))
	}
}
