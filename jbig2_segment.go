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
	"github.com/bits-and-blooms/bitset"
	"github.com/xiaoqidun/jbig2dec/internal/logging"
)

// SegmentType 段类型
type SegmentType uint8

const (
	SegmentSymbolDictionary                  SegmentType = 0
	SegmentIntermediateTextRegion            SegmentType = 4
	SegmentImmediateTextRegion               SegmentType = 6
	SegmentImmediateLosslessTextRegion       SegmentType = 7
	SegmentPatternDictionary                 SegmentType = 16
	SegmentIntermediateHalftoneRegion        SegmentType = 20
	SegmentImmediateHalftoneRegion           SegmentType = 22
	SegmentImmediateLosslessHalftoneRegion   SegmentType = 23
	SegmentIntermediateGenericRegion         SegmentType = 36
	SegmentImmediateGenericRegion            SegmentType = 38
	SegmentImmediateLosslessGenericRegion    SegmentType = 39
	SegmentIntermediateRefinementRegion      SegmentType = 40
	SegmentImmediateRefinementRegion         SegmentType = 42
	SegmentImmediateLosslessRefinementRegion SegmentType = 43
	SegmentPageInformation                   SegmentType = 48
	SegmentEndOfPage                         SegmentType = 49
	SegmentEndOfStripe                       SegmentType = 50
	SegmentEndOfFile                         SegmentType = 51
	SegmentProfiles                          SegmentType = 52
	SegmentTables                            SegmentType = 53
	SegmentExtension                         SegmentType = 62
)

// segmentTypeNames 合法段类型及名称
var segmentTypeNames = map[SegmentType]string{
	SegmentSymbolDictionary:                  "SymbolDictionary",
	SegmentIntermediateTextRegion:            "IntermediateTextRegion",
	SegmentImmediateTextRegion:               "ImmediateTextRegion",
	SegmentImmediateLosslessTextRegion:       "ImmediateLosslessTextRegion",
	SegmentPatternDictionary:                 "PatternDictionary",
	SegmentIntermediateHalftoneRegion:        "IntermediateHalftoneRegion",
	SegmentImmediateHalftoneRegion:           "ImmediateHalftoneRegion",
	SegmentImmediateLosslessHalftoneRegion:   "ImmediateLosslessHalftoneRegion",
	SegmentIntermediateGenericRegion:         "IntermediateGenericRegion",
	SegmentImmediateGenericRegion:            "ImmediateGenericRegion",
	SegmentImmediateLosslessGenericRegion:    "ImmediateLosslessGenericRegion",
	SegmentIntermediateRefinementRegion:      "IntermediateGenericRefinementRegion",
	SegmentImmediateRefinementRegion:         "ImmediateGenericRefinementRegion",
	SegmentImmediateLosslessRefinementRegion: "ImmediateLosslessGenericRefinementRegion",
	SegmentPageInformation:                   "PageInformation",
	SegmentEndOfPage:                         "EndOfPage",
	SegmentEndOfStripe:                       "EndOfStripe",
	SegmentEndOfFile:                         "EndOfFile",
	SegmentProfiles:                          "Profiles",
	SegmentTables:                            "Tables",
	SegmentExtension:                         "Extension",
}

// String 返回段类型名称
func (t SegmentType) String() string {
	if name, ok := segmentTypeNames[t]; ok {
		return name
	}
	return "Unknown"
}

// unknownSegmentLength 未知数据长度标记
const unknownSegmentLength = 0xFFFFFFFF

// SegmentHeader 段头
// RetainBits 第 0 位对应本段, 第 i 位对应第 i 个被引用段; UnknownLength 表示长度由结束标记搜索得到
type SegmentHeader struct {
	Number            uint32
	Type              SegmentType
	DeferredNonRetain bool
	RetainBits        *bitset.BitSet
	ReferredTo        []uint32
	PageAssociation   uint32
	Length            uint32
	UnknownLength     bool
}

// Segment 段头与其数据区间 [Start, End)
type Segment struct {
	Header SegmentHeader
	Data   []byte
	Start  int
	End    int
}

// referredToNumberSize 被引用段编号字节数, 由本段编号决定
// 入参: number 本段编号
// 返回: int 字节数
func referredToNumberSize(number uint32) int {
	switch {
	case number <= 256:
		return 1
	case number <= 65536:
		return 2
	}
	return 4
}

// ReadSegmentHeader 从位流读取段头, 位流停在段数据起始处
// 入参: stream 位流
// 返回: *SegmentHeader 段头, error 错误信息
func ReadSegmentHeader(stream *BitStream) (*SegmentHeader, error) {
	h := &SegmentHeader{}
	number, err := stream.ReadInteger()
	if err != nil {
		return nil, err
	}
	h.Number = number
	flags, err := stream.Read1Byte()
	if err != nil {
		return nil, err
	}
	h.Type = SegmentType(flags & 0x3f)
	if _, ok := segmentTypeNames[h.Type]; !ok {
		return nil, newError("invalid segment type %d", flags&0x3f)
	}
	h.DeferredNonRetain = flags&0x80 != 0
	pageAssociationLarge := flags&0x40 != 0
	referredFlags, err := stream.Read1Byte()
	if err != nil {
		return nil, err
	}
	count := int(referredFlags >> 5)
	switch count {
	case 5, 6:
		return nil, newError("invalid referred-to flags %d", count)
	case 7:
		stream.SetOffset(stream.GetOffset() - 1)
		longForm, err := stream.ReadInteger()
		if err != nil {
			return nil, err
		}
		count = int(longForm & 0x1fffffff)
		if count > stream.GetByteLeft() {
			return nil, newError("referred-to segment count %d exceeds data", count)
		}
		retainBytes := (count + 8) >> 3
		h.RetainBits = bitset.New(uint(retainBytes * 8))
		for i := 0; i < retainBytes; i++ {
			b, err := stream.Read1Byte()
			if err != nil {
				return nil, err
			}
			for k := 0; k < 8; k++ {
				if b&(1<<uint(k)) != 0 {
					h.RetainBits.Set(uint(i*8 + k))
				}
			}
		}
	default:
		h.RetainBits = bitset.New(5)
		for k := 0; k < 5; k++ {
			if referredFlags&(1<<uint(k)) != 0 {
				h.RetainBits.Set(uint(k))
			}
		}
	}
	size := referredToNumberSize(h.Number)
	h.ReferredTo = make([]uint32, count)
	for i := range h.ReferredTo {
		var v uint32
		switch size {
		case 1:
			b, err := stream.Read1Byte()
			if err != nil {
				return nil, err
			}
			v = uint32(b)
		case 2:
			s, err := stream.ReadShortInteger()
			if err != nil {
				return nil, err
			}
			v = uint32(s)
		default:
			if v, err = stream.ReadInteger(); err != nil {
				return nil, err
			}
		}
		h.ReferredTo[i] = v
	}
	if pageAssociationLarge {
		if h.PageAssociation, err = stream.ReadInteger(); err != nil {
			return nil, err
		}
	} else {
		b, err := stream.Read1Byte()
		if err != nil {
			return nil, err
		}
		h.PageAssociation = uint32(b)
	}
	if h.Length, err = stream.ReadInteger(); err != nil {
		return nil, err
	}
	return h, nil
}

// findUnknownLength 搜索通用区域的结束标记, 返回数据长度
// 算术编码为 FF AC 加 4 字节行数, MMR 为 00 00 加 4 字节行数
// 入参: data 数据, start 段数据起始, end 数据结束
// 返回: uint32 数据长度, error 错误信息
func findUnknownLength(data []byte, start, end int) (uint32, error) {
	if start+RegionSegmentInfoLength+1 > end {
		return 0, newError("segment end was not found")
	}
	height := readUint32(data, start+4)
	mmr := data[start+RegionSegmentInfoLength]&1 != 0
	var pattern [6]byte
	if !mmr {
		pattern[0], pattern[1] = 0xff, 0xac
	}
	pattern[2] = byte(height >> 24)
	pattern[3] = byte(height >> 16)
	pattern[4] = byte(height >> 8)
	pattern[5] = byte(height)
	for i := start; i+len(pattern) <= end; i++ {
		if [6]byte(data[i:i+6]) == pattern {
			return uint32(i + len(pattern) - start), nil
		}
	}
	return 0, newError("segment end was not found")
}

// resolveLength 确定段数据长度, 未知长度仅允许直接通用区域
func resolveLength(h *SegmentHeader, data []byte, start, end int) error {
	if h.Length != unknownSegmentLength {
		return nil
	}
	if h.Type != SegmentImmediateGenericRegion {
		return newError("invalid unknown segment length for %s segment", h.Type)
	}
	length, err := findUnknownLength(data, start, end)
	if err != nil {
		return err
	}
	h.Length = length
	h.UnknownLength = true
	return nil
}

// clampEnd 计算段数据结束偏移, 截断时记录告警
func clampEnd(h *SegmentHeader, start, end int) int {
	dataEnd := start + int(h.Length)
	if dataEnd > end {
		logging.Warn("jbig2: segment %d data truncated (%d of %d bytes)", h.Number, end-start, h.Length)
		return end
	}
	return dataEnd
}

// ReadSegments 读取 [start, end) 中的全部段, 遇到文件结束段停止
// 入参: data 数据, start 起始偏移, end 结束偏移, randomAccess 是否为随机访问组织 (段头在前)
// 返回: []*Segment 段列表, error 错误信息
func ReadSegments(data []byte, start, end int, randomAccess bool) ([]*Segment, error) {
	stream := NewBitStream(data, start, end)
	end = stream.GetEnd()
	var segments []*Segment
	for stream.GetByteLeft() > 0 {
		h, err := ReadSegmentHeader(stream)
		if err != nil {
			return nil, err
		}
		seg := &Segment{Header: *h, Data: data}
		if !randomAccess {
			seg.Start = stream.GetOffset()
			if err := resolveLength(&seg.Header, data, seg.Start, end); err != nil {
				return nil, err
			}
			seg.End = clampEnd(&seg.Header, seg.Start, end)
			stream.SetOffset(seg.End)
		} else if h.Length == unknownSegmentLength {
			return nil, newError("unknown segment length in random-access organisation")
		}
		segments = append(segments, seg)
		if h.Type == SegmentEndOfFile {
			break
		}
	}
	if randomAccess {
		pos := stream.GetOffset()
		for _, seg := range segments {
			seg.Start = pos
			seg.End = clampEnd(&seg.Header, pos, end)
			pos = seg.End
		}
	}
	return segments, nil
}
