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

// SDDProc 符号字典解码过程
type SDDProc struct {
	SDHUFF        bool
	SDREFAGG      bool
	SDTEMPLATE    int
	SDRTEMPLATE   int
	SDNUMNEWSYMS  int
	SDNUMEXSYMS   int
	SDINSYMS      []*Bitmap
	SDAT          []Point
	SDRAT         []Point
	SDHUFFDH      *HuffmanTable
	SDHUFFDW      *HuffmanTable
	SDHUFFBMSIZE  *HuffmanTable
	SDHUFFAGGINST *HuffmanTable
}

// NewSDDProc 创建符号字典解码过程对象
// 返回: *SDDProc 对象
func NewSDDProc() *SDDProc {
	return &SDDProc{}
}

// Decode 解码符号字典, 返回导出符号
// 入参: ctx 算术解码上下文, stream 霍夫曼模式位流
// 返回: []*Bitmap 导出符号, error 错误信息
func (s *SDDProc) Decode(ctx *DecodingContext, stream *BitStream) ([]*Bitmap, error) {
	if s.SDHUFF && s.SDREFAGG {
		return nil, newError("symbol refinement with Huffman is not supported")
	}
	if s.SDNUMNEWSYMS < 0 || s.SDNUMNEWSYMS > JBig2MaxImageSize {
		return nil, newError("invalid number of new symbols %d", s.SDNUMNEWSYMS)
	}
	r := &valueReader{huffman: s.SDHUFF, ctx: ctx, stream: stream}
	numInSyms := len(s.SDINSYMS)
	symCodeLen := log2Ceil(numInSyms + s.SDNUMNEWSYMS)
	var tableB1 *HuffmanTable
	if s.SDHUFF {
		var err error
		if tableB1, err = StandardTable(1); err != nil {
			return nil, err
		}
		symCodeLen = max(symCodeLen, 1)
		if s.SDHUFFDH == nil || s.SDHUFFDW == nil || s.SDHUFFBMSIZE == nil || stream == nil {
			return nil, newError("symbol dictionary Huffman tables are missing")
		}
	}
	if s.SDREFAGG && symCodeLen > JBig2MaxSymbolCodeLength {
		return nil, newError("symbol code length %d is too large", symCodeLen)
	}
	newSyms := make([]*Bitmap, 0, s.SDNUMNEWSYMS)
	var symWidths []int
	hcHeight := 0
	for len(newSyms) < s.SDNUMNEWSYMS {
		hcdh, ok, err := r.value(s.SDHUFFDH, "IADH")
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, newError("unexpected OOB in height class delta")
		}
		hcHeight += hcdh
		if hcHeight < 0 || hcHeight > JBig2MaxImageSize {
			return nil, newError("invalid height class height %d", hcHeight)
		}
		symWidth, totWidth := 0, 0
		hcFirstSym := len(symWidths)
		for {
			dw, ok, err := r.value(s.SDHUFFDW, "IADW")
			if err != nil {
				return nil, err
			}
			if !ok {
				break
			}
			if len(newSyms)+len(symWidths)-hcFirstSym >= s.SDNUMNEWSYMS {
				return nil, newError("too many symbols in symbol dictionary")
			}
			symWidth += dw
			if symWidth < 0 || symWidth > JBig2MaxImageSize {
				return nil, newError("invalid symbol width %d", symWidth)
			}
			totWidth += symWidth
			switch {
			case s.SDHUFF:
				symWidths = append(symWidths, symWidth)
			case s.SDREFAGG:
				bm, err := s.decodeRefAgg(ctx, symWidth, hcHeight, symCodeLen, newSyms)
				if err != nil {
					return nil, err
				}
				newSyms = append(newSyms, bm)
			default:
				grd := NewGRDProc()
				grd.GBW = symWidth
				grd.GBH = hcHeight
				grd.GBTEMPLATE = s.SDTEMPLATE
				grd.GBAT = s.SDAT
				bm, err := grd.Decode(ctx)
				if err != nil {
					return nil, err
				}
				newSyms = append(newSyms, bm)
			}
		}
		if s.SDHUFF {
			syms, err := s.decodeCollective(stream, symWidths[hcFirstSym:], totWidth, hcHeight)
			if err != nil {
				return nil, err
			}
			newSyms = append(newSyms, syms...)
		}
	}
	return s.exportSymbols(r, tableB1, newSyms)
}

// decodeRefAgg 细化/聚合编码的符号位图
func (s *SDDProc) decodeRefAgg(ctx *DecodingContext, width, height, symCodeLen int, newSyms []*Bitmap) (*Bitmap, error) {
	nInst, ok := ctx.DecodeInteger("IAAI")
	if !ok {
		return nil, newError("unexpected OOB in aggregate instance count")
	}
	syms := make([]*Bitmap, 0, len(s.SDINSYMS)+len(newSyms))
	syms = append(append(syms, s.SDINSYMS...), newSyms...)
	if nInst > 1 {
		trd := NewTRDProc()
		trd.SBREFINE = true
		trd.SBW = width
		trd.SBH = height
		trd.SBNUMINSTANCES = nInst
		trd.SBSTRIPS = 1
		trd.SBSYMS = syms
		trd.SBSYMCODELEN = symCodeLen
		trd.REFCORNER = CornerTopLeft
		trd.SBCOMBOP = ComposeOr
		trd.SBRTEMPLATE = s.SDRTEMPLATE
		trd.SBRAT = s.SDRAT
		return trd.Decode(ctx, nil)
	}
	id := ctx.DecodeIAID(symCodeLen)
	rdx, ok1 := ctx.DecodeInteger("IARDX")
	rdy, ok2 := ctx.DecodeInteger("IARDY")
	if !ok1 || !ok2 {
		return nil, newError("unexpected OOB in symbol refinement offset")
	}
	if id >= len(syms) {
		return nil, newError("refinement symbol %d out of range", id)
	}
	grrd := NewGRRDProc()
	grrd.GRW = width
	grrd.GRH = height
	grrd.GRTEMPLATE = s.SDRTEMPLATE
	grrd.GRREFERENCE = syms[id]
	grrd.GRREFERENCEDX = rdx
	grrd.GRREFERENCEDY = rdy
	grrd.GRAT = s.SDRAT
	return grrd.Decode(ctx)
}

// decodeCollective 霍夫曼模式: 解码高度类的集合位图并按宽度切分
func (s *SDDProc) decodeCollective(stream *BitStream, widths []int, totWidth, height int) ([]*Bitmap, error) {
	bmSize, ok, err := s.SDHUFFBMSIZE.Decode(stream)
	if err != nil {
		return nil, err
	}
	if !ok || bmSize < 0 {
		return nil, newError("invalid collective bitmap size")
	}
	stream.AlignByte()
	var collective *Bitmap
	if bmSize == 0 {
		collective, err = readUncompressedBitmap(stream, totWidth, height)
	} else {
		start := stream.GetOffset()
		if bmSize > stream.GetByteLeft() {
			return nil, newError("collective bitmap size %d exceeds segment", bmSize)
		}
		collective, err = DecodeG4(NewBitStream(stream.Data(), start, start+bmSize), totWidth, height, false)
		stream.SetOffset(start + bmSize)
	}
	if err != nil {
		return nil, err
	}
	syms := make([]*Bitmap, 0, len(widths))
	x := 0
	for _, w := range widths {
		syms = append(syms, collective.SubColumns(x, w))
		x += w
	}
	return syms, nil
}

// exportSymbols 按交替游程选择导出符号, 首个游程为不导出
// 游程超出输入与新符号总数时返回错误, 不做截断
func (s *SDDProc) exportSymbols(r *valueReader, tableB1 *HuffmanTable, newSyms []*Bitmap) ([]*Bitmap, error) {
	numInSyms := len(s.SDINSYMS)
	total := numInSyms + len(newSyms)
	flags := bitset.New(uint(total))
	exported := false
	for idx, runs := 0, 0; idx < total; runs++ {
		if runs > 2*total+2 {
			return nil, newError("export flags do not terminate")
		}
		run, ok, err := r.value(tableB1, "IAEX")
		if err != nil {
			return nil, err
		}
		if !ok || run < 0 || run > total-idx {
			return nil, newError("invalid export run length")
		}
		if exported {
			for k := idx; k < idx+run; k++ {
				flags.Set(uint(k))
			}
		}
		idx += run
		exported = !exported
	}
	if n := int(flags.Count()); n != s.SDNUMEXSYMS {
		logging.Warn("jbig2: symbol dictionary exports %d symbols, header declares %d", n, s.SDNUMEXSYMS)
	}
	out := make([]*Bitmap, 0, flags.Count())
	for i, ok := flags.NextSet(0); ok; i, ok = flags.NextSet(i + 1) {
		if int(i) < numInSyms {
			out = append(out, s.SDINSYMS[i])
		} else {
			out = append(out, newSyms[int(i)-numInSyms])
		}
	}
	return out, nil
}
