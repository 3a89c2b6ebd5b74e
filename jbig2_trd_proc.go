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

// composeData 符号实例的放置位置及放置后沿 S 方向的推进量
type composeData struct {
	x, y      int
	increment int
}

// TRDProc 文本区域解码过程
type TRDProc struct {
	SBHUFF         bool
	SBREFINE       bool
	TRANSPOSED     bool
	SBDEFPIXEL     bool
	SBW            int
	SBH            int
	SBNUMINSTANCES int
	SBSTRIPS       int
	LOGSBSTRIPS    int
	SBSYMCODELEN   int
	SBDSOFFSET     int
	SBRTEMPLATE    int
	SBSYMS         []*Bitmap
	SBSYMCODES     *HuffmanTable
	SBCOMBOP       ComposeOp
	REFCORNER      Corner
	SBRAT          []Point
	SBHUFFFS       *HuffmanTable
	SBHUFFDS       *HuffmanTable
	SBHUFFDT       *HuffmanTable
}

// NewTRDProc 创建文本区域解码过程对象
// 返回: *TRDProc 对象
func NewTRDProc() *TRDProc {
	return &TRDProc{
		SBSTRIPS: 1,
	}
}

// getComposeData 计算符号实例的放置位置
// 入参: s, tv 当前 S/T 坐标, w, h 符号宽高
// 返回: composeData 放置位置与推进量
func (t *TRDProc) getComposeData(s, tv, w, h int) composeData {
	var r composeData
	right := t.REFCORNER == CornerTopRight || t.REFCORNER == CornerBottomRight
	bottom := t.REFCORNER == CornerBottomLeft || t.REFCORNER == CornerBottomRight
	if !t.TRANSPOSED {
		r.x, r.y = s, tv
		if right {
			r.x = s - w + 1
		}
		if bottom {
			r.y = tv - h + 1
		}
		r.increment = w - 1
	} else {
		r.x, r.y = tv, s
		if right {
			r.x = tv - w + 1
		}
		if bottom {
			r.y = s - h + 1
		}
		r.increment = h - 1
	}
	return r
}

// preIncrement 符号放置前是否先推进 S 坐标
func (t *TRDProc) preIncrement() bool {
	if !t.TRANSPOSED {
		return t.REFCORNER == CornerTopRight || t.REFCORNER == CornerBottomRight
	}
	return t.REFCORNER == CornerBottomLeft || t.REFCORNER == CornerBottomRight
}

// Decode 解码文本区域
// 入参: ctx 算术解码上下文, stream 霍夫曼模式位流
// 返回: *Bitmap 区域位图, error 错误信息
func (t *TRDProc) Decode(ctx *DecodingContext, stream *BitStream) (*Bitmap, error) {
	if t.SBCOMBOP != ComposeOr && t.SBCOMBOP != ComposeXor {
		return nil, newError("operator %s is not supported in text region", t.SBCOMBOP)
	}
	if t.SBHUFF {
		if t.SBREFINE {
			return nil, newError("refinement with Huffman is not supported in text region")
		}
		if t.SBHUFFFS == nil || t.SBHUFFDS == nil || t.SBHUFFDT == nil || t.SBSYMCODES == nil || stream == nil {
			return nil, newError("text region Huffman tables are missing")
		}
	} else if t.SBSYMCODELEN > JBig2MaxSymbolCodeLength {
		return nil, newError("symbol code length %d is too large", t.SBSYMCODELEN)
	}
	if t.SBSTRIPS < 1 {
		return nil, newError("invalid strip size %d", t.SBSTRIPS)
	}
	bm, err := NewBitmap(t.SBW, t.SBH)
	if err != nil {
		return nil, err
	}
	if t.SBDEFPIXEL {
		bm.Fill(1)
	}
	r := &valueReader{huffman: t.SBHUFF, ctx: ctx, stream: stream}
	initialT, ok, err := r.value(t.SBHUFFDT, "IADT")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, newError("unexpected OOB in initial strip T")
	}
	stripT := -initialT
	firstS := 0
	instances := 0
	for instances < t.SBNUMINSTANCES {
		deltaT, ok, err := r.value(t.SBHUFFDT, "IADT")
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, newError("unexpected OOB in strip delta T")
		}
		stripT += deltaT
		deltaFirstS, ok, err := r.value(t.SBHUFFFS, "IAFS")
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, newError("unexpected OOB in first S")
		}
		firstS += deltaFirstS
		curS := firstS
		for {
			curT, err := t.decodeCurT(r)
			if err != nil {
				return nil, err
			}
			ti := t.SBSTRIPS*stripT + curT
			id, err := t.decodeSymbolID(r)
			if err != nil {
				return nil, err
			}
			sym, err := t.refineSymbol(ctx, t.SBSYMS[id])
			if err != nil {
				return nil, err
			}
			w, h := sym.Width, sym.Height
			if t.preIncrement() {
				if t.TRANSPOSED {
					curS += h - 1
				} else {
					curS += w - 1
				}
			}
			cd := t.getComposeData(curS, ti, w, h)
			bm.composeSimple(sym, cd.x, cd.y, t.SBCOMBOP == ComposeXor)
			if !t.preIncrement() {
				curS += cd.increment
			}
			instances++
			ds, ok, err := r.value(t.SBHUFFDS, "IADS")
			if err != nil {
				return nil, err
			}
			if !ok || instances >= t.SBNUMINSTANCES {
				break
			}
			curS += ds + t.SBDSOFFSET
		}
	}
	return bm, nil
}

// decodeCurT 解码条带内 T 偏移
func (t *TRDProc) decodeCurT(r *valueReader) (int, error) {
	if t.SBHUFF {
		v, err := r.stream.ReadNBits(t.LOGSBSTRIPS)
		return int(v), err
	}
	if t.SBSTRIPS == 1 {
		return 0, nil
	}
	v, ok := r.ctx.DecodeInteger("IAIT")
	if !ok {
		return 0, newError("unexpected OOB in strip T offset")
	}
	return v, nil
}

// decodeSymbolID 解码符号编号并检查范围
func (t *TRDProc) decodeSymbolID(r *valueReader) (int, error) {
	var id int
	if t.SBHUFF {
		v, ok, err := t.SBSYMCODES.Decode(r.stream)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, newError("unexpected OOB in symbol ID")
		}
		id = v
	} else {
		id = r.ctx.DecodeIAID(t.SBSYMCODELEN)
	}
	if id < 0 || id >= len(t.SBSYMS) || t.SBSYMS[id] == nil {
		return 0, newError("symbol ID %d out of range", id)
	}
	return id, nil
}

// refineSymbol 按 IARI 决定是否细化符号实例
func (t *TRDProc) refineSymbol(ctx *DecodingContext, sym *Bitmap) (*Bitmap, error) {
	if !t.SBREFINE {
		return sym, nil
	}
	ri, ok := ctx.DecodeInteger("IARI")
	if !ok {
		return nil, newError("unexpected OOB in refinement flag")
	}
	if ri == 0 {
		return sym, nil
	}
	var d [4]int
	for i, name := range [4]string{"IARDW", "IARDH", "IARDX", "IARDY"} {
		v, ok := ctx.DecodeInteger(name)
		if !ok {
			return nil, newError("unexpected OOB in %s", name)
		}
		d[i] = v
	}
	rdw, rdh, rdx, rdy := d[0], d[1], d[2], d[3]
	grrd := NewGRRDProc()
	grrd.GRW = sym.Width + rdw
	grrd.GRH = sym.Height + rdh
	grrd.GRTEMPLATE = t.SBRTEMPLATE
	grrd.GRREFERENCE = sym
	grrd.GRREFERENCEDX = (rdw >> 1) + rdx
	grrd.GRREFERENCEDY = (rdh >> 1) + rdy
	grrd.GRAT = t.SBRAT
	return grrd.Decode(ctx)
}

// DecodeSymbolIDTable 读取霍夫曼模式下的符号编号表 (T.88 7.4.3.1.7)
// 入参: stream 位流, numSyms 符号数量
// 返回: *HuffmanTable 符号编号表, error 错误信息
func DecodeSymbolIDTable(stream *BitStream, numSyms int) (*HuffmanTable, error) {
	runLines := make([]HuffmanLine, 35)
	for i := range runLines {
		prefLen, err := stream.ReadNBits(4)
		if err != nil {
			return nil, err
		}
		runLines[i] = NewHuffmanLine(i, int(prefLen), 0)
	}
	runTable, err := NewHuffmanTable(runLines)
	if err != nil {
		return nil, err
	}
	lines := make([]HuffmanLine, 0, numSyms)
	for len(lines) < numSyms {
		code, ok, err := runTable.Decode(stream)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, newError("invalid symbol ID run code")
		}
		var prefLen, repeat int
		switch {
		case code < 32:
			prefLen, repeat = code, 1
		case code == 32:
			if len(lines) == 0 {
				return nil, newError("symbol ID run code 32 without previous length")
			}
			extra, err := stream.ReadNBits(2)
			if err != nil {
				return nil, err
			}
			prefLen, repeat = lines[len(lines)-1].PrefLen, 3+int(extra)
		case code == 33:
			extra, err := stream.ReadNBits(3)
			if err != nil {
				return nil, err
			}
			repeat = 3 + int(extra)
		case code == 34:
			extra, err := stream.ReadNBits(7)
			if err != nil {
				return nil, err
			}
			repeat = 11 + int(extra)
		default:
			return nil, newError("invalid symbol ID run code %d", code)
		}
		if len(lines)+repeat > numSyms {
			return nil, newError("symbol ID run overflows %d symbols", numSyms)
		}
		for k := 0; k < repeat; k++ {
			lines = append(lines, NewHuffmanLine(len(lines), prefLen, 0))
		}
	}
	stream.AlignByte()
	return NewHuffmanTable(lines)
}
