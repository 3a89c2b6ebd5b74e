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

import "math"

const defaultAValue = 0x8000

// kQeTable 概率估计表 (T.88 表 E.1)
var kQeTable = [47]ArithQe{
	{0x5601, 1, 1, true}, {0x3401, 2, 6, false}, {0x1801, 3, 9, false},
	{0x0AC1, 4, 12, false}, {0x0521, 5, 29, false}, {0x0221, 38, 33, false},
	{0x5601, 7, 6, true}, {0x5401, 8, 14, false}, {0x4801, 9, 14, false},
	{0x3801, 10, 14, false}, {0x3001, 11, 17, false}, {0x2401, 12, 18, false},
	{0x1C01, 13, 20, false}, {0x1601, 29, 21, false}, {0x5601, 15, 14, true},
	{0x5401, 16, 14, false}, {0x5101, 17, 15, false}, {0x4801, 18, 16, false},
	{0x3801, 19, 17, false}, {0x3401, 20, 18, false}, {0x3001, 21, 19, false},
	{0x2801, 22, 19, false}, {0x2401, 23, 20, false}, {0x2201, 24, 21, false},
	{0x1C01, 25, 22, false}, {0x1801, 26, 23, false}, {0x1601, 27, 24, false},
	{0x1401, 28, 25, false}, {0x1201, 29, 26, false}, {0x1101, 30, 27, false},
	{0x0AC1, 31, 28, false}, {0x09C1, 32, 29, false}, {0x08A1, 33, 30, false},
	{0x0521, 34, 31, false}, {0x0441, 35, 32, false}, {0x02A1, 36, 33, false},
	{0x0221, 37, 34, false}, {0x0141, 38, 35, false}, {0x0111, 39, 36, false},
	{0x0085, 40, 37, false}, {0x0049, 41, 38, false}, {0x0025, 42, 39, false},
	{0x0015, 43, 40, false}, {0x0009, 44, 41, false}, {0x0005, 45, 42, false},
	{0x0001, 45, 43, false}, {0x5601, 46, 46, false},
}

// arithIntDecodeData 整数解码的一级: 读取位数与基准值
type arithIntDecodeData struct {
	nNeedBits int
	nValue    int64
}

// kArithIntDecodeData 整数解码阶梯, 按前缀位依次选择
var kArithIntDecodeData = []arithIntDecodeData{
	{2, 0}, {4, 4}, {6, 20}, {8, 84}, {12, 340}, {32, 4436},
}

// ArithQe 概率估计表项
type ArithQe struct {
	Qe     uint16
	NMPS   uint8
	NLPS   uint8
	Switch bool
}

// ArithCtx 自适应概率上下文
type ArithCtx struct {
	mps bool
	i   uint8
}

// DecodeNLPS 按 LPS 路径更新上下文
// 入参: qe 概率估计表项
// 返回: int 解码位
func (c *ArithCtx) DecodeNLPS(qe ArithQe) int {
	d := 0
	if !c.mps {
		d = 1
	}
	if qe.Switch {
		c.mps = !c.mps
	}
	c.i = qe.NLPS
	return d
}

// DecodeNMPS 按 MPS 路径更新上下文
// 入参: qe 概率估计表项
// 返回: int 解码位
func (c *ArithCtx) DecodeNMPS(qe ArithQe) int {
	c.i = qe.NMPS
	return c.MPS()
}

// MPS 获取大概率符号
// 返回: int 符号
func (c *ArithCtx) MPS() int {
	if c.mps {
		return 1
	}
	return 0
}

// ArithDecoder MQ 算术解码器 (T.88 附录 E)
type ArithDecoder struct {
	stream *BitStream
	b      uint8
	c      uint32
	a      uint32
	ct     uint32
}

// NewArithDecoder 创建算术解码器并执行 INITDEC
// 入参: stream 位流
// 返回: *ArithDecoder 解码器
func NewArithDecoder(stream *BitStream) *ArithDecoder {
	ad := &ArithDecoder{stream: stream, a: defaultAValue}
	ad.b = stream.GetCurByteArith()
	ad.c = (uint32(ad.b) ^ 0xff) << 16
	ad.byteIn()
	ad.c <<= 7
	ad.ct -= 7
	return ad
}

// Decode 解码一位并更新上下文
// 入参: cx 上下文
// 返回: int 解码位
func (ad *ArithDecoder) Decode(cx *ArithCtx) int {
	qe := kQeTable[cx.i]
	ad.a -= uint32(qe.Qe)
	if (ad.c >> 16) < ad.a {
		if (ad.a & defaultAValue) != 0 {
			return cx.MPS()
		}
		var d int
		if ad.a < uint32(qe.Qe) {
			d = cx.DecodeNLPS(qe)
		} else {
			d = cx.DecodeNMPS(qe)
		}
		ad.readValueA()
		return d
	}
	ad.c -= ad.a << 16
	var d int
	if ad.a < uint32(qe.Qe) {
		d = cx.DecodeNMPS(qe)
	} else {
		d = cx.DecodeNLPS(qe)
	}
	ad.a = uint32(qe.Qe)
	ad.readValueA()
	return d
}

// byteIn 读入一个字节, 处理 0xFF 标记
func (ad *ArithDecoder) byteIn() {
	if ad.b == 0xff {
		b1 := ad.stream.GetNextByteArith()
		if b1 > 0x8f {
			ad.ct = 8
		} else {
			ad.stream.IncByteIdx()
			ad.b = b1
			ad.c = ad.c + 0xfe00 - (uint32(ad.b) << 9)
			ad.ct = 7
		}
		return
	}
	ad.stream.IncByteIdx()
	ad.b = ad.stream.GetCurByteArith()
	ad.c = ad.c + 0xff00 - (uint32(ad.b) << 8)
	ad.ct = 8
}

// readValueA 重归一化 (RENORMD)
func (ad *ArithDecoder) readValueA() {
	for {
		if ad.ct == 0 {
			ad.byteIn()
		}
		ad.a <<= 1
		ad.c <<= 1
		ad.ct--
		if (ad.a & defaultAValue) != 0 {
			break
		}
	}
}

// ContextCache 按编码过程名称保存上下文数组
type ContextCache struct {
	contexts map[string][]ArithCtx
}

// NewContextCache 创建上下文缓存
// 返回: *ContextCache 缓存
func NewContextCache() *ContextCache {
	return &ContextCache{contexts: make(map[string][]ArithCtx)}
}

// GetContexts 获取编码过程的上下文数组, 首次使用时创建
// 入参: procedure 过程名称
// 返回: []ArithCtx 上下文数组
func (cc *ContextCache) GetContexts(procedure string) []ArithCtx {
	cx, ok := cc.contexts[procedure]
	if !ok {
		cx = make([]ArithCtx, contextArraySize)
		cc.contexts[procedure] = cx
	}
	return cx
}

// DecodingContext 一次区域解码的数据区间, 算术解码器与上下文缓存
type DecodingContext struct {
	Data    []byte
	Start   int
	End     int
	decoder *ArithDecoder
	cache   *ContextCache
}

// NewDecodingContext 创建解码上下文
// 入参: data 数据, start 起始偏移, end 结束偏移
// 返回: *DecodingContext 解码上下文
func NewDecodingContext(data []byte, start, end int) *DecodingContext {
	return &DecodingContext{Data: data, Start: start, End: end}
}

// Decoder 获取算术解码器, 首次调用时初始化
// 返回: *ArithDecoder 解码器
func (dc *DecodingContext) Decoder() *ArithDecoder {
	if dc.decoder == nil {
		dc.decoder = NewArithDecoder(NewBitStream(dc.Data, dc.Start, dc.End))
	}
	return dc.decoder
}

// ContextCache 获取上下文缓存
// 返回: *ContextCache 缓存
func (dc *DecodingContext) ContextCache() *ContextCache {
	if dc.cache == nil {
		dc.cache = NewContextCache()
	}
	return dc.cache
}

// DecodeInteger 按 IAx 过程解码整数 (T.88 附录 A.2)
// 入参: procedure 过程名称
// 返回: int 数值, bool 是否有值 (false 表示 OOB 或越界)
func (dc *DecodingContext) DecodeInteger(procedure string) (int, bool) {
	contexts := dc.ContextCache().GetContexts(procedure)
	decoder := dc.Decoder()
	prev := 1
	readBits := func(n int) int64 {
		var v int64
		for i := 0; i < n; i++ {
			bit := decoder.Decode(&contexts[prev])
			if prev < 256 {
				prev = prev<<1 | bit
			} else {
				prev = ((prev<<1 | bit) & 511) | 256
			}
			v = v<<1 | int64(bit)
		}
		return v
	}
	sign := readBits(1)
	level := 0
	for level < len(kArithIntDecodeData)-1 && readBits(1) == 1 {
		level++
	}
	step := kArithIntDecodeData[level]
	value := readBits(step.nNeedBits) + step.nValue
	if sign == 1 {
		if value == 0 {
			return 0, false
		}
		value = -value
	}
	if value < math.MinInt32 || value > math.MaxInt32 {
		return 0, false
	}
	return int(value), true
}

// DecodeIAID 按 IAID 过程解码符号编号
// 入参: codeLength 码长
// 返回: int 符号编号
func (dc *DecodingContext) DecodeIAID(codeLength int) int {
	contexts := dc.ContextCache().GetContexts("IAID")
	decoder := dc.Decoder()
	prev := 1
	for i := 0; i < codeLength; i++ {
		bit := decoder.Decode(&contexts[prev])
		prev = prev<<1 | bit
	}
	return prev & (1<<codeLength - 1)
}
