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

// maxHuffmanPrefixLength 前缀码最大长度
const maxHuffmanPrefixLength = 32

// HuffmanLine 霍夫曼表行
type HuffmanLine struct {
	RangeLow     int
	PrefLen      int
	RangeLen     int
	IsLowerRange bool
	IsOOB        bool
	Code         int
}

// NewHuffmanLine 创建普通行或上界行
// 入参: rangeLow 区间下界, prefLen 前缀长度, rangeLen 区间位数
// 返回: HuffmanLine 表行
func NewHuffmanLine(rangeLow, prefLen, rangeLen int) HuffmanLine {
	return HuffmanLine{RangeLow: rangeLow, PrefLen: prefLen, RangeLen: rangeLen}
}

// NewLowerRangeLine 创建下界行, 值为 rangeLow 减去附加位
// 入参: rangeLow 区间上端, prefLen 前缀长度
// 返回: HuffmanLine 表行
func NewLowerRangeLine(rangeLow, prefLen int) HuffmanLine {
	return HuffmanLine{RangeLow: rangeLow, PrefLen: prefLen, RangeLen: 32, IsLowerRange: true}
}

// NewOOBLine 创建带外行
// 入参: prefLen 前缀长度
// 返回: HuffmanLine 表行
func NewOOBLine(prefLen int) HuffmanLine {
	return HuffmanLine{PrefLen: prefLen, IsOOB: true}
}

// huffmanNode 前缀树节点
type huffmanNode struct {
	children [2]*huffmanNode
	leaf     bool
	line     HuffmanLine
}

// HuffmanTable 不可变的霍夫曼前缀树
type HuffmanTable struct {
	root   *huffmanNode
	lines  []HuffmanLine
	hasOOB bool
}

// HuffmanAssignCode 按 T.88 B.3 分配规范前缀码
// 入参: lines 表行, 原地写入 Code
// 返回: error 错误信息
func HuffmanAssignCode(lines []HuffmanLine) error {
	lenMax := 0
	for _, l := range lines {
		if l.PrefLen < 0 || l.PrefLen > maxHuffmanPrefixLength {
			return newError("invalid Huffman prefix length %d", l.PrefLen)
		}
		if l.PrefLen > lenMax {
			lenMax = l.PrefLen
		}
	}
	lenCount := make([]int, lenMax+1)
	for _, l := range lines {
		lenCount[l.PrefLen]++
	}
	lenCount[0] = 0
	firstCode := 0
	for curLen := 1; curLen <= lenMax; curLen++ {
		firstCode = (firstCode + lenCount[curLen-1]) << 1
		curCode := firstCode
		for i := range lines {
			if lines[i].PrefLen != curLen {
				continue
			}
			if curCode >= 1<<curLen {
				return newError("Huffman code space exhausted at length %d", curLen)
			}
			lines[i].Code = curCode
			curCode++
		}
	}
	return nil
}

// NewHuffmanTable 由表行构建前缀树
// 入参: lines 表行
// 返回: *HuffmanTable 霍夫曼表, error 错误信息
func NewHuffmanTable(lines []HuffmanLine) (*HuffmanTable, error) {
	owned := make([]HuffmanLine, len(lines))
	copy(owned, lines)
	if err := HuffmanAssignCode(owned); err != nil {
		return nil, err
	}
	t := &HuffmanTable{root: &huffmanNode{}, lines: owned}
	for _, l := range owned {
		if l.PrefLen == 0 {
			continue
		}
		if err := t.insert(l); err != nil {
			return nil, err
		}
		if l.IsOOB {
			t.hasOOB = true
		}
	}
	return t, nil
}

// insert 按前缀码插入叶子
func (t *HuffmanTable) insert(l HuffmanLine) error {
	node := t.root
	for shift := l.PrefLen - 1; shift >= 0; shift-- {
		if node.leaf {
			return newError("Huffman code is not prefix free")
		}
		bit := (l.Code >> uint(shift)) & 1
		if node.children[bit] == nil {
			node.children[bit] = &huffmanNode{}
		}
		node = node.children[bit]
	}
	if node.leaf || node.children[0] != nil || node.children[1] != nil {
		return newError("Huffman code is not prefix free")
	}
	node.leaf = true
	node.line = l
	return nil
}

// Lines 获取已分配前缀码的表行
// 返回: []HuffmanLine 表行
func (t *HuffmanTable) Lines() []HuffmanLine {
	return t.lines
}

// HasOOB 表中是否有带外行
// 返回: bool 是否有
func (t *HuffmanTable) HasOOB() bool {
	return t.hasOOB
}

// Decode 逐位下降前缀树解码一个值
// 入参: stream 位流
// 返回: int 数值, bool 是否有值 (false 为 OOB), error 错误信息
func (t *HuffmanTable) Decode(stream *BitStream) (int, bool, error) {
	node := t.root
	for !node.leaf {
		bit, err := stream.Read1Bit()
		if err != nil {
			return 0, false, err
		}
		node = node.children[bit]
		if node == nil {
			return 0, false, newError("invalid Huffman data")
		}
	}
	l := node.line
	if l.IsOOB {
		return 0, false, nil
	}
	offset, err := stream.ReadNBits(l.RangeLen)
	if err != nil {
		return 0, false, err
	}
	if l.IsLowerRange {
		return l.RangeLow - int(offset), true, nil
	}
	return l.RangeLow + int(offset), true, nil
}

// valueReader 按区域的编码方式读取整数: 霍夫曼表或 IAx 算术过程
type valueReader struct {
	huffman bool
	ctx     *DecodingContext
	stream  *BitStream
}

// value 解码一个整数
// 入参: table 霍夫曼模式所用表, procedure 算术模式所用过程名
// 返回: int 数值, bool 是否有值, error 错误信息
func (r *valueReader) value(table *HuffmanTable, procedure string) (int, bool, error) {
	if r.huffman {
		if table == nil {
			return 0, false, newError("Huffman table for %s is missing", procedure)
		}
		return table.Decode(r.stream)
	}
	v, ok := r.ctx.DecodeInteger(procedure)
	return v, ok, nil
}
