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

import "sync"

var (
	hl    = NewHuffmanLine
	lower = NewLowerRangeLine
	oob   = NewOOBLine
)

// kHuffmanTables 标准霍夫曼表 B.1 至 B.15, 行序为普通行, 下界行, 上界行, 带外行
var kHuffmanTables = [16][]HuffmanLine{
	1: {
		hl(0, 1, 4), hl(16, 2, 8), hl(272, 3, 16),
		hl(65808, 3, 32),
	},
	2: {
		hl(0, 1, 0), hl(1, 2, 0), hl(2, 3, 0), hl(3, 4, 3), hl(11, 5, 6),
		hl(75, 6, 32),
		oob(6),
	},
	3: {
		hl(-256, 8, 8), hl(0, 1, 0), hl(1, 2, 0), hl(2, 3, 0), hl(3, 4, 3), hl(11, 5, 6),
		lower(-257, 8),
		hl(75, 7, 32),
		oob(6),
	},
	4: {
		hl(1, 1, 0), hl(2, 2, 0), hl(3, 3, 0), hl(4, 4, 3), hl(12, 5, 6),
		hl(76, 5, 32),
	},
	5: {
		hl(-255, 7, 8), hl(1, 1, 0), hl(2, 2, 0), hl(3, 3, 0), hl(4, 4, 3), hl(12, 5, 6),
		lower(-256, 7),
		hl(76, 6, 32),
	},
	6: {
		hl(-2048, 5, 10), hl(-1024, 4, 9), hl(-512, 4, 8), hl(-256, 4, 7), hl(-128, 5, 6),
		hl(-64, 5, 5), hl(-32, 4, 5), hl(0, 2, 7), hl(128, 3, 7), hl(256, 3, 8),
		hl(512, 4, 9), hl(1024, 4, 10),
		lower(-2049, 6),
		hl(2048, 6, 32),
	},
	7: {
		hl(-1024, 4, 9), hl(-512, 3, 8), hl(-256, 4, 7), hl(-128, 5, 6), hl(-64, 5, 5),
		hl(-32, 4, 5), hl(0, 4, 5), hl(32, 5, 5), hl(64, 5, 6), hl(128, 4, 7),
		hl(256, 3, 8), hl(512, 3, 9), hl(1024, 3, 10),
		lower(-1025, 5),
		hl(2048, 5, 32),
	},
	8: {
		hl(-15, 8, 3), hl(-7, 9, 1), hl(-5, 8, 1), hl(-3, 9, 0), hl(-2, 7, 0),
		hl(-1, 4, 0), hl(0, 2, 1), hl(2, 5, 0), hl(3, 6, 0), hl(4, 3, 4),
		hl(20, 6, 1), hl(22, 4, 4), hl(38, 4, 5), hl(70, 5, 6), hl(134, 5, 7),
		hl(262, 6, 7), hl(390, 7, 8), hl(646, 6, 10),
		lower(-16, 9),
		hl(1670, 9, 32),
		oob(2),
	},
	9: {
		hl(-31, 8, 4), hl(-15, 9, 2), hl(-11, 8, 2), hl(-7, 9, 1), hl(-5, 7, 1),
		hl(-3, 4, 1), hl(-1, 3, 1), hl(1, 3, 1), hl(3, 5, 1), hl(5, 6, 1),
		hl(7, 3, 5), hl(39, 6, 2), hl(43, 4, 5), hl(75, 4, 6), hl(139, 5, 7),
		hl(267, 5, 8), hl(523, 6, 8), hl(779, 7, 9), hl(1291, 6, 11),
		lower(-32, 9),
		hl(3339, 9, 32),
		oob(2),
	},
	10: {
		hl(-21, 7, 4), hl(-5, 8, 0), hl(-4, 7, 0), hl(-3, 5, 0), hl(-2, 2, 2),
		hl(2, 5, 0), hl(3, 6, 0), hl(4, 7, 0), hl(5, 8, 0), hl(6, 2, 6),
		hl(70, 5, 5), hl(102, 6, 5), hl(134, 6, 6), hl(198, 6, 7), hl(326, 6, 8),
		hl(582, 6, 9), hl(1094, 6, 10), hl(2118, 7, 11),
		lower(-22, 8),
		hl(4166, 8, 32),
		oob(2),
	},
	11: {
		hl(1, 1, 0), hl(2, 2, 1), hl(4, 4, 0), hl(5, 4, 1), hl(7, 5, 1),
		hl(9, 5, 2), hl(13, 6, 2), hl(17, 7, 2), hl(21, 7, 3), hl(29, 7, 4),
		hl(45, 7, 5), hl(77, 7, 6),
		hl(141, 7, 32),
	},
	12: {
		hl(1, 1, 0), hl(2, 2, 0), hl(3, 3, 1), hl(5, 5, 0), hl(6, 5, 1),
		hl(8, 6, 1), hl(10, 7, 0), hl(11, 7, 1), hl(13, 7, 2), hl(17, 7, 3),
		hl(25, 7, 4), hl(41, 8, 5),
		hl(73, 8, 32),
	},
	13: {
		hl(1, 1, 0), hl(2, 3, 0), hl(3, 4, 0), hl(4, 5, 0), hl(5, 4, 1),
		hl(7, 3, 3), hl(15, 6, 1), hl(17, 6, 2), hl(21, 6, 3), hl(29, 6, 4),
		hl(45, 6, 5), hl(77, 7, 6),
		hl(141, 7, 32),
	},
	14: {
		hl(-2, 3, 0), hl(-1, 3, 0), hl(0, 1, 0), hl(1, 3, 0), hl(2, 3, 0),
	},
	15: {
		hl(-24, 7, 4), hl(-8, 6, 2), hl(-4, 5, 1), hl(-2, 4, 0), hl(-1, 3, 0),
		hl(0, 1, 0), hl(1, 3, 0), hl(2, 4, 0), hl(3, 5, 1), hl(5, 6, 2),
		hl(9, 7, 4),
		lower(-25, 7),
		hl(25, 7, 32),
	},
}

// standardTables 标准表注册表, 首次使用时构建, 之后只读
var standardTables = sync.OnceValues(func() ([16]*HuffmanTable, error) {
	var tables [16]*HuffmanTable
	for i := 1; i < len(kHuffmanTables); i++ {
		t, err := NewHuffmanTable(kHuffmanTables[i])
		if err != nil {
			return tables, err
		}
		tables[i] = t
	}
	return tables, nil
})

// StandardTable 获取标准霍夫曼表
// 入参: n 表号 1 至 15
// 返回: *HuffmanTable 霍夫曼表, error 错误信息
func StandardTable(n int) (*HuffmanTable, error) {
	if n < 1 || n > 15 {
		return nil, newError("standard table B.%d does not exist", n)
	}
	tables, err := standardTables()
	if err != nil {
		return nil, err
	}
	return tables[n], nil
}

// ParseHuffmanTable 解析表段 (类型 53) 中的自定义霍夫曼表
// 入参: data 数据, start 起始偏移, end 结束偏移
// 返回: *HuffmanTable 霍夫曼表, error 错误信息
func ParseHuffmanTable(data []byte, start, end int) (*HuffmanTable, error) {
	stream := NewBitStream(data, start, end)
	flags, err := stream.Read1Byte()
	if err != nil {
		return nil, err
	}
	lowRaw, err := stream.ReadInteger()
	if err != nil {
		return nil, err
	}
	highRaw, err := stream.ReadInteger()
	if err != nil {
		return nil, err
	}
	lowest := int(int32(lowRaw))
	highest := int(int32(highRaw))
	prefixSizeBits := int((flags>>1)&7) + 1
	rangeSizeBits := int((flags>>4)&7) + 1
	readPrefix := func() (int, error) {
		v, err := stream.ReadNBits(prefixSizeBits)
		return int(v), err
	}
	var lines []HuffmanLine
	current := lowest
	for {
		prefLen, err := readPrefix()
		if err != nil {
			return nil, err
		}
		rangeLen, err := stream.ReadNBits(rangeSizeBits)
		if err != nil {
			return nil, err
		}
		if rangeLen > 32 {
			return nil, newError("invalid Huffman range length %d", rangeLen)
		}
		lines = append(lines, NewHuffmanLine(current, prefLen, int(rangeLen)))
		current += 1 << rangeLen
		if current >= highest {
			break
		}
	}
	prefLen, err := readPrefix()
	if err != nil {
		return nil, err
	}
	lines = append(lines, NewLowerRangeLine(lowest-1, prefLen))
	prefLen, err = readPrefix()
	if err != nil {
		return nil, err
	}
	lines = append(lines, NewHuffmanLine(highest, prefLen, 32))
	if flags&1 != 0 {
		prefLen, err = readPrefix()
		if err != nil {
			return nil, err
		}
		lines = append(lines, NewOOBLine(prefLen))
	}
	return NewHuffmanTable(lines)
}
