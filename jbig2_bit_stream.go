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

// BitStream 字节区间 [start, end) 上的位流, 高位在前
type BitStream struct {
	data  []byte
	start int
	end   int
	pos   int
	shift int
	cur   byte
}

// NewBitStream 创建位流
// 入参: data 数据, start 起始偏移, end 结束偏移
// 返回: *BitStream 位流对象
func NewBitStream(data []byte, start, end int) *BitStream {
	if end > len(data) {
		end = len(data)
	}
	if start < 0 {
		start = 0
	}
	if start > end {
		start = end
	}
	return &BitStream{data: data, start: start, end: end, pos: start, shift: -1}
}

// Read1Bit 读取一位
// 返回: int 位值, error 错误信息
func (b *BitStream) Read1Bit() (int, error) {
	if b.shift < 0 {
		if b.pos >= b.end {
			return 0, newError("end of data while reading bit")
		}
		b.cur = b.data[b.pos]
		b.pos++
		b.shift = 7
	}
	bit := int(b.cur>>uint(b.shift)) & 1
	b.shift--
	return bit, nil
}

// ReadNBits 读取 n 位, n 不超过 32
// 入参: n 位数
// 返回: uint32 数值, error 错误信息
func (b *BitStream) ReadNBits(n int) (uint32, error) {
	var result uint32
	for i := 0; i < n; i++ {
		bit, err := b.Read1Bit()
		if err != nil {
			return 0, err
		}
		result = result<<1 | uint32(bit)
	}
	return result, nil
}

// AlignByte 丢弃当前字节剩余的位
func (b *BitStream) AlignByte() {
	b.shift = -1
}

// Read1Byte 对齐后读取一个字节
// 返回: uint8 字节, error 错误信息
func (b *BitStream) Read1Byte() (uint8, error) {
	b.AlignByte()
	if b.pos >= b.end {
		return 0, newError("end of data while reading byte")
	}
	v := b.data[b.pos]
	b.pos++
	return v, nil
}

// ReadInt8 读取有符号字节
// 返回: int 数值, error 错误信息
func (b *BitStream) ReadInt8() (int, error) {
	v, err := b.Read1Byte()
	return int(int8(v)), err
}

// ReadShortInteger 对齐后读取大端 16 位整数
// 返回: uint16 数值, error 错误信息
func (b *BitStream) ReadShortInteger() (uint16, error) {
	b.AlignByte()
	if b.end-b.pos < 2 {
		return 0, newError("end of data while reading uint16")
	}
	v := uint16(b.data[b.pos])<<8 | uint16(b.data[b.pos+1])
	b.pos += 2
	return v, nil
}

// ReadInteger 对齐后读取大端 32 位整数
// 返回: uint32 数值, error 错误信息
func (b *BitStream) ReadInteger() (uint32, error) {
	b.AlignByte()
	if b.end-b.pos < 4 {
		return 0, newError("end of data while reading uint32")
	}
	v := readUint32(b.data, b.pos)
	b.pos += 4
	return v, nil
}

// GetOffset 获取当前字节偏移
// 返回: int 偏移
func (b *BitStream) GetOffset() int {
	return b.pos
}

// SetOffset 设置字节偏移并对齐
// 入参: offset 偏移
func (b *BitStream) SetOffset(offset int) {
	if offset > b.end {
		offset = b.end
	}
	if offset < b.start {
		offset = b.start
	}
	b.pos = offset
	b.shift = -1
}

// GetEnd 获取结束偏移
// 返回: int 结束偏移
func (b *BitStream) GetEnd() int {
	return b.end
}

// GetByteLeft 获取剩余字节数
// 返回: int 字节数
func (b *BitStream) GetByteLeft() int {
	return b.end - b.pos
}

// Data 获取底层数据
// 返回: []byte 数据
func (b *BitStream) Data() []byte {
	return b.data
}

// readUint32 读取大端 32 位整数, 调用方保证边界
func readUint32(data []byte, pos int) uint32 {
	return uint32(data[pos])<<24 | uint32(data[pos+1])<<16 | uint32(data[pos+2])<<8 | uint32(data[pos+3])
}

// readUint16 读取大端 16 位整数, 调用方保证边界
func readUint16(data []byte, pos int) uint16 {
	return uint16(data[pos])<<8 | uint16(data[pos+1])
}

// GetCurByteArith 获取当前字节, 越界时返回 0xFF
// 返回: uint8 字节
func (b *BitStream) GetCurByteArith() uint8 {
	if b.pos < b.end {
		return b.data[b.pos]
	}
	return 0xFF
}

// GetNextByteArith 获取下一字节, 越界时返回 0xFF
// 返回: uint8 字节
func (b *BitStream) GetNextByteArith() uint8 {
	if b.pos+1 < b.end {
		return b.data[b.pos+1]
	}
	return 0xFF
}

// IncByteIdx 前进一个字节
func (b *BitStream) IncByteIdx() {
	if b.pos < b.end {
		b.pos++
	}
}
