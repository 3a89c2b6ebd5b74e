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

const (
	// JBig2MaxImageSize 最大图像边长
	JBig2MaxImageSize = 1 << 24
	// JBig2MaxSymbolCodeLength IAID 最大码长, 受上下文数组大小限制
	JBig2MaxSymbolCodeLength = 16
	// DefaultMaxPixels 默认最大像素数
	DefaultMaxPixels = int64(1) << 28
	// RegionSegmentInfoLength 区域段信息字段长度
	RegionSegmentInfoLength = 17
	// contextArraySize 单个编码过程的上下文数量
	contextArraySize = 1 << 16
)

// ComposeOp 组合操作类型
type ComposeOp int

const (
	// ComposeOr 或操作
	ComposeOr ComposeOp = 0
	// ComposeAnd 与操作
	ComposeAnd ComposeOp = 1
	// ComposeXor 异或操作
	ComposeXor ComposeOp = 2
	// ComposeXnor 同或操作
	ComposeXnor ComposeOp = 3
	// ComposeReplace 替换操作
	ComposeReplace ComposeOp = 4
)

// String 返回操作名
func (op ComposeOp) String() string {
	switch op {
	case ComposeOr:
		return "OR"
	case ComposeAnd:
		return "AND"
	case ComposeXor:
		return "XOR"
	case ComposeXnor:
		return "XNOR"
	case ComposeReplace:
		return "REPLACE"
	}
	return "UNKNOWN"
}

// Corner 文本区域参考角
type Corner uint8

const (
	// CornerBottomLeft 左下角
	CornerBottomLeft Corner = 0
	// CornerTopLeft 左上角
	CornerTopLeft Corner = 1
	// CornerBottomRight 右下角
	CornerBottomRight Corner = 2
	// CornerTopRight 右上角
	CornerTopRight Corner = 3
)

// RegionInfo 区域段信息
type RegionInfo struct {
	Width  int
	Height int
	X      int
	Y      int
	Flags  uint8
}

// ComposeOp 获取区域外部组合操作
// 返回: ComposeOp 组合操作
func (ri RegionInfo) ComposeOp() ComposeOp {
	return ComposeOp(ri.Flags & 7)
}

// Point 像素偏移
type Point struct {
	X int
	Y int
}

// log2Ceil 计算 ceil(log2(x)), x <= 1 时为 0
// 入参: x 数值
// 返回: int 位数
func log2Ceil(x int) int {
	n := 0
	for (1 << n) < x {
		n++
	}
	return n
}
