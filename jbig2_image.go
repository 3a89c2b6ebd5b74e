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

// Image 页面缓冲区, 每行按字节对齐打包, 高位在前, 1 为黑
type Image struct {
	width  int
	height int
	stride int
	data   []byte
}

// NewImage 创建页面缓冲区, 高度可为 0 (高度未知的条带页面)
// 入参: width 宽度, height 高度
// 返回: *Image 图像对象, error 错误信息
func NewImage(width, height int) (*Image, error) {
	if width < 0 || height < 0 || width > JBig2MaxImageSize {
		return nil, newError("invalid page size %dx%d", width, height)
	}
	stride := (width + 7) / 8
	return &Image{
		width:  width,
		height: height,
		stride: stride,
		data:   make([]byte, stride*height),
	}, nil
}

// Width 获取宽度
// 返回: int 宽度
func (i *Image) Width() int {
	return i.width
}

// Height 获取高度
// 返回: int 高度
func (i *Image) Height() int {
	return i.height
}

// Stride 获取每行字节数
// 返回: int 跨度
func (i *Image) Stride() int {
	return i.stride
}

// Data 获取打包数据
// 返回: []byte 数据切片
func (i *Image) Data() []byte {
	return i.data
}

// GetPixel 获取像素值, 越界时为 0
// 入参: x 轴坐标, y 轴坐标
// 返回: int 像素值
func (i *Image) GetPixel(x, y int) int {
	if x < 0 || x >= i.width || y < 0 || y >= i.height {
		return 0
	}
	return int(i.data[y*i.stride+x>>3]>>uint(7-(x&7))) & 1
}

// SetPixel 设置像素值, 越界时忽略
// 入参: x 轴坐标, y 轴坐标, v 像素值
func (i *Image) SetPixel(x, y int, v int) {
	if x < 0 || x >= i.width || y < 0 || y >= i.height {
		return
	}
	idx := y*i.stride + x>>3
	mask := byte(1) << uint(7-(x&7))
	if v != 0 {
		i.data[idx] |= mask
	} else {
		i.data[idx] &^= mask
	}
}

// Fill 填充图像
// 入参: v 填充值
func (i *Image) Fill(v bool) {
	var val byte
	if v {
		val = 0xFF
	}
	for idx := range i.data {
		i.data[idx] = val
	}
}

// composePixel 按组合操作合成单个像素
// 入参: dst 目标像素, src 源像素, op 组合操作
// 返回: int 结果像素
func composePixel(dst, src int, op ComposeOp) int {
	switch op {
	case ComposeOr:
		return dst | src
	case ComposeAnd:
		return dst & src
	case ComposeXor:
		return dst ^ src
	case ComposeXnor:
		return 1 ^ dst ^ src
	case ComposeReplace:
		return src
	}
	return dst
}

// ComposeBitmap 将区域位图按组合操作合成到 (x, y), 超出页面的像素丢弃
// 入参: bm 区域位图, x 轴坐标, y 轴坐标, op 组合操作
func (i *Image) ComposeBitmap(bm *Bitmap, x, y int, op ComposeOp) {
	for r := 0; r < bm.Height; r++ {
		dy := y + r
		if dy < 0 || dy >= i.height {
			continue
		}
		for c, v := range bm.Rows[r] {
			dx := x + c
			if dx < 0 || dx >= i.width {
				continue
			}
			i.SetPixel(dx, dy, composePixel(i.GetPixel(dx, dy), int(v), op))
		}
	}
}

// Region 截取页面区域为位图, 页面外的像素为 0
// 入参: x, y 左上角, w 宽度, h 高度
// 返回: *Bitmap 位图, error 错误信息
func (i *Image) Region(x, y, w, h int) (*Bitmap, error) {
	bm, err := NewBitmap(w, h)
	if err != nil {
		return nil, err
	}
	for r, row := range bm.Rows {
		for c := range row {
			row[c] = byte(i.GetPixel(x+c, y+r))
		}
	}
	return bm, nil
}

// Expand 扩展图像高度, 新行以默认像素填充
// 入参: height 新高度, defaultPixel 默认填充值
func (i *Image) Expand(height int, defaultPixel bool) {
	if height <= i.height {
		return
	}
	newData := make([]byte, i.stride*height)
	copy(newData, i.data)
	if defaultPixel {
		for j := i.stride * i.height; j < len(newData); j++ {
			newData[j] = 0xFF
		}
	}
	i.data = newData
	i.height = height
}
