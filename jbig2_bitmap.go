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

// Bitmap 解码过程中使用的位图, 每像素一字节, 按行自上而下存储
type Bitmap struct {
	Width  int
	Height int
	Rows   [][]byte
}

// NewBitmap 创建全零位图
// 入参: width 宽度, height 高度
// 返回: *Bitmap 位图, error 错误信息
func NewBitmap(width, height int) (*Bitmap, error) {
	if width < 0 || height < 0 || width > JBig2MaxImageSize || height > JBig2MaxImageSize {
		return nil, newError("invalid bitmap size %dx%d", width, height)
	}
	if int64(width)*int64(height) > DefaultMaxPixels {
		return nil, newError("bitmap %dx%d is too large", width, height)
	}
	bm := &Bitmap{Width: width, Height: height, Rows: make([][]byte, height)}
	buf := make([]byte, width*height)
	for y := range bm.Rows {
		bm.Rows[y] = buf[y*width : (y+1)*width : (y+1)*width]
	}
	return bm, nil
}

// GetPixel 获取像素, 越界时为 0
// 入参: x 列, y 行
// 返回: byte 像素值
func (bm *Bitmap) GetPixel(x, y int) byte {
	if x < 0 || y < 0 || x >= bm.Width || y >= bm.Height {
		return 0
	}
	return bm.Rows[y][x]
}

// Fill 填充位图
// 入参: v 像素值
func (bm *Bitmap) Fill(v byte) {
	for _, row := range bm.Rows {
		for x := range row {
			row[x] = v
		}
	}
}

// SubColumns 截取 [x, x+width) 列, 与原位图共享行数据
// 入参: x 起始列, width 宽度
// 返回: *Bitmap 子位图
func (bm *Bitmap) SubColumns(x, width int) *Bitmap {
	sub := &Bitmap{Width: width, Height: bm.Height, Rows: make([][]byte, bm.Height)}
	for y, row := range bm.Rows {
		sub.Rows[y] = row[x : x+width : x+width]
	}
	return sub
}

// composeSimple 以 OR 或 XOR 将 src 合成到 (x, y), 超出范围的像素丢弃
// 入参: src 源位图, x, y 左上角, xor 是否异或
func (bm *Bitmap) composeSimple(src *Bitmap, x, y int, xor bool) {
	for i := 0; i < src.Height; i++ {
		dy := y + i
		if dy < 0 || dy >= bm.Height {
			continue
		}
		row := bm.Rows[dy]
		for j, v := range src.Rows[i] {
			dx := x + j
			if v == 0 || dx < 0 || dx >= bm.Width {
				continue
			}
			if xor {
				row[dx] ^= 1
			} else {
				row[dx] = 1
			}
		}
	}
}

// Equal 比较两幅位图
// 入参: other 另一位图
// 返回: bool 是否相同
func (bm *Bitmap) Equal(other *Bitmap) bool {
	if bm.Width != other.Width || bm.Height != other.Height {
		return false
	}
	for y := range bm.Rows {
		for x := range bm.Rows[y] {
			if bm.Rows[y][x] != other.Rows[y][x] {
				return false
			}
		}
	}
	return true
}

// readUncompressedBitmap 读取未压缩位图, 每行末尾字节对齐
// 入参: stream 位流, width 宽度, height 高度
// 返回: *Bitmap 位图, error 错误信息
func readUncompressedBitmap(stream *BitStream, width, height int) (*Bitmap, error) {
	bm, err := NewBitmap(width, height)
	if err != nil {
		return nil, err
	}
	for _, row := range bm.Rows {
		for x := range row {
			bit, err := stream.Read1Bit()
			if err != nil {
				return nil, err
			}
			row[x] = byte(bit)
		}
		stream.AlignByte()
	}
	return bm, nil
}
