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
	"errors"
	"io"

	"github.com/xiaoqidun/jbig2dec/internal/logging"
	"golang.org/x/image/ccitt"
)

// byteReader 每次只交出一个字节, pos 即 ccitt 实际取走的字节数
type byteReader struct {
	data []byte
	pos  int
	end  int
}

// Read 实现 io.Reader
func (r *byteReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if r.pos >= r.end {
		return 0, io.EOF
	}
	p[0] = r.data[r.pos]
	r.pos++
	return 1, nil
}

// DecodeG4 使用 CCITT Group 4 (K=-1, BlackIs1) 从位流当前字节开始解码位图
// 数据提前结束时余下各行保持为 0, 其余解码错误直接返回
// 入参: stream 位流, width 宽度, height 高度, endOfBlock 数据是否以 EOFB 结尾
// 返回: *Bitmap 位图, error 错误信息
func DecodeG4(stream *BitStream, width, height int, endOfBlock bool) (*Bitmap, error) {
	bm, err := NewBitmap(width, height)
	if err != nil {
		return nil, err
	}
	if width == 0 || height == 0 {
		return bm, nil
	}
	stream.AlignByte()
	reader := &byteReader{data: stream.Data(), pos: stream.GetOffset(), end: stream.GetEnd()}
	rows := height
	if endOfBlock {
		rows = ccitt.AutoDetectHeight
	}
	decoder := ccitt.NewReader(reader, ccitt.MSB, ccitt.Group4, width, rows, &ccitt.Options{Invert: true})
	buf := make([]byte, (width+7)/8)
	complete := true
	for y := 0; y < height; y++ {
		if _, err := io.ReadFull(decoder, buf); err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) && reader.pos < reader.end {
				return nil, wrapError(err, "MMR decoding failed at row %d", y)
			}
			logging.Warn("jbig2: MMR data ended at row %d of %d: %v", y, height, err)
			complete = false
			break
		}
		row := bm.Rows[y]
		for x := range row {
			row[x] = (buf[x>>3] >> uint(7-(x&7))) & 1
		}
	}
	if endOfBlock && complete {
		// EOFB 之后的下一个位图从新字节开始
		_, _ = io.Copy(io.Discard, decoder)
	}
	stream.SetOffset(reader.pos)
	return bm, nil
}
