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

import "github.com/xiaoqidun/jbig2dec/internal/logging"

// HTRDProc 半色调区域解码过程
type HTRDProc struct {
	HMMR        bool
	HTEMPLATE   int
	HENABLESKIP bool
	HDEFPIXEL   bool
	HCOMBOP     ComposeOp
	HBW, HBH    int
	HGW, HGH    int
	HGX, HGY    int
	HRX, HRY    int
	HPATS       []*Bitmap
}

// NewHTRDProc 创建半色调区域解码过程对象
// 返回: *HTRDProc 对象
func NewHTRDProc() *HTRDProc {
	return &HTRDProc{}
}

// Decode 解码半色调区域
// 入参: ctx 解码上下文
// 返回: *Bitmap 区域位图, error 错误信息
func (h *HTRDProc) Decode(ctx *DecodingContext) (*Bitmap, error) {
	if h.HENABLESKIP {
		return nil, newError("halftone skip bitmap is not supported")
	}
	if h.HCOMBOP != ComposeOr {
		return nil, newError("operator %s is not supported in halftone region", h.HCOMBOP)
	}
	if len(h.HPATS) == 0 {
		return nil, newError("halftone region has no patterns")
	}
	if int64(h.HGW)*int64(h.HGH) > DefaultMaxPixels || h.HGW < 0 || h.HGH < 0 {
		return nil, newError("invalid halftone grid %dx%d", h.HGW, h.HGH)
	}
	bpp := log2Ceil(len(h.HPATS))
	planes := make([]*Bitmap, bpp)
	var err error
	if h.HMMR {
		stream := NewBitStream(ctx.Data, ctx.Start, ctx.End)
		for j := bpp - 1; j >= 0; j-- {
			if planes[j], err = DecodeG4(stream, h.HGW, h.HGH, true); err != nil {
				return nil, err
			}
		}
	} else {
		grd := NewGRDProc()
		grd.GBW = h.HGW
		grd.GBH = h.HGH
		grd.GBTEMPLATE = h.HTEMPLATE
		x := 2
		if h.HTEMPLATE <= 1 {
			x = 3
		}
		grd.GBAT = []Point{{x, -1}}
		if h.HTEMPLATE == 0 {
			grd.GBAT = append(grd.GBAT, Point{-3, -1}, Point{2, -2}, Point{-2, -2})
		}
		for j := bpp - 1; j >= 0; j-- {
			if planes[j], err = grd.Decode(ctx); err != nil {
				return nil, err
			}
		}
	}
	return h.decodeImage(planes)
}

// decodeImage 灰度平面经格雷码还原为模式编号并按网格放置
// 入参: planes 位平面, 下标为位序
// 返回: *Bitmap 区域位图, error 错误信息
func (h *HTRDProc) decodeImage(planes []*Bitmap) (*Bitmap, error) {
	bm, err := NewBitmap(h.HBW, h.HBH)
	if err != nil {
		return nil, err
	}
	if h.HDEFPIXEL {
		bm.Fill(1)
	}
	clamped := 0
	for mg := 0; mg < h.HGH; mg++ {
		for ng := 0; ng < h.HGW; ng++ {
			index, bit := 0, 0
			for j := len(planes) - 1; j >= 0; j-- {
				bit ^= int(planes[j].Rows[mg][ng])
				index |= bit << uint(j)
			}
			if index >= len(h.HPATS) {
				index = len(h.HPATS) - 1
				clamped++
			}
			x := (h.HGX + mg*h.HRY + ng*h.HRX) >> 8
			y := (h.HGY + mg*h.HRX - ng*h.HRY) >> 8
			bm.composeSimple(h.HPATS[index], x, y, false)
		}
	}
	if clamped > 0 {
		logging.Warn("jbig2: %d halftone pattern indices clamped to %d", clamped, len(h.HPATS)-1)
	}
	return bm, nil
}
