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

import "sort"

var (
	// kCodingTemplates 四种通用区域模板的固定像素, 不含 AT 像素
	kCodingTemplates = [4][]Point{
		{{-1, -2}, {0, -2}, {1, -2}, {-2, -1}, {-1, -1}, {0, -1}, {1, -1}, {2, -1}, {-4, 0}, {-3, 0}, {-2, 0}, {-1, 0}},
		{{-1, -2}, {0, -2}, {1, -2}, {2, -2}, {-2, -1}, {-1, -1}, {0, -1}, {1, -1}, {2, -1}, {-3, 0}, {-2, 0}, {-1, 0}},
		{{-1, -2}, {0, -2}, {1, -2}, {-2, -1}, {-1, -1}, {0, -1}, {1, -1}, {-2, 0}, {-1, 0}},
		{{-3, -1}, {-2, -1}, {-1, -1}, {0, -1}, {1, -1}, {-4, 0}, {-3, 0}, {-2, 0}, {-1, 0}},
	}
	// kReusedContexts TPGDON 伪像素上下文
	kReusedContexts = [4]int{0x9b25, 0x0795, 0x00e5, 0x0195}
	// kDefaultGBAT 模板0的默认 AT 像素
	kDefaultGBAT = []Point{{3, -1}, {-3, -1}, {2, -2}, {-2, -2}}
)

// GRDProc 通用区域解码过程
type GRDProc struct {
	MMR        bool
	GBW        int
	GBH        int
	GBTEMPLATE int
	TPGDON     bool
	USESKIP    bool
	SKIP       *Bitmap
	GBAT       []Point
	EOFB       bool
}

// NewGRDProc 创建通用区域解码过程对象
// 返回: *GRDProc 对象
func NewGRDProc() *GRDProc {
	return &GRDProc{}
}

// DefaultGBAT 获取模板的默认 AT 像素
// 入参: template 模板编号
// 返回: []Point AT 像素
func DefaultGBAT(template int) []Point {
	if template == 0 {
		return append([]Point(nil), kDefaultGBAT...)
	}
	if template == 1 {
		return []Point{{3, -1}}
	}
	return []Point{{2, -1}}
}

// Decode 解码通用区域
// 入参: ctx 解码上下文
// 返回: *Bitmap 位图, error 错误信息
func (g *GRDProc) Decode(ctx *DecodingContext) (*Bitmap, error) {
	if g.MMR {
		return DecodeG4(NewBitStream(ctx.Data, ctx.Start, ctx.End), g.GBW, g.GBH, g.EOFB)
	}
	if err := g.validate(); err != nil {
		return nil, err
	}
	if g.useTemplate0Opt() {
		return g.decodeTemplate0Opt(ctx)
	}
	return g.decodeTemplateUnopt(ctx)
}

// validate 检查模板与 AT 像素
func (g *GRDProc) validate() error {
	if g.GBTEMPLATE < 0 || g.GBTEMPLATE > 3 {
		return newError("invalid generic region template %d", g.GBTEMPLATE)
	}
	want := 1
	if g.GBTEMPLATE == 0 {
		want = 4
	}
	if len(g.GBAT) != want {
		return newError("template %d needs %d AT pixels, got %d", g.GBTEMPLATE, want, len(g.GBAT))
	}
	for _, at := range g.GBAT {
		if at.Y > 0 || (at.Y == 0 && at.X >= 0) {
			return newError("AT pixel (%d,%d) is not causal", at.X, at.Y)
		}
	}
	if g.USESKIP && g.SKIP == nil {
		return newError("skip bitmap is missing")
	}
	return nil
}

// useTemplate0Opt 检查是否可用模板0快速路径
// 返回: bool 是否可用
func (g *GRDProc) useTemplate0Opt() bool {
	if g.GBTEMPLATE != 0 || g.USESKIP || g.TPGDON {
		return false
	}
	for i, at := range kDefaultGBAT {
		if g.GBAT[i] != at {
			return false
		}
	}
	return true
}

// decodeTemplate0Opt 模板0默认 AT 像素的快速路径, 上下文仅由行移位得到
// 入参: ctx 解码上下文
// 返回: *Bitmap 位图, error 错误信息
func (g *GRDProc) decodeTemplate0Opt(ctx *DecodingContext) (*Bitmap, error) {
	bm, err := NewBitmap(g.GBW, g.GBH)
	if err != nil {
		return nil, err
	}
	decoder := ctx.Decoder()
	contexts := ctx.ContextCache().GetContexts("GB")
	width := g.GBW
	// 01111 0111111 0111
	const oldPixelMask = 0x7bf7
	at := func(row []byte, x int) int {
		if x < width {
			return int(row[x])
		}
		return 0
	}
	for i := 0; i < g.GBH; i++ {
		row := bm.Rows[i]
		row1, row2 := row, row
		if i >= 1 {
			row1 = bm.Rows[i-1]
		}
		if i >= 2 {
			row2 = bm.Rows[i-2]
		}
		contextLabel := at(row2, 0)<<13 | at(row2, 1)<<12 | at(row2, 2)<<11 |
			at(row1, 0)<<7 | at(row1, 1)<<6 | at(row1, 2)<<5 | at(row1, 3)<<4
		for j := 0; j < width; j++ {
			pixel := decoder.Decode(&contexts[contextLabel])
			row[j] = byte(pixel)
			contextLabel = (contextLabel&oldPixelMask)<<1 | at(row2, j+3)<<11 | at(row1, j+4)<<4 | pixel
		}
	}
	return bm, nil
}

// decodeTemplateUnopt 通用模板路径: 模板按 (行, 列) 排序, 相邻像素间复用上下文位
// 入参: ctx 解码上下文
// 返回: *Bitmap 位图, error 错误信息
func (g *GRDProc) decodeTemplateUnopt(ctx *DecodingContext) (*Bitmap, error) {
	bm, err := NewBitmap(g.GBW, g.GBH)
	if err != nil {
		return nil, err
	}
	template := append(append([]Point(nil), kCodingTemplates[g.GBTEMPLATE]...), g.GBAT...)
	sort.SliceStable(template, func(a, b int) bool {
		if template[a].Y != template[b].Y {
			return template[a].Y < template[b].Y
		}
		return template[a].X < template[b].X
	})
	n := len(template)
	var changing []int
	reuseMask, minX, maxX, minY := 0, 0, 0, 0
	for k, p := range template {
		minX = min(minX, p.X)
		maxX = max(maxX, p.X)
		minY = min(minY, p.Y)
		if k < n-1 && p.Y == template[k+1].Y && p.X == template[k+1].X-1 {
			reuseMask |= 1 << uint(n-1-k)
		} else {
			changing = append(changing, k)
		}
	}
	sbbLeft, sbbTop, sbbRight := -minX, -minY, g.GBW-maxX
	pseudoPixelContext := kReusedContexts[g.GBTEMPLATE]
	decoder := ctx.Decoder()
	contexts := ctx.ContextCache().GetContexts("GB")
	ltp := 0
	for i := 0; i < g.GBH; i++ {
		row := bm.Rows[i]
		if g.TPGDON {
			ltp ^= decoder.Decode(&contexts[pseudoPixelContext])
			if ltp != 0 {
				if i > 0 {
					copy(row, bm.Rows[i-1])
				}
				continue
			}
		}
		contextLabel := 0
		reusable := false
		for j := 0; j < g.GBW; j++ {
			if g.USESKIP && g.SKIP.GetPixel(j, i) != 0 {
				row[j] = 0
				reusable = false
				continue
			}
			if reusable && j >= sbbLeft && j < sbbRight && i >= sbbTop {
				contextLabel = (contextLabel << 1) & reuseMask
				for _, k := range changing {
					if bm.Rows[i+template[k].Y][j+template[k].X] != 0 {
						contextLabel |= 1 << uint(n-1-k)
					}
				}
			} else {
				contextLabel = 0
				for k, p := range template {
					contextLabel |= int(bm.GetPixel(j+p.X, i+p.Y)) << uint(n-1-k)
				}
			}
			row[j] = byte(decoder.Decode(&contexts[contextLabel]))
			reusable = true
		}
	}
	return bm, nil
}
