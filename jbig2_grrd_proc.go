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

// refinementTemplate 细化模板: 当前位图部分与参考位图部分
type refinementTemplate struct {
	coding    []Point
	reference []Point
}

var (
	// kRefinementTemplates 两种细化模板的固定像素, 不含 AT 像素
	kRefinementTemplates = [2]refinementTemplate{
		{
			coding:    []Point{{0, -1}, {1, -1}, {-1, 0}},
			reference: []Point{{0, -1}, {1, -1}, {-1, 0}, {0, 0}, {1, 0}, {-1, 1}, {0, 1}, {1, 1}},
		},
		{
			coding:    []Point{{-1, -1}, {0, -1}, {1, -1}, {-1, 0}},
			reference: []Point{{0, -1}, {-1, 0}, {0, 0}, {1, 0}, {0, 1}, {1, 1}},
		},
	}
	// kRefinementReusedContexts TPGRON 伪像素上下文
	kRefinementReusedContexts = [2]int{0x0020, 0x0008}
	// kDefaultGRAT 模板0的默认 AT 像素: 当前位图一个, 参考位图一个
	kDefaultGRAT = []Point{{-1, -1}, {-1, -1}}
)

// GRRDProc 通用细化区域解码过程
type GRRDProc struct {
	GRW           int
	GRH           int
	GRTEMPLATE    int
	GRREFERENCE   *Bitmap
	GRREFERENCEDX int
	GRREFERENCEDY int
	TPGRON        bool
	GRAT          []Point
}

// NewGRRDProc 创建通用细化区域解码过程对象
// 返回: *GRRDProc 对象
func NewGRRDProc() *GRRDProc {
	return &GRRDProc{}
}

// DefaultGRAT 获取默认细化 AT 像素
// 返回: []Point AT 像素
func DefaultGRAT() []Point {
	return append([]Point(nil), kDefaultGRAT...)
}

// Decode 解码细化区域, 参考像素取自 (行-GRREFERENCEDY, 列-GRREFERENCEDX)
// 入参: ctx 解码上下文
// 返回: *Bitmap 位图, error 错误信息
func (g *GRRDProc) Decode(ctx *DecodingContext) (*Bitmap, error) {
	if g.GRTEMPLATE != 0 && g.GRTEMPLATE != 1 {
		return nil, newError("invalid refinement template %d", g.GRTEMPLATE)
	}
	if g.GRREFERENCE == nil {
		return nil, newError("refinement reference bitmap is missing")
	}
	tpl := kRefinementTemplates[g.GRTEMPLATE]
	coding := tpl.coding
	reference := tpl.reference
	if g.GRTEMPLATE == 0 {
		if len(g.GRAT) != 2 {
			return nil, newError("refinement template 0 needs 2 AT pixels, got %d", len(g.GRAT))
		}
		if g.GRAT[0].Y > 0 || (g.GRAT[0].Y == 0 && g.GRAT[0].X >= 0) {
			return nil, newError("refinement AT pixel (%d,%d) is not causal", g.GRAT[0].X, g.GRAT[0].Y)
		}
		coding = append(append([]Point(nil), coding...), g.GRAT[0])
		reference = append(append([]Point(nil), reference...), g.GRAT[1])
	}
	bm, err := NewBitmap(g.GRW, g.GRH)
	if err != nil {
		return nil, err
	}
	ref := g.GRREFERENCE
	decoder := ctx.Decoder()
	contexts := ctx.ContextCache().GetContexts("GR")
	pseudoPixelContext := kRefinementReusedContexts[g.GRTEMPLATE]
	ltp := 0
	for i := 0; i < g.GRH; i++ {
		if g.TPGRON {
			ltp ^= decoder.Decode(&contexts[pseudoPixelContext])
			if ltp != 0 {
				return nil, newError("refinement prediction (TPGRON) is not supported")
			}
		}
		row := bm.Rows[i]
		for j := 0; j < g.GRW; j++ {
			contextLabel := 0
			for _, p := range coding {
				contextLabel = contextLabel<<1 | int(bm.GetPixel(j+p.X, i+p.Y))
			}
			for _, p := range reference {
				contextLabel = contextLabel<<1 | int(ref.GetPixel(j+p.X-g.GRREFERENCEDX, i+p.Y-g.GRREFERENCEDY))
			}
			row[j] = byte(decoder.Decode(&contexts[contextLabel]))
		}
	}
	return bm, nil
}
