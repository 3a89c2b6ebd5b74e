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

// PDDProc 模式字典解码过程
type PDDProc struct {
	HDMMR      bool
	HDPW       int
	HDPH       int
	GRAYMAX    int
	HDTEMPLATE int
}

// NewPDDProc 创建模式字典解码过程对象
// 返回: *PDDProc 对象
func NewPDDProc() *PDDProc {
	return &PDDProc{}
}

// createGRDProc 创建集合位图的通用区域解码过程
// 返回: *GRDProc 对象, error 错误信息
func (p *PDDProc) createGRDProc() (*GRDProc, error) {
	if p.HDPW <= 0 || p.HDPH <= 0 || p.GRAYMAX < 0 {
		return nil, newError("invalid pattern size %dx%d", p.HDPW, p.HDPH)
	}
	width := int64(p.GRAYMAX+1) * int64(p.HDPW)
	if width > JBig2MaxImageSize || p.HDPH > JBig2MaxImageSize {
		return nil, newError("collective pattern bitmap %dx%d is too large", width, p.HDPH)
	}
	grd := NewGRDProc()
	grd.MMR = p.HDMMR
	grd.GBW = int(width)
	grd.GBH = p.HDPH
	grd.GBTEMPLATE = p.HDTEMPLATE
	grd.GBAT = []Point{{-p.HDPW, 0}}
	if p.HDTEMPLATE == 0 {
		grd.GBAT = append(grd.GBAT, Point{-3, -1}, Point{2, -2}, Point{-2, -2})
	}
	return grd, nil
}

// Decode 解码模式字典: 解码集合位图后按 HDPW 切分
// 入参: ctx 解码上下文
// 返回: *PatternDict 模式字典对象, error 错误信息
func (p *PDDProc) Decode(ctx *DecodingContext) (*PatternDict, error) {
	grd, err := p.createGRDProc()
	if err != nil {
		return nil, err
	}
	collective, err := grd.Decode(ctx)
	if err != nil {
		return nil, err
	}
	patterns := make([]*Bitmap, p.GRAYMAX+1)
	for gray := range patterns {
		patterns[gray] = collective.SubColumns(gray*p.HDPW, p.HDPW)
	}
	return NewPatternDict(patterns), nil
}
