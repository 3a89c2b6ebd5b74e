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

// PatternDict 模式字典段的解码产物, 只读
type PatternDict struct {
	Patterns []*Bitmap
}

// NewPatternDict 创建模式字典对象
// 入参: patterns 模式位图
// 返回: *PatternDict 模式字典对象
func NewPatternDict(patterns []*Bitmap) *PatternDict {
	return &PatternDict{Patterns: patterns}
}

// NumPatterns 获取模式数量
func (p *PatternDict) NumPatterns() int {
	return len(p.Patterns)
}
