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

// SymbolDict 符号字典段的解码产物, 只读
type SymbolDict struct {
	Symbols []*Bitmap
}

// NewSymbolDict 创建符号字典对象
// 入参: symbols 导出符号
// 返回: *SymbolDict 符号字典对象
func NewSymbolDict(symbols []*Bitmap) *SymbolDict {
	return &SymbolDict{Symbols: symbols}
}

// NumImages 获取字典中的符号数量
// 返回: int 符号数量
func (s *SymbolDict) NumImages() int {
	return len(s.Symbols)
}

// GetImage 从字典获取符号
// 入参: index 索引
// 返回: *Bitmap 符号位图
func (s *SymbolDict) GetImage(index int) *Bitmap {
	if index < 0 || index >= len(s.Symbols) {
		return nil
	}
	return s.Symbols[index]
}
