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

import "fmt"

// Error JBIG2 解码错误, 所有致命错误均为此类型
type Error struct {
	Msg string
	Err error
}

// Error 实现 error 接口
// 返回: string 错误信息
func (e *Error) Error() string {
	return "JBIG2 error: " + e.Msg
}

// Unwrap 返回被包装的底层错误
// 返回: error 底层错误
func (e *Error) Unwrap() error {
	return e.Err
}

// newError 创建解码错误
// 入参: format 格式, args 参数
// 返回: error 错误信息
func newError(format string, args ...any) error {
	return &Error{Msg: fmt.Sprintf(format, args...)}
}

// wrapError 包装外部错误
// 入参: err 底层错误, format 格式, args 参数
// 返回: error 错误信息
func wrapError(err error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	return &Error{Msg: msg + ": " + err.Error(), Err: err}
}
