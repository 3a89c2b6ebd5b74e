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

// Package logging 分级日志
package logging

import (
	"fmt"
	"log"
	"sync/atomic"
)

// 日志级别
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

var levels = []string{LevelDebug, LevelInfo, LevelWarn, LevelError}

var currentLevel atomic.Int32

func init() {
	currentLevel.Store(int32(levelIndex(LevelInfo)))
}

// SetLevel 设置全局日志级别, 未知级别按 info 处理
// 入参: level 级别名称
func SetLevel(level string) {
	idx := levelIndex(level)
	if idx < 0 {
		idx = levelIndex(LevelInfo)
	}
	currentLevel.Store(int32(idx))
}

// Level 获取当前日志级别
// 返回: string 级别名称
func Level() string {
	return levels[currentLevel.Load()]
}

// Debug 输出调试日志
func Debug(format string, args ...any) {
	if shouldLog(LevelDebug) {
		log.Printf("[DEBUG] "+format, args...)
	}
}

// Info 输出信息到标准输出
func Info(format string, args ...any) {
	if shouldLog(LevelInfo) {
		fmt.Printf(format+"\n", args...)
	}
}

// Warn 输出警告日志
func Warn(format string, args ...any) {
	if shouldLog(LevelWarn) {
		log.Printf("[WARN] "+format, args...)
	}
}

// Error 输出错误日志
func Error(format string, args ...any) {
	if shouldLog(LevelError) {
		log.Printf("[ERROR] "+format, args...)
	}
}

func shouldLog(level string) bool {
	return levelIndex(level) >= int(currentLevel.Load())
}

func levelIndex(level string) int {
	for i, l := range levels {
		if l == level {
			return i
		}
	}
	return -1
}
