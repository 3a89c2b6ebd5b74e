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

package main

import (
	"encoding/json"
	"os"
)

// Config 命令行默认配置, 来自可选的 config.json
type Config struct {
	Format    string `json:"format"`
	LogLevel  string `json:"log_level"`
	MaxPixels int64  `json:"max_pixels"`
}

// LoadConfig 读取配置文件, 文件不存在时返回空配置
// 入参: path 配置文件路径
// 返回: *Config 配置, error 错误信息
func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return &Config{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()
	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
