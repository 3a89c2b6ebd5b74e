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

// jbig2png 将 JBIG2 文件或 PDF 中提取的 JBIG2 流转换为 PNG, TIFF 或 BMP
package main

import (
	"bytes"
	"flag"
	"fmt"
	"image"
	"image/png"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	jbig2 "github.com/xiaoqidun/jbig2dec"
	"github.com/xiaoqidun/jbig2dec/internal/logging"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// zstdMagic zstd 帧标识
var zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}

func main() {
	input := flag.String("input", "", "Input JBIG2 file, optionally zstd compressed")
	global := flag.String("global", "", "Optional JBIG2 globals stream extracted from PDF")
	output := flag.String("output", "", "Output file (defaults to input filename with the format extension)")
	format := flag.String("format", "", "Output format: png, tiff, bmp")
	logLevel := flag.String("log-level", "", "logging level: debug, info, warn, error")
	configPath := flag.String("config", "config.json", "Optional JSON config file")
	flag.Parse()

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logging.SetLevel(firstNonEmpty(*logLevel, cfg.LogLevel, logging.LevelInfo))
	outFormat := strings.ToLower(firstNonEmpty(*format, cfg.Format, "png"))
	if *input == "" {
		log.Fatal("Input file is required. Use -input flag.")
	}

	data, err := readInput(*input)
	if err != nil {
		log.Fatalf("Failed to read input file: %v", err)
	}
	var globals []byte
	if *global != "" {
		if globals, err = readInput(*global); err != nil {
			log.Fatalf("Failed to read global data file: %v", err)
		}
	}

	dec, err := jbig2.NewDecoderWithOptions(bytes.NewReader(data), jbig2.Options{Globals: globals, MaxPixels: cfg.MaxPixels})
	if err != nil {
		log.Fatalf("Failed to decode JBIG2: %v", err)
	}
	images, err := dec.DecodeAll()
	if err != nil {
		log.Fatalf("Failed to decode JBIG2: %v", err)
	}
	if len(images) == 0 {
		log.Fatal("No pages found in JBIG2 file")
	}

	out := *output
	if out == "" {
		base := strings.TrimSuffix(*input, ".zst")
		out = strings.TrimSuffix(base, filepath.Ext(base)) + "." + outFormat
	}
	for i, img := range images {
		name := out
		if len(images) > 1 {
			ext := filepath.Ext(out)
			name = fmt.Sprintf("%s-%d%s", strings.TrimSuffix(out, ext), i+1, ext)
		}
		if err := writeImage(name, img, outFormat); err != nil {
			log.Fatalf("Failed to write %s: %v", name, err)
		}
		b := img.Bounds()
		logging.Info("Wrote page %d (%dx%d) to %s", i+1, b.Dx(), b.Dy(), name)
	}
}

// firstNonEmpty 返回第一个非空字符串
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// readInput 读取文件, zstd 压缩的数据先解压
// 入参: path 文件路径
// 返回: []byte 数据, error 错误信息
func readInput(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return maybeDecompress(data)
}

// maybeDecompress 数据以 zstd 帧标识开头时解压
func maybeDecompress(data []byte) ([]byte, error) {
	if !bytes.HasPrefix(data, zstdMagic) {
		return data, nil
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	logging.Debug("input is zstd compressed (%d bytes)", len(data))
	return dec.DecodeAll(data, nil)
}

// writeImage 按格式写出图像
func writeImage(path string, img image.Image, format string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := encodeImage(f, img, format); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// encodeImage 按格式编码图像
func encodeImage(w io.Writer, img image.Image, format string) error {
	switch format {
	case "png":
		return png.Encode(w, img)
	case "tiff", "tif":
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	case "bmp":
		return bmp.Encode(w, img)
	}
	return fmt.Errorf("unknown output format %q", format)
}
