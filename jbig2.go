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

// Package jbig2 纯 Go 语言的 JBIG2 (ITU-T T.88) 解码器
package jbig2

import (
	"bytes"
	"image"
	"image/color"
	"io"

	"github.com/xiaoqidun/jbig2dec/internal/logging"
)

// fileMagic 文件头标识
var fileMagic = []byte{0x97, 'J', 'B', '2', 0x0D, 0x0A, 0x1A, 0x0A}

// Page 解码得到的页面, 每行按字节对齐打包, 高位在前, 1 为黑
type Page struct {
	Width       int
	Height      int
	HeightKnown bool
	Data        []byte
}

// Stride 获取每行字节数
// 返回: int 跨度
func (p *Page) Stride() int {
	return (p.Width + 7) / 8
}

// GetPixel 获取像素值, 越界时为 0
// 入参: x 轴坐标, y 轴坐标
// 返回: int 像素值
func (p *Page) GetPixel(x, y int) int {
	if x < 0 || y < 0 || x >= p.Width || y >= p.Height {
		return 0
	}
	return int(p.Data[y*p.Stride()+x>>3]>>uint(7-(x&7))) & 1
}

// ToGoImage 转换为Go标准库Image
// 返回: image.Image 图像
func (p *Page) ToGoImage() image.Image {
	img := image.NewGray(image.Rect(0, 0, p.Width, p.Height))
	for y := 0; y < p.Height; y++ {
		for x := 0; x < p.Width; x++ {
			if p.GetPixel(x, y) != 0 {
				img.SetGray(x, y, color.Gray{Y: 0})
			} else {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return img
}

// Chunk 不带文件头的段流片段, 如 PDF 中的 JBIG2Globals 与图像流
type Chunk struct {
	Data  []byte
	Start int
	End   int
}

// Options 解码选项
// Globals 为全局段流, 先于页面数据处理; MaxPixels 为页面与区域的像素上限, 0 表示 DefaultMaxPixels
type Options struct {
	Globals   []byte
	MaxPixels int64
}

// fileHeader 文件头
type fileHeader struct {
	randomAccess  bool
	numberOfPages uint32
	pagesKnown    bool
	dataStart     int
}

// hasFileHeader 检查数据是否以文件头标识开始
func hasFileHeader(data []byte) bool {
	return bytes.HasPrefix(data, fileMagic)
}

// parseFileHeader 解析文件头 (D.4)
// 入参: data 数据
// 返回: fileHeader 文件头, error 错误信息
func parseFileHeader(data []byte) (fileHeader, error) {
	if !hasFileHeader(data) || len(data) < len(fileMagic)+1 {
		return fileHeader{}, newError("invalid file header")
	}
	pos := len(fileMagic)
	flags := data[pos]
	pos++
	h := fileHeader{randomAccess: flags&1 == 0}
	if flags&2 == 0 {
		if pos+4 > len(data) {
			return fileHeader{}, newError("invalid file header")
		}
		h.numberOfPages = readUint32(data, pos)
		h.pagesKnown = true
		pos += 4
	}
	h.dataStart = pos
	return h, nil
}

// decodeChunks 处理全部片段并返回页面
func decodeChunks(chunks []Chunk, opts Options) ([]*Page, error) {
	doc := NewDocument(opts.MaxPixels)
	if len(opts.Globals) > 0 {
		chunks = append([]Chunk{{Data: opts.Globals, Start: 0, End: len(opts.Globals)}}, chunks...)
	}
	for _, c := range chunks {
		segments, err := ReadSegments(c.Data, c.Start, c.End, false)
		if err != nil {
			return nil, err
		}
		if err := doc.ProcessSegments(segments); err != nil {
			return nil, err
		}
	}
	return doc.Pages(), nil
}

// decodeData 解码完整文件或不带文件头的段流
func decodeData(data []byte, opts Options) ([]*Page, error) {
	if !hasFileHeader(data) {
		return decodeChunks([]Chunk{{Data: data, Start: 0, End: len(data)}}, opts)
	}
	header, err := parseFileHeader(data)
	if err != nil {
		return nil, err
	}
	doc := NewDocument(opts.MaxPixels)
	if len(opts.Globals) > 0 {
		globals, err := ReadSegments(opts.Globals, 0, len(opts.Globals), false)
		if err != nil {
			return nil, err
		}
		if err := doc.ProcessSegments(globals); err != nil {
			return nil, err
		}
	}
	segments, err := ReadSegments(data, header.dataStart, len(data), header.randomAccess)
	if err != nil {
		return nil, err
	}
	if err := doc.ProcessSegments(segments); err != nil {
		return nil, err
	}
	pages := doc.Pages()
	if header.pagesKnown && int(header.numberOfPages) != len(pages) {
		logging.Warn("jbig2: file header declares %d pages, decoded %d", header.numberOfPages, len(pages))
	}
	return pages, nil
}

// firstPage 返回第一页
func firstPage(pages []*Page, err error) (*Page, error) {
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, newError("no page information found")
	}
	return pages[0], nil
}

// ParseFile 解码完整 JBIG2 文件的第一页
// 入参: data 文件数据
// 返回: *Page 页面, error 错误信息
func ParseFile(data []byte) (*Page, error) {
	if _, err := parseFileHeader(data); err != nil {
		return nil, err
	}
	return firstPage(decodeData(data, Options{}))
}

// ParseChunks 解码若干不带文件头的段流片段, 返回第一页
// 入参: chunks 片段
// 返回: *Page 页面, error 错误信息
func ParseChunks(chunks []Chunk) (*Page, error) {
	return firstPage(decodeChunks(chunks, Options{}))
}

// Decoder JBIG2解码器
type Decoder struct {
	pages []*Page
	next  int
}

// NewDecoder 创建解码器
// 入参: r 读取器
// 返回: *Decoder 解码器, error 错误信息
func NewDecoder(r io.Reader) (*Decoder, error) {
	return NewDecoderWithOptions(r, Options{})
}

// NewDecoderWithGlobals 创建带全局段的解码器
// 入参: r 读取器, globals 全局数据
// 返回: *Decoder 解码器, error 错误信息
func NewDecoderWithGlobals(r io.Reader, globals []byte) (*Decoder, error) {
	return NewDecoderWithOptions(r, Options{Globals: globals})
}

// NewDecoderWithOptions 按选项创建解码器, 数据在创建时完整解码
// 入参: r 读取器, opts 选项
// 返回: *Decoder 解码器, error 错误信息
func NewDecoderWithOptions(r io.Reader, opts Options) (*Decoder, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, wrapError(err, "read input")
	}
	pages, err := decodeData(data, opts)
	if err != nil {
		return nil, err
	}
	return &Decoder{pages: pages}, nil
}

// Pages 获取全部页面
// 返回: []*Page 页面列表
func (d *Decoder) Pages() []*Page {
	return d.pages
}

// Decode 解码下一页, 没有更多页面时返回 io.EOF
// 返回: image.Image 图像, error 错误信息
func (d *Decoder) Decode() (image.Image, error) {
	if d.next >= len(d.pages) {
		return nil, io.EOF
	}
	p := d.pages[d.next]
	d.next++
	return p.ToGoImage(), nil
}

// DecodeAll 解码所有剩余页面
// 返回: []image.Image 图像列表, error 错误信息
func (d *Decoder) DecodeAll() ([]image.Image, error) {
	var images []image.Image
	for {
		img, err := d.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return images, err
		}
		images = append(images, img)
	}
	return images, nil
}

// Decode 解码JBIG2数据包含的第一页
// 入参: r 读取器
// 返回: image.Image 图像, error 错误信息
func Decode(r io.Reader) (image.Image, error) {
	dec, err := NewDecoder(r)
	if err != nil {
		return nil, err
	}
	img, err := dec.Decode()
	if err == io.EOF {
		return nil, newError("no page information found")
	}
	return img, err
}

// DecodeConfig 获取JBIG2图像配置, 页面高度已知时无需解码区域
// 入参: r 读取器
// 返回: image.Config 图像配置, error 错误信息
func DecodeConfig(r io.Reader) (image.Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return image.Config{}, wrapError(err, "read input")
	}
	start, randomAccess := 0, false
	if hasFileHeader(data) {
		header, err := parseFileHeader(data)
		if err != nil {
			return image.Config{}, err
		}
		start, randomAccess = header.dataStart, header.randomAccess
	}
	segments, err := ReadSegments(data, start, len(data), randomAccess)
	if err != nil {
		return image.Config{}, err
	}
	for _, seg := range segments {
		if seg.Header.Type != SegmentPageInformation || seg.End-seg.Start < 8 {
			continue
		}
		width := readUint32(seg.Data, seg.Start)
		height := readUint32(seg.Data, seg.Start+4)
		if height != 0xFFFFFFFF {
			return image.Config{ColorModel: color.GrayModel, Width: int(width), Height: int(height)}, nil
		}
		break
	}
	p, err := firstPage(decodeData(data, Options{}))
	if err != nil {
		return image.Config{}, err
	}
	return image.Config{ColorModel: color.GrayModel, Width: p.Width, Height: p.Height}, nil
}

func init() {
	image.RegisterFormat("jbig2", string(fileMagic), Decode, DecodeConfig)
}
