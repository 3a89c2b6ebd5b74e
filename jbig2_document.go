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

import (
	"math"

	"github.com/xiaoqidun/jbig2dec/internal/logging"
)

// PageInfo 页面信息段
type PageInfo struct {
	Width         int
	Height        int
	HeightUnknown bool
	ResolutionX   uint32
	ResolutionY   uint32
	DefaultPixel  bool
	ComposeOp     ComposeOp
	Override      bool
	IsStriped     bool
	MaxStripeSize int
}

// pageState 正在合成的页面
type pageState struct {
	info        PageInfo
	image       *Image
	heightKnown bool
}

// segmentHandler 段处理函数
type segmentHandler func(d *Document, seg *Segment) error

// segmentHandlers 按段类型分派, 表中没有的类型为未实现
var segmentHandlers = map[SegmentType]segmentHandler{
	SegmentSymbolDictionary:                  (*Document).parseSymbolDict,
	SegmentIntermediateTextRegion:            (*Document).parseTextRegion,
	SegmentImmediateTextRegion:               (*Document).parseTextRegion,
	SegmentImmediateLosslessTextRegion:       (*Document).parseTextRegion,
	SegmentPatternDictionary:                 (*Document).parsePatternDict,
	SegmentIntermediateHalftoneRegion:        (*Document).parseHalftoneRegion,
	SegmentImmediateHalftoneRegion:           (*Document).parseHalftoneRegion,
	SegmentImmediateLosslessHalftoneRegion:   (*Document).parseHalftoneRegion,
	SegmentIntermediateGenericRegion:         (*Document).parseGenericRegion,
	SegmentImmediateGenericRegion:            (*Document).parseGenericRegion,
	SegmentImmediateLosslessGenericRegion:    (*Document).parseGenericRegion,
	SegmentIntermediateRefinementRegion:      (*Document).parseGenericRefinementRegion,
	SegmentImmediateRefinementRegion:         (*Document).parseGenericRefinementRegion,
	SegmentImmediateLosslessRefinementRegion: (*Document).parseGenericRefinementRegion,
	SegmentPageInformation:                   (*Document).parsePageInfo,
	SegmentEndOfPage:                         (*Document).parseEndOfPage,
	SegmentEndOfStripe:                       (*Document).parseEndOfStripe,
	SegmentEndOfFile:                         func(*Document, *Segment) error { return nil },
	SegmentTables:                            (*Document).parseTable,
	SegmentExtension:                         (*Document).parseExtension,
}

// Document 段处理上下文: 按段编号保存字典, 表与中间区域, 并合成页面
type Document struct {
	maxPixels int64
	symbols   map[uint32]*SymbolDict
	patterns  map[uint32]*PatternDict
	tables    map[uint32]*HuffmanTable
	regions   map[uint32]*Bitmap
	page      *pageState
	pages     []*Page
}

// NewDocument 创建文档对象
// 入参: maxPixels 页面与区域的像素上限, 非正数时使用默认值
// 返回: *Document 文档对象
func NewDocument(maxPixels int64) *Document {
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	return &Document{
		maxPixels: maxPixels,
		symbols:   make(map[uint32]*SymbolDict),
		patterns:  make(map[uint32]*PatternDict),
		tables:    make(map[uint32]*HuffmanTable),
		regions:   make(map[uint32]*Bitmap),
	}
}

// ProcessSegments 依次处理段, 任一段失败即中止
// 入参: segments 段列表
// 返回: error 错误信息
func (d *Document) ProcessSegments(segments []*Segment) error {
	for _, seg := range segments {
		if err := d.processSegment(seg); err != nil {
			return err
		}
	}
	return nil
}

// processSegment 分派单个段
func (d *Document) processSegment(seg *Segment) error {
	h := &seg.Header
	logging.Debug("jbig2: segment %d type %s length %d refers to %v", h.Number, h.Type, seg.End-seg.Start, h.ReferredTo)
	handler, ok := segmentHandlers[h.Type]
	if !ok {
		return newError("unimplemented segment type %d (%s)", h.Type, h.Type)
	}
	return handler(d, seg)
}

// Pages 结束当前页面并返回全部已合成页面
// 返回: []*Page 页面列表
func (d *Document) Pages() []*Page {
	d.finishPage()
	return d.pages
}

// finishPage 输出当前页面
func (d *Document) finishPage() {
	if d.page == nil {
		return
	}
	img := d.page.image
	d.pages = append(d.pages, &Page{
		Width:       img.Width(),
		Height:      img.Height(),
		HeightKnown: d.page.heightKnown,
		Data:        img.Data(),
	})
	d.page = nil
}

// readRegionInfo 读取 17 字节区域段信息
// 入参: seg 段, pos 偏移
// 返回: RegionInfo 区域信息, error 错误信息
func (d *Document) readRegionInfo(seg *Segment, pos int) (RegionInfo, error) {
	if pos+RegionSegmentInfoLength > seg.End {
		return RegionInfo{}, newError("segment %d is too short for region information", seg.Header.Number)
	}
	ri := RegionInfo{
		Width:  int(readUint32(seg.Data, pos)),
		Height: int(readUint32(seg.Data, pos+4)),
		X:      int(readUint32(seg.Data, pos+8)),
		Y:      int(readUint32(seg.Data, pos+12)),
		Flags:  seg.Data[pos+16],
	}
	if int64(ri.Width)*int64(ri.Height) > d.maxPixels {
		return RegionInfo{}, newError("region %dx%d exceeds the pixel limit", ri.Width, ri.Height)
	}
	return ri, nil
}

// segmentStream 段数据中 [pos, End) 的位流
func segmentStream(seg *Segment, pos int) *BitStream {
	return NewBitStream(seg.Data, pos, seg.End)
}

// need 检查段数据至少还有 n 字节
func need(seg *Segment, pos, n int) error {
	if pos+n > seg.End {
		return newError("segment %d (%s) is truncated", seg.Header.Number, seg.Header.Type)
	}
	return nil
}

// readATPixels 读取 n 个 AT 像素, 每个为两个有符号字节
func readATPixels(seg *Segment, pos, n int) ([]Point, int, error) {
	if err := need(seg, pos, 2*n); err != nil {
		return nil, pos, err
	}
	at := make([]Point, n)
	for i := range at {
		at[i] = Point{X: int(int8(seg.Data[pos])), Y: int(int8(seg.Data[pos+1]))}
		pos += 2
	}
	return at, pos, nil
}

// referredSymbols 拼接被引用符号字典的导出符号, 跳过其他类型
func (d *Document) referredSymbols(h *SegmentHeader) []*Bitmap {
	var syms []*Bitmap
	for _, n := range h.ReferredTo {
		if sd, ok := d.symbols[n]; ok {
			syms = append(syms, sd.Symbols...)
		}
	}
	return syms
}

// referredPatterns 拼接被引用模式字典的模式
func (d *Document) referredPatterns(h *SegmentHeader) []*Bitmap {
	var pats []*Bitmap
	for _, n := range h.ReferredTo {
		if pd, ok := d.patterns[n]; ok {
			pats = append(pats, pd.Patterns...)
		}
	}
	return pats
}

// referredTables 按引用顺序收集自定义霍夫曼表
func (d *Document) referredTables(h *SegmentHeader) []*HuffmanTable {
	var tables []*HuffmanTable
	for _, n := range h.ReferredTo {
		if t, ok := d.tables[n]; ok {
			tables = append(tables, t)
		}
	}
	return tables
}

// tableSelector 按选择码取标准表或依次取自定义表
type tableSelector struct {
	custom []*HuffmanTable
	used   int
}

// choose 选择霍夫曼表
// 入参: name 用途, selector 选择码, customCode 自定义表的选择码, standard 各选择码对应的标准表号
// 返回: *HuffmanTable 霍夫曼表, error 错误信息
func (s *tableSelector) choose(name string, selector, customCode int, standard ...int) (*HuffmanTable, error) {
	if selector == customCode {
		if s.used >= len(s.custom) {
			return nil, newError("custom Huffman table for %s is missing", name)
		}
		t := s.custom[s.used]
		s.used++
		return t, nil
	}
	if selector < len(standard) {
		return StandardTable(standard[selector])
	}
	return nil, newError("invalid Huffman table selector %d for %s", selector, name)
}

// parseSymbolDict 符号字典段 (7.4.2)
func (d *Document) parseSymbolDict(seg *Segment) error {
	pos := seg.Start
	if err := need(seg, pos, 2); err != nil {
		return err
	}
	flags := int(readUint16(seg.Data, pos))
	pos += 2
	sdd := NewSDDProc()
	sdd.SDHUFF = flags&1 != 0
	sdd.SDREFAGG = flags&2 != 0
	sdd.SDTEMPLATE = (flags >> 10) & 3
	sdd.SDRTEMPLATE = (flags >> 12) & 1
	var err error
	if !sdd.SDHUFF {
		n := 1
		if sdd.SDTEMPLATE == 0 {
			n = 4
		}
		if sdd.SDAT, pos, err = readATPixels(seg, pos, n); err != nil {
			return err
		}
	}
	if sdd.SDREFAGG && sdd.SDRTEMPLATE == 0 {
		if sdd.SDRAT, pos, err = readATPixels(seg, pos, 2); err != nil {
			return err
		}
	}
	if err := need(seg, pos, 8); err != nil {
		return err
	}
	sdd.SDNUMEXSYMS = int(readUint32(seg.Data, pos))
	sdd.SDNUMNEWSYMS = int(readUint32(seg.Data, pos+4))
	pos += 8
	sdd.SDINSYMS = d.referredSymbols(&seg.Header)
	var stream *BitStream
	if sdd.SDHUFF {
		sel := &tableSelector{custom: d.referredTables(&seg.Header)}
		if sdd.SDHUFFDH, err = sel.choose("symbol height", (flags>>2)&3, 3, 4, 5); err != nil {
			return err
		}
		if sdd.SDHUFFDW, err = sel.choose("symbol width", (flags>>4)&3, 3, 2, 3); err != nil {
			return err
		}
		if sdd.SDHUFFBMSIZE, err = sel.choose("collective bitmap size", (flags>>6)&1, 1, 1); err != nil {
			return err
		}
		if sdd.SDHUFFAGGINST, err = sel.choose("aggregate instances", (flags>>7)&1, 1, 1); err != nil {
			return err
		}
		stream = segmentStream(seg, pos)
	}
	symbols, err := sdd.Decode(NewDecodingContext(seg.Data, pos, seg.End), stream)
	if err != nil {
		return err
	}
	d.symbols[seg.Header.Number] = NewSymbolDict(symbols)
	return nil
}

// parseTextRegion 文本区域段 (7.4.3)
func (d *Document) parseTextRegion(seg *Segment) error {
	ri, err := d.readRegionInfo(seg, seg.Start)
	if err != nil {
		return err
	}
	pos := seg.Start + RegionSegmentInfoLength
	if err := need(seg, pos, 2); err != nil {
		return err
	}
	flags := int(readUint16(seg.Data, pos))
	pos += 2
	trd := NewTRDProc()
	trd.SBHUFF = flags&1 != 0
	trd.SBREFINE = flags&2 != 0
	trd.LOGSBSTRIPS = (flags >> 2) & 3
	trd.SBSTRIPS = 1 << uint(trd.LOGSBSTRIPS)
	trd.REFCORNER = Corner((flags >> 4) & 3)
	trd.TRANSPOSED = flags&0x40 != 0
	trd.SBCOMBOP = ComposeOp((flags >> 7) & 3)
	trd.SBDEFPIXEL = flags&0x200 != 0
	trd.SBDSOFFSET = int(int16(uint16(flags)<<1) >> 11)
	trd.SBRTEMPLATE = (flags >> 15) & 1
	trd.SBW = ri.Width
	trd.SBH = ri.Height
	huffFlags := 0
	if trd.SBHUFF {
		if err := need(seg, pos, 2); err != nil {
			return err
		}
		huffFlags = int(readUint16(seg.Data, pos))
		pos += 2
	}
	if trd.SBREFINE && trd.SBRTEMPLATE == 0 {
		if trd.SBRAT, pos, err = readATPixels(seg, pos, 2); err != nil {
			return err
		}
	}
	if err := need(seg, pos, 4); err != nil {
		return err
	}
	trd.SBNUMINSTANCES = int(readUint32(seg.Data, pos))
	pos += 4
	trd.SBSYMS = d.referredSymbols(&seg.Header)
	trd.SBSYMCODELEN = log2Ceil(len(trd.SBSYMS))
	var stream *BitStream
	if trd.SBHUFF {
		sel := &tableSelector{custom: d.referredTables(&seg.Header)}
		if trd.SBHUFFFS, err = sel.choose("first S", huffFlags&3, 3, 6, 7); err != nil {
			return err
		}
		if trd.SBHUFFDS, err = sel.choose("delta S", (huffFlags>>2)&3, 3, 8, 9, 10); err != nil {
			return err
		}
		if trd.SBHUFFDT, err = sel.choose("delta T", (huffFlags>>4)&3, 3, 11, 12, 13); err != nil {
			return err
		}
		stream = segmentStream(seg, pos)
		if trd.SBSYMCODES, err = DecodeSymbolIDTable(stream, len(trd.SBSYMS)); err != nil {
			return err
		}
	}
	bm, err := trd.Decode(NewDecodingContext(seg.Data, pos, seg.End), stream)
	if err != nil {
		return err
	}
	return d.placeRegion(seg, ri, bm)
}

// parsePatternDict 模式字典段 (7.4.4)
func (d *Document) parsePatternDict(seg *Segment) error {
	pos := seg.Start
	if err := need(seg, pos, 7); err != nil {
		return err
	}
	flags := seg.Data[pos]
	pdd := NewPDDProc()
	pdd.HDMMR = flags&1 != 0
	pdd.HDTEMPLATE = int(flags>>1) & 3
	pdd.HDPW = int(seg.Data[pos+1])
	pdd.HDPH = int(seg.Data[pos+2])
	grayMax := readUint32(seg.Data, pos+3)
	if int64(grayMax)+1 > d.maxPixels {
		return newError("pattern dictionary has too many patterns (%d)", grayMax)
	}
	pdd.GRAYMAX = int(grayMax)
	pos += 7
	dict, err := pdd.Decode(NewDecodingContext(seg.Data, pos, seg.End))
	if err != nil {
		return err
	}
	d.patterns[seg.Header.Number] = dict
	return nil
}

// parseHalftoneRegion 半色调区域段 (7.4.5)
func (d *Document) parseHalftoneRegion(seg *Segment) error {
	ri, err := d.readRegionInfo(seg, seg.Start)
	if err != nil {
		return err
	}
	pos := seg.Start + RegionSegmentInfoLength
	if err := need(seg, pos, 21); err != nil {
		return err
	}
	flags := seg.Data[pos]
	htrd := NewHTRDProc()
	htrd.HMMR = flags&1 != 0
	htrd.HTEMPLATE = int(flags>>1) & 3
	htrd.HENABLESKIP = flags&8 != 0
	htrd.HCOMBOP = ComposeOp((flags >> 4) & 7)
	htrd.HDEFPIXEL = flags&0x80 != 0
	gw, gh := readUint32(seg.Data, pos+1), readUint32(seg.Data, pos+5)
	if int64(gw)*int64(gh) > d.maxPixels {
		return newError("halftone grid %dx%d exceeds the pixel limit", gw, gh)
	}
	htrd.HGW, htrd.HGH = int(gw), int(gh)
	htrd.HGX = int(int32(readUint32(seg.Data, pos+9)))
	htrd.HGY = int(int32(readUint32(seg.Data, pos+13)))
	htrd.HRX = int(readUint16(seg.Data, pos+17))
	htrd.HRY = int(readUint16(seg.Data, pos+19))
	pos += 21
	htrd.HBW, htrd.HBH = ri.Width, ri.Height
	htrd.HPATS = d.referredPatterns(&seg.Header)
	bm, err := htrd.Decode(NewDecodingContext(seg.Data, pos, seg.End))
	if err != nil {
		return err
	}
	return d.placeRegion(seg, ri, bm)
}

// parseGenericRegion 通用区域段 (7.4.6)
func (d *Document) parseGenericRegion(seg *Segment) error {
	ri, err := d.readRegionInfo(seg, seg.Start)
	if err != nil {
		return err
	}
	pos := seg.Start + RegionSegmentInfoLength
	if err := need(seg, pos, 1); err != nil {
		return err
	}
	flags := seg.Data[pos]
	pos++
	grd := NewGRDProc()
	grd.MMR = flags&1 != 0
	grd.GBTEMPLATE = int(flags>>1) & 3
	grd.TPGDON = flags&8 != 0
	grd.GBW = ri.Width
	grd.GBH = ri.Height
	if !grd.MMR {
		n := 1
		if grd.GBTEMPLATE == 0 {
			n = 4
		}
		if grd.GBAT, pos, err = readATPixels(seg, pos, n); err != nil {
			return err
		}
	}
	end := seg.End
	if seg.Header.UnknownLength {
		end -= 4
		grd.EOFB = true
	}
	bm, err := grd.Decode(NewDecodingContext(seg.Data, pos, end))
	if err != nil {
		return err
	}
	return d.placeRegion(seg, ri, bm)
}

// parseGenericRefinementRegion 通用细化区域段 (7.4.7)
// 参考位图取被引用的中间区域, 无引用时取页面上的同一区域
func (d *Document) parseGenericRefinementRegion(seg *Segment) error {
	ri, err := d.readRegionInfo(seg, seg.Start)
	if err != nil {
		return err
	}
	pos := seg.Start + RegionSegmentInfoLength
	if err := need(seg, pos, 1); err != nil {
		return err
	}
	flags := seg.Data[pos]
	pos++
	grrd := NewGRRDProc()
	grrd.GRTEMPLATE = int(flags & 1)
	grrd.TPGRON = flags&2 != 0
	grrd.GRW = ri.Width
	grrd.GRH = ri.Height
	if grrd.GRTEMPLATE == 0 {
		if grrd.GRAT, pos, err = readATPixels(seg, pos, 2); err != nil {
			return err
		}
	}
	for _, n := range seg.Header.ReferredTo {
		if bm, ok := d.regions[n]; ok {
			grrd.GRREFERENCE = bm
			delete(d.regions, n)
			break
		}
	}
	if grrd.GRREFERENCE == nil {
		if d.page == nil {
			return newError("refinement region %d has no reference", seg.Header.Number)
		}
		if grrd.GRREFERENCE, err = d.page.image.Region(ri.X, ri.Y, ri.Width, ri.Height); err != nil {
			return err
		}
	}
	bm, err := grrd.Decode(NewDecodingContext(seg.Data, pos, seg.End))
	if err != nil {
		return err
	}
	return d.placeRegion(seg, ri, bm)
}

// placeRegion 中间区域按段编号保存, 直接区域合成到页面
func (d *Document) placeRegion(seg *Segment, ri RegionInfo, bm *Bitmap) error {
	switch seg.Header.Type {
	case SegmentIntermediateTextRegion, SegmentIntermediateHalftoneRegion,
		SegmentIntermediateGenericRegion, SegmentIntermediateRefinementRegion:
		d.regions[seg.Header.Number] = bm
		return nil
	}
	if d.page == nil {
		logging.Warn("jbig2: region segment %d has no page information, skipped", seg.Header.Number)
		return nil
	}
	op := d.page.info.ComposeOp
	if d.page.info.Override {
		op = ri.ComposeOp()
	}
	if op > ComposeReplace {
		return newError("unsupported combination operator %d", op)
	}
	if bottom := ri.Y + bm.Height; d.page.info.HeightUnknown && bottom > d.page.image.Height() {
		if err := d.growPage(bottom); err != nil {
			return err
		}
	}
	d.page.image.ComposeBitmap(bm, ri.X, ri.Y, op)
	return nil
}

// growPage 扩展高度未知的页面
func (d *Document) growPage(height int) error {
	img := d.page.image
	if height > JBig2MaxImageSize || int64(img.Width())*int64(height) > d.maxPixels {
		return newError("page height %d exceeds the pixel limit", height)
	}
	img.Expand(height, d.page.info.DefaultPixel)
	return nil
}

// parsePageInfo 页面信息段 (7.4.8), 开始新页面
func (d *Document) parsePageInfo(seg *Segment) error {
	pos := seg.Start
	if err := need(seg, pos, 19); err != nil {
		return err
	}
	d.finishPage()
	width := readUint32(seg.Data, pos)
	height := readUint32(seg.Data, pos+4)
	flags := seg.Data[pos+16]
	striping := readUint16(seg.Data, pos+17)
	info := PageInfo{
		Width:         int(width),
		HeightUnknown: height == math.MaxUint32,
		ResolutionX:   readUint32(seg.Data, pos+8),
		ResolutionY:   readUint32(seg.Data, pos+12),
		DefaultPixel:  (flags>>2)&1 != 0,
		ComposeOp:     ComposeOp((flags >> 3) & 3),
		Override:      flags&0x40 != 0,
		IsStriped:     striping&0x8000 != 0,
		MaxStripeSize: int(striping & 0x7fff),
	}
	if !info.HeightUnknown {
		info.Height = int(height)
	}
	if width > JBig2MaxImageSize || info.Height > JBig2MaxImageSize ||
		int64(info.Width)*int64(info.Height) > d.maxPixels {
		return newError("page %dx%d exceeds the pixel limit", width, info.Height)
	}
	img, err := NewImage(info.Width, info.Height)
	if err != nil {
		return err
	}
	img.Fill(info.DefaultPixel)
	d.page = &pageState{info: info, image: img, heightKnown: !info.HeightUnknown}
	return nil
}

// parseEndOfPage 页面结束段, 高度就此确定
func (d *Document) parseEndOfPage(seg *Segment) error {
	if d.page == nil {
		logging.Warn("jbig2: end of page %d without page information", seg.Header.PageAssociation)
		return nil
	}
	d.page.heightKnown = true
	d.finishPage()
	return nil
}

// parseEndOfStripe 条带结束段 (7.4.10), 高度未知的页面扩展到条带末行
func (d *Document) parseEndOfStripe(seg *Segment) error {
	if err := need(seg, seg.Start, 4); err != nil {
		return err
	}
	if d.page == nil {
		logging.Warn("jbig2: end of stripe without page information")
		return nil
	}
	row := int64(readUint32(seg.Data, seg.Start))
	if d.page.info.HeightUnknown && row+1 > int64(d.page.image.Height()) {
		if row+1 > JBig2MaxImageSize {
			return newError("end of stripe row %d is too large", row)
		}
		return d.growPage(int(row + 1))
	}
	return nil
}

// parseTable 表段 (7.4.13)
func (d *Document) parseTable(seg *Segment) error {
	t, err := ParseHuffmanTable(seg.Data, seg.Start, seg.End)
	if err != nil {
		return err
	}
	d.tables[seg.Header.Number] = t
	return nil
}

// parseExtension 扩展段, 忽略
func (d *Document) parseExtension(seg *Segment) error {
	logging.Warn("jbig2: extension segment %d ignored", seg.Header.Number)
	return nil
}
