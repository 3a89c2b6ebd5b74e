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

import "testing"

func TestBitStreamReads(t *testing.T) {
	data := []byte{0xA5, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06}
	s := NewBitStream(data, 0, len(data))
	v, err := s.ReadNBits(3)
	if err != nil || v != 5 {
		t.Fatalf("ReadNBits(3) = %d, %v; want 5", v, err)
	}
	bit, _ := s.Read1Bit()
	if bit != 0 {
		t.Fatalf("Read1Bit = %d, want 0", bit)
	}
	u16, err := s.ReadShortInteger()
	if err != nil || u16 != 0x0102 {
		t.Fatalf("ReadShortInteger = %#x, %v", u16, err)
	}
	u32, err := s.ReadInteger()
	if err != nil || u32 != 0x03040506 {
		t.Fatalf("ReadInteger = %#x, %v", u32, err)
	}
	if s.GetByteLeft() != 0 {
		t.Fatalf("GetByteLeft = %d, want 0", s.GetByteLeft())
	}
	if _, err := s.Read1Byte(); err == nil {
		t.Fatal("expected error at end of data")
	}
	if s.GetCurByteArith() != 0xFF || s.GetNextByteArith() != 0xFF {
		t.Fatal("arithmetic reads past end must return 0xFF")
	}
}

func TestBitStreamBounds(t *testing.T) {
	data := []byte{0x80, 0xFF, 0x7F}
	s := NewBitStream(data, 1, 2)
	v, err := s.ReadInt8()
	if err != nil || v != -1 {
		t.Fatalf("ReadInt8 = %d, %v; want -1", v, err)
	}
	if _, err := s.Read1Bit(); err == nil {
		t.Fatal("expected error reading outside range")
	}
	s.SetOffset(10)
	if s.GetOffset() != 2 {
		t.Fatalf("SetOffset clamps to end, got %d", s.GetOffset())
	}
	s.SetOffset(0)
	if s.GetOffset() != 1 {
		t.Fatalf("SetOffset clamps to start, got %d", s.GetOffset())
	}
	s = NewBitStream(data, 0, 100)
	if s.GetEnd() != len(data) {
		t.Fatalf("end clamps to data length, got %d", s.GetEnd())
	}
}

func TestArithIntegerRoundTrip(t *testing.T) {
	values := []int{0, 1, -1, 3, 4, 19, 20, -83, 84, 339, 340, 4435, 4436, 100000, -100000}
	enc := newMQEncoder()
	for _, v := range values {
		enc.encodeInteger("IADW", v)
	}
	enc.encodeOOB("IADW")
	enc.encodeInteger("IADH", 7)
	data := enc.flush()
	ctx := NewDecodingContext(data, 0, len(data))
	for _, want := range values {
		got, ok := ctx.DecodeInteger("IADW")
		if !ok || got != want {
			t.Fatalf("DecodeInteger = %d, %v; want %d", got, ok, want)
		}
	}
	if _, ok := ctx.DecodeInteger("IADW"); ok {
		t.Fatal("expected OOB")
	}
	if got, ok := ctx.DecodeInteger("IADH"); !ok || got != 7 {
		t.Fatalf("IADH = %d, %v; want 7", got, ok)
	}
}

func TestArithIAIDRoundTrip(t *testing.T) {
	ids := []int{0, 5, 31, 17, 17, 2, 30}
	enc := newMQEncoder()
	for _, id := range ids {
		enc.encodeIAID(5, id)
	}
	data := enc.flush()
	ctx := NewDecodingContext(data, 0, len(data))
	for _, want := range ids {
		if got := ctx.DecodeIAID(5); got != want {
			t.Fatalf("DecodeIAID = %d, want %d", got, want)
		}
	}
}

func TestContextCacheSeparatesProcedures(t *testing.T) {
	cc := NewContextCache()
	a := cc.GetContexts("IADH")
	b := cc.GetContexts("IADW")
	a[3].i = 9
	if b[3].i != 0 {
		t.Fatal("procedures must not share contexts")
	}
	if cc.GetContexts("IADH")[3].i != 9 {
		t.Fatal("contexts must persist per procedure")
	}
}

func TestArithDecoderTestSequence(t *testing.T) {
	// T.88 附录 H.2 的编码器测试序列, 全部位使用同一上下文
	encoded := []byte{
		0x84, 0xC7, 0x3B, 0xFC, 0xE1, 0xA1, 0x43, 0x04, 0x02, 0x20, 0x00, 0x00,
		0x41, 0x0D, 0xBB, 0x86, 0xF4, 0x31, 0x7F, 0xFF, 0x88, 0xFF, 0x37, 0x47,
		0x1A, 0xDB, 0x6A, 0xDF, 0xFF, 0xAC,
	}
	want := []byte{
		0x00, 0x02, 0x00, 0x51, 0x00, 0x00, 0x00, 0xC0, 0x03, 0x52, 0x87, 0x2A,
		0xAA, 0xAA, 0xAA, 0xAA, 0x82, 0xC0, 0x20, 0x00, 0xFC, 0xD7, 0x9E, 0xF6,
		0xBF, 0x7F, 0xED, 0x90, 0x4F, 0x46, 0xA3, 0xBF,
	}
	ctx := NewDecodingContext(encoded, 0, len(encoded))
	cx := ctx.ContextCache().GetContexts("H2")
	for i := 0; i < len(want)*8; i++ {
		bit := ctx.Decoder().Decode(&cx[0])
		if exp := int(want[i/8]>>uint(7-i%8)) & 1; bit != exp {
			t.Fatalf("bit %d (byte %d) = %d, want %d", i, i/8, bit, exp)
		}
	}
}
