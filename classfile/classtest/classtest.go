// Package classtest assembles class files and jars for tests.
package classtest

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"jarsentry/classfile"
)

type constantPool struct {
	buf   bytes.Buffer
	index map[string]uint16
	next  uint16
}

func newConstantPool() *constantPool {
	return &constantPool{index: make(map[string]uint16), next: 1}
}

func (p *constantPool) add(key string, write func(*bytes.Buffer)) uint16 {
	if idx, ok := p.index[key]; ok {
		return idx
	}
	idx := p.next
	p.next++
	write(&p.buf)
	p.index[key] = idx
	return idx
}

func (p *constantPool) utf8(s string) uint16 {
	return p.add("utf8:"+s, func(b *bytes.Buffer) {
		enc := EncodeModifiedUTF8(s)
		b.WriteByte(1)
		writeU2(b, uint16(len(enc)))
		b.Write(enc)
	})
}

func (p *constantPool) class(name string) uint16 {
	nameIdx := p.utf8(name)
	return p.add("class:"+name, func(b *bytes.Buffer) {
		b.WriteByte(7)
		writeU2(b, nameIdx)
	})
}

func (p *constantPool) stringConst(s string) uint16 {
	utf := p.utf8(s)
	return p.add("string:"+s, func(b *bytes.Buffer) {
		b.WriteByte(8)
		writeU2(b, utf)
	})
}

func (p *constantPool) integer(v int32) uint16 {
	return p.add(fmt.Sprintf("int:%d", v), func(b *bytes.Buffer) {
		b.WriteByte(3)
		writeU4(b, uint32(v))
	})
}

func (p *constantPool) long(v int64) uint16 {
	idx := p.add(fmt.Sprintf("long:%d", v), func(b *bytes.Buffer) {
		b.WriteByte(5)
		writeU4(b, uint32(uint64(v)>>32))
		writeU4(b, uint32(v))
	})
	if p.next == idx+1 {
		p.next++
	}
	return idx
}

func (p *constantPool) methodRef(owner, name, desc string, iface bool) uint16 {
	classIdx := p.class(owner)
	nameIdx := p.utf8(name)
	descIdx := p.utf8(desc)
	nt := p.add("nat:"+name+":"+desc, func(b *bytes.Buffer) {
		b.WriteByte(12)
		writeU2(b, nameIdx)
		writeU2(b, descIdx)
	})
	tag := byte(10)
	if iface {
		tag = 11
	}
	return p.add(fmt.Sprintf("ref%d:%s.%s%s", tag, owner, name, desc), func(b *bytes.Buffer) {
		b.WriteByte(tag)
		writeU2(b, classIdx)
		writeU2(b, nt)
	})
}

// ClassBuilder assembles a minimal class file (major version 52).
type ClassBuilder struct {
	name       string
	super      string
	access     uint16
	sourceFile string
	pool       *constantPool
	methods    []*MethodBuilder
}

func NewClass(name string) *ClassBuilder {
	return &ClassBuilder{
		name:   name,
		super:  "java/lang/Object",
		access: classfile.AccPublic,
		pool:   newConstantPool(),
	}
}

func (b *ClassBuilder) Super(name string) *ClassBuilder {
	b.super = name
	return b
}

func (b *ClassBuilder) SourceFile(name string) *ClassBuilder {
	b.sourceFile = name
	return b
}

// Method starts a method. Instructions are appended through the returned
// builder; a method without instructions gets no Code attribute.
func (b *ClassBuilder) Method(access uint16, name, desc string) *MethodBuilder {
	m := &MethodBuilder{class: b, access: access, name: name, desc: desc}
	b.methods = append(b.methods, m)
	return m
}

func (b *ClassBuilder) Bytes() []byte {
	var body bytes.Buffer
	writeU2(&body, b.access)
	writeU2(&body, b.pool.class(b.name))
	if b.super == "" {
		writeU2(&body, 0)
	} else {
		writeU2(&body, b.pool.class(b.super))
	}
	writeU2(&body, 0) // interfaces
	writeU2(&body, 0) // fields
	writeU2(&body, uint16(len(b.methods)))
	for _, m := range b.methods {
		m.write(&body)
	}
	if b.sourceFile != "" {
		writeU2(&body, 1)
		writeU2(&body, b.pool.utf8("SourceFile"))
		writeU4(&body, 2)
		writeU2(&body, b.pool.utf8(b.sourceFile))
	} else {
		writeU2(&body, 0)
	}

	var out bytes.Buffer
	writeU4(&out, classfile.Magic)
	writeU2(&out, 0)
	writeU2(&out, 52)
	writeU2(&out, b.pool.next)
	out.Write(b.pool.buf.Bytes())
	out.Write(body.Bytes())
	return out.Bytes()
}

type MethodBuilder struct {
	class  *ClassBuilder
	access uint16
	name   string
	desc   string
	code   bytes.Buffer
}

func (m *MethodBuilder) Op(ops ...byte) *MethodBuilder {
	m.code.Write(ops)
	return m
}

func (m *MethodBuilder) ldc(idx uint16) *MethodBuilder {
	if idx <= 0xff {
		return m.Op(classfile.OpLdc, byte(idx))
	}
	m.code.WriteByte(classfile.OpLdcW)
	writeU2(&m.code, idx)
	return m
}

func (m *MethodBuilder) LdcString(s string) *MethodBuilder {
	return m.ldc(m.class.pool.stringConst(s))
}

func (m *MethodBuilder) LdcInt(v int32) *MethodBuilder {
	return m.ldc(m.class.pool.integer(v))
}

func (m *MethodBuilder) LdcLong(v int64) *MethodBuilder {
	m.code.WriteByte(classfile.OpLdc2W)
	writeU2(&m.code, m.class.pool.long(v))
	return m
}

func (m *MethodBuilder) BiPush(v int8) *MethodBuilder {
	return m.Op(classfile.OpBipush, byte(v))
}

func (m *MethodBuilder) SiPush(v int16) *MethodBuilder {
	m.code.WriteByte(classfile.OpSipush)
	writeU2(&m.code, uint16(v))
	return m
}

func (m *MethodBuilder) invoke(op byte, owner, name, desc string) *MethodBuilder {
	m.code.WriteByte(op)
	writeU2(&m.code, m.class.pool.methodRef(owner, name, desc, op == classfile.OpInvokeInterface))
	if op == classfile.OpInvokeInterface {
		m.code.Write([]byte{1, 0})
	}
	return m
}

func (m *MethodBuilder) InvokeVirtual(owner, name, desc string) *MethodBuilder {
	return m.invoke(classfile.OpInvokeVirtual, owner, name, desc)
}

func (m *MethodBuilder) InvokeStatic(owner, name, desc string) *MethodBuilder {
	return m.invoke(classfile.OpInvokeStatic, owner, name, desc)
}

func (m *MethodBuilder) InvokeSpecial(owner, name, desc string) *MethodBuilder {
	return m.invoke(classfile.OpInvokeSpecial, owner, name, desc)
}

func (m *MethodBuilder) InvokeInterface(owner, name, desc string) *MethodBuilder {
	return m.invoke(classfile.OpInvokeInterface, owner, name, desc)
}

// New emits a "new" instruction for the class.
func (m *MethodBuilder) New(class string) *MethodBuilder {
	m.code.WriteByte(classfile.OpNew)
	writeU2(&m.code, m.class.pool.class(class))
	return m
}

func (m *MethodBuilder) ANewArray(elem string) *MethodBuilder {
	m.code.WriteByte(classfile.OpANewArray)
	writeU2(&m.code, m.class.pool.class(elem))
	return m
}

func (m *MethodBuilder) NewArray(atype byte) *MethodBuilder {
	return m.Op(classfile.OpNewArray, atype)
}

// TableSwitch emits a tableswitch with every target pointing at the
// instruction itself, padded relative to the current code offset.
func (m *MethodBuilder) TableSwitch(low, high int32) *MethodBuilder {
	m.code.WriteByte(classfile.OpTableSwitch)
	for m.code.Len()%4 != 0 {
		m.code.WriteByte(0)
	}
	writeU4(&m.code, 0)
	writeU4(&m.code, uint32(low))
	writeU4(&m.code, uint32(high))
	for i := low; i <= high; i++ {
		writeU4(&m.code, 0)
	}
	return m
}

// LookupSwitch emits a lookupswitch over keys.
func (m *MethodBuilder) LookupSwitch(keys ...int32) *MethodBuilder {
	m.code.WriteByte(classfile.OpLookupSwitch)
	for m.code.Len()%4 != 0 {
		m.code.WriteByte(0)
	}
	writeU4(&m.code, 0)
	writeU4(&m.code, uint32(len(keys)))
	for _, k := range keys {
		writeU4(&m.code, uint32(k))
		writeU4(&m.code, 0)
	}
	return m
}

func (m *MethodBuilder) Return() *MethodBuilder {
	return m.Op(classfile.OpReturn)
}

// Class returns the owning class builder.
func (m *MethodBuilder) Class() *ClassBuilder {
	return m.class
}

func (m *MethodBuilder) write(b *bytes.Buffer) {
	pool := m.class.pool
	writeU2(b, m.access)
	writeU2(b, pool.utf8(m.name))
	writeU2(b, pool.utf8(m.desc))
	if m.code.Len() == 0 {
		writeU2(b, 0)
		return
	}
	writeU2(b, 1)
	writeU2(b, pool.utf8("Code"))
	code := m.code.Bytes()
	writeU4(b, uint32(2+2+4+len(code)+2+2))
	writeU2(b, 8)  // max stack
	writeU2(b, 8)  // max locals
	writeU4(b, uint32(len(code)))
	b.Write(code)
	writeU2(b, 0) // exception table
	writeU2(b, 0) // attributes
}

// EncodeModifiedUTF8 encodes s the way class files store strings.
func EncodeModifiedUTF8(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		switch {
		case r == 0:
			out = append(out, 0xC0, 0x80)
		case r < 0x80:
			out = append(out, byte(r))
		case r < 0x800:
			out = append(out, 0xC0|byte(r>>6), 0x80|byte(r&0x3F))
		case r < 0x10000:
			out = append(out, 0xE0|byte(r>>12), 0x80|byte((r>>6)&0x3F), 0x80|byte(r&0x3F))
		default:
			r -= 0x10000
			for _, u := range []rune{0xD800 + (r >> 10), 0xDC00 + (r & 0x3FF)} {
				out = append(out, 0xE0|byte(u>>12), 0x80|byte((u>>6)&0x3F), 0x80|byte(u&0x3F))
			}
		}
	}
	return out
}

func writeU2(b *bytes.Buffer, v uint16) {
	_ = binary.Write(b, binary.BigEndian, v)
}

func writeU4(b *bytes.Buffer, v uint32) {
	_ = binary.Write(b, binary.BigEndian, v)
}
