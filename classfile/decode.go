package classfile

import "strings"

// Decode parses a class file. Any structural problem yields an error
// wrapping ErrMalformedClass.
func Decode(data []byte) (*Class, error) {
	r := &byteReader{data: data}

	magic, err := r.u4("magic")
	if err != nil {
		return nil, err
	}
	if magic != Magic {
		return nil, malformed("bad magic 0x%08x", magic)
	}
	c := &Class{}
	if c.Minor, err = r.u2("minor version"); err != nil {
		return nil, err
	}
	if c.Major, err = r.u2("major version"); err != nil {
		return nil, err
	}
	if c.Major < 45 {
		return nil, malformed("unsupported class version %d.%d", c.Major, c.Minor)
	}

	cp, err := readConstantPool(r)
	if err != nil {
		return nil, err
	}

	if c.AccessFlags, err = r.u2("access flags"); err != nil {
		return nil, err
	}
	thisIdx, err := r.u2("this class")
	if err != nil {
		return nil, err
	}
	if c.Name, err = cp.className(thisIdx); err != nil {
		return nil, err
	}
	superIdx, err := r.u2("super class")
	if err != nil {
		return nil, err
	}
	if superIdx != 0 {
		if c.SuperName, err = cp.className(superIdx); err != nil {
			return nil, err
		}
	}

	ifaceCount, err := r.u2("interfaces count")
	if err != nil {
		return nil, err
	}
	for i := 0; i < int(ifaceCount); i++ {
		idx, err := r.u2("interface")
		if err != nil {
			return nil, err
		}
		name, err := cp.className(idx)
		if err != nil {
			return nil, err
		}
		c.Interfaces = append(c.Interfaces, name)
	}

	fieldCount, err := r.u2("fields count")
	if err != nil {
		return nil, err
	}
	for i := 0; i < int(fieldCount); i++ {
		if err := r.skip(6, "field"); err != nil {
			return nil, err
		}
		if err := skipAttributes(r); err != nil {
			return nil, err
		}
	}

	methodCount, err := r.u2("methods count")
	if err != nil {
		return nil, err
	}
	c.Methods = make([]*Method, 0, methodCount)
	for i := 0; i < int(methodCount); i++ {
		m, err := readMethod(r, cp)
		if err != nil {
			return nil, err
		}
		c.Methods = append(c.Methods, m)
	}

	attrCount, err := r.u2("class attributes count")
	if err != nil {
		return nil, err
	}
	for i := 0; i < int(attrCount); i++ {
		name, body, err := readAttribute(r, cp)
		if err != nil {
			return nil, err
		}
		if name == "SourceFile" && len(body) == 2 {
			if src, err := cp.utf8(uint16(body[0])<<8 | uint16(body[1])); err == nil {
				c.SourceFile = src
			}
		}
	}
	return c, nil
}

func readMethod(r *byteReader, cp constantPool) (*Method, error) {
	m := &Method{}
	var err error
	if m.AccessFlags, err = r.u2("method access flags"); err != nil {
		return nil, err
	}
	nameIdx, err := r.u2("method name")
	if err != nil {
		return nil, err
	}
	if m.Name, err = cp.utf8(nameIdx); err != nil {
		return nil, err
	}
	descIdx, err := r.u2("method descriptor")
	if err != nil {
		return nil, err
	}
	if m.Descriptor, err = cp.utf8(descIdx); err != nil {
		return nil, err
	}
	count, err := r.u2("method attributes count")
	if err != nil {
		return nil, err
	}
	for i := 0; i < int(count); i++ {
		name, body, err := readAttribute(r, cp)
		if err != nil {
			return nil, err
		}
		if name != "Code" {
			continue
		}
		if m.Instructions, err = readCode(body, cp); err != nil {
			return nil, malformedIn(m, err)
		}
	}
	return m, nil
}

func malformedIn(m *Method, err error) error {
	detail := strings.TrimPrefix(err.Error(), ErrMalformedClass.Error()+": ")
	return malformed("method %s%s: %s", m.Name, m.Descriptor, detail)
}

func readCode(body []byte, cp constantPool) ([]Instruction, error) {
	r := &byteReader{data: body}
	if err := r.skip(4, "max stack and locals"); err != nil {
		return nil, err
	}
	length, err := r.u4("code length")
	if err != nil {
		return nil, err
	}
	if length == 0 || length > 65535 {
		return nil, malformed("invalid code length %d", length)
	}
	code, err := r.bytes(int(length), "code")
	if err != nil {
		return nil, err
	}
	handlers, err := r.u2("exception table length")
	if err != nil {
		return nil, err
	}
	if err := r.skip(int(handlers)*8, "exception table"); err != nil {
		return nil, err
	}
	attrs, err := r.u2("code attributes count")
	if err != nil {
		return nil, err
	}
	for i := 0; i < int(attrs); i++ {
		if _, _, err := readAttribute(r, cp); err != nil {
			return nil, err
		}
	}
	return decodeCode(code, cp)
}

func readAttribute(r *byteReader, cp constantPool) (string, []byte, error) {
	nameIdx, err := r.u2("attribute name")
	if err != nil {
		return "", nil, err
	}
	name, err := cp.utf8(nameIdx)
	if err != nil {
		return "", nil, err
	}
	length, err := r.u4("attribute length")
	if err != nil {
		return "", nil, err
	}
	if int64(length) > int64(len(r.data)-r.pos) {
		return "", nil, malformed("attribute %s length %d exceeds remaining %d bytes", name, length, len(r.data)-r.pos)
	}
	body, err := r.bytes(int(length), "attribute body")
	if err != nil {
		return "", nil, err
	}
	return name, body, nil
}

func skipAttributes(r *byteReader) error {
	count, err := r.u2("attributes count")
	if err != nil {
		return err
	}
	for i := 0; i < int(count); i++ {
		if err := r.skip(2, "attribute name"); err != nil {
			return err
		}
		length, err := r.u4("attribute length")
		if err != nil {
			return err
		}
		if int64(length) > int64(len(r.data)-r.pos) {
			return malformed("attribute length %d exceeds remaining %d bytes", length, len(r.data)-r.pos)
		}
		if err := r.skip(int(length), "attribute body"); err != nil {
			return err
		}
	}
	return nil
}
