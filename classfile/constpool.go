package classfile

// Constant pool tags.
const (
	tagUtf8               = 1
	tagInteger            = 3
	tagFloat              = 4
	tagLong               = 5
	tagDouble             = 6
	tagClass              = 7
	tagString             = 8
	tagFieldref           = 9
	tagMethodref          = 10
	tagInterfaceMethodref = 11
	tagNameAndType        = 12
	tagMethodHandle       = 15
	tagMethodType         = 16
	tagDynamic            = 17
	tagInvokeDynamic      = 18
	tagModule             = 19
	tagPackage            = 20
)

type cpEntry struct {
	tag  uint8
	utf8 string
	i32  int32
	// a and b hold index operands: class/string/method type name index in a,
	// class and name-and-type (or name and descriptor) in a and b.
	a, b uint16
}

type constantPool []cpEntry

func readConstantPool(r *byteReader) (constantPool, error) {
	count, err := r.u2("constant pool count")
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, malformed("constant pool count is zero")
	}
	pool := make(constantPool, count)
	for i := 1; i < int(count); i++ {
		tag, err := r.u1("constant pool tag")
		if err != nil {
			return nil, err
		}
		e := cpEntry{tag: tag}
		switch tag {
		case tagUtf8:
			n, err := r.u2("utf8 length")
			if err != nil {
				return nil, err
			}
			raw, err := r.bytes(int(n), "utf8 bytes")
			if err != nil {
				return nil, err
			}
			if e.utf8, err = decodeModifiedUTF8(raw); err != nil {
				return nil, err
			}
		case tagInteger:
			v, err := r.u4("integer constant")
			if err != nil {
				return nil, err
			}
			e.i32 = int32(v)
		case tagFloat:
			if err := r.skip(4, "float constant"); err != nil {
				return nil, err
			}
		case tagLong, tagDouble:
			if err := r.skip(8, "wide constant"); err != nil {
				return nil, err
			}
		case tagClass, tagString, tagMethodType, tagModule, tagPackage:
			if e.a, err = r.u2("constant index"); err != nil {
				return nil, err
			}
		case tagFieldref, tagMethodref, tagInterfaceMethodref, tagNameAndType, tagDynamic, tagInvokeDynamic:
			if e.a, err = r.u2("constant index"); err != nil {
				return nil, err
			}
			if e.b, err = r.u2("constant index"); err != nil {
				return nil, err
			}
		case tagMethodHandle:
			kind, err := r.u1("method handle kind")
			if err != nil {
				return nil, err
			}
			e.a = uint16(kind)
			if e.b, err = r.u2("method handle reference"); err != nil {
				return nil, err
			}
		default:
			return nil, malformed("unknown constant pool tag %d at index %d", tag, i)
		}
		pool[i] = e
		if tag == tagLong || tag == tagDouble {
			// The following slot is unusable.
			i++
		}
	}
	return pool, nil
}

func (cp constantPool) entry(index uint16, want ...uint8) (cpEntry, error) {
	if index == 0 || int(index) >= len(cp) {
		return cpEntry{}, malformed("constant pool index %d out of range", index)
	}
	e := cp[index]
	if e.tag == 0 {
		return cpEntry{}, malformed("constant pool index %d is unusable", index)
	}
	if len(want) == 0 {
		return e, nil
	}
	for _, t := range want {
		if e.tag == t {
			return e, nil
		}
	}
	return cpEntry{}, malformed("constant pool index %d has tag %d, want %v", index, e.tag, want)
}

func (cp constantPool) utf8(index uint16) (string, error) {
	e, err := cp.entry(index, tagUtf8)
	if err != nil {
		return "", err
	}
	return e.utf8, nil
}

func (cp constantPool) className(index uint16) (string, error) {
	e, err := cp.entry(index, tagClass)
	if err != nil {
		return "", err
	}
	return cp.utf8(e.a)
}

func (cp constantPool) methodRef(index uint16, tags ...uint8) (owner, name, desc string, err error) {
	e, err := cp.entry(index, tags...)
	if err != nil {
		return "", "", "", err
	}
	if owner, err = cp.className(e.a); err != nil {
		return "", "", "", err
	}
	nt, err := cp.entry(e.b, tagNameAndType)
	if err != nil {
		return "", "", "", err
	}
	if name, err = cp.utf8(nt.a); err != nil {
		return "", "", "", err
	}
	if desc, err = cp.utf8(nt.b); err != nil {
		return "", "", "", err
	}
	return owner, name, desc, nil
}

// loadable resolves an ldc operand.
func (cp constantPool) loadable(index uint16) (Constant, error) {
	e, err := cp.entry(index)
	if err != nil {
		return Constant{}, err
	}
	switch e.tag {
	case tagString:
		s, err := cp.utf8(e.a)
		if err != nil {
			return Constant{}, err
		}
		return Constant{Kind: ConstString, String: s}, nil
	case tagInteger:
		return Constant{Kind: ConstInteger, Int: e.i32}, nil
	case tagFloat, tagLong, tagDouble, tagClass, tagMethodType, tagMethodHandle, tagDynamic:
		return Constant{Kind: ConstOther}, nil
	default:
		return Constant{}, malformed("constant pool index %d (tag %d) is not loadable", index, e.tag)
	}
}
