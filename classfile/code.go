package classfile

import "encoding/binary"

// decodeCode walks a method's code array once, resolving the operands of the
// instruction shapes the scanner models and validating the rest.
func decodeCode(code []byte, cp constantPool) ([]Instruction, error) {
	out := make([]Instruction, 0, len(code)/2)
	for pc := 0; pc < len(code); {
		op := code[pc]
		width := int(operandWidths[op])
		switch width {
		case opInvalid:
			return nil, malformed("invalid opcode 0x%02x at code offset %d", op, pc)
		case opVariable:
			n, err := variableWidth(code, pc)
			if err != nil {
				return nil, err
			}
			width = n
		}
		if pc+1+width > len(code) {
			return nil, malformed("opcode 0x%02x at code offset %d overruns code array", op, pc)
		}
		operands := code[pc+1 : pc+1+width]

		ins := Instruction{Kind: Other, Offset: pc, Opcode: op}
		switch op {
		case OpBipush:
			ins.Kind = LoadConstant
			ins.Constant = Constant{Kind: ConstInteger, Int: int32(int8(operands[0]))}
		case OpSipush:
			ins.Kind = LoadConstant
			ins.Constant = Constant{Kind: ConstInteger, Int: int32(int16(binary.BigEndian.Uint16(operands)))}
		case OpLdc:
			c, err := cp.loadable(uint16(operands[0]))
			if err != nil {
				return nil, err
			}
			ins.Kind = LoadConstant
			ins.Constant = c
		case OpLdcW:
			c, err := cp.loadable(binary.BigEndian.Uint16(operands))
			if err != nil {
				return nil, err
			}
			ins.Kind = LoadConstant
			ins.Constant = c
		case OpLdc2W:
			if _, err := cp.entry(binary.BigEndian.Uint16(operands), tagLong, tagDouble, tagDynamic); err != nil {
				return nil, err
			}
			ins.Kind = LoadConstant
			ins.Constant = Constant{Kind: ConstOther}
		case OpInvokeVirtual, OpInvokeSpecial, OpInvokeStatic, OpInvokeInterface:
			tags := []uint8{tagMethodref, tagInterfaceMethodref}
			if op == OpInvokeInterface {
				tags = []uint8{tagInterfaceMethodref}
			}
			owner, name, desc, err := cp.methodRef(binary.BigEndian.Uint16(operands), tags...)
			if err != nil {
				return nil, err
			}
			ins.Kind = Invoke
			ins.Call = MethodCall{Owner: owner, Name: name, Descriptor: desc, Kind: invokeKind(op)}
		case OpANewArray:
			elem, err := cp.className(binary.BigEndian.Uint16(operands))
			if err != nil {
				return nil, err
			}
			ins.Kind = NewTypedArray
			ins.ElementType = elem
		case OpNewArray:
			elem, ok := newArrayTypes[operands[0]]
			if !ok {
				return nil, malformed("invalid newarray type %d at code offset %d", operands[0], pc)
			}
			ins.Kind = NewTypedArray
			ins.ElementType = elem
		}
		out = append(out, ins)
		pc += 1 + width
	}
	return out, nil
}

func invokeKind(op byte) InvokeKind {
	switch op {
	case OpInvokeSpecial:
		return InvokeSpecial
	case OpInvokeStatic:
		return InvokeStatic
	case OpInvokeInterface:
		return InvokeInterface
	default:
		return InvokeVirtual
	}
}

// variableWidth returns the operand length of tableswitch, lookupswitch
// and wide at pc.
func variableWidth(code []byte, pc int) (int, error) {
	op := code[pc]
	if op == OpWide {
		if pc+1 >= len(code) {
			return 0, malformed("truncated wide at code offset %d", pc)
		}
		switch inner := code[pc+1]; {
		case inner == OpIinc:
			return 5, nil
		case inner >= 0x15 && inner <= 0x19, inner >= 0x36 && inner <= 0x3a, inner == 0xa9:
			return 3, nil
		default:
			return 0, malformed("invalid wide target 0x%02x at code offset %d", inner, pc)
		}
	}

	// Operands start on the next four-byte boundary relative to the code start.
	pad := (4 - (pc+1)%4) % 4
	base := pc + 1 + pad
	u4 := func(at int) (int32, error) {
		if at+4 > len(code) {
			return 0, malformed("truncated switch at code offset %d", pc)
		}
		return int32(binary.BigEndian.Uint32(code[at:])), nil
	}

	if op == OpTableSwitch {
		low, err := u4(base + 4)
		if err != nil {
			return 0, err
		}
		high, err := u4(base + 8)
		if err != nil {
			return 0, err
		}
		if high < low {
			return 0, malformed("tableswitch high %d below low %d at code offset %d", high, low, pc)
		}
		n := int64(high) - int64(low) + 1
		if n > int64(len(code)) {
			return 0, malformed("tableswitch at code offset %d has %d targets", pc, n)
		}
		return pad + 12 + int(n)*4, nil
	}

	npairs, err := u4(base + 4)
	if err != nil {
		return 0, err
	}
	if npairs < 0 || int64(npairs) > int64(len(code)) {
		return 0, malformed("lookupswitch at code offset %d has %d pairs", pc, npairs)
	}
	return pad + 8 + int(npairs)*8, nil
}
