// Package classfile decodes JVM class files into the subset of the
// instruction model the scanner works with.
package classfile

import (
	"errors"
	"fmt"
)

// ErrMalformedClass is wrapped by every decoding failure.
var ErrMalformedClass = errors.New("malformed class")

func malformed(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrMalformedClass, fmt.Sprintf(format, args...))
}

const Magic = 0xCAFEBABE

// Access flags.
const (
	AccPublic    = 0x0001
	AccPrivate   = 0x0002
	AccProtected = 0x0004
	AccStatic    = 0x0008
	AccFinal     = 0x0010
	AccInterface = 0x0200
	AccAbstract  = 0x0400
)

// MainDescriptor is the descriptor of a launchable main method.
const MainDescriptor = "([Ljava/lang/String;)V"

type Class struct {
	Name        string
	SuperName   string
	Interfaces  []string
	AccessFlags uint16
	Major       uint16
	Minor       uint16
	SourceFile  string
	Methods     []*Method
}

// HasMainMethod reports whether the class declares public static
// void main(String[]).
func (c *Class) HasMainMethod() bool {
	for _, m := range c.Methods {
		if m.IsMain() {
			return true
		}
	}
	return false
}

type Method struct {
	Name         string
	Descriptor   string
	AccessFlags  uint16
	Instructions []Instruction
}

func (m *Method) IsMain() bool {
	const want = AccPublic | AccStatic
	return m.Name == "main" && m.Descriptor == MainDescriptor && m.AccessFlags&want == want
}

// InstructionKind tags the variants of Instruction the scanner cares about.
type InstructionKind uint8

const (
	Other InstructionKind = iota
	LoadConstant
	Invoke
	NewTypedArray
)

func (k InstructionKind) String() string {
	switch k {
	case LoadConstant:
		return "LoadConstant"
	case Invoke:
		return "Invoke"
	case NewTypedArray:
		return "NewTypedArray"
	default:
		return "Other"
	}
}

type ConstantKind uint8

const (
	ConstOther ConstantKind = iota
	ConstString
	ConstInteger
)

type Constant struct {
	Kind   ConstantKind
	String string
	Int    int32
}

type InvokeKind uint8

const (
	InvokeVirtual InvokeKind = iota
	InvokeSpecial
	InvokeStatic
	InvokeInterface
)

func (k InvokeKind) String() string {
	switch k {
	case InvokeSpecial:
		return "special"
	case InvokeStatic:
		return "static"
	case InvokeInterface:
		return "interface"
	default:
		return "virtual"
	}
}

// MethodCall is the resolved operand of an invoke instruction.
type MethodCall struct {
	Owner      string
	Name       string
	Descriptor string
	Kind       InvokeKind
}

// Instruction is a decoded bytecode instruction. Only the field matching
// Kind is set.
type Instruction struct {
	Kind     InstructionKind
	Offset   int
	Opcode   byte
	Constant Constant
	Call     MethodCall
	// ElementType is the internal name of a reference array element, or a
	// one-letter descriptor for primitive arrays.
	ElementType string
}
