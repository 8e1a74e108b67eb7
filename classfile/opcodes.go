package classfile

// Opcodes referenced by the decoder and by test fixtures.
const (
	OpNop             = 0x00
	OpIconst0         = 0x03
	OpBipush          = 0x10
	OpSipush          = 0x11
	OpLdc             = 0x12
	OpLdcW            = 0x13
	OpLdc2W           = 0x14
	OpIload           = 0x15
	OpAload           = 0x19
	OpAload0          = 0x2a
	OpAload1          = 0x2b
	OpAstore          = 0x3a
	OpPop             = 0x57
	OpDup             = 0x59
	OpIinc            = 0x84
	OpGoto            = 0xa7
	OpTableSwitch     = 0xaa
	OpLookupSwitch    = 0xab
	OpReturn          = 0xb1
	OpGetStatic       = 0xb2
	OpInvokeVirtual   = 0xb6
	OpInvokeSpecial   = 0xb7
	OpInvokeStatic    = 0xb8
	OpInvokeInterface = 0xb9
	OpInvokeDynamic   = 0xba
	OpNew             = 0xbb
	OpNewArray        = 0xbc
	OpANewArray       = 0xbd
	OpAthrow          = 0xbf
	OpWide            = 0xc4
	OpMultiANewArray  = 0xc5
	OpGotoW           = 0xc8
)

const (
	opInvalid  = -1
	opVariable = -2
)

// operandWidths holds the operand byte count that follows each opcode.
var operandWidths = func() [256]int8 {
	var w [256]int8
	for i := range w {
		w[i] = opInvalid
	}
	set := func(from, to int, n int8) {
		for op := from; op <= to; op++ {
			w[op] = n
		}
	}
	set(0x00, 0x0f, 0) // nop, constants
	w[OpBipush] = 1
	w[OpSipush] = 2
	w[OpLdc] = 1
	w[OpLdcW] = 2
	w[OpLdc2W] = 2
	set(0x15, 0x19, 1) // xload
	set(0x1a, 0x35, 0) // xload_n, xaload
	set(0x36, 0x3a, 1) // xstore
	set(0x3b, 0x83, 0) // xstore_n, xastore, stack, arithmetic
	w[OpIinc] = 2
	set(0x85, 0x98, 0) // conversions, comparisons
	set(0x99, 0xa8, 2) // branches, goto, jsr
	w[0xa9] = 1        // ret
	w[OpTableSwitch] = opVariable
	w[OpLookupSwitch] = opVariable
	set(0xac, 0xb1, 0) // returns
	set(0xb2, 0xb5, 2) // field access
	set(0xb6, 0xb8, 2) // invokevirtual, invokespecial, invokestatic
	w[OpInvokeInterface] = 4
	w[OpInvokeDynamic] = 4
	w[OpNew] = 2
	w[OpNewArray] = 1
	w[OpANewArray] = 2
	w[0xbe] = 0 // arraylength
	w[OpAthrow] = 0
	w[0xc0] = 2 // checkcast
	w[0xc1] = 2 // instanceof
	w[0xc2] = 0 // monitorenter
	w[0xc3] = 0 // monitorexit
	w[OpWide] = opVariable
	w[OpMultiANewArray] = 3
	w[0xc6] = 2 // ifnull
	w[0xc7] = 2 // ifnonnull
	w[OpGotoW] = 4
	w[0xc9] = 4 // jsr_w
	return w
}()

// primitive array type codes used by newarray.
var newArrayTypes = map[byte]string{
	4:  "Z",
	5:  "C",
	6:  "F",
	7:  "D",
	8:  "B",
	9:  "S",
	10: "I",
	11: "J",
}
