package classfile_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jarsentry/classfile"
	"jarsentry/classfile/classtest"
)

func buildSample() []byte {
	b := classtest.NewClass("com/x/Sample").SourceFile("Sample.java")
	b.Method(classfile.AccPublic|classfile.AccStatic, "main", classfile.MainDescriptor).
		LdcString("http://evil.com").
		Op(classfile.OpAload0).
		InvokeVirtual("java/net/URL", "openConnection", "()Ljava/net/URLConnection;").
		BiPush(-5).
		SiPush(1000).
		LdcInt(123456).
		LdcLong(42).
		ANewArray("java/lang/String").
		NewArray(10).
		InvokeStatic("java/lang/Runtime", "getRuntime", "()Ljava/lang/Runtime;").
		InvokeInterface("java/util/List", "size", "()I").
		InvokeSpecial("java/lang/Object", "<init>", "()V").
		Return()
	b.Method(classfile.AccPublic|classfile.AccAbstract, "run", "()V")
	return b.Bytes()
}

func TestDecodeResolvesInstructions(t *testing.T) {
	c, err := classfile.Decode(buildSample())
	require.NoError(t, err)

	assert.Equal(t, "com/x/Sample", c.Name)
	assert.Equal(t, "java/lang/Object", c.SuperName)
	assert.Equal(t, "Sample.java", c.SourceFile)
	assert.Equal(t, uint16(52), c.Major)
	require.Len(t, c.Methods, 2)
	assert.True(t, c.HasMainMethod())

	ins := c.Methods[0].Instructions
	require.Len(t, ins, 13)

	assert.Equal(t, classfile.LoadConstant, ins[0].Kind)
	assert.Equal(t, classfile.ConstString, ins[0].Constant.Kind)
	assert.Equal(t, "http://evil.com", ins[0].Constant.String)

	assert.Equal(t, classfile.Other, ins[1].Kind)

	assert.Equal(t, classfile.Invoke, ins[2].Kind)
	assert.Equal(t, classfile.MethodCall{
		Owner:      "java/net/URL",
		Name:       "openConnection",
		Descriptor: "()Ljava/net/URLConnection;",
		Kind:       classfile.InvokeVirtual,
	}, ins[2].Call)

	assert.Equal(t, classfile.Constant{Kind: classfile.ConstInteger, Int: -5}, ins[3].Constant)
	assert.Equal(t, classfile.Constant{Kind: classfile.ConstInteger, Int: 1000}, ins[4].Constant)
	assert.Equal(t, classfile.Constant{Kind: classfile.ConstInteger, Int: 123456}, ins[5].Constant)
	assert.Equal(t, classfile.ConstOther, ins[6].Constant.Kind)

	assert.Equal(t, classfile.NewTypedArray, ins[7].Kind)
	assert.Equal(t, "java/lang/String", ins[7].ElementType)
	assert.Equal(t, "I", ins[8].ElementType)

	assert.Equal(t, classfile.InvokeStatic, ins[9].Call.Kind)
	assert.Equal(t, classfile.InvokeInterface, ins[10].Call.Kind)
	assert.Equal(t, "java/util/List", ins[10].Call.Owner)
	assert.Equal(t, classfile.InvokeSpecial, ins[11].Call.Kind)

	assert.Equal(t, 0, ins[0].Offset)
	assert.Equal(t, 2, ins[1].Offset)

	assert.Empty(t, c.Methods[1].Instructions)
}

func TestDecodeWideConstantIndex(t *testing.T) {
	b := classtest.NewClass("a/Many")
	m := b.Method(classfile.AccPublic, "fill", "()V")
	for i := 0; i < 300; i++ {
		m.LdcString(fmt.Sprintf("s%03d", i))
	}
	m.Return()

	c, err := classfile.Decode(b.Bytes())
	require.NoError(t, err)
	ins := c.Methods[0].Instructions
	require.Len(t, ins, 301)
	assert.Equal(t, byte(classfile.OpLdc), ins[0].Opcode)
	assert.Equal(t, byte(classfile.OpLdcW), ins[299].Opcode)
	assert.Equal(t, "s299", ins[299].Constant.String)
}

func TestDecodeSwitchPaddingAndWide(t *testing.T) {
	b := classtest.NewClass("a/Switch")
	b.Method(classfile.AccPublic, "pick", "(I)V").
		Op(classfile.OpIconst0).
		TableSwitch(1, 3).
		Op(classfile.OpIconst0, classfile.OpIconst0).
		LookupSwitch(7, 9, 11).
		Op(classfile.OpWide, classfile.OpIinc, 0, 1, 0, 2).
		Op(classfile.OpWide, classfile.OpAload, 0, 1).
		LdcString("after").
		Return()

	c, err := classfile.Decode(b.Bytes())
	require.NoError(t, err)
	ins := c.Methods[0].Instructions
	require.Len(t, ins, 9)
	assert.Equal(t, byte(classfile.OpTableSwitch), ins[1].Opcode)
	assert.Equal(t, byte(classfile.OpLookupSwitch), ins[4].Opcode)
	assert.Equal(t, "after", ins[7].Constant.String)
}

func TestDecodeModifiedUTF8(t *testing.T) {
	want := "café 世界 \U0001F600 nul\x00end"
	b := classtest.NewClass("a/Text")
	b.Method(classfile.AccPublic, "m", "()V").LdcString(want).Return()

	c, err := classfile.Decode(b.Bytes())
	require.NoError(t, err)
	assert.Equal(t, want, c.Methods[0].Instructions[0].Constant.String)
}

func TestDecodeRejectsTruncation(t *testing.T) {
	data := buildSample()
	for n := 0; n < len(data); n++ {
		_, err := classfile.Decode(data[:n])
		require.ErrorIs(t, err, classfile.ErrMalformedClass, "prefix length %d", n)
	}
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	data := buildSample()
	data[0] = 0x00
	_, err := classfile.Decode(data)
	require.ErrorIs(t, err, classfile.ErrMalformedClass)
	assert.Contains(t, err.Error(), "bad magic")
}

func TestDecodeRejectsInvalidOpcode(t *testing.T) {
	b := classtest.NewClass("a/Bad")
	b.Method(classfile.AccPublic, "m", "()V").Op(classfile.OpNop, 0xff).Return()
	_, err := classfile.Decode(b.Bytes())
	require.ErrorIs(t, err, classfile.ErrMalformedClass)
	assert.Contains(t, err.Error(), "invalid opcode 0xff")
	assert.Contains(t, err.Error(), "method m()V")
}

func TestDecodeRejectsOperandOverrun(t *testing.T) {
	b := classtest.NewClass("a/Short")
	b.Method(classfile.AccPublic, "m", "()V").Op(classfile.OpSipush, 0x01)
	_, err := classfile.Decode(b.Bytes())
	require.ErrorIs(t, err, classfile.ErrMalformedClass)
}

func TestDecodeRejectsBadConstantIndex(t *testing.T) {
	b := classtest.NewClass("a/Index")
	b.Method(classfile.AccPublic, "m", "()V").Op(classfile.OpLdcW, 0x7f, 0xff).Return()
	_, err := classfile.Decode(b.Bytes())
	require.ErrorIs(t, err, classfile.ErrMalformedClass)
	assert.Contains(t, err.Error(), "out of range")
}

func TestMainDetectionRequiresExactShape(t *testing.T) {
	cases := []struct {
		access uint16
		name   string
		desc   string
		want   bool
	}{
		{classfile.AccPublic | classfile.AccStatic, "main", classfile.MainDescriptor, true},
		{classfile.AccPublic | classfile.AccStatic | classfile.AccFinal, "main", classfile.MainDescriptor, true},
		{classfile.AccPublic | classfile.AccStatic, "main", "([Ljava/lang/String;)I", false},
		{classfile.AccPublic, "main", classfile.MainDescriptor, false},
		{classfile.AccStatic, "main", classfile.MainDescriptor, false},
		{classfile.AccPublic | classfile.AccStatic, "Main", classfile.MainDescriptor, false},
	}
	for _, tc := range cases {
		m := &classfile.Method{Name: tc.name, Descriptor: tc.desc, AccessFlags: tc.access}
		assert.Equal(t, tc.want, m.IsMain(), "%s%s flags 0x%x", tc.name, tc.desc, tc.access)
	}
}
