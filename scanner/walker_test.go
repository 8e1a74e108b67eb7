package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"jarsentry/classfile"
	"jarsentry/classfile/classtest"
)

func TestWalkKeepsLastStringAcrossOtherInstructions(t *testing.T) {
	class := decode(t, method("com/x/A").
		LdcString("first").
		BiPush(5).
		LdcInt(70000).
		Op(classfile.OpIconst0, classfile.OpPop).
		InvokeVirtual("java/io/PrintStream", "println", "(Ljava/lang/String;)V").
		LdcString("second").
		ANewArray("java/lang/String").
		InvokeStatic("com/x/B", "go", "()V").
		Return().Class())

	var seen []string
	var ints []int32
	Walk(class, class.Methods[0], WalkHandler{
		Constant: func(site Site, value string, wc *WalkContext) {
			assert.Equal(t, value, wc.LastString)
		},
		Call: func(site Site, call classfile.MethodCall, wc *WalkContext) {
			assert.Equal(t, "com/x/A", site.Class)
			assert.Equal(t, "run", site.Method)
			seen = append(seen, call.Name+"="+wc.LastString)
			if wc.HasInteger {
				ints = append(ints, wc.LastInteger)
			}
		},
		NewArray: func(site Site, elementType string, wc *WalkContext) {
			seen = append(seen, "new "+elementType+"="+wc.LastString)
		},
	})

	assert.Equal(t, []string{
		"println=first",
		"new java/lang/String=second",
		"go=second",
	}, seen)
	// iconst_0 and pop leave the context alone, so the ldc value survives.
	assert.Equal(t, []int32{70000, 70000}, ints)
}

func TestWalkTracksPushedIntegers(t *testing.T) {
	class := decode(t, method("com/x/A").
		LdcInt(70000).
		BiPush(5).
		InvokeStatic("com/x/B", "a", "()V").
		SiPush(-300).
		InvokeStatic("com/x/B", "b", "()V").
		Return().Class())

	var ints []int32
	Walk(class, class.Methods[0], WalkHandler{
		Call: func(_ Site, _ classfile.MethodCall, wc *WalkContext) {
			if wc.HasInteger {
				ints = append(ints, wc.LastInteger)
			}
		},
	})
	assert.Equal(t, []int32{5, -300}, ints)
}

func TestWalkContextStartsEmptyPerMethod(t *testing.T) {
	b := method("com/x/A").LdcString("cmd.exe").Return().Class()
	b.Method(classfile.AccPublic, "other", "()V").
		InvokeVirtual("java/lang/Runtime", "exec", "(Ljava/lang/String;)Ljava/lang/Process;").
		Return()
	class := decode(t, b)

	var calls int
	for _, m := range class.Methods {
		Walk(class, m, WalkHandler{Call: func(_ Site, _ classfile.MethodCall, wc *WalkContext) {
			calls++
			assert.False(t, wc.HasString)
		}})
	}
	assert.Equal(t, 1, calls)
}

func TestWalkSkipsMethodsWithoutCode(t *testing.T) {
	b := classtest.NewClass("com/x/Abstract")
	b.Method(classfile.AccPublic|classfile.AccAbstract, "run", "()V")
	class := decode(t, b)

	called := false
	Walk(class, class.Methods[0], WalkHandler{Call: func(Site, classfile.MethodCall, *WalkContext) { called = true }})
	Walk(class, nil, WalkHandler{})
	assert.False(t, called)
}
