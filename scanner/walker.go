package scanner

import (
	"jarsentry/classfile"
	"jarsentry/threat"
)

// WalkContext carries the most recent constants of a method walk.
type WalkContext struct {
	LastString  string
	HasString   bool
	LastInteger int32
	HasInteger  bool
}

func (c *WalkContext) ClearString() {
	c.LastString = ""
	c.HasString = false
}

// WalkHandler receives walk events. Nil callbacks are skipped.
type WalkHandler struct {
	// Constant fires for string constants after LastString is updated.
	Constant func(site Site, value string, wc *WalkContext)
	Call     func(site Site, call classfile.MethodCall, wc *WalkContext)
	NewArray func(site Site, elementType string, wc *WalkContext)
}

// Walk visits the instructions of one method in order. The context starts
// empty and is only changed by constant loads or by the handler itself.
func Walk(class *classfile.Class, method *classfile.Method, h WalkHandler) {
	if method == nil || len(method.Instructions) == 0 {
		return
	}
	site := Site{Method: method.Name}
	if class != nil {
		site.Class = class.Name
	}
	var wc WalkContext
	for i := range method.Instructions {
		ins := &method.Instructions[i]
		switch ins.Kind {
		case classfile.LoadConstant:
			switch ins.Constant.Kind {
			case classfile.ConstString:
				wc.LastString = ins.Constant.String
				wc.HasString = true
				if h.Constant != nil {
					h.Constant(site, ins.Constant.String, &wc)
				}
			case classfile.ConstInteger:
				wc.LastInteger = ins.Constant.Int
				wc.HasInteger = true
			}
		case classfile.Invoke:
			if h.Call != nil {
				h.Call(site, ins.Call, &wc)
			}
		case classfile.NewTypedArray:
			if h.NewArray != nil {
				h.NewArray(site, ins.ElementType, &wc)
			}
		}
	}
}

// scanClass runs a checker over every method of a class.
func scanClass(checker Checker, class *classfile.Class) []threat.Finding {
	var out []threat.Finding
	arrays, _ := checker.(arrayAnalyzer)
	filter, _ := checker.(contextFilter)

	h := WalkHandler{
		Constant: func(site Site, value string, wc *WalkContext) {
			found := checker.AnalyzeConstant(site, value)
			out = append(out, found...)
			if filter != nil && !filter.RetainContext(value, found) {
				wc.ClearString()
			}
		},
		Call: func(site Site, call classfile.MethodCall, wc *WalkContext) {
			out = append(out, checker.AnalyzeCall(site, call, wc.LastString, wc.HasString)...)
		},
	}
	if arrays != nil {
		h.NewArray = func(site Site, elementType string, _ *WalkContext) {
			out = append(out, arrays.AnalyzeNewArray(site, elementType)...)
		}
	}
	for _, m := range class.Methods {
		Walk(class, m, h)
	}
	return out
}
