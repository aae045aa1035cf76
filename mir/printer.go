package mir

import (
	"fmt"
	"strings"
)

// Disassemble returns a human-readable listing of fn.
func (f *Function) Disassemble() string {
	var sb strings.Builder

	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		t := "?"
		if l := f.Local(p); l != nil {
			t = l.Type.String()
		}
		params[i] = fmt.Sprintf("_%d: %s", p, t)
	}
	sb.WriteString(fmt.Sprintf("fn %s(%s) -> %s {\n", f.Name, strings.Join(params, ", "), f.Returns))

	if len(f.Locals) > 0 {
		sb.WriteString("    // Locals:\n")
		for i, l := range f.Locals {
			sb.WriteString(fmt.Sprintf("    // _%d: %s", i, l.Type))
			if l.Name != "" {
				sb.WriteString(" (" + l.Name + ")")
			}
			if l.Addressable {
				sb.WriteString(" [addr]")
			}
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	reach := Reachable(f)
	preds := Predecessors(f)
	for i, b := range f.Blocks {
		if b == nil {
			sb.WriteString(fmt.Sprintf("    bb%d: <missing>\n", i))
			continue
		}
		sb.WriteString(fmt.Sprintf("    bb%d: {", b.ID))
		switch {
		case !reach[i]:
			sb.WriteString(" // dead")
		case b.IsForwarding():
			sb.WriteString(" // forwarding")
		}
		sb.WriteString("\n")
		if len(preds[i]) > 0 {
			names := make([]string, len(preds[i]))
			for j, p := range preds[i] {
				names[j] = fmt.Sprintf("bb%d", p)
			}
			sb.WriteString("        // predecessors: [" + strings.Join(names, ", ") + "]\n")
		}
		for j := range b.Stmts {
			sb.WriteString("        " + b.Stmts[j].String() + ";\n")
		}
		sb.WriteString("        " + b.Term.String() + ";\n")
		sb.WriteString("    }\n")
	}
	sb.WriteString("}\n")
	return sb.String()
}

// Disassemble lists every function of the program.
func (p *Program) Disassemble() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("; ===== MIR Program: %s =====\n\n", p.Name))
	for _, s := range p.Structs {
		fields := make([]string, len(s.Fields))
		for i, f := range s.Fields {
			fields[i] = f.Name + ": " + f.Type.String()
		}
		sb.WriteString(fmt.Sprintf("struct %s { %s }\n", s.Name, strings.Join(fields, ", ")))
	}
	for _, vt := range p.VTables {
		entries := make([]string, len(vt.Entries))
		for i, e := range vt.Entries {
			entries[i] = e.Method + " => " + e.Func
		}
		sb.WriteString(fmt.Sprintf("vtable %s for %s as %s { %s }\n", vt.Name, vt.Type, vt.Interface, strings.Join(entries, ", ")))
	}
	if len(p.Structs)+len(p.VTables) > 0 {
		sb.WriteString("\n")
	}
	for _, f := range p.Functions {
		sb.WriteString(f.Disassemble())
		sb.WriteString("\n")
	}
	return sb.String()
}
