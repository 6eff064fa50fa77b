package emit

import (
	"fmt"
	"slices"
	"strings"

	"github.com/ddon-research/ddon-dwarf-reconstructor/internal/entity"
	"github.com/ddon-research/ddon-dwarf-reconstructor/internal/layout"
)

func (em *Emitter) writeEntity(b *strings.Builder, e *entity.Entity, opts Options) {
	if opts.IncludeMetadata {
		info := layout.Analyze(e)
		fmt.Fprintf(b, "// %s\n", e.Name)
		fmt.Fprintf(b, "// - Size: %d bytes\n", e.ByteSize)
		fmt.Fprintf(b, "// - Offset: 0x%08x\n", uint64(e.Offset))
		fmt.Fprintf(b, "// - Suggested Packing: %d bytes\n", info.SuggestedPacking)
		if info.TotalPadding > 0 {
			fmt.Fprintf(b, "// - Total Padding: %d bytes\n", info.TotalPadding)
		}
		if len(e.Bases) > 0 {
			fmt.Fprintf(b, "// - Inherits from: %s\n", strings.Join(e.Bases, ", "))
		}
	}

	keyword := "class"
	if e.Kind == entity.KindStruct {
		keyword = "struct"
	} else if e.Kind == entity.KindUnion {
		keyword = "union"
	}

	alignAttr := ""
	if e.Alignment > 1 {
		alignAttr = fmt.Sprintf(" __attribute__((aligned(%d)))", e.Alignment)
	}

	inherit := ""
	if len(e.Bases) > 0 {
		inherit = " : public " + strings.Join(e.Bases, ", public ")
	}

	fmt.Fprintf(b, "%s%s %s%s\n{\n", keyword, alignAttr, e.Name, inherit)

	if len(e.Enums) > 0 {
		b.WriteString("public:\n")
		for _, en := range e.Enums {
			writeEnum(b, en, opts.IncludeMetadata)
		}
	}

	if len(e.Structs) > 0 {
		b.WriteString("public:\n")
		for _, s := range e.Structs {
			writeStruct(b, s)
		}
	}

	if len(e.Unions) > 0 {
		b.WriteString("public:\n")
		for _, u := range e.Unions {
			writeUnion(b, u)
		}
	}

	var virtual, regular []entity.Method
	for _, m := range e.Methods {
		if m.Virtual {
			virtual = append(virtual, m)
		} else {
			regular = append(regular, m)
		}
	}
	if len(virtual) > 0 {
		b.WriteString("public:\n")
		writeMethods(b, virtual)
	}
	if len(regular) > 0 {
		b.WriteString("public:\n")
		writeMethods(b, regular)
	}

	if len(e.Members) > 0 {
		b.WriteString("public:\n")

		var instance, static []entity.Member
		for _, m := range e.Members {
			if m.Static {
				static = append(static, m)
			} else {
				instance = append(instance, m)
			}
		}
		for _, m := range instance {
			decl := formatMember(m)
			if m.Offset >= 0 {
				fmt.Fprintf(b, "    %s;  // offset: 0x%x\n", decl, m.Offset)
			} else {
				fmt.Fprintf(b, "    %s;\n", decl)
			}
		}
		if len(static) > 0 {
			b.WriteString("\n    // Static members\n")
			for _, m := range static {
				fmt.Fprintf(b, "    %s;\n", formatMember(m))
			}
		}
	}

	b.WriteString("};\n")
}

// formatMember renders one member declaration. Array dimensions move from
// the type to the declarator: "u32[4] data" becomes "u32 data[4]".
func formatMember(m entity.Member) string {
	typeName := m.Type
	dims := ""
	if i := strings.IndexByte(typeName, '['); i >= 0 {
		dims = typeName[i:]
		typeName = strings.TrimSpace(typeName[:i])
	}

	if m.Name == "" {
		return typeName + dims
	}

	var b strings.Builder
	if m.Static {
		b.WriteString("static ")
		if m.Const && !strings.HasPrefix(typeName, "const ") {
			b.WriteString("const ")
		}
	}
	b.WriteString(typeName)
	b.WriteByte(' ')
	b.WriteString(m.Name)
	b.WriteString(dims)
	if m.BitSize > 0 {
		fmt.Fprintf(&b, " : %d", m.BitSize)
	}
	if m.Static && m.Const && m.ConstValue != "" {
		b.WriteString(" = ")
		b.WriteString(m.ConstValue)
	}
	return b.String()
}

func writeMethods(b *strings.Builder, methods []entity.Method) {
	var ctors, dtors, operators, rest []entity.Method
	for _, m := range methods {
		switch {
		case m.Constructor:
			ctors = append(ctors, m)
		case m.Destructor:
			dtors = append(dtors, m)
		case strings.HasPrefix(m.Name, "operator"):
			operators = append(operators, m)
		default:
			rest = append(rest, m)
		}
	}

	for _, m := range ctors {
		fmt.Fprintf(b, "    %s(%s);\n", m.Name, formatParams(m))
	}
	for _, m := range dtors {
		prefix := ""
		if m.Virtual {
			prefix = "virtual "
		}
		fmt.Fprintf(b, "    %s%s();\n", prefix, m.Name)
	}
	for _, m := range append(rest, operators...) {
		prefix := ""
		if m.Virtual {
			prefix = "virtual "
		}
		ret := m.ReturnType
		if ret == "" {
			ret = "void"
		}
		fmt.Fprintf(b, "    %s%s %s(%s);\n", prefix, ret, m.Name, formatParams(m))
	}
}

// formatParams renders the parameter list, skipping the artificial this
// parameter.
func formatParams(m entity.Method) string {
	parts := make([]string, 0, len(m.Params))
	for _, p := range m.Params {
		if p.Artificial {
			continue
		}
		parts = append(parts, p.Type+" "+p.Name)
	}
	return strings.Join(parts, ", ")
}

func writeEnum(b *strings.Builder, en entity.Enum, metadata bool) {
	if metadata {
		fmt.Fprintf(b, "    // Enum %s (%d bytes)\n", en.Name, en.ByteSize)
	}
	fmt.Fprintf(b, "    enum class %s\n    {\n", en.Name)
	for i, v := range en.Enumerators {
		comma := ","
		if i == len(en.Enumerators)-1 {
			comma = ""
		}
		fmt.Fprintf(b, "        %s = %d%s\n", v.Name, v.Value, comma)
	}
	b.WriteString("    };\n\n")
}

func writeStruct(b *strings.Builder, s entity.Struct) {
	name := s.Name
	if name == "" {
		name = "anonymous_struct"
	}
	fmt.Fprintf(b, "    // Struct %s (%d bytes)\n", name, s.ByteSize)
	fmt.Fprintf(b, "    struct %s\n    {\n", name)
	for _, m := range sortByOffset(s.Members) {
		writeNestedMember(b, m, "        ")
	}
	b.WriteString("    };\n\n")
}

func writeUnion(b *strings.Builder, u entity.Union) {
	fmt.Fprintf(b, "    // Union %s (%d bytes)\n", displayOr(u.Name, "(anonymous)"), u.ByteSize)
	if u.Name != "" {
		fmt.Fprintf(b, "    union %s\n    {\n", u.Name)
	} else {
		b.WriteString("    union\n    {\n")
	}

	for _, s := range u.Structs {
		if s.Name != "" {
			fmt.Fprintf(b, "        struct %s\n        {\n", s.Name)
		} else {
			b.WriteString("        struct\n        {\n")
		}
		for _, m := range sortByOffset(s.Members) {
			writeNestedMember(b, m, "            ")
		}
		if s.Name != "" {
			fmt.Fprintf(b, "        } %s;\n", s.Name)
		} else {
			b.WriteString("        };\n")
		}
	}

	for _, m := range u.Members {
		if m.Name == "" {
			continue
		}
		writeNestedMember(b, m, "        ")
	}

	b.WriteString("    };\n\n")
}

func writeNestedMember(b *strings.Builder, m entity.Member, indent string) {
	decl := formatMember(m)
	if m.Offset >= 0 {
		fmt.Fprintf(b, "%s%s;  // offset %d\n", indent, decl, m.Offset)
	} else {
		fmt.Fprintf(b, "%s%s;\n", indent, decl)
	}
}

func sortByOffset(members []entity.Member) []entity.Member {
	sorted := slices.Clone(members)
	slices.SortStableFunc(sorted, func(a, b entity.Member) int {
		return int(a.Offset - b.Offset)
	})
	return sorted
}

func displayOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
