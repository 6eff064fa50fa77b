// Package entity holds the parsed representation of one aggregate type and
// the parser that builds it from the debug-info graph.
package entity

import "debug/dwarf"

// Kind is the aggregate category of an entity.
type Kind string

const (
	KindClass  Kind = "class"
	KindStruct Kind = "struct"
	KindUnion  Kind = "union"
)

// Member is one data member of an aggregate.
type Member struct {
	Name       string       `json:"name"`
	Type       string       `json:"type"`
	TypeRef    dwarf.Offset `json:"typeRef,omitempty"`
	Offset     int64        `json:"offset"` // byte offset, -1 when unknown
	BitSize    int64        `json:"bitSize,omitempty"`
	Static     bool         `json:"static,omitempty"`
	Const      bool         `json:"const,omitempty"`
	ConstValue string       `json:"constValue,omitempty"`
}

// Param is one formal parameter of a method.
type Param struct {
	Name       string       `json:"name"`
	Type       string       `json:"type"`
	TypeRef    dwarf.Offset `json:"typeRef,omitempty"`
	Artificial bool         `json:"artificial,omitempty"` // implicit this
}

// Method is one operation of an aggregate.
type Method struct {
	Name        string       `json:"name"`
	ReturnType  string       `json:"returnType"`
	ReturnRef   dwarf.Offset `json:"returnRef,omitempty"`
	Params      []Param      `json:"params,omitempty"`
	Virtual     bool         `json:"virtual,omitempty"`
	VTableSlot  int          `json:"vtableSlot"` // -1 when not virtual or unknown
	Constructor bool         `json:"constructor,omitempty"`
	Destructor  bool         `json:"destructor,omitempty"`
}

// Enumerator is one named value of an enum.
type Enumerator struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
}

// Enum is a nested enumeration definition.
type Enum struct {
	Name        string       `json:"name"`
	ByteSize    int64        `json:"byteSize"`
	Enumerators []Enumerator `json:"enumerators,omitempty"`
	Offset      dwarf.Offset `json:"offset,omitempty"`
}

// Struct is a nested structure definition.
type Struct struct {
	Name     string       `json:"name,omitempty"` // empty for anonymous
	ByteSize int64        `json:"byteSize"`
	Members  []Member     `json:"members,omitempty"`
	Offset   dwarf.Offset `json:"offset,omitempty"`
}

// Union is a nested (possibly anonymous) union definition.
type Union struct {
	Name     string       `json:"name,omitempty"`
	ByteSize int64        `json:"byteSize"`
	Members  []Member     `json:"members,omitempty"`
	Structs  []Struct     `json:"structs,omitempty"`
	Offset   dwarf.Offset `json:"offset,omitempty"`
}

// Entity is the parsed form of one aggregate type. Immutable once built;
// references to other types stay as offsets, never as pointers to other
// entities.
type Entity struct {
	Name      string         `json:"name"`
	Kind      Kind           `json:"kind"`
	ByteSize  int64          `json:"byteSize"`
	Alignment int64          `json:"alignment,omitempty"`
	Members   []Member       `json:"members,omitempty"`
	Methods   []Method       `json:"methods,omitempty"`
	Bases     []string       `json:"bases,omitempty"`
	BaseRefs  []dwarf.Offset `json:"baseRefs,omitempty"`
	Enums     []Enum         `json:"enums,omitempty"`
	Structs   []Struct       `json:"structs,omitempty"`
	Unions    []Union        `json:"unions,omitempty"`
	Offset    dwarf.Offset   `json:"offset"`
}
