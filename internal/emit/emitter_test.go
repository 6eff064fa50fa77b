package emit

import (
	"debug/dwarf"
	"strings"
	"testing"

	"github.com/ddon-research/ddon-dwarf-reconstructor/internal/entity"
	"github.com/ddon-research/ddon-dwarf-reconstructor/internal/graph"
	"github.com/ddon-research/ddon-dwarf-reconstructor/internal/hierarchy"
)

// testIndex registers named class nodes so forward-declaration validation
// can resolve them.
func testIndex(classes map[string]dwarf.Offset) *graph.Index {
	ix := graph.NewIndex()
	for name, off := range classes {
		n := graph.NewNode(off, dwarf.TagClassType)
		n.SetAttr(dwarf.AttrName, name)
		n.SetAttr(dwarf.AttrByteSize, int64(8))
		ix.Add(n)
	}
	return ix
}

func TestHeaderGuardAndStructure(t *testing.T) {
	ix := testIndex(nil)
	res := &hierarchy.Result{
		Root:  "cEnemy",
		Chain: []string{"cEnemy"},
		Entities: map[string]*entity.Entity{
			"cEnemy": {Name: "cEnemy", Kind: entity.KindClass, ByteSize: 8, Offset: 0x100},
		},
	}

	header := New(ix).Header(res, Options{})

	if !strings.HasPrefix(header, "#ifndef CENEMY_HIERARCHY_H\n#define CENEMY_HIERARCHY_H\n") {
		t.Errorf("missing include guard:\n%s", header)
	}
	if !strings.HasSuffix(header, "#endif // CENEMY_HIERARCHY_H\n") {
		t.Errorf("missing guard close:\n%s", header)
	}
	if !strings.Contains(header, "#include <cstdint>") {
		t.Error("missing cstdint include")
	}
	if !strings.Contains(header, "class cEnemy\n{\n};") {
		t.Errorf("missing class body:\n%s", header)
	}
}

func TestHeaderIdempotent(t *testing.T) {
	ix := testIndex(nil)
	res := &hierarchy.Result{
		Root:  "cItem",
		Chain: []string{"cItem"},
		Entities: map[string]*entity.Entity{
			"cItem": {Name: "cItem", Kind: entity.KindClass},
		},
	}

	em := New(ix)
	first := em.Header(res, Options{IncludeMetadata: true})
	second := em.Header(res, Options{IncludeMetadata: true})
	if first != second {
		t.Error("same input must render identical headers")
	}
}

func TestHeaderChainOrderFarthestFirst(t *testing.T) {
	ix := testIndex(nil)
	res := &hierarchy.Result{
		Root:  "cEnemy",
		Chain: []string{"MtObject", "MtModel", "cEnemy"},
		Entities: map[string]*entity.Entity{
			"cEnemy":   {Name: "cEnemy", Kind: entity.KindClass, Bases: []string{"MtModel"}},
			"MtModel":  {Name: "MtModel", Kind: entity.KindClass, Bases: []string{"MtObject"}},
			"MtObject": {Name: "MtObject", Kind: entity.KindClass},
		},
	}

	header := New(ix).Header(res, Options{})

	obj := strings.Index(header, "class MtObject")
	model := strings.Index(header, "class MtModel")
	enemy := strings.Index(header, "class cEnemy")
	if obj < 0 || model < 0 || enemy < 0 {
		t.Fatalf("missing class definitions:\n%s", header)
	}
	if !(obj < model && model < enemy) {
		t.Errorf("expected MtObject < MtModel < cEnemy, got %d %d %d", obj, model, enemy)
	}
	if !strings.Contains(header, "class cEnemy : public MtModel") {
		t.Errorf("missing inheritance clause:\n%s", header)
	}
}

func TestHeaderTopologicalDependencyOrder(t *testing.T) {
	ix := testIndex(nil)
	// cZeta embeds cAlpha by value, so cAlpha must come first even though
	// alphabetical order already says so; reverse the roles to prove the
	// sort is topological, not alphabetical.
	res := &hierarchy.Result{
		Root:  "cRoot",
		Chain: []string{"cRoot"},
		Entities: map[string]*entity.Entity{
			"cRoot": {Name: "cRoot", Kind: entity.KindClass, Members: []entity.Member{
				{Name: "mA", Type: "cAlpha*", TypeRef: 0x10},
				{Name: "mZ", Type: "cZeta*", TypeRef: 0x20},
			}},
			"cAlpha": {Name: "cAlpha", Kind: entity.KindClass, Members: []entity.Member{
				{Name: "mInner", Type: "cZeta", TypeRef: 0x20},
			}},
			"cZeta": {Name: "cZeta", Kind: entity.KindClass},
		},
	}

	header := New(ix).Header(res, Options{})

	zeta := strings.Index(header, "class cZeta")
	alpha := strings.Index(header, "class cAlpha")
	if zeta < 0 || alpha < 0 {
		t.Fatalf("missing definitions:\n%s", header)
	}
	if zeta > alpha {
		t.Errorf("by-value dependency cZeta must precede cAlpha:\n%s", header)
	}
}

func TestHeaderForwardDeclsOnlyForUndefined(t *testing.T) {
	ix := testIndex(map[string]dwarf.Offset{
		"cWeapon":  0x10,
		"cDefined": 0x20,
	})
	res := &hierarchy.Result{
		Root:  "cHuman",
		Chain: []string{"cHuman"},
		Entities: map[string]*entity.Entity{
			"cHuman": {Name: "cHuman", Kind: entity.KindClass, Members: []entity.Member{
				{Name: "mWeapon", Type: "cWeapon*", TypeRef: 0x10},
				{Name: "mOther", Type: "cDefined*", TypeRef: 0x20},
			}},
			"cDefined": {Name: "cDefined", Kind: entity.KindClass, Offset: 0x20},
		},
	}

	header := New(ix).Header(res, Options{})

	if !strings.Contains(header, "class cWeapon;") {
		t.Errorf("expected forward declaration for cWeapon:\n%s", header)
	}
	if strings.Contains(header, "class cDefined;") {
		t.Errorf("defined entity must not be forward-declared:\n%s", header)
	}
	if !strings.Contains(header, "class cDefined\n") {
		t.Errorf("expected full definition of cDefined:\n%s", header)
	}
}

func TestHeaderForwardDeclKeywordMatchesTag(t *testing.T) {
	ix := graph.NewIndex()
	str := graph.NewNode(0x10, dwarf.TagStructType)
	str.SetAttr(dwarf.AttrName, "sVec3")
	ix.Add(str)
	uni := graph.NewNode(0x20, dwarf.TagUnionType)
	uni.SetAttr(dwarf.AttrName, "uColor")
	ix.Add(uni)
	cls := graph.NewNode(0x30, dwarf.TagClassType)
	cls.SetAttr(dwarf.AttrName, "cCamera")
	ix.Add(cls)

	res := &hierarchy.Result{
		Root:  "cScene",
		Chain: []string{"cScene"},
		Entities: map[string]*entity.Entity{
			"cScene": {Name: "cScene", Kind: entity.KindClass, Members: []entity.Member{
				{Name: "mPos", Type: "sVec3*", TypeRef: 0x10},
				{Name: "mTint", Type: "uColor*", TypeRef: 0x20},
				{Name: "mCamera", Type: "cCamera*", TypeRef: 0x30},
			}},
		},
	}

	header := New(ix).Header(res, Options{})

	if !strings.Contains(header, "struct sVec3;") {
		t.Errorf("struct tag must declare with struct keyword:\n%s", header)
	}
	if !strings.Contains(header, "union uColor;") {
		t.Errorf("union tag must declare with union keyword:\n%s", header)
	}
	if !strings.Contains(header, "class cCamera;") {
		t.Errorf("class tag must declare with class keyword:\n%s", header)
	}
}

func TestHeaderNeverForwardDeclaresEnums(t *testing.T) {
	ix := graph.NewIndex()
	enum := graph.NewNode(0x10, dwarf.TagEnumerationType)
	enum.SetAttr(dwarf.AttrName, "eJob")
	ix.Add(enum)

	res := &hierarchy.Result{
		Root:  "cHuman",
		Chain: []string{"cHuman"},
		Entities: map[string]*entity.Entity{
			"cHuman": {Name: "cHuman", Kind: entity.KindClass, Members: []entity.Member{
				{Name: "mJob", Type: "eJob", TypeRef: 0x10},
			}},
		},
	}

	header := New(ix).Header(res, Options{})
	if strings.Contains(header, "class eJob;") {
		t.Errorf("enums must never be forward-declared:\n%s", header)
	}
}

func TestHeaderTypedefBlock(t *testing.T) {
	ix := testIndex(nil)
	res := &hierarchy.Result{
		Root:  "cItem",
		Chain: []string{"cItem"},
		Entities: map[string]*entity.Entity{
			"cItem": {Name: "cItem", Kind: entity.KindClass},
		},
	}

	header := New(ix).Header(res, Options{Typedefs: map[string]string{
		"u32": "uint32_t",
		"s8":  "int8_t",
	}})

	s8 := strings.Index(header, "typedef int8_t s8;")
	u32 := strings.Index(header, "typedef uint32_t u32;")
	if s8 < 0 || u32 < 0 {
		t.Fatalf("missing typedefs:\n%s", header)
	}
	if s8 > u32 {
		t.Error("typedefs must be sorted by name")
	}
}

func TestHeaderMetadataComments(t *testing.T) {
	ix := testIndex(nil)
	res := &hierarchy.Result{
		Root:  "cEnemy",
		Chain: []string{"MtObject", "cEnemy"},
		Entities: map[string]*entity.Entity{
			"cEnemy": {Name: "cEnemy", Kind: entity.KindClass, ByteSize: 16, Offset: 0x1234,
				Bases: []string{"MtObject"},
				Members: []entity.Member{
					{Name: "mHp", Type: "u32", Offset: 8},
				}},
			"MtObject": {Name: "MtObject", Kind: entity.KindClass, ByteSize: 8, Offset: 0x100},
		},
	}

	header := New(ix).Header(res, Options{IncludeMetadata: true})

	if !strings.Contains(header, "// - Size: 16 bytes") {
		t.Errorf("missing size metadata:\n%s", header)
	}
	if !strings.Contains(header, "// - Offset: 0x00001234") {
		t.Errorf("missing offset metadata:\n%s", header)
	}
	if !strings.Contains(header, "// - Inheritance Chain: MtObject -> cEnemy") {
		t.Errorf("missing chain metadata:\n%s", header)
	}
	if !strings.Contains(header, "u32 mHp;  // offset: 0x8") {
		t.Errorf("missing member offset comment:\n%s", header)
	}

	bare := New(ix).Header(res, Options{})
	if strings.Contains(bare, "// - Size:") {
		t.Error("metadata must be omitted when disabled")
	}
}

func TestFormatMemberArrayDeclarator(t *testing.T) {
	m := entity.Member{Name: "mTable", Type: "u32[4][2]"}
	if got := formatMember(m); got != "u32 mTable[4][2]" {
		t.Errorf("expected 'u32 mTable[4][2]', got %q", got)
	}

	static := entity.Member{Name: "LUT", Type: "u8[16]", Static: true, Const: true}
	if got := formatMember(static); got != "static const u8 LUT[16]" {
		t.Errorf("expected 'static const u8 LUT[16]', got %q", got)
	}

	bitfield := entity.Member{Name: "mFlags", Type: "u32", BitSize: 3}
	if got := formatMember(bitfield); got != "u32 mFlags : 3" {
		t.Errorf("expected 'u32 mFlags : 3', got %q", got)
	}

	constant := entity.Member{Name: "MAX", Type: "int", Static: true, Const: true, ConstValue: "64"}
	if got := formatMember(constant); got != "static const int MAX = 64" {
		t.Errorf("expected 'static const int MAX = 64', got %q", got)
	}
}

func TestWriteEntityMethodsAndNested(t *testing.T) {
	ix := testIndex(nil)
	res := &hierarchy.Result{
		Root:  "cActor",
		Chain: []string{"cActor"},
		Entities: map[string]*entity.Entity{
			"cActor": {
				Name: "cActor", Kind: entity.KindClass, ByteSize: 32,
				Enums: []entity.Enum{{
					Name: "eMode", ByteSize: 4,
					Enumerators: []entity.Enumerator{{Name: "ON", Value: 1}, {Name: "OFF", Value: 0}},
				}},
				Methods: []entity.Method{
					{Name: "cActor", Constructor: true, ReturnType: "void",
						Params: []entity.Param{{Name: "this", Type: "cActor*", Artificial: true}}},
					{Name: "~cActor", Destructor: true, Virtual: true, ReturnType: "void"},
					{Name: "update", Virtual: true, ReturnType: "void", VTableSlot: 2,
						Params: []entity.Param{
							{Name: "this", Type: "cActor*", Artificial: true},
							{Name: "dt", Type: "float"},
						}},
					{Name: "id", ReturnType: "u32"},
				},
			},
		},
	}

	header := New(ix).Header(res, Options{})

	if !strings.Contains(header, "enum class eMode\n    {\n        ON = 1,\n        OFF = 0\n    };") {
		t.Errorf("unexpected enum rendering:\n%s", header)
	}
	if !strings.Contains(header, "    cActor();\n") {
		t.Errorf("constructor must drop artificial params:\n%s", header)
	}
	if !strings.Contains(header, "    virtual ~cActor();\n") {
		t.Errorf("missing virtual destructor:\n%s", header)
	}
	if !strings.Contains(header, "    virtual void update(float dt);\n") {
		t.Errorf("missing virtual method:\n%s", header)
	}
	if !strings.Contains(header, "    u32 id();\n") {
		t.Errorf("missing plain method:\n%s", header)
	}
}
