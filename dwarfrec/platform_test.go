package dwarfrec

import (
	"debug/elf"
	"encoding/binary"
	"testing"
)

func TestDetectPlatform(t *testing.T) {
	cases := []struct {
		machine elf.Machine
		order   binary.ByteOrder
		want    Platform
	}{
		{elf.EM_PPC64, binary.BigEndian, PlatformPS3},
		{elf.EM_X86_64, binary.LittleEndian, PlatformPS4},
		{elf.EM_PPC64, binary.LittleEndian, PlatformUnknown},
		{elf.EM_ARM, binary.LittleEndian, PlatformUnknown},
	}

	for _, tc := range cases {
		f := &elf.File{FileHeader: elf.FileHeader{Machine: tc.machine, ByteOrder: tc.order}}
		if got := detectPlatform(f); got != tc.want {
			t.Errorf("detectPlatform(%v, %v): expected %v, got %v", tc.machine, tc.order, tc.want, got)
		}
	}
}

func TestPlatformString(t *testing.T) {
	if PlatformPS3.String() != "PS3" || PlatformPS4.String() != "PS4" || PlatformUnknown.String() != "unknown" {
		t.Error("unexpected platform names")
	}
}

func TestDefaultTypedefs(t *testing.T) {
	td := PlatformPS3.DefaultTypedefs()
	if td["u32"] != "uint32_t" || td["s64"] != "int64_t" || td["f32"] != "float" {
		t.Errorf("unexpected typedefs: %v", td)
	}
}
