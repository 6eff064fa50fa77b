package dwarfrec

import (
	"debug/elf"
	"encoding/binary"
)

// Platform is the console family a binary was built for, detected from
// the ELF machine and byte order.
type Platform int

const (
	PlatformUnknown Platform = iota
	PlatformPS3              // PowerPC64, big endian
	PlatformPS4              // x86-64, little endian
)

func (p Platform) String() string {
	switch p {
	case PlatformPS3:
		return "PS3"
	case PlatformPS4:
		return "PS4"
	}
	return "unknown"
}

// DefaultTypedefs returns the fixed-width aliases game SDKs of the
// platform conventionally define.
func (p Platform) DefaultTypedefs() map[string]string {
	base := map[string]string{
		"u8":  "uint8_t",
		"u16": "uint16_t",
		"u32": "uint32_t",
		"u64": "uint64_t",
		"s8":  "int8_t",
		"s16": "int16_t",
		"s32": "int32_t",
		"s64": "int64_t",
		"f32": "float",
		"f64": "double",
	}
	return base
}

func detectPlatform(f *elf.File) Platform {
	switch {
	case f.Machine == elf.EM_PPC64 && f.ByteOrder == binary.BigEndian:
		return PlatformPS3
	case f.Machine == elf.EM_X86_64 && f.ByteOrder == binary.LittleEndian:
		return PlatformPS4
	}
	return PlatformUnknown
}
