package entity

// opPlusUconst is the only location opcode member offsets are encoded with.
const opPlusUconst = 0x23

// memberOffset decodes DW_AT_data_member_location. DWARF3+ emits a plain
// constant; DWARF2 producers (PS3-era toolchains) emit a one-op expression
// block [DW_OP_plus_uconst, ULEB128]. Returns -1 when absent or
// undecodable.
func memberOffset(v any) int64 {
	switch loc := v.(type) {
	case int64:
		return loc
	case uint64:
		return int64(loc)
	case []byte:
		if len(loc) >= 2 && loc[0] == opPlusUconst {
			if n, ok := uleb128(loc[1:]); ok {
				return int64(n)
			}
		}
	}
	return -1
}

func uleb128(b []byte) (uint64, bool) {
	var v uint64
	var shift uint
	for _, c := range b {
		v |= uint64(c&0x7f) << shift
		if c&0x80 == 0 {
			return v, true
		}
		shift += 7
		if shift >= 64 {
			break
		}
	}
	return 0, false
}

// constValue renders DW_AT_const_value for static members and enumerators.
func constValue(v any) (int64, bool) {
	switch c := v.(type) {
	case int64:
		return c, true
	case uint64:
		return int64(c), true
	case []byte:
		if len(c) == 0 || len(c) > 8 {
			return 0, false
		}
		var n uint64
		for i := len(c) - 1; i >= 0; i-- {
			n = n<<8 | uint64(c[i])
		}
		return int64(n), true
	}
	return 0, false
}
