// Package layout analyzes member placement: padding detection, natural
// size estimation and packing suggestions for emitted headers.
package layout

import (
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/ddon-research/ddon-dwarf-reconstructor/internal/entity"
)

// Info summarizes the packing characteristics of one aggregate.
type Info struct {
	SuggestedPacking int   // 1, 4 or 8
	TotalPadding     int64 // bytes of padding between and after members
	NaturalSize      int64 // sum of estimated member sizes
	ActualSize       int64 // byte size reported by the debug info
}

// Gap is one padding region between members.
type Gap struct {
	AfterMember string
	Offset      int64
	Size        int64
}

// Analyze derives packing info from the entity's member offsets. Members
// without a known offset are ignored.
func Analyze(e *entity.Entity) Info {
	info := Info{SuggestedPacking: 1, ActualSize: e.ByteSize}

	members := placedMembers(e)
	if len(members) == 0 {
		return info
	}

	var lastOffset, lastSize int64
	for i, m := range members {
		size := EstimateSize(m.Type)
		if i > 0 {
			expected := lastOffset + lastSize
			if pad := m.Offset - expected; pad > 0 {
				info.TotalPadding += pad
				slog.Debug("padding detected", "entity", e.Name, "bytes", pad, "expected", expected, "actual", m.Offset)
			}
		}
		info.NaturalSize += size
		lastOffset = m.Offset
		lastSize = size
	}

	if tail := e.ByteSize - (lastOffset + lastSize); tail > 0 {
		info.TotalPadding += tail
	}

	switch {
	case info.TotalPadding == 0:
		info.SuggestedPacking = 1
	case float64(info.TotalPadding) <= float64(e.ByteSize)*0.1:
		info.SuggestedPacking = 4
	default:
		info.SuggestedPacking = 8
	}

	return info
}

// Gaps lists every padding region, including tail padding.
func Gaps(e *entity.Entity) []Gap {
	members := placedMembers(e)
	if len(members) == 0 {
		return nil
	}

	var gaps []Gap
	var current int64
	for i, m := range members {
		if m.Offset > current {
			after := "start"
			if i > 0 {
				after = members[i-1].Name
			}
			gaps = append(gaps, Gap{AfterMember: after, Offset: current, Size: m.Offset - current})
		}
		current = m.Offset + EstimateSize(m.Type)
	}
	if current < e.ByteSize {
		gaps = append(gaps, Gap{
			AfterMember: members[len(members)-1].Name,
			Offset:      current,
			Size:        e.ByteSize - current,
		})
	}
	return gaps
}

// PragmaPack renders the pack directive for the suggested packing, or ""
// when the platform default (8) already matches.
func PragmaPack(info Info) string {
	switch info.SuggestedPacking {
	case 1:
		return "#pragma pack(push, 1)"
	case 4:
		return "#pragma pack(push, 4)"
	}
	return ""
}

// placedMembers returns non-static members with known offsets, sorted by
// offset.
func placedMembers(e *entity.Entity) []entity.Member {
	members := make([]entity.Member, 0, len(e.Members))
	for _, m := range e.Members {
		if m.Offset >= 0 && !m.Static {
			members = append(members, m)
		}
	}
	slices.SortStableFunc(members, func(a, b entity.Member) int {
		return int(a.Offset - b.Offset)
	})
	return members
}

var typeSizes = map[string]int64{
	"bool": 1, "char": 1, "u8": 1, "s8": 1, "uint8_t": 1, "int8_t": 1,
	"u16": 2, "s16": 2, "short": 2, "uint16_t": 2, "int16_t": 2,
	"u32": 4, "s32": 4, "int": 4, "float": 4, "f32": 4, "uint32_t": 4, "int32_t": 4,
	"u64": 8, "s64": 8, "long": 8, "double": 8, "f64": 8, "size_t": 8,
	"uint64_t": 8, "int64_t": 8, "void*": 8,
}

// EstimateSize gives a rough byte size for a display type. Pointers and
// unknown aggregates count as pointer-sized.
func EstimateSize(typeName string) int64 {
	clean := strings.TrimSpace(strings.ReplaceAll(typeName, "const ", ""))

	if strings.HasSuffix(clean, "*") || strings.HasSuffix(clean, "&") {
		return 8
	}

	if open := strings.IndexByte(clean, '['); open >= 0 {
		close := strings.IndexByte(clean, ']')
		if close > open {
			base := strings.TrimSpace(clean[:open])
			if dim, err := strconv.ParseInt(clean[open+1:close], 10, 64); err == nil {
				return EstimateSize(base) * dim
			}
		}
		return 8
	}

	if size, ok := typeSizes[clean]; ok {
		return size
	}
	return 8
}
