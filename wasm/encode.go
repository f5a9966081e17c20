package wasm

// Append-style encoding helpers, enough to assemble small host-side modules
// such as the spectest import environment. Each helper appends to dst and
// returns the extended slice.

// AppendSection appends a section header and payload.
func AppendSection(dst []byte, id byte, payload []byte) []byte {
	dst = append(dst, id)
	dst = AppendU32(dst, uint32(len(payload)))
	return append(dst, payload...)
}

// AppendName appends a length-prefixed UTF-8 name.
func AppendName(dst []byte, s string) []byte {
	dst = AppendU32(dst, uint32(len(s)))
	return append(dst, s...)
}

// AppendFuncType appends one type-section entry.
func AppendFuncType(dst []byte, ft FuncType) []byte {
	dst = append(dst, funcTypeTag)
	dst = AppendU32(dst, uint32(len(ft.Params)))
	for _, t := range ft.Params {
		dst = append(dst, byte(t))
	}
	dst = AppendU32(dst, uint32(len(ft.Results)))
	for _, t := range ft.Results {
		dst = append(dst, byte(t))
	}
	return dst
}

// AppendLimits appends table or memory limits.
func AppendLimits(dst []byte, lim Limits) []byte {
	if lim.HasMax {
		dst = append(dst, 0x01)
		dst = AppendU32(dst, lim.Min)
		return AppendU32(dst, lim.Max)
	}
	dst = append(dst, 0x00)
	return AppendU32(dst, lim.Min)
}

// AppendExport appends one export-section entry.
func AppendExport(dst []byte, e Export) []byte {
	dst = AppendName(dst, e.Name)
	dst = append(dst, byte(e.Kind))
	return AppendU32(dst, e.Index)
}

// AppendI32Const appends an i32.const init expression with terminator.
func AppendI32Const(dst []byte, v int32) []byte {
	dst = append(dst, OpI32Const)
	dst = AppendS32(dst, v)
	return append(dst, OpEnd)
}
