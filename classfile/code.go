/*
 * mappings-util - a JVM mappings engine
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package classfile

import "encoding/binary"

// DecodeCode decodes a method's Code attribute body (JVMS §4.7.3).
func DecodeCode(data []byte, cp *ConstantPool) (Code, error) {
	r := &reader{b: data}

	maxStack, err := r.u2()
	if err != nil {
		return Code{}, err
	}
	maxLocals, err := r.u2()
	if err != nil {
		return Code{}, err
	}
	codeLen, err := r.u4()
	if err != nil {
		return Code{}, err
	}
	codeBytes, err := r.bytes(int(codeLen))
	if err != nil {
		return Code{}, err
	}
	instrs, err := DecodeInstructions(codeBytes)
	if err != nil {
		return Code{}, err
	}

	excCount, err := r.u2()
	if err != nil {
		return Code{}, err
	}
	exc := make([]ExceptionTableEntry, 0, excCount)
	for i := 0; i < int(excCount); i++ {
		startPC, err := r.u2()
		if err != nil {
			return Code{}, err
		}
		endPC, err := r.u2()
		if err != nil {
			return Code{}, err
		}
		handlerPC, err := r.u2()
		if err != nil {
			return Code{}, err
		}
		catchIdx, err := r.u2()
		if err != nil {
			return Code{}, err
		}
		catchType := ""
		if catchIdx != 0 {
			catchType, err = cp.ClassName(catchIdx)
			if err != nil {
				return Code{}, err
			}
		}
		exc = append(exc, ExceptionTableEntry{
			StartPC: int(startPC), EndPC: int(endPC), HandlerPC: int(handlerPC), CatchType: catchType,
		})
	}

	nested, err := parseAttrs(r, cp)
	if err != nil {
		return Code{}, err
	}

	return Code{
		MaxStack: int(maxStack), MaxLocals: int(maxLocals),
		Instructions: instrs, ExceptionTable: exc, NestedAttrs: nested,
	}, nil
}

// EncodeCode serializes a Code value back into an attribute body,
// interning any new Class entries a rewritten exception catch type
// needs.
func EncodeCode(cp *ConstantPool, c Code) []byte {
	codeBytes := EncodeInstructions(c.Instructions)

	var body []byte
	body = append(body, u16be(uint16(c.MaxStack))...)
	body = append(body, u16be(uint16(c.MaxLocals))...)
	body = append(body, u32be(uint32(len(codeBytes)))...)
	body = append(body, codeBytes...)

	body = append(body, u16be(uint16(len(c.ExceptionTable)))...)
	for _, e := range c.ExceptionTable {
		var catchIdx uint16
		if e.CatchType != "" {
			catchIdx = cp.InternClass(e.CatchType)
		}
		body = append(body, u16be(uint16(e.StartPC))...)
		body = append(body, u16be(uint16(e.EndPC))...)
		body = append(body, u16be(uint16(e.HandlerPC))...)
		body = append(body, u16be(catchIdx)...)
	}

	body = append(body, u16be(uint16(len(c.NestedAttrs)))...)
	for _, a := range c.NestedAttrs {
		body = append(body, encodeAttr(cp, a)...)
	}

	return body
}

func u16be(v uint16) []byte {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, v)
	return b
}

func u32be(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

func encodeAttr(cp *ConstantPool, a Attr) []byte {
	var out []byte
	out = append(out, u16be(cp.InternUTF8(a.Name))...)
	out = append(out, u32be(uint32(len(a.Data)))...)
	out = append(out, a.Data...)
	return out
}
