/*
 * mappings-util - a JVM mappings engine
 * Licensed under Mozilla Public License 2.0 (MPL 2.0)
 */

package classfile

import "github.com/Weave-MC/mappings-util/mappingerrors"

// Instruction is one decoded bytecode instruction. Operands retains
// the exact original operand bytes (including tableswitch/lookupswitch
// padding), since remapping a class name or member name never changes
// an instruction's length or count, only the constant-pool index some
// opcodes embed -- branch offsets, switch tables, and local-variable
// indices all stay byte-identical across a rewrite.
type Instruction struct {
	Offset   int
	Opcode   byte
	Operands []byte
}

// cpOperand reports whether opcode carries a constant-pool index as
// its first operand bytes, and how wide that index is. Every opcode
// that references the pool (JVMS §6.5) places the index at operand
// offset 0, so this is the only position the rewriter needs.
func cpOperand(opcode byte) (present bool, width int) {
	switch opcode {
	case opLdc:
		return true, 1
	case opLdcW, opLdc2W,
		opGetstatic, opPutstatic, opGetfield, opPutfield,
		opInvokevirtual, opInvokespecial, opInvokestatic,
		opInvokeinterface, opInvokedynamic,
		opNew, opAnewarray, opCheckcast, opInstanceof,
		opMultianewarray:
		return true, 2
	default:
		return false, 0
	}
}

// CPIndex returns the constant-pool index this instruction references,
// and whether it references one at all.
func (in Instruction) CPIndex() (uint16, bool) {
	present, width := cpOperand(in.Opcode)
	if !present || len(in.Operands) < width {
		return 0, false
	}
	if width == 1 {
		return uint16(in.Operands[0]), true
	}
	return uint16(in.Operands[0])<<8 | uint16(in.Operands[1]), true
}

// SetCPIndex overwrites the constant-pool index operand in place. It
// is a no-op if the instruction doesn't carry one.
func (in *Instruction) SetCPIndex(idx uint16) {
	present, width := cpOperand(in.Opcode)
	if !present || width == 1 {
		if present {
			in.Operands[0] = byte(idx)
		}
		return
	}
	in.Operands[0] = byte(idx >> 8)
	in.Operands[1] = byte(idx)
}

const (
	opLdc             = 18
	opLdcW            = 19
	opLdc2W           = 20
	opTableswitch     = 170
	opLookupswitch    = 171
	opGetstatic       = 178
	opPutstatic       = 179
	opGetfield        = 180
	opPutfield        = 181
	opInvokevirtual   = 182
	opInvokespecial   = 183
	opInvokestatic    = 184
	opInvokeinterface = 185
	opInvokedynamic   = 186
	opNew             = 187
	opNewarray        = 188
	opAnewarray       = 189
	opCheckcast       = 192
	opInstanceof      = 193
	opWide            = 196
	opMultianewarray  = 197
)

// fixedOperandLen holds operand byte counts (excluding the opcode
// itself) for every opcode whose instruction length doesn't depend on
// its position in the stream. tableswitch, lookupswitch and wide are
// handled separately below.
var fixedOperandLen = map[byte]int{
	0: 0, 1: 0, 2: 0, 3: 0, 4: 0, 5: 0, 6: 0, 7: 0, 8: 0,
	9: 0, 10: 0, 11: 0, 12: 0, 13: 0, 14: 0, 15: 0,
	16: 1, 17: 2, 18: 1, 19: 2, 20: 2,
	21: 1, 22: 1, 23: 1, 24: 1, 25: 1,
	26: 0, 27: 0, 28: 0, 29: 0,
	30: 0, 31: 0, 32: 0, 33: 0,
	34: 0, 35: 0, 36: 0, 37: 0,
	38: 0, 39: 0, 40: 0, 41: 0,
	42: 0, 43: 0, 44: 0, 45: 0,
	46: 0, 47: 0, 48: 0, 49: 0, 50: 0, 51: 0, 52: 0, 53: 0,
	54: 1, 55: 1, 56: 1, 57: 1, 58: 1,
	59: 0, 60: 0, 61: 0, 62: 0,
	63: 0, 64: 0, 65: 0, 66: 0,
	67: 0, 68: 0, 69: 0, 70: 0,
	71: 0, 72: 0, 73: 0, 74: 0,
	75: 0, 76: 0, 77: 0, 78: 0,
	79: 0, 80: 0, 81: 0, 82: 0, 83: 0, 84: 0, 85: 0, 86: 0,
	87: 0, 88: 0, 89: 0, 90: 0, 91: 0, 92: 0, 93: 0, 94: 0, 95: 0,
	96: 0, 97: 0, 98: 0, 99: 0, 100: 0, 101: 0, 102: 0, 103: 0,
	104: 0, 105: 0, 106: 0, 107: 0, 108: 0, 109: 0, 110: 0, 111: 0,
	112: 0, 113: 0, 114: 0, 115: 0, 116: 0, 117: 0, 118: 0, 119: 0,
	120: 0, 121: 0, 122: 0, 123: 0, 124: 0, 125: 0, 126: 0, 127: 0,
	128: 0, 129: 0, 130: 0, 131: 0,
	132: 2, // iinc
	133: 0, 134: 0, 135: 0, 136: 0, 137: 0, 138: 0, 139: 0, 140: 0,
	141: 0, 142: 0, 143: 0, 144: 0, 145: 0, 146: 0, 147: 0,
	148: 0, 149: 0, 150: 0, 151: 0, 152: 0,
	153: 2, 154: 2, 155: 2, 156: 2, 157: 2, 158: 2,
	159: 2, 160: 2, 161: 2, 162: 2, 163: 2, 164: 2, 165: 2, 166: 2,
	167: 2, // goto
	168: 2, // jsr
	169: 1, // ret
	172: 0, 173: 0, 174: 0, 175: 0, 176: 0, 177: 0,
	178: 2, 179: 2, 180: 2, 181: 2,
	182: 2, 183: 2, 184: 2,
	185: 4, // invokeinterface: index(2) + count(1) + 0
	186: 4, // invokedynamic: index(2) + 0 + 0
	187: 2, // new
	188: 1, // newarray
	189: 2, // anewarray
	190: 0, 191: 0,
	192: 2, 193: 2, // checkcast, instanceof
	194: 0, 195: 0, // monitorenter, monitorexit
	197: 3, // multianewarray: index(2) + dims(1)
	198: 2, 199: 2, // ifnull, ifnonnull
	200: 4, 201: 4, // goto_w, jsr_w
}

// DecodeInstructions scans a Code attribute's bytecode into a slice of
// Instruction, preserving every operand byte verbatim.
func DecodeInstructions(code []byte) ([]Instruction, error) {
	var out []Instruction
	i := 0
	for i < len(code) {
		start := i
		op := code[i]
		i++

		switch op {
		case opTableswitch:
			pad := (4 - (i % 4)) % 4
			i += pad
			if i+12 > len(code) {
				return nil, mappingerrors.New(mappingerrors.IoError, "truncated tableswitch")
			}
			low := be32(code[i+4:])
			high := be32(code[i+8:])
			n := int(high-low) + 1
			if n < 0 {
				return nil, mappingerrors.New(mappingerrors.IoError, "malformed tableswitch bounds")
			}
			end := i + 12 + 4*n
			if end > len(code) {
				return nil, mappingerrors.New(mappingerrors.IoError, "truncated tableswitch table")
			}
			out = append(out, Instruction{Offset: start, Opcode: op, Operands: code[start+1 : end]})
			i = end

		case opLookupswitch:
			pad := (4 - (i % 4)) % 4
			i += pad
			if i+8 > len(code) {
				return nil, mappingerrors.New(mappingerrors.IoError, "truncated lookupswitch")
			}
			n := int(be32(code[i+4:]))
			if n < 0 {
				return nil, mappingerrors.New(mappingerrors.IoError, "malformed lookupswitch count")
			}
			end := i + 8 + 8*n
			if end > len(code) {
				return nil, mappingerrors.New(mappingerrors.IoError, "truncated lookupswitch table")
			}
			out = append(out, Instruction{Offset: start, Opcode: op, Operands: code[start+1 : end]})
			i = end

		case opWide:
			if i >= len(code) {
				return nil, mappingerrors.New(mappingerrors.IoError, "truncated wide instruction")
			}
			sub := code[i]
			n := 3 // modified opcode(1) + index(2)
			if sub == 132 {
				n = 5 // iinc: opcode(1) + index(2) + const(2)
			}
			end := i + n
			if end > len(code) {
				return nil, mappingerrors.New(mappingerrors.IoError, "truncated wide instruction")
			}
			out = append(out, Instruction{Offset: start, Opcode: op, Operands: code[start+1 : end]})
			i = end

		default:
			n, ok := fixedOperandLen[op]
			if !ok {
				return nil, mappingerrors.Newf(mappingerrors.UnsupportedFormat, "unknown opcode %d at offset %d", op, start)
			}
			end := i + n
			if end > len(code) {
				return nil, mappingerrors.New(mappingerrors.IoError, "truncated instruction operands")
			}
			out = append(out, Instruction{Offset: start, Opcode: op, Operands: code[start+1 : end]})
			i = end
		}
	}
	return out, nil
}

// EncodeInstructions reassembles a bytecode stream. Since rewriting
// never changes instruction count, order, or length, this is always
// the concatenation of each instruction's opcode and (possibly
// mutated) operand bytes back to back.
func EncodeInstructions(instrs []Instruction) []byte {
	var out []byte
	for _, in := range instrs {
		out = append(out, in.Opcode)
		out = append(out, in.Operands...)
	}
	return out
}

func be32(b []byte) int32 {
	return int32(b[0])<<24 | int32(b[1])<<16 | int32(b[2])<<8 | int32(b[3])
}
