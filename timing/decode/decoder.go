// Package decode adapts insts.Decoder into the fetch stage's decoder
// collaborator contract: a byte window is fed in, static instructions come
// out one at a time, and a macro-op may expand into several micro-ops
// pulled out one per instruction-issue-loop iteration.
package decode

import "github.com/sarchlab/m2ooo/insts"

// StaticInst is one decoded instruction, possibly standing in for a
// macro-op that must be walked one MicroOp at a time.
type StaticInst struct {
	Inst *insts.Instruction
	PC   uint64
	Size int // bytes consumed from the fetch buffer to produce this result

	IsMacroOp bool
	MicroOps  []MicroOp
}

// MicroOp is one step of a macro-op's expansion.
type MicroOp struct {
	Inst          *insts.Instruction
	PC            uint64
	Index         int
	IsLastMicroOp bool

	// Fused carries the preceding CMP's operands when this micro-op is a
	// fused B.cond: the teacher's pipeline models this exact fusion by
	// attaching the CMP's operands directly to the B.cond's pipeline
	// register instead of re-reading PSTATE, eliminating the flag
	// dependency between the two instructions.
	Fused *FusedCompare
}

// FusedCompare is the CMP operand snapshot fused into a following B.cond.
type FusedCompare struct {
	Is64Bit bool
	IsImm   bool
	Rn      uint8
	Rm      uint8
	Imm     uint64
}

// Decoder holds the byte window currently available for decoding and the
// ISA-level decoder it delegates single-word decoding to.
type Decoder struct {
	isa *insts.Decoder

	window   []byte
	basePC   uint64
	cursor   int
}

// NewDecoder creates a decoder with an empty window.
func NewDecoder() *Decoder {
	return &Decoder{isa: insts.NewDecoder()}
}

// MoreBytes installs the bytes available starting at pc, replacing
// whatever window was previously held. The fetch controller calls this
// whenever NeedMoreBytes reports the window exhausted, handing it the bytes
// of the current fetch buffer.
func (d *Decoder) MoreBytes(pc uint64, data []byte) {
	d.window = data
	d.basePC = pc
	d.cursor = 0
}

// MoreBytesSize is the number of bytes MoreBytes must be handed to make
// progress: one fixed-width instruction word.
func (d *Decoder) MoreBytesSize() int { return 4 }

// PCMask is the alignment mask for this ISA: instructions are always
// 4-byte aligned.
func (d *Decoder) PCMask() uint64 { return ^uint64(3) }

// NeedMoreBytes reports whether the current window is too short at the
// cursor to decode another instruction.
func (d *Decoder) NeedMoreBytes() bool {
	return len(d.window)-d.cursor < 4
}

// InstReady reports whether Decode can make progress right now.
func (d *Decoder) InstReady() bool {
	return !d.NeedMoreBytes()
}

// Reset drops the current window and any fusion lookahead state, used on
// squash.
func (d *Decoder) Reset() {
	d.window = nil
	d.cursor = 0
}

// Decode consumes one static instruction (or one CMP+B.cond macro-op) from
// the front of the window and advances the cursor.
func (d *Decoder) Decode(pc uint64) *StaticInst {
	if d.NeedMoreBytes() {
		return nil
	}

	word := littleEndian32(d.window[d.cursor : d.cursor+4])
	inst := d.isa.Decode(word)
	si := &StaticInst{Inst: inst, PC: pc, Size: 4}
	d.cursor += 4

	if isFusibleCompare(inst) && len(d.window)-d.cursor >= 4 {
		nextWord := littleEndian32(d.window[d.cursor : d.cursor+4])
		nextInst := d.isa.Decode(nextWord)
		if nextInst.Op == insts.OpBCond {
			d.cursor += 4
			return fuseCompareAndBranch(si, nextInst, pc)
		}
	}

	return si
}

// FetchROMMicroop returns the micro-op of macro at the position
// corresponding to microPC (one 4-byte word per micro-op, starting at
// macro.PC), standing in for pulling one micro-op at a time out of a
// microcode ROM.
func (d *Decoder) FetchROMMicroop(microPC uint64, macro *StaticInst) *MicroOp {
	idx := int((microPC - macro.PC) / 4)
	if idx < 0 || idx >= len(macro.MicroOps) {
		return nil
	}
	return &macro.MicroOps[idx]
}

func isFusibleCompare(inst *insts.Instruction) bool {
	if !inst.SetFlags {
		return false
	}
	if inst.Op != insts.OpADD && inst.Op != insts.OpSUB {
		return false
	}
	return inst.Rd == 31 // XZR: result discarded, a CMP idiom
}

func fuseCompareAndBranch(cmp *StaticInst, bcond *insts.Instruction, cmpPC uint64) *StaticInst {
	macro := &StaticInst{
		Inst:      cmp.Inst,
		PC:        cmpPC,
		Size:      8,
		IsMacroOp: true,
	}
	macro.MicroOps = []MicroOp{
		{Inst: cmp.Inst, PC: cmpPC, Index: 0},
		{
			Inst:          bcond,
			PC:            cmpPC + 4,
			Index:         1,
			IsLastMicroOp: true,
			Fused: &FusedCompare{
				Is64Bit: cmp.Inst.Is64Bit,
				IsImm:   cmp.Inst.Format == insts.FormatDPImm,
				Rn:      cmp.Inst.Rn,
				Rm:      cmp.Inst.Rm,
				Imm:     cmp.Inst.Imm,
			},
		},
	}
	return macro
}

func littleEndian32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
