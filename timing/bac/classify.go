package bac

import "github.com/sarchlab/m2ooo/insts"

// Classification describes what the BAC needs to know about a decoded
// branch to steer the FTQ: whether it is a branch at all, whether its
// direction is known without a predictor lookup (unconditional), and its
// statically-known target when the encoding carries one.
type Classification struct {
	IsBranch      bool
	Unconditional bool
	StaticTarget  uint64
	HasTarget     bool
}

// ClassifyBranch inspects a decoded instruction the way the teacher's
// pipeline_helpers.go classifies raw instruction words at fetch time, so
// unconditional branches can be resolved immediately instead of waiting on
// a BHT lookup.
func ClassifyBranch(inst *insts.Instruction, pc uint64) Classification {
	switch inst.Op {
	case insts.OpB, insts.OpBL:
		return Classification{
			IsBranch:      true,
			Unconditional: true,
			StaticTarget:  uint64(int64(pc) + inst.BranchOffset),
			HasTarget:     true,
		}
	case insts.OpBCond:
		return Classification{
			IsBranch:      true,
			Unconditional: false,
			StaticTarget:  uint64(int64(pc) + inst.BranchOffset),
			HasTarget:     true,
		}
	case insts.OpBR, insts.OpBLR, insts.OpRET:
		// Register-indirect branches: the target is not known until the
		// register file is read downstream, so the BAC carries no target
		// and predicts them taken without a BTB lookup.
		return Classification{IsBranch: true, Unconditional: true, HasTarget: false}
	default:
		return Classification{}
	}
}
