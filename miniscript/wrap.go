package miniscript

func wrapper[Pk MiniscriptKey](kind Kind, x *Miniscript[Pk], ty CorrectnessType, mal MalleabilityClass, ext ExtData) *Miniscript[Pk] {
	return &Miniscript[Pk]{Kind: kind, Children: []*Miniscript[Pk]{x}, Type: ty, Mal: mal, Ext: ext}
}

// NewAlt builds the `a:` wrapper: OP_TOALTSTACK <X> OP_FROMALTSTACK. Takes a
// Base-B child to a Base-W fragment usable as the second argument of AndB/OrB.
func NewAlt[Pk MiniscriptKey](x *Miniscript[Pk]) (*Miniscript[Pk], error) {
	if x.Type.Base != BaseB {
		return nil, newTypeError(KindAlt, "B", x.Type.Base.String())
	}
	ty := CorrectnessType{Base: BaseW, Input: InputAny, Dissatisfiable: x.Type.Dissatisfiable, Unit: x.Type.Unit}
	mal := MalleabilityClass{Dissat: x.Mal.Dissat, Safe: x.Mal.Safe, NonMalleable: x.Mal.NonMalleable}
	ext := ExtData{
		PkCost: x.Ext.PkCost + 2, HasFreeVerify: false,
		OpsCountSat: addOp(x.Ext.OpsCountSat, 2), OpsCountNsat: addOp(x.Ext.OpsCountNsat, 2),
		OpsCountStatic: x.Ext.OpsCountStatic + 2,
		MaxSatSize: x.Ext.MaxSatSize, MaxDissatSize: x.Ext.MaxDissatSize,
		StackElemCountSat: x.Ext.StackElemCountSat, StackElemCountDissat: x.Ext.StackElemCountDissat,
		Timelock: x.Ext.Timelock,
	}
	return wrapper(KindAlt, x, ty, mal, ext), nil
}

// NewSwap builds the `s:` wrapper: OP_SWAP <X>. Takes a Base-B child to a
// Base-W fragment; the child's input shape is not checked.
func NewSwap[Pk MiniscriptKey](x *Miniscript[Pk]) (*Miniscript[Pk], error) {
	if x.Type.Base != BaseB {
		return nil, newTypeError(KindSwap, "B", x.Type.Base.String())
	}
	ty := CorrectnessType{Base: BaseW, Input: InputAny, Dissatisfiable: x.Type.Dissatisfiable, Unit: x.Type.Unit}
	mal := x.Mal
	ext := ExtData{
		PkCost: x.Ext.PkCost + 1,
		OpsCountSat: addOp(x.Ext.OpsCountSat, 1), OpsCountNsat: addOp(x.Ext.OpsCountNsat, 1),
		OpsCountStatic:        x.Ext.OpsCountStatic + 1,
		MaxSatSize:            x.Ext.MaxSatSize,
		MaxDissatSize:         x.Ext.MaxDissatSize,
		StackElemCountSat:     x.Ext.StackElemCountSat,
		StackElemCountDissat:  x.Ext.StackElemCountDissat,
		Timelock:              x.Ext.Timelock,
	}
	return wrapper(KindSwap, x, ty, mal, ext), nil
}

// NewCheck builds the `c:` wrapper: <X> OP_CHECKSIG. Takes a Base-K child to
// a dissatisfiable, unit Base-B fragment.
func NewCheck[Pk MiniscriptKey](x *Miniscript[Pk]) (*Miniscript[Pk], error) {
	if x.Type.Base != BaseK {
		return nil, newTypeError(KindCheck, "K", x.Type.Base.String())
	}
	ty := CorrectnessType{Base: BaseB, Input: x.Type.Input, Dissatisfiable: true, Unit: true}
	mal := MalleabilityClass{Dissat: DissatUnique, Safe: x.Mal.Safe, NonMalleable: x.Mal.NonMalleable}
	ext := ExtData{
		PkCost: x.Ext.PkCost + 1, HasFreeVerify: true,
		OpsCountSat: addOp(x.Ext.OpsCountSat, 1), OpsCountNsat: addOp(x.Ext.OpsCountNsat, 1),
		OpsCountStatic:        x.Ext.OpsCountStatic + 1,
		MaxSatSize:            x.Ext.MaxSatSize,
		MaxDissatSize:         x.Ext.MaxDissatSize,
		StackElemCountSat:     x.Ext.StackElemCountSat,
		StackElemCountDissat:  x.Ext.StackElemCountDissat,
		Timelock:              x.Ext.Timelock,
	}
	return wrapper(KindCheck, x, ty, mal, ext), nil
}

// NewDupIf builds the `d:` wrapper: OP_DUP OP_IF <X> OP_ENDIF. The duplicated
// stack item becomes the IF condition, so X itself must be Base-V (it either
// fails the script or succeeds leaving nothing behind) and must consume no
// stack input of its own (Vz).
func NewDupIf[Pk MiniscriptKey](x *Miniscript[Pk]) (*Miniscript[Pk], error) {
	if x.Type.Base != BaseV {
		return nil, newTypeError(KindDupIf, "V", x.Type.Base.String())
	}
	if x.Type.Input != InputZero {
		return nil, newTypeError(KindDupIf, "zero input", "non-zero input")
	}
	ty := CorrectnessType{Base: BaseB, Input: InputNonZero, Dissatisfiable: true, Unit: true}
	mal := MalleabilityClass{Dissat: DissatUnique, Safe: false, NonMalleable: x.Mal.NonMalleable}
	ext := ExtData{
		PkCost: x.Ext.PkCost + 3,
		OpsCountSat: addOp(x.Ext.OpsCountSat, 3), OpsCountNsat: 3,
		OpsCountStatic:        x.Ext.OpsCountStatic + 3,
		MaxSatSize:            x.Ext.MaxSatSize,
		MaxDissatSize:         &WitnessSize{1, 1},
		StackElemCountSat:     x.Ext.StackElemCountSat,
		StackElemCountDissat:  intp(1),
		Timelock:              x.Ext.Timelock,
	}
	return wrapper(KindDupIf, x, ty, mal, ext), nil
}

// NewVerify builds the `v:` wrapper: appends OP_VERIFY. Takes a Base-B child
// to a non-dissatisfiable Base-V fragment. When the child's final opcode has
// a *Verify form (HasFreeVerify), PkCost counts no byte for the OP_VERIFY;
// script.Encode does not fold it into that form and always emits OP_VERIFY.
func NewVerify[Pk MiniscriptKey](x *Miniscript[Pk]) (*Miniscript[Pk], error) {
	if x.Type.Base != BaseB {
		return nil, newTypeError(KindVerify, "B", x.Type.Base.String())
	}
	cost := x.Ext.PkCost
	if !x.Ext.HasFreeVerify {
		cost++
	}
	ty := CorrectnessType{Base: BaseV, Input: x.Type.Input, Dissatisfiable: false, Unit: false}
	mal := MalleabilityClass{Dissat: DissatNone, Safe: x.Mal.Safe, NonMalleable: x.Mal.NonMalleable}
	ext := ExtData{
		PkCost: cost,
		OpsCountSat: addOp(x.Ext.OpsCountSat, 1), OpsCountNsat: -1,
		OpsCountStatic:    x.Ext.OpsCountStatic + 1,
		MaxSatSize:        x.Ext.MaxSatSize,
		MaxDissatSize:     nil,
		StackElemCountSat: x.Ext.StackElemCountSat,
		Timelock:          x.Ext.Timelock,
	}
	return wrapper(KindVerify, x, ty, mal, ext), nil
}

// NewNonZero builds the `j:` wrapper: OP_SIZE OP_0NOTEQUAL OP_IF <X>
// OP_ENDIF. Takes a Base-B child to a dissatisfiable Base-B fragment.
func NewNonZero[Pk MiniscriptKey](x *Miniscript[Pk]) (*Miniscript[Pk], error) {
	if x.Type.Base != BaseB {
		return nil, newTypeError(KindNonZero, "B", x.Type.Base.String())
	}
	ty := CorrectnessType{Base: BaseB, Input: InputNonZero, Dissatisfiable: true, Unit: x.Type.Unit}
	mal := MalleabilityClass{Dissat: DissatUnique, Safe: x.Mal.Safe, NonMalleable: x.Mal.NonMalleable}
	ext := ExtData{
		PkCost: x.Ext.PkCost + 4,
		OpsCountSat: addOp(x.Ext.OpsCountSat, 4), OpsCountNsat: 4,
		OpsCountStatic:        x.Ext.OpsCountStatic + 4,
		MaxSatSize:            x.Ext.MaxSatSize,
		MaxDissatSize:         &WitnessSize{1, 1},
		StackElemCountSat:     x.Ext.StackElemCountSat,
		StackElemCountDissat:  intp(1),
		Timelock:              x.Ext.Timelock,
	}
	return wrapper(KindNonZero, x, ty, mal, ext), nil
}

// NewZeroNotEqual builds the `n:` wrapper: appends OP_0NOTEQUAL. Takes a
// Base-B child to a Base-B fragment, preserving dissatisfiability.
func NewZeroNotEqual[Pk MiniscriptKey](x *Miniscript[Pk]) (*Miniscript[Pk], error) {
	if x.Type.Base != BaseB {
		return nil, newTypeError(KindZeroNotEqual, "B", x.Type.Base.String())
	}
	ty := CorrectnessType{Base: BaseB, Input: x.Type.Input, Dissatisfiable: x.Type.Dissatisfiable, Unit: true}
	mal := x.Mal
	ext := ExtData{
		PkCost: x.Ext.PkCost + 1,
		OpsCountSat: addOp(x.Ext.OpsCountSat, 1), OpsCountNsat: addOp(x.Ext.OpsCountNsat, 1),
		OpsCountStatic:        x.Ext.OpsCountStatic + 1,
		MaxSatSize:            x.Ext.MaxSatSize,
		MaxDissatSize:         x.Ext.MaxDissatSize,
		StackElemCountSat:     x.Ext.StackElemCountSat,
		StackElemCountDissat:  x.Ext.StackElemCountDissat,
		Timelock:              x.Ext.Timelock,
	}
	return wrapper(KindZeroNotEqual, x, ty, mal, ext), nil
}

func addOp(base int, delta int) int {
	if base < 0 {
		return -1
	}
	return base + delta
}
