package miniscript

import "fmt"

// Kind identifies a fragment's node kind. The fragment catalog (this file)
// is the single source of truth every other component — the type system,
// the extra-data sizing rules, the Script codec, and the compiler's cost
// model — is table-driven from.
type Kind int

const (
	KindFalse Kind = iota
	KindTrue
	KindPk
	KindPkH
	KindAfter
	KindOlder
	KindSha256
	KindHash256
	KindRipemd160
	KindHash160
	KindThreshM

	KindAlt
	KindSwap
	KindCheck
	KindDupIf
	KindVerify
	KindNonZero
	KindZeroNotEqual

	KindAndV
	KindAndB
	KindOrB
	KindOrC
	KindOrD
	KindOrI

	KindAndOr

	KindThresh
)

var kindNames = map[Kind]string{
	KindFalse: "0", KindTrue: "1", KindPk: "pk", KindPkH: "pk_h",
	KindAfter: "after", KindOlder: "older", KindSha256: "sha256",
	KindHash256: "hash256", KindRipemd160: "ripemd160", KindHash160: "hash160",
	KindThreshM: "thresh_m",
	KindAlt:     "a", KindSwap: "s", KindCheck: "c", KindDupIf: "d",
	KindVerify: "v", KindNonZero: "j", KindZeroNotEqual: "n",
	KindAndV: "and_v", KindAndB: "and_b", KindOrB: "or_b", KindOrC: "or_c",
	KindOrD: "or_d", KindOrI: "or_i", KindAndOr: "andor", KindThresh: "thresh",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Miniscript is a single typed node in a fragment tree over key type Pk.
// Nodes are immutable after construction; child sharing is plain pointer
// sharing under Go's garbage collector (no explicit refcounting needed).
type Miniscript[Pk MiniscriptKey] struct {
	Kind Kind

	Key     Pk      // KindPk
	KeyHash [20]byte // KindPkH
	Hash32  [32]byte // KindSha256, KindHash256
	Hash20  [20]byte // KindRipemd160, KindHash160
	N       uint32   // KindAfter, KindOlder, and k for KindThreshM/KindThresh
	Keys    []Pk     // KindThreshM

	Children []*Miniscript[Pk] // wrappers (1), binary (2), ternary (3), thresh (n)

	Type CorrectnessType
	Mal  MalleabilityClass
	Ext  ExtData
}

func leaf[Pk MiniscriptKey](kind Kind, ty CorrectnessType, mal MalleabilityClass, ext ExtData) *Miniscript[Pk] {
	return &Miniscript[Pk]{Kind: kind, Type: ty, Mal: mal, Ext: ext}
}

// NewFalse builds the always-false terminal.
func NewFalse[Pk MiniscriptKey]() *Miniscript[Pk] {
	return leaf[Pk](KindFalse,
		CorrectnessType{Base: BaseB, Input: InputZero, Dissatisfiable: false, Unit: true},
		MalleabilityClass{Dissat: DissatNone, Safe: true, NonMalleable: true},
		ExtData{PkCost: 1, OpsCountSat: -1, OpsCountNsat: 0, OpsCountStatic: 0,
			MaxSatSize: nil, MaxDissatSize: &WitnessSize{0, 0},
			StackElemCountSat: nil, StackElemCountDissat: intp(0)})
}

// NewTrue builds the always-true terminal.
func NewTrue[Pk MiniscriptKey]() *Miniscript[Pk] {
	return leaf[Pk](KindTrue,
		CorrectnessType{Base: BaseB, Input: InputNonZero, Dissatisfiable: false, Unit: true},
		MalleabilityClass{Dissat: DissatNone, Safe: false, NonMalleable: true},
		ExtData{PkCost: 1, OpsCountSat: 0, OpsCountNsat: -1, OpsCountStatic: 0,
			MaxSatSize: &WitnessSize{0, 0}, MaxDissatSize: nil,
			StackElemCountSat: intp(0), StackElemCountDissat: nil})
}

// NewPk builds a bare-key terminal (Base K: leaves a pubkey on the stack).
func NewPk[Pk MiniscriptKey](key Pk) *Miniscript[Pk] {
	m := leaf[Pk](KindPk,
		CorrectnessType{Base: BaseK, Input: InputAny, Dissatisfiable: true, Unit: true},
		MalleabilityClass{Dissat: DissatUnique, Safe: true, NonMalleable: true},
		ExtData{PkCost: 34, OpsCountSat: 0, OpsCountNsat: 0, OpsCountStatic: 0,
			MaxSatSize: &WitnessSize{1, 33}, MaxDissatSize: &WitnessSize{1, 1},
			StackElemCountSat: intp(1), StackElemCountDissat: intp(1)})
	m.Key = key
	return m
}

// NewPkH builds a key-hash terminal (Base K).
func NewPkH[Pk MiniscriptKey](hash [20]byte) *Miniscript[Pk] {
	m := leaf[Pk](KindPkH,
		CorrectnessType{Base: BaseK, Input: InputAny, Dissatisfiable: true, Unit: true},
		MalleabilityClass{Dissat: DissatUnique, Safe: true, NonMalleable: true},
		ExtData{PkCost: 24, OpsCountSat: 3, OpsCountNsat: 3, OpsCountStatic: 3,
			MaxSatSize: &WitnessSize{2, 33 + 34}, MaxDissatSize: &WitnessSize{2, 1 + 34},
			StackElemCountSat: intp(2), StackElemCountDissat: intp(2)})
	m.KeyHash = hash
	return m
}

func timelockType(dissatisfiable bool) CorrectnessType {
	return CorrectnessType{Base: BaseB, Input: InputZero, Dissatisfiable: dissatisfiable, Unit: false}
}

// NewAfter builds an absolute-locktime terminal (OP_CLTV).
func NewAfter[Pk MiniscriptKey](n uint32) (*Miniscript[Pk], error) {
	if n == 0 {
		return nil, newScriptError("after: locktime must be nonzero")
	}
	m := leaf[Pk](KindAfter,
		timelockType(false),
		MalleabilityClass{Dissat: DissatNone, Safe: false, NonMalleable: true},
		ExtData{PkCost: pushNumLen(n) + 1, OpsCountSat: 1, OpsCountNsat: -1, OpsCountStatic: 1,
			MaxSatSize: &WitnessSize{0, 0}, MaxDissatSize: nil,
			StackElemCountSat: intp(0), StackElemCountDissat: nil,
			Timelock: TimelockInfo{CLTWithTime: n >= 500000000, CLTWithHeight: n < 500000000}})
	m.N = n
	return m, nil
}

// NewOlder builds a relative-locktime terminal (OP_CSV).
func NewOlder[Pk MiniscriptKey](n uint32) (*Miniscript[Pk], error) {
	if n == 0 || n&0x80000000 != 0 {
		return nil, newScriptError("older: invalid relative locktime %d", n)
	}
	m := leaf[Pk](KindOlder,
		timelockType(false),
		MalleabilityClass{Dissat: DissatNone, Safe: false, NonMalleable: true},
		ExtData{PkCost: pushNumLen(n) + 1, OpsCountSat: 1, OpsCountNsat: -1, OpsCountStatic: 1,
			MaxSatSize: &WitnessSize{0, 0}, MaxDissatSize: nil,
			StackElemCountSat: intp(0), StackElemCountDissat: nil,
			Timelock: TimelockInfo{CSVWithTime: n&(1<<22) != 0, CSVWithHeight: n&(1<<22) == 0}})
	m.N = n
	return m, nil
}

func hashLeaf[Pk MiniscriptKey](kind Kind, op int) *Miniscript[Pk] {
	return leaf[Pk](kind,
		CorrectnessType{Base: BaseB, Input: InputNonZero, Dissatisfiable: true, Unit: true},
		MalleabilityClass{Dissat: DissatUnknown, Safe: false, NonMalleable: true},
		ExtData{PkCost: op, OpsCountSat: 4, OpsCountNsat: 4, OpsCountStatic: 4,
			MaxSatSize: &WitnessSize{1, 32}, MaxDissatSize: &WitnessSize{1, 0},
			StackElemCountSat: intp(1), StackElemCountDissat: intp(1)})
}

// NewSha256 builds a SHA256-preimage terminal: OP_SIZE <32> OP_EQUALVERIFY
// OP_SHA256 <h> OP_EQUAL.
func NewSha256[Pk MiniscriptKey](h [32]byte) *Miniscript[Pk] {
	m := hashLeaf[Pk](KindSha256, 1+2+1+1+33+1)
	m.Hash32 = h
	return m
}

// NewHash256 builds a double-SHA256-preimage terminal (same shape as Sha256).
func NewHash256[Pk MiniscriptKey](h [32]byte) *Miniscript[Pk] {
	m := hashLeaf[Pk](KindHash256, 1+2+1+1+33+1)
	m.Hash32 = h
	return m
}

// NewRipemd160 builds a RIPEMD160-preimage terminal: OP_SIZE <32>
// OP_EQUALVERIFY OP_RIPEMD160 <h> OP_EQUAL.
func NewRipemd160[Pk MiniscriptKey](h [20]byte) *Miniscript[Pk] {
	m := hashLeaf[Pk](KindRipemd160, 1+2+1+1+21+1)
	m.Hash20 = h
	return m
}

// NewHash160 builds a HASH160-preimage terminal (same shape as Ripemd160).
func NewHash160[Pk MiniscriptKey](h [20]byte) *Miniscript[Pk] {
	m := hashLeaf[Pk](KindHash160, 1+2+1+1+21+1)
	m.Hash20 = h
	return m
}

// NewThreshM builds a k-of-n CHECKMULTISIG terminal.
func NewThreshM[Pk MiniscriptKey](k int, keys []Pk) (*Miniscript[Pk], error) {
	n := len(keys)
	if k < 1 || k > n || n > 20 {
		return nil, newScriptError("multi: invalid threshold %d of %d (n must be 1..20)", k, n)
	}
	pkCost := 1 + 34*n + 1 + 1 // k push + keys + n push + OP_CHECKMULTISIG
	sigBytes := 1 + 73*k
	m := leaf[Pk](KindThreshM,
		CorrectnessType{Base: BaseB, Input: InputAny, Dissatisfiable: true, Unit: true},
		MalleabilityClass{Dissat: DissatUnique, Safe: true, NonMalleable: true},
		ExtData{PkCost: pkCost, OpsCountSat: n + 1, OpsCountNsat: n + 1, OpsCountStatic: n + 1,
			MaxSatSize: &WitnessSize{k + 1, sigBytes}, MaxDissatSize: &WitnessSize{k + 1, k + 1},
			StackElemCountSat: intp(k + 1), StackElemCountDissat: intp(k + 1)})
	m.N = uint32(k)
	m.Keys = keys
	return m, nil
}

func intp(n int) *int { return &n }

// pushNumLen returns the byte length of the push of n that script.Encode
// emits: a single OP_1..OP_16 opcode for n <= 16, otherwise a length byte
// followed by the minimal Script-number encoding.
func pushNumLen(n uint32) int {
	if n <= 16 {
		return 1
	}
	return 1 + scriptNumLen(int64(n))
}

// scriptNumLen returns the byte length of the minimal Script-number
// encoding of n (sign-magnitude, little-endian, high bit of the last byte
// is the sign bit).
func scriptNumLen(n int64) int {
	if n == 0 {
		return 0
	}
	if n < 0 {
		n = -n
	}
	l := 0
	for v := n; v > 0; v >>= 8 {
		l++
	}
	topByte := byte((n >> uint((l-1)*8)) & 0xff)
	if topByte&0x80 != 0 {
		l++
	}
	return l
}
