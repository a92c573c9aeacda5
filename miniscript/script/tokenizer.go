package script

import "fmt"

// Tokenizer is a pull-based, allocation-light Script decoder. The call-site
// shape (Next/Opcode/Data/Done/Err/ByteIndex) mirrors how the teacher's
// txscript package consumes a tokenizer in standard.go's
// extractMultisigScriptDetails and finalOpcodeData; this implementation is
// authored fresh since the upstream tokenizer source was not part of the
// retrieved reference set.
type Tokenizer struct {
	script []byte
	offset int32

	op   byte
	data []byte
	err  error
	done bool
}

// MakeScriptTokenizer returns a Tokenizer over script.
func MakeScriptTokenizer(s []byte) Tokenizer {
	return Tokenizer{script: s}
}

// Next advances to the next opcode, returning false when the script is
// exhausted or a decode error occurred.
func (t *Tokenizer) Next() bool {
	if t.err != nil || t.done {
		return false
	}
	if t.offset >= int32(len(t.script)) {
		t.done = true
		return false
	}

	op := t.script[t.offset]
	t.op = op
	t.data = nil

	switch {
	case op >= 0x01 && op <= 0x4b:
		end := t.offset + 1 + int32(op)
		if end > int32(len(t.script)) {
			t.err = fmt.Errorf("script: opcode %#x: push of %d bytes exceeds script length", op, op)
			return false
		}
		t.data = t.script[t.offset+1 : end]
		t.offset = end

	case op == OP_PUSHDATA1, op == OP_PUSHDATA2, op == OP_PUSHDATA4:
		lenBytes := map[byte]int32{OP_PUSHDATA1: 1, OP_PUSHDATA2: 2, OP_PUSHDATA4: 4}[op]
		if t.offset+1+lenBytes > int32(len(t.script)) {
			t.err = fmt.Errorf("script: %#x: truncated length prefix", op)
			return false
		}
		var dataLen int32
		lenStart := t.offset + 1
		for i := int32(0); i < lenBytes; i++ {
			dataLen |= int32(t.script[lenStart+i]) << (8 * i)
		}
		start := lenStart + lenBytes
		end := start + dataLen
		if end > int32(len(t.script)) || end < start {
			t.err = fmt.Errorf("script: %#x: push of %d bytes exceeds script length", op, dataLen)
			return false
		}
		// A PUSHDATA-form push of data short enough for a smaller push
		// form is non-minimal (e.g. a 1-byte push via OP_PUSHDATA1).
		minLen := minimalPushDataLen(op, dataLen)
		if dataLen < minLen {
			t.err = fmt.Errorf("script: %#x: non-minimal push of %d bytes", op, dataLen)
			return false
		}
		t.data = t.script[start:end]
		t.offset = end

	default:
		t.offset++
	}

	if t.offset >= int32(len(t.script)) {
		t.done = true
	}
	return true
}

func minimalPushDataLen(op byte, dataLen int32) int32 {
	switch op {
	case OP_PUSHDATA1:
		return 76
	case OP_PUSHDATA2:
		return 256
	default:
		return 65536
	}
}

// Opcode returns the opcode of the most recently read token.
func (t *Tokenizer) Opcode() byte { return t.op }

// Data returns the pushed data of the most recently read token, nil if the
// token was a plain opcode.
func (t *Tokenizer) Data() []byte { return t.data }

// Done reports whether the tokenizer has consumed the entire script
// without error.
func (t *Tokenizer) Done() bool { return t.done && t.err == nil }

// Err returns the first decode error encountered, if any.
func (t *Tokenizer) Err() error { return t.err }

// ByteIndex returns the tokenizer's current offset into the script.
func (t *Tokenizer) ByteIndex() int32 { return t.offset }

// Script returns the full script this tokenizer was constructed over.
func (t *Tokenizer) Script() []byte { return t.script }
