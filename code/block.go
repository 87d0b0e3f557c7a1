package code

// Block is a unit of code with at most one outgoing jump and one
// fall-through successor, used while the compiler is still walking the
// expression tree — before Assembler.Assemble linearises everything
// into a single byte stream (spec.md §3, §4.7).
//
// Block holds a one-instruction "pending" buffer so that operators
// which depend on the value the last instruction produced (the `and`/
// `or` short-circuit jumps, and any conditional special form) can call
// Flush to commit it before emitting a jump — preventing the pending
// instruction from being silently elided across a branch. This
// satisfies the ordering invariant spec.md design note 9 describes; see
// DESIGN.md's Open Question entry for why no additional fused opcode is
// introduced here.
type Block struct {
	committed []Instr
	pending   *Instr

	Jump Jump // Op == JumpNone if this block has no outgoing jump
	Next int  // fall-through block ordinal, or -1 if none
}

// NewBlock returns an empty block with no jump and no fall-through.
func NewBlock() *Block {
	return &Block{Next: -1}
}

// Emit buffers ins as the pending instruction, first flushing whatever
// was pending before it.
func (b *Block) Emit(ins Instr) {
	b.Flush()
	p := ins
	b.pending = &p
}

// Flush commits any pending instruction to the block's committed list.
func (b *Block) Flush() {
	if b.pending != nil {
		b.committed = append(b.committed, *b.pending)
		b.pending = nil
	}
}

// SetJump flushes any pending instruction (a jump must never be emitted
// ahead of an uncommitted value-producing instruction) and sets the
// block's single outgoing jump.
func (b *Block) SetJump(j Jump) {
	b.Flush()
	b.Jump = j
}

// Instrs returns every committed instruction, including the pending one
// if present (without committing it).
func (b *Block) Instrs() []Instr {
	if b.pending == nil {
		return b.committed
	}
	return append(append([]Instr{}, b.committed...), *b.pending)
}

// IsEmpty reports whether the block has no instructions and no jump —
// the condition Assembler's pruning pass uses to skip "mostly empty"
// returning blocks (spec.md §4.7).
func (b *Block) IsEmpty() bool {
	return len(b.committed) == 0 && b.pending == nil && b.Jump.Op == JumpNone
}

// Size returns the encoded size, at width w, of every instruction this
// block holds plus its jump (if any), not counting a fall-through
// Return it might later gain.
func (b *Block) Size(w Width) int {
	n := 0
	for _, ins := range b.Instrs() {
		n += ins.EncodedSize(w)
	}
	n += b.Jump.EncodedSize(w)
	return n
}
