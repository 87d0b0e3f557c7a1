package code

import "encoding/binary"

// Assembler accumulates the Blocks a Compiler builds while walking an
// expression and, once traversal is complete, performs the two-pass
// assembly spec.md §4.7 describes: width estimation, then block
// pruning/layout with jump fix-up.
type Assembler struct {
	Blocks []*Block
}

// NewAssembler returns an Assembler with one block, ordinal 0 — the
// entry block every Compiler starts emitting into.
func NewAssembler() *Assembler {
	return &Assembler{Blocks: []*Block{NewBlock()}}
}

// NewBlock appends a fresh block and returns its ordinal.
func (a *Assembler) NewBlock() int {
	a.Blocks = append(a.Blocks, NewBlock())
	return len(a.Blocks) - 1
}

// Block returns the block at ordinal i.
func (a *Assembler) Block(i int) *Block { return a.Blocks[i] }

// chooseWidth implements spec.md §4.7 step 1: sum every block's size at
// the long-operand width; if that sum plus one (for a final Return) is
// at most the short-operand maximum, narrow width is used, else wide.
func (a *Assembler) chooseWidth() Width {
	total := 0
	for _, b := range a.Blocks {
		total += b.Size(Wide)
	}
	if total+1 <= Narrow.Max() {
		return Narrow
	}
	return Wide
}

// layoutBlock is a block retained in the final byte stream, in walked
// order.
type layoutBlock struct {
	ordinal    int
	offset     int
	appendRet  bool // this block's chain ends with an implicit Return
}

// Assemble runs width estimation, pruning/layout and jump fix-up, and
// returns the finished byte stream together with the width it chose.
func (a *Assembler) Assemble() ([]byte, Width) {
	width := a.chooseWidth()

	mustLive := a.mustLiveBlocks()
	order, prunedRedirect := a.layout(mustLive)

	// First sizing pass over retained blocks, to know byte offsets
	// before patching jump targets.
	offsetOf := make(map[int]int, len(order))
	offset := 0
	for _, lb := range order {
		offsetOf[lb.ordinal] = offset
		b := a.Blocks[lb.ordinal]
		offset += b.Size(width)
		if lb.appendRet {
			offset++ // OpReturn, one byte, no operands
		}
	}

	out := make([]byte, 0, offset)
	for _, lb := range order {
		b := a.Blocks[lb.ordinal]
		for _, ins := range b.Instrs() {
			out = writeInstr(out, ins, width)
		}
		if b.Jump.Op != JumpNone {
			target := b.Jump.Target
			if redirected, ok := prunedRedirect[target]; ok {
				target = redirected
			}
			targetOffset, ok := offsetOf[target]
			if !ok {
				// Target block was pruned with no redirect recorded:
				// treat as falling off the end (Return).
				out = append(out, byte(OpReturn))
			} else {
				out = writeJump(out, b.Jump, targetOffset, width)
			}
		}
		if lb.appendRet {
			out = append(out, byte(OpReturn))
		}
	}

	return out, width
}

// mustLiveBlocks returns the set of block ordinals targeted by any
// jump — these can never be pruned even if otherwise empty.
func (a *Assembler) mustLiveBlocks() map[int]bool {
	live := map[int]bool{0: true}
	for _, b := range a.Blocks {
		if b.Jump.Op != JumpNone {
			live[b.Jump.Target] = true
		}
	}
	return live
}

// returnsChain reports whether, starting at ordinal, following Next
// pointers reaches a block with Next == -1 without encountering a block
// that has a jump of its own (i.e. the chain is a plain, unconditional
// fall-through to the end — "reachable-only-via-empty-successors to a
// block with no next", spec.md §4.7).
func (a *Assembler) returnsChain(ordinal int) bool {
	seen := map[int]bool{}
	for ordinal != -1 {
		if seen[ordinal] {
			return false // defensive: cyclic Next chain, never produced by the compiler
		}
		seen[ordinal] = true
		b := a.Blocks[ordinal]
		if b.Jump.Op != JumpNone {
			return false
		}
		if b.Next == -1 {
			return true
		}
		ordinal = b.Next
	}
	return true
}

// layout walks the blocks in Next order from block 0, decides which
// trivial returning blocks to prune, and returns the retained blocks in
// final order plus a redirect table: pruned-block-ordinal -> the
// ordinal of the block a jump to it should be treated as a Return at
// instead (recorded as the pruned block's own ordinal so Assemble's
// lookup miss falls back to an inline Return).
func (a *Assembler) layout(mustLive map[int]bool) ([]layoutBlock, map[int]int) {
	var order []layoutBlock
	redirect := map[int]int{}

	visited := map[int]bool{}
	ordinal := 0
	for ordinal != -1 && !visited[ordinal] {
		visited[ordinal] = true
		b := a.Blocks[ordinal]

		returns := b.Next == -1 && a.returnsChain(ordinal)
		prune := returns && !mustLive[ordinal] && b.IsEmpty()

		if prune {
			// Predecessors jumping here should instead just Return;
			// Assemble's offsetOf-miss path already does that, so we
			// simply omit this block from the retained order and do
			// not record an offset for it.
			redirect[ordinal] = ordinal
			ordinal = b.Next
			continue
		}

		order = append(order, layoutBlock{
			ordinal:   ordinal,
			appendRet: returns,
		})
		ordinal = b.Next
	}
	return order, redirect
}

func writeInstr(out []byte, ins Instr, w Width) []byte {
	out = append(out, byte(ins.Op))
	n := ins.Op.NumOperands()
	if n >= 1 {
		out = writeOperand(out, ins.A, w)
	}
	if n >= 2 {
		out = writeOperand(out, ins.B, w)
	}
	return out
}

func writeJump(out []byte, j Jump, targetOffset int, w Width) []byte {
	out = append(out, byte(j.Op))
	if j.Op.NumOperands() >= 1 {
		out = writeOperand(out, j.Extra, w)
	}
	out = writeOperand(out, targetOffset, w)
	return out
}

func writeOperand(out []byte, v int, w Width) []byte {
	if w == Narrow {
		return append(out, byte(v))
	}
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], uint16(v))
	return append(out, buf[:]...)
}
