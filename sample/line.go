// Package sample implements the typed row buffer shared by the encode and
// render paths (spec §3.1, §4.1): fixed-point 16-bit, absolute 32-bit, and
// float32 representations, with in-place ownership transfer and bounded
// left/right extension for filter support.
package sample

import "fmt"

// FixPointBits is KDU_FIX_POINT: the implicit binary point sits this many
// bits from the LSB for non-absolute Fix16/Int32 lines (spec §3.1).
const FixPointBits = 13

// Kind is a line's representation tag (spec §3.1).
type Kind int

const (
	Fix16 Kind = iota
	Int32
	Float32
)

func (k Kind) String() string {
	switch k {
	case Fix16:
		return "Fix16"
	case Int32:
		return "Int32"
	case Float32:
		return "Float32"
	default:
		return "Unknown"
	}
}

// Line is a single row of samples of one Kind, optionally "absolute"
// (plain integer, no implicit binary point) and optionally extended on
// the left/right for filter support (spec §3.1).
//
// Exactly one of buf16/buf32/bufF is non-nil, matching Kind.
type Line struct {
	kind     Kind
	absolute bool
	width    int
	left     int // left extension sample count
	right    int // right extension sample count

	buf16 []int16
	buf32 []int32
	bufF  []float32
}

// New allocates a Line of the given width and Kind. leftExtend/rightExtend
// declare how many samples beyond [0, width) are addressable on each side
// (spec §3.1: "a line may be extended by up to 2 samples on the left and a
// small fixed amount on the right for filter support, if declared so at
// creation").
func New(kind Kind, width int, absolute bool, leftExtend, rightExtend int) *Line {
	if width < 0 {
		width = 0
	}
	if leftExtend < 0 {
		leftExtend = 0
	}
	if rightExtend < 0 {
		rightExtend = 0
	}
	total := width + leftExtend + rightExtend
	l := &Line{
		kind:     kind,
		absolute: absolute,
		width:    width,
		left:     leftExtend,
		right:    rightExtend,
	}
	switch kind {
	case Fix16:
		l.buf16 = make([]int16, total)
	case Int32:
		l.buf32 = make([]int32, total)
	case Float32:
		l.bufF = make([]float32, total)
	}
	return l
}

// Kind returns the line's representation tag.
func (l *Line) Kind() Kind { return l.kind }

// Absolute reports whether the line holds plain integers rather than
// FixPointBits-scaled fixed-point values. Meaningless for Float32.
func (l *Line) Absolute() bool { return l.absolute }

// GetWidth returns the line's nominal width (excluding extension).
func (l *Line) GetWidth() int { return l.width }

// LeftExtend and RightExtend report the addressable extension on each side.
func (l *Line) LeftExtend() int  { return l.left }
func (l *Line) RightExtend() int { return l.right }

// index maps a logical sample index (which may be negative, down to
// -left, or up to width-1+right) to a storage slot.
func (l *Line) index(i int) (int, error) {
	if i < -l.left || i >= l.width+l.right {
		return 0, fmt.Errorf("sample: index %d out of addressable range [-%d, %d)", i, l.left, l.width+l.right)
	}
	return i + l.left, nil
}

// GetBuf16 returns the backing storage for a Fix16 line, or nil if the
// line is not Fix16 ("exactly one returns non-null consistent with the
// tag", spec §4.1). The slice includes left/right extension samples.
func (l *Line) GetBuf16() []int16 {
	if l.kind != Fix16 {
		return nil
	}
	return l.buf16
}

// GetBuf32 returns the backing storage for an Int32 line, or nil.
func (l *Line) GetBuf32() []int32 {
	if l.kind != Int32 {
		return nil
	}
	return l.buf32
}

// GetBufFloat returns the backing storage for a Float32 line, or nil.
func (l *Line) GetBufFloat() []float32 {
	if l.kind != Float32 {
		return nil
	}
	return l.bufF
}

// At16/At32/AtFloat read a single logical sample (index may dip into the
// extension region). They panic-free return an error on out-of-range.
func (l *Line) At16(i int) (int16, error) {
	idx, err := l.index(i)
	if err != nil || l.kind != Fix16 {
		return 0, err
	}
	return l.buf16[idx], nil
}

func (l *Line) At32(i int) (int32, error) {
	idx, err := l.index(i)
	if err != nil || l.kind != Int32 {
		return 0, err
	}
	return l.buf32[idx], nil
}

func (l *Line) AtFloat(i int) (float32, error) {
	idx, err := l.index(i)
	if err != nil || l.kind != Float32 {
		return 0, err
	}
	return l.bufF[idx], nil
}

// Set16/Set32/SetFloat write a single logical sample.
func (l *Line) Set16(i int, v int16) error {
	idx, err := l.index(i)
	if err != nil {
		return err
	}
	if l.kind != Fix16 {
		return fmt.Errorf("sample: Set16 on %s line", l.kind)
	}
	l.buf16[idx] = v
	return nil
}

func (l *Line) Set32(i int, v int32) error {
	idx, err := l.index(i)
	if err != nil {
		return err
	}
	if l.kind != Int32 {
		return fmt.Errorf("sample: Set32 on %s line", l.kind)
	}
	l.buf32[idx] = v
	return nil
}

func (l *Line) SetFloat(i int, v float32) error {
	idx, err := l.index(i)
	if err != nil {
		return err
	}
	if l.kind != Float32 {
		return fmt.Errorf("sample: SetFloat on %s line", l.kind)
	}
	l.bufF[idx] = v
	return nil
}

// RawExchange atomically swaps storage with other when their Kind,
// Absolute flag, and extension geometry match and other's width is at
// least requiredWidth; otherwise it returns false and modifies neither
// line (spec §4.1). This is how the encoder's push path avoids copies
// when buffer offsets permit.
func (l *Line) RawExchange(other *Line, requiredWidth int) bool {
	if other == nil {
		return false
	}
	if l.kind != other.kind || l.absolute != other.absolute {
		return false
	}
	if l.left != other.left || l.right != other.right {
		return false
	}
	if other.width < requiredWidth {
		return false
	}
	l.buf16, other.buf16 = other.buf16, l.buf16
	l.buf32, other.buf32 = other.buf32, l.buf32
	l.bufF, other.bufF = other.bufF, l.bufF
	l.width, other.width = other.width, l.width
	return true
}
