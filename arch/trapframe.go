// Package arch holds the saved user register state of a trapped thread.
package arch

// User segment selectors and the initial flags for a fresh user context.
const (
	UserCS     = 0x1b
	UserSS     = 0x23
	UserRflags = 0x202 // IF set
)

// TrapFrame is the x86_64 register snapshot saved on entry to the kernel.
// It is owned by the trap entry code for the duration of one trap; the
// values left in it are restored when the thread resumes.
type TrapFrame struct {
	R15, R14, R13, R12 uint64
	Rbp, Rbx           uint64
	R11, R10, R9, R8   uint64
	Rax, Rcx, Rdx      uint64
	Rsi, Rdi           uint64

	Rip, Cs, Rflags, Rsp, Ss uint64

	FsBase, GsBase uint64
}

// NewUserTrapFrame returns a frame that resumes at entry with the given
// stack pointer and every other register cleared.
func NewUserTrapFrame(entry, sp uint64) *TrapFrame {
	return &TrapFrame{
		Rip:    entry,
		Rsp:    sp,
		Cs:     UserCS,
		Ss:     UserSS,
		Rflags: UserRflags,
	}
}

// Syscall decodes the syscall number and the six argument words using the
// x86_64 syscall convention.
func (tf *TrapFrame) Syscall() (uint64, [6]uint64) {
	return tf.Rax, [6]uint64{tf.Rdi, tf.Rsi, tf.Rdx, tf.R10, tf.R8, tf.R9}
}

// SetSyscall loads a syscall number and arguments into the frame, the way
// user code would before executing the syscall instruction.
func (tf *TrapFrame) SetSyscall(id uint64, args [6]uint64) {
	tf.Rax = id
	tf.Rdi, tf.Rsi, tf.Rdx = args[0], args[1], args[2]
	tf.R10, tf.R8, tf.R9 = args[3], args[4], args[5]
}

// SetReturn stores the syscall return value.
func (tf *TrapFrame) SetReturn(v int64) {
	tf.Rax = uint64(v)
}

// Return reads the syscall return value back as a signed word.
func (tf *TrapFrame) Return() int64 {
	return int64(tf.Rax)
}

func (tf *TrapFrame) Clone() *TrapFrame {
	c := *tf
	return &c
}
