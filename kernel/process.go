package kernel

import (
	"bytes"
	"context"
	"encoding/binary"
	"io"
	"sync"

	hclog "github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"
	"github.com/sysgate/sysgate/abi"
	"github.com/sysgate/sysgate/arch"
	"github.com/sysgate/sysgate/fs"
	"github.com/sysgate/sysgate/memory"
)

type ProcessStatus int

const (
	Init    ProcessStatus = 0
	Running ProcessStatus = 1
	Dead    ProcessStatus = 2
)

type ExitStatus struct {
	Code  int
	Signo int
}

func (e ExitStatus) Status() int32 {
	return ((int32(e.Code) & 0xff) << 8) | (int32(e.Signo) & 0xff)
}

const maxPathLen = 4096

type Process struct {
	Kernel *Kernel
	Pid    int

	parent   *Process
	children *ProcessGroup

	Mount *fs.MountNamespace
	Mem   *memory.VirtualMemory
	Cwd   string

	status     ProcessStatus
	exitStatus ExitStatus
	fds        []*File
	tasks      []*Task
	priority   int

	mu sync.Mutex
}

// NewProcess creates a process with an empty address space and its first
// task. The task's frame starts zeroed.
func (k *Kernel) NewProcess() *Task {
	proc := &Process{
		Kernel:   k,
		children: NewProcessGroup(),
		Mount:    k.mount,
		Mem:      memory.NewVirtualMemory(),
		Cwd:      "/",
		status:   Running,
	}

	k.processes.AssignPid(proc)

	k.L.Trace("process-created", "pid", proc.Pid)

	return k.newTask(proc, &arch.TrapFrame{})
}

func (p *Process) L() hclog.Logger {
	return p.Kernel.L
}

func (p *Process) addTask(t *Task) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.tasks = append(p.tasks, t)
}

func (p *Process) Dead() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.status == Dead
}

func (p *Process) ExitStatus() (ExitStatus, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.exitStatus, p.status == Dead
}

func (p *Process) Priority() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.priority
}

func (p *Process) memory() *memory.VirtualMemory {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.Mem
}

func (p *Process) ReadAt(b []byte, off int64) (int, error) {
	return p.memory().ReadAt(b, off)
}

func (p *Process) WriteAt(b []byte, off int64) (int, error) {
	return p.memory().WriteAt(b, off)
}

// ReadCString reads a NUL terminated string from user memory.
func (p *Process) ReadCString(ptr abi.Addr) (string, error) {
	var buf bytes.Buffer

	var t [1]byte

	off := int64(ptr)

	for {
		_, err := p.ReadAt(t[:], off)
		if err != nil {
			return "", err
		}

		if t[0] == 0 {
			break
		}

		if buf.Len() >= maxPathLen {
			return "", ErrPathTooLong
		}

		buf.WriteByte(t[0])
		off += 1
	}

	return buf.String(), nil
}

type writeAdapter struct {
	sub    io.WriterAt
	offset int64
}

func (wa writeAdapter) Write(b []byte) (int, error) {
	return wa.sub.WriteAt(b, wa.offset)
}

func (p *Process) CopyOut(addr abi.Addr, val interface{}) error {
	return binary.Write(writeAdapter{sub: p, offset: int64(addr)}, binary.LittleEndian, val)
}

type readAdapter struct {
	sub    io.ReaderAt
	offset int64
}

func (ra readAdapter) Read(b []byte) (int, error) {
	return ra.sub.ReadAt(b, ra.offset)
}

func (p *Process) CopyIn(addr abi.Addr, val interface{}) error {
	return binary.Read(readAdapter{sub: p, offset: int64(addr)}, binary.LittleEndian, val)
}

// HookupStdio installs descriptors 0, 1 and 2.
func (p *Process) HookupStdio(i io.Reader, o, e io.Writer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.fds = append(p.fds[:0],
		newStreamFile(i, nil),
		newStreamFile(nil, o),
		newStreamFile(nil, e),
	)
}

// Fork copies p into a new child process whose single task resumes from
// regs.
func (p *Process) Fork(regs *arch.TrapFrame) (*Task, error) {
	p.mu.Lock()

	if p.status == Dead {
		p.mu.Unlock()
		return nil, ErrNoProcess
	}

	child := &Process{
		Kernel:   p.Kernel,
		parent:   p,
		children: NewProcessGroup(),
		Mount:    p.Mount,
		Mem:      p.Mem.Fork(),
		Cwd:      p.Cwd,
		status:   Running,
		priority: p.priority,
	}

	for _, file := range p.fds {
		if file != nil {
			file.incRef()
		}

		child.fds = append(child.fds, file)
	}

	p.mu.Unlock()

	p.Kernel.processes.AssignPid(child)

	if !p.children.Add(child) {
		// p exited while we were copying it.
		child.exit(ExitStatus{Signo: abi.SIGKILL})
		return nil, ErrNoProcess
	}

	p.L().Trace("process-forked", "parent", p.Pid, "child", child.Pid)

	return p.Kernel.newTask(child, regs), nil
}

// GetFile returns the file open at fd.
func (p *Process) GetFile(fd int) (*File, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if fd < 0 || fd >= len(p.fds) {
		return nil, false
	}

	file := p.fds[fd]
	if file == nil {
		return nil, false
	}

	return file, true
}

// InstallFile places file at the lowest free descriptor.
func (p *Process) InstallFile(file *File) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.status == Dead {
		return 0, ErrNoProcess
	}

	for i, f := range p.fds {
		if f == nil {
			p.fds[i] = file
			return i, nil
		}
	}

	if len(p.fds) >= p.Kernel.cfg.MaxFiles {
		return 0, ErrTooManyFiles
	}

	p.fds = append(p.fds, file)

	return len(p.fds) - 1, nil
}

func (p *Process) CloseFile(fd int) error {
	p.mu.Lock()

	if fd < 0 || fd >= len(p.fds) || p.fds[fd] == nil {
		p.mu.Unlock()
		return ErrUnknownFile
	}

	file := p.fds[fd]
	p.fds[fd] = nil

	p.mu.Unlock()

	return file.Close()
}

func (p *Process) Dup2(from, to int) error {
	p.mu.Lock()

	if from < 0 || from >= len(p.fds) || p.fds[from] == nil {
		p.mu.Unlock()
		return ErrUnknownFile
	}

	if to < 0 || to >= p.Kernel.cfg.MaxFiles {
		p.mu.Unlock()
		return errors.Wrapf(abi.EINVAL, "descriptor %d out of range", to)
	}

	if from == to {
		p.mu.Unlock()
		return nil
	}

	for len(p.fds) <= to {
		p.fds = append(p.fds, nil)
	}

	old := p.fds[to]

	p.fds[to] = p.fds[from]
	p.fds[to].incRef()

	p.mu.Unlock()

	if old != nil {
		return old.Close()
	}

	return nil
}

// WaitChild reaps the child pid, or any child when pid is 0.
func (p *Process) WaitChild(ctx context.Context, pid int, block bool) (int, ExitStatus, error) {
	target, err := p.children.Reap(ctx, pid, block)
	if err != nil {
		return 0, ExitStatus{}, err
	}

	if target == nil {
		return 0, ExitStatus{}, nil
	}

	p.Kernel.processes.RemoveProc(target)

	st, _ := target.ExitStatus()

	return target.Pid, st, nil
}

// exit marks p dead with st, closes its files and wakes the parent. Only
// the first call has any effect.
func (p *Process) exit(st ExitStatus) bool {
	p.mu.Lock()

	if p.status == Dead {
		p.mu.Unlock()
		return false
	}

	p.status = Dead
	p.exitStatus = st

	fds := p.fds
	p.fds = nil

	tasks := p.tasks
	parent := p.parent

	p.mu.Unlock()

	p.L().Trace("process-exit", "pid", p.Pid, "code", st.Code, "signo", st.Signo)

	for _, file := range fds {
		if file != nil {
			file.Close()
		}
	}

	for _, t := range tasks {
		t.cancel()
	}

	for _, orphan := range p.children.Close() {
		if orphan.Dead() {
			p.Kernel.processes.RemoveProc(orphan)
		}
	}

	if parent == nil || !parent.children.ProcessExitted(p) {
		p.Kernel.processes.RemoveProc(p)
	}

	return true
}

type ProcessManager struct {
	mu        sync.RWMutex
	highWater int
	lastTid   int
	processes map[int]*Process
}

func NewProcessManager() *ProcessManager {
	return &ProcessManager{
		processes: make(map[int]*Process),
	}
}

func (p *ProcessManager) AssignPid(proc *Process) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := 1; i <= p.highWater; i++ {
		if _, ok := p.processes[i]; !ok {
			proc.Pid = i
			p.processes[i] = proc
			return i
		}
	}

	p.highWater++
	pid := p.highWater
	p.processes[pid] = proc
	proc.Pid = pid

	return pid
}

func (p *ProcessManager) NextTid() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.lastTid++

	return p.lastTid
}

func (p *ProcessManager) RemoveProc(proc *Process) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.processes[proc.Pid] == proc {
		delete(p.processes, proc.Pid)
	}
}

func (p *ProcessManager) Lookup(pid int) (*Process, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	proc, ok := p.processes[pid]
	return proc, ok
}

func (p *ProcessManager) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return len(p.processes)
}
