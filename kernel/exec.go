package kernel

import (
	"bytes"
	"context"
	"debug/elf"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
	"github.com/sysgate/sysgate/abi"
	"github.com/sysgate/sysgate/arch"
	"github.com/sysgate/sysgate/fs"
	"github.com/sysgate/sysgate/memory"
	"golang.org/x/crypto/blake2b"
)

const (
	maxArgs = 256

	// dynBase is where position independent executables are loaded.
	dynBase = 0x400000
)

// Segment is one PT_LOAD program header with its file contents.
type Segment struct {
	Vaddr uint64
	Memsz uint64
	Prot  int
	Data  []byte
}

// Image is a parsed executable, shared between processes through the
// image cache.
type Image struct {
	Entry    uint64
	Segments []Segment
}

func segmentProt(flags elf.ProgFlag) int {
	var prot int

	if flags&elf.PF_R != 0 {
		prot |= abi.ProtRead
	}

	if flags&elf.PF_W != 0 {
		prot |= abi.ProtWrite
	}

	if flags&elf.PF_X != 0 {
		prot |= abi.ProtExec
	}

	return prot
}

// ParseImage reads a static x86_64 ELF executable.
func ParseImage(data []byte) (*Image, error) {
	f, err := elf.NewFile(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(ErrBadImage, err.Error())
	}

	defer f.Close()

	if f.Class != elf.ELFCLASS64 || f.Machine != elf.EM_X86_64 {
		return nil, errors.Wrapf(ErrBadImage, "unsupported %s %s", f.Class, f.Machine)
	}

	var bias uint64

	switch f.Type {
	case elf.ET_EXEC:
	case elf.ET_DYN:
		bias = dynBase
	default:
		return nil, errors.Wrapf(ErrBadImage, "unsupported type %s", f.Type)
	}

	img := &Image{
		Entry: f.Entry + bias,
	}

	for _, prog := range f.Progs {
		if prog.Type != elf.PT_LOAD || prog.Memsz == 0 {
			continue
		}

		if prog.Filesz > prog.Memsz {
			return nil, errors.Wrapf(ErrBadImage, "segment at %#x has filesz > memsz", prog.Vaddr)
		}

		seg := Segment{
			Vaddr: prog.Vaddr + bias,
			Memsz: prog.Memsz,
			Prot:  segmentProt(prog.Flags),
			Data:  make([]byte, prog.Filesz),
		}

		if _, err := io.ReadFull(prog.Open(), seg.Data); err != nil {
			return nil, errors.Wrap(ErrBadImage, err.Error())
		}

		img.Segments = append(img.Segments, seg)
	}

	if len(img.Segments) == 0 {
		return nil, errors.Wrap(ErrBadImage, "no loadable segments")
	}

	return img, nil
}

// loadImage reads the file at d and parses it, consulting the image cache
// by content hash first.
func (k *Kernel) loadImage(ctx context.Context, d *fs.Dirent) (*Image, error) {
	if d.Inode.StableAttr.Type.IsDir() {
		return nil, errors.Wrapf(abi.EISDIR, "exec %s", d.Path())
	}

	h, err := d.Inode.Ops.Open(ctx, d.Inode, abi.ORdonly)
	if err != nil {
		return nil, err
	}

	defer h.Close()

	data, err := io.ReadAll(h)
	if err != nil {
		return nil, err
	}

	key := blake2b.Sum256(data)

	if v, ok := k.images.Get(key); ok {
		k.L.Trace("image-cache-hit", "path", d.Path())
		return v.(*Image), nil
	}

	img, err := ParseImage(data)
	if err != nil {
		return nil, err
	}

	k.images.Add(key, img)

	return img, nil
}

// mapSpan maps every unmapped page of [start, end) with prot. Segments of
// one image may share a page.
func mapSpan(mem *memory.VirtualMemory, start, end uint64, prot int) error {
	start &^= memory.PageSize - 1
	end = memory.PageRound(end)

	for addr := start; addr < end; {
		if reg, ok := mem.FindRegion(addr); ok {
			addr = reg.End()
			continue
		}

		run := addr + memory.PageSize
		for run < end {
			if _, ok := mem.FindRegion(run); ok {
				break
			}
			run += memory.PageSize
		}

		if _, err := mem.Map(addr, run-addr, prot, true); err != nil {
			return err
		}

		addr = run
	}

	return nil
}

// setupStack maps the user stack and lays out argc, argv and empty envp
// and auxv vectors. It returns the initial stack pointer.
func (k *Kernel) setupStack(mem *memory.VirtualMemory, args []string) (uint64, error) {
	size := memory.PageRound(k.cfg.StackSize)
	top := uint64(memory.StackTop)
	base := top - size

	need := uint64(8 * (len(args) + 5))
	for _, a := range args {
		need += uint64(len(a) + 1)
	}

	if need+32 > size {
		return 0, errors.Wrap(abi.EINVAL, "arguments do not fit on the stack")
	}

	if _, err := mem.Map(base, size, abi.ProtRead|abi.ProtWrite, true); err != nil {
		return 0, err
	}

	sp := top
	ptrs := make([]uint64, len(args))

	for i := len(args) - 1; i >= 0; i-- {
		b := append([]byte(args[i]), 0)
		sp -= uint64(len(b))

		if _, err := mem.WriteAt(b, int64(sp)); err != nil {
			return 0, err
		}

		ptrs[i] = sp
	}

	// argc, argv..., NULL, envp NULL, AT_NULL pair
	vec := make([]byte, 8*(len(args)+5))
	binary.LittleEndian.PutUint64(vec, uint64(len(args)))

	for i, ptr := range ptrs {
		binary.LittleEndian.PutUint64(vec[8*(i+1):], ptr)
	}

	sp = (sp - uint64(len(vec))) &^ 15

	if _, err := mem.WriteAt(vec, int64(sp)); err != nil {
		return 0, err
	}

	return sp, nil
}

// buildAddressSpace returns a fresh address space holding img and a stack
// carrying args.
func (k *Kernel) buildAddressSpace(img *Image, args []string) (*memory.VirtualMemory, uint64, error) {
	mem := memory.NewVirtualMemory()

	for _, seg := range img.Segments {
		if err := mapSpan(mem, seg.Vaddr, seg.Vaddr+seg.Memsz, seg.Prot); err != nil {
			return nil, 0, err
		}

		if _, err := mem.WriteAt(seg.Data, int64(seg.Vaddr)); err != nil {
			return nil, 0, err
		}
	}

	sp, err := k.setupStack(mem, args)
	if err != nil {
		return nil, 0, err
	}

	return mem, sp, nil
}

// execPath replaces t's image with the executable at p and points tf at
// its entry.
func (k *Kernel) execPath(ctx context.Context, t *Task, p string, args []string, tf *arch.TrapFrame) error {
	dirent, err := t.Mount.LookupPath(ctx, k.resolve(t, p))
	if err != nil {
		return err
	}

	img, err := k.loadImage(ctx, dirent)
	if err != nil {
		return err
	}

	mem, sp, err := k.buildAddressSpace(img, args)
	if err != nil {
		return err
	}

	t.mu.Lock()
	t.Mem = mem
	t.mu.Unlock()

	*tf = *arch.NewUserTrapFrame(img.Entry, sp)

	k.L.Trace("exec", "pid", t.Pid, "path", p, "entry", img.Entry, "sp", sp)

	return nil
}

func (k *Kernel) Exec(ctx context.Context, pathAddr abi.Addr, argc int, argv abi.Addr, tf *arch.TrapFrame) (int64, error) {
	t, err := k.task(ctx)
	if err != nil {
		return fail(err)
	}

	p, err := t.ReadCString(pathAddr)
	if err != nil {
		return fail(err)
	}

	if argc < 0 || argc > maxArgs {
		return fail(errors.Wrapf(abi.EINVAL, "argc %d", argc))
	}

	args := make([]string, argc)

	for i := range args {
		var ptr uint64

		if err := t.CopyIn(argv.Add(uint64(8*i)), &ptr); err != nil {
			return fail(err)
		}

		if args[i], err = t.ReadCString(abi.Addr(ptr)); err != nil {
			return fail(err)
		}
	}

	if err := k.execPath(ctx, t, p, args, tf); err != nil {
		return fail(err)
	}

	return 0, nil
}

// InitProcess creates a process running the executable at path.
func (k *Kernel) InitProcess(ctx context.Context, path string, args []string) (*Task, error) {
	t := k.NewProcess()

	if err := k.execPath(ctx, t, path, args, t.Regs); err != nil {
		t.Process.exit(ExitStatus{Code: 127})
		return nil, err
	}

	return t, nil
}
