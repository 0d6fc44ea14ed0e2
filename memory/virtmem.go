package memory

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
)

const PageSize = 4096

// Default placement for mappings the caller doesn't pin.
const (
	MmapBase  = 0x10000000
	StackTop  = 0x7fff00000000
	MaxUser   = 0x800000000000
	MinMapped = PageSize
)

var (
	ErrInvalidMemoryAccess = errors.New("invalid memory access")
	ErrBadRegionRequest    = errors.New("bad region request")
	ErrOverlap             = errors.New("region overlaps an existing mapping")
	ErrNoSpace             = errors.New("no free address range")
)

type Region struct {
	Start, Size uint64
	Prot        int

	// backing pages keyed by page index from Start, allocated on first write
	pages map[uint64][]byte
}

func (reg *Region) End() uint64 {
	return reg.Start + reg.Size
}

func (reg *Region) dup() *Region {
	child := &Region{Start: reg.Start, Size: reg.Size, Prot: reg.Prot}
	child.pages = slicePages(reg.pages, 0, reg.Size/PageSize)

	return child
}

func (reg *Region) Contains(x uint64) bool {
	return x >= reg.Start && x < reg.End()
}

func (reg *Region) overlaps(start, end uint64) bool {
	return start < reg.End() && reg.Start < end
}

func PageRound(sz uint64) uint64 {
	return (sz + PageSize - 1) &^ (PageSize - 1)
}

func PageAligned(x uint64) bool {
	return x&(PageSize-1) == 0
}

// page returns the backing page holding addr. Without alloc an untouched
// page comes back nil.
func (reg *Region) page(addr uint64, alloc bool) []byte {
	idx := (addr - reg.Start) / PageSize

	p, ok := reg.pages[idx]
	if ok || !alloc {
		return p
	}

	if reg.pages == nil {
		reg.pages = make(map[uint64][]byte)
	}

	p = make([]byte, PageSize)
	reg.pages[idx] = p

	return p
}

// Resident is the number of bytes of backing memory allocated.
func (reg *Region) Resident() uint64 {
	return uint64(len(reg.pages)) * PageSize
}

// slicePages copies the pages with index in [from, to), renumbered from 0.
func slicePages(pages map[uint64][]byte, from, to uint64) map[uint64][]byte {
	if len(pages) == 0 {
		return nil
	}

	out := make(map[uint64][]byte)

	for idx, p := range pages {
		if idx < from || idx >= to {
			continue
		}

		c := make([]byte, PageSize)
		copy(c, p)
		out[idx-from] = c
	}

	return out
}

// VirtualMemory is the user address space of one process.
type VirtualMemory struct {
	mu sync.Mutex

	regions []*Region

	nextMmapStart uint64
	size          uint64
}

func NewVirtualMemory() *VirtualMemory {
	return &VirtualMemory{
		nextMmapStart: MmapBase,
	}
}

func (vm *VirtualMemory) Fork() *VirtualMemory {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	child := &VirtualMemory{
		nextMmapStart: vm.nextMmapStart,
		size:          vm.size,
		regions:       make([]*Region, len(vm.regions)),
	}

	for i, reg := range vm.regions {
		child.regions[i] = reg.dup()
	}

	return child
}

// Size is the number of mapped bytes.
func (vm *VirtualMemory) Size() uint64 {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	return vm.size
}

func (vm *VirtualMemory) Regions() []Region {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	out := make([]Region, len(vm.regions))
	for i, reg := range vm.regions {
		out[i] = Region{Start: reg.Start, Size: reg.Size, Prot: reg.Prot}
	}

	return out
}

func (vm *VirtualMemory) findRegion(addr uint64) (*Region, bool) {
	i := sort.Search(len(vm.regions), func(i int) bool {
		return vm.regions[i].End() > addr
	})

	if i < len(vm.regions) && vm.regions[i].Contains(addr) {
		return vm.regions[i], true
	}

	return nil, false
}

func (vm *VirtualMemory) FindRegion(addr uint64) (*Region, bool) {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	return vm.findRegion(addr)
}

func (vm *VirtualMemory) free(start, end uint64) bool {
	if start < MinMapped || end > MaxUser || end <= start {
		return false
	}

	for _, reg := range vm.regions {
		if reg.overlaps(start, end) {
			return false
		}
	}

	return true
}

func (vm *VirtualMemory) firstOverlap(start, end uint64) *Region {
	for _, reg := range vm.regions {
		if reg.overlaps(start, end) {
			return reg
		}
	}

	return nil
}

func (vm *VirtualMemory) insert(reg *Region) {
	i := sort.Search(len(vm.regions), func(i int) bool {
		return vm.regions[i].Start >= reg.Start
	})

	vm.regions = append(vm.regions, nil)
	copy(vm.regions[i+1:], vm.regions[i:])
	vm.regions[i] = reg

	vm.size += reg.Size
}

// Map creates a region of size bytes. With fixed set the region starts at
// addr, which must be page aligned and unmapped; otherwise addr is a hint
// and the next free range above the mmap base is used.
func (vm *VirtualMemory) Map(addr, size uint64, prot int, fixed bool) (*Region, error) {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	if size == 0 {
		return nil, errors.Wrap(ErrBadRegionRequest, "zero length")
	}

	if size > MaxUser || PageRound(size) < size {
		return nil, errors.Wrapf(ErrBadRegionRequest, "length %#x", size)
	}

	size = PageRound(size)

	if fixed {
		if !PageAligned(addr) {
			return nil, errors.Wrapf(ErrBadRegionRequest, "unaligned address %#x", addr)
		}

		if !vm.free(addr, addr+size) {
			return nil, errors.Wrapf(ErrOverlap, "address=%#x, size=%#x", addr, size)
		}
	} else {
		addr = PageRound(addr)
		if addr == 0 || !vm.free(addr, addr+size) {
			addr = vm.nextMmapStart
		}

		for !vm.free(addr, addr+size) {
			reg := vm.firstOverlap(addr, addr+size)
			if reg == nil || reg.End()+size > MaxUser {
				return nil, errors.Wrapf(ErrNoSpace, "no room for %#x bytes", size)
			}

			addr = reg.End()
		}
	}

	reg := &Region{
		Start: addr,
		Size:  size,
		Prot:  prot,
	}

	vm.insert(reg)

	if reg.Contains(vm.nextMmapStart) || reg.Start == vm.nextMmapStart {
		vm.nextMmapStart = reg.End()
	}

	return reg, nil
}

// Unmap removes every mapping inside [addr, addr+size), splitting regions
// that straddle the range. Unmapping a hole is not an error.
func (vm *VirtualMemory) Unmap(addr, size uint64) error {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	if !PageAligned(addr) || size == 0 {
		return errors.Wrapf(ErrBadRegionRequest, "address=%#x, size=%#x", addr, size)
	}

	end := addr + PageRound(size)
	if end <= addr {
		return errors.Wrapf(ErrBadRegionRequest, "address=%#x, size=%#x", addr, size)
	}

	var out []*Region

	for _, reg := range vm.regions {
		if !reg.overlaps(addr, end) {
			out = append(out, reg)
			continue
		}

		vm.size -= reg.Size

		if reg.Start < addr {
			head := &Region{Start: reg.Start, Size: addr - reg.Start, Prot: reg.Prot}
			head.pages = slicePages(reg.pages, 0, head.Size/PageSize)
			out = append(out, head)
			vm.size += head.Size
		}

		if reg.End() > end {
			tail := &Region{Start: end, Size: reg.End() - end, Prot: reg.Prot}
			tail.pages = slicePages(reg.pages, (end-reg.Start)/PageSize, reg.Size/PageSize)
			out = append(out, tail)
			vm.size += tail.Size
		}
	}

	vm.regions = out

	return nil
}

func (vm *VirtualMemory) access(b []byte, addr uint64, write bool) (int, error) {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	var done int

	for done < len(b) {
		cur := addr + uint64(done)

		reg, ok := vm.findRegion(cur)
		if !ok {
			return done, errors.Wrapf(ErrInvalidMemoryAccess, "address=%#x", cur)
		}

		// regions are page aligned so a page never straddles two of them
		off := cur % PageSize

		n := PageSize - off
		if left := uint64(len(b) - done); left < n {
			n = left
		}

		dst := b[done : done+int(n)]

		switch page := reg.page(cur, write); {
		case write:
			copy(page[off:], dst)
		case page == nil:
			clear(dst)
		default:
			copy(dst, page[off:])
		}

		done += int(n)
	}

	return done, nil
}

// ReadAt reads user memory at address off.
func (vm *VirtualMemory) ReadAt(b []byte, off int64) (int, error) {
	return vm.access(b, uint64(off), false)
}

// WriteAt writes user memory at address off.
func (vm *VirtualMemory) WriteAt(b []byte, off int64) (int, error) {
	return vm.access(b, uint64(off), true)
}
