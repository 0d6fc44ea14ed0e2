package memory

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"github.com/vektra/neko"
)

func TestVirtualMemory(t *testing.T) {
	n := neko.Modern(t)

	n.It("maps at the mmap base by default", func(t *testing.T) {
		vm := NewVirtualMemory()

		reg, err := vm.Map(0, 100, 3, false)
		require.NoError(t, err)

		require.Equal(t, uint64(MmapBase), reg.Start)
		require.Equal(t, uint64(PageSize), reg.Size)

		reg2, err := vm.Map(0, PageSize*2, 3, false)
		require.NoError(t, err)
		require.Equal(t, uint64(MmapBase+PageSize), reg2.Start)

		require.Equal(t, uint64(PageSize*3), vm.Size())
	})

	n.It("maps fixed addresses", func(t *testing.T) {
		vm := NewVirtualMemory()

		reg, err := vm.Map(0x400000, PageSize, 5, true)
		require.NoError(t, err)
		require.Equal(t, uint64(0x400000), reg.Start)

		_, err = vm.Map(0x400000, PageSize, 5, true)
		require.Equal(t, ErrOverlap, errors.Cause(err))

		_, err = vm.Map(0x400001, PageSize, 5, true)
		require.Equal(t, ErrBadRegionRequest, errors.Cause(err))
	})

	n.It("rejects empty mappings", func(t *testing.T) {
		vm := NewVirtualMemory()

		_, err := vm.Map(0, 0, 3, false)
		require.Equal(t, ErrBadRegionRequest, errors.Cause(err))
	})

	n.It("reads back what was written across regions", func(t *testing.T) {
		vm := NewVirtualMemory()

		_, err := vm.Map(0x1000000, PageSize, 3, true)
		require.NoError(t, err)

		_, err = vm.Map(0x1000000+PageSize, PageSize, 3, true)
		require.NoError(t, err)

		data := []byte("hello across the page boundary")
		addr := int64(0x1000000 + PageSize - 5)

		n, err := vm.WriteAt(data, addr)
		require.NoError(t, err)
		require.Equal(t, len(data), n)

		out := make([]byte, len(data))
		_, err = vm.ReadAt(out, addr)
		require.NoError(t, err)
		require.Equal(t, data, out)
	})

	n.It("faults on unmapped access", func(t *testing.T) {
		vm := NewVirtualMemory()

		_, err := vm.ReadAt(make([]byte, 4), 0xbad)
		require.Equal(t, ErrInvalidMemoryAccess, errors.Cause(err))

		_, err = vm.Map(0x2000000, PageSize, 3, true)
		require.NoError(t, err)

		n, err := vm.WriteAt(make([]byte, 8), 0x2000000+PageSize-4)
		require.Equal(t, ErrInvalidMemoryAccess, errors.Cause(err))
		require.Equal(t, 4, n)
	})

	n.It("splits regions on partial unmap", func(t *testing.T) {
		vm := NewVirtualMemory()

		_, err := vm.Map(0x3000000, PageSize*3, 3, true)
		require.NoError(t, err)

		_, err = vm.WriteAt([]byte{1}, 0x3000000)
		require.NoError(t, err)
		_, err = vm.WriteAt([]byte{3}, 0x3000000+2*PageSize)
		require.NoError(t, err)

		err = vm.Unmap(0x3000000+PageSize, PageSize)
		require.NoError(t, err)

		regs := vm.Regions()
		require.Len(t, regs, 2)
		require.Equal(t, uint64(0x3000000), regs[0].Start)
		require.Equal(t, uint64(PageSize), regs[0].Size)
		require.Equal(t, uint64(0x3000000+2*PageSize), regs[1].Start)
		require.Equal(t, uint64(PageSize*2), vm.Size())

		b := make([]byte, 1)
		_, err = vm.ReadAt(b, 0x3000000)
		require.NoError(t, err)
		require.Equal(t, byte(1), b[0])

		_, err = vm.ReadAt(b, 0x3000000+2*PageSize)
		require.NoError(t, err)
		require.Equal(t, byte(3), b[0])

		_, err = vm.ReadAt(b, 0x3000000+PageSize)
		require.Error(t, err)
	})

	n.It("rejects unaligned unmaps", func(t *testing.T) {
		vm := NewVirtualMemory()

		err := vm.Unmap(0x1001, PageSize)
		require.Equal(t, ErrBadRegionRequest, errors.Cause(err))
	})

	n.It("forks a private copy", func(t *testing.T) {
		vm := NewVirtualMemory()

		_, err := vm.Map(0x4000000, PageSize, 3, true)
		require.NoError(t, err)

		_, err = vm.WriteAt([]byte("parent"), 0x4000000)
		require.NoError(t, err)

		child := vm.Fork()

		_, err = child.WriteAt([]byte("child!"), 0x4000000)
		require.NoError(t, err)

		b := make([]byte, 6)
		_, err = vm.ReadAt(b, 0x4000000)
		require.NoError(t, err)
		require.Equal(t, "parent", string(b))

		_, err = child.ReadAt(b, 0x4000000)
		require.NoError(t, err)
		require.Equal(t, "child!", string(b))
	})

	n.It("rejects lengths beyond the user address space", func(t *testing.T) {
		vm := NewVirtualMemory()

		for _, size := range []uint64{^uint64(0), ^uint64(0) - PageSize, MaxUser + 1} {
			_, err := vm.Map(0, size, 3, false)
			require.Equal(t, ErrBadRegionRequest, errors.Cause(err), "size %#x", size)
		}

		require.Equal(t, uint64(0), vm.Size())
	})

	n.It("skips past mappings that block the hint", func(t *testing.T) {
		vm := NewVirtualMemory()

		_, err := vm.Map(MmapBase+PageSize, PageSize, 3, true)
		require.NoError(t, err)

		reg, err := vm.Map(0, PageSize*2, 3, false)
		require.NoError(t, err)
		require.Equal(t, uint64(MmapBase+2*PageSize), reg.Start)

		_, err = vm.Map(0, MaxUser-MmapBase, 3, false)
		require.Equal(t, ErrNoSpace, errors.Cause(err))
	})

	n.It("backs only the pages that were written", func(t *testing.T) {
		vm := NewVirtualMemory()

		reg, err := vm.Map(0, 1<<30, 3, false)
		require.NoError(t, err)

		_, err = vm.WriteAt([]byte("12345678"), int64(reg.End()-8))
		require.NoError(t, err)

		b := make([]byte, 16)
		_, err = vm.ReadAt(b, int64(reg.Start))
		require.NoError(t, err)
		require.Equal(t, make([]byte, 16), b)

		require.Equal(t, uint64(PageSize), reg.Resident())

		child := vm.Fork()
		require.Equal(t, uint64(PageSize), child.regions[0].Resident())

		_, err = child.ReadAt(b[:8], int64(reg.End()-8))
		require.NoError(t, err)
		require.Equal(t, "12345678", string(b[:8]))
	})

	n.It("keeps written pages when a region is split", func(t *testing.T) {
		vm := NewVirtualMemory()

		_, err := vm.Map(0x5000000, PageSize*4, 3, true)
		require.NoError(t, err)

		_, err = vm.WriteAt([]byte{9}, 0x5000000+3*PageSize+1)
		require.NoError(t, err)

		require.NoError(t, vm.Unmap(0x5000000, PageSize*2))

		require.Len(t, vm.regions, 1)
		require.Equal(t, uint64(PageSize), vm.regions[0].Resident())

		b := make([]byte, 1)
		_, err = vm.ReadAt(b, 0x5000000+3*PageSize+1)
		require.NoError(t, err)
		require.Equal(t, byte(9), b[0])
	})

	n.Meow()
}
