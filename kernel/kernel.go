// Package kernel is a reference implementation of the collaborators the
// syscall dispatcher routes to: processes and their descriptor tables,
// the mount namespace, address spaces and the tick clock.
package kernel

import (
	"context"
	"time"

	hclog "github.com/hashicorp/go-hclog"
	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
	"github.com/sysgate/sysgate/fs"
	"github.com/sysgate/sysgate/fs/tarfs"
	"github.com/sysgate/sysgate/log"
	"github.com/sysgate/sysgate/syscalls"
)

type Kernel struct {
	L hclog.Logger

	cfg Config

	processes *ProcessManager
	mount     *fs.MountNamespace
	images    *lru.ARCCache

	boot time.Time

	// base is the parent context of every task.
	base context.Context

	// OnFork is called with each new child task. The scheduler uses it to
	// start the child running. When nil, children exit at once with status 0.
	OnFork func(child *Task)
}

// NewKernel returns a kernel whose root filesystem is an empty writable
// tree. Use SetRoot to mount something else.
func NewKernel(l hclog.Logger, cfg Config) (*Kernel, error) {
	if l == nil {
		l = log.L
	}

	cfg = cfg.withDefaults()

	mount, err := fs.NewMountNamespace(cfg.DirentCacheSize)
	if err != nil {
		return nil, err
	}

	root, err := tarfs.New().Root()
	if err != nil {
		return nil, err
	}

	mount.SetRoot(root)

	images, err := lru.NewARC(cfg.ImageCacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "creating image cache")
	}

	k := &Kernel{
		L:         l,
		cfg:       cfg,
		processes: NewProcessManager(),
		mount:     mount,
		images:    images,
		boot:      time.Now(),
		base:      context.Background(),
	}

	return k, nil
}

func (k *Kernel) Config() Config {
	return k.cfg
}

func (k *Kernel) Mount() *fs.MountNamespace {
	return k.mount
}

// SetRoot replaces the root of the shared mount namespace.
func (k *Kernel) SetRoot(root *fs.Inode) {
	k.mount.SetRoot(root)
}

// Subsystems exposes the kernel as the dispatcher's collaborators.
func (k *Kernel) Subsystems() syscalls.Subsystems {
	return syscalls.Subsystems{
		FS:      k,
		Memory:  k,
		Process: k,
		Clock:   k,
		Network: k,
		Fault:   k,
	}
}

// Dispatcher returns a dispatcher wired to k.
func (k *Kernel) Dispatcher() (*syscalls.Dispatcher, error) {
	return syscalls.NewDispatcher(k.L.Named("syscalls"), k.Subsystems())
}

func (k *Kernel) Lookup(pid int) (*Process, bool) {
	return k.processes.Lookup(pid)
}

func (k *Kernel) task(ctx context.Context) (*Task, error) {
	t, ok := GetTask(ctx)
	if !ok {
		return nil, ErrNoTask
	}

	return t, nil
}
