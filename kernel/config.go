package kernel

// Config tunes the reference kernel.
type Config struct {
	// TickHz is the rate of the tick clock used by get_time and sleep.
	TickHz int

	// MaxFiles bounds each process's descriptor table.
	MaxFiles int

	// MaxIOSize caps the bytes moved by one read or write.
	MaxIOSize int

	// StackSize is the size of the user stack set up by exec.
	StackSize uint64

	DirentCacheSize int
	ImageCacheSize  int

	MaxPriority int
}

func DefaultConfig() Config {
	return Config{
		TickHz:          100,
		MaxFiles:        256,
		MaxIOSize:       1 << 20,
		StackSize:       256 << 10,
		DirentCacheSize: 1000,
		ImageCacheSize:  16,
		MaxPriority:     63,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()

	if c.TickHz <= 0 {
		c.TickHz = def.TickHz
	}

	if c.MaxFiles <= 0 {
		c.MaxFiles = def.MaxFiles
	}

	if c.MaxIOSize <= 0 {
		c.MaxIOSize = def.MaxIOSize
	}

	if c.StackSize == 0 {
		c.StackSize = def.StackSize
	}

	if c.DirentCacheSize <= 0 {
		c.DirentCacheSize = def.DirentCacheSize
	}

	if c.ImageCacheSize <= 0 {
		c.ImageCacheSize = def.ImageCacheSize
	}

	if c.MaxPriority <= 0 {
		c.MaxPriority = def.MaxPriority
	}

	return c
}
