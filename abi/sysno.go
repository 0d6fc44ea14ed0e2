package abi

import "fmt"

// Sysno is a system call number. The numbering is shared with the
// user-mode C runtime and must stay fixed.
type Sysno uint64

const (
	SysRead          Sysno = 0
	SysWrite         Sysno = 1
	SysOpen          Sysno = 2
	SysClose         Sysno = 3
	SysStat          Sysno = 4
	SysFstat         Sysno = 5
	SysLseek         Sysno = 8
	SysMmap          Sysno = 9
	SysMunmap        Sysno = 11
	SysBrk           Sysno = 12
	SysSigaction     Sysno = 13
	SysSigprocmask   Sysno = 14
	SysIoctl         Sysno = 16
	SysReadv         Sysno = 19
	SysWritev        Sysno = 20
	SysYield         Sysno = 24
	SysDup2          Sysno = 33
	SysSleep         Sysno = 35
	SysGetpid        Sysno = 39
	SysSocket        Sysno = 41
	SysFork          Sysno = 57
	SysExec          Sysno = 59
	SysExit          Sysno = 60
	SysWait          Sysno = 61
	SysKill          Sysno = 62
	SysGetDirEntry   Sysno = 78
	SysGetTime       Sysno = 96
	SysGetuid        Sysno = 102
	SysGeteuid       Sysno = 107
	SysGetegid       Sysno = 108
	SysSigaltstack   Sysno = 131
	SysSetPriority   Sysno = 141
	SysArchPrctl     Sysno = 158
	SysSetTidAddress Sysno = 218
	SysExitGroup     Sysno = 231
)

var sysnoNames = map[Sysno]string{
	SysRead:          "read",
	SysWrite:         "write",
	SysOpen:          "open",
	SysClose:         "close",
	SysStat:          "stat",
	SysFstat:         "fstat",
	SysLseek:         "lseek",
	SysMmap:          "mmap",
	SysMunmap:        "munmap",
	SysBrk:           "brk",
	SysSigaction:     "sigaction",
	SysSigprocmask:   "sigprocmask",
	SysIoctl:         "ioctl",
	SysReadv:         "readv",
	SysWritev:        "writev",
	SysYield:         "yield",
	SysDup2:          "dup2",
	SysSleep:         "sleep",
	SysGetpid:        "getpid",
	SysSocket:        "socket",
	SysFork:          "fork",
	SysExec:          "exec",
	SysExit:          "exit",
	SysWait:          "wait",
	SysKill:          "kill",
	SysGetDirEntry:   "getdirentry",
	SysGetTime:       "get_time",
	SysGetuid:        "getuid",
	SysGeteuid:       "geteuid",
	SysGetegid:       "getegid",
	SysSigaltstack:   "sigaltstack",
	SysSetPriority:   "set_priority",
	SysArchPrctl:     "arch_prctl",
	SysSetTidAddress: "set_tid_address",
	SysExitGroup:     "exit_group",
}

func (s Sysno) String() string {
	if n, ok := sysnoNames[s]; ok {
		return n
	}

	return fmt.Sprintf("sys_%d", uint64(s))
}

// LookupSysno resolves a syscall name to its number.
func LookupSysno(name string) (Sysno, bool) {
	for no, n := range sysnoNames {
		if n == name {
			return no, true
		}
	}

	return 0, false
}
