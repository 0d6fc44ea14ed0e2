package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/sysgate/sysgate/fs"
	"github.com/sysgate/sysgate/fs/host"
	"github.com/sysgate/sysgate/fs/tarfs"
	"github.com/sysgate/sysgate/kernel"
	clog "github.com/sysgate/sysgate/log"
	"github.com/sysgate/sysgate/replay"
	"github.com/sysgate/sysgate/syscalls"
)

type closeProtect struct {
	*os.File
}

func (_ closeProtect) Close() error {
	return nil
}

var (
	fTar      = pflag.StringP("tar", "t", "", "tar archive to mount as the root")
	fRoot     = pflag.StringP("root", "r", "", "host directory to mount read-only as the root")
	fTable    = pflag.Bool("table", false, "print the syscall table and exit")
	fTickHz   = pflag.Int("tick-hz", kernel.DefaultConfig().TickHz, "rate of the tick clock")
	fMaxFiles = pflag.Int("max-files", kernel.DefaultConfig().MaxFiles, "descriptor table size per process")
	fTrace    = pflag.Bool("trace", false, "log every syscall")
)

func main() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: sysgate [flags] [script]\n\n")
		pflag.PrintDefaults()
	}

	pflag.Parse()

	clog.EnableDebug(*fTrace)

	if *fTable {
		printSyscallTable()
		return
	}

	cfg := kernel.DefaultConfig()
	cfg.TickHz = *fTickHz
	cfg.MaxFiles = *fMaxFiles

	k, err := kernel.NewKernel(clog.L.Named("kernel"), cfg)
	if err != nil {
		log.Fatal(err)
	}

	root, err := mountRoot()
	if err != nil {
		log.Fatal(err)
	}

	if root != nil {
		k.SetRoot(root)
	}

	script, err := openScript(pflag.Args())
	if err != nil {
		log.Fatal(err)
	}

	calls, err := replay.Parse(script)
	script.Close()
	if err != nil {
		log.Fatal(err)
	}

	d, err := k.Dispatcher()
	if err != nil {
		log.Fatal(err)
	}

	task := k.NewProcess()
	task.HookupStdio(os.Stdin, closeProtect{os.Stdout}, closeProtect{os.Stderr})

	results, err := replay.Start(clog.L.Named("replay"), task, d, calls).Wait(context.Background())

	printResults(results)

	if err != nil {
		log.Fatal(err)
	}

	st, _ := task.ExitStatus()
	if st.Signo != 0 {
		fmt.Fprintf(os.Stderr, "process killed by signal %d\n", st.Signo)
		os.Exit(128 + st.Signo)
	}

	os.Exit(st.Code)
}

func mountRoot() (*fs.Inode, error) {
	switch {
	case *fTar != "" && *fRoot != "":
		return nil, errors.New("--tar and --root are exclusive")
	case *fTar != "":
		f, err := os.Open(*fTar)
		if err != nil {
			return nil, err
		}

		defer f.Close()

		tf, err := tarfs.NewTarFS(f)
		if err != nil {
			return nil, err
		}

		return tf.Root()
	case *fRoot != "":
		hfs, err := host.NewHostFS(*fRoot)
		if err != nil {
			return nil, err
		}

		return hfs.Root()
	}

	return nil, nil
}

func openScript(args []string) (io.ReadCloser, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.NopCloser(os.Stdin), nil
	}

	return os.Open(args[0])
}

func printSyscallTable() {
	tw := table.NewWriter()
	tw.AppendHeader(table.Row{"ID", "Name", "Kind"})

	for _, sc := range syscalls.Syscalls() {
		tw.AppendRow(table.Row{uint64(sc.Sysno), sc.Name, sc.Kind})
	}

	tw.SetStyle(table.StyleLight)
	tw.Style().Options.DrawBorder = false
	fmt.Printf("%s\n", tw.Render())
}

func printResults(results []replay.Result) {
	tw := table.NewWriter()
	tw.AppendHeader(table.Row{"Line", "Call", "ID", "Args", "Result", "Error"})

	for _, r := range results {
		var args []string
		for _, a := range r.Call.Args {
			args = append(args, a.String())
		}

		ret := "-"
		if r.Returned {
			ret = fmt.Sprint(r.Ret)
		}

		var errText string
		if errno, ok := r.Errno(); ok {
			errText = errno.Error()
		}

		tw.AppendRow(table.Row{r.Call.Line, r.Call.Name, r.Call.Sysno, strings.Join(args, " "), ret, errText})
	}

	tw.SetStyle(table.StyleLight)
	tw.Style().Options.DrawBorder = false
	fmt.Fprintf(os.Stderr, "%s\n", tw.Render())
}
