// Package replay drives scripted syscalls through a task's trap path.
//
// A script has one call per line:
//
//	open "/etc/hosts" 0 0
//	read 3 @64 64
//	60 0
//
// The first word is a syscall name or number. Arguments are integers,
// @N for an N byte zeroed buffer, or anything else as a NUL terminated
// string. Blank lines and lines starting with # are skipped.
package replay

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/google/shlex"
	"github.com/pkg/errors"
	"github.com/sysgate/sysgate/abi"
)

var ErrSyntax = errors.New("syntax error")

const maxBuffer = 1 << 20

type ArgKind int

const (
	Int ArgKind = iota
	String
	Buffer
)

type Arg struct {
	Kind  ArgKind
	Value uint64
	Str   string
	Size  uint64
}

func (a Arg) String() string {
	switch a.Kind {
	case String:
		return strconv.Quote(a.Str)
	case Buffer:
		return "@" + strconv.FormatUint(a.Size, 10)
	default:
		return strconv.FormatInt(int64(a.Value), 10)
	}
}

type Call struct {
	Line  int
	Sysno uint64
	Name  string
	Args  []Arg
}

func parseInt(s string) (uint64, bool) {
	if v, err := strconv.ParseInt(s, 0, 64); err == nil {
		return uint64(v), true
	}

	if v, err := strconv.ParseUint(s, 0, 64); err == nil {
		return v, true
	}

	return 0, false
}

func parseArg(tok string) (Arg, error) {
	if v, ok := parseInt(tok); ok {
		return Arg{Kind: Int, Value: v}, nil
	}

	if strings.HasPrefix(tok, "@") {
		size, ok := parseInt(tok[1:])
		if !ok || size == 0 || size > maxBuffer {
			return Arg{}, errors.Wrapf(ErrSyntax, "bad buffer size %q", tok)
		}

		return Arg{Kind: Buffer, Size: size}, nil
	}

	return Arg{Kind: String, Str: tok}, nil
}

// ParseLine parses one script line. ok is false for blank and comment
// lines.
func ParseLine(line string) (call Call, ok bool, err error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return Call{}, false, nil
	}

	parts, err := shlex.Split(line)
	if err != nil {
		return Call{}, false, errors.Wrap(ErrSyntax, err.Error())
	}

	if len(parts) == 0 {
		return Call{}, false, nil
	}

	if v, isNum := parseInt(parts[0]); isNum {
		call.Sysno = v
		call.Name = abi.Sysno(v).String()
	} else {
		no, found := abi.LookupSysno(parts[0])
		if !found {
			return Call{}, false, errors.Wrapf(ErrSyntax, "unknown syscall %q", parts[0])
		}

		call.Sysno = uint64(no)
		call.Name = parts[0]
	}

	if len(parts)-1 > 6 {
		return Call{}, false, errors.Wrapf(ErrSyntax, "%s: too many arguments", call.Name)
	}

	for _, tok := range parts[1:] {
		arg, err := parseArg(tok)
		if err != nil {
			return Call{}, false, err
		}

		call.Args = append(call.Args, arg)
	}

	return call, true, nil
}

// Parse reads a whole script.
func Parse(r io.Reader) ([]Call, error) {
	var calls []Call

	s := bufio.NewScanner(r)

	for lineno := 1; s.Scan(); lineno++ {
		call, ok, err := ParseLine(s.Text())
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", lineno)
		}

		if !ok {
			continue
		}

		call.Line = lineno
		calls = append(calls, call)
	}

	if err := s.Err(); err != nil {
		return nil, err
	}

	return calls, nil
}
