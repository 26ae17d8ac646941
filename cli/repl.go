package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"

	"rowtree/engine"
)

// Repl drives the `db > ` prompt loop against an open engine, using
// readline for line history and Ctrl-D/Ctrl-C handling.
type Repl struct {
	eng *engine.Engine
	rl  *readline.Instance
	out io.Writer
}

// NewRepl wires a Repl to eng, reading from stdin/stdout via readline.
func NewRepl(eng *engine.Engine) (*Repl, error) {
	return newRepl(eng, &readline.Config{
		Prompt:          "db > ",
		InterruptPrompt: "^C",
		EOFPrompt:       ".exit",
	})
}

// newRepl builds a Repl from an arbitrary readline.Config, letting
// tests substitute Stdin/Stdout without a real terminal.
func newRepl(eng *engine.Engine, cfg *readline.Config) (*Repl, error) {
	rl, err := readline.NewEx(cfg)
	if err != nil {
		return nil, err
	}
	out := cfg.Stdout
	if out == nil {
		out = os.Stdout
	}
	return &Repl{eng: eng, rl: rl, out: out}, nil
}

// Run reads and executes lines until `.exit` or EOF and returns the
// process exit code (spec §6 "Exit codes"). A fatal engine error from
// `.btree` also ends the loop, returning 1; a fatal error from an
// insert or select prints its diagnostic and exits the process with
// code 1 directly, without returning.
func (r *Repl) Run() int {
	defer r.rl.Close()
	for {
		line, err := r.rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			// EOF (Ctrl-D): treat like a clean .exit.
			return r.exit()
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, ".") {
			if code, handled := r.handleMeta(line); handled {
				return code
			}
			continue
		}

		r.handleStatement(line)
	}
}

func (r *Repl) handleMeta(line string) (code int, exit bool) {
	switch DoMetaCommand(line) {
	case MetaCommandExit:
		return r.exit(), true
	case MetaCommandBTree:
		out, err := r.eng.BTreeDumpText()
		if r.checkFatal(err) {
			return 1, true
		}
		fmt.Fprint(r.out, out)
	case MetaCommandConstants:
		fmt.Fprintln(r.out, "Constants:")
		PrintConstants(r.out, r.eng.Constants())
	default:
		fmt.Fprintf(r.out, "Unrecognized command '%s'.\n", line)
	}
	return 0, false
}

func (r *Repl) handleStatement(line string) {
	stmt, result := PrepareStatement(line)
	if result != ParseSuccess {
		fmt.Fprintln(r.out, result.Error(line))
		return
	}

	switch stmt.Type {
	case StatementInsert:
		err := r.eng.ExecuteInsert(stmt.RowToInsert)
		if r.checkFatal(err) {
			os.Exit(1)
		}
		switch {
		case errors.Is(err, engine.ErrDuplicateKey):
			fmt.Fprintln(r.out, "Error: Duplicate key.")
			return
		case errors.Is(err, engine.ErrTableFull):
			fmt.Fprintln(r.out, "Error: Table full.")
			return
		case err != nil:
			fmt.Fprintln(r.out, err.Error())
			return
		}
	case StatementSelect:
		rows, err := r.eng.ExecuteSelect()
		if r.checkFatal(err) {
			os.Exit(1)
		}
		if err != nil {
			fmt.Fprintln(r.out, err.Error())
			return
		}
		PrintRows(r.out, rows)
	}
	fmt.Fprintln(r.out, "Executed.")
}

// checkFatal prints a diagnostic with a stack trace and reports true
// if err must abort the process (spec §7).
func (r *Repl) checkFatal(err error) bool {
	if err == nil || !engine.IsFatal(err) {
		return false
	}
	fmt.Fprintf(r.out, "%+v\n", err)
	return true
}

func (r *Repl) exit() int {
	if err := r.eng.Close(); err != nil {
		fmt.Fprintf(r.out, "%+v\n", err)
		return 1
	}
	return 0
}
