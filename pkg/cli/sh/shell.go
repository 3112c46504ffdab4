package sh

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/genlink/pkg/env"
	fx "github.com/robotalks/genlink/pkg/framework"
)

// Shell provides ishell backed interactive shell on a machine.
type Shell struct {
	Interactive bool
	OutputJSON  bool
	// Timeout bounds every hardware wait of a command.
	Timeout time.Duration

	Shell   *ishell.Shell
	Config  *env.Config
	Machine *env.Machine
	Loop    *fx.Loop

	cancel func()
}

const (
	shellKey = "$shell"
	prompt   = "genlink > "
)

var (
	// flags

	evalOnly   bool
	outputJSON bool
	timeout    = 2 * time.Second

	commands []*ishell.Cmd
)

func init() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
	flag.DurationVar(&timeout, "timeout", timeout, "Command timeout.")
}

// AddCmds is used by other commands providers during init func.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a new shell.
func New(conf *env.Config) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,
		Timeout:     timeout,

		Shell:  ishell.New(),
		Config: conf,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt(prompt)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MachineFrom gets the machine from ishell context.
func MachineFrom(c *ishell.Context) *env.Machine {
	return ShellFrom(c).Machine
}

// WithTimeout wraps a command func with a context bounded by Timeout.
func WithTimeout(fn func(c *ishell.Context, ctx context.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		ctx, cancel := context.WithTimeout(context.Background(), ShellFrom(c).Timeout)
		defer cancel()
		fn(c, ctx)
	}
}

// Print prints a command result, in JSON if requested.
func Print(c *ishell.Context, v interface{}) {
	if ShellFrom(c).OutputJSON {
		out, err := json.Marshal(v)
		if err != nil {
			c.Err(err)
			return
		}
		c.Println(string(out))
		return
	}
	if str, ok := v.(fmt.Stringer); ok {
		c.Println(str.String())
		return
	}
	c.Printf("%+v\n", v)
}

// OK prints the result of a command without output.
func OK(c *ishell.Context, err error) {
	if err != nil {
		c.Err(err)
		return
	}
	if !ShellFrom(c).OutputJSON {
		c.Println("OK")
	}
}

// Start creates the machine and runs its loop in background.
func (s *Shell) Start() error {
	m, err := s.Config.NewMachine()
	if err != nil {
		return err
	}
	s.Machine = m
	s.Loop = fx.NewLoop()
	s.Loop.Interval = s.Config.Interval
	s.Loop.Add(m)
	var ctx context.Context
	ctx, s.cancel = context.WithCancel(context.Background())
	go s.Loop.Run(ctx)
	return nil
}

// Stop stops the loop and releases the machine.
func (s *Shell) Stop() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.Machine != nil {
		s.Machine.Close()
		s.Machine = nil
	}
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if err := s.Start(); err != nil {
		log.Fatalln(err)
	}
	defer s.Stop()

	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	New(env.NewConfig()).Run(flag.Args()...)
}
