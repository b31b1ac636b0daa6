package tools

// Environment is the execution context a tool runs in. It rewrites the command line
// instead of mutating the process environment, so nothing has to be restored after the
// call, whatever its outcome.
type Environment interface {
	// Name identifies the environment in logs
	Name() string
	// Wrap returns the program and arguments that run program+args inside the environment
	Wrap(program string, args []string) (string, []string)
	// Launcher is the executable that must be on PATH for this environment, or "" when
	// the tool itself must be
	Launcher() string
}

// Host runs tools directly from PATH
type Host struct{}

func (Host) Name() string { return "host" }

func (Host) Wrap(program string, args []string) (string, []string) { return program, args }

func (Host) Launcher() string { return "" }

// CondaEnv runs tools through `conda run` inside a named environment
type CondaEnv struct {
	Conda string
	Env   string
}

func (c CondaEnv) Name() string { return "conda:" + c.Env }

func (c CondaEnv) Wrap(program string, args []string) (string, []string) {
	wrapped := make([]string, 0, len(args)+5)
	wrapped = append(wrapped, "run", "--no-capture-output", "-n", c.Env, program)
	wrapped = append(wrapped, args...)
	return c.Conda, wrapped
}

func (c CondaEnv) Launcher() string { return c.Conda }
