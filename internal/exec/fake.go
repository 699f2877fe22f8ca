package exec

import (
	"context"
	"fmt"
	"strings"
)

// Call records one invocation seen by a Fake.
type Call struct {
	Name string
	Args []string
	Dir  string
}

// Command returns the invocation as a single space-joined string, which
// keeps test assertions readable.
func (c Call) Command() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Fake is an Executor for tests. Responses are matched by command prefix;
// unmatched invocations succeed with empty output.
type Fake struct {
	Calls     []Call
	responses []fakeResponse
}

type fakeResponse struct {
	prefix string
	stdout string
	err    error
}

// Respond registers stdout (and an optional error) for every invocation
// whose space-joined command starts with prefix. Later registrations win
// over earlier ones.
func (f *Fake) Respond(prefix, stdout string, err error) {
	f.responses = append([]fakeResponse{{prefix: prefix, stdout: stdout, err: err}}, f.responses...)
}

func (f *Fake) Run(_ context.Context, opts *RunOptions) (*Result, error) {
	call := Call{Name: opts.Name, Args: opts.Args, Dir: opts.Dir}
	f.Calls = append(f.Calls, call)

	for _, r := range f.responses {
		if !strings.HasPrefix(call.Command(), r.prefix) {
			continue
		}
		if opts.Stdout != nil {
			fmt.Fprint(opts.Stdout, r.stdout)
			return &Result{}, r.err
		}
		return &Result{Stdout: []byte(r.stdout)}, r.err
	}
	return &Result{}, nil
}

func (f *Fake) LookPath(name string) (string, error) {
	return name, nil
}

// Commands returns every recorded invocation in order.
func (f *Fake) Commands() []string {
	out := make([]string, len(f.Calls))
	for i, c := range f.Calls {
		out[i] = c.Command()
	}
	return out
}
