package tool

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/convergio/convergio-go/logging"
)

// ExecutorOptions configures an Executor.
type ExecutorOptions struct {
	// Logger receives execution diagnostics. Defaults to the no-op logger.
	Logger logging.Logger
}

// Executor dispatches tool calls by name against a registry of tools. New
// capabilities are added by registering a Tool implementation; the
// conversation loop never needs to know which tools exist.
//
// Execute converts every failure mode into transcript text, so a bad tool
// call degrades a single turn instead of aborting the run.
type Executor struct {
	mu     sync.RWMutex
	tools  map[string]Tool
	logger logging.Logger
}

// NewExecutor creates an Executor and registers the given tools. Tools with
// empty or duplicate names are skipped with a warning; use Register when the
// caller needs the error.
func NewExecutor(tools []Tool, optFns ...func(o *ExecutorOptions)) *Executor {
	opts := ExecutorOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	e := &Executor{
		tools:  make(map[string]Tool, len(tools)),
		logger: logging.OrNoop(opts.Logger),
	}
	for _, t := range tools {
		if err := e.Register(t); err != nil {
			e.logger.Warn("tool.register.skipped", "error", err.Error())
		}
	}
	return e
}

// Register adds tools to the registry. It fails on a tool with an empty
// name or a name that is already registered, leaving earlier tools of the
// same batch in place.
func (e *Executor) Register(tools ...Tool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, t := range tools {
		name := t.Name()
		if name == "" {
			return fmt.Errorf("tool with empty name (%T)", t)
		}
		if _, exists := e.tools[name]; exists {
			return fmt.Errorf("tool %q already registered", name)
		}
		e.tools[name] = t
	}
	return nil
}

// Unregister removes a tool by name. Removing an unknown name is a no-op.
func (e *Executor) Unregister(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.tools, name)
}

// Get returns the tool registered under name.
func (e *Executor) Get(name string) (Tool, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	t, ok := e.tools[name]
	return t, ok
}

// Names returns the registered tool names sorted alphabetically.
func (e *Executor) Names() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	names := make([]string, 0, len(e.tools))
	for name := range e.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Tools returns the registered tools sorted by name, for building model
// function declarations.
func (e *Executor) Tools() []Tool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	tools := make([]Tool, 0, len(e.tools))
	for _, t := range e.tools {
		tools = append(tools, t)
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name() < tools[j].Name() })
	return tools
}

// Len returns the number of registered tools.
func (e *Executor) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.tools)
}

// Execute runs the named tool with JSON-encoded arguments and always returns
// text suitable for a transcript turn:
//
//   - unknown tool name      -> descriptive "not supported" message
//   - undecodable arguments  -> "Error executing tool: ..." message
//   - tool returned an error -> "Error executing tool: ..." message
//   - success                -> the result stringified (strings verbatim,
//     everything else JSON-encoded)
//
// Execute never returns an error: recovery happens per call and the run
// continues.
func (e *Executor) Execute(toolCtx *Context, name, argumentsJSON string) string {
	t, ok := e.Get(name)
	if !ok {
		e.logger.Warn("tool.execute.unknown", "tool", name)
		names := e.Names()
		if len(names) == 0 {
			return fmt.Sprintf("Tool '%s' is not supported.", name)
		}
		return fmt.Sprintf("Tool '%s' is not supported. Available tools: %s.", name, strings.Join(names, ", "))
	}

	args, err := decodeArguments(argumentsJSON)
	if err != nil {
		e.logger.Warn("tool.execute.bad_arguments", "tool", name, "error", err.Error())
		return fmt.Sprintf("Error executing tool: invalid arguments for %s: %v", name, err)
	}

	result, err := t.Call(toolCtx, args)
	if err != nil {
		return fmt.Sprintf("Error executing tool: %v", err)
	}
	return stringify(result)
}

// decodeArguments parses the model-supplied JSON argument object. Empty
// input means no arguments.
func decodeArguments(argumentsJSON string) (map[string]any, error) {
	args := map[string]any{}
	trimmed := strings.TrimSpace(argumentsJSON)
	if trimmed == "" {
		return args, nil
	}
	if err := json.Unmarshal([]byte(trimmed), &args); err != nil {
		return nil, err
	}
	return args, nil
}

func stringify(result any) string {
	switch v := result.(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case error:
		return v.Error()
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}
