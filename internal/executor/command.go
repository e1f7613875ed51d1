// Package executor implements the persistent worker-side pipe executor
// (spec.md §4.9, component C9): the command loop that reads tokens off
// the pipe channel, classifies them, binds resources, dispatches the
// task, and replies.
package executor

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/compss-go/pipeworker/internal/param"
)

// Tag is one of the ASCII newline-framed command tags (spec.md §6).
type Tag string

const (
	TagExecuteTask     Tag = "EXECUTE_TASK"
	TagEndTask         Tag = "END_TASK"
	TagCompssException Tag = "COMPSS_EXCEPTION"
	TagPing            Tag = "PING"
	TagPong            Tag = "PONG"
	TagQuit            Tag = "QUIT"
)

// ParamTriple is one (type, stream, prefix, value) tuple in the
// EXECUTE_TASK parameter tail. The wire format calls these "triples" even
// though four fields are carried; see spec.md §4.9.
type ParamTriple struct {
	Type   string
	Stream string
	Prefix string
	Value  string
}

// TaskCommand is a fully-parsed EXECUTE_TASK, laid out per the fixed
// positional token scheme of spec.md §4.9. Deviation from this order
// breaks the runtime, so parsing is strict: a short or malformed token
// list is a fatal protocol error (spec.md §7.1).
type TaskCommand struct {
	JobID       string
	JobOut      string
	JobErr      string
	Tracing     bool
	TaskID      string
	Debug       bool
	StorageConf string
	OpType      string
	ModuleName  string
	MethodName  string
	Timeout     int
	Hostnames   []string
	ComputeUnits int
	HasTarget   bool
	// HasReturn is always the literal sentinel "null" on the wire; kept
	// for round-tripping rather than interpretation.
	HasReturn string
	Params    []ParamTriple
	CPUMask   string
	GPUMask   string
	Reserved  string
}

const minTaskTokens = 17 // indices 0..16 before any hostnames/params/trailer

// ParseTaskCommand parses a full EXECUTE_TASK line split into tokens, tag
// included: tokens[0] must be the "EXECUTE_TASK" tag itself.
func ParseTaskCommand(tokens []string) (TaskCommand, error) {
	if len(tokens) < minTaskTokens {
		return TaskCommand{}, fmt.Errorf("executor: EXECUTE_TASK has %d tokens, need at least %d", len(tokens), minTaskTokens)
	}
	if tokens[0] != string(TagExecuteTask) {
		return TaskCommand{}, fmt.Errorf("executor: not an EXECUTE_TASK command: %q", tokens[0])
	}

	timeout, err := strconv.Atoi(tokens[11])
	if err != nil {
		return TaskCommand{}, fmt.Errorf("executor: timeout token %q is not an int: %w", tokens[11], err)
	}
	n, err := strconv.Atoi(tokens[12])
	if err != nil {
		return TaskCommand{}, fmt.Errorf("executor: node-count token %q is not an int: %w", tokens[12], err)
	}
	if n < 0 {
		return TaskCommand{}, fmt.Errorf("executor: negative node count %d", n)
	}

	hostnameEnd := 13 + n
	if len(tokens) <= hostnameEnd {
		return TaskCommand{}, fmt.Errorf("executor: EXECUTE_TASK truncated before compute-units token")
	}
	hostnames := append([]string{}, tokens[13:hostnameEnd]...)

	computeUnits, err := strconv.Atoi(tokens[13+n])
	if err != nil {
		return TaskCommand{}, fmt.Errorf("executor: compute-units token %q is not an int: %w", tokens[13+n], err)
	}

	hasTargetIdx := 14 + n
	hasReturnIdx := 15 + n
	paramCountIdx := 16 + n
	if len(tokens) <= paramCountIdx {
		return TaskCommand{}, fmt.Errorf("executor: EXECUTE_TASK truncated before param-count token")
	}

	paramCount, err := strconv.Atoi(tokens[paramCountIdx])
	if err != nil {
		return TaskCommand{}, fmt.Errorf("executor: param-count token %q is not an int: %w", tokens[paramCountIdx], err)
	}
	if paramCount < 0 {
		return TaskCommand{}, fmt.Errorf("executor: negative param count %d", paramCount)
	}

	paramsStart := paramCountIdx + 1
	paramsEnd := paramsStart + paramCount*4
	if len(tokens) != paramsEnd+3 {
		return TaskCommand{}, fmt.Errorf("executor: EXECUTE_TASK has %d tokens, expected %d for %d params", len(tokens), paramsEnd+3, paramCount)
	}

	params := make([]ParamTriple, 0, paramCount)
	for i := 0; i < paramCount; i++ {
		base := paramsStart + i*4
		params = append(params, ParamTriple{
			Type:   tokens[base],
			Stream: tokens[base+1],
			Prefix: tokens[base+2],
			Value:  tokens[base+3],
		})
	}

	return TaskCommand{
		JobID:        tokens[1],
		JobOut:       tokens[2],
		JobErr:       tokens[3],
		Tracing:      parseFlag(tokens[4]),
		TaskID:       tokens[5],
		Debug:        parseFlag(tokens[6]),
		StorageConf:  tokens[7],
		OpType:       tokens[8],
		ModuleName:   tokens[9],
		MethodName:   tokens[10],
		Timeout:      timeout,
		Hostnames:    hostnames,
		ComputeUnits: computeUnits,
		HasTarget:    parseFlag(tokens[hasTargetIdx]),
		HasReturn:    tokens[hasReturnIdx],
		Params:       params,
		CPUMask:      tokens[paramsEnd],
		GPUMask:      tokens[paramsEnd+1],
		Reserved:     tokens[paramsEnd+2],
	}, nil
}

func parseFlag(tok string) bool { return strings.EqualFold(tok, "true") }

// ToRecords converts the command's raw (type, stream, prefix, value)
// tuples into canonical parameter records via the alias table, leaving
// Content as the raw wire-format string (direction/content-type/stream
// come from the alias; Content is filled in by the caller once the
// runtime value has been deserialized).
func (c TaskCommand) ToRecords() ([]param.Record, error) {
	records := make([]param.Record, 0, len(c.Params))
	for _, p := range c.Params {
		r, err := param.FromAlias(p.Type)
		if err != nil {
			return nil, err
		}
		r.Prefix = p.Prefix
		r.Content = p.Value
		records = append(records, r)
	}
	return records, nil
}
