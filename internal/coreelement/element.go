// Package coreelement models the per-task implementation record handed to
// the native runtime: implementation kind, dedup signature, and positional
// argument list.
package coreelement

import (
	"fmt"
	"strconv"
	"strings"
)

// ImplType is the capability tag a decorator attaches.
type ImplType string

const (
	ImplBinary ImplType = "BINARY"
	ImplMPI    ImplType = "MPI"
	ImplMPMDMPI ImplType = "MPMDMPI"
	ImplOmpSs  ImplType = "OMPSS"
	ImplHTTP   ImplType = "HTTP"
	ImplMethod ImplType = "METHOD"
)

// AbsentArg is the placeholder the wire format uses for an omitted
// positional implementation argument.
const AbsentArg = "#"

// Element is the mutable core-element record. A single Element is created
// at most once per task invocation; every capability attached to the same
// call mutates the same instance.
type Element struct {
	ImplType      ImplType
	ImplSignature string
	ImplTypeArgs  []string
}

// SetImplType sets the implementation tag.
func (e *Element) SetImplType(t ImplType) { e.ImplType = t }

// SetImplSignature sets the dedup signature string.
func (e *Element) SetImplSignature(sig string) { e.ImplSignature = sig }

// SetImplTypeArgs replaces the positional argument list.
func (e *Element) SetImplTypeArgs(args []string) { e.ImplTypeArgs = args }

// Attacher is satisfied by an invocation context that may already carry a
// core-element (an outer decorator attached one first).
type Attacher interface {
	CoreElement() (*Element, bool)
	SetCoreElement(*Element)
}

// AttachOrCreate implements the shared "is there already a CE for this
// call?" probe every capability decorator performs: mutate the existing
// element if the call already carries one, otherwise allocate and attach a
// fresh one. Returns the element now owned by the call.
func AttachOrCreate(call Attacher) *Element {
	if e, ok := call.CoreElement(); ok {
		return e
	}
	e := &Element{}
	call.SetCoreElement(e)
	return e
}

// ResolveProcs resolves an MPI process count expressed as a literal int,
// an environment-variable reference ("$NAME"), or falls back to a
// configured default when the value is empty.
func ResolveProcs(value string, lookupEnv func(string) (string, bool), defaultProcs int) (int, error) {
	if value == "" {
		return defaultProcs, nil
	}
	if strings.HasPrefix(value, "$") {
		name := strings.TrimPrefix(value, "$")
		raw, ok := lookupEnv(name)
		if !ok || raw == "" {
			return defaultProcs, nil
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return 0, fmt.Errorf("coreelement: env %s does not hold an int procs count: %w", name, err)
		}
		return n, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("coreelement: procs value %q is not an int: %w", value, err)
	}
	return n, nil
}

// BinarySignature builds the BINARY.<binary-path> dedup signature.
func BinarySignature(binary string) string {
	return ImplBinary.String() + "." + binary
}

// MPISignature builds the MPI.<procs>.<binary> dedup signature.
func MPISignature(procs int, binary string) string {
	return strings.Join([]string{ImplMPI.String(), strconv.Itoa(procs), binary}, ".")
}

// MPMDMPISignature builds the MPMDMPI.<processes_per_node> dedup signature.
func MPMDMPISignature(processesPerNode int) string {
	return strings.Join([]string{ImplMPMDMPI.String(), strconv.Itoa(processesPerNode)}, ".")
}

// OmpSsSignature builds the OMPSS.<binary> dedup signature.
func OmpSsSignature(binary string) string {
	return ImplOmpSs.String() + "." + binary
}

// MPMDProgram is one (binary, params, procs) triple in an MPMD-MPI
// program list.
type MPMDProgram struct {
	Binary string
	Params string
	Procs  int
}

// MPMDMPIArgs builds the impl_type_args layout for MPMDMPI:
// [runner, ppn, working_dir, fail_by_exit_value, program_count,
// (binary, params, procs)*]. This order is part of the runtime ABI and
// must not change.
func MPMDMPIArgs(runner string, processesPerNode int, workingDir string, failByExitValue bool, programs []MPMDProgram) []string {
	args := []string{
		runner,
		strconv.Itoa(processesPerNode),
		workingDir,
		strconv.FormatBool(failByExitValue),
		strconv.Itoa(len(programs)),
	}
	for _, p := range programs {
		args = append(args, p.Binary, p.Params, strconv.Itoa(p.Procs))
	}
	return args
}

func (t ImplType) String() string { return string(t) }
