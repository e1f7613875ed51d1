package coreelement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCall struct {
	ce *Element
}

func (f *fakeCall) CoreElement() (*Element, bool) {
	if f.ce == nil {
		return nil, false
	}
	return f.ce, true
}

func (f *fakeCall) SetCoreElement(e *Element) { f.ce = e }

func TestAttachOrCreateAllocatesOnce(t *testing.T) {
	call := &fakeCall{}
	e1 := AttachOrCreate(call)
	e1.SetImplType(ImplBinary)
	e2 := AttachOrCreate(call)
	assert.Same(t, e1, e2)
	assert.Equal(t, ImplBinary, e2.ImplType)
}

func TestAttachOrCreateMutatesExisting(t *testing.T) {
	existing := &Element{ImplType: ImplBinary, ImplSignature: "BINARY.old"}
	call := &fakeCall{ce: existing}
	got := AttachOrCreate(call)
	got.SetImplSignature("BINARY.new")
	assert.Same(t, existing, got)
	assert.Equal(t, "BINARY.new", existing.ImplSignature)
}

func TestSignatureDiscipline(t *testing.T) {
	assert.Equal(t, "BINARY./usr/bin/grep", BinarySignature("/usr/bin/grep"))
	assert.Equal(t, "MPI.4.mpiprog", MPISignature(4, "mpiprog"))
	assert.Equal(t, "MPMDMPI.2", MPMDMPISignature(2))
	assert.Equal(t, "OMPSS.ompssprog", OmpSsSignature("ompssprog"))
}

func TestResolveProcsLiteral(t *testing.T) {
	n, err := ResolveProcs("4", nil, 1)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestResolveProcsEnvRef(t *testing.T) {
	env := map[string]string{"NP": "8"}
	n, err := ResolveProcs("$NP", func(k string) (string, bool) { v, ok := env[k]; return v, ok }, 1)
	require.NoError(t, err)
	assert.Equal(t, 8, n)
}

func TestResolveProcsEnvRefMissingFallsBackToDefault(t *testing.T) {
	n, err := ResolveProcs("$MISSING", func(string) (string, bool) { return "", false }, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestResolveProcsEmptyUsesDefault(t *testing.T) {
	n, err := ResolveProcs("", nil, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestMPMDMPIArgsLayout(t *testing.T) {
	args := MPMDMPIArgs("mpirun", 2, "/tmp/work", true, []MPMDProgram{
		{Binary: "a.bin", Params: "-x", Procs: 2},
		{Binary: "b.bin", Params: "-y", Procs: 4},
	})
	assert.Equal(t, []string{
		"mpirun", "2", "/tmp/work", "true", "2",
		"a.bin", "-x", "2",
		"b.bin", "-y", "4",
	}, args)
}
