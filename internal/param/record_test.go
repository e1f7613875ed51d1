package param

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromAliasAppliesOverlayOnDefault(t *testing.T) {
	r, err := FromAlias(AliasIN)
	require.NoError(t, err)
	def := Default()
	assert.Equal(t, def, r)
}

func TestFromAliasUnknownAlias(t *testing.T) {
	_, err := FromAlias("NOT_A_REAL_ALIAS")
	assert.Error(t, err)
}

func TestAllAliasesProduceIdempotentOverlay(t *testing.T) {
	for alias := range aliasTable {
		first, err := FromAlias(alias)
		require.NoError(t, err)
		second, err := FromAlias(alias)
		require.NoError(t, err)
		assert.Equal(t, first, second, "alias %s must be deterministic", alias)
	}
}

func TestFileAliasesClearKeepRename(t *testing.T) {
	r, err := FromAlias(AliasFILEINOUT)
	require.NoError(t, err)
	assert.Equal(t, ContentFILE, r.ContentType)
	assert.Equal(t, DirectionINOUT, r.Direction)
	assert.False(t, r.KeepRename)
}

func TestStreamAliasesMapToExternalStream(t *testing.T) {
	in, err := FromAlias(AliasSTREAMIN)
	require.NoError(t, err)
	assert.Equal(t, ContentEXTERNALSTREAM, in.ContentType)
	assert.Equal(t, DirectionIN, in.Direction)

	out, err := FromAlias(AliasSTREAMOUT)
	require.NoError(t, err)
	assert.Equal(t, ContentEXTERNALSTREAM, out.ContentType)
	assert.Equal(t, DirectionOUT, out.Direction)
}

func TestFromDictOverlaysAliasThenFields(t *testing.T) {
	prefix := "--in="
	depth := 3
	r, err := FromDict(DictSpec{
		Type:   AliasCOLLECTIONIN,
		Prefix: &prefix,
		Depth:  &depth,
	})
	require.NoError(t, err)
	assert.Equal(t, ContentCOLLECTION, r.ContentType)
	assert.Equal(t, DirectionIN, r.Direction)
	assert.Equal(t, prefix, r.Prefix)
	assert.Equal(t, depth, r.Depth)
}

func TestFromDictDefaultsToIN(t *testing.T) {
	r, err := FromDict(DictSpec{})
	require.NoError(t, err)
	assert.Equal(t, Default(), r)
}

type fakePSCO struct {
	id    string
	hasID bool
}

func (f fakePSCO) GetID() (string, bool) { return f.id, f.hasID }

func TestInferTypeOrdering(t *testing.T) {
	assert.Equal(t, ContentBOOL, InferType(true, 0))
	assert.Equal(t, ContentINT, InferType(1, 0))
	assert.Equal(t, ContentLONG, InferType(int64(1)<<40, 0))
	assert.Equal(t, ContentDOUBLE, InferType(1.5, 0))
	assert.Equal(t, ContentSTRING, InferType("x", 0))
	assert.Equal(t, ContentCOLLECTION, InferType([]int{1, 2}, 1))
	assert.Equal(t, ContentOBJECT, InferType([]int{1, 2}, 0))
}

func TestInferTypePersistentProbe(t *testing.T) {
	assert.Equal(t, ContentEXTERNALPSCO, InferType(fakePSCO{id: "abc", hasID: true}, 0))
	assert.Equal(t, ContentOBJECT, InferType(fakePSCO{id: "", hasID: true}, 0))
	assert.Equal(t, ContentOBJECT, InferType(fakePSCO{id: "None", hasID: true}, 0))
}

func TestInferTypeNumericLibraryGuard(t *testing.T) {
	old := NumericScalarProbe
	defer func() { NumericScalarProbe = old }()
	NumericScalarProbe = func(interface{}) bool { return true }
	assert.Equal(t, ContentOBJECT, InferType(3.14, 0))
}
