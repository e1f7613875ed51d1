// Package param implements the typed parameter descriptor consumed by the
// executor: canonical records, the alias conversion table, and value-to-type
// inference.
package param

import (
	"fmt"
)

// Direction is the data-flow direction of a parameter.
type Direction int

const (
	DirectionIN Direction = iota
	DirectionOUT
	DirectionINOUT
	DirectionCONCURRENT
	DirectionCOMMUTATIVE
)

func (d Direction) String() string {
	switch d {
	case DirectionIN:
		return "IN"
	case DirectionOUT:
		return "OUT"
	case DirectionINOUT:
		return "INOUT"
	case DirectionCONCURRENT:
		return "CONCURRENT"
	case DirectionCOMMUTATIVE:
		return "COMMUTATIVE"
	default:
		return "UNKNOWN"
	}
}

// ContentType is the wire type tag of a parameter's payload.
type ContentType int

const (
	ContentOBJECT ContentType = iota
	ContentFILE
	ContentDIRECTORY
	ContentCOLLECTION
	ContentEXTERNALSTREAM
	ContentEXTERNALPSCO
	ContentBOOL
	ContentSTRING
	ContentINT
	ContentLONG
	ContentDOUBLE
)

func (c ContentType) String() string {
	switch c {
	case ContentOBJECT:
		return "OBJECT"
	case ContentFILE:
		return "FILE"
	case ContentDIRECTORY:
		return "DIRECTORY"
	case ContentCOLLECTION:
		return "COLLECTION"
	case ContentEXTERNALSTREAM:
		return "EXTERNAL_STREAM"
	case ContentEXTERNALPSCO:
		return "EXTERNAL_PSCO"
	case ContentBOOL:
		return "BOOLEAN"
	case ContentSTRING:
		return "STRING"
	case ContentINT:
		return "INT"
	case ContentLONG:
		return "LONG"
	case ContentDOUBLE:
		return "DOUBLE"
	default:
		return "UNKNOWN"
	}
}

// StreamBinding ties a parameter to one of the task's standard streams.
type StreamBinding int

const (
	StreamUnspecified StreamBinding = iota
	StreamSTDIN
	StreamSTDOUT
	StreamSTDERR
)

// UndefinedContentType is the sentinel written when a parameter carries no
// extra module:class annotation.
const UndefinedContentType = "#UNDEFINED#:#UNDEFINED#"

// Record is the canonical, fully-resolved parameter descriptor.
type Record struct {
	Name             string
	Content          interface{}
	ContentType      ContentType
	Direction        Direction
	StreamBinding    StreamBinding
	Prefix           string
	FileName         string
	IsFuture         bool
	IsFileCollection bool
	Depth            int
	ExtraContentType string
	Weight           string
	KeepRename       bool
}

// Default returns the base record every alias overlay is composed onto:
// IN direction, OBJECT content, no stream binding, renames kept.
func Default() Record {
	return Record{
		Direction:        DirectionIN,
		ContentType:      ContentOBJECT,
		StreamBinding:    StreamUnspecified,
		Depth:            1,
		ExtraContentType: UndefinedContentType,
		Weight:           "1.0",
		KeepRename:       true,
	}
}

// IsObjectParam reports whether the record is an in-memory object, as
// opposed to a FILE or DIRECTORY path.
func (r Record) IsObjectParam() bool {
	return r.ContentType == ContentOBJECT
}

// overlay is a partial set of field overrides applied on top of Default().
// A nil field means "leave the base value untouched".
type overlay struct {
	contentType      *ContentType
	direction        *Direction
	streamBinding    *StreamBinding
	isFileCollection *bool
	keepRename       *bool
}

func (o overlay) applyTo(r *Record) {
	if o.contentType != nil {
		r.ContentType = *o.contentType
	}
	if o.direction != nil {
		r.Direction = *o.direction
	}
	if o.streamBinding != nil {
		r.StreamBinding = *o.streamBinding
	}
	if o.isFileCollection != nil {
		r.IsFileCollection = *o.isFileCollection
	}
	if o.keepRename != nil {
		r.KeepRename = *o.keepRename
	}
}

func ct(c ContentType) *ContentType    { return &c }
func dir(d Direction) *Direction       { return &d }
func stream(s StreamBinding) *StreamBinding { return &s }
func boolp(b bool) *bool               { return &b }

// Alias names. This is the closed 43-entry enumeration the runtime's
// keyword decorators address parameters by.
const (
	AliasIN                     = "IN"
	AliasOUT                    = "OUT"
	AliasINOUT                  = "INOUT"
	AliasCONCURRENT              = "CONCURRENT"
	AliasCOMMUTATIVE             = "COMMUTATIVE"
	AliasFILE                    = "FILE"
	AliasFILEIN                  = "FILE_IN"
	AliasFILEOUT                 = "FILE_OUT"
	AliasFILEINOUT               = "FILE_INOUT"
	AliasDIRECTORY               = "DIRECTORY"
	AliasDIRECTORYIN             = "DIRECTORY_IN"
	AliasDIRECTORYOUT            = "DIRECTORY_OUT"
	AliasDIRECTORYINOUT          = "DIRECTORY_INOUT"
	AliasFILECONCURRENT          = "FILE_CONCURRENT"
	AliasFILECOMMUTATIVE         = "FILE_COMMUTATIVE"
	AliasFILESTDIN               = "FILE_STDIN"
	AliasFILESTDERR              = "FILE_STDERR"
	AliasFILESTDOUT              = "FILE_STDOUT"
	AliasFILEINSTDIN             = "FILE_IN_STDIN"
	AliasFILEINSTDERR            = "FILE_IN_STDERR"
	AliasFILEINSTDOUT            = "FILE_IN_STDOUT"
	AliasFILEOUTSTDIN            = "FILE_OUT_STDIN"
	AliasFILEOUTSTDERR           = "FILE_OUT_STDERR"
	AliasFILEOUTSTDOUT           = "FILE_OUT_STDOUT"
	AliasFILEINOUTSTDIN          = "FILE_INOUT_STDIN"
	AliasFILEINOUTSTDERR         = "FILE_INOUT_STDERR"
	AliasFILEINOUTSTDOUT         = "FILE_INOUT_STDOUT"
	AliasFILECONCURRENTSTDIN     = "FILE_CONCURRENT_STDIN"
	AliasFILECONCURRENTSTDERR    = "FILE_CONCURRENT_STDERR"
	AliasFILECONCURRENTSTDOUT    = "FILE_CONCURRENT_STDOUT"
	AliasFILECOMMUTATIVESTDIN    = "FILE_COMMUTATIVE_STDIN"
	AliasFILECOMMUTATIVESTDERR   = "FILE_COMMUTATIVE_STDERR"
	AliasFILECOMMUTATIVESTDOUT   = "FILE_COMMUTATIVE_STDOUT"
	AliasCOLLECTION              = "COLLECTION"
	AliasCOLLECTIONIN            = "COLLECTION_IN"
	AliasCOLLECTIONINOUT         = "COLLECTION_INOUT"
	AliasCOLLECTIONOUT           = "COLLECTION_OUT"
	AliasSTREAMIN                = "STREAM_IN"
	AliasSTREAMOUT               = "STREAM_OUT"
	AliasCOLLECTIONFILE          = "COLLECTION_FILE"
	AliasCOLLECTIONFILEIN        = "COLLECTION_FILE_IN"
	AliasCOLLECTIONFILEINOUT     = "COLLECTION_FILE_INOUT"
	AliasCOLLECTIONFILEOUT       = "COLLECTION_FILE_OUT"
)

// aliasTable maps each alias to the overlay applied on top of Default().
//
// STREAM_IN/STREAM_OUT map to EXTERNAL_STREAM. The upstream table this is
// ported from references a misspelled constant here; that typo is not
// reproduced.
var aliasTable = map[string]overlay{
	AliasIN:          {},
	AliasOUT:         {direction: dir(DirectionOUT)},
	AliasINOUT:       {direction: dir(DirectionINOUT)},
	AliasCONCURRENT:  {direction: dir(DirectionCONCURRENT)},
	AliasCOMMUTATIVE: {direction: dir(DirectionCOMMUTATIVE)},

	AliasFILE:        {contentType: ct(ContentFILE), keepRename: boolp(false)},
	AliasFILEIN:      {contentType: ct(ContentFILE), keepRename: boolp(false)},
	AliasFILEOUT:     {contentType: ct(ContentFILE), direction: dir(DirectionOUT), keepRename: boolp(false)},
	AliasFILEINOUT:   {contentType: ct(ContentFILE), direction: dir(DirectionINOUT), keepRename: boolp(false)},

	AliasDIRECTORY:      {contentType: ct(ContentDIRECTORY), keepRename: boolp(false)},
	AliasDIRECTORYIN:    {contentType: ct(ContentDIRECTORY), keepRename: boolp(false)},
	AliasDIRECTORYOUT:   {contentType: ct(ContentDIRECTORY), direction: dir(DirectionOUT), keepRename: boolp(false)},
	AliasDIRECTORYINOUT: {contentType: ct(ContentDIRECTORY), direction: dir(DirectionINOUT), keepRename: boolp(false)},

	AliasFILECONCURRENT:  {contentType: ct(ContentFILE), direction: dir(DirectionCONCURRENT), keepRename: boolp(false)},
	AliasFILECOMMUTATIVE: {contentType: ct(ContentFILE), direction: dir(DirectionCOMMUTATIVE), keepRename: boolp(false)},

	AliasFILESTDIN:  {contentType: ct(ContentFILE), streamBinding: stream(StreamSTDIN), keepRename: boolp(false)},
	AliasFILESTDERR: {contentType: ct(ContentFILE), streamBinding: stream(StreamSTDERR), keepRename: boolp(false)},
	AliasFILESTDOUT: {contentType: ct(ContentFILE), streamBinding: stream(StreamSTDOUT), keepRename: boolp(false)},

	AliasFILEINSTDIN:  {contentType: ct(ContentFILE), direction: dir(DirectionIN), streamBinding: stream(StreamSTDIN), keepRename: boolp(false)},
	AliasFILEINSTDERR: {contentType: ct(ContentFILE), direction: dir(DirectionIN), streamBinding: stream(StreamSTDERR), keepRename: boolp(false)},
	AliasFILEINSTDOUT: {contentType: ct(ContentFILE), direction: dir(DirectionIN), streamBinding: stream(StreamSTDOUT), keepRename: boolp(false)},

	AliasFILEOUTSTDIN:  {contentType: ct(ContentFILE), direction: dir(DirectionOUT), streamBinding: stream(StreamSTDIN), keepRename: boolp(false)},
	AliasFILEOUTSTDERR: {contentType: ct(ContentFILE), direction: dir(DirectionOUT), streamBinding: stream(StreamSTDERR), keepRename: boolp(false)},
	AliasFILEOUTSTDOUT: {contentType: ct(ContentFILE), direction: dir(DirectionOUT), streamBinding: stream(StreamSTDOUT), keepRename: boolp(false)},

	AliasFILEINOUTSTDIN:  {contentType: ct(ContentFILE), direction: dir(DirectionINOUT), streamBinding: stream(StreamSTDIN), keepRename: boolp(false)},
	AliasFILEINOUTSTDERR: {contentType: ct(ContentFILE), direction: dir(DirectionINOUT), streamBinding: stream(StreamSTDERR), keepRename: boolp(false)},
	AliasFILEINOUTSTDOUT: {contentType: ct(ContentFILE), direction: dir(DirectionINOUT), streamBinding: stream(StreamSTDOUT), keepRename: boolp(false)},

	AliasFILECONCURRENTSTDIN:  {contentType: ct(ContentFILE), direction: dir(DirectionCONCURRENT), streamBinding: stream(StreamSTDIN), keepRename: boolp(false)},
	AliasFILECONCURRENTSTDERR: {contentType: ct(ContentFILE), direction: dir(DirectionCONCURRENT), streamBinding: stream(StreamSTDERR), keepRename: boolp(false)},
	AliasFILECONCURRENTSTDOUT: {contentType: ct(ContentFILE), direction: dir(DirectionCONCURRENT), streamBinding: stream(StreamSTDOUT), keepRename: boolp(false)},

	AliasFILECOMMUTATIVESTDIN:  {contentType: ct(ContentFILE), direction: dir(DirectionCOMMUTATIVE), streamBinding: stream(StreamSTDIN), keepRename: boolp(false)},
	AliasFILECOMMUTATIVESTDERR: {contentType: ct(ContentFILE), direction: dir(DirectionCOMMUTATIVE), streamBinding: stream(StreamSTDERR), keepRename: boolp(false)},
	AliasFILECOMMUTATIVESTDOUT: {contentType: ct(ContentFILE), direction: dir(DirectionCOMMUTATIVE), streamBinding: stream(StreamSTDOUT), keepRename: boolp(false)},

	AliasCOLLECTION:      {contentType: ct(ContentCOLLECTION)},
	AliasCOLLECTIONIN:    {contentType: ct(ContentCOLLECTION), direction: dir(DirectionIN)},
	AliasCOLLECTIONINOUT: {contentType: ct(ContentCOLLECTION), direction: dir(DirectionINOUT)},
	AliasCOLLECTIONOUT:   {contentType: ct(ContentCOLLECTION), direction: dir(DirectionOUT)},

	AliasSTREAMIN:  {contentType: ct(ContentEXTERNALSTREAM), direction: dir(DirectionIN)},
	AliasSTREAMOUT: {contentType: ct(ContentEXTERNALSTREAM), direction: dir(DirectionOUT)},

	AliasCOLLECTIONFILE:      {contentType: ct(ContentCOLLECTION), isFileCollection: boolp(true), keepRename: boolp(false)},
	AliasCOLLECTIONFILEIN:    {contentType: ct(ContentCOLLECTION), direction: dir(DirectionIN), isFileCollection: boolp(true), keepRename: boolp(false)},
	AliasCOLLECTIONFILEINOUT: {contentType: ct(ContentCOLLECTION), direction: dir(DirectionINOUT), isFileCollection: boolp(true), keepRename: boolp(false)},
	AliasCOLLECTIONFILEOUT:   {contentType: ct(ContentCOLLECTION), direction: dir(DirectionOUT), isFileCollection: boolp(true), keepRename: boolp(false)},
}

// FromAlias builds the canonical record for a single alias: Default()
// with the alias's overlay applied.
func FromAlias(alias string) (Record, error) {
	o, ok := aliasTable[alias]
	if !ok {
		return Record{}, fmt.Errorf("param: unknown alias %q", alias)
	}
	r := Default()
	o.applyTo(&r)
	return r, nil
}

// DictSpec is the overlay carried by a parameter expressed as a dict-like
// kwarg: an alias under Type plus optional field overrides.
type DictSpec struct {
	Type          string
	Direction     *Direction
	StdIOStream   *StreamBinding
	Prefix        *string
	Depth         *int
	Weight        *string
	KeepRename    *bool
}

// FromDict resolves a DictSpec: alias overlay first, then explicit
// per-field overrides, in that order.
func FromDict(d DictSpec) (Record, error) {
	alias := d.Type
	if alias == "" {
		alias = AliasIN
	}
	r, err := FromAlias(alias)
	if err != nil {
		return Record{}, err
	}
	if d.Direction != nil {
		r.Direction = *d.Direction
	}
	if d.StdIOStream != nil {
		r.StreamBinding = *d.StdIOStream
	}
	if d.Prefix != nil {
		r.Prefix = *d.Prefix
	}
	if d.Depth != nil {
		r.Depth = *d.Depth
	}
	if d.Weight != nil {
		r.Weight = *d.Weight
	}
	if d.KeepRename != nil {
		r.KeepRename = *d.KeepRename
	}
	return r, nil
}
