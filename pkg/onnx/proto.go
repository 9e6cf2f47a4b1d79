package onnx

import (
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers of the subset of onnx.proto written by this package.
const (
	modelIRVersion       protowire.Number = 1
	modelProducerName    protowire.Number = 2
	modelProducerVersion protowire.Number = 3
	modelDomain          protowire.Number = 4
	modelModelVersion    protowire.Number = 5
	modelDocString       protowire.Number = 6
	modelGraph           protowire.Number = 7
	modelOpsetImport     protowire.Number = 8
	modelMetadataProps   protowire.Number = 14

	opsetDomain  protowire.Number = 1
	opsetVersion protowire.Number = 2

	entryKey   protowire.Number = 1
	entryValue protowire.Number = 2

	graphNode        protowire.Number = 1
	graphName        protowire.Number = 2
	graphInitializer protowire.Number = 5
	graphInput       protowire.Number = 11
	graphOutput      protowire.Number = 12

	nodeInput     protowire.Number = 1
	nodeOutput    protowire.Number = 2
	nodeName      protowire.Number = 3
	nodeOpType    protowire.Number = 4
	nodeAttribute protowire.Number = 5
	nodeDomain    protowire.Number = 7

	attrName    protowire.Number = 1
	attrF       protowire.Number = 2
	attrI       protowire.Number = 3
	attrS       protowire.Number = 4
	attrFloats  protowire.Number = 7
	attrInts    protowire.Number = 8
	attrStrings protowire.Number = 9
	attrType    protowire.Number = 20

	tensorDims      protowire.Number = 1
	tensorDataType  protowire.Number = 2
	tensorFloatData protowire.Number = 4
	tensorName      protowire.Number = 8

	valueInfoName protowire.Number = 1
	valueInfoType protowire.Number = 2

	typeTensorType protowire.Number = 1
	tensorElemType protowire.Number = 1
	tensorShape    protowire.Number = 2
	shapeDim       protowire.Number = 1
	dimValue       protowire.Number = 1
	dimParam       protowire.Number = 2
)

// TensorProto.DataType
const dataTypeFloat = 1

// AttributeProto.AttributeType
const (
	attributeFloat   = 1
	attributeInt     = 2
	attributeString  = 3
	attributeFloats  = 6
	attributeInts    = 7
	attributeStrings = 8
)

type model struct {
	irVersion       int64
	producerName    string
	producerVersion string
	domain          string
	modelVersion    int64
	docString       string
	graph           graph
	opsets          []opset
	metadata        []entry
}

type opset struct {
	domain  string
	version int64
}

type entry struct {
	key, value string
}

type graph struct {
	name         string
	nodes        []node
	initializers []tensor
	inputs       []valueInfo
	outputs      []valueInfo
}

type node struct {
	name       string
	opType     string
	domain     string
	inputs     []string
	outputs    []string
	attributes []attribute
}

type attribute struct {
	name    string
	kind    int64
	f       float32
	i       int64
	s       string
	floats  []float32
	ints    []int64
	strings []string
}

type tensor struct {
	name string
	dims []int64
	data []float32
}

// valueInfo describes a FLOAT tensor. Negative dims are written as symbolic.
type valueInfo struct {
	name string
	dims []int64
}

func (m *model) marshal() []byte {
	var b []byte
	b = appendVarint(b, modelIRVersion, m.irVersion)
	b = appendString(b, modelProducerName, m.producerName)
	b = appendString(b, modelProducerVersion, m.producerVersion)
	b = appendString(b, modelDomain, m.domain)
	b = appendVarint(b, modelModelVersion, m.modelVersion)
	b = appendString(b, modelDocString, m.docString)
	b = appendMessage(b, modelGraph, m.graph.marshal())
	for _, o := range m.opsets {
		var ob []byte
		ob = appendString(ob, opsetDomain, o.domain)
		ob = appendVarint(ob, opsetVersion, o.version)
		b = appendMessage(b, modelOpsetImport, ob)
	}
	for _, e := range m.metadata {
		var eb []byte
		eb = appendString(eb, entryKey, e.key)
		eb = appendString(eb, entryValue, e.value)
		b = appendMessage(b, modelMetadataProps, eb)
	}
	return b
}

func (g *graph) marshal() []byte {
	var b []byte
	for i := range g.nodes {
		b = appendMessage(b, graphNode, g.nodes[i].marshal())
	}
	b = appendString(b, graphName, g.name)
	for i := range g.initializers {
		b = appendMessage(b, graphInitializer, g.initializers[i].marshal())
	}
	for i := range g.inputs {
		b = appendMessage(b, graphInput, g.inputs[i].marshal())
	}
	for i := range g.outputs {
		b = appendMessage(b, graphOutput, g.outputs[i].marshal())
	}
	return b
}

func (n *node) marshal() []byte {
	var b []byte
	for _, in := range n.inputs {
		b = protowire.AppendTag(b, nodeInput, protowire.BytesType)
		b = protowire.AppendString(b, in)
	}
	for _, out := range n.outputs {
		b = protowire.AppendTag(b, nodeOutput, protowire.BytesType)
		b = protowire.AppendString(b, out)
	}
	b = appendString(b, nodeName, n.name)
	b = appendString(b, nodeOpType, n.opType)
	for i := range n.attributes {
		b = appendMessage(b, nodeAttribute, n.attributes[i].marshal())
	}
	b = appendString(b, nodeDomain, n.domain)
	return b
}

func (a *attribute) marshal() []byte {
	var b []byte
	b = appendString(b, attrName, a.name)
	switch a.kind {
	case attributeFloat:
		b = protowire.AppendTag(b, attrF, protowire.Fixed32Type)
		b = protowire.AppendFixed32(b, math.Float32bits(a.f))
	case attributeInt:
		b = protowire.AppendTag(b, attrI, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(a.i))
	case attributeString:
		b = protowire.AppendTag(b, attrS, protowire.BytesType)
		b = protowire.AppendString(b, a.s)
	case attributeFloats:
		b = appendPackedFloats(b, attrFloats, a.floats)
	case attributeInts:
		b = appendPackedInts(b, attrInts, a.ints)
	case attributeStrings:
		for _, s := range a.strings {
			b = protowire.AppendTag(b, attrStrings, protowire.BytesType)
			b = protowire.AppendString(b, s)
		}
	}
	b = protowire.AppendTag(b, attrType, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(a.kind))
	return b
}

func (t *tensor) marshal() []byte {
	var b []byte
	b = appendPackedInts(b, tensorDims, t.dims)
	b = protowire.AppendTag(b, tensorDataType, protowire.VarintType)
	b = protowire.AppendVarint(b, dataTypeFloat)
	b = appendPackedFloats(b, tensorFloatData, t.data)
	b = appendString(b, tensorName, t.name)
	return b
}

func (v *valueInfo) marshal() []byte {
	var shape []byte
	for _, d := range v.dims {
		var db []byte
		if d < 0 {
			db = appendString(db, dimParam, "batch")
		} else {
			db = protowire.AppendTag(db, dimValue, protowire.VarintType)
			db = protowire.AppendVarint(db, uint64(d))
		}
		shape = appendMessage(shape, shapeDim, db)
	}

	var tt []byte
	tt = protowire.AppendTag(tt, tensorElemType, protowire.VarintType)
	tt = protowire.AppendVarint(tt, dataTypeFloat)
	tt = appendMessage(tt, tensorShape, shape)

	var b []byte
	b = appendString(b, valueInfoName, v.name)
	b = appendMessage(b, valueInfoType, appendMessage(nil, typeTensorType, tt))
	return b
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendVarint(b []byte, num protowire.Number, v int64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(v))
}

// appendMessage writes an embedded message, including an empty one.
func appendMessage(b []byte, num protowire.Number, msg []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, msg)
}

func appendPackedFloats(b []byte, num protowire.Number, vs []float32) []byte {
	if len(vs) == 0 {
		return b
	}
	packed := make([]byte, 0, 4*len(vs))
	for _, v := range vs {
		packed = protowire.AppendFixed32(packed, math.Float32bits(v))
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, packed)
}

func appendPackedInts(b []byte, num protowire.Number, vs []int64) []byte {
	if len(vs) == 0 {
		return b
	}
	var packed []byte
	for _, v := range vs {
		packed = protowire.AppendVarint(packed, uint64(v))
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, packed)
}
