// Package content decodes PDF content streams into operator sequences and
// encodes them back.
//
// Operands keep the exact bytes they were scanned from, so a decode/encode
// round trip never changes how an operand is spelled. Only the whitespace
// between tokens and comments are normalised.
package content

import (
	"bytes"
	"strconv"
	"strings"
)

// Kind classifies an operand.
type Kind int

const (
	KindNumber Kind = iota
	KindName
	KindString
	KindHexString
	KindArray
	KindDict
	KindBool
	KindNull
)

var kindNames = [...]string{"number", "name", "string", "hexstring", "array", "dict", "bool", "null"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Operand is one operand token of a content stream operator.
type Operand struct {
	Kind Kind
	Raw  string
}

// Number returns a numeric operand for v.
func Number(v float64) Operand {
	return Operand{Kind: KindNumber, Raw: formatNumber(v)}
}

// Float returns the numeric value of a number operand.
func (o Operand) Float() (float64, bool) {
	if o.Kind != KindNumber {
		return 0, false
	}
	v, err := strconv.ParseFloat(o.Raw, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Operation is one operator together with its operands, in stream order.
// Data holds the raw sample bytes of an inline image (operator BI) and is
// nil for every other operator.
type Operation struct {
	Name     string
	Operands []Operand
	Data     []byte
}

// Concat returns the operator that concatenates the matrix [a b c d e f]
// onto the current transformation matrix.
func Concat(a, b, c, d, e, f float64) Operation {
	return Operation{
		Name:     "cm",
		Operands: []Operand{Number(a), Number(b), Number(c), Number(d), Number(e), Number(f)},
	}
}

// Scale returns the operator that scales both axes by s around the origin.
func Scale(s float64) Operation {
	return Concat(s, 0, 0, s, 0, 0)
}

// String renders the operation the way Encode writes it, without the
// trailing newline.
func (op Operation) String() string {
	var buf bytes.Buffer
	op.writeTo(&buf)
	return strings.TrimSuffix(buf.String(), "\n")
}

func (op Operation) writeTo(buf *bytes.Buffer) {
	if op.Name == "BI" {
		buf.WriteString("BI")
		for _, o := range op.Operands {
			buf.WriteByte(' ')
			buf.WriteString(o.Raw)
		}
		buf.WriteString(" ID ")
		buf.Write(op.Data)
		buf.WriteString("EI\n")
		return
	}
	for _, o := range op.Operands {
		buf.WriteString(o.Raw)
		buf.WriteByte(' ')
	}
	buf.WriteString(op.Name)
	buf.WriteByte('\n')
}

// Encode serialises ops as content stream bytes, one operator per line.
func Encode(ops []Operation) []byte {
	var buf bytes.Buffer
	for _, op := range ops {
		op.writeTo(&buf)
	}
	return buf.Bytes()
}

// Prepend returns a new sequence with op in front of ops.
func Prepend(op Operation, ops []Operation) []Operation {
	res := make([]Operation, 0, len(ops)+1)
	res = append(res, op)
	return append(res, ops...)
}

// formatNumber writes v with at most six decimals and no trailing zeros.
func formatNumber(v float64) string {
	s := strconv.FormatFloat(v, 'f', 6, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "-0" || s == "" {
		return "0"
	}
	return s
}
