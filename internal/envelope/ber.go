package envelope

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"
)

const (
	maxBERDepth = 64

	tagOctetString            = 0x04
	tagConstructedOctetString = 0x24
)

var errTruncatedBER = errors.New("ber: truncated element")

// berNode is one parsed element. Primitive elements carry content,
// constructed ones carry children.
type berNode struct {
	tag      byte
	children []*berNode
	content  []byte
}

// normalizeBER re-encodes data with definite lengths so encoding/asn1 can
// read it. Streaming encoders emit indefinite lengths and split OCTET
// STRINGs into chunks; chunked universal OCTET STRINGs are joined again.
// DER input comes back unchanged.
func normalizeBER(data []byte) ([]byte, error) {
	node, rest, err := parseBER(data, 0)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("ber: %d bytes of trailing data", len(rest))
	}

	b := cryptobyte.NewBuilder(nil)
	node.marshal(b)
	return b.Bytes()
}

func parseBER(data []byte, depth int) (*berNode, []byte, error) {
	if depth > maxBERDepth {
		return nil, nil, errors.New("ber: nesting too deep")
	}
	if len(data) < 2 {
		return nil, nil, errTruncatedBER
	}

	tag := data[0]
	if tag&0x1f == 0x1f {
		return nil, nil, fmt.Errorf("ber: high tag number in identifier 0x%02x", tag)
	}
	constructed := tag&0x20 != 0
	node := &berNode{tag: tag}

	if data[1] == 0x80 {
		if !constructed {
			return nil, nil, fmt.Errorf("ber: indefinite length on primitive element 0x%02x", tag)
		}
		rest := data[2:]
		for {
			if len(rest) >= 2 && rest[0] == 0 && rest[1] == 0 {
				return node.flatten(), rest[2:], nil
			}
			child, next, err := parseBER(rest, depth+1)
			if err != nil {
				return nil, nil, err
			}
			node.children = append(node.children, child)
			rest = next
		}
	}

	length, rest, err := berLength(data[1], data[2:])
	if err != nil {
		return nil, nil, err
	}
	if length > len(rest) {
		return nil, nil, errTruncatedBER
	}
	body, rest := rest[:length], rest[length:]

	if !constructed {
		node.content = body
		return node, rest, nil
	}
	for len(body) > 0 {
		child, next, err := parseBER(body, depth+1)
		if err != nil {
			return nil, nil, err
		}
		node.children = append(node.children, child)
		body = next
	}
	return node.flatten(), rest, nil
}

func berLength(first byte, data []byte) (int, []byte, error) {
	if first&0x80 == 0 {
		return int(first), data, nil
	}
	count := int(first & 0x7f)
	if count == 0 || count > 4 || count > len(data) {
		return 0, nil, fmt.Errorf("ber: invalid length octet 0x%02x", first)
	}
	length := 0
	for _, c := range data[:count] {
		length = length<<8 | int(c)
	}
	if length < 0 {
		return 0, nil, fmt.Errorf("ber: length overflow")
	}
	return length, data[count:], nil
}

// flatten joins a chunked universal OCTET STRING into a primitive one.
func (n *berNode) flatten() *berNode {
	if n.tag != tagConstructedOctetString {
		return n
	}
	joined := &berNode{tag: tagOctetString, content: []byte{}}
	for _, c := range n.children {
		if c.tag != tagOctetString {
			return n
		}
		joined.content = append(joined.content, c.content...)
	}
	return joined
}

func (n *berNode) marshal(b *cryptobyte.Builder) {
	b.AddASN1(cbasn1.Tag(n.tag), func(child *cryptobyte.Builder) {
		if n.tag&0x20 == 0 {
			child.AddBytes(n.content)
			return
		}
		for _, c := range n.children {
			c.marshal(child)
		}
	})
}
