package twiml

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
)

// Render serializes a Response AST to a TwiML document.
func Render(resp *Response) (string, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)

	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")

	start := xml.StartElement{Name: xml.Name{Local: "Response"}}
	if err := enc.EncodeToken(start); err != nil {
		return "", err
	}
	for _, child := range resp.Children {
		if err := encodeNode(enc, child); err != nil {
			return "", err
		}
	}
	if err := enc.EncodeToken(start.End()); err != nil {
		return "", err
	}
	if err := enc.Flush(); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func encodeNode(enc *xml.Encoder, node Node) error {
	switch n := node.(type) {
	case *Say:
		return encodeText(enc, "Say", n.Text, attrs(
			attr("voice", n.Voice),
			attr("language", n.Language),
		))
	case *Play:
		return encodeText(enc, "Play", n.URL, nil)
	case *Pause:
		return encodeEmpty(enc, "Pause", attrs(
			attr("length", strconv.Itoa(n.Length)),
		))
	case *Gather:
		start := xml.StartElement{
			Name: xml.Name{Local: "Gather"},
			Attr: attrs(
				attr("input", n.Input),
				attr("timeout", n.Timeout),
				attr("speechTimeout", n.SpeechTimeout),
				attr("action", n.Action),
				attr("method", n.Method),
			),
		}
		if err := enc.EncodeToken(start); err != nil {
			return err
		}
		for _, child := range n.Children {
			if err := encodeNode(enc, child); err != nil {
				return err
			}
		}
		return enc.EncodeToken(start.End())
	case *Redirect:
		return encodeText(enc, "Redirect", n.URL, attrs(
			attr("method", n.Method),
		))
	case *Hangup:
		return encodeEmpty(enc, "Hangup", nil)
	default:
		return fmt.Errorf("cannot render TwiML node of type %T", node)
	}
}

func encodeText(enc *xml.Encoder, name, text string, attributes []xml.Attr) error {
	start := xml.StartElement{Name: xml.Name{Local: name}, Attr: attributes}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	if err := enc.EncodeToken(xml.CharData(text)); err != nil {
		return err
	}
	return enc.EncodeToken(start.End())
}

func encodeEmpty(enc *xml.Encoder, name string, attributes []xml.Attr) error {
	start := xml.StartElement{Name: xml.Name{Local: name}, Attr: attributes}
	if err := enc.EncodeToken(start); err != nil {
		return err
	}
	return enc.EncodeToken(start.End())
}

func attr(name, value string) xml.Attr {
	return xml.Attr{Name: xml.Name{Local: name}, Value: value}
}

// attrs drops empty attributes so rendered elements carry only what was set.
func attrs(candidates ...xml.Attr) []xml.Attr {
	out := make([]xml.Attr, 0, len(candidates))
	for _, a := range candidates {
		if a.Value != "" {
			out = append(out, a)
		}
	}
	return out
}
