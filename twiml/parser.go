package twiml

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Parse parses TwiML XML and returns a Response AST
func Parse(data []byte) (*Response, error) {
	decoder := xml.NewDecoder(strings.NewReader(string(data)))
	var resp Response

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("xml parse error: %w", err)
		}

		if se, ok := token.(xml.StartElement); ok {
			if se.Name.Local == "Response" {
				if err := parseResponse(decoder, &se, &resp); err != nil {
					return nil, err
				}
				return &resp, nil
			}
		}
	}

	return nil, fmt.Errorf("no <Response> element found")
}

func parseResponse(decoder *xml.Decoder, start *xml.StartElement, resp *Response) error {
	for _, attr := range start.Attr {
		return fmt.Errorf("unknown attribute '%s' on <Response>", attr.Name.Local)
	}

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		switch t := token.(type) {
		case xml.StartElement:
			node, err := parseNode(decoder, &t)
			if err != nil {
				return err
			}
			if node != nil {
				resp.Children = append(resp.Children, node)
			}
		case xml.EndElement:
			if t.Name.Local == "Response" {
				return nil
			}
		}
	}
	return nil
}

func parseNode(decoder *xml.Decoder, start *xml.StartElement) (Node, error) {
	switch start.Name.Local {
	case "Say":
		return parseSay(decoder, start)
	case "Play":
		return parsePlay(decoder, start)
	case "Pause":
		return parsePause(decoder, start)
	case "Gather":
		return parseGather(decoder, start)
	case "Redirect":
		return parseRedirect(decoder, start)
	case "Hangup":
		// Hangup is self-closing, consume the end tag
		decoder.Skip()
		return &Hangup{}, nil
	default:
		return nil, fmt.Errorf("unknown TwiML element: <%s>", start.Name.Local)
	}
}

func parseSay(decoder *xml.Decoder, start *xml.StartElement) (*Say, error) {
	say := &Say{}
	for _, attr := range start.Attr {
		switch attr.Name.Local {
		case "voice":
			say.Voice = attr.Value
		case "language":
			say.Language = attr.Value
		default:
			return nil, fmt.Errorf("unknown attribute '%s' on <Say>", attr.Name.Local)
		}
	}

	if err := decoder.DecodeElement(&say.Text, start); err != nil {
		return nil, err
	}

	return say, nil
}

func parsePlay(decoder *xml.Decoder, start *xml.StartElement) (*Play, error) {
	play := &Play{}
	for _, attr := range start.Attr {
		return nil, fmt.Errorf("unknown attribute '%s' on <Play>", attr.Name.Local)
	}
	if err := decoder.DecodeElement(&play.URL, start); err != nil {
		return nil, err
	}
	return play, nil
}

func parsePause(decoder *xml.Decoder, start *xml.StartElement) (*Pause, error) {
	pause := &Pause{Length: 1} // default 1s
	for _, attr := range start.Attr {
		switch attr.Name.Local {
		case "length":
			if n, err := strconv.Atoi(attr.Value); err == nil {
				pause.Length = n
			}
		default:
			return nil, fmt.Errorf("unknown attribute '%s' on <Pause>", attr.Name.Local)
		}
	}
	decoder.Skip()
	return pause, nil
}

func parseGather(decoder *xml.Decoder, start *xml.StartElement) (*Gather, error) {
	gather := &Gather{
		Input:  "dtmf",
		Method: "POST",
	}

	for _, attr := range start.Attr {
		switch attr.Name.Local {
		case "input":
			gather.Input = attr.Value
		case "timeout":
			gather.Timeout = attr.Value
		case "speechTimeout":
			gather.SpeechTimeout = attr.Value
		case "action":
			gather.Action = attr.Value
		case "method":
			gather.Method = strings.ToUpper(attr.Value)
		default:
			return nil, fmt.Errorf("unknown attribute '%s' on <Gather>", attr.Name.Local)
		}
	}

	// Parse nested children
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := token.(type) {
		case xml.StartElement:
			node, err := parseNode(decoder, &t)
			if err != nil {
				return nil, err
			}
			if node != nil {
				gather.Children = append(gather.Children, node)
			}
		case xml.EndElement:
			if t.Name.Local == "Gather" {
				return gather, nil
			}
		}
	}

	return gather, nil
}

func parseRedirect(decoder *xml.Decoder, start *xml.StartElement) (*Redirect, error) {
	redirect := &Redirect{Method: "POST"}

	for _, attr := range start.Attr {
		switch attr.Name.Local {
		case "method":
			redirect.Method = strings.ToUpper(attr.Value)
		default:
			return nil, fmt.Errorf("unknown attribute '%s' on <Redirect>", attr.Name.Local)
		}
	}

	if err := decoder.DecodeElement(&redirect.URL, start); err != nil {
		return nil, err
	}

	return redirect, nil
}
