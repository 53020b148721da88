package ami

import (
	"bufio"
	"errors"
	"fmt"
	"strings"
)

const (
	endCommand   = "--END COMMAND--"
	statusFollow = "Follows"
)

// Param is one ordered key/value line of an action.
type Param struct {
	Key   string
	Value string
}

// P builds a Param.
func P(key, value string) Param { return Param{Key: key, Value: value} }

// Header is one key/value line of a reply.
type Header struct {
	Key   string
	Value string
}

// Response is one decoded manager reply.
type Response struct {
	Status   string // Success, Error, Follows, Goodbye
	ActionID string
	Message  string
	Headers  []Header
	// Output holds command output: the body of a legacy "Follows" reply or
	// the values of "Output:" headers. Lines of an action reply that are not
	// headers land here too.
	Output []string
	// Raw is the reply as received, one line per entry joined with "\n".
	// Action replies are parsed from Raw.
	Raw string
}

// OK reports whether the manager accepted the request.
func (r *Response) OK() bool {
	return r.Status == "Success" || r.Status == statusFollow
}

// Get returns the first header named key, case-insensitively.
func (r *Response) Get(key string) string {
	for _, h := range r.Headers {
		if strings.EqualFold(h.Key, key) {
			return h.Value
		}
	}
	return ""
}

// Text returns only the command output joined with "\n".
func (r *Response) Text() string {
	return strings.Join(r.Output, "\n")
}

// checkAction rejects line breaks in the action name or a parameter, which
// would end the header early and let the rest be read as further headers.
func checkAction(name string, params []Param) error {
	if strings.ContainsAny(name, "\r\n") {
		return &CommandError{Action: name, Kind: CommandMalformed, Err: errors.New("action name contains a line break")}
	}
	for _, p := range params {
		if strings.ContainsAny(p.Key, "\r\n") || strings.ContainsAny(p.Value, "\r\n") {
			return &CommandError{Action: name, Kind: CommandMalformed, Err: fmt.Errorf("parameter %q contains a line break", strings.TrimSpace(p.Key))}
		}
	}
	return nil
}

func writeAction(w *bufio.Writer, name, actionID string, params []Param) error {
	if _, err := fmt.Fprintf(w, "Action: %s\r\nActionID: %s\r\n", name, actionID); err != nil {
		return err
	}
	for _, p := range params {
		if _, err := fmt.Fprintf(w, "%s: %s\r\n", p.Key, p.Value); err != nil {
			return err
		}
	}
	if _, err := w.WriteString("\r\n"); err != nil {
		return err
	}
	return w.Flush()
}

// readMessage reads one reply or event block. Blocks are terminated by a
// blank line; legacy "Response: Follows" replies run until --END COMMAND--.
// n reports how many bytes were consumed, including on error.
func readMessage(r *bufio.Reader) (resp *Response, n int, err error) {
	resp = &Response{}
	var raw []string
	follows := false

	for {
		line, rerr := r.ReadString('\n')
		n += len(line)
		if rerr != nil {
			return nil, n, rerr
		}
		line = strings.TrimRight(line, "\r\n")

		if follows {
			if strings.HasSuffix(line, endCommand) {
				if rest := strings.TrimRight(strings.TrimSuffix(line, endCommand), "\r\n"); rest != "" {
					resp.Output = append(resp.Output, rest)
					raw = append(raw, rest)
				}
				resp.Raw = strings.Join(raw, "\n")
				return resp, n, nil
			}
			raw = append(raw, line)
			key, value, ok := splitHeader(line)
			if ok && len(resp.Output) == 0 && (strings.EqualFold(key, "ActionID") || strings.EqualFold(key, "Privilege")) {
				resp.addHeader(key, value)
				continue
			}
			resp.Output = append(resp.Output, line)
			continue
		}

		if line == "" {
			if len(raw) == 0 {
				continue
			}
			resp.Raw = strings.Join(raw, "\n")
			return resp, n, nil
		}

		raw = append(raw, line)
		key, value, ok := splitHeader(line)
		if !ok {
			resp.Output = append(resp.Output, line)
			continue
		}
		resp.addHeader(key, value)
		if strings.EqualFold(key, "Response") && value == statusFollow {
			follows = true
		}
	}
}

func (r *Response) addHeader(key, value string) {
	switch {
	case strings.EqualFold(key, "Response"):
		r.Status = value
	case strings.EqualFold(key, "ActionID"):
		r.ActionID = value
	case strings.EqualFold(key, "Message"):
		r.Message = value
		r.Headers = append(r.Headers, Header{Key: key, Value: value})
	case strings.EqualFold(key, "Output"):
		r.Output = append(r.Output, value)
	default:
		r.Headers = append(r.Headers, Header{Key: key, Value: value})
	}
}

func splitHeader(line string) (key, value string, ok bool) {
	i := strings.Index(line, ":")
	if i <= 0 {
		return "", "", false
	}
	key = line[:i]
	if strings.ContainsAny(key, " \t") {
		return "", "", false
	}
	return key, strings.TrimSpace(line[i+1:]), true
}

// isEvent reports whether the block is an unsolicited event.
func (r *Response) isEvent() bool {
	return r.Status == "" && r.Get("Event") != ""
}
