package telephony

import (
	"bytes"
	"encoding/xml"
)

// Minimal TwiML builder. Only the verbs the webhook handlers emit;
// no provider SDK dependency.

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []any    `xml:",any"`
}

type twimlSay struct {
	XMLName xml.Name `xml:"Say"`
	Voice   string   `xml:"voice,attr,omitempty"`
	Text    string   `xml:",chardata"`
}

type twimlDial struct {
	XMLName  xml.Name `xml:"Dial"`
	CallerID string   `xml:"callerId,attr,omitempty"`
	Timeout  int      `xml:"timeout,attr,omitempty"`
	Action   string   `xml:"action,attr,omitempty"`
	Number   *twimlDialTarget
	Client   *twimlDialClient
}

type twimlDialTarget struct {
	XMLName        xml.Name `xml:"Number"`
	StatusCallback string   `xml:"statusCallback,attr,omitempty"`
	Value          string   `xml:",chardata"`
}

type twimlDialClient struct {
	XMLName              xml.Name `xml:"Client"`
	StatusCallback       string   `xml:"statusCallback,attr,omitempty"`
	StatusCallbackEvent  string   `xml:"statusCallbackEvent,attr,omitempty"`
	StatusCallbackMethod string   `xml:"statusCallbackMethod,attr,omitempty"`
	Value                string   `xml:",chardata"`
}

type twimlRecord struct {
	XMLName                 xml.Name `xml:"Record"`
	MaxLength               int      `xml:"maxLength,attr,omitempty"`
	PlayBeep                bool     `xml:"playBeep,attr"`
	Action                  string   `xml:"action,attr,omitempty"`
	RecordingStatusCallback string   `xml:"recordingStatusCallback,attr,omitempty"`
	Timeout                 int      `xml:"timeout,attr,omitempty"`
}

type twimlHangup struct {
	XMLName xml.Name `xml:"Hangup"`
}

type twimlReject struct {
	XMLName xml.Name `xml:"Reject"`
	Reason  string   `xml:"reason,attr,omitempty"`
}

// TwiML accumulates verbs and renders the response document.
type TwiML struct {
	verbs []any
}

func NewTwiML() *TwiML { return &TwiML{} }

func (t *TwiML) Say(text string) *TwiML {
	t.verbs = append(t.verbs, twimlSay{Voice: "alice", Text: text})
	return t
}

// DialClient rings the user's app endpoint. The status callback is
// bound to the client leg for the full event set, so inbound calls
// report their lifecycle the same way outbound ones do.
func (t *TwiML) DialClient(identity, callerID string, timeoutSeconds int, action, statusCallback string) *TwiML {
	t.verbs = append(t.verbs, twimlDial{
		CallerID: callerID,
		Timeout:  timeoutSeconds,
		Action:   action,
		Client: &twimlDialClient{
			StatusCallback:       statusCallback,
			StatusCallbackEvent:  "initiated ringing answered completed",
			StatusCallbackMethod: "POST",
			Value:                identity,
		},
	})
	return t
}

// DialNumber bridges to a PSTN number, with the status callback bound
// to the dialed leg.
func (t *TwiML) DialNumber(number, callerID string, timeoutSeconds int, statusCallback string) *TwiML {
	t.verbs = append(t.verbs, twimlDial{
		CallerID: callerID,
		Timeout:  timeoutSeconds,
		Number:   &twimlDialTarget{Value: number, StatusCallback: statusCallback},
	})
	return t
}

// Record starts voicemail capture.
func (t *TwiML) Record(maxLengthSeconds int, action, recordingCallback string) *TwiML {
	t.verbs = append(t.verbs, twimlRecord{
		MaxLength:               maxLengthSeconds,
		PlayBeep:                true,
		Action:                  action,
		RecordingStatusCallback: recordingCallback,
		Timeout:                 5,
	})
	return t
}

func (t *TwiML) Hangup() *TwiML {
	t.verbs = append(t.verbs, twimlHangup{})
	return t
}

func (t *TwiML) Reject(reason string) *TwiML {
	t.verbs = append(t.verbs, twimlReject{Reason: reason})
	return t
}

func (t *TwiML) Render() (string, error) {
	r := twimlResponse{Verbs: t.verbs}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(r); err != nil {
		return "", err
	}
	if err := enc.Flush(); err != nil {
		return "", err
	}
	return buf.String(), nil
}
