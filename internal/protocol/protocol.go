// Package protocol defines the JSON messages exchanged between a voice
// session and its interactive surface. Field names are part of the wire
// contract with the embedded page and must not change.
package protocol

import (
	"encoding/json"
	"fmt"
)

// Surface to controller commands.
const (
	CommandExplainCode = "explainCode"
	CommandSpeakText   = "speakText"
)

// Controller to surface commands.
const (
	CommandExplanationReady = "explanationReady"
	CommandSpeak            = "speak"
	CommandShowError        = "showError"
)

// Inbound is a message sent by the surface.
type Inbound struct {
	Command      string `json:"command"`
	VoiceCommand string `json:"voiceCommand,omitempty"`
	Text         string `json:"text,omitempty"`
}

// Outbound is a message sent to the surface.
type Outbound struct {
	Command  string `json:"command"`
	Text     string `json:"text"`
	VibeMode string `json:"vibeMode,omitempty"`
	Action   string `json:"action,omitempty"`
}

// DecodeInbound parses a surface message and checks that its command is
// known and carries the field that command requires.
func DecodeInbound(data []byte) (Inbound, error) {
	var in Inbound
	if err := json.Unmarshal(data, &in); err != nil {
		return Inbound{}, fmt.Errorf("decoding surface message: %w", err)
	}
	switch in.Command {
	case CommandExplainCode, CommandSpeakText:
		return in, nil
	case "":
		return Inbound{}, fmt.Errorf("surface message has no command")
	default:
		return Inbound{}, fmt.Errorf("unknown surface command %q", in.Command)
	}
}

// ExplanationReady carries a generated explanation with the tone name
// (vibeMode) and intent description (action) that produced it.
func ExplanationReady(text, vibeMode, action string) Outbound {
	return Outbound{Command: CommandExplanationReady, Text: text, VibeMode: vibeMode, Action: action}
}

// Speak asks the surface to read text aloud.
func Speak(text string) Outbound {
	return Outbound{Command: CommandSpeak, Text: text}
}

// ShowError asks the surface to display a user-facing error.
func ShowError(text string) Outbound {
	return Outbound{Command: CommandShowError, Text: text}
}
