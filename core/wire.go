package core

import (
	"encoding/json"
	"fmt"
)

// Wire frames are flat JSON objects tagged with a "type" discriminator.
// Inbound frames (customer→server, agent→server) are decoded into concrete
// command structs behind a marker interface per direction so the routing
// layer can switch exhaustively. Outbound frames (server→customer,
// server→agent) are plain structs whose Type field is fixed by their
// constructor; they are handed to Conn.Send as-is.

// Frame type discriminators, customer→server.
const (
	FrameRestore         = "restore"
	FrameCustomerMessage = "message"
	FrameHandoffResponse = "handoff_response"
	FrameCustomerInfo    = "customer_info"
	FrameEndChat         = "end_chat"
	FrameSurveyResponse  = "survey_response"
)

// Frame type discriminators, agent→server.
const (
	FrameAcceptRequest = "accept_request"
	FrameAgentMessage  = "agent_message"
	FrameAgentEndChat  = "end_chat"
	FrameSetStatus     = "set_status"
)

// Frame type discriminators, server→customer.
const (
	EvAIReply           = "ai_reply"
	EvHandoffOffer      = "handoff_offer"
	EvInfoRequest       = "info_request"
	EvQueued            = "queued"
	EvNoAgents          = "no_agents"
	EvAgentJoined       = "agent_joined"
	EvAgentMessage      = "agent_message"
	EvAgentDisconnected = "agent_disconnected"
	EvAgentReconnected  = "agent_reconnected"
	EvIdleWarning       = "idle_warning"
	EvChatEnded         = "chat_ended"
	EvSurveyRequest     = "survey_request"
	EvSessionStatus     = "session_status"
)

// Frame type discriminators, server→agent.
const (
	EvPendingRequest       = "pending_request"
	EvRequestTaken         = "request_taken"
	EvQueueUpdate          = "queue_update"
	EvSessionAssigned      = "session_assigned"
	EvCustomerMessage      = "customer_message"
	EvCustomerDisconnected = "customer_disconnected"
	EvCustomerReconnected  = "customer_reconnected"
	EvSessionEnded         = "session_ended"
	EvAcceptRejected       = "accept_rejected"
)

// CustomerCommand is the sum type of frames a customer connection may send.
type CustomerCommand interface{ customerCommand() }

// AgentCommand is the sum type of frames an agent connection may send.
type AgentCommand interface{ agentCommand() }

// RestoreSession asks the server to re-link an existing session (or create a
// fresh one when the token is unknown).
type RestoreSession struct {
	SessionID string `json:"session_id"`
}

// CustomerText is a chat message typed by the customer.
type CustomerText struct {
	Text string `json:"text"`
}

// HandoffResponse answers a pending handoff offer.
type HandoffResponse struct {
	Accept bool `json:"accept"`
}

// SubmitInfo carries the contact form; its submission fires the
// human-request event.
type SubmitInfo struct {
	Info CustomerInfo `json:"info"`
}

// CustomerEnd explicitly ends the conversation from the widget.
type CustomerEnd struct{}

// SurveyResponse carries the satisfaction survey result.
type SurveyResponse struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment,omitempty"`
}

func (RestoreSession) customerCommand()  {}
func (CustomerText) customerCommand()    {}
func (HandoffResponse) customerCommand() {}
func (SubmitInfo) customerCommand()      {}
func (CustomerEnd) customerCommand()     {}
func (SurveyResponse) customerCommand()  {}

// AcceptRequest claims a queued session for the sending agent.
type AcceptRequest struct {
	SessionID string `json:"session_id"`
}

// AgentText is a chat message typed by an agent for their assigned session.
type AgentText struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

// AgentEnd closes the agent's assigned chat.
type AgentEnd struct {
	SessionID string `json:"session_id"`
}

// SetStatus toggles the sending agent between online and busy (away).
type SetStatus struct {
	Status AgentStatus `json:"status"`
}

func (AcceptRequest) agentCommand() {}
func (AgentText) agentCommand()     {}
func (AgentEnd) agentCommand()      {}
func (SetStatus) agentCommand()     {}

type envelope struct {
	Type string `json:"type"`
}

// DecodeCustomerFrame parses one inbound widget frame into its concrete
// command. Unknown types yield an error; the caller logs and drops them.
func DecodeCustomerFrame(data []byte) (CustomerCommand, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("malformed customer frame: %w", err)
	}
	switch env.Type {
	case FrameRestore:
		var c RestoreSession
		return c, json.Unmarshal(data, &c)
	case FrameCustomerMessage:
		var c CustomerText
		return c, json.Unmarshal(data, &c)
	case FrameHandoffResponse:
		var c HandoffResponse
		return c, json.Unmarshal(data, &c)
	case FrameCustomerInfo:
		var c SubmitInfo
		return c, json.Unmarshal(data, &c)
	case FrameEndChat:
		return CustomerEnd{}, nil
	case FrameSurveyResponse:
		var c SurveyResponse
		return c, json.Unmarshal(data, &c)
	default:
		return nil, fmt.Errorf("unknown customer frame type %q", env.Type)
	}
}

// DecodeAgentFrame parses one inbound dashboard frame into its concrete
// command.
func DecodeAgentFrame(data []byte) (AgentCommand, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("malformed agent frame: %w", err)
	}
	switch env.Type {
	case FrameAcceptRequest:
		var c AcceptRequest
		return c, json.Unmarshal(data, &c)
	case FrameAgentMessage:
		var c AgentText
		return c, json.Unmarshal(data, &c)
	case FrameAgentEndChat:
		var c AgentEnd
		return c, json.Unmarshal(data, &c)
	case FrameSetStatus:
		var c SetStatus
		return c, json.Unmarshal(data, &c)
	default:
		return nil, fmt.Errorf("unknown agent frame type %q", env.Type)
	}
}

// CustomerEvent is an outbound server→customer frame.
type CustomerEvent struct {
	Type      string    `json:"type"`
	Text      string    `json:"text,omitempty"`
	Sources   []string  `json:"sources,omitempty"`
	AgentName string    `json:"agent_name,omitempty"`
	Position  int       `json:"position,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	HasHuman  *bool     `json:"has_human,omitempty"`
	History   []Message `json:"history,omitempty"`
}

// AgentEvent is an outbound server→agent frame.
type AgentEvent struct {
	Type          string        `json:"type"`
	SessionID     string        `json:"session_id,omitempty"`
	Text          string        `json:"text,omitempty"`
	Position      int           `json:"position,omitempty"`
	Preview       string        `json:"preview,omitempty"`
	QueueSize     *int          `json:"queue_size,omitempty"`
	Reason        string        `json:"reason,omitempty"`
	Customer      *CustomerInfo `json:"customer,omitempty"`
	Transcript    []Message     `json:"transcript,omitempty"`
	CannedReplies []string      `json:"canned_replies,omitempty"`
}
