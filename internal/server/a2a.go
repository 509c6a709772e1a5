package server

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// JSON-RPC error codes used by the A2A surface.
const (
	codeParseError     = -32700
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternalError  = -32603
)

// methodMessageSend is the only A2A method this agent serves.
const methodMessageSend = "message/send"

// defaultQuery stands in when a message names a repository but asks nothing.
const defaultQuery = "What is this repository about?"

// repoPathMarker introduces the repository path inside the message text.
const repoPathMarker = "repo_path:"

// jsonRPCRequest is the envelope of an incoming A2A call. The ID is kept raw
// and echoed back verbatim, so string and numeric IDs both round-trip.
type jsonRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  *messageParams  `json:"params"`
}

type messageParams struct {
	Message struct {
		Parts []incomingPart `json:"parts"`
	} `json:"message"`
}

// incomingPart distinguishes an absent text field from an empty one: the
// first part carrying the field is taken, even when empty, and an empty text
// is rejected as invalid params.
type incomingPart struct {
	Kind string  `json:"kind"`
	Text *string `json:"text"`
}

// firstText returns the text of the first part that has one.
func (p *messageParams) firstText() string {
	if p == nil {
		return ""
	}
	for _, part := range p.Message.Parts {
		if part.Text != nil {
			return *part.Text
		}
	}
	return ""
}

type jsonRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *jsonRPCError   `json:"error,omitempty"`
}

type jsonRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func errorResponse(id json.RawMessage, code int, message string) jsonRPCResponse {
	return jsonRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &jsonRPCError{Code: code, Message: message},
	}
}

func resultResponse(id json.RawMessage, result any) jsonRPCResponse {
	return jsonRPCResponse{JSONRPC: "2.0", ID: id, Result: result}
}

// taskResult is the A2A task object returned from message/send.
type taskResult struct {
	ID        string         `json:"id"`
	Kind      string         `json:"kind"`
	Status    taskResultBody `json:"status"`
	Artifacts []artifact     `json:"artifacts"`
}

type taskResultBody struct {
	State     string `json:"state"`
	Timestamp string `json:"timestamp,omitempty"`
}

type artifact struct {
	Parts []artifactPart `json:"parts"`
}

type artifactPart struct {
	Kind string `json:"kind"`
	Text string `json:"text"`
}

// completedTask wraps an answer in the completed-task shape.
func completedTask(taskID, answer string) taskResult {
	return taskResult{
		ID:   taskID,
		Kind: "task",
		Status: taskResultBody{
			State:     "completed",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
		Artifacts: []artifact{{Parts: []artifactPart{{Kind: "text", Text: answer}}}},
	}
}

// rejectedTask is the failed-state result for messages missing a repository
// path. It is a result, not a JSON-RPC error: the request was well-formed,
// the agent just cannot act on it.
func rejectedTask(guidance string) taskResult {
	return taskResult{
		ID:        uuid.New().String(),
		Kind:      "task",
		Status:    taskResultBody{State: "failed"},
		Artifacts: []artifact{{Parts: []artifactPart{{Kind: "text", Text: guidance}}}},
	}
}

// ExtractParams splits a message text into the query and the repository
// path. The marker is matched case-insensitively; the path is the first
// whitespace-delimited token after it. Text before the marker is the query,
// defaulting to a general question when the message is only a path. The chat
// REPL accepts the same convention as inbound A2A messages.
func ExtractParams(text string) (query, repoPath string) {
	lower := strings.ToLower(text)
	idx := strings.Index(lower, repoPathMarker)
	if idx < 0 {
		return strings.TrimSpace(text), ""
	}

	query = strings.TrimSpace(text[:idx])
	rest := text[idx+len(repoPathMarker):]
	if fields := strings.Fields(rest); len(fields) > 0 {
		repoPath = fields[0]
	}
	if query == "" {
		query = defaultQuery
	}
	return query, repoPath
}

// agentCard is the A2A discovery document served from /.well-known.
type agentCard struct {
	Name               string         `json:"name"`
	Description        string         `json:"description"`
	Version            string         `json:"version"`
	ProtocolVersion    string         `json:"protocolVersion"`
	URL                string         `json:"url"`
	Capabilities       map[string]any `json:"capabilities"`
	DefaultInputModes  []string       `json:"defaultInputModes"`
	DefaultOutputModes []string       `json:"defaultOutputModes"`
	Skills             []agentSkill   `json:"skills"`
}

type agentSkill struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}
