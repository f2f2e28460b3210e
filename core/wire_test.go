package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeCustomerFrame(t *testing.T) {
	t.Run("restore", func(t *testing.T) {
		cmd, err := DecodeCustomerFrame([]byte(`{"type":"restore","session_id":"s1"}`))
		require.NoError(t, err)
		restore, ok := cmd.(RestoreSession)
		require.True(t, ok)
		assert.Equal(t, "s1", restore.SessionID)
	})

	t.Run("message", func(t *testing.T) {
		cmd, err := DecodeCustomerFrame([]byte(`{"type":"message","text":"hello"}`))
		require.NoError(t, err)
		msg, ok := cmd.(CustomerText)
		require.True(t, ok)
		assert.Equal(t, "hello", msg.Text)
	})

	t.Run("handoff response", func(t *testing.T) {
		cmd, err := DecodeCustomerFrame([]byte(`{"type":"handoff_response","accept":true}`))
		require.NoError(t, err)
		resp, ok := cmd.(HandoffResponse)
		require.True(t, ok)
		assert.True(t, resp.Accept)
	})

	t.Run("customer info", func(t *testing.T) {
		cmd, err := DecodeCustomerFrame([]byte(`{"type":"customer_info","info":{"name":"Ana","email":"ana@example.com","country":"PT"}}`))
		require.NoError(t, err)
		info, ok := cmd.(SubmitInfo)
		require.True(t, ok)
		assert.Equal(t, "Ana", info.Info.Name)
		assert.Equal(t, "PT", info.Info.Country)
	})

	t.Run("end chat", func(t *testing.T) {
		cmd, err := DecodeCustomerFrame([]byte(`{"type":"end_chat"}`))
		require.NoError(t, err)
		_, ok := cmd.(CustomerEnd)
		assert.True(t, ok)
	})

	t.Run("survey response", func(t *testing.T) {
		cmd, err := DecodeCustomerFrame([]byte(`{"type":"survey_response","rating":5,"comment":"great"}`))
		require.NoError(t, err)
		survey, ok := cmd.(SurveyResponse)
		require.True(t, ok)
		assert.Equal(t, 5, survey.Rating)
		assert.Equal(t, "great", survey.Comment)
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := DecodeCustomerFrame([]byte(`{"type":"bogus"}`))
		assert.Error(t, err)
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := DecodeCustomerFrame([]byte(`{`))
		assert.Error(t, err)
	})
}

func TestDecodeAgentFrame(t *testing.T) {
	t.Run("accept request", func(t *testing.T) {
		cmd, err := DecodeAgentFrame([]byte(`{"type":"accept_request","session_id":"s1"}`))
		require.NoError(t, err)
		accept, ok := cmd.(AcceptRequest)
		require.True(t, ok)
		assert.Equal(t, "s1", accept.SessionID)
	})

	t.Run("agent message", func(t *testing.T) {
		cmd, err := DecodeAgentFrame([]byte(`{"type":"agent_message","session_id":"s1","text":"hi"}`))
		require.NoError(t, err)
		msg, ok := cmd.(AgentText)
		require.True(t, ok)
		assert.Equal(t, "s1", msg.SessionID)
		assert.Equal(t, "hi", msg.Text)
	})

	t.Run("end chat", func(t *testing.T) {
		cmd, err := DecodeAgentFrame([]byte(`{"type":"end_chat","session_id":"s1"}`))
		require.NoError(t, err)
		end, ok := cmd.(AgentEnd)
		require.True(t, ok)
		assert.Equal(t, "s1", end.SessionID)
	})

	t.Run("set status", func(t *testing.T) {
		cmd, err := DecodeAgentFrame([]byte(`{"type":"set_status","status":"busy"}`))
		require.NoError(t, err)
		status, ok := cmd.(SetStatus)
		require.True(t, ok)
		assert.Equal(t, AgentBusy, status.Status)
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := DecodeAgentFrame([]byte(`{"type":"bogus"}`))
		assert.Error(t, err)
	})
}

func TestEventEncoding(t *testing.T) {
	t.Run("has_human survives false", func(t *testing.T) {
		hasHuman := false
		data, err := json.Marshal(CustomerEvent{Type: EvSessionStatus, HasHuman: &hasHuman})
		require.NoError(t, err)
		assert.Contains(t, string(data), `"has_human":false`)
	})

	t.Run("queue_size survives zero", func(t *testing.T) {
		n := 0
		data, err := json.Marshal(AgentEvent{Type: EvQueueUpdate, QueueSize: &n})
		require.NoError(t, err)
		assert.Contains(t, string(data), `"queue_size":0`)
	})

	t.Run("empty optionals are omitted", func(t *testing.T) {
		data, err := json.Marshal(CustomerEvent{Type: EvIdleWarning})
		require.NoError(t, err)
		assert.JSONEq(t, `{"type":"idle_warning"}`, string(data))
	})
}
