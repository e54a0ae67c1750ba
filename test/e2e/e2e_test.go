//go:build e2e

package e2e

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type askResponse struct {
	Decision     string  `json:"decision"`
	Answer       string  `json:"answer"`
	Confidence   float64 `json:"confidence"`
	EscalationID string  `json:"escalation_id"`
}

type corpusEntry struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Embedded  bool   `json:"embedded"`
	CreatedAt string `json:"created_at"`
}

type escalationItem struct {
	ID           string  `json:"id"`
	QuestionText string  `json:"question_text"`
	Confidence   float64 `json:"confidence"`
	Status       string  `json:"status"`
	Answer       string  `json:"answer"`
	AnsweredAt   string  `json:"answered_at"`
}

func TestE2E_HealthCheck(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	resp, err := env.HTTPClient.Get(env.ServerURL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, 200, resp.StatusCode)
}

func TestE2E_AuthFlow(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()
	env.Bootstrap()

	// Me reflects the logged-in account
	resp, err := env.Get("/auth/me", env.StudentToken)
	require.NoError(t, err)

	var me struct {
		Username  string `json:"username"`
		Role      string `json:"role"`
		ClassName string `json:"class_name"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &me))
	assert.Equal(t, "student1", me.Username)
	assert.Equal(t, "student", me.Role)
	assert.Equal(t, "8A", me.ClassName)

	// Wrong password is rejected
	_, err = env.Post("/auth/login", map[string]string{
		"username": "student1",
		"password": "wrong-password",
	}, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")

	// Duplicate username is rejected
	_, err = env.Post("/auth/register", map[string]string{
		"name":     "Other",
		"username": "student1",
		"password": "another-pass-1",
		"role":     "student",
	}, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "409")

	// Logout invalidates the session
	_, err = env.Post("/auth/logout", nil, env.StudentToken)
	require.NoError(t, err)

	_, err = env.Get("/auth/me", env.StudentToken)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")

	// Log back in so other helpers stay usable
	env.StudentToken = env.registerAndLogin("Alex Kim", "student1b", "student-pass-1", "student", "8A")
}

func TestE2E_RoleEnforcement(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()
	env.Bootstrap()

	// Students cannot reach teacher surfaces
	_, err := env.Get("/escalations", env.StudentToken)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")

	_, err = env.Post("/corpus", map[string]string{"text": "q"}, env.StudentToken)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")

	// Anonymous requests are rejected outright
	_, err = env.Post("/questions", map[string]string{"question": "q"}, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestE2E_QuestionRouting(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()
	env.Bootstrap()

	// Teacher seeds the reference corpus
	resp, err := env.Post("/corpus", map[string]string{
		"text": "What is photosynthesis and how does it work?",
	}, env.TeacherToken)
	require.NoError(t, err)

	var created corpusEntry
	require.NoError(t, json.Unmarshal(resp.Data, &created))
	assert.False(t, created.Embedded)

	// The background worker embeds the entry
	env.WaitFor(15*time.Second, func() bool {
		resp, err := env.Get("/corpus/"+created.ID, env.TeacherToken)
		if err != nil {
			return false
		}
		var entry corpusEntry
		if err := json.Unmarshal(resp.Data, &entry); err != nil {
			return false
		}
		return entry.Embedded
	})

	// A match above the threshold gets an automated answer
	resp, err = env.Post("/questions", map[string]string{
		"question": "What is photosynthesis and how does it work?",
	}, env.StudentToken)
	require.NoError(t, err)

	var answered askResponse
	require.NoError(t, json.Unmarshal(resp.Data, &answered))
	assert.Equal(t, "auto_answer", answered.Decision)
	assert.GreaterOrEqual(t, answered.Confidence, 0.8)
	assert.NotEmpty(t, answered.Answer)
	assert.Empty(t, answered.EscalationID)

	// An off-corpus question escalates with the fixed notice
	resp, err = env.Post("/questions", map[string]string{
		"question": "Why did the Roman Empire collapse?",
	}, env.StudentToken)
	require.NoError(t, err)

	var escalated askResponse
	require.NoError(t, json.Unmarshal(resp.Data, &escalated))
	assert.Equal(t, "escalate", escalated.Decision)
	assert.Less(t, escalated.Confidence, 0.8)
	assert.NotEmpty(t, escalated.EscalationID)
	assert.Contains(t, escalated.Answer, "submitted for review")

	// The escalation shows up pending for the teacher
	resp, err = env.Get("/escalations", env.TeacherToken)
	require.NoError(t, err)

	var pending struct {
		Items []escalationItem `json:"items"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &pending))
	require.Len(t, pending.Items, 1)
	assert.Equal(t, escalated.EscalationID, pending.Items[0].ID)
	assert.Equal(t, "pending", pending.Items[0].Status)

	// Teacher answers it; a second answer is rejected
	_, err = env.Post("/escalations/"+escalated.EscalationID+"/answer", map[string]string{
		"answer": "Several factors, start with the economic ones.",
	}, env.TeacherToken)
	require.NoError(t, err)

	_, err = env.Post("/escalations/"+escalated.EscalationID+"/answer", map[string]string{
		"answer": "A different answer.",
	}, env.TeacherToken)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "409")

	resp, err = env.Get("/escalations/"+escalated.EscalationID, env.TeacherToken)
	require.NoError(t, err)

	var item escalationItem
	require.NoError(t, json.Unmarshal(resp.Data, &item))
	assert.Equal(t, "answered", item.Status)
	assert.Equal(t, "Several factors, start with the economic ones.", item.Answer)
	assert.NotEmpty(t, item.AnsweredAt)

	// Both routings landed in the audit history, newest first
	resp, err = env.Get("/questions/history", env.TeacherToken)
	require.NoError(t, err)

	var history struct {
		Items []struct {
			QuestionText string `json:"question_text"`
			Decision     string `json:"decision"`
			EscalationID string `json:"escalation_id"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &history))
	require.Len(t, history.Items, 2)
	assert.Equal(t, "escalate", history.Items[0].Decision)
	assert.Equal(t, escalated.EscalationID, history.Items[0].EscalationID)
	assert.Equal(t, "auto_answer", history.Items[1].Decision)
}

func TestE2E_EscalationClear(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()
	env.Bootstrap()

	// Seed one reference entry and wait for its embedding so routing has a
	// corpus to score against
	resp, err := env.Post("/corpus", map[string]string{
		"text": "What is photosynthesis and how does it work?",
	}, env.TeacherToken)
	require.NoError(t, err)

	var created corpusEntry
	require.NoError(t, json.Unmarshal(resp.Data, &created))

	env.WaitFor(15*time.Second, func() bool {
		resp, err := env.Get("/corpus/"+created.ID, env.TeacherToken)
		if err != nil {
			return false
		}
		var entry corpusEntry
		if err := json.Unmarshal(resp.Data, &entry); err != nil {
			return false
		}
		return entry.Embedded
	})

	// Off-corpus questions escalate
	for _, q := range []string{"explain gravity", "describe mitosis"} {
		_, err := env.Post("/questions", map[string]string{"question": q}, env.StudentToken)
		require.NoError(t, err)
	}

	resp, err = env.Delete("/escalations", env.TeacherToken)
	require.NoError(t, err)

	var cleared struct {
		Deleted int64 `json:"deleted"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &cleared))
	assert.Equal(t, int64(2), cleared.Deleted)

	// The audit trail survives the clear
	resp, err = env.Get("/questions/history", env.TeacherToken)
	require.NoError(t, err)

	var history struct {
		Items []json.RawMessage `json:"items"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &history))
	assert.Len(t, history.Items, 2)
}

func TestE2E_DocumentFlow(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()
	env.Bootstrap()

	docText := "Photosynthesis is the process by which plants convert light energy into chemical energy. " +
		strings.Repeat("Chlorophyll absorbs light in the red and blue parts of the spectrum. ", 10)

	// Register the document and upload its extracted text
	resp, err := env.Post("/documents", map[string]string{
		"filename":  "biology-notes.pdf",
		"mime_type": "application/pdf",
	}, env.TeacherToken)
	require.NoError(t, err)

	var created struct {
		Document struct {
			ID       string `json:"id"`
			Filename string `json:"filename"`
		} `json:"document"`
		UploadURL string `json:"upload_url"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &created))
	require.NotEmpty(t, created.UploadURL)

	require.NoError(t, env.UploadText(created.UploadURL, []byte(docText)))

	// Queue ingestion and wait for the worker to build the chunk index
	_, err = env.Post("/documents/"+created.Document.ID+"/ingest", nil, env.TeacherToken)
	require.NoError(t, err)

	env.WaitFor(15*time.Second, func() bool {
		var count int
		if err := env.Pool.QueryRow(env.Ctx,
			`SELECT count(*) FROM document_chunks WHERE document_id = $1`,
			created.Document.ID).Scan(&count); err != nil {
			return false
		}
		return count > 0
	})

	// Download URL round-trips the uploaded text
	resp, err = env.Get("/documents/"+created.Document.ID+"/download", env.TeacherToken)
	require.NoError(t, err)

	var download struct {
		URL string `json:"url"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &download))

	body, err := env.DownloadText(download.URL)
	require.NoError(t, err)
	assert.Equal(t, docText, string(body))

	// An on-corpus question now gets an answer grounded in the document
	_, err = env.Post("/corpus", map[string]string{
		"text": "What is photosynthesis?",
	}, env.TeacherToken)
	require.NoError(t, err)

	env.WaitFor(15*time.Second, func() bool {
		resp, err := env.Get("/corpus", env.TeacherToken)
		if err != nil {
			return false
		}
		var list struct {
			Items []corpusEntry `json:"items"`
		}
		if err := json.Unmarshal(resp.Data, &list); err != nil {
			return false
		}
		return len(list.Items) == 1 && list.Items[0].Embedded
	})

	resp, err = env.Post("/questions", map[string]string{
		"question": "What is photosynthesis?",
	}, env.StudentToken)
	require.NoError(t, err)

	var answered askResponse
	require.NoError(t, json.Unmarshal(resp.Data, &answered))
	assert.Equal(t, "auto_answer", answered.Decision)
	assert.Contains(t, answered.Answer, "Based on the course material")

	// Deleting the document removes its chunks
	_, err = env.Delete("/documents/"+created.Document.ID, env.TeacherToken)
	require.NoError(t, err)

	var count int
	require.NoError(t, env.Pool.QueryRow(env.Ctx,
		`SELECT count(*) FROM document_chunks WHERE document_id = $1`,
		created.Document.ID).Scan(&count))
	assert.Equal(t, 0, count)
}
