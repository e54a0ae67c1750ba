//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"math"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/eduquery-ai/eduquery/internal/api/handlers"
	"github.com/eduquery-ai/eduquery/internal/jobs"
	"github.com/eduquery-ai/eduquery/internal/repository"
	"github.com/eduquery-ai/eduquery/internal/server"
	"github.com/eduquery-ai/eduquery/internal/service"
	"github.com/eduquery-ai/eduquery/internal/storage"
	"github.com/eduquery-ai/eduquery/internal/testutil"
	"github.com/jackc/pgx/v5/pgxpool"
)

const embeddingDims = 1536

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	PostgresC    *testutil.PostgresContainer
	RustFSC      *testutil.RustFSContainer
	Pool         *pgxpool.Pool
	ServerURL    string
	ServerCloser func()
	S3Client     *storage.S3Client
	TeacherToken string
	StudentToken string
	HTTPClient   *http.Client
}

// SetupE2EEnv creates a full E2E test environment with containers and server
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	s3C := testutil.NewRustFSContainer(ctx, t)

	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        s3C.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     "rustfsadmin",
		SecretAccessKey: "rustfsadmin",
		Bucket:          "test-documents",
		UsePathStyle:    true,
	})
	if err != nil {
		t.Fatalf("failed to create S3 client: %v", err)
	}

	if err := s3Client.EnsureBucket(ctx); err != nil {
		t.Fatalf("failed to create bucket: %v", err)
	}

	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}

	serverURL, serverCloser := startServer(t, pool, s3Client, port)

	return &E2ETestEnv{
		T:            t,
		Ctx:          ctx,
		PostgresC:    pgC,
		RustFSC:      s3C,
		Pool:         pool,
		ServerURL:    serverURL,
		ServerCloser: serverCloser,
		S3Client:     s3Client,
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.ServerCloser != nil {
		e.ServerCloser()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.RustFSC != nil {
		e.RustFSC.Terminate(e.Ctx)
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
}

// Bootstrap registers one teacher and one student account and logs both in
func (e *E2ETestEnv) Bootstrap() {
	e.TeacherToken = e.registerAndLogin("Ms. Rivera", "teacher1", "teacher-pass-1", "teacher", "")
	e.StudentToken = e.registerAndLogin("Alex Kim", "student1", "student-pass-1", "student", "8A")
}

func (e *E2ETestEnv) registerAndLogin(name, username, password, role, className string) string {
	_, err := e.Post("/auth/register", map[string]string{
		"name":       name,
		"username":   username,
		"password":   password,
		"role":       role,
		"class_name": className,
	}, "")
	if err != nil {
		e.T.Fatalf("failed to register %s: %v", username, err)
	}

	resp, err := e.Post("/auth/login", map[string]string{
		"username": username,
		"password": password,
	}, "")
	if err != nil {
		e.T.Fatalf("failed to login %s: %v", username, err)
	}

	var login struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(resp.Data, &login); err != nil {
		e.T.Fatalf("failed to parse login response: %v", err)
	}
	return login.Token
}

// WaitFor polls condition until it returns true or the timeout expires
func (e *E2ETestEnv) WaitFor(timeout time.Duration, condition func() bool) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(200 * time.Millisecond)
	}
	e.T.Fatalf("condition not met within %v", timeout)
}

// APIResponse represents a standard API response
type APIResponse struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error,omitempty"`
}

// Get performs a GET request
func (e *E2ETestEnv) Get(path, authToken string) (*APIResponse, error) {
	return e.doRequest("GET", path, nil, authToken)
}

// Post performs a POST request
func (e *E2ETestEnv) Post(path string, body interface{}, authToken string) (*APIResponse, error) {
	return e.doRequest("POST", path, body, authToken)
}

// Delete performs a DELETE request
func (e *E2ETestEnv) Delete(path, authToken string) (*APIResponse, error) {
	return e.doRequest("DELETE", path, nil, authToken)
}

func (e *E2ETestEnv) doRequest(method, path string, body interface{}, authToken string) (*APIResponse, error) {
	url := e.ServerURL + path

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return nil, err
	}

	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return &APIResponse{}, nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
		}
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, apiResp.Error)
	}

	return &apiResp, nil
}

// UploadText uploads extracted document text to the presigned URL
func (e *E2ETestEnv) UploadText(uploadURL string, content []byte) error {
	req, err := http.NewRequest("PUT", uploadURL, bytes.NewReader(content))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("upload failed with status %d: %s", resp.StatusCode, body)
	}

	return nil
}

// DownloadText downloads document text from the presigned URL
func (e *E2ETestEnv) DownloadText(downloadURL string) ([]byte, error) {
	resp, err := e.HTTPClient.Get(downloadURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed with status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

// wordEmbedder is a deterministic stand-in for the embedding provider. Each
// word hashes into one vector dimension, so cosine similarity tracks word
// overlap: identical texts score 1.0, disjoint texts near 0.
type wordEmbedder struct{}

func (wordEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	v := make([]float32, embeddingDims)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,?!:;\"'")
		if word == "" {
			continue
		}
		h := fnv.New32a()
		h.Write([]byte(word))
		v[h.Sum32()%embeddingDims] += 1
	}

	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range v {
			v[i] *= scale
		}
	}
	return v, nil
}

// echoSynthesizer stands in for the LLM. It grounds its answer in the first
// retrieved excerpt so tests can assert document content flowed through.
type echoSynthesizer struct{}

func (echoSynthesizer) Synthesize(ctx context.Context, question string, excerpts []string, auxContext string) (string, error) {
	if len(excerpts) == 0 {
		return "This matches the reference question: " + auxContext, nil
	}
	return "Based on the course material: " + excerpts[0], nil
}

func (echoSynthesizer) ContainsEscalationMarker(answer string) bool {
	return strings.Contains(strings.ToLower(answer), "your teacher")
}

// startServer starts the HTTP server with all handlers plus the embedding
// worker, backed by the fake providers
func startServer(t *testing.T, pool *pgxpool.Pool, s3Client *storage.S3Client, port int) (string, func()) {
	corpusRepo := repository.NewCorpusRepository(pool)
	escalationRepo := repository.NewEscalationRepository(pool)
	auditRepo := repository.NewAuditRepository(pool)
	documentRepo := repository.NewDocumentRepository(pool)
	jobRepo := repository.NewEmbeddingJobRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)
	txRunner := repository.NewTxRunner(pool)

	authSvc := service.NewAuthService(userRepo, sessionRepo)
	corpusSvc := service.NewCorpusService(txRunner, corpusRepo)
	escalationSvc := service.NewEscalationService(escalationRepo)
	auditSvc := service.NewAuditService(auditRepo)
	documentSvc := service.NewDocumentService(documentRepo, jobRepo, s3Client, txRunner)

	routeSvc := service.NewRouteService(wordEmbedder{}, echoSynthesizer{},
		corpusRepo, documentRepo, txRunner, service.RouteConfig{
			ConfidenceThreshold: 0.8,
			RetrievalLimit:      4,
			ProviderTimeout:     5 * time.Second,
			EmbedMaxRetries:     1,
		})

	embeddingSvc := service.NewEmbeddingService(wordEmbedder{}, corpusRepo, documentRepo, s3Client)
	embeddingWorker := jobs.NewEmbeddingWorker(jobRepo, embeddingSvc)
	worker := jobs.NewWorker(embeddingWorker, 250*time.Millisecond)
	go worker.Start(context.Background())

	cfg := server.RouterConfig{
		SessionValidator:  authSvc,
		AuthHandler:       handlers.NewAuthHandler(authSvc),
		QuestionHandler:   handlers.NewQuestionHandler(routeSvc, auditSvc),
		EscalationHandler: handlers.NewEscalationHandler(escalationSvc),
		DocumentHandler:   handlers.NewDocumentHandler(documentSvc),
		CorpusHandler:     handlers.NewCorpusHandler(corpusSvc),
	}

	router := server.NewRouter(cfg)
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	serverURL := fmt.Sprintf("http://localhost:%d", port)
	waitForServer(t, serverURL, 10*time.Second)

	return serverURL, func() {
		worker.Stop()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}

func waitForServer(t *testing.T, url string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server did not start within %v", timeout)
}

func getFreePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
