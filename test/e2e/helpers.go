//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cloo-solutions/coursebot/internal/api/handlers"
	"github.com/cloo-solutions/coursebot/internal/openai"
	"github.com/cloo-solutions/coursebot/internal/server"
	"github.com/cloo-solutions/coursebot/internal/service"
	"github.com/cloo-solutions/coursebot/internal/testutil"
	"github.com/cloo-solutions/coursebot/internal/tokenizer"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	embeddingDimensions = 3
	s3Bucket            = "coursebot-e2e"
	s3Credential        = "rustfsadmin"
)

// catalog is a small course catalog in the shape the university export uses.
const catalog = `{
	"IA2001": {
		"metadata": {"nombre": "Aprendizaje de Máquina", "codigo": "IA2001", "creditos": 10, "disciplina": "Inteligencia Artificial"},
		"descripcion": "Modelos supervisados y no supervisados.",
		"evaluacion": {"items": {"control": 50, "examen": 50}}
	},
	"IA1001": {
		"metadata": {"nombre": "Introducción a la Programación", "codigo": "IA1001", "creditos": 10},
		"contenidos": {"1": {"titulo": "Python", "subsecciones": {"1.1": {"titulo": "Tipos"}, "1.2": {"titulo": "Funciones"}}}}
	},
	"IA3001": {
		"metadata": {"nombre": "Visión por Computador", "codigo": "IA3001", "creditos": 10},
		"bibliografia": {"minima": [{"raw_text": "Szeliski, Computer Vision"}]}
	},
	"IA0000": {"metadata": {"codigo": "IA0000"}}
}`

// embedByCourse maps each course to its own axis so ranking is predictable.
func embedByCourse(text string) []float32 {
	switch {
	case strings.Contains(text, "IA2001"):
		return []float32{1, 0, 0}
	case strings.Contains(text, "IA1001"):
		return []float32{0, 1, 0}
	default:
		return []float32{0, 0, 1}
	}
}

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	PostgresC    *testutil.PostgresContainer
	RustFSC      *testutil.RustFSContainer
	Pool         *pgxpool.Pool
	OpenAI       *testutil.FakeOpenAI
	DataDir      string
	BinaryDir    string
	ServerURL    string
	ServerCloser func()
	HTTPClient   *http.Client
}

// SetupE2EEnv starts the containers and the fake OpenAI API and writes the catalog
func SetupE2EEnv(t *testing.T, reply func(testutil.FakeChatRequest) string) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	s3C := testutil.NewRustFSContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	dataDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dataDir, "cursos_completo_2025.json"), []byte(catalog), 0o644); err != nil {
		t.Fatalf("failed to write catalog: %v", err)
	}

	return &E2ETestEnv{
		T:          t,
		Ctx:        ctx,
		PostgresC:  pgC,
		RustFSC:    s3C,
		Pool:       pool,
		OpenAI:     testutil.NewFakeOpenAI(t, embedByCourse, reply),
		DataDir:    dataDir,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
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
	if e.BinaryDir != "" {
		os.RemoveAll(e.BinaryDir)
	}
}

// BuildBinary builds the coursebot binary
func (e *E2ETestEnv) BuildBinary() {
	tmpDir, err := os.MkdirTemp("", "coursebot-e2e-*")
	if err != nil {
		e.T.Fatalf("failed to create temp dir: %v", err)
	}
	e.BinaryDir = tmpDir

	cmd := exec.Command("go", "build", "-o", filepath.Join(tmpDir, "coursebot"), "./cmd/coursebot")
	cmd.Dir = "../.."
	if out, err := cmd.CombinedOutput(); err != nil {
		e.T.Fatalf("failed to build coursebot: %v\n%s", err, out)
	}
}

// Env returns the COURSEBOT_* environment for the given store backend
func (e *E2ETestEnv) Env(backend string) []string {
	return append(os.Environ(),
		"COURSEBOT_DATA_DIR="+e.DataDir,
		"COURSEBOT_STORE_BACKEND="+backend,
		"COURSEBOT_STORE_PATH="+filepath.Join(e.DataDir, "course_embeddings.csv"),
		"COURSEBOT_DATABASE_URL="+e.PostgresC.ConnectionString(),
		"COURSEBOT_S3_ENDPOINT="+e.RustFSC.Endpoint(),
		"COURSEBOT_S3_ACCESS_KEY_ID="+s3Credential,
		"COURSEBOT_S3_SECRET_ACCESS_KEY="+s3Credential,
		"COURSEBOT_S3_BUCKET="+s3Bucket,
		"COURSEBOT_OPENAI_API_KEY=sk-e2e",
		"COURSEBOT_OPENAI_BASE_URL="+e.OpenAI.BaseURL(),
		fmt.Sprintf("COURSEBOT_EMBEDDING_DIMENSIONS=%d", embeddingDimensions),
	)
}

// RunCoursebot runs the coursebot CLI against the given store backend
func (e *E2ETestEnv) RunCoursebot(backend string, args ...string) (string, error) {
	cmd := exec.Command(filepath.Join(e.BinaryDir, "coursebot"), args...)
	cmd.Dir = e.DataDir
	cmd.Env = e.Env(backend)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// StartServer serves the chat API from the corpus persisted in store
func (e *E2ETestEnv) StartServer(store service.SnapshotStore) {
	corpus, err := service.LoadCorpus(e.Ctx, store)
	if err != nil {
		e.T.Fatalf("failed to load corpus: %v", err)
	}

	client := openai.NewClientWithConfig(openai.Config{
		APIKey:              "sk-e2e",
		BaseURL:             e.OpenAI.BaseURL(),
		EmbeddingDimensions: embeddingDimensions,
	})
	tok, err := tokenizer.New(service.DefaultGenerationModel)
	if err != nil {
		e.T.Fatalf("failed to create tokenizer: %v", err)
	}

	answerSvc := service.NewAnswerService(corpus, client, client, tok, service.AnswerConfig{Temperature: 0.7})
	router := server.NewRouter(server.RouterConfig{
		ChatHandler: handlers.NewChatHandler(answerSvc, corpus),
	})

	port, err := getFreePort()
	if err != nil {
		e.T.Fatalf("failed to get free port: %v", err)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			e.T.Logf("server error: %v", err)
		}
	}()

	e.ServerURL = fmt.Sprintf("http://localhost:%d", port)
	waitForServer(e.T, e.ServerURL, 10*time.Second)

	e.ServerCloser = func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}

// Get performs a GET request and returns the status code and body
func (e *E2ETestEnv) Get(path string) (int, []byte, error) {
	return e.doRequest(http.MethodGet, path, nil)
}

// Post performs a POST request and returns the status code and body
func (e *E2ETestEnv) Post(path string, body interface{}) (int, []byte, error) {
	return e.doRequest(http.MethodPost, path, body)
}

func (e *E2ETestEnv) doRequest(method, path string, body interface{}) (int, []byte, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, e.ServerURL+path, reqBody)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, respBody, nil
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
