package privora

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/privora/privora-go/internal/commons"
	"github.com/privora/privora-go/internal/submitter"
	"github.com/privora/privora-go/internal/supervisor"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const testTimeout = 30 * time.Second

type PrivoraSuite struct {
	suite.Suite
	ctx           context.Context
	timeoutCancel context.CancelFunc
	workerCancel  context.CancelFunc
	workerResult  chan error
	client        *submitter.Client
	nonce         int
}

//
// Test Cases
//

func (s *PrivoraSuite) TestSubmitProofRoundTrip() {
	opts := NewPrivoraOpts()
	s.setupTest(opts)

	response, err := s.client.SubmitProof(s.ctx, map[string]any{"x": float64(1)})
	s.NoError(err)

	result, ok := response.(map[string]any)
	s.True(ok)
	s.NotEmpty(result["id"])
	s.Equal("accepted", result["status"])
}

func (s *PrivoraSuite) TestSubmittedProofIsStored() {
	opts := NewPrivoraOpts()
	s.setupTest(opts)

	response, err := s.client.SubmitProof(s.ctx, map[string]any{"proof": "deadbeef"})
	s.NoError(err)
	result := response.(map[string]any)
	id := result["id"].(string)

	url := fmt.Sprintf("%v/submissions/%v", s.client.BaseUrl, id)
	req, err := http.NewRequestWithContext(s.ctx, http.MethodGet, url, nil)
	s.NoError(err)
	resp, err := http.DefaultClient.Do(req)
	s.NoError(err)
	defer resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)
}

func (s *PrivoraSuite) TestNodeRejectsRequestWithoutEnvelope() {
	opts := NewPrivoraOpts()
	s.setupTest(opts)

	// the client always builds the envelope, so only a hand-built request
	// can miss it
	url := s.client.BaseUrl + "/submit"
	req, err := http.NewRequestWithContext(s.ctx, http.MethodPost, url,
		strings.NewReader(`{"proof": 1}`))
	s.NoError(err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	s.NoError(err)
	defer resp.Body.Close()
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

//
// Setup and tear down
//

// Setup the privora suite.
// This method requires the privora options, so each test must call it explicitly.
func (s *PrivoraSuite) setupTest(opts PrivoraOpts) {
	s.nonce += 1
	opts.HttpPort += s.nonce + 100
	s.T().Log("ports", "http", opts.HttpPort)
	commons.ConfigureLog(slog.LevelDebug)
	s.ctx, s.timeoutCancel = context.WithTimeout(context.Background(), testTimeout)
	s.workerResult = make(chan error)

	var workerCtx context.Context
	workerCtx, s.workerCancel = context.WithCancel(s.ctx)

	w := NewSupervisor(opts)

	ready := make(chan struct{})
	go func() {
		s.workerResult <- w.Start(workerCtx, ready)
	}()
	select {
	case <-s.ctx.Done():
		s.Fail("context error", s.ctx.Err())
	case err := <-s.workerResult:
		s.Fail("worker exited before being ready", err)
	case <-ready:
		s.T().Log("privora ready")
	}

	s.client = submitter.NewClient(
		fmt.Sprintf("http://%v:%v", opts.HttpAddress, opts.HttpPort))
}

func (s *PrivoraSuite) TearDownTest() {
	s.workerCancel()
	select {
	case <-s.ctx.Done():
		s.Fail("context error", s.ctx.Err())
	case err := <-s.workerResult:
		s.NoError(err)
	}
	s.timeoutCancel()
	s.T().Log("teardown ok.")
}

func TestPrivoraSuite(t *testing.T) {
	suite.Run(t, new(PrivoraSuite))
}

func TestTimeoutWorkerIsThreadedToTheSupervisor(t *testing.T) {
	opts := NewPrivoraOpts()
	require.Equal(t, supervisor.DefaultSupervisorTimeout, opts.TimeoutWorker)

	opts.TimeoutWorker = 5 * time.Second
	w := NewSupervisor(opts)
	require.Equal(t, 5*time.Second, w.ShutdownTimeout)
}
